package aggregator

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/types"
)

// Format is the encoding an inbound message arrived in. Replies are written
// back in the same format.
type Format int

const (
	FormatJSON Format = iota
	FormatCBOR
)

func (f Format) String() string {
	if f == FormatCBOR {
		return "cbor"
	}
	return "json"
}

// decodeMessage reads exactly one message from r. JSON objects are
// recognised by a leading '{' after optional whitespace; anything else is
// decoded as a CBOR map. Both encodings are self-delimiting, so the sender
// does not need to close its write side.
//
// io.EOF is returned only when the stream held nothing but whitespace.
func decodeMessage(r *bufio.Reader) (types.WireMessage, Format, error) {
	var msg types.WireMessage

	first, err := skipSpace(r)
	if err != nil {
		return msg, FormatJSON, err
	}

	if first == '{' {
		if err := json.NewDecoder(r).Decode(&msg); err != nil {
			return msg, FormatJSON, &ParseError{Err: noEOF(err)}
		}
		return msg, FormatJSON, nil
	}

	if err := cbor.NewDecoder(r).Decode(&msg); err != nil {
		return msg, FormatCBOR, &ParseError{Err: noEOF(err)}
	}
	return msg, FormatCBOR, nil
}

// skipSpace advances past ASCII whitespace and returns the next byte
// without consuming it.
func skipSpace(r *bufio.Reader) (byte, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, r.UnreadByte()
	}
}

// a payload cut short is a malformed message, not an empty connection
func noEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

func encodeReply(w io.Writer, f Format, reply types.IngestReply) error {
	if f == FormatCBOR {
		return cbor.NewEncoder(w).Encode(reply)
	}
	return json.NewEncoder(w).Encode(reply)
}
