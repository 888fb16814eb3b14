package aggregator

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyStarted = errors.New("aggregator already started")
	ErrInvalidCommand = errors.New("invalid door command")
)

// ParseError reports an inbound message that could not be decoded or did
// not match either message kind. It is contained to its connection.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed message: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func parseErrorf(format string, args ...any) error {
	return &ParseError{Err: fmt.Errorf(format, args...)}
}

// NetworkError reports a failed bind or outbound command.
type NetworkError struct {
	Op   string // "listen" | "dial" | "write"
	Addr string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
