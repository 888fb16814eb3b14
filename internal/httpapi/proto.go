package httpapi

import (
	"fmt"
	"io"
	"mime"
	"net/http"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	maxRequestBody = 4096

	protobufType = "application/x-protobuf"
)

// Protobuf bodies are a google.protobuf.Struct holding the same fields as
// the JSON form, so door nodes and tools can use the well-known type
// without generated GateWise messages.

func isProtobuf(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	switch mt {
	case protobufType, "application/protobuf", "application/octet-stream":
		return true
	}
	return false
}

// readStruct decodes a Struct body, capped at maxRequestBody. A body at
// the cap is rejected rather than decoded truncated.
func readStruct(r *http.Request) (*structpb.Struct, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxRequestBody {
		return nil, fmt.Errorf("protobuf body exceeds %d bytes", maxRequestBody)
	}
	st := &structpb.Struct{}
	if err := proto.Unmarshal(body, st); err != nil {
		return nil, err
	}
	return st, nil
}

func writeStruct(w http.ResponseWriter, status int, st *structpb.Struct) {
	data, err := proto.Marshal(st)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	w.Header().Set("Content-Type", protobufType)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
