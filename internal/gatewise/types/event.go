package types

import (
	"strings"
	"time"
)

// DoorEvent is one entry in the live monitoring stream. Timestamp is always
// the receiving station's clock at receipt, never a sender-supplied value.
type DoorEvent struct {
	ID        string    `json:"id"`
	Door      string    `json:"door"`
	UID       string    `json:"uid"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// WireMessage is the inbound payload read from a door node connection. It
// is either a credential message ({type, uid, pin}) from a local reader or
// simulator, or an aggregated door event ({door, uid, name, status}).
type WireMessage struct {
	Type   string `json:"type,omitempty" cbor:"type,omitempty"`
	UID    string `json:"uid,omitempty" cbor:"uid,omitempty"`
	PIN    string `json:"pin,omitempty" cbor:"pin,omitempty"`
	Door   string `json:"door,omitempty" cbor:"door,omitempty"`
	Name   string `json:"name,omitempty" cbor:"name,omitempty"`
	Status string `json:"status,omitempty" cbor:"status,omitempty"`
}

// IsDoorEvent reports whether the message came from a door node. A door or a
// status marks it as one even when a type is also present.
func (m WireMessage) IsDoorEvent() bool {
	return strings.TrimSpace(m.Door) != "" || strings.TrimSpace(m.Status) != ""
}

// IsCredential reports whether the message asks for a local decision.
func (m WireMessage) IsCredential() bool {
	return strings.TrimSpace(m.Type) != "" && !m.IsDoorEvent()
}

func (m WireMessage) AccessRequest() AccessRequest {
	return AccessRequest{Type: m.Type, UID: m.UID, PIN: m.PIN}
}

// IngestReply is written back to the sender after a message is handled.
type IngestReply struct {
	OK     bool   `json:"ok" cbor:"ok"`
	Status string `json:"status,omitempty" cbor:"status,omitempty"`
	Name   string `json:"name,omitempty" cbor:"name,omitempty"`
	Error  string `json:"error,omitempty" cbor:"error,omitempty"`
}
