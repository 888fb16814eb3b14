package types

import (
	"strings"
	"time"
)

type CredentialKind string

const (
	CredentialRFID   CredentialKind = "rfid"
	CredentialKeypad CredentialKind = "keypad"
)

// Credential is what a person presents at the door: a tag UID read by the
// RFID reader, or a PIN typed on the keypad.
type Credential struct {
	Kind CredentialKind
	UID  string
	PIN  string
}

// Key is the registry lookup key. Keypad credentials without a UID are
// looked up by PIN.
func (c Credential) Key() string {
	if c.Kind == CredentialKeypad && strings.TrimSpace(c.UID) == "" {
		return strings.TrimSpace(c.PIN)
	}
	return strings.TrimSpace(c.UID)
}

// Verdict is the outcome of a single access decision. The string values are
// what the audit log and the monitor display.
type Verdict string

const (
	VerdictGranted        Verdict = "granted"
	VerdictDenied         Verdict = "denied"
	VerdictDeniedBlackout Verdict = "denied (blackout)"
	VerdictDeniedCamera   Verdict = "denied (camera)"
)

func (v Verdict) Granted() bool { return v == VerdictGranted }

type AccessRequest struct {
	Type string `json:"type"`
	UID  string `json:"uid,omitempty"`
	PIN  string `json:"pin,omitempty"`
}

// Credential converts the request into a Credential. An empty type is
// treated as an RFID scan.
func (r AccessRequest) Credential() Credential {
	kind := CredentialKind(strings.ToLower(strings.TrimSpace(r.Type)))
	if kind == "" {
		kind = CredentialRFID
	}
	return Credential{
		Kind: kind,
		UID:  strings.TrimSpace(r.UID),
		PIN:  strings.TrimSpace(r.PIN),
	}
}

type AccessResponse struct {
	OK         bool    `json:"ok"`
	Granted    bool    `json:"granted"`
	Status     Verdict `json:"status"`
	Name       string  `json:"name"`
	UID        string  `json:"uid"`
	Door       string  `json:"door"`
	Snapshot   string  `json:"snapshot,omitempty"`
	RecordID   string  `json:"record_id,omitempty"`
	ServerTime string  `json:"server_time"`

	// Timestamp is the receipt time written to the audit record.
	Timestamp time.Time `json:"-"`
}
