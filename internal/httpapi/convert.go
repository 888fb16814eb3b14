package httpapi

import (
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/types"
)

// Door nodes that speak protobuf send a google.protobuf.Struct with the
// same field names as the JSON body.

func str(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

// ── Access ───────────────────────────────────────────────────────────────────

func accessRequestFromProto(s *structpb.Struct) types.AccessRequest {
	return types.AccessRequest{
		Type: str(s, "type"),
		UID:  str(s, "uid"),
		PIN:  str(s, "pin"),
	}
}

func accessResponseToProto(r types.AccessResponse) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"ok":          r.OK,
		"granted":     r.Granted,
		"status":      string(r.Status),
		"name":        r.Name,
		"uid":         r.UID,
		"door":        r.Door,
		"snapshot":    r.Snapshot,
		"record_id":   r.RecordID,
		"server_time": r.ServerTime,
	})
}

// ── Door events ──────────────────────────────────────────────────────────────

func wireMessageFromProto(s *structpb.Struct) types.WireMessage {
	return types.WireMessage{
		Type:   str(s, "type"),
		UID:    str(s, "uid"),
		PIN:    str(s, "pin"),
		Door:   str(s, "door"),
		Name:   str(s, "name"),
		Status: str(s, "status"),
	}
}

func ingestReplyToProto(r types.IngestReply) (*structpb.Struct, error) {
	m := map[string]any{"ok": r.OK}
	if r.Status != "" {
		m["status"] = r.Status
	}
	if r.Name != "" {
		m["name"] = r.Name
	}
	if r.Error != "" {
		m["error"] = r.Error
	}
	return structpb.NewStruct(m)
}
