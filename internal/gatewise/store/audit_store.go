package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/types"
)

// AuditRecord captures a single access decision or aggregated door event.
// Records are created once, appended, and never updated or deleted.
type AuditRecord struct {
	ID        string        `json:"id"`
	Door      string        `json:"door,omitempty"`
	UID       string        `json:"uid"`
	Name      string        `json:"name"`
	Status    types.Verdict `json:"status"`
	Snapshot  string        `json:"snapshot,omitempty"` // optional camera artifact reference
	Timestamp time.Time     `json:"timestamp"`
}

// AuditStore persists records as an append-only log.
//
// Append is all-or-nothing: on failure it returns a *StorageError and the
// previously stored records are unchanged. Concurrent appends are
// serialized. LoadAll returns every record in append order.
type AuditStore interface {
	Append(ctx context.Context, rec AuditRecord) error
	LoadAll(ctx context.Context) ([]AuditRecord, error)
}

// Prepare fills in the record ID and timestamp when the caller left them
// empty. Every backend runs it before writing.
func Prepare(rec AuditRecord) AuditRecord {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	return rec
}
