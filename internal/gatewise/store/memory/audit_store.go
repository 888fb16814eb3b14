package memory

import (
	"context"
	"sync"

	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/store"
)

// AuditStore is an in-memory append-only log of audit records.
// It is intended for use in tests and dev environments.
type AuditStore struct {
	mu      sync.Mutex
	records []store.AuditRecord
}

func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) Append(ctx context.Context, rec store.AuditRecord) error {
	if err := ctx.Err(); err != nil {
		return store.Wrap("append", err)
	}
	rec = store.Prepare(rec)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// LoadAll returns a copy of all records in append order.
func (s *AuditStore) LoadAll(ctx context.Context) ([]store.AuditRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.Wrap("load", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.AuditRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

// Len is a test helper.
func (s *AuditStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
