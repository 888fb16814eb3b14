package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/GateWise/server/internal/db"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/store"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/types"
)

// AuditStore keeps the audit log in the audit_log table. Appends go through
// the shared single-writer worker; seq gives the append order.
type AuditStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAuditStore(db *sql.DB, writer *dbpkg.Worker) *AuditStore {
	return &AuditStore{db: db, writer: writer}
}

func (s *AuditStore) Append(ctx context.Context, rec store.AuditRecord) error {
	rec = store.Prepare(rec)

	var snapshot any
	if rec.Snapshot != "" {
		snapshot = rec.Snapshot
	}

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO audit_log(record_id, door, uid, name, status, snapshot, recorded_at_ns)
VALUES (?, ?, ?, ?, ?, ?, ?);
`,
			rec.ID, rec.Door, rec.UID, rec.Name, string(rec.Status), snapshot,
			rec.Timestamp.UnixNano(),
		); err != nil {
			return fmt.Errorf("insert audit_log: %w", err)
		}
		return nil
	})
	return store.Wrap("append", err)
}

func (s *AuditStore) LoadAll(ctx context.Context) ([]store.AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT record_id, door, uid, name, status, snapshot, recorded_at_ns
FROM audit_log
ORDER BY seq ASC;
`)
	if err != nil {
		return nil, store.Wrap("load", err)
	}
	defer rows.Close()

	out := []store.AuditRecord{}
	for rows.Next() {
		var (
			rec      store.AuditRecord
			status   string
			snapshot sql.NullString
			ns       int64
		)
		if err := rows.Scan(&rec.ID, &rec.Door, &rec.UID, &rec.Name, &status, &snapshot, &ns); err != nil {
			return nil, store.Wrap("load", err)
		}
		rec.Status = types.Verdict(status)
		rec.Snapshot = snapshot.String
		rec.Timestamp = time.Unix(0, ns).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Wrap("load", err)
	}
	return out, nil
}
