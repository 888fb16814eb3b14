package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/BrandonDHaskell/GateWise/server/internal/db"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/store"
)

type DoorStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewDoorStore(db *sql.DB, writer *dbpkg.Worker) *DoorStore {
	return &DoorStore{db: db, writer: writer}
}

// MarkSeen: ensure the door row exists and bump last_seen and the event count.
func (s *DoorStore) MarkSeen(ctx context.Context, door, address string, t time.Time) error {
	door = strings.TrimSpace(door)
	if door == "" {
		return nil
	}
	if t.IsZero() {
		t = time.Now().UTC()
	}
	ms := t.UTC().UnixMilli()

	var addr any
	if address != "" {
		addr = address
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO doors(door, last_address, first_seen_at_ms, last_seen_at_ms, event_count)
VALUES (?, ?, ?, ?, 1)
ON CONFLICT(door) DO UPDATE SET
  last_address    = COALESCE(excluded.last_address, doors.last_address),
  last_seen_at_ms = excluded.last_seen_at_ms,
  event_count     = doors.event_count + 1;
`, door, addr, ms, ms); err != nil {
			return fmt.Errorf("MarkSeen %s: %w", door, err)
		}
		return nil
	})
}

func (s *DoorStore) List(ctx context.Context) ([]store.DoorRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT door, last_address, first_seen_at_ms, last_seen_at_ms, event_count
FROM doors
ORDER BY door ASC;
`)
	if err != nil {
		return nil, fmt.Errorf("list doors: %w", err)
	}
	defer rows.Close()

	var out []store.DoorRecord
	for rows.Next() {
		var (
			rec         store.DoorRecord
			addr        sql.NullString
			first, last int64
		)
		if err := rows.Scan(&rec.Door, &addr, &first, &last, &rec.Events); err != nil {
			return nil, fmt.Errorf("scan door: %w", err)
		}
		rec.LastAddress = addr.String
		rec.FirstSeen = time.UnixMilli(first).UTC()
		rec.LastSeen = time.UnixMilli(last).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
