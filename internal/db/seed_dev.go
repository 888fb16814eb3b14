package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SeedDev registers the station's own door so the monitor's door list is
// never empty on a fresh dev database.
func SeedDev(ctx context.Context, db *sql.DB, door string) error {
	door = strings.TrimSpace(door)
	if door == "" {
		return nil
	}
	now := time.Now().UTC().UnixMilli()

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO doors(door, first_seen_at_ms, last_seen_at_ms, event_count)
VALUES (?, ?, ?, 0);`, door, now, now); err != nil {
		return fmt.Errorf("seed door %s: %w", door, err)
	}
	return nil
}
