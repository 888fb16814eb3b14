// Package export renders the audit log as CSV. It only reads from the
// store.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/store"
)

// Columns is the fixed header of the tabular export.
var Columns = []string{"timestamp", "uid", "name", "status", "snapshot"}

// Reader is the read side of an audit store.
type Reader interface {
	LoadAll(ctx context.Context) ([]store.AuditRecord, error)
}

func WriteCSV(w io.Writer, recs []store.AuditRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range recs {
		row := []string{
			r.Timestamp.Format(time.RFC3339),
			r.UID,
			r.Name,
			string(r.Status),
			r.Snapshot,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ToFile writes the full log to path, replacing any previous export
// atomically. It returns the number of records written.
func ToFile(ctx context.Context, src Reader, path string) (int, error) {
	recs, err := src.LoadAll(ctx)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("mkdir export dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.csv")
	if err != nil {
		return 0, fmt.Errorf("create export: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, recs); err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close export: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("rename export: %w", err)
	}
	return len(recs), nil
}
