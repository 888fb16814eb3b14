package export_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/export"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/store"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/store/memory"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/types"
)

func TestWriteCSV_HeaderAndRows(t *testing.T) {
	ts := time.Date(2026, 2, 16, 10, 0, 0, 0, time.UTC)
	recs := []store.AuditRecord{
		{UID: "A", Name: "Alice, Jr.", Status: types.VerdictDeniedBlackout, Snapshot: "s/A.jpg", Timestamp: ts},
		{UID: "Z", Name: "Unknown", Status: types.VerdictDenied, Timestamp: ts.Add(time.Minute)},
	}

	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, recs))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, export.Columns, rows[0])
	assert.Equal(t, []string{"2026-02-16T10:00:00Z", "A", "Alice, Jr.", "denied (blackout)", "s/A.jpg"}, rows[1])
	assert.Equal(t, []string{"2026-02-16T10:01:00Z", "Z", "Unknown", "denied", ""}, rows[2])
}

func TestToFile_DoesNotMutateStore(t *testing.T) {
	src := memory.NewAuditStore()
	ctx := context.Background()
	require.NoError(t, src.Append(ctx, store.AuditRecord{UID: "A", Name: "Alice", Status: types.VerdictGranted}))
	before, _ := src.LoadAll(ctx)

	path := filepath.Join(t.TempDir(), "out", "access_logs.csv")
	n, err := export.ToFile(ctx, src, path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	after, _ := src.LoadAll(ctx)
	assert.Equal(t, before, after)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "timestamp,uid,name,status,snapshot\n")
	assert.Contains(t, string(data), ",A,Alice,granted,")
}
