package jsonl_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/store"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/store/jsonl"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/types"
)

func openStore(t *testing.T, path string) *jsonl.AuditStore {
	t.Helper()
	s, err := jsonl.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAuditStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit.jsonl")
	s := openStore(t, path)
	ctx := context.Background()

	base := time.Date(2026, 2, 16, 10, 0, 0, 42, time.UTC)
	want := []store.AuditRecord{
		{ID: "1", Door: "front", UID: "A", Name: "Alice", Status: types.VerdictDeniedBlackout, Timestamp: base},
		{ID: "2", UID: "Z", Name: "Unknown", Status: types.VerdictDenied, Snapshot: "snap.jpg", Timestamp: base.Add(time.Minute)},
	}
	for _, r := range want {
		require.NoError(t, s.Append(ctx, r))
	}

	got, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	again, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestAuditStore_EmptyFile(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "audit.jsonl"))
	got, err := s.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAuditStore_ReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	ctx := context.Background()

	s, err := jsonl.Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, store.AuditRecord{UID: "A", Status: types.VerdictGranted}))
	require.NoError(t, s.Close())

	s2 := openStore(t, path)
	require.NoError(t, s2.Append(ctx, store.AuditRecord{UID: "B", Status: types.VerdictGranted}))

	got, err := s2.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].UID)
	assert.Equal(t, "B", got[1].UID)
}

func TestAuditStore_TornTailTruncatedOnOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	ctx := context.Background()

	s, err := jsonl.Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, store.AuditRecord{UID: "A", Status: types.VerdictGranted}))
	require.NoError(t, s.Close())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"id":"torn","uid":"B"`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	s2 := openStore(t, path)
	require.NoError(t, s2.Append(ctx, store.AuditRecord{UID: "C", Status: types.VerdictGranted}))

	got, err := s2.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].UID)
	assert.Equal(t, "C", got[1].UID)
}

func TestAuditStore_CorruptLineIsStorageError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("not json\n"), 0o644))

	s := openStore(t, path)
	_, err := s.LoadAll(context.Background())
	var se *store.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "load", se.Op)
}

func TestAuditStore_AppendAfterClose(t *testing.T) {
	s, err := jsonl.Open(filepath.Join(t.TempDir(), "audit.jsonl"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.Append(context.Background(), store.AuditRecord{UID: "A"})
	var se *store.StorageError
	assert.ErrorAs(t, err, &se)
}

func TestAuditStore_ConcurrentAppends(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "audit.jsonl"))
	ctx := context.Background()

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Append(ctx, store.AuditRecord{UID: fmt.Sprintf("u%02d", i), Status: types.VerdictGranted}))
		}(i)
	}
	wg.Wait()

	got, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, n)
	seen := map[string]bool{}
	for _, r := range got {
		assert.False(t, seen[r.UID])
		seen[r.UID] = true
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := jsonl.Open("")
	assert.Error(t, err)
}
