package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqlitestore "github.com/BrandonDHaskell/GateWise/server/internal/gatewise/store/sqlite"
)

func TestDoorStore_MarkSeenUpserts(t *testing.T) {
	conn := openTestDB(t)
	ds := sqlitestore.NewDoorStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	t0 := time.Date(2026, 2, 16, 9, 0, 0, 0, time.UTC)
	require.NoError(t, ds.MarkSeen(ctx, "door1", "10.0.0.5:41000", t0))
	require.NoError(t, ds.MarkSeen(ctx, "door1", "", t0.Add(time.Minute)))
	require.NoError(t, ds.MarkSeen(ctx, "door0", "10.0.0.9:41000", t0))
	require.NoError(t, ds.MarkSeen(ctx, "", "ignored", t0))

	doors, err := ds.List(ctx)
	require.NoError(t, err)
	require.Len(t, doors, 2)

	assert.Equal(t, "door0", doors[0].Door)
	d1 := doors[1]
	assert.Equal(t, "door1", d1.Door)
	assert.Equal(t, "10.0.0.5:41000", d1.LastAddress, "empty address keeps the previous one")
	assert.Equal(t, int64(2), d1.Events)
	assert.Equal(t, t0, d1.FirstSeen)
	assert.Equal(t, t0.Add(time.Minute), d1.LastSeen)
}
