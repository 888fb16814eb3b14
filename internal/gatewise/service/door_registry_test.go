package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/service"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/store/memory"
)

func TestDoorRegistry_NoteSeen(t *testing.T) {
	reg := service.NewDoorRegistry(memory.NewDoorStore())
	ctx := context.Background()

	require.NoError(t, reg.NoteSeen(ctx, " back ", "10.0.0.7:5001"))
	require.NoError(t, reg.NoteSeen(ctx, "back", "10.0.0.7:5002"))
	require.NoError(t, reg.NoteSeen(ctx, "", "10.0.0.9:1"))

	doors, err := reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, doors, 1)
	assert.Equal(t, "back", doors[0].Door)
	assert.Equal(t, "10.0.0.7:5002", doors[0].LastAddress)
	assert.EqualValues(t, 2, doors[0].Events)
}

func TestDoorRegistry_NilIsNoop(t *testing.T) {
	var reg *service.DoorRegistry
	assert.NoError(t, reg.NoteSeen(context.Background(), "x", ""))
	doors, err := reg.List(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, doors)
}
