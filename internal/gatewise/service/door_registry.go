package service

import (
	"context"
	"strings"
	"time"

	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/store"
)

// DoorRegistry records which door nodes have reported to this station.
type DoorRegistry struct {
	store store.DoorStore
	clock func() time.Time
}

func NewDoorRegistry(st store.DoorStore) *DoorRegistry {
	return &DoorRegistry{store: st, clock: time.Now}
}

func (r *DoorRegistry) NoteSeen(ctx context.Context, door, address string) error {
	door = strings.TrimSpace(door)
	if door == "" || r == nil || r.store == nil {
		return nil
	}
	return r.store.MarkSeen(ctx, door, strings.TrimSpace(address), r.clock().UTC())
}

func (r *DoorRegistry) List(ctx context.Context) ([]store.DoorRecord, error) {
	if r == nil || r.store == nil {
		return nil, nil
	}
	return r.store.List(ctx)
}
