package store

import (
	"context"
	"time"
)

// DoorRecord tracks a door node that has reported to this station.
type DoorRecord struct {
	Door        string    `json:"door"`
	LastAddress string    `json:"last_address,omitempty"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	Events      int64     `json:"events"`
}

type DoorStore interface {
	MarkSeen(ctx context.Context, door, address string, t time.Time) error
	List(ctx context.Context) ([]DoorRecord, error)
}
