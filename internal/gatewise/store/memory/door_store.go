package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/store"
)

type DoorStore struct {
	mu    sync.RWMutex
	doors map[string]store.DoorRecord
}

func NewDoorStore() *DoorStore {
	return &DoorStore{doors: make(map[string]store.DoorRecord)}
}

func (s *DoorStore) MarkSeen(_ context.Context, door, address string, t time.Time) error {
	door = strings.TrimSpace(door)
	if door == "" {
		return nil
	}
	if t.IsZero() {
		t = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.doors[door]
	if !ok {
		rec = store.DoorRecord{Door: door, FirstSeen: t}
	}
	rec.LastSeen = t
	if address != "" {
		rec.LastAddress = address
	}
	rec.Events++
	s.doors[door] = rec
	return nil
}

// List returns doors ordered by name.
func (s *DoorStore) List(_ context.Context) ([]store.DoorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.DoorRecord, 0, len(s.doors))
	for _, rec := range s.doors {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Door < out[j].Door })
	return out, nil
}
