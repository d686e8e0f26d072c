package analytics

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store appends and reads events. Implementations never return expired events.
type Store interface {
	Append(ctx context.Context, e Event) error
	// Recent returns up to limit events for orgID, newest first. limit <= 0 means all.
	Recent(ctx context.Context, orgID string, limit int) ([]Event, error)
	Stats(ctx context.Context, orgID string) (Stats, error)
}

// MemoryStore keeps events in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string][]Event
	now    func() time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make(map[string][]Event),
		now:    time.Now,
	}
}

func (s *MemoryStore) Append(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.validate(); err != nil {
		return err
	}
	e.Metadata = cloneMetadata(e.Metadata)
	s.mu.Lock()
	s.events[e.OrgID] = append(s.events[e.OrgID], e)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Recent(ctx context.Context, orgID string, limit int) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := s.now()
	s.mu.RLock()
	out := make([]Event, 0, len(s.events[orgID]))
	for _, e := range s.events[orgID] {
		if e.Expired(now) {
			continue
		}
		e.Metadata = cloneMetadata(e.Metadata)
		out = append(out, e)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Stats(ctx context.Context, orgID string) (Stats, error) {
	events, err := s.Recent(ctx, orgID, 0)
	if err != nil {
		return Stats{}, err
	}
	return aggregate(orgID, events), nil
}

func aggregate(orgID string, events []Event) Stats {
	stats := Stats{OrgID: orgID}
	for _, e := range events {
		stats.add(e.EventType, 1, e.Timestamp)
	}
	return stats
}

func cloneMetadata(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var _ Store = (*MemoryStore)(nil)
