package agent

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store persists agent reports. Assign only moves a pending report.
type Store interface {
	Create(ctx context.Context, report Report) error
	Get(ctx context.Context, id string) (Report, error)
	Unassigned(ctx context.Context) ([]Report, error)
	Assign(ctx context.Context, id, orgID string, at time.Time) (Report, error)
}

// MemoryStore keeps reports in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]Report
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]Report)}
}

func (s *MemoryStore) Create(ctx context.Context, report Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[report.ID] = report.clone()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.byID[id]
	if !ok {
		return Report{}, ErrNotFound
	}
	return report.clone(), nil
}

// Unassigned returns pending reports, newest first.
func (s *MemoryStore) Unassigned(ctx context.Context) ([]Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Report, 0)
	for _, report := range s.byID {
		if report.Status == StatusPending {
			out = append(out, report.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Assign(ctx context.Context, id, orgID string, at time.Time) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.byID[id]
	if !ok {
		return Report{}, ErrNotFound
	}
	if report.Status != StatusPending {
		return Report{}, ErrAlreadyAssigned
	}
	at = at.UTC()
	report.Status = StatusAssigned
	report.OrganizationID = orgID
	report.AssignedAt = &at
	s.byID[id] = report
	return report.clone(), nil
}

var _ Store = (*MemoryStore)(nil)
