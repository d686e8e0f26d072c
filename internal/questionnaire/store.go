package questionnaire

import (
	"context"
	"sort"
	"sync"
)

// Store persists submissions.
type Store interface {
	Create(ctx context.Context, sub Submission) error
	List(ctx context.Context, t Type) ([]Submission, error)
}

// MemoryStore keeps submissions in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	subs []Submission
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Create(ctx context.Context, sub Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, sub.clone())
	return nil
}

func (s *MemoryStore) List(ctx context.Context, t Type) ([]Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Submission, 0)
	for _, sub := range s.subs {
		if sub.Type == t {
			out = append(out, sub.clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out, nil
}
