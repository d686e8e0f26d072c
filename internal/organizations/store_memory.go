package organizations

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps organizations in process memory and is safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]Organization
	now  func() time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: make(map[string]Organization),
		now:  time.Now,
	}
}

// Get returns the organization with the given id.
func (s *MemoryStore) Get(ctx context.Context, id string) (Organization, error) {
	if err := ctx.Err(); err != nil {
		return Organization{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.byID[id]
	if !ok {
		return Organization{}, ErrNotFound
	}
	return org.Clone(), nil
}

// List returns every organization, oldest first.
func (s *MemoryStore) List(ctx context.Context) ([]Organization, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]Organization, 0, len(s.byID))
	for _, org := range s.byID {
		out = append(out, org.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Create stores a new organization with a generated id.
func (s *MemoryStore) Create(ctx context.Context, fields NewOrganization) (Organization, error) {
	return s.CreateWithID(ctx, uuid.NewString(), fields)
}

// CreateWithID stores a new organization under a caller-chosen id. Demo
// seeding and tests use it to get stable ids.
func (s *MemoryStore) CreateWithID(ctx context.Context, id string, fields NewOrganization) (Organization, error) {
	if err := ctx.Err(); err != nil {
		return Organization{}, err
	}
	org, err := fields.Build(id, s.now())
	if err != nil {
		return Organization{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[id]; exists {
		return Organization{}, storeError("create", errDuplicateID(id))
	}
	s.byID[id] = org
	return org.Clone(), nil
}

// Update merges the supplied fields under the store lock.
func (s *MemoryStore) Update(ctx context.Context, id string, update Update) (Organization, error) {
	if err := ctx.Err(); err != nil {
		return Organization{}, err
	}
	update, err := update.Normalize()
	if err != nil {
		return Organization{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.byID[id]
	if !ok {
		return Organization{}, ErrNotFound
	}
	update.Apply(&org)
	s.byID[id] = org
	return org.Clone(), nil
}

type errDuplicateID string

func (e errDuplicateID) Error() string { return "duplicate organization id " + string(e) }

var _ Store = (*MemoryStore)(nil)
