package organizations

import (
	"context"

	"compliance-backend/internal/identity"
)

// Service exposes organization reads and writes scoped to the caller.
type Service struct {
	Store Store
}

// Get returns one organization.
func (s *Service) Get(ctx context.Context, id string) (Organization, error) {
	return s.Store.Get(ctx, id)
}

// ListFor returns the organizations ident may see.
func (s *Service) ListFor(ctx context.Context, ident identity.Identity) ([]Organization, error) {
	all, err := s.Store.List(ctx)
	if err != nil {
		return nil, err
	}
	if ident.IsAdmin() {
		return all, nil
	}
	out := make([]Organization, 0, 1)
	for _, org := range all {
		if ident.CanAccess(org.ID) {
			out = append(out, org)
		}
	}
	return out, nil
}

// Create stores a new organization.
func (s *Service) Create(ctx context.Context, fields NewOrganization) (Organization, error) {
	return s.Store.Create(ctx, fields)
}
