package organizations

import (
	"context"
	"errors"
	"fmt"
)

// Seeder is implemented by stores that accept caller-chosen ids.
type Seeder interface {
	CreateWithID(ctx context.Context, id string, fields NewOrganization) (Organization, error)
}

type demoOrg struct {
	id    string
	name  string
	score int
	date  string
}

var demoOrgs = []demoOrg{
	{"org-1", "TechNova Solutions", 84, "2026-01-15"},
	{"org-2", "FinSecure Pvt Ltd", 62, "2026-01-10"},
	{"org-3", "HealthFirst Corp", 91, "2026-01-18"},
	{"org-4", "RetailMax Inc", 73, "2026-01-12"},
	{"org-5", "CloudSync Systems", 45, "2026-01-08"},
	{"org-6", "DataGuard Solutions", 88, "2026-01-17"},
}

// SeedDemo creates the demo organizations org-1 through org-6. Ids that
// already exist are left alone.
func SeedDemo(ctx context.Context, s Seeder) (int, error) {
	created := 0
	for _, d := range demoOrgs {
		score := d.score
		date := d.date
		_, err := s.CreateWithID(ctx, d.id, NewOrganization{
			Name:            d.name,
			ComplianceScore: &score,
			LastScanDate:    &date,
		})
		if err != nil {
			var storeErr *StoreError
			if errors.As(err, &storeErr) && storeErr.Op == "create" {
				if _, dup := storeErr.Err.(errDuplicateID); dup {
					continue
				}
			}
			return created, fmt.Errorf("seed %s: %w", d.id, err)
		}
		created++
	}
	return created, nil
}
