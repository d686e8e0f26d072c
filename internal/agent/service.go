package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"compliance-backend/internal/organizations"
	"compliance-backend/internal/shared/telemetry"
)

// Service stores agent uploads and copies an assigned report's scan onto its
// organization.
type Service struct {
	Store         Store
	Organizations organizations.Store
	Now           func() time.Time
}

// Upload stores a report. A report that already names an organization is
// assigned straight away.
func (s *Service) Upload(ctx context.Context, in Upload) (Report, error) {
	report, err := in.build(uuid.NewString(), s.now())
	if err != nil {
		return Report{}, err
	}
	orgID := strings.TrimSpace(in.OrganizationID)
	if orgID != "" {
		if _, err := s.Organizations.Get(ctx, orgID); err != nil {
			return Report{}, err
		}
	}
	if err := s.Store.Create(ctx, report); err != nil {
		return Report{}, err
	}
	telemetry.Info("agent.report_received", map[string]any{
		"report_id": report.ID,
		"hostname":  report.Hostname,
		"user_type": string(report.UserType),
	})
	if orgID == "" {
		return report, nil
	}
	return s.Assign(ctx, report.ID, orgID)
}

// Unassigned lists reports waiting for an organization, newest first.
func (s *Service) Unassigned(ctx context.Context) ([]Report, error) {
	return s.Store.Unassigned(ctx)
}

// Assign attaches a pending report to orgID and makes its scan the
// organization's current scan data. The cached analysis is left alone until
// the next refresh.
func (s *Service) Assign(ctx context.Context, id, orgID string) (Report, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return Report{}, validationError("organizationId is required")
	}
	if _, err := s.Organizations.Get(ctx, orgID); err != nil {
		return Report{}, err
	}
	report, err := s.Store.Assign(ctx, id, orgID, s.now())
	if err != nil {
		return Report{}, err
	}
	if _, err := s.Organizations.Update(ctx, orgID, organizations.Update{ScanData: report.ScanData}); err != nil {
		return Report{}, fmt.Errorf("attach scan %s to organization %s: %w", id, orgID, err)
	}
	telemetry.Info("agent.report_assigned", map[string]any{
		"report_id": report.ID,
		"org_id":    orgID,
		"hostname":  report.Hostname,
	})
	return report, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
