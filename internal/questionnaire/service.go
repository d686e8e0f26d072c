package questionnaire

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"compliance-backend/internal/analytics"
	"compliance-backend/internal/organizations"
	"compliance-backend/internal/scoring"
	"compliance-backend/internal/shared/telemetry"
)

// Tracker records usage events.
type Tracker interface {
	Track(ctx context.Context, orgID string, eventType analytics.EventType, userID string, metadata map[string]any) error
}

// Service accepts submissions and keeps organization scores current.
type Service struct {
	Store         Store
	Organizations organizations.Store
	Tracker       Tracker
	Catalog       Catalog
	Now           func() time.Time
}

// SubmitInput is a validated-on-entry submission request.
type SubmitInput struct {
	Type           Type
	OrganizationID string
	Responses      map[string]string
	UserID         string
}

// Receipt describes a stored submission. Organization is set when the
// submission rescored one.
type Receipt struct {
	Submission   Submission
	Organization *organizations.Organization
}

// Submit stores the submission. A user submission naming an organization
// replaces that organization's answers, score and status.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Receipt, error) {
	if len(in.Responses) == 0 {
		return Receipt{}, validationError("responses are required")
	}
	for id := range in.Responses {
		if strings.TrimSpace(id) == "" {
			return Receipt{}, validationError("response keys must be question ids")
		}
	}
	if in.Type == "" {
		in.Type = TypeUser
	}
	if in.Type != TypeUser && in.Type != TypeProvider {
		return Receipt{}, validationError("unknown questionnaire type %q", in.Type)
	}

	orgID := strings.TrimSpace(in.OrganizationID)
	rescore := in.Type == TypeUser && orgID != ""
	if rescore {
		// Reject unknown organizations before anything is written.
		if _, err := s.Organizations.Get(ctx, orgID); err != nil {
			return Receipt{}, err
		}
	}

	now := s.now().UTC()
	sub := Submission{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		Type:           in.Type,
		Responses:      in.Responses,
		SubmittedAt:    now,
	}
	if sub.OrganizationID == "" {
		if in.Type == TypeProvider {
			sub.OrganizationID = InternalOrganization
		} else {
			sub.OrganizationID = AnonymousOrganization
		}
	}
	if err := s.Store.Create(ctx, sub); err != nil {
		return Receipt{}, err
	}
	receipt := Receipt{Submission: sub.clone()}

	if rescore {
		score, status := scoring.Evaluate(in.Responses)
		scanDate := now.Format("2006-01-02")
		org, err := s.Organizations.Update(ctx, orgID, organizations.Update{
			ComplianceScore:        &score,
			Status:                 &status,
			LastScanDate:           &scanDate,
			QuestionnaireResponses: in.Responses,
		})
		if err != nil {
			return Receipt{}, fmt.Errorf("rescore organization %s: %w", orgID, err)
		}
		receipt.Organization = &org
		telemetry.Info("questionnaire.rescored", map[string]any{
			"org_id":        orgID,
			"submission_id": sub.ID,
			"score":         score,
			"status":        string(status),
		})
	}

	if orgID != "" && s.Tracker != nil {
		metadata := map[string]any{"type": string(in.Type), "answers": len(in.Responses)}
		if err := s.Tracker.Track(ctx, orgID, analytics.EventQuestionnaireSubmitted, in.UserID, metadata); err != nil {
			telemetry.Warn("analytics.track_failed", map[string]any{
				"org_id":     orgID,
				"event_type": string(analytics.EventQuestionnaireSubmitted),
				"error":      err.Error(),
			})
		}
	}
	return receipt, nil
}

// List returns stored submissions of type t, oldest first.
func (s *Service) List(ctx context.Context, t Type) ([]Submission, error) {
	return s.Store.List(ctx, t)
}

// Questions returns the catalog for t.
func (s *Service) Questions(t Type) []Question {
	return s.Catalog.Questions(t)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
