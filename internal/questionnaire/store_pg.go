package questionnaire

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PGStore persists submissions in Postgres.
type PGStore struct {
	DB *sql.DB
}

func (s *PGStore) Create(ctx context.Context, sub Submission) error {
	responses, err := json.Marshal(sub.Responses)
	if err != nil {
		return fmt.Errorf("marshal responses: %w", err)
	}
	const query = `
		INSERT INTO questionnaire_submissions (id, organization_id, type, responses, submitted_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.DB.ExecContext(ctx, query, sub.ID, sub.OrganizationID, string(sub.Type), responses, sub.SubmittedAt); err != nil {
		return fmt.Errorf("insert questionnaire submission: %w", err)
	}
	return nil
}

func (s *PGStore) List(ctx context.Context, t Type) ([]Submission, error) {
	const query = `
		SELECT id, organization_id, type, responses, submitted_at
		FROM questionnaire_submissions
		WHERE type = $1
		ORDER BY submitted_at ASC`
	rows, err := s.DB.QueryContext(ctx, query, string(t))
	if err != nil {
		return nil, fmt.Errorf("list questionnaire submissions: %w", err)
	}
	defer rows.Close()

	out := make([]Submission, 0)
	for rows.Next() {
		var (
			sub       Submission
			typ       string
			responses sql.NullString
		)
		if err := rows.Scan(&sub.ID, &sub.OrganizationID, &typ, &responses, &sub.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan questionnaire submission: %w", err)
		}
		sub.Type = Type(typ)
		sub.Responses = map[string]string{}
		if responses.Valid && responses.String != "" {
			if err := json.Unmarshal([]byte(responses.String), &sub.Responses); err != nil {
				return nil, fmt.Errorf("decode responses for %s: %w", sub.ID, err)
			}
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list questionnaire submissions: %w", err)
	}
	return out, nil
}
