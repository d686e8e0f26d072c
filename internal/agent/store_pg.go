package agent

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGStore persists agent reports in Postgres.
type PGStore struct {
	DB *sql.DB
}

const reportColumns = `id, hostname, user_type, scan_data, questionnaire_data, status, organization_id, created_at, assigned_at`

func (s *PGStore) Create(ctx context.Context, report Report) error {
	scan, err := json.Marshal(report.ScanData)
	if err != nil {
		return fmt.Errorf("marshal scan data: %w", err)
	}
	var questionnaire any
	if report.QuestionnaireData != nil {
		raw, err := json.Marshal(report.QuestionnaireData)
		if err != nil {
			return fmt.Errorf("marshal questionnaire data: %w", err)
		}
		questionnaire = raw
	}
	const query = `
		INSERT INTO agent_reports (id, hostname, user_type, scan_data, questionnaire_data, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := s.DB.ExecContext(ctx, query,
		report.ID,
		report.Hostname,
		string(report.UserType),
		scan,
		questionnaire,
		string(report.Status),
		report.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert agent report: %w", err)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, id string) (Report, error) {
	query := `SELECT ` + reportColumns + ` FROM agent_reports WHERE id = $1`
	report, err := scanReport(s.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, ErrNotFound
	}
	if err != nil {
		return Report{}, fmt.Errorf("get agent report: %w", err)
	}
	return report, nil
}

func (s *PGStore) Unassigned(ctx context.Context) ([]Report, error) {
	query := `SELECT ` + reportColumns + ` FROM agent_reports WHERE status = 'pending' ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list agent reports: %w", err)
	}
	defer rows.Close()

	out := make([]Report, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent report: %w", err)
		}
		out = append(out, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list agent reports: %w", err)
	}
	return out, nil
}

// Assign moves a pending report to orgID in one statement so two assignments
// cannot both succeed.
func (s *PGStore) Assign(ctx context.Context, id, orgID string, at time.Time) (Report, error) {
	query := `
		UPDATE agent_reports
		SET status = 'assigned', organization_id = $2, assigned_at = $3
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + reportColumns
	report, err := scanReport(s.DB.QueryRowContext(ctx, query, id, orgID, at.UTC()))
	if err == nil {
		return report, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Report{}, fmt.Errorf("assign agent report: %w", err)
	}
	if _, err := s.Get(ctx, id); err != nil {
		return Report{}, err
	}
	return Report{}, ErrAlreadyAssigned
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (Report, error) {
	var (
		report        Report
		userType      string
		status        string
		scan          sql.NullString
		questionnaire sql.NullString
		orgID         sql.NullString
		assignedAt    sql.NullTime
	)
	if err := row.Scan(
		&report.ID,
		&report.Hostname,
		&userType,
		&scan,
		&questionnaire,
		&status,
		&orgID,
		&report.CreatedAt,
		&assignedAt,
	); err != nil {
		return Report{}, err
	}
	report.UserType = UserType(userType)
	report.Status = Status(status)
	report.OrganizationID = orgID.String
	if assignedAt.Valid {
		at := assignedAt.Time
		report.AssignedAt = &at
	}
	if scan.Valid && scan.String != "" {
		if err := json.Unmarshal([]byte(scan.String), &report.ScanData); err != nil {
			return Report{}, fmt.Errorf("decode scan_data: %w", err)
		}
	}
	if questionnaire.Valid && questionnaire.String != "" {
		if err := json.Unmarshal([]byte(questionnaire.String), &report.QuestionnaireData); err != nil {
			return Report{}, fmt.Errorf("decode questionnaire_data: %w", err)
		}
	}
	return report, nil
}

var _ Store = (*PGStore)(nil)
