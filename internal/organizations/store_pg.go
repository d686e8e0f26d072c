package organizations

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"compliance-backend/internal/scoring"
)

// PGStore persists organizations in Postgres.
type PGStore struct {
	DB  *sql.DB
	Now func() time.Time
}

const orgColumns = `id, name, compliance_score, status, last_scan_date, questionnaire_responses, scan_data, analysis_result, created_at`

func (s *PGStore) Get(ctx context.Context, id string) (Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE id = $1`
	org, err := scanOrganization(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Organization{}, ErrNotFound
		}
		return Organization{}, storeError("get", err)
	}
	return org, nil
}

func (s *PGStore) List(ctx context.Context) ([]Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations ORDER BY created_at ASC, id ASC`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, storeError("list", err)
	}
	defer rows.Close()

	out := make([]Organization, 0)
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, storeError("list", err)
		}
		out = append(out, org)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list", err)
	}
	return out, nil
}

func (s *PGStore) Create(ctx context.Context, fields NewOrganization) (Organization, error) {
	return s.CreateWithID(ctx, uuid.NewString(), fields)
}

// CreateWithID inserts a new organization under a caller-chosen id.
func (s *PGStore) CreateWithID(ctx context.Context, id string, fields NewOrganization) (Organization, error) {
	org, err := fields.Build(id, s.now())
	if err != nil {
		return Organization{}, err
	}
	const query = `
		INSERT INTO organizations (id, name, compliance_score, status, last_scan_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = s.DB.ExecContext(ctx, query,
		org.ID,
		org.Name,
		org.ComplianceScore,
		string(org.Status),
		nullableString(org.LastScanDate),
		org.CreatedAt,
	)
	if err != nil {
		return Organization{}, storeError("create", err)
	}
	return org, nil
}

// Update issues a single UPDATE ... RETURNING so concurrent writers never
// observe a partially applied record.
func (s *PGStore) Update(ctx context.Context, id string, update Update) (Organization, error) {
	update, err := update.Normalize()
	if err != nil {
		return Organization{}, err
	}
	if update.IsEmpty() {
		return s.Get(ctx, id)
	}

	sets := make([]string, 0, 7)
	args := make([]any, 0, 8)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Name != nil {
		add("name", *update.Name)
	}
	if update.ComplianceScore != nil {
		add("compliance_score", *update.ComplianceScore)
	}
	if update.Status != nil {
		add("status", string(*update.Status))
	}
	if update.LastScanDate != nil {
		add("last_scan_date", *update.LastScanDate)
	}
	if update.QuestionnaireResponses != nil {
		raw, err := marshalJSONB(update.QuestionnaireResponses)
		if err != nil {
			return Organization{}, err
		}
		add("questionnaire_responses", raw)
	}
	if update.ScanData != nil {
		raw, err := marshalJSONB(update.ScanData)
		if err != nil {
			return Organization{}, err
		}
		add("scan_data", raw)
	}
	if update.AnalysisResult != nil {
		raw, err := marshalJSONB(update.AnalysisResult)
		if err != nil {
			return Organization{}, err
		}
		add("analysis_result", raw)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE organizations SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), orgColumns)

	org, err := scanOrganization(s.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Organization{}, ErrNotFound
		}
		return Organization{}, storeError("update", err)
	}
	return org, nil
}

func (s *PGStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrganization(row rowScanner) (Organization, error) {
	var org Organization
	var status string
	var lastScan sql.NullString
	var responses sql.NullString
	var scanData sql.NullString
	var analysis sql.NullString

	if err := row.Scan(
		&org.ID,
		&org.Name,
		&org.ComplianceScore,
		&status,
		&lastScan,
		&responses,
		&scanData,
		&analysis,
		&org.CreatedAt,
	); err != nil {
		return Organization{}, err
	}

	org.Status = scoring.Status(status)
	if lastScan.Valid {
		date := lastScan.String
		org.LastScanDate = &date
	}
	if responses.Valid && responses.String != "" {
		if err := json.Unmarshal([]byte(responses.String), &org.QuestionnaireResponses); err != nil {
			return Organization{}, fmt.Errorf("decode questionnaire_responses: %w", err)
		}
	}
	if scanData.Valid && scanData.String != "" {
		if err := json.Unmarshal([]byte(scanData.String), &org.ScanData); err != nil {
			return Organization{}, fmt.Errorf("decode scan_data: %w", err)
		}
	}
	if analysis.Valid && analysis.String != "" && analysis.String != "null" {
		var result AnalysisResult
		if err := json.Unmarshal([]byte(analysis.String), &result); err != nil {
			return Organization{}, fmt.Errorf("decode analysis_result: %w", err)
		}
		org.AnalysisResult = &result
	}
	return org, nil
}

func nullableString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func marshalJSONB(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode jsonb: %w", err)
	}
	return raw, nil
}

var _ Store = (*PGStore)(nil)
