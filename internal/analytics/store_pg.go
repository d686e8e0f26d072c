package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PGStore persists events in Postgres. Expired rows are filtered on read.
type PGStore struct {
	DB  *sql.DB
	Now func() time.Time
}

func (s *PGStore) Append(ctx context.Context, e Event) error {
	if err := e.validate(); err != nil {
		return err
	}
	metadata, err := json.Marshal(cloneMetadata(e.Metadata))
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	const query = `
		INSERT INTO analytics_events (id, org_id, occurred_at, event_type, user_id, metadata, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = s.DB.ExecContext(ctx, query,
		uuid.NewString(),
		e.OrgID,
		e.Timestamp.UTC(),
		string(e.EventType),
		nullString(e.UserID),
		metadata,
		time.Unix(e.TTL, 0).UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert analytics event: %w", err)
	}
	return nil
}

func (s *PGStore) Recent(ctx context.Context, orgID string, limit int) ([]Event, error) {
	query := `
		SELECT org_id, occurred_at, event_type, user_id, metadata, expires_at
		FROM analytics_events
		WHERE org_id = $1 AND expires_at > $2
		ORDER BY occurred_at DESC`
	args := []any{orgID, s.now().UTC()}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query analytics events: %w", err)
	}
	defer rows.Close()

	out := make([]Event, 0)
	for rows.Next() {
		var e Event
		var eventType string
		var userID sql.NullString
		var metadata sql.NullString
		var expiresAt time.Time
		if err := rows.Scan(&e.OrgID, &e.Timestamp, &eventType, &userID, &metadata, &expiresAt); err != nil {
			return nil, fmt.Errorf("scan analytics event: %w", err)
		}
		e.EventType = EventType(eventType)
		e.UserID = userID.String
		e.TTL = expiresAt.Unix()
		e.Metadata = map[string]any{}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analytics events: %w", err)
	}
	return out, nil
}

func (s *PGStore) Stats(ctx context.Context, orgID string) (Stats, error) {
	const query = `
		SELECT event_type, COUNT(*), MAX(occurred_at)
		FROM analytics_events
		WHERE org_id = $1 AND expires_at > $2
		GROUP BY event_type`
	rows, err := s.DB.QueryContext(ctx, query, orgID, s.now().UTC())
	if err != nil {
		return Stats{}, fmt.Errorf("query analytics stats: %w", err)
	}
	defer rows.Close()

	stats := Stats{OrgID: orgID}
	for rows.Next() {
		var eventType string
		var count int
		var last time.Time
		if err := rows.Scan(&eventType, &count, &last); err != nil {
			return Stats{}, fmt.Errorf("scan analytics stats: %w", err)
		}
		stats.add(EventType(eventType), count, last)
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate analytics stats: %w", err)
	}
	return stats, nil
}

func (s *PGStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

var _ Store = (*PGStore)(nil)
