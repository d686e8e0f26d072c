package analytics

import (
	"context"
	"time"
)

const (
	DefaultRecentLimit = 50
	maxRecentLimit     = 500
)

// Service tracks and reads analytics events.
type Service struct {
	Store Store
	Now   func() time.Time
}

// Track appends an event stamped with the current time and a 365-day expiry.
func (s *Service) Track(ctx context.Context, orgID string, eventType EventType, userID string, metadata map[string]any) error {
	now := s.now().UTC()
	return s.Store.Append(ctx, Event{
		OrgID:     orgID,
		Timestamp: now,
		EventType: eventType,
		UserID:    userID,
		Metadata:  metadata,
		TTL:       now.Add(Retention).Unix(),
	})
}

// UsageStats aggregates the organization's live events.
func (s *Service) UsageStats(ctx context.Context, orgID string) (Stats, error) {
	return s.Store.Stats(ctx, orgID)
}

// RecentEvents returns the newest events first. Non-positive limits use the default.
func (s *Service) RecentEvents(ctx context.Context, orgID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	return s.Store.Recent(ctx, orgID, limit)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
