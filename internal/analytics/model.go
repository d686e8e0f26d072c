// Package analytics records append-only usage events per organization.
package analytics

import (
	"errors"
	"fmt"
	"time"
)

// EventType names a tracked action.
type EventType string

const (
	EventAnalysisRun            EventType = "analysis_run"
	EventPDFGenerated           EventType = "pdf_generated"
	EventLogin                  EventType = "login"
	EventSignup                 EventType = "signup"
	EventQuestionnaireSubmitted EventType = "questionnaire_submitted"
)

// Retention is how long an event lives before it expires.
const Retention = 365 * 24 * time.Hour

var ErrInvalidEvent = errors.New("invalid analytics event")

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventAnalysisRun, EventPDFGenerated, EventLogin, EventSignup, EventQuestionnaireSubmitted:
		return true
	}
	return false
}

// Event is immutable once written.
type Event struct {
	OrgID     string         `json:"orgId"`
	Timestamp time.Time      `json:"timestamp"`
	EventType EventType      `json:"eventType"`
	UserID    string         `json:"userId,omitempty"`
	Metadata  map[string]any `json:"metadata"`
	TTL       int64          `json:"ttl"`
}

// Expired reports whether the event's TTL has passed at now.
func (e Event) Expired(now time.Time) bool {
	return e.TTL > 0 && now.Unix() >= e.TTL
}

func (e Event) validate() error {
	if e.OrgID == "" {
		return fmt.Errorf("%w: orgId is required", ErrInvalidEvent)
	}
	if !e.EventType.Valid() {
		return fmt.Errorf("%w: unknown event type %q", ErrInvalidEvent, e.EventType)
	}
	return nil
}

// Stats aggregates an organization's events.
type Stats struct {
	OrgID               string     `json:"orgId"`
	TotalAnalyses       int        `json:"totalAnalyses"`
	TotalPDFs           int        `json:"totalPdfs"`
	TotalLogins         int        `json:"totalLogins"`
	TotalQuestionnaires int        `json:"totalQuestionnaires"`
	LastActivity        *time.Time `json:"lastActivity,omitempty"`
}

func (s *Stats) add(t EventType, n int, last time.Time) {
	switch t {
	case EventAnalysisRun:
		s.TotalAnalyses += n
	case EventPDFGenerated:
		s.TotalPDFs += n
	case EventLogin:
		s.TotalLogins += n
	case EventQuestionnaireSubmitted:
		s.TotalQuestionnaires += n
	}
	if n > 0 && (s.LastActivity == nil || last.After(*s.LastActivity)) {
		ts := last
		s.LastActivity = &ts
	}
}
