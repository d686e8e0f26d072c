// Package agent receives host scan reports from the desktop scanning agent and
// attaches them to organizations, which makes them part of the analysis input.
package agent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// UserType is the kind of account the scan ran under.
type UserType string

const (
	UserAdmin    UserType = "admin"
	UserEmployee UserType = "employee"
)

// Status tracks whether a report has been attached to an organization.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAssigned Status = "assigned"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("agent report not found")
	ErrAlreadyAssigned = errors.New("agent report already assigned")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Report is one scan uploaded by the agent.
type Report struct {
	ID                string         `json:"id"`
	Hostname          string         `json:"hostname"`
	UserType          UserType       `json:"userType"`
	ScanData          map[string]any `json:"scanData"`
	QuestionnaireData map[string]any `json:"questionnaireData,omitempty"`
	Status            Status         `json:"status"`
	OrganizationID    string         `json:"organizationId,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	AssignedAt        *time.Time     `json:"assignedAt,omitempty"`
}

func (r Report) clone() Report {
	out := r
	out.ScanData = cloneMap(r.ScanData)
	out.QuestionnaireData = cloneMap(r.QuestionnaireData)
	if r.AssignedAt != nil {
		at := *r.AssignedAt
		out.AssignedAt = &at
	}
	return out
}

// Upload is the agent's payload. The agent sends scanData and
// questionnaireData either as JSON objects or as strings holding one.
type Upload struct {
	Hostname          string          `json:"hostname"`
	UserType          string          `json:"userType"`
	ScanData          json.RawMessage `json:"scanData"`
	QuestionnaireData json.RawMessage `json:"questionnaireData"`
	OrganizationID    string          `json:"organizationId"`
}

// build validates the upload and decodes its embedded documents.
func (u Upload) build(id string, now time.Time) (Report, error) {
	hostname := strings.TrimSpace(u.Hostname)
	if hostname == "" {
		return Report{}, validationError("hostname is required")
	}
	userType := UserType(strings.ToLower(strings.TrimSpace(u.UserType)))
	if userType != UserAdmin && userType != UserEmployee {
		return Report{}, validationError("userType must be admin or employee")
	}
	scan, err := decodeObject(u.ScanData)
	if err != nil {
		return Report{}, validationError("scanData: %v", err)
	}
	if len(scan) == 0 {
		return Report{}, validationError("scanData is required")
	}
	questionnaire, err := decodeObject(u.QuestionnaireData)
	if err != nil {
		return Report{}, validationError("questionnaireData: %v", err)
	}
	return Report{
		ID:                id,
		Hostname:          hostname,
		UserType:          userType,
		ScanData:          scan,
		QuestionnaireData: questionnaire,
		Status:            StatusPending,
		CreatedAt:         now.UTC(),
	}, nil
}

// decodeObject accepts a JSON object, a string holding a JSON object, or null.
func decodeObject(raw json.RawMessage) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, err
		}
		if strings.TrimSpace(inner) == "" {
			return nil, nil
		}
		raw = json.RawMessage(inner)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.New("must be a JSON object")
	}
	return out, nil
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
