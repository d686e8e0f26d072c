// Package questionnaire stores questionnaire submissions and rescores the
// submitting organization.
package questionnaire

import (
	"errors"
	"fmt"
	"time"
)

// Type distinguishes customer self-assessments from internal provider reviews.
type Type string

const (
	TypeUser     Type = "user"
	TypeProvider Type = "provider"
)

// Organization ids recorded when a submission names none.
const (
	AnonymousOrganization = "anonymous"
	InternalOrganization  = "internal"
)

var ErrValidation = errors.New("validation error")

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// ParseType maps the wire value to a Type. Empty means user.
func ParseType(raw string) (Type, error) {
	switch Type(raw) {
	case "", TypeUser:
		return TypeUser, nil
	case TypeProvider:
		return TypeProvider, nil
	}
	return "", validationError("unknown questionnaire type %q", raw)
}

// Submission is one stored questionnaire response set.
type Submission struct {
	ID             string            `json:"id"`
	OrganizationID string            `json:"organizationId"`
	Type           Type              `json:"type"`
	Responses      map[string]string `json:"responses"`
	SubmittedAt    time.Time         `json:"submittedAt"`
}

func (s Submission) clone() Submission {
	out := s
	out.Responses = make(map[string]string, len(s.Responses))
	for k, v := range s.Responses {
		out.Responses[k] = v
	}
	return out
}
