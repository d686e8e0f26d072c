// Package scoring derives a compliance score and status from questionnaire answers.
package scoring

import "math"

// Status buckets a compliance score.
type Status string

const (
	StatusCompliant Status = "Compliant"
	StatusPartial   Status = "Partial"
	StatusCritical  Status = "Critical"
	StatusPending   Status = "Pending"
)

// Recognized answers. Anything else is worth zero points.
const (
	AnswerYes           = "Yes"
	AnswerNo            = "No"
	AnswerPartial       = "Partial"
	AnswerNotApplicable = "Not Applicable"
)

const (
	compliantThreshold = 85
	partialThreshold   = 60
)

// Weight returns the points awarded for a single answer.
func Weight(answer string) int {
	switch answer {
	case AnswerYes:
		return 100
	case AnswerNotApplicable:
		return 75
	case AnswerPartial:
		return 50
	default:
		return 0
	}
}

// Score is the rounded mean answer weight, or 0 when nothing was answered.
func Score(responses map[string]string) int {
	if len(responses) == 0 {
		return 0
	}
	total := 0
	for _, answer := range responses {
		total += Weight(answer)
	}
	// math.Round rounds halves away from zero; weights are non-negative so this
	// matches round-half-up.
	return int(math.Round(float64(total) / float64(len(responses))))
}

// StatusFor maps a score onto its status bucket.
func StatusFor(score int) Status {
	switch {
	case score >= compliantThreshold:
		return StatusCompliant
	case score >= partialThreshold:
		return StatusPartial
	default:
		return StatusCritical
	}
}

// Evaluate returns both the score and its status.
func Evaluate(responses map[string]string) (int, Status) {
	score := Score(responses)
	return score, StatusFor(score)
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusCompliant, StatusPartial, StatusCritical, StatusPending:
		return true
	default:
		return false
	}
}
