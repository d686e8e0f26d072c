// Package reports builds compliance summaries and PDF exports.
package reports

import (
	"math"
	"time"

	"compliance-backend/internal/organizations"
)

// TotalControls is the number of ISO 27001:2022 Annex A controls.
const TotalControls = 114

// ControlSummary estimates how the Annex A controls split for a score.
type ControlSummary struct {
	TotalControls        int `json:"totalControls"`
	CompliantControls    int `json:"compliantControls"`
	PartialControls      int `json:"partialControls"`
	NonCompliantControls int `json:"nonCompliantControls"`
}

// Report is the JSON report for one organization.
type Report struct {
	Organization    organizations.Organization `json:"organization"`
	Summary         ControlSummary             `json:"summary"`
	Recommendations []string                   `json:"recommendations"`
	GeneratedAt     time.Time                  `json:"generatedAt"`
}

// Summarize splits the controls by score. The three buckets are rounded
// independently and need not add up to TotalControls.
func Summarize(score int) ControlSummary {
	gap := float64(100-score) / 100 * TotalControls
	return ControlSummary{
		TotalControls:        TotalControls,
		CompliantControls:    int(math.Round(float64(score) / 100 * TotalControls)),
		PartialControls:      int(math.Round(gap * 0.4)),
		NonCompliantControls: int(math.Round(gap * 0.6)),
	}
}

// recommendation bands are cumulative: a low score collects every band above it.
var recommendationBands = []struct {
	below int
	items []string
}{
	{50, []string{
		"Implement a formal information security policy (ISO 27001 Clause 5.2)",
		"Establish access control procedures (ISO 27002 Control 5.15)",
		"Deploy endpoint protection solutions (ISO 27002 Control 8.7)",
	}},
	{70, []string{
		"Implement data encryption for sensitive data (ISO 27002 Control 8.24)",
		"Develop and test incident response procedures (ISO 27001 Clause 10.1)",
	}},
	{85, []string{
		"Conduct regular security awareness training (ISO 27002 Control 6.3)",
		"Maintain comprehensive asset inventory (ISO 27002 Control 5.9)",
	}},
	{95, []string{
		"Review and test backup procedures (ISO 27002 Control 8.13)",
		"Perform regular internal audits",
	}},
}

// Recommendations lists actions for the score band.
func Recommendations(score int) []string {
	var out []string
	for _, band := range recommendationBands {
		if score < band.below {
			out = append(out, band.items...)
		}
	}
	if len(out) == 0 {
		out = []string{
			"Maintain current security posture",
			"Continue regular compliance monitoring",
		}
	}
	return out
}
