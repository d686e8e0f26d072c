package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"compliance-backend/internal/organizations"
)

var ErrParse = errors.New("analysis response is not valid JSON")

type rawAnalysis struct {
	OverallScore   *float64               `json:"overallScore"`
	Gaps           []rawGap               `json:"gaps"`
	Remedies       []organizations.Remedy `json:"remedies"`
	StepByStepPlan []string               `json:"stepByStepPlan"`
}

type rawGap struct {
	Control     string `json:"control"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// extractJSON returns the span from the first '{' to the last '}' in text.
func extractJSON(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("%w: no JSON object in response", ErrParse)
	}
	return text[start : end+1], nil
}

// ParseResponse decodes the model's raw text into an AnalysisResult without
// an analyzedAt stamp.
func ParseResponse(text string) (organizations.AnalysisResult, error) {
	body, err := extractJSON(text)
	if err != nil {
		return organizations.AnalysisResult{}, err
	}
	var raw rawAnalysis
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return organizations.AnalysisResult{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if raw.OverallScore == nil {
		return organizations.AnalysisResult{}, fmt.Errorf("%w: overallScore missing", ErrParse)
	}

	result := organizations.AnalysisResult{
		OverallScore:   clampScore(*raw.OverallScore),
		Gaps:           make([]organizations.Gap, 0, len(raw.Gaps)),
		Remedies:       make([]organizations.Remedy, 0, len(raw.Remedies)),
		StepByStepPlan: make([]string, 0, len(raw.StepByStepPlan)),
	}
	for _, g := range raw.Gaps {
		result.Gaps = append(result.Gaps, organizations.Gap{
			Control:     g.Control,
			Description: g.Description,
			Severity:    normalizeSeverity(g.Severity),
		})
	}
	result.Remedies = append(result.Remedies, raw.Remedies...)
	result.StepByStepPlan = append(result.StepByStepPlan, raw.StepByStepPlan...)
	return result, nil
}

func clampScore(v float64) int {
	score := int(math.Round(v))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Unrecognized labels are treated as Medium.
func normalizeSeverity(s string) organizations.Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "critical":
		return organizations.SeverityHigh
	case "low":
		return organizations.SeverityLow
	default:
		return organizations.SeverityMedium
	}
}
