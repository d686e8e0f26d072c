package analysis

import (
	"fmt"

	"compliance-backend/internal/organizations"
)

// FallbackControl marks the single gap of a degraded analysis.
const FallbackControl = "AI Analysis Unavailable"

// BuildFallback returns the placeholder analysis used when the model
// provider is unreachable or misconfigured. The score is the organization's
// own questionnaire score; nothing is invented.
func BuildFallback(org organizations.Organization, reason string) organizations.AnalysisResult {
	if reason == "" {
		reason = "the AI provider could not be reached"
	}
	return organizations.AnalysisResult{
		OverallScore: org.ComplianceScore,
		Gaps: []organizations.Gap{
			{
				Control:     FallbackControl,
				Description: fmt.Sprintf("Automated gap analysis could not be generated (%s). The score shown is the current questionnaire score.", reason),
				Severity:    organizations.SeverityHigh,
			},
		},
		Remedies: []organizations.Remedy{
			{
				Action:   "Enable access to the configured foundation model for this account and region",
				Timeline: "Immediate",
			},
			{
				Action:   "Re-run the analysis with refresh once model access is confirmed",
				Timeline: "After access is granted",
			},
		},
		StepByStepPlan: []string{
			"Sign in to the AI provider console with an account allowed to manage model access",
			"Open the model access page and request access to the configured model",
			"Confirm the service role is permitted to invoke the model in the deployment region",
			"Return to the dashboard and run the analysis again with refresh enabled",
		},
	}
}
