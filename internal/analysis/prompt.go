package analysis

import (
	_ "embed"
	"encoding/json"
	"strings"

	"compliance-backend/internal/organizations"
	"compliance-backend/internal/scoring"
)

//go:embed prompts/gap_analysis.txt
var gapAnalysisTemplate string

type complianceData struct {
	OrganizationName       string            `json:"organizationName"`
	CurrentScore           int               `json:"currentScore"`
	Status                 scoring.Status    `json:"status"`
	LastScanDate           *string           `json:"lastScanDate"`
	QuestionnaireResponses map[string]string `json:"questionnaireResponses"`
	ScanData               map[string]any    `json:"scanData"`
}

// BuildPrompt renders the gap-analysis prompt for org.
func BuildPrompt(org organizations.Organization) (string, error) {
	data := complianceData{
		OrganizationName:       org.Name,
		CurrentScore:           org.ComplianceScore,
		Status:                 org.Status,
		LastScanDate:           org.LastScanDate,
		QuestionnaireResponses: org.QuestionnaireResponses,
		ScanData:               org.ScanData,
	}
	if data.QuestionnaireResponses == nil {
		data.QuestionnaireResponses = map[string]string{}
	}
	if data.ScanData == nil {
		data.ScanData = map[string]any{}
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return strings.NewReplacer("{{COMPLIANCE_DATA}}", string(raw)).Replace(gapAnalysisTemplate), nil
}
