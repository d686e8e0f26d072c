package organizations

import (
	"time"

	"compliance-backend/internal/scoring"
)

// Severity labels a gap.
type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// Gap is a control the organization does not yet satisfy.
type Gap struct {
	Control     string   `json:"control" dynamodbav:"control"`
	Description string   `json:"description" dynamodbav:"description"`
	Severity    Severity `json:"severity" dynamodbav:"severity"`
}

// Remedy is a remediation action with a suggested timeline.
type Remedy struct {
	Action   string `json:"action" dynamodbav:"action"`
	Timeline string `json:"timeline" dynamodbav:"timeline"`
}

// AnalysisResult is the cached gap analysis for one organization. It is always
// replaced as a whole.
type AnalysisResult struct {
	OverallScore   int       `json:"overallScore" dynamodbav:"overallScore"`
	Gaps           []Gap     `json:"gaps" dynamodbav:"gaps"`
	Remedies       []Remedy  `json:"remedies" dynamodbav:"remedies"`
	StepByStepPlan []string  `json:"stepByStepPlan" dynamodbav:"stepByStepPlan"`
	AnalyzedAt     time.Time `json:"analyzedAt" dynamodbav:"analyzedAt"`
}

// Organization is a tenant being assessed.
type Organization struct {
	ID                     string            `json:"id"`
	Name                   string            `json:"name"`
	ComplianceScore        int               `json:"complianceScore"`
	Status                 scoring.Status    `json:"status"`
	LastScanDate           *string           `json:"lastScanDate"`
	QuestionnaireResponses map[string]string `json:"questionnaireResponses,omitempty"`
	ScanData               map[string]any    `json:"scanData,omitempty"`
	AnalysisResult         *AnalysisResult   `json:"analysisResult,omitempty"`
	CreatedAt              time.Time         `json:"createdAt"`
}

// NewOrganization holds the caller-supplied fields for Create.
type NewOrganization struct {
	Name            string
	ComplianceScore *int
	LastScanDate    *string
}

// Update lists the fields to change. Nil fields are left untouched.
type Update struct {
	Name                   *string
	ComplianceScore        *int
	Status                 *scoring.Status
	LastScanDate           *string
	QuestionnaireResponses map[string]string
	ScanData               map[string]any
	AnalysisResult         *AnalysisResult
}

// IsEmpty reports whether the update changes nothing.
func (u Update) IsEmpty() bool {
	return u.Name == nil &&
		u.ComplianceScore == nil &&
		u.Status == nil &&
		u.LastScanDate == nil &&
		u.QuestionnaireResponses == nil &&
		u.ScanData == nil &&
		u.AnalysisResult == nil
}

// Normalize validates the update and derives Status from ComplianceScore when
// only the score is supplied.
func (u Update) Normalize() (Update, error) {
	if u.Name != nil && *u.Name == "" {
		return u, validationError("name must not be empty")
	}
	if u.ComplianceScore != nil {
		score := *u.ComplianceScore
		if score < 0 || score > 100 {
			return u, validationError("complianceScore must be between 0 and 100")
		}
		derived := scoring.StatusFor(score)
		if u.Status == nil {
			u.Status = &derived
		} else if *u.Status != derived {
			return u, validationError("status %q does not match complianceScore %d", *u.Status, score)
		}
	} else if u.Status != nil && !u.Status.Valid() {
		return u, validationError("unknown status %q", *u.Status)
	}
	return u, nil
}

// Apply merges the update into org.
func (u Update) Apply(org *Organization) {
	if u.Name != nil {
		org.Name = *u.Name
	}
	if u.ComplianceScore != nil {
		org.ComplianceScore = *u.ComplianceScore
	}
	if u.Status != nil {
		org.Status = *u.Status
	}
	if u.LastScanDate != nil {
		date := *u.LastScanDate
		org.LastScanDate = &date
	}
	if u.QuestionnaireResponses != nil {
		org.QuestionnaireResponses = cloneStrings(u.QuestionnaireResponses)
	}
	if u.ScanData != nil {
		org.ScanData = cloneAny(u.ScanData)
	}
	if u.AnalysisResult != nil {
		org.AnalysisResult = u.AnalysisResult.Clone()
	}
}

// Build turns the caller-supplied fields into a fresh record.
func (n NewOrganization) Build(id string, now time.Time) (Organization, error) {
	if n.Name == "" {
		return Organization{}, validationError("name is required")
	}
	org := Organization{
		ID:        id,
		Name:      n.Name,
		Status:    scoring.StatusPending,
		CreatedAt: now.UTC(),
	}
	if n.ComplianceScore != nil {
		score := *n.ComplianceScore
		if score < 0 || score > 100 {
			return Organization{}, validationError("complianceScore must be between 0 and 100")
		}
		org.ComplianceScore = score
		org.Status = scoring.StatusFor(score)
	}
	if n.LastScanDate != nil {
		date := *n.LastScanDate
		org.LastScanDate = &date
	}
	return org, nil
}

// Clone returns a deep copy.
func (r *AnalysisResult) Clone() *AnalysisResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Gaps = make([]Gap, len(r.Gaps))
	copy(out.Gaps, r.Gaps)
	out.Remedies = make([]Remedy, len(r.Remedies))
	copy(out.Remedies, r.Remedies)
	out.StepByStepPlan = make([]string, len(r.StepByStepPlan))
	copy(out.StepByStepPlan, r.StepByStepPlan)
	return &out
}

// Clone returns a copy that shares no mutable state with o.
func (o Organization) Clone() Organization {
	out := o
	if o.LastScanDate != nil {
		date := *o.LastScanDate
		out.LastScanDate = &date
	}
	out.QuestionnaireResponses = cloneStrings(o.QuestionnaireResponses)
	out.ScanData = cloneAny(o.ScanData)
	out.AnalysisResult = o.AnalysisResult.Clone()
	return out
}

func cloneStrings(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneAny(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
