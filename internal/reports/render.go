package reports

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"compliance-backend/internal/organizations"
)

const (
	margin = 50.0
	indent = 15.0
)

type rgb struct{ r, g, b int }

var (
	colorText      = rgb{77, 77, 77}
	colorPrimary   = rgb{51, 102, 153}
	colorHigh      = rgb{204, 51, 51}
	colorMedium    = rgb{230, 153, 26}
	colorLow       = rgb{51, 153, 77}
	colorGreyLight = rgb{128, 128, 128}
)

// document wraps fpdf with the report's line-oriented layout. Text goes
// through the cp1252 translator because the core Helvetica fonts are used.
type document struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newDocument(title string, createdAt time.Time) *document {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetCreationDate(createdAt)
	pdf.SetCreator("compliance-backend", false)
	pdf.SetTitle(title, true)
	pdf.AddPage()
	return &document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (d *document) space(h float64) {
	d.pdf.Ln(h)
}

// text writes s at the left margin, wrapping it to the page width.
func (d *document) text(s string, size float64, bold bool, c rgb) {
	d.textAt(0, s, size, bold, c)
}

func (d *document) textAt(offset float64, s string, size float64, bold bool, c rgb) {
	style := ""
	if bold {
		style = "B"
	}
	d.pdf.SetFont("Helvetica", style, size)
	d.pdf.SetTextColor(c.r, c.g, c.b)
	d.pdf.SetX(margin + offset)
	d.pdf.MultiCell(0, size*1.4, d.tr(s), "", "L", false)
}

func (d *document) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderPDF lays out the organization's score, cached analysis and
// recommendations as a text PDF.
func RenderPDF(org organizations.Organization, generatedAt time.Time) ([]byte, error) {
	d := newDocument("Compliance Assessment Report: "+org.Name, generatedAt)

	d.space(80)
	d.text("ISO 27001/27002", 32, true, colorPrimary)
	d.space(10)
	d.text("Compliance Assessment Report", 24, true, colorText)
	d.space(40)
	d.text("Organization: "+org.Name, 16, false, colorText)
	d.text("Report Date: "+generatedAt.UTC().Format("2006-01-02"), 14, false, colorText)
	d.space(20)
	d.text("Compliance Score", 14, true, colorText)
	d.text(fmt.Sprintf("%d%%", org.ComplianceScore), 36, true, colorPrimary)
	d.text("Status: "+string(org.Status), 14, false, colorText)
	if org.LastScanDate != nil {
		d.text("Last Scan: "+*org.LastScanDate, 12, false, colorText)
	}

	summary := Summarize(org.ComplianceScore)
	d.space(20)
	d.text("Annex A Control Summary", 16, true, colorPrimary)
	d.text(fmt.Sprintf("Total controls: %d", summary.TotalControls), 11, false, colorText)
	d.text(fmt.Sprintf("Compliant: %d", summary.CompliantControls), 11, false, colorLow)
	d.text(fmt.Sprintf("Partially compliant: %d", summary.PartialControls), 11, false, colorMedium)
	d.text(fmt.Sprintf("Non-compliant: %d", summary.NonCompliantControls), 11, false, colorHigh)

	if a := org.AnalysisResult; a != nil {
		d.pdf.AddPage()
		d.text("AI-Powered Compliance Analysis", 20, true, colorPrimary)
		d.text("Analyzed: "+a.AnalyzedAt.UTC().Format(time.RFC3339), 10, false, colorGreyLight)

		d.space(12)
		d.text("Compliance Gaps Analysis", 16, true, colorText)
		if len(a.Gaps) == 0 {
			d.text("No significant compliance gaps identified.", 11, false, colorText)
		}
		for _, gap := range a.Gaps {
			d.space(4)
			d.text(fmt.Sprintf("[%s] %s", gap.Severity, gap.Control), 12, true, severityColor(gap.Severity))
			d.textAt(indent, gap.Description, 10, false, colorText)
		}

		d.space(12)
		d.text("Recommended Remediation Actions", 16, true, colorText)
		for i, remedy := range a.Remedies {
			d.space(4)
			d.text(fmt.Sprintf("%d. %s", i+1, remedy.Action), 11, false, colorText)
			d.textAt(indent, "Timeline: "+remedy.Timeline, 10, false, colorGreyLight)
		}

		d.space(12)
		d.text("Step-by-Step Implementation Plan", 16, true, colorText)
		for i, step := range a.StepByStepPlan {
			d.text(fmt.Sprintf("Step %d: %s", i+1, step), 11, false, colorText)
		}
	} else {
		d.space(20)
		d.text("No AI analysis has been run for this organization yet.", 11, false, colorGreyLight)
	}

	d.space(12)
	d.text("Recommendations", 16, true, colorPrimary)
	for _, rec := range Recommendations(org.ComplianceScore) {
		d.text("- "+rec, 11, false, colorText)
	}
	return d.bytes()
}

func severityColor(s organizations.Severity) rgb {
	switch s {
	case organizations.SeverityHigh:
		return colorHigh
	case organizations.SeverityLow:
		return colorLow
	default:
		return colorMedium
	}
}
