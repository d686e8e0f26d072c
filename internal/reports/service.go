package reports

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"compliance-backend/internal/analytics"
	"compliance-backend/internal/organizations"
	"compliance-backend/internal/shared/storage/object"
	"compliance-backend/internal/shared/telemetry"
	"compliance-backend/internal/shared/util"
)

const (
	contentTypePDF = "application/pdf"
	keyPrefix      = "reports"
	// DefaultURLTTL is how long presigned download links stay valid.
	DefaultURLTTL = time.Hour
)

// Tracker records usage events.
type Tracker interface {
	Track(ctx context.Context, orgID string, eventType analytics.EventType, userID string, metadata map[string]any) error
}

// Service builds reports for organizations.
type Service struct {
	Orgs    organizations.Store
	Objects object.ObjectStore
	Tracker Tracker
	URLTTL  time.Duration
	Now     func() time.Time
}

// Export is a rendered PDF. DownloadURL is empty when the object store was
// unavailable and the bytes must be handed over directly.
type Export struct {
	Filename    string
	Key         string
	PDF         []byte
	DownloadURL string
	GeneratedAt time.Time
}

// Report returns the JSON summary for orgID.
func (s *Service) Report(ctx context.Context, orgID string) (Report, error) {
	org, err := s.Orgs.Get(ctx, orgID)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Organization:    org,
		Summary:         Summarize(org.ComplianceScore),
		Recommendations: Recommendations(org.ComplianceScore),
		GeneratedAt:     s.now().UTC(),
	}, nil
}

// ExportPDF renders the report, records a pdf_generated event and tries to
// hand the file off to object storage.
func (s *Service) ExportPDF(ctx context.Context, orgID, userID string) (Export, error) {
	org, err := s.Orgs.Get(ctx, orgID)
	if err != nil {
		return Export{}, err
	}
	now := s.now().UTC()
	safeID, err := util.SanitizeFileName(org.ID)
	if err != nil {
		return Export{}, fmt.Errorf("report filename for %q: %w", org.ID, err)
	}
	doc, err := RenderPDF(org, now)
	if err != nil {
		return Export{}, err
	}
	out := Export{
		Filename:    fmt.Sprintf("compliance-report-%s-%d.pdf", safeID, now.UnixMilli()),
		PDF:         doc,
		GeneratedAt: now,
	}
	out.Key = keyPrefix + "/" + safeID + "/" + out.Filename

	if s.Tracker != nil {
		if err := s.Tracker.Track(ctx, org.ID, analytics.EventPDFGenerated, userID, map[string]any{"filename": out.Filename}); err != nil {
			telemetry.Warn("analytics.track_failed", map[string]any{
				"org_id":     org.ID,
				"event_type": string(analytics.EventPDFGenerated),
				"error":      err.Error(),
			})
		}
	}

	url, err := s.upload(ctx, org.ID, out)
	if err != nil {
		telemetry.Warn("report.upload_failed", map[string]any{
			"org_id": org.ID,
			"key":    out.Key,
			"error":  err.Error(),
		})
		return out, nil
	}
	out.DownloadURL = url
	telemetry.Info("report.exported", map[string]any{
		"org_id":     org.ID,
		"key":        out.Key,
		"size_bytes": len(out.PDF),
	})
	return out, nil
}

func (s *Service) upload(ctx context.Context, orgID string, exp Export) (string, error) {
	if s.Objects == nil {
		return "", fmt.Errorf("object store not configured")
	}
	_, err := s.Objects.Put(ctx, exp.Key, bytes.NewReader(exp.PDF), object.PutOptions{
		ContentType: contentTypePDF,
		Metadata: map[string]string{
			"orgId":       orgID,
			"generatedAt": exp.GeneratedAt.Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", err
	}
	ttl := s.URLTTL
	if ttl <= 0 {
		ttl = DefaultURLTTL
	}
	return s.Objects.URL(ctx, exp.Key, ttl)
}

// OpenArtifact streams a previously exported file. It only serves keys under
// the organization's report folder.
func (s *Service) OpenArtifact(ctx context.Context, orgID, key string) (io.ReadCloser, error) {
	if s.Objects == nil {
		return nil, fmt.Errorf("object store not configured")
	}
	clean, err := util.CleanKey(key)
	if err != nil {
		return nil, err
	}
	if ArtifactOrg(clean) != orgID {
		return nil, fmt.Errorf("artifact %q does not belong to %s", clean, orgID)
	}
	return s.Objects.Open(ctx, clean)
}

// ArtifactOrg returns the organization id encoded in a report key, or "".
func ArtifactOrg(key string) string {
	parts := strings.Split(strings.Trim(key, "/"), "/")
	if len(parts) != 3 || parts[0] != keyPrefix {
		return ""
	}
	return parts[1]
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
