package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/analysis"
	"compliance-backend/internal/identity"
	"compliance-backend/internal/shared/config"
	"compliance-backend/internal/shared/telemetry"
)

const modelReply = `{"overallScore": 81, "gaps": [{"control": "A.12.4", "description": "Logs are not reviewed", "severity": "medium"}],
 "remedies": [{"action": "Schedule weekly log review", "timeline": "1 month"}],
 "stepByStepPlan": ["Pick a log platform", "Assign reviewers"]}`

type stubModel struct {
	calls int
}

func (s *stubModel) Complete(ctx context.Context, prompt string) (string, error) {
	s.calls++
	return modelReply, nil
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Env:              "dev",
		StoreBackend:     config.StoreMemory,
		AIProvider:       config.AIProviderNone,
		AuthProvider:     config.AuthProviderTest,
		ObjectStoreType:  config.ObjectStoreLocal,
		LocalStoreDir:    t.TempDir(),
		AnalysisCacheTTL: time.Hour,
		AnalysisCoalesce: true,
		SeedDemoData:     true,
	}
}

func buildApp(t *testing.T, cfg config.Config, opts Options) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	prev := telemetry.SetOutput(io.Discard)
	t.Cleanup(func() { telemetry.SetOutput(prev) })

	app, err := BuildWithOptions(context.Background(), cfg, opts)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func do(t *testing.T, app *App, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestBuildSeedsDemoOrganizations(t *testing.T) {
	app := buildApp(t, testConfig(t), Options{})

	rec := do(t, app, http.MethodGet, "/api/organizations", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var orgs []map[string]any
	decode(t, rec, &orgs)
	if len(orgs) != 6 {
		t.Fatalf("expected 6 demo organizations, got %d", len(orgs))
	}
}

func TestHealthAndMe(t *testing.T) {
	app := buildApp(t, testConfig(t), Options{})

	rec := do(t, app, http.MethodGet, "/api/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	var health map[string]any
	decode(t, rec, &health)
	if health["ok"] != true || health["store"] != config.StoreMemory {
		t.Fatalf("unexpected health payload: %v", health)
	}

	rec = do(t, app, http.MethodGet, "/api/me", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d", rec.Code)
	}
	var me map[string]any
	decode(t, rec, &me)
	if me["userId"] != identity.DevIdentity.SubjectID || me["organizationId"] != "org-1" {
		t.Fatalf("unexpected me payload: %v", me)
	}
}

func TestAnalyzeWithoutProviderReturnsFallback(t *testing.T) {
	app := buildApp(t, testConfig(t), Options{})

	rec := do(t, app, http.MethodPost, "/api/analyze/org-1", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var body struct {
		Cached bool `json:"cached"`
		Data   struct {
			Gaps []struct {
				Control string `json:"control"`
			} `json:"gaps"`
		} `json:"data"`
	}
	decode(t, rec, &body)
	if body.Cached {
		t.Fatalf("fallback result should not be reported as cached")
	}
	if len(body.Data.Gaps) == 0 || body.Data.Gaps[0].Control != analysis.FallbackControl {
		t.Fatalf("expected fallback gap, got %+v", body.Data.Gaps)
	}
}

func TestQuestionnaireRescoresThroughRouter(t *testing.T) {
	app := buildApp(t, testConfig(t), Options{})

	rec := do(t, app, http.MethodPost, "/api/questionnaire/submit",
		`{"organizationId":"org-2","responses":{"q1":"Yes","q2":"No"}}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, app, http.MethodGet, "/api/organizations/org-2", "", "")
	var org map[string]any
	decode(t, rec, &org)
	if org["complianceScore"] != float64(50) || org["status"] != "Critical" {
		t.Fatalf("unexpected organization after rescoring: %v", org)
	}

	rec = do(t, app, http.MethodGet, "/api/analytics/org-2/stats", "", "")
	var stats struct {
		Data struct {
			TotalQuestionnaires int `json:"totalQuestionnaires"`
		} `json:"data"`
	}
	decode(t, rec, &stats)
	if stats.Data.TotalQuestionnaires != 1 {
		t.Fatalf("totalQuestionnaires = %d, want 1", stats.Data.TotalQuestionnaires)
	}
}

func TestAnalyzeCachesAndRefreshes(t *testing.T) {
	model := &stubModel{}
	app := buildApp(t, testConfig(t), Options{LLM: model})

	first := do(t, app, http.MethodPost, "/api/analyze/org-3", "", "")
	second := do(t, app, http.MethodPost, "/api/analyze/org-3", "", "")
	third := do(t, app, http.MethodPost, "/api/analyze/org-3?refresh=true", "", "")
	for i, rec := range []*httptest.ResponseRecorder{first, second, third} {
		if rec.Code != http.StatusOK {
			t.Fatalf("call %d status = %d body=%s", i+1, rec.Code, rec.Body.String())
		}
	}

	var out struct {
		Cached bool `json:"cached"`
	}
	decode(t, second, &out)
	if !out.Cached {
		t.Fatalf("second call should be served from cache")
	}
	if model.calls != 2 {
		t.Fatalf("model calls = %d, want 2", model.calls)
	}

	rec := do(t, app, http.MethodGet, "/api/analytics/org-3/stats", "", "")
	var stats struct {
		Data struct {
			TotalAnalyses int `json:"totalAnalyses"`
		} `json:"data"`
	}
	decode(t, rec, &stats)
	if stats.Data.TotalAnalyses != 2 {
		t.Fatalf("totalAnalyses = %d, want 2", stats.Data.TotalAnalyses)
	}
}

func TestAnalyzeUnknownOrganization(t *testing.T) {
	app := buildApp(t, testConfig(t), Options{})

	rec := do(t, app, http.MethodPost, "/api/analyze/unknown-id", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestReportPDFIsDownloadableFromLocalStore(t *testing.T) {
	app := buildApp(t, testConfig(t), Options{})

	rec := do(t, app, http.MethodGet, "/api/report/pdf/org-1", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var out struct {
		DownloadURL string `json:"downloadUrl"`
		Filename    string `json:"filename"`
	}
	decode(t, rec, &out)
	if !strings.HasPrefix(out.DownloadURL, "/api/report/files/reports/org-1/") {
		t.Fatalf("unexpected download url %q", out.DownloadURL)
	}

	rec = do(t, app, http.MethodGet, out.DownloadURL, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("download status = %d body=%s", rec.Code, rec.Body.String())
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")) {
		t.Fatalf("download is not a PDF")
	}
}

func TestJWTProviderGuardsOrganizations(t *testing.T) {
	cfg := testConfig(t)
	cfg.AuthProvider = config.AuthProviderJWT
	cfg.JWTSecret = "test-secret"
	app := buildApp(t, cfg, Options{})

	if rec := do(t, app, http.MethodGet, "/api/organizations/org-1", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d, want 401", rec.Code)
	}

	signer, err := identity.NewJWTProvider(cfg.JWTSecret, "", "")
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	token, err := signer.Sign(identity.Identity{SubjectID: "user-7", OrganizationID: "org-2", Role: "member"}, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if rec := do(t, app, http.MethodGet, "/api/organizations/org-2", "", token); rec.Code != http.StatusOK {
		t.Fatalf("own organization status = %d body=%s", rec.Code, rec.Body.String())
	}
	if rec := do(t, app, http.MethodGet, "/api/organizations/org-1", "", token); rec.Code != http.StatusForbidden {
		t.Fatalf("foreign organization status = %d, want 403", rec.Code)
	}
}

func TestBuildRejectsTestAuthOutsideDev(t *testing.T) {
	cfg := testConfig(t)
	cfg.Env = "staging"
	prev := telemetry.SetOutput(io.Discard)
	defer telemetry.SetOutput(prev)
	_, err := BuildWithOptions(context.Background(), cfg, Options{})
	if err == nil {
		t.Fatalf("expected test auth to be refused outside dev")
	}
}

func TestAgentReportAssignedThroughRouter(t *testing.T) {
	app := buildApp(t, testConfig(t), Options{})

	rec := do(t, app, http.MethodPost, "/api/agent",
		`{"hostname":"WS-042","userType":"admin","scanData":{"firewall":{"status":"active"}}}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d body=%s", rec.Code, rec.Body.String())
	}
	var report struct {
		ID string `json:"id"`
	}
	decode(t, rec, &report)

	rec = do(t, app, http.MethodPost, "/api/agent/"+report.ID+"/assign", `{"organizationId":"org-1"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("assign status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, app, http.MethodGet, "/api/organizations/org-1", "", "")
	var org struct {
		ScanData map[string]any `json:"scanData"`
	}
	decode(t, rec, &org)
	if _, ok := org.ScanData["firewall"]; !ok {
		t.Fatalf("scan data missing from organization: %v", org.ScanData)
	}
}
