package organizations

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/identity"
	"compliance-backend/internal/shared/server/middleware"
	"compliance-backend/internal/shared/telemetry"
)

func newTestRouter(t *testing.T, ident identity.Identity) (*gin.Engine, *MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	prev := telemetry.SetOutput(io.Discard)
	t.Cleanup(func() { telemetry.SetOutput(prev) })

	store := NewMemoryStore()
	if _, err := SeedDemo(context.Background(), store); err != nil {
		t.Fatalf("SeedDemo: %v", err)
	}
	r := gin.New()
	r.Use(func(c *gin.Context) {
		middleware.SetIdentity(c, ident)
		c.Next()
	})
	NewHandler(&Service{Store: store}).RegisterRoutes(r.Group("/api"))
	return r, store
}

func TestListScopedToCallerOrganization(t *testing.T) {
	r, _ := newTestRouter(t, identity.Identity{SubjectID: "u", OrganizationID: "org-2", Role: "member"})

	req := httptest.NewRequest(http.MethodGet, "/api/organizations", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var orgs []Organization
	if err := json.Unmarshal(resp.Body.Bytes(), &orgs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(orgs) != 1 || orgs[0].ID != "org-2" {
		t.Fatalf("expected only org-2, got %+v", orgs)
	}
}

func TestListAdminSeesAll(t *testing.T) {
	r, _ := newTestRouter(t, identity.Identity{SubjectID: "a", OrganizationID: "org-1", Role: identity.RoleAdmin})

	req := httptest.NewRequest(http.MethodGet, "/api/organizations", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	var orgs []Organization
	if err := json.Unmarshal(resp.Body.Bytes(), &orgs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(orgs) != 6 {
		t.Fatalf("expected 6 orgs, got %d", len(orgs))
	}
}

func TestGetForbiddenForOtherOrganization(t *testing.T) {
	r, _ := newTestRouter(t, identity.Identity{SubjectID: "u", OrganizationID: "org-2", Role: "member"})

	req := httptest.NewRequest(http.MethodGet, "/api/organizations/org-3", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestGetUnknownReturns404(t *testing.T) {
	r, _ := newTestRouter(t, identity.Identity{SubjectID: "a", Role: identity.RoleAdmin})

	req := httptest.NewRequest(http.MethodGet, "/api/organizations/unknown-id", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	var body map[string]map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"]["code"] != "not_found" {
		t.Fatalf("unexpected error body %v", body)
	}
}

func TestCreateOrganization(t *testing.T) {
	r, store := newTestRouter(t, identity.Identity{SubjectID: "a", Role: identity.RoleAdmin})

	req := httptest.NewRequest(http.MethodPost, "/api/organizations", strings.NewReader(`{"name":"New Co","complianceScore":90}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var org Organization
	if err := json.Unmarshal(resp.Body.Bytes(), &org); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if org.Status != "Compliant" {
		t.Fatalf("expected derived Compliant status, got %s", org.Status)
	}
	if _, err := store.Get(context.Background(), org.ID); err != nil {
		t.Fatalf("expected org persisted: %v", err)
	}
}

func TestCreateRequiresName(t *testing.T) {
	r, _ := newTestRouter(t, identity.Identity{SubjectID: "a", Role: identity.RoleAdmin})

	req := httptest.NewRequest(http.MethodPost, "/api/organizations", strings.NewReader(`{"name":"  "}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestMemberWithoutOrganizationSeesNothing(t *testing.T) {
	r, _ := newTestRouter(t, identity.Identity{SubjectID: "google:123", Role: identity.RoleMember})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/organizations", nil))
	if resp.Code != http.StatusOK || strings.TrimSpace(resp.Body.String()) != "[]" {
		t.Fatalf("expected empty list, got %d %s", resp.Code, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/organizations/org-1", nil))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}
