package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/identity"
	"compliance-backend/internal/shared/telemetry"
)

func newJWT(t *testing.T) *identity.JWTProvider {
	t.Helper()
	p, err := identity.NewJWTProvider("test-secret", "", "")
	if err != nil {
		t.Fatalf("jwt provider: %v", err)
	}
	return p
}

func TestAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(newJWT(t)))
	router.OPTIONS("/api/organizations", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/organizations", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func TestAuthRejectsMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	prev := telemetry.SetOutput(io.Discard)
	defer telemetry.SetOutput(prev)

	router := gin.New()
	router.Use(Auth(newJWT(t)))
	router.GET("/api/organizations", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/organizations", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestAuthStoresIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	provider := newJWT(t)
	token, err := provider.Sign(identity.Identity{SubjectID: "user-1", OrganizationID: "org-1", Role: "member"}, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	router := gin.New()
	router.Use(Auth(provider))
	var got identity.Identity
	router.GET("/api/organizations/:id", func(c *gin.Context) {
		got, _ = IdentityFromContext(c)
		if !RequireOrgAccess(c, c.Param("id")) {
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/organizations/org-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got.SubjectID != "user-1" || got.OrganizationID != "org-1" {
		t.Fatalf("unexpected identity %+v", got)
	}

	prev := telemetry.SetOutput(io.Discard)
	defer telemetry.SetOutput(prev)
	req = httptest.NewRequest(http.MethodGet, "/api/organizations/org-2", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestAuthWithTestProviderNeedsNoToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	prev := telemetry.SetOutput(io.Discard)
	defer telemetry.SetOutput(prev)

	router := gin.New()
	router.Use(Auth(identity.NewTestProvider(identity.Identity{})))
	router.GET("/api/organizations", func(c *gin.Context) {
		ident, _ := IdentityFromContext(c)
		c.String(http.StatusOK, ident.SubjectID)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/organizations", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || resp.Body.String() != "dev-user" {
		t.Fatalf("expected dev identity, got %d %q", resp.Code, resp.Body.String())
	}
}

type failingProvider struct{}

func (failingProvider) Verify(context.Context, string) (identity.Identity, error) {
	return identity.Identity{}, identity.ErrUnauthenticated
}

func TestAuthRejectsNonBearerScheme(t *testing.T) {
	gin.SetMode(gin.TestMode)
	prev := telemetry.SetOutput(io.Discard)
	defer telemetry.SetOutput(prev)

	router := gin.New()
	router.Use(Auth(failingProvider{}))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Basic abc")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}
