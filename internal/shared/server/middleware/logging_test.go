package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/identity"
	"compliance-backend/internal/shared/telemetry"
)

func TestLoggingIncludesRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	prev := telemetry.SetOutput(&buf)
	defer telemetry.SetOutput(prev)

	router := gin.New()
	router.Use(RequestID(), Logging(), Auth(identity.NewTestProvider(identity.Identity{})))
	router.GET("/api/analyze/:orgId", func(c *gin.Context) {
		c.Set(OrgIDKey, c.Param("orgId"))
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/analyze/org-1", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	last := lines[len(lines)-1]
	var payload map[string]any
	if err := json.Unmarshal([]byte(last), &payload); err != nil {
		t.Fatalf("decode log json: %v", err)
	}

	required := []string{"request_id", "user_id", "org_id", "duration_ms", "status", "test_identity"}
	for _, key := range required {
		if _, ok := payload[key]; !ok {
			t.Fatalf("missing log field: %s", key)
		}
	}
	if payload["msg"] != "request.complete" {
		t.Fatalf("unexpected msg: %v", payload["msg"])
	}
	if payload["user_id"] != "dev-user" {
		t.Fatalf("unexpected user_id: %v", payload["user_id"])
	}
	if payload["org_id"] != "org-1" {
		t.Fatalf("unexpected org_id: %v", payload["org_id"])
	}
	if payload["test_identity"] != true {
		t.Fatalf("expected test_identity=true")
	}
}
