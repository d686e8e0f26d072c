package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/identity"
	"compliance-backend/internal/shared/server/respond"
)

const (
	userIDKey   = "userId"
	identityKey = "identity"
)

// Auth verifies the bearer token with provider and stores the identity in context.
func Auth(provider identity.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		token := ""
		if authHeader := strings.TrimSpace(c.GetHeader("Authorization")); authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}
			token = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		}

		ident, err := provider.Verify(c.Request.Context(), token)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		SetIdentity(c, ident)
		c.Next()
	}
}

// SetIdentity stores ident on the request context.
func SetIdentity(c *gin.Context, ident identity.Identity) {
	c.Set(identityKey, ident)
	c.Set(userIDKey, ident.SubjectID)
}

// IdentityFromContext fetches the identity set by the auth middleware.
func IdentityFromContext(c *gin.Context) (identity.Identity, bool) {
	if c == nil {
		return identity.Identity{}, false
	}
	val, ok := c.Get(identityKey)
	if !ok {
		return identity.Identity{}, false
	}
	ident, ok := val.(identity.Identity)
	return ident, ok
}

// UserIDFromContext fetches the caller's subject id.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// RequireOrgAccess aborts with 403 unless the caller may act on orgID.
// It returns false when the request was aborted.
func RequireOrgAccess(c *gin.Context, orgID string) bool {
	ident, ok := IdentityFromContext(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return false
	}
	if !ident.CanAccess(orgID) {
		respond.Error(c, http.StatusForbidden, "forbidden", "access denied for this organization", nil)
		return false
	}
	return true
}
