package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/shared/server/middleware"
	"compliance-backend/internal/shared/server/respond"
)

// registerMeRoutes attaches the /me endpoint.
func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", meHandler)
}

func meHandler(c *gin.Context) {
	ident, ok := middleware.IdentityFromContext(c)
	if !ok || ident.SubjectID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return
	}

	response := gin.H{
		"userId": ident.SubjectID,
		"role":   ident.Role,
	}
	if ident.Email != "" {
		response["email"] = ident.Email
	}
	if ident.OrganizationID != "" {
		response["organizationId"] = ident.OrganizationID
	}
	respond.JSON(c, http.StatusOK, response)
}
