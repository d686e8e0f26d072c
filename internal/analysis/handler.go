package analysis

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/organizations"
	"compliance-backend/internal/shared/server/middleware"
	"compliance-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the orchestrator.
type Handler struct {
	Orch *Orchestrator
}

// NewHandler constructs a Handler.
func NewHandler(orch *Orchestrator) *Handler {
	return &Handler{Orch: orch}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyze/:orgId", h.analyze)
	rg.GET("/analyze/:orgId", h.get)
}

func (h *Handler) analyze(c *gin.Context) {
	orgID := c.Param("orgId")
	c.Set(middleware.OrgIDKey, orgID)
	if !middleware.RequireOrgAccess(c, orgID) {
		return
	}
	force, _ := strconv.ParseBool(c.DefaultQuery("refresh", "false"))

	out, err := h.Orch.RequestAnalysis(c.Request.Context(), orgID, force, middleware.UserIDFromContext(c))
	if err != nil {
		if errors.Is(err, organizations.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "organization not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "analysis_failed", "failed to analyze organization", gin.H{
			"cause": err.Error(),
		})
		return
	}

	respond.OK(c, gin.H{
		"success": true,
		"data":    out.Result,
		"cached":  out.Cached,
	})
}

func (h *Handler) get(c *gin.Context) {
	orgID := c.Param("orgId")
	c.Set(middleware.OrgIDKey, orgID)
	if !middleware.RequireOrgAccess(c, orgID) {
		return
	}

	result, err := h.Orch.Cached(c.Request.Context(), orgID)
	if err != nil {
		switch {
		case errors.Is(err, organizations.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "organization not found", nil)
		case errors.Is(err, ErrNoAnalysis):
			respond.Error(c, http.StatusNotFound, "not_found", "analysis result not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analysis result", gin.H{
				"cause": err.Error(),
			})
		}
		return
	}
	respond.OK(c, gin.H{"success": true, "data": result})
}
