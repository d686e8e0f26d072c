package analytics

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/shared/server/middleware"
	"compliance-backend/internal/shared/server/respond"
)

// Handler exposes usage statistics and recent events.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches analytics routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/analytics/:orgId/stats", h.stats)
	rg.GET("/analytics/:orgId/events", h.events)
}

func (h *Handler) stats(c *gin.Context) {
	orgID := c.Param("orgId")
	c.Set(middleware.OrgIDKey, orgID)
	if !middleware.RequireOrgAccess(c, orgID) {
		return
	}
	stats, err := h.Svc.UsageStats(c.Request.Context(), orgID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch usage statistics", nil)
		return
	}
	respond.OK(c, gin.H{"success": true, "data": stats})
}

func (h *Handler) events(c *gin.Context) {
	orgID := c.Param("orgId")
	c.Set(middleware.OrgIDKey, orgID)
	if !middleware.RequireOrgAccess(c, orgID) {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	events, err := h.Svc.RecentEvents(c.Request.Context(), orgID, limit)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch recent events", nil)
		return
	}
	respond.OK(c, gin.H{"success": true, "data": events})
}
