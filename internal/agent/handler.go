package agent

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/organizations"
	"compliance-backend/internal/shared/server/middleware"
	"compliance-backend/internal/shared/server/respond"
)

// Handler exposes the scan-agent endpoints.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches agent routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/agent", h.upload)
	rg.GET("/agent/unassigned", h.unassigned)
	rg.POST("/agent/:id/assign", h.assign)
}

func (h *Handler) upload(c *gin.Context) {
	var req Upload
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid report data", nil)
		return
	}
	if req.OrganizationID != "" {
		c.Set(middleware.OrgIDKey, req.OrganizationID)
		if !middleware.RequireOrgAccess(c, req.OrganizationID) {
			return
		}
	}
	report, err := h.Svc.Upload(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, "failed to store report")
		return
	}
	respond.JSON(c, http.StatusCreated, report)
}

// unassigned reports belong to no organization yet, so only admins see them.
func (h *Handler) unassigned(c *gin.Context) {
	ident, _ := middleware.IdentityFromContext(c)
	if !ident.IsAdmin() {
		respond.Error(c, http.StatusForbidden, "forbidden", "admin role required", nil)
		return
	}
	reports, err := h.Svc.Unassigned(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch reports", nil)
		return
	}
	respond.OK(c, reports)
}

type assignRequest struct {
	OrganizationID string `json:"organizationId"`
}

func (h *Handler) assign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.OrganizationID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "organizationId is required", nil)
		return
	}
	c.Set(middleware.OrgIDKey, req.OrganizationID)
	if !middleware.RequireOrgAccess(c, req.OrganizationID) {
		return
	}
	report, err := h.Svc.Assign(c.Request.Context(), c.Param("id"), req.OrganizationID)
	if err != nil {
		writeError(c, err, "failed to assign report")
		return
	}
	respond.OK(c, report)
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrValidation):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "report not found", nil)
	case errors.Is(err, organizations.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "organization not found", nil)
	case errors.Is(err, ErrAlreadyAssigned):
		respond.Error(c, http.StatusConflict, "already_assigned", "report is already assigned", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
