package organizations

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/shared/server/middleware"
	"compliance-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the organizations service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches organization routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/organizations", h.list)
	rg.GET("/organizations/:id", h.get)
	rg.POST("/organizations", h.create)
}

func (h *Handler) list(c *gin.Context) {
	ident, _ := middleware.IdentityFromContext(c)
	orgs, err := h.Svc.ListFor(c.Request.Context(), ident)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch organizations", nil)
		return
	}
	respond.OK(c, orgs)
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.OrgIDKey, id)
	if !middleware.RequireOrgAccess(c, id) {
		return
	}

	org, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "organization not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch organization", nil)
		return
	}
	respond.OK(c, org)
}

type createRequest struct {
	Name            string  `json:"name"`
	ComplianceScore *int    `json:"complianceScore"`
	LastScanDate    *string `json:"lastScanDate"`
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	org, err := h.Svc.Create(c.Request.Context(), NewOrganization{
		Name:            strings.TrimSpace(req.Name),
		ComplianceScore: req.ComplianceScore,
		LastScanDate:    req.LastScanDate,
	})
	if err != nil {
		if errors.Is(err, ErrValidation) {
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create organization", nil)
		return
	}
	c.Set(middleware.OrgIDKey, org.ID)
	respond.JSON(c, http.StatusCreated, org)
}
