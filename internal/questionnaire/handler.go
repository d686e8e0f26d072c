package questionnaire

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/organizations"
	"compliance-backend/internal/shared/server/middleware"
	"compliance-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the questionnaire service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches questionnaire routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/questionnaire/questions", h.questions)
	rg.POST("/questionnaire/submit", h.submitAny)
	rg.POST("/questionnaire/user", h.submitAs(TypeUser))
	rg.POST("/questionnaire/provider", h.submitAs(TypeProvider))
	rg.GET("/questionnaire/user", h.listAs(TypeUser))
	rg.GET("/questionnaire/provider", h.listAs(TypeProvider))
}

type submitRequest struct {
	Responses      map[string]string `json:"responses"`
	OrganizationID string            `json:"organizationId"`
	Type           string            `json:"type"`
}

func (h *Handler) questions(c *gin.Context) {
	t, err := ParseType(c.Query("type"))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	respond.OK(c, gin.H{"type": t, "questions": h.Svc.Questions(t)})
}

func (h *Handler) submitAny(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	t, err := ParseType(req.Type)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	h.submit(c, t, req)
}

func (h *Handler) submitAs(t Type) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req submitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
		h.submit(c, t, req)
	}
}

func (h *Handler) submit(c *gin.Context, t Type, req submitRequest) {
	if req.OrganizationID != "" {
		c.Set(middleware.OrgIDKey, req.OrganizationID)
		if !middleware.RequireOrgAccess(c, req.OrganizationID) {
			return
		}
	}

	receipt, err := h.Svc.Submit(c.Request.Context(), SubmitInput{
		Type:           t,
		OrganizationID: req.OrganizationID,
		Responses:      req.Responses,
		UserID:         middleware.UserIDFromContext(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, organizations.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "organization not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to submit questionnaire", nil)
		}
		return
	}

	message := "Questionnaire submitted successfully"
	if t == TypeProvider {
		message = "Provider questionnaire submitted successfully"
	}
	body := gin.H{
		"success": true,
		"message": message,
		"id":      receipt.Submission.ID,
	}
	if receipt.Organization != nil {
		body["complianceScore"] = receipt.Organization.ComplianceScore
		body["status"] = receipt.Organization.Status
	}
	respond.JSON(c, http.StatusCreated, body)
}

func (h *Handler) listAs(t Type) gin.HandlerFunc {
	return func(c *gin.Context) {
		subs, err := h.Svc.List(c.Request.Context(), t)
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch questionnaire responses", nil)
			return
		}
		ident, _ := middleware.IdentityFromContext(c)
		if !ident.IsAdmin() {
			visible := make([]Submission, 0, len(subs))
			for _, sub := range subs {
				if ident.CanAccess(sub.OrganizationID) {
					visible = append(visible, sub)
				}
			}
			subs = visible
		}
		respond.OK(c, subs)
	}
}
