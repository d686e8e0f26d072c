package reports

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/organizations"
	"compliance-backend/internal/shared/server/middleware"
	"compliance-backend/internal/shared/server/respond"
)

// FilesPath is where locally stored artifacts are served from.
const FilesPath = "/report/files"

// Handler wires HTTP handlers to the report service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches report routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/report/:orgId", h.report)
	rg.GET("/report/pdf/:orgId", h.pdf)
	rg.GET(FilesPath+"/*key", h.file)
}

func (h *Handler) report(c *gin.Context) {
	orgID := c.Param("orgId")
	c.Set(middleware.OrgIDKey, orgID)
	if !middleware.RequireOrgAccess(c, orgID) {
		return
	}

	rep, err := h.Svc.Report(c.Request.Context(), orgID)
	if err != nil {
		if errors.Is(err, organizations.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "organization not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to generate report", nil)
		return
	}
	respond.OK(c, rep)
}

func (h *Handler) pdf(c *gin.Context) {
	orgID := c.Param("orgId")
	c.Set(middleware.OrgIDKey, orgID)
	if !middleware.RequireOrgAccess(c, orgID) {
		return
	}

	exp, err := h.Svc.ExportPDF(c.Request.Context(), orgID, middleware.UserIDFromContext(c))
	if err != nil {
		if errors.Is(err, organizations.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "organization not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to generate PDF report", nil)
		return
	}

	if exp.DownloadURL == "" {
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exp.Filename))
		c.Data(http.StatusOK, contentTypePDF, exp.PDF)
		return
	}
	respond.OK(c, gin.H{
		"success":     true,
		"downloadUrl": exp.DownloadURL,
		"filename":    exp.Filename,
		"generatedAt": exp.GeneratedAt.Format(time.RFC3339),
	})
}

func (h *Handler) file(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	orgID := ArtifactOrg(key)
	if orgID == "" {
		respond.Error(c, http.StatusNotFound, "not_found", "report not found", nil)
		return
	}
	c.Set(middleware.OrgIDKey, orgID)
	if !middleware.RequireOrgAccess(c, orgID) {
		return
	}

	rc, err := h.Svc.OpenArtifact(c.Request.Context(), orgID, key)
	if err != nil {
		respond.Error(c, http.StatusNotFound, "not_found", "report not found", nil)
		return
	}
	defer rc.Close()

	c.Header("Content-Type", contentTypePDF)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, key[strings.LastIndex(key, "/")+1:]))
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}
