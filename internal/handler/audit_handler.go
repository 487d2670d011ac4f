package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/freesideatlanta/member-portal/internal/models"
	"github.com/freesideatlanta/member-portal/pkg/response"
)

type auditService interface {
	List(ctx context.Context, limit int) ([]models.AuditLog, error)
}

// AuditHandler exposes the administrative audit trail.
type AuditHandler struct {
	service auditService
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(svc auditService) *AuditHandler {
	return &AuditHandler{service: svc}
}

// List godoc
// @Summary List audit logs
// @Description Most recent administrative actions, newest first
// @Tags Audit
// @Produce json
// @Param limit query int false "Maximum entries (default 100, max 500)"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	logs, err := h.service.List(c.Request.Context(), queryInt(c, "limit", 100))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}
