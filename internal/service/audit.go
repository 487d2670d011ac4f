package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/freesideatlanta/member-portal/internal/models"
	appErrors "github.com/freesideatlanta/member-portal/pkg/errors"
)

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// recordAudit stores an audit entry. Failures are logged and never fail the
// surrounding operation.
func recordAudit(ctx context.Context, w auditWriter, logger *zap.Logger, actorID, action, resource, resourceID string, oldValues, newValues interface{}, meta models.RequestMeta) {
	if w == nil {
		return
	}
	entry := &models.AuditLog{
		Action:    action,
		Resource:  resource,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if oldValues != nil {
		entry.OldValues, _ = json.Marshal(oldValues)
	}
	if newValues != nil {
		entry.NewValues, _ = json.Marshal(newValues)
	}
	if err := w.CreateAuditLog(ctx, entry); err != nil {
		logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

type auditLogReader interface {
	ListAuditLogs(ctx context.Context, limit int) ([]models.AuditLog, error)
}

// AuditService exposes the administrative audit trail.
type AuditService struct {
	repo auditLogReader
}

// NewAuditService constructs an AuditService.
func NewAuditService(repo auditLogReader) *AuditService {
	return &AuditService{repo: repo}
}

// List returns the most recent audit entries, newest first.
func (s *AuditService) List(ctx context.Context, limit int) ([]models.AuditLog, error) {
	logs, err := s.repo.ListAuditLogs(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs")
	}
	return logs, nil
}
