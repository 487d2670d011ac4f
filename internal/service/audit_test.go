package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/freesideatlanta/member-portal/internal/models"
)

type failingAuditWriter struct{}

func (failingAuditWriter) CreateAuditLog(context.Context, *models.AuditLog) error {
	return errors.New("disk full")
}

type auditReaderFunc func(ctx context.Context, limit int) ([]models.AuditLog, error)

func (f auditReaderFunc) ListAuditLogs(ctx context.Context, limit int) ([]models.AuditLog, error) {
	return f(ctx, limit)
}

func TestRecordAuditSwallowsWriteFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	recordAudit(context.Background(), failingAuditWriter{}, zap.New(core), "u1", models.AuditActionLogin, "auth", "u1", nil, nil, models.RequestMeta{})
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "failed to record audit log", logs.All()[0].Message)

	recordAudit(context.Background(), nil, zap.New(core), "u1", models.AuditActionLogin, "auth", "u1", nil, nil, models.RequestMeta{})
	assert.Equal(t, 1, logs.Len())
}

func TestAuditServiceList(t *testing.T) {
	var gotLimit int
	svc := NewAuditService(auditReaderFunc(func(_ context.Context, limit int) ([]models.AuditLog, error) {
		gotLimit = limit
		return []models.AuditLog{{Action: models.AuditActionElectionCreate}}, nil
	}))

	logs, err := svc.List(context.Background(), 25)
	require.NoError(t, err)
	assert.Equal(t, 25, gotLimit)
	require.Len(t, logs, 1)

	failing := NewAuditService(auditReaderFunc(func(context.Context, int) ([]models.AuditLog, error) {
		return nil, errors.New("boom")
	}))
	_, err = failing.List(context.Background(), 10)
	assert.Error(t, err)
}
