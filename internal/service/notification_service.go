package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/freesideatlanta/member-portal/pkg/jobs"
	"github.com/freesideatlanta/member-portal/pkg/notify"
)

// NotificationConfig tunes background delivery.
type NotificationConfig struct {
	From       string
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// NotificationService delivers messages asynchronously through a Sender.
type NotificationService struct {
	queue  *jobs.Queue[notify.Message]
	from   string
	logger *zap.Logger
}

// NewNotificationService wires sender behind a worker queue. Call Start before
// the first Notify.
func NewNotificationService(sender notify.Sender, cfg NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := func(ctx context.Context, job jobs.Job[notify.Message]) error {
		return sender.Send(ctx, job.Payload)
	}
	queue := jobs.NewQueue[notify.Message]("notifications", handler, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return &NotificationService{queue: queue, from: cfg.From, logger: logger}
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop waits for the workers to exit. Undelivered messages are dropped.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Notify validates msg and queues it for delivery, returning the job id.
func (s *NotificationService) Notify(ctx context.Context, msg notify.Message) (string, error) {
	if msg.From == "" {
		msg.From = s.from
	}
	if err := msg.Validate(); err != nil {
		return "", err
	}
	id, err := s.queue.Enqueue(ctx, msg)
	if err != nil {
		return "", err
	}
	s.logger.Debug("notification queued", zap.String("job_id", id), zap.String("subject", msg.Subject))
	return id, nil
}
