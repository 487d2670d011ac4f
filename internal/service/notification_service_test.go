package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/freesideatlanta/member-portal/pkg/notify"
)

type recordingSender struct {
	mu       sync.Mutex
	failures int
	sent     []notify.Message
	done     chan struct{}
}

func (r *recordingSender) Send(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures > 0 {
		r.failures--
		return errors.New("smtp unavailable")
	}
	r.sent = append(r.sent, msg)
	close(r.done)
	return nil
}

func TestNotificationServiceDeliversWithRetry(t *testing.T) {
	sender := &recordingSender{failures: 1, done: make(chan struct{})}
	svc := NewNotificationService(sender, NotificationConfig{From: "portal@example.com", Workers: 1, MaxRetries: 2, RetryDelay: time.Millisecond}, zap.NewNop())
	svc.Start(context.Background())
	defer svc.Stop()

	id, err := svc.Notify(context.Background(), notify.Message{To: "ada@example.com", Subject: "hi", Body: "body"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	select {
	case <-sender.done:
	case <-time.After(2 * time.Second):
		t.Fatal("message was not delivered")
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "portal@example.com", sender.sent[0].From)
}

func TestNotificationServiceRejectsBadRecipient(t *testing.T) {
	svc := NewNotificationService(&recordingSender{done: make(chan struct{})}, NotificationConfig{}, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	_, err := svc.Notify(context.Background(), notify.Message{To: "nobody"})
	assert.Error(t, err)
}

func TestNotificationServiceRequiresStart(t *testing.T) {
	svc := NewNotificationService(&recordingSender{done: make(chan struct{})}, NotificationConfig{}, nil)
	_, err := svc.Notify(context.Background(), notify.Message{To: "ada@example.com"})
	assert.Error(t, err)
}
