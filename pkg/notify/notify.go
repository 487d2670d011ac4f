// Package notify defines the outbound message contract used for member notices.
package notify

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New()

// Message is a single outbound notification.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Validate checks the recipient and optional sender addresses.
func (m Message) Validate() error {
	if err := validate.Var(m.To, "required,email"); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", m.To, err)
	}
	if err := validate.Var(m.From, "omitempty,email"); err != nil {
		return fmt.Errorf("invalid sender %q: %w", m.From, err)
	}
	return nil
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender records the message envelope instead of delivering it.
// The body is never logged because it may carry credentials.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender returns a Sender that writes to logger.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send implements Sender.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s.logger.Info("notification sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("body_bytes", len(msg.Body)),
	)
	return nil
}
