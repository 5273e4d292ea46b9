// Package notifications delivers messages sent through the contact form
package notifications

import (
	"context"
	"time"

	"go.uber.org/zap"

	"psnrwanda/internal/logger"
)

// ContactMessage is one contact form submission
type ContactMessage struct {
	Name    string
	Email   string
	Phone   string
	Subject string
	Body    string
}

// Sender delivers contact messages
type Sender interface {
	Send(ctx context.Context, msg ContactMessage) error
}

// LogSender stands in for a mail provider: it waits the configured delay,
// as a real provider would take, and records the message in the log.
// Nothing leaves the process.
type LogSender struct {
	delay  time.Duration
	logger *zap.Logger
}

// NewLogSender creates a new LogSender
func NewLogSender(delay time.Duration, log *zap.Logger) *LogSender {
	return &LogSender{delay: delay, logger: logger.OrNop(log)}
}

// Send returns ctx.Err() when the visitor goes away before the delay ends
func (s *LogSender) Send(ctx context.Context, msg ContactMessage) error {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.logger.Info("contact message received",
		zap.String("subject", msg.Subject),
		logger.Email("email", msg.Email),
		logger.Phone("phone", msg.Phone),
		zap.Int("length", len(msg.Body)),
	)
	return nil
}
