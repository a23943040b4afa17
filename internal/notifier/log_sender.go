package notifier

import (
	"context"

	"github.com/bassista/posdit/internal/logger"
)

// LogSender writes messages to the log instead of delivering them.
type LogSender struct{}

func (LogSender) Send(_ context.Context, to, subject, body string) error {
	logger.WithComponent("notifier").
		WithField("to", to).
		WithField("subject", subject).
		Infof("mail (not sent): %s", body)
	return nil
}
