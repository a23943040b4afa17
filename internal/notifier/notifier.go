// Package notifier turns a matched item into an outbound message.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"github.com/bassista/posdit/internal/domain"
	"github.com/bassista/posdit/internal/logger"
)

// ErrAuth marks a sender failure caused by rejected credentials.
var ErrAuth = errors.New("mail authentication failed")

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Notifier sends the notification for a matched item.
type Notifier interface {
	Notify(ctx context.Context, destination string, item domain.Item, spec domain.WatchSpec) error
}

// MailNotifier formats matches as HTML mail.
// Authentication failures are logged and swallowed; every other send error
// is returned to the caller.
type MailNotifier struct {
	sender Sender
	now    func() time.Time
}

func NewMailNotifier(sender Sender) *MailNotifier {
	return &MailNotifier{sender: sender, now: time.Now}
}

func (n *MailNotifier) Notify(ctx context.Context, destination string, item domain.Item, spec domain.WatchSpec) error {
	if destination == "" {
		return errors.New("destination address is required")
	}

	subject := item.Title
	body := FormatBody(n.now(), item, spec)

	err := n.sender.Send(ctx, destination, subject, body)
	switch {
	case err == nil:
		logger.WithComponent("notifier").Debugf("notified %s about %q", destination, item.Title)
		return nil
	case errors.Is(err, ErrAuth):
		logger.WithComponent("notifier").Warnf("mail authentication rejected, notification for %q dropped: %v", item.Title, err)
		return nil
	default:
		return fmt.Errorf("send notification for %s: %w", item.ID, err)
	}
}

// FormatBody renders the HTML body of a match notification.
func FormatBody(at time.Time, item domain.Item, spec domain.WatchSpec) string {
	return fmt.Sprintf("%s - Keyword: %s | Subreddit: %s | Listing: %s\n <br />Reddit Link: %s <br />Link: %s",
		at.Format(time.ANSIC),
		html.EscapeString(spec.Keyword),
		html.EscapeString(spec.Subreddit),
		spec.Listing,
		html.EscapeString(item.Permalink),
		html.EscapeString(item.URL),
	)
}
