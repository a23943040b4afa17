package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/textproto"
	"testing"
	"time"

	"github.com/bassista/posdit/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSender is a mock implementation of Sender.
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, to, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}

var (
	testItem = domain.Item{
		ID:        "abc",
		Title:     "Big Deal Today",
		URL:       "https://shop.example.com/deal",
		Permalink: "https://www.reddit.com/r/test/comments/abc/big_deal_today/",
	}
	testSpec = domain.WatchSpec{Keyword: "deal", Subreddit: "test", Listing: domain.ListingNew}
)

func TestMailNotifier_SendsTitleAsSubject(t *testing.T) {
	sender := &MockSender{}
	sender.On("Send", mock.Anything, "me@example.com", "Big Deal Today", mock.MatchedBy(func(body string) bool {
		return assert.Contains(t, body, "Keyword: deal | Subreddit: test | Listing: New") &&
			assert.Contains(t, body, testItem.Permalink) &&
			assert.Contains(t, body, testItem.URL)
	})).Return(nil)

	n := NewMailNotifier(sender)
	require.NoError(t, n.Notify(context.Background(), "me@example.com", testItem, testSpec))
	sender.AssertExpectations(t)
}

func TestMailNotifier_SwallowsAuthFailure(t *testing.T) {
	sender := &MockSender{}
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(fmt.Errorf("%w: 535 bad credentials", ErrAuth))

	n := NewMailNotifier(sender)
	assert.NoError(t, n.Notify(context.Background(), "me@example.com", testItem, testSpec))
}

func TestMailNotifier_ReturnsTransportFailure(t *testing.T) {
	transportErr := errors.New("connection refused")
	sender := &MockSender{}
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(transportErr)

	n := NewMailNotifier(sender)
	err := n.Notify(context.Background(), "me@example.com", testItem, testSpec)
	assert.ErrorIs(t, err, transportErr)
}

func TestMailNotifier_RequiresDestination(t *testing.T) {
	sender := &MockSender{}
	n := NewMailNotifier(sender)

	assert.Error(t, n.Notify(context.Background(), "", testItem, testSpec))
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFormatBody(t *testing.T) {
	at := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	body := FormatBody(at, domain.Item{URL: "https://x.example/?a=1&b=2", Permalink: "https://www.reddit.com/p"}, testSpec)

	assert.Contains(t, body, "Fri Mar 15 10:30:00 2024 - Keyword: deal")
	assert.Contains(t, body, "Reddit Link: https://www.reddit.com/p")
	assert.Contains(t, body, "Link: https://x.example/?a=1&amp;b=2")
}

func TestIsAuthError(t *testing.T) {
	assert.True(t, isAuthError(fmt.Errorf("wrap: %w", &textproto.Error{Code: 535, Msg: "5.7.8 Username and Password not accepted"})))
	assert.True(t, isAuthError(errors.New("SMTP AUTH failed: unknown")))
	assert.False(t, isAuthError(&textproto.Error{Code: 550, Msg: "mailbox unavailable"}))
	assert.False(t, isAuthError(errors.New("dial tcp: connection refused")))
}

func TestNewSender(t *testing.T) {
	s, err := NewSender("log", SMTPConfig{})
	require.NoError(t, err)
	assert.IsType(t, LogSender{}, s)
	assert.NoError(t, s.Send(context.Background(), "me@example.com", "subject", "body"))

	_, err = NewSender("smtp", SMTPConfig{})
	assert.Error(t, err, "smtp without host must fail")

	s, err = NewSender("smtp", SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", From: "bot@example.com"})
	require.NoError(t, err)
	assert.IsType(t, &SMTPSender{}, s)

	_, err = NewSender("pigeon", SMTPConfig{})
	assert.Error(t, err)
}
