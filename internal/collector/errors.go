package collector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"

	"github.com/bassista/posdit/internal/domain"
)

// classify maps a transport failure onto one of the domain fetch conditions.
// A cancelled parent context is passed through unclassified.
func classify(parent context.Context, subreddit string, err error) error {
	if err == nil {
		return nil
	}
	if perr := parent.Err(); perr != nil {
		return fmt.Errorf("fetch r/%s: %w", subreddit, perr)
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("fetch r/%s: %w: %w", subreddit, domain.ErrTimeout, err)
	case isConnectivity(err):
		return fmt.Errorf("fetch r/%s: %w: %w", subreddit, domain.ErrConnectivity, err)
	default:
		return fmt.Errorf("fetch r/%s: %w: %w", subreddit, domain.ErrRemoteService, err)
	}
}

func isConnectivity(err error) bool {
	var dnsErr *net.DNSError
	var opErr *net.OpError
	var urlErr *url.Error
	return errors.As(err, &dnsErr) ||
		errors.As(err, &opErr) ||
		errors.As(err, &urlErr) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ENETUNREACH)
}

// statusError maps an HTTP status onto a fetch condition. Reddit answers 404
// for unknown subreddits; 403 is a private or quarantined one.
func statusError(subreddit string, code int) error {
	if code == http.StatusNotFound {
		return fmt.Errorf("fetch r/%s: %w", subreddit, domain.ErrSubredditNotFound)
	}
	return fmt.Errorf("fetch r/%s: %w: status %d", subreddit, domain.ErrRemoteService, code)
}

// isSearchRedirect reports whether Reddit sent an unknown subreddit to its
// search page instead of a listing.
func isSearchRedirect(u *url.URL) bool {
	return u != nil && strings.HasPrefix(u.Path, "/subreddits/search")
}

const redditBaseURL = "https://www.reddit.com"

func absolutePermalink(p string) string {
	if strings.HasPrefix(p, "/") {
		return redditBaseURL + p
	}
	return p
}
