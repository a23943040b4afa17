package domain

import (
	"context"
	"errors"
)

// Fetch failure conditions. Fetchers wrap the underlying cause together with
// exactly one of these so callers can branch with errors.Is.
var (
	ErrConnectivity      = errors.New("no connection")
	ErrTimeout           = errors.New("request timed out")
	ErrRemoteService     = errors.New("remote service error")
	ErrSubredditNotFound = errors.New("subreddit does not exist")
)

// Fetcher returns the posts of a subreddit listing, newest first as served.
type Fetcher interface {
	Fetch(ctx context.Context, subreddit string, listing Listing) ([]Item, error)
}
