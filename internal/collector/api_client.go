package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bassista/posdit/internal/domain"
	"github.com/loganintech/go-reddit/v2/reddit"
	"golang.org/x/time/rate"
)

// APIClient fetches listings through the authenticated Reddit API.
type APIClient struct {
	client  *reddit.Client
	limiter *rate.Limiter
	limit   int
	timeout time.Duration
}

func NewAPIClient(opts Options) (*APIClient, error) {
	creds := reddit.Credentials{ID: opts.ClientID, Secret: opts.ClientSecret, Username: opts.Username, Password: opts.Password}

	client, err := reddit.NewClient(creds, reddit.WithUserAgent(opts.UserAgent))
	if err != nil {
		return nil, fmt.Errorf("create reddit client: %w", err)
	}

	return &APIClient{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(opts.RateInterval), 1),
		limit:   opts.Limit,
		timeout: opts.Timeout,
	}, nil
}

func (ac *APIClient) Fetch(ctx context.Context, sub string, listing domain.Listing) ([]domain.Item, error) {
	if err := ac.limiter.Wait(ctx); err != nil {
		return nil, classify(ctx, sub, err)
	}

	fctx, cancel := context.WithTimeout(ctx, ac.timeout)
	defer cancel()

	posts, resp, err := ac.list(fctx, sub, listing)
	if err != nil {
		var errResp *reddit.ErrorResponse
		if errors.As(err, &errResp) && errResp.Response != nil {
			return nil, statusError(sub, errResp.Response.StatusCode)
		}
		return nil, classify(ctx, sub, err)
	}
	if resp != nil && resp.Response != nil && resp.Request != nil && isSearchRedirect(resp.Request.URL) {
		return nil, fmt.Errorf("fetch r/%s: %w", sub, domain.ErrSubredditNotFound)
	}

	items := make([]domain.Item, 0, len(posts))
	for _, p := range posts {
		items = append(items, domain.Item{
			ID:        p.ID,
			Title:     p.Title,
			URL:       p.URL,
			Permalink: absolutePermalink(p.Permalink),
		})
	}
	return items, nil
}

func (ac *APIClient) list(ctx context.Context, sub string, listing domain.Listing) ([]*reddit.Post, *reddit.Response, error) {
	opts := &reddit.ListOptions{Limit: ac.limit}
	switch listing {
	case domain.ListingHot:
		return ac.client.Subreddit.HotPosts(ctx, sub, opts)
	case domain.ListingNew:
		return ac.client.Subreddit.NewPosts(ctx, sub, opts)
	case domain.ListingRising:
		return ac.client.Subreddit.RisingPosts(ctx, sub, opts)
	case domain.ListingControversial:
		return ac.client.Subreddit.ControversialPosts(ctx, sub, &reddit.ListPostOptions{ListOptions: *opts, Time: "day"})
	case domain.ListingTop:
		return ac.client.Subreddit.TopPosts(ctx, sub, &reddit.ListPostOptions{ListOptions: *opts, Time: "day"})
	default:
		return nil, nil, fmt.Errorf("unsupported listing %q", listing)
	}
}
