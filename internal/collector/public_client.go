package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/bassista/posdit/internal/domain"
	"golang.org/x/time/rate"
)

// PublicClient reads the unauthenticated JSON listings.
type PublicClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	baseURL    string
	limit      int
	timeout    time.Duration
}

type redditJSONResponse struct {
	Data struct {
		Children []struct {
			Data struct {
				ID        string `json:"id"`
				Title     string `json:"title"`
				URL       string `json:"url"`
				Permalink string `json:"permalink"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func NewPublicClient(opts Options) (*PublicClient, error) {
	if opts.UserAgent == "" {
		return nil, fmt.Errorf("user agent is required for public mode")
	}
	return &PublicClient{
		httpClient: &http.Client{
			// unknown subreddits redirect to search; surface that instead of following
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
		limiter:   rate.NewLimiter(rate.Every(opts.RateInterval), 1),
		userAgent: opts.UserAgent,
		baseURL:   redditBaseURL,
		limit:     opts.Limit,
		timeout:   opts.Timeout,
	}, nil
}

func (pc *PublicClient) Fetch(ctx context.Context, sub string, listing domain.Listing) ([]domain.Item, error) {
	if err := pc.limiter.Wait(ctx); err != nil {
		return nil, classify(ctx, sub, err)
	}

	fctx, cancel := context.WithTimeout(ctx, pc.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/r/%s/%s.json?limit=%d&raw_json=1", pc.baseURL, url.PathEscape(sub), listing.Path(), pc.limit)
	req, err := http.NewRequestWithContext(fctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch r/%s: %w: %w", sub, domain.ErrRemoteService, err)
	}
	req.Header.Set("User-Agent", pc.userAgent)

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return nil, classify(ctx, sub, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		if loc, err := resp.Location(); err == nil && isSearchRedirect(loc) {
			return nil, fmt.Errorf("fetch r/%s: %w", sub, domain.ErrSubredditNotFound)
		}
		return nil, statusError(sub, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(sub, resp.StatusCode)
	}

	var rResp redditJSONResponse
	if err := json.NewDecoder(resp.Body).Decode(&rResp); err != nil {
		return nil, classify(ctx, sub, err)
	}

	items := make([]domain.Item, 0, len(rResp.Data.Children))
	for _, child := range rResp.Data.Children {
		d := child.Data
		items = append(items, domain.Item{
			ID:        d.ID,
			Title:     d.Title,
			URL:       d.URL,
			Permalink: absolutePermalink(d.Permalink),
		})
	}
	return items, nil
}
