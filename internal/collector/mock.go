package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/bassista/posdit/internal/domain"
)

var mockTitles = []string{
	"[H] Xbox-One S bundle [W] PayPal",
	"Big Deal Today: 50% off everything",
	"Selling xbox_one console, barely used",
	"[Steam] Free weekend",
	"PS5 restock thread",
}

// MockClient implements domain.Fetcher with synthetic posts. Ids are stable
// per subreddit and listing, so repeated sweeps exercise deduplication.
type MockClient struct {
	latency time.Duration
	limit   int
}

func NewMockClient(limit int) *MockClient {
	if limit <= 0 {
		limit = len(mockTitles)
	}
	return &MockClient{latency: 200 * time.Millisecond, limit: limit}
}

func (mc *MockClient) Fetch(ctx context.Context, sub string, listing domain.Listing) ([]domain.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch r/%s: %w", sub, ctx.Err())
	case <-time.After(mc.latency):
	}

	items := make([]domain.Item, 0, mc.limit)
	for i := 0; i < mc.limit; i++ {
		id := fmt.Sprintf("mock_%s_%s_%d", sub, listing.Path(), i)
		items = append(items, domain.Item{
			ID:        id,
			Title:     mockTitles[i%len(mockTitles)],
			URL:       "http://localhost/mock-url/" + id,
			Permalink: fmt.Sprintf("%s/r/%s/comments/%s/", redditBaseURL, sub, id),
		})
	}
	return items, nil
}
