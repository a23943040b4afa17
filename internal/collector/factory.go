package collector

import (
	"fmt"
	"time"

	"github.com/bassista/posdit/internal/domain"
)

// Options configures every collector mode. Credentials are only read in api mode.
type Options struct {
	Mode         string
	UserAgent    string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	Limit        int
	Timeout      time.Duration
	RateInterval time.Duration
}

func (o *Options) defaults() {
	if o.Limit <= 0 {
		o.Limit = 25
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.RateInterval <= 0 {
		o.RateInterval = time.Second
	}
}

// NewCollector selects the correct implementation based on the mode.
func NewCollector(opts Options) (domain.Fetcher, error) {
	opts.defaults()

	switch opts.Mode {
	case "api":
		return NewAPIClient(opts)
	case "public":
		return NewPublicClient(opts)
	case "mock":
		return NewMockClient(opts.Limit), nil
	default:
		return nil, fmt.Errorf("unknown collector mode: %s (use 'api', 'public', or 'mock')", opts.Mode)
	}
}
