package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
)

// RateSnapshot is one upstream payload: the full rate set together with the
// metadata describing it. Base and rates always come from the same fetch so
// a refresh cannot validate one payload and store another.
type RateSnapshot struct {
	Base        string
	Rates       map[string]decimal.Decimal
	LastUpdated time.Time
	Source      string
}

// Provider fetches conversion rates relative to a base currency.
type Provider interface {
	GetSnapshot(ctx context.Context) (*RateSnapshot, error)
}

type providerResponse struct {
	Base        string                     `json:"base"`
	Rates       map[string]decimal.Decimal `json:"rates"`
	LastUpdated time.Time                  `json:"last_updated"`
	Source      string                     `json:"source"`
}

// HTTPProviderConfig controls the HTTP rate provider client.
type HTTPProviderConfig struct {
	URL        string
	Timeout    time.Duration
	MaxRetries int
}

// HTTPProvider fetches rates from a JSON endpoint, retrying transport and
// server-side failures with fibonacci backoff.
type HTTPProvider struct {
	url        string
	client     *http.Client
	maxRetries uint64
}

// NewHTTPProvider builds an HTTP rate provider.
func NewHTTPProvider(cfg HTTPProviderConfig) (*HTTPProvider, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("provider url required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &HTTPProvider{
		url:        cfg.URL,
		client:     &http.Client{Timeout: timeout},
		maxRetries: uint64(retries),
	}, nil
}

func (p *HTTPProvider) GetSnapshot(ctx context.Context) (*RateSnapshot, error) {
	backoff := retry.WithMaxRetries(p.maxRetries, retry.NewFibonacci(250*time.Millisecond))

	var out providerResponse
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return retry.RetryableError(fmt.Errorf("rate provider returned %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("rate provider returned %d", resp.StatusCode)
		}

		out = providerResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return fmt.Errorf("decode rate provider response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out.Rates) == 0 {
		return nil, fmt.Errorf("rate provider returned no rates")
	}
	return &RateSnapshot{
		Base:        out.Base,
		Rates:       out.Rates,
		LastUpdated: out.LastUpdated,
		Source:      out.Source,
	}, nil
}
