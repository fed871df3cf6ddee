package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	tariffs "optifactura/internal/tariffs/domain"
)

// HTTPFeed fetches scraped tariff snapshots from per-provider endpoints.
type HTTPFeed struct {
	urls   map[tariffs.Provider]string
	client *http.Client
}

// Option customizes the feed.
type Option func(*HTTPFeed)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *HTTPFeed) { f.client = client }
}

// NewHTTPFeed constructs a feed from provider-name to URL mappings.
// Providers without a URL are rejected at fetch time, not here, so a
// partially configured deployment still refreshes what it can.
func NewHTTPFeed(urls map[string]string, opts ...Option) *HTTPFeed {
	feed := &HTTPFeed{
		urls:   make(map[tariffs.Provider]string),
		client: &http.Client{Timeout: 30 * time.Second},
	}
	for name, url := range urls {
		if url == "" {
			continue
		}
		provider, err := tariffs.ParseProvider(name)
		if err != nil {
			continue
		}
		feed.urls[provider] = url
	}
	for _, opt := range opts {
		opt(feed)
	}
	return feed
}

// Fetch implements ExtractionFeed.
func (f *HTTPFeed) Fetch(ctx context.Context, provider tariffs.Provider) (*tariffs.RawTariffSnapshot, error) {
	url, ok := f.urls[provider]
	if !ok {
		return nil, fmt.Errorf("feed: no endpoint configured for provider %s", provider)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed: %s returned status %d", provider, resp.StatusCode)
	}

	var snapshot tariffs.RawTariffSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, tariffs.ErrMalformedSnapshot
	}
	if snapshot.SourceURL == "" {
		snapshot.SourceURL = url
	}
	if snapshot.FetchedAt.IsZero() {
		snapshot.FetchedAt = time.Now().UTC()
	}
	return &snapshot, nil
}
