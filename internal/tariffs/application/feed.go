package application

import (
	"context"

	tariffs "optifactura/internal/tariffs/domain"
)

// ExtractionFeed supplies scraped tariff pages. The concrete scraping
// mechanism lives outside this service; the feed is expected to honor
// the context deadline.
type ExtractionFeed interface {
	Fetch(ctx context.Context, provider tariffs.Provider) (*tariffs.RawTariffSnapshot, error)
}

// FeedFunc adapts a function to ExtractionFeed.
type FeedFunc func(ctx context.Context, provider tariffs.Provider) (*tariffs.RawTariffSnapshot, error)

// Fetch implements ExtractionFeed.
func (f FeedFunc) Fetch(ctx context.Context, provider tariffs.Provider) (*tariffs.RawTariffSnapshot, error) {
	return f(ctx, provider)
}
