package tariffs

import (
	"context"
	"time"
)

// Catalog is the durable versioned store of reference tariffs. Records
// are appended and superseded, never updated in place, so the full
// history stays available for audit.
type Catalog interface {
	// Current returns the active records (EffectiveTo == nil) for a
	// provider/service. An empty slice with nil error means the
	// catalog simply has no data yet.
	Current(ctx context.Context, provider Provider, service Service) ([]ReferenceTariff, error)

	// Replace atomically closes the active record for each incoming
	// record's key at closedAt and inserts the new records. Either
	// the whole supersede+insert is visible or none of it.
	Replace(ctx context.Context, records []ReferenceTariff, closedAt time.Time) error

	// History returns all records for a key, newest first, including
	// superseded ones. limit <= 0 means the implementation default.
	History(ctx context.Context, key TariffKey, limit int) ([]ReferenceTariff, error)
}
