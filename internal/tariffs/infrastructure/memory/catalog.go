package memory

import (
	"context"
	"sync"
	"time"

	tariffs "optifactura/internal/tariffs/domain"
)

// Catalog is an in-memory reference-tariff catalog with the same
// append-and-supersede semantics as the Postgres one. Used in tests and
// when running without a database.
type Catalog struct {
	mu      sync.RWMutex
	records []tariffs.ReferenceTariff
}

// NewCatalog constructs an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// Current returns the active records for a provider/service.
func (c *Catalog) Current(ctx context.Context, provider tariffs.Provider, service tariffs.Service) ([]tariffs.ReferenceTariff, error) {
	_ = ctx
	c.mu.RLock()
	defer c.mu.RUnlock()

	var current []tariffs.ReferenceTariff
	for _, record := range c.records {
		if record.Provider == provider && record.Service == service && record.Current() {
			current = append(current, record)
		}
	}
	return current, nil
}

// Replace closes the active record for each incoming key and appends the
// new records.
func (c *Catalog) Replace(ctx context.Context, records []tariffs.ReferenceTariff, closedAt time.Time) error {
	_ = ctx
	for _, record := range records {
		if err := record.Validate(); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, incoming := range records {
		key := incoming.Key()
		for i := range c.records {
			if c.records[i].Key() == key && c.records[i].Current() {
				closed := closedAt
				c.records[i].EffectiveTo = &closed
			}
		}
		c.records = append(c.records, incoming)
	}
	return nil
}

// History returns all records for a key, newest first.
func (c *Catalog) History(ctx context.Context, key tariffs.TariffKey, limit int) ([]tariffs.ReferenceTariff, error) {
	_ = ctx
	c.mu.RLock()
	defer c.mu.RUnlock()

	var history []tariffs.ReferenceTariff
	for i := len(c.records) - 1; i >= 0; i-- {
		if c.records[i].Key() == key {
			history = append(history, c.records[i])
			if limit > 0 && len(history) >= limit {
				break
			}
		}
	}
	return history, nil
}
