package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	analysis "optifactura/internal/analysis/domain"
	tariffs "optifactura/internal/tariffs/domain"
)

// Repository is an in-memory analysis store for tests and catalog-less
// operation. Saved analyses feed the history reads, like the Postgres
// repository.
type Repository struct {
	mu     sync.RWMutex
	byID   map[string]*analysis.StoredAnalysis
	byUser map[string][]*analysis.StoredAnalysis
}

// NewRepository constructs an empty repository.
func NewRepository() *Repository {
	return &Repository{
		byID:   make(map[string]*analysis.StoredAnalysis),
		byUser: make(map[string][]*analysis.StoredAnalysis),
	}
}

// Save stores an analysis.
func (r *Repository) Save(ctx context.Context, stored *analysis.StoredAnalysis) error {
	_ = ctx
	if stored == nil {
		return errors.New("analysis memory repo: nil analysis")
	}
	if stored.UserID == "" {
		return errors.New("analysis memory repo: empty user id")
	}
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	copied := *stored
	r.mu.Lock()
	r.byID[copied.ID] = &copied
	r.byUser[copied.UserID] = append(r.byUser[copied.UserID], &copied)
	r.mu.Unlock()
	return nil
}

// Get loads an analysis by id, or nil when absent.
func (r *Repository) Get(ctx context.Context, id string) (*analysis.StoredAnalysis, error) {
	_ = ctx
	r.mu.RLock()
	stored := r.byID[id]
	r.mu.RUnlock()
	if stored == nil {
		return nil, nil
	}
	copied := *stored
	return &copied, nil
}

// Recent returns a user's analyses for a provider, newest first.
func (r *Repository) Recent(ctx context.Context, userID string, provider tariffs.Provider, limit int) ([]analysis.HistoricalConsumptionRecord, error) {
	_ = ctx
	if limit <= 0 || limit > analysis.HistoryWindow {
		limit = analysis.HistoryWindow
	}

	r.mu.RLock()
	stored := make([]*analysis.StoredAnalysis, 0, len(r.byUser[userID]))
	for _, item := range r.byUser[userID] {
		if item.Provider == provider {
			stored = append(stored, item)
		}
	}
	r.mu.RUnlock()

	sort.Slice(stored, func(i, j int) bool { return stored[i].CreatedAt.After(stored[j].CreatedAt) })
	if len(stored) > limit {
		stored = stored[:limit]
	}

	records := make([]analysis.HistoricalConsumptionRecord, 0, len(stored))
	for _, item := range stored {
		records = append(records, analysis.HistoricalConsumptionRecord{
			BillingDate: item.CreatedAt,
			Consumption: item.Consumption,
			TotalAmount: item.TotalAmount,
			UnitPrice:   item.UnitPrice,
		})
	}
	return records, nil
}
