package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	analysis "optifactura/internal/analysis/domain"
	tariffs "optifactura/internal/tariffs/domain"
)

func savedAnalysis(userID string, provider tariffs.Provider, consumption float64, createdAt time.Time) *analysis.StoredAnalysis {
	return &analysis.StoredAnalysis{
		UserID:      userID,
		Provider:    provider,
		Service:     provider.Service(),
		Stratum:     "2",
		Consumption: consumption,
		TotalAmount: consumption * 500,
		UnitPrice:   500,
		CreatedAt:   createdAt,
	}
}

func TestRepositorySaveAndGet(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	stored := savedAnalysis("user-1", tariffs.ProviderAfinia, 150, time.Time{})
	if err := repo.Save(ctx, stored); err != nil {
		t.Fatalf("save: %v", err)
	}
	if stored.ID == "" {
		t.Fatalf("save must assign an id")
	}
	if stored.CreatedAt.IsZero() {
		t.Fatalf("save must assign a timestamp")
	}

	got, err := repo.Get(ctx, stored.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Consumption != 150 {
		t.Fatalf("get: %+v", got)
	}

	// Mutating the returned copy must not touch the stored record.
	got.Consumption = 999
	again, _ := repo.Get(ctx, stored.ID)
	if again.Consumption != 150 {
		t.Fatalf("stored record was mutated through a copy")
	}
}

func TestRepositoryGetUnknown(t *testing.T) {
	repo := NewRepository()
	got, err := repo.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("unknown id must return nil")
	}
}

func TestRepositorySaveRejectsEmptyUser(t *testing.T) {
	repo := NewRepository()
	if err := repo.Save(context.Background(), &analysis.StoredAnalysis{}); err == nil {
		t.Fatalf("empty user id must be rejected")
	}
	if err := repo.Save(context.Background(), nil); err == nil {
		t.Fatalf("nil analysis must be rejected")
	}
}

func TestRepositoryRecentNewestFirstAndCapped(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()
	base := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 15; i++ {
		stored := savedAnalysis("user-1", tariffs.ProviderAfinia, float64(100+i), base.AddDate(0, -i, 0))
		stored.ID = fmt.Sprintf("a-%d", i)
		if err := repo.Save(ctx, stored); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	// Other users and providers stay out of the window.
	if err := repo.Save(ctx, savedAnalysis("user-2", tariffs.ProviderAfinia, 5000, base)); err != nil {
		t.Fatalf("save other user: %v", err)
	}
	if err := repo.Save(ctx, savedAnalysis("user-1", tariffs.ProviderVeolia, 5000, base)); err != nil {
		t.Fatalf("save other provider: %v", err)
	}

	records, err := repo.Recent(ctx, "user-1", tariffs.ProviderAfinia, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != analysis.HistoryWindow {
		t.Fatalf("window: got %d want %d", len(records), analysis.HistoryWindow)
	}
	if records[0].Consumption != 100 {
		t.Fatalf("newest first: got %v", records[0].Consumption)
	}
	for i := 1; i < len(records); i++ {
		if records[i].BillingDate.After(records[i-1].BillingDate) {
			t.Fatalf("records out of order at %d", i)
		}
	}
}
