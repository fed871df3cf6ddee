package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tariffs "optifactura/internal/tariffs/domain"
	"optifactura/internal/tariffs/fallback"
	"optifactura/internal/tariffs/infrastructure/memory"
)

type captureNotifier struct {
	mu     sync.Mutex
	events []tariffs.TariffChangeEvent
}

func (c *captureNotifier) NotifyChanges(_ context.Context, events []tariffs.TariffChangeEvent) {
	c.mu.Lock()
	c.events = append(c.events, events...)
	c.mu.Unlock()
}

func newTestResolver(t *testing.T, opts ...ResolverOption) *Resolver {
	t.Helper()
	cfg := Config{ChangeThresholdPercent: 5}
	resolver := NewResolver(memory.NewCatalog(), cfg, nil, opts...)
	if err := resolver.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return resolver
}

func snapshotFor(provider tariffs.Provider, service tariffs.Service, lines []tariffs.SnapshotTariff, subsidies []tariffs.SnapshotSubsidy) *tariffs.RawTariffSnapshot {
	return &tariffs.RawTariffSnapshot{
		Provider:                 string(provider),
		Service:                  string(service),
		Tariffs:                  lines,
		SubsidiesOrContributions: subsidies,
		SourceURL:                "https://example.com/tarifas",
		FetchedAt:                time.Date(2026, time.September, 1, 6, 0, 0, 0, time.UTC),
	}
}

func TestResolver_InitServesFallback(t *testing.T) {
	resolver := newTestResolver(t)

	record, err := resolver.Resolve(context.Background(), tariffs.ProviderAfinia, tariffs.ServiceElectricity, "1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want, _ := fallback.Lookup(tariffs.ProviderAfinia, tariffs.ServiceElectricity, "1")
	if record.UnitPrice != want.UnitPrice {
		t.Fatalf("unit price: got %v want %v", record.UnitPrice, want.UnitPrice)
	}
	if !record.Approximate {
		t.Fatalf("static table records are approximate")
	}
}

func TestResolver_IngestThenResolveExact(t *testing.T) {
	resolver := newTestResolver(t)

	snapshot := snapshotFor(tariffs.ProviderAfinia, tariffs.ServiceElectricity,
		[]tariffs.SnapshotTariff{
			{StratumOrCategory: "1", UnitPrice: 500.10, FixedCharge: 5300},
			{StratumOrCategory: "2", UnitPrice: 620.00, FixedCharge: 6600},
		},
		[]tariffs.SnapshotSubsidy{
			{StratumOrCategory: "1", Percent: -60},
			{StratumOrCategory: "2", Percent: -50},
		})

	result, err := resolver.Ingest(context.Background(), tariffs.ProviderAfinia, tariffs.ServiceElectricity, snapshot)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.IngestedStrata != 2 {
		t.Fatalf("ingested strata: got %d", result.IngestedStrata)
	}
	if result.SourceUpdateID == "" {
		t.Fatalf("expected a source update id")
	}

	record, err := resolver.Resolve(context.Background(), tariffs.ProviderAfinia, tariffs.ServiceElectricity, "2")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if record.UnitPrice != 620.00 {
		t.Fatalf("unit price: got %v", record.UnitPrice)
	}
	if record.SubsidyOrContributionPercent != -50 {
		t.Fatalf("subsidy: got %v", record.SubsidyOrContributionPercent)
	}
	if record.Approximate {
		t.Fatalf("exact catalog hit must not be approximate")
	}
	if record.SourceUpdateID != result.SourceUpdateID {
		t.Fatalf("source update id: got %s want %s", record.SourceUpdateID, result.SourceUpdateID)
	}

	// Resolving twice returns the same record.
	again, err := resolver.Resolve(context.Background(), tariffs.ProviderAfinia, tariffs.ServiceElectricity, "2")
	if err != nil || again != record {
		t.Fatalf("resolve not idempotent: %+v vs %+v (%v)", again, record, err)
	}
}

func TestResolver_SubstitutedStratum(t *testing.T) {
	resolver := newTestResolver(t)

	snapshot := snapshotFor(tariffs.ProviderSurtigas, tariffs.ServiceGas,
		[]tariffs.SnapshotTariff{
			{StratumOrCategory: "3", UnitPrice: 2100, FixedCharge: 2000},
		},
		[]tariffs.SnapshotSubsidy{
			{StratumOrCategory: "3", Percent: -10},
		})
	if _, err := resolver.Ingest(context.Background(), tariffs.ProviderSurtigas, tariffs.ServiceGas, snapshot); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	record, err := resolver.Resolve(context.Background(), tariffs.ProviderSurtigas, tariffs.ServiceGas, "9")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !record.Approximate {
		t.Fatalf("substituted record must be approximate")
	}
	if record.SubsidyOrContributionPercent != 0 {
		t.Fatalf("substituted record must zero the subsidy, got %v", record.SubsidyOrContributionPercent)
	}
	if record.UnitPrice != 2100 {
		t.Fatalf("unit price: got %v", record.UnitPrice)
	}
}

func TestResolver_ChangeDetection(t *testing.T) {
	notifier := &captureNotifier{}
	resolver := newTestResolver(t, WithNotifier(notifier))

	base := snapshotFor(tariffs.ProviderVeolia, tariffs.ServiceWater,
		[]tariffs.SnapshotTariff{{StratumOrCategory: "1", UnitPrice: 1000, FixedCharge: 0}}, nil)
	if _, err := resolver.Ingest(context.Background(), tariffs.ProviderVeolia, tariffs.ServiceWater, base); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	// 2% move: below threshold, no event.
	small := snapshotFor(tariffs.ProviderVeolia, tariffs.ServiceWater,
		[]tariffs.SnapshotTariff{{StratumOrCategory: "1", UnitPrice: 1020, FixedCharge: 0}}, nil)
	result, err := resolver.Ingest(context.Background(), tariffs.ProviderVeolia, tariffs.ServiceWater, small)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(result.ChangedStrata) != 0 {
		t.Fatalf("2%% move must not fire: %+v", result.ChangedStrata)
	}

	// 10% move: fires.
	big := snapshotFor(tariffs.ProviderVeolia, tariffs.ServiceWater,
		[]tariffs.SnapshotTariff{{StratumOrCategory: "1", UnitPrice: 1122, FixedCharge: 0}}, nil)
	result, err = resolver.Ingest(context.Background(), tariffs.ProviderVeolia, tariffs.ServiceWater, big)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(result.ChangedStrata) != 1 {
		t.Fatalf("10%% move must fire once: %+v", result.ChangedStrata)
	}
	event := result.ChangedStrata[0]
	if event.Direction != tariffs.ChangeIncrease {
		t.Fatalf("direction: got %s", event.Direction)
	}
	if event.PreviousValue != 1020 || event.NewValue != 1122 {
		t.Fatalf("values: got %v -> %v", event.PreviousValue, event.NewValue)
	}
	if len(notifier.events) != 1 {
		t.Fatalf("notifier should receive the event, got %d", len(notifier.events))
	}
}

func TestResolver_IngestSkipsMalformedStrata(t *testing.T) {
	resolver := newTestResolver(t)

	snapshot := snapshotFor(tariffs.ProviderAfinia, tariffs.ServiceElectricity,
		[]tariffs.SnapshotTariff{
			{StratumOrCategory: "1", UnitPrice: 500, FixedCharge: 5200},
			{StratumOrCategory: "", UnitPrice: 600, FixedCharge: 5200},
			{StratumOrCategory: "3", UnitPrice: -1, FixedCharge: 5200},
		}, nil)

	result, err := resolver.Ingest(context.Background(), tariffs.ProviderAfinia, tariffs.ServiceElectricity, snapshot)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.IngestedStrata != 1 {
		t.Fatalf("ingested strata: got %d", result.IngestedStrata)
	}
	if len(result.SkippedStrata) != 2 {
		t.Fatalf("skipped strata: got %v", result.SkippedStrata)
	}
}

func TestResolver_AllStrataMalformedLeavesCacheUntouched(t *testing.T) {
	resolver := newTestResolver(t)

	before, err := resolver.Resolve(context.Background(), tariffs.ProviderAfinia, tariffs.ServiceElectricity, "1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	snapshot := snapshotFor(tariffs.ProviderAfinia, tariffs.ServiceElectricity,
		[]tariffs.SnapshotTariff{{StratumOrCategory: "1", UnitPrice: 0, FixedCharge: 0}}, nil)

	_, err = resolver.Ingest(context.Background(), tariffs.ProviderAfinia, tariffs.ServiceElectricity, snapshot)
	if !errors.Is(err, tariffs.ErrMalformedSnapshot) {
		t.Fatalf("expected ErrMalformedSnapshot, got %v", err)
	}

	after, err := resolver.Resolve(context.Background(), tariffs.ProviderAfinia, tariffs.ServiceElectricity, "1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if after != before {
		t.Fatalf("cache changed on failed ingest: %+v vs %+v", after, before)
	}
}

func TestResolver_ProviderMismatchRejected(t *testing.T) {
	resolver := newTestResolver(t)

	snapshot := snapshotFor(tariffs.ProviderVeolia, tariffs.ServiceWater,
		[]tariffs.SnapshotTariff{{StratumOrCategory: "1", UnitPrice: 900, FixedCharge: 0}}, nil)

	_, err := resolver.Ingest(context.Background(), tariffs.ProviderAfinia, tariffs.ServiceElectricity, snapshot)
	if !errors.Is(err, tariffs.ErrMalformedSnapshot) {
		t.Fatalf("expected ErrMalformedSnapshot, got %v", err)
	}
}

func TestResolver_UnknownKeyMiss(t *testing.T) {
	resolver := newTestResolver(t)

	_, err := resolver.Resolve(context.Background(), tariffs.Provider("enel"), tariffs.ServiceElectricity, "1")
	if !errors.Is(err, tariffs.ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestResolver_ConcurrentResolveDuringIngest(t *testing.T) {
	resolver := newTestResolver(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			price := 500 + float64(i)
			snapshot := snapshotFor(tariffs.ProviderAfinia, tariffs.ServiceElectricity,
				[]tariffs.SnapshotTariff{
					{StratumOrCategory: "1", UnitPrice: price, FixedCharge: 5200},
					{StratumOrCategory: "2", UnitPrice: price + 100, FixedCharge: 6500},
				}, nil)
			if _, err := resolver.Ingest(context.Background(), tariffs.ProviderAfinia, tariffs.ServiceElectricity, snapshot); err != nil {
				t.Errorf("ingest: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 500; i++ {
		list := resolver.CurrentTariffs(tariffs.ProviderAfinia, tariffs.ServiceElectricity)
		// Readers never observe a half-replaced snapshot: the two strata
		// of an ingested update always land together.
		if len(list) == 2 {
			if list[0].SourceUpdateID != list[1].SourceUpdateID {
				t.Fatalf("torn snapshot: %s vs %s", list[0].SourceUpdateID, list[1].SourceUpdateID)
			}
			if list[1].UnitPrice-list[0].UnitPrice != 100 {
				t.Fatalf("torn snapshot: %v vs %v", list[0].UnitPrice, list[1].UnitPrice)
			}
		}
	}
	<-done
}

func TestResolver_CurrentTariffsSorted(t *testing.T) {
	resolver := newTestResolver(t)

	list := resolver.CurrentTariffs(tariffs.ProviderAfinia, tariffs.ServiceElectricity)
	if len(list) == 0 {
		t.Fatalf("expected fallback records")
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].Stratum > list[i].Stratum {
			t.Fatalf("not sorted at %d: %s > %s", i, list[i-1].Stratum, list[i].Stratum)
		}
	}
}
