package application

import (
	"testing"
	"time"

	tariffs "optifactura/internal/tariffs/domain"
)

func TestChangeLog_AppendAndRead(t *testing.T) {
	log, err := NewChangeLog(t.TempDir())
	if err != nil {
		t.Fatalf("new change log: %v", err)
	}

	detected := time.Date(2026, time.September, 1, 6, 0, 0, 0, time.UTC)
	event := tariffs.TariffChangeEvent{
		Provider:      tariffs.ProviderAfinia,
		Service:       tariffs.ServiceElectricity,
		Stratum:       "2",
		PreviousValue: 609.22,
		NewValue:      670.14,
		PercentChange: 10,
		Direction:     tariffs.ChangeIncrease,
		DetectedAt:    detected,
	}

	if err := log.Append([]tariffs.TariffChangeEvent{event}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := log.Append([]tariffs.TariffChangeEvent{event}); err != nil {
		t.Fatalf("second append: %v", err)
	}

	events, err := log.Read("2026-09-01")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Stratum != "2" || events[0].Direction != tariffs.ChangeIncrease {
		t.Fatalf("event mismatch: %+v", events[0])
	}
}

func TestChangeLog_ReadEmptyDate(t *testing.T) {
	log, err := NewChangeLog(t.TempDir())
	if err != nil {
		t.Fatalf("new change log: %v", err)
	}
	events, err := log.Read("2026-01-01")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if events != nil {
		t.Fatalf("expected no events, got %+v", events)
	}
}
