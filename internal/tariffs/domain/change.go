package tariffs

import "time"

// ChangeDirection indicates whether a tariff moved up or down.
type ChangeDirection string

const (
	ChangeIncrease ChangeDirection = "increase"
	ChangeDecrease ChangeDirection = "decrease"
)

// TariffChangeEvent records a tariff move beyond the significance
// threshold, detected while ingesting a fresh snapshot.
type TariffChangeEvent struct {
	Provider      Provider        `json:"provider"`
	Service       Service         `json:"service"`
	Stratum       string          `json:"stratum_or_category"`
	PreviousValue float64         `json:"previous_value"`
	NewValue      float64         `json:"new_value"`
	PercentChange float64         `json:"percent_change"`
	Direction     ChangeDirection `json:"direction"`
	DetectedAt    time.Time       `json:"detected_at"`
}

// DetectChange compares a previous and a new unit price and returns a
// change event when the move is at or beyond threshold percent. Zero or
// negative previous values are not comparable and never produce an event.
func DetectChange(key TariffKey, previous, next float64, threshold float64, at time.Time) (TariffChangeEvent, bool) {
	if previous <= 0 || next <= 0 {
		return TariffChangeEvent{}, false
	}
	percent := (next - previous) / previous * 100
	if percent < threshold && -percent < threshold {
		return TariffChangeEvent{}, false
	}
	direction := ChangeIncrease
	if percent < 0 {
		direction = ChangeDecrease
	}
	return TariffChangeEvent{
		Provider:      key.Provider,
		Service:       key.Service,
		Stratum:       key.Stratum,
		PreviousValue: previous,
		NewValue:      next,
		PercentChange: percent,
		Direction:     direction,
		DetectedAt:    at,
	}, true
}
