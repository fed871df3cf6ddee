package application

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Thresholds defines the deviation bands the detector applies. The
// source data carries tolerance bands between 5 and 10 percent
// depending on the check, so every band is configurable rather than
// hard-coded.
type Thresholds struct {
	UnjustifiedChargePct     float64 `yaml:"unjustified_charge_pct"`
	UnjustifiedChargeHighPct float64 `yaml:"unjustified_charge_high_pct"`
	UnitPricePct             float64 `yaml:"unit_price_pct"`
	UnitPriceHighPct         float64 `yaml:"unit_price_high_pct"`
	HighConsumptionPct       float64 `yaml:"high_consumption_pct"`
	HighConsumptionHighPct   float64 `yaml:"high_consumption_high_pct"`
	// LowConsumptionPct is negative: consumption this far below the
	// average flags a possible metering problem.
	LowConsumptionPct float64 `yaml:"low_consumption_pct"`
}

// DefaultThresholds returns the canonical bands.
func DefaultThresholds() Thresholds {
	return Thresholds{
		UnjustifiedChargePct:     10,
		UnjustifiedChargeHighPct: 20,
		UnitPricePct:             5,
		UnitPriceHighPct:         10,
		HighConsumptionPct:       30,
		HighConsumptionHighPct:   50,
		LowConsumptionPct:        -50,
	}
}

// LoadThresholds loads thresholds from yaml or env, filling gaps with
// the defaults.
func LoadThresholds() (Thresholds, error) {
	t := DefaultThresholds()

	if path := os.Getenv("ANALYSIS_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return t, err
		}
		loaded := Thresholds{}
		if err := yaml.Unmarshal(data, &loaded); err != nil {
			return t, err
		}
		t = mergeThresholds(t, loaded)
	}

	if v := getenvFloat("ANALYSIS_UNJUSTIFIED_CHARGE_PCT"); v != 0 {
		t.UnjustifiedChargePct = v
	}
	if v := getenvFloat("ANALYSIS_UNIT_PRICE_PCT"); v != 0 {
		t.UnitPricePct = v
	}
	return t, nil
}

func mergeThresholds(base, override Thresholds) Thresholds {
	if override.UnjustifiedChargePct != 0 {
		base.UnjustifiedChargePct = override.UnjustifiedChargePct
	}
	if override.UnjustifiedChargeHighPct != 0 {
		base.UnjustifiedChargeHighPct = override.UnjustifiedChargeHighPct
	}
	if override.UnitPricePct != 0 {
		base.UnitPricePct = override.UnitPricePct
	}
	if override.UnitPriceHighPct != 0 {
		base.UnitPriceHighPct = override.UnitPriceHighPct
	}
	if override.HighConsumptionPct != 0 {
		base.HighConsumptionPct = override.HighConsumptionPct
	}
	if override.HighConsumptionHighPct != 0 {
		base.HighConsumptionHighPct = override.HighConsumptionHighPct
	}
	if override.LowConsumptionPct != 0 {
		base.LowConsumptionPct = override.LowConsumptionPct
	}
	return base
}

func getenvFloat(key string) float64 {
	value := os.Getenv(key)
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return parsed
}
