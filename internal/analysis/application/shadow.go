package application

import (
	"math"

	analysis "optifactura/internal/analysis/domain"
	tariffs "optifactura/internal/tariffs/domain"
)

// Subsistence caps: the consumption quantity eligible for subsidy.
// Anything above the cap is billed at the full unit price.
const (
	SubsistenceCapKWh   = 173 // electricity, Caribbean coast below 1000m
	SubsistenceCapWater = 13
	SubsistenceCapGas   = 20

	// Water and gas are both metered in m³. Water unit prices in the
	// region sit well above 3000 COP/m³ and gas well below, so the
	// price magnitude disambiguates when the service is not explicit.
	// A documented heuristic from the regulated data, not a law.
	waterPriceThreshold = 3000
)

// SubsistenceCap returns the subsidy cap for a tariff, and false when
// consumption is uncapped (unknown unit).
func SubsistenceCap(tariff tariffs.ReferenceTariff) (float64, bool) {
	switch tariff.Unit {
	case tariffs.UnitKWh:
		return SubsistenceCapKWh, true
	case tariffs.UnitCubicMeter:
		if tariff.UnitPrice > waterPriceThreshold {
			return SubsistenceCapWater, true
		}
		return SubsistenceCapGas, true
	default:
		return math.Inf(1), false
	}
}

// ComputeExpectedCost recomputes the charge a bill should carry for a
// given consumption under a regulated tariff: consumption at unit
// price, plus the fixed charge, minus subsidy (capped at subsistence),
// plus contribution. Pure; every intermediate lands in the breakdown.
func ComputeExpectedCost(consumption float64, tariff tariffs.ReferenceTariff) analysis.CostBreakdown {
	cap, bounded := SubsistenceCap(tariff)

	breakdown := analysis.CostBreakdown{
		Consumption:    consumption,
		UnitPrice:      tariff.UnitPrice,
		FixedCharge:    tariff.FixedCharge,
		SubsidyPercent: tariff.SubsidyOrContributionPercent,
		CapUnbounded:   !bounded,
	}
	if bounded {
		breakdown.SubsistenceCap = cap
	}

	breakdown.BaseCost = consumption * tariff.UnitPrice

	percent := tariff.SubsidyOrContributionPercent
	switch {
	case percent < 0:
		breakdown.SubsidizedConsumption = math.Min(consumption, cap)
		breakdown.SubsidyAmount = breakdown.SubsidizedConsumption * tariff.UnitPrice * (-percent / 100)
	case percent > 0:
		breakdown.ContributionAmount = breakdown.BaseCost * (percent / 100)
	}

	breakdown.ExpectedTotal = breakdown.BaseCost + tariff.FixedCharge - breakdown.SubsidyAmount + breakdown.ContributionAmount
	return breakdown
}
