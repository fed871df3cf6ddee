package application

import (
	"fmt"

	analysis "optifactura/internal/analysis/domain"
	tariffs "optifactura/internal/tariffs/domain"
)

// Detector runs the anomaly checks over one bill. It holds no mutable
// state, so one instance serves any number of concurrent requests.
type Detector struct {
	thresholds Thresholds
}

// NewDetector constructs a detector.
func NewDetector(thresholds Thresholds) *Detector {
	return &Detector{thresholds: thresholds}
}

// Analyze runs the three checks in fixed order: shadow-billing
// deviation, unit-price deviation, historical-consumption deviation.
// The order is a contract; findings always append in that sequence.
// Any check whose inputs are missing or whose denominator is zero is
// skipped without a finding.
func (d *Detector) Analyze(facts analysis.ExtractedBillFacts, history []analysis.HistoricalConsumptionRecord, tariff tariffs.ReferenceTariff) analysis.AnalysisResult {
	result := analysis.AnalysisResult{ApproximateTariff: tariff.Approximate}

	d.checkShadowBilling(facts, tariff, &result)
	d.checkUnitPrice(facts, tariff, &result)
	d.checkConsumption(facts, history, &result)

	return result
}

func (d *Detector) checkShadowBilling(facts analysis.ExtractedBillFacts, tariff tariffs.ReferenceTariff, result *analysis.AnalysisResult) {
	if facts.Consumption == nil || facts.TotalAmountBilled == nil {
		return
	}

	breakdown := ComputeExpectedCost(*facts.Consumption, tariff)
	if breakdown.ExpectedTotal == 0 {
		return
	}

	billed := *facts.TotalAmountBilled
	difference := billed - breakdown.ExpectedTotal
	percentError := difference / breakdown.ExpectedTotal * 100

	shadow := &analysis.ShadowBilling{
		CostBreakdown: breakdown,
		TotalBilled:   billed,
		Difference:    difference,
		PercentError:  percentError,
	}
	if facts.UnitPriceApplied != nil {
		shadow.AppliedUnitPrice = *facts.UnitPriceApplied
	}
	result.ShadowBilling = shadow

	if percentError <= d.thresholds.UnjustifiedChargePct {
		return
	}

	severity := analysis.SeverityMedium
	if percentError > d.thresholds.UnjustifiedChargeHighPct {
		severity = analysis.SeverityHigh
	}
	result.Findings = append(result.Findings, analysis.AnomalyFinding{
		Type:        analysis.FindingUnjustifiedCharge,
		Severity:    severity,
		Description: fmt.Sprintf("Billed total is %.1f%% above the amount computed from regulated tariffs", percentError),
		UnjustifiedCharge: &analysis.UnjustifiedChargeDetails{
			ExpectedTotal: breakdown.ExpectedTotal,
			BilledTotal:   billed,
			Difference:    difference,
			PercentError:  percentError,
		},
	})
	result.Recommendations = append(result.Recommendations, analysis.Recommendation{
		Type:        analysis.RecommendClaimRefund,
		Description: "File a claim for the unjustified charge",
		Steps: []string{
			"Download the detail of this analysis",
			"Contact the provider's customer service line",
			"Request a detailed explanation of the calculation",
		},
	})
}

func (d *Detector) checkUnitPrice(facts analysis.ExtractedBillFacts, tariff tariffs.ReferenceTariff, result *analysis.AnalysisResult) {
	if facts.UnitPriceApplied == nil || tariff.UnitPrice <= 0 {
		return
	}

	applied := *facts.UnitPriceApplied
	difference := applied - tariff.UnitPrice
	percentDifference := difference / tariff.UnitPrice * 100

	result.TariffDifference = difference
	result.TariffPercentageDifference = percentDifference

	if percentDifference <= d.thresholds.UnitPricePct {
		return
	}

	severity := analysis.SeverityMedium
	if percentDifference > d.thresholds.UnitPriceHighPct {
		severity = analysis.SeverityHigh
	}
	result.Findings = append(result.Findings, analysis.AnomalyFinding{
		Type:        analysis.FindingTariffOvercharge,
		Severity:    severity,
		Description: fmt.Sprintf("Applied unit price (%.2f) is %.1f%% above the regulated price (%.2f)", applied, percentDifference, tariff.UnitPrice),
		TariffOvercharge: &analysis.TariffOverchargeDetails{
			AppliedUnitPrice:   applied,
			ReferenceUnitPrice: tariff.UnitPrice,
			Difference:         difference,
			PercentDifference:  percentDifference,
		},
	})
}

func (d *Detector) checkConsumption(facts analysis.ExtractedBillFacts, history []analysis.HistoricalConsumptionRecord, result *analysis.AnalysisResult) {
	if facts.Consumption == nil || len(history) == 0 {
		return
	}

	window := history
	if len(window) > analysis.HistoryWindow {
		window = window[:analysis.HistoryWindow]
	}

	var sum float64
	for _, record := range window {
		sum += record.Consumption
	}
	average := sum / float64(len(window))
	if average == 0 {
		return
	}

	current := *facts.Consumption
	difference := current - average
	percentDifference := difference / average * 100

	result.ConsumptionAnalysis = &analysis.ConsumptionAnalysis{
		CurrentConsumption: current,
		AverageConsumption: average,
		Difference:         difference,
		PercentDifference:  percentDifference,
		RecordsConsulted:   len(window),
	}

	details := &analysis.ConsumptionDeviationDetails{
		CurrentConsumption: current,
		AverageConsumption: average,
		Difference:         difference,
		PercentDifference:  percentDifference,
	}

	switch {
	case percentDifference > d.thresholds.HighConsumptionPct:
		severity := analysis.SeverityMedium
		if percentDifference > d.thresholds.HighConsumptionHighPct {
			severity = analysis.SeverityHigh
		}
		result.Findings = append(result.Findings, analysis.AnomalyFinding{
			Type:            analysis.FindingHighConsumption,
			Severity:        severity,
			Description:     fmt.Sprintf("Consumption is %.0f%% above your historical average", percentDifference),
			HighConsumption: details,
		})
		result.Recommendations = append(result.Recommendations, analysis.Recommendation{
			Type:        analysis.RecommendCheckConsumption,
			Description: "Check appliances and look for internal leaks",
		})
	case percentDifference < d.thresholds.LowConsumptionPct:
		result.Findings = append(result.Findings, analysis.AnomalyFinding{
			Type:           analysis.FindingLowConsumption,
			Severity:       analysis.SeverityLow,
			Description:    fmt.Sprintf("Consumption is %.0f%% below your historical average", -percentDifference),
			LowConsumption: details,
		})
	}
}
