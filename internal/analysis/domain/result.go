package analysis

import (
	"context"
	"time"

	tariffs "optifactura/internal/tariffs/domain"
)

// CostBreakdown exposes every intermediate value of the expected-cost
// computation so a bill holder can audit the math.
type CostBreakdown struct {
	Consumption           float64 `json:"consumption"`
	UnitPrice             float64 `json:"unit_price"`
	FixedCharge           float64 `json:"fixed_charge"`
	SubsidyPercent        float64 `json:"subsidy_percent"`
	SubsistenceCap        float64 `json:"subsistence_cap"`
	CapUnbounded          bool    `json:"cap_unbounded"`
	SubsidizedConsumption float64 `json:"subsidized_consumption"`
	BaseCost              float64 `json:"base_cost"`
	SubsidyAmount         float64 `json:"subsidy_amount"`
	ContributionAmount    float64 `json:"contribution_amount"`
	ExpectedTotal         float64 `json:"expected_total"`
}

// ShadowBilling is the breakdown compared against the billed total.
type ShadowBilling struct {
	CostBreakdown
	AppliedUnitPrice float64 `json:"applied_unit_price,omitempty"`
	TotalBilled      float64 `json:"total_billed"`
	Difference       float64 `json:"difference"`
	PercentError     float64 `json:"percent_error"`
}

// ConsumptionAnalysis summarizes the historical comparison.
type ConsumptionAnalysis struct {
	CurrentConsumption float64 `json:"current_consumption"`
	AverageConsumption float64 `json:"average_consumption"`
	Difference         float64 `json:"difference"`
	PercentDifference  float64 `json:"percent_difference"`
	RecordsConsulted   int     `json:"records_consulted"`
}

// AnalysisResult is the ordered outcome of one bill analysis. Findings
// appear in check order (shadow billing, unit price, consumption) so
// output is deterministic.
type AnalysisResult struct {
	Findings        []AnomalyFinding `json:"findings"`
	Recommendations []Recommendation `json:"recommendations"`

	ShadowBilling       *ShadowBilling       `json:"shadow_billing,omitempty"`
	ConsumptionAnalysis *ConsumptionAnalysis `json:"consumption_analysis,omitempty"`

	TariffDifference           float64 `json:"tariff_difference"`
	TariffPercentageDifference float64 `json:"tariff_percentage_difference"`

	// ApproximateTariff is surfaced so consumers can discount
	// confidence when the resolved tariff was a substitution or a
	// static-table entry.
	ApproximateTariff bool `json:"approximate_tariff"`
}

// StoredAnalysis is the persisted record of one analysis.
type StoredAnalysis struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	Provider    tariffs.Provider `json:"provider"`
	Service     tariffs.Service  `json:"service"`
	Stratum     string           `json:"stratum"`
	Consumption float64          `json:"consumption"`
	TotalAmount float64          `json:"total_amount"`
	UnitPrice   float64          `json:"unit_price"`
	Result      AnalysisResult   `json:"result"`
	CreatedAt   time.Time        `json:"created_at"`
}

// HistoryReader loads a user's prior bills, newest first.
type HistoryReader interface {
	Recent(ctx context.Context, userID string, provider tariffs.Provider, limit int) ([]HistoricalConsumptionRecord, error)
}

// ResultRepository persists analysis outcomes. The analysis core
// computes; the caller decides when to record.
type ResultRepository interface {
	Save(ctx context.Context, stored *StoredAnalysis) error
	Get(ctx context.Context, id string) (*StoredAnalysis, error)
}
