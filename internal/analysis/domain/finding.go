package analysis

// FindingType is the closed set of anomaly kinds the detector emits.
type FindingType string

const (
	FindingUnjustifiedCharge FindingType = "unjustified_charge"
	FindingTariffOvercharge  FindingType = "tariff_overcharge"
	FindingHighConsumption   FindingType = "high_consumption"
	FindingLowConsumption    FindingType = "low_consumption"
)

// Severity grades a finding.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// UnjustifiedChargeDetails explains a billed total above the recomputed
// expected total.
type UnjustifiedChargeDetails struct {
	ExpectedTotal float64 `json:"expected_total"`
	BilledTotal   float64 `json:"billed_total"`
	Difference    float64 `json:"difference"`
	PercentError  float64 `json:"percent_error"`
}

// TariffOverchargeDetails explains a unit price above the regulated one.
type TariffOverchargeDetails struct {
	AppliedUnitPrice   float64 `json:"applied_unit_price"`
	ReferenceUnitPrice float64 `json:"reference_unit_price"`
	Difference         float64 `json:"difference"`
	PercentDifference  float64 `json:"percent_difference"`
}

// ConsumptionDeviationDetails explains consumption far from the user's
// historical average, in either direction.
type ConsumptionDeviationDetails struct {
	CurrentConsumption float64 `json:"current_consumption"`
	AverageConsumption float64 `json:"average_consumption"`
	Difference         float64 `json:"difference"`
	PercentDifference  float64 `json:"percent_difference"`
}

// AnomalyFinding is one detected anomaly. Exactly one detail pointer is
// set, and it matches Type; the set of types is closed.
type AnomalyFinding struct {
	Type        FindingType `json:"type"`
	Severity    Severity    `json:"severity"`
	Description string      `json:"description"`

	UnjustifiedCharge *UnjustifiedChargeDetails    `json:"unjustified_charge,omitempty"`
	TariffOvercharge  *TariffOverchargeDetails     `json:"tariff_overcharge,omitempty"`
	HighConsumption   *ConsumptionDeviationDetails `json:"high_consumption,omitempty"`
	LowConsumption    *ConsumptionDeviationDetails `json:"low_consumption,omitempty"`
}

// RecommendationType identifies an actionable follow-up.
type RecommendationType string

const (
	RecommendClaimRefund      RecommendationType = "claim_refund"
	RecommendCheckConsumption RecommendationType = "check_consumption"
)

// Recommendation is a follow-up action attached to a finding type.
type Recommendation struct {
	Type        RecommendationType `json:"type"`
	Description string             `json:"description"`
	Steps       []string           `json:"steps,omitempty"`
}
