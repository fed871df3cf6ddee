package analysis

import (
	"regexp"
	"strings"
	"time"
)

// ExtractedBillFacts is what the OCR/extraction collaborator pulled out
// of a scanned invoice. Extraction is lossy, so every numeric field may
// be absent.
type ExtractedBillFacts struct {
	Provider          string   `json:"provider"`
	Consumption       *float64 `json:"consumption,omitempty"`
	ConsumptionUnit   string   `json:"consumption_unit,omitempty"`
	UnitPriceApplied  *float64 `json:"unit_price_applied,omitempty"`
	TotalAmountBilled *float64 `json:"total_amount_billed,omitempty"`
	TariffTypeLabel   string   `json:"tariff_type_label,omitempty"`
}

// HistoricalConsumptionRecord is one prior bill for the same user and
// provider. Records are consulted newest-first, at most twelve.
type HistoricalConsumptionRecord struct {
	BillingDate time.Time `json:"billing_date"`
	Consumption float64   `json:"consumption"`
	TotalAmount float64   `json:"total_amount"`
	UnitPrice   float64   `json:"unit_price"`
}

// HistoryWindow is the maximum number of history records a consumption
// check may consult (roughly one billing year).
const HistoryWindow = 12

var stratumDigits = regexp.MustCompile(`\d+`)

// StratumFromLabel maps a bill's tariff-type label to a catalog stratum
// or category. Residential bills carry "Estrato N"; commercial,
// industrial and official users have no stratum.
func StratumFromLabel(label string) string {
	normalized := strings.ToLower(strings.TrimSpace(label))
	switch {
	case normalized == "":
		return "1"
	case strings.Contains(normalized, "estrato"):
		if match := stratumDigits.FindString(normalized); match != "" {
			return match
		}
		return "1"
	case strings.Contains(normalized, "comercial"), strings.Contains(normalized, "commercial"):
		return "comercial"
	case strings.Contains(normalized, "industrial"):
		return "industrial"
	case strings.Contains(normalized, "oficial"), strings.Contains(normalized, "official"):
		return "oficial"
	default:
		return "1"
	}
}
