package tariffs

import "time"

// RawTariffSnapshot is the scraped tariff page for one provider as handed
// over by the extraction feed. The core never fetches it itself.
type RawTariffSnapshot struct {
	Provider                 string             `json:"provider"`
	Service                  string             `json:"service"`
	Tariffs                  []SnapshotTariff   `json:"tariffs"`
	SubsidiesOrContributions []SnapshotSubsidy  `json:"subsidies_or_contributions"`
	SourceURL                string             `json:"source_url"`
	FetchedAt                time.Time          `json:"fetched_at"`
}

// SnapshotTariff is one scraped tariff line.
type SnapshotTariff struct {
	StratumOrCategory string  `json:"stratum_or_category"`
	UnitPrice         float64 `json:"unit_price"`
	FixedCharge       float64 `json:"fixed_charge"`
}

// SnapshotSubsidy is one scraped subsidy or contribution line.
type SnapshotSubsidy struct {
	StratumOrCategory string  `json:"stratum_or_category"`
	Percent           float64 `json:"percent"`
}

// Validate checks the snapshot can be ingested at all. Individual bad
// strata are tolerated during ingestion; this only rejects snapshots
// with nothing usable.
func (s *RawTariffSnapshot) Validate(provider Provider, service Service) error {
	if s == nil {
		return ErrMalformedSnapshot
	}
	if parsed, err := ParseProvider(s.Provider); err != nil || parsed != provider {
		return ErrMalformedSnapshot
	}
	if parsed, err := ParseService(s.Service); err != nil || parsed != service {
		return ErrMalformedSnapshot
	}
	if len(s.Tariffs) == 0 {
		return ErrMalformedSnapshot
	}
	return nil
}

// SubsidyFor returns the subsidy/contribution percent scraped for a
// stratum, or 0 when none was published.
func (s *RawTariffSnapshot) SubsidyFor(stratum string) float64 {
	if s == nil {
		return 0
	}
	for _, line := range s.SubsidiesOrContributions {
		if line.StratumOrCategory == stratum {
			return line.Percent
		}
	}
	return 0
}
