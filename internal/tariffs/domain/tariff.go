package tariffs

import (
	"errors"
	"strings"
	"time"
)

// Provider identifies a regulated utility provider.
type Provider string

const (
	ProviderAfinia   Provider = "afinia"
	ProviderVeolia   Provider = "veolia"
	ProviderSurtigas Provider = "surtigas"
)

// Service identifies the billed utility service.
type Service string

const (
	ServiceElectricity Service = "electricity"
	ServiceWater       Service = "water"
	ServiceGas         Service = "gas"
)

// Unit is the consumption unit a tariff is priced in.
type Unit string

const (
	UnitKWh        Unit = "kWh"
	UnitCubicMeter Unit = "m³"
)

// CurrencyCOP is the only currency handled by the service.
const CurrencyCOP = "COP"

// Providers lists all supported providers.
func Providers() []Provider {
	return []Provider{ProviderAfinia, ProviderVeolia, ProviderSurtigas}
}

// Valid returns true when the provider is supported.
func (p Provider) Valid() bool {
	switch p {
	case ProviderAfinia, ProviderVeolia, ProviderSurtigas:
		return true
	default:
		return false
	}
}

// Service returns the service the provider bills for.
func (p Provider) Service() Service {
	switch p {
	case ProviderAfinia:
		return ServiceElectricity
	case ProviderVeolia:
		return ServiceWater
	case ProviderSurtigas:
		return ServiceGas
	default:
		return ""
	}
}

// ParseProvider maps a free-form provider label from a bill to a known
// provider. Bills in the region name the electricity utility either
// "Afinia" or "Air-e", the water utility "Veolia" or "Aguas de ...", and
// the gas utility "Surtigas".
func ParseProvider(label string) (Provider, error) {
	normalized := strings.ToLower(strings.TrimSpace(label))
	switch {
	case normalized == "":
		return "", ErrUnknownProvider
	case strings.Contains(normalized, "afinia"), strings.Contains(normalized, "air-e"):
		return ProviderAfinia, nil
	case strings.Contains(normalized, "veolia"), strings.Contains(normalized, "aguas"):
		return ProviderVeolia, nil
	case strings.Contains(normalized, "surtigas"), strings.Contains(normalized, "gas"):
		return ProviderSurtigas, nil
	default:
		return "", ErrUnknownProvider
	}
}

// Valid returns true when the service is supported.
func (s Service) Valid() bool {
	switch s {
	case ServiceElectricity, ServiceWater, ServiceGas:
		return true
	default:
		return false
	}
}

// Unit returns the consumption unit the service is billed in.
func (s Service) Unit() Unit {
	if s == ServiceElectricity {
		return UnitKWh
	}
	return UnitCubicMeter
}

// ParseService maps a free-form service label.
func ParseService(label string) (Service, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "electricity", "electricidad", "energia", "energía":
		return ServiceElectricity, nil
	case "water", "agua", "acueducto":
		return ServiceWater, nil
	case "gas":
		return ServiceGas, nil
	default:
		return "", ErrUnknownService
	}
}

// TariffKey identifies a tariff line within the catalog.
type TariffKey struct {
	Provider Provider
	Service  Service
	Stratum  string
}

// ReferenceTariff is one regulated tariff record. Records are never
// mutated: a newer record supersedes the old one by closing EffectiveTo.
// At most one record per key has EffectiveTo == nil.
type ReferenceTariff struct {
	Provider    Provider
	Service     Service
	Stratum     string
	UnitPrice   float64
	FixedCharge float64
	// SubsidyOrContributionPercent is negative for a subsidy (the
	// magnitude is the subsidy rate), positive for a contribution
	// surcharge, zero for neither.
	SubsidyOrContributionPercent float64
	Unit                         Unit
	Currency                     string
	EffectiveFrom                time.Time
	EffectiveTo                  *time.Time
	Approximate                  bool
	SourceUpdateID               string
}

// Key returns the catalog key of the tariff.
func (t ReferenceTariff) Key() TariffKey {
	return TariffKey{Provider: t.Provider, Service: t.Service, Stratum: t.Stratum}
}

// Current reports whether the record is the active one for its key.
func (t ReferenceTariff) Current() bool {
	return t.EffectiveTo == nil
}

// Validate checks record invariants.
func (t ReferenceTariff) Validate() error {
	if !t.Provider.Valid() {
		return errors.New("reference tariff: invalid provider")
	}
	if !t.Service.Valid() {
		return errors.New("reference tariff: invalid service")
	}
	if t.Stratum == "" {
		return errors.New("reference tariff: empty stratum")
	}
	if t.UnitPrice < 0 {
		return errors.New("reference tariff: negative unit price")
	}
	if t.FixedCharge < 0 {
		return errors.New("reference tariff: negative fixed charge")
	}
	if t.Unit == "" {
		return errors.New("reference tariff: empty unit")
	}
	if t.Currency == "" {
		return errors.New("reference tariff: empty currency")
	}
	if t.EffectiveFrom.IsZero() {
		return errors.New("reference tariff: zero effective_from")
	}
	return nil
}
