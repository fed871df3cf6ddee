package tariffs

import "errors"

var (
	// ErrTariffNotFound means neither the catalog, a same-provider
	// substitution, nor the static fallback table had a record.
	ErrTariffNotFound = errors.New("tariffs: tariff not found")

	// ErrUnknownProvider means a provider label could not be mapped.
	ErrUnknownProvider = errors.New("tariffs: unknown provider")

	// ErrUnknownService means a service label could not be mapped.
	ErrUnknownService = errors.New("tariffs: unknown service")

	// ErrMalformedSnapshot means a snapshot is structurally unusable
	// (nil, wrong provider/service, or no tariff lines at all).
	ErrMalformedSnapshot = errors.New("tariffs: malformed snapshot")
)
