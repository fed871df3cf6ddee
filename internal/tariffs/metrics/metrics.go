package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles tariff refresh metrics.
type Metrics struct {
	CyclesTotal     *prometheus.CounterVec
	StrataIngested  prometheus.Counter
	StrataSkipped   prometheus.Counter
	ChangeEvents    *prometheus.CounterVec
	ResolveTotal    *prometheus.CounterVec
	CacheAgeSeconds *prometheus.GaugeVec
	CycleDuration   prometheus.Histogram
}

// New constructs and registers metrics.
func New() *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optifactura_tariff_cycles_total",
				Help: "Tariff refresh outcomes by provider and status",
			},
			[]string{"provider", "status"},
		),
		StrataIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "optifactura_tariff_strata_ingested_total",
			Help: "Tariff strata written to the catalog",
		}),
		StrataSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "optifactura_tariff_strata_skipped_total",
			Help: "Malformed tariff strata skipped during ingestion",
		}),
		ChangeEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optifactura_tariff_change_events_total",
				Help: "Significant tariff changes by provider and direction",
			},
			[]string{"provider", "direction"},
		),
		ResolveTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optifactura_tariff_resolve_total",
				Help: "Tariff resolutions by source (exact, substituted, fallback, miss)",
			},
			[]string{"source"},
		),
		CacheAgeSeconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "optifactura_tariff_cache_age_seconds",
				Help: "Seconds since the cached snapshot for a provider was replaced",
			},
			[]string{"provider"},
		),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "optifactura_tariff_cycle_duration_seconds",
			Help:    "Full refresh cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
	prometheus.MustRegister(
		m.CyclesTotal,
		m.StrataIngested,
		m.StrataSkipped,
		m.ChangeEvents,
		m.ResolveTotal,
		m.CacheAgeSeconds,
		m.CycleDuration,
	)
	return m
}
