package application

import (
	"context"
	"log"
	"time"

	tariffs "optifactura/internal/tariffs/domain"
	tariffmetrics "optifactura/internal/tariffs/metrics"
)

// ProviderResult is one provider's slot in a refresh cycle.
type ProviderResult struct {
	Ingest IngestResult `json:"ingest"`
	Err    string       `json:"error,omitempty"`
}

// CycleResult reports a full refresh cycle. Providers are isolated:
// one feed failure fills that provider's Err and touches nothing else.
type CycleResult struct {
	Results   map[tariffs.Provider]ProviderResult `json:"results"`
	StartedAt time.Time                           `json:"started_at"`
	EndedAt   time.Time                           `json:"ended_at"`
}

// Failed lists providers whose slot carries an error.
func (c CycleResult) Failed() []tariffs.Provider {
	var failed []tariffs.Provider
	for _, provider := range tariffs.Providers() {
		if result, ok := c.Results[provider]; ok && result.Err != "" {
			failed = append(failed, provider)
		}
	}
	return failed
}

// Refresher runs refresh cycles: fetch each provider's snapshot from
// the extraction feed under a timeout and hand it to the resolver.
type Refresher struct {
	resolver *Resolver
	feed     ExtractionFeed
	timeout  time.Duration
	metrics  *tariffmetrics.Metrics
	logger   *log.Logger
}

// NewRefresher constructs a refresher.
func NewRefresher(resolver *Resolver, feed ExtractionFeed, cfg Config, metrics *tariffmetrics.Metrics, logger *log.Logger) *Refresher {
	return &Refresher{
		resolver: resolver,
		feed:     feed,
		timeout:  cfg.FeedTimeout,
		metrics:  metrics,
		logger:   logger,
	}
}

// RunCycle refreshes every provider once. It never returns an error:
// partial failure is reported per provider, failed providers keep their
// prior cache, and no retry happens until the next cycle.
func (r *Refresher) RunCycle(ctx context.Context) CycleResult {
	started := time.Now().UTC()
	cycle := CycleResult{
		Results:   make(map[tariffs.Provider]ProviderResult, len(tariffs.Providers())),
		StartedAt: started,
	}

	for _, provider := range tariffs.Providers() {
		cycle.Results[provider] = r.refreshProvider(ctx, provider)
	}

	cycle.EndedAt = time.Now().UTC()
	if r.metrics != nil {
		r.metrics.CycleDuration.Observe(cycle.EndedAt.Sub(started).Seconds())
	}
	if failed := cycle.Failed(); len(failed) > 0 {
		r.logf("tariff_cycle_partial failed=%v", failed)
	} else {
		r.logf("tariff_cycle_complete duration=%s", cycle.EndedAt.Sub(started).Round(time.Millisecond))
	}
	return cycle
}

func (r *Refresher) refreshProvider(ctx context.Context, provider tariffs.Provider) ProviderResult {
	service := provider.Service()

	fetchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	snapshot, err := r.feed.Fetch(fetchCtx, provider)
	if err != nil {
		r.logf("tariff_feed_error provider=%s err=%v", provider, err)
		r.countCycle(provider, "feed_error")
		return ProviderResult{Err: err.Error()}
	}

	result, err := r.resolver.Ingest(ctx, provider, service, snapshot)
	if err != nil {
		r.logf("tariff_ingest_error provider=%s err=%v", provider, err)
		r.countCycle(provider, "ingest_error")
		return ProviderResult{Ingest: result, Err: err.Error()}
	}

	r.countCycle(provider, "ok")
	return ProviderResult{Ingest: result}
}

func (r *Refresher) countCycle(provider tariffs.Provider, status string) {
	if r.metrics != nil {
		r.metrics.CyclesTotal.WithLabelValues(string(provider), status).Inc()
	}
}

func (r *Refresher) logf(format string, args ...any) {
	if r.logger != nil {
		r.logger.Printf(format, args...)
	}
}
