package application

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	tariffs "optifactura/internal/tariffs/domain"
	"optifactura/internal/tariffs/fallback"
	tariffmetrics "optifactura/internal/tariffs/metrics"
)

// ChangeNotifier receives significant tariff changes after a successful
// ingestion. Implementations must not block ingestion on slow sinks.
type ChangeNotifier interface {
	NotifyChanges(ctx context.Context, events []tariffs.TariffChangeEvent)
}

// IngestResult reports one provider ingestion.
type IngestResult struct {
	ChangedStrata  []tariffs.TariffChangeEvent `json:"changed_strata"`
	IngestedStrata int                         `json:"ingested_strata"`
	SkippedStrata  []string                    `json:"skipped_strata,omitempty"`
	SourceUpdateID string                      `json:"source_update_id"`
}

type cacheKey struct {
	provider tariffs.Provider
	service  tariffs.Service
}

type cacheEntry struct {
	byStratum  map[string]tariffs.ReferenceTariff
	replacedAt time.Time
}

// Resolver owns the in-memory current-tariff cache. It is the only
// writer of that cache: Init populates it once, Ingest replaces one
// (provider, service) snapshot at a time. Resolve is safe from any
// number of goroutines.
type Resolver struct {
	catalog   tariffs.Catalog
	logger    *log.Logger
	metrics   *tariffmetrics.Metrics
	notifier  ChangeNotifier
	changeLog *ChangeLog
	threshold float64
	now       func() time.Time
	newID     func() string

	mu    sync.RWMutex
	cache map[cacheKey]cacheEntry
}

// ResolverOption configures the resolver.
type ResolverOption func(*Resolver)

// WithMetrics attaches prometheus metrics.
func WithMetrics(m *tariffmetrics.Metrics) ResolverOption {
	return func(r *Resolver) { r.metrics = m }
}

// WithNotifier attaches a change notifier.
func WithNotifier(n ChangeNotifier) ResolverOption {
	return func(r *Resolver) { r.notifier = n }
}

// WithChangeLog attaches the append-only change log.
func WithChangeLog(l *ChangeLog) ResolverOption {
	return func(r *Resolver) { r.changeLog = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithUpdateIDFactory overrides source-update id generation.
func WithUpdateIDFactory(factory func() string) ResolverOption {
	return func(r *Resolver) {
		if factory != nil {
			r.newID = factory
		}
	}
}

// NewResolver constructs a resolver. The catalog may be nil, in which
// case only the static fallback table serves resolutions and ingestion
// keeps the cache-but not the catalog-up to date.
func NewResolver(catalog tariffs.Catalog, cfg Config, logger *log.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		catalog:   catalog,
		logger:    logger,
		threshold: cfg.ChangeThresholdPercent,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return uuid.NewString() },
		cache:     make(map[cacheKey]cacheEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Init loads the current catalog view into the cache, one provider at a
// time. A provider whose catalog read fails or comes back empty is
// served from the static reference table instead; Init itself never
// fails, so the cache is always usable after it returns.
func (r *Resolver) Init(ctx context.Context) error {
	now := r.now()
	for _, provider := range tariffs.Providers() {
		service := provider.Service()
		records := r.loadCurrent(ctx, provider, service)
		r.swap(provider, service, records, now)
	}
	return nil
}

func (r *Resolver) loadCurrent(ctx context.Context, provider tariffs.Provider, service tariffs.Service) []tariffs.ReferenceTariff {
	if r.catalog == nil {
		return fallback.All(provider, service)
	}
	records, err := r.catalog.Current(ctx, provider, service)
	if err != nil {
		r.logf("tariff_cache_init_fallback provider=%s err=%v", provider, err)
		return fallback.All(provider, service)
	}
	if len(records) == 0 {
		r.logf("tariff_cache_init_empty provider=%s", provider)
		return fallback.All(provider, service)
	}
	return records
}

// Resolve returns the current tariff for a key. Lookup order: exact
// cached record, any cached record for the same provider+service
// (approximate, subsidy unknown so zeroed), static fallback table.
func (r *Resolver) Resolve(ctx context.Context, provider tariffs.Provider, service tariffs.Service, stratum string) (tariffs.ReferenceTariff, error) {
	_ = ctx
	if !provider.Valid() {
		return tariffs.ReferenceTariff{}, tariffs.ErrUnknownProvider
	}
	if !service.Valid() {
		return tariffs.ReferenceTariff{}, tariffs.ErrUnknownService
	}

	r.mu.RLock()
	entry, ok := r.cache[cacheKey{provider: provider, service: service}]
	r.mu.RUnlock()

	if ok {
		if record, exact := entry.byStratum[stratum]; exact {
			r.countResolve("exact")
			return record, nil
		}
		if record, found := lowestStratum(entry.byStratum); found {
			record.Approximate = true
			record.SubsidyOrContributionPercent = 0
			r.countResolve("substituted")
			return record, nil
		}
	}

	if record, found := fallback.Lookup(provider, service, stratum); found {
		r.countResolve("fallback")
		return record, nil
	}

	r.countResolve("miss")
	return tariffs.ReferenceTariff{}, tariffs.ErrTariffNotFound
}

// Ingest writes a fresh snapshot for one provider: supersede+insert in
// the catalog per stratum, change detection against the previous cached
// values, then an atomic swap of the (provider, service) cache snapshot.
// Malformed strata are skipped; a snapshot with nothing usable is a
// structural error and leaves both catalog and cache untouched.
func (r *Resolver) Ingest(ctx context.Context, provider tariffs.Provider, service tariffs.Service, snapshot *tariffs.RawTariffSnapshot) (IngestResult, error) {
	if !provider.Valid() {
		return IngestResult{}, tariffs.ErrUnknownProvider
	}
	if !service.Valid() {
		return IngestResult{}, tariffs.ErrUnknownService
	}
	if err := snapshot.Validate(provider, service); err != nil {
		return IngestResult{}, err
	}

	now := r.now()
	updateID := r.newID()

	var records []tariffs.ReferenceTariff
	var skipped []string
	for _, line := range snapshot.Tariffs {
		if line.StratumOrCategory == "" || line.UnitPrice <= 0 {
			skipped = append(skipped, line.StratumOrCategory)
			r.logf("tariff_ingest_stratum_skipped provider=%s stratum=%q unit_price=%v", provider, line.StratumOrCategory, line.UnitPrice)
			continue
		}
		records = append(records, tariffs.ReferenceTariff{
			Provider:                     provider,
			Service:                      service,
			Stratum:                      line.StratumOrCategory,
			UnitPrice:                    line.UnitPrice,
			FixedCharge:                  line.FixedCharge,
			SubsidyOrContributionPercent: snapshot.SubsidyFor(line.StratumOrCategory),
			Unit:                         service.Unit(),
			Currency:                     tariffs.CurrencyCOP,
			EffectiveFrom:                now,
			SourceUpdateID:               updateID,
		})
	}
	if len(records) == 0 {
		return IngestResult{SkippedStrata: skipped}, tariffs.ErrMalformedSnapshot
	}

	if r.catalog != nil {
		if err := r.catalog.Replace(ctx, records, now); err != nil {
			return IngestResult{SkippedStrata: skipped}, err
		}
	}

	r.mu.RLock()
	previous := r.cache[cacheKey{provider: provider, service: service}].byStratum
	r.mu.RUnlock()

	var events []tariffs.TariffChangeEvent
	for _, record := range records {
		before, had := previous[record.Stratum]
		if !had {
			continue
		}
		if event, significant := tariffs.DetectChange(record.Key(), before.UnitPrice, record.UnitPrice, r.threshold, now); significant {
			events = append(events, event)
		}
	}

	r.swap(provider, service, records, now)

	if r.metrics != nil {
		r.metrics.StrataIngested.Add(float64(len(records)))
		r.metrics.StrataSkipped.Add(float64(len(skipped)))
		for _, event := range events {
			r.metrics.ChangeEvents.WithLabelValues(string(provider), string(event.Direction)).Inc()
		}
	}
	if len(events) > 0 {
		r.logf("tariff_changes_detected provider=%s count=%d", provider, len(events))
		if r.changeLog != nil {
			if err := r.changeLog.Append(events); err != nil {
				r.logf("tariff_change_log_error provider=%s err=%v", provider, err)
			}
		}
		if r.notifier != nil {
			r.notifier.NotifyChanges(ctx, events)
		}
	}

	return IngestResult{
		ChangedStrata:  events,
		IngestedStrata: len(records),
		SkippedStrata:  skipped,
		SourceUpdateID: updateID,
	}, nil
}

// CurrentTariffs returns the cached snapshot for a provider/service,
// sorted by stratum.
func (r *Resolver) CurrentTariffs(provider tariffs.Provider, service tariffs.Service) []tariffs.ReferenceTariff {
	r.mu.RLock()
	entry := r.cache[cacheKey{provider: provider, service: service}]
	r.mu.RUnlock()

	records := make([]tariffs.ReferenceTariff, 0, len(entry.byStratum))
	for _, record := range entry.byStratum {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Stratum < records[j].Stratum })
	return records
}

// History returns the catalog records for a key, newest first,
// superseded ones included. Unlike Resolve this reads the catalog
// directly: the cache only holds current records.
func (r *Resolver) History(ctx context.Context, provider tariffs.Provider, service tariffs.Service, stratum string, limit int) ([]tariffs.ReferenceTariff, error) {
	if !provider.Valid() {
		return nil, tariffs.ErrUnknownProvider
	}
	if !service.Valid() {
		return nil, tariffs.ErrUnknownService
	}
	if r.catalog == nil {
		return nil, errors.New("tariffs: no catalog, history unavailable")
	}
	key := tariffs.TariffKey{Provider: provider, Service: service, Stratum: stratum}
	return r.catalog.History(ctx, key, limit)
}

// swap publishes a complete new snapshot for (provider, service).
// Readers observe either the whole old map or the whole new one.
func (r *Resolver) swap(provider tariffs.Provider, service tariffs.Service, records []tariffs.ReferenceTariff, at time.Time) {
	byStratum := make(map[string]tariffs.ReferenceTariff, len(records))
	for _, record := range records {
		byStratum[record.Stratum] = record
	}

	r.mu.Lock()
	r.cache[cacheKey{provider: provider, service: service}] = cacheEntry{byStratum: byStratum, replacedAt: at}
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.CacheAgeSeconds.WithLabelValues(string(provider)).Set(0)
	}
}

func lowestStratum(byStratum map[string]tariffs.ReferenceTariff) (tariffs.ReferenceTariff, bool) {
	if len(byStratum) == 0 {
		return tariffs.ReferenceTariff{}, false
	}
	strata := make([]string, 0, len(byStratum))
	for stratum := range byStratum {
		strata = append(strata, stratum)
	}
	sort.Strings(strata)
	return byStratum[strata[0]], true
}

func (r *Resolver) countResolve(source string) {
	if r.metrics != nil {
		r.metrics.ResolveTotal.WithLabelValues(source).Inc()
	}
}

func (r *Resolver) logf(format string, args ...any) {
	if r.logger != nil {
		r.logger.Printf(format, args...)
	}
}
