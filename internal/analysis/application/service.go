package application

import (
	"context"
	"errors"
	"log"

	analysis "optifactura/internal/analysis/domain"
	tariffs "optifactura/internal/tariffs/domain"
)

// TariffSource resolves the regulated tariff a bill should follow.
type TariffSource interface {
	Resolve(ctx context.Context, provider tariffs.Provider, service tariffs.Service, stratum string) (tariffs.ReferenceTariff, error)
}

// Service orchestrates one bill analysis: map the extracted labels to a
// catalog key, resolve the tariff, load the user's history, run the
// detector and record the outcome.
type Service struct {
	source   TariffSource
	history  analysis.HistoryReader
	results  analysis.ResultRepository
	detector *Detector
	logger   *log.Logger
}

// NewService constructs a service.
func NewService(source TariffSource, history analysis.HistoryReader, results analysis.ResultRepository, detector *Detector, logger *log.Logger) (*Service, error) {
	if source == nil {
		return nil, errors.New("analysis service: nil tariff source")
	}
	if detector == nil {
		return nil, errors.New("analysis service: nil detector")
	}
	return &Service{
		source:   source,
		history:  history,
		results:  results,
		detector: detector,
		logger:   logger,
	}, nil
}

// AnalyzeBill analyzes one extracted bill for a user. A history read
// failure degrades the consumption check rather than failing the
// analysis; a missing tariff fails it.
func (s *Service) AnalyzeBill(ctx context.Context, userID string, facts analysis.ExtractedBillFacts) (*analysis.StoredAnalysis, error) {
	if userID == "" {
		return nil, errors.New("analysis service: empty user id")
	}
	provider, err := tariffs.ParseProvider(facts.Provider)
	if err != nil {
		return nil, err
	}
	service := provider.Service()
	stratum := analysis.StratumFromLabel(facts.TariffTypeLabel)

	tariff, err := s.source.Resolve(ctx, provider, service, stratum)
	if err != nil {
		return nil, err
	}

	var history []analysis.HistoricalConsumptionRecord
	if s.history != nil {
		history, err = s.history.Recent(ctx, userID, provider, analysis.HistoryWindow)
		if err != nil {
			s.logf("analysis_history_error user=%s provider=%s err=%v", userID, provider, err)
			history = nil
		}
	}

	result := s.detector.Analyze(facts, history, tariff)

	stored := &analysis.StoredAnalysis{
		UserID:      userID,
		Provider:    provider,
		Service:     service,
		Stratum:     stratum,
		Consumption: deref(facts.Consumption),
		TotalAmount: deref(facts.TotalAmountBilled),
		UnitPrice:   deref(facts.UnitPriceApplied),
		Result:      result,
	}
	if s.results != nil {
		if err := s.results.Save(ctx, stored); err != nil {
			return nil, err
		}
	}
	s.logf("analysis_complete user=%s provider=%s findings=%d approximate=%t", userID, provider, len(result.Findings), result.ApproximateTariff)
	return stored, nil
}

// GetAnalysis loads a stored analysis, scoped to its owner.
func (s *Service) GetAnalysis(ctx context.Context, userID, id string) (*analysis.StoredAnalysis, error) {
	if s.results == nil {
		return nil, errors.New("analysis service: no result repository")
	}
	stored, err := s.results.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if stored == nil || stored.UserID != userID {
		return nil, nil
	}
	return stored, nil
}

func deref(value *float64) float64 {
	if value == nil {
		return 0
	}
	return *value
}

func (s *Service) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
