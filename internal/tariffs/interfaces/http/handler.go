package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"optifactura/internal/audit"
	"optifactura/internal/auth"
	"optifactura/internal/observability/metrics"
	tariffapp "optifactura/internal/tariffs/application"
	tariffs "optifactura/internal/tariffs/domain"
	tariffifaces "optifactura/internal/tariffs/interfaces"
)

// CycleRunner triggers a full extraction cycle on demand.
type CycleRunner interface {
	RunCycle(ctx context.Context) tariffapp.CycleResult
}

// Handler provides tariff HTTP endpoints.
type Handler struct {
	resolver *tariffapp.Resolver
	runner   CycleRunner
	auditor  audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(resolver *tariffapp.Resolver, runner CycleRunner, auditor audit.Logger) (*Handler, error) {
	if resolver == nil {
		return nil, errors.New("tariffs handler: nil resolver")
	}
	return &Handler{resolver: resolver, runner: runner, auditor: auditor}, nil
}

// ServeHTTP handles /api/v1/tariffs and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v1/tariffs":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleList(w, r)
	case "/api/v1/tariffs/resolve":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleResolve(w, r)
	case "/api/v1/tariffs/history":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleHistory(w, r)
	case "/api/v1/tariffs/ingest":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleIngest(w, r)
	case "/api/v1/tariffs/export.xlsx":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleExport(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	provider, err := parseProviderQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	stratum := r.URL.Query().Get("stratum")
	if stratum == "" {
		http.Error(w, "stratum is required", http.StatusBadRequest)
		return
	}

	tariff, err := h.resolver.Resolve(r.Context(), provider, provider.Service(), stratum)
	if err != nil {
		if errors.Is(err, tariffs.ErrTariffNotFound) {
			http.Error(w, "tariff not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(tariff)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	provider, err := parseProviderQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	list := h.resolver.CurrentTariffs(provider, provider.Service())
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	provider, err := parseProviderQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	stratum := r.URL.Query().Get("stratum")
	if stratum == "" {
		http.Error(w, "stratum is required", http.StatusBadRequest)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
	}

	records, err := h.resolver.History(r.Context(), provider, provider.Service(), stratum, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(records)
}

func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		http.Error(w, "ingestion not configured", http.StatusServiceUnavailable)
		return
	}

	result := h.runner.RunCycle(r.Context())
	h.auditIngest(r, result)

	status := http.StatusOK
	if len(result.Failed()) > 0 {
		status = http.StatusMultiStatus
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(result)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	byProvider := make(map[tariffs.Provider][]tariffs.ReferenceTariff)
	for _, provider := range tariffs.Providers() {
		byProvider[provider] = h.resolver.CurrentTariffs(provider, provider.Service())
	}

	started := time.Now()
	data, err := tariffifaces.BuildTariffXLSX(byProvider)
	if err != nil {
		metrics.ObserveExport("xlsx", metrics.ResultError, time.Since(started))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	metrics.ObserveExport("xlsx", metrics.ResultSuccess, time.Since(started))

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="tariffs.xlsx"`)
	_, _ = w.Write(data)
}

func (h *Handler) auditIngest(r *http.Request, result tariffapp.CycleResult) {
	if h.auditor == nil {
		return
	}
	meta, _ := json.Marshal(result)
	_ = h.auditor.Log(r.Context(), audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       audit.ActionIngestTariffs,
		ResourceType: "tariff_catalog",
		Metadata:     meta,
		IP:           r.RemoteAddr,
		UserAgent:    r.UserAgent(),
	})
}

func parseProviderQuery(r *http.Request) (tariffs.Provider, error) {
	value := r.URL.Query().Get("provider")
	if value == "" {
		return "", errors.New("provider is required")
	}
	provider, err := tariffs.ParseProvider(value)
	if err != nil {
		return "", fmt.Errorf("unknown provider %q", value)
	}
	return provider, nil
}
