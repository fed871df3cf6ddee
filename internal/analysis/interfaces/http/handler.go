package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	analysisapp "optifactura/internal/analysis/application"
	analysis "optifactura/internal/analysis/domain"
	analysisifaces "optifactura/internal/analysis/interfaces"
	"optifactura/internal/audit"
	"optifactura/internal/auth"
	"optifactura/internal/observability/metrics"
	tariffs "optifactura/internal/tariffs/domain"
)

// Handler provides bill analysis HTTP endpoints.
type Handler struct {
	service *analysisapp.Service
	auditor audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *analysisapp.Service, auditor audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("analysis handler: nil service")
	}
	return &Handler{service: service, auditor: auditor}, nil
}

// ServeHTTP handles /api/v1/analyze and /api/v1/analyses subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/analyze":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleAnalyze(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/analyses/"):
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleGet(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	userID := auth.SubjectFromContext(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var facts analysis.ExtractedBillFacts
	if err := json.NewDecoder(r.Body).Decode(&facts); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	started := time.Now()
	stored, err := h.service.AnalyzeBill(r.Context(), userID, facts)
	if err != nil {
		metrics.ObserveAnalyze("unknown", metrics.ResultError, time.Since(started))
		switch {
		case errors.Is(err, tariffs.ErrUnknownProvider):
			http.Error(w, "unknown provider", http.StatusBadRequest)
		case errors.Is(err, tariffs.ErrTariffNotFound):
			http.Error(w, "no reference tariff available", http.StatusUnprocessableEntity)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	metrics.ObserveAnalyze(string(stored.Provider), metrics.ResultSuccess, time.Since(started))
	for _, finding := range stored.Result.Findings {
		metrics.IncFinding(string(finding.Type), string(finding.Severity))
	}
	h.auditAnalyze(r, stored)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stored)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	userID := auth.SubjectFromContext(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v1/analyses/")
	parts := strings.Split(path, "/")

	var (
		id  string
		pdf bool
	)
	switch {
	case len(parts) == 1 && parts[0] != "":
		id = parts[0]
	case len(parts) == 2 && parts[1] == "report.pdf":
		id = parts[0]
		pdf = true
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}

	stored, err := h.service.GetAnalysis(r.Context(), userID, id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if stored == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if pdf {
		started := time.Now()
		data, err := analysisifaces.BuildAnalysisPDF(stored)
		if err != nil {
			metrics.ObserveExport("pdf", metrics.ResultError, time.Since(started))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		metrics.ObserveExport("pdf", metrics.ResultSuccess, time.Since(started))
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="analysis-`+stored.ID+`.pdf"`)
		_, _ = w.Write(data)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stored)
}

func (h *Handler) auditAnalyze(r *http.Request, stored *analysis.StoredAnalysis) {
	if h.auditor == nil {
		return
	}
	meta, _ := json.Marshal(map[string]any{
		"provider":    stored.Provider,
		"stratum":     stored.Stratum,
		"findings":    len(stored.Result.Findings),
		"approximate": stored.Result.ApproximateTariff,
	})
	_ = h.auditor.Log(r.Context(), audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       audit.ActionAnalyzeBill,
		ResourceType: "bill_analysis",
		ResourceID:   stored.ID,
		Metadata:     meta,
		IP:           r.RemoteAddr,
		UserAgent:    r.UserAgent(),
	})
}
