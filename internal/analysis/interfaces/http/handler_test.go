package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	analysisapp "optifactura/internal/analysis/application"
	analysis "optifactura/internal/analysis/domain"
	"optifactura/internal/analysis/infrastructure/memory"
	"optifactura/internal/auth"
	tariffs "optifactura/internal/tariffs/domain"
)

type stubTariffSource struct {
	tariff tariffs.ReferenceTariff
	err    error
}

func (s stubTariffSource) Resolve(_ context.Context, _ tariffs.Provider, _ tariffs.Service, _ string) (tariffs.ReferenceTariff, error) {
	return s.tariff, s.err
}

func electricityTariff() tariffs.ReferenceTariff {
	return tariffs.ReferenceTariff{
		Provider:                     tariffs.ProviderAfinia,
		Service:                      tariffs.ServiceElectricity,
		Stratum:                      "2",
		UnitPrice:                    487.37,
		FixedCharge:                  5200,
		SubsidyOrContributionPercent: -20,
		Unit:                         tariffs.UnitKWh,
		EffectiveFrom:                time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		SourceUpdateID:               "update-1",
	}
}

func newTestHandler(t *testing.T) (*Handler, *memory.Repository) {
	t.Helper()
	repo := memory.NewRepository()
	detector := analysisapp.NewDetector(analysisapp.DefaultThresholds())
	service, err := analysisapp.NewService(stubTariffSource{tariff: electricityTariff()}, repo, repo, detector, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	handler, err := NewHandler(service, nil)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler, repo
}

func authed(r *http.Request, userID string) *http.Request {
	return r.WithContext(auth.WithIdentity(r.Context(), auth.RoleAnalyst, userID))
}

func analyzeBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	consumption := 150.0
	total := 63684.40
	body, err := json.Marshal(analysis.ExtractedBillFacts{
		Provider:          "Afinia (Air-e)",
		Consumption:       &consumption,
		ConsumptionUnit:   "kWh",
		TotalAmountBilled: &total,
		TariffTypeLabel:   "Estrato 2",
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewBuffer(body)
}

func TestHandlerAnalyze(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/analyze", analyzeBody(t)), "user-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body %s", rec.Code, rec.Body.String())
	}
	var stored analysis.StoredAnalysis
	if err := json.NewDecoder(rec.Body).Decode(&stored); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stored.ID == "" {
		t.Fatalf("missing id")
	}
	if stored.UserID != "user-1" {
		t.Fatalf("user: got %s", stored.UserID)
	}
	if stored.Provider != tariffs.ProviderAfinia || stored.Stratum != "2" {
		t.Fatalf("resolved key: %s/%s", stored.Provider, stored.Stratum)
	}
	if stored.Result.ShadowBilling == nil {
		t.Fatalf("missing shadow billing")
	}
	if len(stored.Result.Findings) != 0 {
		t.Fatalf("bill matching the tariff must not raise findings: %+v", stored.Result.Findings)
	}
}

func TestHandlerAnalyze_Unauthenticated(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", analyzeBody(t))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d", rec.Code)
	}
}

func TestHandlerAnalyze_BadBody(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader("{not json")), "user-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d", rec.Code)
	}
}

func TestHandlerAnalyze_UnknownProvider(t *testing.T) {
	handler, _ := newTestHandler(t)

	body, _ := json.Marshal(analysis.ExtractedBillFacts{Provider: "enel"})
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewReader(body)), "user-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d", rec.Code)
	}
}

func TestHandlerAnalyze_NoReferenceTariff(t *testing.T) {
	repo := memory.NewRepository()
	detector := analysisapp.NewDetector(analysisapp.DefaultThresholds())
	service, err := analysisapp.NewService(stubTariffSource{err: tariffs.ErrTariffNotFound}, repo, repo, detector, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	handler, err := NewHandler(service, nil)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/analyze", analyzeBody(t)), "user-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: got %d", rec.Code)
	}
}

func TestHandlerGetAnalysis(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/analyze", analyzeBody(t)), "user-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	var stored analysis.StoredAnalysis
	if err := json.NewDecoder(rec.Body).Decode(&stored); err != nil {
		t.Fatalf("decode: %v", err)
	}

	req = authed(httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+stored.ID, nil), "user-1")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}

	// Another user must not see it.
	req = authed(httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+stored.ID, nil), "user-2")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign user status: got %d", rec.Code)
	}
}

func TestHandlerGetAnalysis_PDFReport(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/analyze", analyzeBody(t)), "user-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	var stored analysis.StoredAnalysis
	if err := json.NewDecoder(rec.Body).Decode(&stored); err != nil {
		t.Fatalf("decode: %v", err)
	}

	req = authed(httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+stored.ID+"/report.pdf", nil), "user-1")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("content type: got %q", got)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("body is not a PDF")
	}
}

func TestHandlerGetAnalysis_UnknownID(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/analyses/does-not-exist", nil), "user-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d", rec.Code)
	}
}
