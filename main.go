package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	analysisapp "optifactura/internal/analysis/application"
	analysis "optifactura/internal/analysis/domain"
	analysismemory "optifactura/internal/analysis/infrastructure/memory"
	analysisrepo "optifactura/internal/analysis/infrastructure/postgres"
	analysishttp "optifactura/internal/analysis/interfaces/http"
	"optifactura/internal/audit"
	"optifactura/internal/auth"
	"optifactura/internal/observability/metrics"
	tariffapp "optifactura/internal/tariffs/application"
	tariffs "optifactura/internal/tariffs/domain"
	tarifffeed "optifactura/internal/tariffs/infrastructure/feed"
	tariffmemory "optifactura/internal/tariffs/infrastructure/memory"
	tariffrepo "optifactura/internal/tariffs/infrastructure/postgres"
	tariffhttp "optifactura/internal/tariffs/interfaces/http"
	tariffmetrics "optifactura/internal/tariffs/metrics"
	tariffnotify "optifactura/internal/tariffs/notify"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}
	} else {
		logger.Printf("no DATABASE_URL configured, running with in-memory storage")
	}

	metrics.Init(db, logger)

	var auditor audit.Logger
	if repo := audit.NewRepository(db); repo != nil {
		auditor = repo
	}

	tariffCfg, err := tariffapp.LoadConfig()
	if err != nil {
		logger.Fatalf("tariff config error: %v", err)
	}

	var catalog tariffs.Catalog
	if db != nil {
		catalog = tariffrepo.NewCatalogRepository(db)
	} else {
		catalog = tariffmemory.NewCatalog()
	}

	changeLog, err := tariffapp.NewChangeLog(tariffCfg.StorageRoot)
	if err != nil {
		logger.Fatalf("change log error: %v", err)
	}

	tMetrics := tariffmetrics.New()
	broker := tariffhttp.NewSSEBroker()
	notifiers := []tariffapp.ChangeNotifier{broker}
	if tariffCfg.WebhookURL != "" {
		webhook, err := tariffnotify.NewWebhookNotifier(tariffCfg.WebhookURL, tariffnotify.WithLogger(logger))
		if err != nil {
			logger.Fatalf("tariff webhook error: %v", err)
		}
		notifiers = append(notifiers, webhook)
	}

	resolver := tariffapp.NewResolver(catalog, tariffCfg, logger,
		tariffapp.WithMetrics(tMetrics),
		tariffapp.WithNotifier(tariffnotify.NewMultiNotifier(notifiers...)),
		tariffapp.WithChangeLog(changeLog),
	)
	if err := resolver.Init(context.Background()); err != nil {
		logger.Fatalf("tariff resolver init error: %v", err)
	}

	feed := tarifffeed.NewHTTPFeed(tariffCfg.FeedURLs)
	refresher := tariffapp.NewRefresher(resolver, feed, tariffCfg, tMetrics, logger)
	scheduler := tariffapp.NewScheduler(refresher, tariffCfg.Schedule, logger)
	go scheduler.Start(context.Background())

	thresholds, err := analysisapp.LoadThresholds()
	if err != nil {
		logger.Fatalf("analysis thresholds error: %v", err)
	}
	detector := analysisapp.NewDetector(thresholds)

	var (
		historyReader analysis.HistoryReader
		resultRepo    analysis.ResultRepository
	)
	if db != nil {
		repo := analysisrepo.NewRepository(db)
		historyReader = repo
		resultRepo = repo
	} else {
		repo := analysismemory.NewRepository()
		historyReader = repo
		resultRepo = repo
	}

	analysisService, err := analysisapp.NewService(resolver, historyReader, resultRepo, detector, logger)
	if err != nil {
		logger.Fatalf("analysis service error: %v", err)
	}
	analysisHandler, err := analysishttp.NewHandler(analysisService, auditor)
	if err != nil {
		logger.Fatalf("analysis handler error: %v", err)
	}
	tariffHandler, err := tariffhttp.NewHandler(resolver, refresher, auditor)
	if err != nil {
		logger.Fatalf("tariff handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/analyze", analysisHandler)
	mux.Handle("/api/v1/analyses/", analysisHandler)
	mux.Handle("/api/v1/tariffs", tariffHandler)
	mux.Handle("/api/v1/tariffs/resolve", tariffHandler)
	mux.Handle("/api/v1/tariffs/history", tariffHandler)
	mux.Handle("/api/v1/tariffs/ingest", tariffHandler)
	mux.Handle("/api/v1/tariffs/export.xlsx", tariffHandler)
	mux.Handle("/api/v1/tariffs/changes/stream", tariffhttp.NewStreamHandler(broker))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL string
	HTTPAddr    string
	JWTSecret   string
}

func loadConfig() config {
	cfg := config{
		DatabaseURL: getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:    getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:   getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		metrics.IncHTTPRequest(r.Method, strconv.Itoa(resp.status))
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Flush keeps the SSE change stream working behind the logger.
func (w *statusWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
