package http

import (
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"strconv"
	"time"

	"agenda-activites-report-ui/internal/config"
	"agenda-activites-report-ui/internal/connectors/activities"
	"agenda-activites-report-ui/internal/connectors/kobo"
	mysqlstore "agenda-activites-report-ui/internal/connectors/mysql"
	viewsstore "agenda-activites-report-ui/internal/connectors/views"
)

// Server wraps an HTTP server, the activities cache and its refresh loop.
type Server struct {
	httpServer *nethttp.Server
	cache      *activities.Cache
	dbStore    *mysqlstore.Store
	viewsStore *viewsstore.Store

	refreshInterval time.Duration
	refreshCancel   context.CancelFunc
}

// NewServer creates a configured HTTP server with v1 endpoints. The
// activities source is picked in order: MySQL when enabled, Kobo when
// enabled, HTTP when a URL is configured, local file otherwise.
func NewServer(cfg config.Config) (*Server, error) {
	var dbStore *mysqlstore.Store
	var source activities.Source
	switch {
	case cfg.DBEnabled:
		createdStore, err := mysqlstore.NewStore(cfg)
		if err != nil {
			return nil, err
		}
		dbStore = createdStore
		source = createdStore
	case cfg.KoboEnabled:
		source = kobo.Source{
			Client: kobo.NewClient(cfg.KoboBaseURL, cfg.KoboToken, cfg.KoboAssetUID, cfg.KoboTimeout),
			Risk:   cfg.Risk,
		}
	case cfg.ActivitiesURL != "":
		source = activities.NewHTTPSource(cfg.ActivitiesURL, cfg.ActivitiesTimeout)
	default:
		source = activities.FileSource{Path: cfg.ActivitiesPath}
	}

	var viewsStore *viewsstore.Store
	if cfg.ViewsSQLitePath != "" {
		createdStore, err := viewsstore.NewSQLiteStore(cfg.ViewsSQLitePath)
		if err != nil {
			return nil, err
		}
		viewsStore = createdStore
	}

	cache := activities.NewCache(source)

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/", dashboardHandler)
	mux.HandleFunc("/favicon.ico", faviconHandler)
	mux.Handle("/metrics", metricsHandler())
	mux.HandleFunc("/api/v1/metrics/app", appMetricsSummaryHandler())
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(cache))
	mux.HandleFunc("/api/v1/kpis", kpisHandler(cache, cfg))
	mux.HandleFunc("/api/v1/charts/categories", categoriesChartHandler(cache, cfg))
	mux.HandleFunc("/api/v1/charts/trend", trendChartHandler(cache, cfg))
	mux.HandleFunc("/api/v1/risk/top", topRiskHandler(cache, cfg))
	mux.HandleFunc("/api/v1/activities", activitiesHandler(cache, cfg))
	mux.HandleFunc("/api/v1/activities/options", activityOptionsHandler(cache))
	mux.HandleFunc("/api/v1/settings/risk", riskSettingsHandler(cfg))
	mux.HandleFunc("/api/v1/status/sources", sourcesStatusHandler(cache, dbStore, viewsStore))
	mux.HandleFunc("/api/v1/views", viewsCollectionHandler(viewsStore, cfg.DefaultLimit))
	mux.HandleFunc("/api/v1/views/", viewsItemHandler(viewsStore))

	httpServer := &nethttp.Server{
		Addr:         cfg.ListenAddr,
		Handler:      loggingMiddleware(observabilityMiddleware(mux)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		httpServer:      httpServer,
		cache:           cache,
		dbStore:         dbStore,
		viewsStore:      viewsStore,
		refreshInterval: cfg.RefreshInterval,
	}, nil
}

// ListenAndServe performs the initial snapshot load, starts the refresh
// loop and serves HTTP. A failed first load is not fatal: the API reports
// the error state until a later refresh succeeds.
func (s *Server) ListenAndServe() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.refreshCancel = cancel

	start := time.Now()
	err := s.cache.Refresh(ctx)
	recordSourceLoad(s.cache.Status().Source, time.Since(start).Seconds(), err)
	go s.pollSource(ctx)

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.refreshCancel != nil {
		s.refreshCancel()
	}
	if s.dbStore != nil {
		_ = s.dbStore.Close()
	}
	if s.viewsStore != nil {
		_ = s.viewsStore.Close()
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) pollSource(ctx context.Context) {
	interval := s.refreshInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			err := s.cache.Refresh(ctx)
			recordSourceLoad(s.cache.Status().Source, time.Since(start).Seconds(), err)
		}
	}
}

func healthHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func readyHandler(cache *activities.Cache) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		if _, err := cache.Snapshot(); err != nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"status": "loading",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"status": "ready",
		})
	}
}

func loggingMiddleware(next nethttp.Handler) nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: nethttp.StatusOK}
		next.ServeHTTP(rec, r)
		fmt.Printf("%s %s %s %s\n", r.Method, r.URL.Path, strconv.Itoa(rec.status), time.Since(start))
	})
}

func writeJSON(w nethttp.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
