// Package api exposes the analysis engine over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"chain-fraud-lab/internal/idhash"
	"chain-fraud-lab/internal/observability"
	"chain-fraud-lab/internal/orchestrator"
	"chain-fraud-lab/internal/publish"
	"chain-fraud-lab/internal/storage"
)

const (
	defaultAnalysisTimeout = 30 * time.Second
	maxRequestBody         = 32 << 20
	defaultListLimit       = 20
	maxListLimit           = 200
)

// Server routes HTTP requests to the orchestrator, report store and case store.
type Server struct {
	router    *mux.Router
	analyzer  *orchestrator.Orchestrator
	reports   storage.ReportStore
	cases     storage.CaseStore
	publisher publish.Publisher
	stream    http.Handler
	apiKey    string
	timeout   time.Duration
	logger    zerolog.Logger

	now       func() time.Time
	newCaseID func() string
}

// NewServer creates a server with the given options applied.
func NewServer(analyzer *orchestrator.Orchestrator, logger zerolog.Logger, options ...func(*Server)) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		analyzer:  analyzer,
		timeout:   defaultAnalysisTimeout,
		logger:    logger.With().Str("component", "api").Logger(),
		now:       time.Now,
		newCaseID: idhash.NewCaseID,
	}

	for _, o := range options {
		o(s)
	}

	s.setupRoutes()

	return s
}

// WithReportStore persists every report and enables the report lookup routes.
func WithReportStore(store storage.ReportStore) func(*Server) {
	return func(s *Server) {
		s.reports = store
	}
}

// WithCaseStore enables the case management routes.
func WithCaseStore(store storage.CaseStore) func(*Server) {
	return func(s *Server) {
		s.cases = store
	}
}

// WithAPIKey requires the X-API-Key header on every route except /health
// and /metrics. An empty key leaves the API open.
func WithAPIKey(key string) func(*Server) {
	return func(s *Server) {
		s.apiKey = key
	}
}

// WithClock sets the time source for case timestamps.
func WithClock(now func() time.Time) func(*Server) {
	return func(s *Server) {
		s.now = now
	}
}

// WithPublisher delivers every report after it is produced.
func WithPublisher(p publish.Publisher) func(*Server) {
	return func(s *Server) {
		s.publisher = p
	}
}

// WithStream mounts a WebSocket handler at /ws/reports.
func WithStream(h http.Handler) func(*Server) {
	return func(s *Server) {
		s.stream = h
	}
}

// WithAnalysisTimeout bounds each analysis.
func WithAnalysisTimeout(d time.Duration) func(*Server) {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func (s *Server) setupRoutes() {
	if s.apiKey != "" {
		s.router.Use(apiKeyMiddleware(s.apiKey, []string{"/health", "/metrics"}, s.logger))
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)

	s.router.HandleFunc("/analyze", s.handleAnalyze).Methods(http.MethodPost)
	s.router.HandleFunc("/analyze/stored", s.handleAnalyzeStored).Methods(http.MethodPost)

	if s.reports != nil {
		s.router.HandleFunc("/reports/{id}", s.handleGetReport).Methods(http.MethodGet)
		s.router.HandleFunc("/entities/{entity}/reports", s.handleListReports).Methods(http.MethodGet)
	}
	if s.cases != nil {
		s.router.HandleFunc("/cases", s.handleCreateCase).Methods(http.MethodPost)
		s.router.HandleFunc("/cases", s.handleListCases).Methods(http.MethodGet)
		s.router.HandleFunc("/cases/{id}", s.handleGetCase).Methods(http.MethodGet)
		s.router.HandleFunc("/cases/{id}/addresses", s.handleAddCaseAddresses).Methods(http.MethodPost)
		s.router.HandleFunc("/cases/{id}/transactions", s.handleAddCaseTransactions).Methods(http.MethodPost)
	}
	if s.stream != nil {
		s.router.Handle("/ws/reports", s.stream)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
