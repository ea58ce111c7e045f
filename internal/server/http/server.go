// Package httpserver provides the HTTP REST API server for the paper
// identity and search service.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/blackprince001/papertrail/internal/citations"
	"github.com/blackprince001/papertrail/internal/database"
	"github.com/blackprince001/papertrail/internal/domain"
	"github.com/blackprince001/papertrail/internal/observability"
	"github.com/blackprince001/papertrail/internal/pdf"
	"github.com/blackprince001/papertrail/internal/repository"
	"github.com/blackprince001/papertrail/internal/search"
)

// Searcher runs multi-source searches. Implemented by search.Orchestrator.
type Searcher interface {
	Search(ctx context.Context, req search.Request) (*search.Response, error)
	SearchStream(ctx context.Context, req search.Request, emit func(search.Event))
}

// Matcher resolves citations and scans for duplicates. Implemented by
// match.Matcher.
type Matcher interface {
	MatchCitation(ctx context.Context, citation *domain.ParsedCitation) (*domain.MatchCandidate, error)
	FindDuplicates(ctx context.Context, paperID uuid.UUID, threshold float64) ([]domain.MatchCandidate, error)
}

// CitationExtractor runs the PDF citation pipeline. Implemented by
// citations.Pipeline.
type CitationExtractor interface {
	Extract(ctx context.Context, paperID uuid.UUID, pdfBytes []byte) (*citations.Result, error)
}

// PDFFetcher downloads a PDF by URL. Implemented by pdf.Downloader.
type PDFFetcher interface {
	Download(ctx context.Context, url string) (*pdf.DownloadResult, error)
}

// HealthChecker reports database health. Implemented by database.DB.
type HealthChecker interface {
	Health(ctx context.Context) database.HealthStatus
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	searcher   Searcher
	matcher    Matcher
	extractor  CitationExtractor
	fetcher    PDFFetcher
	papers     repository.PaperRepository
	citations  repository.CitationRepository
	duplicates repository.DuplicateRepository
	health     HealthChecker
	metrics    *observability.Metrics
	logger     zerolog.Logger

	duplicateThreshold float64
	maxPDFBytes        int64
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// DuplicateThreshold is the default confidence floor for duplicate
	// scans when the request does not specify one.
	DuplicateThreshold float64

	// MaxPDFBytes caps uploaded and downloaded PDF sizes.
	MaxPDFBytes int64
}

// Deps bundles the server's collaborators.
type Deps struct {
	Searcher   Searcher
	Matcher    Matcher
	Extractor  CitationExtractor
	Fetcher    PDFFetcher
	Papers     repository.PaperRepository
	Citations  repository.CitationRepository
	Duplicates repository.DuplicateRepository
	Health     HealthChecker
	Metrics    *observability.Metrics
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(cfg Config, deps Deps, logger zerolog.Logger) *Server {
	if cfg.DuplicateThreshold <= 0 {
		cfg.DuplicateThreshold = 0.8
	}
	if cfg.MaxPDFBytes <= 0 {
		cfg.MaxPDFBytes = 50 << 20
	}

	s := &Server{
		searcher:           deps.Searcher,
		matcher:            deps.Matcher,
		extractor:          deps.Extractor,
		fetcher:            deps.Fetcher,
		papers:             deps.Papers,
		citations:          deps.Citations,
		duplicates:         deps.Duplicates,
		health:             deps.Health,
		metrics:            deps.Metrics,
		logger:             logger.With().Str("component", "http-server").Logger(),
		duplicateThreshold: cfg.DuplicateThreshold,
		maxPDFBytes:        cfg.MaxPDFBytes,
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Router returns the server's HTTP handler, for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestContextMiddleware)
	r.Use(s.requestLoggerMiddleware)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.searchHandler)
		r.Get("/search/stream", s.searchStreamHandler)

		r.Post("/match/citation", s.matchCitationHandler)

		r.Route("/papers", func(r chi.Router) {
			r.Post("/", s.createPaper)
			r.Get("/", s.listPapers)
			r.Get("/{paperID}", s.getPaper)
			r.Delete("/{paperID}", s.deletePaper)
			r.Get("/{paperID}/duplicates", s.scanDuplicates)
			r.Get("/{paperID}/citations", s.listCitations)
			r.Post("/{paperID}/citations", s.extractCitations)
			r.Get("/{paperID}/citing", s.listCiting)
		})
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := s.health.Health(r.Context())
	if health.Status == "healthy" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": health.Status})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{
		"status":   "unhealthy",
		"database": health.Status,
		"error":    health.Error,
	})
}

// readinessHandler returns readiness status.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	health := s.health.Health(r.Context())
	if health.Status != "healthy" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "healthy",
	})
}
