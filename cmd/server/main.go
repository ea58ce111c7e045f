// Package main provides the entry point for the papertrail API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/blackprince001/papertrail/internal/citations"
	"github.com/blackprince001/papertrail/internal/config"
	"github.com/blackprince001/papertrail/internal/database"
	"github.com/blackprince001/papertrail/internal/llm"
	"github.com/blackprince001/papertrail/internal/match"
	"github.com/blackprince001/papertrail/internal/observability"
	"github.com/blackprince001/papertrail/internal/pdf"
	"github.com/blackprince001/papertrail/internal/repository"
	"github.com/blackprince001/papertrail/internal/search"
	httpserver "github.com/blackprince001/papertrail/internal/server/http"
	"github.com/blackprince001/papertrail/internal/sources"
	"github.com/blackprince001/papertrail/internal/sources/arxiv"
	"github.com/blackprince001/papertrail/internal/sources/openalex"
	"github.com/blackprince001/papertrail/internal/sources/pubmed"
	"github.com/blackprince001/papertrail/internal/sources/semanticscholar"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("papertrail server starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	// Run migrations if configured.
	if cfg.Database.MigrationAutoRun {
		migrator, err := database.NewMigrator(db, cfg.Database.MigrationPath, logger)
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		defer func() {
			if closeErr := migrator.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close migrator")
			}
		}()

		if err := migrator.Up(); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	// Create metrics.
	metrics := observability.NewMetrics("papertrail")

	// Create repositories.
	paperRepo := repository.NewPgPaperRepository(db)
	citationRepo := repository.NewPgCitationRepository(db)
	duplicateRepo := repository.NewPgDuplicateRepository(db)
	recordCacheRepo := repository.NewPgRecordCacheRepository(db)

	// Register the enabled provider gateways.
	registry := buildRegistry(cfg, logger)
	logger.Info().
		Int("enabled_sources", len(registry.EnabledSources())).
		Msg("source registry built")

	// Create LLM-backed components when configured.
	var (
		parser     llm.CitationParser
		summarizer search.Summarizer
	)
	if cfg.LLM.Enabled {
		factoryCfg := llm.FactoryConfig{
			Provider:    cfg.LLM.Provider,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
			MaxRetries:  cfg.LLM.MaxRetries,
			OpenAI: llm.OpenAIConfig{
				APIKey:  cfg.LLM.OpenAI.APIKey,
				Model:   cfg.LLM.OpenAI.Model,
				BaseURL: cfg.LLM.OpenAI.BaseURL,
			},
			Anthropic: llm.AnthropicConfig{
				APIKey:  cfg.LLM.Anthropic.APIKey,
				Model:   cfg.LLM.Anthropic.Model,
				BaseURL: cfg.LLM.Anthropic.BaseURL,
			},
		}

		parser, err = llm.NewCitationParser(factoryCfg)
		if err != nil {
			return fmt.Errorf("create citation parser: %w", err)
		}
		summarizer, err = llm.NewSummarizer(factoryCfg)
		if err != nil {
			return fmt.Errorf("create summarizer: %w", err)
		}
		logger.Info().Str("provider", cfg.LLM.Provider).Msg("LLM provider configured")
	} else {
		logger.Info().Msg("LLM disabled; citation parsing and summaries unavailable")
	}

	// Create the search orchestrator.
	orchestrator := search.NewOrchestrator(registry, recordCacheRepo, summarizer, search.Config{
		PerSourceTimeout: cfg.Search.PerSourceTimeout,
		GlobalTimeout:    cfg.Search.GlobalTimeout,
		InsightTimeout:   cfg.Search.InsightTimeout,
		MaxResults:       cfg.Search.MaxResults,
	}, logger)

	// Create the identity matcher.
	matcher := match.NewMatcher(paperRepo, match.Params{
		TitleWeight:        cfg.Match.TitleWeight,
		AuthorWeight:       cfg.Match.AuthorWeight,
		YearWeight:         cfg.Match.YearWeight,
		AcceptThreshold:    cfg.Match.AcceptThreshold,
		DuplicateThreshold: cfg.Match.DuplicateThreshold,
		AuthorTitleGate:    cfg.Match.AuthorTitleGate,
		TitleBoost:         cfg.Match.TitleBoost,
	}, logger)

	// Create the citation pipeline.
	downloader := pdf.NewDownloader(pdf.Config{
		Timeout: cfg.PDF.Timeout,
		MaxSize: cfg.PDF.MaxSizeBytes,
	})
	pipeline := citations.NewPipeline(
		pdf.NewExtractor(),
		parser,
		matcher,
		citationRepo,
		citations.Config{BatchSize: cfg.Citations.BatchSize},
		logger,
	)

	// Create the HTTP server.
	httpCfg := httpserver.Config{
		Address:            cfg.Server.HTTPAddress(),
		ReadTimeout:        cfg.Server.ReadTimeout,
		WriteTimeout:       5 * time.Minute, // Long timeout for SSE streaming.
		IdleTimeout:        2 * time.Minute,
		ShutdownTimeout:    cfg.Server.ShutdownTimeout,
		DuplicateThreshold: cfg.Match.DuplicateThreshold,
		MaxPDFBytes:        cfg.PDF.MaxSizeBytes,
	}

	httpSrv := httpserver.NewServer(httpCfg, httpserver.Deps{
		Searcher:   orchestrator,
		Matcher:    matcher,
		Extractor:  pipeline,
		Fetcher:    downloader,
		Papers:     paperRepo,
		Citations:  citationRepo,
		Duplicates: duplicateRepo,
		Health:     db,
		Metrics:    metrics,
	}, logger)

	// Channel to collect server errors.
	errCh := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", httpCfg.Address).
			Msg("HTTP REST API server starting")
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	logger.Info().
		Str("http_address", httpCfg.Address).
		Msg("papertrail is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down papertrail")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logger.Info().Msg("papertrail shutdown complete")
	return nil
}

// buildRegistry registers a provider gateway for every enabled source.
func buildRegistry(cfg *config.Config, logger zerolog.Logger) *sources.Registry {
	registry := sources.NewRegistry()

	if cfg.Sources.SemanticScholar.Enabled {
		registry.Register(semanticscholar.New(semanticscholar.Config{
			BaseURL:    cfg.Sources.SemanticScholar.BaseURL,
			APIKey:     cfg.Sources.SemanticScholar.APIKey,
			Timeout:    cfg.Sources.SemanticScholar.Timeout,
			RateLimit:  cfg.Sources.SemanticScholar.RateLimit,
			BurstSize:  cfg.Sources.SemanticScholar.BurstSize,
			MaxResults: cfg.Sources.SemanticScholar.MaxResults,
			Enabled:    true,
		}, nil))
		logger.Info().Str("source", "semantic_scholar").Msg("source enabled")
	}

	if cfg.Sources.OpenAlex.Enabled {
		registry.Register(openalex.New(openalex.Config{
			BaseURL:    cfg.Sources.OpenAlex.BaseURL,
			Email:      cfg.Sources.OpenAlexEmail,
			Timeout:    cfg.Sources.OpenAlex.Timeout,
			RateLimit:  cfg.Sources.OpenAlex.RateLimit,
			BurstSize:  cfg.Sources.OpenAlex.BurstSize,
			MaxResults: cfg.Sources.OpenAlex.MaxResults,
			Enabled:    true,
		}, nil))
		logger.Info().Str("source", "openalex").Msg("source enabled")
	}

	if cfg.Sources.ArXiv.Enabled {
		registry.Register(arxiv.New(arxiv.Config{
			BaseURL:    cfg.Sources.ArXiv.BaseURL,
			Timeout:    cfg.Sources.ArXiv.Timeout,
			RateLimit:  cfg.Sources.ArXiv.RateLimit,
			BurstSize:  cfg.Sources.ArXiv.BurstSize,
			MaxResults: cfg.Sources.ArXiv.MaxResults,
			Enabled:    true,
		}, nil))
		logger.Info().Str("source", "arxiv").Msg("source enabled")
	}

	if cfg.Sources.PubMed.Enabled {
		registry.Register(pubmed.New(pubmed.Config{
			BaseURL:    cfg.Sources.PubMed.BaseURL,
			APIKey:     cfg.Sources.PubMed.APIKey,
			Timeout:    cfg.Sources.PubMed.Timeout,
			RateLimit:  cfg.Sources.PubMed.RateLimit,
			BurstSize:  cfg.Sources.PubMed.BurstSize,
			MaxResults: cfg.Sources.PubMed.MaxResults,
			Enabled:    true,
		}, nil))
		logger.Info().Str("source", "pubmed").Msg("source enabled")
	}

	return registry
}
