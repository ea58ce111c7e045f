// Package search coordinates concurrent multi-source literature searches,
// pooling, deduplicating, and enriching the results.
package search

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/blackprince001/papertrail/internal/dedup"
	"github.com/blackprince001/papertrail/internal/domain"
	"github.com/blackprince001/papertrail/internal/sources"
)

const (
	// DefaultPerSourceTimeout bounds each provider search.
	DefaultPerSourceTimeout = 20 * time.Second

	// DefaultGlobalTimeout bounds the whole search operation.
	DefaultGlobalTimeout = 45 * time.Second

	// DefaultMaxResults is the per-source result cap when the request does
	// not specify one.
	DefaultMaxResults = 20
)

// Request describes one multi-source search.
type Request struct {
	// Query is the free-text search query. Required.
	Query string `json:"query" validate:"required,min=1"`

	// Sources limits the search to the named sources; empty means all
	// enabled sources.
	Sources []domain.SourceType `json:"sources,omitempty"`

	// YearFrom and YearTo bound the publication year (inclusive, 0 means
	// unbounded).
	YearFrom int `json:"year_from,omitempty" validate:"omitempty,min=1000,max=2100"`
	YearTo   int `json:"year_to,omitempty" validate:"omitempty,min=1000,max=2100"`

	// Authors filters by author name where the source supports it.
	Authors []string `json:"authors,omitempty"`

	// MinCitations filters by citation count where the source supports it.
	MinCitations int `json:"min_citations,omitempty" validate:"omitempty,min=0"`

	// MaxResults caps results per source.
	MaxResults int `json:"max_results,omitempty" validate:"omitempty,min=1,max=100"`

	// Offset is the per-source pagination offset.
	Offset int `json:"offset,omitempty" validate:"omitempty,min=0"`
}

// SourceOutcome reports one provider's contribution to a search.
type SourceOutcome struct {
	// Source identifies the provider.
	Source domain.SourceType `json:"source"`

	// Records are the provider's results, before cross-source dedup.
	Records []*domain.Record `json:"records"`

	// TotalAvailable is the provider's reported total matching count.
	TotalAvailable int `json:"total_available"`

	// Error is the provider's failure, if any, as presentable text.
	Error string `json:"error,omitempty"`

	// Duration is how long the provider search took.
	Duration time.Duration `json:"duration"`
}

// Response is the aggregated outcome of a multi-source search.
type Response struct {
	// Query echoes the request query.
	Query string `json:"query"`

	// SourcesSearched lists the providers that were dispatched.
	SourcesSearched []domain.SourceType `json:"sources_searched"`

	// PerSource holds each provider's outcome, ordered by source name for
	// stable responses.
	PerSource []SourceOutcome `json:"per_source"`

	// Records is the pooled, deduplicated result set.
	Records []*domain.Record `json:"records"`

	// TotalResults is the size of Records.
	TotalResults int `json:"total_results"`

	// DeduplicatedCount is how many pooled records were dropped as
	// duplicates.
	DeduplicatedCount int `json:"deduplicated_count"`

	// Duration is the total search wall time.
	Duration time.Duration `json:"duration"`
}

// validate checks the declarative constraints on Request.
var validate = validator.New()

// RecordCache persists canonical records keyed by (source, external id).
// Caching is best-effort; the orchestrator logs and continues on failure.
type RecordCache interface {
	UpsertRecords(ctx context.Context, records []*domain.Record) error
}

// Config holds orchestrator tuning knobs.
type Config struct {
	// PerSourceTimeout bounds each provider search.
	PerSourceTimeout time.Duration

	// GlobalTimeout bounds the whole operation.
	GlobalTimeout time.Duration

	// InsightTimeout is the soft deadline for streaming enhancement tasks.
	InsightTimeout time.Duration

	// MaxResults is the default per-source result cap.
	MaxResults int
}

// applyDefaults fills in default timeouts and limits.
func (c *Config) applyDefaults() {
	if c.PerSourceTimeout == 0 {
		c.PerSourceTimeout = DefaultPerSourceTimeout
	}
	if c.GlobalTimeout == 0 {
		c.GlobalTimeout = DefaultGlobalTimeout
	}
	if c.InsightTimeout == 0 {
		c.InsightTimeout = defaultInsightTimeout
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
}

// Orchestrator fans search requests out to provider gateways and merges
// their results.
type Orchestrator struct {
	registry   *sources.Registry
	cache      RecordCache
	summarizer Summarizer
	config     Config
	logger     zerolog.Logger
}

// NewOrchestrator creates an orchestrator. cache and summarizer may be nil;
// record caching and the summary insight are skipped when they are.
func NewOrchestrator(registry *sources.Registry, cache RecordCache, summarizer Summarizer, cfg Config, logger zerolog.Logger) *Orchestrator {
	cfg.applyDefaults()
	return &Orchestrator{
		registry:   registry,
		cache:      cache,
		summarizer: summarizer,
		config:     cfg,
		logger:     logger.With().Str("component", "search_orchestrator").Logger(),
	}
}

// Search runs a multi-source search and returns the aggregated response.
// Provider failures are captured per source and never fail the whole
// search; only an invalid request or the global timeout does.
func (o *Orchestrator) Search(ctx context.Context, req Request) (*Response, error) {
	params, searchSources, err := o.prepare(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, o.config.GlobalTimeout)
	defer cancel()

	results := o.registry.SearchSources(ctx, params, searchSources, o.config.PerSourceTimeout)

	// When the global deadline fires, every provider goroutine returns
	// promptly with its own context error, so results is fully populated.
	// Collapse that into one aggregate timeout instead of reporting N
	// per-source failures. Per-source timeouts run on child contexts and
	// leave ctx.Err() nil, so they still degrade source by source.
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, domain.NewExternalAPIError("search", 0, "global search timeout exceeded", ctx.Err())
	}

	resp := o.aggregate(req.Query, searchSources, results)
	resp.Duration = time.Since(start)

	o.cacheRecords(ctx, resp.Records)

	o.logger.Info().
		Str("query", req.Query).
		Int("sources", len(resp.SourcesSearched)).
		Int("results", resp.TotalResults).
		Int("deduplicated", resp.DeduplicatedCount).
		Dur("duration", resp.Duration).
		Msg("search complete")
	return resp, nil
}

// prepare validates the request and resolves the provider set and search
// parameters.
func (o *Orchestrator) prepare(req Request) (sources.SearchParams, []domain.SourceType, error) {
	if strings.TrimSpace(req.Query) == "" {
		return sources.SearchParams{}, nil, domain.NewValidationError("query", "query must not be empty")
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			field := strings.ToLower(verrs[0].Field())
			return sources.SearchParams{}, nil, domain.NewValidationError(field, "failed "+verrs[0].Tag()+" constraint")
		}
		return sources.SearchParams{}, nil, domain.NewValidationError("request", err.Error())
	}
	if req.YearFrom > 0 && req.YearTo > 0 && req.YearFrom > req.YearTo {
		return sources.SearchParams{}, nil, domain.NewValidationError("year_from", "year_from must not exceed year_to")
	}
	for _, st := range req.Sources {
		if !st.IsValid() {
			return sources.SearchParams{}, nil, domain.NewValidationError("sources", "unknown source: "+string(st))
		}
	}

	searchSources := req.Sources
	if len(searchSources) == 0 {
		searchSources = o.registry.EnabledSources()
	}

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = o.config.MaxResults
	}

	return sources.SearchParams{
		Query:        strings.TrimSpace(req.Query),
		YearFrom:     req.YearFrom,
		YearTo:       req.YearTo,
		Authors:      req.Authors,
		MinCitations: req.MinCitations,
		MaxResults:   maxResults,
		Offset:       req.Offset,
	}, searchSources, nil
}

// aggregate pools per-source results, downgrading malformed-response
// failures to empty results, and deduplicates the pool.
func (o *Orchestrator) aggregate(query string, searched []domain.SourceType, results []sources.SourceResult) *Response {
	perSource := make([]SourceOutcome, 0, len(results))
	var pooled []*domain.Record

	for _, sr := range results {
		outcome := SourceOutcome{Source: sr.Source}

		switch {
		case sr.Error != nil && errors.Is(sr.Error, domain.ErrMalformedResponse):
			// A garbled body from one provider degrades to zero results
			// from that provider.
			o.logger.Warn().Err(sr.Error).
				Str("source", string(sr.Source)).
				Msg("malformed source response downgraded to empty result")
			outcome.Records = []*domain.Record{}
		case sr.Error != nil:
			outcome.Error = sr.Error.Error()
			o.logger.Warn().Err(sr.Error).
				Str("source", string(sr.Source)).
				Msg("source search failed")
		default:
			outcome.Records = sr.Result.Records
			outcome.TotalAvailable = sr.Result.TotalResults
			outcome.Duration = sr.Result.SearchDuration
			pooled = append(pooled, sr.Result.Records...)
		}

		perSource = append(perSource, outcome)
	}

	sort.Slice(perSource, func(i, j int) bool {
		return perSource[i].Source < perSource[j].Source
	})

	unique, dropped := dedup.Deduplicate(pooled)

	return &Response{
		Query:             query,
		SourcesSearched:   searched,
		PerSource:         perSource,
		Records:           unique,
		TotalResults:      len(unique),
		DeduplicatedCount: dropped,
	}
}

// cacheRecords upserts canonical records, logging failures instead of
// propagating them.
func (o *Orchestrator) cacheRecords(ctx context.Context, records []*domain.Record) {
	if o.cache == nil || len(records) == 0 {
		return
	}
	if err := o.cache.UpsertRecords(ctx, records); err != nil {
		o.logger.Warn().Err(err).Int("records", len(records)).Msg("record cache upsert failed")
	}
}
