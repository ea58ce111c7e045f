// Package sources provides gateways to external literature-search APIs.
//
// Each external database (Semantic Scholar, OpenAlex, arXiv, PubMed)
// implements the Provider interface, which normalizes responses into
// domain.Record and hides per-source rate limiting and retry behavior.
// The Registry fans a query out to several providers concurrently.
//
// Example usage:
//
//	provider := semanticscholar.New(cfg, nil)
//	params := sources.SearchParams{
//		Query:      "transformer attention",
//		MaxResults: 50,
//	}
//	result, err := provider.Search(ctx, params)
package sources

import (
	"context"
	"time"

	"github.com/blackprince001/papertrail/internal/domain"
)

// SearchParams defines the parameters for searching a literature source.
// All fields except Query are optional filters.
type SearchParams struct {
	// Query is the free-text search query (required).
	Query string

	// YearFrom filters records published in or after this year.
	// Zero means no lower bound.
	YearFrom int

	// YearTo filters records published in or before this year.
	// Zero means no upper bound.
	YearTo int

	// Authors restricts results to records naming any of these authors.
	// Sources without native author filtering apply it client-side.
	Authors []string

	// MinCitations filters records to those with at least this many
	// citations. Zero applies no citation filter.
	MinCitations int

	// MaxResults limits the number of records returned per request.
	// Sources cap this at their own maximum. Zero uses the source default.
	MaxResults int

	// Offset is the starting position for paginated results.
	Offset int
}

// SearchResult contains the results of one provider search.
type SearchResult struct {
	// Records are the normalized hits. May be empty.
	Records []*domain.Record

	// TotalResults is the total match count reported by the source,
	// regardless of pagination. May be an estimate.
	TotalResults int

	// HasMore indicates whether more results are available beyond this page.
	HasMore bool

	// NextOffset is the offset for the next page, meaningful when HasMore.
	NextOffset int

	// Source identifies the provider that produced these results.
	Source domain.SourceType

	// SearchDuration is the wall time of the search including parsing.
	SearchDuration time.Duration
}

// Capabilities advertises which optional operations a provider supports.
// Calls to unsupported operations return empty results, not errors.
type Capabilities struct {
	Citations       bool
	References      bool
	Recommendations bool
}

// Provider is the uniform gateway interface over one external literature
// source.
//
// Implementations must:
//   - respect context cancellation
//   - enforce their per-source rate budget
//   - normalize source responses into domain.Record
//   - wrap errors with source context
type Provider interface {
	// Search queries the source for records matching the given parameters.
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)

	// GetByID retrieves one record by its source-scoped identifier.
	// Returns domain.ErrNotFound if the record does not exist.
	GetByID(ctx context.Context, id string) (*domain.Record, error)

	// GetCitations returns records that cite the given record. Providers
	// without citation support return an empty slice and a nil error.
	GetCitations(ctx context.Context, id string, limit int) ([]*domain.Record, error)

	// GetReferences returns records cited by the given record. Providers
	// without reference support return an empty slice and a nil error.
	GetReferences(ctx context.Context, id string, limit int) ([]*domain.Record, error)

	// GetRecommendations returns records related to the given record.
	// Providers without recommendation support return an empty slice and a
	// nil error.
	GetRecommendations(ctx context.Context, id string, limit int) ([]*domain.Record, error)

	// Capabilities reports which optional operations this provider supports.
	Capabilities() Capabilities

	// SourceType returns the type identifier for this provider.
	SourceType() domain.SourceType

	// Name returns a human-readable name for logging and display.
	Name() string

	// IsEnabled returns whether this provider is available for searches.
	// A provider may be disabled by configuration or a missing API key.
	IsEnabled() bool
}
