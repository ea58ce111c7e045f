package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/blackprince001/papertrail/internal/domain"
)

// PaperRepository manages the canonical paper library. Papers are the
// deduplicated, cross-source records the matcher resolves citations against.
type PaperRepository interface {
	// Create inserts a new paper, or updates the existing one when a paper
	// with the same normalized DOI is already stored.
	// Returns the created or updated paper with its assigned ID.
	// Returns domain.ErrInvalidInput if the paper has no title.
	Create(ctx context.Context, paper *domain.Paper) (*domain.Paper, error)

	// GetByID retrieves a paper by its internal UUID.
	// Returns domain.ErrNotFound if no matching paper exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Paper, error)

	// FindByDOI retrieves a paper by its normalized DOI.
	// Returns domain.ErrNotFound if no matching paper exists.
	FindByDOI(ctx context.Context, doi string) (*domain.Paper, error)

	// SearchByTitle returns papers whose normalized title contains the
	// given normalized fragment, up to limit papers.
	SearchByTitle(ctx context.Context, titlePrefix string, limit int) ([]*domain.Paper, error)

	// ListExcept returns every paper other than the given one, in creation
	// order. Used by the duplicate scan, which scores the whole corpus.
	ListExcept(ctx context.Context, id uuid.UUID) ([]*domain.Paper, error)

	// List retrieves papers with pagination.
	// Returns the matching papers and total count for pagination.
	List(ctx context.Context, filter PaperFilter) ([]*domain.Paper, int64, error)

	// Delete removes a paper and its citation edges.
	// Returns domain.ErrNotFound if the paper does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// PaperFilter specifies criteria for listing papers.
type PaperFilter struct {
	// Year filters to papers published in a specific year (optional).
	Year *int

	// HasDOI filters papers by DOI presence (optional).
	// When nil, no filtering is applied.
	HasDOI *bool

	// Limit specifies maximum number of results (default: 100, max: 1000).
	Limit int

	// Offset specifies the starting position for pagination.
	Offset int
}

// Validate checks if the filter has valid values and sets defaults.
func (f *PaperFilter) Validate() error {
	applyPaginationDefaults(&f.Limit, &f.Offset)
	return nil
}
