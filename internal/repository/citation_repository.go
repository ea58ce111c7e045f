package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/blackprince001/papertrail/internal/domain"
)

// CitationRepository manages citation edges from library papers to other
// library papers (resolved) or external references (unresolved).
type CitationRepository interface {
	// CreateEdge stores one citation edge.
	// Returns domain.ErrNotFound if the citing paper does not exist.
	CreateEdge(ctx context.Context, citation *domain.Citation) error

	// ListByPaper returns the outgoing citation edges of a paper, in
	// creation order.
	ListByPaper(ctx context.Context, paperID uuid.UUID) ([]*domain.Citation, error)

	// ListCiting returns the edges that resolve to the given paper, i.e.
	// the papers citing it.
	ListCiting(ctx context.Context, citedPaperID uuid.UUID) ([]*domain.Citation, error)

	// DeleteByPaper removes all outgoing edges of a paper. Used before
	// re-running citation extraction.
	DeleteByPaper(ctx context.Context, paperID uuid.UUID) (int64, error)
}

// DuplicateRepository records detected duplicate pairs for auditing.
type DuplicateRepository interface {
	// Record stores one duplicate pair finding. Recording the same pair
	// again updates confidence and method.
	Record(ctx context.Context, dup *domain.DuplicateRecord) error

	// ListByPaper returns the recorded duplicate findings for a paper,
	// most confident first.
	ListByPaper(ctx context.Context, paperID uuid.UUID) ([]*domain.DuplicateRecord, error)

	// MarkMerged flags a recorded pair as merged.
	// Returns domain.ErrNotFound if the record does not exist.
	MarkMerged(ctx context.Context, id uuid.UUID) error
}
