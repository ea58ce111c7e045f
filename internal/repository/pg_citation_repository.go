package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/blackprince001/papertrail/internal/domain"
)

// Compile-time interface verification.
var _ CitationRepository = (*PgCitationRepository)(nil)

// PgCitationRepository is a PostgreSQL implementation of CitationRepository.
type PgCitationRepository struct {
	db DBTX
}

// NewPgCitationRepository creates a new PostgreSQL citation repository.
func NewPgCitationRepository(db DBTX) *PgCitationRepository {
	return &PgCitationRepository{db: db}
}

const citationColumns = `id, paper_id, cited_paper_id, external_title, external_doi, confidence, created_at`

// CreateEdge stores one citation edge.
func (r *PgCitationRepository) CreateEdge(ctx context.Context, citation *domain.Citation) error {
	if citation == nil {
		return domain.NewValidationError("citation", "citation cannot be nil")
	}
	if citation.PaperID == uuid.Nil {
		return domain.NewValidationError("paper_id", "citing paper ID is required")
	}
	if citation.ExternalTitle == "" {
		return domain.NewValidationError("external_title", "cited title is required")
	}

	if citation.ID == uuid.Nil {
		citation.ID = uuid.New()
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO citations (
			id, paper_id, cited_paper_id, external_title, external_doi,
			confidence, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		citation.ID,
		citation.PaperID,
		citation.CitedPaperID,
		citation.ExternalTitle,
		citation.ExternalDOI,
		citation.Confidence,
		now,
	).Scan(&citation.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return domain.NewNotFoundError("paper", citation.PaperID.String())
		}
		return fmt.Errorf("failed to create citation edge: %w", err)
	}

	return nil
}

// ListByPaper returns the outgoing citation edges of a paper.
func (r *PgCitationRepository) ListByPaper(ctx context.Context, paperID uuid.UUID) ([]*domain.Citation, error) {
	query := `
		SELECT ` + citationColumns + `
		FROM citations
		WHERE paper_id = $1
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, paperID)
	if err != nil {
		return nil, fmt.Errorf("failed to list citations: %w", err)
	}
	defer rows.Close()

	return collectCitations(rows)
}

// ListCiting returns the edges resolved to the given paper.
func (r *PgCitationRepository) ListCiting(ctx context.Context, citedPaperID uuid.UUID) ([]*domain.Citation, error) {
	query := `
		SELECT ` + citationColumns + `
		FROM citations
		WHERE cited_paper_id = $1
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, citedPaperID)
	if err != nil {
		return nil, fmt.Errorf("failed to list citing edges: %w", err)
	}
	defer rows.Close()

	return collectCitations(rows)
}

// DeleteByPaper removes all outgoing edges of a paper.
func (r *PgCitationRepository) DeleteByPaper(ctx context.Context, paperID uuid.UUID) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM citations WHERE paper_id = $1`, paperID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete citations: %w", err)
	}
	return result.RowsAffected(), nil
}

// collectCitations drains rows into citations.
func collectCitations(rows pgx.Rows) ([]*domain.Citation, error) {
	var citations []*domain.Citation
	for rows.Next() {
		var c domain.Citation
		err := rows.Scan(
			&c.ID, &c.PaperID, &c.CitedPaperID, &c.ExternalTitle,
			&c.ExternalDOI, &c.Confidence, &c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan citation: %w", err)
		}
		citations = append(citations, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating citations: %w", err)
	}
	return citations, nil
}
