package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/blackprince001/papertrail/internal/dedup"
	"github.com/blackprince001/papertrail/internal/domain"
)

// Compile-time interface verification.
var _ PaperRepository = (*PgPaperRepository)(nil)

// PgPaperRepository is a PostgreSQL implementation of PaperRepository.
type PgPaperRepository struct {
	db DBTX
}

// NewPgPaperRepository creates a new PostgreSQL paper repository.
func NewPgPaperRepository(db DBTX) *PgPaperRepository {
	return &PgPaperRepository{db: db}
}

const paperColumns = `id, title, doi, authors, year, abstract, embedding, created_at, updated_at`

// Create inserts a new paper or updates an existing one matched by
// normalized DOI. Papers without a DOI always insert.
func (r *PgPaperRepository) Create(ctx context.Context, paper *domain.Paper) (*domain.Paper, error) {
	if paper == nil {
		return nil, domain.NewValidationError("paper", "paper cannot be nil")
	}
	if paper.Title == "" {
		return nil, domain.NewValidationError("title", "title is required")
	}

	authorsJSON, err := json.Marshal(paper.Authors)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal authors: %w", err)
	}

	now := time.Now().UTC()
	if paper.ID == uuid.Nil {
		paper.ID = uuid.New()
	}

	query := `
		INSERT INTO papers (
			id, title, title_norm, doi, authors, year, abstract, embedding,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $9
		)
		ON CONFLICT (doi) WHERE doi IS NOT NULL DO UPDATE SET
			title = EXCLUDED.title,
			title_norm = EXCLUDED.title_norm,
			authors = EXCLUDED.authors,
			year = CASE WHEN EXCLUDED.year > 0 THEN EXCLUDED.year ELSE papers.year END,
			abstract = CASE WHEN EXCLUDED.abstract != '' THEN EXCLUDED.abstract ELSE papers.abstract END,
			embedding = COALESCE(EXCLUDED.embedding, papers.embedding),
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	err = r.db.QueryRow(ctx, query,
		paper.ID,
		paper.Title,
		dedup.NormalizeTitle(paper.Title),
		nullableDOI(paper.DOI),
		authorsJSON,
		paper.Year,
		paper.Abstract,
		nullableEmbedding(paper.Embedding),
		now,
	).Scan(&paper.ID, &paper.CreatedAt, &paper.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to upsert paper: %w", err)
	}

	return paper, nil
}

// GetByID retrieves a paper by its UUID.
func (r *PgPaperRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Paper, error) {
	query := `SELECT ` + paperColumns + ` FROM papers WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	paper, err := scanPaper(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", id.String())
		}
		return nil, fmt.Errorf("failed to get paper by ID: %w", err)
	}

	return paper, nil
}

// FindByDOI retrieves a paper by its normalized DOI.
func (r *PgPaperRepository) FindByDOI(ctx context.Context, doi string) (*domain.Paper, error) {
	normalized := domain.NormalizeDOI(doi)
	if normalized == "" {
		return nil, domain.NewValidationError("doi", "DOI is required")
	}

	query := `SELECT ` + paperColumns + ` FROM papers WHERE doi = $1`

	row := r.db.QueryRow(ctx, query, normalized)
	paper, err := scanPaper(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", normalized)
		}
		return nil, fmt.Errorf("failed to find paper by DOI: %w", err)
	}

	return paper, nil
}

// SearchByTitle returns papers whose normalized title contains the given
// fragment, so a library paper with a leading subtitle still matches. The
// fragment is expected to be normalized already (lowercase, no
// punctuation); raw input is normalized defensively.
func (r *PgPaperRepository) SearchByTitle(ctx context.Context, titlePrefix string, limit int) ([]*domain.Paper, error) {
	prefix := dedup.NormalizeTitle(titlePrefix)
	if prefix == "" {
		return nil, domain.NewValidationError("title_prefix", "title prefix is required")
	}
	if limit <= 0 {
		limit = defaultFilterLimit
	}

	query := `
		SELECT ` + paperColumns + `
		FROM papers
		WHERE title_norm LIKE '%' || $1 || '%'
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, prefix, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search papers by title: %w", err)
	}
	defer rows.Close()

	return collectPapers(rows)
}

// ListExcept returns every paper other than the given one.
func (r *PgPaperRepository) ListExcept(ctx context.Context, id uuid.UUID) ([]*domain.Paper, error) {
	query := `
		SELECT ` + paperColumns + `
		FROM papers
		WHERE id != $1
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list papers: %w", err)
	}
	defer rows.Close()

	return collectPapers(rows)
}

// List retrieves papers matching the filter criteria.
func (r *PgPaperRepository) List(ctx context.Context, filter PaperFilter) ([]*domain.Paper, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	// Build dynamic WHERE clause
	var conditions []string
	var args []interface{}
	argIndex := 1

	if filter.Year != nil {
		conditions = append(conditions, fmt.Sprintf("year = $%d", argIndex))
		args = append(args, *filter.Year)
		argIndex++
	}

	if filter.HasDOI != nil {
		if *filter.HasDOI {
			conditions = append(conditions, "doi IS NOT NULL")
		} else {
			conditions = append(conditions, "doi IS NULL")
		}
	}

	whereClause := ""
	for i, cond := range conditions {
		if i == 0 {
			whereClause = "WHERE " + cond
		} else {
			whereClause += " AND " + cond
		}
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM papers %s", whereClause)
	var totalCount int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count papers: %w", err)
	}

	selectQuery := fmt.Sprintf(`
		SELECT `+paperColumns+`
		FROM papers
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list papers: %w", err)
	}
	defer rows.Close()

	papers, err := collectPapers(rows)
	if err != nil {
		return nil, 0, err
	}

	return papers, totalCount, nil
}

// Delete removes a paper. Citation edges and duplicate records referencing
// it are removed by cascade.
func (r *PgPaperRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM papers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete paper: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("paper", id.String())
	}
	return nil
}

// nullableDOI normalizes a DOI and maps the empty string to NULL so the
// partial unique index only covers real DOIs.
func nullableDOI(doi string) interface{} {
	normalized := domain.NormalizeDOI(doi)
	if normalized == "" {
		return nil
	}
	return normalized
}

// nullableEmbedding maps an empty embedding to NULL.
func nullableEmbedding(embedding []float32) interface{} {
	if len(embedding) == 0 {
		return nil
	}
	return embedding
}

// paperScanDest holds the destination pointers for scanning a Paper row.
type paperScanDest struct {
	paper       domain.Paper
	doi         *string
	authorsJSON []byte
}

// destinations returns the slice of pointers for Scan operations.
func (d *paperScanDest) destinations() []interface{} {
	return []interface{}{
		&d.paper.ID, &d.paper.Title, &d.doi, &d.authorsJSON,
		&d.paper.Year, &d.paper.Abstract, &d.paper.Embedding,
		&d.paper.CreatedAt, &d.paper.UpdatedAt,
	}
}

// finalize performs post-scan processing: unmarshals JSON fields and
// flattens nullable columns.
func (d *paperScanDest) finalize() (*domain.Paper, error) {
	if d.doi != nil {
		d.paper.DOI = *d.doi
	}
	if len(d.authorsJSON) > 0 {
		if err := json.Unmarshal(d.authorsJSON, &d.paper.Authors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal authors: %w", err)
		}
	}
	return &d.paper, nil
}

// scanPaper scans a single row into a Paper.
func scanPaper(row pgx.Row) (*domain.Paper, error) {
	var dest paperScanDest
	if err := row.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}

// collectPapers drains rows into papers.
func collectPapers(rows pgx.Rows) ([]*domain.Paper, error) {
	var papers []*domain.Paper
	for rows.Next() {
		var dest paperScanDest
		if err := rows.Scan(dest.destinations()...); err != nil {
			return nil, fmt.Errorf("failed to scan paper: %w", err)
		}
		paper, err := dest.finalize()
		if err != nil {
			return nil, err
		}
		papers = append(papers, paper)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating papers: %w", err)
	}
	return papers, nil
}
