package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/blackprince001/papertrail/internal/domain"
)

// Compile-time interface verification.
var _ DuplicateRepository = (*PgDuplicateRepository)(nil)

// PgDuplicateRepository is a PostgreSQL implementation of DuplicateRepository.
type PgDuplicateRepository struct {
	db DBTX
}

// NewPgDuplicateRepository creates a new PostgreSQL duplicate repository.
func NewPgDuplicateRepository(db DBTX) *PgDuplicateRepository {
	return &PgDuplicateRepository{db: db}
}

// Record stores one duplicate pair finding, updating confidence and method
// when the pair was recorded before.
func (r *PgDuplicateRepository) Record(ctx context.Context, dup *domain.DuplicateRecord) error {
	if dup == nil {
		return domain.NewValidationError("duplicate", "duplicate record cannot be nil")
	}
	if dup.PaperID == uuid.Nil || dup.DuplicatePaperID == uuid.Nil {
		return domain.NewValidationError("paper_id", "both paper IDs are required")
	}
	if dup.PaperID == dup.DuplicatePaperID {
		return domain.NewValidationError("duplicate_paper_id", "a paper cannot duplicate itself")
	}

	if dup.ID == uuid.Nil {
		dup.ID = uuid.New()
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO duplicate_records (
			id, paper_id, duplicate_paper_id, confidence, method, merged, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (paper_id, duplicate_paper_id) DO UPDATE SET
			confidence = EXCLUDED.confidence,
			method = EXCLUDED.method
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		dup.ID,
		dup.PaperID,
		dup.DuplicatePaperID,
		dup.Confidence,
		dup.Method,
		dup.Merged,
		now,
	).Scan(&dup.ID, &dup.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return domain.NewNotFoundError("paper", dup.PaperID.String())
		}
		return fmt.Errorf("failed to record duplicate: %w", err)
	}

	return nil
}

// ListByPaper returns the recorded duplicate findings for a paper.
func (r *PgDuplicateRepository) ListByPaper(ctx context.Context, paperID uuid.UUID) ([]*domain.DuplicateRecord, error) {
	query := `
		SELECT id, paper_id, duplicate_paper_id, confidence, method, merged, created_at
		FROM duplicate_records
		WHERE paper_id = $1
		ORDER BY confidence DESC, created_at`

	rows, err := r.db.Query(ctx, query, paperID)
	if err != nil {
		return nil, fmt.Errorf("failed to list duplicate records: %w", err)
	}
	defer rows.Close()

	var records []*domain.DuplicateRecord
	for rows.Next() {
		var rec domain.DuplicateRecord
		err := rows.Scan(
			&rec.ID, &rec.PaperID, &rec.DuplicatePaperID, &rec.Confidence,
			&rec.Method, &rec.Merged, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan duplicate record: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating duplicate records: %w", err)
	}
	return records, nil
}

// MarkMerged flags a recorded pair as merged.
func (r *PgDuplicateRepository) MarkMerged(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx,
		`UPDATE duplicate_records SET merged = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark duplicate merged: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("duplicate_record", id.String())
	}
	return nil
}
