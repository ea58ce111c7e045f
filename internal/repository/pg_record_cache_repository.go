package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/blackprince001/papertrail/internal/domain"
)

// RecordCacheRepository caches normalized records from external sources,
// keyed by (source, external ID). Search results flow through the cache so
// later lookups and ingestion don't refetch the source APIs.
type RecordCacheRepository interface {
	// UpsertRecords stores or refreshes a batch of records.
	UpsertRecords(ctx context.Context, records []*domain.Record) error

	// Get retrieves one cached record.
	// Returns domain.ErrNotFound if the record is not cached.
	Get(ctx context.Context, source domain.SourceType, externalID string) (*domain.Record, error)

	// Purge removes cache entries older than the given age and returns how
	// many were removed.
	Purge(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Compile-time interface verification.
var _ RecordCacheRepository = (*PgRecordCacheRepository)(nil)

// PgRecordCacheRepository is a PostgreSQL implementation of RecordCacheRepository.
type PgRecordCacheRepository struct {
	db DBTX
}

// NewPgRecordCacheRepository creates a new PostgreSQL record cache repository.
func NewPgRecordCacheRepository(db DBTX) *PgRecordCacheRepository {
	return &PgRecordCacheRepository{db: db}
}

const recordCacheUpsertQuery = `
	INSERT INTO record_cache (
		source, external_id, title, authors, abstract, year, doi, arxiv_id,
		url, pdf_url, citation_count, metadata, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (source, external_id) DO UPDATE SET
		title = EXCLUDED.title,
		authors = EXCLUDED.authors,
		abstract = CASE WHEN EXCLUDED.abstract != '' THEN EXCLUDED.abstract ELSE record_cache.abstract END,
		year = CASE WHEN EXCLUDED.year > 0 THEN EXCLUDED.year ELSE record_cache.year END,
		doi = CASE WHEN EXCLUDED.doi != '' THEN EXCLUDED.doi ELSE record_cache.doi END,
		arxiv_id = CASE WHEN EXCLUDED.arxiv_id != '' THEN EXCLUDED.arxiv_id ELSE record_cache.arxiv_id END,
		url = CASE WHEN EXCLUDED.url != '' THEN EXCLUDED.url ELSE record_cache.url END,
		pdf_url = CASE WHEN EXCLUDED.pdf_url != '' THEN EXCLUDED.pdf_url ELSE record_cache.pdf_url END,
		citation_count = GREATEST(EXCLUDED.citation_count, record_cache.citation_count),
		metadata = COALESCE(EXCLUDED.metadata, record_cache.metadata),
		updated_at = NOW()`

// UpsertRecords stores or refreshes a batch of records. All upserts go out
// in a single batch roundtrip. Records without source or external ID are
// skipped.
func (r *PgRecordCacheRepository) UpsertRecords(ctx context.Context, records []*domain.Record) error {
	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	queued := 0

	for _, rec := range records {
		if rec == nil || rec.Source == "" || rec.ExternalID == "" {
			continue
		}

		authorsJSON, err := json.Marshal(rec.Authors)
		if err != nil {
			return fmt.Errorf("failed to marshal authors: %w", err)
		}

		var metadataJSON []byte
		if rec.Metadata != nil {
			metadataJSON, err = json.Marshal(rec.Metadata)
			if err != nil {
				return fmt.Errorf("failed to marshal metadata: %w", err)
			}
		}

		batch.Queue(recordCacheUpsertQuery,
			rec.Source,
			rec.ExternalID,
			rec.Title,
			authorsJSON,
			rec.Abstract,
			rec.Year,
			domain.NormalizeDOI(rec.DOI),
			rec.ArXivID,
			rec.URL,
			rec.PDFURL,
			rec.CitationCount,
			metadataJSON,
			now,
		)
		queued++
	}

	if queued == 0 {
		return nil
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < queued; i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to upsert record at index %d: %w", i, err)
		}
	}

	return nil
}

// Get retrieves one cached record.
func (r *PgRecordCacheRepository) Get(ctx context.Context, source domain.SourceType, externalID string) (*domain.Record, error) {
	if externalID == "" {
		return nil, domain.NewValidationError("external_id", "external ID is required")
	}

	query := `
		SELECT source, external_id, title, authors, abstract, year, doi,
			arxiv_id, url, pdf_url, citation_count, metadata
		FROM record_cache
		WHERE source = $1 AND external_id = $2`

	var (
		rec          domain.Record
		authorsJSON  []byte
		metadataJSON []byte
	)
	err := r.db.QueryRow(ctx, query, source, externalID).Scan(
		&rec.Source, &rec.ExternalID, &rec.Title, &authorsJSON, &rec.Abstract,
		&rec.Year, &rec.DOI, &rec.ArXivID, &rec.URL, &rec.PDFURL,
		&rec.CitationCount, &metadataJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("record", fmt.Sprintf("%s:%s", source, externalID))
		}
		return nil, fmt.Errorf("failed to get cached record: %w", err)
	}

	if len(authorsJSON) > 0 {
		if err := json.Unmarshal(authorsJSON, &rec.Authors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal authors: %w", err)
		}
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &rec.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &rec, nil
}

// Purge removes cache entries older than the given age.
func (r *PgRecordCacheRepository) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	result, err := r.db.Exec(ctx, `DELETE FROM record_cache WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge record cache: %w", err)
	}
	return result.RowsAffected(), nil
}
