// Package repository holds the PostgreSQL persistence layer: the canonical
// paper library, citation edges, duplicate pairs, and the cache of
// normalized records fetched from external sources.
//
// Each store is a plain struct over a DBTX, so the same implementation runs
// against the connection pool or inside a transaction started by
// database.DB.WithTransaction. All stores are safe for concurrent use; the
// pool handles synchronization.
//
// Failures surface as domain errors (domain.ErrNotFound,
// domain.ErrAlreadyExists, domain.ErrInvalidInput) wrapped with query
// context, so handlers can map them to HTTP statuses without inspecting
// driver error codes.
package repository

import (
	"github.com/blackprince001/papertrail/internal/database"
)

// DBTX is the query surface the stores run against. A *database.DB and a
// pgx.Tx both satisfy it, as does pgxmock in tests.
type DBTX = database.DBTX

const (
	defaultFilterLimit = 100
	maxFilterLimit     = 1000
)

// applyPaginationDefaults clamps limit to [1, maxFilterLimit], substituting
// the default for non-positive values, and floors offset at zero.
func applyPaginationDefaults(limit, offset *int) {
	if *limit <= 0 {
		*limit = defaultFilterLimit
	}
	if *limit > maxFilterLimit {
		*limit = maxFilterLimit
	}
	if *offset < 0 {
		*offset = 0
	}
}
