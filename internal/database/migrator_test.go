package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMigrator_Validation(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("nil database", func(t *testing.T) {
		m, err := NewMigrator(nil, "/some/path", logger)
		require.Error(t, err)
		assert.Nil(t, m)
		assert.Contains(t, err.Error(), "database is required")
	})

	t.Run("nil pool", func(t *testing.T) {
		m, err := NewMigrator(&DB{}, "/some/path", logger)
		require.Error(t, err)
		assert.Nil(t, m)
		assert.Contains(t, err.Error(), "database pool not initialized")
	})

	t.Run("empty migrations path", func(t *testing.T) {
		db := setupTestDB(t)
		if db == nil {
			t.Skip("skipping: cannot connect to database")
		}
		defer db.Close()

		m, err := NewMigrator(db, "", logger)
		require.Error(t, err)
		assert.Nil(t, m)
		assert.Contains(t, err.Error(), "migrations path is required")
	})

	t.Run("nonexistent migrations path", func(t *testing.T) {
		if testing.Short() {
			t.Skip("skipping integration test in short mode")
		}

		db := setupTestDB(t)
		if db == nil {
			t.Skip("skipping: cannot connect to database")
		}
		defer db.Close()

		m, err := NewMigrator(db, "/nonexistent/path", logger)
		require.Error(t, err)
		assert.Nil(t, m)
		assert.Contains(t, err.Error(), "migrations path validation failed")
	})
}

func TestMigrator_Lifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	if db == nil {
		t.Skip("skipping: cannot connect to database")
	}
	defer db.Close()

	logger := zerolog.Nop()
	path := migrationsDir(t)

	t.Run("create and close", func(t *testing.T) {
		m, err := NewMigrator(db, path, logger)
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.NoError(t, m.Close())
	})

	t.Run("up then steps is a no-op", func(t *testing.T) {
		m, err := NewMigrator(db, path, logger)
		require.NoError(t, err)
		defer m.Close()

		// Up swallows ErrNoChange, so an already-migrated schema is fine.
		if err := m.Up(); err != nil {
			t.Logf("up result: %v", err)
		}

		// With the schema at the latest version, stepping forward hits
		// the missing-next-file case and returns nil.
		assert.NoError(t, m.Steps(1))
	})

	t.Run("version after up", func(t *testing.T) {
		m, err := NewMigrator(db, path, logger)
		require.NoError(t, err)
		defer m.Close()

		version, dirty, err := m.Version()
		if err != nil {
			// ErrNilVersion when no migrations have been applied.
			t.Logf("no migrations applied yet: %v", err)
			return
		}
		assert.False(t, dirty)
		assert.GreaterOrEqual(t, version, uint(0))
	})

	t.Run("force current version", func(t *testing.T) {
		m, err := NewMigrator(db, path, logger)
		require.NoError(t, err)
		defer m.Close()

		current, _, _ := m.Version()
		assert.NoError(t, m.Force(int(current)))
	})
}

// migrationsDir locates the repository's migrations directory relative to
// this package, skipping the test if it is absent.
func migrationsDir(t *testing.T) string {
	t.Helper()

	cwd, err := os.Getwd()
	require.NoError(t, err)

	path := filepath.Join(cwd, "..", "..", "migrations")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skipf("migrations directory not found at %s", path)
	}
	return path
}
