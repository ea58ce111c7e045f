// Command migrate manages the database schema from the command line.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/blackprince001/papertrail/internal/config"
	"github.com/blackprince001/papertrail/internal/database"
	"github.com/blackprince001/papertrail/internal/observability"
)

type action struct {
	up      bool
	down    bool
	steps   int
	version bool
	force   int
	path    string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (action, error) {
	var a action
	flag.BoolVar(&a.up, "up", false, "Run all pending migrations")
	flag.BoolVar(&a.down, "down", false, "Roll back all migrations")
	flag.IntVar(&a.steps, "steps", 0, "Run N migration steps (positive=up, negative=down)")
	flag.BoolVar(&a.version, "version", false, "Print the current migration version")
	flag.IntVar(&a.force, "force", -1, "Force set migration version (use to recover from failed migrations)")
	flag.StringVar(&a.path, "path", "", "Override the migrations directory path")
	flag.Parse()

	selected := 0
	for _, on := range []bool{a.up, a.down, a.steps != 0, a.version, a.force >= 0} {
		if on {
			selected++
		}
	}
	switch {
	case selected == 0:
		flag.Usage()
		fmt.Fprintln(os.Stderr, "\nPlease specify one of: -up, -down, -steps N, -version, -force V")
		return a, errors.New("no action specified")
	case selected > 1:
		return a, errors.New("specify only one action at a time")
	}
	return a, nil
}

func run() error {
	a, err := parseFlags()
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}).With().Str("component", "migrate").Logger()

	migrationDir := cfg.Database.MigrationPath
	if a.path != "" {
		migrationDir = a.path
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db, migrationDir, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	switch {
	case a.up:
		if err := migrator.Up(); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
	case a.down:
		if err := migrator.Down(); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
	case a.steps != 0:
		if err := migrator.Steps(a.steps); err != nil {
			return fmt.Errorf("migrate steps: %w", err)
		}
	case a.force >= 0:
		if err := migrator.Force(a.force); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
	}

	reportVersion(migrator, logger)
	return nil
}

func reportVersion(migrator *database.Migrator, logger zerolog.Logger) {
	v, dirty, err := migrator.Version()
	if err != nil {
		logger.Warn().Err(err).Msg("could not determine migration version")
		return
	}
	logger.Info().
		Uint("version", v).
		Bool("dirty", dirty).
		Msg("current migration version")
}
