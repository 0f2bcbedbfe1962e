// Package main provides the recipe catalog schema migration CLI.
//
// Exactly one action flag is accepted per invocation:
//
//	migrate -up
//	migrate -steps -1
//	migrate -force 1 -path ./migrations
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/recipe-catalog-service/internal/config"
	"github.com/helixir/recipe-catalog-service/internal/database"
	"github.com/helixir/recipe-catalog-service/internal/observability"
)

const connectTimeout = 30 * time.Second

var errNoAction = errors.New("no action specified")

// action is a single migration command selected from the flags.
type action struct {
	name string
	run  func(*database.Migrator) error
}

type options struct {
	up, down, version bool
	steps, force      int
	path              string
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	var opts options
	fs.BoolVar(&opts.up, "up", false, "Apply all pending migrations")
	fs.BoolVar(&opts.down, "down", false, "Revert all applied migrations")
	fs.IntVar(&opts.steps, "steps", 0, "Migrate N versions (negative migrates down)")
	fs.BoolVar(&opts.version, "version", false, "Print the current schema version")
	fs.IntVar(&opts.force, "force", -1, "Record V as the schema version and clear the dirty flag")
	fs.StringVar(&opts.path, "path", "", "Migrations directory (defaults to database.migration_path)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	act, err := selectAction(opts)
	if errors.Is(err, errNoAction) {
		fs.Usage()
	}
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

	dir := cfg.Database.MigrationPath
	if opts.path != "" {
		dir = opts.path
	}
	if err := database.ValidateMigrationsPath(dir); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db, dir, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close migrator")
		}
	}()

	logger.Info().Str("action", act.name).Str("path", dir).Msg("running migration action")
	if err := act.run(migrator); err != nil {
		return err
	}
	logStatus(migrator, logger)
	return nil
}

// selectAction maps the parsed flags to exactly one action.
func selectAction(opts options) (action, error) {
	var selected []action
	if opts.up {
		selected = append(selected, action{"up", (*database.Migrator).Up})
	}
	if opts.down {
		selected = append(selected, action{"down", (*database.Migrator).Down})
	}
	if opts.steps != 0 {
		n := opts.steps
		selected = append(selected, action{"steps", func(m *database.Migrator) error { return m.Steps(n) }})
	}
	if opts.version {
		selected = append(selected, action{"version", func(*database.Migrator) error { return nil }})
	}
	if opts.force >= 0 {
		v := opts.force
		selected = append(selected, action{"force", func(m *database.Migrator) error { return m.Force(v) }})
	}

	switch len(selected) {
	case 0:
		return action{}, fmt.Errorf("%w: use one of -up, -down, -steps N, -version, -force V", errNoAction)
	case 1:
		return selected[0], nil
	default:
		return action{}, fmt.Errorf("specify only one action at a time, got %d", len(selected))
	}
}

func logStatus(migrator *database.Migrator, logger zerolog.Logger) {
	status, err := migrator.Status()
	if err != nil {
		logger.Warn().Err(err).Msg("could not determine schema version")
		return
	}
	if !status.Applied {
		logger.Info().Msg("no migrations applied")
		return
	}
	logger.Info().
		Uint("version", status.Version).
		Bool("dirty", status.Dirty).
		Msg("current schema version")
}
