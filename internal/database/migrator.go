package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
)

// MigrationsTable is the table golang-migrate records the schema version in.
const MigrationsTable = "schema_migrations"

// MigrationStatus describes the schema version of the connected database.
type MigrationStatus struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
	// Applied is false when no migration has ever run.
	Applied bool `json:"applied"`
}

// Migrator applies the recipe catalog schema migrations.
type Migrator struct {
	migrate *migrate.Migrate
	sqlDB   *sql.DB
	logger  zerolog.Logger
}

// ValidateMigrationsPath checks that path is a directory holding at least one
// up migration.
func ValidateMigrationsPath(path string) error {
	if path == "" {
		return fmt.Errorf("migrations path is required")
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("migrations path validation failed: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("migrations path validation failed: %s is not a directory", path)
	}

	ups, err := filepath.Glob(filepath.Join(path, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("migrations path validation failed: %w", err)
	}
	if len(ups) == 0 {
		return fmt.Errorf("migrations path validation failed: no up migrations in %s", path)
	}

	return nil
}

// NewMigrator opens a golang-migrate instance over db's pool that reads
// migrations from migrationsPath.
func NewMigrator(db *DB, migrationsPath string, logger zerolog.Logger) (*Migrator, error) {
	if err := ValidateMigrationsPath(migrationsPath); err != nil {
		return nil, err
	}
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if db.pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	sqlDB := stdlib.OpenDBFromPool(db.pool)
	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{
		MigrationsTable: MigrationsTable,
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("open migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"postgres",
		driver,
	)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("open migration source: %w", err)
	}

	return &Migrator{
		migrate: m,
		sqlDB:   sqlDB,
		logger:  logger.With().Str("component", "migrator").Logger(),
	}, nil
}

// Up applies every pending migration.
func (m *Migrator) Up() error {
	return m.apply("up", m.migrate.Up)
}

// Down reverts every applied migration.
func (m *Migrator) Down() error {
	return m.apply("down", m.migrate.Down)
}

// Steps migrates n versions; a negative n migrates down.
func (m *Migrator) Steps(n int) error {
	return m.apply(fmt.Sprintf("steps %+d", n), func() error { return m.migrate.Steps(n) })
}

// apply runs a golang-migrate operation. Being already at the target
// version is not an error; golang-migrate reports stepping past the last
// file as os.ErrNotExist.
func (m *Migrator) apply(op string, fn func() error) error {
	logger := m.logger.With().Str("op", op).Logger()
	logger.Info().Msg("applying schema migrations")

	err := fn()
	switch {
	case err == nil:
		logger.Info().Msg("schema migrations applied")
		return nil
	case errors.Is(err, migrate.ErrNoChange), errors.Is(err, os.ErrNotExist):
		logger.Info().Msg("schema already at target version")
		return nil
	default:
		return fmt.Errorf("migrate %s: %w", op, err)
	}
}

// Status returns the current schema version.
func (m *Migrator) Status() (MigrationStatus, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return MigrationStatus{}, nil
	}
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("read schema version: %w", err)
	}
	return MigrationStatus{Version: version, Dirty: dirty, Applied: true}, nil
}

// Force records version as the current schema version and clears the dirty
// flag without running any migration.
func (m *Migrator) Force(version int) error {
	m.logger.Warn().Int("version", version).Msg("forcing schema version")
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("force schema version %d: %w", version, err)
	}
	return nil
}

// Close releases the migration source and the sql.DB over the pool.
// The pool itself stays open.
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	var sqlErr error
	if m.sqlDB != nil {
		sqlErr = m.sqlDB.Close()
	}
	if err := errors.Join(sourceErr, dbErr, sqlErr); err != nil {
		return fmt.Errorf("close migrator: %w", err)
	}
	return nil
}
