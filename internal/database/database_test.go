package database

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/recipe-catalog-service/internal/config"
)

// TestDBTX_Interface verifies that DBTX interface is properly defined.
func TestDBTX_Interface(t *testing.T) {
	var _ DBTX = (*mockDBTX)(nil)
	var _ DBTX = (pgx.Tx)(nil)
}

// mockDBTX is a mock implementation of DBTX for interface verification.
type mockDBTX struct{}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockDBTX) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return nil
}

func (m *mockDBTX) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

func TestHealthStatus(t *testing.T) {
	t.Run("healthy status omits error", func(t *testing.T) {
		h := HealthStatus{Status: "healthy", TotalConns: 3, MaxConns: 20}
		assert.True(t, h.Healthy())

		data, err := json.Marshal(h)
		require.NoError(t, err)
		assert.NotContains(t, string(data), `"error"`)
		assert.Contains(t, string(data), `"total_conns":3`)
	})

	t.Run("unhealthy status carries error", func(t *testing.T) {
		h := HealthStatus{Status: "unhealthy", Error: "connection refused"}
		assert.False(t, h.Healthy())

		data, err := json.Marshal(h)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"error":"connection refused"`)
	})
}

func TestTxOptions(t *testing.T) {
	assert.Equal(t, pgx.ReadCommitted, ReadWriteTxOptions.IsoLevel)
	assert.Equal(t, pgx.ReadWrite, ReadWriteTxOptions.AccessMode)
	assert.Equal(t, pgx.ReadCommitted, ReadOnlyTxOptions.IsoLevel)
	assert.Equal(t, pgx.ReadOnly, ReadOnlyTxOptions.AccessMode)
}

func TestDatabaseConfig_DSN_ParsesWithPgx(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "recipes",
		Password: "p@ss:w0rd/",
		Name:     "recipe_catalog",
		SSLMode:  config.SSLModeDisable,
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	require.NoError(t, err)
	assert.Equal(t, "p@ss:w0rd/", poolConfig.ConnConfig.Password)
	assert.Equal(t, "recipe_catalog", poolConfig.ConnConfig.Database)
}

// TestNew_ConnectionError expects an error on an unroutable host.
func TestNew_ConnectionError(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// 192.0.2.1 is TEST-NET-1 (RFC 5737), guaranteed unroutable.
	cfg := &config.DatabaseConfig{
		Host:           "192.0.2.1",
		Port:           5432,
		Name:           "testdb",
		User:           "user",
		Password:       "pass",
		SSLMode:        config.SSLModeDisable,
		MaxConns:       2,
		MinConns:       0,
		ConnectTimeout: 1 * time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	db, err := New(ctx, cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Nil(t, db)
}

func TestDB_Live(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	t.Run("health reports healthy", func(t *testing.T) {
		h := db.Health(ctx)
		assert.True(t, h.Healthy(), h.Error)
	})

	t.Run("read only transaction rejects writes", func(t *testing.T) {
		err := db.WithReadOnlyTransaction(ctx, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, "CREATE TEMP TABLE ro_probe (id int)")
			return err
		})
		assert.Error(t, err)
	})

	t.Run("transaction commits", func(t *testing.T) {
		var one int
		err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
			return tx.QueryRow(ctx, "SELECT 1").Scan(&one)
		})
		require.NoError(t, err)
		assert.Equal(t, 1, one)
	})
}

// setupTestDB connects to RECIPES_TEST_DATABASE_URL or skips the test.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dsn := os.Getenv("RECIPES_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("Skipping: RECIPES_TEST_DATABASE_URL not set")
	}

	cfg := &config.DatabaseConfig{
		MaxConns:       5,
		MinConns:       1,
		ConnectTimeout: 10 * time.Second,
	}

	db, err := NewFromDSN(context.Background(), dsn, cfg, zerolog.Nop())
	if err != nil {
		t.Skipf("Skipping: cannot connect to database: %v", err)
	}

	return db
}
