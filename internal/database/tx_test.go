package database

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunInTransaction(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()

	t.Run("commits when fn succeeds", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBeginTx(ReadWriteTxOptions)
		mock.ExpectExec(`UPDATE recipes`).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		err = RunInTransaction(ctx, mock, ReadWriteTxOptions, logger, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, "UPDATE recipes SET view_count = view_count + 1 WHERE id = $1", int64(1))
			return err
		})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back and returns fn error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		fnErr := errors.New("boom")
		mock.ExpectBeginTx(ReadWriteTxOptions)
		mock.ExpectRollback()

		err = RunInTransaction(ctx, mock, ReadWriteTxOptions, logger, func(tx pgx.Tx) error {
			return fnErr
		})

		assert.ErrorIs(t, err, fnErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports rollback failure alongside fn error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		fnErr := errors.New("boom")
		mock.ExpectBeginTx(ReadWriteTxOptions)
		mock.ExpectRollback().WillReturnError(errors.New("conn closed"))

		err = RunInTransaction(ctx, mock, ReadWriteTxOptions, logger, func(tx pgx.Tx) error {
			return fnErr
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, fnErr)
		assert.Contains(t, err.Error(), "rollback error: conn closed")
	})

	t.Run("wraps begin failure", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBeginTx(ReadWriteTxOptions).WillReturnError(errors.New("too many connections"))

		called := false
		err = RunInTransaction(ctx, mock, ReadWriteTxOptions, logger, func(tx pgx.Tx) error {
			called = true
			return nil
		})

		require.Error(t, err)
		assert.False(t, called)
		assert.Contains(t, err.Error(), "failed to begin transaction")
	})

	t.Run("wraps commit failure", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBeginTx(ReadWriteTxOptions)
		mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

		err = RunInTransaction(ctx, mock, ReadWriteTxOptions, logger, func(tx pgx.Tx) error {
			return nil
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to commit transaction")
	})

	t.Run("rolls back and re-panics", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBeginTx(ReadWriteTxOptions)
		mock.ExpectRollback()

		assert.PanicsWithValue(t, "kaboom", func() {
			_ = RunInTransaction(ctx, mock, ReadWriteTxOptions, logger, func(tx pgx.Tx) error {
				panic("kaboom")
			})
		})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when the caller cancels", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		cctx, cancel := context.WithCancel(ctx)
		mock.ExpectBeginTx(ReadWriteTxOptions)
		mock.ExpectRollback()

		err = RunInTransaction(cctx, mock, ReadWriteTxOptions, logger, func(tx pgx.Tx) error {
			cancel()
			return cctx.Err()
		})

		assert.ErrorIs(t, err, context.Canceled)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTxRunner(t *testing.T) {
	ctx := context.Background()

	t.Run("read only transaction uses read only options", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBeginTx(ReadOnlyTxOptions)
		mock.ExpectCommit()

		runner := NewTxRunner(mock, zerolog.Nop())
		err = runner.WithReadOnlyTransaction(ctx, func(tx pgx.Tx) error { return nil })

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("write transaction uses read committed options", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBeginTx(ReadWriteTxOptions)
		mock.ExpectCommit()

		runner := NewTxRunner(mock, zerolog.Nop())
		err = runner.WithTransaction(ctx, func(tx pgx.Tx) error { return nil })

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
