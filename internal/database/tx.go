package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Transaction options used by the catalog.
//
// Writes run under READ COMMITTED: after an INSERT ... ON CONFLICT DO NOTHING
// loses a race, the following SELECT must see the row the winner committed,
// which a REPEATABLE READ snapshot would hide.
var (
	ReadWriteTxOptions = pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite}
	ReadOnlyTxOptions  = pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadOnly}
)

// TxRunner is a Transactor over any TxBeginner.
type TxRunner struct {
	beginner TxBeginner
	logger   zerolog.Logger
}

// NewTxRunner creates a TxRunner that begins transactions on b.
func NewTxRunner(b TxBeginner, logger zerolog.Logger) *TxRunner {
	return &TxRunner{beginner: b, logger: logger}
}

// WithTransaction executes fn within a READ COMMITTED read-write transaction.
func (r *TxRunner) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return RunInTransaction(ctx, r.beginner, ReadWriteTxOptions, r.logger, fn)
}

// WithReadOnlyTransaction executes fn within a read-only transaction.
func (r *TxRunner) WithReadOnlyTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return RunInTransaction(ctx, r.beginner, ReadOnlyTxOptions, r.logger, fn)
}

// RunInTransaction begins a transaction on b, runs fn, and commits. It rolls
// back when fn returns an error or panics; a panic is re-raised after the
// rollback. Rollback uses a context detached from ctx's cancellation so an
// abandoned caller still releases its locks promptly.
func RunInTransaction(ctx context.Context, b TxBeginner, opts pgx.TxOptions, logger zerolog.Logger, fn func(tx pgx.Tx) error) error {
	tx, err := b.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	rollbackCtx := context.WithoutCancel(ctx)

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(rollbackCtx); rbErr != nil {
				logger.Error().
					Err(rbErr).
					Interface("panic", p).
					Msg("failed to rollback transaction after panic")
			}
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(rollbackCtx); rbErr != nil {
			logger.Error().
				Err(rbErr).
				AnErr("original_error", err).
				Msg("failed to rollback transaction")
			return fmt.Errorf("transaction error: %w (rollback error: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
