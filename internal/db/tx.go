package db

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrTxBegin            = errors.New("failed to begin transaction")
	ErrTxCommit           = errors.New("failed to commit transaction")
	ErrMaxRetriesExceeded = errors.New("transaction failed after max retries")
)

const defaultMaxRetries = 3

// TxRunner runs closures inside pgx transactions and retries serialization
// failures and deadlocks with exponential backoff.
type TxRunner struct {
	pool       *pgxpool.Pool
	logger     *slog.Logger
	maxRetries int
	base       time.Duration
}

func NewTxRunner(pool *pgxpool.Pool, logger *slog.Logger) *TxRunner {
	return &TxRunner{
		pool:       pool,
		logger:     logger,
		maxRetries: defaultMaxRetries,
		base:       100 * time.Millisecond,
	}
}

// RunInTx runs fn in a read-committed transaction. Row locks taken inside fn
// provide the serialization; read committed keeps lock waits short.
func (r *TxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return r.runInTxWithOptions(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

// Avoids defer accumulation in the retry loop so connections are released per attempt.
func (r *TxRunner) runInTxWithOptions(ctx context.Context, options pgx.TxOptions, fn func(ctx context.Context, tx pgx.Tx) error) error {
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		tx, err := r.pool.BeginTx(ctx, options)
		if err != nil {
			return errors.Mark(err, ErrTxBegin)
		}

		err = fn(ctx, tx)
		if err == nil {
			if err = tx.Commit(ctx); err == nil {
				return nil
			}
			err = errors.Mark(err, ErrTxCommit)
		}

		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			r.logger.Warn("rollback failed", "attempt", attempt+1, "error", rollbackErr.Error())
		}

		if !shouldRetry(err, attempt, r.maxRetries) {
			if isRetryableError(err) {
				r.logger.Error("transaction failed after max retries", "attempts", attempt+1, "error", err.Error())
				return errors.Mark(err, ErrMaxRetriesExceeded)
			}
			return err
		}

		wait := calculateBackoff(attempt, r.base)
		r.logger.Warn("retrying transaction due to retryable error",
			"attempt", attempt+1,
			"wait_ms", wait.Milliseconds(),
			"error", err.Error())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return ErrMaxRetriesExceeded
}

func shouldRetry(err error, attempt, maxRetries int) bool {
	return isRetryableError(err) && attempt < maxRetries
}

func calculateBackoff(attempt int, base time.Duration) time.Duration {
	wait := time.Duration(1<<attempt) * base
	return wait + time.Duration(cryptoRandInt63n(int64(wait/5)))
}

func cryptoRandInt63n(n int64) int64 {
	if n <= 0 {
		return 0
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	return int64(binary.BigEndian.Uint64(buf[:])&0x7FFFFFFFFFFFFFFF) % n
}

func isRetryableError(err error) bool {
	switch PgErrorCode(err) {
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return true
	default:
		return false
	}
}

// PgErrorCode returns the SQLSTATE of the first *pgconn.PgError in err's chain, or "".
func PgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func IsUniqueViolation(err error) bool {
	return PgErrorCode(err) == pgerrcode.UniqueViolation
}

func IsForeignKeyViolation(err error) bool {
	return PgErrorCode(err) == pgerrcode.ForeignKeyViolation
}

func IsCheckViolation(err error) bool {
	return PgErrorCode(err) == pgerrcode.CheckViolation
}

// IsInvalidText reports malformed input such as a non-uuid id.
func IsInvalidText(err error) bool {
	return PgErrorCode(err) == pgerrcode.InvalidTextRepresentation
}
