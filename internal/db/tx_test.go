package db

import (
	"fmt"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func pgErr(code string) error {
	return fmt.Errorf("exec: %w", &pgconn.PgError{Code: code})
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, isRetryableError(pgErr(pgerrcode.SerializationFailure)))
	assert.True(t, isRetryableError(pgErr(pgerrcode.DeadlockDetected)))
	assert.False(t, isRetryableError(pgErr(pgerrcode.UniqueViolation)))
	assert.False(t, isRetryableError(errors.New("plain")))
	assert.False(t, isRetryableError(nil))
}

func TestShouldRetryStopsAtMax(t *testing.T) {
	err := pgErr(pgerrcode.SerializationFailure)
	assert.True(t, shouldRetry(err, 0, 3))
	assert.True(t, shouldRetry(err, 2, 3))
	assert.False(t, shouldRetry(err, 3, 3))
}

func TestCalculateBackoffGrowsWithJitterBound(t *testing.T) {
	base := 100 * time.Millisecond
	for attempt := 0; attempt < 3; attempt++ {
		want := time.Duration(1<<attempt) * base
		got := calculateBackoff(attempt, base)
		assert.GreaterOrEqual(t, got, want)
		assert.Less(t, got, want+want/5+time.Nanosecond)
	}
}

func TestPgErrorClassifiers(t *testing.T) {
	assert.True(t, IsUniqueViolation(pgErr(pgerrcode.UniqueViolation)))
	assert.True(t, IsForeignKeyViolation(pgErr(pgerrcode.ForeignKeyViolation)))
	assert.True(t, IsCheckViolation(pgErr(pgerrcode.CheckViolation)))
	assert.True(t, IsInvalidText(pgErr(pgerrcode.InvalidTextRepresentation)))
	assert.Equal(t, "", PgErrorCode(errors.New("plain")))
}

func TestMarkedCommitErrorKeepsCause(t *testing.T) {
	cause := pgErr(pgerrcode.SerializationFailure)
	err := errors.Mark(cause, ErrTxCommit)
	assert.True(t, errors.Is(err, ErrTxCommit))
	assert.True(t, isRetryableError(err))
}
