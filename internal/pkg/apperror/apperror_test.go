package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCodeAndReason(t *testing.T) {
	sentinel := Conflict("seat_already_booked", "seat already booked")

	wrapped := fmt.Errorf("create booking: %w", sentinel.WithErr(errors.New("pg: unique")))
	assert.True(t, errors.Is(wrapped, sentinel))

	other := Conflict("slot_unavailable", "slot unavailable")
	assert.False(t, errors.Is(wrapped, other))
}

func TestNotFoundReason(t *testing.T) {
	err := NotFound("student")
	assert.Equal(t, http.StatusNotFound, err.Code)
	assert.Equal(t, KindNotFound, err.Kind)
	assert.Equal(t, "student_not_found", err.Reason)
	assert.Equal(t, "student not found", err.Error())
}

func TestNewDerivesKind(t *testing.T) {
	assert.Equal(t, KindValidation, New(http.StatusBadRequest, "bad").Kind)
	assert.Equal(t, KindForbidden, New(http.StatusForbidden, "no").Kind)
	assert.Equal(t, KindInternal, New(http.StatusInternalServerError, "boom").Kind)
}

func TestAsUnwrapsChain(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := fmt.Errorf("payout: %w", Payout("payout_failed", "payout failed").WithErr(cause))

	appErr, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, KindPayout, appErr.Kind)
	assert.ErrorIs(t, err, cause)

	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
}
