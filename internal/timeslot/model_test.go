package timeslot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	d, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9*time.Hour+30*time.Minute, d)

	d, err = ParseClock("23:59:59")
	require.NoError(t, err)
	assert.Equal(t, "23:59:59", FormatClock(d))

	_, err = ParseClock("25:00")
	assert.ErrorIs(t, err, ErrInvalidTime)
	_, err = ParseClock("noon")
	assert.ErrorIs(t, err, ErrInvalidTime)
}

func TestOverlapsIsHalfOpen(t *testing.T) {
	h := time.Hour
	tests := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd time.Duration
		want                       bool
	}{
		{"Disjoint", 9 * h, 10 * h, 11 * h, 12 * h, false},
		{"Touching end to start", 9 * h, 10 * h, 10 * h, 11 * h, false},
		{"Partial overlap", 9 * h, 11 * h, 10 * h, 12 * h, true},
		{"Contained", 9 * h, 12 * h, 10 * h, 11 * h, true},
		{"Identical", 9 * h, 10 * h, 9 * h, 10 * h, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd))
			assert.Equal(t, tt.want, Overlaps(tt.bStart, tt.bEnd, tt.aStart, tt.aEnd))
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, StatusBooked, StatusFor(StatusAvailable, 1, 1))
	assert.Equal(t, StatusAvailable, StatusFor(StatusBooked, 0, 1))
	assert.Equal(t, StatusBlocked, StatusFor(StatusBlocked, 0, 1))
	// A zero-capacity slot is full from the start.
	assert.Equal(t, StatusBooked, StatusFor(StatusAvailable, 0, 0))
}

func TestAvailableSpotsAndBookable(t *testing.T) {
	s := &TimeSlot{Capacity: 3, BookedCount: 1, Status: StatusAvailable}
	assert.Equal(t, 2, s.AvailableSpots())
	assert.True(t, s.Bookable())

	s.BookedCount = 3
	assert.Equal(t, 0, s.AvailableSpots())
	assert.False(t, s.Bookable())

	s = &TimeSlot{Capacity: 3, Status: StatusBlocked}
	assert.False(t, s.Bookable())
}

func TestTodayAndParseDate(t *testing.T) {
	now := time.Date(2026, 3, 4, 23, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))
	d, err := ParseDate("2026-03-04")
	require.NoError(t, err)
	assert.True(t, d.Equal(Today(now)))

	_, err = ParseDate("04/03/2026")
	assert.ErrorIs(t, err, ErrInvalidDate)
}
