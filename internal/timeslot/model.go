package timeslot

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nekogravitycat/library-booking-backend/internal/pkg/apperror"
)

const DateLayout = "2006-01-02"

var (
	ErrNotFound     = &apperror.AppError{Code: http.StatusNotFound, Kind: apperror.KindNotFound, Reason: "time_slot_not_found", Message: "time slot not found"}
	ErrOverlap      = apperror.Conflict("slot_overlap", "time slot overlaps an existing slot")
	ErrInvalidTime  = apperror.Validation("invalid_time", "times must be HH:MM or HH:MM:SS")
	ErrInvalidRange = apperror.Validation("invalid_time_range", "start time must be before end time")
	ErrInvalidDate  = apperror.Validation("invalid_date", "date must be YYYY-MM-DD")
	ErrPastDate     = apperror.Validation("past_date", "date must not be in the past")
	ErrBadCapacity  = apperror.Validation("invalid_capacity", "capacity must be zero or more")
	ErrNotLibrarian = apperror.New(http.StatusForbidden, "only the library's librarian can manage its time slots")
)

type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusBooked    Status = "BOOKED"
	StatusBlocked   Status = "BLOCKED"
)

// TimeSlot is a bookable window at a library. Times are wall-clock with no timezone.
type TimeSlot struct {
	ID          string
	LibraryID   string
	Date        time.Time // midnight UTC of the calendar date
	StartTime   string    // HH:MM:SS
	EndTime     string    // HH:MM:SS
	Capacity    int
	BookedCount int
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AvailableSpots is capacity minus the cached booked count, never negative.
func (t *TimeSlot) AvailableSpots() int {
	if n := t.Capacity - t.BookedCount; n > 0 {
		return n
	}
	return 0
}

// Bookable reports whether the slot accepts another booking.
func (t *TimeSlot) Bookable() bool {
	return t.Status == StatusAvailable && t.BookedCount < t.Capacity
}

// StatusFor derives the slot status after its booked count changed.
// A BLOCKED slot stays blocked regardless of count.
func StatusFor(current Status, bookedCount, capacity int) Status {
	if current == StatusBlocked {
		return StatusBlocked
	}
	if bookedCount >= capacity {
		return StatusBooked
	}
	return StatusAvailable
}

// ParseClock parses HH:MM or HH:MM:SS into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	layouts := []string{"15:04:05", "15:04"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, ErrInvalidTime
}

// FormatClock renders an offset from midnight as HH:MM:SS.
func FormatClock(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

// NormalizeClock parses and re-renders a wall-clock time as HH:MM:SS.
func NormalizeClock(s string) (string, error) {
	d, err := ParseClock(s)
	if err != nil {
		return "", err
	}
	return FormatClock(d), nil
}

// ParseDate parses YYYY-MM-DD as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// Today returns the calendar date of now as midnight UTC, comparable with ParseDate results.
func Today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Overlaps reports whether half-open intervals [aStart,aEnd) and [bStart,bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Duration) bool {
	return aStart < bEnd && aEnd > bStart
}

// Filter narrows slot listings.
type Filter struct {
	LibraryID string
	Date      *time.Time
	Status    Status
}
