package booking

import (
	"slices"
	"time"

	"github.com/nekogravitycat/library-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/library-booking-backend/internal/pkg/money"
)

var (
	ErrNotFound          = apperror.NotFound("booking")
	ErrMissingFields     = apperror.Validation("missing_fields", "studentId, libraryId, planId, timeSlotId and seatId are required")
	ErrInvalidAmount     = apperror.Validation("invalid_amount", "totalAmount must not be negative")
	ErrSlotUnavailable   = apperror.Conflict("slot_unavailable", "time slot is not available")
	ErrSeatUnavailable   = apperror.Conflict("seat_unavailable", "seat is not available")
	ErrSeatAlreadyBooked = apperror.Conflict("seat_already_booked", "seat is already booked for this time slot")
	ErrDuplicateBooking  = apperror.Conflict("duplicate_booking", "booking already exists")
	ErrInvalidReference  = apperror.Validation("invalid_reference", "a referenced record does not exist")
	ErrInvalidStatus     = apperror.Validation("invalid_status", "status must be one of ACTIVE, COMPLETED, CANCELLED, EXPIRED")
	ErrInvalidTransition = apperror.Validation("invalid_transition", "booking status cannot change from its current state")
	ErrAlreadyCheckedIn  = apperror.Conflict("already_checked_in", "booking is already checked in")
	ErrNotCheckedInable  = apperror.Validation("not_active", "only active bookings can be checked in")
)

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusExpired   Status = "EXPIRED"
)

// ParseStatus accepts exactly the four enum values.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusActive, StatusCompleted, StatusCancelled, StatusExpired:
		return st, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Terminal statuses never change again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusExpired
}

// LiveStatuses hold their seat for the slot. The partial unique index on bookings uses the same set.
var LiveStatuses = []Status{StatusActive, StatusCompleted}

// live reports whether the booking still holds its seat for the slot.
func (s Status) live() bool {
	return slices.Contains(LiveStatuses, s)
}

// CanTransition encodes the forward-only machine ACTIVE -> {COMPLETED, CANCELLED, EXPIRED}.
func CanTransition(from, to Status) bool {
	return from == StatusActive && to.Terminal()
}

type Booking struct {
	ID           string
	StudentID    string
	LibraryID    string
	PlanID       string
	TimeSlotID   string
	SeatID       string
	Status       Status
	CheckInTime  *time.Time
	CheckOutTime *time.Time
	ValidFrom    time.Time
	ValidTo      time.Time
	TotalAmount  money.Minor
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Summaries joined on read.
	StudentName  string
	StudentEmail string
	LibraryName  string
	PlanName     string
	SeatLabel    string
	SlotDate     time.Time
	SlotStart    string
	SlotEnd      string
}

type Filter struct {
	StudentID  string
	LibraryID  string
	TimeSlotID string
	Status     Status
	Page       int
	PageSize   int
	SortOrder  string
}
