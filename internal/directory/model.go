// Package directory reads the entities a booking or payment references but never mutates:
// students, librarians, libraries, plans and seats.
package directory

import (
	"time"

	"github.com/nekogravitycat/library-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/library-booking-backend/internal/pkg/money"
)

var (
	ErrStudentNotFound   = apperror.NotFound("student")
	ErrLibrarianNotFound = apperror.NotFound("librarian")
	ErrLibraryNotFound   = apperror.NotFound("library")
	ErrPlanNotFound      = apperror.NotFound("plan")
	ErrSeatNotFound      = apperror.NotFound("seat")
)

type Student struct {
	ID        string
	Name      string
	Email     string
	Phone     *string
	CreatedAt time.Time
}

type Librarian struct {
	ID              string
	Name            string
	Email           string
	PayoutAccountID *string
	CreatedAt       time.Time
}

type Library struct {
	ID          string
	LibrarianID string
	Name        string
	Address     string
	OpeningTime string // HH:MM:SS
	ClosingTime string // HH:MM:SS
	CreatedAt   time.Time
}

type DurationUnit string

const (
	DurationDays   DurationUnit = "DAYS"
	DurationWeeks  DurationUnit = "WEEKS"
	DurationMonths DurationUnit = "MONTHS"
)

// Plan is a library's immutable pricing term. Its price is copied onto a booking at creation.
type Plan struct {
	ID           string
	LibraryID    string
	Name         string
	Duration     int
	DurationUnit DurationUnit
	Price        money.Minor
	CreatedAt    time.Time
}

type SeatStatus string

const (
	SeatAvailable   SeatStatus = "AVAILABLE"
	SeatOccupied    SeatStatus = "OCCUPIED"
	SeatReserved    SeatStatus = "RESERVED"
	SeatMaintenance SeatStatus = "MAINTENANCE"
)

// Seat is a physical bookable unit. Status is a cache of the live bookings that reference it.
type Seat struct {
	ID        string
	LibraryID string
	Label     string
	Status    SeatStatus
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Bookable reports whether the cached seat state allows a new booking.
func (s *Seat) Bookable() bool {
	return s.IsActive && s.Status == SeatAvailable
}
