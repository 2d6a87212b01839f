package booking

import (
	"context"

	"github.com/nekogravitycat/library-booking-backend/internal/directory"
	"github.com/nekogravitycat/library-booking-backend/internal/timeslot"
)

// Store is the booking datastore. Reads run standalone; writes go through WithinTx
// so every Seat, TimeSlot and Booking change of one operation commits together.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	GetSlot(ctx context.Context, id string) (*timeslot.TimeSlot, error)
	GetSeat(ctx context.Context, id string) (*directory.Seat, error)
	HasLiveBooking(ctx context.Context, seatID, timeSlotID string) (bool, error)
	GetByID(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
}

// Tx is a transaction over the booking tables. Lock methods take row locks that
// are held until commit; callers lock slot before seat to keep a single lock order.
type Tx interface {
	LockSlot(ctx context.Context, id string) (*timeslot.TimeSlot, error)
	LockSeat(ctx context.Context, id string) (*directory.Seat, error)
	LockBooking(ctx context.Context, id string) (*Booking, error)

	// HasLiveBooking reports an ACTIVE or COMPLETED booking for the pair.
	HasLiveBooking(ctx context.Context, seatID, timeSlotID string) (bool, error)
	// CountBooked counts the slot's bookings that are not CANCELLED. It is the slot's bookedCount.
	CountBooked(ctx context.Context, timeSlotID string) (int, error)

	Insert(ctx context.Context, b *Booking) error
	UpdateBooking(ctx context.Context, b *Booking) error
	UpdateSlotCount(ctx context.Context, timeSlotID string, bookedCount int, status timeslot.Status) error
	SetSeatStatus(ctx context.Context, seatID string, status directory.SeatStatus) error
}
