// Package availability answers which slots and seats can still be booked.
// It reads the Booking table as the source of truth; cached seat and slot status are only hints.
package availability

import (
	"github.com/nekogravitycat/library-booking-backend/internal/directory"
	"github.com/nekogravitycat/library-booking-backend/internal/timeslot"
)

// SlotAvailability is a slot annotated with its live booking count.
type SlotAvailability struct {
	Slot      *timeslot.TimeSlot
	LiveCount int // non-cancelled bookings referencing the slot
}

// AvailableSpots is capacity minus live bookings, never negative.
func (s SlotAvailability) AvailableSpots() int {
	if n := s.Slot.Capacity - s.LiveCount; n > 0 {
		return n
	}
	return 0
}

func (s SlotAvailability) IsBookable() bool {
	return s.AvailableSpots() > 0
}

// SeatAvailability is the answer to "which seats are free in this slot".
type SeatAvailability struct {
	Slot  *timeslot.TimeSlot
	Seats []*directory.Seat
}
