package http

import (
	"github.com/nekogravitycat/library-booking-backend/internal/availability"
	"github.com/nekogravitycat/library-booking-backend/internal/directory"
	"github.com/nekogravitycat/library-booking-backend/internal/timeslot"
)

type ListTimeSlotsRequest struct {
	LibraryID string `form:"libraryId" binding:"required,uuid"`
	Date      string `form:"date" binding:"required"`
}

// FindSeatsRequest selects a slot either by id or by its date and window.
type FindSeatsRequest struct {
	LibraryID  string `form:"libraryId" binding:"required,uuid"`
	TimeSlotID string `form:"timeSlotId" binding:"omitempty,uuid"`
	Date       string `form:"date"`
	StartTime  string `form:"startTime"`
	EndTime    string `form:"endTime"`
}

// Validate checks that exactly one way of selecting the slot is complete.
func (r *FindSeatsRequest) Validate() error {
	if r.TimeSlotID != "" {
		return nil
	}
	if r.Date == "" || r.StartTime == "" || r.EndTime == "" {
		return availability.ErrMissingParams
	}
	return nil
}

type SlotResponse struct {
	ID             string `json:"id"`
	LibraryID      string `json:"libraryId"`
	Date           string `json:"date"`
	StartTime      string `json:"startTime"`
	EndTime        string `json:"endTime"`
	Capacity       int    `json:"capacity"`
	BookedCount    int    `json:"bookedCount"`
	Status         string `json:"status"`
	AvailableSpots int    `json:"availableSpots"`
	IsBookable     bool   `json:"isBookable"`
}

func newSlotResponse(t *timeslot.TimeSlot, spots int) SlotResponse {
	return SlotResponse{
		ID:             t.ID,
		LibraryID:      t.LibraryID,
		Date:           t.Date.Format(timeslot.DateLayout),
		StartTime:      t.StartTime,
		EndTime:        t.EndTime,
		Capacity:       t.Capacity,
		BookedCount:    t.BookedCount,
		Status:         string(t.Status),
		AvailableSpots: spots,
		IsBookable:     spots > 0,
	}
}

func NewSlotAvailabilityResponse(s availability.SlotAvailability) SlotResponse {
	return newSlotResponse(s.Slot, s.AvailableSpots())
}

type SeatResponse struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Status string `json:"status"`
}

type SeatAvailabilityResponse struct {
	TimeSlot SlotResponse   `json:"timeSlot"`
	Seats    []SeatResponse `json:"seats"`
}

func NewSeatAvailabilityResponse(a *availability.SeatAvailability) SeatAvailabilityResponse {
	seats := make([]SeatResponse, len(a.Seats))
	for i, s := range a.Seats {
		seats[i] = newSeatResponse(s)
	}
	return SeatAvailabilityResponse{
		TimeSlot: newSlotResponse(a.Slot, a.Slot.AvailableSpots()),
		Seats:    seats,
	}
}

func newSeatResponse(s *directory.Seat) SeatResponse {
	return SeatResponse{ID: s.ID, Label: s.Label, Status: string(s.Status)}
}
