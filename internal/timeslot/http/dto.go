package http

import (
	"time"

	"github.com/nekogravitycat/library-booking-backend/internal/timeslot"
)

type CreateTimeSlotBody struct {
	LibraryID string `json:"libraryId" binding:"required,uuid"`
	Date      string `json:"date" binding:"required"`
	StartTime string `json:"startTime" binding:"required"`
	EndTime   string `json:"endTime" binding:"required"`
	Capacity  *int   `json:"capacity" binding:"required"`
}

type ListTimeSlotsRequest struct {
	LibraryID string `form:"libraryId" binding:"required,uuid"`
	Date      string `form:"date"`
	Status    string `form:"status" binding:"omitempty,oneof=AVAILABLE BOOKED BLOCKED"`
}

type TimeSlotResponse struct {
	ID             string    `json:"id"`
	LibraryID      string    `json:"libraryId"`
	Date           string    `json:"date"`
	StartTime      string    `json:"startTime"`
	EndTime        string    `json:"endTime"`
	Capacity       int       `json:"capacity"`
	BookedCount    int       `json:"bookedCount"`
	AvailableSpots int       `json:"availableSpots"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
}

func NewTimeSlotResponse(t *timeslot.TimeSlot) TimeSlotResponse {
	return TimeSlotResponse{
		ID:             t.ID,
		LibraryID:      t.LibraryID,
		Date:           t.Date.Format(timeslot.DateLayout),
		StartTime:      t.StartTime,
		EndTime:        t.EndTime,
		Capacity:       t.Capacity,
		BookedCount:    t.BookedCount,
		AvailableSpots: t.AvailableSpots(),
		Status:         string(t.Status),
		CreatedAt:      t.CreatedAt,
	}
}
