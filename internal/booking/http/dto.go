package http

import (
	"time"

	"github.com/nekogravitycat/library-booking-backend/internal/booking"
	"github.com/nekogravitycat/library-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/library-booking-backend/internal/timeslot"
)

type CreateBookingBody struct {
	// StudentID defaults to the authenticated subject.
	StudentID   string   `json:"studentId" binding:"omitempty,uuid"`
	LibraryID   string   `json:"libraryId" binding:"required,uuid"`
	PlanID      string   `json:"planId" binding:"required,uuid"`
	TimeSlotID  string   `json:"timeSlotId" binding:"required,uuid"`
	SeatID      string   `json:"seatId" binding:"required,uuid"`
	TotalAmount *float64 `json:"totalAmount" binding:"omitempty,min=0"`
}

type UpdateStatusBody struct {
	Status string `json:"status" binding:"required"`
}

type ListBookingsRequest struct {
	request.ListParams
	StudentID  string `form:"studentId" binding:"omitempty,uuid"`
	LibraryID  string `form:"libraryId" binding:"omitempty,uuid"`
	TimeSlotID string `form:"timeSlotId" binding:"omitempty,uuid"`
	Status     string `form:"status" binding:"omitempty,oneof=ACTIVE COMPLETED CANCELLED EXPIRED"`
}

type StudentSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type SeatSummary struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type SlotSummary struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type BookingResponse struct {
	ID           string         `json:"id"`
	LibraryID    string         `json:"libraryId"`
	LibraryName  string         `json:"libraryName,omitempty"`
	PlanID       string         `json:"planId"`
	PlanName     string         `json:"planName,omitempty"`
	Status       string         `json:"status"`
	CheckInTime  *time.Time     `json:"checkInTime"`
	CheckOutTime *time.Time     `json:"checkOutTime"`
	ValidFrom    string         `json:"validFrom"`
	ValidTo      string         `json:"validTo"`
	TotalAmount  float64        `json:"totalAmount"`
	Student      StudentSummary `json:"student"`
	Seat         SeatSummary    `json:"seat"`
	TimeSlot     SlotSummary    `json:"timeSlot"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	resp := BookingResponse{
		ID:           b.ID,
		LibraryID:    b.LibraryID,
		LibraryName:  b.LibraryName,
		PlanID:       b.PlanID,
		PlanName:     b.PlanName,
		Status:       string(b.Status),
		CheckInTime:  b.CheckInTime,
		CheckOutTime: b.CheckOutTime,
		ValidFrom:    b.ValidFrom.Format(timeslot.DateLayout),
		ValidTo:      b.ValidTo.Format(timeslot.DateLayout),
		TotalAmount:  b.TotalAmount.Major(),
		Student:      StudentSummary{ID: b.StudentID, Name: b.StudentName, Email: b.StudentEmail},
		Seat:         SeatSummary{ID: b.SeatID, Label: b.SeatLabel},
		TimeSlot:     SlotSummary{ID: b.TimeSlotID, StartTime: b.SlotStart, EndTime: b.SlotEnd},
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
	if !b.SlotDate.IsZero() {
		resp.TimeSlot.Date = b.SlotDate.Format(timeslot.DateLayout)
	}
	return resp
}
