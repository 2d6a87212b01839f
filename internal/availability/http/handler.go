package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/library-booking-backend/internal/availability"
	"github.com/nekogravitycat/library-booking-backend/internal/pkg/response"
)

type Handler struct {
	service availability.Service
}

func NewHandler(service availability.Service) *Handler {
	return &Handler{service: service}
}

// ListTimeSlots handles GET /timeslots/available.
func (h *Handler) ListTimeSlots(c *gin.Context) {
	var req ListTimeSlotsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "validation_error", "libraryId and date are required")
		return
	}

	slots, err := h.service.ListAvailableTimeSlots(c.Request.Context(), req.LibraryID, req.Date)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]SlotResponse, len(slots))
	for i, s := range slots {
		items[i] = NewSlotAvailabilityResponse(s)
	}
	response.OK(c, http.StatusOK, "available time slots fetched", items)
}

// ListSeats handles GET /bookings/available.
func (h *Handler) ListSeats(c *gin.Context) {
	var req FindSeatsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "validation_error", "invalid query: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	ctx := c.Request.Context()
	var (
		result *availability.SeatAvailability
		err    error
	)
	if req.TimeSlotID != "" {
		result, err = h.service.ListAvailableSeats(ctx, req.LibraryID, req.TimeSlotID)
	} else {
		result, err = h.service.FindAvailableSeats(ctx, req.LibraryID, req.Date, req.StartTime, req.EndTime)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusOK, "available seats fetched", NewSeatAvailabilityResponse(result))
}
