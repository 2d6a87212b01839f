package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/library-booking-backend/internal/auth"
	"github.com/nekogravitycat/library-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/library-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/library-booking-backend/internal/timeslot"
)

type Handler struct {
	service timeslot.Service
}

func NewHandler(service timeslot.Service) *Handler {
	return &Handler{service: service}
}

// Create lets a librarian open a new slot on one of their libraries.
func (h *Handler) Create(c *gin.Context) {
	var body CreateTimeSlotBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Fail(c, http.StatusBadRequest, "validation_error", "invalid request body: "+err.Error())
		return
	}

	slot, err := h.service.Create(c.Request.Context(), timeslot.CreateRequest{
		ActorID:      auth.GetUserID(c),
		ActorIsAdmin: auth.GetUserRole(c) == auth.RoleAdmin,
		LibraryID:    body.LibraryID,
		Date:         body.Date,
		StartTime:    body.StartTime,
		EndTime:      body.EndTime,
		Capacity:     *body.Capacity,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusCreated, "time slot created", NewTimeSlotResponse(slot))
}

func (h *Handler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "validation_error", "invalid time slot id")
		return
	}

	slot, err := h.service.GetByID(c.Request.Context(), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusOK, "time slot fetched", NewTimeSlotResponse(slot))
}

// List returns every slot of a library, optionally narrowed to one date or status.
func (h *Handler) List(c *gin.Context) {
	var req ListTimeSlotsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "validation_error", "invalid query: "+err.Error())
		return
	}

	filter := timeslot.Filter{LibraryID: req.LibraryID, Status: timeslot.Status(req.Status)}
	if req.Date != "" {
		d, err := timeslot.ParseDate(req.Date)
		if err != nil {
			response.Error(c, err)
			return
		}
		filter.Date = &d
	}

	slots, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]TimeSlotResponse, len(slots))
	for i, s := range slots {
		items[i] = NewTimeSlotResponse(s)
	}
	response.OK(c, http.StatusOK, "time slots fetched", items)
}
