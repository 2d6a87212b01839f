package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/library-booking-backend/internal/auth"
	"github.com/nekogravitycat/library-booking-backend/internal/booking"
	"github.com/nekogravitycat/library-booking-backend/internal/pkg/money"
	"github.com/nekogravitycat/library-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/library-booking-backend/internal/pkg/response"
)

type Handler struct {
	service booking.Service
}

func NewHandler(service booking.Service) *Handler {
	return &Handler{service: service}
}

// Create reserves a seat in a time slot.
func (h *Handler) Create(c *gin.Context) {
	var body CreateBookingBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Fail(c, http.StatusBadRequest, "validation_error", "invalid request body: "+err.Error())
		return
	}

	studentID := body.StudentID
	if studentID == "" {
		studentID = auth.GetUserID(c)
	}
	if auth.GetUserRole(c) == auth.RoleStudent && studentID != auth.GetUserID(c) {
		response.Fail(c, http.StatusForbidden, "forbidden", "students can only book for themselves")
		return
	}

	req := booking.CreateRequest{
		StudentID:  studentID,
		LibraryID:  body.LibraryID,
		PlanID:     body.PlanID,
		TimeSlotID: body.TimeSlotID,
		SeatID:     body.SeatID,
	}
	if body.TotalAmount != nil {
		amount := money.FromMajor(*body.TotalAmount)
		req.TotalAmount = &amount
	}

	b, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusCreated, "booking created", NewBookingResponse(b))
}

func (h *Handler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "validation_error", "invalid booking id")
		return
	}

	b, err := h.service.GetByID(c.Request.Context(), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	// Students only see their own bookings.
	if auth.GetUserRole(c) == auth.RoleStudent && b.StudentID != auth.GetUserID(c) {
		response.Error(c, booking.ErrNotFound)
		return
	}

	response.OK(c, http.StatusOK, "booking fetched", NewBookingResponse(b))
}

func (h *Handler) List(c *gin.Context) {
	var req ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "validation_error", "invalid query: "+err.Error())
		return
	}
	req.Normalize()

	filter := booking.Filter{
		StudentID:  req.StudentID,
		LibraryID:  req.LibraryID,
		TimeSlotID: req.TimeSlotID,
		Status:     booking.Status(req.Status),
		Page:       req.Page,
		PageSize:   req.PageSize,
		SortOrder:  req.SortOrder,
	}
	if auth.GetUserRole(c) == auth.RoleStudent {
		filter.StudentID = auth.GetUserID(c)
	}

	bookings, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = NewBookingResponse(b)
	}
	response.OK(c, http.StatusOK, "bookings fetched", response.NewPageResponse(items, req.Page, req.PageSize, total))
}

// Cancel releases the booking's seat and slot capacity. Cancelling twice succeeds without changes.
func (h *Handler) Cancel(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "validation_error", "invalid booking id")
		return
	}

	if !h.ownsBooking(c, req.ID) {
		return
	}

	b, changed, err := h.service.Cancel(c.Request.Context(), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	msg := "booking cancelled"
	if !changed {
		msg = "booking already cancelled"
	}
	response.OK(c, http.StatusOK, msg, NewBookingResponse(b))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "validation_error", "invalid booking id")
		return
	}
	var body UpdateStatusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, booking.ErrInvalidStatus)
		return
	}

	b, err := h.service.UpdateStatus(c.Request.Context(), req.ID, body.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusOK, "booking status updated", NewBookingResponse(b))
}

func (h *Handler) CheckIn(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "validation_error", "invalid booking id")
		return
	}

	b, err := h.service.CheckIn(c.Request.Context(), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusOK, "booking checked in", NewBookingResponse(b))
}

// ownsBooking lets staff through and checks a student's ownership, writing the error response on failure.
func (h *Handler) ownsBooking(c *gin.Context, id string) bool {
	if auth.GetUserRole(c) != auth.RoleStudent {
		return true
	}
	b, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return false
	}
	if b.StudentID != auth.GetUserID(c) {
		response.Error(c, booking.ErrNotFound)
		return false
	}
	return true
}
