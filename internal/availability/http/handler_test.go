package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/library-booking-backend/internal/availability"
	"github.com/nekogravitycat/library-booking-backend/internal/directory"
	"github.com/nekogravitycat/library-booking-backend/internal/timeslot"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) ListAvailableTimeSlots(ctx context.Context, libraryID, date string) ([]availability.SlotAvailability, error) {
	args := m.Called(ctx, libraryID, date)
	res, _ := args.Get(0).([]availability.SlotAvailability)
	return res, args.Error(1)
}

func (m *mockService) ListAvailableSeats(ctx context.Context, libraryID, timeSlotID string) (*availability.SeatAvailability, error) {
	args := m.Called(ctx, libraryID, timeSlotID)
	res, _ := args.Get(0).(*availability.SeatAvailability)
	return res, args.Error(1)
}

func (m *mockService) FindAvailableSeats(ctx context.Context, libraryID, date, startTime, endTime string) (*availability.SeatAvailability, error) {
	args := m.Called(ctx, libraryID, date, startTime, endTime)
	res, _ := args.Get(0).(*availability.SeatAvailability)
	return res, args.Error(1)
}

const libID = "7d7a2a52-0f39-4d0c-9a53-0d9d1c1f8a11"

func newRouter(svc availability.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r.Group(""), NewHandler(svc))
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func TestListTimeSlotsEndpoint(t *testing.T) {
	svc := &mockService{}
	slot := &timeslot.TimeSlot{
		ID: "slot-1", LibraryID: libID, Date: time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC),
		StartTime: "09:00:00", EndTime: "12:00:00", Capacity: 3, BookedCount: 1, Status: timeslot.StatusAvailable,
	}
	svc.On("ListAvailableTimeSlots", mock.Anything, libID, "2026-06-10").
		Return([]availability.SlotAvailability{{Slot: slot, LiveCount: 1}}, nil)

	w := get(newRouter(svc), "/timeslots/available?libraryId="+libID+"&date=2026-06-10")
	require.Equal(t, http.StatusOK, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.True(t, env.Success)

	var items []SlotResponse
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].AvailableSpots)
	assert.True(t, items[0].IsBookable)
	assert.Equal(t, "2026-06-10", items[0].Date)
	svc.AssertExpectations(t)
}

func TestListTimeSlotsEndpointPastDate(t *testing.T) {
	svc := &mockService{}
	svc.On("ListAvailableTimeSlots", mock.Anything, libID, "2020-01-01").Return(nil, timeslot.ErrPastDate)

	w := get(newRouter(svc), "/timeslots/available?libraryId="+libID+"&date=2020-01-01")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"past_date"`)
}

func TestListTimeSlotsEndpointMissingParams(t *testing.T) {
	w := get(newRouter(&mockService{}), "/timeslots/available?date=2026-06-10")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListSeatsEndpointByWindow(t *testing.T) {
	svc := &mockService{}
	slot := &timeslot.TimeSlot{ID: "slot-1", Capacity: 2, Status: timeslot.StatusAvailable}
	svc.On("FindAvailableSeats", mock.Anything, libID, "2026-06-10", "09:00", "12:00").
		Return(&availability.SeatAvailability{Slot: slot, Seats: []*directory.Seat{{ID: "seat-1", Label: "A1", Status: directory.SeatAvailable}}}, nil)

	w := get(newRouter(svc), "/bookings/available?libraryId="+libID+"&date=2026-06-10&startTime=09:00&endTime=12:00")
	require.Equal(t, http.StatusOK, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var data SeatAvailabilityResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Seats, 1)
	assert.Equal(t, "A1", data.Seats[0].Label)
}

func TestListSeatsEndpointSlotNotFound(t *testing.T) {
	svc := &mockService{}
	svc.On("FindAvailableSeats", mock.Anything, libID, "2026-06-10", "09:00", "10:00").Return(nil, timeslot.ErrNotFound)

	w := get(newRouter(svc), "/bookings/available?libraryId="+libID+"&date=2026-06-10&startTime=09:00&endTime=10:00")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"time_slot_not_found"`)
}

func TestListSeatsEndpointIncompleteWindow(t *testing.T) {
	w := get(newRouter(&mockService{}), "/bookings/available?libraryId="+libID+"&date=2026-06-10")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"missing_parameters"`)
}
