package availability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/library-booking-backend/internal/directory"
	"github.com/nekogravitycat/library-booking-backend/internal/timeslot"
)

type fakeRepo struct {
	slots []*timeslot.TimeSlot
	seats []*directory.Seat
	// live[slotID] holds seat ids with an ACTIVE or COMPLETED booking.
	live map[string][]string
}

func (f *fakeRepo) ListOpenSlots(_ context.Context, libraryID string, date time.Time) ([]SlotAvailability, error) {
	var out []SlotAvailability
	for _, s := range f.slots {
		if s.LibraryID == libraryID && s.Date.Equal(date) && s.Status == timeslot.StatusAvailable {
			out = append(out, SlotAvailability{Slot: s, LiveCount: len(f.live[s.ID])})
		}
	}
	return out, nil
}

func (f *fakeRepo) GetSlot(_ context.Context, id string) (*timeslot.TimeSlot, error) {
	for _, s := range f.slots {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, timeslot.ErrNotFound
}

func (f *fakeRepo) FindSlot(_ context.Context, libraryID string, date time.Time, start, end string) (*timeslot.TimeSlot, error) {
	for _, s := range f.slots {
		if s.LibraryID == libraryID && s.Date.Equal(date) && s.StartTime == start && s.EndTime == end {
			return s, nil
		}
	}
	return nil, timeslot.ErrNotFound
}

func (f *fakeRepo) ListFreeSeats(_ context.Context, libraryID, timeSlotID string) ([]*directory.Seat, error) {
	var out []*directory.Seat
	for _, s := range f.seats {
		if s.LibraryID != libraryID || !s.Bookable() {
			continue
		}
		taken := false
		for _, id := range f.live[timeSlotID] {
			if id == s.ID {
				taken = true
			}
		}
		if !taken {
			out = append(out, s)
		}
	}
	return out, nil
}

var (
	day   = time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	clock = func() time.Time { return time.Date(2026, 6, 9, 18, 0, 0, 0, time.UTC) }
)

func newFixture() (*fakeRepo, Service) {
	repo := &fakeRepo{
		slots: []*timeslot.TimeSlot{
			{ID: "slot-am", LibraryID: "lib-1", Date: day, StartTime: "09:00:00", EndTime: "12:00:00", Capacity: 2, BookedCount: 1, Status: timeslot.StatusAvailable},
			{ID: "slot-pm", LibraryID: "lib-1", Date: day, StartTime: "13:00:00", EndTime: "17:00:00", Capacity: 1, BookedCount: 1, Status: timeslot.StatusBooked},
		},
		seats: []*directory.Seat{
			{ID: "seat-1", LibraryID: "lib-1", Label: "A1", Status: directory.SeatAvailable, IsActive: true},
			// Cache lags: the seat still says AVAILABLE though it is booked in slot-am.
			{ID: "seat-2", LibraryID: "lib-1", Label: "A2", Status: directory.SeatAvailable, IsActive: true},
			{ID: "seat-3", LibraryID: "lib-1", Label: "A3", Status: directory.SeatMaintenance, IsActive: true},
		},
		live: map[string][]string{"slot-am": {"seat-2"}, "slot-pm": {"seat-1"}},
	}

	dir := directory.NewMemoryRepository()
	dir.PutLibrary(directory.Library{ID: "lib-1", Name: "Central"})
	return repo, NewService(repo, directory.NewService(dir), clock)
}

func TestListAvailableTimeSlots(t *testing.T) {
	_, svc := newFixture()
	ctx := context.Background()

	slots, err := svc.ListAvailableTimeSlots(ctx, "lib-1", "2026-06-10")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "slot-am", slots[0].Slot.ID)
	assert.Equal(t, 1, slots[0].AvailableSpots())
	assert.True(t, slots[0].IsBookable())

	_, err = svc.ListAvailableTimeSlots(ctx, "lib-1", "2026-06-08")
	assert.ErrorIs(t, err, timeslot.ErrPastDate)

	_, err = svc.ListAvailableTimeSlots(ctx, "lib-9", "2026-06-10")
	assert.ErrorIs(t, err, directory.ErrLibraryNotFound)

	_, err = svc.ListAvailableTimeSlots(ctx, "lib-1", "")
	assert.ErrorIs(t, err, ErrMissingParams)
}

func TestZeroCapacitySlotIsNotListed(t *testing.T) {
	repo, svc := newFixture()
	repo.slots = append(repo.slots, &timeslot.TimeSlot{
		ID: "slot-closed", LibraryID: "lib-1", Date: day, StartTime: "18:00:00", EndTime: "20:00:00",
		Capacity: 0, Status: timeslot.StatusFor(timeslot.StatusAvailable, 0, 0),
	})

	slots, err := svc.ListAvailableTimeSlots(context.Background(), "lib-1", "2026-06-10")
	require.NoError(t, err)
	for _, s := range slots {
		assert.NotEqual(t, "slot-closed", s.Slot.ID)
		assert.True(t, s.IsBookable())
	}
}

func TestListAvailableSeatsExcludesBookedSeatsDespiteCache(t *testing.T) {
	_, svc := newFixture()

	res, err := svc.ListAvailableSeats(context.Background(), "lib-1", "slot-am")
	require.NoError(t, err)
	require.Len(t, res.Seats, 1)
	assert.Equal(t, "seat-1", res.Seats[0].ID)
}

func TestListAvailableSeatsSlotRules(t *testing.T) {
	_, svc := newFixture()
	ctx := context.Background()

	res, err := svc.ListAvailableSeats(ctx, "lib-1", "slot-pm")
	require.NoError(t, err)
	assert.Empty(t, res.Seats, "a full slot offers no seats")

	_, err = svc.ListAvailableSeats(ctx, "lib-2", "slot-am")
	assert.ErrorIs(t, err, timeslot.ErrNotFound)
}

func TestFindAvailableSeatsByWindow(t *testing.T) {
	_, svc := newFixture()
	ctx := context.Background()

	res, err := svc.FindAvailableSeats(ctx, "lib-1", "2026-06-10", "09:00", "12:00")
	require.NoError(t, err)
	assert.Equal(t, "slot-am", res.Slot.ID)
	assert.Len(t, res.Seats, 1)

	_, err = svc.FindAvailableSeats(ctx, "lib-1", "2026-06-10", "10:00", "12:00")
	assert.ErrorIs(t, err, timeslot.ErrNotFound)

	_, err = svc.FindAvailableSeats(ctx, "lib-1", "2026-06-10", "nine", "12:00")
	assert.ErrorIs(t, err, timeslot.ErrInvalidTime)
}
