package timeslot

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/library-booking-backend/internal/directory"
	"github.com/nekogravitycat/library-booking-backend/internal/pkg/apperror"
)

// fakeRepo applies the same overlap rule as the datastore query.
type fakeRepo struct {
	mu    sync.Mutex
	slots []*TimeSlot
}

func (f *fakeRepo) Create(_ context.Context, slot *TimeSlot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ns, _ := ParseClock(slot.StartTime)
	ne, _ := ParseClock(slot.EndTime)
	for _, s := range f.slots {
		if s.LibraryID != slot.LibraryID || !s.Date.Equal(slot.Date) {
			continue
		}
		es, _ := ParseClock(s.StartTime)
		ee, _ := ParseClock(s.EndTime)
		if Overlaps(es, ee, ns, ne) {
			return ErrOverlap
		}
	}
	slot.ID = "slot-" + slot.StartTime
	cp := *slot
	f.slots = append(f.slots, &cp)
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*TimeSlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.slots {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeRepo) List(_ context.Context, filter Filter) ([]*TimeSlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*TimeSlot
	for _, s := range f.slots {
		if s.LibraryID == filter.LibraryID {
			out = append(out, s)
		}
	}
	return out, nil
}

func newTestService() Service {
	dir := directory.NewMemoryRepository()
	dir.PutLibrary(directory.Library{ID: "lib-1", LibrarianID: "librarian-1", Name: "Central"})
	now := func() time.Time { return time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC) }
	return NewService(&fakeRepo{}, directory.NewService(dir), now)
}

func validRequest() CreateRequest {
	return CreateRequest{
		ActorID:   "librarian-1",
		LibraryID: "lib-1",
		Date:      "2026-05-02",
		StartTime: "09:00",
		EndTime:   "12:00",
		Capacity:  10,
	}
}

func TestCreateTimeSlot(t *testing.T) {
	ctx := context.Background()

	t.Run("Create: Success normalizes times", func(t *testing.T) {
		svc := newTestService()
		slot, err := svc.Create(ctx, validRequest())
		require.NoError(t, err)
		assert.Equal(t, "09:00:00", slot.StartTime)
		assert.Equal(t, "12:00:00", slot.EndTime)
		assert.Equal(t, StatusAvailable, slot.Status)
	})

	t.Run("Create: Zero capacity starts fully booked", func(t *testing.T) {
		svc := newTestService()
		req := validRequest()
		req.Capacity = 0
		slot, err := svc.Create(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, StatusBooked, slot.Status)
		assert.Equal(t, 0, slot.BookedCount)
	})

	t.Run("Create: Overlap rejected, adjacent accepted", func(t *testing.T) {
		svc := newTestService()
		_, err := svc.Create(ctx, validRequest())
		require.NoError(t, err)

		overlapping := validRequest()
		overlapping.StartTime, overlapping.EndTime = "11:00", "13:00"
		_, err = svc.Create(ctx, overlapping)
		assert.ErrorIs(t, err, ErrOverlap)

		adjacent := validRequest()
		adjacent.StartTime, adjacent.EndTime = "12:00", "14:00"
		_, err = svc.Create(ctx, adjacent)
		assert.NoError(t, err)
	})

	t.Run("Create: Validation failures", func(t *testing.T) {
		svc := newTestService()

		past := validRequest()
		past.Date = "2026-04-30"
		_, err := svc.Create(ctx, past)
		assert.ErrorIs(t, err, ErrPastDate)

		inverted := validRequest()
		inverted.StartTime, inverted.EndTime = "12:00", "09:00"
		_, err = svc.Create(ctx, inverted)
		assert.ErrorIs(t, err, ErrInvalidRange)

		negative := validRequest()
		negative.Capacity = -1
		_, err = svc.Create(ctx, negative)
		assert.ErrorIs(t, err, ErrBadCapacity)
	})

	t.Run("Create: Library missing or foreign", func(t *testing.T) {
		svc := newTestService()

		missing := validRequest()
		missing.LibraryID = "lib-x"
		_, err := svc.Create(ctx, missing)
		assert.ErrorIs(t, err, directory.ErrLibraryNotFound)

		stranger := validRequest()
		stranger.ActorID = "librarian-2"
		_, err = svc.Create(ctx, stranger)
		appErr, ok := apperror.As(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusForbidden, appErr.Code)

		stranger.ActorIsAdmin = true
		_, err = svc.Create(ctx, stranger)
		assert.NoError(t, err)
	})
}
