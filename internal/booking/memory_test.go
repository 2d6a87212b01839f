package booking

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/library-booking-backend/internal/directory"
	"github.com/nekogravitycat/library-booking-backend/internal/timeslot"
)

// memStore is an in-memory Store. WithinTx holds one mutex for the whole
// closure, which stands in for the row locks, and discards writes on error.
type memStore struct {
	mu       sync.Mutex
	slots    map[string]timeslot.TimeSlot
	seats    map[string]directory.Seat
	bookings map[string]Booking
	clock    func() time.Time
}

func newMemStore() *memStore {
	return &memStore{
		slots:    map[string]timeslot.TimeSlot{},
		seats:    map[string]directory.Seat{},
		bookings: map[string]Booking{},
		clock:    time.Now,
	}
}

func (m *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{
		slots:    maps.Clone(m.slots),
		seats:    maps.Clone(m.seats),
		bookings: maps.Clone(m.bookings),
		clock:    m.clock,
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.slots, m.seats, m.bookings = tx.slots, tx.seats, tx.bookings
	return nil
}

func (m *memStore) view() *memTx {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &memTx{slots: maps.Clone(m.slots), seats: maps.Clone(m.seats), bookings: maps.Clone(m.bookings)}
}

func (m *memStore) GetSlot(ctx context.Context, id string) (*timeslot.TimeSlot, error) {
	return m.view().LockSlot(ctx, id)
}

func (m *memStore) GetSeat(ctx context.Context, id string) (*directory.Seat, error) {
	return m.view().LockSeat(ctx, id)
}

func (m *memStore) HasLiveBooking(ctx context.Context, seatID, timeSlotID string) (bool, error) {
	return m.view().HasLiveBooking(ctx, seatID, timeSlotID)
}

func (m *memStore) GetByID(ctx context.Context, id string) (*Booking, error) {
	return m.view().LockBooking(ctx, id)
}

func (m *memStore) List(_ context.Context, f Filter) ([]*Booking, int, error) {
	v := m.view()
	var all []*Booking
	for _, b := range v.bookings {
		if (f.StudentID == "" || b.StudentID == f.StudentID) &&
			(f.LibraryID == "" || b.LibraryID == f.LibraryID) &&
			(f.TimeSlotID == "" || b.TimeSlotID == f.TimeSlotID) &&
			(f.Status == "" || b.Status == f.Status) {
			all = append(all, &b)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	start := min((f.Page-1)*f.PageSize, total)
	end := min(start+f.PageSize, total)
	return all[start:end], total, nil
}

func (m *memStore) slot(id string) timeslot.TimeSlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slots[id]
}

func (m *memStore) seat(id string) directory.Seat {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seats[id]
}

type memTx struct {
	slots    map[string]timeslot.TimeSlot
	seats    map[string]directory.Seat
	bookings map[string]Booking
	clock    func() time.Time
}

func (t *memTx) LockSlot(_ context.Context, id string) (*timeslot.TimeSlot, error) {
	s, ok := t.slots[id]
	if !ok {
		return nil, timeslot.ErrNotFound
	}
	return &s, nil
}

func (t *memTx) LockSeat(_ context.Context, id string) (*directory.Seat, error) {
	s, ok := t.seats[id]
	if !ok {
		return nil, directory.ErrSeatNotFound
	}
	return &s, nil
}

func (t *memTx) LockBooking(_ context.Context, id string) (*Booking, error) {
	b, ok := t.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (t *memTx) HasLiveBooking(_ context.Context, seatID, timeSlotID string) (bool, error) {
	for _, b := range t.bookings {
		if b.SeatID == seatID && b.TimeSlotID == timeSlotID && b.Status.live() {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) CountBooked(_ context.Context, timeSlotID string) (int, error) {
	n := 0
	for _, b := range t.bookings {
		if b.TimeSlotID == timeSlotID && b.Status != StatusCancelled {
			n++
		}
	}
	return n, nil
}

func (t *memTx) Insert(_ context.Context, b *Booking) error {
	// Mirrors the partial unique index on (seat_id, time_slot_id).
	for _, other := range t.bookings {
		if other.SeatID == b.SeatID && other.TimeSlotID == b.TimeSlotID && other.Status.live() {
			return ErrDuplicateBooking
		}
	}
	b.ID = uuid.NewString()
	b.CreatedAt = t.clock()
	b.UpdatedAt = b.CreatedAt
	t.bookings[b.ID] = *b
	return nil
}

func (t *memTx) UpdateBooking(_ context.Context, b *Booking) error {
	if _, ok := t.bookings[b.ID]; !ok {
		return ErrNotFound
	}
	t.bookings[b.ID] = *b
	return nil
}

func (t *memTx) UpdateSlotCount(_ context.Context, timeSlotID string, bookedCount int, status timeslot.Status) error {
	s := t.slots[timeSlotID]
	s.BookedCount = bookedCount
	s.Status = status
	t.slots[timeSlotID] = s
	return nil
}

func (t *memTx) SetSeatStatus(_ context.Context, seatID string, status directory.SeatStatus) error {
	s := t.seats[seatID]
	s.Status = status
	t.seats[seatID] = s
	return nil
}
