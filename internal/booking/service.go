package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nekogravitycat/library-booking-backend/internal/directory"
	"github.com/nekogravitycat/library-booking-backend/internal/events"
	"github.com/nekogravitycat/library-booking-backend/internal/pkg/money"
	"github.com/nekogravitycat/library-booking-backend/internal/timeslot"
)

type CreateRequest struct {
	StudentID  string
	LibraryID  string
	PlanID     string
	TimeSlotID string
	SeatID     string
	// TotalAmount overrides the plan price when set.
	TotalAmount *money.Minor
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Booking, error)
	// Cancel reports changed=false when the booking was already cancelled.
	Cancel(ctx context.Context, id string) (b *Booking, changed bool, err error)
	UpdateStatus(ctx context.Context, id string, status string) (*Booking, error)
	CheckIn(ctx context.Context, id string) (*Booking, error)
	GetByID(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
}

type service struct {
	store     Store
	directory directory.Service
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(store Store, dir directory.Service, publisher events.Publisher, logger *slog.Logger, now func() time.Time) Service {
	if now == nil {
		now = time.Now
	}
	return &service{
		store:     store,
		directory: dir,
		publisher: publisher,
		logger:    logger,
		now:       now,
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Booking, error) {
	// 1. Required fields
	if req.StudentID == "" || req.LibraryID == "" || req.PlanID == "" || req.TimeSlotID == "" || req.SeatID == "" {
		return nil, ErrMissingFields
	}
	if req.TotalAmount != nil && *req.TotalAmount < 0 {
		return nil, ErrInvalidAmount
	}

	// 2-4. Referenced student, library and plan
	if _, err := s.directory.GetStudent(ctx, req.StudentID); err != nil {
		return nil, err
	}
	if _, err := s.directory.GetLibrary(ctx, req.LibraryID); err != nil {
		return nil, err
	}
	plan, err := s.directory.GetPlanForLibrary(ctx, req.LibraryID, req.PlanID)
	if err != nil {
		return nil, err
	}

	// 5-7. Slot, seat and pair checks. These only fail fast; the same checks run again under lock.
	slot, err := s.store.GetSlot(ctx, req.TimeSlotID)
	if err != nil {
		return nil, slotErr(err)
	}
	seat, err := s.store.GetSeat(ctx, req.SeatID)
	if err != nil {
		return nil, seatErr(err)
	}
	if slot.LibraryID != req.LibraryID {
		return nil, ErrSlotUnavailable
	}
	if seat.LibraryID != req.LibraryID {
		return nil, ErrSeatUnavailable
	}
	// A live booking for the exact pair explains a full slot or reserved seat better than either.
	taken, err := s.store.HasLiveBooking(ctx, req.SeatID, req.TimeSlotID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSeatAlreadyBooked
	}
	if !slot.Bookable() {
		return nil, ErrSlotUnavailable
	}
	if !seat.Bookable() {
		return nil, ErrSeatUnavailable
	}

	total := plan.Price
	if req.TotalAmount != nil {
		total = *req.TotalAmount
	}

	b := &Booking{
		StudentID:   req.StudentID,
		LibraryID:   req.LibraryID,
		PlanID:      req.PlanID,
		TimeSlotID:  req.TimeSlotID,
		SeatID:      req.SeatID,
		Status:      StatusActive,
		TotalAmount: total,
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		slot, err := tx.LockSlot(ctx, req.TimeSlotID)
		if err != nil {
			return slotErr(err)
		}
		seat, err := tx.LockSeat(ctx, req.SeatID)
		if err != nil {
			return seatErr(err)
		}

		taken, err := tx.HasLiveBooking(ctx, req.SeatID, req.TimeSlotID)
		if err != nil {
			return err
		}
		if taken {
			return ErrSeatAlreadyBooked
		}
		booked, err := tx.CountBooked(ctx, req.TimeSlotID)
		if err != nil {
			return err
		}
		if slot.Status != timeslot.StatusAvailable || booked >= slot.Capacity {
			return ErrSlotUnavailable
		}
		if !seat.Bookable() {
			return ErrSeatUnavailable
		}

		// Plan duration does not widen the window; a booking is valid on its slot's date.
		b.ValidFrom = slot.Date
		b.ValidTo = slot.Date
		if err := tx.Insert(ctx, b); err != nil {
			return err
		}

		if err := s.recountSlot(ctx, tx, slot); err != nil {
			return err
		}
		return tx.SetSeatStatus(ctx, req.SeatID, directory.SeatReserved)
	})
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, s.publisher, s.logger, events.BookingCreated, bookingEvent(b))
	return s.reload(ctx, b), nil
}

func (s *service) Cancel(ctx context.Context, id string) (*Booking, bool, error) {
	var (
		b       *Booking
		changed bool
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		b, err = tx.LockBooking(ctx, id)
		if err != nil {
			return err
		}
		if b.Status == StatusCancelled {
			return nil
		}
		if !CanTransition(b.Status, StatusCancelled) {
			return ErrInvalidTransition
		}

		slot, err := tx.LockSlot(ctx, b.TimeSlotID)
		if err != nil {
			return err
		}
		seat, err := tx.LockSeat(ctx, b.SeatID)
		if err != nil {
			return err
		}

		b.Status = StatusCancelled
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return err
		}
		if err := s.recountSlot(ctx, tx, slot); err != nil {
			return err
		}
		if err := releaseSeat(ctx, tx, seat); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if changed {
		events.Emit(ctx, s.publisher, s.logger, events.BookingCancelled, bookingEvent(b))
	}
	return s.reload(ctx, b), changed, nil
}

func (s *service) UpdateStatus(ctx context.Context, id string, status string) (*Booking, error) {
	target, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	if target == StatusCancelled {
		b, _, err := s.Cancel(ctx, id)
		return b, err
	}

	var b *Booking
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		b, err = tx.LockBooking(ctx, id)
		if err != nil {
			return err
		}
		if b.Status == target {
			return nil
		}
		if !CanTransition(b.Status, target) {
			return ErrInvalidTransition
		}

		seat, err := tx.LockSeat(ctx, b.SeatID)
		if err != nil {
			return err
		}

		b.Status = target
		if target == StatusCompleted && b.CheckOutTime == nil {
			now := s.now().UTC()
			b.CheckOutTime = &now
		}
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return err
		}
		// COMPLETED and EXPIRED still count toward the slot, so only the seat changes.
		return releaseSeat(ctx, tx, seat)
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, b), nil
}

func (s *service) CheckIn(ctx context.Context, id string) (*Booking, error) {
	var b *Booking
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		b, err = tx.LockBooking(ctx, id)
		if err != nil {
			return err
		}
		if b.Status != StatusActive {
			return ErrNotCheckedInable
		}
		if b.CheckInTime != nil {
			return ErrAlreadyCheckedIn
		}

		seat, err := tx.LockSeat(ctx, b.SeatID)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		b.CheckInTime = &now
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return err
		}
		if seat.Status == directory.SeatMaintenance {
			return nil
		}
		return tx.SetSeatStatus(ctx, seat.ID, directory.SeatOccupied)
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, b), nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Booking, error) {
	return s.store.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	return s.store.List(ctx, filter)
}

// recountSlot rewrites booked_count from the Booking table and derives the slot status from it.
func (s *service) recountSlot(ctx context.Context, tx Tx, slot *timeslot.TimeSlot) error {
	count, err := tx.CountBooked(ctx, slot.ID)
	if err != nil {
		return err
	}
	return tx.UpdateSlotCount(ctx, slot.ID, count, timeslot.StatusFor(slot.Status, count, slot.Capacity))
}

// releaseSeat frees a seat held by a booking. Seats under maintenance keep that status.
func releaseSeat(ctx context.Context, tx Tx, seat *directory.Seat) error {
	if seat.Status == directory.SeatMaintenance || seat.Status == directory.SeatAvailable {
		return nil
	}
	return tx.SetSeatStatus(ctx, seat.ID, directory.SeatAvailable)
}

// reload fetches the joined view after commit, falling back to the written row.
func (s *service) reload(ctx context.Context, b *Booking) *Booking {
	full, err := s.store.GetByID(ctx, b.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "reload booking after commit failed", "booking_id", b.ID, "error", err)
		return b
	}
	return full
}

func slotErr(err error) error {
	if errors.Is(err, timeslot.ErrNotFound) {
		return ErrSlotUnavailable
	}
	return err
}

func seatErr(err error) error {
	if errors.Is(err, directory.ErrSeatNotFound) {
		return ErrSeatUnavailable
	}
	return err
}

func bookingEvent(b *Booking) events.BookingEvent {
	return events.BookingEvent{
		BookingID:  b.ID,
		StudentID:  b.StudentID,
		LibraryID:  b.LibraryID,
		TimeSlotID: b.TimeSlotID,
		SeatID:     b.SeatID,
		Status:     string(b.Status),
	}
}
