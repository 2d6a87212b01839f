package availability

import (
	"context"
	"time"

	"github.com/nekogravitycat/library-booking-backend/internal/directory"
	"github.com/nekogravitycat/library-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/library-booking-backend/internal/timeslot"
)

var ErrMissingParams = apperror.Validation("missing_parameters", "libraryId and date are required")

type Service interface {
	ListAvailableTimeSlots(ctx context.Context, libraryID, date string) ([]SlotAvailability, error)
	ListAvailableSeats(ctx context.Context, libraryID, timeSlotID string) (*SeatAvailability, error)
	// FindAvailableSeats resolves the slot by its window, then lists its free seats.
	FindAvailableSeats(ctx context.Context, libraryID, date, startTime, endTime string) (*SeatAvailability, error)
}

type service struct {
	repo      Repository
	directory directory.Service
	now       func() time.Time
}

func NewService(repo Repository, dir directory.Service, now func() time.Time) Service {
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, directory: dir, now: now}
}

func (s *service) parseBookableDate(date string) (time.Time, error) {
	d, err := timeslot.ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	if d.Before(timeslot.Today(s.now())) {
		return time.Time{}, timeslot.ErrPastDate
	}
	return d, nil
}

func (s *service) ListAvailableTimeSlots(ctx context.Context, libraryID, date string) ([]SlotAvailability, error) {
	if libraryID == "" || date == "" {
		return nil, ErrMissingParams
	}
	d, err := s.parseBookableDate(date)
	if err != nil {
		return nil, err
	}
	if _, err := s.directory.GetLibrary(ctx, libraryID); err != nil {
		return nil, err
	}
	return s.repo.ListOpenSlots(ctx, libraryID, d)
}

func (s *service) ListAvailableSeats(ctx context.Context, libraryID, timeSlotID string) (*SeatAvailability, error) {
	slot, err := s.repo.GetSlot(ctx, timeSlotID)
	if err != nil {
		return nil, err
	}
	if slot.LibraryID != libraryID {
		return nil, timeslot.ErrNotFound
	}
	return s.freeSeats(ctx, slot)
}

func (s *service) FindAvailableSeats(ctx context.Context, libraryID, date, startTime, endTime string) (*SeatAvailability, error) {
	if libraryID == "" || date == "" {
		return nil, ErrMissingParams
	}
	d, err := s.parseBookableDate(date)
	if err != nil {
		return nil, err
	}
	start, err := timeslot.NormalizeClock(startTime)
	if err != nil {
		return nil, err
	}
	end, err := timeslot.NormalizeClock(endTime)
	if err != nil {
		return nil, err
	}

	slot, err := s.repo.FindSlot(ctx, libraryID, d, start, end)
	if err != nil {
		return nil, err
	}
	return s.freeSeats(ctx, slot)
}

// A slot that is not open has no free seats, whatever the seat cache says.
func (s *service) freeSeats(ctx context.Context, slot *timeslot.TimeSlot) (*SeatAvailability, error) {
	if slot.Status != timeslot.StatusAvailable {
		return &SeatAvailability{Slot: slot, Seats: []*directory.Seat{}}, nil
	}
	seats, err := s.repo.ListFreeSeats(ctx, slot.LibraryID, slot.ID)
	if err != nil {
		return nil, err
	}
	return &SeatAvailability{Slot: slot, Seats: seats}, nil
}
