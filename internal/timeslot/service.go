package timeslot

import (
	"context"
	"time"

	"github.com/nekogravitycat/library-booking-backend/internal/directory"
)

type CreateRequest struct {
	ActorID      string
	ActorIsAdmin bool
	LibraryID    string
	Date         string
	StartTime    string
	EndTime      string
	Capacity     int
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*TimeSlot, error)
	GetByID(ctx context.Context, id string) (*TimeSlot, error)
	List(ctx context.Context, filter Filter) ([]*TimeSlot, error)
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

func (s *service) Create(ctx context.Context, req CreateRequest) (*TimeSlot, error) {
	date, err := ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if date.Before(Today(s.now())) {
		return nil, ErrPastDate
	}

	start, err := ParseClock(req.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := ParseClock(req.EndTime)
	if err != nil {
		return nil, err
	}
	if start >= end {
		return nil, ErrInvalidRange
	}
	if req.Capacity < 0 {
		return nil, ErrBadCapacity
	}

	lib, err := s.directory.GetLibrary(ctx, req.LibraryID)
	if err != nil {
		return nil, err
	}
	if !req.ActorIsAdmin && lib.LibrarianID != req.ActorID {
		return nil, ErrNotLibrarian
	}

	slot := &TimeSlot{
		LibraryID: req.LibraryID,
		Date:      date,
		StartTime: FormatClock(start),
		EndTime:   FormatClock(end),
		Capacity:  req.Capacity,
		Status:    StatusFor(StatusAvailable, 0, req.Capacity),
	}
	if err := s.repo.Create(ctx, slot); err != nil {
		return nil, err
	}
	return slot, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*TimeSlot, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*TimeSlot, error) {
	return s.repo.List(ctx, filter)
}
