package directory

import "context"

// Service exposes directory lookups to other modules.
type Service interface {
	GetStudent(ctx context.Context, id string) (*Student, error)
	GetLibrarian(ctx context.Context, id string) (*Librarian, error)
	GetLibrary(ctx context.Context, id string) (*Library, error)
	GetPlan(ctx context.Context, id string) (*Plan, error)
	GetSeat(ctx context.Context, id string) (*Seat, error)
	// GetPlanForLibrary returns the plan only when it belongs to libraryID.
	GetPlanForLibrary(ctx context.Context, libraryID, planID string) (*Plan, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetStudent(ctx context.Context, id string) (*Student, error) {
	return s.repo.GetStudent(ctx, id)
}

func (s *service) GetLibrarian(ctx context.Context, id string) (*Librarian, error) {
	return s.repo.GetLibrarian(ctx, id)
}

func (s *service) GetLibrary(ctx context.Context, id string) (*Library, error) {
	return s.repo.GetLibrary(ctx, id)
}

func (s *service) GetPlan(ctx context.Context, id string) (*Plan, error) {
	return s.repo.GetPlan(ctx, id)
}

func (s *service) GetSeat(ctx context.Context, id string) (*Seat, error) {
	return s.repo.GetSeat(ctx, id)
}

func (s *service) GetPlanForLibrary(ctx context.Context, libraryID, planID string) (*Plan, error) {
	p, err := s.repo.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	// A plan of another library is reported as missing, not forbidden.
	if p.LibraryID != libraryID {
		return nil, ErrPlanNotFound
	}
	return p, nil
}
