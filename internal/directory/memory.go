package directory

import (
	"context"
	"sync"
)

// MemoryRepository is an in-process Repository for tests and local tooling.
type MemoryRepository struct {
	mu         sync.RWMutex
	students   map[string]*Student
	librarians map[string]*Librarian
	libraries  map[string]*Library
	plans      map[string]*Plan
	seats      map[string]*Seat
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		students:   map[string]*Student{},
		librarians: map[string]*Librarian{},
		libraries:  map[string]*Library{},
		plans:      map[string]*Plan{},
		seats:      map[string]*Seat{},
	}
}

func (m *MemoryRepository) PutStudent(s Student) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[s.ID] = &s
}

func (m *MemoryRepository) PutLibrarian(l Librarian) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.librarians[l.ID] = &l
}

func (m *MemoryRepository) PutLibrary(l Library) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.libraries[l.ID] = &l
}

func (m *MemoryRepository) PutPlan(p Plan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[p.ID] = &p
}

func (m *MemoryRepository) PutSeat(s Seat) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seats[s.ID] = &s
}

func (m *MemoryRepository) GetStudent(_ context.Context, id string) (*Student, error) {
	return get(m, m.students, id, ErrStudentNotFound)
}

func (m *MemoryRepository) GetLibrarian(_ context.Context, id string) (*Librarian, error) {
	return get(m, m.librarians, id, ErrLibrarianNotFound)
}

func (m *MemoryRepository) GetLibrary(_ context.Context, id string) (*Library, error) {
	return get(m, m.libraries, id, ErrLibraryNotFound)
}

func (m *MemoryRepository) GetPlan(_ context.Context, id string) (*Plan, error) {
	return get(m, m.plans, id, ErrPlanNotFound)
}

func (m *MemoryRepository) GetSeat(_ context.Context, id string) (*Seat, error) {
	return get(m, m.seats, id, ErrSeatNotFound)
}

func get[T any](m *MemoryRepository, items map[string]*T, id string, notFound error) (*T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := items[id]
	if !ok {
		return nil, notFound
	}
	cp := *v
	return &cp, nil
}
