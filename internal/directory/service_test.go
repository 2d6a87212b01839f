package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPlanForLibrary(t *testing.T) {
	repo := NewMemoryRepository()
	repo.PutPlan(Plan{ID: "plan-1", LibraryID: "lib-1", Name: "Monthly", Price: 50000})
	svc := NewService(repo)
	ctx := context.Background()

	p, err := svc.GetPlanForLibrary(ctx, "lib-1", "plan-1")
	require.NoError(t, err)
	assert.Equal(t, "Monthly", p.Name)

	_, err = svc.GetPlanForLibrary(ctx, "lib-2", "plan-1")
	assert.ErrorIs(t, err, ErrPlanNotFound)

	_, err = svc.GetPlanForLibrary(ctx, "lib-1", "missing")
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestLookupsReturnTypedNotFound(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	_, err := svc.GetStudent(ctx, "x")
	assert.ErrorIs(t, err, ErrStudentNotFound)
	assert.Equal(t, "student not found", err.Error())

	_, err = svc.GetLibrarian(ctx, "x")
	assert.ErrorIs(t, err, ErrLibrarianNotFound)

	_, err = svc.GetLibrary(ctx, "x")
	assert.ErrorIs(t, err, ErrLibraryNotFound)

	_, err = svc.GetSeat(ctx, "x")
	assert.ErrorIs(t, err, ErrSeatNotFound)
}

func TestSeatBookable(t *testing.T) {
	assert.True(t, (&Seat{Status: SeatAvailable, IsActive: true}).Bookable())
	assert.False(t, (&Seat{Status: SeatAvailable, IsActive: false}).Bookable())
	assert.False(t, (&Seat{Status: SeatReserved, IsActive: true}).Bookable())
}

func TestMemoryRepositoryReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	repo.PutSeat(Seat{ID: "seat-1", Status: SeatAvailable, IsActive: true})

	s, err := repo.GetSeat(context.Background(), "seat-1")
	require.NoError(t, err)
	s.Status = SeatMaintenance

	again, _ := repo.GetSeat(context.Background(), "seat-1")
	assert.Equal(t, SeatAvailable, again.Status)
}
