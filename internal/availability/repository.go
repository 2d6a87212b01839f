package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nekogravitycat/library-booking-backend/internal/db"
	"github.com/nekogravitycat/library-booking-backend/internal/directory"
	"github.com/nekogravitycat/library-booking-backend/internal/timeslot"
)

type Repository interface {
	// ListOpenSlots returns AVAILABLE slots of a library on date with their live booking counts.
	ListOpenSlots(ctx context.Context, libraryID string, date time.Time) ([]SlotAvailability, error)
	GetSlot(ctx context.Context, id string) (*timeslot.TimeSlot, error)
	// FindSlot returns the slot with exactly this date and window.
	FindSlot(ctx context.Context, libraryID string, date time.Time, start, end string) (*timeslot.TimeSlot, error)
	// ListFreeSeats returns AVAILABLE active seats with no non-cancelled booking in the slot.
	ListFreeSeats(ctx context.Context, libraryID, timeSlotID string) ([]*directory.Seat, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

const liveCountExpr = "(SELECT count(*) FROM public.bookings b WHERE b.time_slot_id = t.id AND b.status <> 'CANCELLED') AS live_count"

func (r *pgxRepository) ListOpenSlots(ctx context.Context, libraryID string, date time.Time) ([]SlotAvailability, error) {
	cols := append(timeslot.Columns("t"), liveCountExpr)
	query, args, err := psql.Select(cols...).
		From("public.time_slots t").
		Where(squirrel.Eq{"t.library_id": libraryID, "t.date": date, "t.status": timeslot.StatusAvailable}).
		OrderBy("t.start_time").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list open slots query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list open slots failed: %w", err)
	}
	defer rows.Close()

	var out []SlotAvailability
	for rows.Next() {
		var t timeslot.TimeSlot
		var live int
		if err := rows.Scan(
			&t.ID, &t.LibraryID, &t.Date, &t.StartTime, &t.EndTime,
			&t.Capacity, &t.BookedCount, &t.Status, &t.CreatedAt, &t.UpdatedAt, &live,
		); err != nil {
			return nil, fmt.Errorf("scan open slot failed: %w", err)
		}
		out = append(out, SlotAvailability{Slot: &t, LiveCount: live})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate open slots failed: %w", err)
	}
	return out, nil
}

func (r *pgxRepository) GetSlot(ctx context.Context, id string) (*timeslot.TimeSlot, error) {
	query, args, err := psql.Select(timeslot.Columns("")...).
		From("public.time_slots").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get slot query failed: %w", err)
	}
	return scanSlot(r.pool.QueryRow(ctx, query, args...))
}

func (r *pgxRepository) FindSlot(ctx context.Context, libraryID string, date time.Time, start, end string) (*timeslot.TimeSlot, error) {
	query, args, err := psql.Select(timeslot.Columns("")...).
		From("public.time_slots").
		Where(squirrel.Eq{"library_id": libraryID, "date": date}).
		Where(squirrel.Expr("start_time = ?::time", start)).
		Where(squirrel.Expr("end_time = ?::time", end)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find slot query failed: %w", err)
	}
	return scanSlot(r.pool.QueryRow(ctx, query, args...))
}

func scanSlot(row pgx.Row) (*timeslot.TimeSlot, error) {
	t, err := timeslot.Scan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidText(err) {
			return nil, timeslot.ErrNotFound
		}
		return nil, fmt.Errorf("get slot failed: %w", err)
	}
	return t, nil
}

func (r *pgxRepository) ListFreeSeats(ctx context.Context, libraryID, timeSlotID string) ([]*directory.Seat, error) {
	// Built with ? placeholders so the outer query numbers them.
	taken := squirrel.Select("1").
		From("public.bookings b").
		Where("b.seat_id = s.id").
		Where(squirrel.Eq{"b.time_slot_id": timeSlotID}).
		Where(squirrel.Eq{"b.status": []string{"ACTIVE", "COMPLETED"}})

	takenSQL, takenArgs, err := taken.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build taken seats subquery failed: %w", err)
	}

	query, args, err := psql.Select(directory.SeatColumns("s")...).
		From("public.seats s").
		Where(squirrel.Eq{"s.library_id": libraryID, "s.status": directory.SeatAvailable, "s.is_active": true}).
		Where(squirrel.Expr("NOT EXISTS ("+takenSQL+")", takenArgs...)).
		OrderBy("s.label").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list free seats query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list free seats failed: %w", err)
	}
	defer rows.Close()

	var seats []*directory.Seat
	for rows.Next() {
		s, err := directory.ScanSeat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan seat failed: %w", err)
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate free seats failed: %w", err)
	}
	return seats, nil
}
