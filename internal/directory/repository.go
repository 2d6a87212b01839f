package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nekogravitycat/library-booking-backend/internal/db"
)

// Repository defines read access to the referenced entities.
type Repository interface {
	GetStudent(ctx context.Context, id string) (*Student, error)
	GetLibrarian(ctx context.Context, id string) (*Librarian, error)
	GetLibrary(ctx context.Context, id string) (*Library, error)
	GetPlan(ctx context.Context, id string) (*Plan, error)
	GetSeat(ctx context.Context, id string) (*Seat, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// notFound maps a missing row, or an id Postgres cannot parse as a uuid, to notFoundErr.
func notFound(err error, notFoundErr error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidText(err) {
		return notFoundErr
	}
	return fmt.Errorf("get %s failed: %w", what, err)
}

func (r *pgxRepository) GetStudent(ctx context.Context, id string) (*Student, error) {
	query, args, err := psql.Select("id", "name", "email", "phone", "created_at").
		From("public.students").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get student query failed: %w", err)
	}

	var s Student
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.CreatedAt); err != nil {
		return nil, notFound(err, ErrStudentNotFound, "student")
	}
	return &s, nil
}

func (r *pgxRepository) GetLibrarian(ctx context.Context, id string) (*Librarian, error) {
	query, args, err := psql.Select("id", "name", "email", "payout_account_id", "created_at").
		From("public.librarians").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get librarian query failed: %w", err)
	}

	var l Librarian
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&l.ID, &l.Name, &l.Email, &l.PayoutAccountID, &l.CreatedAt); err != nil {
		return nil, notFound(err, ErrLibrarianNotFound, "librarian")
	}
	return &l, nil
}

func (r *pgxRepository) GetLibrary(ctx context.Context, id string) (*Library, error) {
	query, args, err := psql.Select(
		"id", "librarian_id", "name", "address", "opening_time::text", "closing_time::text", "created_at",
	).
		From("public.libraries").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get library query failed: %w", err)
	}

	var l Library
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&l.ID, &l.LibrarianID, &l.Name, &l.Address, &l.OpeningTime, &l.ClosingTime, &l.CreatedAt,
	); err != nil {
		return nil, notFound(err, ErrLibraryNotFound, "library")
	}
	return &l, nil
}

func (r *pgxRepository) GetPlan(ctx context.Context, id string) (*Plan, error) {
	query, args, err := psql.Select(
		"id", "library_id", "name", "duration", "duration_unit", "price_minor", "created_at",
	).
		From("public.plans").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get plan query failed: %w", err)
	}

	var p Plan
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&p.ID, &p.LibraryID, &p.Name, &p.Duration, &p.DurationUnit, &p.Price, &p.CreatedAt,
	); err != nil {
		return nil, notFound(err, ErrPlanNotFound, "plan")
	}
	return &p, nil
}

func (r *pgxRepository) GetSeat(ctx context.Context, id string) (*Seat, error) {
	query, args, err := psql.Select(SeatColumns("")...).
		From("public.seats").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get seat query failed: %w", err)
	}

	s, err := ScanSeat(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, ErrSeatNotFound, "seat")
	}
	return s, nil
}

// SeatColumns lists the columns ScanSeat expects, qualified by alias when one is given.
func SeatColumns(alias string) []string {
	cols := []string{"id", "library_id", "label", "status", "is_active", "created_at", "updated_at"}
	if alias == "" {
		return cols
	}
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return out
}

// ScanSeat scans one row selected with SeatColumns.
func ScanSeat(row pgx.Row) (*Seat, error) {
	var s Seat
	if err := row.Scan(&s.ID, &s.LibraryID, &s.Label, &s.Status, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
