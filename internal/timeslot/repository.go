package timeslot

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nekogravitycat/library-booking-backend/internal/db"
	"github.com/nekogravitycat/library-booking-backend/internal/directory"
)

type Repository interface {
	// Create inserts the slot unless it overlaps another slot of the same library and date.
	Create(ctx context.Context, slot *TimeSlot) error
	GetByID(ctx context.Context, id string) (*TimeSlot, error)
	List(ctx context.Context, filter Filter) ([]*TimeSlot, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
	tx   *db.TxRunner
}

func NewPgxRepository(pool *pgxpool.Pool, tx *db.TxRunner) Repository {
	return &pgxRepository{pool: pool, tx: tx}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Columns lists the columns Scan expects, qualified by alias when one is given.
func Columns(alias string) []string {
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	return []string{
		prefix + "id", prefix + "library_id", prefix + "date",
		prefix + "start_time::text", prefix + "end_time::text",
		prefix + "capacity", prefix + "booked_count", prefix + "status",
		prefix + "created_at", prefix + "updated_at",
	}
}

// Scan reads one row selected with Columns.
func Scan(row pgx.Row) (*TimeSlot, error) {
	var t TimeSlot
	if err := row.Scan(
		&t.ID, &t.LibraryID, &t.Date, &t.StartTime, &t.EndTime,
		&t.Capacity, &t.BookedCount, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *pgxRepository) Create(ctx context.Context, slot *TimeSlot) error {
	return r.tx.RunInTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		// Serialize slot creation per library so two overlapping inserts cannot both pass the check.
		lockSQL, lockArgs, err := psql.Select("id").
			From("public.libraries").
			Where(squirrel.Eq{"id": slot.LibraryID}).
			Suffix("FOR UPDATE").
			ToSql()
		if err != nil {
			return fmt.Errorf("build lock library query failed: %w", err)
		}
		var libraryID string
		if err := tx.QueryRow(ctx, lockSQL, lockArgs...).Scan(&libraryID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidText(err) {
				return directory.ErrLibraryNotFound
			}
			return fmt.Errorf("lock library failed: %w", err)
		}

		overlapSQL, overlapArgs, err := psql.Select("1").
			From("public.time_slots").
			Where(squirrel.Eq{"library_id": slot.LibraryID, "date": slot.Date}).
			Where(squirrel.Expr("start_time < ?::time", slot.EndTime)).
			Where(squirrel.Expr("end_time > ?::time", slot.StartTime)).
			ToSql()
		if err != nil {
			return fmt.Errorf("build check overlap query failed: %w", err)
		}
		var overlaps bool
		if err := tx.QueryRow(ctx, "SELECT EXISTS ("+overlapSQL+")", overlapArgs...).Scan(&overlaps); err != nil {
			return fmt.Errorf("check overlap failed: %w", err)
		}
		if overlaps {
			return ErrOverlap
		}

		insertSQL, insertArgs, err := psql.Insert("public.time_slots").
			Columns("library_id", "date", "start_time", "end_time", "capacity", "booked_count", "status").
			Values(slot.LibraryID, slot.Date, slot.StartTime, slot.EndTime, slot.Capacity, 0, slot.Status).
			Suffix("RETURNING id, booked_count, status, created_at, updated_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("build create time slot query failed: %w", err)
		}
		if err := tx.QueryRow(ctx, insertSQL, insertArgs...).
			Scan(&slot.ID, &slot.BookedCount, &slot.Status, &slot.CreatedAt, &slot.UpdatedAt); err != nil {
			return fmt.Errorf("create time slot failed: %w", err)
		}
		return nil
	})
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*TimeSlot, error) {
	query, args, err := psql.Select(Columns("")...).
		From("public.time_slots").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get time slot query failed: %w", err)
	}

	t, err := Scan(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidText(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get time slot failed: %w", err)
	}
	return t, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*TimeSlot, error) {
	query := psql.Select(Columns("")...).
		From("public.time_slots").
		Where(squirrel.Eq{"library_id": filter.LibraryID})

	if filter.Date != nil {
		query = query.Where(squirrel.Eq{"date": *filter.Date})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": filter.Status})
	}

	sql, args, err := query.OrderBy("date", "start_time").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list time slots query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list time slots failed: %w", err)
	}
	defer rows.Close()

	var slots []*TimeSlot
	for rows.Next() {
		t, err := Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan time slot failed: %w", err)
		}
		slots = append(slots, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate time slots failed: %w", err)
	}
	return slots, nil
}
