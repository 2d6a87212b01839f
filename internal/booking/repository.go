package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nekogravitycat/library-booking-backend/internal/db"
	"github.com/nekogravitycat/library-booking-backend/internal/directory"
	"github.com/nekogravitycat/library-booking-backend/internal/timeslot"
)

type pgxStore struct {
	pool *pgxpool.Pool
	tx   *db.TxRunner
}

func NewPgxStore(pool *pgxpool.Pool, tx *db.TxRunner) Store {
	return &pgxStore{pool: pool, tx: tx}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var bookingColumns = []string{
	"b.id", "b.student_id", "b.library_id", "b.plan_id", "b.time_slot_id", "b.seat_id",
	"b.status", "b.check_in_time", "b.check_out_time", "b.valid_from", "b.valid_to",
	"b.total_amount_minor", "b.created_at", "b.updated_at",
}

var summaryColumns = []string{
	"st.name", "st.email", "l.name", "p.name", "s.label",
	"t.date", "t.start_time::text", "t.end_time::text",
}

func bookingDest(b *Booking) []any {
	return []any{
		&b.ID, &b.StudentID, &b.LibraryID, &b.PlanID, &b.TimeSlotID, &b.SeatID,
		&b.Status, &b.CheckInTime, &b.CheckOutTime, &b.ValidFrom, &b.ValidTo,
		&b.TotalAmount, &b.CreatedAt, &b.UpdatedAt,
	}
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	if err := row.Scan(bookingDest(&b)...); err != nil {
		return nil, err
	}
	return &b, nil
}

// scanSummary reads a row selected by summaryQuery; extra receives any trailing columns.
func scanSummary(row pgx.Row, extra ...any) (*Booking, error) {
	var b Booking
	dest := append(bookingDest(&b),
		&b.StudentName, &b.StudentEmail, &b.LibraryName, &b.PlanName, &b.SeatLabel,
		&b.SlotDate, &b.SlotStart, &b.SlotEnd,
	)
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &b, nil
}

func summaryQuery(columns ...string) squirrel.SelectBuilder {
	cols := append(append(append([]string{}, bookingColumns...), summaryColumns...), columns...)
	return psql.Select(cols...).
		From("public.bookings b").
		Join("public.students st ON st.id = b.student_id").
		Join("public.libraries l ON l.id = b.library_id").
		Join("public.plans p ON p.id = b.plan_id").
		Join("public.seats s ON s.id = b.seat_id").
		Join("public.time_slots t ON t.id = b.time_slot_id")
}

func notFound(err error, notFoundErr error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidText(err) {
		return notFoundErr
	}
	return fmt.Errorf("get %s failed: %w", what, err)
}

func (r *pgxStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return r.tx.RunInTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &pgxTx{q: tx})
	})
}

func (r *pgxStore) GetSlot(ctx context.Context, id string) (*timeslot.TimeSlot, error) {
	return getSlot(ctx, r.pool, id, false)
}

func (r *pgxStore) GetSeat(ctx context.Context, id string) (*directory.Seat, error) {
	return getSeat(ctx, r.pool, id, false)
}

func (r *pgxStore) HasLiveBooking(ctx context.Context, seatID, timeSlotID string) (bool, error) {
	return hasLiveBooking(ctx, r.pool, seatID, timeSlotID)
}

func (r *pgxStore) GetByID(ctx context.Context, id string) (*Booking, error) {
	query, args, err := summaryQuery().Where(squirrel.Eq{"b.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}
	b, err := scanSummary(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, ErrNotFound, "booking")
	}
	return b, nil
}

func (r *pgxStore) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	query := summaryQuery("count(*) OVER() AS total_count")

	if filter.StudentID != "" {
		query = query.Where(squirrel.Eq{"b.student_id": filter.StudentID})
	}
	if filter.LibraryID != "" {
		query = query.Where(squirrel.Eq{"b.library_id": filter.LibraryID})
	}
	if filter.TimeSlotID != "" {
		query = query.Where(squirrel.Eq{"b.time_slot_id": filter.TimeSlotID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"b.status": filter.Status})
	}

	order := "DESC"
	if filter.SortOrder == "ASC" {
		order = "ASC"
	}
	query = query.OrderBy("b.created_at " + order).
		Limit(uint64(filter.PageSize)).
		Offset(uint64((filter.Page - 1) * filter.PageSize))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list bookings query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		if db.IsInvalidText(err) {
			return []*Booking{}, 0, nil
		}
		return nil, 0, fmt.Errorf("list bookings failed: %w", err)
	}
	defer rows.Close()

	bookings := []*Booking{}
	total := 0
	for rows.Next() {
		b, err := scanSummary(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate bookings failed: %w", err)
	}
	return bookings, total, nil
}

type pgxTx struct {
	q db.Querier
}

func (t *pgxTx) LockSlot(ctx context.Context, id string) (*timeslot.TimeSlot, error) {
	return getSlot(ctx, t.q, id, true)
}

func (t *pgxTx) LockSeat(ctx context.Context, id string) (*directory.Seat, error) {
	return getSeat(ctx, t.q, id, true)
}

func (t *pgxTx) LockBooking(ctx context.Context, id string) (*Booking, error) {
	query, args, err := psql.Select(bookingColumns...).
		From("public.bookings b").
		Where(squirrel.Eq{"b.id": id}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lock booking query failed: %w", err)
	}
	b, err := scanBooking(t.q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, ErrNotFound, "booking")
	}
	return b, nil
}

func (t *pgxTx) HasLiveBooking(ctx context.Context, seatID, timeSlotID string) (bool, error) {
	return hasLiveBooking(ctx, t.q, seatID, timeSlotID)
}

func (t *pgxTx) CountBooked(ctx context.Context, timeSlotID string) (int, error) {
	query, args, err := psql.Select("count(*)").
		From("public.bookings").
		Where(squirrel.Eq{"time_slot_id": timeSlotID}).
		Where(squirrel.NotEq{"status": StatusCancelled}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count bookings query failed: %w", err)
	}
	var n int
	if err := t.q.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bookings failed: %w", err)
	}
	return n, nil
}

func (t *pgxTx) Insert(ctx context.Context, b *Booking) error {
	query, args, err := psql.Insert("public.bookings").
		Columns(
			"student_id", "library_id", "plan_id", "time_slot_id", "seat_id",
			"status", "valid_from", "valid_to", "total_amount_minor",
		).
		Values(
			b.StudentID, b.LibraryID, b.PlanID, b.TimeSlotID, b.SeatID,
			b.Status, b.ValidFrom, b.ValidTo, int64(b.TotalAmount),
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}
	if err := t.q.QueryRow(ctx, query, args...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		switch {
		case db.IsUniqueViolation(err):
			return ErrDuplicateBooking.WithErr(err)
		case db.IsForeignKeyViolation(err), db.IsInvalidText(err):
			return ErrInvalidReference.WithErr(err)
		}
		return fmt.Errorf("create booking failed: %w", err)
	}
	return nil
}

func (t *pgxTx) UpdateBooking(ctx context.Context, b *Booking) error {
	query, args, err := psql.Update("public.bookings").
		Set("status", b.Status).
		Set("check_in_time", b.CheckInTime).
		Set("check_out_time", b.CheckOutTime).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": b.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update booking query failed: %w", err)
	}
	if err := t.q.QueryRow(ctx, query, args...).Scan(&b.UpdatedAt); err != nil {
		return notFound(err, ErrNotFound, "booking")
	}
	return nil
}

func (t *pgxTx) UpdateSlotCount(ctx context.Context, timeSlotID string, bookedCount int, status timeslot.Status) error {
	query, args, err := psql.Update("public.time_slots").
		Set("booked_count", bookedCount).
		Set("status", status).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": timeSlotID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update time slot query failed: %w", err)
	}
	if _, err := t.q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update time slot failed: %w", err)
	}
	return nil
}

func (t *pgxTx) SetSeatStatus(ctx context.Context, seatID string, status directory.SeatStatus) error {
	query, args, err := psql.Update("public.seats").
		Set("status", status).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": seatID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update seat query failed: %w", err)
	}
	if _, err := t.q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update seat failed: %w", err)
	}
	return nil
}

func getSlot(ctx context.Context, q db.Querier, id string, lock bool) (*timeslot.TimeSlot, error) {
	query := psql.Select(timeslot.Columns("")...).
		From("public.time_slots").
		Where(squirrel.Eq{"id": id})
	if lock {
		query = query.Suffix("FOR UPDATE")
	}
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get time slot query failed: %w", err)
	}
	slot, err := timeslot.Scan(q.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, notFound(err, timeslot.ErrNotFound, "time slot")
	}
	return slot, nil
}

func getSeat(ctx context.Context, q db.Querier, id string, lock bool) (*directory.Seat, error) {
	query := psql.Select(directory.SeatColumns("")...).
		From("public.seats").
		Where(squirrel.Eq{"id": id})
	if lock {
		query = query.Suffix("FOR UPDATE")
	}
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get seat query failed: %w", err)
	}
	seat, err := directory.ScanSeat(q.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, notFound(err, directory.ErrSeatNotFound, "seat")
	}
	return seat, nil
}

func hasLiveBooking(ctx context.Context, q db.Querier, seatID, timeSlotID string) (bool, error) {
	sub, args, err := squirrel.Select("1").
		From("public.bookings").
		Where(squirrel.Eq{"seat_id": seatID, "time_slot_id": timeSlotID, "status": LiveStatuses}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build live booking query failed: %w", err)
	}
	sql, args, err := psql.Select().Column(squirrel.Expr("EXISTS ("+sub+")", args...)).ToSql()
	if err != nil {
		return false, fmt.Errorf("build live booking query failed: %w", err)
	}
	var exists bool
	if err := q.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		if db.IsInvalidText(err) {
			return false, nil
		}
		return false, fmt.Errorf("check live booking failed: %w", err)
	}
	return exists, nil
}
