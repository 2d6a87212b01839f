package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByOrderID(ctx context.Context, orderID string) (*Payment, error)
	// MarkPaid moves a CREATED payment to PAID. It reports false when the row was not CREATED.
	MarkPaid(ctx context.Context, orderID, gatewayPaymentID, signature string, at time.Time) (*Payment, bool, error)
	// ClaimPayout takes the payout lease on a PAID payment whose lease is free or older than lease.
	// A payment with a transfer marker is never claimed.
	ClaimPayout(ctx context.Context, orderID string, now time.Time, lease time.Duration) (*Payment, bool, error)
	// MarkPayoutSent sets the transfer marker. It must land before the transfer call is made.
	MarkPayoutSent(ctx context.Context, id string, at time.Time) error
	MarkTransferred(ctx context.Context, id, transferID string) error
	// RecordPayoutFailure stores the error and releases the lease. The transfer marker is
	// cleared only when clearSent is true.
	RecordPayoutFailure(ctx context.Context, id, reason string, clearSent bool) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var columns = []string{
	"id", "student_id", "librarian_id", "amount_minor", "platform_fee_minor", "currency", "receipt",
	"gateway_order_id", "gateway_payment_id", "gateway_signature", "status", "payment_date",
	"transfer_id", "payout_attempts", "payout_started_at", "payout_sent_at", "payout_error",
	"created_at", "updated_at",
}

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	if err := row.Scan(
		&p.ID, &p.StudentID, &p.LibrarianID, &p.Amount, &p.PlatformFee, &p.Currency, &p.Receipt,
		&p.GatewayOrderID, &p.GatewayPaymentID, &p.GatewaySignature, &p.Status, &p.PaymentDate,
		&p.TransferID, &p.PayoutAttempts, &p.PayoutStartedAt, &p.PayoutSentAt, &p.PayoutError,
		&p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *pgxRepository) Create(ctx context.Context, p *Payment) error {
	query, args, err := psql.Insert("public.payments").
		Columns(
			"student_id", "librarian_id", "amount_minor", "platform_fee_minor",
			"currency", "receipt", "gateway_order_id", "status",
		).
		Values(
			p.StudentID, p.LibrarianID, int64(p.Amount), int64(p.PlatformFee),
			p.Currency, p.Receipt, p.GatewayOrderID, StatusCreated,
		).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return fmt.Errorf("build create payment query failed: %w", err)
	}

	created, err := scanPayment(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return fmt.Errorf("create payment failed: %w", err)
	}
	*p = *created
	return nil
}

func (r *pgxRepository) GetByOrderID(ctx context.Context, orderID string) (*Payment, error) {
	query, args, err := psql.Select(columns...).
		From("public.payments").
		Where(squirrel.Eq{"gateway_order_id": orderID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get payment query failed: %w", err)
	}

	p, err := scanPayment(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get payment failed: %w", err)
	}
	return p, nil
}

func (r *pgxRepository) MarkPaid(ctx context.Context, orderID, gatewayPaymentID, signature string, at time.Time) (*Payment, bool, error) {
	query, args, err := psql.Update("public.payments").
		Set("status", StatusPaid).
		Set("gateway_payment_id", gatewayPaymentID).
		Set("gateway_signature", signature).
		Set("payment_date", at).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"gateway_order_id": orderID, "status": StatusCreated}).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build mark paid query failed: %w", err)
	}
	return r.conditional(ctx, query, args, "mark payment paid")
}

func (r *pgxRepository) ClaimPayout(ctx context.Context, orderID string, now time.Time, lease time.Duration) (*Payment, bool, error) {
	query, args, err := psql.Update("public.payments").
		Set("payout_started_at", now).
		Set("payout_attempts", squirrel.Expr("payout_attempts + 1")).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"gateway_order_id": orderID, "status": StatusPaid, "payout_sent_at": nil}).
		Where(squirrel.Or{
			squirrel.Eq{"payout_started_at": nil},
			squirrel.Lt{"payout_started_at": now.Add(-lease)},
		}).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build claim payout query failed: %w", err)
	}
	return r.conditional(ctx, query, args, "claim payout")
}

func (r *pgxRepository) MarkPayoutSent(ctx context.Context, id string, at time.Time) error {
	query, args, err := psql.Update("public.payments").
		Set("payout_sent_at", at).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, "status": StatusPaid, "payout_sent_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark payout sent query failed: %w", err)
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark payout sent failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPayoutInProgress
	}
	return nil
}

func (r *pgxRepository) MarkTransferred(ctx context.Context, id, transferID string) error {
	query, args, err := psql.Update("public.payments").
		Set("status", StatusTransferred).
		Set("transfer_id", transferID).
		Set("payout_error", nil).
		Set("payout_started_at", nil).
		Set("payout_sent_at", nil).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, "status": StatusPaid}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark transferred query failed: %w", err)
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark payment transferred failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotPaid
	}
	return nil
}

func (r *pgxRepository) RecordPayoutFailure(ctx context.Context, id, reason string, clearSent bool) error {
	builder := psql.Update("public.payments").
		Set("payout_error", reason).
		Set("payout_started_at", nil).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id})
	if clearSent {
		builder = builder.Set("payout_sent_at", nil)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build record payout failure query failed: %w", err)
	}
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("record payout failure failed: %w", err)
	}
	return nil
}

// conditional runs an UPDATE ... RETURNING whose WHERE clause may match nothing.
func (r *pgxRepository) conditional(ctx context.Context, query string, args []any, what string) (*Payment, bool, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s failed: %w", what, err)
	}
	return p, true, nil
}
