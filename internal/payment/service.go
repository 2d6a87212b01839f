package payment

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/library-booking-backend/internal/directory"
	"github.com/nekogravitycat/library-booking-backend/internal/events"
	"github.com/nekogravitycat/library-booking-backend/internal/pkg/money"
)

// maxAutoPayoutAttempts bounds how often a failed payout re-enters the retry queue.
const maxAutoPayoutAttempts = 5

// A completed transfer is written back this many times before it is handed to reconciliation.
const (
	recordTransferAttempts = 3
	recordTransferBackoff  = 100 * time.Millisecond
)

type Config struct {
	PlatformFeePercent int64
	Currency           string
	WebhookSecret      string
	PayoutLease        time.Duration
}

type CreateOrderRequest struct {
	LibrarianID string
	StudentID   string
	Amount      money.Minor
}

type WebhookRequest struct {
	Event            string
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	StudentID        string
	LibrarianID      string
}

type WebhookOutcome string

const (
	OutcomeIgnored     WebhookOutcome = "ignored"
	OutcomeDuplicate   WebhookOutcome = "duplicate"
	OutcomeTransferred WebhookOutcome = "transferred"
)

type WebhookResult struct {
	Outcome WebhookOutcome
	Payment *Payment
}

type Service interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*Payment, error)
	HandleWebhook(ctx context.Context, req WebhookRequest) (*WebhookResult, error)
	// RetryPayout re-attempts the transfer for a PAID payment. TRANSFERRED payments are returned unchanged.
	RetryPayout(ctx context.Context, orderID string) (*Payment, error)
	// ConfirmPayout records the transfer behind an unconfirmed payout once an operator has found it at the gateway.
	ConfirmPayout(ctx context.Context, orderID, transferID string) (*Payment, error)
	GetByOrderID(ctx context.Context, orderID string) (*Payment, error)
}

type service struct {
	repo      Repository
	directory directory.Service
	gateway   Gateway
	publisher events.Publisher
	logger    *slog.Logger
	cfg       Config
	now       func() time.Time
}

func NewService(
	repo Repository,
	dir directory.Service,
	gateway Gateway,
	publisher events.Publisher,
	logger *slog.Logger,
	cfg Config,
	now func() time.Time,
) Service {
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      repo,
		directory: dir,
		gateway:   gateway,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
		now:       now,
	}
}

func (s *service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Payment, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.LibrarianID == "" || req.StudentID == "" {
		return nil, ErrMissingParties
	}
	if _, err := s.directory.GetLibrarian(ctx, req.LibrarianID); err != nil {
		return nil, err
	}
	if _, err := s.directory.GetStudent(ctx, req.StudentID); err != nil {
		return nil, err
	}

	p := &Payment{
		StudentID:   req.StudentID,
		LibrarianID: req.LibrarianID,
		Amount:      req.Amount,
		PlatformFee: req.Amount.Percent(s.cfg.PlatformFeePercent),
		Currency:    s.cfg.Currency,
		Receipt:     "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Status:      StatusCreated,
	}

	order, err := s.gateway.CreateOrder(ctx, OrderRequest{
		Amount:   p.Amount,
		Currency: p.Currency,
		Receipt:  p.Receipt,
		Notes:    map[string]string{"student_id": p.StudentID, "librarian_id": p.LibrarianID},
	})
	if err != nil {
		return nil, ErrGateway.WithErr(err)
	}
	p.GatewayOrderID = order.ID

	if err := s.repo.Create(ctx, p); err != nil {
		// The remote order exists without a local row.
		s.logger.ErrorContext(ctx, "gateway order orphaned",
			"gateway_order_id", order.ID, "receipt", p.Receipt, "error", err)
		ev := paymentEvent(p)
		ev.Reason = err.Error()
		events.Emit(ctx, s.publisher, s.logger, events.OrderOrphaned, ev)
		return nil, err
	}
	return p, nil
}

func (s *service) HandleWebhook(ctx context.Context, req WebhookRequest) (*WebhookResult, error) {
	// 1. Required fields
	if req.Event == "" || req.GatewayOrderID == "" || req.GatewayPaymentID == "" || req.Signature == "" {
		return nil, ErrMissingFields
	}

	// 2. Signature
	if !VerifySignature(s.cfg.WebhookSecret, req.GatewayOrderID, req.GatewayPaymentID, req.Signature) {
		s.logger.WarnContext(ctx, "webhook signature mismatch", "gateway_order_id", req.GatewayOrderID)
		return nil, ErrInvalidSignature
	}

	// 3. Other events are acknowledged only
	if req.Event != CapturedEvent {
		return &WebhookResult{Outcome: OutcomeIgnored}, nil
	}

	// 4. Local row
	p, err := s.repo.GetByOrderID(ctx, req.GatewayOrderID)
	if err != nil {
		return nil, err
	}
	if (req.StudentID != "" && req.StudentID != p.StudentID) || (req.LibrarianID != "" && req.LibrarianID != p.LibrarianID) {
		return nil, ErrPartyMismatch
	}

	// 5. Replays
	if p.Status.Captured() {
		return &WebhookResult{Outcome: OutcomeDuplicate, Payment: p}, nil
	}
	if p.Status != StatusCreated {
		return nil, ErrNotPaid
	}

	// 6. Capture is durable before the payout starts.
	paid, updated, err := s.repo.MarkPaid(ctx, req.GatewayOrderID, req.GatewayPaymentID, req.Signature, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if !updated {
		// A concurrent delivery won the race.
		current, err := s.repo.GetByOrderID(ctx, req.GatewayOrderID)
		if err != nil {
			return nil, err
		}
		return &WebhookResult{Outcome: OutcomeDuplicate, Payment: current}, nil
	}
	events.Emit(ctx, s.publisher, s.logger, events.PaymentCaptured, paymentEvent(paid))

	transferred, err := s.payout(ctx, paid.GatewayOrderID)
	if err != nil {
		return &WebhookResult{Payment: paid}, err
	}
	return &WebhookResult{Outcome: OutcomeTransferred, Payment: transferred}, nil
}

func (s *service) RetryPayout(ctx context.Context, orderID string) (*Payment, error) {
	p, err := s.repo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	switch p.Status {
	case StatusTransferred:
		return p, nil
	case StatusPaid:
		return s.payout(ctx, orderID)
	default:
		return nil, ErrNotPaid
	}
}

func (s *service) ConfirmPayout(ctx context.Context, orderID, transferID string) (*Payment, error) {
	transferID = strings.TrimSpace(transferID)
	if transferID == "" {
		return nil, ErrMissingTransferID
	}
	p, err := s.repo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if p.Status == StatusTransferred {
		return p, nil
	}
	if !p.PayoutUnconfirmed() {
		return nil, ErrPayoutNotSent
	}

	if err := s.repo.MarkTransferred(ctx, p.ID, transferID); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "unconfirmed payout reconciled",
		"payment_id", p.ID, "gateway_order_id", p.GatewayOrderID, "transfer_id", transferID)
	return s.repo.GetByOrderID(ctx, orderID)
}

func (s *service) GetByOrderID(ctx context.Context, orderID string) (*Payment, error) {
	return s.repo.GetByOrderID(ctx, orderID)
}

// payout transfers the net amount to the librarian under a lease so two callers never transfer twice.
// On failure the payment stays PAID and the error is recorded for retry.
func (s *service) payout(ctx context.Context, orderID string) (*Payment, error) {
	p, claimed, err := s.repo.ClaimPayout(ctx, orderID, s.now().UTC(), s.cfg.PayoutLease)
	if err != nil {
		return nil, err
	}
	if !claimed {
		current, err := s.repo.GetByOrderID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		switch {
		case current.Status == StatusTransferred:
			return current, nil
		case current.Status == StatusPaid && s.leaseHeld(current):
			return nil, ErrPayoutInProgress
		case current.PayoutUnconfirmed():
			return nil, ErrPayoutUnconfirmed
		case current.Status == StatusPaid:
			return nil, ErrPayoutInProgress
		default:
			return nil, ErrNotPaid
		}
	}

	librarian, err := s.directory.GetLibrarian(ctx, p.LibrarianID)
	if err != nil {
		return nil, s.payoutFailed(ctx, p, err)
	}
	if librarian.PayoutAccountID == nil || *librarian.PayoutAccountID == "" {
		return nil, s.payoutFailed(ctx, p, ErrNoPayoutAccount)
	}

	// Once the marker lands the payout can only be finished by this call or by ConfirmPayout.
	sentAt := s.now().UTC()
	if err := s.repo.MarkPayoutSent(ctx, p.ID, sentAt); err != nil {
		if errors.Is(err, ErrPayoutInProgress) {
			return nil, err
		}
		return nil, s.payoutFailed(ctx, p, err)
	}
	p.PayoutSentAt = &sentAt

	transfer, err := s.gateway.Transfer(ctx, TransferRequest{
		PaymentID: *p.GatewayPaymentID,
		Account:   *librarian.PayoutAccountID,
		Amount:    p.PayoutAmount(),
		Currency:  p.Currency,
		Notes:     map[string]string{"payment_id": p.ID, "gateway_order_id": p.GatewayOrderID},
	})
	if err != nil {
		if transferOutcomeUnknown(err) {
			return nil, s.payoutUnconfirmed(ctx, p, "", err)
		}
		return nil, s.payoutFailed(ctx, p, err)
	}

	if err := s.recordTransfer(ctx, p.ID, transfer.ID); err != nil {
		if errors.Is(err, ErrNotPaid) {
			// Confirmed by an operator in the meantime.
			return s.repo.GetByOrderID(ctx, orderID)
		}
		return nil, s.payoutUnconfirmed(ctx, p, transfer.ID, err)
	}
	p.Status = StatusTransferred
	p.TransferID = &transfer.ID
	p.PayoutError = nil
	p.PayoutStartedAt = nil
	p.PayoutSentAt = nil
	return p, nil
}

func (s *service) leaseHeld(p *Payment) bool {
	return p.PayoutStartedAt != nil && p.PayoutStartedAt.After(s.now().UTC().Add(-s.cfg.PayoutLease))
}

// recordTransfer writes a completed transfer back, retrying briefly. It ignores caller cancellation
// because the money has already moved.
func (s *service) recordTransfer(ctx context.Context, id, transferID string) error {
	ctx = context.WithoutCancel(ctx)
	var err error
	for attempt := 1; attempt <= recordTransferAttempts; attempt++ {
		if err = s.repo.MarkTransferred(ctx, id, transferID); err == nil || errors.Is(err, ErrNotPaid) {
			return err
		}
		s.logger.WarnContext(ctx, "record transfer failed",
			"payment_id", id, "transfer_id", transferID, "attempt", attempt, "error", err)
		if attempt < recordTransferAttempts {
			time.Sleep(time.Duration(attempt) * recordTransferBackoff)
		}
	}
	return err
}

// transferOutcomeUnknown reports errors after which the gateway may still have executed the transfer.
func transferOutcomeUnknown(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// payoutUnconfirmed keeps the transfer marker so no retry can pay again, and hands the payment to
// manual reconciliation. transferID is empty when the gateway never answered.
func (s *service) payoutUnconfirmed(ctx context.Context, p *Payment, transferID string, cause error) error {
	ctx = context.WithoutCancel(ctx)
	reason := "transfer outcome unknown: " + cause.Error()
	if err := s.repo.RecordPayoutFailure(ctx, p.ID, reason, false); err != nil {
		s.logger.ErrorContext(ctx, "record payout failure failed", "payment_id", p.ID, "error", err)
	}
	p.PayoutError = &reason
	p.PayoutStartedAt = nil

	s.logger.ErrorContext(ctx, "payout unconfirmed, manual reconciliation required",
		"payment_id", p.ID,
		"gateway_order_id", p.GatewayOrderID,
		"transfer_id", transferID,
		"error", cause,
	)
	ev := paymentEvent(p)
	ev.TransferID = transferID
	ev.Reason = reason
	events.Emit(ctx, s.publisher, s.logger, events.PayoutUnconfirmed, ev)
	return ErrPayoutUnconfirmed.WithErr(cause)
}

func (s *service) payoutFailed(ctx context.Context, p *Payment, cause error) error {
	reason := cause.Error()
	if err := s.repo.RecordPayoutFailure(ctx, p.ID, reason, true); err != nil {
		s.logger.ErrorContext(ctx, "record payout failure failed", "payment_id", p.ID, "error", err)
	}
	p.PayoutError = &reason
	p.PayoutStartedAt = nil
	p.PayoutSentAt = nil

	s.logger.ErrorContext(ctx, "payout failed",
		"payment_id", p.ID,
		"gateway_order_id", p.GatewayOrderID,
		"attempt", p.PayoutAttempts,
		"error", cause,
	)
	if p.PayoutAttempts < maxAutoPayoutAttempts {
		ev := paymentEvent(p)
		ev.Reason = reason
		events.Emit(ctx, s.publisher, s.logger, events.PayoutFailed, ev)
	} else {
		s.logger.ErrorContext(ctx, "payout attempts exhausted, manual reconciliation required",
			"payment_id", p.ID, "attempts", p.PayoutAttempts)
	}

	if errors.Is(cause, ErrNoPayoutAccount) {
		return ErrNoPayoutAccount
	}
	return ErrPayout.WithErr(cause)
}

func paymentEvent(p *Payment) events.PaymentEvent {
	ev := events.PaymentEvent{
		PaymentID:        p.ID,
		GatewayOrderID:   p.GatewayOrderID,
		StudentID:        p.StudentID,
		LibrarianID:      p.LibrarianID,
		AmountMinor:      int64(p.Amount),
		PlatformFeeMinor: int64(p.PlatformFee),
		Currency:         p.Currency,
	}
	if p.GatewayPaymentID != nil {
		ev.GatewayPaymentID = *p.GatewayPaymentID
	}
	return ev
}
