// Package payment creates gateway orders, reconciles capture webhooks and pays librarians out.
package payment

import (
	"time"

	"github.com/nekogravitycat/library-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/library-booking-backend/internal/pkg/money"
)

// CapturedEvent is the only webhook event the reconciler acts on.
const CapturedEvent = "payment.captured"

var (
	ErrNotFound         = apperror.NotFound("payment")
	ErrInvalidAmount    = apperror.Validation("invalid_amount", "amount must be greater than zero")
	ErrMissingParties   = apperror.Validation("missing_fields", "librarianId and studentId are required")
	ErrMissingFields    = apperror.Validation("missing_fields", "event, order id, payment id and signature are required")
	ErrPartyMismatch    = apperror.Validation("party_mismatch", "student or librarian does not match the order")
	ErrInvalidSignature = apperror.Auth("invalid_signature", "webhook signature mismatch")
	ErrNotPaid          = apperror.Conflict("payment_not_paid", "payment has not been captured")
	ErrPayoutInProgress = apperror.Conflict("payout_in_progress", "a payout for this payment is already running")
	ErrGateway          = apperror.Gateway("gateway_error", "payment gateway request failed")
	ErrPayout           = apperror.Payout("payout_failed", "payout to librarian failed; payment remains captured")
	ErrNoPayoutAccount  = apperror.Payout("payout_account_missing", "librarian has no payout account")

	// ErrPayoutUnconfirmed means a transfer may have left the platform but was never recorded.
	// Automatic retries stop until ConfirmPayout settles it.
	ErrPayoutUnconfirmed = apperror.Payout("payout_unconfirmed", "payout was sent but not recorded; manual reconciliation required")
	ErrPayoutNotSent     = apperror.Conflict("payout_not_sent", "no unconfirmed payout to confirm")
	ErrMissingTransferID = apperror.Validation("missing_fields", "transferId is required")
)

type Status string

const (
	StatusCreated     Status = "CREATED"
	StatusPaid        Status = "PAID"
	StatusTransferred Status = "TRANSFERRED"
	StatusFailed      Status = "FAILED"
)

// Captured reports whether the gateway has confirmed the charge.
func (s Status) Captured() bool {
	return s == StatusPaid || s == StatusTransferred
}

type Payment struct {
	ID               string
	StudentID        string
	LibrarianID      string
	Amount           money.Minor
	PlatformFee      money.Minor
	Currency         string
	Receipt          string
	GatewayOrderID   string
	GatewayPaymentID *string
	GatewaySignature *string
	Status           Status
	PaymentDate      *time.Time
	TransferID       *string
	PayoutAttempts   int
	PayoutStartedAt  *time.Time
	// PayoutSentAt is set right before the transfer call and cleared only when the call
	// definitely failed. While set, the payout cannot be claimed again.
	PayoutSentAt *time.Time
	PayoutError      *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PayoutUnconfirmed reports a PAID payment whose transfer may already have been made.
func (p *Payment) PayoutUnconfirmed() bool {
	return p.Status == StatusPaid && p.PayoutSentAt != nil
}

// PayoutAmount is what the librarian receives.
func (p *Payment) PayoutAmount() money.Minor {
	return p.Amount - p.PlatformFee
}
