package payment

import (
	"context"

	"github.com/nekogravitycat/library-booking-backend/internal/pkg/money"
)

// Gateway is the external payment provider.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	// Transfer moves part of a captured payment to a linked account.
	Transfer(ctx context.Context, req TransferRequest) (*Transfer, error)
}

type OrderRequest struct {
	Amount   money.Minor
	Currency string
	Receipt  string
	Notes    map[string]string
}

type Order struct {
	ID       string
	Amount   money.Minor
	Currency string
	Status   string
}

type TransferRequest struct {
	PaymentID string
	Account   string
	Amount    money.Minor
	Currency  string
	Notes     map[string]string
}

type Transfer struct {
	ID string
}
