package http

import (
	"time"

	"github.com/nekogravitycat/library-booking-backend/internal/payment"
)

type CreateOrderBody struct {
	LibrarianID string `json:"librarianId" binding:"required,uuid"`
	// StudentID defaults to the authenticated subject.
	StudentID string  `json:"studentId" binding:"omitempty,uuid"`
	Amount    float64 `json:"amount" binding:"required,gt=0"`
}

type CreateOrderResponse struct {
	OrderID   string `json:"orderId"`
	Amount    int64  `json:"amount"` // minor units, as the checkout widget expects
	Currency  string `json:"currency"`
	PaymentID string `json:"paymentId"`
}

// WebhookBody keeps the gateway's checkout callback field names.
type WebhookBody struct {
	Event             string `json:"event"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
	StudentID         string `json:"student_id"`
	LibrarianID       string `json:"librarianId"`
}

type ConfirmPayoutBody struct {
	TransferID string `json:"transferId" binding:"required"`
}

type OrderIDRequest struct {
	OrderID string `uri:"orderId" binding:"required"`
}

type PaymentResponse struct {
	ID               string     `json:"id"`
	StudentID        string     `json:"studentId"`
	LibrarianID      string     `json:"librarianId"`
	Amount           float64    `json:"amount"`
	PlatformFee      float64    `json:"platformFee"`
	PayoutAmount     float64    `json:"payoutAmount"`
	Currency         string     `json:"currency"`
	Receipt          string     `json:"receipt"`
	GatewayOrderID   string     `json:"orderId"`
	GatewayPaymentID *string    `json:"gatewayPaymentId"`
	Status           string     `json:"status"`
	PaymentDate      *time.Time `json:"paymentDate"`
	TransferID       *string    `json:"transferId"`
	PayoutAttempts   int        `json:"payoutAttempts"`
	PayoutSentAt     *time.Time `json:"payoutSentAt"`
	PayoutError      *string    `json:"payoutError"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func NewPaymentResponse(p *payment.Payment) PaymentResponse {
	return PaymentResponse{
		ID:               p.ID,
		StudentID:        p.StudentID,
		LibrarianID:      p.LibrarianID,
		Amount:           p.Amount.Major(),
		PlatformFee:      p.PlatformFee.Major(),
		PayoutAmount:     p.PayoutAmount().Major(),
		Currency:         p.Currency,
		Receipt:          p.Receipt,
		GatewayOrderID:   p.GatewayOrderID,
		GatewayPaymentID: p.GatewayPaymentID,
		Status:           string(p.Status),
		PaymentDate:      p.PaymentDate,
		TransferID:       p.TransferID,
		PayoutAttempts:   p.PayoutAttempts,
		PayoutSentAt:     p.PayoutSentAt,
		PayoutError:      p.PayoutError,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}
