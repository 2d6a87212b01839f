// Package events publishes domain events to a RabbitMQ topic exchange and consumes them back.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Routing keys on the events exchange.
const (
	BookingCreated    = "booking.created"
	BookingCancelled  = "booking.cancelled"
	PaymentCaptured   = "payment.captured"
	PayoutFailed      = "payment.payout_failed"
	PayoutUnconfirmed = "payment.payout_unconfirmed"
	OrderOrphaned     = "payment.order_orphaned"
)

// Message is the JSON body of every published event.
type Message struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

func newMessage(eventType string, data any, at time.Time) (Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Message{ID: uuid.NewString(), Type: eventType, OccurredAt: at.UTC(), Data: raw}, nil
}

// Decode unmarshals the message payload into v.
func (m Message) Decode(v any) error {
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Type, err)
	}
	return nil
}

type BookingEvent struct {
	BookingID  string `json:"bookingId"`
	StudentID  string `json:"studentId"`
	LibraryID  string `json:"libraryId"`
	TimeSlotID string `json:"timeSlotId"`
	SeatID     string `json:"seatId"`
	Status     string `json:"status"`
}

type PaymentEvent struct {
	PaymentID        string `json:"paymentId"`
	GatewayOrderID   string `json:"gatewayOrderId"`
	GatewayPaymentID string `json:"gatewayPaymentId,omitempty"`
	StudentID        string `json:"studentId"`
	LibrarianID      string `json:"librarianId"`
	AmountMinor      int64  `json:"amountMinor"`
	PlatformFeeMinor int64  `json:"platformFeeMinor"`
	Currency         string `json:"currency"`
	TransferID       string `json:"transferId,omitempty"`
	Reason           string `json:"reason,omitempty"`
}
