package payment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nekogravitycat/library-booking-backend/internal/events"
)

// DeliverySource yields broker deliveries. *events.Consumer satisfies it.
type DeliverySource interface {
	Deliveries(ctx context.Context) (<-chan amqp.Delivery, error)
}

// PayoutWorker retries failed payouts announced on the payment.payout_failed routing key.
type PayoutWorker struct {
	service Service
	source  DeliverySource
	logger  *slog.Logger
	delay   time.Duration
}

// NewPayoutWorker waits delay before each retry so a flapping gateway is not hammered.
func NewPayoutWorker(service Service, source DeliverySource, logger *slog.Logger, delay time.Duration) *PayoutWorker {
	return &PayoutWorker{service: service, source: source, logger: logger, delay: delay}
}

// Run consumes until ctx is done or the delivery channel closes.
func (w *PayoutWorker) Run(ctx context.Context) error {
	msgs, err := w.source.Deliveries(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			w.dispatch(ctx, d)
		}
	}
}

func (w *PayoutWorker) dispatch(ctx context.Context, d amqp.Delivery) {
	if err := w.handle(ctx, d.Body); err != nil {
		w.logger.ErrorContext(ctx, "payout retry failed, rejecting message",
			"message_id", d.MessageId, "error", err)
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

func (w *PayoutWorker) handle(ctx context.Context, body []byte) error {
	msg, err := events.ParseDelivery(body)
	if err != nil {
		return err
	}
	if msg.Type != events.PayoutFailed {
		return nil
	}
	var ev events.PaymentEvent
	if err := msg.Decode(&ev); err != nil {
		return err
	}
	if ev.GatewayOrderID == "" {
		w.logger.WarnContext(ctx, "payout event without order id", "message_id", msg.ID)
		return nil
	}

	if w.delay > 0 {
		t := time.NewTimer(w.delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}

	p, err := w.service.RetryPayout(ctx, ev.GatewayOrderID)
	switch {
	case err == nil:
		w.logger.InfoContext(ctx, "payout retried", "payment_id", p.ID, "status", p.Status)
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotPaid), errors.Is(err, ErrPayoutInProgress),
		errors.Is(err, ErrPayoutUnconfirmed):
		// Nothing left for this message to do.
		w.logger.WarnContext(ctx, "payout retry skipped", "gateway_order_id", ev.GatewayOrderID, "reason", err)
		return nil
	default:
		return err
	}
}
