package payment

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/library-booking-backend/internal/events"
	"github.com/nekogravitycat/library-booking-backend/internal/pkg/logging"
)

type retryStub struct {
	Service
	mu    sync.Mutex
	calls []string
	err   error
}

func (s *retryStub) RetryPayout(_ context.Context, orderID string) (*Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, orderID)
	if s.err != nil {
		return nil, s.err
	}
	return &Payment{ID: "p1", GatewayOrderID: orderID, Status: StatusTransferred}, nil
}

type ackRecorder struct {
	mu     sync.Mutex
	acked  []uint64
	nacked []uint64
}

func (a *ackRecorder) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *ackRecorder) Nack(tag uint64, _ bool, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = append(a.nacked, tag)
	return nil
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

type chanSource struct {
	ch chan amqp.Delivery
}

func (s *chanSource) Deliveries(context.Context) (<-chan amqp.Delivery, error) {
	return s.ch, nil
}

func delivery(t *testing.T, ack amqp.Acknowledger, tag uint64, eventType string, ev events.PaymentEvent) amqp.Delivery {
	t.Helper()
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	body, err := json.Marshal(events.Message{ID: "m", Type: eventType, Data: data})
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: tag, Body: body}
}

func runWorker(t *testing.T, svc Service, deliveries ...amqp.Delivery) {
	t.Helper()
	src := &chanSource{ch: make(chan amqp.Delivery, len(deliveries))}
	for _, d := range deliveries {
		src.ch <- d
	}
	close(src.ch)
	require.NoError(t, NewPayoutWorker(svc, src, logging.Discard(), 0).Run(context.Background()))
}

func TestPayoutWorker(t *testing.T) {
	t.Run("retries and acks", func(t *testing.T) {
		svc := &retryStub{}
		ack := &ackRecorder{}
		runWorker(t, svc,
			delivery(t, ack, 1, events.PayoutFailed, events.PaymentEvent{GatewayOrderID: orderID}),
			delivery(t, ack, 2, events.PaymentCaptured, events.PaymentEvent{GatewayOrderID: orderID}),
		)
		assert.Equal(t, []string{orderID}, svc.calls)
		assert.Equal(t, []uint64{1, 2}, ack.acked)
		assert.Empty(t, ack.nacked)
	})

	t.Run("terminal states are acked", func(t *testing.T) {
		svc := &retryStub{err: ErrNotPaid}
		ack := &ackRecorder{}
		runWorker(t, svc, delivery(t, ack, 1, events.PayoutFailed, events.PaymentEvent{GatewayOrderID: orderID}))
		assert.Equal(t, []uint64{1}, ack.acked)
	})

	t.Run("unconfirmed payouts are acked", func(t *testing.T) {
		svc := &retryStub{err: ErrPayoutUnconfirmed}
		ack := &ackRecorder{}
		runWorker(t, svc, delivery(t, ack, 3, events.PayoutFailed, events.PaymentEvent{GatewayOrderID: orderID}))
		assert.Equal(t, []uint64{3}, ack.acked)
		assert.Empty(t, ack.nacked)
	})

	t.Run("gateway errors are rejected", func(t *testing.T) {
		svc := &retryStub{err: ErrPayout.WithErr(errors.New("timeout"))}
		ack := &ackRecorder{}
		runWorker(t, svc, delivery(t, ack, 7, events.PayoutFailed, events.PaymentEvent{GatewayOrderID: orderID}))
		assert.Empty(t, ack.acked)
		assert.Equal(t, []uint64{7}, ack.nacked)
	})

	t.Run("malformed body is rejected", func(t *testing.T) {
		ack := &ackRecorder{}
		runWorker(t, &retryStub{}, amqp.Delivery{Acknowledger: ack, DeliveryTag: 3, Body: []byte("{")})
		assert.Equal(t, []uint64{3}, ack.nacked)
	})
}
