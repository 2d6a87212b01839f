package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRoundTrip(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	msg, err := newMessage(PayoutFailed, PaymentEvent{GatewayOrderID: "order_1", AmountMinor: 100000}, at)
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)

	body, err := json.Marshal(msg)
	require.NoError(t, err)

	parsed, err := ParseDelivery(body)
	require.NoError(t, err)
	assert.Equal(t, PayoutFailed, parsed.Type)
	assert.True(t, parsed.OccurredAt.Equal(at))

	var ev PaymentEvent
	require.NoError(t, parsed.Decode(&ev))
	assert.Equal(t, "order_1", ev.GatewayOrderID)
	assert.Equal(t, int64(100000), ev.AmountMinor)
}

func TestParseDeliveryRejectsGarbage(t *testing.T) {
	_, err := ParseDelivery([]byte("not json"))
	assert.Error(t, err)

	_, err = ParseDelivery([]byte(`{"id":"1"}`))
	assert.Error(t, err)
}

func TestLogPublisherLogsEvent(t *testing.T) {
	var buf bytes.Buffer
	pub := NewLogPublisher(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, pub.Publish(context.Background(), BookingCreated, BookingEvent{BookingID: "b-1"}))
	assert.Contains(t, buf.String(), `"type":"booking.created"`)
	assert.Contains(t, buf.String(), `b-1`)
}

func TestEmitSwallowsPublishErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	rec := &Recorder{Err: errors.New("broker down")}

	Emit(context.Background(), rec, logger, BookingCancelled, BookingEvent{BookingID: "b-1"})
	assert.Contains(t, buf.String(), "publish event failed")

	rec.Err = nil
	Emit(context.Background(), rec, logger, BookingCancelled, BookingEvent{BookingID: "b-1"})
	assert.Equal(t, []string{BookingCancelled}, rec.Types())

	// A nil publisher is a no-op.
	Emit(context.Background(), nil, logger, BookingCancelled, nil)
}
