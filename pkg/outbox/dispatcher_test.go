package outbox

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polytrade/trading-backend/pkg/logging"
)

type fakeProducer struct {
	messages []kafka.Message
	fail     bool
}

func (f *fakeProducer) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.fail {
		return errors.New("broker unavailable")
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func TestDispatchKeysByAggregate(t *testing.T) {
	producer := &fakeProducer{}
	d := NewDispatcher(logging.New(), producer, "order-events")

	err := d.Dispatch(context.Background(), Event{
		ID:            1,
		AggregateType: "order",
		AggregateID:   "7f9c24e5",
		Type:          "OrderCreated",
		Payload:       []byte(`{"reference":"CMD-7f9c24e5"}`),
		Traceparent:   "00-abc-def-01",
	})
	require.NoError(t, err)

	require.Len(t, producer.messages, 1)
	msg := producer.messages[0]
	assert.Equal(t, "order-events", msg.Topic)
	assert.Equal(t, "7f9c24e5", string(msg.Key), "events of one order must land in one partition")

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "OrderCreated", headers["event_type"])
	assert.Equal(t, "00-abc-def-01", headers["traceparent"])
}

func TestDispatchPropagatesProducerError(t *testing.T) {
	d := NewDispatcher(logging.New(), &fakeProducer{fail: true}, "order-events")
	err := d.Dispatch(context.Background(), Event{ID: 2, Type: "OrderStatusChanged"})
	assert.Error(t, err)
}
