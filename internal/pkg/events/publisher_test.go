package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, Event) error { return errors.New("broker down") }

func TestNewEvent(t *testing.T) {
	e := NewEvent(TypeMonthAggregated, map[string]int{"succeeded": 4})

	assert.Equal(t, TypeMonthAggregated, e.Type)
	assert.Len(t, e.ID, 36)
	assert.False(t, e.OccurredAt.IsZero())

	b, err := json.Marshal(e)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"payload":{"succeeded":4}`)
}

func TestPublishQuietly(t *testing.T) {
	var rec Recorder
	PublishQuietly(context.Background(), &rec, NewEvent(TypeDayReconciled, nil))
	require.Len(t, rec.Events(), 1)
	assert.Equal(t, TypeDayReconciled, rec.Events()[0].Type)

	assert.NotPanics(t, func() {
		PublishQuietly(context.Background(), failingPublisher{}, NewEvent(TypeDayReconciled, nil))
		PublishQuietly(context.Background(), nil, NewEvent(TypeDayReconciled, nil))
	})
}

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
	deadline bool
}

type fakeChannel struct {
	sent []published
	err  error
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	_, ok := ctx.Deadline()
	c.sent = append(c.sent, published{exchange: exchange, key: key, msg: msg, deadline: ok})
	return nil
}

func TestAMQPPublisher_Publish(t *testing.T) {
	tests := []struct {
		name     string
		exchange string
		wantKey  string
	}{
		{"default exchange routes to queue", "", "attendance_engine_events"},
		{"named exchange routes by type", "engine", TypeShiftDaysGenerated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := &fakeChannel{}
			p := NewAMQPPublisher(ch, tt.exchange, "attendance_engine_events", time.Second)
			e := NewEvent(TypeShiftDaysGenerated, map[string]int{"created": 31})

			require.NoError(t, p.Publish(context.Background(), e))

			require.Len(t, ch.sent, 1)
			sent := ch.sent[0]
			assert.Equal(t, tt.exchange, sent.exchange)
			assert.Equal(t, tt.wantKey, sent.key)
			assert.True(t, sent.deadline)
			assert.Equal(t, "application/json", sent.msg.ContentType)
			assert.Equal(t, amqp.Persistent, sent.msg.DeliveryMode)
			assert.Equal(t, e.ID, sent.msg.MessageId)
			assert.Equal(t, e.Type, sent.msg.Type)

			var body Event
			require.NoError(t, json.Unmarshal(sent.msg.Body, &body))
			assert.Equal(t, e.ID, body.ID)
			assert.Equal(t, TypeShiftDaysGenerated, body.Type)
		})
	}
}

func TestAMQPPublisher_PublishError(t *testing.T) {
	brokerErr := errors.New("channel closed")
	p := NewAMQPPublisher(&fakeChannel{err: brokerErr}, "", "q", 0)

	err := p.Publish(context.Background(), NewEvent(TypeMonthAggregated, nil))

	require.ErrorIs(t, err, brokerErr)
	assert.Contains(t, err.Error(), TypeMonthAggregated)
}
