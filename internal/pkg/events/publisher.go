// Package events publishes batch job outcomes for downstream consumers
// such as payroll and notification workers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	TypeShiftDaysGenerated = "shiftday.generated"
	TypeDayReconciled      = "attendance.reconciled"
	TypeMonthAggregated    = "overtime.aggregated"
)

type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

func NewEvent(eventType string, payload any) Event {
	return Event{
		ID:         uuid.Must(uuid.NewV7()).String(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Channel is the part of *amqp.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPPublisher sends events to a RabbitMQ exchange using the event type
// as routing key. An empty exchange routes straight to the queue named
// by Queue.
type AMQPPublisher struct {
	ch       Channel
	exchange string
	queue    string
	timeout  time.Duration
}

func NewAMQPPublisher(ch Channel, exchange, queue string, timeout time.Duration) *AMQPPublisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AMQPPublisher{ch: ch, exchange: exchange, queue: queue, timeout: timeout}
}

func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", e.Type, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	routingKey := e.Type
	if p.exchange == "" {
		routingKey = p.queue
	}

	if err := p.ch.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    e.ID,
			Type:         e.Type,
			Timestamp:    e.OccurredAt,
			Body:         body,
		},
	); err != nil {
		return fmt.Errorf("publish event %s: %w", e.Type, err)
	}
	return nil
}

// LogPublisher writes events to the structured log instead of a broker.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, e Event) error {
	slog.Info("Event published", "id", e.ID, "type", e.Type)
	return nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// PublishQuietly publishes e and logs a failure instead of returning it.
// Job results are already committed when their events go out.
func PublishQuietly(ctx context.Context, p Publisher, e Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		slog.Error("Failed to publish event", "type", e.Type, "error", err)
	}
}
