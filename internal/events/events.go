// Package events fans ticket lifecycle events out to subscribers: the realtime
// hub, customer notices and external brokers.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"braidsbar/queue-service/internal/models"

	"github.com/rs/zerolog"
)

type Event struct {
	Type       string        `json:"type"`
	Branch     models.Branch `json:"branch"`
	Ticket     models.Ticket `json:"ticket"`
	FromStatus string        `json:"from_status,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

func Encode(event Event) ([]byte, error) {
	return json.Marshal(event)
}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) LogPublisher {
	return LogPublisher{logger: logger}
}

func (p LogPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.Info().
		Str("event", event.Type).
		Str("branch", string(event.Branch)).
		Str("ticket_id", event.Ticket.TicketID).
		Str("queue_number", event.Ticket.QueueNumber).
		Str("status", event.Ticket.Status).
		Msg("ticket event")
	return nil
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
