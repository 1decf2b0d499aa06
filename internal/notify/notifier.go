// Package notify texts customers when their ticket moves along the queue.
package notify

import (
	"context"
	"strings"
	"time"

	"braidsbar/queue-service/internal/events"
	"braidsbar/queue-service/internal/models"
	"braidsbar/queue-service/internal/store"

	"github.com/rs/zerolog"
)

const defaultQueueSize = 64

const (
	templateCreated      = "ticket_created"
	templateAlmostTurn   = "ticket_almost_turn"
	templatePleaseArrive = "ticket_please_arrive"
)

var defaultTemplates = map[string]string{
	templateCreated:      "Braids Bar {branch_name}: you are {queue_number}. Estimated start {start_time}.",
	templateAlmostTurn:   "Braids Bar {branch_name}: {queue_number}, your turn is coming up at {start_time}. Start heading over.",
	templatePleaseArrive: "Braids Bar {branch_name}: {queue_number}, please arrive now. Questions? Call {branch_phone}.",
}

// Notifier queues customer messages. Publish never blocks; Run delivers.
type Notifier struct {
	provider  Provider
	location  *time.Location
	logger    zerolog.Logger
	queue     chan events.Event
	templates map[string]string
}

func New(provider Provider, location *time.Location, logger zerolog.Logger) *Notifier {
	if location == nil {
		location = time.UTC
	}
	return &Notifier{
		provider:  provider,
		location:  location,
		logger:    logger,
		queue:     make(chan events.Event, defaultQueueSize),
		templates: defaultTemplates,
	}
}

func (n *Notifier) Publish(ctx context.Context, event events.Event) error {
	if templateForEvent(event) == "" {
		return nil
	}
	select {
	case n.queue <- event:
	default:
		n.logger.Warn().Str("ticket_id", event.Ticket.TicketID).Msg("notification queue full, dropping message")
	}
	return nil
}

func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-n.queue:
			if err := n.deliver(ctx, event); err != nil {
				n.logger.Error().Err(err).Str("ticket_id", event.Ticket.TicketID).Msg("notification failed")
			}
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, event events.Event) error {
	templateID := templateForEvent(event)
	if templateID == "" || event.Ticket.PhoneNumber == "" {
		return nil
	}
	message := renderTemplate(n.templates[templateID], n.variables(event.Ticket))
	return n.provider.Send(ctx, message, event.Ticket.PhoneNumber)
}

func (n *Notifier) variables(ticket models.Ticket) map[string]string {
	vars := map[string]string{
		"queue_number":  ticket.QueueNumber,
		"customer_name": ticket.CustomerName,
		"start_time":    ticket.EstimatedStartTime.In(n.location).Format("Mon 15:04"),
	}
	if info, ok := models.LookupBranch(ticket.Branch); ok {
		vars["branch_name"] = info.Name
		vars["branch_phone"] = info.Phone
	}
	return vars
}

func templateForEvent(event events.Event) string {
	switch event.Type {
	case store.EventTicketCreated:
		return templateCreated
	case store.EventTicketStatusChanged:
		switch event.Ticket.Status {
		case models.StatusAlmostTurn:
			return templateAlmostTurn
		case models.StatusPleaseArrive:
			return templatePleaseArrive
		}
	}
	return ""
}

func renderTemplate(template string, vars map[string]string) string {
	result := template
	for key, value := range vars {
		result = strings.ReplaceAll(result, "{"+key+"}", value)
	}
	return result
}
