// Package queue orchestrates ticket issue, status changes and branch
// occupancy on top of a store and the slot scheduler. It holds no ticket
// state of its own.
package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"braidsbar/queue-service/internal/events"
	"braidsbar/queue-service/internal/geo"
	"braidsbar/queue-service/internal/models"
	"braidsbar/queue-service/internal/schedule"
	"braidsbar/queue-service/internal/store"
	"braidsbar/queue-service/internal/validation"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var ErrValidation = errors.New("validation failed")

type Options struct {
	Publisher       events.Publisher
	Logger          zerolog.Logger
	NoShowGrace     time.Duration
	LocationTimeout time.Duration
}

type Service struct {
	store           store.Store
	scheduler       *schedule.Scheduler
	clock           schedule.Clock
	publisher       events.Publisher
	logger          zerolog.Logger
	tracer          trace.Tracer
	validate        *validator.Validate
	noShowGrace     time.Duration
	locationTimeout time.Duration
}

func NewService(st store.Store, scheduler *schedule.Scheduler, clock schedule.Clock, opts Options) *Service {
	publisher := opts.Publisher
	if publisher == nil {
		publisher = events.Nop{}
	}
	if clock == nil {
		clock = schedule.SystemClock{}
	}
	timeout := opts.LocationTimeout
	if timeout <= 0 {
		timeout = geo.DefaultLocationTimeout
	}
	return &Service{
		store:           st,
		scheduler:       scheduler,
		clock:           clock,
		publisher:       publisher,
		logger:          opts.Logger,
		tracer:          otel.Tracer("braidsbar/queue-service/queue"),
		validate:        validation.New(),
		noShowGrace:     opts.NoShowGrace,
		locationTimeout: timeout,
	}
}

type CreateTicketInput struct {
	Branch                models.Branch
	CustomerName          string
	PhoneNumber           string
	StyleID               string
	Length                string
	BringingOwnExtensions bool
	SelectedExtensions    []string
	Notes                 string
}

func (s *Service) CreateTicket(ctx context.Context, input CreateTicketInput) (models.Ticket, error) {
	ctx, span := s.tracer.Start(ctx, "queue.CreateTicket", trace.WithAttributes(attribute.String("branch", string(input.Branch))))
	defer span.End()

	name := strings.TrimSpace(input.CustomerName)
	if name == "" {
		return models.Ticket{}, fmt.Errorf("%w: customer name is required", ErrValidation)
	}
	if _, ok := models.LookupBranch(input.Branch); !ok {
		return models.Ticket{}, store.ErrBranchNotFound
	}
	style, err := s.store.GetStyle(ctx, input.StyleID)
	if err != nil {
		return models.Ticket{}, err
	}
	if style.Hidden {
		return models.Ticket{}, store.ErrStyleNotFound
	}

	durationMinutes := style.DurationMinutes
	if durationMinutes <= 0 {
		durationMinutes = models.DefaultDurationMinutes
	}
	duration := time.Duration(durationMinutes) * time.Minute
	now := s.clock.Now()

	planner := func(active []models.Ticket) (store.SlotPlan, error) {
		base := now
		if n := len(active); n > 0 {
			if end := active[n-1].EstimatedEndTime(); end.After(base) {
				base = end
			}
		}
		start, err := s.scheduler.FindSlot(base, duration)
		if err != nil {
			if errors.Is(err, schedule.ErrDegradedSchedule) {
				return store.SlotPlan{EstimatedStartTime: start, Degraded: true}, nil
			}
			return store.SlotPlan{}, err
		}
		return store.SlotPlan{EstimatedStartTime: start}, nil
	}

	ticket, err := s.store.CreateTicket(ctx, store.CreateTicketInput{
		Branch:                input.Branch,
		CustomerName:          name,
		PhoneNumber:           validation.NormalizePhone(input.PhoneNumber),
		StyleID:               style.StyleID,
		DurationMinutes:       durationMinutes,
		Length:                strings.TrimSpace(input.Length),
		BringingOwnExtensions: input.BringingOwnExtensions,
		SelectedExtensions:    input.SelectedExtensions,
		Notes:                 strings.TrimSpace(input.Notes),
		JoinedAt:              now,
	}, planner)
	if err != nil {
		span.RecordError(err)
		return models.Ticket{}, err
	}

	if ticket.ScheduleDegraded {
		s.logger.Warn().
			Str("ticket_id", ticket.TicketID).
			Str("queue_number", ticket.QueueNumber).
			Int("duration_minutes", durationMinutes).
			Time("estimated_start_time", ticket.EstimatedStartTime).
			Msg("no slot fits the service duration, ticket flagged for review")
	}
	span.SetAttributes(attribute.String("queue_number", ticket.QueueNumber))
	s.publish(ctx, events.Event{Type: store.EventTicketCreated, Branch: ticket.Branch, Ticket: ticket, OccurredAt: now})
	return ticket, nil
}

func (s *Service) GetTicket(ctx context.Context, ticketID string) (models.Ticket, error) {
	return s.store.GetTicket(ctx, ticketID)
}

func (s *Service) FindTicketByPhone(ctx context.Context, phone string) (models.Ticket, bool, error) {
	return s.store.FindTicketByPhone(ctx, validation.NormalizePhone(phone))
}

func (s *Service) ListActiveQueue(ctx context.Context, branch models.Branch) ([]models.Ticket, error) {
	if _, ok := models.LookupBranch(branch); !ok {
		return nil, store.ErrBranchNotFound
	}
	return s.store.ListActiveQueue(ctx, branch)
}

func (s *Service) ListTicketEvents(ctx context.Context, ticketID string) ([]store.TicketEvent, error) {
	return s.store.ListTicketEvents(ctx, ticketID)
}

// UpdateStatus moves a ticket along its lifecycle. Repeating the current
// status returns the ticket unchanged.
func (s *Service) UpdateStatus(ctx context.Context, ticketID, status string) (models.Ticket, error) {
	ctx, span := s.tracer.Start(ctx, "queue.UpdateStatus", trace.WithAttributes(attribute.String("status", status)))
	defer span.End()

	status = strings.ToLower(strings.TrimSpace(status))
	now := s.clock.Now()
	change, err := s.store.UpdateTicketStatus(ctx, store.StatusChangeInput{
		TicketID:   ticketID,
		Status:     status,
		OccurredAt: now,
	})
	if err != nil {
		span.RecordError(err)
		return models.Ticket{}, err
	}
	if change.Changed {
		s.publish(ctx, events.Event{
			Type:       store.EventTicketStatusChanged,
			Branch:     change.Ticket.Branch,
			Ticket:     change.Ticket,
			FromStatus: change.From,
			OccurredAt: now,
		})
	}
	return change.Ticket, nil
}

// DeleteTicket removes a ticket. Later tickets keep their promised times.
func (s *Service) DeleteTicket(ctx context.Context, ticketID string) error {
	ticket, err := s.store.GetTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTicket(ctx, ticketID); err != nil {
		return err
	}
	s.publish(ctx, events.Event{Type: store.EventTicketDeleted, Branch: ticket.Branch, Ticket: ticket, OccurredAt: s.clock.Now()})
	return nil
}

// SweepNoShows marks tickets that were asked to arrive but never showed.
func (s *Service) SweepNoShows(ctx context.Context) (int, error) {
	if s.noShowGrace <= 0 {
		return 0, nil
	}
	tickets, err := s.store.ListTicketsByStatus(ctx, models.StatusPleaseArrive)
	if err != nil {
		return 0, err
	}
	now := s.clock.Now()
	processed := 0
	for _, ticket := range tickets {
		if now.Before(ticket.EstimatedStartTime.Add(s.noShowGrace)) {
			continue
		}
		if _, err := s.UpdateStatus(ctx, ticket.TicketID, models.StatusNoShow); err != nil {
			if errors.Is(err, store.ErrInvalidTransition) || errors.Is(err, store.ErrTicketNotFound) {
				continue
			}
			return processed, err
		}
		processed++
	}
	return processed, nil
}

func (s *Service) EstimateDistance(origin, destination models.Coordinates) (geo.Estimate, error) {
	return geo.EstimateTravel(origin, destination)
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error().Err(err).Str("event", event.Type).Str("ticket_id", event.Ticket.TicketID).Msg("publish event failed")
	}
}

func (s *Service) validationError(err error) error {
	return fmt.Errorf("%w: %s", ErrValidation, err.Error())
}
