package queue

import (
	"context"
	"errors"
	"sort"
	"time"

	"braidsbar/queue-service/internal/geo"
	"braidsbar/queue-service/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type TravelAdvice struct {
	Origin        models.Coordinates `json:"origin"`
	DistanceKm    float64            `json:"distance_km"`
	TravelMinutes int                `json:"travel_minutes"`
	LeaveBy       time.Time          `json:"leave_by"`
	TimeToLeave   bool               `json:"time_to_leave"`
}

type Tracking struct {
	Ticket            models.Ticket     `json:"ticket"`
	Branch            models.BranchInfo `json:"branch"`
	Position          int               `json:"position"`
	SecondsUntilStart int64             `json:"seconds_until_start"`
	Travel            *TravelAdvice     `json:"travel,omitempty"`
	LocationError     string            `json:"location_error,omitempty"`
}

// Track builds the customer's view of a ticket. Position counts tickets still
// waiting to be served, in join order, and is 0 once the ticket is in service
// or closed. Location failures are reported, not returned.
func (s *Service) Track(ctx context.Context, ticketID string, provider geo.LocationProvider) (Tracking, error) {
	ctx, span := s.tracer.Start(ctx, "queue.Track", trace.WithAttributes(attribute.String("ticket_id", ticketID)))
	defer span.End()

	ticket, err := s.store.GetTicket(ctx, ticketID)
	if err != nil {
		return Tracking{}, err
	}
	info, _ := models.LookupBranch(ticket.Branch)
	active, err := s.store.ListActiveQueue(ctx, ticket.Branch)
	if err != nil {
		return Tracking{}, err
	}

	now := s.clock.Now()
	tracking := Tracking{
		Ticket:   ticket,
		Branch:   info,
		Position: queuePosition(active, ticket.TicketID),
	}
	if until := ticket.EstimatedStartTime.Sub(now); until > 0 {
		tracking.SecondsUntilStart = int64(until / time.Second)
	}

	if provider == nil {
		return tracking, nil
	}
	origin, err := geo.Locate(ctx, provider, s.locationTimeout)
	if err != nil {
		tracking.LocationError = locationErrorCode(err)
		return tracking, nil
	}
	estimate, err := geo.EstimateTravel(origin, info.Coordinates)
	if err != nil {
		tracking.LocationError = locationErrorCode(err)
		return tracking, nil
	}
	leaveBy := geo.LeaveBy(ticket.EstimatedStartTime, estimate.TravelMinutes)
	tracking.Travel = &TravelAdvice{
		Origin:        origin,
		DistanceKm:    estimate.DistanceKm,
		TravelMinutes: estimate.TravelMinutes,
		LeaveBy:       leaveBy,
		TimeToLeave:   geo.TimeToLeave(now, leaveBy),
	}
	return tracking, nil
}

func queuePosition(active []models.Ticket, ticketID string) int {
	var waiting []models.Ticket
	for _, ticket := range active {
		switch ticket.Status {
		case models.StatusWaiting, models.StatusAlmostTurn, models.StatusPleaseArrive:
			waiting = append(waiting, ticket)
		}
	}
	sort.SliceStable(waiting, func(i, j int) bool {
		return waiting[i].JoinedAt.Before(waiting[j].JoinedAt)
	})
	for i, ticket := range waiting {
		if ticket.TicketID == ticketID {
			return i + 1
		}
	}
	return 0
}

func locationErrorCode(err error) string {
	switch {
	case errors.Is(err, geo.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, geo.ErrInvalidCoordinates):
		return "invalid_coordinates"
	default:
		return "unavailable"
	}
}
