package models

import "time"

type Ticket struct {
	TicketID              string    `json:"ticket_id"`
	QueueNumber           string    `json:"queue_number"`
	Branch                Branch    `json:"branch"`
	CustomerName          string    `json:"customer_name"`
	PhoneNumber           string    `json:"phone_number"`
	StyleID               string    `json:"style_id"`
	DurationMinutes       int       `json:"duration_minutes"`
	Length                string    `json:"length"`
	BringingOwnExtensions bool      `json:"bringing_own_extensions"`
	SelectedExtensions    []string  `json:"selected_extensions,omitempty"`
	Notes                 string    `json:"notes,omitempty"`
	Status                string    `json:"status"`
	JoinedAt              time.Time `json:"joined_at"`
	EstimatedStartTime    time.Time `json:"estimated_start_time"`
	Paid                  bool      `json:"paid"`
	ScheduleDegraded      bool      `json:"schedule_degraded,omitempty"`
}

const (
	StatusWaiting      = "waiting"
	StatusAlmostTurn   = "almost_turn"
	StatusPleaseArrive = "please_arrive"
	StatusInService    = "in_service"
	StatusCompleted    = "completed"
	StatusNoShow       = "no_show"
)

// DefaultDurationMinutes is used when a ticket carries no service length.
const DefaultDurationMinutes = 120

// Duration returns the ticket's service length, falling back to the default.
func (t Ticket) Duration() time.Duration {
	minutes := t.DurationMinutes
	if minutes <= 0 {
		minutes = DefaultDurationMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// EstimatedEndTime is the projected end of service.
func (t Ticket) EstimatedEndTime() time.Time {
	return t.EstimatedStartTime.Add(t.Duration())
}

func IsActiveStatus(status string) bool {
	switch status {
	case StatusWaiting, StatusAlmostTurn, StatusPleaseArrive, StatusInService:
		return true
	}
	return false
}

func IsTerminalStatus(status string) bool {
	return status == StatusCompleted || status == StatusNoShow
}

func IsKnownStatus(status string) bool {
	return IsActiveStatus(status) || IsTerminalStatus(status)
}
