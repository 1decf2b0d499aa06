package store

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"braidsbar/queue-service/internal/models"
)

const (
	EventTicketCreated       = "ticket.created"
	EventTicketStatusChanged = "ticket.status_changed"
	EventTicketDeleted       = "ticket.deleted"
)

type TicketEvent struct {
	TicketID  string          `json:"ticket_id"`
	TicketSeq int             `json:"ticket_seq"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	PrevHash  string          `json:"prev_hash"`
	Hash      string          `json:"hash"`
}

type eventPayload struct {
	TicketID           string        `json:"ticket_id"`
	QueueNumber        string        `json:"queue_number"`
	Branch             models.Branch `json:"branch"`
	Status             string        `json:"status"`
	FromStatus         string        `json:"from_status,omitempty"`
	EstimatedStartTime *time.Time    `json:"estimated_start_time,omitempty"`
}

// TicketEventPayload is the JSON body recorded for a ticket event.
func TicketEventPayload(ticket models.Ticket, fromStatus string) (json.RawMessage, error) {
	payload := eventPayload{
		TicketID:    ticket.TicketID,
		QueueNumber: ticket.QueueNumber,
		Branch:      ticket.Branch,
		Status:      ticket.Status,
		FromStatus:  fromStatus,
	}
	if !ticket.EstimatedStartTime.IsZero() {
		start := ticket.EstimatedStartTime
		payload.EstimatedStartTime = &start
	}
	return json.Marshal(payload)
}

func ComputeTicketEventHash(prevHash, ticketID, eventType string, payload json.RawMessage, createdAt time.Time, seq int) string {
	raw := fmt.Sprintf("%s|%s|%s|%s|%d|%s", prevHash, ticketID, eventType, createdAt.UTC().Format(time.RFC3339Nano), seq, payload)
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", sum)
}

// NextTicketEvent chains a new event onto the ticket's existing trail.
func NextTicketEvent(trail []TicketEvent, ticketID, eventType string, payload json.RawMessage, createdAt time.Time) TicketEvent {
	prev := ""
	seq := 1
	if n := len(trail); n > 0 {
		prev = trail[n-1].Hash
		seq = trail[n-1].TicketSeq + 1
	}
	return TicketEvent{
		TicketID:  ticketID,
		TicketSeq: seq,
		Type:      eventType,
		Payload:   payload,
		CreatedAt: createdAt,
		PrevHash:  prev,
		Hash:      ComputeTicketEventHash(prev, ticketID, eventType, payload, createdAt, seq),
	}
}

// VerifyTicketEvents reports the sequence number of the first event whose hash
// does not match its content, or 0 when the trail is intact.
func VerifyTicketEvents(trail []TicketEvent) int {
	prev := ""
	for _, event := range trail {
		if event.PrevHash != prev {
			return event.TicketSeq
		}
		if ComputeTicketEventHash(prev, event.TicketID, event.Type, event.Payload, event.CreatedAt, event.TicketSeq) != event.Hash {
			return event.TicketSeq
		}
		prev = event.Hash
	}
	return 0
}

// RehydrateTicketStatus replays a trail and returns the last recorded status.
func RehydrateTicketStatus(trail []TicketEvent) (string, error) {
	status := ""
	for _, event := range trail {
		if len(event.Payload) == 0 {
			continue
		}
		var payload eventPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return "", err
		}
		if payload.Status != "" {
			status = payload.Status
		}
	}
	return status, nil
}
