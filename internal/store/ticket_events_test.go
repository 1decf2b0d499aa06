package store

import (
	"testing"
	"time"

	"braidsbar/queue-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketEventChain(t *testing.T) {
	ticket := models.Ticket{
		TicketID:           "t-1",
		QueueNumber:        "MAD-001",
		Branch:             models.BranchMadina,
		Status:             models.StatusWaiting,
		EstimatedStartTime: time.Date(2026, time.October, 12, 9, 30, 0, 0, time.UTC),
	}
	created := time.Date(2026, time.October, 12, 9, 0, 0, 0, time.UTC)

	payload, err := TicketEventPayload(ticket, "")
	require.NoError(t, err)
	first := NextTicketEvent(nil, ticket.TicketID, EventTicketCreated, payload, created)

	ticket.Status = models.StatusInService
	payload, err = TicketEventPayload(ticket, models.StatusWaiting)
	require.NoError(t, err)
	second := NextTicketEvent([]TicketEvent{first}, ticket.TicketID, EventTicketStatusChanged, payload, created.Add(time.Minute))

	assert.Equal(t, 1, first.TicketSeq)
	assert.Equal(t, 2, second.TicketSeq)
	assert.Equal(t, first.Hash, second.PrevHash)
	assert.Zero(t, VerifyTicketEvents([]TicketEvent{first, second}))

	status, err := RehydrateTicketStatus([]TicketEvent{first, second})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInService, status)

	tampered := second
	tampered.Payload = []byte(`{"status":"completed"}`)
	assert.Equal(t, 2, VerifyTicketEvents([]TicketEvent{first, tampered}))
}
