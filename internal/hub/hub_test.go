package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"braidsbar/queue-service/internal/events"
	"braidsbar/queue-service/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(id string, sub Subscription) *Client {
	return &Client{ID: id, Send: make(chan []byte, 1), Subscription: sub, subscribed: true}
}

func TestPublishRoutesByBranch(t *testing.T) {
	h := New(zerolog.Nop())
	madina := newClient("a", Subscription{Branch: models.BranchMadina})
	accra := newClient("b", Subscription{Branch: models.BranchAccra})
	all := newClient("c", Subscription{})
	h.Register(madina)
	h.Register(accra)
	h.Register(all)

	event := events.Event{
		Type:   "ticket.created",
		Branch: models.BranchMadina,
		Ticket: models.Ticket{TicketID: "t1", QueueNumber: "MAD-001"},
	}
	require.NoError(t, h.Publish(context.Background(), event))

	assert.Len(t, madina.Send, 1)
	assert.Len(t, accra.Send, 0)
	assert.Len(t, all.Send, 1)

	var decoded StreamEvent
	require.NoError(t, json.Unmarshal(<-madina.Send, &decoded))
	assert.Equal(t, "MAD-001", decoded.QueueNumber)
	assert.Equal(t, "t1", decoded.TicketID)
}

func TestPublishOmitsCustomerDetails(t *testing.T) {
	h := New(zerolog.Nop())
	client := newClient("a", Subscription{})
	h.Register(client)

	start := time.Date(2026, time.October, 12, 10, 0, 0, 0, time.UTC)
	event := events.Event{
		Type:       "ticket.status_changed",
		Branch:     models.BranchAccra,
		FromStatus: models.StatusWaiting,
		Ticket: models.Ticket{
			TicketID:           "t9",
			QueueNumber:        "ACC-004",
			Branch:             models.BranchAccra,
			CustomerName:       "Akosua Mensah",
			PhoneNumber:        "0241234567",
			Notes:              "allergic to hair oil",
			Status:             models.StatusAlmostTurn,
			EstimatedStartTime: start,
		},
	}
	require.NoError(t, h.Publish(context.Background(), event))

	payload := <-client.Send
	assert.NotContains(t, string(payload), "0241234567")
	assert.NotContains(t, string(payload), "Akosua")
	assert.NotContains(t, string(payload), "hair oil")

	var raw map[string]any
	require.NoError(t, json.Unmarshal(payload, &raw))
	assert.NotContains(t, raw, "phone_number")
	assert.NotContains(t, raw, "customer_name")
	assert.NotContains(t, raw, "ticket")

	var decoded StreamEvent
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, StreamEvent{
		Type:               "ticket.status_changed",
		Branch:             models.BranchAccra,
		TicketID:           "t9",
		QueueNumber:        "ACC-004",
		Status:             models.StatusAlmostTurn,
		FromStatus:         models.StatusWaiting,
		EstimatedStartTime: start,
	}, decoded)
}

func TestClientReceivesNothingUntilSubscribed(t *testing.T) {
	h := New(zerolog.Nop())
	client := &Client{ID: "anon", Send: make(chan []byte, 1)}
	h.Register(client)

	h.Broadcast([]byte("x"), Subscription{Branch: models.BranchMadina, TicketID: "t1"})
	assert.Len(t, client.Send, 0)

	h.UpdateSubscription(client, Subscription{Branch: models.BranchMadina})
	h.Broadcast([]byte("y"), Subscription{Branch: models.BranchMadina, TicketID: "t1"})
	require.Len(t, client.Send, 1)
	assert.Equal(t, "y", string(<-client.Send))

	h.Unsubscribe(client)
	h.Broadcast([]byte("z"), Subscription{Branch: models.BranchMadina, TicketID: "t1"})
	assert.Len(t, client.Send, 0)
}

func TestTicketSubscription(t *testing.T) {
	h := New(zerolog.Nop())
	mine := newClient("a", Subscription{TicketID: "t1"})
	h.Register(mine)

	h.Broadcast([]byte("x"), Subscription{Branch: models.BranchMadina, TicketID: "t2"})
	assert.Len(t, mine.Send, 0)
	h.Broadcast([]byte("y"), Subscription{Branch: models.BranchMadina, TicketID: "t1"})
	assert.Len(t, mine.Send, 1)
}

func TestBroadcastDropsForSlowClient(t *testing.T) {
	h := New(zerolog.Nop())
	client := newClient("a", Subscription{})
	h.Register(client)

	h.Broadcast([]byte("1"), Subscription{})
	h.Broadcast([]byte("2"), Subscription{})

	assert.Equal(t, "1", string(<-client.Send))
	assert.Len(t, client.Send, 0)
}

func TestUnregisterClosesOnce(t *testing.T) {
	h := New(zerolog.Nop())
	client := newClient("a", Subscription{})
	h.Register(client)
	assert.Equal(t, 1, h.ClientCount())

	h.Unregister(client)
	h.Unregister(client)
	assert.Equal(t, 0, h.ClientCount())
	_, open := <-client.Send
	assert.False(t, open)
}

func TestParseSubscribe(t *testing.T) {
	msg, ok := ParseSubscribe([]byte(`{"action":"subscribe","branch":" Madina "}`))
	require.True(t, ok)
	sub, ok := msg.Subscription()
	require.True(t, ok)
	assert.Equal(t, models.BranchMadina, sub.Branch)

	msg, ok = ParseSubscribe([]byte(`{"action":"subscribe","branch":"kumasi"}`))
	require.True(t, ok)
	_, ok = msg.Subscription()
	assert.False(t, ok)

	msg, ok = ParseSubscribe([]byte(`{"action":"unsubscribe"}`))
	require.True(t, ok)
	sub, ok = msg.Subscription()
	require.True(t, ok)
	assert.Equal(t, Subscription{}, sub)

	_, ok = ParseSubscribe([]byte(`{"action":"shout"}`))
	assert.False(t, ok)
	_, ok = ParseSubscribe([]byte(`not json`))
	assert.False(t, ok)
}
