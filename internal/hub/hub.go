package hub

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"braidsbar/queue-service/internal/events"
	"braidsbar/queue-service/internal/models"

	"github.com/rs/zerolog"
)

type Subscription struct {
	Branch   models.Branch
	TicketID string
}

// Client receives nothing until it subscribes. An empty Subscription
// matches every branch.
type Client struct {
	ID           string
	Send         chan []byte
	Subscription Subscription
	subscribed   bool
}

// StreamEvent is the public view of a ticket event. Customer names, phone
// numbers and notes are never streamed.
type StreamEvent struct {
	Type               string        `json:"type"`
	Branch             models.Branch `json:"branch"`
	TicketID           string        `json:"ticket_id"`
	QueueNumber        string        `json:"queue_number"`
	Status             string        `json:"status"`
	FromStatus         string        `json:"from_status,omitempty"`
	EstimatedStartTime time.Time     `json:"estimated_start_time"`
	OccurredAt         time.Time     `json:"occurred_at"`
}

func NewStreamEvent(event events.Event) StreamEvent {
	return StreamEvent{
		Type:               event.Type,
		Branch:             event.Branch,
		TicketID:           event.Ticket.TicketID,
		QueueNumber:        event.Ticket.QueueNumber,
		Status:             event.Ticket.Status,
		FromStatus:         event.FromStatus,
		EstimatedStartTime: event.Ticket.EstimatedStartTime,
		OccurredAt:         event.OccurredAt,
	}
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  zerolog.Logger
}

type SubscribeMessage struct {
	Action   string `json:"action"`
	Branch   string `json:"branch"`
	TicketID string `json:"ticket_id"`
}

func New(logger zerolog.Logger) *Hub {
	return &Hub{clients: make(map[string]*Client), logger: logger}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	close(client.Send)
}

func (h *Hub) UpdateSubscription(client *Client, sub Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client.Subscription = sub
	client.subscribed = true
}

func (h *Hub) Unsubscribe(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client.Subscription = Subscription{}
	client.subscribed = false
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Broadcast(payload []byte, meta Subscription) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if !client.subscribed || !match(client.Subscription, meta) {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			h.logger.Warn().Str("client_id", client.ID).Msg("drop message for slow client")
		}
	}
}

// Publish lets the hub sit behind events.Publisher.
func (h *Hub) Publish(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(NewStreamEvent(event))
	if err != nil {
		return err
	}
	h.Broadcast(payload, Subscription{Branch: event.Branch, TicketID: event.Ticket.TicketID})
	return nil
}

func match(sub Subscription, meta Subscription) bool {
	if sub.Branch != "" && meta.Branch != sub.Branch {
		return false
	}
	if sub.TicketID != "" && meta.TicketID != sub.TicketID {
		return false
	}
	return true
}

func ParseSubscribe(data []byte) (SubscribeMessage, bool) {
	var msg SubscribeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return SubscribeMessage{}, false
	}
	if msg.Action != "subscribe" && msg.Action != "unsubscribe" {
		return SubscribeMessage{}, false
	}
	msg.Branch = strings.TrimSpace(msg.Branch)
	msg.TicketID = strings.TrimSpace(msg.TicketID)
	return msg, true
}

// Subscription resolves the branch named in a subscribe message.
func (m SubscribeMessage) Subscription() (Subscription, bool) {
	sub := Subscription{TicketID: m.TicketID}
	if m.Branch != "" {
		branch, ok := models.ParseBranch(m.Branch)
		if !ok {
			return Subscription{}, false
		}
		sub.Branch = branch
	}
	return sub, true
}
