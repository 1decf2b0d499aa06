// Package memory keeps the queue and catalogue in process memory behind a
// single read/write lock. Reads return copies, so callers never observe a
// ticket while it is being written.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"braidsbar/queue-service/internal/models"
	"braidsbar/queue-service/internal/store"

	"github.com/google/uuid"
)

const ticketNumberPad = 3

var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	tickets     map[string]models.Ticket
	ticketOrder []string
	sequences   map[models.Branch]int
	events      map[string][]store.TicketEvent

	styles         map[string]models.Style
	styleOrder     []string
	inventory      map[string]models.InventoryItem
	inventoryOrder []string
}

func NewStore() *Store {
	return &Store{
		tickets:   make(map[string]models.Ticket),
		sequences: make(map[models.Branch]int),
		events:    make(map[string][]store.TicketEvent),
		styles:    make(map[string]models.Style),
		inventory: make(map[string]models.InventoryItem),
	}
}

func (s *Store) CreateTicket(ctx context.Context, input store.CreateTicketInput, plan store.SlotPlanner) (models.Ticket, error) {
	info, ok := models.LookupBranch(input.Branch)
	if !ok {
		return models.Ticket{}, store.ErrBranchNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	slot, err := plan(s.activeQueueLocked(input.Branch))
	if err != nil {
		return models.Ticket{}, err
	}

	joinedAt := input.JoinedAt
	if joinedAt.IsZero() {
		joinedAt = time.Now().UTC()
	}
	seq := s.sequences[input.Branch] + 1
	ticket := models.Ticket{
		TicketID:              uuid.NewString(),
		QueueNumber:           fmt.Sprintf("%s-%0*d", info.Prefix, ticketNumberPad, seq),
		Branch:                input.Branch,
		CustomerName:          input.CustomerName,
		PhoneNumber:           input.PhoneNumber,
		StyleID:               input.StyleID,
		DurationMinutes:       input.DurationMinutes,
		Length:                input.Length,
		BringingOwnExtensions: input.BringingOwnExtensions,
		SelectedExtensions:    append([]string(nil), input.SelectedExtensions...),
		Notes:                 input.Notes,
		Status:                models.StatusWaiting,
		JoinedAt:              joinedAt,
		EstimatedStartTime:    slot.EstimatedStartTime,
		Paid:                  false,
		ScheduleDegraded:      slot.Degraded,
	}

	if err := s.appendEventLocked(ticket, store.EventTicketCreated, "", joinedAt); err != nil {
		return models.Ticket{}, err
	}
	s.sequences[input.Branch] = seq
	s.tickets[ticket.TicketID] = ticket
	s.ticketOrder = append(s.ticketOrder, ticket.TicketID)
	return cloneTicket(ticket), nil
}

func (s *Store) GetTicket(ctx context.Context, ticketID string) (models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ticket, ok := s.tickets[ticketID]
	if !ok {
		return models.Ticket{}, store.ErrTicketNotFound
	}
	return cloneTicket(ticket), nil
}

func (s *Store) FindTicketByPhone(ctx context.Context, phone string) (models.Ticket, bool, error) {
	phone = strings.TrimSpace(phone)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.ticketOrder) - 1; i >= 0; i-- {
		ticket := s.tickets[s.ticketOrder[i]]
		if ticket.PhoneNumber == phone && ticket.Status != models.StatusCompleted {
			return cloneTicket(ticket), true, nil
		}
	}
	return models.Ticket{}, false, nil
}

func (s *Store) ListTickets(ctx context.Context, branch models.Branch) ([]models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterLocked(func(t models.Ticket) bool { return t.Branch == branch }), nil
}

func (s *Store) ListActiveQueue(ctx context.Context, branch models.Branch) ([]models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeQueueLocked(branch), nil
}

func (s *Store) ListTicketsByStatus(ctx context.Context, status string) ([]models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterLocked(func(t models.Ticket) bool { return t.Status == status }), nil
}

func (s *Store) UpdateTicketStatus(ctx context.Context, input store.StatusChangeInput) (store.StatusChange, error) {
	if !models.IsKnownStatus(input.Status) {
		return store.StatusChange{}, store.ErrInvalidStatus
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, ok := s.tickets[input.TicketID]
	if !ok {
		return store.StatusChange{}, store.ErrTicketNotFound
	}
	if ticket.Status == input.Status {
		return store.StatusChange{Ticket: cloneTicket(ticket), From: ticket.Status}, nil
	}
	if !store.ValidTransition(ticket.Status, input.Status) {
		return store.StatusChange{}, store.ErrInvalidTransition
	}

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	from := ticket.Status
	ticket.Status = input.Status
	if err := s.appendEventLocked(ticket, store.EventTicketStatusChanged, from, occurredAt); err != nil {
		return store.StatusChange{}, err
	}
	s.tickets[ticket.TicketID] = ticket
	return store.StatusChange{Ticket: cloneTicket(ticket), From: from, Changed: true}, nil
}

func (s *Store) DeleteTicket(ctx context.Context, ticketID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, ok := s.tickets[ticketID]
	if !ok {
		return store.ErrTicketNotFound
	}
	if err := s.appendEventLocked(ticket, store.EventTicketDeleted, ticket.Status, time.Now().UTC()); err != nil {
		return err
	}
	delete(s.tickets, ticketID)
	for i, id := range s.ticketOrder {
		if id == ticketID {
			s.ticketOrder = append(s.ticketOrder[:i], s.ticketOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) ListTicketEvents(ctx context.Context, ticketID string) ([]store.TicketEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	trail, ok := s.events[ticketID]
	if !ok {
		return nil, store.ErrTicketNotFound
	}
	out := make([]store.TicketEvent, len(trail))
	copy(out, trail)
	return out, nil
}

func (s *Store) CreateStyle(ctx context.Context, style models.Style) (models.Style, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if style.StyleID == "" {
		style.StyleID = uuid.NewString()
	}
	if _, exists := s.styles[style.StyleID]; exists {
		return models.Style{}, store.ErrDuplicateID
	}
	style.Images = append([]string(nil), style.Images...)
	s.styles[style.StyleID] = style
	s.styleOrder = append(s.styleOrder, style.StyleID)
	return cloneStyle(style), nil
}

func (s *Store) UpdateStyle(ctx context.Context, styleID string, patch models.StylePatch) (models.Style, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	style, ok := s.styles[styleID]
	if !ok {
		return models.Style{}, store.ErrStyleNotFound
	}
	style = patch.Apply(style)
	s.styles[styleID] = style
	return cloneStyle(style), nil
}

func (s *Store) GetStyle(ctx context.Context, styleID string) (models.Style, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	style, ok := s.styles[styleID]
	if !ok {
		return models.Style{}, store.ErrStyleNotFound
	}
	return cloneStyle(style), nil
}

func (s *Store) ListStyles(ctx context.Context, includeHidden bool) ([]models.Style, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Style, 0, len(s.styleOrder))
	for _, id := range s.styleOrder {
		style := s.styles[id]
		if style.Hidden && !includeHidden {
			continue
		}
		out = append(out, cloneStyle(style))
	}
	return out, nil
}

func (s *Store) CreateInventoryItem(ctx context.Context, item models.InventoryItem) (models.InventoryItem, error) {
	if item.StockCount < 0 {
		return models.InventoryItem{}, store.ErrInvalidStock
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ItemID == "" {
		item.ItemID = uuid.NewString()
	}
	if _, exists := s.inventory[item.ItemID]; exists {
		return models.InventoryItem{}, store.ErrDuplicateID
	}
	s.inventory[item.ItemID] = item
	s.inventoryOrder = append(s.inventoryOrder, item.ItemID)
	return item, nil
}

func (s *Store) UpdateInventoryItem(ctx context.Context, itemID string, patch models.InventoryPatch) (models.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.inventory[itemID]
	if !ok {
		return models.InventoryItem{}, store.ErrInventoryNotFound
	}
	item = patch.Apply(item)
	if item.StockCount < 0 {
		return models.InventoryItem{}, store.ErrInvalidStock
	}
	s.inventory[itemID] = item
	return item, nil
}

func (s *Store) AdjustStock(ctx context.Context, itemID string, delta int) (models.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.inventory[itemID]
	if !ok {
		return models.InventoryItem{}, store.ErrInventoryNotFound
	}
	if item.StockCount+delta < 0 {
		return models.InventoryItem{}, store.ErrInvalidStock
	}
	item.StockCount += delta
	s.inventory[itemID] = item
	return item, nil
}

func (s *Store) GetInventoryItem(ctx context.Context, itemID string) (models.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.inventory[itemID]
	if !ok {
		return models.InventoryItem{}, store.ErrInventoryNotFound
	}
	return item, nil
}

func (s *Store) ListInventory(ctx context.Context) ([]models.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.InventoryItem, 0, len(s.inventoryOrder))
	for _, id := range s.inventoryOrder {
		out = append(out, s.inventory[id])
	}
	return out, nil
}

func (s *Store) activeQueueLocked(branch models.Branch) []models.Ticket {
	return s.filterLocked(func(t models.Ticket) bool {
		return t.Branch == branch && models.IsActiveStatus(t.Status)
	})
}

// filterLocked returns matching tickets ordered by estimated start; ties keep
// creation order.
func (s *Store) filterLocked(match func(models.Ticket) bool) []models.Ticket {
	var out []models.Ticket
	for _, id := range s.ticketOrder {
		ticket := s.tickets[id]
		if match(ticket) {
			out = append(out, cloneTicket(ticket))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EstimatedStartTime.Before(out[j].EstimatedStartTime)
	})
	return out
}

func (s *Store) appendEventLocked(ticket models.Ticket, eventType, fromStatus string, at time.Time) error {
	payload, err := store.TicketEventPayload(ticket, fromStatus)
	if err != nil {
		return err
	}
	trail := s.events[ticket.TicketID]
	s.events[ticket.TicketID] = append(trail, store.NextTicketEvent(trail, ticket.TicketID, eventType, payload, at.UTC()))
	return nil
}

func cloneTicket(t models.Ticket) models.Ticket {
	t.SelectedExtensions = append([]string(nil), t.SelectedExtensions...)
	return t
}

func cloneStyle(s models.Style) models.Style {
	s.Images = append([]string(nil), s.Images...)
	return s
}
