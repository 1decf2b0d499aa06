package store

import (
	"context"
	"time"

	"braidsbar/queue-service/internal/models"
)

type CreateTicketInput struct {
	Branch                models.Branch
	CustomerName          string
	PhoneNumber           string
	StyleID               string
	DurationMinutes       int
	Length                string
	BringingOwnExtensions bool
	SelectedExtensions    []string
	Notes                 string
	JoinedAt              time.Time
}

// SlotPlan is the schedule decided for a new ticket.
type SlotPlan struct {
	EstimatedStartTime time.Time
	Degraded           bool
}

// SlotPlanner is invoked with the branch's active queue, ordered by estimated
// start, while the store holds the branch's write guard.
type SlotPlanner func(active []models.Ticket) (SlotPlan, error)

type StatusChangeInput struct {
	TicketID   string
	Status     string
	OccurredAt time.Time
}

// StatusChange reports the ticket after an update and the status it held
// when the store locked it. Changed is false when the status was already set.
type StatusChange struct {
	Ticket  models.Ticket
	From    string
	Changed bool
}

type TicketStore interface {
	CreateTicket(ctx context.Context, input CreateTicketInput, plan SlotPlanner) (models.Ticket, error)
	GetTicket(ctx context.Context, ticketID string) (models.Ticket, error)
	FindTicketByPhone(ctx context.Context, phone string) (models.Ticket, bool, error)
	ListTickets(ctx context.Context, branch models.Branch) ([]models.Ticket, error)
	ListActiveQueue(ctx context.Context, branch models.Branch) ([]models.Ticket, error)
	ListTicketsByStatus(ctx context.Context, status string) ([]models.Ticket, error)
	UpdateTicketStatus(ctx context.Context, input StatusChangeInput) (StatusChange, error)
	DeleteTicket(ctx context.Context, ticketID string) error
	ListTicketEvents(ctx context.Context, ticketID string) ([]TicketEvent, error)
}

type CatalogueStore interface {
	CreateStyle(ctx context.Context, style models.Style) (models.Style, error)
	UpdateStyle(ctx context.Context, styleID string, patch models.StylePatch) (models.Style, error)
	GetStyle(ctx context.Context, styleID string) (models.Style, error)
	ListStyles(ctx context.Context, includeHidden bool) ([]models.Style, error)
	CreateInventoryItem(ctx context.Context, item models.InventoryItem) (models.InventoryItem, error)
	UpdateInventoryItem(ctx context.Context, itemID string, patch models.InventoryPatch) (models.InventoryItem, error)
	AdjustStock(ctx context.Context, itemID string, delta int) (models.InventoryItem, error)
	GetInventoryItem(ctx context.Context, itemID string) (models.InventoryItem, error)
	ListInventory(ctx context.Context) ([]models.InventoryItem, error)
}

type Store interface {
	TicketStore
	CatalogueStore
}
