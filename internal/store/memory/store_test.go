package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"braidsbar/queue-service/internal/models"
	"braidsbar/queue-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, time.October, 12, 10, 0, 0, 0, time.UTC)

func fixedPlan(start time.Time) store.SlotPlanner {
	return func(active []models.Ticket) (store.SlotPlan, error) {
		return store.SlotPlan{EstimatedStartTime: start}, nil
	}
}

func newInput(branch models.Branch, phone string, joined time.Time) store.CreateTicketInput {
	return store.CreateTicketInput{
		Branch:          branch,
		CustomerName:    "Ama",
		PhoneNumber:     phone,
		StyleID:         "s1",
		DurationMinutes: 240,
		JoinedAt:        joined,
	}
}

func TestCreateTicketAssignsSequentialNumbers(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	first, err := s.CreateTicket(ctx, newInput(models.BranchMadina, "0241234567", base), fixedPlan(base))
	require.NoError(t, err)
	second, err := s.CreateTicket(ctx, newInput(models.BranchMadina, "0241234568", base), fixedPlan(base.Add(4*time.Hour)))
	require.NoError(t, err)
	accra, err := s.CreateTicket(ctx, newInput(models.BranchAccra, "0241234569", base), fixedPlan(base))
	require.NoError(t, err)

	assert.Equal(t, "MAD-001", first.QueueNumber)
	assert.Equal(t, "MAD-002", second.QueueNumber)
	assert.Equal(t, "ACC-001", accra.QueueNumber)
	assert.Equal(t, models.StatusWaiting, first.Status)
	assert.False(t, first.Paid)
	assert.NotEmpty(t, first.TicketID)
}

func TestQueueNumbersAreNotReusedAfterDelete(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	first, err := s.CreateTicket(ctx, newInput(models.BranchMadina, "0241234567", base), fixedPlan(base))
	require.NoError(t, err)
	require.NoError(t, s.DeleteTicket(ctx, first.TicketID))

	next, err := s.CreateTicket(ctx, newInput(models.BranchMadina, "0241234568", base), fixedPlan(base))
	require.NoError(t, err)
	assert.Equal(t, "MAD-002", next.QueueNumber)

	_, err = s.GetTicket(ctx, first.TicketID)
	assert.ErrorIs(t, err, store.ErrTicketNotFound)
	assert.ErrorIs(t, s.DeleteTicket(ctx, first.TicketID), store.ErrTicketNotFound)
}

func TestCreateTicketUnknownBranch(t *testing.T) {
	s := NewStore()
	_, err := s.CreateTicket(context.Background(), newInput("kumasi", "0241234567", base), fixedPlan(base))
	assert.ErrorIs(t, err, store.ErrBranchNotFound)
}

func TestPlannerSeesActiveQueueOrderedByStart(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	late, err := s.CreateTicket(ctx, newInput(models.BranchMadina, "0241234567", base), fixedPlan(base.Add(6*time.Hour)))
	require.NoError(t, err)
	early, err := s.CreateTicket(ctx, newInput(models.BranchMadina, "0241234568", base), fixedPlan(base.Add(time.Hour)))
	require.NoError(t, err)
	done, err := s.CreateTicket(ctx, newInput(models.BranchMadina, "0241234569", base), fixedPlan(base))
	require.NoError(t, err)
	_, err = s.UpdateTicketStatus(ctx, store.StatusChangeInput{TicketID: done.TicketID, Status: models.StatusCompleted})
	require.NoError(t, err)
	_, err = s.CreateTicket(ctx, newInput(models.BranchAccra, "0241234560", base), fixedPlan(base))
	require.NoError(t, err)

	var seen []models.Ticket
	_, err = s.CreateTicket(ctx, newInput(models.BranchMadina, "0241234561", base), func(active []models.Ticket) (store.SlotPlan, error) {
		seen = active
		return store.SlotPlan{EstimatedStartTime: base.Add(10 * time.Hour), Degraded: true}, nil
	})
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, early.TicketID, seen[0].TicketID)
	assert.Equal(t, late.TicketID, seen[1].TicketID)

	queue, err := s.ListActiveQueue(ctx, models.BranchMadina)
	require.NoError(t, err)
	require.Len(t, queue, 3)
	assert.True(t, queue[2].ScheduleDegraded)
}

func TestPlannerErrorLeavesNoTrace(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	boom := assert.AnError

	_, err := s.CreateTicket(ctx, newInput(models.BranchMadina, "0241234567", base), func([]models.Ticket) (store.SlotPlan, error) {
		return store.SlotPlan{}, boom
	})
	require.ErrorIs(t, err, boom)

	ticket, err := s.CreateTicket(ctx, newInput(models.BranchMadina, "0241234567", base), fixedPlan(base))
	require.NoError(t, err)
	assert.Equal(t, "MAD-001", ticket.QueueNumber)
}

func TestUpdateTicketStatus(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	ticket, err := s.CreateTicket(ctx, newInput(models.BranchMadina, "0241234567", base), fixedPlan(base))
	require.NoError(t, err)

	updated, err := s.UpdateTicketStatus(ctx, store.StatusChangeInput{TicketID: ticket.TicketID, Status: models.StatusPleaseArrive})
	require.NoError(t, err)
	assert.True(t, updated.Changed)
	assert.Equal(t, models.StatusWaiting, updated.From)
	assert.Equal(t, models.StatusPleaseArrive, updated.Ticket.Status)

	same, err := s.UpdateTicketStatus(ctx, store.StatusChangeInput{TicketID: ticket.TicketID, Status: models.StatusPleaseArrive})
	require.NoError(t, err)
	assert.False(t, same.Changed)
	assert.Equal(t, models.StatusPleaseArrive, same.From)
	assert.Equal(t, models.StatusPleaseArrive, same.Ticket.Status)

	_, err = s.UpdateTicketStatus(ctx, store.StatusChangeInput{TicketID: ticket.TicketID, Status: models.StatusWaiting})
	assert.ErrorIs(t, err, store.ErrInvalidTransition)

	_, err = s.UpdateTicketStatus(ctx, store.StatusChangeInput{TicketID: ticket.TicketID, Status: "served"})
	assert.ErrorIs(t, err, store.ErrInvalidStatus)

	_, err = s.UpdateTicketStatus(ctx, store.StatusChangeInput{TicketID: "missing", Status: models.StatusCompleted})
	assert.ErrorIs(t, err, store.ErrTicketNotFound)

	events, err := s.ListTicketEvents(ctx, ticket.TicketID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, store.EventTicketCreated, events[0].Type)
	assert.Equal(t, store.EventTicketStatusChanged, events[1].Type)
	assert.Equal(t, 0, store.VerifyTicketEvents(events))
	status, err := store.RehydrateTicketStatus(events)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPleaseArrive, status)
}

func TestDeleteKeepsEventTrail(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	ticket, err := s.CreateTicket(ctx, newInput(models.BranchMadina, "0241234567", base), fixedPlan(base))
	require.NoError(t, err)
	require.NoError(t, s.DeleteTicket(ctx, ticket.TicketID))

	events, err := s.ListTicketEvents(ctx, ticket.TicketID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, store.EventTicketDeleted, events[1].Type)

	_, err = s.ListTicketEvents(ctx, "never-existed")
	assert.ErrorIs(t, err, store.ErrTicketNotFound)
}

func TestFindTicketByPhoneReturnsLatestOpenTicket(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	old, err := s.CreateTicket(ctx, newInput(models.BranchMadina, "0241234567", base), fixedPlan(base))
	require.NoError(t, err)
	_, err = s.UpdateTicketStatus(ctx, store.StatusChangeInput{TicketID: old.TicketID, Status: models.StatusCompleted})
	require.NoError(t, err)

	_, found, err := s.FindTicketByPhone(ctx, "0241234567")
	require.NoError(t, err)
	assert.False(t, found)

	fresh, err := s.CreateTicket(ctx, newInput(models.BranchAccra, "0241234567", base.Add(time.Hour)), fixedPlan(base))
	require.NoError(t, err)

	got, found, err := s.FindTicketByPhone(ctx, " 0241234567 ")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, fresh.TicketID, got.TicketID)
}

func TestReadsReturnCopies(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	input := newInput(models.BranchMadina, "0241234567", base)
	input.SelectedExtensions = []string{"i1"}
	ticket, err := s.CreateTicket(ctx, input, fixedPlan(base))
	require.NoError(t, err)

	ticket.SelectedExtensions[0] = "mutated"
	input.SelectedExtensions[0] = "mutated"

	got, err := s.GetTicket(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, []string{"i1"}, got.SelectedExtensions)
}

func TestConcurrentCreatesProduceUniqueNumbers(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	const n = 50
	numbers := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticket, err := s.CreateTicket(ctx, newInput(models.BranchMadina, "0241234567", base), fixedPlan(base))
			if err == nil {
				numbers <- ticket.QueueNumber
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := make(map[string]bool)
	for number := range numbers {
		assert.False(t, seen[number], "duplicate %s", number)
		seen[number] = true
	}
	assert.Len(t, seen, n)
}

func TestCatalogue(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	style, err := s.CreateStyle(ctx, models.Style{StyleID: "s1", Name: "Knotless", Category: "Knotless", DurationMinutes: 240})
	require.NoError(t, err)
	_, err = s.CreateStyle(ctx, models.Style{StyleID: "s1", Name: "Dup", Category: "Knotless", DurationMinutes: 60})
	assert.ErrorIs(t, err, store.ErrDuplicateID)

	hidden := true
	_, err = s.UpdateStyle(ctx, style.StyleID, models.StylePatch{Hidden: &hidden})
	require.NoError(t, err)

	visible, err := s.ListStyles(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, visible)
	all, err := s.ListStyles(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = s.GetStyle(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrStyleNotFound)

	item, err := s.CreateInventoryItem(ctx, models.InventoryItem{ItemID: "i1", Name: "X-pression", Price: 35, StockCount: 2})
	require.NoError(t, err)
	item, err = s.AdjustStock(ctx, item.ItemID, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, item.StockCount)

	_, err = s.AdjustStock(ctx, item.ItemID, -6)
	assert.ErrorIs(t, err, store.ErrInvalidStock)

	negative := -1
	_, err = s.UpdateInventoryItem(ctx, item.ItemID, models.InventoryPatch{StockCount: &negative})
	assert.ErrorIs(t, err, store.ErrInvalidStock)

	_, err = s.AdjustStock(ctx, "missing", 1)
	assert.ErrorIs(t, err, store.ErrInventoryNotFound)

	items, err := s.ListInventory(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].StockCount)
}
