package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"braidsbar/queue-service/internal/models"
	"braidsbar/queue-service/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const ticketNumberPad = 3

const uniqueViolation = "23505"

const ticketColumns = `ticket_id, queue_number, branch, customer_name, phone_number, style_id,
	duration_minutes, length, bringing_own_extensions, selected_extensions, notes, status,
	joined_at, estimated_start_time, paid, schedule_degraded`

const styleColumns = `style_id, name, category, description, price_range, base_price,
	duration_minutes, images, featured, trending, hidden, recommended_extensions`

const inventoryColumns = `item_id, name, price, stock_count, color, length, image`

var _ store.Store = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) CreateTicket(ctx context.Context, input store.CreateTicketInput, plan store.SlotPlanner) (models.Ticket, error) {
	info, ok := models.LookupBranch(input.Branch)
	if !ok {
		return models.Ticket{}, store.ErrBranchNotFound
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Serialises bookings per branch so the planner sees a stable queue.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "branch:"+string(input.Branch)); err != nil {
		return models.Ticket{}, err
	}

	active, err := queryTickets(ctx, tx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE branch = $1 AND status IN ('waiting','almost_turn','please_arrive','in_service')
		ORDER BY estimated_start_time ASC, joined_at ASC
	`, string(input.Branch))
	if err != nil {
		return models.Ticket{}, err
	}
	slot, err := plan(active)
	if err != nil {
		return models.Ticket{}, err
	}

	seq, err := nextTicketNumber(ctx, tx, input.Branch)
	if err != nil {
		return models.Ticket{}, err
	}

	joinedAt := input.JoinedAt
	if joinedAt.IsZero() {
		joinedAt = time.Now()
	}
	joinedAt = joinedAt.UTC().Truncate(time.Microsecond)
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
		SelectedExtensions:    nonNil(input.SelectedExtensions),
		Notes:                 input.Notes,
		Status:                models.StatusWaiting,
		JoinedAt:              joinedAt,
		EstimatedStartTime:    slot.EstimatedStartTime,
		ScheduleDegraded:      slot.Degraded,
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO tickets (`+ticketColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`, ticket.TicketID, ticket.QueueNumber, string(ticket.Branch), ticket.CustomerName, ticket.PhoneNumber, ticket.StyleID,
		ticket.DurationMinutes, ticket.Length, ticket.BringingOwnExtensions, ticket.SelectedExtensions, ticket.Notes, ticket.Status,
		ticket.JoinedAt, ticket.EstimatedStartTime, ticket.Paid, ticket.ScheduleDegraded)
	if err != nil {
		return models.Ticket{}, err
	}

	if err = insertTicketEvent(ctx, tx, ticket, store.EventTicketCreated, "", joinedAt); err != nil {
		return models.Ticket{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) GetTicket(ctx context.Context, ticketID string) (models.Ticket, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE ticket_id = $1`, ticketID)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, store.ErrTicketNotFound
		}
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) FindTicketByPhone(ctx context.Context, phone string) (models.Ticket, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE phone_number = $1 AND status <> 'completed'
		ORDER BY joined_at DESC
		LIMIT 1
	`, strings.TrimSpace(phone))
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, false, nil
		}
		return models.Ticket{}, false, err
	}
	return ticket, true, nil
}

func (s *Store) ListTickets(ctx context.Context, branch models.Branch) ([]models.Ticket, error) {
	return queryTickets(ctx, s.pool, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE branch = $1
		ORDER BY estimated_start_time ASC, joined_at ASC
	`, string(branch))
}

func (s *Store) ListActiveQueue(ctx context.Context, branch models.Branch) ([]models.Ticket, error) {
	return queryTickets(ctx, s.pool, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE branch = $1 AND status IN ('waiting','almost_turn','please_arrive','in_service')
		ORDER BY estimated_start_time ASC, joined_at ASC
	`, string(branch))
}

func (s *Store) ListTicketsByStatus(ctx context.Context, status string) ([]models.Ticket, error) {
	return queryTickets(ctx, s.pool, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE status = $1
		ORDER BY estimated_start_time ASC, joined_at ASC
	`, status)
}

func (s *Store) UpdateTicketStatus(ctx context.Context, input store.StatusChangeInput) (store.StatusChange, error) {
	if !models.IsKnownStatus(input.Status) {
		return store.StatusChange{}, store.ErrInvalidStatus
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return store.StatusChange{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE ticket_id = $1 FOR UPDATE`, input.TicketID)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.StatusChange{}, store.ErrTicketNotFound
		}
		return store.StatusChange{}, err
	}
	if ticket.Status == input.Status {
		return store.StatusChange{Ticket: ticket, From: ticket.Status}, nil
	}
	if !store.ValidTransition(ticket.Status, input.Status) {
		return store.StatusChange{}, store.ErrInvalidTransition
	}

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	from := ticket.Status
	if _, err = tx.Exec(ctx, `UPDATE tickets SET status = $2 WHERE ticket_id = $1`, ticket.TicketID, input.Status); err != nil {
		return store.StatusChange{}, err
	}
	ticket.Status = input.Status
	if err = insertTicketEvent(ctx, tx, ticket, store.EventTicketStatusChanged, from, occurredAt); err != nil {
		return store.StatusChange{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return store.StatusChange{}, err
	}
	return store.StatusChange{Ticket: ticket, From: from, Changed: true}, nil
}

func (s *Store) DeleteTicket(ctx context.Context, ticketID string) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `DELETE FROM tickets WHERE ticket_id = $1 RETURNING `+ticketColumns, ticketID)
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrTicketNotFound
		}
		return err
	}
	if err = insertTicketEvent(ctx, tx, ticket, store.EventTicketDeleted, ticket.Status, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) ListTicketEvents(ctx context.Context, ticketID string) ([]store.TicketEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ticket_id, ticket_seq, type, payload, created_at, prev_hash, hash
		FROM ticket_events
		WHERE ticket_id = $1
		ORDER BY ticket_seq ASC
	`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []store.TicketEvent
	for rows.Next() {
		var event store.TicketEvent
		var payload []byte
		if err := rows.Scan(&event.TicketID, &event.TicketSeq, &event.Type, &payload, &event.CreatedAt, &event.PrevHash, &event.Hash); err != nil {
			return nil, err
		}
		event.Payload = payload
		event.CreatedAt = event.CreatedAt.UTC()
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, store.ErrTicketNotFound
	}
	return events, nil
}

func (s *Store) CreateStyle(ctx context.Context, style models.Style) (models.Style, error) {
	if style.StyleID == "" {
		style.StyleID = uuid.NewString()
	}
	style.Images = nonNil(style.Images)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO styles (`+styleColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, style.StyleID, style.Name, style.Category, style.Description, style.PriceRange, style.BasePrice,
		style.DurationMinutes, style.Images, style.Featured, style.Trending, style.Hidden, style.RecommendedExtensions)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Style{}, store.ErrDuplicateID
		}
		return models.Style{}, err
	}
	return style, nil
}

func (s *Store) UpdateStyle(ctx context.Context, styleID string, patch models.StylePatch) (models.Style, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Style{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	style, err := scanStyle(tx.QueryRow(ctx, `SELECT `+styleColumns+` FROM styles WHERE style_id = $1 FOR UPDATE`, styleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Style{}, store.ErrStyleNotFound
		}
		return models.Style{}, err
	}
	style = patch.Apply(style)
	style.Images = nonNil(style.Images)
	_, err = tx.Exec(ctx, `
		UPDATE styles
		SET name = $2, category = $3, description = $4, price_range = $5, base_price = $6,
			duration_minutes = $7, images = $8, featured = $9, trending = $10, hidden = $11,
			recommended_extensions = $12
		WHERE style_id = $1
	`, style.StyleID, style.Name, style.Category, style.Description, style.PriceRange, style.BasePrice,
		style.DurationMinutes, style.Images, style.Featured, style.Trending, style.Hidden, style.RecommendedExtensions)
	if err != nil {
		return models.Style{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.Style{}, err
	}
	return style, nil
}

func (s *Store) GetStyle(ctx context.Context, styleID string) (models.Style, error) {
	style, err := scanStyle(s.pool.QueryRow(ctx, `SELECT `+styleColumns+` FROM styles WHERE style_id = $1`, styleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Style{}, store.ErrStyleNotFound
		}
		return models.Style{}, err
	}
	return style, nil
}

func (s *Store) ListStyles(ctx context.Context, includeHidden bool) ([]models.Style, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+styleColumns+`
		FROM styles
		WHERE $1 OR NOT hidden
		ORDER BY created_at ASC, style_id ASC
	`, includeHidden)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var styles []models.Style
	for rows.Next() {
		style, err := scanStyle(rows)
		if err != nil {
			return nil, err
		}
		styles = append(styles, style)
	}
	return styles, rows.Err()
}

func (s *Store) CreateInventoryItem(ctx context.Context, item models.InventoryItem) (models.InventoryItem, error) {
	if item.StockCount < 0 {
		return models.InventoryItem{}, store.ErrInvalidStock
	}
	if item.ItemID == "" {
		item.ItemID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO inventory_items (`+inventoryColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, item.ItemID, item.Name, item.Price, item.StockCount, item.Color, item.Length, item.Image)
	if err != nil {
		if isUniqueViolation(err) {
			return models.InventoryItem{}, store.ErrDuplicateID
		}
		return models.InventoryItem{}, err
	}
	return item, nil
}

func (s *Store) UpdateInventoryItem(ctx context.Context, itemID string, patch models.InventoryPatch) (models.InventoryItem, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.InventoryItem{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	item, err := scanInventoryItem(tx.QueryRow(ctx, `SELECT `+inventoryColumns+` FROM inventory_items WHERE item_id = $1 FOR UPDATE`, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.InventoryItem{}, store.ErrInventoryNotFound
		}
		return models.InventoryItem{}, err
	}
	item = patch.Apply(item)
	if item.StockCount < 0 {
		return models.InventoryItem{}, store.ErrInvalidStock
	}
	_, err = tx.Exec(ctx, `
		UPDATE inventory_items
		SET name = $2, price = $3, stock_count = $4, color = $5, length = $6, image = $7
		WHERE item_id = $1
	`, item.ItemID, item.Name, item.Price, item.StockCount, item.Color, item.Length, item.Image)
	if err != nil {
		return models.InventoryItem{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.InventoryItem{}, err
	}
	return item, nil
}

func (s *Store) AdjustStock(ctx context.Context, itemID string, delta int) (models.InventoryItem, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE inventory_items
		SET stock_count = stock_count + $2
		WHERE item_id = $1 AND stock_count + $2 >= 0
		RETURNING `+inventoryColumns, itemID, delta)
	item, err := scanInventoryItem(row)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.InventoryItem{}, err
	}
	if _, err := s.GetInventoryItem(ctx, itemID); err != nil {
		return models.InventoryItem{}, err
	}
	return models.InventoryItem{}, store.ErrInvalidStock
}

func (s *Store) GetInventoryItem(ctx context.Context, itemID string) (models.InventoryItem, error) {
	item, err := scanInventoryItem(s.pool.QueryRow(ctx, `SELECT `+inventoryColumns+` FROM inventory_items WHERE item_id = $1`, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.InventoryItem{}, store.ErrInventoryNotFound
		}
		return models.InventoryItem{}, err
	}
	return item, nil
}

func (s *Store) ListInventory(ctx context.Context) ([]models.InventoryItem, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+inventoryColumns+` FROM inventory_items ORDER BY created_at ASC, item_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.InventoryItem
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryTickets(ctx context.Context, q querier, query string, args ...any) ([]models.Ticket, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

func scanTicket(row pgx.Row) (models.Ticket, error) {
	var ticket models.Ticket
	var branch string
	err := row.Scan(&ticket.TicketID, &ticket.QueueNumber, &branch, &ticket.CustomerName, &ticket.PhoneNumber, &ticket.StyleID,
		&ticket.DurationMinutes, &ticket.Length, &ticket.BringingOwnExtensions, &ticket.SelectedExtensions, &ticket.Notes, &ticket.Status,
		&ticket.JoinedAt, &ticket.EstimatedStartTime, &ticket.Paid, &ticket.ScheduleDegraded)
	if err != nil {
		return models.Ticket{}, err
	}
	ticket.Branch = models.Branch(branch)
	ticket.JoinedAt = ticket.JoinedAt.UTC()
	ticket.EstimatedStartTime = ticket.EstimatedStartTime.UTC()
	return ticket, nil
}

func scanStyle(row pgx.Row) (models.Style, error) {
	var style models.Style
	err := row.Scan(&style.StyleID, &style.Name, &style.Category, &style.Description, &style.PriceRange, &style.BasePrice,
		&style.DurationMinutes, &style.Images, &style.Featured, &style.Trending, &style.Hidden, &style.RecommendedExtensions)
	return style, err
}

func scanInventoryItem(row pgx.Row) (models.InventoryItem, error) {
	var item models.InventoryItem
	err := row.Scan(&item.ItemID, &item.Name, &item.Price, &item.StockCount, &item.Color, &item.Length, &item.Image)
	return item, err
}

func nextTicketNumber(ctx context.Context, tx pgx.Tx, branch models.Branch) (int64, error) {
	var next int64
	row := tx.QueryRow(ctx, `
		INSERT INTO ticket_sequences (branch, next_number)
		VALUES ($1, 1)
		ON CONFLICT (branch)
		DO UPDATE SET next_number = ticket_sequences.next_number + 1
		RETURNING next_number
	`, string(branch))
	if err := row.Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}

func insertTicketEvent(ctx context.Context, tx pgx.Tx, ticket models.Ticket, eventType, fromStatus string, createdAt time.Time) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, ticket.TicketID); err != nil {
		return err
	}

	payload, err := store.TicketEventPayload(ticket, fromStatus)
	if err != nil {
		return err
	}

	var lastSeq int
	var prevHash sql.NullString
	row := tx.QueryRow(ctx, `
		SELECT ticket_seq, hash
		FROM ticket_events
		WHERE ticket_id = $1
		ORDER BY ticket_seq DESC
		LIMIT 1
	`, ticket.TicketID)
	if err := row.Scan(&lastSeq, &prevHash); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	nextSeq := lastSeq + 1
	prev := ""
	if prevHash.Valid {
		prev = prevHash.String
	}
	// Postgres keeps microseconds; truncate so the stored hash verifies on read.
	createdAt = createdAt.UTC().Truncate(time.Microsecond)
	hash := store.ComputeTicketEventHash(prev, ticket.TicketID, eventType, payload, createdAt, nextSeq)

	_, err = tx.Exec(ctx, `
		INSERT INTO ticket_events (ticket_id, ticket_seq, type, payload, created_at, prev_hash, hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ticket.TicketID, nextSeq, eventType, payload, createdAt, prev, hash)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
