package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"braidsbar/queue-service/internal/geo"
	"braidsbar/queue-service/internal/models"
	"braidsbar/queue-service/internal/queue"
	"braidsbar/queue-service/internal/store"
	"braidsbar/queue-service/internal/validation"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// QueueService is the part of queue.Service the HTTP layer drives.
type QueueService interface {
	CreateTicket(ctx context.Context, input queue.CreateTicketInput) (models.Ticket, error)
	GetTicket(ctx context.Context, ticketID string) (models.Ticket, error)
	FindTicketByPhone(ctx context.Context, phone string) (models.Ticket, bool, error)
	ListActiveQueue(ctx context.Context, branch models.Branch) ([]models.Ticket, error)
	ListTicketEvents(ctx context.Context, ticketID string) ([]store.TicketEvent, error)
	UpdateStatus(ctx context.Context, ticketID, status string) (models.Ticket, error)
	DeleteTicket(ctx context.Context, ticketID string) error
	BranchStatus(ctx context.Context, branch models.Branch) (queue.BranchStatus, error)
	Track(ctx context.Context, ticketID string, provider geo.LocationProvider) (queue.Tracking, error)
	EstimateDistance(origin, destination models.Coordinates) (geo.Estimate, error)
	AddStyle(ctx context.Context, style models.Style) (models.Style, error)
	UpdateStyle(ctx context.Context, styleID string, patch models.StylePatch) (models.Style, error)
	GetStyle(ctx context.Context, styleID string) (models.Style, error)
	ListStyles(ctx context.Context, includeHidden bool) ([]models.Style, error)
	AddInventoryItem(ctx context.Context, item models.InventoryItem) (models.InventoryItem, error)
	UpdateInventoryItem(ctx context.Context, itemID string, patch models.InventoryPatch) (models.InventoryItem, error)
	RestockInventoryItem(ctx context.Context, itemID string, delta int) (models.InventoryItem, error)
	GetInventoryItem(ctx context.Context, itemID string) (models.InventoryItem, error)
	ListInventory(ctx context.Context) ([]models.InventoryItem, error)
}

var _ QueueService = (*queue.Service)(nil)

type Handler struct {
	service  QueueService
	stream   http.Handler
	validate *validator.Validate
}

type Options struct {
	// Stream serves the realtime feed under /api/stream/ when set.
	Stream http.Handler
}

type createTicketRequest struct {
	Branch                string   `json:"branch" validate:"required"`
	CustomerName          string   `json:"customer_name" validate:"required,max=120"`
	PhoneNumber           string   `json:"phone_number" validate:"required,gh_phone"`
	StyleID               string   `json:"style_id" validate:"required"`
	Length                string   `json:"length" validate:"max=40"`
	BringingOwnExtensions bool     `json:"bringing_own_extensions"`
	SelectedExtensions    []string `json:"selected_extensions" validate:"max=20,dive,required"`
	Notes                 string   `json:"notes" validate:"max=500"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type distanceRequest struct {
	From models.Coordinates `json:"from"`
	To   models.Coordinates `json:"to"`
}

type restockRequest struct {
	Delta int `json:"delta" validate:"ne=0"`
}

type errorResponse struct {
	RequestID string        `json:"request_id"`
	Error     responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewHandler(service QueueService, options Options) *Handler {
	v := validation.New()
	v.RegisterTagNameFunc(jsonFieldName)
	return &Handler{
		service:  service,
		stream:   options.Stream,
		validate: v,
	}
}

func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/api/tickets", h.handleTickets)
	mux.HandleFunc("/api/tickets/lookup", h.handleTicketLookup)
	mux.HandleFunc("/api/tickets/", h.handleTicket)
	mux.HandleFunc("/api/branches", h.handleBranches)
	mux.HandleFunc("/api/branches/", h.handleBranch)
	mux.HandleFunc("/api/distance", h.handleDistance)
	mux.HandleFunc("/api/styles", h.handleStyles)
	mux.HandleFunc("/api/styles/", h.handleStyle)
	mux.HandleFunc("/api/inventory", h.handleInventory)
	mux.HandleFunc("/api/inventory/", h.handleInventoryItem)
	if h.stream != nil {
		mux.Handle("/api/stream/", h.stream)
	}
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleTickets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	requestID := requestIDFrom(r)

	var req createTicketRequest
	if !h.decodeRequest(w, r, requestID, &req) {
		return
	}
	branch, ok := models.ParseBranch(req.Branch)
	if !ok {
		writeError(w, requestID, http.StatusNotFound, "branch_not_found", "branch not found")
		return
	}

	ticket, err := h.service.CreateTicket(r.Context(), queue.CreateTicketInput{
		Branch:                branch,
		CustomerName:          req.CustomerName,
		PhoneNumber:           req.PhoneNumber,
		StyleID:               strings.TrimSpace(req.StyleID),
		Length:                req.Length,
		BringingOwnExtensions: req.BringingOwnExtensions,
		SelectedExtensions:    req.SelectedExtensions,
		Notes:                 req.Notes,
	})
	if err != nil {
		h.writeServiceError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

func (h *Handler) handleTicketLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	requestID := requestIDFrom(r)

	phone := strings.TrimSpace(r.URL.Query().Get("phone"))
	if !validation.IsPhoneNumber(phone) {
		writeError(w, requestID, http.StatusBadRequest, "invalid_request", "phone must be a valid mobile number")
		return
	}
	ticket, found, err := h.service.FindTicketByPhone(r.Context(), phone)
	if err != nil {
		h.writeServiceError(w, requestID, err)
		return
	}
	if !found {
		writeError(w, requestID, http.StatusNotFound, "ticket_not_found", "ticket not found")
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleTicket(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/api/tickets/")
	if len(parts) == 0 || len(parts) > 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	ticketID := parts[0]
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			h.handleGetTicket(w, r, ticketID)
		case http.MethodDelete:
			h.handleDeleteTicket(w, r, ticketID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	switch parts[1] {
	case "status":
		h.handleUpdateStatus(w, r, ticketID)
	case "events":
		h.handleTicketEvents(w, r, ticketID)
	case "tracking":
		h.handleTracking(w, r, ticketID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleGetTicket(w http.ResponseWriter, r *http.Request, ticketID string) {
	requestID := requestIDFrom(r)
	ticket, err := h.service.GetTicket(r.Context(), ticketID)
	if err != nil {
		h.writeServiceError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleDeleteTicket(w http.ResponseWriter, r *http.Request, ticketID string) {
	requestID := requestIDFrom(r)
	if err := h.service.DeleteTicket(r.Context(), ticketID); err != nil {
		h.writeServiceError(w, requestID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request, ticketID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	requestID := requestIDFrom(r)

	var req updateStatusRequest
	if !h.decodeRequest(w, r, requestID, &req) {
		return
	}
	ticket, err := h.service.UpdateStatus(r.Context(), ticketID, req.Status)
	if err != nil {
		h.writeServiceError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleTicketEvents(w http.ResponseWriter, r *http.Request, ticketID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	requestID := requestIDFrom(r)

	trail, err := h.service.ListTicketEvents(r.Context(), ticketID)
	if err != nil {
		h.writeServiceError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events":   trail,
		"verified": store.VerifyTicketEvents(trail) == 0,
	})
}

func (h *Handler) handleTracking(w http.ResponseWriter, r *http.Request, ticketID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	requestID := requestIDFrom(r)

	provider, err := locationFromQuery(r)
	if err != nil {
		writeError(w, requestID, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	tracking, err := h.service.Track(r.Context(), ticketID, provider)
	if err != nil {
		h.writeServiceError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, tracking)
}

// locationFromQuery reads lat and lng from the query string. A client that
// declined to share its position sends location=denied instead.
func locationFromQuery(r *http.Request) (geo.LocationProvider, error) {
	query := r.URL.Query()
	if strings.EqualFold(strings.TrimSpace(query.Get("location")), "denied") {
		return geo.DeniedLocation{}, nil
	}
	rawLat := strings.TrimSpace(query.Get("lat"))
	rawLng := strings.TrimSpace(query.Get("lng"))
	if rawLat == "" && rawLng == "" {
		return nil, nil
	}
	if rawLat == "" || rawLng == "" {
		return nil, errors.New("lat and lng must be sent together")
	}
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return nil, errors.New("lat must be a number")
	}
	lng, err := strconv.ParseFloat(rawLng, 64)
	if err != nil {
		return nil, errors.New("lng must be a number")
	}
	return geo.StaticLocation{Lat: lat, Lng: lng}, nil
}

func (h *Handler) handleBranches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, models.Branches())
}

func (h *Handler) handleBranch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	requestID := requestIDFrom(r)

	parts := pathParts(r.URL.Path, "/api/branches/")
	if len(parts) != 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	branch, ok := models.ParseBranch(parts[0])
	if !ok {
		writeError(w, requestID, http.StatusNotFound, "branch_not_found", "branch not found")
		return
	}

	switch parts[1] {
	case "status":
		status, err := h.service.BranchStatus(r.Context(), branch)
		if err != nil {
			h.writeServiceError(w, requestID, err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	case "queue":
		tickets, err := h.service.ListActiveQueue(r.Context(), branch)
		if err != nil {
			h.writeServiceError(w, requestID, err)
			return
		}
		if tickets == nil {
			tickets = []models.Ticket{}
		}
		writeJSON(w, http.StatusOK, tickets)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleDistance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	requestID := requestIDFrom(r)

	var req distanceRequest
	if !h.decodeRequest(w, r, requestID, &req) {
		return
	}
	estimate, err := h.service.EstimateDistance(req.From, req.To)
	if err != nil {
		h.writeServiceError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, estimate)
}

func (h *Handler) handleStyles(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	switch r.Method {
	case http.MethodGet:
		includeHidden, _ := strconv.ParseBool(r.URL.Query().Get("include_hidden"))
		styles, err := h.service.ListStyles(r.Context(), includeHidden)
		if err != nil {
			h.writeServiceError(w, requestID, err)
			return
		}
		if styles == nil {
			styles = []models.Style{}
		}
		writeJSON(w, http.StatusOK, styles)
	case http.MethodPost:
		var style models.Style
		if !h.decodeRequest(w, r, requestID, &style) {
			return
		}
		created, err := h.service.AddStyle(r.Context(), style)
		if err != nil {
			h.writeServiceError(w, requestID, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleStyle(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	parts := pathParts(r.URL.Path, "/api/styles/")
	if len(parts) != 1 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	styleID := parts[0]

	switch r.Method {
	case http.MethodGet:
		style, err := h.service.GetStyle(r.Context(), styleID)
		if err != nil {
			h.writeServiceError(w, requestID, err)
			return
		}
		writeJSON(w, http.StatusOK, style)
	case http.MethodPatch:
		var patch models.StylePatch
		if !h.decodeRequest(w, r, requestID, &patch) {
			return
		}
		style, err := h.service.UpdateStyle(r.Context(), styleID, patch)
		if err != nil {
			h.writeServiceError(w, requestID, err)
			return
		}
		writeJSON(w, http.StatusOK, style)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleInventory(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	switch r.Method {
	case http.MethodGet:
		items, err := h.service.ListInventory(r.Context())
		if err != nil {
			h.writeServiceError(w, requestID, err)
			return
		}
		if items == nil {
			items = []models.InventoryItem{}
		}
		writeJSON(w, http.StatusOK, items)
	case http.MethodPost:
		var item models.InventoryItem
		if !h.decodeRequest(w, r, requestID, &item) {
			return
		}
		created, err := h.service.AddInventoryItem(r.Context(), item)
		if err != nil {
			h.writeServiceError(w, requestID, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleInventoryItem(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	parts := pathParts(r.URL.Path, "/api/inventory/")
	if len(parts) == 0 || len(parts) > 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	itemID := parts[0]

	if len(parts) == 2 {
		if parts[1] != "restock" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req restockRequest
		if !h.decodeRequest(w, r, requestID, &req) {
			return
		}
		item, err := h.service.RestockInventoryItem(r.Context(), itemID, req.Delta)
		if err != nil {
			h.writeServiceError(w, requestID, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
		return
	}

	switch r.Method {
	case http.MethodGet:
		item, err := h.service.GetInventoryItem(r.Context(), itemID)
		if err != nil {
			h.writeServiceError(w, requestID, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	case http.MethodPatch:
		var patch models.InventoryPatch
		if !h.decodeRequest(w, r, requestID, &patch) {
			return
		}
		item, err := h.service.UpdateInventoryItem(r.Context(), itemID, patch)
		if err != nil {
			h.writeServiceError(w, requestID, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// decodeRequest reads a strict JSON body into dst and runs struct
// validation. It writes the error response itself and reports whether the
// caller may continue.
func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request, requestID string, dst interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, requestID, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			writeError(w, requestID, http.StatusBadRequest, "invalid_request", validationMessage(invalid))
			return false
		}
		writeError(w, requestID, http.StatusBadRequest, "invalid_request", "invalid request")
		return false
	}
	return true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, requestID string, err error) {
	status, code, msg := mapError(err)
	writeError(w, requestID, status, code, msg)
}

func validationMessage(errs validator.ValidationErrors) string {
	fields := make([]string, 0, len(errs))
	for _, fe := range errs {
		field := fe.Field()
		if fe.Tag() == "gh_phone" {
			return fmt.Sprintf("%s must be a valid mobile number", field)
		}
		fields = append(fields, field)
	}
	return fmt.Sprintf("invalid fields: %s", strings.Join(fields, ", "))
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

func pathParts(path, prefix string) []string {
	trimmed := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// requestIDFrom reads the id LoggingMiddleware assigned, minting one for
// handlers served without it.
func requestIDFrom(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(requestIDHeader)); id != "" {
		return id
	}
	return uuid.NewString()
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, queue.ErrValidation):
		return http.StatusBadRequest, "invalid_request", err.Error()
	case errors.Is(err, geo.ErrInvalidCoordinates):
		return http.StatusBadRequest, "invalid_coordinates", "coordinates out of range"
	case errors.Is(err, store.ErrInvalidStatus):
		return http.StatusBadRequest, "invalid_status", "unknown ticket status"
	case errors.Is(err, store.ErrTicketNotFound):
		return http.StatusNotFound, "ticket_not_found", "ticket not found"
	case errors.Is(err, store.ErrStyleNotFound):
		return http.StatusNotFound, "style_not_found", "style not found"
	case errors.Is(err, store.ErrInventoryNotFound):
		return http.StatusNotFound, "inventory_not_found", "inventory item not found"
	case errors.Is(err, store.ErrBranchNotFound):
		return http.StatusNotFound, "branch_not_found", "branch not found"
	case errors.Is(err, store.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition", "ticket status does not allow this change"
	case errors.Is(err, store.ErrInvalidStock):
		return http.StatusConflict, "invalid_stock", "stock count cannot be negative"
	case errors.Is(err, store.ErrDuplicateID):
		return http.StatusConflict, "duplicate_id", "id already exists"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func writeError(w http.ResponseWriter, requestID string, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		RequestID: requestID,
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
