package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/robertarktes/seat-reservation-engine/internal/availability"
	"github.com/robertarktes/seat-reservation-engine/internal/booking"
	"github.com/robertarktes/seat-reservation-engine/internal/config"
	"github.com/robertarktes/seat-reservation-engine/internal/domain"
	"github.com/robertarktes/seat-reservation-engine/internal/idempotency"
	"github.com/robertarktes/seat-reservation-engine/internal/observability"
)

type Handlers struct {
	cfg     *config.Config
	holds   *booking.HoldManager
	orders  *booking.OrderManager
	avail   *availability.Aggregator
	catalog booking.Catalog
	idemp   *idempotency.Idempotency
}

func NewHandlers(cfg *config.Config, holds *booking.HoldManager, orders *booking.OrderManager, avail *availability.Aggregator, catalog booking.Catalog, idemp *idempotency.Idempotency) *Handlers {
	return &Handlers{
		cfg:     cfg,
		holds:   holds,
		orders:  orders,
		avail:   avail,
		catalog: catalog,
		idemp:   idemp,
	}
}

type errorResponse struct {
	Error string   `json:"error"`
	Code  string   `json:"code"`
	Seats []string `json:"seats,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var sc *domain.SeatConflictError
	switch {
	case errors.As(err, &sc):
		writeJSON(w, http.StatusConflict, errorResponse{
			Error: sc.Error(),
			Code:  "seat_conflict",
			Seats: sc.Seats,
		})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Code: "not_found"})
	case errors.Is(err, domain.ErrNotOwner):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error(), Code: "not_owner"})
	case errors.Is(err, domain.ErrStateConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Code: "state_conflict"})
	case errors.Is(err, domain.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "invalid_input"})
	case errors.Is(err, domain.ErrUnavailable):
		observability.FromContext(r.Context()).Warn("backend unavailable: ", err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "temporarily unavailable, retry", Code: "unavailable"})
	default:
		observability.FromContext(r.Context()).Error("request failed: ", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Code: "internal"})
	}
}

type holdResponse struct {
	HoldID    uuid.UUID `json:"hold_id"`
	ShowID    string    `json:"show_id"`
	Seats     []string  `json:"seats"`
	Status    string    `json:"status"`
	ExpiresAt string    `json:"expires_at"`
}

func toHoldResponse(h *domain.Hold) holdResponse {
	return holdResponse{
		HoldID:    h.ID,
		ShowID:    h.ShowID,
		Seats:     h.Seats,
		Status:    string(h.Status),
		ExpiresAt: h.ExpiresAt.Format(time.RFC3339),
	}
}

type orderResponse struct {
	OrderID     uuid.UUID `json:"order_id"`
	HoldID      uuid.UUID `json:"hold_id"`
	ShowID      string    `json:"show_id"`
	Seats       []string  `json:"seats"`
	Status      string    `json:"status"`
	Amount      float64   `json:"amount"`
	TicketCode  string    `json:"ticket_code,omitempty"`
	ExpiresAt   string    `json:"expires_at"`
	ConfirmedAt string    `json:"confirmed_at,omitempty"`
}

func toOrderResponse(o *domain.Order) orderResponse {
	resp := orderResponse{
		OrderID:    o.ID,
		HoldID:     o.HoldID,
		ShowID:     o.ShowID,
		Seats:      o.Seats,
		Status:     string(o.Status),
		Amount:     o.Amount,
		TicketCode: o.TicketCode,
		ExpiresAt:  o.ExpiresAt.Format(time.RFC3339),
	}
	if o.ConfirmedAt != nil {
		resp.ConfirmedAt = o.ConfirmedAt.Format(time.RFC3339)
	}
	return resp
}

// replayed serves a cached idempotent response if one exists for the request.
func (h *Handlers) replayed(w http.ResponseWriter, r *http.Request) bool {
	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return true
	}
	if existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return true
	}
	return false
}

func (h *Handlers) remember(r *http.Request, status int, body []byte) {
	key := r.Header.Get("Idempotency-Key")
	h.idemp.Set(r.Context(), key, idempotency.Response{Status: status, Result: body})
}

func (h *Handlers) CreateHold(w http.ResponseWriter, r *http.Request) {
	if h.replayed(w, r) {
		return
	}

	showID := chi.URLParam(r, "showID")
	var req struct {
		HolderID uuid.UUID `json:"holder_id"`
		SeatIDs  []string  `json:"seat_ids"`
		Quantity int       `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, errors.Wrap(domain.ErrInvalidInput, err.Error()))
		return
	}
	if req.Quantity != len(req.SeatIDs) {
		writeError(w, r, errors.Wrap(domain.ErrInvalidInput, "quantity must equal the number of seats"))
		return
	}

	hold, err := h.holds.CreateHold(r.Context(), showID, req.HolderID, req.SeatIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}

	data, _ := json.Marshal(toHoldResponse(hold))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write(data)
	h.remember(r, http.StatusCreated, data)
}

func (h *Handlers) GetHold(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, errors.Wrap(domain.ErrInvalidInput, "invalid hold id"))
		return
	}

	hold, err := h.holds.GetHold(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHoldResponse(hold))
}

func (h *Handlers) ReleaseHold(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, errors.Wrap(domain.ErrInvalidInput, "invalid hold id"))
		return
	}
	var req struct {
		HolderID uuid.UUID `json:"holder_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, errors.Wrap(domain.ErrInvalidInput, err.Error()))
		return
	}

	if err := h.holds.ReleaseHold(r.Context(), id, req.HolderID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "released"})
}

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	if h.replayed(w, r) {
		return
	}

	var req struct {
		HoldID   uuid.UUID `json:"hold_id"`
		HolderID uuid.UUID `json:"holder_id"`
		Customer struct {
			Name  string `json:"name"`
			Email string `json:"email"`
			Phone string `json:"phone"`
		} `json:"customer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, errors.Wrap(domain.ErrInvalidInput, err.Error()))
		return
	}

	order, err := h.orders.CreateOrder(r.Context(), req.HoldID, req.HolderID, domain.Customer{
		Name:  req.Customer.Name,
		Email: req.Customer.Email,
		Phone: req.Customer.Phone,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	data, _ := json.Marshal(toOrderResponse(order))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write(data)
	h.remember(r, http.StatusCreated, data)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, errors.Wrap(domain.ErrInvalidInput, "invalid order id"))
		return
	}

	order, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handlers) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	if h.replayed(w, r) {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, errors.Wrap(domain.ErrInvalidInput, "invalid order id"))
		return
	}
	var req struct {
		HolderID uuid.UUID `json:"holder_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, errors.Wrap(domain.ErrInvalidInput, err.Error()))
		return
	}

	order, err := h.orders.ConfirmPayment(r.Context(), id, req.HolderID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	data, _ := json.Marshal(toOrderResponse(order))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
	h.remember(r, http.StatusOK, data)
}

func (h *Handlers) GetSeatAvailability(w http.ResponseWriter, r *http.Request) {
	showID := chi.URLParam(r, "showID")
	if _, err := h.catalog.ShowInfo(r.Context(), showID); err != nil {
		writeError(w, r, err)
		return
	}

	snap, err := h.avail.Snapshot(r.Context(), showID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
