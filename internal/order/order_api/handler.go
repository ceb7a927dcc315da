package order_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-raffle/internal/logger"
	"ms-raffle/internal/models"
	"ms-raffle/internal/order"
	"ms-raffle/internal/raffle"
)

type Handler struct {
	OrderService  *order.OrderService
	RaffleService *raffle.RaffleService
	Logger        *logger.Logger
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// writeError maps the workflow error taxonomy onto HTTP statuses. The
// kind field lets callers branch without parsing messages.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var status int
	var kind string

	switch {
	case errors.Is(err, order.ErrNotFound), errors.Is(err, order.ErrRaffleNotFound), errors.Is(err, raffle.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, order.ErrInvalidQuantity):
		status, kind = http.StatusBadRequest, "invalid_quantity"
	case errors.Is(err, order.ErrInvalidRequest):
		status, kind = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, order.ErrVoucherMissing):
		status, kind = http.StatusBadRequest, "voucher_missing"
	case errors.Is(err, order.ErrInvalidTransition):
		status, kind = http.StatusConflict, "invalid_transition"
	case errors.Is(err, order.ErrConfirmInProgress):
		status, kind = http.StatusConflict, "confirm_in_progress"
	case order.IsAllocationExhausted(err):
		status, kind = http.StatusServiceUnavailable, "allocation_exhausted"
	default:
		status, kind = http.StatusInternalServerError, "store_failure"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{OK: false, Error: err.Error(), Kind: kind})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.Logger.Error("API", fmt.Sprintf("failed to encode response: %v", err))
	}
}

// CreateOrder places a reservation for a raffle identified by slug.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var req models.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateOrder: failed to decode body: %v", err))
		h.writeError(w, fmt.Errorf("%w: %v", order.ErrInvalidRequest, err))
		return
	}

	raffleData, err := h.RaffleService.GetBySlug(slug)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateOrder: raffle %s: %v", slug, err))
		h.writeError(w, err)
		return
	}

	placed, err := h.OrderService.PlaceOrder(raffleData.RaffleID, req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateOrder: %v", err))
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, placed)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	orderData, err := h.OrderService.GetOrder(orderID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetOrder: %s: %v", orderID, err))
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, orderData)
}

// AttachVoucher sets the payment proof reference on a pending order.
func (h *Handler) AttachVoucher(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	var body struct {
		VoucherRef string `json:"voucher_ref"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", order.ErrInvalidRequest, err))
		return
	}

	if err := h.OrderService.AttachVoucher(orderID, body.VoucherRef); err != nil {
		h.Logger.Error("API", fmt.Sprintf("AttachVoucher: %s: %v", orderID, err))
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ConfirmOrder is idempotent: replays return the same ticket list.
func (h *Handler) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	h.Logger.Info("API", fmt.Sprintf("ConfirmOrder: orderId=%s", orderID))

	tickets, err := h.OrderService.Confirm(orderID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ConfirmOrder: %s: %v", orderID, err))
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, models.ConfirmResponse{
		OK:        true,
		Confirmed: true,
		Tickets:   tickets,
	})
}

func (h *Handler) RejectOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	var body struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		// Reason is optional; an empty body is fine.
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	status, err := h.OrderService.Reject(orderID, body.Reason)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("RejectOrder: %s: %v", orderID, err))
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, models.RejectResponse{OK: true, Status: status})
}
