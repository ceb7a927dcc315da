package raffle_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-raffle/internal/logger"
	"ms-raffle/internal/raffle"
)

type Handler struct {
	RaffleService *raffle.RaffleService
	Logger        *logger.Logger
}

// GetRaffle returns the public raffle view with availability.
func (h *Handler) GetRaffle(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	availability, err := h.RaffleService.Availability(slug)
	if err != nil {
		if errors.Is(err, raffle.ErrNotFound) {
			http.Error(w, "Raffle not found", http.StatusNotFound)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("GetRaffle: %s: %v", slug, err))
		http.Error(w, "Failed to load raffle", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(availability); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetRaffle: failed to encode response: %v", err))
	}
}

// GetSummary is the admin dashboard for one raffle.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	summary, err := h.RaffleService.Summary(slug)
	if err != nil {
		if errors.Is(err, raffle.ErrNotFound) {
			http.Error(w, "Raffle not found", http.StatusNotFound)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("GetSummary: %s: %v", slug, err))
		http.Error(w, "Failed to load summary", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(summary); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetSummary: failed to encode response: %v", err))
	}
}
