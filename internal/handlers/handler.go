package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SAHIL7163/Talksy-backend/internal/chat"
	"github.com/SAHIL7163/Talksy-backend/internal/store"
)

// BusPinger reports bus connection health.
type BusPinger interface {
	Ping(ctx context.Context) error
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	orch  *chat.Orchestrator
	store store.DataStore
	bus   BusPinger
}

// NewHandler creates a new Handler with the given dependencies.
func NewHandler(orch *chat.Orchestrator, dataStore store.DataStore, bus BusPinger) *Handler {
	return &Handler{orch: orch, store: dataStore, bus: bus}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// domainError maps orchestrator rejections onto HTTP statuses.
func (h *Handler) domainError(w http.ResponseWriter, err error) {
	switch {
	case chat.IsValidation(err):
		h.Error(w, http.StatusBadRequest, err.Error())
	case chat.IsNotFound(err):
		h.Error(w, http.StatusNotFound, err.Error())
	default:
		h.Error(w, http.StatusInternalServerError, "internal server error")
	}
}
