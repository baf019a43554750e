package handlers

import (
	"net/http"

	"github.com/monroehq/photo-pairer/internal/state"
)

// StateHandler exposes the run-state tracker for inspection.
type StateHandler struct {
	tracker *state.Tracker
}

// NewStateHandler creates a new state handler.
func NewStateHandler(tracker *state.Tracker) *StateHandler {
	return &StateHandler{tracker: tracker}
}

// Get returns the tracked photo ids and pair keys.
func (h *StateHandler) Get(w http.ResponseWriter, r *http.Request) {
	photoIDs, pairKeys := h.tracker.Snapshot()

	respondJSON(w, http.StatusOK, map[string]any{
		"photo_ids":   photoIDs,
		"pair_keys":   pairKeys,
		"photo_count": len(photoIDs),
		"pair_count":  len(pairKeys),
	})
}
