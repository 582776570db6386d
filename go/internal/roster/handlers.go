package roster

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Handlers exposes the roster app over the REST boundary consumed by
// clients: the roster fetch and the fire-and-forget timer persistence.
type Handlers struct {
	app *App
}

// NewHandlers creates the roster HTTP handlers.
func NewHandlers(app *App) *Handlers {
	return &Handlers{app: app}
}

// HandleGetGroup serves GET /groups/{id}: the member list with presence.
func (h *Handlers) HandleGetGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid group id", http.StatusBadRequest)
		return
	}

	members, err := h.app.GetGroupRoster(r.Context(), groupID)
	if err != nil {
		log.Error().Err(err).Int64("group_id", groupID).Msg("roster fetch failed")
		http.Error(w, "failed to fetch roster", http.StatusInternalServerError)
		return
	}
	if members == nil {
		members = []Member{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(members); err != nil {
		log.Error().Err(err).Msg("failed to write roster response")
	}
}

// HandleGetTimer serves GET /users/{id}/timer: the persisted anchor a
// reloading client resumes from.
func (h *Handlers) HandleGetTimer(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	rec, err := h.app.GetMemberTimer(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("timer fetch failed")
		http.Error(w, "failed to fetch timer", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rec); err != nil {
		log.Error().Err(err).Msg("failed to write timer response")
	}
}

// HandlePutTimer serves PUT /users/{id}/timer: the client's best-effort
// persistence of its last timer anchor.
func (h *Handlers) HandlePutTimer(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	var req UpdateTimerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.app.UpdateMemberTimer(r.Context(), userID, req); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("timer persistence failed")
		http.Error(w, "failed to persist timer", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RegisterRoutes registers the roster routes with an HTTP mux.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /groups/{id}", h.HandleGetGroup)
	mux.HandleFunc("GET /users/{id}/timer", h.HandleGetTimer)
	mux.HandleFunc("PUT /users/{id}/timer", h.HandlePutTimer)
}
