// internal/handlers/http.go
package handlers

import (
	"net/http"

	"github.com/google/uuid"
)

// ListTournamentsHandler returns every open or running tournament.
func ListTournamentsHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, gs.Logger, http.StatusOK, gs.Tournaments.List())
	}
}

// GetSessionHandler returns a snapshot of one live session. Only its two
// participants may read it.
func GetSessionHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := gs.Verifier.Authenticate(requestToken(r))
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			http.Error(w, "invalid session id", http.StatusBadRequest)
			return
		}
		view, ok := gs.Sessions.Session(id)
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		if view.SideA.UserID != userID && (view.SideB == nil || view.SideB.UserID != userID) {
			http.Error(w, "not a participant", http.StatusForbidden)
			return
		}
		writeJSON(w, gs.Logger, http.StatusOK, view)
	}
}

// HealthHandler reports liveness plus a few gauges.
func HealthHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, gs.Logger, http.StatusOK, map[string]any{
			"status":      "ok",
			"game":        gs.Sessions.GameName(),
			"connections": gs.Registry.Count(),
			"sessions":    gs.Sessions.SessionCount(),
			"queued":      gs.Sessions.QueueLen(),
		})
	}
}
