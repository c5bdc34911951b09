// internal/handlers/game_server.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/versus/internal/auth"
	"github.com/jason-s-yu/versus/internal/game"
	"github.com/jason-s-yu/versus/internal/middleware"
	"github.com/jason-s-yu/versus/internal/realtime"
	"github.com/jason-s-yu/versus/internal/tournament"
	"github.com/sirupsen/logrus"
)

// SessionService is the session manager as seen by the gateway. Every
// game.Manager[S] satisfies it regardless of its rules' state type.
type SessionService interface {
	GameName() string
	CreateCustomGame(ctx context.Context, creatorID, opponentID uuid.UUID) (uuid.UUID, error)
	JoinCustomGame(ctx context.Context, userID, sessionID uuid.UUID) error
	CancelCustomGame(ctx context.Context, userID, sessionID uuid.UUID) error
	JoinMatchmaking(ctx context.Context, userID uuid.UUID) error
	LeaveMatchmaking(ctx context.Context, userID uuid.UUID) error
	SetReady(ctx context.Context, userID, sessionID uuid.UUID, ready bool) error
	SubmitMove(ctx context.Context, userID, sessionID uuid.UUID, move json.RawMessage) error
	Quit(ctx context.Context, userID, sessionID uuid.UUID) error
	OnDisconnect(ctx context.Context, userID uuid.UUID)
	Session(id uuid.UUID) (game.SessionView, bool)
	SessionCount() int
	QueueLen() int
}

// GameServer holds everything a connection handler needs: the identity
// check, the push registry and the two managers events are dispatched to.
type GameServer struct {
	Logger      *logrus.Logger
	Verifier    *auth.Verifier
	Registry    *realtime.Registry
	Sessions    SessionService
	Tournaments *tournament.Manager

	// OutBuffer bounds each connection's outbound queue. Default 64.
	OutBuffer int
}

func (gs *GameServer) outBuffer() int {
	if gs.OutBuffer > 0 {
		return gs.OutBuffer
	}
	return 64
}

// Routes mounts the gateway and the read-only HTTP endpoints behind the
// request logger.
func (gs *GameServer) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", GameWSHandler(gs))
	mux.HandleFunc("GET /tournaments", ListTournamentsHandler(gs))
	mux.HandleFunc("GET /sessions/{id}", GetSessionHandler(gs))
	mux.HandleFunc("GET /healthz", HealthHandler(gs))
	return middleware.LogMiddleware(gs.Logger)(mux)
}
