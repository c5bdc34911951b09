// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/versus/internal/game"
	"github.com/jason-s-yu/versus/internal/middleware"
	"github.com/jason-s-yu/versus/internal/realtime"
	"github.com/sirupsen/logrus"
)

const (
	pingInterval      = 30 * time.Second
	writeTimeout      = 5 * time.Second
	disconnectTimeout = 5 * time.Second
)

// GameWSHandler authenticates the caller, registers the connection as the
// user's push channel and dispatches every inbound event to the session or
// tournament manager. When the socket closes, and no newer connection for
// the same user has replaced it, the managers are told the user is gone.
func GameWSHandler(gs *GameServer) http.HandlerFunc {
	logger := gs.Logger
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := gs.Verifier.Authenticate(requestToken(r))
		if err != nil {
			logger.Debugf("rejecting websocket from %s: %v", r.RemoteAddr, err)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != Subprotocol {
			c.Close(BadSubprotocolError, "client must speak the versus subprotocol")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// The registry calls this when a newer connection replaces us.
		supersede := func() {
			go func() {
				_ = c.Close(SupersededError, "replaced by a newer connection")
				cancel()
			}()
		}
		conn := realtime.NewConn(userID, supersede, gs.outBuffer())
		gs.Registry.Register(userID, conn)
		middleware.LogWebSocketConnect(logger, r, userID)

		go writePump(ctx, cancel, c, conn, logger)
		readErr := gs.readPump(ctx, c, conn)
		cancel()

		if gs.Registry.Unregister(userID, conn) {
			dctx, dcancel := context.WithTimeout(context.Background(), disconnectTimeout)
			gs.Sessions.OnDisconnect(dctx, userID)
			gs.Tournaments.OnDisconnect(dctx, userID)
			dcancel()
			c.Close(websocket.StatusNormalClosure, "")
		}
		middleware.LogWebSocketDisconnect(logger, r, userID, readErr)
	}
}

// readPump reads until the socket closes or ctx is cancelled. Events are
// handled one at a time, in arrival order. A clean close returns nil.
func (gs *GameServer) readPump(ctx context.Context, c *websocket.Conn, conn *realtime.Conn) error {
	for {
		typ, msg, err := c.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		if typ != websocket.MessageText {
			gs.Logger.Warnf("Received non-text message type %d from user %v. Ignoring.", typ, conn.UserID)
			continue
		}

		var in realtime.Inbound
		if err := json.Unmarshal(msg, &in); err != nil || in.Event == "" {
			gs.badRequest(conn.UserID, in.Event, "malformed_event", "message must be a JSON object with an event name")
			continue
		}
		gs.dispatch(ctx, conn.UserID, in)
	}
}

// writePump drains the connection's outbound queue onto the socket and keeps
// the peer alive with pings. A failed write tears the connection down.
func writePump(ctx context.Context, cancel context.CancelFunc, c *websocket.Conn, conn *realtime.Conn, logger *logrus.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case env := <-conn.OutChan:
			data, err := json.Marshal(env)
			if err != nil {
				logger.Warnf("Failed to marshal outgoing %q for user %v: %v", env.Event, conn.UserID, err)
				continue
			}
			writeCtx, writeCancel := context.WithTimeout(ctx, writeTimeout)
			err = c.Write(writeCtx, websocket.MessageText, data)
			writeCancel()
			if err != nil {
				if ctx.Err() == nil {
					logger.Warnf("Write error for user %v: %v", conn.UserID, err)
				}
				cancel()
				return
			}
		case <-ticker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Ping(pingCtx)
			pingCancel()
			if err != nil {
				if ctx.Err() == nil {
					logger.Debugf("Ping failed for user %v: %v", conn.UserID, err)
				}
				cancel()
				return
			}
		}
	}
}

// --- dispatch ---

type sessionRequest struct {
	SessionID uuid.UUID `json:"sessionId"`
}

type inviteRequest struct {
	OpponentID uuid.UUID `json:"opponentId"`
}

type readyRequest struct {
	SessionID uuid.UUID `json:"sessionId"`
	Ready     bool      `json:"ready"`
}

type moveRequest struct {
	SessionID uuid.UUID       `json:"sessionId"`
	Move      json.RawMessage `json:"move"`
}

type tournamentRequest struct {
	ID uuid.UUID `json:"id"`
}

type createTournamentRequest struct {
	Name string `json:"name"`
}

// dispatch routes one inbound event. Domain rejections are reported to the
// client by the managers themselves; only malformed payloads are answered
// here.
func (gs *GameServer) dispatch(ctx context.Context, userID uuid.UUID, in realtime.Inbound) {
	var err error
	switch in.Event {
	case realtime.EventPing:
		gs.Registry.Send(userID, realtime.EventPong, struct{}{})
		return

	case realtime.EventJoinMatchmaking:
		err = gs.Sessions.JoinMatchmaking(ctx, userID)
	case realtime.EventLeaveMatchmaking:
		err = gs.Sessions.LeaveMatchmaking(ctx, userID)

	case realtime.EventCreateCustomGame:
		var req inviteRequest
		if !gs.decode(userID, in, &req) {
			return
		}
		_, err = gs.Sessions.CreateCustomGame(ctx, userID, req.OpponentID)
	case realtime.EventJoinCustomGame:
		var req sessionRequest
		if !gs.decode(userID, in, &req) {
			return
		}
		err = gs.Sessions.JoinCustomGame(ctx, userID, req.SessionID)
	case realtime.EventCancelCustomGame:
		var req sessionRequest
		if !gs.decode(userID, in, &req) {
			return
		}
		err = gs.Sessions.CancelCustomGame(ctx, userID, req.SessionID)

	case realtime.EventSetReady:
		var req readyRequest
		if !gs.decode(userID, in, &req) {
			return
		}
		err = gs.Sessions.SetReady(ctx, userID, req.SessionID, req.Ready)
	case realtime.EventMakeMove:
		var req moveRequest
		if !gs.decode(userID, in, &req) {
			return
		}
		err = gs.Sessions.SubmitMove(ctx, userID, req.SessionID, req.Move)
	case realtime.EventQuit:
		var req sessionRequest
		if !gs.decode(userID, in, &req) {
			return
		}
		err = gs.Sessions.Quit(ctx, userID, req.SessionID)

	case realtime.EventCreateTournament:
		var req createTournamentRequest
		if !gs.decode(userID, in, &req) {
			return
		}
		_, err = gs.Tournaments.Create(ctx, userID, req.Name)
	case realtime.EventJoinTournament:
		var req tournamentRequest
		if !gs.decode(userID, in, &req) {
			return
		}
		err = gs.Tournaments.Join(ctx, userID, req.ID)
	case realtime.EventLeaveTournament:
		var req tournamentRequest
		if !gs.decode(userID, in, &req) {
			return
		}
		err = gs.Tournaments.Leave(ctx, userID, req.ID)
	case realtime.EventStartTournament:
		var req tournamentRequest
		if !gs.decode(userID, in, &req) {
			return
		}
		err = gs.Tournaments.Start(ctx, userID, req.ID)
	case realtime.EventTournamentReady:
		var req tournamentRequest
		if !gs.decode(userID, in, &req) {
			return
		}
		err = gs.Tournaments.ReadyInCurrentRound(ctx, userID, req.ID)

	default:
		gs.badRequest(userID, in.Event, "unknown_event", "unknown event: "+in.Event)
		return
	}

	if err != nil {
		gs.Logger.WithFields(logrus.Fields{
			"user":  userID,
			"event": in.Event,
			"code":  game.CodeOf(err),
		}).Debug("Event rejected")
	}
}

// decode unmarshals the payload of in into v, answering the client with an
// error event when it does not fit.
func (gs *GameServer) decode(userID uuid.UUID, in realtime.Inbound, v any) bool {
	if len(in.Data) == 0 {
		gs.badRequest(userID, in.Event, "malformed_payload", "missing data")
		return false
	}
	if err := json.Unmarshal(in.Data, v); err != nil {
		gs.badRequest(userID, in.Event, "malformed_payload", err.Error())
		return false
	}
	return true
}

func (gs *GameServer) badRequest(userID uuid.UUID, event, code, message string) {
	gs.Registry.Send(userID, realtime.EventError, map[string]any{
		"event":   event,
		"code":    code,
		"kind":    game.KindRuleViolation.String(),
		"message": message,
	})
}
