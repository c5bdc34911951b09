// internal/game/play.go
package game

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jason-s-yu/versus/internal/models"
	"github.com/jason-s-yu/versus/internal/realtime"
	"github.com/sirupsen/logrus"
)

// SetReady flips the caller's ready flag in a lobby and starts the game once
// both sides are ready.
func (m *Manager[S]) SetReady(_ context.Context, userID, sessionID uuid.UUID, ready bool) error {
	const event = realtime.EventSetReady
	m.lock()
	defer m.unlock()

	s, ok := m.store.get(sessionID)
	if !ok {
		return m.reject(userID, event, ErrSessionNotFound)
	}
	side, ok := s.SideOf(userID)
	if !ok {
		return m.reject(userID, event, ErrNotParticipant)
	}
	if s.Status != models.StatusInLobby {
		return m.reject(userID, event, ErrWrongState)
	}

	s.Ready[side] = ready
	status := map[string]any{
		"sessionId": s.ID,
		"userId":    userID,
		"side":      side,
		"ready":     ready,
	}
	m.sender.Send(userID, realtime.EventReadyStatus, status)
	m.sender.Send(s.Sides[side.Other()].UserID, realtime.EventReadyStatus, status)

	if s.Ready[models.SideA] && s.Ready[models.SideB] {
		m.startLocked(s)
	}
	return nil
}

// startLocked moves a lobby to InProgress: fresh rules state, SideA on turn,
// move timer or physics ticker armed.
func (m *Manager[S]) startLocked(s *Session[S]) {
	s.cooldown.stop()
	s.Status = models.StatusInProgress
	s.State = m.rules.NewState()
	s.TurnOwner = models.SideA
	turnBased := m.rules.TurnBased()

	for side := models.SideA; side <= models.SideB; side++ {
		opp := s.Opponent(side)
		m.sender.Send(s.Sides[side].UserID, realtime.EventGameStarted, map[string]any{
			"sessionId":        s.ID,
			"side":             side,
			"opponentId":       opp.UserID,
			"opponentUsername": opp.Username,
			"yourTurn":         turnBased && side == s.TurnOwner,
			"state":            m.rules.Snapshot(s.State),
		})
	}
	if turnBased {
		m.armMoveTimerLocked(s)
	}
	if m.ticker != nil {
		m.armTickLocked(s)
	}
	m.log.WithField("session", s.ID).Info("Session started")
}

// SubmitMove validates and applies a move. Every failure is reported to the
// actor as invalidMove; the other side never hears about it.
func (m *Manager[S]) SubmitMove(_ context.Context, userID, sessionID uuid.UUID, move json.RawMessage) error {
	m.lock()
	defer m.unlock()

	s, ok := m.store.get(sessionID)
	if !ok {
		return m.invalidMove(userID, sessionID, ErrSessionNotFound)
	}
	side, ok := s.SideOf(userID)
	if !ok {
		return m.invalidMove(userID, sessionID, ErrNotParticipant)
	}
	if s.Status != models.StatusInProgress {
		return m.invalidMove(userID, sessionID, ErrWrongState)
	}
	turnBased := m.rules.TurnBased()
	if turnBased && s.TurnOwner != side {
		return m.invalidMove(userID, sessionID, ErrNotYourTurn)
	}

	out, err := m.rules.ApplyMove(s.State, side, move)
	if err != nil {
		var domainErr *Error
		if !errors.As(err, &domainErr) {
			err = &Error{Kind: KindRuleViolation, Code: ErrInvalidMove.Code, Message: err.Error()}
		}
		return m.invalidMove(userID, sessionID, err)
	}

	made := map[string]any{
		"sessionId":    s.ID,
		"actingUserId": userID,
		"side":         side,
		"mutation":     out.Mutation,
	}
	if out.Evicted != nil {
		made["evicted"] = out.Evicted
	}
	if !out.Terminal && turnBased {
		s.TurnOwner = side.Other()
		made["nextTurn"] = s.TurnOwner
		m.armMoveTimerLocked(s)
	}
	m.broadcastLocked(s, realtime.EventMoveMade, made)

	if out.Terminal {
		m.finishLocked(s, out.Winner, models.ReasonRules)
	}
	return nil
}

func (m *Manager[S]) invalidMove(userID, sessionID uuid.UUID, err error) error {
	m.log.WithFields(logrus.Fields{"user": userID, "session": sessionID}).Debugf("Invalid move: %v", err)
	m.sender.Send(userID, realtime.EventInvalidMove, map[string]any{
		"sessionId": sessionID,
		"code":      CodeOf(err),
		"reason":    err.Error(),
	})
	return err
}

// Quit leaves a session. The effect depends on status: a waiting custom game
// or a custom lobby is cancelled for both sides; any other lobby or running
// match is forfeited to the opponent.
func (m *Manager[S]) Quit(_ context.Context, userID, sessionID uuid.UUID) error {
	const event = realtime.EventQuit
	m.lock()
	defer m.unlock()

	s, ok := m.store.get(sessionID)
	if !ok {
		return m.reject(userID, event, ErrSessionNotFound)
	}
	side, ok := s.SideOf(userID)
	if !ok {
		return m.reject(userID, event, ErrNotParticipant)
	}
	m.leaveLocked(s, side, models.ReasonQuit)
	return nil
}

// leaveLocked applies quit semantics for side leaving s.
func (m *Manager[S]) leaveLocked(s *Session[S], side models.Side, reason models.EndReason) {
	switch s.Status {
	case models.StatusWaiting:
		m.cancelLocked(s, s.Sides[side].UserID)
	case models.StatusInLobby:
		if s.Kind == models.KindCustom {
			m.cancelLocked(s, s.Sides[side].UserID)
			return
		}
		m.finishLocked(s, side.Other(), reason)
	case models.StatusInProgress:
		m.finishLocked(s, side.Other(), reason)
	default:
		// Finished sessions are evicted immediately; reaching here means the
		// registry held a stale entry.
		m.log.WithField("session", s.ID).Error("Invariant violated: finished session still registered")
		m.store.remove(s)
	}
}

// OnDisconnect drops the user from the queue and applies quit semantics to
// every session they are present in.
func (m *Manager[S]) OnDisconnect(_ context.Context, userID uuid.UUID) {
	m.lock()
	defer m.unlock()

	if m.dequeueLocked(userID) {
		m.syncBusyLocked(userID)
	}
	for _, s := range m.store.forUser(userID) {
		side, ok := s.SideOf(userID)
		if !ok {
			continue
		}
		m.leaveLocked(s, side, models.ReasonDisconnect)
	}
}

// --- timers ---

func (m *Manager[S]) armCooldownLocked(s *Session[S]) {
	id := s.ID
	s.cooldown.arm(m.opts.Clock, m.opts.Cooldown, func(gen uint64) { m.onCooldown(id, gen) })
}

// onCooldown force-starts a lobby that did not ready up in time.
func (m *Manager[S]) onCooldown(sessionID uuid.UUID, gen uint64) {
	m.lock()
	defer m.unlock()
	s, ok := m.store.get(sessionID)
	if !ok || !s.cooldown.claim(gen) {
		return
	}
	if s.Status != models.StatusInLobby {
		return
	}
	m.log.WithField("session", s.ID).Info("Cooldown expired, starting session")
	m.startLocked(s)
}

func (m *Manager[S]) armMoveTimerLocked(s *Session[S]) {
	id, side := s.ID, s.TurnOwner
	s.moveTimer.arm(m.opts.Clock, m.opts.MoveTimeout, func(gen uint64) { m.onMoveTimeout(id, side, gen) })
}

// onMoveTimeout forfeits the match of the side that failed to move.
func (m *Manager[S]) onMoveTimeout(sessionID uuid.UUID, side models.Side, gen uint64) {
	m.lock()
	defer m.unlock()
	s, ok := m.store.get(sessionID)
	if !ok || !s.moveTimer.claim(gen) {
		return
	}
	if s.Status != models.StatusInProgress || s.TurnOwner != side {
		return
	}
	m.log.WithFields(logrus.Fields{"session": s.ID, "side": side}).Info("Move timeout")
	m.finishLocked(s, side.Other(), models.ReasonTimeout)
}

func (m *Manager[S]) armTickLocked(s *Session[S]) {
	id := s.ID
	s.ticker.arm(m.opts.Clock, m.ticker.TickInterval(), func(gen uint64) { m.onTick(id, gen) })
}

// onTick advances physics for one step and broadcasts the new state.
func (m *Manager[S]) onTick(sessionID uuid.UUID, gen uint64) {
	m.lock()
	defer m.unlock()
	s, ok := m.store.get(sessionID)
	if !ok || !s.ticker.claim(gen) || s.Status != models.StatusInProgress {
		return
	}
	out := m.ticker.Tick(s.State)
	m.broadcastLocked(s, realtime.EventStateUpdate, map[string]any{
		"sessionId": s.ID,
		"state":     out.Mutation,
	})
	if out.Terminal {
		m.finishLocked(s, out.Winner, models.ReasonRules)
		return
	}
	m.armTickLocked(s)
}

// --- tournament support ---

// CreateTournamentMatch registers a lobby for two bracket participants and
// arms the same auto-start cooldown as a random match. The bracket match
// takes precedence: both players leave the queue, and any other session
// they occupy is left with quit semantics first.
func (m *Manager[S]) CreateTournamentMatch(tournamentID uuid.UUID, a, b models.Identity) uuid.UUID {
	m.lock()
	defer m.unlock()
	for _, uid := range []uuid.UUID{a.UserID, b.UserID} {
		m.vacateLocked(uid)
	}
	s := newSession[S](models.KindTournamentMatch, &a)
	s.Sides[models.SideB] = &b
	s.Status = models.StatusInLobby
	s.TournamentID = tournamentID
	m.store.add(s)
	m.announceMatchLocked(s)
	m.log.WithFields(logrus.Fields{"session": s.ID, "tournament": tournamentID}).Info("Tournament match created")
	return s.ID
}

// vacateLocked frees userID for a bracket match. The caller announces the
// new session, which publishes the busy state.
func (m *Manager[S]) vacateLocked(userID uuid.UUID) {
	if m.dequeueLocked(userID) {
		m.log.WithField("user", userID).Info("Removed from queue for tournament match")
	}
	for _, s := range m.store.forUser(userID) {
		if !s.occupies(userID) {
			continue
		}
		side, _ := s.SideOf(userID)
		m.log.WithFields(logrus.Fields{"user": userID, "session": s.ID}).Info("Leaving session for tournament match")
		m.leaveLocked(s, side, models.ReasonQuit)
	}
}
