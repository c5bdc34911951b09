// internal/game/custom.go
package game

import (
	"context"

	"github.com/google/uuid"
	"github.com/jason-s-yu/versus/internal/models"
	"github.com/jason-s-yu/versus/internal/realtime"
	"github.com/sirupsen/logrus"
)

// CreateCustomGame opens a Waiting session from creatorID inviting opponentID.
// The invitee is notified out of band; the creator receives customGameCreated.
func (m *Manager[S]) CreateCustomGame(ctx context.Context, creatorID, opponentID uuid.UUID) (uuid.UUID, error) {
	const event = realtime.EventCreateCustomGame
	if creatorID == opponentID {
		return uuid.Nil, m.reject(creatorID, event, ErrSelfInvite)
	}

	m.lock()
	busy := m.isBusyLocked(creatorID)
	m.unlock()
	if busy {
		return uuid.Nil, m.reject(creatorID, event, ErrBusy)
	}

	if err := m.busyElsewhere(ctx, creatorID); err != nil {
		return uuid.Nil, m.reject(creatorID, event, err)
	}
	if m.blocked(ctx, creatorID, opponentID) {
		return uuid.Nil, m.reject(creatorID, event, ErrBlocked)
	}
	creator, err := m.identity(ctx, creatorID)
	if err != nil {
		creator = models.Identity{UserID: creatorID, Username: FallbackUsername(creatorID)}
	}
	invitee, err := m.identity(ctx, opponentID)
	if err != nil {
		return uuid.Nil, m.reject(creatorID, event, err)
	}

	m.lock()
	if m.isBusyLocked(creatorID) {
		m.unlock()
		return uuid.Nil, m.reject(creatorID, event, ErrBusy)
	}
	s := newSession[S](models.KindCustom, &creator)
	s.Invitee = invitee
	m.store.add(s)
	m.syncBusyLocked(creatorID)
	m.sender.Send(creatorID, realtime.EventCustomGameCreated, map[string]any{
		"sessionId":        s.ID,
		"opponentId":       invitee.UserID,
		"opponentUsername": invitee.Username,
	})
	invite := map[string]any{
		"sessionId":       s.ID,
		"game":            m.rules.Name(),
		"creatorId":       creator.UserID,
		"creatorUsername": creator.Username,
	}
	m.sender.Send(opponentID, realtime.EventGameInvite, invite)
	m.log.WithFields(logrus.Fields{"session": s.ID, "creator": creatorID, "invitee": opponentID}).Info("Custom game created")
	m.unlock()

	m.notify(ctx, "gameInvite", opponentID, invite)
	return s.ID, nil
}

// notify pushes an out-of-band notification without holding mu.
func (m *Manager[S]) notify(ctx context.Context, kind string, target uuid.UUID, payload any) {
	if m.opts.Notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, m.opts.OutboundTimeout)
	defer cancel()
	if err := m.opts.Notifier.PushNotification(ctx, kind, target, payload); err != nil {
		m.log.WithField("user", target).Warnf("Push notification %q failed: %v", kind, err)
	}
}

// JoinCustomGame moves a Waiting custom session to InLobby when its invitee arrives.
func (m *Manager[S]) JoinCustomGame(ctx context.Context, userID, sessionID uuid.UUID) error {
	const event = realtime.EventJoinCustomGame

	m.lock()
	_, err := m.joinableLocked(userID, sessionID)
	m.unlock()
	if err != nil {
		return m.reject(userID, event, err)
	}

	if err := m.busyElsewhere(ctx, userID); err != nil {
		return m.reject(userID, event, err)
	}

	m.lock()
	defer m.unlock()
	s, err := m.joinableLocked(userID, sessionID)
	if err != nil {
		return m.reject(userID, event, err)
	}
	invitee := s.Invitee
	s.Sides[models.SideB] = &invitee
	s.Status = models.StatusInLobby
	m.store.index(userID, s.ID)
	m.syncBusyLocked(userID)

	for side := models.SideA; side <= models.SideB; side++ {
		opp := s.Opponent(side)
		m.sender.Send(s.Sides[side].UserID, realtime.EventOpponentJoined, map[string]any{
			"sessionId":        s.ID,
			"side":             side,
			"opponentId":       opp.UserID,
			"opponentUsername": opp.Username,
		})
	}
	m.log.WithFields(logrus.Fields{"session": s.ID, "user": userID}).Info("Invitee joined custom game")
	return nil
}

// joinableLocked validates a join attempt against current state.
func (m *Manager[S]) joinableLocked(userID, sessionID uuid.UUID) (*Session[S], error) {
	s, ok := m.store.get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.Kind != models.KindCustom || s.Status != models.StatusWaiting {
		return nil, ErrWrongState
	}
	if s.Creator().UserID == userID || s.Invitee.UserID != userID {
		return nil, ErrNotInvited
	}
	if m.isBusyLocked(userID) {
		return nil, ErrBusy
	}
	return s, nil
}

// CancelCustomGame lets the creator withdraw a custom session that has not started.
func (m *Manager[S]) CancelCustomGame(_ context.Context, userID, sessionID uuid.UUID) error {
	const event = realtime.EventCancelCustomGame
	m.lock()
	defer m.unlock()

	s, ok := m.store.get(sessionID)
	if !ok {
		return m.reject(userID, event, ErrSessionNotFound)
	}
	if s.Kind != models.KindCustom {
		return m.reject(userID, event, ErrWrongState)
	}
	if s.Creator().UserID != userID {
		return m.reject(userID, event, ErrNotCreator)
	}
	if s.Status != models.StatusWaiting && s.Status != models.StatusInLobby {
		return m.reject(userID, event, ErrWrongState)
	}
	m.cancelLocked(s, userID)
	return nil
}
