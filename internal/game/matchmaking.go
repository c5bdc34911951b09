// internal/game/matchmaking.go
package game

import (
	"context"

	"github.com/google/uuid"
	"github.com/jason-s-yu/versus/internal/models"
	"github.com/jason-s-yu/versus/internal/realtime"
	"github.com/sirupsen/logrus"
)

// queueIndexLocked returns the user's position in the queue, or -1.
func (m *Manager[S]) queueIndexLocked(userID uuid.UUID) int {
	for i, id := range m.queue {
		if id.UserID == userID {
			return i
		}
	}
	return -1
}

// dequeueLocked removes the user from the queue, reporting whether they were in it.
func (m *Manager[S]) dequeueLocked(userID uuid.UUID) bool {
	i := m.queueIndexLocked(userID)
	if i < 0 {
		return false
	}
	m.queue = append(m.queue[:i], m.queue[i+1:]...)
	return true
}

// QueueLen returns the number of users waiting for a random opponent.
func (m *Manager[S]) QueueLen() int {
	m.lock()
	defer m.unlock()
	return len(m.queue)
}

// JoinMatchmaking enqueues the user and tries to pair them with the first
// compatible waiting user. Unpaired users stay queued.
func (m *Manager[S]) JoinMatchmaking(ctx context.Context, userID uuid.UUID) error {
	const event = realtime.EventJoinMatchmaking

	m.lock()
	busy := m.isBusyLocked(userID)
	m.unlock()
	if busy {
		return m.reject(userID, event, ErrBusy)
	}
	if err := m.busyElsewhere(ctx, userID); err != nil {
		return m.reject(userID, event, err)
	}
	me, err := m.identity(ctx, userID)
	if err != nil {
		me = models.Identity{UserID: userID, Username: FallbackUsername(userID)}
	}

	m.lock()
	if m.isBusyLocked(userID) {
		m.unlock()
		return m.reject(userID, event, ErrBusy)
	}
	m.queue = append(m.queue, me)
	m.syncBusyLocked(userID)
	m.sender.Send(userID, realtime.EventMatchmakingJoined, map[string]any{"position": len(m.queue)})
	candidates := make([]models.Identity, 0, len(m.queue)-1)
	for _, id := range m.queue {
		if id.UserID != userID {
			candidates = append(candidates, id)
		}
	}
	m.unlock()

	m.pair(ctx, me, candidates)
	return nil
}

// pair scans candidates in queue order for the first one not blocked with
// me. Block checks run unlocked; each attempt re-validates that both users
// are still queued before consuming them.
func (m *Manager[S]) pair(ctx context.Context, me models.Identity, candidates []models.Identity) {
	for _, other := range candidates {
		if !m.opts.SkipBlockCheck && m.blocked(ctx, me.UserID, other.UserID) {
			continue
		}

		m.lock()
		if m.queueIndexLocked(me.UserID) < 0 {
			// Someone else paired us, or we left.
			m.unlock()
			return
		}
		if m.queueIndexLocked(other.UserID) < 0 {
			m.unlock()
			continue
		}
		m.dequeueLocked(me.UserID)
		m.dequeueLocked(other.UserID)
		m.startRandomLocked(other, me)
		m.unlock()
		return
	}
}

// startRandomLocked creates an InLobby random session for two dequeued users.
// A coin flip decides who plays first.
func (m *Manager[S]) startRandomLocked(a, b models.Identity) *Session[S] {
	if m.opts.Rand.Intn(2) == 1 {
		a, b = b, a
	}
	s := newSession[S](models.KindRandom, &a)
	s.Sides[models.SideB] = &b
	s.Status = models.StatusInLobby
	m.store.add(s)
	m.announceMatchLocked(s)
	m.log.WithFields(logrus.Fields{"session": s.ID, "a": a.UserID, "b": b.UserID}).Info("Matchmaking paired users")
	return s
}

// announceMatchLocked tells both sides they were matched and arms the
// auto-start cooldown.
func (m *Manager[S]) announceMatchLocked(s *Session[S]) {
	for side := models.SideA; side <= models.SideB; side++ {
		opp := s.Opponent(side)
		payload := map[string]any{
			"sessionId":        s.ID,
			"side":             side,
			"opponentId":       opp.UserID,
			"opponentUsername": opp.Username,
			"cooldownMs":       m.opts.Cooldown.Milliseconds(),
		}
		if s.TournamentID != uuid.Nil {
			payload["tournamentId"] = s.TournamentID
		}
		m.sender.Send(s.Sides[side].UserID, realtime.EventMatched, payload)
	}
	m.syncBusyLocked(s.members()...)
	m.armCooldownLocked(s)
}

// LeaveMatchmaking removes the user from the queue.
func (m *Manager[S]) LeaveMatchmaking(_ context.Context, userID uuid.UUID) error {
	m.lock()
	defer m.unlock()
	if !m.dequeueLocked(userID) {
		return m.reject(userID, realtime.EventLeaveMatchmaking, ErrNotQueued)
	}
	m.syncBusyLocked(userID)
	m.sender.Send(userID, realtime.EventMatchmakingLeft, map[string]any{})
	return nil
}
