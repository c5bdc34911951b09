// internal/game/session.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/versus/internal/models"
)

// Session is one match between two identities. All fields are owned by the
// Manager and only touched while its lock is held.
type Session[S any] struct {
	ID     uuid.UUID
	Kind   models.SessionKind
	Status models.SessionStatus

	// Sides holds the two participants. Sides[SideB] is nil only for a custom
	// session still in Waiting; Invitee names who may fill it.
	Sides   [2]*models.Identity
	Invitee models.Identity

	Ready     [2]bool
	TurnOwner models.Side
	State     S

	TournamentID uuid.UUID

	cooldown  timerHandle
	moveTimer timerHandle
	ticker    timerHandle
}

func newSession[S any](kind models.SessionKind, a *models.Identity) *Session[S] {
	return &Session[S]{
		ID:     uuid.New(),
		Kind:   kind,
		Status: models.StatusWaiting,
		Sides:  [2]*models.Identity{a, nil},
	}
}

// SideOf returns the side userID plays, if any.
func (s *Session[S]) SideOf(userID uuid.UUID) (models.Side, bool) {
	for i, id := range s.Sides {
		if id != nil && id.UserID == userID {
			return models.Side(i), true
		}
	}
	return models.SideA, false
}

// Creator is the user who opened the session (SideA).
func (s *Session[S]) Creator() models.Identity {
	return *s.Sides[models.SideA]
}

// Opponent returns the identity facing side, or a zero identity when absent.
func (s *Session[S]) Opponent(side models.Side) models.Identity {
	if o := s.Sides[side.Other()]; o != nil {
		return *o
	}
	return models.Identity{}
}

// members returns the ids of every present side.
func (s *Session[S]) members() []uuid.UUID {
	ids := make([]uuid.UUID, 0, 2)
	for _, id := range s.Sides {
		if id != nil {
			ids = append(ids, id.UserID)
		}
	}
	return ids
}

// occupies reports whether this session makes userID busy: any present side
// of a lobby or running match, or the creator of a waiting custom game.
func (s *Session[S]) occupies(userID uuid.UUID) bool {
	side, ok := s.SideOf(userID)
	if !ok {
		return false
	}
	switch s.Status {
	case models.StatusInLobby, models.StatusInProgress:
		return true
	case models.StatusWaiting:
		return side == models.SideA
	}
	return false
}

// stopTimers cancels every timer armed for this session.
func (s *Session[S]) stopTimers() {
	s.cooldown.stop()
	s.moveTimer.stop()
	s.ticker.stop()
}
