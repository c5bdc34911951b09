// internal/tournament/bracket.go
package tournament

import (
	"math/rand"

	"github.com/google/uuid"
	"github.com/jason-s-yu/versus/internal/models"
)

// Entry is one slot in a round: a live tournament match, or a bye whose
// winner is known the moment it is created.
type Entry struct {
	SessionID uuid.UUID        `json:"sessionId,omitempty"`
	A         models.Identity  `json:"a"`
	B         *models.Identity `json:"b,omitempty"`
	IsBye     bool             `json:"isBye"`
	Finished  bool             `json:"finished"`
	Winner    *models.Identity `json:"winner,omitempty"`
}

// involves reports whether userID plays in this entry.
func (e *Entry) involves(userID uuid.UUID) bool {
	return e.A.UserID == userID || (e.B != nil && e.B.UserID == userID)
}

// Round is an ordered list of entries.
type Round []*Entry

// Bracket is one single-elimination tournament.
type Bracket struct {
	ID           uuid.UUID
	Name         string
	CreatorID    uuid.UUID
	Status       models.TournamentStatus
	Participants []models.Identity
	Rounds       []Round
	Current      int
	Winner       *models.Identity
}

func newBracket(name string, creator models.Identity) *Bracket {
	return &Bracket{
		ID:           uuid.New(),
		Name:         name,
		CreatorID:    creator.UserID,
		Status:       models.TournamentOpen,
		Participants: []models.Identity{creator},
	}
}

func (b *Bracket) participantIndex(userID uuid.UUID) int {
	for i, p := range b.Participants {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

// removeParticipant drops userID from the roster and hands the creator role
// to the earliest remaining participant when needed.
func (b *Bracket) removeParticipant(userID uuid.UUID) bool {
	i := b.participantIndex(userID)
	if i < 0 {
		return false
	}
	b.Participants = append(b.Participants[:i], b.Participants[i+1:]...)
	if b.CreatorID == userID && len(b.Participants) > 0 {
		b.CreatorID = b.Participants[0].UserID
	}
	return true
}

// shuffled returns a uniformly permuted copy of the roster.
func (b *Bracket) shuffled(rng *rand.Rand) []models.Identity {
	out := append([]models.Identity(nil), b.Participants...)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// pairRound pairs players sequentially. A trailing odd player gets a bye,
// already finished with that player as winner.
func pairRound(players []models.Identity) Round {
	round := make(Round, 0, (len(players)+1)/2)
	for i := 0; i+1 < len(players); i += 2 {
		b := players[i+1]
		round = append(round, &Entry{A: players[i], B: &b})
	}
	if len(players)%2 == 1 {
		last := players[len(players)-1]
		round = append(round, &Entry{A: last, IsBye: true, Finished: true, Winner: &last})
	}
	return round
}

// snapshot copies the round so it can leave the lock, e.g. to be encoded
// by a connection's writer.
func (r Round) snapshot() Round {
	cp := make(Round, len(r))
	for i, e := range r {
		ec := *e
		cp[i] = &ec
	}
	return cp
}

// currentRound returns the round being played, or nil before start.
func (b *Bracket) currentRound() Round {
	if b.Current >= len(b.Rounds) {
		return nil
	}
	return b.Rounds[b.Current]
}

// complete reports whether every entry of the current round is finished.
func (r Round) complete() bool {
	for _, e := range r {
		if !e.Finished {
			return false
		}
	}
	return true
}

// winners lists the round's winners in round order.
func (r Round) winners() []models.Identity {
	out := make([]models.Identity, 0, len(r))
	for _, e := range r {
		if e.Winner != nil {
			out = append(out, *e.Winner)
		}
	}
	return out
}

// entryFor finds the current-round entry backed by sessionID.
func (b *Bracket) entryFor(sessionID uuid.UUID) *Entry {
	for _, e := range b.currentRound() {
		if !e.IsBye && e.SessionID == sessionID {
			return e
		}
	}
	return nil
}

// liveEntryOf finds the unfinished match userID plays in the current round.
func (b *Bracket) liveEntryOf(userID uuid.UUID) *Entry {
	for _, e := range b.currentRound() {
		if !e.IsBye && !e.Finished && e.involves(userID) {
			return e
		}
	}
	return nil
}

// record marks the entry for sessionID finished with winnerID. It reports
// false for unknown sessions or winners that did not play in it.
func (b *Bracket) record(sessionID, winnerID uuid.UUID) bool {
	e := b.entryFor(sessionID)
	if e == nil || e.Finished {
		return false
	}
	switch {
	case e.A.UserID == winnerID:
		e.Winner = &e.A
	case e.B != nil && e.B.UserID == winnerID:
		e.Winner = e.B
	default:
		return false
	}
	e.Finished = true
	return true
}
