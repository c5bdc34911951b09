// internal/tournament/manager.go
package tournament

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/versus/internal/game"
	"github.com/jason-s-yu/versus/internal/models"
	"github.com/jason-s-yu/versus/internal/realtime"
	"github.com/sirupsen/logrus"
)

var (
	ErrTournamentNotFound = &game.Error{Kind: game.KindNotFound, Code: "tournament_not_found", Message: "tournament not found"}
	ErrNotOpen            = &game.Error{Kind: game.KindRuleViolation, Code: "tournament_not_open", Message: "tournament is not open"}
	ErrAlreadyJoined      = &game.Error{Kind: game.KindRuleViolation, Code: "already_joined", Message: "already a participant"}
	ErrTooFewParticipants = &game.Error{Kind: game.KindRuleViolation, Code: "too_few_participants", Message: "not enough participants to start"}
	ErrNoLiveMatch        = &game.Error{Kind: game.KindRuleViolation, Code: "no_live_match", Message: "you have no match waiting in the current round"}
	ErrBadName            = &game.Error{Kind: game.KindRuleViolation, Code: "invalid_name", Message: "tournament name must be 1-64 characters"}
)

const maxNameLen = 64

// MatchHost is the session manager tournament matches run on.
type MatchHost interface {
	GameName() string
	CreateTournamentMatch(tournamentID uuid.UUID, a, b models.Identity) uuid.UUID
	SetReady(ctx context.Context, userID, sessionID uuid.UUID, ready bool) error
	OnMatchFinished(fn func(game.MatchResult))
}

// Options configures a Manager.
type Options struct {
	MinParticipants int           // default 2
	OutboundTimeout time.Duration // default 2s
	Rand            *rand.Rand
	Logger          *logrus.Logger
	Directory       game.Directory
}

// Manager is the registry of tournaments for one game kind. Its lock is
// always taken before the host's, never after.
type Manager struct {
	mu       sync.Mutex
	host     MatchHost
	sender   game.Sender
	opts     Options
	log      *logrus.Entry
	brackets map[uuid.UUID]*Bracket
}

// NewManager builds a tournament manager on top of host and subscribes to
// its finished matches.
func NewManager(host MatchHost, sender game.Sender, opts Options) *Manager {
	if opts.MinParticipants <= 0 {
		opts.MinParticipants = 2
	}
	if opts.OutboundTimeout <= 0 {
		opts.OutboundTimeout = 2 * time.Second
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	m := &Manager{
		host:     host,
		sender:   sender,
		opts:     opts,
		log:      opts.Logger.WithFields(logrus.Fields{"game": host.GameName(), "component": "tournament"}),
		brackets: make(map[uuid.UUID]*Bracket),
	}
	host.OnMatchFinished(m.onMatchFinished)
	return m
}

func (m *Manager) reject(userID uuid.UUID, event string, err error) error {
	m.log.WithFields(logrus.Fields{"user": userID, "event": event}).Debugf("Rejected tournament request: %v", err)
	m.sender.Send(userID, realtime.EventError, map[string]any{
		"event":   event,
		"code":    game.CodeOf(err),
		"kind":    game.KindOf(err).String(),
		"message": err.Error(),
	})
	return err
}

// identity resolves a display name without holding mu. Tournaments are
// joined by people already connected, so any lookup failure falls back to
// a generated name.
func (m *Manager) identity(ctx context.Context, userID uuid.UUID) models.Identity {
	name := game.FallbackUsername(userID)
	if m.opts.Directory != nil {
		ctx, cancel := context.WithTimeout(ctx, m.opts.OutboundTimeout)
		defer cancel()
		resolved, err := m.opts.Directory.ResolveUsername(ctx, userID)
		switch {
		case err == nil:
			name = resolved
		case !errors.Is(err, game.ErrUserNotFound):
			m.log.WithField("user", userID).Warnf("Username lookup failed, using fallback: %v", err)
		}
	}
	return models.Identity{UserID: userID, Username: name}
}

// broadcastLocked sends event to every participant of b.
func (m *Manager) broadcastLocked(b *Bracket, event string, payload any) {
	for _, p := range b.Participants {
		m.sender.Send(p.UserID, event, payload)
	}
}

// Create opens a tournament with the creator as its first participant.
func (m *Manager) Create(ctx context.Context, creatorID uuid.UUID, name string) (uuid.UUID, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLen {
		return uuid.Nil, m.reject(creatorID, realtime.EventCreateTournament, ErrBadName)
	}
	creator := m.identity(ctx, creatorID)

	m.mu.Lock()
	defer m.mu.Unlock()
	b := newBracket(name, creator)
	m.brackets[b.ID] = b
	m.sender.Send(creatorID, realtime.EventTournamentCreated, map[string]any{
		"tournamentId": b.ID,
		"name":         b.Name,
	})
	m.log.WithFields(logrus.Fields{"tournament": b.ID, "creator": creatorID}).Info("Tournament created")
	return b.ID, nil
}

// Join adds a participant to an Open tournament.
func (m *Manager) Join(ctx context.Context, userID, tournamentID uuid.UUID) error {
	const event = realtime.EventJoinTournament
	who := m.identity(ctx, userID)

	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.brackets[tournamentID]
	if !ok {
		return m.reject(userID, event, ErrTournamentNotFound)
	}
	if b.Status != models.TournamentOpen {
		return m.reject(userID, event, ErrNotOpen)
	}
	if b.participantIndex(userID) >= 0 {
		return m.reject(userID, event, ErrAlreadyJoined)
	}
	b.Participants = append(b.Participants, who)
	m.broadcastLocked(b, realtime.EventParticipantJoined, map[string]any{
		"tournamentId": b.ID,
		"userId":       who.UserID,
		"username":     who.Username,
		"participants": len(b.Participants),
	})
	return nil
}

// Leave removes a participant from an Open tournament.
func (m *Manager) Leave(_ context.Context, userID, tournamentID uuid.UUID) error {
	const event = realtime.EventLeaveTournament
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.brackets[tournamentID]
	if !ok {
		return m.reject(userID, event, ErrTournamentNotFound)
	}
	if b.participantIndex(userID) < 0 {
		return m.reject(userID, event, game.ErrNotParticipant)
	}
	if b.Status != models.TournamentOpen {
		return m.reject(userID, event, ErrNotOpen)
	}
	m.leaveLocked(b, userID)
	return nil
}

func (m *Manager) leaveLocked(b *Bracket, userID uuid.UUID) {
	b.removeParticipant(userID)
	if len(b.Participants) == 0 {
		delete(m.brackets, b.ID)
		m.log.WithField("tournament", b.ID).Info("Empty tournament removed")
		return
	}
	m.broadcastLocked(b, realtime.EventParticipantLeft, map[string]any{
		"tournamentId": b.ID,
		"userId":       userID,
		"creatorId":    b.CreatorID,
		"participants": len(b.Participants),
	})
}

// Start shuffles the roster and plays the first round. Only the creator may start.
func (m *Manager) Start(_ context.Context, requesterID, tournamentID uuid.UUID) error {
	const event = realtime.EventStartTournament
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.brackets[tournamentID]
	if !ok {
		return m.reject(requesterID, event, ErrTournamentNotFound)
	}
	if b.CreatorID != requesterID {
		return m.reject(requesterID, event, game.ErrNotCreator)
	}
	if b.Status != models.TournamentOpen {
		return m.reject(requesterID, event, ErrNotOpen)
	}
	if len(b.Participants) < m.opts.MinParticipants {
		return m.reject(requesterID, event, ErrTooFewParticipants)
	}

	b.Status = models.TournamentInProgress
	m.log.WithFields(logrus.Fields{"tournament": b.ID, "participants": len(b.Participants)}).Info("Tournament started")
	m.playRoundLocked(b, b.shuffled(m.opts.Rand), realtime.EventTournamentStarted)
	return nil
}

// playRoundLocked appends a round for players, opens a session for every
// real match and announces it. A round made only of byes completes at once.
func (m *Manager) playRoundLocked(b *Bracket, players []models.Identity, event string) {
	round := pairRound(players)
	b.Rounds = append(b.Rounds, round)
	b.Current = len(b.Rounds) - 1
	for _, e := range round {
		if !e.IsBye {
			e.SessionID = m.host.CreateTournamentMatch(b.ID, e.A, *e.B)
		}
	}
	m.broadcastLocked(b, event, map[string]any{
		"tournamentId": b.ID,
		"round":        b.Current,
		"matches":      round.snapshot(),
	})
	m.advanceLocked(b)
}

// advanceLocked moves past a completed current round: one winner finishes
// the tournament, more are paired into the next round.
func (m *Manager) advanceLocked(b *Bracket) {
	round := b.currentRound()
	if !round.complete() {
		return
	}
	winners := round.winners()
	if len(winners) == 1 {
		w := winners[0]
		b.Winner = &w
		b.Status = models.TournamentFinished
		m.broadcastLocked(b, realtime.EventTournamentFinished, map[string]any{
			"tournamentId":   b.ID,
			"winnerId":       w.UserID,
			"winnerUsername": w.Username,
		})
		delete(m.brackets, b.ID)
		m.log.WithFields(logrus.Fields{"tournament": b.ID, "winner": w.UserID}).Info("Tournament finished")
		return
	}
	m.playRoundLocked(b, winners, realtime.EventRoundAdvanced)
}

// onMatchFinished records a finished tournament match and advances its bracket.
func (m *Manager) onMatchFinished(r game.MatchResult) {
	if r.TournamentID == uuid.Nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.brackets[r.TournamentID]
	if !ok || b.Status != models.TournamentInProgress {
		return
	}
	if !b.record(r.SessionID, r.Winner.UserID) {
		m.log.WithFields(logrus.Fields{"tournament": b.ID, "session": r.SessionID}).Warn("Result for unknown bracket slot ignored")
		return
	}
	m.advanceLocked(b)
}

// ReadyInCurrentRound marks the caller ready in their pending match of the
// current round.
func (m *Manager) ReadyInCurrentRound(ctx context.Context, userID, tournamentID uuid.UUID) error {
	const event = realtime.EventTournamentReady
	m.mu.Lock()
	b, ok := m.brackets[tournamentID]
	if !ok {
		m.mu.Unlock()
		return m.reject(userID, event, ErrTournamentNotFound)
	}
	e := b.liveEntryOf(userID)
	if b.Status != models.TournamentInProgress || e == nil {
		m.mu.Unlock()
		return m.reject(userID, event, ErrNoLiveMatch)
	}
	sessionID := e.SessionID
	m.mu.Unlock()

	return m.host.SetReady(ctx, userID, sessionID, true)
}

// OnDisconnect withdraws the user from every Open tournament. Tournaments in
// progress keep their roster: a live match is forfeited by the session
// manager's own disconnect handling.
func (m *Manager) OnDisconnect(_ context.Context, userID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.brackets {
		if b.Status == models.TournamentOpen && b.participantIndex(userID) >= 0 {
			m.leaveLocked(b, userID)
		}
	}
}

// View is a read-only copy of a tournament.
type View struct {
	ID           uuid.UUID               `json:"id"`
	Name         string                  `json:"name"`
	CreatorID    uuid.UUID               `json:"creatorId"`
	Status       models.TournamentStatus `json:"status"`
	Participants []models.Identity       `json:"participants"`
	CurrentRound int                     `json:"currentRound"`
	Rounds       []Round                 `json:"rounds,omitempty"`
}

func (b *Bracket) view() View {
	v := View{
		ID:           b.ID,
		Name:         b.Name,
		CreatorID:    b.CreatorID,
		Status:       b.Status,
		Participants: append([]models.Identity(nil), b.Participants...),
		CurrentRound: b.Current,
	}
	for _, r := range b.Rounds {
		v.Rounds = append(v.Rounds, r.snapshot())
	}
	return v
}

// Get returns a snapshot of a live tournament.
func (m *Manager) Get(id uuid.UUID) (View, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.brackets[id]
	if !ok {
		return View{}, false
	}
	return b.view(), true
}

// List returns every open or running tournament, sorted by name.
func (m *Manager) List() []View {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]View, 0, len(m.brackets))
	for _, b := range m.brackets {
		out = append(out, b.view())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
