// internal/game/manager.go
package game

import (
	"context"
	"errors"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/jason-s-yu/versus/internal/models"
	"github.com/jason-s-yu/versus/internal/realtime"
	"github.com/sirupsen/logrus"
)

// Options configures a Manager. Zero values select the defaults noted on each field.
type Options struct {
	Cooldown        time.Duration // default 30s
	MoveTimeout     time.Duration // default 15s
	OutboundTimeout time.Duration // default 2s
	SkipBlockCheck  bool          // skip the relationship check when pairing strangers

	Clock  clock.Clock // default real clock
	Rand   *rand.Rand  // default time-seeded source; inject for a deterministic coin flip
	Logger *logrus.Logger

	Oracle    BusyOracle    // default: nobody is busy elsewhere
	Publisher BusyPublisher // optional
	Relations Relations     // default: nobody is blocked
	Directory Directory     // default: generated usernames
	Notifier  Notifier      // optional
	Results   ResultSink    // optional
}

func (o *Options) applyDefaults() {
	if o.Cooldown <= 0 {
		o.Cooldown = 30 * time.Second
	}
	if o.MoveTimeout <= 0 {
		o.MoveTimeout = 15 * time.Second
	}
	if o.OutboundTimeout <= 0 {
		o.OutboundTimeout = 2 * time.Second
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	if o.Oracle == nil {
		o.Oracle = idleOracle{}
	}
	if o.Relations == nil {
		o.Relations = openRelations{}
	}
	if o.Directory == nil {
		o.Directory = fallbackDirectory{}
	}
}

type busyUpdate struct {
	userID uuid.UUID
	busy   bool
}

// Manager is the authoritative registry of sessions for one game kind. It
// owns the matchmaking queue and every session's timers.
//
// Every public method and every timer callback runs under mu, so the manager
// behaves as a single serialization point. Outbound calls (busy oracle,
// relationships, usernames) are made with mu released; preconditions are
// re-validated after they return.
type Manager[S any] struct {
	mu     sync.Mutex
	rules  Rules[S]
	ticker Ticker[S]
	sender Sender
	opts   Options
	log    *logrus.Entry

	store *sessionStore[S]
	queue []models.Identity

	listeners      []func(MatchResult)
	pendingResults []MatchResult

	busyUpdates chan busyUpdate
	stop        chan struct{}
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

// NewManager builds a manager for rules, delivering events through sender.
func NewManager[S any](rules Rules[S], sender Sender, opts Options) *Manager[S] {
	opts.applyDefaults()
	m := &Manager[S]{
		rules:  rules,
		sender: sender,
		opts:   opts,
		log:    opts.Logger.WithField("game", rules.Name()),
		store:  newSessionStore[S](),
		stop:   make(chan struct{}),
	}
	if t, ok := rules.(Ticker[S]); ok {
		m.ticker = t
	}
	if opts.Publisher != nil {
		m.busyUpdates = make(chan busyUpdate, 256)
		m.wg.Add(1)
		go m.publishLoop()
	}
	return m
}

// Close stops every timer and the busy publisher. Sessions are dropped; they
// are not persisted.
func (m *Manager[S]) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		for _, s := range m.store.sessions {
			s.stopTimers()
		}
		m.mu.Unlock()
		close(m.stop)
		m.wg.Wait()
	})
}

// OnMatchFinished registers fn to be called (on its own goroutine) for every
// session that reaches Finished.
func (m *Manager[S]) OnMatchFinished(fn func(MatchResult)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// GameName is the rules name, e.g. "grid".
func (m *Manager[S]) GameName() string {
	return m.rules.Name()
}

// lock/unlock bracket every entry point. unlock delivers results gathered
// while locked only after mu is released, so listeners may call back in.
func (m *Manager[S]) lock() {
	m.mu.Lock()
}

func (m *Manager[S]) unlock() {
	results := m.pendingResults
	m.pendingResults = nil
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()

	for _, r := range results {
		for _, fn := range listeners {
			go fn(r)
		}
		if m.opts.Results != nil {
			go func(r MatchResult) {
				ctx, cancel := context.WithTimeout(context.Background(), m.opts.OutboundTimeout)
				defer cancel()
				if err := m.opts.Results.RecordResult(ctx, r); err != nil {
					m.log.WithField("session", r.SessionID).Warnf("Failed to record match result: %v", err)
				}
			}(r)
		}
	}
}

// --- busy tracking ---

// isBusyLocked reports whether the user is in the queue or occupies a live session.
func (m *Manager[S]) isBusyLocked(userID uuid.UUID) bool {
	if m.queueIndexLocked(userID) >= 0 {
		return true
	}
	for _, s := range m.store.forUser(userID) {
		if s.occupies(userID) {
			return true
		}
	}
	return false
}

// IsBusy reports the local busy state of a user.
func (m *Manager[S]) IsBusy(userID uuid.UUID) bool {
	m.lock()
	defer m.unlock()
	return m.isBusyLocked(userID)
}

// syncBusyLocked queues a publication of each user's current busy state.
func (m *Manager[S]) syncBusyLocked(userIDs ...uuid.UUID) {
	if m.busyUpdates == nil {
		return
	}
	for _, uid := range userIDs {
		select {
		case m.busyUpdates <- busyUpdate{userID: uid, busy: m.isBusyLocked(uid)}:
		default:
			m.log.WithField("user", uid).Warn("Busy publication queue full, dropping update")
		}
	}
}

func (m *Manager[S]) publishLoop() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stop:
			return
		case u := <-m.busyUpdates:
			ctx, cancel := context.WithTimeout(context.Background(), m.opts.OutboundTimeout)
			if err := m.opts.Publisher.SetBusy(ctx, u.userID, u.busy); err != nil {
				m.log.WithField("user", u.userID).Warnf("Failed to publish busy state: %v", err)
			}
			cancel()
		}
	}
}

// --- outbound checks, always called without mu held ---

// busyElsewhere consults the sibling service. It returns ErrBusy when the
// user is occupied there and ErrUpstream when the answer is unknown, so a
// failed or slow oracle never lets a user in.
func (m *Manager[S]) busyElsewhere(ctx context.Context, userID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, m.opts.OutboundTimeout)
	defer cancel()
	busy, err := m.opts.Oracle.IsUserBusyInOtherService(ctx, userID)
	if err != nil {
		m.log.WithField("user", userID).Warnf("Busy oracle failed, refusing request: %v", err)
		return ErrUpstream
	}
	if busy {
		return ErrBusy
	}
	return nil
}

// blocked checks the relationship between a and b. Errors and timeouts count as blocked.
func (m *Manager[S]) blocked(ctx context.Context, a, b uuid.UUID) bool {
	ctx, cancel := context.WithTimeout(ctx, m.opts.OutboundTimeout)
	defer cancel()
	blocked, err := m.opts.Relations.IsBlocked(ctx, a, b)
	if err != nil {
		m.log.WithFields(logrus.Fields{"user": a, "other": b}).Warnf("Block check failed, treating as blocked: %v", err)
		return true
	}
	return blocked
}

// identity resolves a username. Unknown users yield ErrUserNotFound; any
// other failure falls back to a generated name since names are cosmetic.
func (m *Manager[S]) identity(ctx context.Context, userID uuid.UUID) (models.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, m.opts.OutboundTimeout)
	defer cancel()
	name, err := m.opts.Directory.ResolveUsername(ctx, userID)
	switch {
	case errors.Is(err, ErrUserNotFound):
		return models.Identity{}, ErrUserNotFound
	case err != nil:
		m.log.WithField("user", userID).Warnf("Username lookup failed, using fallback: %v", err)
		name = FallbackUsername(userID)
	}
	return models.Identity{UserID: userID, Username: name}, nil
}

// --- replies ---

// reject reports err to the offending client only and returns it.
func (m *Manager[S]) reject(userID uuid.UUID, event string, err error) error {
	m.log.WithFields(logrus.Fields{
		"user":  userID,
		"event": event,
		"code":  CodeOf(err),
	}).Debug("Rejected client request")
	m.sender.Send(userID, realtime.EventError, map[string]any{
		"event":   event,
		"code":    CodeOf(err),
		"kind":    KindOf(err).String(),
		"message": err.Error(),
	})
	return err
}

// broadcastLocked sends the same event to every present side.
func (m *Manager[S]) broadcastLocked(s *Session[S], event string, payload any) {
	for _, uid := range s.members() {
		m.sender.Send(uid, event, payload)
	}
}

// --- terminal transitions ---

// finishLocked ends a match with winner, notifies both sides and evicts it.
// Timers are cancelled before the session leaves the registry.
func (m *Manager[S]) finishLocked(s *Session[S], winner models.Side, reason models.EndReason) {
	s.stopTimers()
	s.Status = models.StatusFinished
	win := s.Sides[winner]
	lose := s.Opponent(winner)

	m.broadcastLocked(s, realtime.EventGameEnded, map[string]any{
		"sessionId":      s.ID,
		"winnerId":       win.UserID,
		"winnerUsername": win.Username,
		"reason":         reason,
	})
	m.store.remove(s)
	m.syncBusyLocked(s.members()...)

	m.pendingResults = append(m.pendingResults, MatchResult{
		SessionID:    s.ID,
		Kind:         s.Kind,
		Game:         m.rules.Name(),
		TournamentID: s.TournamentID,
		Winner:       *win,
		Loser:        lose,
		Reason:       reason,
		FinishedAt:   m.opts.Clock.Now().UnixMilli(),
	})
	m.log.WithFields(logrus.Fields{
		"session": s.ID,
		"winner":  win.UserID,
		"reason":  reason,
	}).Info("Session finished")
}

// cancelLocked tears down a session with no winner (custom games only).
func (m *Manager[S]) cancelLocked(s *Session[S], by uuid.UUID) {
	s.stopTimers()
	payload := map[string]any{"sessionId": s.ID, "cancelledBy": by}
	m.broadcastLocked(s, realtime.EventGameCancelled, payload)
	if s.Status == models.StatusWaiting && s.Invitee.UserID != uuid.Nil {
		m.sender.Send(s.Invitee.UserID, realtime.EventGameCancelled, payload)
	}
	m.store.remove(s)
	m.syncBusyLocked(s.members()...)
	m.log.WithFields(logrus.Fields{"session": s.ID, "by": by}).Info("Session cancelled")
}

// --- introspection ---

// SessionView is a read-only copy of a session for callers outside the manager.
type SessionView struct {
	ID           uuid.UUID            `json:"id"`
	Kind         models.SessionKind   `json:"kind"`
	Status       models.SessionStatus `json:"status"`
	SideA        models.Identity      `json:"sideA"`
	SideB        *models.Identity     `json:"sideB,omitempty"`
	Ready        [2]bool              `json:"ready"`
	TurnOwner    models.Side          `json:"turnOwner"`
	TournamentID uuid.UUID            `json:"tournamentId,omitempty"`
	State        any                  `json:"state,omitempty"`
}

// Session returns a snapshot of a live session.
func (m *Manager[S]) Session(id uuid.UUID) (SessionView, bool) {
	m.lock()
	defer m.unlock()
	s, ok := m.store.get(id)
	if !ok {
		return SessionView{}, false
	}
	v := SessionView{
		ID:           s.ID,
		Kind:         s.Kind,
		Status:       s.Status,
		SideA:        *s.Sides[models.SideA],
		Ready:        s.Ready,
		TurnOwner:    s.TurnOwner,
		TournamentID: s.TournamentID,
	}
	if b := s.Sides[models.SideB]; b != nil {
		cp := *b
		v.SideB = &cp
	}
	if s.Status == models.StatusInProgress {
		v.State = m.rules.Snapshot(s.State)
	}
	return v, true
}

// SessionCount returns the number of live sessions.
func (m *Manager[S]) SessionCount() int {
	m.lock()
	defer m.unlock()
	return m.store.len()
}
