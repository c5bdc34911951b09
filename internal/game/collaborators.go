// internal/game/collaborators.go
package game

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/versus/internal/models"
)

// Sender pushes one event to one user, best effort. realtime.Registry implements it.
type Sender interface {
	Send(userID uuid.UUID, event string, payload any)
}

// BusyOracle answers whether a user is occupied in a sibling game service.
type BusyOracle interface {
	IsUserBusyInOtherService(ctx context.Context, userID uuid.UUID) (bool, error)
}

// BusyPublisher records this service's view of a user's busy state so that
// siblings can query it.
type BusyPublisher interface {
	SetBusy(ctx context.Context, userID uuid.UUID, busy bool) error
}

// Relations answers block relationships between users.
type Relations interface {
	IsBlocked(ctx context.Context, a, b uuid.UUID) (bool, error)
}

// Directory resolves user ids to display names. It returns ErrUserNotFound
// for unknown users.
type Directory interface {
	ResolveUsername(ctx context.Context, userID uuid.UUID) (string, error)
}

// Notifier delivers out-of-band push notifications (e.g. game invites).
type Notifier interface {
	PushNotification(ctx context.Context, kind string, targetID uuid.UUID, payload any) error
}

// MatchResult describes a finished session.
type MatchResult struct {
	SessionID    uuid.UUID          `json:"sessionId"`
	Kind         models.SessionKind `json:"kind"`
	Game         string             `json:"game"`
	TournamentID uuid.UUID          `json:"tournamentId,omitempty"`
	Winner       models.Identity    `json:"winner"`
	Loser        models.Identity    `json:"loser"`
	Reason       models.EndReason   `json:"reason"`
	FinishedAt   int64              `json:"finishedAt"`
}

// ResultSink receives every finished match for history keeping.
type ResultSink interface {
	RecordResult(ctx context.Context, result MatchResult) error
}

// Defaults used when a collaborator is not configured.

type idleOracle struct{}

func (idleOracle) IsUserBusyInOtherService(context.Context, uuid.UUID) (bool, error) {
	return false, nil
}

type openRelations struct{}

func (openRelations) IsBlocked(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return false, nil
}

type fallbackDirectory struct{}

func (fallbackDirectory) ResolveUsername(_ context.Context, userID uuid.UUID) (string, error) {
	return FallbackUsername(userID), nil
}

// FallbackUsername is the display name used when the directory cannot answer.
func FallbackUsername(userID uuid.UUID) string {
	return fmt.Sprintf("User_%s", userID.String()[:4])
}
