// internal/game/rules.go
package game

import (
	"encoding/json"
	"time"

	"github.com/jason-s-yu/versus/internal/models"
)

// Outcome is what a RulesEngine reports after a move or a tick.
type Outcome struct {
	// Terminal ends the match with Winner as the winning side.
	Terminal bool
	Winner   models.Side
	// Mutation is broadcast to both sides as the visible effect of the move.
	Mutation any
	// Evicted is set when the move removed an earlier mark (grid rules).
	Evicted any
}

// Rules is the pluggable game capability. The manager never looks inside S:
// state is created, mutated and snapshotted only through these methods.
//
// ApplyMove must return an error (which becomes an invalidMove reason) and
// leave state untouched when the move is illegal.
type Rules[S any] interface {
	Name() string
	TurnBased() bool
	NewState() S
	ApplyMove(state S, actor models.Side, move json.RawMessage) (Outcome, error)
	Snapshot(state S) any
}

// Ticker is implemented by rules whose state advances on its own (physics).
// The manager calls Tick every TickInterval while a session is in progress.
type Ticker[S any] interface {
	TickInterval() time.Duration
	Tick(state S) Outcome
}
