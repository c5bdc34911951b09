// Package grid implements the turn-based grid game: players alternate placing
// marks on a square board, and each side may hold at most MaxMarks live marks.
// Placing one more removes that side's oldest mark before the win check, so
// the board can never fill up and a draw is impossible.
package grid

import (
	"encoding/json"

	"github.com/jason-s-yu/versus/internal/game"
	"github.com/jason-s-yu/versus/internal/models"
)

const empty = -1

var (
	ErrMalformedMove = &game.Error{Kind: game.KindRuleViolation, Code: "invalid_move", Message: "move must be {\"cell\": <index>}"}
	ErrOutOfRange    = &game.Error{Kind: game.KindRuleViolation, Code: "out_of_range", Message: "cell is outside the board"}
	ErrOccupied      = &game.Error{Kind: game.KindRuleViolation, Code: "cell_occupied", Message: "cell is already occupied"}
)

// Rules is the grid game's rules engine.
type Rules struct {
	Size     int
	MaxMarks int
}

// New returns grid rules for a size×size board.
func New(size, maxMarks int) *Rules {
	return &Rules{Size: size, MaxMarks: maxMarks}
}

// State is one board. Cells hold the owning side, or -1 when empty.
type State struct {
	Cells []int
	// History lists each side's live marks, oldest first.
	History [2][]int
}

// Move is the client payload for makeMove.
type Move struct {
	Cell *int `json:"cell"`
}

// Placement is the mutation broadcast after a valid move.
type Placement struct {
	Cell int         `json:"cell"`
	Side models.Side `json:"side"`
}

// Snapshot is the board as sent to clients.
type Snapshot struct {
	Size  int   `json:"size"`
	Cells []int `json:"cells"`
}

func (r *Rules) Name() string { return "grid" }
func (r *Rules) TurnBased() bool { return true }

func (r *Rules) NewState() *State {
	cells := make([]int, r.Size*r.Size)
	for i := range cells {
		cells[i] = empty
	}
	return &State{Cells: cells}
}

func (r *Rules) Snapshot(s *State) any {
	return Snapshot{Size: r.Size, Cells: append([]int(nil), s.Cells...)}
}

// ApplyMove places actor's mark, evicting its oldest mark if it now exceeds
// MaxMarks, then checks for a completed line on the resulting board.
func (r *Rules) ApplyMove(s *State, actor models.Side, raw json.RawMessage) (game.Outcome, error) {
	var mv Move
	if err := json.Unmarshal(raw, &mv); err != nil || mv.Cell == nil {
		return game.Outcome{}, ErrMalformedMove
	}
	cell := *mv.Cell
	if cell < 0 || cell >= len(s.Cells) {
		return game.Outcome{}, ErrOutOfRange
	}
	if s.Cells[cell] != empty {
		return game.Outcome{}, ErrOccupied
	}

	s.Cells[cell] = int(actor)
	s.History[actor] = append(s.History[actor], cell)

	out := game.Outcome{Mutation: Placement{Cell: cell, Side: actor}}
	if len(s.History[actor]) > r.MaxMarks {
		oldest := s.History[actor][0]
		s.History[actor] = s.History[actor][1:]
		s.Cells[oldest] = empty
		out.Evicted = oldest
	}

	if r.wins(s, actor) {
		out.Terminal = true
		out.Winner = actor
	}
	return out, nil
}

// wins reports whether side owns a full row, column or diagonal.
func (r *Rules) wins(s *State, side models.Side) bool {
	n := r.Size
	owned := func(row, col int) bool { return s.Cells[row*n+col] == int(side) }

	diag, anti := true, true
	for i := 0; i < n; i++ {
		row, col := true, true
		for j := 0; j < n; j++ {
			row = row && owned(i, j)
			col = col && owned(j, i)
		}
		if row || col {
			return true
		}
		diag = diag && owned(i, i)
		anti = anti && owned(i, n-1-i)
	}
	return diag || anti
}
