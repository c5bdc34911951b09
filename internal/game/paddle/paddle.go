// Package paddle implements the continuous paddle game. Clients only report
// paddle direction; the server advances the ball on a fixed tick and scores
// a point whenever the ball leaves the field behind a paddle.
package paddle

import (
	"encoding/json"
	"math"
	"time"

	"github.com/jason-s-yu/versus/internal/game"
	"github.com/jason-s-yu/versus/internal/models"
)

// Field geometry, in abstract units. Velocities are per tick.
const (
	Width        = 800.0
	Height       = 400.0
	PaddleWidth  = 10.0
	PaddleHeight = 80.0
	PaddleInset  = 20.0
	PaddleSpeed  = 8.0
	BallRadius   = 6.0

	serveSpeedX = 6.0
	serveSpeedY = 3.0
	speedUp     = 1.05
	maxSpeedX   = 16.0
	spin        = 2.0
)

var ErrBadDirection = &game.Error{Kind: game.KindRuleViolation, Code: "invalid_move", Message: "move must be {\"direction\": -1|0|1}"}

type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) Add(w Vec2) Vec2 { return Vec2{v.X + w.X, v.Y + w.Y} }

// State is one rally in progress. Paddles hold each paddle's vertical centre.
type State struct {
	Ball      Vec2
	Velocity  Vec2
	Paddles   [2]float64
	Direction [2]int
	Score     [2]int
}

// Snapshot is the frame sent to clients on every tick.
type Snapshot struct {
	Ball     Vec2       `json:"ball"`
	Velocity Vec2       `json:"velocity"`
	Paddles  [2]float64 `json:"paddles"`
	Score    [2]int     `json:"score"`
}

// Move is the client payload for makeMove.
type Move struct {
	Direction *int `json:"direction"`
}

// Steer is the mutation broadcast when a side changes direction.
type Steer struct {
	Side      models.Side `json:"side"`
	Direction int         `json:"direction"`
}

// Rules is the paddle game's rules engine. It also drives physics through
// game.Ticker.
type Rules struct {
	WinScore int
	Interval time.Duration
}

func New(winScore int, tick time.Duration) *Rules {
	return &Rules{WinScore: winScore, Interval: tick}
}

func (r *Rules) Name() string { return "paddle" }
func (r *Rules) TurnBased() bool { return false }
func (r *Rules) TickInterval() time.Duration { return r.Interval }

func (r *Rules) NewState() *State {
	s := &State{Paddles: [2]float64{Height / 2, Height / 2}}
	serve(s, models.SideB)
	return s
}

func (r *Rules) Snapshot(s *State) any {
	return Snapshot{Ball: s.Ball, Velocity: s.Velocity, Paddles: s.Paddles, Score: s.Score}
}

// ApplyMove sets the actor's paddle direction. It never ends the match.
func (r *Rules) ApplyMove(s *State, actor models.Side, raw json.RawMessage) (game.Outcome, error) {
	var mv Move
	if err := json.Unmarshal(raw, &mv); err != nil || mv.Direction == nil {
		return game.Outcome{}, ErrBadDirection
	}
	d := *mv.Direction
	if d < -1 || d > 1 {
		return game.Outcome{}, ErrBadDirection
	}
	s.Direction[actor] = d
	return game.Outcome{Mutation: Steer{Side: actor, Direction: d}}, nil
}

// Tick advances one physics step: paddles, ball, wall and paddle bounces,
// then scoring. The match ends when a side reaches WinScore.
func (r *Rules) Tick(s *State) game.Outcome {
	for side := range s.Paddles {
		y := s.Paddles[side] + float64(s.Direction[side])*PaddleSpeed
		s.Paddles[side] = clamp(y, PaddleHeight/2, Height-PaddleHeight/2)
	}

	prev := s.Ball
	s.Ball = s.Ball.Add(s.Velocity)

	if s.Ball.Y-BallRadius <= 0 {
		s.Ball.Y = BallRadius
		s.Velocity.Y = math.Abs(s.Velocity.Y)
	} else if s.Ball.Y+BallRadius >= Height {
		s.Ball.Y = Height - BallRadius
		s.Velocity.Y = -math.Abs(s.Velocity.Y)
	}

	faceA := PaddleInset + PaddleWidth/2
	faceB := Width - PaddleInset - PaddleWidth/2
	switch {
	case s.Velocity.X < 0 && prev.X-BallRadius >= faceA && s.Ball.X-BallRadius <= faceA && covers(s.Paddles[models.SideA], s.Ball.Y):
		s.Ball.X = faceA + BallRadius
		deflect(s, models.SideA)
	case s.Velocity.X > 0 && prev.X+BallRadius <= faceB && s.Ball.X+BallRadius >= faceB && covers(s.Paddles[models.SideB], s.Ball.Y):
		s.Ball.X = faceB - BallRadius
		deflect(s, models.SideB)
	}

	scorer, scored := models.SideA, false
	switch {
	case s.Ball.X+BallRadius < 0:
		scorer, scored = models.SideB, true
	case s.Ball.X-BallRadius > Width:
		scorer, scored = models.SideA, true
	}
	if scored {
		s.Score[scorer]++
		if s.Score[scorer] >= r.WinScore {
			return game.Outcome{Terminal: true, Winner: scorer, Mutation: r.Snapshot(s)}
		}
		serve(s, scorer.Other())
	}
	return game.Outcome{Mutation: r.Snapshot(s)}
}

// serve recentres the ball and sends it toward receiver.
func serve(s *State, receiver models.Side) {
	s.Ball = Vec2{Width / 2, Height / 2}
	dx := serveSpeedX
	if receiver == models.SideA {
		dx = -dx
	}
	s.Velocity = Vec2{dx, serveSpeedY}
}

// deflect reverses the ball off side's paddle, speeding it up and adding
// spin proportional to where it struck.
func deflect(s *State, side models.Side) {
	vx := math.Min(math.Abs(s.Velocity.X)*speedUp, maxSpeedX)
	if side == models.SideB {
		vx = -vx
	}
	offset := (s.Ball.Y - s.Paddles[side]) / (PaddleHeight / 2)
	s.Velocity = Vec2{vx, s.Velocity.Y + offset*spin}
}

func covers(paddleY, ballY float64) bool {
	return math.Abs(ballY-paddleY) <= PaddleHeight/2+BallRadius
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
