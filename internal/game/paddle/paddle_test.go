package paddle

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jason-s-yu/versus/internal/game"
	"github.com/jason-s-yu/versus/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const faceB = Width - PaddleInset - PaddleWidth/2

func TestSteerValidation(t *testing.T) {
	r := New(5, 16*time.Millisecond)
	s := r.NewState()

	out, err := r.ApplyMove(s, models.SideB, json.RawMessage(`{"direction":-1}`))
	require.NoError(t, err)
	assert.False(t, out.Terminal)
	assert.Equal(t, Steer{Side: models.SideB, Direction: -1}, out.Mutation)
	assert.Equal(t, -1, s.Direction[models.SideB])

	for _, raw := range []string{`{"direction":2}`, `{}`, `nope`} {
		_, err := r.ApplyMove(s, models.SideA, json.RawMessage(raw))
		assert.ErrorIs(t, err, ErrBadDirection, raw)
	}
	assert.Equal(t, game.KindRuleViolation, game.KindOf(ErrBadDirection))
}

func TestPaddleStaysOnField(t *testing.T) {
	r := New(5, time.Millisecond)
	s := r.NewState()
	s.Direction[models.SideA] = -1
	for i := 0; i < 100; i++ {
		r.Tick(s)
	}
	assert.Equal(t, PaddleHeight/2, s.Paddles[models.SideA])
}

func TestBallBouncesOffPaddle(t *testing.T) {
	r := New(5, time.Millisecond)
	s := r.NewState()
	s.Ball = Vec2{faceB - BallRadius - 3, 200}
	s.Velocity = Vec2{6, 0}
	s.Paddles[models.SideB] = 200

	out := r.Tick(s)
	assert.False(t, out.Terminal)
	assert.Less(t, s.Velocity.X, 0.0)
	assert.InDelta(t, 6*speedUp, -s.Velocity.X, 1e-9)
	assert.Equal(t, [2]int{0, 0}, s.Score)
}

func TestBallBouncesOffWalls(t *testing.T) {
	r := New(5, time.Millisecond)
	s := r.NewState()
	s.Ball = Vec2{Width / 2, BallRadius + 1}
	s.Velocity = Vec2{0, -4}

	r.Tick(s)
	assert.Greater(t, s.Velocity.Y, 0.0)
	assert.GreaterOrEqual(t, s.Ball.Y, BallRadius)
}

func TestMissScoresAndServes(t *testing.T) {
	r := New(5, time.Millisecond)
	s := r.NewState()
	s.Ball = Vec2{Width - 20, 350}
	s.Velocity = Vec2{6, 0}
	s.Paddles[models.SideB] = PaddleHeight / 2

	var out game.Outcome
	for i := 0; i < 10 && s.Score == [2]int{}; i++ {
		out = r.Tick(s)
	}
	assert.False(t, out.Terminal)
	assert.Equal(t, [2]int{1, 0}, s.Score)
	assert.Equal(t, Vec2{Width / 2, Height / 2}, s.Ball)
	assert.Greater(t, s.Velocity.X, 0.0, "ball is served toward the side that conceded")
}

func TestReachingWinScoreEnds(t *testing.T) {
	r := New(3, time.Millisecond)
	s := r.NewState()
	s.Score = [2]int{0, 2}
	s.Ball = Vec2{5, 350}
	s.Velocity = Vec2{-6, 0}
	s.Paddles[models.SideA] = PaddleHeight / 2

	var out game.Outcome
	for i := 0; i < 10 && !out.Terminal; i++ {
		out = r.Tick(s)
	}
	require.True(t, out.Terminal)
	assert.Equal(t, models.SideB, out.Winner)
	snap, ok := out.Mutation.(Snapshot)
	require.True(t, ok)
	assert.Equal(t, [2]int{0, 3}, snap.Score)
}
