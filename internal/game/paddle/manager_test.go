package paddle_test

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/jason-s-yu/versus/internal/game"
	"github.com/jason-s-yu/versus/internal/game/paddle"
	"github.com/jason-s-yu/versus/internal/realtime"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	counts map[uuid.UUID]map[string]int
	last   map[uuid.UUID]map[string]any
}

func newRecorder() *recorder {
	return &recorder{counts: map[uuid.UUID]map[string]int{}, last: map[uuid.UUID]map[string]any{}}
}

func (r *recorder) Send(userID uuid.UUID, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts[userID] == nil {
		r.counts[userID] = map[string]int{}
		r.last[userID] = map[string]any{}
	}
	r.counts[userID][event]++
	r.last[userID][event] = payload
}

func (r *recorder) count(userID uuid.UUID, event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[userID][event]
}

func (r *recorder) payload(userID uuid.UUID, event string) map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, _ := r.last[userID][event].(map[string]any)
	return p
}

func TestTicksDriveStateUntilMatchEnds(t *testing.T) {
	const interval = 10 * time.Millisecond
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	mock := clock.NewMock()
	rec := newRecorder()
	m := game.NewManager[*paddle.State](paddle.New(3, interval), rec, game.Options{Clock: mock, Logger: logger})
	t.Cleanup(m.Close)

	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	require.NoError(t, m.JoinMatchmaking(ctx, a))
	require.NoError(t, m.JoinMatchmaking(ctx, b))
	id, ok := rec.payload(a, realtime.EventMatched)["sessionId"].(uuid.UUID)
	require.True(t, ok)

	require.NoError(t, m.SetReady(ctx, a, id, true))
	require.NoError(t, m.SetReady(ctx, b, id, true))
	started := rec.payload(a, realtime.EventGameStarted)
	assert.Equal(t, false, started["yourTurn"])

	for i := 1; i <= 3; i++ {
		mock.Add(interval)
		want := i
		assert.Eventually(t, func() bool { return rec.count(b, realtime.EventStateUpdate) == want }, time.Second, time.Millisecond)
		// The next tick is armed under the same lock hold as the broadcast,
		// so taking the lock once guarantees it exists before time moves on.
		m.SessionCount()
	}
	frame, ok := rec.payload(a, realtime.EventStateUpdate)["state"].(paddle.Snapshot)
	require.True(t, ok)
	assert.Equal(t, [2]int{0, 0}, frame.Score)

	// Both sides steer freely; there is no turn order.
	require.NoError(t, m.SubmitMove(ctx, b, id, json.RawMessage(`{"direction":1}`)))
	require.NoError(t, m.SubmitMove(ctx, a, id, json.RawMessage(`{"direction":-1}`)))
	assert.Equal(t, 2, rec.count(a, realtime.EventMoveMade))

	require.NoError(t, m.Quit(ctx, a, id))
	assert.Equal(t, b, rec.payload(b, realtime.EventGameEnded)["winnerId"])

	// The tick timer died with the session.
	mock.Add(5 * interval)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 3, rec.count(b, realtime.EventStateUpdate))
	assert.Equal(t, 0, m.SessionCount())
}
