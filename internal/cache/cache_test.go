package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/versus/internal/game"
	"github.com/jason-s-yu/versus/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// redisForTest connects to REDIS_ADDR (default localhost:6379) on a scratch
// database and skips when no server is reachable.
func redisForTest(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb, err := Connect(context.Background(), addr, 15)
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() {
		rdb.FlushDB(context.Background())
		rdb.Close()
	})
	return rdb
}

func TestBusyKey(t *testing.T) {
	id := uuid.MustParse("6f1c7f6e-7d3c-4b43-9d0a-0c7e8f6c2a11")
	assert.Equal(t, "busy:grid:6f1c7f6e-7d3c-4b43-9d0a-0c7e8f6c2a11", busyKey("grid", id))
}

func TestBusyStoreSiblings(t *testing.T) {
	rdb := redisForTest(t)
	ctx := context.Background()
	grid := NewBusyStore(rdb, "grid", "paddle", time.Minute)
	paddle := NewBusyStore(rdb, "paddle", "grid", time.Minute)
	u := uuid.New()

	busy, err := paddle.IsUserBusyInOtherService(ctx, u)
	require.NoError(t, err)
	assert.False(t, busy)

	require.NoError(t, grid.SetBusy(ctx, u, true))
	busy, err = paddle.IsUserBusyInOtherService(ctx, u)
	require.NoError(t, err)
	assert.True(t, busy)

	busy, err = grid.IsUserBusyInOtherService(ctx, u)
	require.NoError(t, err)
	assert.False(t, busy, "a service never sees its own key as the sibling's")

	ttl, err := rdb.TTL(ctx, busyKey("grid", u)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, grid.SetBusy(ctx, u, false))
	busy, err = paddle.IsUserBusyInOtherService(ctx, u)
	require.NoError(t, err)
	assert.False(t, busy)
}

func TestResultQueueRoundTrip(t *testing.T) {
	rdb := redisForTest(t)
	ctx := context.Background()
	q := NewResultQueue(rdb, "versus_results_test")

	in := game.MatchResult{
		SessionID:  uuid.New(),
		Kind:       models.KindRandom,
		Game:       "grid",
		Winner:     models.Identity{UserID: uuid.New(), Username: "alice"},
		Loser:      models.Identity{UserID: uuid.New(), Username: "bob"},
		Reason:     models.ReasonTimeout,
		FinishedAt: 1700000000000,
	}
	require.NoError(t, q.RecordResult(ctx, in))

	out, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, in, *out)

	out, err = q.Pop(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, out, "an empty queue times out without error")
}

func TestNotifierPublishes(t *testing.T) {
	rdb := redisForTest(t)
	ctx := context.Background()
	sub := rdb.Subscribe(ctx, "versus_notifications_test")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	n := NewNotifier(rdb, "versus_notifications_test")
	target := uuid.New()
	require.NoError(t, n.PushNotification(ctx, "gameInvite", target, map[string]any{"game": "grid"}))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Contains(t, msg.Payload, `"kind":"gameInvite"`)
	assert.Contains(t, msg.Payload, target.String())
}
