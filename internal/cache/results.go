// internal/cache/results.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/versus/internal/game"
	"github.com/redis/go-redis/v9"
)

// ResultQueue is the Redis list finished matches are pushed to and the
// historian drains.
type ResultQueue struct {
	rdb  redis.Cmdable
	name string
}

func NewResultQueue(rdb redis.Cmdable, name string) *ResultQueue {
	return &ResultQueue{rdb: rdb, name: name}
}

// RecordResult serializes the result to JSON and pushes it onto the queue.
func (q *ResultQueue) RecordResult(ctx context.Context, result game.MatchResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal MatchResult: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.name, err)
	}
	return nil
}

// Pop blocks for up to timeout waiting for the next result. It returns
// (nil, nil) when the wait times out.
func (q *ResultQueue) Pop(ctx context.Context, timeout time.Duration) (*game.MatchResult, error) {
	res, err := q.rdb.BLPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("BLPop %s: %w", q.name, err)
	}
	// res[0] is the list name, res[1] the payload.
	if len(res) < 2 {
		return nil, nil
	}
	var result game.MatchResult
	if err := json.Unmarshal([]byte(res[1]), &result); err != nil {
		return nil, fmt.Errorf("invalid match result: %w", err)
	}
	return &result, nil
}
