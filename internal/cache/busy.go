// internal/cache/busy.go
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// BusyStore shares busy state between sibling game services. Each service
// writes busy:<own kind>:<user> while the user is occupied and reads its
// sibling's key to answer the cross-service check. Keys expire after ttl so
// a crashed service cannot pin a user as busy forever.
type BusyStore struct {
	rdb     redis.Cmdable
	kind    string
	sibling string
	ttl     time.Duration
}

func NewBusyStore(rdb redis.Cmdable, kind, sibling string, ttl time.Duration) *BusyStore {
	return &BusyStore{rdb: rdb, kind: kind, sibling: sibling, ttl: ttl}
}

func busyKey(kind string, userID uuid.UUID) string {
	return "busy:" + kind + ":" + userID.String()
}

// IsUserBusyInOtherService reports whether the sibling service marked the user busy.
func (b *BusyStore) IsUserBusyInOtherService(ctx context.Context, userID uuid.UUID) (bool, error) {
	n, err := b.rdb.Exists(ctx, busyKey(b.sibling, userID)).Result()
	if err != nil {
		return false, fmt.Errorf("busy lookup for %s: %w", userID, err)
	}
	return n > 0, nil
}

// SetBusy publishes this service's busy state for the user.
func (b *BusyStore) SetBusy(ctx context.Context, userID uuid.UUID, busy bool) error {
	key := busyKey(b.kind, userID)
	var err error
	if busy {
		err = b.rdb.Set(ctx, key, 1, b.ttl).Err()
	} else {
		err = b.rdb.Del(ctx, key).Err()
	}
	if err != nil {
		return fmt.Errorf("busy update for %s: %w", userID, err)
	}
	return nil
}
