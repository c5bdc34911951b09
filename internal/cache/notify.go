// internal/cache/notify.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Notification is the message published for the push-notification service.
type Notification struct {
	Kind     string    `json:"kind"`
	TargetID uuid.UUID `json:"targetId"`
	Payload  any       `json:"payload"`
}

// Notifier publishes notifications on a Redis channel.
type Notifier struct {
	rdb     redis.Cmdable
	channel string
}

func NewNotifier(rdb redis.Cmdable, channel string) *Notifier {
	return &Notifier{rdb: rdb, channel: channel}
}

func (n *Notifier) PushNotification(ctx context.Context, kind string, targetID uuid.UUID, payload any) error {
	data, err := json.Marshal(Notification{Kind: kind, TargetID: targetID, Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := n.rdb.Publish(ctx, n.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to '%s': %w", n.channel, err)
	}
	return nil
}
