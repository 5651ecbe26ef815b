// Package events publishes pipeline events to Redis for SSE forwarding by
// the Gateway.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"hireflow/pipeline-service/internal/pipeline"
)

// StageChangedChannel is the pub/sub channel the Gateway subscribes to.
const StageChangedChannel = "EVENT_STAGE_CHANGED"

// RedisNotifier implements pipeline.Notifier on a Redis client.
type RedisNotifier struct {
	rdb *redis.Client
}

// NewRedisNotifier returns a configured RedisNotifier.
func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

// StageChanged publishes the event as JSON on StageChangedChannel.
func (n *RedisNotifier) StageChanged(ctx context.Context, ev pipeline.StageChangedEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal stage change event: %w", err)
	}
	if err := n.rdb.Publish(ctx, StageChangedChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", StageChangedChannel, err)
	}
	return nil
}
