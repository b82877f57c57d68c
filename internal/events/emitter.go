package events

import (
	"context"
	"encoding/json"

	redisclient "github.com/Kanabar-rutvi/HelmetX-sub000/internal/redis"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Stream and channel names for dashboard fan-out
const (
	EventStream   = "helmetx:events"
	ChannelPrefix = "helmetx:events:"
)

// Emitter fans state changes out to subscribers (dashboards). The sink
// is external; emission is fire-and-forget.
type Emitter interface {
	Emit(ctx context.Context, event string, payload interface{})
}

// RedisEmitter publishes events to a Redis stream (durable tail for
// late consumers) and a per-event pub/sub channel (live dashboards).
type RedisEmitter struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisEmitter creates a Redis-backed emitter.
func NewRedisEmitter(client *redis.Client, logger *zap.Logger) *RedisEmitter {
	return &RedisEmitter{
		client: client,
		logger: logger,
	}
}

// Emit publishes one event. Failures are logged and never propagated;
// an unreachable dashboard must not fail the triggering operation.
func (e *RedisEmitter) Emit(ctx context.Context, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		e.logger.Error("Failed to marshal event payload",
			zap.String("event", event),
			zap.Error(err),
		)
		return
	}

	if _, err := redisclient.PublishToStream(ctx, e.client, EventStream, map[string]interface{}{
		"event": event,
		"data":  string(data),
	}); err != nil {
		e.logger.Warn("Failed to append event to stream",
			zap.String("event", event),
			zap.Error(err),
		)
	}

	if err := e.client.Publish(ctx, ChannelPrefix+event, data).Err(); err != nil {
		e.logger.Warn("Failed to publish event",
			zap.String("event", event),
			zap.Error(err),
		)
	}
}

// NopEmitter discards all events (tests, offline tooling).
type NopEmitter struct{}

// Emit does nothing.
func (NopEmitter) Emit(ctx context.Context, event string, payload interface{}) {}
