package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"bidmarket/internal/app/model"

	"github.com/go-redis/redis/v8"
)

// Publisher interface implementation
var _ Publisher = (*RedisPublisher)(nil)

type RedisPublisher struct {
	rdb *redis.Client
}

func (p *RedisPublisher) LoggerComponent() string {
	return "RedisPublisher"
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

type envelope struct {
	Kind    model.EventKind `json:"kind"`
	Payload model.Event     `json:"payload"`
}

// Publish implementation of interface Publisher
func (p *RedisPublisher) Publish(ctx context.Context, channel string, ev model.Event) error {
	raw, err := json.Marshal(envelope{Kind: ev.Kind(), Payload: ev})
	if err != nil {
		return fmt.Errorf("event encode: %w", err)
	}

	if err := p.rdb.Publish(ctx, channel, raw).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}

	return nil
}
