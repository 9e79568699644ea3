package realtime

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher pushes events through Redis pub/sub.
type Publisher struct {
	rdb redis.UniversalClient
}

func NewPublisher(rdb redis.UniversalClient) *Publisher {
	return &Publisher{rdb: rdb}
}

// Publish sends one event on channelKey. Having no subscriber is not an error.
func (p *Publisher) Publish(ctx context.Context, channelKey, event string, payload any) error {
	msg, err := encodeFrame(event, payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}
	if err := p.rdb.Publish(ctx, redisChannel(channelKey), msg).Err(); err != nil {
		return fmt.Errorf("publish %s event: %w", event, err)
	}
	return nil
}
