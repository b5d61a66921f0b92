package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Publisher pushes row snapshots to interested clients. Each message is an
// envelope of the shape {"new": <snapshot>} on a per-entity channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, snapshot any) error
}

type redisPublisher struct {
	rdb *redis.Client
}

type PublisherParams struct {
	fx.In
	Redis *redis.Client
}

func NewPublisher(p PublisherParams) Publisher {
	return &redisPublisher{rdb: p.Redis}
}

func (p *redisPublisher) Publish(ctx context.Context, channel string, snapshot any) error {
	payload, err := encodeEvent(snapshot)
	if err != nil {
		return err
	}

	if err := p.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		zap.L().Error("failed to publish realtime event",
			zap.String("channel", channel), zap.Error(err))
		return err
	}

	return nil
}

func encodeEvent(snapshot any) ([]byte, error) {
	return json.Marshal(map[string]any{"new": snapshot})
}

// NopPublisher discards events. It backs tests and the task consumer, which
// has no realtime subscribers of its own.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, channel string, snapshot any) error {
	return nil
}
