package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Event is a decoded realtime envelope.
type Event struct {
	Channel string
	New     json.RawMessage
}

type Subscriber struct {
	rdb *redis.Client
}

func NewSubscriber(rdb *redis.Client) *Subscriber {
	return &Subscriber{rdb: rdb}
}

func decodeEvent(channel, payload string) (Event, error) {
	var envelope struct {
		New json.RawMessage `json:"new"`
	}
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		return Event{}, err
	}
	return Event{Channel: channel, New: envelope.New}, nil
}

// Subscribe streams events for the given channels until ctx is cancelled.
func (s *Subscriber) Subscribe(ctx context.Context, channels ...string) <-chan Event {
	out := make(chan Event)

	pubsub := s.rdb.Subscribe(ctx, channels...)
	go func() {
		defer close(out)
		defer pubsub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}

				ev, err := decodeEvent(msg.Channel, msg.Payload)
				if err != nil {
					zap.L().Warn("dropping malformed realtime payload",
						zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}

				out <- ev
			}
		}
	}()

	return out
}
