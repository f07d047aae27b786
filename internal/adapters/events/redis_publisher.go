// Package events delivers planner progress events to subscribers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"sidekick-route-service/internal/domain"
	"sidekick-route-service/internal/ports"
)

const publishTimeout = 2 * time.Second

// RedisPublisher publishes events as JSON over Redis pub/sub, one channel
// per run.
type RedisPublisher struct {
	rdb *redis.Client
}

var _ ports.EventPublisher = (*RedisPublisher)(nil)

// NewRedisPublisher connects using a redis:// URL.
func NewRedisPublisher(url string) (*RedisPublisher, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis publisher: parse url: %w", err)
	}
	return NewRedisPublisherFromClient(redis.NewClient(opt)), nil
}

func NewRedisPublisherFromClient(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func ChannelName(runID string) string { return "plan:" + runID }

func (b *RedisPublisher) Publish(ctx context.Context, ev domain.PlanEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("publish %s: marshal: %w", ev.Kind, err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := b.rdb.Publish(ctx, ChannelName(ev.RunID), data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Kind, err)
	}
	return nil
}

// Subscribe streams the events of one run until ctx is done. The returned
// channel is closed when the subscription ends; malformed payloads are
// skipped.
func (b *RedisPublisher) Subscribe(ctx context.Context, runID string) (<-chan domain.PlanEvent, error) {
	ps := b.rdb.Subscribe(ctx, ChannelName(runID))
	// Wait for the subscription confirmation so no event is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", runID, err)
	}

	out := make(chan domain.PlanEvent, 16)
	go func() {
		defer close(out)
		defer ps.Close()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev domain.PlanEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (b *RedisPublisher) Close() error { return b.rdb.Close() }
