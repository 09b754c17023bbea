package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces pub/sub channels so several deployments can share one Redis.
const keyPrefix = "travplanner:"

// RedisBroker is a Broker backed by Redis pub/sub, so every API instance
// sees writes made through any other instance.
type RedisBroker struct {
	rdb *redis.Client
	log *slog.Logger
}

// NewRedisBroker wraps an existing client. The caller owns the client's lifecycle.
func NewRedisBroker(rdb *redis.Client, log *slog.Logger) *RedisBroker {
	return &RedisBroker{rdb: rdb, log: log}
}

// Publish sends a change signal on the topic's Redis channel.
func (b *RedisBroker) Publish(ctx context.Context, topic string) error {
	if err := b.rdb.Publish(ctx, keyPrefix+topic, "changed").Err(); err != nil {
		return fmt.Errorf("notify.RedisBroker.Publish: %w", err)
	}
	return nil
}

// Subscribe opens a Redis subscription and forwards every received message as
// a coalesced signal. It returns once Redis has confirmed the subscription, so
// a publish from any instance after Subscribe returns is delivered.
func (b *RedisBroker) Subscribe(ctx context.Context, topic string) (<-chan struct{}, func()) {
	ctx, stop := context.WithCancel(ctx)
	ps := b.rdb.Subscribe(ctx, keyPrefix+topic)
	if err := confirm(ctx, ps); err != nil {
		b.log.Warn("redis subscription not confirmed", "topic", topic, "error", err)
	}
	out := make(chan struct{}, 1)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(out)
		in := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-in:
				if !ok {
					return
				}
				signal(out)
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			stop()
			if err := ps.Close(); err != nil {
				b.log.Warn("redis unsubscribe failed", "topic", topic, "error", err)
			}
			wg.Wait()
		})
	}
	return out, cancel
}

// confirm waits for the reply to SUBSCRIBE. A message published before the
// reply may not reach this subscriber.
func confirm(ctx context.Context, ps *redis.PubSub) error {
	msg, err := ps.Receive(ctx)
	if err != nil {
		return err
	}
	if _, ok := msg.(*redis.Subscription); !ok {
		return fmt.Errorf("unexpected reply %T", msg)
	}
	return nil
}
