package pubsub

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	// Client defaults to a client for localhost:6379.
	Client redis.UniversalClient
	// Prefix is prepended to every topic. Defaults to "gqlws:".
	Prefix string
}

// Redis is a Broker on Redis pub/sub, shared by every process connected to
// the same server.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

func NewRedis(cfg RedisConfig) *Redis {
	client := cfg.Client
	if client == nil {
		client = redis.NewClient(&redis.Options{Addr: `localhost:6379`})
	}
	prefix := cfg.Prefix
	if prefix == `` {
		prefix = `gqlws:`
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) channel(topic string) string { return r.prefix + topic }

func (r *Redis) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := r.client.Publish(ctx, r.channel(topic), payload).Err(); err != nil {
		return fmt.Errorf(`failed to publish to %s: %w`, topic, err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, topic string) (<-chan []byte, func(), error) {
	ps := r.client.Subscribe(ctx, r.channel(topic))
	// wait for the subscription to be confirmed so no event published after
	// this call returns is missed
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, nil, fmt.Errorf(`failed to subscribe to %s: %w`, topic, err)
	}
	done := make(chan struct{})
	var once sync.Once
	stop := func() { once.Do(func() { close(done) }) }
	out := make(chan []byte)
	msgs := ps.Channel()
	go func() {
		defer close(out)
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				case <-done:
					return
				}
			}
		}
	}()
	return out, stop, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
