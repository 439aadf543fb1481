// Package pubsub delivers events between publishers and the subscription
// resolvers of a schema. Delivery is at most once and ordered per publisher.
package pubsub

import (
	"context"
	"errors"
)

var ErrClosed = errors.New(`broker closed`)

type Broker interface {
	// Publish sends payload to every current subscriber of topic.
	Publish(ctx context.Context, topic string, payload []byte) error
	// Subscribe returns the events of topic published after it returns. The
	// channel is closed once ctx is done or the returned function is called.
	Subscribe(ctx context.Context, topic string) (<-chan []byte, func(), error)
	Close() error
}
