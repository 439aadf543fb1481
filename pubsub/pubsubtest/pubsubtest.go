// Package pubsubtest holds the behavior every pubsub.Broker must share.
package pubsubtest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/onichandame/gql-ws-server/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// BrokerFactory creates a fresh broker for a test.
type BrokerFactory func(t *testing.T) pubsub.Broker

func RunBrokerTests(t *testing.T, factory BrokerFactory) {
	t.Run("PublishAndSubscribe", func(t *testing.T) {
		testPublishAndSubscribe(t, factory)
	})
	t.Run("MultipleSubscribers", func(t *testing.T) {
		testMultipleSubscribers(t, factory)
	})
	t.Run("TopicIsolation", func(t *testing.T) {
		testTopicIsolation(t, factory)
	})
	t.Run("Unsubscribe", func(t *testing.T) {
		testUnsubscribe(t, factory)
	})
	t.Run("ContextCancellation", func(t *testing.T) {
		testContextCancellation(t, factory)
	})
}

func receive(t *testing.T, events <-chan []byte) string {
	select {
	case ev, ok := <-events:
		require.True(t, ok, `subscription closed early`)
		return string(ev)
	case <-time.After(5 * time.Second):
		t.Fatal(`timed out waiting for an event`)
	}
	return ``
}

func closed(t *testing.T, events <-chan []byte) {
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal(`subscription was not closed`)
		}
	}
}

// publish keeps the publisher independent of the subscriber's reads.
func publish(t *testing.T, b pubsub.Broker, topic string, payloads ...string) {
	go func() {
		for _, p := range payloads {
			assert.NoError(t, b.Publish(context.Background(), topic, []byte(p)))
		}
	}()
}

func testPublishAndSubscribe(t *testing.T, factory BrokerFactory) {
	b := factory(t)
	defer b.Close()
	events, stop, err := b.Subscribe(context.Background(), `t1`)
	require.NoError(t, err)
	defer stop()

	var payloads []string
	for i := 0; i < 5; i++ {
		payloads = append(payloads, fmt.Sprint(i))
	}
	publish(t, b, `t1`, payloads...)
	for _, p := range payloads {
		assert.Equal(t, p, receive(t, events))
	}
}

func testMultipleSubscribers(t *testing.T, factory BrokerFactory) {
	b := factory(t)
	defer b.Close()
	first, stop1, err := b.Subscribe(context.Background(), `t2`)
	require.NoError(t, err)
	defer stop1()
	second, stop2, err := b.Subscribe(context.Background(), `t2`)
	require.NoError(t, err)
	defer stop2()

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.Equal(t, `hello`, receive(t, second))
	}()
	publish(t, b, `t2`, `hello`)
	assert.Equal(t, `hello`, receive(t, first))
	<-done
}

func testTopicIsolation(t *testing.T, factory BrokerFactory) {
	b := factory(t)
	defer b.Close()
	events, stop, err := b.Subscribe(context.Background(), `t3`)
	require.NoError(t, err)
	defer stop()

	publish(t, b, `other`, `ignored`)
	publish(t, b, `t3`, `wanted`)
	assert.Equal(t, `wanted`, receive(t, events))
}

func testUnsubscribe(t *testing.T, factory BrokerFactory) {
	b := factory(t)
	defer b.Close()
	events, stop, err := b.Subscribe(context.Background(), `t4`)
	require.NoError(t, err)
	stop()
	stop()
	closed(t, events)
	assert.NoError(t, b.Publish(context.Background(), `t4`, []byte(`late`)))
}

func testContextCancellation(t *testing.T, factory BrokerFactory) {
	b := factory(t)
	defer b.Close()
	ctx, cancel := context.WithCancel(context.Background())
	events, stop, err := b.Subscribe(ctx, `t5`)
	require.NoError(t, err)
	defer stop()
	cancel()
	closed(t, events)
}
