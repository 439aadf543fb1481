package pubsub

import (
	"context"
	"sync"
)

type subscriber struct {
	events chan []byte
	done   chan struct{}
	once   sync.Once
}

func (s *subscriber) stop() { s.once.Do(func() { close(s.done) }) }

// Memory is a Broker for a single process.
type Memory struct {
	lock   sync.RWMutex
	topics map[string]map[*subscriber]struct{}
	closed bool
}

func NewMemory() *Memory {
	return &Memory{topics: make(map[string]map[*subscriber]struct{})}
}

func (m *Memory) Publish(ctx context.Context, topic string, payload []byte) error {
	m.lock.RLock()
	if m.closed {
		m.lock.RUnlock()
		return ErrClosed
	}
	subs := make([]*subscriber, 0, len(m.topics[topic]))
	for sub := range m.topics[topic] {
		subs = append(subs, sub)
	}
	m.lock.RUnlock()
	for _, sub := range subs {
		select {
		case sub.events <- payload:
		case <-sub.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, topic string) (<-chan []byte, func(), error) {
	sub := &subscriber{events: make(chan []byte), done: make(chan struct{})}
	m.lock.Lock()
	if m.closed {
		m.lock.Unlock()
		return nil, nil, ErrClosed
	}
	if m.topics[topic] == nil {
		m.topics[topic] = make(map[*subscriber]struct{})
	}
	m.topics[topic][sub] = struct{}{}
	m.lock.Unlock()

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer m.remove(topic, sub)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.done:
				return
			case payload := <-sub.events:
				select {
				case out <- payload:
				case <-ctx.Done():
					return
				case <-sub.done:
					return
				}
			}
		}
	}()
	return out, sub.stop, nil
}

func (m *Memory) remove(topic string, sub *subscriber) {
	sub.stop()
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.topics[topic], sub)
	if len(m.topics[topic]) == 0 {
		delete(m.topics, topic)
	}
}

// Close stops every subscription.
func (m *Memory) Close() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.closed = true
	for _, subs := range m.topics {
		for sub := range subs {
			sub.stop()
		}
	}
	return nil
}

// Subscribers returns the number of live subscriptions to topic.
func (m *Memory) Subscribers(topic string) int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.topics[topic])
}
