package gqlwsserver

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubMan(t *testing.T) {
	sm := newSubMan()
	first := newOperation(context.Background(), `1`)
	assert.True(t, sm.add(first))
	assert.False(t, sm.add(newOperation(context.Background(), `1`)))
	assert.True(t, sm.has(`1`))
	assert.Equal(t, first, sm.get(`1`))

	assert.False(t, sm.del(`1`, newOperation(context.Background(), `1`)))
	assert.True(t, sm.has(`1`))
	assert.True(t, sm.del(`1`, first))
	assert.False(t, sm.del(`1`, first))
	assert.Nil(t, sm.get(`1`))

	assert.True(t, sm.add(newOperation(context.Background(), `b`)))
	assert.True(t, sm.add(newOperation(context.Background(), `a`)))
	assert.Equal(t, []string{`a`, `b`}, sm.ids())
	assert.Equal(t, 2, sm.len())
}

func TestSubManConcurrentRemoval(t *testing.T) {
	sm := newSubMan()
	op := newOperation(context.Background(), `x`)
	sm.add(op)
	var wg sync.WaitGroup
	var lock sync.Mutex
	removed := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sm.del(`x`, op) {
				lock.Lock()
				removed++
				lock.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, removed)
}

func TestTaskSet(t *testing.T) {
	ts := newTaskSet()
	release := make(chan struct{})
	cancelled := make(chan struct{})
	ts.spawn(context.Background(), func(ctx context.Context) {})
	ts.spawn(context.Background(), func(ctx context.Context) {
		select {
		case <-ctx.Done():
			close(cancelled)
		case <-release:
		}
	})
	assert.Eventually(t, func() bool {
		ts.prune()
		return ts.len() == 1
	}, time.Second, time.Millisecond)

	ts.cancelAll()
	assert.Equal(t, 0, ts.len())
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal(`task was not cancelled`)
	}
}
