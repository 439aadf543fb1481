package gqlwsserver

import (
	"context"
	"sort"
	"sync"
)

// operation is the running-operation handle stored under an operation id.
// cancel stops the engine side of the operation, done is closed once its
// goroutine has finished all cleanup.
type operation struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newOperation(parent context.Context, id string) *operation {
	var op operation
	op.id = id
	op.ctx, op.cancel = context.WithCancel(parent)
	op.done = make(chan struct{})
	return &op
}

type subMan struct {
	subs map[string]*operation
	lock sync.RWMutex
}

func newSubMan() *subMan {
	var sm subMan
	sm.subs = make(map[string]*operation)
	return &sm
}

// add registers op unless its id is already taken.
func (sm *subMan) add(op *operation) bool {
	sm.lock.Lock()
	defer sm.lock.Unlock()
	if _, ok := sm.subs[op.id]; ok {
		return false
	}
	sm.subs[op.id] = op
	return true
}

func (sm *subMan) get(id string) *operation {
	sm.lock.RLock()
	defer sm.lock.RUnlock()
	return sm.subs[id]
}

func (sm *subMan) has(id string) bool {
	sm.lock.RLock()
	defer sm.lock.RUnlock()
	_, ok := sm.subs[id]
	return ok
}

// del removes id only while it still maps to op. It reports whether the
// caller performed the removal.
func (sm *subMan) del(id string, op *operation) bool {
	sm.lock.Lock()
	defer sm.lock.Unlock()
	if sm.subs[id] != op {
		return false
	}
	delete(sm.subs, id)
	return true
}

func (sm *subMan) ids() []string {
	sm.lock.RLock()
	defer sm.lock.RUnlock()
	ids := make([]string, 0, len(sm.subs))
	for id := range sm.subs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (sm *subMan) len() int {
	sm.lock.RLock()
	defer sm.lock.RUnlock()
	return len(sm.subs)
}

// task is one in-flight message dispatch.
type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (t *task) finished() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

type taskSet struct {
	tasks map[*task]struct{}
	lock  sync.Mutex
}

func newTaskSet() *taskSet {
	var ts taskSet
	ts.tasks = make(map[*task]struct{})
	return &ts
}

// spawn runs fn in its own goroutine and tracks it until pruned.
func (ts *taskSet) spawn(parent context.Context, fn func(context.Context)) *task {
	ctx, cancel := context.WithCancel(parent)
	t := &task{cancel: cancel, done: make(chan struct{})}
	ts.lock.Lock()
	ts.tasks[t] = struct{}{}
	ts.lock.Unlock()
	go func() {
		defer close(t.done)
		defer cancel()
		fn(ctx)
	}()
	return t
}

// prune forgets every finished task.
func (ts *taskSet) prune() {
	ts.lock.Lock()
	defer ts.lock.Unlock()
	for t := range ts.tasks {
		if t.finished() {
			delete(ts.tasks, t)
		}
	}
}

// cancelAll signals every outstanding task without waiting for it.
func (ts *taskSet) cancelAll() {
	ts.lock.Lock()
	defer ts.lock.Unlock()
	for t := range ts.tasks {
		t.cancel()
		delete(ts.tasks, t)
	}
}

func (ts *taskSet) len() int {
	ts.lock.Lock()
	defer ts.lock.Unlock()
	return len(ts.tasks)
}
