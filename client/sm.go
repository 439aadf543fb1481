package gqlwsclient

import (
	"errors"
	"sync"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
)

type subMan struct {
	subs map[string]*Handlers
	lock sync.RWMutex
}

func newSubMan() *subMan {
	var sm subMan
	sm.subs = make(map[string]*Handlers)
	return &sm
}

func (sm *subMan) set(id string, hdl *Handlers) error {
	sm.lock.Lock()
	defer sm.lock.Unlock()
	if _, ok := sm.subs[id]; ok {
		return errors.New(`subscription already present`)
	}
	sm.subs[id] = hdl
	return nil
}

func (sm *subMan) get(id string) *Handlers {
	sm.lock.RLock()
	defer sm.lock.RUnlock()
	return sm.subs[id]
}

// take removes and returns the handlers of id.
func (sm *subMan) take(id string) *Handlers {
	sm.lock.Lock()
	defer sm.lock.Unlock()
	hdl := sm.subs[id]
	delete(sm.subs, id)
	return hdl
}

func (sm *subMan) drain() []*Handlers {
	sm.lock.Lock()
	defer sm.lock.Unlock()
	hdls := make([]*Handlers, 0, len(sm.subs))
	for id, hdl := range sm.subs {
		hdls = append(hdls, hdl)
		delete(sm.subs, id)
	}
	return hdls
}

type Handlers struct {
	OnError    func(gqlerrors.FormattedErrors)
	OnComplete func()
	OnNext     func(*graphql.Result)
}
