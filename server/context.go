package gqlwsserver

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	gqlwserror "github.com/onichandame/gql-ws-server/error"
	gqlwsmessage "github.com/onichandame/gql-ws-server/message"
)

// ErrConnectionClosed is returned by Conn.Receive once the transport reached
// end of stream or failed.
var ErrConnectionClosed = errors.New(`connection closed`)

// Conn is the transport binding the engine runs on.
type Conn interface {
	// Receive blocks for the next text message. It returns an error wrapping
	// ErrConnectionClosed when the transport is gone.
	Receive() (string, error)
	// Send writes a text message. It is a no-op once the connection is closed.
	Send(data string) error
	// Close sends a close frame with the code and reason.
	Close(code int, reason string) error
	Closed() bool
}

const (
	stateUninitialized int32 = iota
	stateInitializing
	stateAcknowledged
)

// ConnectionContext is the per connection state owned by the engine.
type ConnectionContext struct {
	Conn
	// ID identifies the connection in logs.
	ID string
	// ContextValue is opaque to the engine and forwarded to the executor.
	ContextValue interface{}

	hooks Hooks
	log   *slog.Logger
	ops   *subMan
	tasks *taskSet

	state      int32
	params     map[string]interface{}
	paramsLock sync.RWMutex
	initTimer  *time.Timer
}

func newConnectionContext(conn Conn, contextValue interface{}, hooks Hooks, log *slog.Logger) *ConnectionContext {
	var cc ConnectionContext
	cc.Conn = conn
	cc.ID = uuid.NewString()
	cc.ContextValue = contextValue
	cc.hooks = hooks
	cc.log = log.With(`connectionId`, cc.ID)
	cc.ops = newSubMan()
	cc.tasks = newTaskSet()
	return &cc
}

func (cc *ConnectionContext) Logger() *slog.Logger { return cc.log }

// ConnectionParams returns the payload of the connection_init message.
func (cc *ConnectionContext) ConnectionParams() map[string]interface{} {
	cc.paramsLock.RLock()
	defer cc.paramsLock.RUnlock()
	return cc.params
}

func (cc *ConnectionContext) setConnectionParams(params map[string]interface{}) {
	cc.paramsLock.Lock()
	defer cc.paramsLock.Unlock()
	cc.params = params
}

// Acknowledged reports whether connection_ack was sent.
func (cc *ConnectionContext) Acknowledged() bool {
	return atomic.LoadInt32(&cc.state) == stateAcknowledged
}

// Has reports whether an operation is registered under id.
func (cc *ConnectionContext) Has(id string) bool { return cc.ops.has(id) }

// OperationIDs returns the ids of the registered operations.
func (cc *ConnectionContext) OperationIDs() []string { return cc.ops.ids() }

// Unsubscribe stops the operation registered under id and waits until its
// completion has been sent. It is a no-op when id is not registered.
func (cc *ConnectionContext) Unsubscribe(ctx context.Context, id string) {
	op := cc.ops.get(id)
	if op == nil {
		return
	}
	cc.log.Debug(`unsubscribing operation`, `operationId`, id)
	op.cancel()
	<-op.done
}

// UnsubscribeAll unsubscribes every registered operation concurrently and
// waits for all of them.
func (cc *ConnectionContext) UnsubscribeAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, id := range cc.ops.ids() {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			cc.Unsubscribe(ctx, id)
		}(id)
	}
	wg.Wait()
}

func (cc *ConnectionContext) send(t gqlwsmessage.Type, id *string, payload interface{}) {
	data, err := gqlwsmessage.Encode(t, id, payload)
	if err != nil {
		cc.log.Error(`failed to encode message`, `type`, t, `error`, err)
		return
	}
	if err := cc.Send(string(data)); err != nil {
		cc.log.Warn(`sending message failed`, `type`, t, `error`, err)
	}
}

// fail closes the connection because of a connection-fatal condition.
func (cc *ConnectionContext) fail(err *gqlwserror.FatalError) {
	cc.log.Error(`closing connection`, `code`, int(err.Code), `reason`, err.Reason)
	if e := cc.Close(int(err.Code), err.Reason); e != nil {
		cc.log.Warn(`closing connection failed`, `error`, e)
	}
}

func (cc *ConnectionContext) armInitTimer(timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	cc.initTimer = time.AfterFunc(timeout, func() {
		if !cc.Acknowledged() {
			cc.fail(gqlwserror.NewFatalError(gqlwserror.ConnectionInitialisationTimeout, ``))
		}
	})
}

func (cc *ConnectionContext) stopInitTimer() {
	if cc.initTimer != nil {
		cc.initTimer.Stop()
	}
}
