package gqlwsserver

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/graphql-go/graphql"
	goutils "github.com/onichandame/go-utils"
	gqlwserror "github.com/onichandame/gql-ws-server/error"
	gqlwsmessage "github.com/onichandame/gql-ws-server/message"
)

// Server runs the graphql-transport-ws protocol over any Conn.
type Server struct {
	*Config
}

func NewServer(cfg *Config) *Server {
	var s Server
	cfg.init()
	s.Config = cfg
	return &s
}

// Handle serves one connection and returns once the transport is closed and
// every operation has been torn down. Cancelling ctx does not stop it: only
// the connection ending does.
func (s *Server) Handle(ctx context.Context, conn Conn, contextValue interface{}) {
	ctx = context.WithoutCancel(ctx)
	cc := newConnectionContext(conn, contextValue, s.Hooks, s.Logger)
	s.handle(ctx, cc)
}

func (s *Server) handle(ctx context.Context, cc *ConnectionContext) {
	cc.log.Debug(`connection opened`)
	if err := s.Hooks.OnOpen(ctx, cc); err != nil {
		cc.fail(fatalFromHook(err))
	}
	cc.armInitTimer(s.ConnectionInitTimeout)
	for {
		text, err := cc.Receive()
		if err != nil {
			if !errors.Is(err, ErrConnectionClosed) {
				cc.log.Warn(`receive failed`, `error`, err)
			}
			break
		}
		cc.tasks.spawn(ctx, func(ctx context.Context) { s.dispatch(ctx, cc, text) })
		cc.tasks.prune()
	}
	cc.stopInitTimer()
	s.Hooks.OnClose(ctx, cc)
	// no-op after BaseHooks.OnClose, catches hooks that do not unsubscribe
	cc.UnsubscribeAll(ctx)
	cc.tasks.cancelAll()
	cc.log.Debug(`connection closed`)
}

// dispatch handles one inbound message. A panic in a handler or hook is fatal
// to the connection.
func (s *Server) dispatch(ctx context.Context, cc *ConnectionContext, text string) {
	var err error
	defer func() {
		if err != nil {
			cc.log.Error(`message handler failed`, `error`, err)
			cc.fail(gqlwserror.NewFatalError(gqlwserror.InternalServerError, ``))
		}
	}()
	defer goutils.RecoverToErr(&err)
	s.onMessage(ctx, cc, text)
}

func (s *Server) onMessage(ctx context.Context, cc *ConnectionContext, text string) {
	msg, err := gqlwsmessage.Decode([]byte(text))
	if err != nil {
		cc.log.Debug(`received invalid message`, `error`, err)
		cc.send(gqlwsmessage.Error, nil, map[string]interface{}{`message`: err.Error()})
		return
	}
	switch msg.Type {
	case gqlwsmessage.ConnectionInit:
		s.onConnectionInit(ctx, cc, msg)
	case gqlwsmessage.Subscribe:
		s.onSubscribe(ctx, cc, msg)
	case gqlwsmessage.Complete:
		cc.Unsubscribe(ctx, *msg.ID)
	case gqlwsmessage.Ping:
		cc.send(gqlwsmessage.Pong, nil, s.Hooks.OnPing(ctx, cc, msg.Object()))
	case gqlwsmessage.Pong:
		s.Hooks.OnPong(ctx, cc, msg.Object())
	default:
		cc.log.Debug(`ignoring message`, `type`, msg.Type)
	}
}

func (s *Server) onConnectionInit(ctx context.Context, cc *ConnectionContext, msg *gqlwsmessage.Message) {
	if !atomic.CompareAndSwapInt32(&cc.state, stateUninitialized, stateInitializing) {
		cc.fail(gqlwserror.NewFatalError(gqlwserror.TooManyInitialisationRequests, ``))
		return
	}
	cc.setConnectionParams(msg.Object())
	payload, err := s.Hooks.OnConnect(ctx, cc, msg.Object())
	if err != nil {
		cc.log.Error(`onConnect hook failed`, `error`, err)
		cc.fail(fatalFromHook(err))
		return
	}
	cc.stopInitTimer()
	atomic.StoreInt32(&cc.state, stateAcknowledged)
	cc.send(gqlwsmessage.ConnectionAck, nil, payload)
	cc.log.Debug(`acknowledged connection`)
}

func (s *Server) onSubscribe(ctx context.Context, cc *ConnectionContext, msg *gqlwsmessage.Message) {
	id := *msg.ID
	log := cc.log.With(`operationId`, id)
	payload, err := msg.SubscribePayload()
	if err != nil {
		cc.send(gqlwsmessage.Error, msg.ID, gqlwserror.NewHandlableError(id, err).Errors)
		return
	}

	op := newOperation(ctx, id)
	defer op.cancel()
	if !cc.ops.add(op) {
		close(op.done)
		cc.fail(gqlwserror.NewFatalError(gqlwserror.SubscriberAlreadyExists, fmt.Sprintf(`Subscriber for %v already exists`, id)))
		return
	}
	released := false
	release := func() {
		if !released {
			released = true
			cc.ops.del(id, op)
			close(op.done)
		}
	}
	defer release()

	if err := s.Hooks.OnSubscribe(ctx, cc, id, payload); err != nil {
		if fe, ok := gqlwserror.IsFatalError(err); ok {
			cc.fail(fe)
			return
		}
		log.Debug(`onSubscribe hook rejected operation`, `error`, err)
		var he *gqlwserror.HandlableError
		if !errors.As(err, &he) {
			he = gqlwserror.NewHandlableError(id, err)
		}
		cc.send(gqlwsmessage.Error, msg.ID, he.Errors)
		return
	}

	req := &Request{ID: id, Payload: payload, ContextValue: cc.ContextValue, ConnectionParams: cc.ConnectionParams()}
	var res Response
	if payload.HasSubscriptionOperation() {
		res = s.Executor.Subscribe(op.ctx, req)
	} else {
		// queries and mutations are never cut short by the connection
		res = s.Executor.Execute(context.WithoutCancel(ctx), req)
	}

	if res.Stream == nil {
		release()
		cc.send(gqlwsmessage.Next, msg.ID, resultPayload(res.Result, false))
		return
	}

	log.Debug(`operation subscribed`)
	released = true
	s.stream(cc, op, res.Stream)
}

// stream forwards the results of a live operation until it is exhausted or
// unsubscribed. The complete message is sent only by the goroutine that
// removes op from the registry.
func (s *Server) stream(cc *ConnectionContext, op *operation, stream Stream) {
	id := op.id
	defer close(op.done)
	defer func() {
		if err := stream.Close(); err != nil {
			cc.log.Warn(`closing result stream failed`, `operationId`, id, `error`, err)
		}
		if cc.ops.del(id, op) {
			cc.send(gqlwsmessage.Complete, &id, nil)
			cc.hooks.OnOperationComplete(context.WithoutCancel(op.ctx), cc, id)
		}
		cc.log.Debug(`operation completed`, `operationId`, id)
	}()
	results := stream.Results()
	for {
		select {
		case <-op.ctx.Done():
			return
		case res, ok := <-results:
			if !ok || op.ctx.Err() != nil {
				return
			}
			cc.send(gqlwsmessage.Next, &id, resultPayload(res, true))
		}
	}
}

// resultPayload maps an execution result onto the payload of a next message.
func resultPayload(res *graphql.Result, hasNext bool) map[string]interface{} {
	payload := map[string]interface{}{}
	if res == nil {
		return payload
	}
	if hasData(res.Data) {
		payload[`data`] = res.Data
	}
	// results of a live stream always announce that more may follow
	if hasNext || hasData(res.Data) {
		payload[`hasNext`] = hasNext
	}
	if len(res.Errors) > 0 {
		payload[`errors`] = res.Errors
	}
	return payload
}

func hasData(data interface{}) bool {
	switch v := data.(type) {
	case nil:
		return false
	case map[string]interface{}:
		return len(v) > 0
	}
	return true
}

func fatalFromHook(err error) *gqlwserror.FatalError {
	if fe, ok := gqlwserror.IsFatalError(err); ok {
		return fe
	}
	return gqlwserror.NewFatalError(gqlwserror.InternalServerError, err.Error())
}
