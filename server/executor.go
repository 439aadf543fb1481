package gqlwsserver

import (
	"context"
	"sync"

	"github.com/graphql-go/graphql"
	gqlwsmessage "github.com/onichandame/gql-ws-server/message"
)

// Request is everything the execution engine needs to run one operation.
type Request struct {
	// ID is the client chosen operation id.
	ID      string
	Payload *gqlwsmessage.SubscribePayload
	// ContextValue is forwarded untouched from Server.Handle.
	ContextValue interface{}
	// ConnectionParams is the payload of the connection_init message.
	ConnectionParams map[string]interface{}
}

// Response holds either a single result or a live stream of results. Stream
// takes precedence when both are set.
type Response struct {
	Result *graphql.Result
	Stream Stream
}

// Stream is a possibly infinite sequence of results. Close releases the
// resources the engine holds for it and may be called more than once.
type Stream interface {
	Results() <-chan *graphql.Result
	Close() error
}

// Executor runs GraphQL operations.
//
// Execute is used for queries and mutations and is never cancelled by the
// connection. Subscribe is used for subscriptions and receives a context that
// is cancelled when the operation is unsubscribed.
type Executor interface {
	Execute(ctx context.Context, req *Request) Response
	Subscribe(ctx context.Context, req *Request) Response
}

type chanStream struct {
	results <-chan *graphql.Result
	cancel  func()
	once    sync.Once
}

// NewStream adapts a result channel into a Stream. cancel is invoked on Close,
// after which the channel is drained so that a producer blocked on a send can
// observe the cancellation and exit.
func NewStream(results <-chan *graphql.Result, cancel func()) Stream {
	return &chanStream{results: results, cancel: cancel}
}

func (s *chanStream) Results() <-chan *graphql.Result { return s.results }

func (s *chanStream) Close() error {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		go func() {
			for range s.results {
			}
		}()
	})
	return nil
}
