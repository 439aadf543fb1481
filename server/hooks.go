package gqlwsserver

import (
	"context"

	gqlwsmessage "github.com/onichandame/gql-ws-server/message"
)

// Hooks are the extension points of the protocol state machine. Embed
// BaseHooks and override the methods you need.
type Hooks interface {
	// OnOpen is called once the connection is accepted, before any message is
	// read. An error closes the connection.
	OnOpen(ctx context.Context, cc *ConnectionContext) error
	// OnConnect is called for connection_init. The returned payload is sent with
	// the ack. An error rejects the handshake and closes the connection; a
	// *gqlwserror.FatalError chooses the close code.
	OnConnect(ctx context.Context, cc *ConnectionContext, payload map[string]interface{}) (map[string]interface{}, error)
	// OnSubscribe may reject an operation before it is executed. The error is
	// sent to the client as an error message for the operation.
	OnSubscribe(ctx context.Context, cc *ConnectionContext, id string, payload *gqlwsmessage.SubscribePayload) error
	// OnPing returns the payload of the pong reply.
	OnPing(ctx context.Context, cc *ConnectionContext, payload map[string]interface{}) map[string]interface{}
	OnPong(ctx context.Context, cc *ConnectionContext, payload map[string]interface{})
	// OnOperationComplete is called once for every streamed operation after it
	// has been removed.
	OnOperationComplete(ctx context.Context, cc *ConnectionContext, id string)
	// OnClose is called after the transport closed. Operations still
	// registered when it returns are unsubscribed by the server.
	OnClose(ctx context.Context, cc *ConnectionContext)
}

// BaseHooks implements Hooks with the default behavior.
type BaseHooks struct{}

func (BaseHooks) OnOpen(ctx context.Context, cc *ConnectionContext) error { return nil }

func (BaseHooks) OnConnect(ctx context.Context, cc *ConnectionContext, payload map[string]interface{}) (map[string]interface{}, error) {
	return nil, nil
}

func (BaseHooks) OnSubscribe(ctx context.Context, cc *ConnectionContext, id string, payload *gqlwsmessage.SubscribePayload) error {
	return nil
}

func (BaseHooks) OnPing(ctx context.Context, cc *ConnectionContext, payload map[string]interface{}) map[string]interface{} {
	return nil
}

func (BaseHooks) OnPong(ctx context.Context, cc *ConnectionContext, payload map[string]interface{}) {}

func (BaseHooks) OnOperationComplete(ctx context.Context, cc *ConnectionContext, id string) {}

func (BaseHooks) OnClose(ctx context.Context, cc *ConnectionContext) {
	cc.UnsubscribeAll(ctx)
}
