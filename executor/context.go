package gqlwsexecutor

import (
	"context"

	gqlwsserver "github.com/onichandame/gql-ws-server/server"
)

var requestKey = &struct{}{}

func withRequest(ctx context.Context, req *gqlwsserver.Request) context.Context {
	return context.WithValue(ctx, requestKey, req)
}

func request(ctx context.Context) *gqlwsserver.Request {
	req, _ := ctx.Value(requestKey).(*gqlwsserver.Request)
	return req
}

// ContextValue returns the value the connection was handled with.
func ContextValue(ctx context.Context) interface{} {
	if req := request(ctx); req != nil {
		return req.ContextValue
	}
	return nil
}

// ConnectionParams returns the payload of the connection_init message.
func ConnectionParams(ctx context.Context) map[string]interface{} {
	if req := request(ctx); req != nil {
		return req.ConnectionParams
	}
	return nil
}

// OperationID returns the client chosen id of the running operation.
func OperationID(ctx context.Context) string {
	if req := request(ctx); req != nil {
		return req.ID
	}
	return ``
}
