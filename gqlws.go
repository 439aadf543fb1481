// Package gqlws serves a graphql-go schema over the graphql-transport-ws
// protocol. It wires the server, executor and gorilla binding together; use
// those packages directly for anything it does not cover.
package gqlws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/graphql-go/graphql"
	gqlwsexecutor "github.com/onichandame/gql-ws-server/executor"
	gqlwsserver "github.com/onichandame/gql-ws-server/server"
)

// Options mirror gqlwsserver.Config. A nil CheckOrigin accepts every origin.
type Options struct {
	Hooks                 gqlwsserver.Hooks
	Logger                *slog.Logger
	GraceClosePeriod      time.Duration
	ConnectionInitTimeout time.Duration
	WriteTimeout          time.Duration
	CheckOrigin           func(*http.Request) bool
	ContextValueFunc      func(*http.Request) interface{}
	RootObjectFunc        func(ctx context.Context, kind string, req *gqlwsserver.Request) map[string]interface{}
}

func New(schema *graphql.Schema, opts *Options) *gqlwsserver.Server {
	if opts == nil {
		opts = &Options{}
	}
	return gqlwsserver.NewServer(&gqlwsserver.Config{
		Executor: gqlwsexecutor.New(&gqlwsexecutor.Config{
			Schema:         schema,
			RootObjectFunc: opts.RootObjectFunc,
		}),
		Hooks:                 opts.Hooks,
		Logger:                opts.Logger,
		GraceClosePeriod:      opts.GraceClosePeriod,
		ConnectionInitTimeout: opts.ConnectionInitTimeout,
		WriteTimeout:          opts.WriteTimeout,
		CheckOrigin:           opts.CheckOrigin,
		ContextValueFunc:      opts.ContextValueFunc,
	})
}

// GetConnectionParams returns the connection_init payload inside a resolver.
func GetConnectionParams(ctx context.Context) map[string]interface{} {
	return gqlwsexecutor.ConnectionParams(ctx)
}

// GetContextValue returns the value ContextValueFunc built for the
// connection inside a resolver.
func GetContextValue(ctx context.Context) interface{} {
	return gqlwsexecutor.ContextValue(ctx)
}
