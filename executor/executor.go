// Package gqlwsexecutor runs operations of a graphql-transport-ws server on
// graphql-go.
package gqlwsexecutor

import (
	"context"
	"errors"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/graphql-go/graphql/language/source"
	gqlwsserver "github.com/onichandame/gql-ws-server/server"
)

type Config struct {
	Schema *graphql.Schema
	// RootObjectFunc builds the root value of an operation. The operation kind
	// (query, mutation or subscription) is passed along.
	RootObjectFunc func(ctx context.Context, kind string, req *gqlwsserver.Request) map[string]interface{}
}

func (c *Config) init() {
	if c.Schema == nil {
		panic(errors.New(`graphql schema must be present`))
	}
	if c.RootObjectFunc == nil {
		c.RootObjectFunc = func(context.Context, string, *gqlwsserver.Request) map[string]interface{} { return nil }
	}
}

// Executor implements gqlwsserver.Executor.
type Executor struct {
	*Config
}

func New(cfg *Config) *Executor {
	var e Executor
	cfg.init()
	e.Config = cfg
	return &e
}

func (e *Executor) Execute(ctx context.Context, req *gqlwsserver.Request) gqlwsserver.Response {
	return gqlwsserver.Response{Result: graphql.Do(e.params(ctx, req, kindOf(req)))}
}

// Subscribe validates the document up front so that request errors come back
// as a single result instead of a stream.
func (e *Executor) Subscribe(ctx context.Context, req *gqlwsserver.Request) gqlwsserver.Response {
	doc := req.Payload.Document
	if doc == nil {
		var err error
		if doc, err = parse(req.Payload.Query); err != nil {
			return gqlwsserver.Response{Result: &graphql.Result{Errors: gqlerrors.FormatErrors(err)}}
		}
	}
	if vr := graphql.ValidateDocument(e.Schema, doc, nil); !vr.IsValid {
		return gqlwsserver.Response{Result: &graphql.Result{Errors: vr.Errors}}
	}
	ctx, cancel := context.WithCancel(ctx)
	results := graphql.Subscribe(e.params(ctx, req, ast.OperationTypeSubscription))
	return gqlwsserver.Response{Stream: gqlwsserver.NewStream(results, cancel)}
}

func (e *Executor) params(ctx context.Context, req *gqlwsserver.Request, kind string) graphql.Params {
	ctx = withRequest(ctx, req)
	return graphql.Params{
		Schema:         *e.Schema,
		RequestString:  req.Payload.Query,
		VariableValues: req.Payload.Variables,
		OperationName:  req.Payload.OperationName,
		RootObject:     e.RootObjectFunc(ctx, kind, req),
		Context:        ctx,
	}
}

func kindOf(req *gqlwsserver.Request) string {
	if op := req.Payload.Operation(); op != nil {
		return op.Operation
	}
	return ast.OperationTypeQuery
}

func parse(query string) (*ast.Document, error) {
	return parser.Parse(parser.ParseParams{
		Source: source.NewSource(&source.Source{
			Body: []byte(query),
			Name: `GraphQL request`,
		}),
	})
}
