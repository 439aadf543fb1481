package main

import (
	"context"
	"time"

	"github.com/graphql-go/graphql"
	gqlwsexecutor "github.com/onichandame/gql-ws-server/executor"
	"github.com/onichandame/gql-ws-server/pubsub"
)

func newSchema(broker pubsub.Broker, tick time.Duration) (graphql.Schema, error) {
	source := func(p graphql.ResolveParams) (interface{}, error) { return p.Source, nil }
	return graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name: `Query`,
			Fields: graphql.Fields{
				"ping": &graphql.Field{
					Type: graphql.NewNonNull(graphql.String),
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						return `pong`, nil
					},
				},
				"echo": &graphql.Field{
					Type: graphql.NewNonNull(graphql.String),
					Args: graphql.FieldConfigArgument{
						"input": &graphql.ArgumentConfig{
							Type: graphql.NewNonNull(graphql.String),
						},
					},
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						return p.Args["input"], nil
					},
				},
				"viewer": &graphql.Field{
					Type: graphql.String,
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						return gqlwsexecutor.ConnectionParams(p.Context)["name"], nil
					},
				},
			},
		}),
		Mutation: graphql.NewObject(graphql.ObjectConfig{
			Name: `Mutation`,
			Fields: graphql.Fields{
				"publish": &graphql.Field{
					Type: graphql.NewNonNull(graphql.Boolean),
					Args: graphql.FieldConfigArgument{
						"topic":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
						"message": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					},
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						ctx, cancel := context.WithTimeout(p.Context, 5*time.Second)
						defer cancel()
						if err := broker.Publish(ctx, p.Args["topic"].(string), []byte(p.Args["message"].(string))); err != nil {
							return nil, err
						}
						return true, nil
					},
				},
			},
		}),
		Subscription: graphql.NewObject(graphql.ObjectConfig{
			Name: `Subscription`,
			Fields: graphql.Fields{
				"messages": &graphql.Field{
					Type: graphql.NewNonNull(graphql.String),
					Args: graphql.FieldConfigArgument{
						"topic": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					},
					Resolve: source,
					Subscribe: func(p graphql.ResolveParams) (interface{}, error) {
						events, stop, err := broker.Subscribe(p.Context, p.Args["topic"].(string))
						if err != nil {
							return nil, err
						}
						res := make(chan interface{})
						go func() {
							defer close(res)
							defer stop()
							for ev := range events {
								select {
								case res <- string(ev):
								case <-p.Context.Done():
									return
								}
							}
						}()
						return res, nil
					},
				},
				"timestamp": &graphql.Field{
					Type:    graphql.NewNonNull(graphql.DateTime),
					Resolve: source,
					Subscribe: func(p graphql.ResolveParams) (interface{}, error) {
						res := make(chan interface{})
						go func() {
							defer close(res)
							ticker := time.NewTicker(tick)
							defer ticker.Stop()
							for {
								select {
								case t := <-ticker.C:
									select {
									case res <- t:
									case <-p.Context.Done():
										return
									}
								case <-p.Context.Done():
									return
								}
							}
						}()
						return res, nil
					},
				},
			},
		}),
	})
}
