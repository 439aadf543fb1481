package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	goutils "github.com/onichandame/go-utils"
	gqlwsclient "github.com/onichandame/gql-ws-server/client"
	gqlwsmessage "github.com/onichandame/gql-ws-server/message"
)

func main() {
	url := flag.String(`url`, `ws://localhost:8080/graphql`, `websocket endpoint`)
	query := flag.String(`query`, `subscription{timestamp}`, `operation to run`)
	name := flag.String(`name`, `anonymous`, `sent as connection param`)
	flag.Parse()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	client, err := gqlwsclient.NewClient(&gqlwsclient.Config{
		URL:               *url,
		ReconnectAttempts: 3,
		Logger:            logger,
		OnConnecting:      func() map[string]interface{} { return map[string]interface{}{`name`: *name} },
	})
	goutils.Assert(err)
	defer client.Close()

	done := make(chan struct{})
	unsubscribe, err := client.Subscribe(gqlwsmessage.SubscribePayload{Query: *query}, gqlwsclient.Handlers{
		OnNext: func(r *graphql.Result) {
			if len(r.Errors) > 0 {
				logger.Error(`operation failed`, `errors`, r.Errors)
				return
			}
			fmt.Println(r.Data)
		},
		OnError: func(fe gqlerrors.FormattedErrors) {
			logger.Error(`operation rejected`, `errors`, fe)
			close(done)
		},
		OnComplete: func() { close(done) },
	})
	goutils.Assert(err)
	defer unsubscribe()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	select {
	case <-done:
	case <-interrupt:
	case <-waitClient(client):
		logger.Error(`connection lost`, `error`, client.Error())
	}
}

func waitClient(c *gqlwsclient.Client) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		c.Wait()
		close(ch)
	}()
	return ch
}
