package gqlws_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/graphql-go/graphql"
	gqlws "github.com/onichandame/gql-ws-server"
	gqlwsmessage "github.com/onichandame/gql-ws-server/message"
	gqlwsserver "github.com/onichandame/gql-ws-server/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name: `Query`,
			Fields: graphql.Fields{
				"user": &graphql.Field{
					Type: graphql.String,
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						return gqlws.GetConnectionParams(p.Context)["user"], nil
					},
				},
				"agent": &graphql.Field{
					Type: graphql.String,
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						return gqlws.GetContextValue(p.Context), nil
					},
				},
			},
		}),
	})
	require.Nil(t, err)
	srv := gqlws.New(&schema, &gqlws.Options{
		ContextValueFunc: func(r *http.Request) interface{} { return r.Header.Get(`User-Agent`) },
	})
	server := httptest.NewServer(srv)
	defer server.Close()
	uri, err := url.Parse(server.URL)
	require.Nil(t, err)
	uri.Scheme = `ws`

	conn, _, err := websocket.DefaultDialer.Dial(uri.String(), http.Header{
		"Sec-WebSocket-Protocol": []string{gqlwsserver.Subprotocol},
		"User-Agent":             []string{`tester`},
	})
	require.Nil(t, err)
	defer conn.Close()
	read := func() *gqlwsmessage.Message {
		var msg gqlwsmessage.Message
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		require.Nil(t, conn.ReadJSON(&msg))
		return &msg
	}

	require.Nil(t, conn.WriteJSON(&gqlwsmessage.Message{Type: gqlwsmessage.ConnectionInit, Payload: map[string]interface{}{`user`: `bob`}}))
	assert.Equal(t, gqlwsmessage.ConnectionAck, read().Type)

	id := uuid.NewString()
	require.Nil(t, conn.WriteJSON(&gqlwsmessage.Message{Type: gqlwsmessage.Subscribe, ID: &id, Payload: &gqlwsmessage.SubscribePayload{Query: `{user agent}`}}))
	msg := read()
	assert.Equal(t, gqlwsmessage.Next, msg.Type)
	assert.Equal(t, id, *msg.ID)
	assert.Equal(t, map[string]interface{}{`user`: `bob`, `agent`: `tester`}, msg.Object()[`data`])
}

func TestCheckOrigin(t *testing.T) {
	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name: `Query`,
			Fields: graphql.Fields{
				"q": &graphql.Field{
					Type: graphql.String,
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						return `hi`, nil
					},
				},
			},
		}),
	})
	require.Nil(t, err)
	srv := gqlws.New(&schema, &gqlws.Options{
		CheckOrigin:  func(r *http.Request) bool { return r.Header.Get(`Origin`) == `http://trusted.example` },
		WriteTimeout: time.Second,
	})
	server := httptest.NewServer(srv)
	defer server.Close()
	uri, err := url.Parse(server.URL)
	require.Nil(t, err)
	uri.Scheme = `ws`
	dial := func(origin string) (*websocket.Conn, *http.Response, error) {
		return websocket.DefaultDialer.Dial(uri.String(), http.Header{
			"Sec-WebSocket-Protocol": []string{gqlwsserver.Subprotocol},
			"Origin":                 []string{origin},
		})
	}

	_, resp, err := dial(`http://evil.example`)
	assert.ErrorIs(t, err, websocket.ErrBadHandshake)
	if assert.NotNil(t, resp) {
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	}

	conn, _, err := dial(`http://trusted.example`)
	require.Nil(t, err)
	defer conn.Close()
	require.Nil(t, conn.WriteJSON(&gqlwsmessage.Message{Type: gqlwsmessage.Ping}))
	var msg gqlwsmessage.Message
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.Nil(t, conn.ReadJSON(&msg))
	assert.Equal(t, gqlwsmessage.Pong, msg.Type)
}
