package gqlwsserver_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/graphql-go/graphql"
	goutils "github.com/onichandame/go-utils"
	gqlwserror "github.com/onichandame/gql-ws-server/error"
	gqlwsexecutor "github.com/onichandame/gql-ws-server/executor"
	gqlwsmessage "github.com/onichandame/gql-ws-server/message"
	gqlwsserver "github.com/onichandame/gql-ws-server/server"
	"github.com/stretchr/testify/assert"
)

func TestSocket(t *testing.T) {
	ConnectionInitTimeout := time.Millisecond * 500
	GraceClosePeriod := time.Millisecond * 500
	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name: `Query`,
			Fields: graphql.Fields{
				"q": &graphql.Field{
					Type: graphql.NewNonNull(graphql.String),
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						return "hi", nil
					},
				},
			},
		}),
		Subscription: graphql.NewObject(graphql.ObjectConfig{
			Name: `Subscription`,
			Fields: graphql.Fields{
				"s": &graphql.Field{
					Type: graphql.NewNonNull(graphql.String),
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						return p.Source, nil
					},
					Subscribe: func(p graphql.ResolveParams) (interface{}, error) {
						c := make(chan interface{})
						go func() {
							defer close(c)
							ticker := time.NewTicker(time.Millisecond)
							defer ticker.Stop()
							for {
								select {
								case <-p.Context.Done():
									return
								case <-ticker.C:
									select {
									case c <- `hi`:
									case <-p.Context.Done():
										return
									}
								}
							}
						}()
						return c, nil
					},
				},
			},
		}),
	})
	assert.Nil(t, err)
	srv := gqlwsserver.NewServer(&gqlwsserver.Config{
		Executor:              gqlwsexecutor.New(&gqlwsexecutor.Config{Schema: &schema}),
		ConnectionInitTimeout: ConnectionInitTimeout,
		GraceClosePeriod:      GraceClosePeriod,
	})
	gin.SetMode(gin.TestMode)
	eng := gin.New()
	eng.GET("", srv.GinHandler())
	server := httptest.NewServer(eng)
	defer server.Close()
	uri, err := url.Parse(server.URL)
	assert.Nil(t, err)
	uri.Scheme = `ws`
	getClient := func() *websocket.Conn {
		conn, _, err := websocket.DefaultDialer.Dial(uri.String(), http.Header{"Sec-WebSocket-Protocol": []string{gqlwsserver.Subprotocol}})
		assert.Nil(t, err)
		return conn
	}
	closeClient := func(conn *websocket.Conn) {
		conn.WriteControl(websocket.CloseMessage, []byte(``), time.Now().Add(time.Second))
		conn.Close()
	}
	getMessage := func(conn *websocket.Conn) *gqlwsmessage.Message {
		var msg gqlwsmessage.Message
		conn.SetReadDeadline(time.Now().Add(time.Second * 5))
		assert.Nil(t, conn.ReadJSON(&msg))
		return &msg
	}
	initClient := func(conn *websocket.Conn) {
		assert.Nil(t, conn.WriteJSON(&gqlwsmessage.Message{Type: gqlwsmessage.ConnectionInit}))
		msg := getMessage(conn)
		assert.Equal(t, gqlwsmessage.ConnectionAck, msg.Type)
	}
	getResult := func(msg *gqlwsmessage.Message) *graphql.Result {
		assert.Equal(t, gqlwsmessage.Next, msg.Type)
		payload, ok := msg.Payload.(map[string]interface{})
		assert.True(t, ok)
		var p graphql.Result
		goutils.UnmarshalJSONFromMap(payload, &p)
		return &p
	}
	closeCode := func(conn *websocket.Conn) int {
		conn.SetReadDeadline(time.Now().Add(time.Second * 5))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if e, ok := err.(*websocket.CloseError); ok {
					return e.Code
				}
				t.Fatalf(`unexpected read error %v`, err)
			}
		}
	}
	t.Run("ConnectionInit", func(t *testing.T) {
		t.Run("can init", func(t *testing.T) {
			client := getClient()
			defer client.Close()
			initClient(client)
		})
		t.Run("closes after timeout", func(t *testing.T) {
			client := getClient()
			defer closeClient(client)
			time.Sleep(ConnectionInitTimeout * 2)
			_, _, err := client.ReadMessage()
			assert.NotNil(t, err)
			assert.IsType(t, new(websocket.CloseError), err)
			e := err.(*websocket.CloseError)
			assert.Equal(t, int(gqlwserror.ConnectionInitialisationTimeout), e.Code)
		})
		t.Run("rejects other subprotocols", func(t *testing.T) {
			conn, _, err := websocket.DefaultDialer.Dial(uri.String(), nil)
			assert.Nil(t, err)
			defer conn.Close()
			assert.Equal(t, int(gqlwserror.SubprotocolNotAcceptable), closeCode(conn))
		})
	})
	t.Run("can ping", func(t *testing.T) {
		client := getClient()
		defer closeClient(client)
		assert.Nil(t, client.WriteJSON(&gqlwsmessage.Message{Type: gqlwsmessage.Ping}))
		msg := getMessage(client)
		assert.Equal(t, gqlwsmessage.Pong, msg.Type)
		assert.Nil(t, msg.ID)
	})
	t.Run("can query", func(t *testing.T) {
		client := getClient()
		defer closeClient(client)
		initClient(client)
		id := uuid.NewString()
		assert.Nil(t, client.WriteJSON(&gqlwsmessage.Message{Type: gqlwsmessage.Subscribe, ID: &id, Payload: &gqlwsmessage.SubscribePayload{Query: `query{q}`}}))
		msg := getMessage(client)
		assert.Equal(t, id, *msg.ID)
		result := getResult(msg)
		assert.NotNil(t, result)
		assert.Equal(t, `hi`, result.Data.(map[string]interface{})["q"])
		assert.Equal(t, false, msg.Payload.(map[string]interface{})["hasNext"])
		// a single result is not followed by complete
		assert.Nil(t, client.WriteJSON(&gqlwsmessage.Message{Type: gqlwsmessage.Ping}))
		assert.Equal(t, gqlwsmessage.Pong, getMessage(client).Type)
	})
	t.Run("can subscription", func(t *testing.T) {
		client := getClient()
		defer closeClient(client)
		initClient(client)
		id := uuid.NewString()
		assert.Nil(t, client.WriteJSON(&gqlwsmessage.Message{Type: gqlwsmessage.Subscribe, ID: &id, Payload: &gqlwsmessage.SubscribePayload{Query: `subscription{s}`}}))
		attempts := 10
		for i := 0; i < attempts; i++ {
			msg := getMessage(client)
			assert.Equal(t, id, *msg.ID)
			result := getResult(msg)
			assert.NotNil(t, result)
			assert.Equal(t, `hi`, result.Data.(map[string]interface{})["s"])
			assert.Equal(t, true, msg.Payload.(map[string]interface{})["hasNext"])
		}
		assert.Nil(t, client.WriteJSON(&gqlwsmessage.Message{Type: gqlwsmessage.Complete, ID: &id}))
		completes := 0
		for completes == 0 {
			msg := getMessage(client)
			assert.Equal(t, id, *msg.ID)
			if msg.Type == gqlwsmessage.Complete {
				completes++
			}
		}
		assert.Nil(t, client.WriteJSON(&gqlwsmessage.Message{Type: gqlwsmessage.Ping}))
		assert.Equal(t, gqlwsmessage.Pong, getMessage(client).Type)
	})
	t.Run("duplicate subscriber closes the connection", func(t *testing.T) {
		client := getClient()
		defer client.Close()
		initClient(client)
		id := uuid.NewString()
		for i := 0; i < 2; i++ {
			assert.Nil(t, client.WriteJSON(&gqlwsmessage.Message{Type: gqlwsmessage.Subscribe, ID: &id, Payload: &gqlwsmessage.SubscribePayload{Query: `subscription{s}`}}))
		}
		assert.Equal(t, int(gqlwserror.SubscriberAlreadyExists), closeCode(client))
	})
	t.Run("invalid message keeps the connection", func(t *testing.T) {
		client := getClient()
		defer closeClient(client)
		assert.Nil(t, client.WriteMessage(websocket.TextMessage, []byte(`not json`)))
		msg := getMessage(client)
		assert.Equal(t, gqlwsmessage.Error, msg.Type)
		assert.Nil(t, msg.ID)
		initClient(client)
	})
}
