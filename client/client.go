package gqlwsclient

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	goutils "github.com/onichandame/go-utils"
	gqlwsmessage "github.com/onichandame/gql-ws-server/message"
	gqlwsserver "github.com/onichandame/gql-ws-server/server"
)

var ErrClosed = errors.New(`client closed`)

type Client struct {
	*Config

	conn      *websocket.Conn
	writeLock sync.Mutex
	sm        *subMan
	ack       chan *gqlwsmessage.Message
	done      chan struct{}
	closeOnce sync.Once
	err       error
	log       *slog.Logger
}

// NewClient dials the server and waits for the connection to be
// acknowledged.
func NewClient(cfg *Config) (*Client, error) {
	if err := cfg.init(); err != nil {
		return nil, err
	}
	c := Client{
		Config: cfg,
		sm:     newSubMan(),
		ack:    make(chan *gqlwsmessage.Message, 1),
		done:   make(chan struct{}),
		log:    cfg.Logger.With(`url`, cfg.URL),
	}
	err := goutils.Try(func() {
		goutils.Retry(func() { c.dial() }, &goutils.RetryConfig{Attempts: uint(cfg.ReconnectAttempts) + 1})
	})
	if err == nil && c.conn == nil {
		err = errors.New(`failed to connect`)
	}
	if err != nil {
		return nil, err
	}
	go c.read()
	if err := c.handshake(); err != nil {
		c.shutdown(err)
		return nil, err
	}
	return &c, nil
}

// Close terminates the connection. Active subscriptions are dropped without
// further callbacks.
func (c *Client) Close() { c.shutdown(nil) }

func (c *Client) Wait() { <-c.done }

// Error returns the reason the connection terminated, nil while it is alive
// or when it was closed by Close.
func (c *Client) Error() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

func (c *Client) dial() {
	conn, _, err := websocket.DefaultDialer.Dial(c.URL, http.Header{"Sec-WebSocket-Protocol": []string{gqlwsserver.Subprotocol}})
	goutils.Assert(err)
	c.conn = conn
}

func (c *Client) handshake() error {
	if err := c.send(gqlwsmessage.ConnectionInit, nil, c.OnConnecting()); err != nil {
		return err
	}
	timer := time.NewTimer(c.ConnectionAckTimeout)
	defer timer.Stop()
	select {
	case ack := <-c.ack:
		c.OnConnected(ack)
		return nil
	case <-timer.C:
		return errors.New(`connection ack timeout`)
	case <-c.done:
		if c.err != nil {
			return c.err
		}
		return ErrClosed
	}
}

func (c *Client) send(t gqlwsmessage.Type, id *string, payload interface{}) error {
	data, err := gqlwsmessage.Encode(t, id, payload)
	if err != nil {
		return err
	}
	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) read() {
	var err error
	defer func() { c.shutdown(err) }()
	defer goutils.RecoverToErr(&err)
	for {
		_, data, e := c.conn.ReadMessage()
		if e != nil {
			err = e
			return
		}
		c.handle(data)
	}
}

func (c *Client) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.err = err
		c.writeLock.Lock()
		close(c.done)
		c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ``), time.Now().Add(c.GraceClosePeriod))
		c.writeLock.Unlock()
		time.AfterFunc(c.GraceClosePeriod, func() { c.conn.Close() })
		hdls := c.sm.drain()
		if err != nil {
			c.log.Debug(`connection terminated`, `error`, err)
			for _, hdl := range hdls {
				hdl.OnError(gqlerrors.FormatErrors(err))
			}
		}
	})
}

// Subscribe starts an operation and returns the function that stops it.
// Results are delivered in the order the server sent them.
func (c *Client) Subscribe(payload gqlwsmessage.SubscribePayload, handlers Handlers) (func(), error) {
	if handlers.OnComplete == nil {
		handlers.OnComplete = func() {}
	}
	if handlers.OnError == nil {
		handlers.OnError = func(fe gqlerrors.FormattedErrors) {}
	}
	if handlers.OnNext == nil {
		handlers.OnNext = func(r *graphql.Result) {}
	}
	id := uuid.NewString()
	if err := c.sm.set(id, &handlers); err != nil {
		return nil, err
	}
	if err := c.send(gqlwsmessage.Subscribe, &id, &payload); err != nil {
		c.sm.take(id)
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			// the server already completed it
			if c.sm.take(id) == nil {
				return
			}
			if err := c.send(gqlwsmessage.Complete, &id, nil); err != nil {
				c.log.Debug(`failed to send complete`, `operationId`, id, `error`, err)
			}
		})
	}, nil
}

func (c *Client) handle(data []byte) {
	msg, err := gqlwsmessage.Decode(data)
	if err != nil {
		c.log.Warn(`dropping invalid message`, `error`, err)
		return
	}
	switch msg.Type {
	case gqlwsmessage.ConnectionAck:
		select {
		case c.ack <- msg:
		default:
		}
	case gqlwsmessage.Ping:
		goutils.Assert(c.send(gqlwsmessage.Pong, nil, c.OnPing(msg)))
	case gqlwsmessage.Pong:
		c.OnPong(msg)
	case gqlwsmessage.Next:
		hdl := c.sm.get(*msg.ID)
		if hdl == nil {
			c.log.Debug(`result for unknown operation`, `operationId`, *msg.ID)
			return
		}
		var payload graphql.Result
		if err := goutils.Try(func() { goutils.UnmarshalJSONFromMap(msg.Object(), &payload) }); err != nil {
			c.log.Warn(`payload of next message invalid`, `operationId`, *msg.ID, `error`, err)
			return
		}
		hdl.OnNext(&payload)
		// queries and mutations answer with a single result and no complete
		if hasNext, _ := msg.Object()[`hasNext`].(bool); !hasNext {
			if c.sm.take(*msg.ID) != nil {
				hdl.OnComplete()
			}
		}
	case gqlwsmessage.Error:
		hdl := c.sm.take(*msg.ID)
		if hdl == nil {
			return
		}
		hdl.OnError(formattedErrors(msg.Payload))
	case gqlwsmessage.Complete:
		if hdl := c.sm.take(*msg.ID); hdl != nil {
			hdl.OnComplete()
		}
	default:
		c.log.Warn(`unexpected message`, `type`, msg.Type)
	}
}

func formattedErrors(payload interface{}) gqlerrors.FormattedErrors {
	errs := gqlerrors.FormattedErrors{}
	raw, err := json.Marshal(payload)
	if err == nil {
		err = json.Unmarshal(raw, &errs)
	}
	if err != nil {
		return gqlerrors.FormatErrors(err)
	}
	return errs
}
