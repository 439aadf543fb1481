package gqlwsclient

import (
	"errors"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	gqlwsmessage "github.com/onichandame/gql-ws-server/message"
)

type Config struct {
	URL                  string
	ConnectionAckTimeout time.Duration
	GraceClosePeriod     time.Duration
	// maximum retry attempts before a connection is established
	ReconnectAttempts uint32
	// OnConnecting called on connection init
	// returns the payload to send in the init request
	OnConnecting        func() map[string]interface{}
	OnPing              func(*gqlwsmessage.Message) map[string]interface{}
	OnPong, OnConnected func(*gqlwsmessage.Message)
	Logger              *slog.Logger
}

func (c *Config) init() error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(u.Scheme, "ws") {
		return errors.New(`gql-ws must be configured to a websocket endpoint`)
	}
	if c.ConnectionAckTimeout <= 0 {
		c.ConnectionAckTimeout = time.Second * 30
	}
	if c.GraceClosePeriod <= 0 {
		c.GraceClosePeriod = time.Second * 5
	}
	if c.OnConnecting == nil {
		c.OnConnecting = func() map[string]interface{} { return nil }
	}
	if c.OnConnected == nil {
		c.OnConnected = func(m *gqlwsmessage.Message) {}
	}
	if c.OnPing == nil {
		c.OnPing = func(m *gqlwsmessage.Message) map[string]interface{} { return nil }
	}
	if c.OnPong == nil {
		c.OnPong = func(m *gqlwsmessage.Message) {}
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return nil
}
