package gqlwsserver

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"
)

type Config struct {
	Executor Executor
	Hooks    Hooks
	Logger   *slog.Logger

	// GraceClosePeriod is how long a closing socket waits for the peer to
	// acknowledge the close frame before the TCP connection is dropped.
	GraceClosePeriod time.Duration
	// ConnectionInitTimeout closes connections that are not acknowledged in
	// time. Zero selects the default, a negative value disables the timer.
	ConnectionInitTimeout time.Duration
	// WriteTimeout bounds every write to the socket.
	WriteTimeout time.Duration

	// ContextValueFunc builds the context value of connections accepted by
	// ServeHTTP. The request itself is used when it is nil.
	ContextValueFunc func(*http.Request) interface{}
	// CheckOrigin is handed to the websocket upgrader. Every origin is
	// accepted when it is nil.
	CheckOrigin func(*http.Request) bool
}

var defaultConfig = Config{
	GraceClosePeriod:      time.Second * 5,
	ConnectionInitTimeout: time.Second * 30,
	WriteTimeout:          time.Second * 10,
}

func (c *Config) init() {
	if c.Executor == nil {
		panic(errors.New(`gql-ws server requires an executor`))
	}
	if c.Hooks == nil {
		c.Hooks = BaseHooks{}
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.GraceClosePeriod <= 0 {
		c.GraceClosePeriod = defaultConfig.GraceClosePeriod
	}
	if c.ConnectionInitTimeout == 0 {
		c.ConnectionInitTimeout = defaultConfig.ConnectionInitTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultConfig.WriteTimeout
	}
	if c.ContextValueFunc == nil {
		c.ContextValueFunc = func(r *http.Request) interface{} { return r }
	}
	if c.CheckOrigin == nil {
		c.CheckOrigin = func(r *http.Request) bool { return true }
	}
}
