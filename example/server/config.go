package main

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config of the example server, read from the environment.
type Config struct {
	ListenAddr   string        `env:"LISTEN_ADDR,default=0.0.0.0:8080"`
	Path         string        `env:"GRAPHQL_PATH,default=/graphql"`
	InitTimeout  time.Duration `env:"INIT_TIMEOUT,default=30s"`
	GracePeriod  time.Duration `env:"GRACE_PERIOD,default=5s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	TickInterval time.Duration `env:"TICK_INTERVAL,default=1s"`
	// Broker is either memory or redis
	Broker    string `env:"BROKER,default=memory"`
	RedisAddr string `env:"REDIS_ADDR,default=localhost:6379"`
	LogLevel  string `env:"LOG_LEVEL,default=info"`
}

func loadConfig() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, err
	}
	switch cfg.Broker {
	case `memory`, `redis`:
	default:
		return nil, errors.New(`BROKER must be memory or redis`)
	}
	return &cfg, nil
}

func (c *Config) level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case `debug`:
		return slog.LevelDebug
	case `warn`:
		return slog.LevelWarn
	case `error`:
		return slog.LevelError
	}
	return slog.LevelInfo
}
