package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goutils "github.com/onichandame/go-utils"
	gqlwsexecutor "github.com/onichandame/gql-ws-server/executor"
	"github.com/onichandame/gql-ws-server/pubsub"
	gqlwsserver "github.com/onichandame/gql-ws-server/server"
	"github.com/redis/go-redis/v9"
)

type hooks struct {
	gqlwsserver.BaseHooks
}

func (hooks) OnConnect(ctx context.Context, cc *gqlwsserver.ConnectionContext, payload map[string]interface{}) (map[string]interface{}, error) {
	cc.Logger().Info(`client connected`, `params`, payload)
	return nil, nil
}

func (hooks) OnOperationComplete(ctx context.Context, cc *gqlwsserver.ConnectionContext, id string) {
	cc.Logger().Info(`subscription finished`, `operationId`, id)
}

func main() {
	cfg, err := loadConfig()
	goutils.Assert(err)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.level()}))

	var broker pubsub.Broker
	if cfg.Broker == `redis` {
		broker = pubsub.NewRedis(pubsub.RedisConfig{Client: redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})})
	} else {
		broker = pubsub.NewMemory()
	}
	defer broker.Close()

	schema, err := newSchema(broker, cfg.TickInterval)
	goutils.Assert(err)
	srv := gqlwsserver.NewServer(&gqlwsserver.Config{
		Executor:              gqlwsexecutor.New(&gqlwsexecutor.Config{Schema: &schema}),
		Hooks:                 hooks{},
		Logger:                logger,
		ConnectionInitTimeout: cfg.InitTimeout,
		GraceClosePeriod:      cfg.GracePeriod,
		WriteTimeout:          cfg.WriteTimeout,
	})

	eng := gin.New()
	eng.Use(gin.Recovery())
	eng.GET(cfg.Path, srv.GinHandler())
	eng.GET(`/healthz`, func(c *gin.Context) { c.String(http.StatusOK, `ok`) })

	httpSrv := &http.Server{Addr: cfg.ListenAddr, Handler: eng}
	go func() {
		logger.Info(`listening`, `addr`, cfg.ListenAddr, `path`, cfg.Path, `broker`, cfg.Broker)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(`server stopped`, `error`, err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracePeriod+time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn(`shutdown`, `error`, err)
	}
}
