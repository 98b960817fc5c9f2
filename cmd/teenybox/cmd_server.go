package main

import (
	"context"
	"errors"
	"net"

	"github.com/teeny-box/teenybox-server/internal/config"
	"github.com/teeny-box/teenybox-server/internal/server"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var serverCommand = &cobra.Command{
	Use:   "server",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serverCommandImpl()
	},
}

func newHTTPServer(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.Config,
	logger *zap.Logger,
	rdb *redis.Client,
	store *storage,
	posts *postService,
	promotions *promotionService,
) *server.Server {
	s := server.NewServer(cfg, rdb, store.ping, posts, promotions)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := s.Start(); err != nil && !errors.Is(err, net.ErrClosed) {
					logger.Error("http server stopped", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: s.Shutdown,
	})
	return s
}

func serverCommandImpl() error {
	application := fx.New(
		baseOptions(),
		fx.Provide(
			newRedis,
			newUserRepository,
			newCleaner,
			newPostService,
			newPromotionService,
			newHTTPServer,
		),
		fx.Invoke(
			startTracing,
			func(*server.Server) {},
		),
	)
	application.Run()

	return application.Err()
}

func init() {
	rootCommand.AddCommand(serverCommand)
}
