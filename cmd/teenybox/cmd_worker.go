package main

import (
	"context"
	"errors"

	"github.com/teeny-box/teenybox-server/internal/config"
	"github.com/teeny-box/teenybox-server/internal/event"
	"github.com/teeny-box/teenybox-server/internal/worker"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var workerCommand = &cobra.Command{
	Use:   "worker",
	Short: "Consume comment cascade events from Kafka",
	RunE: func(cmd *cobra.Command, args []string) error {
		return workerCommandImpl()
	},
}

func workerCommandImpl() error {
	application := fx.New(
		baseOptions(),
		fx.Provide(
			func(lc fx.Lifecycle, cfg *config.Config) (*event.KafkaClient, error) {
				if cfg.KafkaGroup == "" {
					return nil, errors.New("KAFKA_GROUP is required for the worker")
				}
				client, err := event.NewKafkaClient(cfg.Brokers(), cfg.KafkaTopic, cfg.KafkaGroup)
				if err != nil {
					return nil, err
				}
				lc.Append(fx.Hook{OnStop: func(context.Context) error { return client.Close() }})
				return client, nil
			},

			func(
				lc fx.Lifecycle,
				cfg *config.Config,
				logger *zap.Logger,
				kafkaClient *event.KafkaClient,
				store *storage,
			) *worker.Worker {
				w := worker.NewWorker(logger.Named("worker"), kafkaClient, store.comments, cfg.CascadeTimeout)

				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						return w.Start()
					},
					OnStop: func(ctx context.Context) error {
						return w.Stop()
					},
				})
				return w
			},
		),
		fx.Invoke(
			startTracing,
			func(*worker.Worker) {},
		),
	)
	application.Run()

	return application.Err()
}

func init() {
	rootCommand.AddCommand(workerCommand)
}
