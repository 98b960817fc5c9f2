package main

import (
	"context"
	"fmt"
	"time"

	"github.com/teeny-box/teenybox-server/internal/cache"
	"github.com/teeny-box/teenybox-server/internal/cascade"
	"github.com/teeny-box/teenybox-server/internal/config"
	"github.com/teeny-box/teenybox-server/internal/database"
	"github.com/teeny-box/teenybox-server/internal/event"
	"github.com/teeny-box/teenybox-server/internal/models"
	"github.com/teeny-box/teenybox-server/internal/observability"
	"github.com/teeny-box/teenybox-server/internal/repository"
	"github.com/teeny-box/teenybox-server/internal/server"
	"github.com/teeny-box/teenybox-server/internal/service"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

type (
	postService      = service.ItemService[models.Post, *models.Post]
	promotionService = service.ItemService[models.Promotion, *models.Promotion]
)

// baseOptions wires config, logging and storage; every command needs them.
func baseOptions() fx.Option {
	return fx.Options(
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		fx.Provide(
			config.LoadConfig,
			newLogger,
			newStorage,
		),
	)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return observability.InitLogger(cfg.LogLevel, cfg.LogFormat)
}

func startTracing(lc fx.Lifecycle, cfg *config.Config) error {
	shutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "teenybox",
		ServiceVersion: version,
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSamplerRatio,
	})
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{OnStop: shutdown})
	return nil
}

// storage bundles the repositories of the configured backend.
type storage struct {
	users      repository.UserRepository
	posts      repository.ItemRepository[*models.Post]
	promotions repository.ItemRepository[*models.Promotion]
	comments   repository.CommentRepository
	ping       server.Pinger
}

func newStorage(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	log := logger.With(zap.String("component", "storage"), zap.String("driver", cfg.DBDriver))

	switch cfg.DBDriver {
	case config.DriverMongo:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		client, db, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB, log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: client.Disconnect})

		if err := database.EnsureIndexes(ctx, db); err != nil {
			return nil, err
		}
		posts, err := repository.NewMongoItemRepository[models.Post, *models.Post](ctx, db)
		if err != nil {
			return nil, fmt.Errorf("posts repository: %w", err)
		}
		promotions, err := repository.NewMongoItemRepository[models.Promotion, *models.Promotion](ctx, db)
		if err != nil {
			return nil, fmt.Errorf("promotions repository: %w", err)
		}
		return &storage{
			users:      repository.NewMongoUserRepository(db),
			posts:      posts,
			promotions: promotions,
			comments:   repository.NewMongoCommentRepository(db),
			ping: func(ctx context.Context) error {
				return client.Ping(ctx, readpref.Primary())
			},
		}, nil

	default:
		db, err := database.Connect(cfg, log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return database.Close(db) }})

		return &storage{
			users:      repository.NewUserRepository(db),
			posts:      repository.NewGormItemRepository[models.Post](db),
			promotions: repository.NewGormItemRepository[models.Promotion](db),
			comments:   repository.NewCommentRepository(db),
			ping: func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
		}, nil
	}
}

// newRedis connects the shared cache client; nil means running without Redis.
func newRedis(lc fx.Lifecycle, cfg *config.Config) *redis.Client {
	rdb := cache.InitRedis(cfg.RedisURL)
	if rdb != nil {
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return rdb.Close() }})
	}
	return rdb
}

// newUserRepository puts the Redis cache in front of user lookups. The
// client parameter orders it after newRedis.
func newUserRepository(store *storage, _ *redis.Client) repository.UserRepository {
	return repository.NewCachedUserRepository(store.users)
}

func newCleaner(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger, store *storage) (service.CommentCleaner, error) {
	if cfg.CascadeMode == config.CascadeKafka {
		client, err := event.NewKafkaClient(cfg.Brokers(), cfg.KafkaTopic, "")
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return client.Close() }})
		logger.Info("comment cascade publishes to kafka", zap.String("topic", cfg.KafkaTopic))
		return cascade.NewPublisher(client, cfg.CascadeTimeout), nil
	}

	async := cascade.NewAsync(store.comments, cfg.CascadeTimeout)
	lc.Append(fx.Hook{OnStop: async.Wait})
	return async, nil
}

func newPostService(store *storage, users repository.UserRepository, cleaner service.CommentCleaner) *postService {
	return service.NewItemService[models.Post, *models.Post](store.posts, users, store.comments, cleaner)
}

func newPromotionService(store *storage, users repository.UserRepository, cleaner service.CommentCleaner) *promotionService {
	return service.NewItemService[models.Promotion, *models.Promotion](store.promotions, users, store.comments, cleaner)
}
