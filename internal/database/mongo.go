package database

import (
	"context"
	"fmt"
	"time"

	"github.com/teeny-box/teenybox-server/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collection names used by the mongo backend.
const (
	UsersCollection    = "users"
	CommentsCollection = "comments"
	CountersCollection = "counters"
)

// ConnectMongo dials uri, pings the primary and returns the named database.
func ConnectMongo(ctx context.Context, uri, name string, log *zap.Logger) (*mongo.Client, *mongo.Database, error) {
	if uri == "" {
		return nil, nil, fmt.Errorf("MONGODB_URI is not set")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	log.Info("mongodb connected", zap.String("database", name))
	return client, client.Database(name), nil
}

// EnsureIndexes creates the indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, kind := range []models.Kind{models.PostKind, models.PromotionKind} {
		_, err := db.Collection(kind.Plural).Indexes().CreateMany(ctx, []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: kind.NumberField, Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
			{Keys: bson.D{{Key: "deleted_at", Value: 1}, {Key: "created_at", Value: -1}}},
		})
		if err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", kind.Plural, err)
		}
	}

	_, err := db.Collection(CommentsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "item_kind", Value: 1}, {Key: "item_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create comment indexes: %w", err)
	}
	return nil
}
