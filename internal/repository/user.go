package repository

import (
	"context"
	"errors"

	"github.com/teeny-box/teenybox-server/internal/cache"
	"github.com/teeny-box/teenybox-server/internal/database"
	"github.com/teeny-box/teenybox-server/internal/models"
	"github.com/teeny-box/teenybox-server/internal/observability"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a gorm-backed UserRepository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return translateError(r.db.WithContext(ctx).Create(user).Error)
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	defer observability.TrackQuery("find", "users")()

	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	defer observability.TrackQuery("find_many", "users")()

	users := make([]*models.User, 0, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

type mongoUserRepository struct {
	coll *mongo.Collection
}

// NewMongoUserRepository returns a UserRepository over the users collection.
func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{coll: db.Collection(database.UsersCollection)}
}

func (r *mongoUserRepository) Create(ctx context.Context, user *models.User) error {
	ts := now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = ts
	}
	user.UpdatedAt = ts
	_, err := r.coll.InsertOne(ctx, user)
	return translateError(err)
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	defer observability.TrackQuery("find", "users")()

	var user models.User
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.NewNotFoundError("User", id)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *mongoUserRepository) FindByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	defer observability.TrackQuery("find_many", "users")()

	users := make([]*models.User, 0, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// cachedUserRepository serves single-user lookups through Redis.
type cachedUserRepository struct {
	UserRepository
}

// NewCachedUserRepository wraps next with a cache-aside lookup for FindByID.
// Without a Redis client it behaves exactly like next.
func NewCachedUserRepository(next UserRepository) UserRepository {
	return &cachedUserRepository{UserRepository: next}
}

func (r *cachedUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		found, err := r.UserRepository.FindByID(ctx, id)
		if err != nil {
			return err
		}
		user = *found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
