package repository

import (
	"context"

	"github.com/teeny-box/teenybox-server/internal/database"
	"github.com/teeny-box/teenybox-server/internal/models"
	"github.com/teeny-box/teenybox-server/internal/observability"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a gorm-backed CommentRepository.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *commentRepository) DeleteByItem(ctx context.Context, kind, itemID string) (int64, error) {
	defer observability.TrackQuery("delete_by_item", "comments")()

	res := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("item_kind = ? AND item_id = ? AND deleted_at IS NULL", kind, itemID).
		UpdateColumn("deleted_at", now())
	return res.RowsAffected, res.Error
}

type commentCount struct {
	ItemID string
	Count  int64
}

func (r *commentRepository) CountByItems(ctx context.Context, kind string, itemIDs []string) (map[string]int64, error) {
	defer observability.TrackQuery("count_by_items", "comments")()

	counts := make(map[string]int64, len(itemIDs))
	if len(itemIDs) == 0 {
		return counts, nil
	}

	var rows []commentCount
	err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Select("item_id, count(*) AS count").
		Where("item_kind = ? AND item_id IN ? AND deleted_at IS NULL", kind, itemIDs).
		Group("item_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.ItemID] = row.Count
	}
	return counts, nil
}

type mongoCommentRepository struct {
	coll *mongo.Collection
}

// NewMongoCommentRepository creates a CommentRepository over the comments collection.
func NewMongoCommentRepository(db *mongo.Database) CommentRepository {
	return &mongoCommentRepository{coll: db.Collection(database.CommentsCollection)}
}

func (r *mongoCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	ts := now()
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = ts
	}
	comment.UpdatedAt = ts
	_, err := r.coll.InsertOne(ctx, comment)
	return err
}

func (r *mongoCommentRepository) DeleteByItem(ctx context.Context, kind, itemID string) (int64, error) {
	defer observability.TrackQuery("delete_by_item", "comments")()

	filter := bson.M{"item_kind": kind, "item_id": itemID, "deleted_at": nil}
	res, err := r.coll.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"deleted_at": now()}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *mongoCommentRepository) CountByItems(ctx context.Context, kind string, itemIDs []string) (map[string]int64, error) {
	defer observability.TrackQuery("count_by_items", "comments")()

	counts := make(map[string]int64, len(itemIDs))
	if len(itemIDs) == 0 {
		return counts, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"item_kind":  kind,
			"item_id":    bson.M{"$in": itemIDs},
			"deleted_at": nil,
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$item_id",
			"count": bson.M{"$sum": 1},
		}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ItemID string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.ItemID] = row.Count
	}
	return counts, nil
}
