package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teeny-box/teenybox-server/internal/database"
	"github.com/teeny-box/teenybox-server/internal/models"
	"github.com/teeny-box/teenybox-server/internal/observability"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoItemRepository implements ItemRepository on one MongoDB collection.
type mongoItemRepository[T any, P models.Entity[T]] struct {
	coll *mongo.Collection
	seq  MongoSequence
	kind models.Kind
}

// NewMongoItemRepository creates an item repository for the kind of P and
// seeds its counter from the documents already stored.
func NewMongoItemRepository[T any, P models.Entity[T]](ctx context.Context, db *mongo.Database) (ItemRepository[P], error) {
	kind := P(new(T)).Kind()
	r := &mongoItemRepository[T, P]{
		coll: db.Collection(kind.Plural),
		seq:  NewMongoSequence(db),
		kind: kind,
	}
	if err := r.seq.Seed(ctx, kind, r.coll); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *mongoItemRepository[T, P]) Create(ctx context.Context, item P) error {
	defer observability.TrackQuery("create", r.kind.Plural)()

	base := item.Base()
	if base.ID == "" {
		base.ID = uuid.NewString()
	}
	if base.LikedUsers == nil {
		base.LikedUsers = pq.StringArray{}
	}
	ts := now()
	if base.CreatedAt.IsZero() {
		base.CreatedAt = ts
	}
	base.UpdatedAt = ts

	n, err := r.seq.Next(ctx, r.kind)
	if err != nil {
		return err
	}
	item.SetNumber(n)

	_, err = r.coll.InsertOne(ctx, item)
	return translateError(err)
}

func (r *mongoItemRepository[T, P]) FindByNumber(ctx context.Context, number int64) (P, error) {
	defer observability.TrackQuery("find", r.kind.Plural)()

	item := P(new(T))
	err := r.coll.FindOne(ctx, bson.M{r.kind.NumberField: number}).Decode(item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.NewNotFoundError(r.kind.Name, number)
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *mongoItemRepository[T, P]) FindByNumbers(ctx context.Context, numbers []int64) ([]P, error) {
	defer observability.TrackQuery("find_many", r.kind.Plural)()

	items := make([]P, 0, len(numbers))
	if len(numbers) == 0 {
		return items, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: r.kind.NumberField, Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{r.kind.NumberField: bson.M{"$in": numbers}}, opts)
	if err != nil {
		return nil, err
	}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *mongoItemRepository[T, P]) filter(q ListQuery) bson.D {
	f := bson.D{{Key: "deleted_at", Value: nil}}
	if q.UserID != "" {
		f = append(f, bson.E{Key: "user_id", Value: q.UserID})
	}
	if q.Category != "" {
		f = append(f, bson.E{Key: "category", Value: q.Category})
	}
	if q.IsFixed != "" {
		f = append(f, bson.E{Key: "is_fixed", Value: q.IsFixed})
	}

	regex := bson.M{"$regex": q.Pattern, "$options": "i"}
	switch q.SearchField {
	case SearchTag:
		// regex against an array field matches any element
		f = append(f, bson.E{Key: "tags", Value: regex})
	case SearchTitle, SearchPlayTitle:
		f = append(f, bson.E{Key: q.SearchField, Value: regex})
	}
	return f
}

func (r *mongoItemRepository[T, P]) List(ctx context.Context, q ListQuery) ([]P, int64, error) {
	defer observability.TrackQuery("list", r.kind.Plural)()

	filter := r.filter(q)
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	dir := -1
	if q.Ascending {
		dir = 1
	}
	field := q.SortField
	if field == "" {
		field = "created_at"
	}
	opts := options.Find().SetSort(bson.D{
		{Key: field, Value: dir},
		{Key: r.kind.NumberField, Value: dir},
	})
	if q.Skip > 0 {
		opts.SetSkip(int64(q.Skip))
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	items := make([]P, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *mongoItemRepository[T, P]) alive(number int64) bson.D {
	return bson.D{
		{Key: r.kind.NumberField, Value: number},
		{Key: "deleted_at", Value: nil},
	}
}

func (r *mongoItemRepository[T, P]) UpdateFields(ctx context.Context, number int64, cols map[string]any) error {
	defer observability.TrackQuery("update", r.kind.Plural)()

	set := bson.M{"updated_at": now()}
	for k, v := range cols {
		set[k] = v
	}
	res, err := r.coll.UpdateOne(ctx, r.alive(number), bson.M{"$set": set})
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		return models.NewNotFoundError(r.kind.Name, number)
	}
	return nil
}

func (r *mongoItemRepository[T, P]) IncrementViews(ctx context.Context, number int64) error {
	defer observability.TrackQuery("views", r.kind.Plural)()

	_, err := r.coll.UpdateOne(ctx, r.alive(number), bson.M{"$inc": bson.M{"views": 1}})
	return err
}

// likesFromSet recomputes likes from the stored set in the same update.
func likesFromSet() bson.D {
	return bson.D{{Key: "$set", Value: bson.D{
		{Key: "likes", Value: bson.M{"$size": "$liked_users"}},
		{Key: "updated_at", Value: now()},
	}}}
}

func (r *mongoItemRepository[T, P]) AddLike(ctx context.Context, number int64, userID string) (bool, error) {
	defer observability.TrackQuery("like", r.kind.Plural)()

	filter := append(r.alive(number), bson.E{Key: "liked_users", Value: bson.M{"$ne": userID}})
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"liked_users": bson.M{"$concatArrays": bson.A{
				bson.M{"$ifNull": bson.A{"$liked_users", bson.A{}}},
				bson.A{bson.M{"$literal": userID}},
			}},
		}}},
		likesFromSet(),
	}
	res, err := r.coll.UpdateOne(ctx, filter, pipeline)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *mongoItemRepository[T, P]) RemoveLike(ctx context.Context, number int64, userID string) (bool, error) {
	defer observability.TrackQuery("unlike", r.kind.Plural)()

	filter := append(r.alive(number), bson.E{Key: "liked_users", Value: userID})
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"liked_users": bson.M{"$filter": bson.M{
				"input": "$liked_users",
				"cond":  bson.M{"$ne": bson.A{"$$this", bson.M{"$literal": userID}}},
			}},
		}}},
		likesFromSet(),
	}
	res, err := r.coll.UpdateOne(ctx, filter, pipeline)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *mongoItemRepository[T, P]) SoftDelete(ctx context.Context, number int64, at time.Time) (bool, error) {
	defer observability.TrackQuery("delete", r.kind.Plural)()

	res, err := r.coll.UpdateOne(ctx, r.alive(number), bson.M{"$set": bson.M{"deleted_at": at}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *mongoItemRepository[T, P]) SoftDeleteMany(ctx context.Context, numbers []int64, at time.Time) (int64, error) {
	defer observability.TrackQuery("delete_many", r.kind.Plural)()

	if len(numbers) == 0 {
		return 0, nil
	}
	filter := bson.M{
		r.kind.NumberField: bson.M{"$in": numbers},
		"deleted_at":       nil,
	}
	res, err := r.coll.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"deleted_at": at}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// MongoSequence hands out per-kind numbers from the counters collection.
type MongoSequence struct {
	counters *mongo.Collection
}

// NewMongoSequence uses the counters collection of db.
func NewMongoSequence(db *mongo.Database) MongoSequence {
	return MongoSequence{counters: db.Collection(database.CountersCollection)}
}

// Seed raises the kind's counter to the highest number stored in coll.
func (s MongoSequence) Seed(ctx context.Context, kind models.Kind, coll *mongo.Collection) error {
	opts := options.FindOne().
		SetSort(bson.D{{Key: kind.NumberField, Value: -1}}).
		SetProjection(bson.M{kind.NumberField: 1})

	var top bson.M
	var highest int64
	err := coll.FindOne(ctx, bson.M{}, opts).Decode(&top)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
	case err != nil:
		return fmt.Errorf("seed %s counter: %w", kind.Name, err)
	default:
		highest = toInt64(top[kind.NumberField])
	}

	_, err = s.counters.UpdateOne(ctx,
		bson.M{"_id": kind.Plural},
		bson.M{"$max": bson.M{"value": highest}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("seed %s counter: %w", kind.Name, err)
	}
	return nil
}

// Next atomically increments and returns the kind's counter.
func (s MongoSequence) Next(ctx context.Context, kind models.Kind) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter models.Counter
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": kind.Plural},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next %s number: %w", kind.Name, err)
	}
	return counter.Value, nil
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
