package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teeny-box/teenybox-server/internal/models"
	"github.com/teeny-box/teenybox-server/internal/observability"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// gormItemRepository implements ItemRepository on PostgreSQL.
type gormItemRepository[T any, P models.Entity[T]] struct {
	db   *gorm.DB
	kind models.Kind
}

// NewGormItemRepository creates an item repository for the kind of P.
func NewGormItemRepository[T any, P models.Entity[T]](db *gorm.DB) ItemRepository[P] {
	return &gormItemRepository[T, P]{db: db, kind: P(new(T)).Kind()}
}

func (r *gormItemRepository[T, P]) numberIs() string {
	return r.kind.NumberField + " = ?"
}

func (r *gormItemRepository[T, P]) aliveNumber() string {
	return r.kind.NumberField + " = ? AND deleted_at IS NULL"
}

func (r *gormItemRepository[T, P]) Create(ctx context.Context, item P) error {
	defer observability.TrackQuery("create", r.kind.Plural)()

	base := item.Base()
	if base.ID == "" {
		base.ID = uuid.NewString()
	}
	if base.LikedUsers == nil {
		base.LikedUsers = pq.StringArray{}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := GormSequence{db: tx}.Next(ctx, r.kind)
		if err != nil {
			return err
		}
		item.SetNumber(n)
		return tx.Create(item).Error
	})
	return translateError(err)
}

func (r *gormItemRepository[T, P]) FindByNumber(ctx context.Context, number int64) (P, error) {
	defer observability.TrackQuery("find", r.kind.Plural)()

	item := P(new(T))
	err := r.db.WithContext(ctx).Where(r.numberIs(), number).First(item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError(r.kind.Name, number)
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *gormItemRepository[T, P]) FindByNumbers(ctx context.Context, numbers []int64) ([]P, error) {
	defer observability.TrackQuery("find_many", r.kind.Plural)()

	items := make([]P, 0, len(numbers))
	if len(numbers) == 0 {
		return items, nil
	}
	err := r.db.WithContext(ctx).
		Where(r.kind.NumberField+" IN ?", numbers).
		Order(r.kind.NumberField).
		Find(&items).Error
	return items, err
}

// filters applies the WHERE part of q, shared by the count and the page query.
func (r *gormItemRepository[T, P]) filters(q ListQuery) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("deleted_at IS NULL")
		if q.UserID != "" {
			db = db.Where("user_id = ?", q.UserID)
		}
		if q.Category != "" {
			db = db.Where("category = ?", q.Category)
		}
		if q.IsFixed != "" {
			db = db.Where("is_fixed = ?", q.IsFixed)
		}
		switch q.SearchField {
		case SearchTag:
			db = db.Where("EXISTS (SELECT 1 FROM unnest(tags) AS tag WHERE tag ~* ?)", q.Pattern)
		case SearchTitle, SearchPlayTitle:
			db = db.Where(q.SearchField+" ~* ?", q.Pattern)
		}
		return db
	}
}

func (r *gormItemRepository[T, P]) order(q ListQuery) string {
	dir := "desc"
	if q.Ascending {
		dir = "asc"
	}
	field := q.SortField
	if field == "" {
		field = "created_at"
	}
	return fmt.Sprintf("%s %s, %s %s", field, dir, r.kind.NumberField, dir)
}

func (r *gormItemRepository[T, P]) List(ctx context.Context, q ListQuery) ([]P, int64, error) {
	defer observability.TrackQuery("list", r.kind.Plural)()

	var total int64
	if err := r.db.WithContext(ctx).Model(new(T)).Scopes(r.filters(q)).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	items := make([]P, 0)
	page := r.db.WithContext(ctx).Scopes(r.filters(q)).Order(r.order(q))
	if q.Skip > 0 {
		page = page.Offset(q.Skip)
	}
	if q.Limit > 0 {
		page = page.Limit(q.Limit)
	}
	if err := page.Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *gormItemRepository[T, P]) UpdateFields(ctx context.Context, number int64, cols map[string]any) error {
	defer observability.TrackQuery("update", r.kind.Plural)()

	res := r.db.WithContext(ctx).Model(new(T)).Where(r.aliveNumber(), number).Updates(cols)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(r.kind.Name, number)
	}
	return nil
}

func (r *gormItemRepository[T, P]) IncrementViews(ctx context.Context, number int64) error {
	defer observability.TrackQuery("views", r.kind.Plural)()

	return r.db.WithContext(ctx).Model(new(T)).
		Where(r.aliveNumber(), number).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error
}

func (r *gormItemRepository[T, P]) AddLike(ctx context.Context, number int64, userID string) (bool, error) {
	defer observability.TrackQuery("like", r.kind.Plural)()

	res := r.db.WithContext(ctx).Model(new(T)).
		Where(r.aliveNumber()+" AND NOT (? = ANY(liked_users))", number, userID).
		Updates(map[string]any{
			"liked_users": gorm.Expr("array_append(liked_users, ?)", userID),
			"likes":       gorm.Expr("cardinality(array_append(liked_users, ?))", userID),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *gormItemRepository[T, P]) RemoveLike(ctx context.Context, number int64, userID string) (bool, error) {
	defer observability.TrackQuery("unlike", r.kind.Plural)()

	res := r.db.WithContext(ctx).Model(new(T)).
		Where(r.aliveNumber()+" AND ? = ANY(liked_users)", number, userID).
		Updates(map[string]any{
			"liked_users": gorm.Expr("array_remove(liked_users, ?)", userID),
			"likes":       gorm.Expr("cardinality(array_remove(liked_users, ?))", userID),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *gormItemRepository[T, P]) SoftDelete(ctx context.Context, number int64, at time.Time) (bool, error) {
	defer observability.TrackQuery("delete", r.kind.Plural)()

	res := r.db.WithContext(ctx).Model(new(T)).
		Where(r.aliveNumber(), number).
		UpdateColumn("deleted_at", at)
	return res.RowsAffected > 0, res.Error
}

func (r *gormItemRepository[T, P]) SoftDeleteMany(ctx context.Context, numbers []int64, at time.Time) (int64, error) {
	defer observability.TrackQuery("delete_many", r.kind.Plural)()

	if len(numbers) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(new(T)).
		Where(r.kind.NumberField+" IN ? AND deleted_at IS NULL", numbers).
		UpdateColumn("deleted_at", at)
	return res.RowsAffected, res.Error
}

// GormSequence hands out per-kind numbers from the counters table. The
// counter row is seeded from the current maximum on first use, so numbers
// stay unique even for tables that predate the counter.
type GormSequence struct {
	db *gorm.DB
}

// NewGormSequence wraps db.
func NewGormSequence(db *gorm.DB) GormSequence {
	return GormSequence{db: db}
}

// Next returns the next number for kind in a single statement.
func (s GormSequence) Next(ctx context.Context, kind models.Kind) (int64, error) {
	query := fmt.Sprintf(
		`INSERT INTO counters (name, value) VALUES (?, (SELECT COALESCE(MAX(%s), 0) FROM %s) + 1) `+
			`ON CONFLICT (name) DO UPDATE SET value = counters.value + 1 RETURNING value`,
		kind.NumberField, kind.Plural,
	)

	var value int64
	if err := s.db.WithContext(ctx).Raw(query, kind.Plural).Scan(&value).Error; err != nil {
		return 0, fmt.Errorf("next %s number: %w", kind.Name, err)
	}
	return value, nil
}
