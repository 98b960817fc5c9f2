// Package service holds the business rules shared by posts and promotions.
package service

import (
	"context"
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/teeny-box/teenybox-server/internal/models"
	"github.com/teeny-box/teenybox-server/internal/observability"
	"github.com/teeny-box/teenybox-server/internal/repository"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const maxTitleLength = 40

// ItemService implements create, read, like and delete flows for one kind.
type ItemService[T any, P models.Entity[T]] struct {
	items    repository.ItemRepository[P]
	users    repository.UserRepository
	comments repository.CommentRepository
	cleaner  CommentCleaner
	kind     models.Kind
	now      func() time.Time
}

func NewItemService[T any, P models.Entity[T]](
	items repository.ItemRepository[P],
	users repository.UserRepository,
	comments repository.CommentRepository,
	cleaner CommentCleaner,
) *ItemService[T, P] {
	return &ItemService[T, P]{
		items:    items,
		users:    users,
		comments: comments,
		cleaner:  cleaner,
		kind:     P(new(T)).Kind(),
		now:      utcNow,
	}
}

// Kind returns the content kind served.
func (s *ItemService[T, P]) Kind() models.Kind {
	return s.kind
}

func (s *ItemService[T, P]) Create(ctx context.Context, userID string, in WriteInput) (P, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, s.userError(err)
	}

	item := P(new(T))
	base := item.Base()
	base.UserID = userID
	base.LikedUsers = pq.StringArray{}
	base.IsFixed = models.PinNormal
	if err := s.apply(item, in); err != nil {
		return nil, err
	}
	if user.Role == models.RoleUser {
		base.IsFixed = models.PinNormal
	}
	if err := s.check(item, true); err != nil {
		return nil, err
	}

	if err := s.items.Create(ctx, item); err != nil {
		if models.IsCode(err, models.CodeConflict) {
			return nil, err
		}
		return nil, models.WrapInternal(fmt.Sprintf("failed to create %s", s.kind.Name), err)
	}

	observability.L(ctx).Info("item created",
		zap.String("kind", s.kind.Name),
		zap.Int64("number", item.Number()),
	)
	base.User = user.Summary()
	return item, nil
}

func (s *ItemService[T, P]) Update(ctx context.Context, number int64, userID string, in WriteInput) (P, error) {
	item, err := s.findAlive(ctx, number)
	if err != nil {
		return nil, err
	}
	if item.Base().UserID != userID {
		return nil, models.NewForbiddenError(fmt.Sprintf("only the author can update this %s", s.kind.Name))
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, s.userError(err)
	}

	if err := s.apply(item, in); err != nil {
		return nil, err
	}
	if user.Role == models.RoleUser {
		item.Base().IsFixed = models.PinNormal
	}
	if err := s.check(item, false); err != nil {
		return nil, err
	}

	if err := s.items.UpdateFields(ctx, number, models.EditableColumns[T](item)); err != nil {
		return nil, err
	}
	return s.reload(ctx, number)
}

// Get returns an alive item. With view set the view counter is bumped first.
func (s *ItemService[T, P]) Get(ctx context.Context, number int64, view bool) (P, error) {
	item, err := s.findAlive(ctx, number)
	if err != nil {
		return nil, err
	}
	if !view {
		s.enrich(ctx, item)
		return item, nil
	}
	if err := s.items.IncrementViews(ctx, number); err != nil {
		return nil, err
	}
	return s.reload(ctx, number)
}

func (s *ItemService[T, P]) List(ctx context.Context, in ListInput) (*Page[P], error) {
	q := s.query(in)
	if in.Category != "" {
		if !s.kind.ValidCategory(in.Category) {
			return nil, models.NewValidationError(fmt.Sprintf("invalid category %q", in.Category))
		}
		q.Category = in.Category
	}
	if in.IsFixed != "" {
		if !models.ValidPin(in.IsFixed) {
			return nil, models.NewValidationError(fmt.Sprintf("invalid isFixed %q", in.IsFixed))
		}
		q.IsFixed = in.IsFixed
	}
	return s.page(ctx, q)
}

func (s *ItemService[T, P]) ListByUser(ctx context.Context, userID string, in ListInput) (*Page[P], error) {
	if userID == "" {
		return nil, models.NewValidationError("userId is required")
	}
	q := s.query(in)
	q.UserID = userID
	return s.page(ctx, q)
}

func (s *ItemService[T, P]) Search(ctx context.Context, in ListInput) (*Page[P], error) {
	if !s.kind.CanSearch(in.SearchType) {
		return nil, models.NewValidationError(fmt.Sprintf("invalid search type %q", in.SearchType))
	}
	if in.Query == "" {
		return nil, models.NewValidationError("search query is required")
	}
	q := s.query(in)
	q.SearchField = in.SearchType
	q.Pattern = regexp.QuoteMeta(in.Query)
	return s.page(ctx, q)
}

// Delete soft-deletes an item for its author or an admin and schedules the
// comment cleanup.
func (s *ItemService[T, P]) Delete(ctx context.Context, number int64, userID string) (_ P, err error) {
	ctx, span := observability.StartSpan(ctx, "ItemService.Delete",
		attribute.String("kind", s.kind.Name), attribute.Int64("number", number))
	defer func() { observability.EndSpan(span, err) }()

	item, err := s.findAlive(ctx, number)
	if err != nil {
		return nil, err
	}
	if item.Base().UserID != userID {
		user, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return nil, s.userError(err)
		}
		if !user.IsAdmin() {
			return nil, models.NewForbiddenError(fmt.Sprintf("you cannot delete this %s", s.kind.Name))
		}
	}

	at := s.now()
	deleted, err := s.items.SoftDelete(ctx, number, at)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, models.NewNotFoundError(s.kind.Name, number)
	}

	item.Base().DeletedAt = &at
	s.cleaner.DeleteCommentsByItemID(ctx, s.kind, item.Base().ID)
	return item, nil
}

// DeleteMany soft-deletes a batch. Non-admins must own every requested item,
// otherwise nothing is deleted.
func (s *ItemService[T, P]) DeleteMany(ctx context.Context, numbers []int64, userID string) (_ int64, err error) {
	ctx, span := observability.StartSpan(ctx, "ItemService.DeleteMany",
		attribute.String("kind", s.kind.Name), attribute.Int("requested", len(numbers)))
	defer func() { observability.EndSpan(span, err) }()

	unique := dedupeNumbers(numbers)
	if len(unique) == 0 {
		return 0, models.NewValidationError(fmt.Sprintf("%s must not be empty", s.kind.BulkField))
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return 0, s.userError(err)
	}
	found, err := s.items.FindByNumbers(ctx, unique)
	if err != nil {
		return 0, err
	}

	if !user.IsAdmin() {
		owned := 0
		for _, item := range found {
			if item.Base().UserID == userID {
				owned++
			}
		}
		if owned != len(unique) {
			return 0, models.NewForbiddenError(fmt.Sprintf("you can only delete your own %s", s.kind.Plural))
		}
	}

	n, err := s.items.SoftDeleteMany(ctx, unique, s.now())
	if err != nil {
		return 0, err
	}

	for _, item := range found {
		if item.Base().Alive() {
			s.cleaner.DeleteCommentsByItemID(ctx, s.kind, item.Base().ID)
		}
	}

	observability.L(ctx).Info("items deleted",
		zap.String("kind", s.kind.Name),
		zap.Int("requested", len(unique)),
		zap.Int64("deleted", n),
	)
	return n, nil
}

func (s *ItemService[T, P]) Like(ctx context.Context, number int64, userID string) (_ P, err error) {
	ctx, span := observability.StartSpan(ctx, "ItemService.Like",
		attribute.String("kind", s.kind.Name), attribute.Int64("number", number))
	defer func() { observability.EndSpan(span, err) }()

	item, err := s.findAlive(ctx, number)
	if err != nil {
		return nil, err
	}
	if item.Base().LikedBy(userID) {
		return nil, models.NewConflictError("already liked")
	}

	applied, err := s.items.AddLike(ctx, number, userID)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, s.lostRace(ctx, number, "already liked")
	}

	observability.LikesTotal.WithLabelValues(s.kind.Name, "like").Inc()
	return s.reload(ctx, number)
}

func (s *ItemService[T, P]) Unlike(ctx context.Context, number int64, userID string) (_ P, err error) {
	ctx, span := observability.StartSpan(ctx, "ItemService.Unlike",
		attribute.String("kind", s.kind.Name), attribute.Int64("number", number))
	defer func() { observability.EndSpan(span, err) }()

	item, err := s.findAlive(ctx, number)
	if err != nil {
		return nil, err
	}
	if !item.Base().LikedBy(userID) {
		return nil, models.NewConflictError("not yet liked")
	}

	applied, err := s.items.RemoveLike(ctx, number, userID)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, s.lostRace(ctx, number, "not yet liked")
	}

	observability.LikesTotal.WithLabelValues(s.kind.Name, "unlike").Inc()
	return s.reload(ctx, number)
}

// lostRace explains a conditional update that matched nothing: either the
// item was deleted meanwhile or a concurrent request already toggled it.
func (s *ItemService[T, P]) lostRace(ctx context.Context, number int64, conflict string) error {
	if _, err := s.findAlive(ctx, number); err != nil {
		return err
	}
	return models.NewConflictError(conflict)
}

func (s *ItemService[T, P]) findAlive(ctx context.Context, number int64) (P, error) {
	item, err := s.items.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if !item.Base().Alive() {
		return nil, models.NewNotFoundError(s.kind.Name, number)
	}
	return item, nil
}

func (s *ItemService[T, P]) reload(ctx context.Context, number int64) (P, error) {
	item, err := s.findAlive(ctx, number)
	if err != nil {
		return nil, err
	}
	s.enrich(ctx, item)
	return item, nil
}

func (s *ItemService[T, P]) userError(err error) error {
	if models.IsCode(err, models.CodeNotFound) {
		return &models.AppError{Code: models.CodeNotFound, Message: "user not found", Err: err}
	}
	return err
}

// apply copies the supplied fields of in onto item.
func (s *ItemService[T, P]) apply(item P, in WriteInput) error {
	base := item.Base()
	if in.Title != nil {
		base.Title = *in.Title
	}
	if in.Content != nil {
		base.Content = *in.Content
	}
	if tags, ok := NormalizeTags(in.Tags); ok {
		base.Tags = tags
	}
	if in.Category != nil {
		base.Category = *in.Category
	}
	if in.IsFixed != nil {
		base.IsFixed = *in.IsFixed
	}
	if len(in.Body) > 0 {
		if err := item.ApplyDetails(in.Body); err != nil {
			return models.NewValidationError("invalid request body", err.Error())
		}
	}
	return nil
}

func (s *ItemService[T, P]) check(item P, creating bool) error {
	base := item.Base()
	var details []string
	if creating && base.Title == "" {
		details = append(details, "title is required")
	}
	if utf8.RuneCountInString(base.Title) > maxTitleLength {
		details = append(details, fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	if creating && base.Content == "" {
		details = append(details, "content is required")
	}
	if !s.kind.ValidCategory(base.Category) {
		details = append(details, fmt.Sprintf("invalid category %q", base.Category))
	}
	if !models.ValidPin(base.IsFixed) {
		details = append(details, fmt.Sprintf("invalid is_fixed %q", base.IsFixed))
	}
	if len(details) > 0 {
		return models.NewValidationError(fmt.Sprintf("invalid %s", s.kind.Name), details...)
	}
	return nil
}

func (s *ItemService[T, P]) query(in ListInput) repository.ListQuery {
	page := in.Page
	if page < 1 {
		page = 1
	}
	q := repository.ListQuery{
		SortField: sortColumn(in.SortBy),
		Ascending: in.SortOrder == "asc",
	}
	if in.Limit > 0 {
		q.Limit = in.Limit
		q.Skip = (page - 1) * in.Limit
	}
	return q
}

func (s *ItemService[T, P]) page(ctx context.Context, q repository.ListQuery) (*Page[P], error) {
	items, total, err := s.items.List(ctx, q)
	if err != nil {
		return nil, err
	}
	s.enrich(ctx, items...)
	return &Page[P]{Items: items, TotalCount: total}, nil
}

// enrich attaches the owner summary and the live comment count. Lookup
// failures leave the fields empty.
func (s *ItemService[T, P]) enrich(ctx context.Context, items ...P) {
	if len(items) == 0 {
		return
	}
	log := observability.L(ctx)

	ids := make([]string, 0, len(items))
	owners := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		base := item.Base()
		ids = append(ids, base.ID)
		if _, ok := seen[base.UserID]; !ok {
			seen[base.UserID] = struct{}{}
			owners = append(owners, base.UserID)
		}
	}

	users, err := s.users.FindByIDs(ctx, owners)
	if err != nil {
		log.Warn("owner lookup failed", zap.String("kind", s.kind.Name), zap.Error(err))
	}
	byID := make(map[string]*models.UserSummary, len(users))
	for _, u := range users {
		byID[u.ID] = u.Summary()
	}

	counts, err := s.comments.CountByItems(ctx, s.kind.Name, ids)
	if err != nil {
		log.Warn("comment count failed", zap.String("kind", s.kind.Name), zap.Error(err))
	}

	for _, item := range items {
		base := item.Base()
		base.User = byID[base.UserID]
		base.CommentsCount = counts[base.ID]
	}
}
