package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/teeny-box/teenybox-server/internal/models"
	"github.com/teeny-box/teenybox-server/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// itemRepoStub is a stub for repository.ItemRepository[*models.Post].
type itemRepoStub struct {
	createFn         func(context.Context, *models.Post) error
	findByNumberFn   func(context.Context, int64) (*models.Post, error)
	findByNumbersFn  func(context.Context, []int64) ([]*models.Post, error)
	listFn           func(context.Context, repository.ListQuery) ([]*models.Post, int64, error)
	updateFieldsFn   func(context.Context, int64, map[string]any) error
	incrementViewsFn func(context.Context, int64) error
	addLikeFn        func(context.Context, int64, string) (bool, error)
	removeLikeFn     func(context.Context, int64, string) (bool, error)
	softDeleteFn     func(context.Context, int64, time.Time) (bool, error)
	softDeleteManyFn func(context.Context, []int64, time.Time) (int64, error)
}

func (s *itemRepoStub) Create(ctx context.Context, p *models.Post) error {
	return s.createFn(ctx, p)
}
func (s *itemRepoStub) FindByNumber(ctx context.Context, n int64) (*models.Post, error) {
	return s.findByNumberFn(ctx, n)
}
func (s *itemRepoStub) FindByNumbers(ctx context.Context, ns []int64) ([]*models.Post, error) {
	return s.findByNumbersFn(ctx, ns)
}
func (s *itemRepoStub) List(ctx context.Context, q repository.ListQuery) ([]*models.Post, int64, error) {
	return s.listFn(ctx, q)
}
func (s *itemRepoStub) UpdateFields(ctx context.Context, n int64, cols map[string]any) error {
	return s.updateFieldsFn(ctx, n, cols)
}
func (s *itemRepoStub) IncrementViews(ctx context.Context, n int64) error {
	return s.incrementViewsFn(ctx, n)
}
func (s *itemRepoStub) AddLike(ctx context.Context, n int64, userID string) (bool, error) {
	return s.addLikeFn(ctx, n, userID)
}
func (s *itemRepoStub) RemoveLike(ctx context.Context, n int64, userID string) (bool, error) {
	return s.removeLikeFn(ctx, n, userID)
}
func (s *itemRepoStub) SoftDelete(ctx context.Context, n int64, at time.Time) (bool, error) {
	return s.softDeleteFn(ctx, n, at)
}
func (s *itemRepoStub) SoftDeleteMany(ctx context.Context, ns []int64, at time.Time) (int64, error) {
	return s.softDeleteManyFn(ctx, ns, at)
}

var errUnexpectedCall = errors.New("unexpected call")

// noopItemRepo fails every call so tests only wire what they expect.
func noopItemRepo() *itemRepoStub {
	return &itemRepoStub{
		createFn:         func(context.Context, *models.Post) error { return errUnexpectedCall },
		findByNumberFn:   func(context.Context, int64) (*models.Post, error) { return nil, errUnexpectedCall },
		findByNumbersFn:  func(context.Context, []int64) ([]*models.Post, error) { return nil, errUnexpectedCall },
		listFn:           func(context.Context, repository.ListQuery) ([]*models.Post, int64, error) { return nil, 0, nil },
		updateFieldsFn:   func(context.Context, int64, map[string]any) error { return errUnexpectedCall },
		incrementViewsFn: func(context.Context, int64) error { return errUnexpectedCall },
		addLikeFn:        func(context.Context, int64, string) (bool, error) { return false, errUnexpectedCall },
		removeLikeFn:     func(context.Context, int64, string) (bool, error) { return false, errUnexpectedCall },
		softDeleteFn:     func(context.Context, int64, time.Time) (bool, error) { return false, errUnexpectedCall },
		softDeleteManyFn: func(context.Context, []int64, time.Time) (int64, error) { return 0, errUnexpectedCall },
	}
}

// userRepoStub serves users from a map.
type userRepoStub struct {
	users map[string]*models.User
}

func (s *userRepoStub) Create(_ context.Context, u *models.User) error {
	s.users[u.ID] = u
	return nil
}

func (s *userRepoStub) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, models.NewNotFoundError("User", id)
}

func (s *userRepoStub) FindByIDs(_ context.Context, ids []string) ([]*models.User, error) {
	out := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// commentRepoStub returns fixed counts.
type commentRepoStub struct {
	counts map[string]int64
}

func (s *commentRepoStub) Create(context.Context, *models.Comment) error { return nil }

func (s *commentRepoStub) DeleteByItem(context.Context, string, string) (int64, error) {
	return 0, nil
}

func (s *commentRepoStub) CountByItems(context.Context, string, []string) (map[string]int64, error) {
	return s.counts, nil
}

// cleanerRecorder records cascade dispatches.
type cleanerRecorder struct {
	mu    sync.Mutex
	items []string
}

func (c *cleanerRecorder) DeleteCommentsByItemID(_ context.Context, _ models.Kind, itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, itemID)
}

func (c *cleanerRecorder) dispatched() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.items...)
}

const (
	ownerID    = "owner"
	strangerID = "stranger"
	adminID    = "admin"
)

func testUsers() *userRepoStub {
	return &userRepoStub{users: map[string]*models.User{
		ownerID:    {ID: ownerID, Nickname: "owner", Role: models.RoleUser},
		strangerID: {ID: strangerID, Nickname: "stranger", Role: models.RoleUser},
		adminID:    {ID: adminID, Nickname: "admin", Role: models.RoleAdmin},
	}}
}

func alivePost(number int64, owner string, likedBy ...string) *models.Post {
	return &models.Post{
		Item: models.Item{
			ID:         "id-" + owner + "-" + string(rune('a'+number)),
			UserID:     owner,
			Title:      "title",
			Content:    "content",
			Category:   models.PostCategoryFree,
			IsFixed:    models.PinNormal,
			LikedUsers: likedBy,
			Likes:      int64(len(likedBy)),
		},
		PostNumber: number,
	}
}

type fixture struct {
	items    *itemRepoStub
	users    *userRepoStub
	comments *commentRepoStub
	cleaner  *cleanerRecorder
	svc      *ItemService[models.Post, *models.Post]
}

func newFixture() *fixture {
	f := &fixture{
		items:    noopItemRepo(),
		users:    testUsers(),
		comments: &commentRepoStub{counts: map[string]int64{}},
		cleaner:  &cleanerRecorder{},
	}
	f.svc = NewItemService[models.Post, *models.Post](f.items, f.users, f.comments, f.cleaner)
	return f
}

// assertCode asserts that err is an AppError with the given code.
func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func ptr[V any](v V) *V {
	return &v
}
