package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/teeny-box/teenybox-server/internal/config"
	"github.com/teeny-box/teenybox-server/internal/middleware"
	"github.com/teeny-box/teenybox-server/internal/models"
	"github.com/teeny-box/teenybox-server/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockItemService is a mock of the ItemService interface
type MockItemService[P any] struct {
	mock.Mock
	kind models.Kind
}

func returned[P any](args mock.Arguments) (P, error) {
	var zero P
	if v := args.Get(0); v != nil {
		return v.(P), args.Error(1)
	}
	return zero, args.Error(1)
}

func (m *MockItemService[P]) Kind() models.Kind { return m.kind }

func (m *MockItemService[P]) Create(ctx context.Context, userID string, in service.WriteInput) (P, error) {
	return returned[P](m.Called(ctx, userID, in))
}

func (m *MockItemService[P]) Update(ctx context.Context, number int64, userID string, in service.WriteInput) (P, error) {
	return returned[P](m.Called(ctx, number, userID, in))
}

func (m *MockItemService[P]) Get(ctx context.Context, number int64, view bool) (P, error) {
	return returned[P](m.Called(ctx, number, view))
}

func (m *MockItemService[P]) List(ctx context.Context, in service.ListInput) (*service.Page[P], error) {
	args := m.Called(ctx, in)
	page, _ := args.Get(0).(*service.Page[P])
	return page, args.Error(1)
}

func (m *MockItemService[P]) ListByUser(ctx context.Context, userID string, in service.ListInput) (*service.Page[P], error) {
	args := m.Called(ctx, userID, in)
	page, _ := args.Get(0).(*service.Page[P])
	return page, args.Error(1)
}

func (m *MockItemService[P]) Search(ctx context.Context, in service.ListInput) (*service.Page[P], error) {
	args := m.Called(ctx, in)
	page, _ := args.Get(0).(*service.Page[P])
	return page, args.Error(1)
}

func (m *MockItemService[P]) Delete(ctx context.Context, number int64, userID string) (P, error) {
	return returned[P](m.Called(ctx, number, userID))
}

func (m *MockItemService[P]) DeleteMany(ctx context.Context, numbers []int64, userID string) (int64, error) {
	args := m.Called(ctx, numbers, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockItemService[P]) Like(ctx context.Context, number int64, userID string) (P, error) {
	return returned[P](m.Called(ctx, number, userID))
}

func (m *MockItemService[P]) Unlike(ctx context.Context, number int64, userID string) (P, error) {
	return returned[P](m.Called(ctx, number, userID))
}

const testUserID = "0b6a2c3e-1f4d-4e5a-9b8c-7d6e5f4a3b2c"

type harness struct {
	server     *Server
	posts      *MockItemService[*models.Post]
	promotions *MockItemService[*models.Promotion]
	cfg        *config.Config
}

func newHarness(t *testing.T, ping Pinger) *harness {
	t.Helper()
	cfg := &config.Config{
		Port:      "0",
		Env:       "test",
		JWTSecret: "test-secret-key-12345678901234567890123456789012",
	}
	h := &harness{
		posts:      &MockItemService[*models.Post]{kind: models.PostKind},
		promotions: &MockItemService[*models.Promotion]{kind: models.PromotionKind},
		cfg:        cfg,
	}
	h.server = NewServer(cfg, nil, ping, h.posts, h.promotions)
	t.Cleanup(func() {
		h.posts.AssertExpectations(t)
		h.promotions.AssertExpectations(t)
	})
	return h
}

func (h *harness) do(t *testing.T, method, path, body string, authenticated bool) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authenticated {
		token, err := middleware.IssueToken(h.cfg, testUserID, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.server.App().Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func post(number int64) *models.Post {
	p := &models.Post{PostNumber: number}
	p.Title = "hello"
	p.UserID = testUserID
	return p
}

func TestCreateItem(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		authenticated  bool
		mockSetup      func(h *harness)
		expectedStatus int
	}{
		{
			name:          "Success",
			body:          `{"title":"hello","content":"world","category":"자유","is_fixed":"일반","tags":"a, b"}`,
			authenticated: true,
			mockSetup: func(h *harness) {
				h.posts.On("Create", mock.Anything, testUserID, mock.MatchedBy(func(in service.WriteInput) bool {
					return in.Title != nil && *in.Title == "hello" && in.Tags == "a, b" && len(in.Body) > 0
				})).Return(post(1), nil).Once()
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Missing Fields",
			body:           `{"title":"hello"}`,
			authenticated:  true,
			mockSetup:      func(*harness) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Unauthenticated",
			body:           `{"title":"hello","content":"world","category":"자유","is_fixed":"일반"}`,
			mockSetup:      func(*harness) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:          "Unknown User",
			body:          `{"title":"hello","content":"world","category":"자유","is_fixed":"일반"}`,
			authenticated: true,
			mockSetup: func(h *harness) {
				h.posts.On("Create", mock.Anything, testUserID, mock.Anything).
					Return(nil, &models.AppError{Code: models.CodeNotFound, Message: "user not found"}).Once()
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			tt.mockSetup(h)

			resp := h.do(t, http.MethodPost, "/api/posts", tt.body, tt.authenticated)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestListItems_Defaults(t *testing.T) {
	h := newHarness(t, nil)
	h.posts.On("List", mock.Anything, service.ListInput{Page: 1, Limit: -1, SortBy: "time"}).
		Return(&service.Page[*models.Post]{Items: []*models.Post{post(2), post(1)}, TotalCount: 2}, nil).Once()

	resp := h.do(t, http.MethodGet, "/api/posts", "", false)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode(t, resp)
	assert.Len(t, body["posts"], 2)
	assert.EqualValues(t, 2, body["totalCount"])
}

func TestListItems_Filters(t *testing.T) {
	h := newHarness(t, nil)
	h.promotions.On("List", mock.Anything, service.ListInput{
		Page: 2, Limit: 5, SortBy: "like", SortOrder: "asc", Category: "연극", IsFixed: "고정",
	}).Return(&service.Page[*models.Promotion]{}, nil).Once()

	resp := h.do(t, http.MethodGet, "/api/promotions?page=2&limit=5&sortBy=like&sortOrder=asc&category=%EC%97%B0%EA%B7%B9&isFixed=%EA%B3%A0%EC%A0%95", "", false)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode(t, resp)
	assert.Equal(t, []any{}, body["promotions"])
	assert.EqualValues(t, 0, body["totalCount"])
}

func TestSearchItems(t *testing.T) {
	h := newHarness(t, nil)
	h.posts.On("Search", mock.Anything, service.ListInput{
		Page: 1, Limit: 10, SortBy: "time", SearchType: "tag", Query: "go",
	}).Return(&service.Page[*models.Post]{Items: []*models.Post{post(3)}, TotalCount: 1}, nil).Once()

	resp := h.do(t, http.MethodGet, "/api/posts/search?type=tag&query=go", "", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	h.posts.On("Search", mock.Anything, mock.Anything).
		Return(nil, models.NewValidationError("invalid search type")).Once()
	resp = h.do(t, http.MethodGet, "/api/posts/search?type=content&query=go", "", false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListByUser(t *testing.T) {
	h := newHarness(t, nil)
	h.posts.On("ListByUser", mock.Anything, "someone", service.ListInput{Page: 1, Limit: -1, SortBy: "time"}).
		Return(&service.Page[*models.Post]{}, nil).Once()

	resp := h.do(t, http.MethodGet, "/api/posts/user/someone", "", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetItem(t *testing.T) {
	h := newHarness(t, nil)
	h.posts.On("Get", mock.Anything, int64(7), true).Return(post(7), nil).Once()
	h.posts.On("Get", mock.Anything, int64(8), false).Return(nil, models.NewNotFoundError("post", 8)).Once()

	resp := h.do(t, http.MethodGet, "/api/posts/7?usage=view", "", false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 7, decode(t, resp)["post_number"])

	resp = h.do(t, http.MethodGet, "/api/posts/8", "", false)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, models.CodeNotFound, decode(t, resp)["code"])

	resp = h.do(t, http.MethodGet, "/api/posts/abc", "", false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateItem(t *testing.T) {
	h := newHarness(t, nil)
	h.posts.On("Update", mock.Anything, int64(4), testUserID, mock.MatchedBy(func(in service.WriteInput) bool {
		return in.Content != nil && *in.Content == "edited" && in.Title == nil
	})).Return(post(4), nil).Once()
	h.posts.On("Update", mock.Anything, int64(5), testUserID, mock.Anything).
		Return(nil, models.NewForbiddenError("not the owner")).Once()

	resp := h.do(t, http.MethodPut, "/api/posts/4", `{"content":"edited"}`, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.do(t, http.MethodPut, "/api/posts/5", `{"content":"edited"}`, true)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = h.do(t, http.MethodPut, "/api/posts/4", `{"title":""}`, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteItems(t *testing.T) {
	h := newHarness(t, nil)
	h.posts.On("Delete", mock.Anything, int64(3), testUserID).Return(post(3), nil).Once()
	h.posts.On("DeleteMany", mock.Anything, []int64{1, 2}, testUserID).Return(int64(2), nil).Once()
	h.promotions.On("DeleteMany", mock.Anything, []int64{9}, testUserID).
		Return(int64(0), models.NewForbiddenError("not the owner of every promotion")).Once()

	resp := h.do(t, http.MethodDelete, "/api/posts/3", "", true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.do(t, http.MethodDelete, "/api/posts/bulk", `{"postNumbers":[1,2]}`, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, decode(t, resp)["deleted"])

	resp = h.do(t, http.MethodDelete, "/api/promotions/bulk", `{"promotionNumbers":[9]}`, true)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = h.do(t, http.MethodDelete, "/api/posts/bulk", `{"postNumbers":[]}`, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.do(t, http.MethodDelete, "/api/posts/bulk", `{"postNumbers":[1]}`, false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLikeToggle(t *testing.T) {
	h := newHarness(t, nil)
	liked := post(6)
	liked.Likes = 1
	liked.LikedUsers = []string{testUserID}
	h.posts.On("Like", mock.Anything, int64(6), testUserID).Return(liked, nil).Once()
	h.posts.On("Like", mock.Anything, int64(6), testUserID).Return(nil, models.NewConflictError("already liked")).Once()
	h.posts.On("Unlike", mock.Anything, int64(6), testUserID).Return(post(6), nil).Once()

	resp := h.do(t, http.MethodPost, "/api/posts/6/like", "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, decode(t, resp)["likes"])

	resp = h.do(t, http.MethodPost, "/api/posts/6/like", "", true)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, models.CodeConflict, decode(t, resp)["code"])

	resp = h.do(t, http.MethodDelete, "/api/posts/6/like", "", true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestInternalErrorsAreMapped(t *testing.T) {
	h := newHarness(t, nil)
	h.posts.On("Get", mock.Anything, int64(1), false).Return(nil, errors.New("connection reset")).Once()

	resp := h.do(t, http.MethodGet, "/api/posts/1", "", false)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, models.CodeInternal, decode(t, resp)["code"])
}

func TestHealthChecks(t *testing.T) {
	h := newHarness(t, func(context.Context) error { return nil })

	resp := h.do(t, http.MethodGet, "/health/live", "", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/health/ready", "", false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "degraded", decode(t, resp)["status"])

	down := newHarness(t, func(context.Context) error { return errors.New("db down") })
	resp = down.do(t, http.MethodGet, "/health/ready", "", false)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
