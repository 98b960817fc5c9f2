package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/teeny-box/teenybox-server/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnv(t *testing.T, env string) {
	t.Helper()
	InitMiddleware(&config.Config{JWTSecret: testSecret, Env: env})
	t.Cleanup(func() { InitMiddleware(&config.Config{JWTSecret: testSecret}) })
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCheckRateLimit(t *testing.T) {
	ctx := context.Background()

	t.Run("Disabled Outside Production", func(t *testing.T) {
		for _, env := range []string{"test", "development"} {
			withEnv(t, env)
			allowed, err := CheckRateLimit(ctx, nil, "res", "1", 1, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed, env)
		}
	})

	t.Run("Nil Redis", func(t *testing.T) {
		withEnv(t, "production")
		_, err := CheckRateLimit(ctx, nil, "res", "1", 1, time.Minute)
		assert.Error(t, err)
	})

	t.Run("Fixed Window", func(t *testing.T) {
		withEnv(t, "production")
		mr, rdb := newRedis(t)

		for i := 0; i < 2; i++ {
			allowed, err := CheckRateLimit(ctx, rdb, "create_post", "user:1", 2, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed)
		}
		allowed, err := CheckRateLimit(ctx, rdb, "create_post", "user:1", 2, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)

		assert.Greater(t, mr.TTL("rl:create_post:user:1"), time.Duration(0))

		mr.FastForward(time.Minute + time.Second)
		allowed, err = CheckRateLimit(ctx, rdb, "create_post", "user:1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	withEnv(t, "production")
	_, rdb := newRedis(t)

	app := fiber.New()
	app.Post("/items", RateLimit(rdb, 1, time.Minute, "create_item"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/items", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/items", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestRateLimitMiddleware_RedisDown(t *testing.T) {
	withEnv(t, "production")

	t.Run("Fail Open Uses Local Limiter", func(t *testing.T) {
		app := fiber.New()
		app.Get("/open", RateLimit(nil, 1, time.Hour, "fail_open_test"), func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/open", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/open", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	})

	t.Run("Fail Closed", func(t *testing.T) {
		app := fiber.New()
		app.Get("/closed", RateLimitWithPolicy(nil, 10, time.Minute, FailClosed), func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/closed", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}
