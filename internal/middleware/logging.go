package middleware

import (
	"context"
	"time"

	"github.com/teeny-box/teenybox-server/internal/observability"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ContextMiddleware copies the request, user and trace ids from Fiber locals
// into the request context so observability.L picks them up in deeper layers.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			ctx = context.WithValue(ctx, observability.RequestIDKey, rid)
		}
		// Set by AuthRequired, so only present when this runs after it.
		if uid, ok := c.Locals("userID").(string); ok && uid != "" {
			ctx = context.WithValue(ctx, observability.UserIDKey, uid)
		}
		if tid, ok := c.Locals("traceID").(string); ok && tid != "" {
			ctx = context.WithValue(ctx, observability.TraceIDKey, tid)
		}

		c.SetUserContext(ctx)
		return c.Next()
	}
}

// StructuredLogger returns a Fiber middleware for logging requests using zap.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		fields := []zap.Field{
			zap.Int("status", c.Response().StatusCode()),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
			zap.Duration("latency", time.Since(start)),
			zap.String("user_agent", c.Get("User-Agent")),
		}
		if uid := UserID(c); uid != "" {
			fields = append(fields, zap.String("user_id", uid))
		}

		log := observability.L(c.UserContext())
		if err != nil {
			log.Error("request failed", append(fields, zap.Error(err))...)
		} else {
			log.Info("request processed", fields...)
		}

		return err
	}
}
