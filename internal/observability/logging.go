// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the application logger. It is a no-op until InitLogger runs so
// packages can log from tests without setup.
var Logger = zap.NewNop()

// ContextKey is the type for request-scoped values picked up by L.
type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	UserIDKey    ContextKey = "user_id"
	TraceIDKey   ContextKey = "trace_id"
)

// InitLogger builds the global logger. format "text" selects the console
// encoder; anything else logs JSON.
func InitLogger(level, format string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	var zapConfig zap.Config
	if format == "text" {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zapConfig.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := zapConfig.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return nil, err
	}

	Logger = logger
	zap.ReplaceGlobals(logger)
	return logger, nil
}

// WithComponent adds component name to logger
func WithComponent(component string) *zap.Logger {
	return Logger.With(zap.String("component", component))
}

// L returns the global logger carrying the request, user and trace ids found
// in ctx.
func L(ctx context.Context) *zap.Logger {
	return FromContext(ctx, Logger)
}

// FromContext decorates base with the ids found in ctx.
func FromContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	if ctx == nil {
		return base
	}
	var fields []zap.Field
	if rid, ok := ctx.Value(RequestIDKey).(string); ok && rid != "" {
		fields = append(fields, zap.String("request_id", rid))
	}
	if uid, ok := ctx.Value(UserIDKey).(string); ok && uid != "" {
		fields = append(fields, zap.String("user_id", uid))
	}
	if tid, ok := ctx.Value(TraceIDKey).(string); ok && tid != "" {
		fields = append(fields, zap.String("trace_id", tid))
	}
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
