package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/teeny-box/teenybox-server/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestDSN(t *testing.T) {
	cfg := &config.Config{
		DBHost:     "db",
		DBPort:     "5433",
		DBUser:     "u",
		DBPassword: "p",
		DBName:     "teenybox",
	}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=teenybox sslmode=disable", DSN(cfg))

	cfg.DBSSLMode = "require"
	assert.Contains(t, DSN(cfg), "sslmode=require")
}

func TestGormLogger_Trace(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewGormLogger(zap.New(core))
	ctx := context.Background()
	sql := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(ctx, time.Now(), sql, gorm.ErrRecordNotFound)
	assert.Equal(t, 0, logs.Len(), "record not found is ignored")

	l.Trace(ctx, time.Now(), sql, errors.New("boom"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "gorm query error", logs.All()[0].Message)

	l.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "gorm slow query", logs.All()[1].Message)

	l.Trace(ctx, time.Now(), sql, nil)
	assert.Equal(t, 2, logs.Len(), "fast queries are quiet at warn level")

	l.LogMode(logger.Silent).Trace(ctx, time.Now(), sql, errors.New("boom"))
	assert.Equal(t, 2, logs.Len())
}

func TestClose(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	assert.NoError(t, Close(db))
}
