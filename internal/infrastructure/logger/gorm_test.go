package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func traceQuery(l *GormLogger, ctx context.Context, elapsed time.Duration, err error) {
	l.Trace(ctx, time.Now().Add(-elapsed), func() (string, int64) {
		return "UPDATE books SET available_quantity = available_quantity - 1 WHERE id = 'x'", 1
	}, err)
}

func TestGormLogger_Trace(t *testing.T) {
	t.Run("query text is withheld by default", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Info)

		traceQuery(l, context.Background(), time.Millisecond, nil)

		logs := recorded.FilterMessage("SQL query").All()
		require.Len(t, logs, 1)
		fields := logs[0].ContextMap()
		assert.Equal(t, "UPDATE", fields["operation"])
		assert.NotContains(t, fields, "sql")
	})

	t.Run("full sql when enabled", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Info, WithFullSQL(true))

		traceQuery(l, WithRequestID(context.Background(), "req-7"), time.Millisecond, nil)

		fields := recorded.All()[0].ContextMap()
		assert.Contains(t, fields["sql"], "available_quantity")
		assert.Equal(t, "req-7", fields["request_id"])
	})

	t.Run("slow statements warn", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Warn, WithSlowThreshold(10*time.Millisecond))

		traceQuery(l, context.Background(), time.Second, nil)

		logs := recorded.FilterMessage("Slow SQL").All()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
	})

	t.Run("errors are logged but record not found is ignored", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Error)

		traceQuery(l, context.Background(), time.Millisecond, gormlogger.ErrRecordNotFound)
		assert.Empty(t, recorded.All())

		traceQuery(l, context.Background(), time.Millisecond, errors.New("deadlock detected"))
		logs := recorded.FilterMessage("SQL error").All()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.ErrorLevel, logs[0].Level)
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Silent)

		traceQuery(l, context.Background(), time.Second, errors.New("x"))
		l.Info(context.Background(), "hello %s", "world")
		assert.Empty(t, recorded.All())
	})
}

func TestGormLogger_LogMode(t *testing.T) {
	l := NewGormLogger(zap.NewNop(), gormlogger.Info)
	quiet, ok := l.LogMode(gormlogger.Silent).(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Silent, quiet.logLevel)
	assert.Equal(t, gormlogger.Info, l.logLevel)
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("ERROR"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel(""))
}
