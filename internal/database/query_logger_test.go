package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func observedQueryLogger(level logger.LogLevel) (*queryLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return newQueryLogger(zap.New(core), level, 50*time.Millisecond), logs
}

func statement() (string, int64) { return "SELECT * FROM members", 3 }

func TestQueryLoggerReportsSlowStatements(t *testing.T) {
	l, logs := observedQueryLogger(logger.Warn)

	l.Trace(context.Background(), time.Now(), statement, nil)
	require.Zero(t, logs.Len())

	l.Trace(context.Background(), time.Now().Add(-time.Second), statement, nil)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	require.Equal(t, "slow query", entry.Message)
	require.Equal(t, "SELECT * FROM members", entry.ContextMap()["sql"])
	require.Equal(t, int64(3), entry.ContextMap()["rows"])
}

func TestQueryLoggerHidesRoutineFailuresAtWarn(t *testing.T) {
	l, logs := observedQueryLogger(logger.Warn)
	l.Trace(context.Background(), time.Now(), statement, errors.New("UNIQUE constraint failed"))
	require.Zero(t, logs.Len())

	debug := l.LogMode(logger.Info)
	debug.Trace(context.Background(), time.Now(), statement, errors.New("UNIQUE constraint failed"))
	debug.Trace(context.Background(), time.Now(), statement, gorm.ErrRecordNotFound)
	require.Equal(t, 2, logs.Len())
	require.Equal(t, "query failed", logs.All()[0].Message)
	require.Equal(t, "query", logs.All()[1].Message)
}

func TestQueryLoggerSilent(t *testing.T) {
	l, logs := observedQueryLogger(logger.Silent)
	l.Trace(context.Background(), time.Now().Add(-time.Minute), statement, nil)
	l.Warn(context.Background(), "pool %d exhausted", 3)
	require.Zero(t, logs.Len())

	loud := l.LogMode(logger.Warn)
	loud.Warn(context.Background(), "pool %d exhausted", 3)
	require.Equal(t, "pool 3 exhausted", logs.All()[0].Message)
}
