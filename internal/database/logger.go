package database

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	applog "storesync/internal/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// gormLogger sends GORM's output through the service logger. Lookups that
// find nothing are normal for upserts and are not reported.
type gormLogger struct {
	log   *applog.Logger
	level logger.LogLevel
}

func newGormLogger(log *applog.Logger, level logger.LogLevel) logger.Interface {
	return &gormLogger{log: log.With("component", "gorm"), level: level}
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Info {
		l.log.Info(msg, data...)
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Warn {
		l.log.Warn(msg, data...)
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Error {
		l.log.Error(msg, data...)
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	ms := float64(elapsed.Nanoseconds()) / 1e6
	switch {
	case err != nil && l.level >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.log.Error("%v [%.3fms] [rows:%d] %s", err, ms, rows, sql)
	case elapsed > slowQueryThreshold && l.level >= logger.Warn:
		sql, rows := fc()
		l.log.Warn("SLOW SQL >= %v [%.3fms] [rows:%d] %s", slowQueryThreshold, ms, rows, sql)
	case l.level == logger.Info:
		sql, rows := fc()
		l.log.Debug("[%.3fms] [rows:%d] %s", ms, rows, sql)
	}
}
