package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gormlogger "gorm.io/gorm/logger"
)

// Gorm adapts slog to gorm. Queries log through the logger on the query's
// context, falling back to base. Missing rows are an ordinary lookup result
// and are not logged.
func Gorm(base *slog.Logger, slow time.Duration) gormlogger.Interface {
	return &gormLogger{base: base, level: gormlogger.Warn, slow: slow}
}

type gormLogger struct {
	base  *slog.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

func (g *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *g
	c.level = level
	return &c
}

func (g *gormLogger) Info(ctx context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Info {
		g.logger(ctx).Info("db_message", "detail", fmt.Sprintf(msg, args...))
	}
}

func (g *gormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Warn {
		g.logger(ctx).Warn("db_message", "detail", fmt.Sprintf(msg, args...))
	}
}

func (g *gormLogger) Error(ctx context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Error {
		g.logger(ctx).Error("db_message", "detail", fmt.Sprintf(msg, args...))
	}
}

func (g *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && g.level >= gormlogger.Error && !errors.Is(err, gormlogger.ErrRecordNotFound):
		sql, rows := fc()
		g.logger(ctx).Error("db_query_failed", "sql", sql, "rows", rows, "duration_ms", elapsed.Milliseconds(), "error", err)
	case g.slow > 0 && elapsed > g.slow && g.level >= gormlogger.Warn:
		sql, rows := fc()
		g.logger(ctx).Warn("db_query_slow", "sql", sql, "rows", rows, "duration_ms", elapsed.Milliseconds())
	case g.level >= gormlogger.Info:
		sql, rows := fc()
		g.logger(ctx).Debug("db_query", "sql", sql, "rows", rows, "duration_ms", elapsed.Milliseconds())
	}
}

func (g *gormLogger) logger(ctx context.Context) *slog.Logger {
	if l, ok := fromContext(ctx); ok {
		return l
	}
	return g.base
}
