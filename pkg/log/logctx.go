// Package log связывает *slog.Logger с context.Context: запросы к бэкенду и
// сессии поиска несут свой логгер с уже проставленными атрибутами.
package log

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// Into возвращает контекст с логгером l. Nil не сохраняется.
func Into(ctx context.Context, l *slog.Logger) context.Context {
	if l == nil {
		return ctx
	}

	return context.WithValue(ctx, loggerKey{}, l)
}

// Lookup — логгер, сохранённый в ctx через Into.
func Lookup(ctx context.Context) (*slog.Logger, bool) {
	if ctx == nil {
		return nil, false
	}

	l, ok := ctx.Value(loggerKey{}).(*slog.Logger)
	return l, ok
}

// From — логгер из контекста, без него slog.Default().
func From(ctx context.Context) *slog.Logger {
	if l, ok := Lookup(ctx); ok {
		return l
	}

	return slog.Default()
}

// With дополняет логгер контекста атрибутами args.
func With(ctx context.Context, args ...any) context.Context {
	return Into(ctx, From(ctx).With(args...))
}
