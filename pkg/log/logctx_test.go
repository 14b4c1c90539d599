package log

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestIntoFrom — сохранённый логгер возвращается как есть.
func TestIntoFrom(t *testing.T) {
	t.Parallel()

	l := discard()
	ctx := Into(context.Background(), l)

	got, ok := Lookup(ctx)
	require.True(t, ok)
	require.Same(t, l, got)
	require.Same(t, l, From(ctx))
}

// TestFrom_Default — без логгера в контексте используется slog.Default().
func TestFrom_Default(t *testing.T) {
	t.Parallel()

	_, ok := Lookup(context.Background())
	require.False(t, ok)
	require.Same(t, slog.Default(), From(context.Background()))
}

// TestInto_NilKeepsParent — nil не затирает логгер родителя.
func TestInto_NilKeepsParent(t *testing.T) {
	t.Parallel()

	l := discard()
	ctx := Into(Into(context.Background(), l), nil)

	require.Same(t, l, From(ctx))
}

// TestWith_AddsAttrs — With не меняет логгер родительского контекста.
func TestWith_AddsAttrs(t *testing.T) {
	t.Parallel()

	l := discard()
	parent := Into(context.Background(), l)
	child := With(parent, slog.String("search_id", "s-1"))

	require.Same(t, l, From(parent))
	require.NotSame(t, l, From(child))
}
