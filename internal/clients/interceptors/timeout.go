package interceptors

import (
	"context"
	"time"
)

// WithRequestTimeout ограничивает запрос сроком d от текущего момента.
// Дедлайн родителя сохраняется, если он наступает раньше: срабатывает
// ближайший из двух. При d <= 0 ограничения нет.
func WithRequestTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(parent, d)
	}

	return context.WithCancel(parent)
}
