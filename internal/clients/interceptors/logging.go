package interceptors

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/go-market-search/pkg/log"
)

// WithLogging — логирование исходящих запросов.
// Поведение:
//   - берёт request_id из контекста (его кладёт WithMetadata);
//   - логгер из контекста запроса (pkg/log) главнее base;
//   - прокладывает обогащённый логгер в контекст;
//   - пишет одну финальную запись: msg="http_out", status, dur.
//
// Не логирует тела и чувствительные заголовки.
func WithLogging(base *slog.Logger) Interceptor {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()

			rid := RequestID(r.Context())
			if rid == "" {
				rid = r.Header.Get(HeaderRequestID)
			}

			parent := base
			if cl, ok := log.Lookup(r.Context()); ok {
				parent = cl
			}

			l := parent.With(
				slog.String("request_id", rid),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			r = r.WithContext(log.Into(r.Context(), l))

			resp, err := next.RoundTrip(r)

			if err != nil {
				l.Warn("http_out",
					slog.Int("status", 0),
					slog.Duration("dur", time.Since(start)),
					slog.String("err", err.Error()),
				)
				return resp, err
			}

			l.Info("http_out",
				slog.Int("status", resp.StatusCode),
				slog.Duration("dur", time.Since(start)),
			)

			return resp, nil
		})
	}
}
