package interceptors

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type CtxKey string

const (
	CtxRequestID CtxKey = "request_id"
	CtxAuthToken CtxKey = "auth_token"
)

// HeaderRequestID — заголовок корреляции запросов.
const HeaderRequestID = "X-Request-Id"

// TokenSource отдаёт текущий токен доступа, если пользователь авторизован.
type TokenSource interface {
	Token() (string, bool)
}

// RequestID достаёт request id из контекста.
func RequestID(ctx context.Context) string {
	if v := ctx.Value(CtxRequestID); v != nil {
		if rid, _ := v.(string); rid != "" {
			return rid
		}
	}

	return ""
}

// WithMetadata — добавляет в исходящий запрос заголовки:
//   - X-Request-Id (из контекста или новый UUID);
//   - Authorization: Bearer <token> (из контекста, иначе из tokens);
//   - User-Agent (если передан параметром).
//
// Исходный запрос не модифицируется.
func WithMetadata(userAgent string, tokens TokenSource) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			ctx := r.Context()

			rid := RequestID(ctx)
			if rid == "" {
				rid = r.Header.Get(HeaderRequestID)
			}
			if rid == "" {
				rid = uuid.NewString()
			}

			var tok string
			if v := ctx.Value(CtxAuthToken); v != nil {
				tok, _ = v.(string)
			}
			if tok == "" && tokens != nil {
				tok, _ = tokens.Token()
			}

			out := r.Clone(context.WithValue(ctx, CtxRequestID, rid))
			out.Header.Set(HeaderRequestID, rid)
			if tok != "" && out.Header.Get("Authorization") == "" {
				out.Header.Set("Authorization", "Bearer "+tok)
			}
			if userAgent != "" {
				out.Header.Set("User-Agent", userAgent)
			}

			return next.RoundTrip(out)
		})
	}
}
