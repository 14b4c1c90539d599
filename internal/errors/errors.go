// errors классифицирует ошибки обращения к бэкенду поиска и превращает их
// в короткое безопасное сообщение для пользователя.
//
// Категории:
//   - KindNetwork — ответа нет (соединение, DNS, обрыв);
//   - KindHTTP — бэкенд ответил не-2xx;
//   - KindUnauthorized — 401, нужна авторизация;
//   - KindMalformed — тело не той формы (нет полей, не массив);
//   - KindTimeout — истёк дедлайн запроса;
//   - KindCanceled — запрос отменён вызывающим (смена сессии, закрытие);
//   - KindUnknown — всё остальное.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindHTTP
	KindUnauthorized
	KindMalformed
	KindTimeout
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	case KindUnauthorized:
		return "unauthorized"
	case KindMalformed:
		return "malformed"
	case KindTimeout:
		return "timeout"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Пользовательские сообщения.
const (
	MsgAuthRequired = "authentication required, please log in again"
	MsgConnectivity = "could not reach the search server, check your connection"
	MsgUnknown      = "something went wrong, please try again"
)

// ErrMalformed — ответ не той формы, что ожидалась.
var ErrMalformed = stderrors.New("malformed response")

// HTTPError — не-2xx ответ бэкенда.
type HTTPError struct {
	Status int
	// Detail — поле detail/message из тела, если бэкенд его прислал.
	Detail string
}

func (e *HTTPError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("http status %d", e.Status)
	}

	return fmt.Sprintf("http status %d: %s", e.Status, e.Detail)
}

// NewHTTPError собирает HTTPError, вытаскивая detail из JSON-тела.
// detail бывает строкой или массивом объектов валидации — берём только строку.
func NewHTTPError(status int, body []byte) *HTTPError {
	var payload struct {
		Detail  any    `json:"detail"`
		Message string `json:"message"`
	}

	e := &HTTPError{Status: status}
	if err := json.Unmarshal(body, &payload); err != nil {
		return e
	}

	if s, ok := payload.Detail.(string); ok && s != "" {
		e.Detail = s
		return e
	}

	e.Detail = payload.Message
	return e
}

// Classify относит ошибку к одной из категорий.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	if stderrors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var he *HTTPError
	if stderrors.As(err, &he) {
		if he.Status == http.StatusUnauthorized {
			return KindUnauthorized
		}
		return KindHTTP
	}

	if stderrors.Is(err, ErrMalformed) {
		return KindMalformed
	}

	var ne net.Error
	if stderrors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}

	var ue *url.Error
	if stderrors.As(err, &ue) {
		return KindNetwork
	}

	var oe *net.OpError
	if stderrors.As(err, &oe) {
		return KindNetwork
	}

	return KindUnknown
}

// UserMessage — текст для баннера ошибки.
// Возвращает "" для отмены: отменённый запрос пользователю не показывается.
func UserMessage(err error) string {
	switch Classify(err) {
	case KindCanceled:
		return ""
	case KindUnauthorized:
		return MsgAuthRequired
	case KindHTTP:
		var he *HTTPError
		stderrors.As(err, &he)
		detail := strings.TrimSpace(he.Detail)
		if detail == "" {
			detail = "unknown error"
		}
		return fmt.Sprintf("server error (%d): %s", he.Status, detail)
	case KindNetwork, KindTimeout:
		return MsgConnectivity
	default:
		return MsgUnknown
	}
}

// IsUnauthorized — короткий хелпер для auth-слоя.
func IsUnauthorized(err error) bool {
	return Classify(err) == KindUnauthorized
}
