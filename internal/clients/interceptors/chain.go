// interceptors предоставляет набор http.RoundTripper-интерсепторов
// для исходящих запросов к бэкенду поиска.
package interceptors

import "net/http"

// Interceptor оборачивает следующий транспорт.
type Interceptor func(next http.RoundTripper) http.RoundTripper

// RoundTripperFunc — адаптер функции к http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Chain собирает цепочку: первый интерсептор — внешний.
// Chain(base, a, b) выполняет a -> b -> base.
func Chain(base http.RoundTripper, in ...Interceptor) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	rt := base
	for i := len(in) - 1; i >= 0; i-- {
		rt = in[i](rt)
	}

	return rt
}
