package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"canceled", fmt.Errorf("op: %w", context.Canceled), KindCanceled},
		{"deadline", fmt.Errorf("op: %w", context.DeadlineExceeded), KindTimeout},
		{"net_timeout", &url.Error{Op: "Get", URL: "http://x", Err: timeoutErr{}}, KindTimeout},
		{"unauthorized", fmt.Errorf("op: %w", &HTTPError{Status: 401}), KindUnauthorized},
		{"http_500", &HTTPError{Status: 500}, KindHTTP},
		{"malformed", fmt.Errorf("op: %w", ErrMalformed), KindMalformed},
		{"url_error", &url.Error{Op: "Get", URL: "http://x", Err: stderrors.New("connection refused")}, KindNetwork},
		{"op_error", &net.OpError{Op: "dial", Err: stderrors.New("refused")}, KindNetwork},
		{"other", stderrors.New("boom"), KindUnknown},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestUserMessage(t *testing.T) {
	t.Parallel()

	require.Equal(t, MsgAuthRequired, UserMessage(&HTTPError{Status: 401}))
	require.Equal(t, "server error (502): bad gateway", UserMessage(&HTTPError{Status: 502, Detail: "bad gateway"}))
	require.Equal(t, "server error (500): unknown error", UserMessage(fmt.Errorf("wrap: %w", &HTTPError{Status: 500})))
	require.Equal(t, MsgConnectivity, UserMessage(&url.Error{Op: "Get", URL: "u", Err: stderrors.New("refused")}))
	require.Equal(t, MsgConnectivity, UserMessage(context.DeadlineExceeded))
	require.Equal(t, "", UserMessage(context.Canceled))
	require.Equal(t, MsgUnknown, UserMessage(stderrors.New("boom")))
}

// detail берётся из тела, если это строка; иначе — message.
func TestNewHTTPError(t *testing.T) {
	t.Parallel()

	e := NewHTTPError(404, []byte(`{"detail": "search not found"}`))
	require.Equal(t, "search not found", e.Detail)

	e = NewHTTPError(422, []byte(`{"detail": [{"loc": ["query"]}], "message": "invalid"}`))
	require.Equal(t, "invalid", e.Detail)

	e = NewHTTPError(500, []byte(`<html>oops</html>`))
	require.Empty(t, e.Detail)
	require.Equal(t, "http status 500", e.Error())
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "timeout", KindTimeout.String())
	require.Equal(t, "unknown", Kind(99).String())
}
