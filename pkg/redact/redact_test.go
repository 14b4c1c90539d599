package redact

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToken(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", Token(""))
	require.Equal(t, "***", Token("short"))
	require.Equal(t, "***wxyz", Token("abcdefghijklmnopqrstuvwxyz"))
}

// Authorization маскируется, остальное копируется как есть.
func TestHeader(t *testing.T) {
	t.Parallel()

	h := http.Header{}
	h.Set("Authorization", "Bearer secret-token")
	h.Set("X-Request-Id", "rid-1")

	out := Header(h)
	require.Equal(t, "***", out.Get("Authorization"))
	require.Equal(t, "rid-1", out.Get("X-Request-Id"))
	require.Equal(t, "Bearer secret-token", h.Get("Authorization"))
}
