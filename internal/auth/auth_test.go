package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-market-search/internal/backendtest"
	"github.com/pribylovaa/go-market-search/internal/clients"
	"github.com/pribylovaa/go-market-search/internal/models"
)

// newGate — Gate поверх поддельного бэкенда и файла во временном каталоге.
func newGate(t *testing.T) (*Gate, *FileStore, *backendtest.Backend) {
	t.Helper()

	b := backendtest.New(t)
	store := NewFileStore(filepath.Join(t.TempDir(), "token.json"))

	c, err := clients.New(clients.Options{BaseURL: b.URL(), Timeout: 2 * time.Second, Tokens: store})
	require.NoError(t, err)

	return NewGate(c, store), store, b
}

func TestFileStore_SaveReloadClear(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "token.json")
	s := NewFileStore(path)

	_, ok := s.Token()
	require.False(t, ok)

	require.NoError(t, s.Save(models.Token{AccessToken: "abc", TokenType: "bearer"}))

	fi, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	// Новый экземпляр читает токен с диска.
	tok, ok := NewFileStore(path).Token()
	require.True(t, ok)
	require.Equal(t, "abc", tok)

	require.NoError(t, s.Clear())
	_, ok = NewFileStore(path).Token()
	require.False(t, ok)

	// Повторный Clear без файла — не ошибка.
	require.NoError(t, s.Clear())
}

func TestFileStore_CorruptFileMeansAnonymous(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, ok := NewFileStore(path).Token()
	require.False(t, ok)
}

func TestGate_LoginFlow(t *testing.T) {
	t.Parallel()

	g, _, b := newGate(t)
	b.AddUser("admin", "pw", true)
	ctx := context.Background()

	require.False(t, g.IsAuthenticated())
	require.False(t, g.CanAccessAdmin(ctx))
	// Без токена в сеть не ходим.
	_, err := g.CurrentUser(ctx)
	require.ErrorIs(t, err, ErrNoToken)
	require.Zero(t, b.Count("GET", "/api/me"))

	_, err = g.Login(ctx, "admin", "pw")
	require.NoError(t, err)
	require.True(t, g.IsAuthenticated())

	u, err := g.CurrentUser(ctx)
	require.NoError(t, err)
	require.Equal(t, "admin", u.Username)
	require.True(t, u.IsAdmin)

	require.True(t, g.CanAccessAdmin(ctx))

	require.NoError(t, g.Logout())
	require.False(t, g.IsAuthenticated())
}

func TestGate_RegisterThenLogin_NotAdmin(t *testing.T) {
	t.Parallel()

	g, _, _ := newGate(t)
	ctx := context.Background()

	_, err := g.Register(ctx, "park", "pw")
	require.NoError(t, err)
	require.False(t, g.IsAuthenticated())

	_, err = g.Login(ctx, "park", "pw")
	require.NoError(t, err)

	require.False(t, g.CanAccessAdmin(ctx))
}

// Протухший токен удаляется после 401.
func TestGate_UnauthorizedDropsToken(t *testing.T) {
	t.Parallel()

	g, store, _ := newGate(t)
	require.NoError(t, store.Save(models.Token{AccessToken: "stale"}))

	_, err := g.CurrentUser(context.Background())
	require.Error(t, err)
	require.False(t, g.IsAuthenticated())
}

func TestGate_LoginWrongPassword(t *testing.T) {
	t.Parallel()

	g, _, b := newGate(t)
	b.AddUser("kim", "pw", false)

	_, err := g.Login(context.Background(), "kim", "bad")
	require.Error(t, err)
	require.False(t, g.IsAuthenticated())
}
