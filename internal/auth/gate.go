package auth

import (
	"context"
	"fmt"
	"log/slog"

	apierrors "github.com/pribylovaa/go-market-search/internal/errors"
	"github.com/pribylovaa/go-market-search/internal/models"
	"github.com/pribylovaa/go-market-search/pkg/log"
)

// API — эндпойнты авторизации бэкенда.
type API interface {
	Login(ctx context.Context, username, password string) (models.Token, error)
	Register(ctx context.Context, username, password string) (models.Registration, error)
	Me(ctx context.Context) (models.User, error)
	CheckAdmin(ctx context.Context) (bool, error)
}

// Store — долговременное хранилище токена.
type Store interface {
	Token() (string, bool)
	Save(models.Token) error
	Clear() error
}

// Gate — проверки авторизации для остальных компонентов.
type Gate struct {
	api   API
	store Store
}

func NewGate(api API, store Store) *Gate {
	return &Gate{api: api, store: store}
}

// IsAuthenticated — есть ли сохранённый токен. Сеть не используется.
func (g *Gate) IsAuthenticated() bool {
	_, ok := g.store.Token()
	return ok
}

// Token отдаёт токен для интерсептора метаданных.
func (g *Gate) Token() (string, bool) {
	return g.store.Token()
}

// Login получает токен и сохраняет его.
func (g *Gate) Login(ctx context.Context, username, password string) (models.Token, error) {
	const op = "internal/auth/gate/Login"

	ctx = log.With(ctx, slog.String("op", op))
	tok, err := g.api.Login(ctx, username, password)
	if err != nil {
		return models.Token{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := g.store.Save(tok); err != nil {
		return models.Token{}, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("login_ok", slog.String("username", tok.Username))
	return tok, nil
}

// Register создаёт пользователя. Вход после регистрации — отдельный вызов Login.
func (g *Gate) Register(ctx context.Context, username, password string) (models.Registration, error) {
	const op = "internal/auth/gate/Register"

	reg, err := g.api.Register(ctx, username, password)
	if err != nil {
		return models.Registration{}, fmt.Errorf("%s: %w", op, err)
	}

	return reg, nil
}

// Logout забывает токен.
func (g *Gate) Logout() error {
	return g.store.Clear()
}

// CurrentUser — текущий пользователь. Без токена запрос не отправляется.
// На 401 токен считается протухшим и удаляется.
func (g *Gate) CurrentUser(ctx context.Context) (models.User, error) {
	const op = "internal/auth/gate/CurrentUser"

	if !g.IsAuthenticated() {
		return models.User{}, fmt.Errorf("%s: %w", op, ErrNoToken)
	}

	u, err := g.api.Me(ctx)
	if err != nil {
		g.dropOnUnauthorized(ctx, err)
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

// CheckAdminStatus — признак администратора с бэкенда.
func (g *Gate) CheckAdminStatus(ctx context.Context) (bool, error) {
	const op = "internal/auth/gate/CheckAdminStatus"

	if !g.IsAuthenticated() {
		return false, fmt.Errorf("%s: %w", op, ErrNoToken)
	}

	ok, err := g.api.CheckAdmin(ctx)
	if err != nil {
		g.dropOnUnauthorized(ctx, err)
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return ok, nil
}

// CanAccessAdmin — true только для авторизованного администратора.
// Любая ошибка означает "нет доступа".
func (g *Gate) CanAccessAdmin(ctx context.Context) bool {
	const op = "internal/auth/gate/CanAccessAdmin"

	ok, err := g.CheckAdminStatus(ctx)
	if err != nil {
		log.From(ctx).Debug("admin_check_failed", slog.String("op", op), slog.String("err", err.Error()))
		return false
	}

	return ok
}

func (g *Gate) dropOnUnauthorized(ctx context.Context, err error) {
	if !apierrors.IsUnauthorized(err) {
		return
	}

	if cerr := g.store.Clear(); cerr != nil {
		log.From(ctx).Warn("token_clear_failed", slog.String("err", cerr.Error()))
	}
}
