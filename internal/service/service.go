// service содержит ядро клиента поиска: оркестратор поисковой сессии,
// опрос статуса краулинга, безопасные обёртки над API и восстановление search ID.
package service

import (
	"context"
	"errors"

	"github.com/pribylovaa/go-market-search/internal/models"
)

//go:generate mockgen -source=service.go -destination=../../mocks/service.go -package=mocks

var (
	// ErrEmptyQuery — запрос пуст после trim.
	ErrEmptyQuery = errors.New("empty query")
	// ErrNoSearchID — операция требует search ID, а его ещё нет.
	ErrNoSearchID = errors.New("search id is not known yet")
	// ErrSessionReplaced — сессию заменили, пока операция выполнялась.
	ErrSessionReplaced = errors.New("search session replaced")
	// ErrDegraded — search ID восстановить не удалось: фильтры и пагинация недоступны.
	ErrDegraded = errors.New("search session is degraded")
	// ErrClosed — оркестратор закрыт.
	ErrClosed = errors.New("orchestrator closed")
)

// Backend — API бэкенда поиска, которым пользуется ядро.
type Backend interface {
	CreateSearch(ctx context.Context, query string) (models.CreateResponse, error)
	SearchStatus(ctx context.Context, searchID string) (models.SearchStatus, error)
	Existing(ctx context.Context, query string) ([]models.ResultItem, error)
	Results(ctx context.Context, q models.PageQuery) (models.Page, error)
	Recent(ctx context.Context, limit int) ([]models.RecentSearchEntry, error)
	LatestTime(ctx context.Context, query string) (*models.LatestTime, error)
}

// Authorizer — проверка авторизации без сетевых вызовов.
type Authorizer interface {
	IsAuthenticated() bool
}
