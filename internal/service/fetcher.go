package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apierrors "github.com/pribylovaa/go-market-search/internal/errors"
	"github.com/pribylovaa/go-market-search/internal/models"
)

// Fetcher — безопасные обёртки над Backend.
//
// Особенности:
//   - FetchExisting, FetchLatestTime и FetchRecent никогда не возвращают ошибку:
//     при сбое отдаётся пустое значение, сбой пишется в лог;
//   - FetchPage превращает битый ответ в явную пустую страницу, а сетевые
//     и HTTP-ошибки отдаёт вызывающему — только он решает, показывать ли баннер;
//   - FetchRecent не обращается к бэкенду без авторизации.
type Fetcher struct {
	api         Backend
	auth        Authorizer
	log         *slog.Logger
	recentLimit int
}

func NewFetcher(api Backend, auth Authorizer, log *slog.Logger, recentLimit int) *Fetcher {
	if log == nil {
		log = slog.Default()
	}

	return &Fetcher{api: api, auth: auth, log: log, recentLimit: recentLimit}
}

// logFailure пишет сбой запроса; отмена не считается сбоем.
func (f *Fetcher) logFailure(op, event string, err error, attrs ...slog.Attr) {
	kind := apierrors.Classify(err)

	lvl := slog.LevelWarn
	if kind == apierrors.KindCanceled {
		lvl = slog.LevelDebug
	}

	attrs = append(attrs,
		slog.String("op", op),
		slog.String("kind", kind.String()),
		slog.String("err", err.Error()),
	)
	f.log.LogAttrs(context.Background(), lvl, event, attrs...)
}

// FetchExisting — проиндексированные результаты по строке запроса; [] при любой ошибке.
func (f *Fetcher) FetchExisting(ctx context.Context, query string) []models.ResultItem {
	const op = "internal/service/fetcher/FetchExisting"

	items, err := f.api.Existing(ctx, query)
	if err != nil {
		event := "existing_fetch_failed"
		if errors.Is(err, apierrors.ErrMalformed) {
			event = "existing_malformed_response"
		}
		f.logFailure(op, event, err, slog.String("query", query))
		return []models.ResultItem{}
	}

	if items == nil {
		return []models.ResultItem{}
	}

	return models.DedupeByLink(items)
}

// FetchPage — страница канонической выдачи.
// Битый ответ — пустая страница с Malformed=true и nil-ошибкой.
func (f *Fetcher) FetchPage(ctx context.Context, q models.PageQuery) (models.Page, error) {
	const op = "internal/service/fetcher/FetchPage"

	page, err := f.api.Results(ctx, q)
	if err != nil {
		if errors.Is(err, apierrors.ErrMalformed) {
			f.logFailure(op, "page_malformed_response", err,
				slog.String("search_id", q.SearchID),
				slog.Int("page", q.Page),
			)
			return models.EmptyPage(q.Page, q.PageSize), nil
		}

		return models.Page{}, fmt.Errorf("%s: %w", op, err)
	}

	return page, nil
}

// FetchLatestTime — метаданные для баннера; nil при ошибке (баннера нет).
func (f *Fetcher) FetchLatestTime(ctx context.Context, query string) *models.LatestTime {
	const op = "internal/service/fetcher/FetchLatestTime"

	lt, err := f.api.LatestTime(ctx, query)
	if err != nil {
		f.logFailure(op, "latest_time_failed", err, slog.String("query", query))
		return nil
	}

	return lt
}

// FetchRecent — история поисков, отсортированная и обрезанная.
// ok == false, если история не запрашивалась (нет авторизации) или запрос упал;
// вызывающий в этом случае оставляет прежнюю историю.
func (f *Fetcher) FetchRecent(ctx context.Context) ([]models.RecentSearchEntry, bool) {
	const op = "internal/service/fetcher/FetchRecent"

	if f.auth == nil || !f.auth.IsAuthenticated() {
		return nil, false
	}

	entries, err := f.api.Recent(ctx, f.recentLimit)
	if err != nil {
		f.logFailure(op, "recent_fetch_failed", err)
		return nil, false
	}

	return models.SortRecent(entries, f.recentLimit), true
}

// FetchStatus — статус краулинга; ошибки отдаются как есть.
func (f *Fetcher) FetchStatus(ctx context.Context, searchID string) (models.SearchStatus, error) {
	return f.api.SearchStatus(ctx, searchID)
}

// CreateSearch — запуск нового краулинга.
func (f *Fetcher) CreateSearch(ctx context.Context, query string) (models.CreateResponse, error) {
	const op = "internal/service/fetcher/CreateSearch"

	resp, err := f.api.CreateSearch(ctx, query)
	if err != nil {
		return models.CreateResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	return resp, nil
}
