package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	apierrors "github.com/pribylovaa/go-market-search/internal/errors"
	"github.com/pribylovaa/go-market-search/internal/models"
	"github.com/pribylovaa/go-market-search/mocks"
)

// newFetcher — Fetcher на моках; лог пишется в capHandler.
func newFetcher(t *testing.T, authed bool) (*Fetcher, *mocks.MockBackend, *capHandler) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	api := mocks.NewMockBackend(ctrl)
	h := newCapHandler()

	return NewFetcher(api, newAuth(authed), slog.New(h), 40), api, h
}

// TestFetchExisting_DedupesByLink — дубликаты по link схлопываются.
func TestFetchExisting_DedupesByLink(t *testing.T) {
	t.Parallel()

	f, api, _ := newFetcher(t, false)

	a := models.ResultItem{Link: "a", Title: "old"}
	b := models.ResultItem{Link: "b"}
	a2 := models.ResultItem{Link: "a", Title: "new"}

	api.EXPECT().Existing(gomock.Any(), "노트북").Return([]models.ResultItem{a, b, a2}, nil)

	got := f.FetchExisting(context.Background(), "노트북")
	require.Equal(t, []string{"a", "b"}, links(got))
	require.Equal(t, "new", got[0].Title)
}

// TestFetchExisting_ErrorIsEmpty — любая ошибка -> пустой срез, не nil.
func TestFetchExisting_ErrorIsEmpty(t *testing.T) {
	t.Parallel()

	f, api, h := newFetcher(t, false)

	api.EXPECT().Existing(gomock.Any(), "q").Return(nil, errors.New("dial tcp: refused"))

	got := f.FetchExisting(context.Background(), "q")
	require.NotNil(t, got)
	require.Empty(t, got)
	require.Equal(t, 1, h.count("existing_fetch_failed"))
}

// TestFetchExisting_MalformedLoggedAsWarning — не-массив пишется отдельным событием.
func TestFetchExisting_MalformedLoggedAsWarning(t *testing.T) {
	t.Parallel()

	f, api, h := newFetcher(t, false)

	api.EXPECT().Existing(gomock.Any(), "q").
		Return(nil, fmt.Errorf("decode: %w", apierrors.ErrMalformed))

	require.Empty(t, f.FetchExisting(context.Background(), "q"))

	rec, ok := h.last("existing_malformed_response")
	require.True(t, ok)
	require.Equal(t, slog.LevelWarn, rec.lvl)
	require.Equal(t, "malformed", rec.attrs["kind"])
}

// TestFetchPage_MalformedIsEmptyPage — битый ответ -> пустая страница без ошибки.
func TestFetchPage_MalformedIsEmptyPage(t *testing.T) {
	t.Parallel()

	f, api, _ := newFetcher(t, false)

	q := models.PageQuery{SearchID: "abc", Page: 3, PageSize: 20}
	api.EXPECT().Results(gomock.Any(), q).
		Return(models.Page{}, fmt.Errorf("missing results or pagination field: %w", apierrors.ErrMalformed))

	page, err := f.FetchPage(context.Background(), q)
	require.NoError(t, err)
	require.True(t, page.Malformed)
	require.Empty(t, page.Items)
	require.Equal(t, 3, page.Pagination.CurrentPage)
	require.Equal(t, 20, page.Pagination.PageSize)
	require.False(t, page.Pagination.HasNext)
}

// TestFetchPage_HTTPErrorPropagates — HTTP-ошибка отдаётся вызывающему.
func TestFetchPage_HTTPErrorPropagates(t *testing.T) {
	t.Parallel()

	f, api, _ := newFetcher(t, false)

	api.EXPECT().Results(gomock.Any(), gomock.Any()).
		Return(models.Page{}, &apierrors.HTTPError{Status: http.StatusInternalServerError, Detail: "boom"})

	_, err := f.FetchPage(context.Background(), models.PageQuery{SearchID: "abc", Page: 1, PageSize: 20})
	require.Error(t, err)
	require.Equal(t, apierrors.KindHTTP, apierrors.Classify(err))
}

// TestFetchLatestTime_ErrorIsNil — ошибка -> nil (баннера нет).
func TestFetchLatestTime_ErrorIsNil(t *testing.T) {
	t.Parallel()

	f, api, _ := newFetcher(t, false)

	api.EXPECT().LatestTime(gomock.Any(), "q").Return(nil, errors.New("boom"))
	require.Nil(t, f.FetchLatestTime(context.Background(), "q"))
}

// TestFetchRecent_AnonymousNeverCalls — без авторизации /recent не запрашивается.
func TestFetchRecent_AnonymousNeverCalls(t *testing.T) {
	t.Parallel()

	f, _, _ := newFetcher(t, false)

	entries, ok := f.FetchRecent(context.Background())
	require.False(t, ok)
	require.Nil(t, entries)
}

// TestFetchRecent_SortsAndCaps — новые сверху, не больше recentLimit.
func TestFetchRecent_SortsAndCaps(t *testing.T) {
	t.Parallel()

	f, api, _ := newFetcher(t, true)

	in := make([]models.RecentSearchEntry, 45)
	for i := range in {
		in[i] = models.RecentSearchEntry{
			ID:        models.FlexString(fmt.Sprint(i)),
			Query:     fmt.Sprintf("q%d", i),
			CreatedAt: fmt.Sprintf("2025-01-01T00:%02d:00", i),
		}
	}

	api.EXPECT().Recent(gomock.Any(), 40).Return(in, nil)

	got, ok := f.FetchRecent(context.Background())
	require.True(t, ok)
	require.Len(t, got, 40)
	require.Equal(t, "q44", got[0].Query)
	require.Equal(t, "q5", got[39].Query)
}

// TestFetchRecent_ErrorNotOK — ошибка -> ok=false, история не меняется вызывающим.
func TestFetchRecent_ErrorNotOK(t *testing.T) {
	t.Parallel()

	f, api, h := newFetcher(t, true)

	api.EXPECT().Recent(gomock.Any(), 40).Return(nil, &apierrors.HTTPError{Status: http.StatusUnauthorized})

	_, ok := f.FetchRecent(context.Background())
	require.False(t, ok)
	require.Equal(t, 1, h.count("recent_fetch_failed"))
}

// TestFetch_CanceledLoggedAtDebug — отмена не считается сбоем.
func TestFetch_CanceledLoggedAtDebug(t *testing.T) {
	t.Parallel()

	f, api, h := newFetcher(t, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	api.EXPECT().Existing(gomock.Any(), "q").Return(nil, ctx.Err())
	require.Empty(t, f.FetchExisting(ctx, "q"))

	rec, ok := h.last("existing_fetch_failed")
	require.True(t, ok)
	require.Equal(t, slog.LevelDebug, rec.lvl)
}
