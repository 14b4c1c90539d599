package service

import (
	"maps"

	"github.com/pribylovaa/go-market-search/internal/models"
)

// session — единственный источник правды о текущем поиске.
// Производные флаги (загрузка, деградация, завершение) вычисляются из полей.
type session struct {
	seq   uint64
	query string
	mode  models.Mode

	searchID string
	// degraded — ни одна стратегия не восстановила search ID.
	degraded bool
	status   *models.SearchStatus

	results        []models.ResultItem
	pagination     *models.Pagination
	categoryCounts map[int]int
	// canonical — в results уже лежит страница по search ID.
	canonical bool

	filters models.Filters
	latest  *models.LatestTime

	// gen растёт при каждой перезагрузке первой страницы;
	// ответ с устаревшим gen отбрасывается.
	gen uint64
	// pending — число незавершённых основных загрузок (submit и первая страница).
	pending     int
	loadingMore bool
	loadSeq     uint64

	err string
}

// State — неизменяемый снимок сессии для подписчиков.
type State struct {
	// Version растёт с каждым изменением; подписчик может отбросить старые снимки.
	Version uint64
	Seq     uint64

	Query          string
	Mode           models.Mode
	SearchID       string
	Status         *models.SearchStatus
	Results        []models.ResultItem
	Pagination     *models.Pagination
	CategoryCounts map[int]int
	Filters        models.Filters
	LatestTime     *models.LatestTime
	Recent         []models.RecentSearchEntry
	// Error — текст баннера ошибки; "" — ошибки нет.
	Error string

	pending     int
	loadingMore bool
	degraded    bool
}

// Loading — идёт первичная загрузка (submit или первая страница).
func (s State) Loading() bool { return s.pending > 0 }

// LoadingMore — грузится следующая страница.
func (s State) LoadingMore() bool { return s.loadingMore }

// Degraded — search ID не найден, работают только сырые результаты.
func (s State) Degraded() bool { return s.degraded }

// Completed — краулинг завершён.
func (s State) Completed() bool { return s.Status != nil && s.Status.Terminal() }

// HasNext — есть следующая страница.
func (s State) HasNext() bool { return s.Pagination != nil && s.Pagination.HasNext }

// CurrentPage — номер последней загруженной страницы (0 — ещё нет).
func (s State) CurrentPage() int {
	if s.Pagination == nil {
		return 0
	}
	return s.Pagination.CurrentPage
}

// CanFilter — фильтры и пагинация по search ID доступны.
func (s State) CanFilter() bool { return s.SearchID != "" && !s.degraded }

// ShowBanner — показывать баннер "результаты на момент ...".
func (s State) ShowBanner() bool {
	return s.Mode == models.ModeExisting && s.LatestTime.HasBanner()
}

// CanResearch — доступна кнопка "искать заново".
func (s State) CanResearch() bool {
	return s.Mode == models.ModeExisting && s.Query != ""
}

// snapshot копирует сессию; срезы и map копируются, чтобы подписчик не
// увидел последующих изменений.
func (s *session) snapshot(version uint64, recent []models.RecentSearchEntry) State {
	st := State{
		Version:        version,
		Seq:            s.seq,
		Query:          s.query,
		Mode:           s.mode,
		SearchID:       s.searchID,
		Results:        append([]models.ResultItem(nil), s.results...),
		CategoryCounts: maps.Clone(s.categoryCounts),
		Filters:        s.filters.Clone(),
		Recent:         append([]models.RecentSearchEntry(nil), recent...),
		Error:          s.err,
		pending:        s.pending,
		loadingMore:    s.loadingMore,
		degraded:       s.degraded,
	}

	if s.status != nil {
		v := *s.status
		st.Status = &v
	}
	if s.pagination != nil {
		v := *s.pagination
		st.Pagination = &v
	}
	if s.latest != nil {
		v := *s.latest
		st.LatestTime = &v
	}

	return st
}

// pageQuery — запрос первой или следующей страницы с текущими фильтрами.
func (s *session) pageQuery(page, pageSize int) models.PageQuery {
	return models.PageQuery{
		SearchID:      s.searchID,
		Page:          page,
		PageSize:      pageSize,
		SortBy:        s.filters.SortBy,
		OnlyAvailable: s.filters.OnlyAvailable,
		Categories:    s.filters.Categories.Clone(),
	}
}
