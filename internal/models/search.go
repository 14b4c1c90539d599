package models

import (
	"net/http"
	"slices"
)

// SortBy — порядок сортировки канонической выдачи.
type SortBy string

const (
	SortCreatedAtDesc SortBy = "created_at_desc"
	SortPriceAsc      SortBy = "price_asc"
)

// Valid сообщает, поддерживает ли бэкенд такой порядок.
func (s SortBy) Valid() bool {
	return s == SortCreatedAtDesc || s == SortPriceAsc
}

// Mode — режим поисковой сессии.
//   - ModeNew — только что запущен новый краулинг;
//   - ModeExisting — показываются ранее посчитанные результаты.
type Mode string

const (
	ModeNew      Mode = "new"
	ModeExisting Mode = "existing"
)

// CategorySet — множество выбранных категорий в порядке выбора.
// Методы не мутируют получателя, а возвращают новое значение.
type CategorySet []int

// Toggle добавляет id, если его нет, и убирает, если он уже выбран.
func (c CategorySet) Toggle(id int) CategorySet {
	if idx := slices.Index(c, id); idx >= 0 {
		out := make(CategorySet, 0, len(c)-1)
		out = append(out, c[:idx]...)
		return append(out, c[idx+1:]...)
	}

	out := make(CategorySet, 0, len(c)+1)
	out = append(out, c...)
	return append(out, id)
}

func (c CategorySet) Contains(id int) bool { return slices.Contains(c, id) }

func (c CategorySet) Clone() CategorySet {
	if len(c) == 0 {
		return nil
	}
	return slices.Clone(c)
}

// Equal — сравнение как множеств (порядок не важен).
func (c CategorySet) Equal(other CategorySet) bool {
	if len(c) != len(other) {
		return false
	}

	a, b := slices.Clone(c), slices.Clone(other)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}

// Filters — состояние фильтров и сортировки.
// SortBy и OnlyAvailable переживают смену сессии, Categories — нет.
type Filters struct {
	SortBy        SortBy
	OnlyAvailable bool
	Categories    CategorySet
}

// DefaultFilters — фильтры по умолчанию: свежие сверху, все статусы, все категории.
func DefaultFilters() Filters {
	return Filters{SortBy: SortCreatedAtDesc}
}

func (f Filters) Clone() Filters {
	f.Categories = f.Categories.Clone()
	return f
}

func (f Filters) Equal(other Filters) bool {
	return f.SortBy == other.SortBy &&
		f.OnlyAvailable == other.OnlyAvailable &&
		f.Categories.Equal(other.Categories)
}

// SearchStatus — прогресс фонового краулинга по search ID.
type SearchStatus struct {
	SearchID             string  `json:"search_id"`
	TotalProcesses       int     `json:"total_processes"`
	CompletedProcesses   int     `json:"completed_processes"`
	FailedProcesses      *int    `json:"failed_processes,omitempty"`
	CompletionPercentage float64 `json:"completion_percentage"`
	TotalItemsFound      int     `json:"total_items_found"`
	IsCompleted          bool    `json:"is_completed"`
	ErrorProcesses       []any   `json:"error_processes,omitempty"`
	PlaceParamsCount     int     `json:"place_params_count,omitempty"`
}

// Terminal — после такого статуса опрос для данного search ID не продолжается.
func (s SearchStatus) Terminal() bool {
	return s.IsCompleted || s.CompletionPercentage >= 100
}

// Pagination — метаданные страницы канонической выдачи.
type Pagination struct {
	CurrentPage int  `json:"current_page"`
	TotalPages  int  `json:"total_pages"`
	PageSize    int  `json:"page_size"`
	TotalItems  int  `json:"total_items"`
	HasNext     bool `json:"has_next"`
	HasPrev     bool `json:"has_prev"`
}

// EmptyPagination — пагинация пустой страницы.
func EmptyPagination(page, pageSize int) Pagination {
	return Pagination{CurrentPage: page, PageSize: pageSize}
}

// PageQuery — параметры запроса одной страницы по search ID.
type PageQuery struct {
	SearchID      string
	Page          int
	PageSize      int
	SortBy        SortBy
	OnlyAvailable bool
	Categories    CategorySet
}

// Page — одна страница канонической выдачи.
//
// Особенности:
//   - Malformed == true, если бэкенд вернул ответ без results/pagination;
//     в этом случае Items пуст, а Pagination — пустая, но валидная;
//   - CategoryCounts заполняется бэкендом и нужен только для боковой панели.
type Page struct {
	Items          []ResultItem
	Pagination     Pagination
	CategoryCounts map[int]int
	Malformed      bool
}

// EmptyPage — явная пустая страница вместо ошибки.
func EmptyPage(page, pageSize int) Page {
	return Page{Pagination: EmptyPagination(page, pageSize), Malformed: true}
}

// CreateResponse — ответ на запуск нового поиска.
// Items — первые результаты, Header — заголовки ответа (там может быть search ID).
type CreateResponse struct {
	Items  []ResultItem
	Header http.Header
}

// LatestTime — время последнего реального краулинга по запросу.
type LatestTime struct {
	Query      string  `json:"query"`
	HasResults bool    `json:"has_results"`
	LatestTime *string `json:"latest_time"`
}

// HasBanner — показывать ли баннер "результаты на момент ...".
func (l *LatestTime) HasBanner() bool {
	return l != nil && l.LatestTime != nil && *l.LatestTime != ""
}
