package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	apierrors "github.com/pribylovaa/go-market-search/internal/errors"
	"github.com/pribylovaa/go-market-search/internal/models"
)

// CreateSearch запускает новый краулинг (POST /api/search/).
// Тело не-массив не считается ошибкой: search ID мог прийти в заголовке,
// поэтому возвращаются пустые Items и заголовки ответа.
func (c *Client) CreateSearch(ctx context.Context, query string) (models.CreateResponse, error) {
	const op = "internal/clients/search/CreateSearch"

	resp, err := c.postJSON(ctx, "/api/search/", map[string]string{"query": query})
	if err != nil {
		return models.CreateResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	var items []models.ResultItem
	if err := json.Unmarshal(resp.body, &items); err != nil {
		c.log.Warn("create_search_malformed_response",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		items = nil
	}

	return models.CreateResponse{Items: items, Header: resp.header}, nil
}

// SearchStatus — прогресс краулинга (GET /api/search/status/{id}).
func (c *Client) SearchStatus(ctx context.Context, searchID string) (models.SearchStatus, error) {
	const op = "internal/clients/search/SearchStatus"

	var st models.SearchStatus
	if err := c.getJSON(ctx, c.timeout, "/api/search/status/"+url.PathEscape(searchID), nil, &st); err != nil {
		return models.SearchStatus{}, fmt.Errorf("%s: %w", op, err)
	}

	if st.SearchID == "" {
		st.SearchID = searchID
	}

	return st, nil
}

// Existing — ранее проиндексированные результаты по строке запроса
// (GET /api/search/existing?query=). Не-массив — ErrMalformed.
func (c *Client) Existing(ctx context.Context, query string) ([]models.ResultItem, error) {
	const op = "internal/clients/search/Existing"

	var items []models.ResultItem
	if err := c.getJSON(ctx, c.existingTimeout, "/api/search/existing", url.Values{"query": {query}}, &items); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return items, nil
}

// resultsBody — ответ /api/search/results/{id}.
// Указатели отличают отсутствующее поле от пустого.
type resultsBody struct {
	Results            *[]models.ResultItem `json:"results"`
	Pagination         *models.Pagination   `json:"pagination"`
	CategoryTotalItems map[string]int       `json:"category_total_items"`
}

// ResultsQuery — query-параметры канонической выдачи.
// category_id повторяется для каждой выбранной категории.
func ResultsQuery(q models.PageQuery) url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("page_size", strconv.Itoa(q.PageSize))
	if q.SortBy != "" {
		v.Set("sort_by", string(q.SortBy))
	}
	v.Set("only_available", strconv.FormatBool(q.OnlyAvailable))
	for _, id := range q.Categories {
		v.Add("category_id", strconv.Itoa(id))
	}

	return v
}

// Results — одна страница канонической выдачи по search ID.
// Отсутствие results или pagination — ErrMalformed.
func (c *Client) Results(ctx context.Context, q models.PageQuery) (models.Page, error) {
	const op = "internal/clients/search/Results"

	var body resultsBody
	if err := c.getJSON(ctx, c.timeout, "/api/search/results/"+url.PathEscape(q.SearchID), ResultsQuery(q), &body); err != nil {
		return models.Page{}, fmt.Errorf("%s: %w", op, err)
	}

	if body.Results == nil || body.Pagination == nil {
		return models.Page{}, fmt.Errorf("%s: missing results or pagination field: %w", op, apierrors.ErrMalformed)
	}

	page := models.Page{
		Items:      *body.Results,
		Pagination: *body.Pagination,
	}

	if len(body.CategoryTotalItems) > 0 {
		page.CategoryCounts = make(map[int]int, len(body.CategoryTotalItems))
		for k, n := range body.CategoryTotalItems {
			id, err := strconv.Atoi(k)
			if err != nil {
				continue
			}
			page.CategoryCounts[id] = n
		}
	}

	return page, nil
}

// Recent — история поисков пользователя (GET /api/search/recent?limit=).
// Требует авторизации; вызывающий не должен звать его без токена.
func (c *Client) Recent(ctx context.Context, limit int) ([]models.RecentSearchEntry, error) {
	const op = "internal/clients/search/Recent"

	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var entries []models.RecentSearchEntry
	if err := c.getJSON(ctx, c.timeout, "/api/search/recent", q, &entries); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return entries, nil
}

// LatestTime — время последнего реального краулинга (GET /api/search/latest-time).
func (c *Client) LatestTime(ctx context.Context, query string) (*models.LatestTime, error) {
	const op = "internal/clients/search/LatestTime"

	var lt models.LatestTime
	if err := c.getJSON(ctx, c.timeout, "/api/search/latest-time", url.Values{"query": {query}}, &lt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &lt, nil
}

// HeaderSearchID — заголовок, в котором бэкенд отдаёт search ID.
var HeaderSearchID = http.CanonicalHeaderKey("X-Search-Id")
