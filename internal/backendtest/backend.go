// backendtest — поддельный бэкенд поиска для тестов клиента и оркестратора.
//
// Сервер поднимается на httptest, маршруты — chi. Состояние задаётся
// методами Set*, каждый входящий запрос записывается и доступен через Requests.
package backendtest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-market-search/internal/models"
)

// Request — записанный входящий запрос.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// CreatePlan — как отвечать на POST /api/search/ для конкретного запроса.
type CreatePlan struct {
	Items []models.ResultItem
	// SearchID кладётся в заголовок HeaderName (по умолчанию X-Search-ID).
	SearchID   string
	HeaderName string
	// RawBody, если задан, пишется вместо Items как есть.
	RawBody string
}

type user struct {
	password string
	admin    bool
	id       int
}

// Backend — состояние поддельного бэкенда.
type Backend struct {
	srv *httptest.Server

	mu          sync.Mutex
	requests    []Request
	existing    map[string][]models.ResultItem
	creates     map[string]CreatePlan
	statuses    map[string][]models.SearchStatus
	statusCalls map[string]int
	catalogs    map[string][]models.ResultItem
	recent      []models.RecentSearchEntry
	latest      map[string]models.LatestTime
	users       map[string]user
	tokens      map[string]string
	overrides   map[string]http.HandlerFunc
}

// New поднимает сервер и закрывает его в t.Cleanup.
func New(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{
		existing:    make(map[string][]models.ResultItem),
		creates:     make(map[string]CreatePlan),
		statuses:    make(map[string][]models.SearchStatus),
		statusCalls: make(map[string]int),
		catalogs:    make(map[string][]models.ResultItem),
		latest:      make(map[string]models.LatestTime),
		users:       make(map[string]user),
		tokens:      make(map[string]string),
		overrides:   make(map[string]http.HandlerFunc),
	}

	b.srv = httptest.NewServer(b.router())
	t.Cleanup(b.srv.Close)

	return b
}

// URL — базовый адрес сервера.
func (b *Backend) URL() string { return b.srv.URL }

func (b *Backend) router() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record, b.override)

	r.Route("/api", func(r chi.Router) {
		r.Post("/token", b.handleToken)
		r.Post("/register", b.handleRegister)
		r.With(requireBearer(b)).Get("/me", b.handleMe)
		r.With(requireBearer(b)).Get("/check-admin", b.handleCheckAdmin)

		r.Route("/search", func(r chi.Router) {
			r.Post("/", b.handleCreate)
			r.Get("/status/{id}", b.handleStatus)
			r.Get("/existing", b.handleExisting)
			r.Get("/results/{id}", b.handleResults)
			r.With(requireBearer(b)).Get("/recent", b.handleRecent)
			r.Get("/latest-time", b.handleLatestTime)
		})
	})

	return r
}

// SetExisting задаёт ответ /api/search/existing для запроса.
func (b *Backend) SetExisting(query string, items []models.ResultItem) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.existing[models.NormalizeQuery(query)] = items
}

// SetCreate задаёт ответ POST /api/search/ для запроса.
func (b *Backend) SetCreate(query string, plan CreatePlan) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.creates[models.NormalizeQuery(query)] = plan
}

// SetStatuses задаёт последовательность статусов; последний повторяется.
func (b *Backend) SetStatuses(searchID string, seq ...models.SearchStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses[searchID] = seq
	b.statusCalls[searchID] = 0
}

// SetCatalog задаёт полный набор результатов search ID; фильтры,
// сортировку и пагинацию сервер применяет сам.
func (b *Backend) SetCatalog(searchID string, items []models.ResultItem) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.catalogs[searchID] = items
}

// SetRecent задаёт историю поисков (для любого авторизованного пользователя).
func (b *Backend) SetRecent(entries []models.RecentSearchEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recent = entries
}

// SetLatestTime задаёт ответ /api/search/latest-time.
func (b *Backend) SetLatestTime(query string, lt models.LatestTime) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latest[models.NormalizeQuery(query)] = lt
}

// AddUser регистрирует пользователя и возвращает токен, который выдаст /api/token.
func (b *Backend) AddUser(username, password string, admin bool) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUserLocked(username, password, admin)
}

func (b *Backend) addUserLocked(username, password string, admin bool) string {
	b.users[username] = user{password: password, admin: admin, id: len(b.users) + 1}
	tok := "tok-" + username
	b.tokens[tok] = username
	return tok
}

// Override подменяет обработчик маршрута, например Override("GET", "/api/search/existing", h).
func (b *Backend) Override(method, path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overrides[method+" "+path] = h
}

// Requests — копия журнала запросов.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// RequestsTo — запросы с данным методом и префиксом пути.
func (b *Backend) RequestsTo(method, pathPrefix string) []Request {
	var out []Request
	for _, r := range b.Requests() {
		if r.Method == method && strings.HasPrefix(r.Path, pathPrefix) {
			out = append(out, r)
		}
	}

	return out
}

// Count — число запросов с данным методом и префиксом пути.
func (b *Backend) Count(method, pathPrefix string) int {
	return len(b.RequestsTo(method, pathPrefix))
}

// StatusCalls — сколько раз опрашивался статус search ID.
func (b *Backend) StatusCalls(searchID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.statusCalls[searchID]
}

// record пишет запрос в журнал; тело восстанавливается для обработчика.
func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		b.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (b *Backend) override(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		h, ok := b.overrides[r.Method+" "+r.URL.Path]
		b.mu.Unlock()

		if ok {
			h(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireBearer пропускает только запросы с выданным токеном.
func requireBearer(b *Backend) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := b.userFor(r); !ok {
				writeError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (b *Backend) userFor(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, prefix) {
		return "", false
	}

	tok := strings.TrimSpace(auth[len(prefix):])

	b.mu.Lock()
	defer b.mu.Unlock()
	name, ok := b.tokens[tok]
	return name, ok
}

// writeJSON — единый ответ JSON с нужным Content-Type.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
