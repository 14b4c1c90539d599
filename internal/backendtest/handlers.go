package backendtest

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-market-search/internal/models"
)

func (b *Backend) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Query == "" {
		writeError(w, http.StatusUnprocessableEntity, "query is required")
		return
	}

	b.mu.Lock()
	plan := b.creates[models.NormalizeQuery(in.Query)]
	b.mu.Unlock()

	if plan.SearchID != "" {
		name := plan.HeaderName
		if name == "" {
			name = "X-Search-ID"
		}
		// Прямая запись в map сохраняет регистр имени заголовка.
		w.Header()[name] = []string{plan.SearchID}
	}

	if plan.RawBody != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(plan.RawBody))
		return
	}

	items := plan.Items
	if items == nil {
		items = []models.ResultItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (b *Backend) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	b.mu.Lock()
	seq := b.statuses[id]
	n := b.statusCalls[id]
	b.statusCalls[id] = n + 1
	b.mu.Unlock()

	if len(seq) == 0 {
		writeError(w, http.StatusNotFound, "search not found")
		return
	}

	if n >= len(seq) {
		n = len(seq) - 1
	}

	st := seq[n]
	st.SearchID = id
	writeJSON(w, http.StatusOK, st)
}

func (b *Backend) handleExisting(w http.ResponseWriter, r *http.Request) {
	q := models.NormalizeQuery(r.URL.Query().Get("query"))

	b.mu.Lock()
	items := b.existing[q]
	b.mu.Unlock()

	if items == nil {
		items = []models.ResultItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (b *Backend) handleResults(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pq, err := parsePageQuery(id, r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	b.mu.Lock()
	catalog := b.catalogs[id]
	b.mu.Unlock()

	page := Paginate(catalog, pq)

	counts := make(map[string]int, len(models.Categories))
	for _, c := range models.Categories {
		counts[strconv.Itoa(c.ID)] = page.CategoryCounts[c.ID]
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"request_id":           id,
		"results":              page.Items,
		"pagination":           page.Pagination,
		"category_total_items": counts,
	})
}

func (b *Backend) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	b.mu.Lock()
	entries := append([]models.RecentSearchEntry(nil), b.recent...)
	b.mu.Unlock()

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	if entries == nil {
		entries = []models.RecentSearchEntry{}
	}

	writeJSON(w, http.StatusOK, entries)
}

func (b *Backend) handleLatestTime(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	b.mu.Lock()
	lt, ok := b.latest[models.NormalizeQuery(query)]
	b.mu.Unlock()

	if !ok {
		lt = models.LatestTime{Query: query}
	}

	writeJSON(w, http.StatusOK, lt)
}

func (b *Backend) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "bad form")
		return
	}

	name, pass := r.PostForm.Get("username"), r.PostForm.Get("password")

	b.mu.Lock()
	u, ok := b.users[name]
	b.mu.Unlock()

	if !ok || u.password != pass {
		writeError(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}

	writeJSON(w, http.StatusOK, models.Token{
		AccessToken: "tok-" + name,
		TokenType:   "bearer",
		Username:    name,
		IsAdmin:     u.admin,
	})
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Username == "" || in.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	b.mu.Lock()
	if _, exists := b.users[in.Username]; exists {
		b.mu.Unlock()
		writeError(w, http.StatusBadRequest, "username already exists")
		return
	}
	b.addUserLocked(in.Username, in.Password, false)
	id := b.users[in.Username].id
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "registered",
		"user_id": strconv.Itoa(id),
	})
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	name, _ := b.userFor(r)

	b.mu.Lock()
	u := b.users[name]
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":  strconv.Itoa(u.id),
		"username": name,
		"is_admin": u.admin,
	})
}

func (b *Backend) handleCheckAdmin(w http.ResponseWriter, r *http.Request) {
	name, _ := b.userFor(r)

	b.mu.Lock()
	u := b.users[name]
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, models.AdminStatus{IsAdmin: u.admin})
}

// parsePageQuery разбирает параметры /results так же терпимо, как бэкенд:
// некорректные page/page_size/sort_by заменяются значениями по умолчанию.
func parsePageQuery(id string, r *http.Request) (models.PageQuery, error) {
	q := r.URL.Query()

	pq := models.PageQuery{SearchID: id, Page: 1, PageSize: 20, SortBy: models.SortCreatedAtDesc}

	if v, err := strconv.Atoi(q.Get("page")); err == nil && v >= 1 {
		pq.Page = v
	}
	if v, err := strconv.Atoi(q.Get("page_size")); err == nil && v >= 1 && v <= 100 {
		pq.PageSize = v
	}
	if s := models.SortBy(q.Get("sort_by")); s.Valid() {
		pq.SortBy = s
	}
	if v := q.Get("only_available"); v != "" {
		ok, err := strconv.ParseBool(v)
		if err != nil {
			return pq, err
		}
		pq.OnlyAvailable = ok
	}
	for _, raw := range q["category_id"] {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return pq, err
		}
		pq.Categories = append(pq.Categories, id)
	}

	return pq, nil
}

// Paginate применяет к каталогу фильтры, сортировку и пагинацию.
// CategoryCounts считается после фильтра доступности, но до фильтра категорий.
func Paginate(catalog []models.ResultItem, pq models.PageQuery) models.Page {
	var avail []models.ResultItem
	for _, it := range catalog {
		if pq.OnlyAvailable && !it.Status.Available() {
			continue
		}
		avail = append(avail, it)
	}

	counts := make(map[int]int)
	var filtered []models.ResultItem
	for _, it := range avail {
		if it.CategoryID != nil {
			counts[*it.CategoryID]++
		}
		if len(pq.Categories) > 0 && (it.CategoryID == nil || !pq.Categories.Contains(*it.CategoryID)) {
			continue
		}
		filtered = append(filtered, it)
	}

	sortItems(filtered, pq.SortBy)

	size := pq.PageSize
	if size <= 0 {
		size = 20
	}
	total := len(filtered)
	pages := (total + size - 1) / size

	start := (pq.Page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	items := append([]models.ResultItem{}, filtered[start:end]...)

	return models.Page{
		Items: items,
		Pagination: models.Pagination{
			CurrentPage: pq.Page,
			TotalPages:  pages,
			PageSize:    size,
			TotalItems:  total,
			HasNext:     pq.Page < pages,
			HasPrev:     pq.Page > 1,
		},
		CategoryCounts: counts,
	}
}

func sortItems(items []models.ResultItem, by models.SortBy) {
	switch by {
	case models.SortPriceAsc:
		sort.SliceStable(items, func(i, j int) bool {
			pi, pj := items[i].Price, items[j].Price
			if pi.IsNumber != pj.IsNumber {
				return pi.IsNumber
			}
			return pi.Number < pj.Number
		})
	default:
		sort.SliceStable(items, func(i, j int) bool {
			ti, _ := models.ParseTime(items[i].CreatedAtOrigin)
			tj, _ := models.ParseTime(items[j].CreatedAtOrigin)
			return ti.After(tj)
		})
	}
}
