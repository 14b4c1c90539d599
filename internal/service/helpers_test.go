package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-market-search/internal/backendtest"
	"github.com/pribylovaa/go-market-search/internal/clients"
	"github.com/pribylovaa/go-market-search/internal/models"
)

// capRecord — одна запись лога.
type capRecord struct {
	msg   string
	lvl   slog.Level
	attrs map[string]any
}

// capHandler — slog.Handler, собирающий записи; With* разделяют общий журнал.
type capHandler struct {
	mu      *sync.Mutex
	records *[]capRecord
	base    []slog.Attr
}

func newCapHandler() *capHandler {
	return &capHandler{mu: &sync.Mutex{}, records: &[]capRecord{}}
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	out := make(map[string]any, len(h.base)+8)
	for _, a := range h.base {
		out[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	*h.records = append(*h.records, capRecord{msg: r.Message, lvl: r.Level, attrs: out})
	return nil
}

func (h *capHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	base := append(append([]slog.Attr(nil), h.base...), attrs...)
	return &capHandler{mu: h.mu, records: h.records, base: base}
}

func (h *capHandler) WithGroup(string) slog.Handler { return h }

// count — сколько записей с сообщением msg.
func (h *capHandler) count(msg string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, r := range *h.records {
		if r.msg == msg {
			n++
		}
	}
	return n
}

// last — последняя запись с сообщением msg.
func (h *capHandler) last(msg string) (capRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := len(*h.records) - 1; i >= 0; i-- {
		if r := (*h.records)[i]; r.msg == msg {
			return r, true
		}
	}
	return capRecord{}, false
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// authFlag — Authorizer, который можно переключать из теста.
type authFlag struct{ v atomic.Bool }

func newAuth(on bool) *authFlag {
	a := &authFlag{}
	a.v.Store(on)
	return a
}

func (a *authFlag) IsAuthenticated() bool { return a.v.Load() }

type staticTokens string

func (s staticTokens) Token() (string, bool) { return string(s), s != "" }

// item — объявление с уникальной ссылкой; created задаёт порядок created_at_desc.
func item(prefix string, n int, created time.Time) models.ResultItem {
	return models.ResultItem{
		Link:            fmt.Sprintf("https://market.example/%s/%d", prefix, n),
		Title:           fmt.Sprintf("%s #%d", prefix, n),
		Price:           models.NumberPrice(float64(1000 * (n + 1))),
		CreatedAtOrigin: created.UTC().Format(time.RFC3339),
	}
}

// catalog — n объявлений, новые первыми.
func catalog(prefix string, n int) []models.ResultItem {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	out := make([]models.ResultItem, n)
	for i := range out {
		out[i] = item(prefix, i, base.Add(-time.Duration(i)*time.Minute))
	}
	return out
}

func intp(v int) *int { return &v }

func floatp(v float64) *float64 { return &v }

func boolp(v bool) *bool { return &v }

// testOptions — быстрые таймеры для тестов.
func testOptions(logger *slog.Logger, u URLState) Options {
	return Options{
		PageSize:          20,
		PollInterval:      20 * time.Millisecond,
		SettleDelay:       10 * time.Millisecond,
		RecentLimit:       40,
		RecentAfterSubmit: 10 * time.Millisecond,
		Logger:            logger,
		URL:               u,
	}
}

// newClient — настоящий HTTP-клиент к поддельному бэкенду.
func newClient(t *testing.T, b *backendtest.Backend, tok string) *clients.Client {
	t.Helper()

	c, err := clients.New(clients.Options{
		BaseURL:         b.URL(),
		Timeout:         2 * time.Second,
		ExistingTimeout: time.Second,
		UserAgent:       "market-search-test",
		Tokens:          staticTokens(tok),
		Logger:          discardLogger(),
	})
	require.NoError(t, err)
	return c
}

// harness — оркестратор поверх поддельного бэкенда.
type harness struct {
	b   *backendtest.Backend
	o   *Orchestrator
	url *MemoryURL
	log *capHandler
}

// newHarness собирает оркестратор; tok != "" — пользователь авторизован.
func newHarness(t *testing.T, tok string, rawURL string, tweak ...func(*Options)) *harness {
	t.Helper()

	b := backendtest.New(t)
	if tok != "" {
		tok = b.AddUser("tester", "secret", false)
	}

	h := &harness{b: b, url: NewMemoryURL(rawURL), log: newCapHandler()}

	opts := testOptions(slog.New(h.log), h.url)
	for _, fn := range tweak {
		fn(&opts)
	}

	h.o = New(newClient(t, b, tok), newAuth(tok != ""), opts)
	t.Cleanup(h.o.Close)

	return h
}

// resultsCalls — запросы /results для search ID.
func (h *harness) resultsCalls(id string) []backendtest.Request {
	return h.b.RequestsTo("GET", "/api/search/results/"+id)
}

func links(items []models.ResultItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Link
	}
	return out
}

func loggerFor(h *capHandler) *slog.Logger { return slog.New(h) }
