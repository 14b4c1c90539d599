package service

import (
	"net/url"
	"strings"
	"sync"
)

// Параметры адресной строки.
const (
	ParamQuery       = "q"
	ParamUseExisting = "use_existing"
)

// URLState — query-параметры текущего адреса. Replace заменяет запись
// истории, а не добавляет новую.
type URLState interface {
	Query() url.Values
	Replace(url.Values)
}

// MemoryURL — URLState в памяти; хранит все замены для проверки в тестах и CLI.
type MemoryURL struct {
	mu      sync.Mutex
	cur     url.Values
	history []string
}

// NewMemoryURL разбирает строку запроса ("q=...&use_existing=true", можно с ведущим "?").
func NewMemoryURL(rawQuery string) *MemoryURL {
	v, err := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	if err != nil {
		v = url.Values{}
	}

	return &MemoryURL{cur: v}
}

func (m *MemoryURL) Query() url.Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneValues(m.cur)
}

func (m *MemoryURL) Replace(v url.Values) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cur = cloneValues(v)
	m.history = append(m.history, m.cur.Encode())
}

// String — текущая строка запроса.
func (m *MemoryURL) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur.Encode()
}

// History — все строки запроса после каждого Replace.
func (m *MemoryURL) History() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.history...)
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

// readURL — запрос и режим из адресной строки при монтировании.
func readURL(u URLState) (query string, useExisting bool) {
	v := u.Query()
	return strings.TrimSpace(v.Get(ParamQuery)), v.Get(ParamUseExisting) == "true"
}

// writeSessionURL — q для новой сессии; use_existing=true только в existing-режиме.
func writeSessionURL(u URLState, query string, existing bool) {
	v := u.Query()
	v.Set(ParamQuery, query)
	if existing {
		v.Set(ParamUseExisting, "true")
	} else {
		v.Del(ParamUseExisting)
	}
	u.Replace(v)
}

// markExistingURL — после завершения нового поиска перезагрузка страницы
// должна открывать уже посчитанные результаты.
func markExistingURL(u URLState) {
	v := u.Query()
	if v.Get(ParamUseExisting) == "true" {
		return
	}
	v.Set(ParamUseExisting, "true")
	u.Replace(v)
}
