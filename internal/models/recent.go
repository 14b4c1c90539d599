package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// FlexString — строка, которую бэкенд может прислать числом.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("flex string: %w", err)
	}

	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// RecentSearchEntry — запись истории поисков пользователя.
// Клиент никогда её не меняет, только перечитывает целиком.
type RecentSearchEntry struct {
	ID              FlexString `json:"id"`
	Query           string     `json:"query"`
	Location        string     `json:"location,omitempty"`
	CreatedAt       string     `json:"created_at"`
	UserID          FlexString `json:"user_id"`
	Progress        *float64   `json:"progress,omitempty"`
	TotalItems      *int       `json:"total_items,omitempty"`
	IsCompleted     *bool      `json:"is_completed,omitempty"`
	FailedProcesses *int       `json:"failed_processes,omitempty"`
}

// NormalizeQuery — форма запроса для сравнения: trim + нижний регистр.
func NormalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// Matches — регистронезависимое сравнение запросов после trim.
func (e RecentSearchEntry) Matches(query string) bool {
	return NormalizeQuery(e.Query) == NormalizeQuery(query)
}

// FindRecent возвращает первую запись истории, совпавшую с запросом и имеющую ID.
func FindRecent(entries []RecentSearchEntry, query string) (RecentSearchEntry, bool) {
	for _, e := range entries {
		if e.ID != "" && e.Matches(query) {
			return e, true
		}
	}

	return RecentSearchEntry{}, false
}

// SortRecent — копия истории, отсортированная по CreatedAt (новые сверху)
// и обрезанная до limit (limit <= 0 — без ограничения).
func SortRecent(entries []RecentSearchEntry, limit int) []RecentSearchEntry {
	out := make([]RecentSearchEntry, len(entries))
	copy(out, entries)

	sort.SliceStable(out, func(i, j int) bool {
		ti, _ := ParseTime(out[i].CreatedAt)
		tj, _ := ParseTime(out[j].CreatedAt)
		return ti.After(tj)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out
}

// ProgressPercent — прогресс для метки тега, пока поиск не дошёл до 100%.
func (e RecentSearchEntry) ProgressPercent() (int, bool) {
	if e.Progress == nil || *e.Progress >= 100 {
		return 0, false
	}

	return int(math.Floor(*e.Progress)), true
}

// FailedPercent — доля упавших процессов: failed / (progress + failed).
// Показывается только для незавершённых поисков с failed > 0.
func (e RecentSearchEntry) FailedPercent() (int, bool) {
	if e.IsCompleted == nil || *e.IsCompleted {
		return 0, false
	}
	if e.FailedProcesses == nil || *e.FailedProcesses <= 0 || e.Progress == nil {
		return 0, false
	}

	failed := float64(*e.FailedProcesses)
	return int(math.Floor(failed / (*e.Progress + failed) * 100)), true
}
