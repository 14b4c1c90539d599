package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

// Цена приходит числом, строкой или null.
func TestPrice_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	var item struct {
		A Price `json:"a"`
		B Price `json:"b"`
		C Price `json:"c"`
		D Price `json:"d"`
	}
	err := json.Unmarshal([]byte(`{"a": 15000, "b": "협의", "c": null}`), &item)
	require.NoError(t, err)

	require.True(t, item.A.IsNumber)
	require.Equal(t, 15000.0, item.A.Number)
	require.False(t, item.B.IsNumber)
	require.Equal(t, "협의", item.B.Raw)
	require.True(t, item.C.Null)
	// Отсутствующее поле не вызывает UnmarshalJSON.
	require.False(t, item.D.Null)
}

func TestPrice_IsFree(t *testing.T) {
	t.Parallel()

	require.True(t, Price{Null: true}.IsFree())
	require.True(t, NumberPrice(0).IsFree())
	require.True(t, TextPrice("0").IsFree())
	require.True(t, TextPrice("0.0").IsFree())
	require.True(t, TextPrice("").IsFree())
	require.False(t, NumberPrice(1000).IsFree())
	require.False(t, TextPrice("1000").IsFree())
}

func TestPrice_MarshalRoundTrip(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(NumberPrice(12.5))
	require.NoError(t, err)
	require.JSONEq(t, `12.5`, string(b))

	b, err = json.Marshal(Price{Null: true})
	require.NoError(t, err)
	require.Equal(t, "null", string(b))
}

// После слияния Link уникальны, дубликат заменяет старое значение на месте.
func TestMergeByLink(t *testing.T) {
	t.Parallel()

	existing := []ResultItem{{Link: "a", Title: "A1"}, {Link: "b", Title: "B1"}}
	incoming := []ResultItem{{Link: "b", Title: "B2"}, {Link: "c", Title: "C1"}, {Link: "c", Title: "C2"}}

	got := MergeByLink(existing, incoming)
	require.Equal(t, []ResultItem{
		{Link: "a", Title: "A1"},
		{Link: "b", Title: "B2"},
		{Link: "c", Title: "C2"},
	}, got)

	// Входы не тронуты.
	require.Equal(t, "B1", existing[1].Title)
	require.Len(t, incoming, 3)
}

func TestDedupeByLink(t *testing.T) {
	t.Parallel()

	got := DedupeByLink([]ResultItem{{Link: "x"}, {Link: "x"}, {Link: "y"}})
	require.Len(t, got, 2)
}

// Двойной toggle возвращает исходное множество.
func TestCategorySet_Toggle(t *testing.T) {
	t.Parallel()

	var set CategorySet
	set = set.Toggle(5)
	require.True(t, set.Contains(5))

	set2 := set.Toggle(7).Toggle(7)
	require.True(t, set.Equal(set2))
	require.Equal(t, CategorySet{5}, set)

	require.Empty(t, set.Toggle(5))
}

func TestFilters_Equal(t *testing.T) {
	t.Parallel()

	a := Filters{SortBy: SortPriceAsc, Categories: CategorySet{1, 2}}
	b := Filters{SortBy: SortPriceAsc, Categories: CategorySet{2, 1}}
	require.True(t, a.Equal(b))

	b.OnlyAvailable = true
	require.False(t, a.Equal(b))
}

func TestSearchStatus_Terminal(t *testing.T) {
	t.Parallel()

	require.False(t, SearchStatus{CompletionPercentage: 60}.Terminal())
	require.True(t, SearchStatus{CompletionPercentage: 100}.Terminal())
	require.True(t, SearchStatus{IsCompleted: true, CompletionPercentage: 40}.Terminal())
}

func TestResultItem_IsReposted(t *testing.T) {
	t.Parallel()

	item := ResultItem{CreatedAtOrigin: "2025-01-01T10:00:00", BoostedAt: "2025-01-02T10:00:00Z"}
	require.True(t, item.IsReposted())

	item.BoostedAt = "2025-01-01T10:00:00"
	require.False(t, item.IsReposted())

	item.BoostedAt = ""
	require.False(t, item.IsReposted())
}

func TestParseTime(t *testing.T) {
	t.Parallel()

	for _, s := range []string{
		"2025-03-01T12:30:00Z",
		"2025-03-01T12:30:00.123456",
		"2025-03-01 12:30:00",
		"2025-03-01",
	} {
		_, ok := ParseTime(s)
		require.True(t, ok, s)
	}

	_, ok := ParseTime("yesterday")
	require.False(t, ok)
}

// ID истории бывает числом.
func TestRecentSearchEntry_FlexID(t *testing.T) {
	t.Parallel()

	var entries []RecentSearchEntry
	err := json.Unmarshal([]byte(`[{"id": 42, "query": "bike", "user_id": "7"}]`), &entries)
	require.NoError(t, err)
	require.Equal(t, FlexString("42"), entries[0].ID)
	require.Equal(t, "7", entries[0].UserID.String())
}

func TestFindRecent(t *testing.T) {
	t.Parallel()

	entries := []RecentSearchEntry{
		{ID: "", Query: "Bike"},
		{ID: "s1", Query: "  BIKE "},
		{ID: "s2", Query: "bike"},
	}

	got, ok := FindRecent(entries, "bike")
	require.True(t, ok)
	require.Equal(t, FlexString("s1"), got.ID)

	_, ok = FindRecent(entries, "camera")
	require.False(t, ok)
}

func TestSortRecent(t *testing.T) {
	t.Parallel()

	entries := []RecentSearchEntry{
		{ID: "old", CreatedAt: "2025-01-01T00:00:00"},
		{ID: "new", CreatedAt: "2025-03-01T00:00:00"},
		{ID: "mid", CreatedAt: "2025-02-01T00:00:00"},
	}

	got := SortRecent(entries, 2)
	require.Len(t, got, 2)
	require.Equal(t, FlexString("new"), got[0].ID)
	require.Equal(t, FlexString("mid"), got[1].ID)
	require.Equal(t, FlexString("old"), entries[0].ID)
}

func TestRecentSearchEntry_Percents(t *testing.T) {
	t.Parallel()

	e := RecentSearchEntry{Progress: ptr(42.7)}
	p, ok := e.ProgressPercent()
	require.True(t, ok)
	require.Equal(t, 42, p)

	_, ok = RecentSearchEntry{Progress: ptr(100.0)}.ProgressPercent()
	require.False(t, ok)

	e = RecentSearchEntry{Progress: ptr(30.0), FailedProcesses: ptr(10), IsCompleted: ptr(false)}
	f, ok := e.FailedPercent()
	require.True(t, ok)
	require.Equal(t, 25, f)

	e.IsCompleted = ptr(true)
	_, ok = e.FailedPercent()
	require.False(t, ok)
}

func TestCategoryName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Books", CategoryName(9))
	require.Empty(t, CategoryName(999))
	require.Len(t, Categories, 20)
}
