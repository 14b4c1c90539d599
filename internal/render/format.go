// render — текстовое представление сессии поиска для CLI: форматирование цен,
// относительного времени, статусов и меток тегов, стили lipgloss.
package render

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pribylovaa/go-market-search/internal/models"
)

const (
	LabelFree     = "free"
	LabelUnknown  = "unknown"
	LabelSold     = "sold"
	LabelReserved = "reserved"
	LabelReposted = "bumped"

	currency = "KRW"
)

// FormatPrice — цена с разделителями разрядов; null, пустая строка и ноль — "free".
// Строковая цена выводится как есть.
func FormatPrice(p models.Price) string {
	if p.IsFree() {
		return LabelFree
	}

	if p.IsNumber {
		if p.Number == math.Trunc(p.Number) {
			return humanize.Comma(int64(p.Number)) + " " + currency
		}
		return humanize.Commaf(p.Number) + " " + currency
	}

	return strings.TrimSpace(p.Raw)
}

// FormatTimeAgo — "N min/h/days/months/years ago" относительно now.
// Месяц считается за 30 дней, год за 12 месяцев.
func FormatTimeAgo(s string, now time.Time) string {
	t, ok := models.ParseTime(s)
	if !ok {
		return LabelUnknown
	}

	mins := int(now.Sub(t) / time.Minute)
	if mins < 0 {
		mins = 0
	}

	if mins < 60 {
		return fmt.Sprintf("%d min ago", mins)
	}

	hours := mins / 60
	if hours < 24 {
		return fmt.Sprintf("%d h ago", hours)
	}

	days := hours / 24
	if days < 30 {
		return fmt.Sprintf("%d days ago", days)
	}

	months := days / 30
	if months < 12 {
		return fmt.Sprintf("%d months ago", months)
	}

	return fmt.Sprintf("%d years ago", months/12)
}

// StatusLabel — метка статуса; "" для доступного объявления.
func StatusLabel(s models.ItemStatus) string {
	switch s {
	case models.StatusClosed:
		return LabelSold
	case models.StatusReserved:
		return LabelReserved
	default:
		return ""
	}
}

// ItemAge — время публикации; для поднятого объявления с пометкой.
func ItemAge(item models.ResultItem, now time.Time) string {
	age := FormatTimeAgo(item.CreatedAtOrigin, now)
	if item.IsReposted() {
		return LabelReposted + " " + age
	}
	return age
}

// RecentTagLabel — текст тега недавнего поиска: запрос, прогресс до 100%
// и доля упавших процессов для незавершённого поиска.
func RecentTagLabel(e models.RecentSearchEntry) string {
	var b strings.Builder
	b.WriteString(e.Query)

	if pct, ok := e.ProgressPercent(); ok {
		fmt.Fprintf(&b, " (%d%%)", pct)
	}
	if pct, ok := e.FailedPercent(); ok {
		fmt.Fprintf(&b, " failed %d%%", pct)
	}

	return b.String()
}

// MoreLabel — текст кнопки "ещё".
func MoreLabel(hidden int) string {
	return fmt.Sprintf("+%d more", hidden)
}

// ProgressLine — прогресс краулинга.
func ProgressLine(s *models.SearchStatus) string {
	if s == nil {
		return ""
	}

	line := fmt.Sprintf("%d/%d processes, %.0f%%, %s items found",
		s.CompletedProcesses,
		s.TotalProcesses,
		math.Floor(s.CompletionPercentage),
		humanize.Comma(int64(s.TotalItemsFound)),
	)

	if s.FailedProcesses != nil && *s.FailedProcesses > 0 {
		line += fmt.Sprintf(", %d failed", *s.FailedProcesses)
	}
	if s.Terminal() {
		line += ", done"
	}

	return line
}

// BannerText — "results as of ..." для режима существующих результатов.
func BannerText(lt *models.LatestTime, now time.Time) string {
	if !lt.HasBanner() {
		return ""
	}
	return "results as of " + FormatTimeAgo(*lt.LatestTime, now)
}

// SortLabel — подпись порядка сортировки.
func SortLabel(s models.SortBy) string {
	switch s {
	case models.SortPriceAsc:
		return "lowest price"
	default:
		return "newest"
	}
}
