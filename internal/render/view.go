package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/pribylovaa/go-market-search/internal/models"
	"github.com/pribylovaa/go-market-search/internal/service"
)

// Styles — стили элементов выдачи.
type Styles struct {
	Title    lipgloss.Style
	Price    lipgloss.Style
	Free     lipgloss.Style
	Muted    lipgloss.Style
	Sold     lipgloss.Style
	Reserved lipgloss.Style
	Banner   lipgloss.Style
	Error    lipgloss.Style
	Tag      lipgloss.Style
	More     lipgloss.Style
	Header   lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true),
		Price:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		Free:     lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Sold:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Strikethrough(true),
		Reserved: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Banner:   lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57")).Padding(0, 1),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Tag:      lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder()),
		More:     lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("39")),
		Header:   lipgloss.NewStyle().Bold(true).Underline(true),
	}
}

// Renderer собирает текстовое представление снимка сессии.
type Renderer struct {
	styles Styles
	now    func() time.Time
}

func New(styles Styles) *Renderer {
	return &Renderer{styles: styles, now: time.Now}
}

// ItemLine — одна строка выдачи: название, цена, место, возраст и статус.
func (r *Renderer) ItemLine(item models.ResultItem) string {
	price := r.styles.Price.Render(FormatPrice(item.Price))
	if item.Price.IsFree() {
		price = r.styles.Free.Render(LabelFree)
	}

	title := r.styles.Title.Render(item.Title)
	parts := []string{title, price}

	if item.Location != "" {
		parts = append(parts, r.styles.Muted.Render(item.Location))
	}
	parts = append(parts, r.styles.Muted.Render(ItemAge(item, r.now())))

	switch label := StatusLabel(item.Status); item.Status {
	case models.StatusClosed:
		parts = append(parts, r.styles.Sold.Render(label))
	case models.StatusReserved:
		parts = append(parts, r.styles.Reserved.Render(label))
	}

	return strings.Join(parts, "  ")
}

// Tags — строка тегов недавних поисков: первые visible и кнопка "ещё",
// если скрыто два и больше.
func (r *Renderer) Tags(entries []models.RecentSearchEntry, visible int) string {
	if len(entries) == 0 {
		return ""
	}

	visible = min(max(visible, 1), len(entries))
	hidden := len(entries) - visible
	if hidden == 1 {
		visible, hidden = len(entries), 0
	}

	tags := make([]string, 0, visible+1)
	for _, e := range entries[:visible] {
		tags = append(tags, r.styles.Tag.Render(RecentTagLabel(e)))
	}
	if hidden > 0 {
		tags = append(tags, r.styles.More.Render(MoreLabel(hidden)))
	}

	return lipgloss.JoinHorizontal(lipgloss.Center, tags...)
}

// State — экран целиком: шапка с фильтрами, баннер, ошибка, прогресс и выдача.
func (r *Renderer) State(st service.State) string {
	now := r.now()
	blocks := make([]string, 0, 8)

	if st.Query != "" {
		header := fmt.Sprintf("%q  sort: %s", st.Query, SortLabel(st.Filters.SortBy))
		if st.Filters.OnlyAvailable {
			header += "  available only"
		}
		if len(st.Filters.Categories) > 0 {
			names := make([]string, 0, len(st.Filters.Categories))
			for _, id := range st.Filters.Categories {
				names = append(names, models.CategoryName(id))
			}
			header += "  categories: " + strings.Join(names, ", ")
		}
		blocks = append(blocks, r.styles.Header.Render(header))
	}

	if st.ShowBanner() {
		blocks = append(blocks, r.styles.Banner.Render(BannerText(st.LatestTime, now)))
	}
	if st.Error != "" {
		blocks = append(blocks, r.styles.Error.Render(st.Error))
	}
	if line := ProgressLine(st.Status); line != "" {
		blocks = append(blocks, r.styles.Muted.Render(line))
	}

	for _, item := range st.Results {
		blocks = append(blocks, r.ItemLine(item))
	}

	switch {
	case st.Loading():
		blocks = append(blocks, r.styles.Muted.Render("loading..."))
	case st.LoadingMore():
		blocks = append(blocks, r.styles.Muted.Render("loading more..."))
	case st.Pagination != nil:
		blocks = append(blocks, r.styles.Muted.Render(fmt.Sprintf("page %d of %d, %s items",
			st.Pagination.CurrentPage,
			st.Pagination.TotalPages,
			humanize.Comma(int64(st.Pagination.TotalItems)),
		)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}
