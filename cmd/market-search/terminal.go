package main

import (
	"os"
	"strconv"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/pribylovaa/go-market-search/internal/config"
	"github.com/pribylovaa/go-market-search/internal/render"
	"github.com/pribylovaa/go-market-search/internal/service"
	"github.com/pribylovaa/go-market-search/internal/ui"
)

// cellWidth — ширина одной колонки терминала в пикселях раскладки тегов.
const cellWidth = 8

const (
	defaultColumns = 100
	recentLabel    = "Recent:"
)

// sentinel — конец выдачи в терминале: "виден", когда пользователь просит
// следующую страницу.
type sentinel struct {
	mu sync.Mutex
	id uint64
	fn func(ui.IntersectionEntry)
}

func (s *sentinel) Observe(_ ui.IntersectionOptions, fn func(ui.IntersectionEntry)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.id++
	id := s.id
	s.fn = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.id == id {
			s.fn = nil
		}
	}
}

func (s *sentinel) reach() {
	s.mu.Lock()
	fn := s.fn
	s.mu.Unlock()

	if fn != nil {
		fn(ui.IntersectionEntry{Intersecting: true, Ratio: 1})
	}
}

// tagMeasurer измеряет теги так, как их нарисует render.
type tagMeasurer struct {
	columns int
	labels  []string
	styles  render.Styles
}

func (m tagMeasurer) Measure() ui.TagMetrics {
	widths := make([]float64, len(m.labels))
	for i, l := range m.labels {
		widths[i] = float64(lipgloss.Width(m.styles.Tag.Render(l)) * cellWidth)
	}

	return ui.TagMetrics{
		ContainerWidth: float64(m.columns * cellWidth),
		LabelWidth:     float64(lipgloss.Width(recentLabel) * cellWidth),
		TagWidths:      widths,
		TotalTags:      len(m.labels),
	}
}

func terminalColumns() int {
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 0 {
		return n
	}
	return defaultColumns
}

// screen — теги недавних поисков и экран сессии.
func screen(cfg *config.Config, st service.State) string {
	styles := render.DefaultStyles()
	r := render.New(styles)
	body := r.State(st)

	if len(st.Recent) == 0 {
		return body
	}

	labels := make([]string, len(st.Recent))
	for i, e := range st.Recent {
		labels[i] = render.RecentTagLabel(e)
	}

	columns := terminalColumns()
	topts := ui.TagLayoutOptionsFromConfig(cfg.Tags)
	layout := ui.NewTagLayout(tagMeasurer{columns: columns, labels: labels, styles: styles}, nil, topts)
	defer layout.Close()

	layout.SetViewportWidth(float64(columns * cellWidth))
	layout.SetRecentCount(len(st.Recent))
	layout.Recompute()

	tags := lipgloss.JoinHorizontal(lipgloss.Center, recentLabel+" ", r.Tags(st.Recent, layout.Visible()))
	return lipgloss.JoinVertical(lipgloss.Left, tags, "", body)
}
