package ui

import (
	"log/slog"
	"sync"
	"time"

	"github.com/pribylovaa/go-market-search/internal/config"
)

// DefaultVisibleTags — сколько тегов показывается до первого пересчёта.
const DefaultVisibleTags = 40

// TagMetrics — измеренные ширины (px) без внешних отступов.
type TagMetrics struct {
	ContainerWidth float64
	LabelWidth     float64
	// TagWidths — ширины отрисованных тегов по порядку.
	TagWidths []float64
	// MoreWidth — ширина кнопки "ещё"; 0 — кнопка не отрисована, ширина оценивается.
	MoreWidth float64
	// TotalTags — всего тегов в списке, включая неотрисованные.
	TotalTags int
}

// TagOptions — параметры симуляции переноса.
type TagOptions struct {
	MaxLines    int
	TagMargin   float64
	LabelMargin float64
	// Narrow — узкий вьюпорт; оценка ширины кнопки "ещё" чуть больше.
	Narrow bool
}

// ComputeVisibleTags возвращает число тегов, которые помещаются в MaxLines строк
// вместе с кнопкой "ещё".
//
// Кнопка нужна только при двух и более скрытых тегах: единственный скрытый тег
// показывается целиком. Хотя бы один тег виден всегда.
func ComputeVisibleTags(m TagMetrics, o TagOptions) int {
	n := len(m.TagWidths)
	if n == 0 {
		return 0
	}

	total := max(m.TotalTags, n)
	maxLines := max(o.MaxLines, 1)
	available := m.ContainerWidth
	if m.LabelWidth > 0 {
		available -= m.LabelWidth + o.LabelMargin
	}

	widths := make([]float64, n)
	for i, w := range m.TagWidths {
		widths[i] = w + o.TagMargin
	}

	more := m.MoreWidth + o.TagMargin
	if m.MoreWidth <= 0 {
		more = estimateMoreWidth(total-n, o.Narrow)
	}

	line, lineWidth, visible := 1, 0.0, 0
	for i, w := range widths {
		if lineWidth > 0 && lineWidth+w > available {
			line++
			if line > maxLines {
				break
			}
			lineWidth = 0
		}
		lineWidth += w
		visible = i + 1

		// На последней строке оставляем место под кнопку.
		if line == maxLines && i < n-1 && available-lineWidth < more {
			break
		}
	}

	hidden := total - visible
	switch {
	case hidden >= 2:
		for visible > 1 && available-lastLineWidth(widths[:visible], available) < more {
			visible--
		}
	case hidden == 1:
		// Единственный скрытый тег показываем вместо кнопки.
		return total
	}

	return max(visible, 1)
}

// lastLineWidth — ширина последней строки при жадном переносе.
func lastLineWidth(widths []float64, available float64) float64 {
	var lineWidth float64
	for _, w := range widths {
		if lineWidth > 0 && lineWidth+w > available {
			lineWidth = 0
		}
		lineWidth += w
	}
	return lineWidth
}

// estimateMoreWidth — ширина кнопки "ещё (N)" по числу цифр в N.
func estimateMoreWidth(hidden int, narrow bool) float64 {
	var w float64
	switch {
	case hidden < 10:
		w = 90
	case hidden < 100:
		w = 100
	default:
		w = 110
	}
	if narrow {
		w += 10
	}
	return w
}

// TagMeasurer измеряет отрисованный контейнер тегов.
type TagMeasurer interface {
	Measure() TagMetrics
}

// ResizeSource сообщает новую ширину контейнера.
type ResizeSource interface {
	ObserveResize(fn func(width float64)) (disconnect func())
}

// TagLayoutOptions — параметры раскладки тегов.
type TagLayoutOptions struct {
	Breakpoint     float64
	MaxLinesWide   int
	MaxLinesNarrow int
	TagMargin      float64
	LabelMargin    float64
	RelayoutDelay  time.Duration
	Logger         *slog.Logger
	// OnChange вызывается вне блокировки, когда меняется число видимых тегов.
	OnChange func(visible int)
}

// TagLayoutOptionsFromConfig — TagLayoutOptions из секции tags.
func TagLayoutOptionsFromConfig(cfg config.TagsConfig) TagLayoutOptions {
	return TagLayoutOptions{
		Breakpoint:     cfg.Breakpoint,
		MaxLinesWide:   cfg.MaxLinesWide,
		MaxLinesNarrow: cfg.MaxLinesNarrow,
		TagMargin:      cfg.TagMargin,
		LabelMargin:    cfg.LabelMargin,
		RelayoutDelay:  cfg.RelayoutDelay,
	}
}

func (o *TagLayoutOptions) setDefaults() {
	if o.Breakpoint <= 0 {
		o.Breakpoint = 540
	}
	if o.MaxLinesWide <= 0 {
		o.MaxLinesWide = 2
	}
	if o.MaxLinesNarrow <= 0 {
		o.MaxLinesNarrow = 1
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// TagLayout держит число видимых тегов недавних поисков актуальным.
// Пока пользователь развернул список, пересчёты не выполняются.
type TagLayout struct {
	measurer TagMeasurer
	opts     TagLayoutOptions
	log      *slog.Logger

	mu        sync.Mutex
	viewport  float64
	count     int
	visible   int
	expanded  bool
	relayout  *time.Timer
	closed    bool
	unobserve func()

	wg sync.WaitGroup
}

// NewTagLayout подписывается на изменения размера контейнера, если rs не nil.
func NewTagLayout(m TagMeasurer, rs ResizeSource, opts TagLayoutOptions) *TagLayout {
	opts.setDefaults()

	l := &TagLayout{
		measurer: m,
		opts:     opts,
		log:      opts.Logger,
		visible:  DefaultVisibleTags,
	}

	if rs != nil {
		unobserve := rs.ObserveResize(func(float64) { l.Recompute() })
		l.mu.Lock()
		l.unobserve = unobserve
		l.mu.Unlock()
	}

	return l
}

// SetViewportWidth — ширина окна; от неё зависит число строк.
func (l *TagLayout) SetViewportWidth(w float64) {
	l.mu.Lock()
	l.viewport = w
	l.mu.Unlock()

	l.Recompute()
}

// SetRecentCount сворачивает список и планирует пересчёт после отрисовки,
// если длина списка изменилась.
func (l *TagLayout) SetRecentCount(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || n == l.count {
		return
	}

	l.count = n
	l.expanded = false

	if l.relayout != nil && l.relayout.Stop() {
		l.wg.Done()
	}

	l.wg.Add(1)
	l.relayout = time.AfterFunc(l.opts.RelayoutDelay, func() {
		defer l.wg.Done()
		l.Recompute()
	})
}

// Expand показывает все теги.
func (l *TagLayout) Expand() {
	l.mu.Lock()
	l.expanded = true
	l.mu.Unlock()
}

// Collapse возвращает усечённый вид и пересчитывает его.
func (l *TagLayout) Collapse() {
	l.mu.Lock()
	l.expanded = false
	l.mu.Unlock()

	l.Recompute()
}

func (l *TagLayout) Expanded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.expanded
}

// Visible — сколько тегов показывать сейчас.
func (l *TagLayout) Visible() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.visibleLocked()
}

// HiddenCount — число тегов под кнопкой "ещё"; 0 — кнопка не нужна.
func (l *TagLayout) HiddenCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count - l.visibleLocked()
}

func (l *TagLayout) visibleLocked() int {
	if l.expanded {
		return l.count
	}
	return min(l.visible, l.count)
}

// Recompute измеряет контейнер и пересчитывает число видимых тегов.
func (l *TagLayout) Recompute() {
	const op = "internal/ui/tags/Recompute"

	l.mu.Lock()
	if l.closed || l.expanded || l.count == 0 {
		l.mu.Unlock()
		return
	}
	narrow := l.viewport <= l.opts.Breakpoint
	count := l.count
	l.mu.Unlock()

	m := l.measurer.Measure()
	if len(m.TagWidths) == 0 {
		return
	}
	if m.TotalTags == 0 {
		m.TotalTags = count
	}

	maxLines := l.opts.MaxLinesWide
	if narrow {
		maxLines = l.opts.MaxLinesNarrow
	}

	visible := ComputeVisibleTags(m, TagOptions{
		MaxLines:    maxLines,
		TagMargin:   l.opts.TagMargin,
		LabelMargin: l.opts.LabelMargin,
		Narrow:      narrow,
	})

	l.mu.Lock()
	// Пока измеряли, пользователь мог развернуть список.
	if l.closed || l.expanded {
		l.mu.Unlock()
		return
	}
	changed := visible != l.visible
	l.visible = visible
	l.mu.Unlock()

	if !changed {
		return
	}

	l.log.Debug("tags_relayout",
		slog.String("op", op),
		slog.Int("visible", visible),
		slog.Int("total", m.TotalTags),
		slog.Int("max_lines", maxLines),
	)

	if l.opts.OnChange != nil {
		l.opts.OnChange(visible)
	}
}

// Close отписывается от изменений размера и ждёт отложенный пересчёт.
func (l *TagLayout) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	if l.relayout != nil && l.relayout.Stop() {
		l.wg.Done()
	}
	l.relayout = nil
	unobserve := l.unobserve
	l.unobserve = nil
	l.mu.Unlock()

	if unobserve != nil {
		unobserve()
	}
	l.wg.Wait()
}
