// ui — контроллеры представления поверх оркестратора: бесконечная прокрутка,
// раскладка тегов недавних поисков и согласование программной прокрутки
// с пользовательской.
//
// Возможности окружения (наблюдатели видимости и размеров, кадры анимации,
// окно) заданы интерфейсами, поэтому контроллеры тестируются на фейках,
// которые вызывают колбэки синхронно.
package ui

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/pribylovaa/go-market-search/internal/config"
	"github.com/pribylovaa/go-market-search/internal/models"
	"github.com/pribylovaa/go-market-search/internal/service"
)

// IntersectionEntry — одно срабатывание наблюдателя видимости.
type IntersectionEntry struct {
	Intersecting bool
	Ratio        float64
}

// IntersectionOptions — порог видимости и упреждение снизу (px).
type IntersectionOptions struct {
	Threshold  float64
	RootMargin float64
}

// IntersectionSource следит за элементом-сентинелом после списка результатов.
// Observe не должен вызывать fn синхронно под блокировками вызывающего.
type IntersectionSource interface {
	Observe(opts IntersectionOptions, fn func(IntersectionEntry)) (disconnect func())
}

// PageLoader — загрузчик следующей страницы (Orchestrator.LoadNextPage).
type PageLoader interface {
	LoadNextPage(ctx context.Context) (bool, error)
}

// StateSource — источник снимков состояния (Orchestrator).
type StateSource interface {
	State() service.State
	Subscribe(fn func(service.State)) (unsubscribe func())
}

// PagingState — часть состояния сессии, от которой зависит триггер.
type PagingState struct {
	SearchID    string
	HasNext     bool
	Loading     bool
	CurrentPage int
	Filters     models.Filters
}

// PagingFromState выбирает поля триггера из снимка оркестратора.
func PagingFromState(s service.State) PagingState {
	id := s.SearchID
	if !s.CanFilter() {
		id = ""
	}

	return PagingState{
		SearchID:    id,
		HasNext:     s.HasNext(),
		Loading:     s.Loading() || s.LoadingMore(),
		CurrentPage: s.CurrentPage(),
		Filters:     s.Filters,
	}
}

// CanLoad — все условия подгрузки выполнены.
func (p PagingState) CanLoad() bool {
	return p.SearchID != "" && p.HasNext && !p.Loading
}

func (p PagingState) equal(o PagingState) bool {
	return p.SearchID == o.SearchID &&
		p.HasNext == o.HasNext &&
		p.Loading == o.Loading &&
		p.CurrentPage == o.CurrentPage &&
		p.Filters.Equal(o.Filters)
}

// InfiniteOptions — параметры контроллера бесконечной прокрутки.
type InfiniteOptions struct {
	Threshold  float64
	RootMargin float64
	Logger     *slog.Logger
}

// InfiniteOptionsFromConfig — InfiniteOptions из секции infinite.
func InfiniteOptionsFromConfig(cfg config.InfiniteConfig) InfiniteOptions {
	return InfiniteOptions{Threshold: cfg.Threshold, RootMargin: cfg.RootMargin}
}

// InfiniteScroll запускает подгрузку, когда сентинел становится видимым.
//
// Особенности:
//   - при каждом изменении PagingState прежняя подписка отключается и
//     создаётся новая со свежим снимком, поэтому колбэк не видит устаревших фильтров;
//   - колбэк отключённой подписки игнорируется, даже если наблюдатель успел его вызвать;
//   - одновременно выполняется не больше одной подгрузки.
type InfiniteScroll struct {
	src    IntersectionSource
	loader PageLoader
	opts   InfiniteOptions
	log    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	cur        PagingState
	subscribed bool
	gen        uint64
	disconnect func()
	subs       int
	closed     bool

	busy atomic.Bool
	wg   sync.WaitGroup
}

func NewInfiniteScroll(src IntersectionSource, loader PageLoader, opts InfiniteOptions) *InfiniteScroll {
	if opts.Threshold <= 0 {
		opts.Threshold = 0.01
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &InfiniteScroll{
		src:    src,
		loader: loader,
		opts:   opts,
		log:    opts.Logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Bind синхронизирует контроллер с оркестратором до вызова unbind.
func (c *InfiniteScroll) Bind(src StateSource) (unbind func()) {
	c.Sync(PagingFromState(src.State()))
	return src.Subscribe(func(s service.State) { c.Sync(PagingFromState(s)) })
}

// Sync переподписывается на сентинел, если состояние изменилось.
func (c *InfiniteScroll) Sync(st PagingState) {
	c.mu.Lock()
	if c.closed || (c.subscribed && c.cur.equal(st)) {
		c.mu.Unlock()
		return
	}

	prev := c.disconnect
	c.disconnect = nil
	c.gen++
	gen := c.gen
	c.cur = st
	c.subscribed = true
	c.subs++
	c.mu.Unlock()

	if prev != nil {
		prev()
	}

	disconnect := c.src.Observe(
		IntersectionOptions{Threshold: c.opts.Threshold, RootMargin: c.opts.RootMargin},
		func(e IntersectionEntry) { c.onIntersect(gen, st, e) },
	)

	c.mu.Lock()
	if c.closed || c.gen != gen {
		c.mu.Unlock()
		disconnect()
		return
	}
	c.disconnect = disconnect
	c.mu.Unlock()
}

// Subscriptions — сколько раз контроллер подписывался на сентинел.
func (c *InfiniteScroll) Subscriptions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs
}

// Wait ждёт запущенные подгрузки.
func (c *InfiniteScroll) Wait() { c.wg.Wait() }

// Close отключает наблюдатель и отменяет подгрузку в полёте.
func (c *InfiniteScroll) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	disconnect := c.disconnect
	c.disconnect = nil
	c.mu.Unlock()

	if disconnect != nil {
		disconnect()
	}
	c.cancel()
	c.wg.Wait()
}

func (c *InfiniteScroll) onIntersect(gen uint64, st PagingState, e IntersectionEntry) {
	const op = "internal/ui/infinite/onIntersect"

	if !e.Intersecting || !st.CanLoad() {
		return
	}

	// Add под тем же замком, что и проверка closed: Close не должен застать
	// wg.Wait посреди запуска загрузки.
	c.mu.Lock()
	if c.closed || c.gen != gen || !c.busy.CompareAndSwap(false, true) {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		defer c.busy.Store(false)

		ok, err := c.loader.LoadNextPage(c.ctx)
		if err != nil {
			c.log.Warn("infinite_load_failed",
				slog.String("op", op),
				slog.Int("page", st.CurrentPage+1),
				slog.String("err", err.Error()),
			)
			return
		}

		c.log.Debug("infinite_load",
			slog.String("op", op),
			slog.Int("page", st.CurrentPage+1),
			slog.Bool("loaded", ok),
		)
	}()
}
