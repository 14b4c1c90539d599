package ui

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/pribylovaa/go-market-search/internal/config"
)

// echoTolerance — допуск (px), в котором событие прокрутки считается
// откликом на программный ScrollTo.
const echoTolerance = 1

// Window — окно прокрутки. ResultsTop возвращает верх блока результатов
// относительно вьюпорта; false — блок не отрисован.
type Window interface {
	ScrollY() float64
	ScrollTo(y float64)
	ResultsTop() (float64, bool)
}

// FrameScheduler планирует кадр анимации. fn не должен вызываться синхронно.
type FrameScheduler interface {
	RequestFrame(fn func(now time.Time)) (cancel func())
}

// ScrollOptions — параметры программной прокрутки.
type ScrollOptions struct {
	// QuietPeriod — сколько ждать после последнего пользовательского события,
	// прежде чем снова разрешить автопрокрутку.
	QuietPeriod   time.Duration
	Animation     time.Duration
	DeferredDelay time.Duration
	// ResultsOffset — отступ над блоком результатов после прокрутки.
	ResultsOffset float64
	// InstantThreshold — расстояние, ближе которого анимация не запускается.
	InstantThreshold float64
	Logger           *slog.Logger
}

// ScrollOptionsFromConfig — ScrollOptions из секции scroll.
func ScrollOptionsFromConfig(cfg config.ScrollConfig) ScrollOptions {
	return ScrollOptions{
		QuietPeriod:      cfg.QuietPeriod,
		Animation:        cfg.Animation,
		DeferredDelay:    cfg.DeferredDelay,
		ResultsOffset:    cfg.ResultsOffset,
		InstantThreshold: cfg.InstantThreshold,
	}
}

func (o *ScrollOptions) setDefaults() {
	if o.QuietPeriod <= 0 {
		o.QuietPeriod = 300 * time.Millisecond
	}
	if o.Animation <= 0 {
		o.Animation = 120 * time.Millisecond
	}
	if o.DeferredDelay <= 0 {
		o.DeferredDelay = 800 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// ScrollController прокручивает к результатам после смены фильтров и
// уступает пользователю: любое его действие отменяет анимацию и отложенную
// прокрутку, а новые автопрокрутки подавляются до конца QuietPeriod.
type ScrollController struct {
	win    Window
	frames FrameScheduler
	opts   ScrollOptions
	log    *slog.Logger

	mu            sync.Mutex
	userScrolling bool
	quiet         *time.Timer
	deferred      *time.Timer

	// animID отличает текущую анимацию от отменённых.
	animID        uint64
	autoScrolling bool
	cancelFrame   func()
	// frameY — положение, выставленное последним кадром анимации.
	frameY    float64
	hasFrameY bool
	// echo — цель последнего мгновенного ScrollTo; nil — отклика не ждём.
	echo *float64

	closed bool
	wg     sync.WaitGroup
}

func NewScrollController(win Window, frames FrameScheduler, opts ScrollOptions) *ScrollController {
	opts.setDefaults()

	return &ScrollController{
		win:    win,
		frames: frames,
		opts:   opts,
		log:    opts.Logger,
	}
}

// OnScroll — событие прокрутки окна. Отклики на собственные ScrollTo
// не считаются пользовательской прокруткой.
func (c *ScrollController) OnScroll(y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	if c.echo != nil && math.Abs(y-*c.echo) <= echoTolerance {
		c.echo = nil
		return
	}

	// Отклик на кадр анимации; любое другое положение — прокрутка пользователя.
	if c.autoScrolling && c.hasFrameY && math.Abs(y-c.frameY) <= echoTolerance {
		return
	}

	c.userActivityLocked("scroll")
}

// OnWheel — колесо мыши.
func (c *ScrollController) OnWheel() { c.userInput("wheel") }

// OnTouch — начало касания.
func (c *ScrollController) OnTouch() { c.userInput("touch") }

func (c *ScrollController) userInput(source string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.userActivityLocked(source)
}

func (c *ScrollController) userActivityLocked(source string) {
	const op = "internal/ui/scroll/userActivity"

	if !c.userScrolling {
		c.log.Debug("user_scroll_started", slog.String("op", op), slog.String("source", source))
	}

	c.userScrolling = true
	c.echo = nil
	c.cancelAllLocked()

	c.scheduleLocked(&c.quiet, c.opts.QuietPeriod, func() {
		c.mu.Lock()
		c.userScrolling = false
		c.mu.Unlock()
	})
}

// UserScrolling — пользователь прокручивал страницу в пределах QuietPeriod.
func (c *ScrollController) UserScrolling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userScrolling
}

// Animating — идёт анимированная прокрутка.
func (c *ScrollController) Animating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoScrolling
}

// ScrollToResultsInstant мгновенно прокручивает к началу результатов, если
// блок ушёл выше вьюпорта. Возвращает false, если прокрутка не понадобилась
// или была подавлена.
func (c *ScrollController) ScrollToResultsInstant() bool {
	top, ok := c.win.ResultsTop()
	if !ok || top >= 0 {
		return false
	}
	target := c.win.ScrollY() + top - c.opts.ResultsOffset

	c.mu.Lock()
	if c.closed || c.userScrolling {
		c.mu.Unlock()
		return false
	}
	c.stopAnimationLocked()
	c.echo = &target
	c.mu.Unlock()

	c.win.ScrollTo(target)
	return true
}

// ScrollToResults плавно прокручивает к началу результатов.
// Короткое расстояние проходится мгновенно.
func (c *ScrollController) ScrollToResults() bool {
	const op = "internal/ui/scroll/ScrollToResults"

	top, ok := c.win.ResultsTop()
	if !ok || top >= 0 {
		return false
	}
	start := c.win.ScrollY()
	target := start + top - c.opts.ResultsOffset
	distance := target - start

	c.mu.Lock()
	if c.closed || c.userScrolling {
		c.mu.Unlock()
		return false
	}
	c.stopAnimationLocked()

	if math.Abs(distance) < c.opts.InstantThreshold {
		c.echo = &target
		c.mu.Unlock()

		c.win.ScrollTo(target)
		return true
	}

	c.animID++
	id := c.animID
	c.autoScrolling = true
	c.hasFrameY = false
	c.echo = nil

	var began time.Time
	var frame func(now time.Time)
	frame = func(now time.Time) {
		c.mu.Lock()
		if c.closed || c.animID != id || c.userScrolling {
			c.mu.Unlock()
			return
		}
		if began.IsZero() {
			began = now
		}

		p := float64(now.Sub(began)) / float64(c.opts.Animation)
		if p >= 1 {
			p = 1
		}
		y := start + distance*easeOutQuad(p)
		c.frameY, c.hasFrameY = y, true

		if p < 1 {
			c.cancelFrame = c.frames.RequestFrame(frame)
		} else {
			c.autoScrolling = false
			c.cancelFrame = nil
			c.echo = &target
		}
		c.mu.Unlock()

		c.win.ScrollTo(y)
	}

	c.cancelFrame = c.frames.RequestFrame(frame)
	c.mu.Unlock()

	c.log.Debug("scroll_animation_started",
		slog.String("op", op),
		slog.Float64("from", start),
		slog.Float64("to", target),
	)

	return true
}

// ScrollWithDelay откладывает плавную прокрутку на DeferredDelay, чтобы
// выдача успела перерисоваться. Повторный вызов переносит срок.
func (c *ScrollController) ScrollWithDelay() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.scheduleLocked(&c.deferred, c.opts.DeferredDelay, func() {
		if !c.UserScrolling() {
			c.ScrollToResults()
		}
	})
}

// AfterFilterChange — смена сортировки или фильтра доступности.
func (c *ScrollController) AfterFilterChange() { c.ScrollToResultsInstant() }

// AfterCategoryChange — смена категории: прокрутка после перерисовки.
func (c *ScrollController) AfterCategoryChange() { c.ScrollWithDelay() }

// CancelAllPending отменяет анимацию и отложенную прокрутку.
func (c *ScrollController) CancelAllPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelAllLocked()
}

func (c *ScrollController) cancelAllLocked() {
	c.stopAnimationLocked()
	c.stopTimerLocked(&c.deferred)
}

func (c *ScrollController) stopAnimationLocked() {
	c.animID++
	c.autoScrolling = false
	if c.cancelFrame != nil {
		c.cancelFrame()
		c.cancelFrame = nil
	}
}

// Close отменяет всё запланированное и ждёт таймеры.
func (c *ScrollController) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cancelAllLocked()
	c.stopTimerLocked(&c.quiet)
	c.mu.Unlock()

	c.wg.Wait()
}

func (c *ScrollController) scheduleLocked(t **time.Timer, d time.Duration, fn func()) {
	c.stopTimerLocked(t)

	c.wg.Add(1)
	*t = time.AfterFunc(d, func() {
		defer c.wg.Done()
		fn()
	})
}

func (c *ScrollController) stopTimerLocked(t **time.Timer) {
	if *t != nil && (*t).Stop() {
		c.wg.Done()
	}
	*t = nil
}

func easeOutQuad(p float64) float64 {
	return 1 - (1-p)*(1-p)
}
