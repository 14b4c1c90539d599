package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pribylovaa/go-market-search/internal/config"
	apierrors "github.com/pribylovaa/go-market-search/internal/errors"
	"github.com/pribylovaa/go-market-search/internal/models"
	"github.com/pribylovaa/go-market-search/pkg/log"
)

// Options — параметры оркестратора.
type Options struct {
	PageSize          int
	PollInterval      time.Duration
	SettleDelay       time.Duration
	RecentLimit       int
	RecentRefresh     time.Duration
	RecentAfterSubmit time.Duration

	Logger *slog.Logger
	URL    URLState
	// Strategies — порядок восстановления search ID; nil — DefaultStrategies.
	Strategies []IDStrategy
}

// OptionsFromConfig — Options из секции search конфигурации.
func OptionsFromConfig(cfg config.SearchConfig) Options {
	return Options{
		PageSize:          cfg.PageSize,
		PollInterval:      cfg.PollInterval,
		SettleDelay:       cfg.SettleDelay,
		RecentLimit:       cfg.RecentLimit,
		RecentRefresh:     cfg.RecentRefresh,
		RecentAfterSubmit: cfg.RecentAfterSubmit,
	}
}

func (o *Options) setDefaults() {
	if o.PageSize <= 0 {
		o.PageSize = 20
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.SettleDelay < 0 {
		o.SettleDelay = 0
	}
	if o.RecentLimit <= 0 {
		o.RecentLimit = 40
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.URL == nil {
		o.URL = NewMemoryURL("")
	}
}

// SubmitOptions — режим запуска сессии.
type SubmitOptions struct {
	// UseExisting — показать ранее посчитанные результаты без нового краулинга.
	UseExisting bool
	// FallbackToNew — в existing-режиме без совпадения в истории запустить новый поиск.
	FallbackToNew bool
}

// Orchestrator ведёт одну поисковую сессию от запуска до отфильтрованной
// постраничной выдачи.
//
// Особенности:
//   - состояние сессии меняется только под mu, сетевые вызовы — без блокировки;
//   - новая сессия заменяет прежнюю целиком: её контекст, таймеры и опрос
//     останавливаются до того, как стартуют новые;
//   - каждая перезагрузка первой страницы получает номер поколения, ответ
//     устаревшего поколения отбрасывается;
//   - подписчики получают снимок State после каждого изменения, вне блокировки.
type Orchestrator struct {
	fetch    *Fetcher
	auth     Authorizer
	resolver *Resolver
	poller   *Poller
	url      URLState
	opts     Options
	log      *slog.Logger

	root       context.Context
	cancelRoot context.CancelFunc

	mu         sync.Mutex
	s          session
	seq        uint64
	version    uint64
	sessCtx    context.Context
	sessCancel context.CancelFunc
	recent     []models.RecentSearchEntry
	subs       map[uint64]func(State)
	nextSub    uint64
	settle     *time.Timer
	recentSoon *time.Timer
	mounted    bool
	closed     bool

	// wg — таймеры и фоновое обновление истории.
	wg sync.WaitGroup
}

// New создаёт оркестратор. Фоновые задачи стартуют в Mount.
func New(api Backend, auth Authorizer, opts Options) *Orchestrator {
	opts.setDefaults()

	fetch := NewFetcher(api, auth, opts.Logger, opts.RecentLimit)

	strategies := opts.Strategies
	if strategies == nil {
		strategies = DefaultStrategies(fetch)
	}

	o := &Orchestrator{
		fetch:    fetch,
		auth:     auth,
		resolver: NewResolver(opts.Logger, strategies...),
		url:      opts.URL,
		opts:     opts,
		log:      opts.Logger,
		s:        session{filters: models.DefaultFilters()},
		subs:     make(map[uint64]func(State)),
	}

	o.root, o.cancelRoot = context.WithCancel(log.Into(context.Background(), opts.Logger))
	o.sessCtx, o.sessCancel = context.WithCancel(o.root)
	o.poller = NewPoller(fetch, opts.PollInterval, opts.Logger, PollerHooks{
		OnStatus:   o.onStatus,
		OnComplete: o.onComplete,
	})

	return o
}

// Mount запускает периодическое обновление истории и, если в адресе есть q,
// стартует сессию в режиме из use_existing.
func (o *Orchestrator) Mount(ctx context.Context) error {
	const op = "internal/service/orchestrator/Mount"

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return fmt.Errorf("%s: %w", op, ErrClosed)
	}
	if !o.mounted {
		o.mounted = true
		o.wg.Add(1)
		go o.recentLoop()
	}
	o.mu.Unlock()

	q, existing := readURL(o.url)
	if q == "" {
		return nil
	}

	o.log.Info("mount_from_url", slog.String("op", op), slog.String("query", q), slog.Bool("use_existing", existing))
	return o.Submit(ctx, q, SubmitOptions{UseExisting: existing})
}

// Close останавливает опрос, таймеры и фоновые задачи и дожидается их.
// После Close все операции возвращают ErrClosed или являются no-op.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}

	o.closed = true
	o.stopTimerLocked(&o.settle)
	o.stopTimerLocked(&o.recentSoon)
	o.poller.Stop()
	o.sessCancel()
	o.cancelRoot()
	o.subs = nil
	o.mu.Unlock()

	o.poller.Wait()
	o.wg.Wait()
}

// State — текущий снимок.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.s.snapshot(o.version, o.recent)
}

// Subscribe регистрирует подписчика; возвращает функцию отписки.
// Подписчик вызывается синхронно из горутины, изменившей состояние.
func (o *Orchestrator) Subscribe(fn func(State)) (unsubscribe func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return func() {}
	}

	o.nextSub++
	id := o.nextSub
	o.subs[id] = fn

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subs, id)
	}
}

// Submit запускает новую сессию и ждёт первичной загрузки: existing/new
// результатов, восстановления search ID, первой страницы и старта опроса.
//
// Ошибки шагов попадают в State.Error; уже полученные результаты остаются.
func (o *Orchestrator) Submit(ctx context.Context, query string, opts SubmitOptions) error {
	const op = "internal/service/orchestrator/Submit"

	q := strings.TrimSpace(query)
	if q == "" {
		return fmt.Errorf("%s: %w", op, ErrEmptyQuery)
	}

	mode := models.ModeNew
	if opts.UseExisting {
		mode = models.ModeExisting
	}

	seq, sctx, err := o.begin(q, mode)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	cctx, cancel := joinContext(ctx, sctx)
	defer cancel()

	o.log.Info("search_submit",
		slog.String("op", op),
		slog.String("query", q),
		slog.String("mode", string(mode)),
		slog.Uint64("session", seq),
	)

	if mode == models.ModeExisting {
		matched, err := o.hydrateExisting(cctx, seq, q)
		if err == nil && !matched && opts.FallbackToNew {
			o.log.Info("recent_fallback_new", slog.String("op", op), slog.String("query", q))
			return o.Submit(ctx, q, SubmitOptions{})
		}
		return o.finishSubmit(op, seq, sctx, err)
	}

	return o.finishSubmit(op, seq, sctx, o.hydrateNew(cctx, seq, q))
}

// SearchRecent — клик по тегу истории: existing-режим, а без совпадения — новый поиск.
func (o *Orchestrator) SearchRecent(ctx context.Context, query string) error {
	return o.Submit(ctx, query, SubmitOptions{UseExisting: true, FallbackToNew: true})
}

// ResearchLatest — из existing-режима запустить свежий краулинг того же запроса.
func (o *Orchestrator) ResearchLatest(ctx context.Context) error {
	const op = "internal/service/orchestrator/ResearchLatest"

	q := o.State().Query
	if q == "" {
		return fmt.Errorf("%s: %w", op, ErrEmptyQuery)
	}

	return o.Submit(ctx, q, SubmitOptions{})
}

// begin заменяет сессию: отменяет контекст, таймеры и опрос прежней,
// сбрасывает состояние (сортировка и доступность сохраняются) и обновляет адрес.
func (o *Orchestrator) begin(q string, mode models.Mode) (uint64, context.Context, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return 0, nil, ErrClosed
	}

	o.sessCancel()
	o.stopTimerLocked(&o.settle)
	o.poller.Stop()
	o.sessCtx, o.sessCancel = context.WithCancel(o.root)

	o.seq++
	prev := o.s.filters
	o.s = session{
		seq:   o.seq,
		query: q,
		mode:  mode,
		filters: models.Filters{
			SortBy:        prev.SortBy,
			OnlyAvailable: prev.OnlyAvailable,
		},
		pending: 1,
	}
	if !o.s.filters.SortBy.Valid() {
		o.s.filters.SortBy = models.SortCreatedAtDesc
	}

	writeSessionURL(o.url, q, mode == models.ModeExisting)

	seq, sctx := o.seq, o.sessCtx
	st, subs := o.commitLocked()
	o.mu.Unlock()

	notify(subs, st)
	return seq, sctx, nil
}

// hydrateExisting — existing-режим: баннер, история и сохранённые результаты
// параллельно; при совпадении в истории — первая страница по search ID и опрос.
func (o *Orchestrator) hydrateExisting(ctx context.Context, seq uint64, q string) (matched bool, err error) {
	const op = "internal/service/orchestrator/hydrateExisting"

	var (
		g        errgroup.Group
		entries  []models.RecentSearchEntry
		recentOK bool
	)

	g.Go(func() error {
		lt := o.fetch.FetchLatestTime(ctx, q)
		o.update(seq, func(s *session) { s.latest = lt })
		return nil
	})
	g.Go(func() error {
		entries, recentOK = o.fetch.FetchRecent(ctx)
		if recentOK {
			o.setRecent(entries)
		}
		return nil
	})
	g.Go(func() error {
		items := o.fetch.FetchExisting(ctx, q)
		o.update(seq, func(s *session) {
			if !s.canonical {
				s.results = items
			}
		})
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return false, o.replacedOr(seq, err)
	}

	entry, ok := models.FindRecent(entries, q)
	if !ok {
		o.log.Info("recent_no_match", slog.String("op", op), slog.String("query", q), slog.Bool("recent_loaded", recentOK))
		return false, nil
	}

	id := entry.ID.String()
	if !o.update(seq, func(s *session) { s.searchID = id }) {
		return true, ErrSessionReplaced
	}

	o.log.Info("search_id_from_recent", slog.String("op", op), slog.String("search_id", id))

	err = o.loadFirstPage(ctx, seq, true)
	o.startPolling(seq)

	return true, err
}

// hydrateNew — новый поиск: сохранённые результаты как заглушка параллельно
// с запуском краулинга, затем восстановление search ID.
func (o *Orchestrator) hydrateNew(ctx context.Context, seq uint64, q string) error {
	const op = "internal/service/orchestrator/hydrateNew"

	var (
		g       errgroup.Group
		created models.CreateResponse
	)

	// Без WithContext: сбой создания не должен отменять заглушку.
	g.Go(func() error {
		items := o.fetch.FetchExisting(ctx, q)
		o.update(seq, func(s *session) {
			if !s.canonical && len(items) > 0 {
				s.results = items
			}
		})
		return nil
	})
	g.Go(func() error {
		resp, err := o.fetch.CreateSearch(ctx, q)
		if err != nil {
			return err
		}
		created = resp
		return nil
	})

	if err := g.Wait(); err != nil {
		return o.replacedOr(seq, err)
	}

	raw := models.DedupeByLink(created.Items)
	o.update(seq, func(s *session) {
		if !s.canonical && len(s.results) == 0 {
			s.results = raw
		}
	})

	id, strategy, ok := o.resolver.Resolve(ctx, ResolveInput{Query: q, Response: created})
	if !ok {
		if err := ctx.Err(); err != nil {
			return o.replacedOr(seq, err)
		}

		o.update(seq, func(s *session) {
			s.degraded = true
			if len(raw) > 0 {
				s.results = raw
				s.pagination = &models.Pagination{
					CurrentPage: 1,
					TotalPages:  1,
					PageSize:    o.opts.PageSize,
					TotalItems:  len(raw),
				}
			}
		})
		o.log.Warn("search_degraded", slog.String("op", op), slog.String("query", q), slog.Int("items", len(raw)))
		o.scheduleRecentRefresh()
		return nil
	}

	if !o.update(seq, func(s *session) { s.searchID = id }) {
		return ErrSessionReplaced
	}

	o.log.Info("search_created", slog.String("op", op), slog.String("search_id", id), slog.String("strategy", strategy))

	err := o.loadFirstPage(ctx, seq, false)
	o.startPolling(seq)
	o.scheduleRecentRefresh()

	return err
}

// finishSubmit снимает флаг загрузки сессии и выставляет баннер ошибки.
func (o *Orchestrator) finishSubmit(op string, seq uint64, sctx context.Context, err error) error {
	applied := o.update(seq, func(s *session) {
		s.pending--
		if err == nil || errors.Is(err, ErrSessionReplaced) {
			return
		}
		if msg := apierrors.UserMessage(err); msg != "" {
			s.err = msg
		}
	})

	if !applied || sctx.Err() != nil {
		return fmt.Errorf("%s: %w", op, ErrSessionReplaced)
	}
	if err != nil {
		o.log.Warn("search_submit_failed",
			slog.String("op", op),
			slog.String("kind", apierrors.Classify(err).String()),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// loadFirstPage перезагружает первую страницу с текущими фильтрами.
// preferLarger — оставить текущие результаты, если их больше, чем на странице.
func (o *Orchestrator) loadFirstPage(ctx context.Context, seq uint64, preferLarger bool) error {
	const op = "internal/service/orchestrator/loadFirstPage"

	var (
		q   models.PageQuery
		gen uint64
	)
	if !o.update(seq, func(s *session) {
		s.gen++
		gen = s.gen
		s.pending++
		s.loadingMore = false
		if s.pagination != nil {
			s.pagination.CurrentPage = 1
			s.pagination.HasNext = false
		}
		q = s.pageQuery(1, o.opts.PageSize)
	}) {
		return ErrSessionReplaced
	}

	page, err := o.fetch.FetchPage(ctx, q)

	var stale, kept bool
	applied := o.update(seq, func(s *session) {
		s.pending--
		if s.gen != gen {
			stale = true
			return
		}
		if err != nil {
			if msg := apierrors.UserMessage(err); msg != "" {
				s.err = msg
			}
			return
		}

		s.err = ""
		if preferLarger && len(page.Items) < len(s.results) {
			kept = true
		} else {
			s.results = models.DedupeByLink(page.Items)
		}
		p := page.Pagination
		s.pagination = &p
		s.categoryCounts = page.CategoryCounts
		s.canonical = true
	})

	switch {
	case !applied:
		return ErrSessionReplaced
	case stale:
		o.log.Debug("page_stale_discarded", slog.String("op", op), slog.Uint64("gen", gen))
		return nil
	case err != nil:
		o.log.Warn("first_page_failed", slog.String("op", op), slog.String("search_id", q.SearchID), slog.String("err", err.Error()))
		return err
	}

	o.log.Debug("first_page_applied",
		slog.String("op", op),
		slog.String("search_id", q.SearchID),
		slog.Int("items", len(page.Items)),
		slog.Bool("kept_existing", kept),
		slog.Bool("malformed", page.Malformed),
	)
	return nil
}

func (o *Orchestrator) startPolling(seq uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed || o.s.seq != seq || o.s.searchID == "" {
		return
	}

	o.poller.Start(o.sessCtx, o.s.searchID)
}

func (o *Orchestrator) onStatus(searchID string, st models.SearchStatus) {
	o.mu.Lock()
	if o.closed || o.s.searchID != searchID {
		o.mu.Unlock()
		return
	}

	o.s.status = &st
	state, subs := o.commitLocked()
	o.mu.Unlock()

	notify(subs, state)
}

// onComplete — после паузы перезагрузить первую страницу с фильтрами,
// актуальными на момент срабатывания таймера.
func (o *Orchestrator) onComplete(searchID string, st models.SearchStatus) {
	const op = "internal/service/orchestrator/onComplete"

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed || o.s.searchID != searchID {
		return
	}

	if o.s.mode == models.ModeNew && st.IsCompleted && st.CompletionPercentage >= 100 {
		markExistingURL(o.url)
	}

	seq := o.s.seq
	o.scheduleLocked(&o.settle, o.opts.SettleDelay, func() {
		o.mu.Lock()
		ctx, current := o.sessCtx, !o.closed && o.s.seq == seq
		o.mu.Unlock()

		if !current {
			return
		}

		if err := o.loadFirstPage(ctx, seq, false); err != nil && !errors.Is(err, ErrSessionReplaced) {
			o.log.Warn("completion_reload_failed", slog.String("op", op), slog.String("err", err.Error()))
		}
	})
}

// update применяет fn к сессии seq, если она всё ещё текущая, и уведомляет подписчиков.
func (o *Orchestrator) update(seq uint64, fn func(s *session)) bool {
	o.mu.Lock()
	if o.closed || o.s.seq != seq {
		o.mu.Unlock()
		return false
	}

	fn(&o.s)
	st, subs := o.commitLocked()
	o.mu.Unlock()

	notify(subs, st)
	return true
}

func (o *Orchestrator) commitLocked() (State, []func(State)) {
	o.version++
	st := o.s.snapshot(o.version, o.recent)

	subs := make([]func(State), 0, len(o.subs))
	for _, fn := range o.subs {
		subs = append(subs, fn)
	}

	return st, subs
}

func notify(subs []func(State), st State) {
	for _, fn := range subs {
		fn(st)
	}
}

// replacedOr — ErrSessionReplaced, если сессия seq больше не текущая, иначе err.
func (o *Orchestrator) replacedOr(seq uint64, err error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed || o.s.seq != seq {
		return ErrSessionReplaced
	}

	return err
}

// scheduleLocked заводит отменяемый таймер; прежний таймер того же вида отменяется.
func (o *Orchestrator) scheduleLocked(t **time.Timer, d time.Duration, fn func()) {
	o.stopTimerLocked(t)

	o.wg.Add(1)
	*t = time.AfterFunc(d, func() {
		defer o.wg.Done()
		fn()
	})
}

func (o *Orchestrator) stopTimerLocked(t **time.Timer) {
	if *t != nil && (*t).Stop() {
		o.wg.Done()
	}
	*t = nil
}

// joinContext — контекст вызова, который отменяется и вместе с сессией.
func joinContext(ctx, sess context.Context) (context.Context, context.CancelFunc) {
	cctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(sess, cancel)

	return cctx, func() {
		stop()
		cancel()
	}
}
