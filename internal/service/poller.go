package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pribylovaa/go-market-search/internal/models"
)

// PollerState — состояние опроса.
type PollerState int

const (
	PollIdle PollerState = iota
	PollPolling
	PollCompleted
)

func (s PollerState) String() string {
	switch s {
	case PollPolling:
		return "polling"
	case PollCompleted:
		return "completed"
	default:
		return "idle"
	}
}

// StatusSource — откуда брать статус краулинга.
type StatusSource interface {
	FetchStatus(ctx context.Context, searchID string) (models.SearchStatus, error)
}

// PollerHooks — колбэки опроса. Вызываются из горутины опроса.
type PollerHooks struct {
	// OnStatus — на каждый успешный ответ, включая финальный.
	OnStatus func(searchID string, st models.SearchStatus)
	// OnComplete — ровно один раз, после финального OnStatus.
	OnComplete func(searchID string, st models.SearchStatus)
}

// Poller опрашивает статус одного search ID до завершения.
//
// Особенности:
//   - первый запрос уходит сразу, дальше — раз в interval;
//   - запросы последовательны: следующий не начнётся, пока не завершится текущий;
//   - ошибки пишутся в лог и не останавливают опрос;
//   - после финального статуса для этого search ID запросов больше нет;
//   - смена search ID останавливает прежний цикл и запускает новый.
type Poller struct {
	src      StatusSource
	interval time.Duration
	hooks    PollerHooks
	log      *slog.Logger

	mu     sync.Mutex
	state  PollerState
	id     string
	gen    uint64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPoller(src StatusSource, interval time.Duration, log *slog.Logger, hooks PollerHooks) *Poller {
	if log == nil {
		log = slog.Default()
	}

	return &Poller{src: src, interval: interval, hooks: hooks, log: log}
}

// Start начинает опрос searchID. Тот же search ID — no-op (в том числе после
// завершения); пустой ID равносилен Stop.
func (p *Poller) Start(ctx context.Context, searchID string) {
	if searchID == "" {
		p.Stop()
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.id == searchID && p.state != PollIdle {
		return
	}

	p.stopLocked()

	p.gen++
	gen := p.gen
	p.id = searchID
	p.state = PollPolling

	cctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.run(cctx, searchID, gen)
}

// Stop прекращает опрос и возвращает поллер в Idle. Не ждёт горутину — для этого Wait.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	p.id = ""
	p.state = PollIdle
}

func (p *Poller) stopLocked() {
	p.gen++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Wait ждёт завершения всех запущенных циклов.
func (p *Poller) Wait() { p.wg.Wait() }

func (p *Poller) State() PollerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Poller) SearchID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.id
}

func (p *Poller) current(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen == gen
}

func (p *Poller) run(ctx context.Context, searchID string, gen uint64) {
	const op = "internal/service/poller/run"
	defer p.wg.Done()

	lg := p.log.With(slog.String("search_id", searchID))
	lg.Debug("poll_start", slog.String("op", op), slog.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if p.tick(ctx, lg, searchID, gen) {
			return
		}

		select {
		case <-ctx.Done():
			lg.Debug("poll_stop", slog.String("op", op))
			return
		case <-ticker.C:
		}
	}
}

// tick — один запрос статуса; true, если цикл нужно завершить.
func (p *Poller) tick(ctx context.Context, lg *slog.Logger, searchID string, gen uint64) bool {
	const op = "internal/service/poller/tick"

	st, err := p.src.FetchStatus(ctx, searchID)
	if ctx.Err() != nil || !p.current(gen) {
		return true
	}

	if err != nil {
		lg.Warn("poll_tick_error", slog.String("op", op), slog.String("err", err.Error()))
		return false
	}

	if p.hooks.OnStatus != nil {
		p.hooks.OnStatus(searchID, st)
	}

	if !st.Terminal() {
		return false
	}

	p.mu.Lock()
	if p.gen == gen {
		p.state = PollCompleted
		if p.cancel != nil {
			p.cancel()
			p.cancel = nil
		}
	}
	p.mu.Unlock()

	lg.Info("poll_completed",
		slog.String("op", op),
		slog.Float64("percentage", st.CompletionPercentage),
		slog.Int("items", st.TotalItemsFound),
	)

	if p.hooks.OnComplete != nil {
		p.hooks.OnComplete(searchID, st)
	}

	return true
}
