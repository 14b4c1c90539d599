package ui

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-market-search/internal/models"
	"github.com/pribylovaa/go-market-search/internal/service"
)

// fakeObserver — наблюдатель видимости; подписки срабатывают по fire.
type fakeObserver struct {
	mu   sync.Mutex
	subs []*fakeSub
}

type fakeSub struct {
	opts         IntersectionOptions
	fn           func(IntersectionEntry)
	disconnected bool
}

func (o *fakeObserver) Observe(opts IntersectionOptions, fn func(IntersectionEntry)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := &fakeSub{opts: opts, fn: fn}
	o.subs = append(o.subs, s)

	return func() {
		o.mu.Lock()
		s.disconnected = true
		o.mu.Unlock()
	}
}

func (o *fakeObserver) sub(i int) *fakeSub {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.subs[i]
}

func (o *fakeObserver) len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.subs)
}

// fire вызывает колбэк i-й подписки, даже если она уже отключена.
func (o *fakeObserver) fire(i int, visible bool) {
	o.sub(i).fn(IntersectionEntry{Intersecting: visible, Ratio: 0.5})
}

type fakeLoader struct {
	calls atomic.Int32
	gate  chan struct{}
	err   error
}

func (l *fakeLoader) LoadNextPage(ctx context.Context) (bool, error) {
	l.calls.Add(1)
	if l.gate != nil {
		select {
		case <-l.gate:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	if l.err != nil {
		return false, l.err
	}
	return true, nil
}

func loadable(page int) PagingState {
	return PagingState{
		SearchID:    "abc",
		HasNext:     true,
		CurrentPage: page,
		Filters:     models.DefaultFilters(),
	}
}

// TestInfiniteScroll_LoadsWhenSentinelVisible — видимый сентинел запускает подгрузку
// с порогом 0.01 и упреждением 300px.
func TestInfiniteScroll_LoadsWhenSentinelVisible(t *testing.T) {
	t.Parallel()

	obs := &fakeObserver{}
	loader := &fakeLoader{}
	c := NewInfiniteScroll(obs, loader, InfiniteOptions{Threshold: 0.01, RootMargin: 300, Logger: discardLogger()})
	defer c.Close()

	c.Sync(loadable(1))
	require.Equal(t, 1, obs.len())
	require.Equal(t, IntersectionOptions{Threshold: 0.01, RootMargin: 300}, obs.sub(0).opts)

	obs.fire(0, false)
	c.Wait()
	require.Zero(t, loader.calls.Load())

	obs.fire(0, true)
	c.Wait()
	require.EqualValues(t, 1, loader.calls.Load())
}

// TestInfiniteScroll_Guards — без search ID, следующей страницы или во время
// загрузки подгрузка не запускается.
func TestInfiniteScroll_Guards(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		state func(PagingState) PagingState
	}{
		{"no_search_id", func(p PagingState) PagingState { p.SearchID = ""; return p }},
		{"no_next", func(p PagingState) PagingState { p.HasNext = false; return p }},
		{"loading", func(p PagingState) PagingState { p.Loading = true; return p }},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			obs := &fakeObserver{}
			loader := &fakeLoader{}
			c := NewInfiniteScroll(obs, loader, InfiniteOptions{Logger: discardLogger()})
			defer c.Close()

			c.Sync(tc.state(loadable(1)))
			obs.fire(0, true)
			c.Wait()

			require.Zero(t, loader.calls.Load())
		})
	}
}

// TestInfiniteScroll_ResubscribesOnChange — подписка пересоздаётся только при
// изменении состояния, колбэк старой подписки игнорируется.
func TestInfiniteScroll_ResubscribesOnChange(t *testing.T) {
	t.Parallel()

	obs := &fakeObserver{}
	loader := &fakeLoader{}
	c := NewInfiniteScroll(obs, loader, InfiniteOptions{Logger: discardLogger()})
	defer c.Close()

	c.Sync(loadable(1))
	c.Sync(loadable(1))
	require.Equal(t, 1, c.Subscriptions())

	next := loadable(1)
	next.Filters.Categories = models.CategorySet{3}
	c.Sync(next)
	require.Equal(t, 2, c.Subscriptions())
	require.True(t, obs.sub(0).disconnected)
	require.False(t, obs.sub(1).disconnected)

	obs.fire(0, true)
	c.Wait()
	require.Zero(t, loader.calls.Load())

	obs.fire(1, true)
	c.Wait()
	require.EqualValues(t, 1, loader.calls.Load())
}

// TestInfiniteScroll_SingleFlight — пока подгрузка идёт, повторные срабатывания игнорируются.
func TestInfiniteScroll_SingleFlight(t *testing.T) {
	t.Parallel()

	obs := &fakeObserver{}
	loader := &fakeLoader{gate: make(chan struct{})}
	c := NewInfiniteScroll(obs, loader, InfiniteOptions{Logger: discardLogger()})
	defer c.Close()

	c.Sync(loadable(2))
	obs.fire(0, true)
	require.Eventually(t, func() bool { return loader.calls.Load() == 1 }, time.Second, time.Millisecond)

	obs.fire(0, true)
	obs.fire(0, true)

	close(loader.gate)
	c.Wait()
	require.EqualValues(t, 1, loader.calls.Load())
}

// TestInfiniteScroll_LogsFailure — ошибка подгрузки пишется в лог с номером страницы.
func TestInfiniteScroll_LogsFailure(t *testing.T) {
	t.Parallel()

	h := &capHandler{}
	obs := &fakeObserver{}
	loader := &fakeLoader{err: errors.New("boom")}
	c := NewInfiniteScroll(obs, loader, InfiniteOptions{Logger: slog.New(h)})
	defer c.Close()

	c.Sync(loadable(3))
	obs.fire(0, true)
	c.Wait()

	rec, ok := h.last("infinite_load_failed")
	require.True(t, ok)
	require.Equal(t, slog.LevelWarn, rec.lvl)
	require.EqualValues(t, 4, rec.attrs["page"])
	require.Equal(t, "boom", rec.attrs["err"])
}

// TestInfiniteScroll_CloseCancelsInFlight — Close отменяет подгрузку и отключает наблюдатель.
func TestInfiniteScroll_CloseCancelsInFlight(t *testing.T) {
	t.Parallel()

	obs := &fakeObserver{}
	loader := &fakeLoader{gate: make(chan struct{})}
	c := NewInfiniteScroll(obs, loader, InfiniteOptions{Logger: discardLogger()})

	c.Sync(loadable(1))
	obs.fire(0, true)
	require.Eventually(t, func() bool { return loader.calls.Load() == 1 }, time.Second, time.Millisecond)

	c.Close()
	require.True(t, obs.sub(0).disconnected)

	c.Sync(loadable(2))
	require.Equal(t, 1, obs.len())
}

// TestInfiniteScroll_CloseRacesIntersect — срабатывания наблюдателя параллельно
// с Close не запускают загрузок после его возврата.
func TestInfiniteScroll_CloseRacesIntersect(t *testing.T) {
	t.Parallel()

	for i := 0; i < 50; i++ {
		obs := &fakeObserver{}
		loader := &fakeLoader{}
		c := NewInfiniteScroll(obs, loader, InfiniteOptions{Logger: discardLogger()})
		c.Sync(loadable(1))

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				obs.fire(0, true)
			}
		}()

		c.Close()
		wg.Wait()

		after := loader.calls.Load()
		obs.fire(0, true)
		require.Equal(t, after, loader.calls.Load())
	}
}

// fakeStates — источник снимков с ручной рассылкой.
type fakeStates struct {
	mu  sync.Mutex
	cur service.State
	fns []func(service.State)
}

func (s *fakeStates) State() service.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

func (s *fakeStates) Subscribe(fn func(service.State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fns = append(s.fns, fn)
	return func() {}
}

func (s *fakeStates) publish(st service.State) {
	s.mu.Lock()
	s.cur = st
	fns := append([]func(service.State){}, s.fns...)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

// TestInfiniteScroll_Bind — привязка к источнику состояния следует за пагинацией.
func TestInfiniteScroll_Bind(t *testing.T) {
	t.Parallel()

	states := &fakeStates{cur: service.State{
		SearchID:   "abc",
		Pagination: &models.Pagination{CurrentPage: 1, HasNext: true},
		Filters:    models.DefaultFilters(),
	}}

	obs := &fakeObserver{}
	loader := &fakeLoader{}
	c := NewInfiniteScroll(obs, loader, InfiniteOptions{Logger: discardLogger()})
	defer c.Close()

	unbind := c.Bind(states)
	defer unbind()
	require.Equal(t, 1, c.Subscriptions())

	states.publish(service.State{
		SearchID:   "abc",
		Pagination: &models.Pagination{CurrentPage: 2, HasNext: false},
		Filters:    models.DefaultFilters(),
	})
	require.Equal(t, 2, c.Subscriptions())

	obs.fire(1, true)
	c.Wait()
	require.Zero(t, loader.calls.Load())
}
