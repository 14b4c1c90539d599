package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/pribylovaa/go-market-search/internal/models"
)

// RefreshRecent перечитывает историю поисков.
// Для анонимного пользователя история не запрашивается и не меняется.
func (o *Orchestrator) RefreshRecent(ctx context.Context) bool {
	entries, ok := o.fetch.FetchRecent(ctx)
	if !ok {
		return false
	}

	o.setRecent(entries)
	return true
}

// ClearRecent — сброс истории, например после выхода пользователя.
func (o *Orchestrator) ClearRecent() {
	o.setRecent(nil)
}

func (o *Orchestrator) setRecent(entries []models.RecentSearchEntry) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}

	o.recent = entries
	st, subs := o.commitLocked()
	o.mu.Unlock()

	notify(subs, st)
}

// recentLoop — первое обновление сразу, далее раз в RecentRefresh.
func (o *Orchestrator) recentLoop() {
	const op = "internal/service/recent/recentLoop"
	defer o.wg.Done()

	o.RefreshRecent(o.root)

	if o.opts.RecentRefresh <= 0 {
		return
	}

	ticker := time.NewTicker(o.opts.RecentRefresh)
	defer ticker.Stop()

	o.log.Debug("recent_loop_started", slog.String("op", op), slog.Duration("interval", o.opts.RecentRefresh))

	for {
		select {
		case <-o.root.Done():
			return
		case <-ticker.C:
			o.RefreshRecent(o.root)
		}
	}
}

// scheduleRecentRefresh — отложенное обновление истории после запуска поиска,
// чтобы новый запрос успел попасть в историю на бэкенде.
func (o *Orchestrator) scheduleRecentRefresh() {
	if o.auth == nil || !o.auth.IsAuthenticated() {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}

	o.scheduleLocked(&o.recentSoon, o.opts.RecentAfterSubmit, func() {
		o.RefreshRecent(o.root)
	})
}
