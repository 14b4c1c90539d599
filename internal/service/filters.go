package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pribylovaa/go-market-search/internal/models"
)

// SetSortBy меняет сортировку. Без search ID значение только запоминается.
func (o *Orchestrator) SetSortBy(ctx context.Context, by models.SortBy) error {
	const op = "internal/service/filters/SetSortBy"

	if !by.Valid() {
		return fmt.Errorf("%s: unsupported sort %q", op, by)
	}

	return o.changeFilters(ctx, op, false, func(f *models.Filters) { f.SortBy = by })
}

// SetOnlyAvailable включает или выключает фильтр "только в продаже".
func (o *Orchestrator) SetOnlyAvailable(ctx context.Context, only bool) error {
	const op = "internal/service/filters/SetOnlyAvailable"
	return o.changeFilters(ctx, op, false, func(f *models.Filters) { f.OnlyAvailable = only })
}

// ToggleOnlyAvailable переключает фильтр "только в продаже".
func (o *Orchestrator) ToggleOnlyAvailable(ctx context.Context) error {
	const op = "internal/service/filters/ToggleOnlyAvailable"
	return o.changeFilters(ctx, op, false, func(f *models.Filters) { f.OnlyAvailable = !f.OnlyAvailable })
}

// SelectCategory переключает категорию id; nil очищает набор.
// Требует search ID.
func (o *Orchestrator) SelectCategory(ctx context.Context, id *int) error {
	const op = "internal/service/filters/SelectCategory"

	return o.changeFilters(ctx, op, true, func(f *models.Filters) {
		if id == nil {
			f.Categories = nil
			return
		}
		f.Categories = f.Categories.Toggle(*id)
	})
}

// ResetFilters возвращает фильтры по умолчанию.
func (o *Orchestrator) ResetFilters(ctx context.Context) error {
	const op = "internal/service/filters/ResetFilters"
	return o.changeFilters(ctx, op, false, func(f *models.Filters) { *f = models.DefaultFilters() })
}

// changeFilters применяет fn к фильтрам и, если они изменились и search ID
// известен, перезагружает первую страницу с заменой результатов.
// Параллельные изменения не объединяются: каждое даёт свой запрос,
// применяется ответ последнего.
func (o *Orchestrator) changeFilters(ctx context.Context, op string, needsID bool, fn func(f *models.Filters)) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return fmt.Errorf("%s: %w", op, ErrClosed)
	}

	s := &o.s
	canFetch := s.searchID != "" && !s.degraded
	if needsID && !canFetch {
		err := ErrNoSearchID
		if s.degraded {
			err = ErrDegraded
		}
		o.mu.Unlock()
		return fmt.Errorf("%s: %w", op, err)
	}

	before := s.filters.Clone()
	fn(&s.filters)
	changed := !before.Equal(s.filters)
	if !changed {
		o.mu.Unlock()
		return nil
	}

	filters := s.filters.Clone()
	seq, sctx := s.seq, o.sessCtx
	st, subs := o.commitLocked()
	o.mu.Unlock()

	notify(subs, st)

	o.log.Debug("filters_changed",
		slog.String("op", op),
		slog.String("sort_by", string(filters.SortBy)),
		slog.Bool("only_available", filters.OnlyAvailable),
		slog.Any("categories", []int(filters.Categories)),
		slog.Bool("reload", canFetch),
	)

	if !canFetch {
		return nil
	}

	cctx, cancel := joinContext(ctx, sctx)
	defer cancel()

	if err := o.loadFirstPage(cctx, seq, false); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// LoadNextPage догружает следующую страницу и сливает её с текущими
// результатами по link. Возвращает false, если загрузка не нужна или
// невозможна: нет search ID, нет следующей страницы, уже идёт загрузка.
//
// Номер страницы увеличивается заранее и откатывается при ошибке.
func (o *Orchestrator) LoadNextPage(ctx context.Context) (bool, error) {
	const op = "internal/service/filters/LoadNextPage"

	o.mu.Lock()
	s := &o.s
	if o.closed || s.searchID == "" || s.degraded || s.pagination == nil ||
		!s.pagination.HasNext || s.loadingMore || s.pending > 0 {
		o.mu.Unlock()
		return false, nil
	}

	prev := s.pagination.CurrentPage
	next := prev + 1
	s.loadingMore = true
	s.loadSeq++
	s.pagination.CurrentPage = next

	token, gen, seq, sctx := s.loadSeq, s.gen, s.seq, o.sessCtx
	q := s.pageQuery(next, o.opts.PageSize)
	st, subs := o.commitLocked()
	o.mu.Unlock()

	notify(subs, st)

	cctx, cancel := joinContext(ctx, sctx)
	defer cancel()

	page, err := o.fetch.FetchPage(cctx, q)

	var stale bool
	applied := o.update(seq, func(s *session) {
		if s.gen != gen || s.loadSeq != token {
			stale = true
			return
		}

		s.loadingMore = false
		if err != nil || page.Malformed {
			if s.pagination != nil {
				s.pagination.CurrentPage = prev
			}
			return
		}

		s.results = models.MergeByLink(s.results, page.Items)
		p := page.Pagination
		s.pagination = &p
	})

	switch {
	case !applied:
		return false, fmt.Errorf("%s: %w", op, ErrSessionReplaced)
	case stale:
		o.log.Debug("next_page_stale_discarded", slog.String("op", op), slog.Int("page", next))
		return false, nil
	case err != nil:
		o.log.Warn("next_page_failed", slog.String("op", op), slog.Int("page", next), slog.String("err", err.Error()))
		return false, fmt.Errorf("%s: %w", op, err)
	case page.Malformed:
		o.log.Warn("next_page_malformed", slog.String("op", op), slog.Int("page", next))
		return false, nil
	}

	return true, nil
}
