package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pribylovaa/go-market-search/internal/clients"
	"github.com/pribylovaa/go-market-search/internal/models"
)

// ResolveInput — всё, что известно о только что созданном поиске.
type ResolveInput struct {
	Query    string
	Response models.CreateResponse
}

// IDStrategy — один способ достать search ID.
type IDStrategy struct {
	Name    string
	Resolve func(ctx context.Context, in ResolveInput) (string, bool)
}

// HeaderStrategy — точное имя заголовка X-Search-Id.
func HeaderStrategy() IDStrategy {
	return IDStrategy{
		Name: "header",
		Resolve: func(_ context.Context, in ResolveInput) (string, bool) {
			id := strings.TrimSpace(in.Response.Header.Get(clients.HeaderSearchID))
			return id, id != ""
		},
	}
}

// HeaderFoldStrategy — поиск заголовка без учёта регистра по всем ключам
// (заголовки, собранные не через http.Header.Set, не канонизированы).
func HeaderFoldStrategy() IDStrategy {
	return IDStrategy{
		Name: "header_fold",
		Resolve: func(_ context.Context, in ResolveInput) (string, bool) {
			for k, vs := range in.Response.Header {
				if !strings.EqualFold(k, clients.HeaderSearchID) {
					continue
				}
				for _, v := range vs {
					if v = strings.TrimSpace(v); v != "" {
						return v, true
					}
				}
			}
			return "", false
		},
	}
}

// BodyStrategy — поле search_id первого элемента, где оно есть.
func BodyStrategy() IDStrategy {
	return IDStrategy{
		Name: "body",
		Resolve: func(_ context.Context, in ResolveInput) (string, bool) {
			for _, it := range in.Response.Items {
				if id := strings.TrimSpace(it.SearchID); id != "" {
					return id, true
				}
			}
			return "", false
		},
	}
}

// HistoryStrategy — перечитать историю и найти запись с тем же запросом.
func HistoryStrategy(f *Fetcher) IDStrategy {
	return IDStrategy{
		Name: "history",
		Resolve: func(ctx context.Context, in ResolveInput) (string, bool) {
			entries, ok := f.FetchRecent(ctx)
			if !ok {
				return "", false
			}
			e, ok := models.FindRecent(entries, in.Query)
			if !ok {
				return "", false
			}
			return e.ID.String(), true
		},
	}
}

// DefaultStrategies — стратегии в порядке приоритета.
func DefaultStrategies(f *Fetcher) []IDStrategy {
	return []IDStrategy{
		HeaderStrategy(),
		HeaderFoldStrategy(),
		BodyStrategy(),
		HistoryStrategy(f),
	}
}

// Resolver перебирает стратегии до первой успешной.
type Resolver struct {
	strategies []IDStrategy
	log        *slog.Logger
}

func NewResolver(log *slog.Logger, strategies ...IDStrategy) *Resolver {
	if log == nil {
		log = slog.Default()
	}

	return &Resolver{strategies: strategies, log: log}
}

// Resolve возвращает search ID и имя сработавшей стратегии.
func (r *Resolver) Resolve(ctx context.Context, in ResolveInput) (id, strategy string, ok bool) {
	const op = "internal/service/resolver/Resolve"

	for _, s := range r.strategies {
		if ctx.Err() != nil {
			break
		}
		if id, ok := s.Resolve(ctx, in); ok {
			r.log.Debug("search_id_resolved",
				slog.String("op", op),
				slog.String("strategy", s.Name),
				slog.String("search_id", id),
			)
			return id, s.Name, true
		}
	}

	r.log.Warn("search_id_unresolved",
		slog.String("op", op),
		slog.String("query", in.Query),
		slog.Int("strategies", len(r.strategies)),
	)
	return "", "", false
}
