package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pribylovaa/go-market-search/internal/auth"
	"github.com/pribylovaa/go-market-search/internal/clients"
	"github.com/pribylovaa/go-market-search/internal/config"
	"github.com/pribylovaa/go-market-search/internal/models"
	"github.com/pribylovaa/go-market-search/internal/service"
	"github.com/pribylovaa/go-market-search/internal/ui"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

type flags struct {
	configPath string
	query      string
	rawURL     string
	existing   bool
	recent     bool
	sortBy     string
	available  bool
	category   int
	pages      int
	wait       time.Duration
	login      string
	password   string
	logout     bool
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "path to config file")
	flag.StringVar(&f.query, "q", "", "search query")
	flag.StringVar(&f.rawURL, "url", "", "page query string to restore, e.g. q=bike&use_existing=true")
	flag.BoolVar(&f.existing, "existing", false, "show stored results instead of starting a new crawl")
	flag.BoolVar(&f.recent, "recent", false, "search as a recent tag: stored results, new crawl if none")
	flag.StringVar(&f.sortBy, "sort", "", "sort order: created_at_desc or price_asc")
	flag.BoolVar(&f.available, "available", false, "only items that are still for sale")
	flag.IntVar(&f.category, "category", 0, "category id filter")
	flag.IntVar(&f.pages, "pages", 0, "extra pages to load after the first one")
	flag.DurationVar(&f.wait, "wait", 2*time.Minute, "how long to wait for the crawl to finish")
	flag.StringVar(&f.login, "login", "", "log in with this username before searching")
	flag.StringVar(&f.password, "password", "", "password for -login")
	flag.BoolVar(&f.logout, "logout", false, "forget the stored token")
	flag.Parse()

	cfg := config.MustLoad(f.configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting market-search", "env", cfg.Env)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	if err := run(rootCtx, cfg, f, log); err != nil {
		log.Error("run_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("market_search_stopped")
}

func run(ctx context.Context, cfg *config.Config, f flags, log *slog.Logger) error {
	const op = "cmd/market-search/run"

	store := auth.NewFileStore(cfg.Auth.TokenPath)

	copts := clients.OptionsFromConfig(cfg.API)
	copts.Tokens = store
	copts.Logger = log

	cl, err := clients.New(copts)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	gate := auth.NewGate(cl, store)
	if err := authenticate(ctx, gate, f, log); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	sopts := service.OptionsFromConfig(cfg.Search)
	sopts.Logger = log
	sopts.URL = service.NewMemoryURL(f.rawURL)

	orch := service.New(cl, gate, sopts)
	defer orch.Close()

	// Сигнал об изменении; актуальный снимок всегда берётся из orch.State().
	updates := make(chan struct{}, 1)
	unsubscribe := orch.Subscribe(func(service.State) {
		select {
		case updates <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	sentinel := &sentinel{}
	iopts := ui.InfiniteOptionsFromConfig(cfg.Infinite)
	iopts.Logger = log
	inf := ui.NewInfiniteScroll(sentinel, orch, iopts)
	defer inf.Close()
	unbind := inf.Bind(orch)
	defer unbind()

	if err := orch.Mount(ctx); err != nil && !errors.Is(err, service.ErrSessionReplaced) {
		log.Warn("mount_failed", slog.String("err", err.Error()))
	}

	if err := submit(ctx, orch, f); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, f.wait)
	defer cancel()

	st := waitFor(waitCtx, orch, updates, settled)
	if st.Completed() {
		// Перезагрузка первой страницы после завершения стартует через SettleDelay.
		select {
		case <-time.After(cfg.Search.SettleDelay):
		case <-waitCtx.Done():
		}
		st = waitFor(waitCtx, orch, updates, settled)
	}

	if err := applyFilters(ctx, orch, f); err != nil {
		log.Warn("filters_not_applied", slog.String("err", err.Error()))
	}
	st = waitFor(waitCtx, orch, updates, settled)

	for i := 0; i < f.pages && st.HasNext(); i++ {
		st = waitFor(waitCtx, orch, updates, func(s service.State) bool {
			return ui.PagingFromState(s).CanLoad()
		})
		if !ui.PagingFromState(st).CanLoad() {
			break
		}

		sentinel.reach()
		inf.Wait()
		st = orch.State()
	}

	if _, authed := store.Token(); authed {
		orch.RefreshRecent(ctx)
		st = orch.State()
	}

	fmt.Println(screen(cfg, st))
	return nil
}

// authenticate выполняет -logout и -login до старта сессии.
func authenticate(ctx context.Context, gate *auth.Gate, f flags, log *slog.Logger) error {
	if f.logout {
		if err := gate.Logout(); err != nil {
			return err
		}
		log.Info("logged_out")
	}

	if f.login == "" {
		return nil
	}

	if _, err := gate.Login(ctx, f.login, f.password); err != nil {
		return err
	}

	if gate.CanAccessAdmin(ctx) {
		log.Info("admin_session", slog.String("user", f.login))
	}

	return nil
}

func submit(ctx context.Context, orch *service.Orchestrator, f flags) error {
	var err error

	switch {
	case f.query == "":
		return nil
	case f.recent:
		err = orch.SearchRecent(ctx, f.query)
	default:
		err = orch.Submit(ctx, f.query, service.SubmitOptions{UseExisting: f.existing})
	}

	// Ошибка уже в баннере состояния, экран всё равно выводится.
	if errors.Is(err, service.ErrEmptyQuery) {
		return err
	}
	return nil
}

func applyFilters(ctx context.Context, orch *service.Orchestrator, f flags) error {
	if f.sortBy != "" {
		if err := orch.SetSortBy(ctx, models.SortBy(f.sortBy)); err != nil {
			return err
		}
	}

	if f.available {
		if err := orch.SetOnlyAvailable(ctx, true); err != nil {
			return err
		}
	}

	if f.category != 0 {
		id := f.category
		if err := orch.SelectCategory(ctx, &id); err != nil {
			return err
		}
	}

	return nil
}

// settled — загрузка закончилась, а поиск завершён или опрашивать нечего.
func settled(s service.State) bool {
	if s.Loading() || s.LoadingMore() {
		return false
	}
	return s.Query == "" || s.SearchID == "" || s.Degraded() || s.Completed() || s.Error != ""
}

// waitFor ждёт снимок, удовлетворяющий pred, и возвращает последний снимок.
func waitFor(ctx context.Context, orch *service.Orchestrator, updates <-chan struct{}, pred func(service.State) bool) service.State {
	st := orch.State()
	for !pred(st) {
		select {
		case <-ctx.Done():
			return orch.State()
		case <-updates:
			st = orch.State()
		}
	}
	return st
}

func setupLogger(env string) *slog.Logger {
	// stdout занят экраном результатов.
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
