// config - источник загрузки конфигурации клиента поиска.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	API      APIConfig      `yaml:"api"`
	Auth     AuthConfig     `yaml:"auth"`
	Search   SearchConfig   `yaml:"search"`
	Scroll   ScrollConfig   `yaml:"scroll"`
	Tags     TagsConfig     `yaml:"tags"`
	Infinite InfiniteConfig `yaml:"infinite"`
}

// APIConfig — бэкенд поиска.
type APIConfig struct {
	BaseURL string        `yaml:"base_url" env:"API_BASE_URL" env-default:"http://localhost:8000"`
	Timeout time.Duration `yaml:"timeout"  env:"API_TIMEOUT"  env-default:"15s"`
	// Отдельный таймаут для /api/search/existing.
	ExistingTimeout time.Duration `yaml:"existing_timeout" env:"API_EXISTING_TIMEOUT" env-default:"10s"`
	UserAgent       string        `yaml:"user_agent"       env:"API_USER_AGENT"       env-default:"market-search"`
}

// AuthConfig — где хранится токен между запусками.
type AuthConfig struct {
	TokenPath string `yaml:"token_path" env:"AUTH_TOKEN_PATH" env-default:".market-search-token.json"`
}

// SearchConfig — параметры поисковой сессии.
type SearchConfig struct {
	PageSize     int           `yaml:"page_size"     env:"SEARCH_PAGE_SIZE"     env-default:"20"`
	PollInterval time.Duration `yaml:"poll_interval" env:"SEARCH_POLL_INTERVAL" env-default:"2s"`
	// Пауза между завершением поиска и перезагрузкой первой страницы.
	SettleDelay       time.Duration `yaml:"settle_delay"        env:"SEARCH_SETTLE_DELAY"        env-default:"300ms"`
	RecentLimit       int           `yaml:"recent_limit"        env:"SEARCH_RECENT_LIMIT"        env-default:"40"`
	RecentRefresh     time.Duration `yaml:"recent_refresh"      env:"SEARCH_RECENT_REFRESH"      env-default:"5s"`
	RecentAfterSubmit time.Duration `yaml:"recent_after_submit" env:"SEARCH_RECENT_AFTER_SUBMIT" env-default:"500ms"`
}

// ScrollConfig — программная прокрутка к началу выдачи.
type ScrollConfig struct {
	QuietPeriod      time.Duration `yaml:"quiet_period"      env:"SCROLL_QUIET_PERIOD"      env-default:"300ms"`
	Animation        time.Duration `yaml:"animation"         env:"SCROLL_ANIMATION"         env-default:"120ms"`
	DeferredDelay    time.Duration `yaml:"deferred_delay"    env:"SCROLL_DEFERRED_DELAY"    env-default:"800ms"`
	ResultsOffset    float64       `yaml:"results_offset"    env:"SCROLL_RESULTS_OFFSET"    env-default:"20"`
	InstantThreshold float64       `yaml:"instant_threshold" env:"SCROLL_INSTANT_THRESHOLD" env-default:"50"`
}

// TagsConfig — раскладка тегов недавних поисков.
type TagsConfig struct {
	Breakpoint     float64       `yaml:"breakpoint"       env:"TAGS_BREAKPOINT"       env-default:"540"`
	MaxLinesWide   int           `yaml:"max_lines_wide"   env:"TAGS_MAX_LINES_WIDE"   env-default:"2"`
	MaxLinesNarrow int           `yaml:"max_lines_narrow" env:"TAGS_MAX_LINES_NARROW" env-default:"1"`
	TagMargin      float64       `yaml:"tag_margin"       env:"TAGS_TAG_MARGIN"       env-default:"8"`
	LabelMargin    float64       `yaml:"label_margin"     env:"TAGS_LABEL_MARGIN"     env-default:"8"`
	RelayoutDelay  time.Duration `yaml:"relayout_delay"   env:"TAGS_RELAYOUT_DELAY"   env-default:"100ms"`
}

// InfiniteConfig — триггер подгрузки следующей страницы.
type InfiniteConfig struct {
	Threshold  float64 `yaml:"threshold"   env:"INFINITE_THRESHOLD"   env-default:"0.01"`
	RootMargin float64 `yaml:"root_margin" env:"INFINITE_ROOT_MARGIN" env-default:"300"`
}

// MustLoad — паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cfg.validate(); err != nil {
			return nil, err
		}

		return &cfg, nil
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		if err := cleanenv.ReadConfig("local.yaml", &cfg); err != nil {
			return nil, fmt.Errorf("failed to read local.yaml: %w", err)
		}

		if err := cfg.validate(); err != nil {
			return nil, err
		}

		return &cfg, nil
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate — базовая валидация значений.
func (c *Config) validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL")
	}
	if c.Search.PageSize <= 0 {
		return fmt.Errorf("search.page_size must be > 0")
	}
	if c.Search.PollInterval <= 0 {
		return fmt.Errorf("search.poll_interval must be > 0")
	}
	if c.Search.RecentLimit <= 0 {
		return fmt.Errorf("search.recent_limit must be > 0")
	}
	if c.Tags.MaxLinesWide <= 0 || c.Tags.MaxLinesNarrow <= 0 {
		return fmt.Errorf("tags.max_lines_* must be > 0")
	}
	if c.Infinite.Threshold < 0 || c.Infinite.Threshold > 1 {
		return fmt.Errorf("infinite.threshold must be within [0, 1]")
	}

	return nil
}
