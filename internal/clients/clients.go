// clients — HTTP-клиент JSON API бэкенда поиска.
//
// Клиент ничего не скрывает: сетевые ошибки, не-2xx и битые тела возвращаются
// типизированными ошибками internal/errors. Безопасные обёртки "пустое
// значение вместо ошибки" живут выше, в сервисном слое.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pribylovaa/go-market-search/internal/clients/interceptors"
	"github.com/pribylovaa/go-market-search/internal/config"
	apierrors "github.com/pribylovaa/go-market-search/internal/errors"
)

// Пределы размера тела ответа.
const maxBody = 16 << 20

// Options — параметры клиента.
type Options struct {
	BaseURL         string
	Timeout         time.Duration
	ExistingTimeout time.Duration
	UserAgent       string
	Tokens          interceptors.TokenSource
	Logger          *slog.Logger
	// Transport — базовый транспорт; nil — http.DefaultTransport.
	Transport http.RoundTripper
}

// OptionsFromConfig — Options из секции api конфигурации.
func OptionsFromConfig(cfg config.APIConfig) Options {
	return Options{
		BaseURL:         cfg.BaseURL,
		Timeout:         cfg.Timeout,
		ExistingTimeout: cfg.ExistingTimeout,
		UserAgent:       cfg.UserAgent,
	}
}

// Client — клиент бэкенда поиска и авторизации.
type Client struct {
	base            *url.URL
	http            *http.Client
	timeout         time.Duration
	existingTimeout time.Duration
	log             *slog.Logger
}

// New создаёт клиента с цепочкой интерсепторов: metadata -> logging -> transport.
func New(opts Options) (*Client, error) {
	const op = "internal/clients/New"

	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%s: parse base url: %w", op, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%s: base url %q is not absolute", op, opts.BaseURL)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rt := interceptors.Chain(opts.Transport,
		interceptors.WithMetadata(opts.UserAgent, opts.Tokens),
		interceptors.WithLogging(logger),
	)

	return &Client{
		base:            base,
		http:            &http.Client{Transport: rt},
		timeout:         opts.Timeout,
		existingTimeout: opts.ExistingTimeout,
		log:             logger,
	}, nil
}

// endpoint собирает абсолютный URL из пути и query.
func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}

	return u.String()
}

// response — сырой успешный ответ.
type response struct {
	body   []byte
	header http.Header
}

// do выполняет запрос и возвращает тело 2xx-ответа.
// Не-2xx превращается в *apierrors.HTTPError.
func (c *Client) do(ctx context.Context, timeout time.Duration, method, target string, body io.Reader, contentType string) (response, error) {
	ctx, cancel := interceptors.WithRequestTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return response{}, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return response{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return response{}, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return response{}, apierrors.NewHTTPError(resp.StatusCode, data)
	}

	return response{body: data, header: resp.Header}, nil
}

// getJSON — GET с декодированием JSON в out.
func (c *Client) getJSON(ctx context.Context, timeout time.Duration, path string, q url.Values, out any) error {
	resp, err := c.do(ctx, timeout, http.MethodGet, c.endpoint(path, q), nil, "")
	if err != nil {
		return err
	}

	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("%w: %v", apierrors.ErrMalformed, err)
	}

	return nil
}

// postJSON — POST с JSON-телом.
func (c *Client) postJSON(ctx context.Context, path string, in any) (response, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return response{}, err
	}

	return c.do(ctx, c.timeout, http.MethodPost, c.endpoint(path, nil), bytes.NewReader(payload), "application/json")
}
