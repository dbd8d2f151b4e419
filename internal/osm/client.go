// Package osm talks to the OpenStreetMap services: Overpass to find the
// entities carrying a name, and the OSM API 0.6 to read their tags.
package osm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ppiankov/osmlookup/internal/cache"
	"github.com/ppiankov/osmlookup/internal/model"
)

// Pacer delays requests to respect a service's rate policy
type Pacer interface {
	Wait(ctx context.Context, rawURL string) error
}

// StatusError reports a non-2xx answer from a service
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status from %s: %s", e.URL, e.Status)
}

// Client performs GET requests against the OSM services. It applies the
// configured user agent, body limit, per-host pacing and response cache.
type Client struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	pacer      Pacer
	cache      cache.Cache
	cacheTTL   time.Duration
	log        *slog.Logger
}

// ClientOption customizes a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithPacer paces requests, typically with a per-host limiter
func WithPacer(p Pacer) ClientOption {
	return func(c *Client) { c.pacer = p }
}

// WithCache stores successful response bodies for ttl; zero leaves the
// expiry to the store's own defaults
func WithCache(store cache.Cache, ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.cache = store
		c.cacheTTL = ttl
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(log *slog.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// NewClient creates a client from the HTTP section of the configuration
func NewClient(cfg model.HTTPConfig, opts ...ClientOption) *Client {
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = model.DefaultConfig().HTTP.MaxBodyBytes
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:               proxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy),
				MaxIdleConnsPerHost: 8,
				IdleConnTimeout:     90 * time.Second,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
		cache:     cache.Noop{},
		log:       slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get fetches rawURL and returns its body. Transport failures and non-2xx
// statuses are returned as errors; only 2xx bodies are cached.
func (c *Client) Get(ctx context.Context, rawURL string, accept string) ([]byte, error) {
	key := cache.Key(rawURL)
	if body, found := c.cache.Get(key); found {
		c.log.Debug("cache hit", slog.String("url", rawURL))
		return body, nil
	}

	if c.pacer != nil {
		if err := c.pacer.Wait(ctx, rawURL); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	c.log.Debug("requesting", slog.String("url", rawURL))
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.Debug("response",
		slog.String("url", rawURL),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if err := c.cache.Set(key, body, c.cacheTTL); err != nil {
		c.log.Warn("cache write failed", slog.String("url", rawURL), slog.Any("error", err))
	}

	return body, nil
}

// proxyFunc picks explicit proxies when configured and falls back to the
// HTTP_PROXY/HTTPS_PROXY/NO_PROXY environment otherwise.
func proxyFunc(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}
