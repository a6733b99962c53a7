package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"somniadash/internal/cache"
	"somniadash/internal/config"
)

const (
	userAgent       = "somniadash/1.0"
	contentTypeJSON = "application/json"
	maxResponseSize = 16 * 1024 * 1024
)

// FetchFunc performs the network read behind a cache key
type FetchFunc func(ctx context.Context) ([]byte, error)

// Options for creating a new Client
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	Cache     cache.Cache
	Coalesce  bool
	Transport http.RoundTripper
	Logger    zerolog.Logger
}

// Stats is a snapshot of the client counters
type Stats struct {
	Hits     uint64 `json:"hits"`
	Misses   uint64 `json:"misses"`
	Requests uint64 `json:"requests"`
	Errors   uint64 `json:"errors"`
}

// Client is a read-through cached HTTP client for the dashboard backend.
// Reads go through Get; writes go through Post and never touch the cache.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	cache      cache.Cache
	coalesce   bool
	group      singleflight.Group
	logger     zerolog.Logger

	hits     atomic.Uint64
	misses   atomic.Uint64
	requests atomic.Uint64
	failures atomic.Uint64
}

// New creates a new Client
func New(opts Options) *Client {
	transport := opts.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		}
	}

	c := opts.Cache
	if c == nil {
		c = cache.NewNoopCache()
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		timeout: opts.Timeout,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		cache:    c,
		coalesce: opts.Coalesce,
		logger:   opts.Logger.With().Str("component", "client").Logger(),
	}
}

// NewFromConfig creates a Client from the application config
func NewFromConfig(cfg *config.Config, c cache.Cache, logger zerolog.Logger) *Client {
	return New(Options{
		BaseURL:  cfg.BaseURL(),
		Timeout:  cfg.GetRequestTimeoutDuration(),
		Cache:    c,
		Coalesce: cfg.Cache.Coalesce,
		Logger:   logger,
	})
}

// BaseURL returns the backend URL requests are sent to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get returns the cached payload for key if it is still fresh. Otherwise it
// calls fetch, stores a successful result under key and returns it.
// Failures are returned as is and never cached.
func (c *Client) Get(ctx context.Context, key string, fetch FetchFunc) ([]byte, error) {
	if entry, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		c.logger.Debug().Str("key", key).Msg("cache hit")
		return entry.Payload, nil
	}

	c.misses.Add(1)
	c.logger.Debug().Str("key", key).Msg("cache miss")

	if !c.coalesce {
		return c.fill(ctx, key, fetch)
	}

	// The shared fill outlives any single caller; each caller waits on its own ctx.
	ch := c.group.DoChan(key, func() (any, error) {
		fctx, cancel := c.detach(ctx)
		defer cancel()
		return c.fill(fctx, key, fetch)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug().Str("key", key).Msg("shared in-flight fetch")
		}
		return res.Val.([]byte), nil
	}
}

// detach keeps the values of ctx but drops its cancellation, bounding the
// result by the client timeout instead
func (c *Client) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if c.timeout > 0 {
		return context.WithTimeout(base, c.timeout)
	}
	return context.WithCancel(base)
}

func (c *Client) fill(ctx context.Context, key string, fetch FetchFunc) ([]byte, error) {
	payload, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, payload)
	c.logger.Debug().Str("key", key).Int("size", len(payload)).Msg("cached response")
	return payload, nil
}

// GetJSON reads path through the cache under key and decodes the result into
// out. A response that does not decode into out is not cached.
func (c *Client) GetJSON(ctx context.Context, key, path string, query url.Values, out any) error {
	decoded := false
	payload, err := c.Get(ctx, key, func(ctx context.Context) ([]byte, error) {
		p, err := c.Fetch(ctx, path, query)
		if err != nil {
			return nil, err
		}
		if err := decode(path, p, out); err != nil {
			return nil, err
		}
		decoded = true
		return p, nil
	})
	if err != nil {
		return err
	}
	if decoded {
		return nil
	}
	return decode(path, payload, out)
}

// Fetch issues an uncached GET request and returns the JSON body
func (c *Client) Fetch(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

// FetchJSON issues an uncached GET request and decodes the body into out
func (c *Client) FetchJSON(ctx context.Context, path string, query url.Values, out any) error {
	payload, err := c.Fetch(ctx, path, query)
	if err != nil {
		return err
	}
	return decode(path, payload, out)
}

// Post sends body as JSON and returns the JSON response. It never reads or
// writes the cache. A nil body sends an empty request.
func (c *Client) Post(ctx context.Context, path string, body any) ([]byte, error) {
	var reqBody []byte
	if body != nil {
		var err error
		reqBody, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
	}
	return c.do(ctx, http.MethodPost, path, nil, reqBody)
}

// PostJSON sends body as JSON and decodes the response into out
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	payload, err := c.Post(ctx, path, body)
	if err != nil {
		return err
	}
	return decode(path, payload, out)
}

// Flush drops every cached response
func (c *Client) Flush() {
	c.cache.Flush()
	c.logger.Debug().Msg("cache flushed")
}

// Stats returns the current counters
func (c *Client) Stats() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Requests: c.requests.Load(),
		Errors:   c.failures.Load(),
	}
}

// CacheLen reports how many responses are cached
func (c *Client) CacheLen() int {
	return c.cache.Len()
}

// Close releases idle connections and the cache
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return c.cache.Close()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	target := c.resolve(path, query)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())

	c.requests.Add(1)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.failures.Add(1)
		if isTimeout(err) {
			c.logger.Warn().Str("method", method).Str("path", path).Dur("timeout", c.timeout).Msg("API request timed out")
			return nil, fmt.Errorf("%w: %s %s", ErrTimeout, method, path)
		}
		c.logger.Warn().Err(err).Str("method", method).Str("path", path).Msg("API request failed")
		return nil, fmt.Errorf("%s %s: HTTP request failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.failures.Add(1)
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %s %s", ErrTimeout, method, path)
		}
		return nil, fmt.Errorf("%s %s: failed to read response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.failures.Add(1)
		httpErr := newHTTPError(method, path, resp.StatusCode, payload)
		c.logger.Warn().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Str("message", httpErr.Message).
			Msg("API error")
		return nil, httpErr
	}

	if len(bytes.TrimSpace(payload)) == 0 {
		payload = []byte("null")
	}
	if !json.Valid(payload) {
		c.failures.Add(1)
		return nil, &FormatError{Path: path, Err: errors.New("response is not valid JSON")}
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("API request")

	return payload, nil
}

func (c *Client) resolve(path string, query url.Values) string {
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}

func decode(path string, payload []byte, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return &FormatError{Path: path, Err: err}
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
