package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"somniadash/internal/cache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestClient(t *testing.T, handler http.Handler, opts ...func(*Options)) (*Client, *fakeClock) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	o := Options{
		BaseURL: srv.URL + "/api",
		Timeout: 2 * time.Second,
		Cache:   cache.NewMemoryCache(cache.Options{TTL: 10 * time.Second, Clock: clock.Now}),
		Logger:  zerolog.Nop(),
	}
	for _, fn := range opts {
		fn(&o)
	}

	c := New(o)
	t.Cleanup(func() { c.Close() })
	return c, clock
}

func staticFetch(payload string, calls *int) FetchFunc {
	return func(context.Context) ([]byte, error) {
		*calls++
		return []byte(payload), nil
	}
}

func TestClient_Get_HitWithinTTL(t *testing.T) {
	c, clock := newTestClient(t, http.NotFoundHandler())
	ctx := context.Background()

	var first, second int
	v, err := c.Get(ctx, "market-status", staticFetch(`{"price":100}`, &first))
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":100}`, string(v))

	clock.Advance(5 * time.Second)
	v, err = c.Get(ctx, "market-status", staticFetch(`{"price":105}`, &second))
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":100}`, string(v))
	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second, "fresh entry must not trigger a fetch")
}

func TestClient_Get_RefetchAfterTTL(t *testing.T) {
	c, clock := newTestClient(t, http.NotFoundHandler())
	ctx := context.Background()

	var calls int
	_, err := c.Get(ctx, "market-status", staticFetch(`{"price":100}`, &calls))
	require.NoError(t, err)

	clock.Advance(11 * time.Second)
	v, err := c.Get(ctx, "market-status", staticFetch(`{"price":105}`, &calls))
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":105}`, string(v))

	clock.Advance(5 * time.Second)
	v, err = c.Get(ctx, "market-status", staticFetch(`{"price":999}`, &calls))
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":105}`, string(v))
	assert.Equal(t, 2, calls)
}

func TestClient_Get_ExactlyTTLIsStale(t *testing.T) {
	c, clock := newTestClient(t, http.NotFoundHandler())
	ctx := context.Background()

	var calls int
	_, _ = c.Get(ctx, "k", staticFetch(`1`, &calls))
	clock.Advance(10 * time.Second)
	_, _ = c.Get(ctx, "k", staticFetch(`2`, &calls))

	assert.Equal(t, 2, calls)
}

func TestClient_Get_FailureNotCached(t *testing.T) {
	c, _ := newTestClient(t, http.NotFoundHandler())
	ctx := context.Background()

	boom := errors.New("boom")
	calls := 0
	failing := func(context.Context) ([]byte, error) {
		calls++
		return nil, boom
	}

	_, err := c.Get(ctx, "k", failing)
	assert.ErrorIs(t, err, boom)

	_, err = c.Get(ctx, "k", failing)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestClient_Flush(t *testing.T) {
	c, _ := newTestClient(t, http.NotFoundHandler())
	ctx := context.Background()

	var calls int
	_, _ = c.Get(ctx, "k", staticFetch(`1`, &calls))
	c.Flush()
	_, _ = c.Get(ctx, "k", staticFetch(`1`, &calls))

	assert.Equal(t, 2, calls)
}

func TestClient_Get_DistinctKeys(t *testing.T) {
	c, _ := newTestClient(t, http.NotFoundHandler())
	ctx := context.Background()

	var calls int
	_, _ = c.Get(ctx, "trade-2", staticFetch(`{"id":2}`, &calls))
	_, _ = c.Get(ctx, "trade-1", staticFetch(`{"id":1}`, &calls))

	one, err := c.Get(ctx, "trade-1", staticFetch(`{"id":0}`, &calls))
	require.NoError(t, err)
	two, err := c.Get(ctx, "trade-2", staticFetch(`{"id":0}`, &calls))
	require.NoError(t, err)

	assert.JSONEq(t, `{"id":1}`, string(one))
	assert.JSONEq(t, `{"id":2}`, string(two))
	assert.Equal(t, 2, calls)
}

func TestClient_Get_ConcurrentMissesNotCoalescedByDefault(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})

	c, _ := newTestClient(t, http.NotFoundHandler())
	fetch := func(context.Context) ([]byte, error) {
		hits.Add(1)
		<-release
		return []byte(`1`), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Get(context.Background(), "k", fetch)
		}()
	}

	require.Eventually(t, func() bool { return hits.Load() == 3 }, time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()
}

func TestClient_Get_Coalesce(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})

	c, _ := newTestClient(t, http.NotFoundHandler(), func(o *Options) { o.Coalesce = true })
	fetch := func(context.Context) ([]byte, error) {
		hits.Add(1)
		<-release
		return []byte(`1`), nil
	}

	var wg sync.WaitGroup
	results := make([][]byte, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Get(context.Background(), "k", fetch)
		}(i)
	}

	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
	for _, r := range results {
		assert.Equal(t, "1", string(r))
	}
}

func TestClient_Get_CoalesceSurvivesFirstCallerCancel(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	c, _ := newTestClient(t, http.NotFoundHandler(), func(o *Options) { o.Coalesce = true })
	fetch := func(ctx context.Context) ([]byte, error) {
		close(started)
		select {
		case <-release:
			return []byte(`"ok"`), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Get(firstCtx, "k", fetch)
		firstErr <- err
	}()
	<-started

	type result struct {
		payload []byte
		err     error
	}
	second := make(chan result, 1)
	go func() {
		p, err := c.Get(context.Background(), "k", fetch)
		second <- result{p, err}
	}()

	time.Sleep(20 * time.Millisecond)
	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, `"ok"`, string(res.payload))

	p, err := c.Get(context.Background(), "k", func(context.Context) ([]byte, error) {
		t.Error("expected cached payload")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, `"ok"`, string(p))
}

func TestClient_GetJSON_UsesBackend(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/market/status", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.Write([]byte(`{"success":true,"activeSignals":3}`))
	})

	c, _ := newTestClient(t, mux)
	ctx := context.Background()

	var out struct {
		Success       bool `json:"success"`
		ActiveSignals int  `json:"activeSignals"`
	}
	require.NoError(t, c.GetJSON(ctx, "market-status", "/market/status", nil, &out))
	require.NoError(t, c.GetJSON(ctx, "market-status", "/market/status", nil, &out))

	assert.True(t, out.Success)
	assert.Equal(t, 3, out.ActiveSignals)
	assert.Equal(t, int32(1), calls.Load())

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Requests)
}

func TestClient_Fetch_Query(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/trading/history", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "BTC", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"success":true}`))
	})

	c, _ := newTestClient(t, mux)
	_, err := c.Fetch(context.Background(), "trading/history", url.Values{"limit": {"10"}, "symbol": {"BTC"}})
	require.NoError(t, err)
}

func TestClient_Post_BypassesCache(t *testing.T) {
	var posts atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/analysis/trigger", func(w http.ResponseWriter, r *http.Request) {
		posts.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"coin":"bitcoin"}`, string(body))
		w.Write([]byte(`{"success":true}`))
	})

	c, _ := newTestClient(t, mux)
	ctx := context.Background()

	var calls int
	_, err := c.Get(ctx, "/analysis/trigger", staticFetch(`{"cached":true}`, &calls))
	require.NoError(t, err)

	v, err := c.Post(ctx, "/analysis/trigger", map[string]string{"coin": "bitcoin"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true}`, string(v))

	_, err = c.Post(ctx, "/analysis/trigger", map[string]string{"coin": "bitcoin"})
	require.NoError(t, err)

	assert.Equal(t, int32(2), posts.Load())
	assert.Equal(t, 1, c.CacheLen(), "post must not add entries")
}

func TestClient_Post_NilBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/blockchain/retry-cache", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Empty(t, body)
		w.Write([]byte(`{"success":true,"message":"retried"}`))
	})

	c, _ := newTestClient(t, mux)
	var out struct {
		Message string `json:"message"`
	}
	require.NoError(t, c.PostJSON(context.Background(), "/blockchain/retry-cache", nil, &out))
	assert.Equal(t, "retried", out.Message)
}

func TestClient_HTTPError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/trading/trade/42", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"error":"Trade not found"}`))
	})

	c, _ := newTestClient(t, mux)
	ctx := context.Background()

	err := c.GetJSON(ctx, "trade-42", "/trading/trade/42", nil, nil)
	require.Error(t, err)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, "Trade not found", httpErr.Message)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
	assert.Equal(t, 0, c.CacheLen(), "errors must not be cached")
}

func TestClient_HTTPError_PlainBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/system/status", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	c, _ := newTestClient(t, mux)
	_, err := c.Fetch(context.Background(), "/system/status", nil)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, "upstream down", httpErr.Message)
}

func TestClient_FormatError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/market/signals", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>oops</html>`))
	})

	c, _ := newTestClient(t, mux)
	err := c.GetJSON(context.Background(), "market-signals", "/market/signals", nil, nil)

	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, 0, c.CacheLen())
}

func TestClient_DecodeMismatchIsFormatError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/trading/balance", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"balance":"lots"}`))
	})

	c, _ := newTestClient(t, mux)
	var out struct {
		Balance float64 `json:"balance"`
	}
	err := c.FetchJSON(context.Background(), "/trading/balance", nil, &out)

	var formatErr *FormatError
	assert.ErrorAs(t, err, &formatErr)
}

func TestClient_GetJSON_DecodeMismatchNotCached(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/trading/balance", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"balance":"lots"}`))
	})

	c, _ := newTestClient(t, mux)
	var out struct {
		Balance float64 `json:"balance"`
	}
	for i := 0; i < 2; i++ {
		err := c.GetJSON(context.Background(), "balance", "/trading/balance", nil, &out)
		var formatErr *FormatError
		assert.ErrorAs(t, err, &formatErr)
	}

	assert.Equal(t, 0, c.CacheLen())
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_Timeout(t *testing.T) {
	done := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/api/market/status", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-done:
		case <-r.Context().Done():
		}
	})

	c, _ := newTestClient(t, mux, func(o *Options) { o.Timeout = 50 * time.Millisecond })
	defer close(done)

	err := c.GetJSON(context.Background(), "market-status", "/market/status", nil, nil)
	require.Error(t, err)
	assert.True(t, IsTimeout(err), "got %v", err)
	assert.Equal(t, 0, c.CacheLen())
}
