package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/titanic-linkage/internal/model"
	"github.com/sells-group/titanic-linkage/internal/resilience"
)

type memCache struct {
	mu    sync.Mutex
	pages map[string]model.RawPage
}

func newMemCache() *memCache {
	return &memCache{pages: make(map[string]model.RawPage)}
}

func (m *memCache) GetRawPage(ctx context.Context, url string) (*model.RawPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.pages[url]; ok {
		return &p, nil
	}
	return nil, nil
}

func (m *memCache) PutRawPage(ctx context.Context, page model.RawPage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[page.URL] = page
	return nil
}

func fastOpts() Options {
	return Options{
		RateLimit: 1000,
		Burst:     100,
		MinDelay:  time.Millisecond,
		MaxDelay:  2 * time.Millisecond,
		Retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
		},
	}
}

func newTestClient(cache Cache) (*Client, *int32) {
	var slept int32
	c := New(cache, fastOpts())
	c.sleep = func(ctx context.Context, d time.Duration) {
		atomic.AddInt32(&slept, 1)
	}
	return c, &slept
}

func TestFetch_CacheHitSkipsNetwork(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte("<html>fresh</html>"))
	}))
	defer srv.Close()

	cache := newMemCache()
	require.NoError(t, cache.PutRawPage(context.Background(), model.RawPage{
		URL:       srv.URL + "/kelly.html",
		RawHTML:   "<html>cached</html>",
		ScrapedAt: time.Now(),
	}))

	c, slept := newTestClient(cache)
	html, err := c.Fetch(context.Background(), srv.URL+"/kelly.html")
	require.NoError(t, err)
	assert.Equal(t, "<html>cached</html>", html)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
	assert.Equal(t, int32(0), atomic.LoadInt32(slept), "cache hit must not sleep")
}

func TestFetch_MissDownloadsAndStores(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "titanic-linkage")
		_, _ = w.Write([]byte("<html>page</html>"))
	}))
	defer srv.Close()

	cache := newMemCache()
	c, slept := newTestClient(cache)

	html, err := c.Fetch(context.Background(), srv.URL+"/braund.html")
	require.NoError(t, err)
	assert.Equal(t, "<html>page</html>", html)
	assert.Equal(t, int32(1), atomic.LoadInt32(slept), "new fetch sleeps once")

	stored, err := cache.GetRawPage(context.Background(), srv.URL+"/braund.html")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "<html>page</html>", stored.RawHTML)
	assert.False(t, stored.ScrapedAt.IsZero())
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c, _ := newTestClient(newMemCache())
	html, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", html)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetch_ExhaustedRetriesSurfaceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cache := newMemCache()
	c, _ := newTestClient(cache)
	_, err := c.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 502")

	stored, err := cache.GetRawPage(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Nil(t, stored, "failed fetch must not be cached")
}

func TestFetch_NotFoundIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, _ := newTestClient(newMemCache())
	_, err := c.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchMany_SkipsCachedAndCountsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "broken") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("<html/>"))
	}))
	defer srv.Close()

	cache := newMemCache()
	require.NoError(t, cache.PutRawPage(context.Background(), model.RawPage{
		URL: srv.URL + "/cached.html", RawHTML: "<html/>", ScrapedAt: time.Now(),
	}))

	c, _ := newTestClient(cache)
	c.opts.Retry.MaxAttempts = 2

	res, err := c.FetchMany(context.Background(), []string{
		srv.URL + "/cached.html",
		srv.URL + "/new.html",
		srv.URL + "/broken.html",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Cached)
	assert.Equal(t, 1, res.Fetched)
	assert.Equal(t, 1, res.Failed)
}

func TestStreamCSV_HeaderAndRows(t *testing.T) {
	input := "PassengerId,Name,Age\n1,\"Braund, Mr. Owen Harris\",22\n2,\"Cumings, Mrs. John Bradley\",38\n"
	headerCh := make(chan []string, 1)

	rows, errs := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})

	var got [][]string
	for row := range rows {
		got = append(got, row)
	}
	require.NoError(t, <-errs)

	assert.Equal(t, []string{"PassengerId", "Name", "Age"}, <-headerCh)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"1", "Braund, Mr. Owen Harris", "22"}, got[0])
}
