// Package fetcher downloads Encyclopedia Titanica pages politely: cached,
// rate-limited, retried on transient failures.
package fetcher

import (
	"context"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/titanic-linkage/internal/model"
	"github.com/sells-group/titanic-linkage/internal/resilience"
)

// Cache persists fetched pages. Row existence is the "already fetched"
// signal, so reruns skip the network entirely.
type Cache interface {
	GetRawPage(ctx context.Context, url string) (*model.RawPage, error)
	PutRawPage(ctx context.Context, page model.RawPage) error
}

// Options configures the page fetcher.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	Retry     resilience.RetryConfig

	// RateLimit caps sustained request rate against the site.
	RateLimit rate.Limit
	Burst     int

	// MinDelay/MaxDelay bound the randomized politeness sleep after each
	// network fetch. Cache hits never sleep.
	MinDelay time.Duration
	MaxDelay time.Duration

	// Concurrency bounds FetchMany workers.
	Concurrency int
}

// Client fetches pages through the cache.
type Client struct {
	http    *http.Client
	cache   Cache
	limiter *rate.Limiter
	opts    Options

	// sleep is swappable in tests.
	sleep func(ctx context.Context, d time.Duration)
}

// New creates a Client backed by cache.
func New(cache Cache, opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = "titanic-linkage/1.0"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = 1
	}
	if opts.Burst == 0 {
		opts.Burst = 1
	}
	if opts.MinDelay == 0 {
		opts.MinDelay = 300 * time.Millisecond
	}
	if opts.MaxDelay < opts.MinDelay {
		opts.MaxDelay = 1200 * time.Millisecond
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 2
	}
	return &Client{
		http: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		cache:   cache,
		limiter: rate.NewLimiter(opts.RateLimit, opts.Burst),
		opts:    opts,
		sleep:   ctxSleep,
	}
}

// Fetch returns the HTML for url. A cache hit returns immediately with no
// network call or delay; a miss fetches with retries, persists the page,
// and sleeps the politeness delay.
func (c *Client) Fetch(ctx context.Context, url string) (string, error) {
	if cached, err := c.cache.GetRawPage(ctx, url); err != nil {
		return "", eris.Wrapf(err, "fetch: cache lookup %s", url)
	} else if cached != nil {
		return cached.RawHTML, nil
	}

	html, err := c.download(ctx, url)
	if err != nil {
		return "", err
	}

	page := model.RawPage{URL: url, RawHTML: html, ScrapedAt: time.Now().UTC()}
	if err := c.cache.PutRawPage(ctx, page); err != nil {
		return "", eris.Wrapf(err, "fetch: cache store %s", url)
	}

	c.sleep(ctx, c.politenessDelay())
	return html, nil
}

// FetchResult summarizes a FetchMany pass.
type FetchResult struct {
	Fetched int
	Cached  int
	Failed  int
}

// FetchMany fetches urls with bounded concurrency. URLs already cached are
// skipped cheaply, so an interrupted pass resumes where it left off.
// Individual failures are logged and counted, never fatal.
func (c *Client) FetchMany(ctx context.Context, urls []string) (FetchResult, error) {
	var res FetchResult

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)

	results := make(chan error, len(urls))
	cached := make(chan bool, len(urls))

	for _, url := range urls {
		g.Go(func() error {
			hit, err := c.cache.GetRawPage(ctx, url)
			if err != nil {
				return eris.Wrapf(err, "fetch many: cache lookup %s", url)
			}
			if hit != nil {
				cached <- true
				return nil
			}
			if _, err := c.Fetch(ctx, url); err != nil {
				zap.L().Warn("page fetch failed, skipping",
					zap.String("url", url),
					zap.Error(err),
				)
				results <- err
				return nil
			}
			results <- nil
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return res, err
	}
	close(results)
	close(cached)

	for range cached {
		res.Cached++
	}
	for err := range results {
		if err != nil {
			res.Failed++
		} else {
			res.Fetched++
		}
	}

	zap.L().Info("fetch pass complete",
		zap.Int("fetched", res.Fetched),
		zap.Int("cached", res.Cached),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

func (c *Client) download(ctx context.Context, url string) (string, error) {
	cfg := c.opts.Retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("page fetch")
	}

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (string, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "rate limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", eris.Wrapf(err, "create request %s", url)
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)

		resp, err := c.http.Do(req)
		if err != nil {
			return "", resilience.NewTransientError(err, 0)
		}
		defer resp.Body.Close() //nolint:errcheck

		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return "", resilience.NewTransientError(
				eris.Errorf("http %d from %s", resp.StatusCode, url), resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return "", eris.Errorf("http %d from %s", resp.StatusCode, url)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", resilience.NewTransientError(eris.Wrapf(err, "read body %s", url), 0)
		}
		return string(body), nil
	})
}

func (c *Client) politenessDelay() time.Duration {
	span := c.opts.MaxDelay - c.opts.MinDelay
	if span <= 0 {
		return c.opts.MinDelay
	}
	return c.opts.MinDelay + time.Duration(rand.Int64N(int64(span)))
}

func ctxSleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
