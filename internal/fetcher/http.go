package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/attribution-cli/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	// RatePerSec and Burst size the token bucket each host starts with.
	RatePerSec float64
	Burst      int
	// Breaker stops calling a host after repeated transient failures.
	Breaker resilience.BreakerConfig
}

// AdaptiveLimiter wraps a rate.Limiter that speeds up on success and backs
// off on 429. The rate stays between a quarter and twice the initial rate.
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates an adaptive limiter starting at initialRate.
func NewAdaptiveLimiter(initialRate rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initialRate, burst),
		maxRate:     initialRate * 2,
		minRate:     initialRate / 4,
		currentRate: initialRate,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess raises the rate by 20%.
func (a *AdaptiveLimiter) OnSuccess() {
	a.setRate(a.Limit() * 1.2)
}

// OnRateLimit halves the rate.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.setRate(a.Limit() * 0.5)
	zap.L().Warn("fetcher: reducing rate after 429", zap.Float64("new_rate", float64(a.Limit())))
}

func (a *AdaptiveLimiter) setRate(r rate.Limit) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r = min(max(r, a.minRate), a.maxRate)
	a.currentRate = r
	a.limiter.SetLimit(r)
}

// Limit returns the current rate limit.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// HTTPFetcher downloads journey exports over HTTP(S) with a per-host adaptive
// rate limit and retries on 429, 5xx and network errors.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions

	breakers *resilience.Breakers

	mu       sync.Mutex
	limiters map[string]*AdaptiveLimiter
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "attribution-cli/1.0"
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 5
	}
	if opts.Burst <= 0 {
		opts.Burst = 5
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		breakers: resilience.NewBreakers(opts.Breaker),
		limiters: make(map[string]*AdaptiveLimiter),
	}
}

func (f *HTTPFetcher) limiterFor(host string) *AdaptiveLimiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[host]
	if !ok {
		lim = NewAdaptiveLimiter(rate.Limit(f.opts.RatePerSec), f.opts.Burst)
		f.limiters[host] = lim
	}
	return lim
}

// Download fetches the URL and returns the response body.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: parse url")
	}
	lim := f.limiterFor(u.Host)
	breaker := f.breakers.Get(u.Host)

	cfg := resilience.FromAttempts(f.opts.MaxRetries, "http download")
	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*http.Response, error) {
		return resilience.Call(ctx, breaker, func(ctx context.Context) (*http.Response, error) {
			return f.get(ctx, rawURL, lim)
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: download")
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, eris.Errorf("fetcher: unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	lim.OnSuccess()
	return resp.Body, nil
}

func (f *HTTPFetcher) get(ctx context.Context, rawURL string, lim *AdaptiveLimiter) (*http.Response, error) {
	if err := lim.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fetcher: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: http get")
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		lim.OnRateLimit()
	}
	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		_ = resp.Body.Close()
		return nil, resilience.NewTransientError(
			eris.Errorf("fetcher: http %d from %s", resp.StatusCode, rawURL), resp.StatusCode)
	}
	return resp, nil
}
