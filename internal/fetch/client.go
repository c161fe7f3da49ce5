package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-planner/internal/log"
	"github.com/i474232898/weather-planner/internal/weather"
)

var (
	// ErrCircuitOpen is wrapped into UpstreamFetchError when the breaker for
	// an upstream refuses calls.
	ErrCircuitOpen = errors.New("circuit breaker open")

	errNoHTTPClient = errors.New("http client not configured")
)

// Cache is the response store used by the client.
type Cache interface {
	Get(key string, now time.Time) ([]byte, bool, error)
	Set(key string, value []byte, expiresAt time.Time) error
}

// Request describes one upstream JSON GET. Responses are cached under
// CacheKey for TTL; a zero TTL or empty key disables caching. Calls sharing a
// ThrottleKey are spaced by the limiter.
type Request struct {
	URL         string
	CacheKey    string
	TTL         time.Duration
	ThrottleKey string
}

func (r Request) cacheable() bool {
	return r.CacheKey != "" && r.TTL > 0
}

// Config bundles the client's collaborators.
type Config struct {
	HTTPClient *http.Client
	Cache      Cache
	Limiter    *Limiter

	// Timeout bounds a single upstream call (0 = none).
	Timeout   time.Duration
	UserAgent string

	// Clock is used for cache expiry; defaults to time.Now.
	Clock func() time.Time
}

// Client performs cached, throttled upstream JSON fetches. There are no
// retries: the first failure is returned.
type Client struct {
	http      *http.Client
	cache     Cache
	limiter   *Limiter
	timeout   time.Duration
	userAgent string
	now       func() time.Time

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewClient creates a Client. A nil cache disables caching; a nil limiter
// disables throttling.
func NewClient(cfg Config) *Client {
	c := &Client{
		http:      cfg.HTTPClient,
		cache:     cfg.Cache,
		limiter:   cfg.Limiter,
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
		now:       cfg.Clock,
		breakers:  make(map[string]*gobreaker.CircuitBreaker),
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// FetchJSON returns the decoded response for req, serving live cache hits
// without touching the upstream.
func (c *Client) FetchJSON(ctx context.Context, req Request, out any) error {
	if req.cacheable() && c.cache != nil {
		body, ok, err := c.cache.Get(req.CacheKey, c.now())
		switch {
		case err != nil:
			log.Warnw("cache read failed", "key", req.CacheKey, "error", err)
		case ok:
			if err := json.Unmarshal(body, out); err == nil {
				log.Debugw("cache hit", "key", req.CacheKey)
				return nil
			}
			log.Warnw("cached body undecodable; refetching", "key", req.CacheKey)
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, req.ThrottleKey); err != nil {
			return &weather.UpstreamFetchError{URL: req.URL, Err: err}
		}
	}

	body, err := c.do(ctx, req)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &weather.UpstreamFetchError{URL: req.URL, Err: fmt.Errorf("decoding response: %w", err)}
	}

	if req.cacheable() && c.cache != nil {
		if err := c.cache.Set(req.CacheKey, body, c.now().Add(req.TTL)); err != nil {
			log.Warnw("cache write failed", "key", req.CacheKey, "error", err)
		}
	}
	return nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.code)
}

// do executes a single GET behind the circuit breaker for the throttle key.
func (c *Client) do(ctx context.Context, req Request) ([]byte, error) {
	if c.http == nil {
		return nil, &weather.UpstreamFetchError{URL: req.URL, Err: errNoHTTPClient}
	}

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	result, err := c.breaker(req.ThrottleKey).Execute(func() (interface{}, error) {
		httpReq, err := http.NewRequestWithContext(callCtx, http.MethodGet, req.URL, nil)
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Accept", "application/json")
		if c.userAgent != "" {
			httpReq.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.http.Do(httpReq)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil, &statusError{code: resp.StatusCode}
		}
		return io.ReadAll(resp.Body)
	})
	if err == nil {
		body, ok := result.([]byte)
		if !ok {
			return nil, &weather.UpstreamFetchError{URL: req.URL, Err: fmt.Errorf("unexpected result type from circuit breaker")}
		}
		return body, nil
	}

	var se *statusError
	switch {
	case errors.As(err, &se):
		return nil, &weather.UpstreamFetchError{StatusCode: se.code, URL: req.URL, Err: err}
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, &weather.UpstreamFetchError{URL: req.URL, Err: fmt.Errorf("%w: %v", ErrCircuitOpen, err)}
	case isTimeout(err) && ctx.Err() == nil:
		return nil, &weather.UpstreamFetchError{URL: req.URL, Err: fmt.Errorf("%w: %v", weather.ErrUpstreamTimeout, err)}
	default:
		return nil, &weather.UpstreamFetchError{URL: req.URL, Err: err}
	}
}

func (c *Client) breaker(key string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	cb, ok := c.breakers[key]
	if !ok {
		cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "upstream:" + key,
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		})
		c.breakers[key] = cb
	}
	return cb
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
