package fetch

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/email-lookup/internal/telemetry"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// HostRPS caps outbound requests per second per host; <= 0 disables the cap.
	HostRPS float64
	Retry   *RetryPolicy
}

// CollyClient implements Client using a Colly collector. The base collector is
// cloned per request so callbacks never leak between fetches.
type CollyClient struct {
	cfg           Config
	baseCollector *colly.Collector

	mu           sync.Mutex
	hostLimiters map[string]*rate.Limiter
}

// NewCollyClient builds a client for single-page fetches: redirects followed,
// robots.txt ignored, non-2xx responses parsed rather than treated as errors.
func NewCollyClient(cfg Config) *CollyClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retry == nil {
		cfg.Retry = NewRetryPolicy(0, 0, 0)
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.AllowURLRevisit = true
	c.ParseHTTPErrorResponse = true
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.SetRequestTimeout(cfg.Timeout)

	return &CollyClient{
		cfg:           cfg,
		baseCollector: c,
		hostLimiters:  make(map[string]*rate.Limiter),
	}
}

// Get fetches req.URL, retrying transport failures and 5xx responses per the
// retry policy. The terminal response is returned whatever its status code.
func (c *CollyClient) Get(ctx context.Context, req Request) (Response, error) {
	host := hostOf(req.URL)
	var lastErr error
	var resp Response

	for attempt := 1; ; attempt++ {
		if err := c.waitHost(ctx, host); err != nil {
			return Response{}, fmt.Errorf("politeness wait for %s: %w", host, err)
		}
		resp, lastErr = c.fetchOnce(req)
		if lastErr != nil {
			telemetry.ObserveOutboundRequest(host, 0)
		} else {
			telemetry.ObserveOutboundRequest(host, resp.StatusCode)
		}
		if !c.cfg.Retry.ShouldRetry(lastErr, resp.StatusCode, attempt) {
			break
		}
		select {
		case <-ctx.Done():
			return Response{}, fmt.Errorf("fetch %s: %w", req.URL, ctx.Err())
		case <-time.After(c.cfg.Retry.Backoff(attempt)):
		}
	}
	if lastErr != nil {
		return Response{}, fmt.Errorf("fetch %s: %w", req.URL, lastErr)
	}
	return resp, nil
}

// fetchOnce runs a single collector pass. With ParseHTTPErrorResponse set,
// every completed HTTP exchange lands in OnResponse; only transport faults
// surface through Visit's error.
func (c *CollyClient) fetchOnce(req Request) (Response, error) {
	collector := c.baseCollector.Clone()

	collector.OnRequest(func(r *colly.Request) {
		if req.BearerToken != "" {
			r.Headers.Set("Authorization", "Bearer "+req.BearerToken)
		}
		if req.Accept != "" {
			r.Headers.Set("Accept", req.Accept)
		}
	})

	var resp Response
	var gotResponse bool
	collector.OnResponse(func(r *colly.Response) {
		resp.StatusCode = r.StatusCode
		resp.Body = r.Body
		gotResponse = true
	})
	var fetchErr error
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			resp.StatusCode = r.StatusCode
			resp.Body = r.Body
			gotResponse = true
			return
		}
		fetchErr = err
	})

	if err := collector.Visit(req.URL); err != nil && !gotResponse {
		return Response{}, err
	}
	collector.Wait()
	if !gotResponse && fetchErr != nil {
		return Response{}, fetchErr
	}
	if !gotResponse {
		return Response{}, fmt.Errorf("no response received")
	}
	return resp, nil
}

// waitHost serializes outbound traffic per host through a token bucket so the
// service stays a polite client of the profile hosts it scrapes.
func (c *CollyClient) waitHost(ctx context.Context, host string) error {
	if c.cfg.HostRPS <= 0 {
		return nil
	}
	c.mu.Lock()
	limiter, ok := c.hostLimiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(c.cfg.HostRPS), 1)
		c.hostLimiters[host] = limiter
	}
	c.mu.Unlock()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return u.Hostname()
}
