package provider

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"github.com/zachfi/zkit/pkg/util"
)

const (
	maxResponseSize = 2 << 20

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// ClientConfig controls the HTTP client used for provider APIs.
type ClientConfig struct {
	Timeout   time.Duration `yaml:"timeout,omitempty"`
	Retries   int           `yaml:"retries,omitempty"`
	UserAgent string        `yaml:"user-agent,omitempty"`

	BreakerFailures int           `yaml:"breaker-failures,omitempty"`
	BreakerTimeout  time.Duration `yaml:"breaker-timeout,omitempty"`

	// Transport overrides the HTTP transport, mostly for tests.
	Transport http.RoundTripper `yaml:"-"`
}

func (cfg *ClientConfig) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.DurationVar(&cfg.Timeout, util.PrefixConfig(prefix, "timeout"), 5*time.Second, "Timeout for each provider API call.")
	f.IntVar(&cfg.Retries, util.PrefixConfig(prefix, "retries"), 0, "Retries for failed provider API calls.")
	f.StringVar(&cfg.UserAgent, util.PrefixConfig(prefix, "user-agent"), browserUserAgent, "User-Agent sent to provider APIs.")
	f.IntVar(&cfg.BreakerFailures, util.PrefixConfig(prefix, "breaker-failures"), 5, "Consecutive failures before a provider's circuit opens.")
	f.DurationVar(&cfg.BreakerTimeout, util.PrefixConfig(prefix, "breaker-timeout"), 30*time.Second, "How long an open circuit rejects calls.")
}

// StatusError is an upstream response outside the 2xx range.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API request failed: %d", e.Code)
}

// Request is one call to a provider API.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a fully read provider response.
type Response struct {
	StatusCode int
	Body       []byte
}

// Client makes provider API calls through a retrying HTTP client inside a
// circuit breaker. Only transport errors and 5xx responses trip the breaker.
type Client struct {
	name      string
	userAgent string
	http      *retryablehttp.Client
	breaker   *gobreaker.CircuitBreaker
	logger    *slog.Logger
}

// NewClient creates a Client for the named provider.
func NewClient(name string, cfg ClientConfig, logger *slog.Logger) *Client {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.Retries
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = nil
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.HTTPClient.Timeout = cfg.Timeout
	if cfg.Transport != nil {
		client.HTTPClient.Transport = cfg.Transport
	}

	failures := cfg.BreakerFailures
	if failures <= 0 {
		failures = 5
	}
	breakerTimeout := cfg.BreakerTimeout
	if breakerTimeout <= 0 {
		breakerTimeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > uint32(failures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "provider", name, "from", from.String(), "to", to.String())
		},
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = browserUserAgent
	}

	return &Client{
		name:      name,
		userAgent: ua,
		http:      client,
		breaker:   gobreaker.NewCircuitBreaker(settings),
		logger:    logger,
	}
}

// Do executes req. Non-2xx responses below 500 are returned, not treated as
// errors, so callers can react to them.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, errors.Wrap(err, "provider temporarily unavailable")
		}
		return nil, err
	}

	return res.(*Response), nil
}

func (c *Client) do(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body interface{}
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	r, err := retryablehttp.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	r.Header.Set("User-Agent", c.userAgent)
	for k, vs := range req.Header {
		for _, v := range vs {
			r.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	if resp.StatusCode >= 500 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	c.logger.Debug("provider call", "provider", c.name, "method", method, "url", req.URL, "status", resp.StatusCode)

	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}
