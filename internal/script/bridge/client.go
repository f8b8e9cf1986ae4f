package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// ClientConfig tunes the outbound HTTP client backing the bridge.
type ClientConfig struct {
	Timeout   time.Duration
	RetryMax  int
	RateLimit float64 // requests per second, 0 = unlimited
	UserAgent string
	MaxBodyMB int64
}

// DefaultClientConfig returns production client configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:   30 * time.Second,
		RetryMax:  2,
		UserAgent: "Kanade-Source/1.0",
		MaxBodyMB: 32,
	}
}

// Client wraps resty with retrying transport and rate limiting.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	maxBody int64
}

// NewClient creates the outbound HTTP client used by all script bridges.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg = DefaultClientConfig()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = nil

	restyClient := resty.New()
	restyClient.
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetTransport(&retryablehttp.RoundTripper{Client: retryClient})

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), int(cfg.RateLimit)+1)
	}

	return &Client{
		resty:   restyClient,
		limiter: limiter,
		maxBody: cfg.MaxBodyMB << 20,
	}
}

// Request creates a new rate-limited request.
func (c *Client) Request(ctx context.Context) (*resty.Request, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}
	return c.resty.R().SetContext(ctx), nil
}
