// Package httpx wraps net/http with the cross-cutting request behavior
// shared by every data service: a tuned transport, default headers, request
// pacing and capped-backoff retries on transient failures.
package httpx

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/arxtrus/bootes/config"
	"github.com/arxtrus/bootes/internal/ratelimit"
	"github.com/arxtrus/bootes/internal/retry"
)

const maxRetryDelay = 30 * time.Second

// Statuses worth one more attempt; everything else fails immediately.
var defaultRetryOnStatus = []int{429, 500, 502, 503}

// Client is the shared outbound HTTP client. It implements Doer.
type Client struct {
	http          *http.Client
	limiter       *ratelimit.TokenBucket
	retryer       *retry.Retryer
	retryOnStatus []int

	UserAgent string
	Headers   map[string]string
}

// New builds a Client from the SDK configuration: request timeout, retry
// budget and request-per-minute pacing all come from cfg.
func New(cfg config.Config) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 3 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          200,
		MaxIdleConnsPerHost:   100,
		MaxConnsPerHost:       100,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   3 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &Client{
		http:          &http.Client{Timeout: cfg.RequestTimeout(), Transport: transport},
		limiter:       ratelimit.PerMinute(cfg.RequestsPerMinute),
		retryer:       retry.New(cfg.MaxRetries, cfg.RetryBaseDelay(), maxRetryDelay),
		retryOnStatus: defaultRetryOnStatus,
		UserAgent:     "bootes/1.0",
	}
}

// Do performs the request, waiting for the rate limiter before each attempt
// and retrying transport failures and retryable statuses. The response of
// the final attempt is returned unread.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	for k, v := range c.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	req = req.WithContext(ctx)

	var resp *http.Response
	err := c.retryer.Do(ctx, func() (bool, error) {
		if resp != nil {
			// Previous attempt produced a retryable status; discard it.
			resp.Body.Close()
			resp = nil
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return false, err
		}
		var err error
		resp, err = c.http.Do(req)
		if err != nil {
			return true, err
		}
		for _, status := range c.retryOnStatus {
			if resp.StatusCode == status {
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	return resp, nil
}
