// Package fetcher is the JSON-over-HTTP transport shared by the data.gouv.fr,
// schema catalogue and validation clients.
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/schema-audit/internal/resilience"
)

const maxErrorBody = 512

// StatusError is a non-2xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// Options configures a Client.
type Options struct {
	Service   string
	UserAgent string
	Timeout   time.Duration
	// Header is sent with every request.
	Header  http.Header
	Limiter *AdaptiveLimiter
	Retry   resilience.Policy
	// HTTPClient overrides the default transport.
	HTTPClient *http.Client
}

// Client sends JSON requests with rate limiting and retry of transient failures.
type Client struct {
	http    *http.Client
	opts    Options
	limiter *AdaptiveLimiter
}

// New returns a Client for opts.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "schema-audit/1.0"
	}
	if opts.Service == "" {
		opts.Service = "http"
	}
	if opts.Retry.Attempts == 0 {
		opts.Retry = resilience.DefaultPolicy()
	}
	if opts.Retry.OnRetry == nil {
		opts.Retry.OnRetry = resilience.LogRetry(opts.Service, "request")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &Client{http: hc, opts: opts, limiter: opts.Limiter}
}

// GetJSON decodes the response of GET rawURL into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, out any) error {
	return c.Do(ctx, http.MethodGet, rawURL, nil, out)
}

// PostJSON sends body as JSON and decodes the response into out. out may be nil.
func (c *Client) PostJSON(ctx context.Context, rawURL string, body, out any) error {
	return c.Do(ctx, http.MethodPost, rawURL, body, out)
}

// Do sends one logical request, retrying transient failures.
func (c *Client) Do(ctx context.Context, method, rawURL string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return eris.Wrapf(err, "%s: encode request body", c.opts.Service)
		}
	}

	policy := c.opts.Retry
	if method != http.MethodGet {
		// The server may have acted on a failed write; only a 429 is known not to.
		policy.Retryable = func(err error) bool { return StatusCode(err) == http.StatusTooManyRequests }
	}
	raw, err := resilience.RetryVal(ctx, policy, func(ctx context.Context) ([]byte, error) {
		return c.once(ctx, method, rawURL, payload)
	})
	if err != nil {
		return eris.Wrapf(err, "%s: %s %s", c.opts.Service, method, rawURL)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return eris.Wrapf(err, "%s: decode response from %s", c.opts.Service, rawURL)
	}
	return nil
}

func (c *Client) once(ctx context.Context, method, rawURL string, payload []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	for k, vs := range c.opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "read response body"), 0)
	}

	zap.L().Debug("fetcher: response",
		zap.String("service", c.opts.Service),
		zap.String("method", method),
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if c.limiter != nil {
			c.limiter.OnSuccess()
		}
		return data, nil
	}

	if resp.StatusCode == http.StatusTooManyRequests && c.limiter != nil {
		c.limiter.OnRateLimit()
	}
	if len(data) > maxErrorBody {
		data = data[:maxErrorBody]
	}
	se := &StatusError{Method: method, URL: rawURL, StatusCode: resp.StatusCode, Body: string(data)}
	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return nil, resilience.NewTransientError(se, resp.StatusCode)
	}
	return nil, se
}
