// Package request provides the single retryable HTTP request abstraction all
// platform clients compose with: a fixed-attempt, fixed-delay policy with a
// per-request timeout and a retryable-status predicate. Exhausting the policy
// yields domain.ErrNoData, which callers treat as "skip this item this
// cycle" rather than a fault.
package request

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/nftbidbot/internal/domain"
)

// Policy is the retry policy for outbound requests.
type Policy struct {
	// Attempts is the maximum number of tries per request.
	Attempts int
	// Delay is slept before every attempt. The upstream gateways are rate
	// sensitive, so the delay doubles as request pacing, not just backoff.
	Delay time.Duration
	// Timeout bounds each individual attempt.
	Timeout time.Duration
}

// Client is a JSON-over-HTTP client bound to one gateway base URL with a
// static header set (API key) and a retry policy.
type Client struct {
	baseURL    string
	headers    map[string]string
	policy     Policy
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Client for the given gateway.
func New(baseURL string, headers map[string]string, policy Policy, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		headers:    headers,
		policy:     policy,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// PostJSON sends payload as a JSON POST to path and decodes the response body
// into out (skipped when out is nil). Transient failures (transport errors,
// 5xx, 429, malformed JSON) are retried per the policy; 400 is permanent and
// returns domain.ErrBadRequest immediately; 401 returns domain.ErrUnauthorized
// so the caller can refresh its session. When the policy is exhausted the
// returned error wraps domain.ErrNoData.
func (c *Client) PostJSON(ctx context.Context, path string, payload any, out any) error {
	return c.do(ctx, http.MethodPost, path, payload, out)
}

// GetJSON sends a GET to path and decodes the response into out, with the
// same retry semantics as PostJSON.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, payload any, out any) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("request: marshal payload for %s: %w", path, err)
		}
	}

	requestID := uuid.NewString()
	var lastErr error

	for attempt := 1; attempt <= c.policy.Attempts; attempt++ {
		// Pace every attempt, first one included.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.policy.Delay):
		}

		err := c.once(ctx, method, path, requestID, body, out)
		if err == nil {
			return nil
		}

		// Permanent outcomes are surfaced immediately.
		if isPermanent(err) {
			c.logger.Error("request failed permanently",
				slog.String("request_id", requestID),
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			return err
		}

		lastErr = err
		c.logger.Warn("request attempt failed",
			slog.String("request_id", requestID),
			slog.String("path", path),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
	}

	return fmt.Errorf("request: %s %s after %d attempts: %w (%w)",
		method, path, c.policy.Attempts, domain.ErrNoData, lastErr)
}

func (c *Client) once(ctx context.Context, method, path, requestID string, body []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.policy.Timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// checkHTTPStatus maps non-2xx status codes to domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", domain.ErrBadRequest, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}

// isPermanent reports whether the error should not be retried at this level.
// 401 is handed back to the caller so its auth session can refresh before the
// next auth-dependent call.
func isPermanent(err error) bool {
	return errors.Is(err, domain.ErrBadRequest) || errors.Is(err, domain.ErrUnauthorized)
}
