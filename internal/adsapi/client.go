package adsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/Fn-M/HousingManager/internal/apperr"
	"github.com/Fn-M/HousingManager/internal/logging"
	"github.com/Fn-M/HousingManager/internal/normalize"
	"github.com/rs/zerolog"
)

// ErrNotFound matches 404 answers and ids missing from collection responses.
var ErrNotFound = normalize.ErrNotFound

// ErrCircuitOpen is returned without contacting the API while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker open: ads API unavailable")

const maxResponseBytes = 10 << 20

// Config describes how to reach the ads API. It is built once at startup and
// not modified afterwards.
type Config struct {
	BaseURL    string
	APIKey     string
	Headers    map[string]string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration

	BreakerThreshold int
	BreakerReset     time.Duration
}

// APIError is a non-2xx answer from the ads API
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("ads API %s %s returned status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("ads API %s %s returned status %d: %s", e.Method, e.Path, e.StatusCode, body)
}

// Is lets errors.Is(err, ErrNotFound) match a 404.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

func (e *APIError) retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Client talks to the ads API
type Client struct {
	baseURL    string
	apiKey     string
	headers    map[string]string
	maxRetries int
	retryDelay time.Duration

	httpClient *http.Client
	breaker    *CircuitBreaker
	logger     zerolog.Logger
}

// NewClient creates a client from cfg. Zero values fall back to sane defaults.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = 5
	}
	if cfg.BreakerReset <= 0 {
		cfg.BreakerReset = 30 * time.Second
	}

	logger = logger.With().Str("component", "adsapi").Logger()

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		headers:    maps.Clone(cfg.Headers),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    NewCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerReset, logger),
		logger:     logger,
	}
}

// BreakerStatus reports the state of the client's circuit breaker.
func (c *Client) BreakerStatus() BreakerStatus {
	return c.breaker.Status()
}

// idempotent reports whether a request may be repeated safely. POST creates
// ads and comments, so a retry after a lost answer would duplicate them.
func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// doRequest sends a JSON request with exponential backoff retry and returns
// the response body. Transport errors, 5xx and 429 are retried for idempotent
// methods only; other 4xx are not retried at all.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	if !c.breaker.CanProceed() {
		return nil, ErrCircuitOpen
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	url := c.baseURL + path
	logger := c.logger.With().
		Str("method", method).
		Str("path", path).
		Str("trace_id", logging.TraceID(ctx)).
		Logger()

	retries := c.maxRetries
	if !idempotent(method) {
		retries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			// delay * 2^(attempt-1), max 60s
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * c.retryDelay
			if backoff > 60*time.Second {
				backoff = 60 * time.Second
			}
			logger.Debug().Int("attempt", attempt).Dur("backoff", backoff).Msg("retrying request")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		respBody, err := c.send(ctx, method, url, payload)
		if err == nil {
			c.breaker.RecordSuccess()
			logger.Debug().Int("attempt", attempt+1).Msg("request succeeded")
			return respBody, nil
		}
		lastErr = err

		var apiErr *APIError
		if errors.As(err, &apiErr) {
			logger.Warn().Int("status", apiErr.StatusCode).Int("attempt", attempt+1).Msg("request failed")
			if apiErr.retryable() || apiErr.StatusCode == http.StatusForbidden {
				c.breaker.RecordFailure(apiErr.StatusCode)
			}
			if !apiErr.retryable() {
				// 404: the ad is gone, nothing to retry
				return nil, err
			}
			continue
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn().Err(err).Int("attempt", attempt+1).Msg("request failed")
		c.breaker.RecordFailure(0)
	}

	if retries == 0 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("request failed after %d retries: %w", retries, lastErr)
}

func (c *Client) send(ctx context.Context, method, url string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	if traceID := logging.TraceID(ctx); traceID != "" {
		req.Header.Set(logging.TraceHeader, traceID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			Method:     method,
			Path:       req.URL.Path,
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}
	return data, nil
}

// Classify turns an error from this package into a classified one: not-found
// answers keep their own kind, everything else is a remote failure. The
// not-found message is derived from msg so it names what was missing.
func Classify(op, msg string, err error) error {
	return classify(op, msg, msg+": not found", err)
}

// ClassifyAd is Classify for requests on the ad itself, where a 404 means the
// property is gone.
func ClassifyAd(op, msg string, err error) error {
	return classify(op, msg, MsgPropertyNotFound, err)
}

// MsgPropertyNotFound is shown when the ad no longer exists.
const MsgPropertyNotFound = "Property not found"

func classify(op, msg, notFound string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return apperr.Wrap(apperr.NotFound, op, notFound, err)
	}
	var de *normalize.DecodeError
	if errors.As(err, &de) {
		return apperr.Wrap(apperr.Remote, op, msg+": unexpected response", err)
	}
	return apperr.Wrap(apperr.Remote, op, msg, err)
}
