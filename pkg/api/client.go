// Package api provides the HTTP client for the HRMS progressive batch
// endpoint, with rate limiting, retry, and error handling.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sddhantjaiii/hrms-batch-client/pkg/ratelimit"
)

// DefaultResource is the attendance sheet endpoint path served by the HRMS backend.
const DefaultResource = "/api/daily-attendance/"

// Prometheus metrics for batch requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrms_requests_total",
		Help: "Total batch requests by load phase and status",
	}, []string{"phase", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hrms_request_duration_seconds",
		Help:    "Batch request duration in seconds by load phase",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"phase"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrms_errors_total",
		Help: "Total request errors by class",
	}, []string{"class"})
)

// Client is the HRMS batch endpoint client.
type Client struct {
	httpClient  *http.Client
	rateLimiter *ratelimit.Tracker
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the HRMS backend, e.g. "https://hrms.example.com".
	BaseURL string

	// Resource is the batch endpoint path (default: DefaultResource).
	Resource string

	// Token is the bearer token attached to every request.
	Token string

	// TenantID, when set, is sent as the X-Tenant-ID header.
	TenantID string

	// RateLimiter gates requests on the gateway error budget. Optional.
	RateLimiter *ratelimit.Tracker

	// Timeout per HTTP request.
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, token string) Config {
	return Config{
		BaseURL:  baseURL,
		Resource: DefaultResource,
		Token:    token,
		Timeout:  30 * time.Second,
	}
}

// New creates a new HRMS batch client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("bearer token is required")
	}
	if cfg.Resource == "" {
		cfg.Resource = DefaultResource
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().Str("component", "hrms-api").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: cfg.RateLimiter,
		config:      cfg,
		logger:      logger,
	}, nil
}

// FetchBatch requests one load phase of the attendance sheet for a date.
// The page boundary is server policy: callers must drive continuation from
// the returned ProgressiveMeta, never from an assumed page size.
func (c *Client) FetchBatch(ctx context.Context, date string, phase Phase) (*BatchResponse, error) {
	if date == "" {
		return nil, fmt.Errorf("date is required")
	}

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(phaseLabel(phase)).Observe(time.Since(startTime).Seconds())
	}()

	if c.rateLimiter != nil {
		allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
		if err != nil {
			c.logger.Error().Err(err).Msg("Rate limit check failed")
			return nil, fmt.Errorf("rate limit check: %w", err)
		}
		if !allowed {
			c.logger.Warn().
				Str("date", date).
				Str("phase", phaseLabel(phase)).
				Msg("Request blocked by rate limiter")
			requestsTotal.WithLabelValues(phaseLabel(phase), "rate_limited").Inc()
			return nil, fmt.Errorf("request blocked: rate limit critical")
		}
	}

	reqURL := c.batchURL(date, phase)

	c.logger.Debug().
		Str("date", date).
		Str("phase", phaseLabel(phase)).
		Msg("Executing batch request")

	var batch *BatchResponse
	err := retryWithBackoff(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
		req.Header.Set("Accept", "application/json")
		if c.config.TenantID != "" {
			req.Header.Set("X-Tenant-ID", c.config.TenantID)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Error().Err(err).Str("date", date).Msg("HTTP request failed")
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(phaseLabel(phase), "network_error").Inc()
			return &APIError{ErrorClass: ErrorClassNetwork, Message: "transport failure", Err: err}
		}
		defer resp.Body.Close()

		if c.rateLimiter != nil {
			if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
			}
		}

		requestsTotal.WithLabelValues(phaseLabel(phase), fmt.Sprintf("%d", resp.StatusCode)).Inc()

		if resp.StatusCode >= 400 {
			errClass := classifyStatus(resp.StatusCode)
			errorsTotal.WithLabelValues(string(errClass)).Inc()
			c.logger.Warn().
				Str("date", date).
				Int("status", resp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("Batch request error")
			return &APIError{
				StatusCode: resp.StatusCode,
				ErrorClass: errClass,
				Message:    resp.Status,
			}
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return &APIError{ErrorClass: ErrorClassNetwork, Message: "read response body", Err: err}
		}

		var decoded BatchResponse
		if err := json.Unmarshal(body, &decoded); err != nil {
			// Malformed bodies are not retried; the server is answering,
			// just not with the expected shape.
			return &APIError{
				StatusCode: resp.StatusCode,
				ErrorClass: ErrorClassClient,
				Message:    "decode batch response",
				Err:        err,
			}
		}

		batch = &decoded
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("date", date).
		Str("phase", phaseLabel(phase)).
		Int("items", len(batch.Items)).
		Int("total_items", batch.Progressive.TotalItems).
		Bool("has_more", batch.Progressive.HasMore).
		Dur("duration", time.Since(startTime)).
		Msg("Batch request complete")

	return batch, nil
}

// batchURL builds the request URL for a date and load phase.
func (c *Client) batchURL(date string, phase Phase) string {
	q := url.Values{}
	q.Set("date", date)
	switch phase {
	case PhaseInitial:
		q.Set("initial", "true")
	case PhaseRemaining:
		q.Set("remaining", "true")
	}
	base := strings.TrimRight(c.config.BaseURL, "/")
	return base + c.config.Resource + "?" + q.Encode()
}

// classifyStatus categorizes an HTTP status code for observability and retry handling.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// phaseLabel returns the metric label for a load phase.
func phaseLabel(phase Phase) string {
	if phase == PhaseUnspecified {
		return "default"
	}
	return string(phase)
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
