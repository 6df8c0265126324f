// Package sanity is a minimal GROQ query client for the Sanity HTTP API.
package sanity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/solovoro/solovoro-api/pkg/circuitbreaker"
	"github.com/solovoro/solovoro-api/pkg/httpclient"
	"github.com/solovoro/solovoro-api/pkg/logger"
	"github.com/solovoro/solovoro-api/pkg/metrics"
	"github.com/solovoro/solovoro-api/pkg/tracing"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// GET requests longer than this switch to POST.
const maxGETURLLength = 11 * 1024

const maxResponseBytes = 8 << 20

// Config describes the dataset to query.
type Config struct {
	ProjectID  string
	Dataset    string
	APIVersion string
	Token      string
	UseCDN     bool
	// BaseURL overrides https://<project>.api.sanity.io. Used in tests.
	BaseURL string
}

// Client runs GROQ queries behind a circuit breaker.
type Client struct {
	cfg            Config
	httpClient     httpclient.Client
	circuitBreaker *gobreaker.CircuitBreaker
}

// APIError is a non-2xx answer from the query endpoint.
type APIError struct {
	StatusCode  int
	Type        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("sanity query failed with status %d: %s", e.StatusCode, e.Description)
	}
	return fmt.Sprintf("sanity query failed with status %d", e.StatusCode)
}

type queryResponse struct {
	Result json.RawMessage `json:"result"`
	Ms     int             `json:"ms"`
}

type errorResponse struct {
	Error struct {
		Type        string `json:"type"`
		Description string `json:"description"`
	} `json:"error"`
}

// NewClient creates a Sanity client.
func NewClient(cfg Config, httpClient httpclient.Client) (*Client, error) {
	if cfg.ProjectID == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("sanity project id is required")
	}
	if cfg.Dataset == "" {
		return nil, fmt.Errorf("sanity dataset is required")
	}
	if cfg.APIVersion == "" {
		return nil, fmt.Errorf("sanity api version is required")
	}
	if httpClient == nil {
		httpClient = httpclient.NewClientWithTimeout(10 * time.Second)
	}

	cbConfig := circuitbreaker.ContentStoreConfig("sanity")
	// Query errors are caller bugs, not an unhealthy backend.
	cbConfig.IsSuccessful = func(err error) bool {
		if err == nil {
			return true
		}
		var apiErr *APIError
		return errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusTooManyRequests
	}

	logger.Info("Sanity client initialized",
		zap.String("project_id", cfg.ProjectID),
		zap.String("dataset", cfg.Dataset),
		zap.String("api_version", cfg.APIVersion),
		zap.Bool("use_cdn", cfg.UseCDN))

	return &Client{
		cfg:            cfg,
		httpClient:     httpClient,
		circuitBreaker: circuitbreaker.NewCircuitBreaker(cbConfig),
	}, nil
}

// Query runs a GROQ query and decodes its result into out. operation names
// the query in metrics and logs.
func (c *Client) Query(ctx context.Context, operation, query string, params map[string]any, out any) error {
	ctx, span := tracing.StartSpan(ctx, "sanity."+operation,
		attribute.String("sanity.dataset", c.cfg.Dataset))
	defer span.End()

	start := time.Now()

	raw, err := circuitbreaker.Execute(c.circuitBreaker, func() (json.RawMessage, error) {
		return c.do(ctx, query, params)
	})

	duration := metrics.MeasureDuration(start)
	if err == nil && out != nil {
		if decodeErr := json.Unmarshal(raw, out); decodeErr != nil {
			err = fmt.Errorf("failed to decode %s result: %w", operation, decodeErr)
		}
	}

	if err != nil {
		tracing.RecordError(span, err)
		metrics.ContentStoreRequestDuration.WithLabelValues(operation, "error").Observe(duration)
		metrics.ContentStoreRequestTotal.WithLabelValues(operation, "error").Inc()
		logger.LogAPICall(ctx, "sanity", operation, "error", duration, zap.Error(err))
		return err
	}

	metrics.ContentStoreRequestDuration.WithLabelValues(operation, "success").Observe(duration)
	metrics.ContentStoreRequestTotal.WithLabelValues(operation, "success").Inc()
	logger.LogAPICall(ctx, "sanity", operation, "success", duration)
	return nil
}

// Ping runs a trivial query to confirm the dataset is reachable.
func (c *Client) Ping(ctx context.Context) error {
	var n int
	return c.Query(ctx, "ping", `count(*[_type == "settings"])`, nil, &n)
}

func (c *Client) do(ctx context.Context, query string, params map[string]any) (json.RawMessage, error) {
	req, err := c.newRequest(ctx, query, params)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sanity request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read sanity response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var er errorResponse
		if json.Unmarshal(body, &er) == nil {
			apiErr.Type = er.Error.Type
			apiErr.Description = er.Error.Description
		}
		return nil, apiErr
	}

	var qr queryResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return nil, fmt.Errorf("failed to decode sanity response: %w", err)
	}
	if len(qr.Result) == 0 {
		qr.Result = json.RawMessage("null")
	}
	return qr.Result, nil
}

func (c *Client) newRequest(ctx context.Context, query string, params map[string]any) (*http.Request, error) {
	endpoint := c.queryURL()

	values := url.Values{}
	values.Set("query", query)
	encodedParams := make(map[string]json.RawMessage, len(params))
	for name, value := range params {
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode param %s: %w", name, err)
		}
		values.Set("$"+name, string(encoded))
		encodedParams[name] = encoded
	}

	var req *http.Request
	var err error
	getURL := endpoint + "?" + values.Encode()
	if len(getURL) <= maxGETURLLength {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, getURL, nil)
	} else {
		payload, marshalErr := json.Marshal(map[string]any{"query": query, "params": encodedParams})
		if marshalErr != nil {
			return nil, fmt.Errorf("failed to encode query body: %w", marshalErr)
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create sanity request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	return req, nil
}

func (c *Client) queryURL() string {
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	if base == "" {
		host := "api.sanity.io"
		// The CDN never serves token-authenticated requests.
		if c.cfg.UseCDN && c.cfg.Token == "" {
			host = "apicdn.sanity.io"
		}
		base = fmt.Sprintf("https://%s.%s", c.cfg.ProjectID, host)
	}
	version := strings.TrimPrefix(c.cfg.APIVersion, "v")
	return fmt.Sprintf("%s/v%s/data/query/%s", base, version, url.PathEscape(c.cfg.Dataset))
}
