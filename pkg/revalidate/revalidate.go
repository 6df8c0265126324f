// Package revalidate asks the rendering frontend to rebuild stale routes.
package revalidate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/solovoro/solovoro-api/pkg/errors"
	"github.com/solovoro/solovoro-api/pkg/httpclient"
	"github.com/solovoro/solovoro-api/pkg/jwt"
	"github.com/solovoro/solovoro-api/pkg/logger"
	"github.com/solovoro/solovoro-api/pkg/metrics"
	"github.com/solovoro/solovoro-api/pkg/retry"
	"github.com/solovoro/solovoro-api/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// tokenTTL bounds how long a leaked revalidation token stays usable.
const tokenTTL = time.Minute

// Revalidator invalidates a batch of route paths.
type Revalidator interface {
	Revalidate(ctx context.Context, deliveryID string, paths []string) error
}

// Config for the HTTP revalidator.
type Config struct {
	BaseURL string
	Path    string
	Secret  string
	Issuer  string
}

// HTTPRevalidator POSTs each path to the frontend concurrently.
type HTTPRevalidator struct {
	endpoint    string
	tokens      *jwt.TokenManager
	httpClient  httpclient.Client
	retryConfig retry.Config
}

type revalidateRequest struct {
	Path string `json:"path"`
}

// NewHTTPRevalidator creates a revalidator for cfg.BaseURL + cfg.Path.
func NewHTTPRevalidator(cfg Config, httpClient httpclient.Client) (*HTTPRevalidator, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("frontend base URL is required")
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("frontend revalidation secret is required")
	}
	if httpClient == nil {
		httpClient = httpclient.NewClientWithTimeout(10 * time.Second)
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = "solovoro-api"
	}

	return &HTTPRevalidator{
		endpoint:    cfg.BaseURL + cfg.Path,
		tokens:      jwt.NewTokenManager(cfg.Secret, issuer, tokenTTL),
		httpClient:  httpClient,
		retryConfig: retry.RevalidateConfig(),
	}, nil
}

// Revalidate issues one call per path and waits for all of them. The
// returned error is the first failure in path order.
func (r *HTTPRevalidator) Revalidate(ctx context.Context, deliveryID string, paths []string) error {
	ctx, span := tracing.StartSpan(ctx, "revalidate.fanout",
		attribute.Int("revalidate.paths", len(paths)),
		attribute.String("delivery_id", deliveryID))
	defer span.End()

	errs := make([]error, len(paths))
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			errs[i] = r.revalidatePath(ctx, deliveryID, path)
		}(i, path)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			tracing.RecordError(span, err)
			return fmt.Errorf("%w for %s: %w", apperrors.ErrRevalidation, paths[i], err)
		}
	}
	return nil
}

func (r *HTTPRevalidator) revalidatePath(ctx context.Context, deliveryID, path string) error {
	start := time.Now()

	err := retry.Do(ctx, r.retryConfig, "revalidate "+path, func() error {
		return r.post(ctx, deliveryID, path)
	})

	duration := metrics.MeasureDuration(start)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RevalidationCalls.WithLabelValues(status).Inc()
	metrics.RevalidationDuration.WithLabelValues(status).Observe(duration)
	logger.LogAPICall(ctx, "frontend", "revalidate", status, duration,
		zap.String("path", path),
		zap.String("delivery_id", deliveryID),
		zap.Error(err))

	return err
}

func (r *HTTPRevalidator) post(ctx context.Context, deliveryID, path string) error {
	token, err := r.tokens.GenerateToken(path, deliveryID)
	if err != nil {
		return retry.Permanent(err)
	}

	payload, err := json.Marshal(revalidateRequest{Path: path})
	if err != nil {
		return retry.Permanent(fmt.Errorf("failed to encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	statusErr := fmt.Errorf("frontend returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return statusErr
	}
	return retry.Permanent(statusErr)
}

// Noop logs the paths it would have revalidated. Used when no frontend is
// configured.
type Noop struct{}

func (Noop) Revalidate(ctx context.Context, deliveryID string, paths []string) error {
	logger.Info("Frontend revalidation disabled, skipping",
		zap.String("delivery_id", deliveryID),
		zap.Strings("paths", paths))
	return nil
}
