package services

import (
	"context"
	"time"

	"github.com/solovoro/solovoro-api/internal/models"
	apperrors "github.com/solovoro/solovoro-api/pkg/errors"
	"github.com/solovoro/solovoro-api/pkg/logger"
	"github.com/solovoro/solovoro-api/pkg/metrics"
	"github.com/solovoro/solovoro-api/pkg/revalidate"
	"github.com/solovoro/solovoro-api/pkg/signature"
	"github.com/solovoro/solovoro-api/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Webhook outcomes, used as the metrics label.
const (
	outcomeUnauthorized = "unauthorized"
	outcomeMalformed    = "malformed"
	outcomeFailed       = "failed"
	outcomeRevalidated  = "revalidated"
)

// WebhookConfig holds the process-wide settings read once at startup.
type WebhookConfig struct {
	Secret string
	// ConsistencyDelay is waited after a valid signature so the content
	// store's read replicas catch up with the write that fired the webhook.
	ConsistencyDelay time.Duration
}

type WebhookService struct {
	resolver    StaleRouteResolverInterface
	revalidator revalidate.Revalidator
	mirror      DocumentSyncer
	config      WebhookConfig
}

func NewWebhookService(resolver StaleRouteResolverInterface, revalidator revalidate.Revalidator, cfg WebhookConfig) *WebhookService {
	if revalidator == nil {
		revalidator = revalidate.Noop{}
	}
	return &WebhookService{
		resolver:    resolver,
		revalidator: revalidator,
		config:      cfg,
	}
}

// WithMirror makes every notification update the content mirror before its
// routes are resolved, so the resolver reads the state the webhook reports.
func (s *WebhookService) WithMirror(mirror DocumentSyncer) *WebhookService {
	s.mirror = mirror
	return s
}

func (s *WebhookService) HandleContentWebhook(ctx context.Context, deliveryID string, rawBody []byte, signatureHeader string) (*models.RevalidationResult, error) {
	ctx, span := tracing.StartSpan(ctx, "webhook.HandleContentWebhook",
		attribute.String("delivery_id", deliveryID))
	defer span.End()

	// Only a valid signature waits out the consistency delay. Rejections
	// return at once whatever the cause.
	switch result := signature.Verify(rawBody, signatureHeader, s.config.Secret); result {
	case signature.Valid:
	case signature.Indeterminate:
		logger.Warn("Webhook signature missing",
			zap.String("delivery_id", deliveryID),
			zap.Bool("header_present", signatureHeader != ""),
			zap.Bool("secret_configured", s.config.Secret != ""))
		metrics.WebhookDeliveries.WithLabelValues("none", outcomeUnauthorized).Inc()
		return nil, apperrors.ErrSignatureMissing
	default:
		logger.Warn("Invalid webhook signature", zap.String("delivery_id", deliveryID))
		metrics.WebhookDeliveries.WithLabelValues("none", outcomeUnauthorized).Inc()
		return nil, apperrors.ErrSignatureInvalid
	}

	if err := wait(ctx, s.config.ConsistencyDelay); err != nil {
		return nil, err
	}

	n, err := models.ParseChangeNotification(rawBody)
	if err != nil {
		logger.Warn("Rejected webhook body",
			zap.String("delivery_id", deliveryID),
			zap.Error(err))
		metrics.WebhookDeliveries.WithLabelValues("none", outcomeMalformed).Inc()
		return nil, err
	}

	return s.resolveAndRevalidate(ctx, deliveryID, n)
}

func (s *WebhookService) RevalidateManual(ctx context.Context, deliveryID string, req *models.ManualRevalidationRequest) (*models.RevalidationResult, error) {
	ctx, span := tracing.StartSpan(ctx, "webhook.RevalidateManual",
		attribute.String("delivery_id", deliveryID))
	defer span.End()

	logger.Info("Manual revalidation requested",
		zap.String("delivery_id", deliveryID),
		zap.String("type", req.Type),
		zap.String("id", req.ID))

	return s.resolveAndRevalidate(ctx, deliveryID, req.ToNotification())
}

func (s *WebhookService) resolveAndRevalidate(ctx context.Context, deliveryID string, n models.ChangeNotification) (*models.RevalidationResult, error) {
	docType := metricsDocumentType(n.DocumentType)

	if s.mirror != nil && n.DocumentType.Known() {
		if err := s.mirror.SyncDocument(ctx, n.DocumentID); err != nil {
			logger.LogError(ctx, err, "Failed to update content mirror",
				zap.String("delivery_id", deliveryID),
				zap.String("document_id", n.DocumentID))
			metrics.WebhookDeliveries.WithLabelValues(docType, outcomeFailed).Inc()
			return nil, err
		}
	}

	routes, err := s.resolver.Resolve(ctx, n)
	if err != nil {
		logger.LogError(ctx, err, "Failed to resolve stale routes",
			zap.String("delivery_id", deliveryID),
			zap.String("document_type", string(n.DocumentType)),
			zap.String("document_id", n.DocumentID))
		metrics.WebhookDeliveries.WithLabelValues(docType, outcomeFailed).Inc()
		return nil, err
	}
	metrics.StaleRoutesResolved.WithLabelValues(docType).Observe(float64(routes.Len()))

	paths := routes.Paths()
	if err := s.revalidator.Revalidate(ctx, deliveryID, paths); err != nil {
		logger.LogError(ctx, err, "Failed to revalidate routes",
			zap.String("delivery_id", deliveryID),
			zap.Strings("routes", paths))
		metrics.WebhookDeliveries.WithLabelValues(docType, outcomeFailed).Inc()
		return nil, err
	}

	logger.Info("Updated routes",
		zap.String("delivery_id", deliveryID),
		zap.String("document_type", string(n.DocumentType)),
		zap.String("document_id", n.DocumentID),
		zap.Strings("routes", paths))
	metrics.WebhookDeliveries.WithLabelValues(docType, outcomeRevalidated).Inc()

	return &models.RevalidationResult{DeliveryID: deliveryID, Routes: paths}, nil
}

// metricsDocumentType bounds label cardinality to the known types.
func metricsDocumentType(t models.DocumentType) string {
	if t.Known() {
		return string(t)
	}
	return "unknown"
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ WebhookServiceInterface = (*WebhookService)(nil)
