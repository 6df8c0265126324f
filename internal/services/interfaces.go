package services

import (
	"context"

	"github.com/solovoro/solovoro-api/internal/models"
)

// StaleRouteResolverInterface computes the routes a content change made stale.
type StaleRouteResolverInterface interface {
	Resolve(ctx context.Context, n models.ChangeNotification) (models.StaleRouteSet, error)
}

// WebhookServiceInterface defines the interface for webhook business logic operations.
type WebhookServiceInterface interface {
	// HandleContentWebhook verifies, parses and resolves a signed CMS
	// notification, then revalidates the stale routes.
	HandleContentWebhook(ctx context.Context, deliveryID string, rawBody []byte, signatureHeader string) (*models.RevalidationResult, error)

	// RevalidateManual resolves and revalidates without a signature. Callers
	// authenticate the request first.
	RevalidateManual(ctx context.Context, deliveryID string, req *models.ManualRevalidationRequest) (*models.RevalidationResult, error)
}

// DiscoverServiceInterface serves the provider catalog.
type DiscoverServiceInterface interface {
	Discover(ctx context.Context) (*models.DiscoverResponse, error)
}

// DocumentSyncer applies a document's current CMS state to a local mirror.
type DocumentSyncer interface {
	SyncDocument(ctx context.Context, id string) error
}
