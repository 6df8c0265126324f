package services

import (
	"context"
	"time"

	"github.com/solovoro/solovoro-api/internal/models"
	"github.com/solovoro/solovoro-api/pkg/logger"
	"github.com/solovoro/solovoro-api/pkg/metrics"
	"go.uber.org/zap"
)

// DiscoverSource is the name reported in the discover response metadata.
const DiscoverSource = "solovoro"

// CatalogProvider returns the current provider catalog. Satisfied by *cache.ProvidersCache.
type CatalogProvider interface {
	Get(ctx context.Context) (*models.ProviderCatalog, error)
}

type DiscoverService struct {
	catalog CatalogProvider
	now     func() time.Time
}

func NewDiscoverService(catalog CatalogProvider) *DiscoverService {
	return &DiscoverService{
		catalog: catalog,
		now:     time.Now,
	}
}

func (s *DiscoverService) Discover(ctx context.Context) (*models.DiscoverResponse, error) {
	catalog, err := s.catalog.Get(ctx)
	if err != nil {
		logger.LogError(ctx, err, "Failed to load provider catalog")
		metrics.DiscoverRequests.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.DiscoverRequests.WithLabelValues("success").Inc()
	logger.Debug("Served provider catalog", zap.String("source", catalog.Source))

	return &models.DiscoverResponse{
		Meta: models.DiscoverMeta{
			Source:      DiscoverSource,
			LastUpdated: s.now().UTC().Format(time.RFC3339),
		},
		Providers: catalog.Providers,
	}, nil
}

var _ DiscoverServiceInterface = (*DiscoverService)(nil)
