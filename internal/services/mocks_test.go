package services_test

import (
	"context"
	"time"

	"github.com/solovoro/solovoro-api/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockContentRepository is a mock implementation of ContentRepositoryInterface
type MockContentRepository struct {
	mock.Mock
}

func (m *MockContentRepository) DocumentExists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockContentRepository) PostSlugByID(ctx context.Context, id string) ([]string, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockContentRepository) PostSlugsByAuthor(ctx context.Context, authorID string) ([]string, error) {
	args := m.Called(ctx, authorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockContentRepository) RecentPostSlugs(ctx context.Context, limit int) ([]string, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockContentRepository) CountRecentPostsNewerThan(ctx context.Context, limit int, date time.Time) (int, error) {
	args := m.Called(ctx, limit, date)
	return args.Int(0), args.Error(1)
}

func (m *MockContentRepository) AllPostSlugs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockResolver is a mock implementation of StaleRouteResolverInterface
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, n models.ChangeNotification) (models.StaleRouteSet, error) {
	args := m.Called(ctx, n)
	return args.Get(0).(models.StaleRouteSet), args.Error(1)
}

// MockRevalidator is a mock implementation of revalidate.Revalidator
type MockRevalidator struct {
	mock.Mock
}

func (m *MockRevalidator) Revalidate(ctx context.Context, deliveryID string, paths []string) error {
	args := m.Called(ctx, deliveryID, paths)
	return args.Error(0)
}

// MockCatalogProvider is a mock implementation of CatalogProvider
type MockCatalogProvider struct {
	mock.Mock
}

func (m *MockCatalogProvider) Get(ctx context.Context) (*models.ProviderCatalog, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProviderCatalog), args.Error(1)
}

// MockMirrorSource is a mock implementation of ContentMirrorSource
type MockMirrorSource struct {
	mock.Mock
}

func (m *MockMirrorSource) Snapshot(ctx context.Context) (*models.ContentSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ContentSnapshot), args.Error(1)
}

func (m *MockMirrorSource) Document(ctx context.Context, id string) (*models.ContentDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ContentDocument), args.Error(1)
}

// MockMirrorStore is a mock implementation of ContentMirrorStore
type MockMirrorStore struct {
	mock.Mock
}

func (m *MockMirrorStore) UpsertDocument(ctx context.Context, doc models.ContentDocument) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *MockMirrorStore) DeleteDocument(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockMirrorStore) ReplaceAll(ctx context.Context, snapshot *models.ContentSnapshot) (int64, error) {
	args := m.Called(ctx, snapshot)
	return args.Get(0).(int64), args.Error(1)
}

// MockDocumentSyncer is a mock implementation of DocumentSyncer
type MockDocumentSyncer struct {
	mock.Mock
}

func (m *MockDocumentSyncer) SyncDocument(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
