package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/solovoro/solovoro-api/internal/models"
	"github.com/solovoro/solovoro-api/internal/repository"
	"github.com/solovoro/solovoro-api/internal/services"
	apperrors "github.com/solovoro/solovoro-api/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memoryMirror applies mirror writes to a MemoryContentRepository so the
// resolver can read them back.
type memoryMirror struct {
	repo *repository.MemoryContentRepository
}

func (m memoryMirror) UpsertDocument(_ context.Context, doc models.ContentDocument) error {
	if doc.Type == models.DocumentTypePost {
		m.repo.PutPost(repository.MemoryPost{
			ID:        doc.ID,
			Slug:      doc.Slug,
			Date:      doc.Date,
			UpdatedAt: doc.UpdatedAt,
			AuthorID:  doc.AuthorID,
		})
		return nil
	}
	m.repo.PutDocument(doc.ID)
	return nil
}

func (m memoryMirror) DeleteDocument(_ context.Context, id string) error {
	m.repo.Delete(id)
	return nil
}

func (m memoryMirror) ReplaceAll(context.Context, *models.ContentSnapshot) (int64, error) {
	return 0, errors.New("not supported")
}

func TestMirrorSyncService_SyncAll(t *testing.T) {
	source := new(MockMirrorSource)
	store := new(MockMirrorStore)

	snapshot := &models.ContentSnapshot{Documents: []models.ContentDocument{
		{ID: "post-a", Type: models.DocumentTypePost, Slug: "a"},
		{ID: "post-b", Type: models.DocumentTypePost, Slug: "b"},
		{ID: "author-x", Type: models.DocumentTypeAuthor},
		{ID: "settings", Type: models.DocumentTypeSettings},
	}}
	source.On("Snapshot", mock.Anything).Return(snapshot, nil).Once()
	store.On("ReplaceAll", mock.Anything, snapshot).Return(int64(3), nil).Once()

	stats, err := services.NewMirrorSyncService(source, store).SyncAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, &models.MirrorSyncStats{Documents: 4, Posts: 2, Authors: 1, Deleted: 3}, stats)
	source.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestMirrorSyncService_SyncAllRefusesEmptySnapshot(t *testing.T) {
	source := new(MockMirrorSource)
	store := new(MockMirrorStore)
	source.On("Snapshot", mock.Anything).Return(&models.ContentSnapshot{}, nil).Once()

	_, err := services.NewMirrorSyncService(source, store).SyncAll(context.Background())

	assert.ErrorIs(t, err, apperrors.ErrUpstreamQuery)
	store.AssertNotCalled(t, "ReplaceAll", mock.Anything, mock.Anything)
}

func TestMirrorSyncService_SyncAllSourceError(t *testing.T) {
	source := new(MockMirrorSource)
	store := new(MockMirrorStore)
	failure := apperrors.UpstreamQueryError("mirrorSnapshot", errors.New("503"))
	source.On("Snapshot", mock.Anything).Return(nil, failure).Once()

	_, err := services.NewMirrorSyncService(source, store).SyncAll(context.Background())

	assert.Equal(t, failure, err)
	store.AssertNotCalled(t, "ReplaceAll", mock.Anything, mock.Anything)
}

func TestMirrorSyncService_SyncDocument(t *testing.T) {
	t.Run("existing document is upserted", func(t *testing.T) {
		source := new(MockMirrorSource)
		store := new(MockMirrorStore)
		doc := &models.ContentDocument{ID: "post-a", Type: models.DocumentTypePost, Slug: "a"}
		source.On("Document", mock.Anything, "post-a").Return(doc, nil).Once()
		store.On("UpsertDocument", mock.Anything, *doc).Return(nil).Once()

		require.NoError(t, services.NewMirrorSyncService(source, store).SyncDocument(context.Background(), "post-a"))
		store.AssertExpectations(t)
	})

	t.Run("missing document is deleted", func(t *testing.T) {
		source := new(MockMirrorSource)
		store := new(MockMirrorStore)
		source.On("Document", mock.Anything, "post-gone").Return(nil, nil).Once()
		store.On("DeleteDocument", mock.Anything, "post-gone").Return(nil).Once()

		require.NoError(t, services.NewMirrorSyncService(source, store).SyncDocument(context.Background(), "post-gone"))
		store.AssertExpectations(t)
	})

	t.Run("unmirrored type is skipped", func(t *testing.T) {
		source := new(MockMirrorSource)
		store := new(MockMirrorStore)
		source.On("Document", mock.Anything, "img-1").
			Return(&models.ContentDocument{ID: "img-1", Type: "sanity.imageAsset"}, nil).Once()

		require.NoError(t, services.NewMirrorSyncService(source, store).SyncDocument(context.Background(), "img-1"))
		store.AssertNotCalled(t, "UpsertDocument", mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "DeleteDocument", mock.Anything, mock.Anything)
	})

	t.Run("store failure is an upstream error", func(t *testing.T) {
		source := new(MockMirrorSource)
		store := new(MockMirrorStore)
		source.On("Document", mock.Anything, "post-gone").Return(nil, nil).Once()
		store.On("DeleteDocument", mock.Anything, "post-gone").Return(errors.New("pool closed")).Once()

		err := services.NewMirrorSyncService(source, store).SyncDocument(context.Background(), "post-gone")
		assert.ErrorIs(t, err, apperrors.ErrUpstreamQuery)
		assert.ErrorContains(t, err, "pool closed")
	})
}

func TestWebhookService_MirrorFollowsContentChanges(t *testing.T) {
	t.Run("post deleted in the CMS leaves the mirror", func(t *testing.T) {
		mirrorRepo := repository.NewMemoryContentRepository(
			post("post-gone", "gone", day(4), ""),
			post("post-a", "a", day(3), ""),
			post("post-b", "b", day(2), ""),
		)
		source := new(MockMirrorSource)
		source.On("Document", mock.Anything, "post-gone").Return(nil, nil).Once()

		revalidator := new(MockRevalidator)
		revalidator.On("Revalidate", mock.Anything, "dlv-1", []string{"/", "/posts/a", "/posts/b", "/posts/gone"}).Return(nil).Once()

		service := services.NewWebhookService(services.NewStaleRouteResolver(mirrorRepo), revalidator,
			services.WebhookConfig{Secret: testSecret}).
			WithMirror(services.NewMirrorSyncService(source, memoryMirror{repo: mirrorRepo}))

		body, header := signed(`{"_type":"post","_id":"post-gone","slug":{"current":"gone"},"date":"2024-03-05T12:00:00Z"}`)
		_, err := service.HandleContentWebhook(context.Background(), "dlv-1", body, header)

		require.NoError(t, err)
		exists, _ := mirrorRepo.DocumentExists(context.Background(), "post-gone")
		assert.False(t, exists)
		revalidator.AssertExpectations(t)
	})

	t.Run("post created in the CMS reaches the mirror", func(t *testing.T) {
		mirrorRepo := repository.NewMemoryContentRepository(
			post("post-a", "a", day(3), ""),
			post("post-b", "b", day(2), ""),
			post("post-c", "c", day(1), ""),
		)
		source := new(MockMirrorSource)
		source.On("Document", mock.Anything, "post-n").Return(&models.ContentDocument{
			ID:        "post-n",
			Type:      models.DocumentTypePost,
			Slug:      "n",
			Date:      day(0),
			UpdatedAt: baseDate,
		}, nil).Once()

		revalidator := new(MockRevalidator)
		revalidator.On("Revalidate", mock.Anything, "dlv-2", []string{"/", "/posts/n"}).Return(nil).Once()

		service := services.NewWebhookService(services.NewStaleRouteResolver(mirrorRepo), revalidator,
			services.WebhookConfig{Secret: testSecret}).
			WithMirror(services.NewMirrorSyncService(source, memoryMirror{repo: mirrorRepo}))

		body, header := signed(`{"_type":"post","_id":"post-n"}`)
		_, err := service.HandleContentWebhook(context.Background(), "dlv-2", body, header)

		require.NoError(t, err)
		revalidator.AssertExpectations(t)
	})
}

func TestWebhookService_MirrorFailureAbortsResolution(t *testing.T) {
	resolver := new(MockResolver)
	revalidator := new(MockRevalidator)
	mirror := new(MockDocumentSyncer)
	failure := apperrors.UpstreamQueryError("mirrorDocument", errors.New("503"))
	mirror.On("SyncDocument", mock.Anything, "post-a").Return(failure).Once()

	service := services.NewWebhookService(resolver, revalidator, services.WebhookConfig{Secret: testSecret}).
		WithMirror(mirror)

	body, header := signed(`{"_type":"post","_id":"post-a"}`)
	_, err := service.HandleContentWebhook(context.Background(), "dlv-1", body, header)

	assert.Equal(t, failure, err)
	resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
	revalidator.AssertNotCalled(t, "Revalidate", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookService_MirrorSkipsUnknownTypes(t *testing.T) {
	mirror := new(MockDocumentSyncer)
	resolver := services.NewStaleRouteResolver(repository.NewMemoryContentRepository())
	service := services.NewWebhookService(resolver, nil, services.WebhookConfig{Secret: testSecret}).
		WithMirror(mirror)

	body, header := signed(`{"_type":"widget","_id":"w-1"}`)
	_, err := service.HandleContentWebhook(context.Background(), "dlv-1", body, header)

	assert.EqualError(t, err, "Unknown type: widget")
	mirror.AssertNotCalled(t, "SyncDocument", mock.Anything, mock.Anything)
}
