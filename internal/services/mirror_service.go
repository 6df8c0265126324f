package services

import (
	"context"
	"sync"
	"time"

	"github.com/solovoro/solovoro-api/internal/models"
	"github.com/solovoro/solovoro-api/internal/repository"
	apperrors "github.com/solovoro/solovoro-api/pkg/errors"
	"github.com/solovoro/solovoro-api/pkg/logger"
	"github.com/solovoro/solovoro-api/pkg/metrics"
	"github.com/solovoro/solovoro-api/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// MirrorSyncService keeps the Postgres content mirror in step with Sanity.
// Full and single-document syncs are serialised, so a full sync never
// overwrites a document synced after its snapshot was read.
type MirrorSyncService struct {
	source repository.ContentMirrorSource
	store  repository.ContentMirrorStore
	mu     sync.Mutex
}

func NewMirrorSyncService(source repository.ContentMirrorSource, store repository.ContentMirrorStore) *MirrorSyncService {
	return &MirrorSyncService{source: source, store: store}
}

// SyncAll replaces the mirror with the current dataset.
func (s *MirrorSyncService) SyncAll(ctx context.Context) (*models.MirrorSyncStats, error) {
	ctx, span := tracing.StartSpan(ctx, "mirror.SyncAll")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.source.Snapshot(ctx)
	if err != nil {
		return nil, s.fail(ctx, "full", err)
	}
	// An empty answer is far more likely a wrong dataset or token than a
	// site with no content, and replacing with it would empty the mirror.
	if len(snapshot.Documents) == 0 {
		return nil, s.fail(ctx, "full", apperrors.UpstreamQueryError("mirrorSnapshot",
			apperrors.InternalError("snapshot is empty")))
	}

	deleted, err := s.store.ReplaceAll(ctx, snapshot)
	if err != nil {
		return nil, s.fail(ctx, "full", apperrors.UpstreamQueryError("mirrorReplaceAll", err))
	}

	stats := &models.MirrorSyncStats{Documents: len(snapshot.Documents), Deleted: deleted}
	for _, doc := range snapshot.Documents {
		switch doc.Type {
		case models.DocumentTypePost:
			stats.Posts++
		case models.DocumentTypeAuthor:
			stats.Authors++
		}
	}

	metrics.MirrorSyncs.WithLabelValues("full", "success").Inc()
	metrics.MirrorLastFullSync.SetToCurrentTime()
	logger.Info("Content mirror synced",
		zap.Int("documents", stats.Documents),
		zap.Int("posts", stats.Posts),
		zap.Int("authors", stats.Authors),
		zap.Int64("deleted", stats.Deleted))

	return stats, nil
}

// SyncDocument applies one document's current state to the mirror: it is
// upserted when it exists and deleted when it does not.
func (s *MirrorSyncService) SyncDocument(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "mirror.SyncDocument",
		attribute.String("document_id", id))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.source.Document(ctx, id)
	if err != nil {
		return s.fail(ctx, "document", err)
	}

	switch {
	case doc == nil:
		err = s.store.DeleteDocument(ctx, id)
	case !doc.Type.Known():
		logger.Debug("Skipping mirror sync for unmirrored type",
			zap.String("document_id", id),
			zap.String("document_type", string(doc.Type)))
		return nil
	default:
		err = s.store.UpsertDocument(ctx, *doc)
	}
	if err != nil {
		return s.fail(ctx, "document", apperrors.UpstreamQueryError("mirrorWrite", err))
	}

	metrics.MirrorSyncs.WithLabelValues("document", "success").Inc()
	logger.Debug("Mirrored document",
		zap.String("document_id", id),
		zap.Bool("deleted", doc == nil))
	return nil
}

// Run performs a full sync every interval until ctx is done. Failures are
// logged and retried on the next tick.
func (s *MirrorSyncService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.SyncAll(ctx)
		}
	}
}

func (s *MirrorSyncService) fail(ctx context.Context, mode string, err error) error {
	metrics.MirrorSyncs.WithLabelValues(mode, "error").Inc()
	logger.LogError(ctx, err, "Content mirror sync failed", zap.String("mode", mode))
	return err
}
