package repository

import (
	"context"
	"time"

	"github.com/solovoro/solovoro-api/internal/database/postgres"
	apperrors "github.com/solovoro/solovoro-api/pkg/errors"
)

// PostgresContentRepository implements ContentRepositoryInterface over the
// Postgres content mirror.
type PostgresContentRepository struct {
	client *postgres.Client
}

// NewPostgresContentRepository creates a new PostgreSQL content repository
func NewPostgresContentRepository(client *postgres.Client) *PostgresContentRepository {
	return &PostgresContentRepository{client: client}
}

func (r *PostgresContentRepository) DocumentExists(ctx context.Context, id string) (bool, error) {
	exists, err := r.client.DocumentExists(ctx, id)
	if err != nil {
		return false, apperrors.UpstreamQueryError("documentExists", err)
	}
	return exists, nil
}

func (r *PostgresContentRepository) PostSlugByID(ctx context.Context, id string) ([]string, error) {
	slugs, err := r.client.PostSlugByID(ctx, id)
	if err != nil {
		return nil, apperrors.UpstreamQueryError("postSlugByID", err)
	}
	return slugs, nil
}

func (r *PostgresContentRepository) PostSlugsByAuthor(ctx context.Context, authorID string) ([]string, error) {
	slugs, err := r.client.PostSlugsByAuthor(ctx, authorID)
	if err != nil {
		return nil, apperrors.UpstreamQueryError("postSlugsByAuthor", err)
	}
	return slugs, nil
}

func (r *PostgresContentRepository) RecentPostSlugs(ctx context.Context, limit int) ([]string, error) {
	slugs, err := r.client.RecentPostSlugs(ctx, limit)
	if err != nil {
		return nil, apperrors.UpstreamQueryError("recentPostSlugs", err)
	}
	return slugs, nil
}

func (r *PostgresContentRepository) CountRecentPostsNewerThan(ctx context.Context, limit int, date time.Time) (int, error) {
	n, err := r.client.CountRecentPostsNewerThan(ctx, limit, date)
	if err != nil {
		return 0, apperrors.UpstreamQueryError("countRecentPostsNewerThan", err)
	}
	return n, nil
}

func (r *PostgresContentRepository) AllPostSlugs(ctx context.Context) ([]string, error) {
	slugs, err := r.client.AllPostSlugs(ctx)
	if err != nil {
		return nil, apperrors.UpstreamQueryError("allPostSlugs", err)
	}
	return slugs, nil
}

var _ ContentRepositoryInterface = (*PostgresContentRepository)(nil)

var _ ContentMirrorStore = (*postgres.Client)(nil)
