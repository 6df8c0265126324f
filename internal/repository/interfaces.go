package repository

import (
	"context"
	"time"

	"github.com/solovoro/solovoro-api/internal/models"
)

// ContentRepositoryInterface is the read side of the content store that the
// stale-route resolver needs. Implementations exist for the Sanity HTTP API,
// a Postgres mirror and an in-memory fake.
//
// "Recent" always means ordered by (date desc, last modified desc).
type ContentRepositoryInterface interface {
	// DocumentExists reports whether any document with this id is published.
	DocumentExists(ctx context.Context, id string) (bool, error)

	// PostSlugByID returns the slug of the post with this id, or none.
	PostSlugByID(ctx context.Context, id string) ([]string, error)

	// PostSlugsByAuthor returns the slugs of every post referencing the author.
	PostSlugsByAuthor(ctx context.Context, authorID string) ([]string, error)

	// RecentPostSlugs returns the slugs of the first limit recent posts.
	RecentPostSlugs(ctx context.Context, limit int) ([]string, error)

	// CountRecentPostsNewerThan counts, among the first limit recent posts,
	// those dated strictly after date.
	CountRecentPostsNewerThan(ctx context.Context, limit int, date time.Time) (int, error)

	// AllPostSlugs returns the slug of every post.
	AllPostSlugs(ctx context.Context) ([]string, error)
}

// ProviderCatalogSource loads the provider catalog served by /api/discover.
type ProviderCatalogSource interface {
	LoadCatalog(ctx context.Context) (*models.ProviderCatalog, error)
	// Name identifies the source in logs and metrics.
	Name() string
}

// ContentMirrorSource reads CMS documents for the Postgres mirror.
type ContentMirrorSource interface {
	// Snapshot returns every mirrored document in the dataset.
	Snapshot(ctx context.Context) (*models.ContentSnapshot, error)
	// Document returns one document, or nil when it no longer exists.
	Document(ctx context.Context, id string) (*models.ContentDocument, error)
}

// ContentMirrorStore writes the Postgres mirror.
type ContentMirrorStore interface {
	UpsertDocument(ctx context.Context, doc models.ContentDocument) error
	DeleteDocument(ctx context.Context, id string) error
	// ReplaceAll upserts snapshot and deletes everything it does not contain.
	ReplaceAll(ctx context.Context, snapshot *models.ContentSnapshot) (int64, error)
}
