package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/solovoro/solovoro-api/pkg/logger"
	"github.com/solovoro/solovoro-api/pkg/metrics"
	"go.uber.org/zap"
)

// recentPosts orders like the listing page: newest first, ties by last update.
const recentPosts = `SELECT slug, date FROM posts ORDER BY date DESC NULLS LAST, updated_at DESC LIMIT $1`

const (
	sqlDocumentExists = `SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)`

	sqlPostSlugByID = `SELECT slug FROM posts WHERE id = $1 AND slug IS NOT NULL AND slug <> ''`

	// Only authors that still exist have posts, as in the CMS query.
	sqlPostSlugsByAuthor = `SELECT p.slug FROM posts p JOIN authors a ON a.id = p.author_id
WHERE p.author_id = $1 AND p.slug IS NOT NULL AND p.slug <> ''
ORDER BY p.date DESC NULLS LAST, p.updated_at DESC`

	sqlRecentPostSlugs = `SELECT slug FROM (` + recentPosts + `) recent WHERE slug IS NOT NULL AND slug <> ''`

	sqlCountRecentPostsNewerThan = `SELECT COUNT(*) FROM (` + recentPosts + `) recent WHERE date > $2`

	sqlAllPostSlugs = `SELECT slug FROM posts WHERE slug IS NOT NULL AND slug <> '' ORDER BY date DESC NULLS LAST, updated_at DESC`
)

// DocumentExists reports whether a document with this id is mirrored.
func (c *Client) DocumentExists(ctx context.Context, id string) (bool, error) {
	start := time.Now()
	operation := "documentExists"

	var exists bool
	err := c.db.QueryRow(ctx, sqlDocumentExists, id).Scan(&exists)

	duration := metrics.MeasureDuration(start)
	if err != nil {
		recordMetrics(operation, "error", duration)
		logger.LogAPICall(ctx, "postgres", operation, "error", duration, zap.Error(err))
		return false, fmt.Errorf("failed to query document: %w", err)
	}

	recordMetrics(operation, "success", duration)
	return exists, nil
}

// PostSlugByID returns the slug of a post, or none when it has no slug.
func (c *Client) PostSlugByID(ctx context.Context, id string) ([]string, error) {
	return c.querySlugs(ctx, "postSlugByID", sqlPostSlugByID, id)
}

// PostSlugsByAuthor returns the slugs of every post written by the author.
func (c *Client) PostSlugsByAuthor(ctx context.Context, authorID string) ([]string, error) {
	return c.querySlugs(ctx, "postSlugsByAuthor", sqlPostSlugsByAuthor, authorID)
}

// RecentPostSlugs returns the slugs of the first limit recent posts.
func (c *Client) RecentPostSlugs(ctx context.Context, limit int) ([]string, error) {
	return c.querySlugs(ctx, "recentPostSlugs", sqlRecentPostSlugs, limit)
}

// CountRecentPostsNewerThan counts recent posts dated strictly after date.
func (c *Client) CountRecentPostsNewerThan(ctx context.Context, limit int, date time.Time) (int, error) {
	start := time.Now()
	operation := "countRecentPostsNewerThan"

	var count int
	err := c.db.QueryRow(ctx, sqlCountRecentPostsNewerThan, limit, date.UTC()).Scan(&count)

	duration := metrics.MeasureDuration(start)
	if err != nil {
		recordMetrics(operation, "error", duration)
		logger.LogAPICall(ctx, "postgres", operation, "error", duration, zap.Error(err))
		return 0, fmt.Errorf("failed to count recent posts: %w", err)
	}

	recordMetrics(operation, "success", duration)
	return count, nil
}

// AllPostSlugs returns every post slug.
func (c *Client) AllPostSlugs(ctx context.Context) ([]string, error) {
	return c.querySlugs(ctx, "allPostSlugs", sqlAllPostSlugs)
}

func (c *Client) querySlugs(ctx context.Context, operation, sql string, args ...any) ([]string, error) {
	start := time.Now()

	rows, err := c.db.Query(ctx, sql, args...)
	if err != nil {
		duration := metrics.MeasureDuration(start)
		recordMetrics(operation, "error", duration)
		logger.LogAPICall(ctx, "postgres", operation, "error", duration, zap.Error(err))
		return nil, fmt.Errorf("failed to query %s: %w", operation, err)
	}

	slugs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	duration := metrics.MeasureDuration(start)
	if err != nil {
		recordMetrics(operation, "error", duration)
		logger.LogAPICall(ctx, "postgres", operation, "error", duration, zap.Error(err))
		return nil, fmt.Errorf("failed to scan %s rows: %w", operation, err)
	}

	recordMetrics(operation, "success", duration)
	logger.Debug("postgres query",
		zap.String("operation", operation),
		zap.Int("count", len(slugs)))
	return slugs, nil
}
