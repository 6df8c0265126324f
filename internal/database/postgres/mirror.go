package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/solovoro/solovoro-api/internal/models"
	"github.com/solovoro/solovoro-api/pkg/logger"
	"github.com/solovoro/solovoro-api/pkg/metrics"
	"go.uber.org/zap"
)

const (
	sqlUpsertDocument = `INSERT INTO documents (id, doc_type, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET doc_type = EXCLUDED.doc_type, updated_at = EXCLUDED.updated_at`

	sqlUpsertAuthor = `INSERT INTO authors (id, name, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, updated_at = EXCLUDED.updated_at`

	sqlUpsertPost = `INSERT INTO posts (id, slug, title, date, author_id, updated_at)
VALUES ($1, NULLIF($2, ''), $3, $4, NULLIF($5, ''), $6)
ON CONFLICT (id) DO UPDATE SET
    slug = EXCLUDED.slug,
    title = EXCLUDED.title,
    date = EXCLUDED.date,
    author_id = EXCLUDED.author_id,
    updated_at = EXCLUDED.updated_at`

	sqlDeletePost     = `DELETE FROM posts WHERE id = $1`
	sqlDeleteAuthor   = `DELETE FROM authors WHERE id = $1`
	sqlDeleteDocument = `DELETE FROM documents WHERE id = $1`

	// posts and authors rows go with their document (ON DELETE CASCADE)
	sqlDeleteDocumentsNotIn = `DELETE FROM documents WHERE NOT (id = ANY($1))`
)

// UpsertDocument writes one document and its post or author row.
func (c *Client) UpsertDocument(ctx context.Context, doc models.ContentDocument) error {
	return c.inTx(ctx, "upsertDocument", func(tx pgx.Tx) error {
		return applyDocument(ctx, tx, doc)
	}, zap.String("document_id", doc.ID), zap.String("document_type", string(doc.Type)))
}

// DeleteDocument removes a document from the mirror. Deleting an id that
// is not mirrored is not an error.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	return c.inTx(ctx, "deleteDocument", func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, sqlDeleteDocument, id); err != nil {
			return fmt.Errorf("failed to delete document: %w", err)
		}
		return nil
	}, zap.String("document_id", id))
}

// ReplaceAll makes the mirror match snapshot: every document is upserted and
// every mirrored id missing from snapshot is deleted, in one transaction.
func (c *Client) ReplaceAll(ctx context.Context, snapshot *models.ContentSnapshot) (int64, error) {
	var deleted int64
	err := c.inTx(ctx, "replaceAll", func(tx pgx.Tx) error {
		ids := make([]string, 0, len(snapshot.Documents))
		for _, doc := range snapshot.Documents {
			if err := applyDocument(ctx, tx, doc); err != nil {
				return err
			}
			ids = append(ids, doc.ID)
		}

		tag, err := tx.Exec(ctx, sqlDeleteDocumentsNotIn, ids)
		if err != nil {
			return fmt.Errorf("failed to delete removed documents: %w", err)
		}
		deleted = tag.RowsAffected()
		return nil
	}, zap.Int("documents", len(snapshot.Documents)))
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (c *Client) inTx(ctx context.Context, operation string, fn func(tx pgx.Tx) error, fields ...zap.Field) error {
	start := time.Now()

	err := c.runTx(ctx, fn)

	duration := metrics.MeasureDuration(start)
	if err != nil {
		recordMetrics(operation, "error", duration)
		logger.LogAPICall(ctx, "postgres", operation, "error", duration, append(fields, zap.Error(err))...)
		return err
	}
	recordMetrics(operation, "success", duration)
	logger.LogAPICall(ctx, "postgres", operation, "success", duration, fields...)
	return nil
}

func (c *Client) runTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := c.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// applyDocument upserts doc and drops rows left over from a previous type.
func applyDocument(ctx context.Context, tx pgx.Tx, doc models.ContentDocument) error {
	updatedAt := doc.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	updatedAt = updatedAt.UTC()

	if _, err := tx.Exec(ctx, sqlUpsertDocument, doc.ID, string(doc.Type), updatedAt); err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", doc.ID, err)
	}

	switch doc.Type {
	case models.DocumentTypePost:
		var date *time.Time
		if doc.Date != nil {
			d := doc.Date.UTC()
			date = &d
		}
		if _, err := tx.Exec(ctx, sqlUpsertPost, doc.ID, doc.Slug, doc.Title, date, doc.AuthorID, updatedAt); err != nil {
			return fmt.Errorf("failed to upsert post %s: %w", doc.ID, err)
		}
		if _, err := tx.Exec(ctx, sqlDeleteAuthor, doc.ID); err != nil {
			return fmt.Errorf("failed to clear author row %s: %w", doc.ID, err)
		}

	case models.DocumentTypeAuthor:
		if _, err := tx.Exec(ctx, sqlUpsertAuthor, doc.ID, doc.Name, updatedAt); err != nil {
			return fmt.Errorf("failed to upsert author %s: %w", doc.ID, err)
		}
		if _, err := tx.Exec(ctx, sqlDeletePost, doc.ID); err != nil {
			return fmt.Errorf("failed to clear post row %s: %w", doc.ID, err)
		}

	default:
		if _, err := tx.Exec(ctx, sqlDeletePost, doc.ID); err != nil {
			return fmt.Errorf("failed to clear post row %s: %w", doc.ID, err)
		}
		if _, err := tx.Exec(ctx, sqlDeleteAuthor, doc.ID); err != nil {
			return fmt.Errorf("failed to clear author row %s: %w", doc.ID, err)
		}
	}
	return nil
}
