package repository

import (
	"context"
	"strings"
	"time"

	"github.com/solovoro/solovoro-api/internal/models"
	apperrors "github.com/solovoro/solovoro-api/pkg/errors"
)

// Only the types the stale-route resolver reads are mirrored.
const (
	mirrorProjection = `{
  _id, _type, _updatedAt, name, title, date,
  "slug": slug.current,
  "authorId": author._ref
}`

	queryMirrorSnapshot = `*[_type in ["post", "author", "settings"]]` + mirrorProjection

	queryMirrorDocument = `*[_id == $id][0]` + mirrorProjection
)

type mirrorDocument struct {
	ID        string  `json:"_id"`
	Type      string  `json:"_type"`
	UpdatedAt string  `json:"_updatedAt"`
	Name      string  `json:"name"`
	Title     string  `json:"title"`
	Date      *string `json:"date"`
	Slug      string  `json:"slug"`
	AuthorID  string  `json:"authorId"`
}

// SanityMirrorSource reads documents for the Postgres mirror from Sanity.
type SanityMirrorSource struct {
	client GROQQuerier
}

// NewSanityMirrorSource creates a mirror source over a GROQ client.
func NewSanityMirrorSource(client GROQQuerier) *SanityMirrorSource {
	return &SanityMirrorSource{client: client}
}

func (s *SanityMirrorSource) Snapshot(ctx context.Context) (*models.ContentSnapshot, error) {
	var raw []mirrorDocument
	if err := s.client.Query(ctx, "mirrorSnapshot", queryMirrorSnapshot, nil, &raw); err != nil {
		return nil, apperrors.UpstreamQueryError("mirrorSnapshot", err)
	}

	snapshot := &models.ContentSnapshot{Documents: make([]models.ContentDocument, 0, len(raw))}
	for _, d := range raw {
		if d.ID == "" {
			continue
		}
		snapshot.Documents = append(snapshot.Documents, d.toModel())
	}
	return snapshot, nil
}

func (s *SanityMirrorSource) Document(ctx context.Context, id string) (*models.ContentDocument, error) {
	var raw *mirrorDocument
	if err := s.client.Query(ctx, "mirrorDocument", queryMirrorDocument, map[string]any{"id": id}, &raw); err != nil {
		return nil, apperrors.UpstreamQueryError("mirrorDocument", err)
	}
	if raw == nil || raw.ID == "" {
		return nil, nil
	}
	doc := raw.toModel()
	return &doc, nil
}

func (d mirrorDocument) toModel() models.ContentDocument {
	doc := models.ContentDocument{
		ID:       d.ID,
		Type:     models.DocumentType(d.Type),
		Slug:     strings.TrimSpace(d.Slug),
		Title:    d.Title,
		Name:     d.Name,
		AuthorID: d.AuthorID,
	}
	if updated := models.ParseContentDate(d.UpdatedAt); updated != nil {
		doc.UpdatedAt = *updated
	} else {
		doc.UpdatedAt = time.Now().UTC()
	}
	if d.Date != nil {
		doc.Date = models.ParseContentDate(*d.Date)
	}
	return doc
}

var _ ContentMirrorSource = (*SanityMirrorSource)(nil)
