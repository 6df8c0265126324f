package repository

import (
	"context"
	"time"

	apperrors "github.com/solovoro/solovoro-api/pkg/errors"
)

// GROQ queries. Ordering matches the listing page's "more stories" rail.
const (
	queryDocumentByID = `*[_id == $id][0]{_id}`

	queryPostSlugByID = `*[_type == "post" && _id == $id].slug.current`

	queryPostSlugsByAuthor = `*[_type == "author" && _id == $id] {
  "slug": *[_type == "post" && references(^._id)].slug.current
}["slug"][]`

	queryRecentPostSlugs = `*[_type == "post"] | order(date desc, _updatedAt desc) [0...$limit].slug.current`

	queryCountRecentPostsNewerThan = `count(
  *[_type == "post"] | order(date desc, _updatedAt desc) [0...$limit] [dateTime(date) > dateTime($date)]
)`

	queryAllPostSlugs = `*[_type == "post" && defined(slug.current)].slug.current`
)

// GROQQuerier runs a GROQ query and decodes its result. Satisfied by
// *sanity.Client.
type GROQQuerier interface {
	Query(ctx context.Context, operation, query string, params map[string]any, out any) error
}

// SanityContentRepository reads content straight from the Sanity dataset.
type SanityContentRepository struct {
	client GROQQuerier
}

// NewSanityContentRepository creates a new Sanity-backed content repository
func NewSanityContentRepository(client GROQQuerier) *SanityContentRepository {
	return &SanityContentRepository{client: client}
}

func (r *SanityContentRepository) DocumentExists(ctx context.Context, id string) (bool, error) {
	var doc *struct {
		ID string `json:"_id"`
	}
	if err := r.client.Query(ctx, "documentExists", queryDocumentByID, map[string]any{"id": id}, &doc); err != nil {
		return false, apperrors.UpstreamQueryError("documentExists", err)
	}
	return doc != nil, nil
}

func (r *SanityContentRepository) PostSlugByID(ctx context.Context, id string) ([]string, error) {
	return r.slugs(ctx, "postSlugByID", queryPostSlugByID, map[string]any{"id": id})
}

func (r *SanityContentRepository) PostSlugsByAuthor(ctx context.Context, authorID string) ([]string, error) {
	return r.slugs(ctx, "postSlugsByAuthor", queryPostSlugsByAuthor, map[string]any{"id": authorID})
}

func (r *SanityContentRepository) RecentPostSlugs(ctx context.Context, limit int) ([]string, error) {
	return r.slugs(ctx, "recentPostSlugs", queryRecentPostSlugs, map[string]any{"limit": limit})
}

func (r *SanityContentRepository) CountRecentPostsNewerThan(ctx context.Context, limit int, date time.Time) (int, error) {
	var n int
	params := map[string]any{
		"limit": limit,
		"date":  date.UTC().Format(time.RFC3339Nano),
	}
	if err := r.client.Query(ctx, "countRecentPostsNewerThan", queryCountRecentPostsNewerThan, params, &n); err != nil {
		return 0, apperrors.UpstreamQueryError("countRecentPostsNewerThan", err)
	}
	return n, nil
}

func (r *SanityContentRepository) AllPostSlugs(ctx context.Context) ([]string, error) {
	return r.slugs(ctx, "allPostSlugs", queryAllPostSlugs, nil)
}

// slugs drops null entries, which GROQ returns for posts without a slug.
func (r *SanityContentRepository) slugs(ctx context.Context, operation, query string, params map[string]any) ([]string, error) {
	var raw []*string
	if err := r.client.Query(ctx, operation, query, params, &raw); err != nil {
		return nil, apperrors.UpstreamQueryError(operation, err)
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != nil && *s != "" {
			out = append(out, *s)
		}
	}
	return out, nil
}

var _ ContentRepositoryInterface = (*SanityContentRepository)(nil)
