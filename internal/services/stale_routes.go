package services

import (
	"context"

	"github.com/solovoro/solovoro-api/internal/models"
	"github.com/solovoro/solovoro-api/internal/repository"
	apperrors "github.com/solovoro/solovoro-api/pkg/errors"
	"github.com/solovoro/solovoro-api/pkg/logger"
	"github.com/solovoro/solovoro-api/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// moreStoriesWindow is how many recent posts the listing page's "more
// stories" rail shows.
const moreStoriesWindow = 3

// StaleRouteResolver maps a content change to the public routes whose
// rendered output it invalidates. It holds no state between calls.
type StaleRouteResolver struct {
	content repository.ContentRepositoryInterface
}

// NewStaleRouteResolver creates a resolver over the given content store.
func NewStaleRouteResolver(content repository.ContentRepositoryInterface) *StaleRouteResolver {
	return &StaleRouteResolver{content: content}
}

// Resolve returns the deduplicated set of stale routes. Any content store
// failure aborts the whole resolution.
func (r *StaleRouteResolver) Resolve(ctx context.Context, n models.ChangeNotification) (models.StaleRouteSet, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Resolve",
		attribute.String("document.type", string(n.DocumentType)),
		attribute.String("document.id", n.DocumentID))
	defer span.End()

	routes, err := r.resolve(ctx, n)
	if err != nil {
		tracing.RecordError(span, err)
		return models.StaleRouteSet{}, err
	}

	span.SetAttributes(attribute.Int("routes.count", routes.Len()))
	logger.Debug("Resolved stale routes",
		zap.String("document_type", string(n.DocumentType)),
		zap.String("document_id", n.DocumentID),
		zap.Strings("routes", routes.Paths()))
	return routes, nil
}

func (r *StaleRouteResolver) resolve(ctx context.Context, n models.ChangeNotification) (models.StaleRouteSet, error) {
	if n.DocumentType == models.DocumentTypePost {
		exists, err := r.content.DocumentExists(ctx, n.DocumentID)
		if err != nil {
			return models.StaleRouteSet{}, upstream("documentExists", err)
		}
		if !exists {
			return r.resolveDeletedPost(ctx, n)
		}
	}

	switch n.DocumentType {
	case models.DocumentTypeAuthor:
		return r.resolveAuthor(ctx, n.DocumentID)
	case models.DocumentTypePost:
		return r.resolvePost(ctx, n.DocumentID)
	case models.DocumentTypeSettings:
		return r.allRoutes(ctx)
	default:
		return models.StaleRouteSet{}, apperrors.UnknownDocumentTypeError(string(n.DocumentType))
	}
}

// resolveDeletedPost handles a post that no longer exists. If fewer than
// moreStoriesWindow recent posts are newer than it, the post may have been
// showing in the rail, so every route is stale.
func (r *StaleRouteResolver) resolveDeletedPost(ctx context.Context, n models.ChangeNotification) (models.StaleRouteSet, error) {
	stale := models.NewStaleRouteSet(models.HomeRoute())
	stale.AddPostSlugs(n.Slug)

	newer, err := r.content.CountRecentPostsNewerThan(ctx, moreStoriesWindow, n.DateOrEpoch())
	if err != nil {
		return models.StaleRouteSet{}, upstream("countRecentPostsNewerThan", err)
	}
	if newer >= moreStoriesWindow {
		return stale, nil
	}

	all, err := r.allRoutes(ctx)
	if err != nil {
		return models.StaleRouteSet{}, err
	}
	all.Merge(stale)
	return all, nil
}

// resolveAuthor returns nothing when the author has no posts.
func (r *StaleRouteResolver) resolveAuthor(ctx context.Context, authorID string) (models.StaleRouteSet, error) {
	slugs, err := r.content.PostSlugsByAuthor(ctx, authorID)
	if err != nil {
		return models.StaleRouteSet{}, upstream("postSlugsByAuthor", err)
	}
	if len(slugs) == 0 {
		return models.StaleRouteSet{}, nil
	}
	return r.homeAndPosts(ctx, slugs)
}

func (r *StaleRouteResolver) resolvePost(ctx context.Context, postID string) (models.StaleRouteSet, error) {
	slugs, err := r.content.PostSlugByID(ctx, postID)
	if err != nil {
		return models.StaleRouteSet{}, upstream("postSlugByID", err)
	}
	return r.homeAndPosts(ctx, slugs)
}

func (r *StaleRouteResolver) homeAndPosts(ctx context.Context, slugs []string) (models.StaleRouteSet, error) {
	slugs, err := r.mergeWithMoreStories(ctx, slugs)
	if err != nil {
		return models.StaleRouteSet{}, err
	}
	set := models.NewStaleRouteSet(models.HomeRoute())
	set.AddPostSlugs(slugs...)
	return set, nil
}

// mergeWithMoreStories widens slugs to every post when any of them is in
// the "more stories" rail, since the rail is embedded in every post page.
func (r *StaleRouteResolver) mergeWithMoreStories(ctx context.Context, slugs []string) ([]string, error) {
	recent, err := r.content.RecentPostSlugs(ctx, moreStoriesWindow)
	if err != nil {
		return nil, upstream("recentPostSlugs", err)
	}
	if !intersects(slugs, recent) {
		return slugs, nil
	}

	all, err := r.content.AllPostSlugs(ctx)
	if err != nil {
		return nil, upstream("allPostSlugs", err)
	}
	return append(append([]string{}, slugs...), all...), nil
}

func (r *StaleRouteResolver) allRoutes(ctx context.Context) (models.StaleRouteSet, error) {
	slugs, err := r.content.AllPostSlugs(ctx)
	if err != nil {
		return models.StaleRouteSet{}, upstream("allPostSlugs", err)
	}
	set := models.NewStaleRouteSet(models.HomeRoute())
	set.AddPostSlugs(slugs...)
	return set, nil
}

func intersects(a, b []string) bool {
	seen := make(map[string]struct{}, len(b))
	for _, s := range b {
		seen[s] = struct{}{}
	}
	for _, s := range a {
		if _, ok := seen[s]; ok {
			return true
		}
	}
	return false
}

// upstream tags err as a content store failure unless a repository already did.
func upstream(operation string, err error) error {
	if apperrors.Is(err, apperrors.ErrUpstreamQuery) {
		return err
	}
	return apperrors.UpstreamQueryError(operation, err)
}

var _ StaleRouteResolverInterface = (*StaleRouteResolver)(nil)
