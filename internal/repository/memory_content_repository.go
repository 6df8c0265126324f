package repository

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryPost is a post held by MemoryContentRepository.
type MemoryPost struct {
	ID        string
	Slug      string
	Date      *time.Time
	UpdatedAt time.Time
	AuthorID  string
}

// MemoryContentRepository is an in-process content store. It backs
// CONTENT_SOURCE=memory for local development and the resolver tests.
type MemoryContentRepository struct {
	mu        sync.RWMutex
	posts     map[string]MemoryPost
	documents map[string]struct{}
}

// NewMemoryContentRepository creates a store seeded with posts. Every post
// and every non-empty AuthorID is registered as an existing document.
func NewMemoryContentRepository(posts ...MemoryPost) *MemoryContentRepository {
	r := &MemoryContentRepository{
		posts:     make(map[string]MemoryPost),
		documents: make(map[string]struct{}),
	}
	for _, p := range posts {
		r.PutPost(p)
	}
	return r
}

// PutPost inserts or replaces a post.
func (r *MemoryContentRepository) PutPost(p MemoryPost) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts[p.ID] = p
	r.documents[p.ID] = struct{}{}
	if p.AuthorID != "" {
		r.documents[p.AuthorID] = struct{}{}
	}
}

// PutDocument registers a non-post document such as an author or settings.
func (r *MemoryContentRepository) PutDocument(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.documents[id] = struct{}{}
}

// Delete removes any document with this id.
func (r *MemoryContentRepository) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.posts, id)
	delete(r.documents, id)
}

func (r *MemoryContentRepository) DocumentExists(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.documents[id]
	return ok, nil
}

func (r *MemoryContentRepository) PostSlugByID(_ context.Context, id string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.posts[id]
	if !ok || p.Slug == "" {
		return []string{}, nil
	}
	return []string{p.Slug}, nil
}

// PostSlugsByAuthor returns nothing once the author document is gone, even
// if posts still reference it.
func (r *MemoryContentRepository) PostSlugsByAuthor(_ context.Context, authorID string) ([]string, error) {
	slugs := []string{}

	r.mu.RLock()
	_, authorExists := r.documents[authorID]
	r.mu.RUnlock()
	if !authorExists {
		return slugs, nil
	}

	for _, p := range r.recent() {
		if p.AuthorID == authorID && p.Slug != "" {
			slugs = append(slugs, p.Slug)
		}
	}
	return slugs, nil
}

func (r *MemoryContentRepository) RecentPostSlugs(_ context.Context, limit int) ([]string, error) {
	slugs := []string{}
	for _, p := range head(r.recent(), limit) {
		if p.Slug != "" {
			slugs = append(slugs, p.Slug)
		}
	}
	return slugs, nil
}

func (r *MemoryContentRepository) CountRecentPostsNewerThan(_ context.Context, limit int, date time.Time) (int, error) {
	n := 0
	for _, p := range head(r.recent(), limit) {
		if p.Date != nil && p.Date.After(date) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryContentRepository) AllPostSlugs(_ context.Context) ([]string, error) {
	slugs := []string{}
	for _, p := range r.recent() {
		if p.Slug != "" {
			slugs = append(slugs, p.Slug)
		}
	}
	return slugs, nil
}

// recent returns posts ordered by (date desc, updated desc). Undated posts
// sort last, ids break remaining ties so results are stable.
func (r *MemoryContentRepository) recent() []MemoryPost {
	r.mu.RLock()
	posts := make([]MemoryPost, 0, len(r.posts))
	for _, p := range r.posts {
		posts = append(posts, p)
	}
	r.mu.RUnlock()

	sort.Slice(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		switch {
		case a.Date != nil && b.Date == nil:
			return true
		case a.Date == nil && b.Date != nil:
			return false
		case a.Date != nil && !a.Date.Equal(*b.Date):
			return a.Date.After(*b.Date)
		case !a.UpdatedAt.Equal(b.UpdatedAt):
			return a.UpdatedAt.After(b.UpdatedAt)
		default:
			return a.ID < b.ID
		}
	})
	return posts
}

func head(posts []MemoryPost, limit int) []MemoryPost {
	if limit < 0 {
		limit = 0
	}
	if limit < len(posts) {
		return posts[:limit]
	}
	return posts
}

var _ ContentRepositoryInterface = (*MemoryContentRepository)(nil)
