package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) *time.Time {
	t := time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func seeded() *MemoryContentRepository {
	return NewMemoryContentRepository(
		MemoryPost{ID: "post-c", Slug: "c", Date: day(1), AuthorID: "author-x"},
		MemoryPost{ID: "post-a", Slug: "a", Date: day(4), AuthorID: "author-y"},
		MemoryPost{ID: "post-b", Slug: "b", Date: day(3)},
		MemoryPost{ID: "post-d", Slug: "d", Date: day(2)},
		MemoryPost{ID: "post-draft", Slug: ""},
	)
}

func TestMemoryContentRepository_Recent(t *testing.T) {
	r := seeded()
	ctx := context.Background()

	slugs, err := r.RecentPostSlugs(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "d"}, slugs)

	all, err := r.AllPostSlugs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "d", "c"}, all)
}

func TestMemoryContentRepository_TiesBreakOnUpdatedAt(t *testing.T) {
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewMemoryContentRepository(
		MemoryPost{ID: "1", Slug: "first", Date: day(5), UpdatedAt: older},
		MemoryPost{ID: "2", Slug: "second", Date: day(5), UpdatedAt: older.Add(time.Hour)},
	)

	slugs, err := r.RecentPostSlugs(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, slugs)
}

func TestMemoryContentRepository_CountRecentPostsNewerThan(t *testing.T) {
	r := seeded()
	ctx := context.Background()

	n, err := r.CountRecentPostsNewerThan(ctx, 3, *day(3))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = r.CountRecentPostsNewerThan(ctx, 3, time.Unix(0, 0))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMemoryContentRepository_Documents(t *testing.T) {
	r := seeded()
	ctx := context.Background()

	exists, err := r.DocumentExists(ctx, "author-x")
	require.NoError(t, err)
	assert.True(t, exists)

	r.Delete("post-a")
	exists, err = r.DocumentExists(ctx, "post-a")
	require.NoError(t, err)
	assert.False(t, exists)

	r.PutDocument("settings")
	exists, _ = r.DocumentExists(ctx, "settings")
	assert.True(t, exists)
}

func TestMemoryContentRepository_SlugLookups(t *testing.T) {
	r := seeded()
	ctx := context.Background()

	slugs, err := r.PostSlugByID(ctx, "post-b")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, slugs)

	slugs, err = r.PostSlugByID(ctx, "post-draft")
	require.NoError(t, err)
	assert.Empty(t, slugs)

	slugs, err = r.PostSlugsByAuthor(ctx, "author-x")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, slugs)

	slugs, err = r.PostSlugsByAuthor(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, slugs)

	r.Delete("author-x")
	slugs, err = r.PostSlugsByAuthor(ctx, "author-x")
	require.NoError(t, err)
	assert.Empty(t, slugs, "deleted author keeps no posts")
}
