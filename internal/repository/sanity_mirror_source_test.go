package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/solovoro/solovoro-api/internal/models"
	apperrors "github.com/solovoro/solovoro-api/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanityMirrorSource_Snapshot(t *testing.T) {
	f := &fakeGROQ{results: map[string]string{"mirrorSnapshot": `[
		{"_id":"post-a","_type":"post","_updatedAt":"2024-01-05T10:00:00Z","title":"A","date":"2024-01-04","slug":"a","authorId":"author-x"},
		{"_id":"author-x","_type":"author","_updatedAt":"2024-01-01T00:00:00Z","name":"Ada","slug":null,"authorId":null},
		{"_id":"","_type":"post"}
	]`}}

	snapshot, err := NewSanityMirrorSource(f).Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshot.Documents, 2)

	post := snapshot.Documents[0]
	assert.Equal(t, models.DocumentTypePost, post.Type)
	assert.Equal(t, "a", post.Slug)
	assert.Equal(t, "author-x", post.AuthorID)
	require.NotNil(t, post.Date)
	assert.Equal(t, time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), *post.Date)
	assert.Equal(t, time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC), post.UpdatedAt)

	author := snapshot.Documents[1]
	assert.Equal(t, models.DocumentTypeAuthor, author.Type)
	assert.Equal(t, "Ada", author.Name)
	assert.Nil(t, author.Date)
	assert.Nil(t, f.calls[0].params)
}

func TestSanityMirrorSource_Document(t *testing.T) {
	f := &fakeGROQ{results: map[string]string{"mirrorDocument": `{"_id":"post-a","_type":"post","slug":"a"}`}}
	source := NewSanityMirrorSource(f)

	doc, err := source.Document(context.Background(), "post-a")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "a", doc.Slug)
	assert.Equal(t, map[string]any{"id": "post-a"}, f.calls[0].params)

	f.results["mirrorDocument"] = `null`
	doc, err = source.Document(context.Background(), "post-a")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestSanityMirrorSource_QueryError(t *testing.T) {
	source := NewSanityMirrorSource(&fakeGROQ{err: errors.New("503")})

	_, err := source.Document(context.Background(), "post-a")
	assert.ErrorIs(t, err, apperrors.ErrUpstreamQuery)

	_, err = source.Snapshot(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrUpstreamQuery)
}
