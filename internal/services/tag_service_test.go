package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indieconverters/internal/repos"
	"indieconverters/internal/services"
	"indieconverters/internal/tagging"
)

func TestRetagWritesTags(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	rules, err := tagging.DefaultRules()
	require.NoError(t, err)
	books := repos.NewBookRepo(db)
	svc := &services.TagService{Books: books, Genres: repos.NewGenreRepo(db), Gen: tagging.NewGenerator(rules)}

	results, err := svc.Retag(ctx, false)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.NoError(t, r.Err)
		assert.NotEmpty(t, r.Tags)
	}

	b, err := books.Get(ctx, "b1")
	require.NoError(t, err)
	tags := b.Tags()
	assert.Contains(t, tags, "format:hardcover")
	assert.Contains(t, tags, "genre:fantasy")
	assert.Contains(t, tags, "series")
	assert.Contains(t, tags, "young-adult")
	assert.IsIncreasing(t, tags)
}

func TestRetagDryRunLeavesBooksAlone(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	rules, err := tagging.DefaultRules()
	require.NoError(t, err)
	books := repos.NewBookRepo(db)
	svc := &services.TagService{Books: books, Genres: repos.NewGenreRepo(db), Gen: tagging.NewGenerator(rules)}

	_, err = svc.Retag(ctx, true)
	require.NoError(t, err)

	b, err := books.Get(ctx, "b2")
	require.NoError(t, err)
	assert.Empty(t, b.Tags())
}
