package repos_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indieconverters/internal/repos"
)

func TestSeededCatalog(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	books, err := repos.NewBookRepo(db).ListPublished(ctx, -1, 0)
	require.NoError(t, err)
	assert.Len(t, books, 3)

	b, err := repos.NewBookRepo(db).BySlug(ctx, "wolf-so-grim")
	require.NoError(t, err)
	assert.Equal(t, []string{"Hardcover", "Paperback", "eBook"}, b.Formats())

	svcs, err := repos.NewServiceRepo(db).ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, svcs, 3)
	assert.Equal(t, "s-edit", svcs[0].ID)
	assert.Equal(t, "499.00", svcs[0].Price.StringFixed(2))

	_, err = repos.NewBookRepo(db).BySlug(ctx, "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestBookSearchCarriesLeadAuthor(t *testing.T) {
	db := openTestDB(t)
	hits, err := repos.NewBookRepo(db).Search(context.Background(), "night", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Jon Ashby", hits[0].Author)
}

func TestSetTags(t *testing.T) {
	db := openTestDB(t)
	books := repos.NewBookRepo(db)
	ctx := context.Background()

	require.NoError(t, books.SetTags(ctx, "b1", []string{"format:ebook", "series"}))
	b, err := books.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, []string{"format:ebook", "series"}, b.Tags())

	assert.ErrorIs(t, books.SetTags(ctx, "missing", nil), sql.ErrNoRows)
}

func TestGenresForBook(t *testing.T) {
	genres, err := repos.NewGenreRepo(openTestDB(t)).ForBook(context.Background(), "b1")
	require.NoError(t, err)
	require.Len(t, genres, 2)
	assert.Equal(t, "Fantasy", genres[0].Label)
	assert.Equal(t, "Young Adult", genres[1].Label)
}
