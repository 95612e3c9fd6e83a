package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"indieconverters/internal/domain"
)

type GenreRepo struct{ db *sqlx.DB }

func NewGenreRepo(db *sqlx.DB) *GenreRepo { return &GenreRepo{db: db} }

func (r *GenreRepo) List(ctx context.Context) ([]domain.Genre, error) {
	out := []domain.Genre{}
	err := r.db.SelectContext(ctx, &out, `SELECT id, slug, label FROM genres ORDER BY label`)
	return out, err
}

// Search matches label or slug as a case-insensitive substring.
func (r *GenreRepo) Search(ctx context.Context, q string, limit int) ([]domain.Genre, error) {
	like := "%" + q + "%"
	out := []domain.Genre{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, slug, label FROM genres
		WHERE LOWER(label) LIKE LOWER(?) OR LOWER(slug) LIKE LOWER(?)
		ORDER BY label
		LIMIT ?
	`, like, like, limit)
	return out, err
}

// ForBook lists a book's genres.
func (r *GenreRepo) ForBook(ctx context.Context, bookID string) ([]domain.Genre, error) {
	out := []domain.Genre{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT g.id, g.slug, g.label
		FROM books_genres bg JOIN genres g ON g.id = bg.genre_id
		WHERE bg.book_id = ?
		ORDER BY g.label
	`, bookID)
	return out, err
}
