package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"indieconverters/internal/domain"
)

type AuthorRepo struct{ db *sqlx.DB }

func NewAuthorRepo(db *sqlx.DB) *AuthorRepo { return &AuthorRepo{db: db} }

const authorColumns = `id, slug, display_name, COALESCE(short_bio,'') AS short_bio,
	COALESCE(long_bio,'') AS long_bio, COALESCE(photo_url,'') AS photo_url`

func (r *AuthorRepo) List(ctx context.Context) ([]domain.Author, error) {
	out := []domain.Author{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+authorColumns+` FROM authors ORDER BY display_name`)
	return out, err
}

func (r *AuthorRepo) BySlug(ctx context.Context, slug string) (domain.Author, error) {
	var a domain.Author
	err := r.db.GetContext(ctx, &a, `SELECT `+authorColumns+` FROM authors WHERE slug = ?`, slug)
	return a, err
}

func (r *AuthorRepo) Search(ctx context.Context, q string, limit int) ([]domain.Author, error) {
	out := []domain.Author{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+authorColumns+` FROM authors
		WHERE LOWER(display_name) LIKE LOWER(?)
		ORDER BY display_name
		LIMIT ?
	`, "%"+q+"%", limit)
	return out, err
}

// ForBook lists a book's authors in credit order.
func (r *AuthorRepo) ForBook(ctx context.Context, bookID string) ([]domain.Author, error) {
	out := []domain.Author{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT a.id, a.slug, a.display_name, COALESCE(a.short_bio,'') AS short_bio,
		       COALESCE(a.long_bio,'') AS long_bio, COALESCE(a.photo_url,'') AS photo_url
		FROM books_authors ba JOIN authors a ON a.id = ba.author_id
		WHERE ba.book_id = ?
		ORDER BY ba.position
	`, bookID)
	return out, err
}
