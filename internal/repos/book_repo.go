package repos

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"

	"indieconverters/internal/domain"
)

type BookRepo struct{ db *sqlx.DB }

func NewBookRepo(db *sqlx.DB) *BookRepo { return &BookRepo{db: db} }

const bookColumns = `id, slug, title, COALESCE(subtitle,'') AS subtitle,
	COALESCE(description,'') AS description, COALESCE(cover_url,'') AS cover_url,
	COALESCE(pub_date,'') AS pub_date, formats_json, keywords_json, tags_json,
	is_published, COALESCE(created_at,'') AS created_at`

func (r *BookRepo) ListPublished(ctx context.Context, limit, offset int) ([]domain.Book, error) {
	out := []domain.Book{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+bookColumns+`
		FROM books
		WHERE is_published = 1
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	return out, err
}

func (r *BookRepo) Get(ctx context.Context, id string) (domain.Book, error) {
	var b domain.Book
	err := r.db.GetContext(ctx, &b, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	return b, err
}

func (r *BookRepo) BySlug(ctx context.Context, slug string) (domain.Book, error) {
	var b domain.Book
	err := r.db.GetContext(ctx, &b, `SELECT `+bookColumns+` FROM books WHERE slug = ? AND is_published = 1`, slug)
	return b, err
}

// ByAuthor lists the published books credited to an author.
func (r *BookRepo) ByAuthor(ctx context.Context, authorID string) ([]domain.Book, error) {
	out := []domain.Book{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT b.id, b.slug, b.title, COALESCE(b.subtitle,'') AS subtitle,
		       COALESCE(b.description,'') AS description, COALESCE(b.cover_url,'') AS cover_url,
		       COALESCE(b.pub_date,'') AS pub_date, b.formats_json, b.keywords_json, b.tags_json,
		       b.is_published, COALESCE(b.created_at,'') AS created_at
		FROM books b JOIN books_authors ba ON ba.book_id = b.id
		WHERE ba.author_id = ? AND b.is_published = 1
		ORDER BY b.pub_date DESC
	`, authorID)
	return out, err
}

// BookHit is a search result row with its lead author.
type BookHit struct {
	ID     string `db:"id" json:"id"`
	Slug   string `db:"slug" json:"slug"`
	Title  string `db:"title" json:"title"`
	Author string `db:"author" json:"author"`
}

func (r *BookRepo) Search(ctx context.Context, q string, limit int) ([]BookHit, error) {
	out := []BookHit{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT b.id, b.slug, b.title,
		       COALESCE((SELECT a.display_name FROM books_authors ba
		                 JOIN authors a ON a.id = ba.author_id
		                 WHERE ba.book_id = b.id ORDER BY ba.position LIMIT 1), '') AS author
		FROM books b
		WHERE b.is_published = 1 AND LOWER(b.title) LIKE LOWER(?)
		ORDER BY b.pub_date DESC
		LIMIT ?
	`, "%"+q+"%", limit)
	return out, err
}

// SetTags replaces a book's generated tag list.
func (r *BookRepo) SetTags(ctx context.Context, bookID string, tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE books SET tags_json = ? WHERE id = ?`, string(raw), bookID)
	return affected(res, err)
}
