package services

import (
	"context"
	"fmt"
	"log/slog"

	"indieconverters/internal/repos"
	"indieconverters/internal/tagging"
)

type TagService struct {
	Books  *repos.BookRepo
	Genres *repos.GenreRepo
	Gen    *tagging.Generator
}

type TagResult struct {
	BookID string
	Title  string
	Tags   []string
	Err    error
}

// Retag regenerates the tags of every published book. A failure on one
// book is recorded in its result and does not stop the run.
func (s *TagService) Retag(ctx context.Context, dryRun bool) ([]TagResult, error) {
	books, err := s.Books.ListPublished(ctx, -1, 0)
	if err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}
	out := make([]TagResult, 0, len(books))
	for _, b := range books {
		res := TagResult{BookID: b.ID, Title: b.Title}
		genres, err := s.Genres.ForBook(ctx, b.ID)
		if err != nil {
			res.Err = err
			out = append(out, res)
			continue
		}
		in := tagging.Book{
			ID:          b.ID,
			Title:       b.Title,
			Description: b.Description,
			PubDate:     b.PubDate,
			Formats:     b.Formats(),
			Keywords:    b.Keywords(),
		}
		for _, g := range genres {
			in.Genres = append(in.Genres, tagging.Genre{Slug: g.Slug, Label: g.Label})
		}
		res.Tags = s.Gen.Generate(in)
		if !dryRun {
			res.Err = s.Books.SetTags(ctx, b.ID, res.Tags)
		}
		if res.Err != nil {
			slog.ErrorContext(ctx, "tag book", "book_id", b.ID, "error", res.Err)
		}
		out = append(out, res)
	}
	return out, nil
}
