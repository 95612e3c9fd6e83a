package services

import (
	"context"
	"regexp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"indieconverters/internal/domain"
	"indieconverters/internal/repos"
)

type CatalogService struct {
	Books    *repos.BookRepo
	Authors  *repos.AuthorRepo
	Genres   *repos.GenreRepo
	Services *repos.ServiceRepo
}

func NewCatalogService(books *repos.BookRepo, authors *repos.AuthorRepo, genres *repos.GenreRepo, svcs *repos.ServiceRepo) *CatalogService {
	return &CatalogService{Books: books, Authors: authors, Genres: genres, Services: svcs}
}

func (s *CatalogService) ListBooks(ctx context.Context, page, pageSize int) ([]domain.Book, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 12
	}
	offset := (page - 1) * pageSize
	return s.Books.ListPublished(ctx, pageSize, offset)
}

type BookDetail struct {
	Book           domain.Book
	Authors        []domain.Author
	Genres         []domain.Genre
	Formats        []string
	SelectedFormat string
	Price          decimal.Decimal
}

// BookDetail loads a published book by slug. format selects an edition;
// an empty or unavailable format falls back to the preferred default.
func (s *CatalogService) BookDetail(ctx context.Context, slug, format string) (BookDetail, error) {
	b, err := s.Books.BySlug(ctx, slug)
	if err != nil {
		return BookDetail{}, err
	}
	authors, err := s.Authors.ForBook(ctx, b.ID)
	if err != nil {
		return BookDetail{}, err
	}
	genres, err := s.Genres.ForBook(ctx, b.ID)
	if err != nil {
		return BookDetail{}, err
	}
	formats := b.Formats()
	if !slices.Contains(formats, format) {
		format = DefaultFormat(formats)
	}
	return BookDetail{
		Book:           b,
		Authors:        authors,
		Genres:         genres,
		Formats:        formats,
		SelectedFormat: format,
		Price:          FormatPrice(format),
	}, nil
}

type AuthorDetail struct {
	Author domain.Author
	Books  []domain.Book
}

func (s *CatalogService) AuthorDetail(ctx context.Context, slug string) (AuthorDetail, error) {
	a, err := s.Authors.BySlug(ctx, slug)
	if err != nil {
		return AuthorDetail{}, err
	}
	books, err := s.Books.ByAuthor(ctx, a.ID)
	if err != nil {
		return AuthorDetail{}, err
	}
	return AuthorDetail{Author: a, Books: books}, nil
}

func (s *CatalogService) ListAuthors(ctx context.Context) ([]domain.Author, error) {
	return s.Authors.List(ctx)
}

func (s *CatalogService) ListGenres(ctx context.Context) ([]domain.Genre, error) {
	return s.Genres.List(ctx)
}

func (s *CatalogService) ListServices(ctx context.Context) ([]domain.Service, error) {
	return s.Services.ListActive(ctx)
}

func (s *CatalogService) GetService(ctx context.Context, id string) (domain.Service, error) {
	return s.Services.Get(ctx, id)
}

type SearchResult struct {
	Books   []repos.BookHit `json:"books"`
	Authors []domain.Author `json:"authors"`
	Genres  []domain.Genre  `json:"genres"`
}

var (
	reSearchStrip = regexp.MustCompile(`[,%()]`)
	reSpaces      = regexp.MustCompile(`\s+`)
)

// NormalizeQuery drops characters that would break a LIKE pattern or a
// filter expression and collapses whitespace.
func NormalizeQuery(q string) string {
	q = reSearchStrip.ReplaceAllString(q, " ")
	return strings.TrimSpace(reSpaces.ReplaceAllString(q, " "))
}

// DefaultSearchLimit applies when the caller gives no usable limit.
const DefaultSearchLimit = 5

// ClampLimit keeps a search limit within 1..10.
func ClampLimit(limit int) int {
	switch {
	case limit < 1:
		return 1
	case limit > 10:
		return 10
	}
	return limit
}

// Search runs the book, author and genre lookups concurrently.
func (s *CatalogService) Search(ctx context.Context, rawQ string, limit int) (SearchResult, error) {
	res := SearchResult{Books: []repos.BookHit{}, Authors: []domain.Author{}, Genres: []domain.Genre{}}
	q := NormalizeQuery(rawQ)
	if q == "" {
		return res, nil
	}
	limit = ClampLimit(limit)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		res.Books, err = s.Books.Search(ctx, q, limit)
		return err
	})
	g.Go(func() (err error) {
		res.Authors, err = s.Authors.Search(ctx, q, limit)
		return err
	})
	g.Go(func() (err error) {
		res.Genres, err = s.Genres.Search(ctx, q, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return SearchResult{}, err
	}
	return res, nil
}
