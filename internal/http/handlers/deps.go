package handlers

import (
	"github.com/jmoiron/sqlx"

	"indieconverters/internal/cart"
	"indieconverters/internal/config"
	"indieconverters/internal/repos"
	"indieconverters/internal/services"
)

type Deps struct {
	Catalog        *services.CatalogService
	BookHandler    *BookHandler
	AuthorHandler  *AuthorHandler
	ServiceHandler *ServiceHandler
	SearchHandler  *SearchHandler
	CartHandler    *CartHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config, carts *cart.Service) *Deps {
	catalog := services.NewCatalogService(
		repos.NewBookRepo(db),
		repos.NewAuthorRepo(db),
		repos.NewGenreRepo(db),
		repos.NewServiceRepo(db),
	)

	return &Deps{
		Catalog:        catalog,
		BookHandler:    &BookHandler{Catalog: catalog},
		AuthorHandler:  &AuthorHandler{Catalog: catalog},
		ServiceHandler: &ServiceHandler{Catalog: catalog},
		SearchHandler:  &SearchHandler{Catalog: catalog},
		CartHandler:    &CartHandler{Carts: carts, Catalog: catalog, CookieSecure: cfg.CookieSecure},
	}
}
