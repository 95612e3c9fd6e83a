package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"indieconverters/internal/domain"
)

type ServiceRepo struct{ db *sqlx.DB }

func NewServiceRepo(db *sqlx.DB) *ServiceRepo { return &ServiceRepo{db: db} }

const serviceColumns = `id, slug, name, COALESCE(short_description,'') AS short_description,
	COALESCE(icon_url,'') AS icon_url, price, is_active, display_order`

func (r *ServiceRepo) ListActive(ctx context.Context) ([]domain.Service, error) {
	out := []domain.Service{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+serviceColumns+` FROM services WHERE is_active = 1 ORDER BY display_order, name
	`)
	return out, err
}

func (r *ServiceRepo) Get(ctx context.Context, id string) (domain.Service, error) {
	var s domain.Service
	err := r.db.GetContext(ctx, &s, `SELECT `+serviceColumns+` FROM services WHERE id = ?`, id)
	return s, err
}
