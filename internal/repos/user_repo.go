package repos

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"indieconverters/internal/domain"
)

// ErrDuplicate reports a row that collides with a unique key.
var ErrDuplicate = errors.New("duplicate")

type UserRepo struct{ db *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

const userSelect = `SELECT id, email, name, password_hash, role FROM users WHERE `

// ByEmail matches case-insensitively, like the users_email index.
func (r *UserRepo) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.one(ctx, `LOWER(email) = LOWER(?)`, email)
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*domain.User, error) {
	return r.one(ctx, `id = ?`, id)
}

func (r *UserRepo) one(ctx context.Context, where string, arg any) (*domain.User, error) {
	u := new(domain.User)
	if err := r.db.GetContext(ctx, u, userSelect+where, arg); err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts u. An email already taken in any letter case yields
// ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users(id,email,name,password_hash,role)
		VALUES(?,?,?,?,?)
	`, u.ID, u.Email, u.Name, u.Hash, u.Role)
	if constraintViolation(err) {
		return fmt.Errorf("user %s: %w", u.Email, ErrDuplicate)
	}
	return err
}

func constraintViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
