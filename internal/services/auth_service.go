package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"indieconverters/internal/auth"
	"indieconverters/internal/cart"
	"indieconverters/internal/domain"
	"indieconverters/internal/repos"
)

var (
	ErrBadCreds   = errors.New("invalid email or password")
	ErrEmailTaken = errors.New("email already registered")
)

type AuthService struct {
	Users  *repos.UserRepo
	Tokens *auth.JWTManager
	Carts  *cart.Service
}

// Login checks the password, issues an access token and folds the
// visitor's anonymous cart (if any) into the user's cart. A failed merge
// does not fail the login; the anonymous cart stays where it was.
func (s *AuthService) Login(ctx context.Context, sessionID, email, password string) (*domain.User, string, error) {
	u, err := s.Users.ByEmail(ctx, email)
	if err != nil {
		return nil, "", ErrBadCreds
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, "", ErrBadCreds
	}
	return s.signIn(ctx, sessionID, u)
}

// Signup creates a USER account and signs it in exactly like Login,
// including the anonymous cart merge.
func (s *AuthService) Signup(ctx context.Context, sessionID, name, email, password string) (*domain.User, string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}
	u := &domain.User{ID: uuid.NewString(), Email: email, Name: name, Hash: string(hash), Role: domain.RoleUser}
	if err := s.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repos.ErrDuplicate) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", err
	}
	return s.signIn(ctx, sessionID, u)
}

func (s *AuthService) signIn(ctx context.Context, sessionID string, u *domain.User) (*domain.User, string, error) {
	tok, err := s.Tokens.Generate(u)
	if err != nil {
		return nil, "", err
	}
	if s.Carts != nil {
		if err := s.Carts.MergeOnLogin(ctx, sessionID, u.ID); err != nil {
			slog.WarnContext(ctx, "cart merge on login failed", "user_id", u.ID, "error", err)
		}
	}
	return u, tok, nil
}

// CurrentUser validates an access token and loads its user.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.Tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	return s.Users.ByID(ctx, claims.UserID)
}
