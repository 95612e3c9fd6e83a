package cart

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"indieconverters/internal/domain"
)

// SessionKey is the storage key holding the anonymous cart token.
const SessionKey = "cart_session_id"

// Identity is the resolved cart owner for the current actor.
type Identity struct {
	UserID    string
	SessionID string
	// Volatile marks a session token that could not be persisted and only
	// lives as long as the current resolver.
	Volatile bool
}

func (i Identity) Authenticated() bool { return i.UserID != "" }

// Owner returns the cart owner reference. Exactly one field is set.
func (i Identity) Owner() domain.Owner {
	if i.UserID != "" {
		return domain.Owner{UserID: i.UserID}
	}
	return domain.Owner{SessionID: i.SessionID}
}

// TokenStorage is durable client-local storage (a cookie jar, a browser
// store, a file). Read reports ok=false when the key is absent.
type TokenStorage interface {
	Read(key string) (value string, ok bool, err error)
	Write(key, value string) error
}

// Authenticator reports the authenticated user for the ambient context.
type Authenticator interface {
	UserID(ctx context.Context) (string, bool)
}

type AuthenticatorFunc func(ctx context.Context) (string, bool)

func (f AuthenticatorFunc) UserID(ctx context.Context) (string, bool) { return f(ctx) }

// Resolver turns the ambient auth context plus client storage into an Identity.
type Resolver struct {
	auth     Authenticator
	storage  TokenStorage
	logger   *slog.Logger
	newToken func() string

	mu       sync.Mutex
	volatile string
}

func NewResolver(auth Authenticator, storage TokenStorage, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{auth: auth, storage: storage, logger: logger, newToken: uuid.NewString}
}

// Resolve returns the authenticated user if there is one, otherwise the
// anonymous session token, generating and persisting it on first use.
func (r *Resolver) Resolve(ctx context.Context) Identity {
	if r.auth != nil {
		if uid, ok := r.auth.UserID(ctx); ok && uid != "" {
			return Identity{UserID: uid}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.volatile != "" {
		return Identity{SessionID: r.volatile, Volatile: true}
	}
	if r.storage == nil {
		return r.volatileLocked(nil)
	}

	tok, ok, err := r.storage.Read(SessionKey)
	if err != nil {
		return r.volatileLocked(err)
	}
	if ok && tok != "" {
		return Identity{SessionID: tok}
	}

	tok = r.newToken()
	if err := r.storage.Write(SessionKey, tok); err != nil {
		r.volatile = tok
		r.logger.Warn("cart identity not persisted", "error", ErrIdentityUnavailable, "cause", err)
		return Identity{SessionID: tok, Volatile: true}
	}
	return Identity{SessionID: tok}
}

// Peek is Resolve without side effects: it never mints or writes a
// token. ok is false for an anonymous actor with nothing stored yet.
func (r *Resolver) Peek(ctx context.Context) (Identity, bool) {
	if r.auth != nil {
		if uid, ok := r.auth.UserID(ctx); ok && uid != "" {
			return Identity{UserID: uid}, true
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.volatile != "" {
		return Identity{SessionID: r.volatile, Volatile: true}, true
	}
	if r.storage == nil {
		return Identity{}, false
	}
	tok, ok, err := r.storage.Read(SessionKey)
	if err != nil {
		r.logger.Warn("cart identity storage unreadable", "error", ErrIdentityUnavailable, "cause", err)
		return Identity{}, false
	}
	if !ok || tok == "" {
		return Identity{}, false
	}
	return Identity{SessionID: tok}, true
}

func (r *Resolver) volatileLocked(cause error) Identity {
	r.volatile = r.newToken()
	r.logger.Warn("cart identity storage unreadable", "error", ErrIdentityUnavailable, "cause", cause)
	return Identity{SessionID: r.volatile, Volatile: true}
}

// MemoryStorage is an in-process TokenStorage. Setting Err makes every call fail.
type MemoryStorage struct {
	mu   sync.Mutex
	vals map[string]string
	Err  error
}

func NewMemoryStorage() *MemoryStorage { return &MemoryStorage{vals: map[string]string{}} }

func (m *MemoryStorage) Read(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", false, m.Err
	}
	v, ok := m.vals[key]
	return v, ok, nil
}

func (m *MemoryStorage) Write(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.vals[key] = value
	return nil
}

// Clear drops every stored value, like a user wiping site data.
func (m *MemoryStorage) Clear() {
	m.mu.Lock()
	m.vals = map[string]string{}
	m.mu.Unlock()
}
