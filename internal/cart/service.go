package cart

import (
	"context"
	"fmt"
	"log/slog"

	"indieconverters/internal/domain"
)

// Service opens per-identity stores over a shared backend.
type Service struct {
	backend   Backend
	logger    *slog.Logger
	hook      OpHook
	observers []func(domain.Owner, Snapshot)
}

type ServiceOption func(*Service)

func WithServiceLogger(l *slog.Logger) ServiceOption { return func(s *Service) { s.logger = l } }

func WithServiceHook(h OpHook) ServiceOption { return func(s *Service) { s.hook = h } }

// WithObserver subscribes fn to every store the service opens.
func WithObserver(fn func(domain.Owner, Snapshot)) ServiceOption {
	return func(s *Service) { s.observers = append(s.observers, fn) }
}

func NewService(backend Backend, opts ...ServiceOption) *Service {
	s := &Service{backend: backend, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Store returns an unloaded store for id.
func (s *Service) Store(id Identity) *Store {
	owner := id.Owner()
	st := NewStore(s.backend, owner,
		WithLogger(s.logger.With("owner", ownerLabel(owner))),
		WithOpHook(s.hook),
	)
	for _, fn := range s.observers {
		st.Subscribe(func(snap Snapshot) { fn(owner, snap) })
	}
	return st
}

// Open returns a loaded store for id.
func (s *Service) Open(ctx context.Context, id Identity) (*Store, error) {
	st := s.Store(id)
	if err := st.Load(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

// MergeOnLogin moves the anonymous session's lines into the user's cart.
func (s *Service) MergeOnLogin(ctx context.Context, sessionID, userID string) error {
	if sessionID == "" || userID == "" {
		return nil
	}
	err := s.backend.MergeCarts(ctx,
		domain.Owner{SessionID: sessionID},
		domain.Owner{UserID: userID},
	)
	if s.hook != nil {
		s.hook("merge", err)
	}
	if err != nil {
		return fmt.Errorf("%w: merge: %w", ErrCartUnavailable, err)
	}
	return nil
}

func ownerLabel(o domain.Owner) string {
	if o.UserID != "" {
		return "user:" + o.UserID
	}
	return "session:" + o.SessionID
}
