package service

import (
	"context"
	"time"

	"github.com/capitalize-ai/docchat/internal/store"
	"github.com/capitalize-ai/docchat/pkg/logger"
)

// Session wires one thread store to the services that operate on it.
type Session struct {
	Store      *store.Store
	History    *HistoryLoader
	Binder     *DocumentBinder
	Reconciler *IdentityReconciler
	Arbiter    *RequestArbiter
}

// NewSession creates a session around a fresh store.
func NewSession(collab Collaborator, nameTTL time.Duration, log *logger.Logger, opts ...store.Option) *Session {
	opts = append([]store.Option{store.WithLogger(log)}, opts...)
	s := store.New(opts...)

	binder := NewDocumentBinder(s, log)
	reconciler := NewIdentityReconciler(s, log)

	return &Session{
		Store:      s,
		History:    NewHistoryLoader(collab, s, nameTTL, log),
		Binder:     binder,
		Reconciler: reconciler,
		Arbiter:    NewRequestArbiter(s, collab, binder, reconciler, log),
	}
}

// Start hydrates the store with the persisted history. If nothing was loaded a
// fresh thread is created so the user can upload right away. A failed refresh
// is returned but still leaves a usable session.
func (s *Session) Start(ctx context.Context) error {
	err := s.History.Refresh(ctx)
	s.EnsureThread()
	return err
}

// EnsureThread creates a fresh thread when the store is empty, so there is
// always an active thread to upload into after a load.
func (s *Session) EnsureThread() {
	if s.Store.Snapshot().Len() == 0 {
		s.Store.CreateThread()
	}
}
