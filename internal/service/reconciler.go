package service

import (
	"go.uber.org/zap"

	"github.com/capitalize-ai/docchat/internal/store"
	"github.com/capitalize-ai/docchat/pkg/logger"
	"github.com/capitalize-ai/docchat/pkg/metrics"
)

// IdentityReconciler replaces provisional thread ids with the ids the backend
// assigns on first persistence.
type IdentityReconciler struct {
	store  *store.Store
	logger *logger.Logger
}

// NewIdentityReconciler creates a new reconciler.
func NewIdentityReconciler(s *store.Store, log *logger.Logger) *IdentityReconciler {
	return &IdentityReconciler{store: s, logger: log}
}

// Reconcile swaps oldID for newID. Stale or duplicate responses (oldID gone or
// already persisted) are ignored, so calling it twice equals calling it once.
// It reports whether the swap happened.
func (r *IdentityReconciler) Reconcile(oldID, newID string) bool {
	if !r.store.Rekey(oldID, newID) {
		r.logger.Debug("reconciliation skipped",
			zap.String("old_id", oldID),
			zap.String("new_id", newID),
		)
		return false
	}

	metrics.ReconciliationsTotal.Inc()
	r.logger.Info("thread reconciled",
		zap.String("old_id", oldID),
		zap.String("new_id", newID),
	)
	return true
}
