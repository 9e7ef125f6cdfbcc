// Package registry keeps one orchestration session per authenticated user.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/capitalize-ai/docchat/internal/service"
	"github.com/capitalize-ai/docchat/pkg/logger"
	"github.com/capitalize-ai/docchat/pkg/metrics"
)

// Builder creates the session of a user. token is the credential the user
// authenticated with and is forwarded to the document service.
type Builder func(userID, token string) *service.Session

// Registry holds live sessions and expires them after a period of inactivity.
type Registry struct {
	mu     sync.Mutex
	cache  *cache.Cache
	build  Builder
	logger *logger.Logger
}

// New creates a registry whose sessions expire after idle without use.
func New(idle time.Duration, build Builder, log *logger.Logger) *Registry {
	if idle <= 0 {
		idle = time.Hour
	}
	c := cache.New(idle, idle/2)
	c.OnEvicted(func(userID string, _ interface{}) {
		metrics.SessionsActive.Dec()
		log.Info("session expired", zap.String("user_id", userID))
	})

	return &Registry{
		cache:  c,
		build:  build,
		logger: log,
	}
}

// Get returns the session of userID, creating and hydrating it on first use.
// Every call extends the session's lifetime. A failed hydration is logged and
// the session is still returned; the client can retry with a refresh.
func (r *Registry) Get(ctx context.Context, userID, token string) *service.Session {
	r.mu.Lock()
	if v, ok := r.cache.Get(userID); ok {
		sess := v.(*service.Session)
		r.cache.SetDefault(userID, sess)
		r.mu.Unlock()
		return sess
	}

	// An expired session may still sit in the cache until the janitor runs.
	// Deleting it fires OnEvicted so the gauge stays balanced.
	r.cache.Delete(userID)

	sess := r.build(userID, token)
	r.cache.SetDefault(userID, sess)
	metrics.SessionsActive.Inc()
	r.mu.Unlock()

	if err := sess.Start(ctx); err != nil {
		r.logger.Warn("failed to load history for new session",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
	r.logger.Info("session created", zap.String("user_id", userID))
	return sess
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return r.cache.ItemCount()
}

// Drop ends the session of userID.
func (r *Registry) Drop(userID string) {
	r.cache.Delete(userID)
}
