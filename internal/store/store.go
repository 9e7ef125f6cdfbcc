// Package store holds the in-memory thread store shared by the session services.
package store

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/docchat/internal/model"
	"github.com/capitalize-ai/docchat/pkg/logger"
)

// Observer is notified after every committed mutation, in commit order.
// Observers must not call mutating store methods.
type Observer func(ev model.StoreEvent, snap *Snapshot)

// Option configures a Store.
type Option func(*Store)

// WithIDFunc overrides how provisional thread ids are minted.
func WithIDFunc(fn func() string) Option {
	return func(s *Store) {
		s.newID = fn
	}
}

// WithLogger sets the store logger.
func WithLogger(log *logger.Logger) Option {
	return func(s *Store) {
		s.logger = log
	}
}

// Store is the single source of truth for threads and the active thread id.
type Store struct {
	mu  sync.Mutex
	cur *Snapshot

	// notifyMu is taken before mu is released so observers see commits in order.
	notifyMu  sync.Mutex
	observers map[int]Observer
	nextObs   int

	newID  func() string
	logger *logger.Logger
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		cur:       emptySnapshot(),
		observers: make(map[int]Observer),
		newID:     defaultID,
		logger:    logger.Global(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func defaultID() string {
	return model.ProvisionalPrefix + uuid.Must(uuid.NewV7()).String()
}

// Snapshot returns the latest committed snapshot.
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Subscribe registers an observer and returns a function that removes it.
func (s *Store) Subscribe(fn Observer) func() {
	s.notifyMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.notifyMu.Unlock()

	return func() {
		s.notifyMu.Lock()
		delete(s.observers, id)
		s.notifyMu.Unlock()
	}
}

// commit installs next and notifies observers. It must be called with mu held
// and releases it.
func (s *Store) commit(next *Snapshot, ev model.StoreEvent) {
	s.cur = next
	ev.Version = next.version
	ev.ActiveID = next.activeID
	if ev.Thread == nil && ev.ThreadID != "" {
		if t, ok := next.threads[ev.ThreadID]; ok {
			c := t.Clone()
			ev.Thread = &c
		}
	}

	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, obs := range s.observers {
		obs(ev, next)
	}
}

// CreateThread inserts an empty thread with a fresh provisional id, orders it
// first and makes it active.
func (s *Store) CreateThread() string {
	s.mu.Lock()
	id := s.newID()
	for s.cur.Has(id) {
		id = s.newID()
	}

	next := s.cur.next()
	next.threads[id] = &model.Thread{
		ID:       id,
		Title:    model.DefaultThreadTitle,
		Messages: []model.Message{},
	}
	next.order = append([]string{id}, next.order...)
	next.activeID = id

	s.commit(next, model.StoreEvent{Type: model.EventThreadCreated, ThreadID: id})
	s.logger.Debug("thread created", zap.String("thread_id", id))
	return id
}

// SelectThread makes id the active thread.
func (s *Store) SelectThread(id string) error {
	s.mu.Lock()
	if !s.cur.Has(id) {
		s.mu.Unlock()
		return fmt.Errorf("select %q: %w", id, model.ErrNotFound)
	}

	next := s.cur.next()
	next.activeID = id
	s.commit(next, model.StoreEvent{Type: model.EventThreadSelected, ThreadID: id})
	return nil
}

// AppendMessage appends msg to the thread's history.
func (s *Store) AppendMessage(threadID string, msg model.Message) error {
	return s.update(threadID, model.EventMessageAppended, func(t *model.Thread) error {
		t.Messages = append(t.Messages, msg)
		return nil
	})
}

// Update applies fn to a copy of the thread and commits the copy if fn
// returns nil. Message history may only be appended to; a copy whose existing
// messages changed is rejected with ErrHistoryRewritten.
func (s *Store) Update(threadID string, fn func(t *model.Thread) error) error {
	return s.update(threadID, model.EventThreadUpdated, fn)
}

func (s *Store) update(threadID string, evType model.EventType, fn func(t *model.Thread) error) error {
	s.mu.Lock()
	cur, ok := s.cur.threads[threadID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("update %q: %w", threadID, model.ErrNotFound)
	}

	// fn works on a deep copy so committed snapshots never change under it.
	t := cur.Clone()
	if err := fn(&t); err != nil {
		s.mu.Unlock()
		return err
	}
	if len(t.Messages) < len(cur.Messages) || !slices.Equal(t.Messages[:len(cur.Messages)], cur.Messages) {
		s.mu.Unlock()
		return fmt.Errorf("update %q: %w", threadID, model.ErrHistoryRewritten)
	}
	// Identity and busy state have dedicated operations.
	t.ID = cur.ID
	t.Busy = cur.Busy
	if cur.DocumentID != "" {
		t.DocumentID = cur.DocumentID
	}

	next := s.cur.next()
	next.threads[threadID] = &t
	s.commit(next, model.StoreEvent{Type: evType, ThreadID: threadID})
	return nil
}

// ReplaceThreads hydrates the store wholesale. The active thread is kept if it
// survives, otherwise the first thread becomes active. Busy state of surviving
// ids is carried over.
func (s *Store) ReplaceThreads(threads []model.Thread) {
	s.mu.Lock()
	next := s.cur.next()
	next.order = make([]string, 0, len(threads))
	next.threads = make(map[string]*model.Thread, len(threads))

	for _, in := range threads {
		if in.ID == "" {
			continue
		}
		if _, dup := next.threads[in.ID]; dup {
			s.logger.Warn("duplicate thread id in replacement", zap.String("thread_id", in.ID))
			continue
		}
		t := in.Clone()
		t.Busy = model.BusyIdle
		if prev, ok := s.cur.threads[t.ID]; ok {
			t.Busy = prev.Busy
		}
		if t.Title == "" {
			t.Title = model.DefaultThreadTitle
		}
		next.threads[t.ID] = &t
		next.order = append(next.order, t.ID)
	}

	if !next.Has(next.activeID) {
		next.activeID = ""
		if len(next.order) > 0 {
			next.activeID = next.order[0]
		}
	}

	count := len(next.order)
	s.commit(next, model.StoreEvent{Type: model.EventThreadsReplaced})
	s.logger.Debug("threads replaced", zap.Int("count", count))
}

// Rekey swaps a provisional id for a persisted one, preserving history,
// binding and busy state. The active id follows in the same commit. It reports
// whether a swap happened.
func (s *Store) Rekey(oldID, newID string) bool {
	s.mu.Lock()
	cur, ok := s.cur.threads[oldID]
	if !ok || !model.IsProvisional(oldID) || newID == "" || model.IsProvisional(newID) || s.cur.Has(newID) {
		s.mu.Unlock()
		return false
	}

	t := *cur
	t.ID = newID

	next := s.cur.next()
	delete(next.threads, oldID)
	next.threads[newID] = &t
	if i := slices.Index(next.order, oldID); i >= 0 {
		next.order[i] = newID
	}
	if next.activeID == oldID {
		next.activeID = newID
	}

	s.commit(next, model.StoreEvent{Type: model.EventThreadReconciled, ThreadID: newID, PreviousID: oldID})
	return true
}

// Acquire marks the thread busy with op. It fails with ErrBusy if another
// operation is already in flight on that thread.
func (s *Store) Acquire(threadID string, op model.Busy) error {
	s.mu.Lock()
	cur, ok := s.cur.threads[threadID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("acquire %q: %w", threadID, model.ErrNotFound)
	}
	if cur.Busy != model.BusyIdle {
		s.mu.Unlock()
		return fmt.Errorf("acquire %q while %s: %w", threadID, cur.Busy, model.ErrBusy)
	}

	s.setBusy(cur, op)
	return nil
}

// Release marks the thread idle. Releasing a missing thread is a no-op.
func (s *Store) Release(threadID string) {
	s.mu.Lock()
	cur, ok := s.cur.threads[threadID]
	if !ok || cur.Busy == model.BusyIdle {
		s.mu.Unlock()
		return
	}
	s.setBusy(cur, model.BusyIdle)
}

// setBusy must be called with mu held.
func (s *Store) setBusy(cur *model.Thread, op model.Busy) {
	t := *cur
	t.Busy = op

	next := s.cur.next()
	next.threads[t.ID] = &t
	s.commit(next, model.StoreEvent{Type: model.EventBusyChanged, ThreadID: t.ID})
}
