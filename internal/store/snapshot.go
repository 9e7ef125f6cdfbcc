package store

import (
	"github.com/capitalize-ai/docchat/internal/model"
)

// Snapshot is an immutable view of the store at one version. The threads it
// references are never modified after commit; accessors hand out copies.
type Snapshot struct {
	version  uint64
	order    []string
	threads  map[string]*model.Thread
	activeID string
}

func emptySnapshot() *Snapshot {
	return &Snapshot{threads: make(map[string]*model.Thread)}
}

// Version returns the commit number of the snapshot.
func (s *Snapshot) Version() uint64 {
	return s.version
}

// ActiveID returns the id of the active thread, or "" before the first thread exists.
func (s *Snapshot) ActiveID() string {
	return s.activeID
}

// Len returns the number of threads.
func (s *Snapshot) Len() int {
	return len(s.order)
}

// Has reports whether a thread with the given id exists.
func (s *Snapshot) Has(id string) bool {
	_, ok := s.threads[id]
	return ok
}

// Thread returns a copy of the thread with the given id.
func (s *Snapshot) Thread(id string) (model.Thread, bool) {
	t, ok := s.threads[id]
	if !ok {
		return model.Thread{}, false
	}
	return t.Clone(), true
}

// Active returns a copy of the active thread.
func (s *Snapshot) Active() (model.Thread, bool) {
	if s.activeID == "" {
		return model.Thread{}, false
	}
	return s.Thread(s.activeID)
}

// Threads returns copies of all threads in display order.
func (s *Snapshot) Threads() []model.Thread {
	out := make([]model.Thread, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.threads[id].Clone())
	}
	return out
}

// List returns the JSON shape of the snapshot.
func (s *Snapshot) List() model.ThreadList {
	return model.ThreadList{
		Version:  s.version,
		ActiveID: s.activeID,
		Threads:  s.Threads(),
	}
}

// next starts the copy-on-write successor of s.
func (s *Snapshot) next() *Snapshot {
	n := &Snapshot{
		version:  s.version + 1,
		order:    make([]string, len(s.order)),
		threads:  make(map[string]*model.Thread, len(s.threads)),
		activeID: s.activeID,
	}
	copy(n.order, s.order)
	for id, t := range s.threads {
		n.threads[id] = t
	}
	return n
}
