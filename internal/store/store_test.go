package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/docchat/internal/model"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", model.ProvisionalPrefix, n)
	}
}

func newTestStore() *Store {
	return New(WithIDFunc(sequentialIDs()))
}

func TestCreateThread(t *testing.T) {
	s := newTestStore()
	assert.Equal(t, "", s.Snapshot().ActiveID())

	first := s.CreateThread()
	second := s.CreateThread()

	snap := s.Snapshot()
	assert.Equal(t, "temp_1", first)
	assert.Equal(t, "temp_2", second)
	assert.Equal(t, second, snap.ActiveID())

	threads := snap.Threads()
	require.Len(t, threads, 2)
	assert.Equal(t, second, threads[0].ID, "newest thread is ordered first")
	assert.Equal(t, model.DefaultThreadTitle, threads[0].Title)
	assert.Empty(t, threads[0].DocumentID)
	assert.Empty(t, threads[0].Messages)
}

func TestCreateThread_SkipsCollidingIDs(t *testing.T) {
	ids := []string{"temp_1", "temp_1", "temp_2"}
	s := New(WithIDFunc(func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}))

	assert.Equal(t, "temp_1", s.CreateThread())
	assert.Equal(t, "temp_2", s.CreateThread())
}

func TestSelectThread(t *testing.T) {
	s := newTestStore()
	first := s.CreateThread()
	s.CreateThread()

	require.NoError(t, s.SelectThread(first))
	assert.Equal(t, first, s.Snapshot().ActiveID())

	err := s.SelectThread("missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Equal(t, first, s.Snapshot().ActiveID())
}

func TestAppendMessage(t *testing.T) {
	s := newTestStore()
	id := s.CreateThread()

	require.NoError(t, s.AppendMessage(id, model.UserMessage("Q")))
	require.NoError(t, s.AppendMessage(id, model.BotMessage("A")))

	th, ok := s.Snapshot().Thread(id)
	require.True(t, ok)
	assert.Equal(t, []model.Message{model.UserMessage("Q"), model.BotMessage("A")}, th.Messages)

	assert.ErrorIs(t, s.AppendMessage("nope", model.UserMessage("x")), model.ErrNotFound)
}

func TestSnapshotsAreImmutable(t *testing.T) {
	s := newTestStore()
	id := s.CreateThread()
	require.NoError(t, s.AppendMessage(id, model.UserMessage("one")))

	before := s.Snapshot()
	require.NoError(t, s.AppendMessage(id, model.UserMessage("two")))

	old, _ := before.Thread(id)
	assert.Len(t, old.Messages, 1)

	// Mutating a returned copy must not leak into the store.
	old.Messages[0].Text = "changed"
	cur, _ := s.Snapshot().Thread(id)
	assert.Equal(t, "one", cur.Messages[0].Text)
	assert.Greater(t, s.Snapshot().Version(), before.Version())
}

func TestUpdate_RollsBackOnError(t *testing.T) {
	s := newTestStore()
	id := s.CreateThread()
	version := s.Snapshot().Version()

	err := s.Update(id, func(th *model.Thread) error {
		th.Title = "renamed"
		th.Messages = append(th.Messages, model.SystemMessage("x"))
		return model.ErrAlreadyBound
	})
	assert.ErrorIs(t, err, model.ErrAlreadyBound)

	th, _ := s.Snapshot().Thread(id)
	assert.Equal(t, model.DefaultThreadTitle, th.Title)
	assert.Empty(t, th.Messages)
	assert.Equal(t, version, s.Snapshot().Version())
}

func TestUpdate_DocumentIDIsImmutable(t *testing.T) {
	s := newTestStore()
	id := s.CreateThread()

	require.NoError(t, s.Update(id, func(th *model.Thread) error {
		th.DocumentID = "doc1"
		return nil
	}))
	require.NoError(t, s.Update(id, func(th *model.Thread) error {
		th.DocumentID = "doc2"
		th.ID = "hijack"
		return nil
	}))

	th, ok := s.Snapshot().Thread(id)
	require.True(t, ok)
	assert.Equal(t, "doc1", th.DocumentID)
}

func TestUpdate_ElementWritesDoNotLeak(t *testing.T) {
	s := newTestStore()
	id := s.CreateThread()
	require.NoError(t, s.AppendMessage(id, model.UserMessage("Q")))
	before := s.Snapshot()

	err := s.Update(id, func(th *model.Thread) error {
		th.Messages[0].Text = "rewritten"
		return model.ErrAlreadyBound
	})
	assert.ErrorIs(t, err, model.ErrAlreadyBound)

	cur, _ := s.Snapshot().Thread(id)
	old, _ := before.Thread(id)
	assert.Equal(t, "Q", cur.Messages[0].Text)
	assert.Equal(t, "Q", old.Messages[0].Text)
	assert.Equal(t, before.Version(), s.Snapshot().Version())
}

func TestUpdate_RejectsHistoryRewrites(t *testing.T) {
	s := newTestStore()
	id := s.CreateThread()
	require.NoError(t, s.AppendMessage(id, model.UserMessage("Q")))
	require.NoError(t, s.AppendMessage(id, model.BotMessage("A")))
	before := s.Snapshot()

	tests := []struct {
		name string
		fn   func(th *model.Thread) error
	}{
		{name: "edit", fn: func(th *model.Thread) error {
			th.Messages[1].Text = "other"
			return nil
		}},
		{name: "edit and append", fn: func(th *model.Thread) error {
			th.Messages[0].Role = model.RoleSystem
			th.Messages = append(th.Messages, model.BotMessage("B"))
			return nil
		}},
		{name: "truncate", fn: func(th *model.Thread) error {
			th.Messages = th.Messages[:1]
			return nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Update(id, tt.fn)
			assert.ErrorIs(t, err, model.ErrHistoryRewritten)

			th, _ := s.Snapshot().Thread(id)
			assert.Equal(t, []model.Message{model.UserMessage("Q"), model.BotMessage("A")}, th.Messages)
			assert.Equal(t, before.Version(), s.Snapshot().Version())
		})
	}

	require.NoError(t, s.Update(id, func(th *model.Thread) error {
		th.Messages = append(th.Messages, model.SystemMessage("ok"))
		return nil
	}), "appending stays allowed")
}

func TestReplaceThreads(t *testing.T) {
	s := newTestStore()
	s.CreateThread()

	s.ReplaceThreads([]model.Thread{
		{ID: "a", Title: "a.pdf", DocumentID: "doc1"},
		{ID: "b", Title: "a.pdf", DocumentID: "doc1"},
	})

	snap := s.Snapshot()
	assert.Equal(t, 2, snap.Len())
	assert.Equal(t, "a", snap.ActiveID(), "first thread becomes active when the old one is gone")
	assert.False(t, snap.Has("temp_1"))

	require.NoError(t, s.SelectThread("b"))
	s.ReplaceThreads([]model.Thread{{ID: "c"}, {ID: "b"}})
	assert.Equal(t, "b", s.Snapshot().ActiveID(), "surviving active thread stays active")

	s.ReplaceThreads(nil)
	assert.Equal(t, "", s.Snapshot().ActiveID())
	assert.Equal(t, 0, s.Snapshot().Len())
}

func TestReplaceThreads_KeepsBusyState(t *testing.T) {
	s := newTestStore()
	s.ReplaceThreads([]model.Thread{{ID: "a", DocumentID: "doc1"}})
	require.NoError(t, s.Acquire("a", model.BusyAsking))

	s.ReplaceThreads([]model.Thread{{ID: "a", DocumentID: "doc1", Busy: model.BusyIdle}})

	th, _ := s.Snapshot().Thread("a")
	assert.Equal(t, model.BusyAsking, th.Busy)
}

func TestRekey(t *testing.T) {
	s := newTestStore()
	other := s.CreateThread()
	id := s.CreateThread()
	require.NoError(t, s.Update(id, func(th *model.Thread) error {
		th.DocumentID = "doc1"
		return nil
	}))
	require.NoError(t, s.AppendMessage(id, model.UserMessage("Q")))

	assert.True(t, s.Rekey(id, "real42"))

	snap := s.Snapshot()
	assert.False(t, snap.Has(id))
	assert.Equal(t, "real42", snap.ActiveID())
	th, ok := snap.Thread("real42")
	require.True(t, ok)
	assert.Equal(t, "doc1", th.DocumentID)
	assert.Equal(t, []model.Message{model.UserMessage("Q")}, th.Messages)
	assert.Equal(t, []string{"real42", other}, ids(snap.Threads()))

	before := s.Snapshot()
	assert.False(t, s.Rekey(id, "real42"), "second swap is a no-op")
	assert.False(t, s.Rekey("real42", "real43"), "persisted ids never change")
	assert.False(t, s.Rekey(other, "real42"), "ids must stay unique")
	assert.False(t, s.Rekey(other, "temp_9"), "target must be persisted")
	assert.Equal(t, before.Version(), s.Snapshot().Version())
}

func TestRekey_InactiveThreadKeepsActiveID(t *testing.T) {
	s := newTestStore()
	id := s.CreateThread()
	active := s.CreateThread()

	require.True(t, s.Rekey(id, "real1"))
	assert.Equal(t, active, s.Snapshot().ActiveID())
}

func TestAcquireRelease(t *testing.T) {
	s := newTestStore()
	a := s.CreateThread()
	b := s.CreateThread()

	require.NoError(t, s.Acquire(a, model.BusyUploading))
	assert.ErrorIs(t, s.Acquire(a, model.BusyAsking), model.ErrBusy)
	assert.ErrorIs(t, s.Acquire(a, model.BusyUploading), model.ErrBusy)
	assert.NoError(t, s.Acquire(b, model.BusyAsking), "threads are independent")

	s.Release(a)
	assert.NoError(t, s.Acquire(a, model.BusyAsking))

	assert.ErrorIs(t, s.Acquire("missing", model.BusyAsking), model.ErrNotFound)
	s.Release("missing")
}

func TestSubscribe(t *testing.T) {
	s := newTestStore()

	var events []model.StoreEvent
	var active []string
	unsubscribe := s.Subscribe(func(ev model.StoreEvent, snap *Snapshot) {
		events = append(events, ev)
		active = append(active, snap.ActiveID())
	})

	id := s.CreateThread()
	require.NoError(t, s.AppendMessage(id, model.UserMessage("Q")))
	require.True(t, s.Rekey(id, "real1"))

	require.Len(t, events, 3)
	assert.Equal(t, model.EventThreadCreated, events[0].Type)
	assert.Equal(t, model.EventMessageAppended, events[1].Type)
	require.NotNil(t, events[1].Thread)
	assert.Len(t, events[1].Thread.Messages, 1)
	assert.Equal(t, model.EventThreadReconciled, events[2].Type)
	assert.Equal(t, id, events[2].PreviousID)
	assert.Equal(t, []string{id, id, "real1"}, active)
	assert.Less(t, events[0].Version, events[1].Version)

	unsubscribe()
	s.CreateThread()
	assert.Len(t, events, 3)
}

func TestSubscribe_OrderedUnderConcurrency(t *testing.T) {
	s := newTestStore()
	id := s.CreateThread()

	var mu sync.Mutex
	var versions []uint64
	s.Subscribe(func(ev model.StoreEvent, _ *Snapshot) {
		mu.Lock()
		versions = append(versions, ev.Version)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.AppendMessage(id, model.UserMessage(fmt.Sprint(i)))
		}(i)
	}
	wg.Wait()

	require.Len(t, versions, 50)
	for i := 1; i < len(versions); i++ {
		assert.Equal(t, versions[i-1]+1, versions[i])
	}
	th, _ := s.Snapshot().Thread(id)
	assert.Len(t, th.Messages, 50)
}

func TestExactlyOneActiveThread(t *testing.T) {
	s := newTestStore()
	for i := 0; i < 5; i++ {
		s.CreateThread()
		snap := s.Snapshot()
		assert.True(t, snap.Has(snap.ActiveID()))
	}
}

func ids(threads []model.Thread) []string {
	out := make([]string, len(threads))
	for i, t := range threads {
		out[i] = t.ID
	}
	return out
}
