package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/docchat/internal/model"
)

func seededFake() *fakeCollaborator {
	f := newFake()
	f.docs = []model.DocumentDescriptor{
		{DocumentID: "doc1", Name: "a.pdf"},
		{DocumentID: "doc2", Name: "b.pdf"},
	}
	f.threads["doc1"] = []model.PersistedThread{
		{ID: "c1", DocumentID: "doc1", Messages: []model.Message{model.UserMessage("Q"), model.BotMessage("A")}},
		{ID: "c2", DocumentID: "doc1"},
	}
	f.threads["doc2"] = []model.PersistedThread{
		{ID: "c3", DocumentID: "doc2", Messages: []model.Message{{Role: "tool", Text: "dropped"}, model.UserMessage("hi")}},
	}
	return f
}

func TestLoadDirectory(t *testing.T) {
	sess := newTestSession(seededFake())

	docs, err := sess.History.LoadDirectory(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Equal(t, 0, sess.Store.Snapshot().Len(), "directory load does not touch threads")
}

func TestLoadThreadsForDocument(t *testing.T) {
	sess := newTestSession(seededFake())

	threads, err := sess.History.LoadThreadsForDocument(context.Background(), "doc2")
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "c3", threads[0].ID)
	assert.Equal(t, "b.pdf", threads[0].Title, "title comes from the document name")
	assert.Equal(t, "doc2", threads[0].DocumentID)
	assert.Equal(t, []model.Message{model.UserMessage("hi")}, threads[0].Messages)
}

func TestLoadThreadsForDocument_UnknownNameFallsBackToID(t *testing.T) {
	f := seededFake()
	f.threads["doc9"] = []model.PersistedThread{{ID: "c9"}}
	sess := newTestSession(f)

	threads, err := sess.History.LoadThreadsForDocument(context.Background(), "doc9")
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "doc9", threads[0].Title)
	assert.Equal(t, "doc9", threads[0].DocumentID)
}

func TestOpenDocument(t *testing.T) {
	sess := newTestSession(seededFake())
	sess.Store.CreateThread()

	require.NoError(t, sess.History.OpenDocument(context.Background(), "doc1"))

	snap := sess.Store.Snapshot()
	assert.Equal(t, []string{"c1", "c2"}, threadIDs(snap.Threads()))
	assert.Equal(t, "c1", snap.ActiveID())
}

func TestOpenDocument_FailureKeepsStore(t *testing.T) {
	f := seededFake()
	f.threadsErr = errBoom
	sess := newTestSession(f)
	id := sess.Store.CreateThread()
	before := sess.Store.Snapshot()

	err := sess.History.OpenDocument(context.Background(), "doc1")
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, before.Version(), sess.Store.Snapshot().Version())
	assert.Equal(t, id, sess.Store.Snapshot().ActiveID())
}

func TestRefresh(t *testing.T) {
	sess := newTestSession(seededFake())

	require.NoError(t, sess.History.Refresh(context.Background()))

	snap := sess.Store.Snapshot()
	assert.Equal(t, []string{"c1", "c2", "c3"}, threadIDs(snap.Threads()))
	assert.Equal(t, "c1", snap.ActiveID())
}

func TestRefresh_FailureIsNotPartial(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fakeCollaborator)
	}{
		{name: "directory fails", setup: func(f *fakeCollaborator) { f.listErr = errBoom }},
		{name: "threads fail", setup: func(f *fakeCollaborator) { f.threadsErr = errBoom }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := seededFake()
			tt.setup(f)
			sess := newTestSession(f)
			sess.Store.CreateThread()
			before := sess.Store.Snapshot()

			err := sess.History.Refresh(context.Background())
			assert.ErrorIs(t, err, errBoom)
			assert.Equal(t, before.List(), sess.Store.Snapshot().List())
		})
	}
}

func threadIDs(threads []model.Thread) []string {
	out := make([]string, len(threads))
	for i, t := range threads {
		out[i] = t.ID
	}
	return out
}
