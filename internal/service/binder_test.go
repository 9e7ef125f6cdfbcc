package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/docchat/internal/model"
)

func TestBind(t *testing.T) {
	sess := newTestSession(newFake())
	id := sess.Store.CreateThread()

	require.NoError(t, sess.Binder.Bind(id, "doc1", "a.pdf"))

	th, _ := sess.Store.Snapshot().Thread(id)
	assert.Equal(t, "doc1", th.DocumentID)
	assert.Equal(t, "a.pdf", th.Title)
	assert.Equal(t, []model.Message{model.SystemMessage(UploadedText("a.pdf"))}, th.Messages)
}

func TestBind_SecondCallFails(t *testing.T) {
	sess := newTestSession(newFake())
	id := sess.Store.CreateThread()

	require.NoError(t, sess.Binder.Bind(id, "doc1", "a.pdf"))
	err := sess.Binder.Bind(id, "doc2", "b.pdf")
	assert.ErrorIs(t, err, model.ErrAlreadyBound)

	th, _ := sess.Store.Snapshot().Thread(id)
	assert.Equal(t, "doc1", th.DocumentID)
	assert.Equal(t, "a.pdf", th.Title)
	assert.Len(t, th.Messages, 1)
}

func TestBind_MissingThread(t *testing.T) {
	sess := newTestSession(newFake())
	assert.ErrorIs(t, sess.Binder.Bind("nope", "doc1", "a.pdf"), model.ErrNotFound)
}
