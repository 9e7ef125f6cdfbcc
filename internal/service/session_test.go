package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/docchat/internal/model"
)

func TestSessionStart_Hydrates(t *testing.T) {
	sess := newTestSession(seededFake())

	require.NoError(t, sess.Start(context.Background()))
	snap := sess.Store.Snapshot()
	assert.Equal(t, 3, snap.Len())
	assert.Equal(t, "c1", snap.ActiveID())
}

func TestSessionStart_EmptyHistoryCreatesThread(t *testing.T) {
	sess := newTestSession(newFake())

	require.NoError(t, sess.Start(context.Background()))
	active, ok := sess.Store.Snapshot().Active()
	require.True(t, ok)
	assert.True(t, active.Provisional())
	assert.Equal(t, model.DefaultThreadTitle, active.Title)
}

func TestSessionStart_FailureStillUsable(t *testing.T) {
	f := newFake()
	f.listErr = errBoom
	sess := newTestSession(f)

	err := sess.Start(context.Background())
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, sess.Store.Snapshot().Len())
}

func TestEnsureThread(t *testing.T) {
	f := seededFake()
	sess := newTestSession(f)
	require.NoError(t, sess.Start(context.Background()))

	sess.EnsureThread()
	assert.Equal(t, 3, sess.Store.Snapshot().Len(), "no thread is added to a populated store")

	require.NoError(t, sess.History.OpenDocument(context.Background(), "unknown"))
	require.Equal(t, 0, sess.Store.Snapshot().Len())

	sess.EnsureThread()
	active, ok := sess.Store.Snapshot().Active()
	require.True(t, ok)
	assert.True(t, active.Provisional())
}
