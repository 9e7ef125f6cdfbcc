package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/capitalize-ai/docchat/internal/model"
	"github.com/capitalize-ai/docchat/internal/store"
	"github.com/capitalize-ai/docchat/pkg/logger"
)

var errBoom = errors.New("boom")

// fakeCollaborator implements Collaborator for testing.
type fakeCollaborator struct {
	mu sync.Mutex

	docs       []model.DocumentDescriptor
	threads    map[string][]model.PersistedThread
	listErr    error
	threadsErr error

	uploadDocID string
	uploadErr   error
	uploadGate  chan struct{}
	uploaded    []string

	answer   string
	chatID   string
	askErr   error
	askGate  chan struct{}
	askCalls []model.AskRequest

	started chan struct{}
}

func newFake() *fakeCollaborator {
	return &fakeCollaborator{
		threads: make(map[string][]model.PersistedThread),
		started: make(chan struct{}, 8),
	}
}

func (f *fakeCollaborator) ListDocuments(ctx context.Context) ([]model.DocumentDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.docs, nil
}

func (f *fakeCollaborator) ListThreads(ctx context.Context, documentID string) ([]model.PersistedThread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.threadsErr != nil {
		return nil, f.threadsErr
	}
	return f.threads[documentID], nil
}

func (f *fakeCollaborator) Upload(ctx context.Context, filename string, content io.Reader) (*model.UploadResponse, error) {
	f.started <- struct{}{}
	if f.uploadGate != nil {
		<-f.uploadGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded = append(f.uploaded, filename)
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &model.UploadResponse{DocumentID: f.uploadDocID}, nil
}

func (f *fakeCollaborator) Ask(ctx context.Context, req *model.AskRequest) (*model.AskResponse, error) {
	f.started <- struct{}{}
	if f.askGate != nil {
		<-f.askGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.askCalls = append(f.askCalls, *req)
	if f.askErr != nil {
		return nil, f.askErr
	}
	return &model.AskResponse{Answer: f.answer, ChatID: f.chatID}, nil
}

func (f *fakeCollaborator) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploaded)
}

func sequentialIDs() store.Option {
	n := 0
	return store.WithIDFunc(func() string {
		n++
		return fmt.Sprintf("%s%d", model.ProvisionalPrefix, n)
	})
}

func newTestSession(f *fakeCollaborator) *Session {
	return NewSession(f, 0, logger.NewNop(), sequentialIDs())
}

func pdf(name string) *PendingFile {
	return &PendingFile{Name: name, Content: strings.NewReader("%PDF-1.4")}
}
