// Package service provides the session orchestration logic on top of the thread store.
package service

import (
	"context"
	"io"

	"github.com/capitalize-ai/docchat/internal/model"
)

// Collaborator is the remote document service.
type Collaborator interface {
	ListDocuments(ctx context.Context) ([]model.DocumentDescriptor, error)
	ListThreads(ctx context.Context, documentID string) ([]model.PersistedThread, error)
	Upload(ctx context.Context, filename string, content io.Reader) (*model.UploadResponse, error)
	Ask(ctx context.Context, req *model.AskRequest) (*model.AskResponse, error)
}
