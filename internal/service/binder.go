package service

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/capitalize-ai/docchat/internal/model"
	"github.com/capitalize-ai/docchat/internal/store"
	"github.com/capitalize-ai/docchat/pkg/logger"
)

// UploadedText returns the system message recorded when a document is bound.
func UploadedText(name string) string {
	return fmt.Sprintf("📄 %s uploaded successfully. You can now ask questions.", name)
}

// DocumentBinder attaches documents to threads, at most once per thread.
type DocumentBinder struct {
	store  *store.Store
	logger *logger.Logger
}

// NewDocumentBinder creates a new binder.
func NewDocumentBinder(s *store.Store, log *logger.Logger) *DocumentBinder {
	return &DocumentBinder{store: s, logger: log}
}

// Bind attaches documentID to an unbound thread, renames it and records the
// binding as a system message. A bound thread fails with ErrAlreadyBound and
// is left untouched; callers should direct the user to a new thread.
func (b *DocumentBinder) Bind(threadID, documentID, displayName string) error {
	err := b.store.Update(threadID, func(t *model.Thread) error {
		if t.Bound() {
			return fmt.Errorf("bind %q to %q: %w", threadID, documentID, model.ErrAlreadyBound)
		}
		t.DocumentID = documentID
		t.Title = displayName
		t.Messages = append(t.Messages, model.SystemMessage(UploadedText(displayName)))
		return nil
	})
	if err != nil {
		return err
	}

	b.logger.Info("document bound",
		zap.String("thread_id", threadID),
		zap.String("document_id", documentID),
	)
	return nil
}
