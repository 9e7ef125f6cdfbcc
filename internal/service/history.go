package service

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/capitalize-ai/docchat/internal/model"
	"github.com/capitalize-ai/docchat/internal/store"
	"github.com/capitalize-ai/docchat/pkg/logger"
)

// DefaultNameTTL is how long document display names are remembered.
const DefaultNameTTL = 5 * time.Minute

// HistoryLoader fetches the document directory and persisted threads, and
// hydrates the store with them. A failed load never touches the store.
type HistoryLoader struct {
	collab Collaborator
	store  *store.Store
	names  *cache.Cache
	logger *logger.Logger
}

// NewHistoryLoader creates a new history loader.
func NewHistoryLoader(collab Collaborator, s *store.Store, nameTTL time.Duration, log *logger.Logger) *HistoryLoader {
	if nameTTL <= 0 {
		nameTTL = DefaultNameTTL
	}
	return &HistoryLoader{
		collab: collab,
		store:  s,
		names:  cache.New(nameTTL, 2*nameTTL),
		logger: log,
	}
}

// LoadDirectory returns the documents known to the service.
func (l *HistoryLoader) LoadDirectory(ctx context.Context) ([]model.DocumentDescriptor, error) {
	docs, err := l.collab.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load directory: %w", err)
	}
	for _, d := range docs {
		l.names.SetDefault(d.DocumentID, d.Name)
	}
	return docs, nil
}

// LoadThreadsForDocument returns the persisted threads of one document, titled
// with the document's display name.
func (l *HistoryLoader) LoadThreadsForDocument(ctx context.Context, documentID string) ([]model.Thread, error) {
	name := l.documentName(ctx, documentID)

	persisted, err := l.collab.ListThreads(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load threads for %q: %w", documentID, err)
	}
	return toThreads(documentID, name, persisted), nil
}

// OpenDocument replaces the store contents with the threads of one document.
func (l *HistoryLoader) OpenDocument(ctx context.Context, documentID string) error {
	threads, err := l.LoadThreadsForDocument(ctx, documentID)
	if err != nil {
		return err
	}

	l.store.ReplaceThreads(threads)
	l.logger.Info("document opened",
		zap.String("document_id", documentID),
		zap.Int("threads", len(threads)),
	)
	return nil
}

// Refresh loads every document's threads and replaces the store contents in
// one commit. Any failing fetch aborts the refresh.
func (l *HistoryLoader) Refresh(ctx context.Context) error {
	docs, err := l.LoadDirectory(ctx)
	if err != nil {
		return err
	}

	var all []model.Thread
	for _, d := range docs {
		persisted, err := l.collab.ListThreads(ctx, d.DocumentID)
		if err != nil {
			return fmt.Errorf("load threads for %q: %w", d.DocumentID, err)
		}
		all = append(all, toThreads(d.DocumentID, d.Name, persisted)...)
	}

	l.store.ReplaceThreads(all)
	l.logger.Info("history refreshed",
		zap.Int("documents", len(docs)),
		zap.Int("threads", len(all)),
	)
	return nil
}

// documentName resolves a display name, refetching the directory on a miss and
// falling back to the id itself.
func (l *HistoryLoader) documentName(ctx context.Context, documentID string) string {
	if v, ok := l.names.Get(documentID); ok {
		return v.(string)
	}
	if _, err := l.LoadDirectory(ctx); err != nil {
		l.logger.Warn("failed to resolve document name",
			zap.String("document_id", documentID),
			zap.Error(err),
		)
		return documentID
	}
	if v, ok := l.names.Get(documentID); ok {
		return v.(string)
	}
	return documentID
}

func toThreads(documentID, name string, persisted []model.PersistedThread) []model.Thread {
	threads := make([]model.Thread, 0, len(persisted))
	for _, p := range persisted {
		docID := p.DocumentID
		if docID == "" {
			docID = documentID
		}
		msgs := make([]model.Message, 0, len(p.Messages))
		for _, m := range p.Messages {
			if m.Role.Valid() {
				msgs = append(msgs, m)
			}
		}
		threads = append(threads, model.Thread{
			ID:         p.ID,
			Title:      name,
			DocumentID: docID,
			Messages:   msgs,
		})
	}
	return threads
}
