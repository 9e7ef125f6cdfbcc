// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/docchat/internal/middleware"
	"github.com/capitalize-ai/docchat/internal/registry"
	"github.com/capitalize-ai/docchat/pkg/logger"
)

// DocumentHandler handles document directory endpoints.
type DocumentHandler struct {
	sessions *registry.Registry
	logger   *logger.Logger
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(sessions *registry.Registry, log *logger.Logger) *DocumentHandler {
	return &DocumentHandler{
		sessions: sessions,
		logger:   log,
	}
}

// List handles GET /api/v1/documents
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	sess := session(h.sessions, r)

	docs, err := sess.History.LoadDirectory(r.Context())
	if err != nil {
		h.logger.Warn("failed to list documents", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to list documents")
		return
	}

	writeJSON(w, http.StatusOK, docs)
}

// Open handles POST /api/v1/documents/{documentId}/open
// The session's threads are replaced by the threads of the document. A fresh
// thread is created when the document has none.
func (h *DocumentHandler) Open(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentId")
	if err := middleware.ValidateDocumentID(documentID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := session(h.sessions, r)
	if err := sess.History.OpenDocument(r.Context(), documentID); err != nil {
		h.logger.Warn("failed to open document",
			zap.String("document_id", documentID),
			zap.Error(err),
		)
		writeError(w, http.StatusBadGateway, "failed to load document history")
		return
	}
	sess.EnsureThread()

	writeJSON(w, http.StatusOK, sess.Store.Snapshot().List())
}

// Refresh handles POST /api/v1/refresh
func (h *DocumentHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	sess := session(h.sessions, r)
	if err := sess.History.Refresh(r.Context()); err != nil {
		h.logger.Warn("failed to refresh history", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to refresh history")
		return
	}
	sess.EnsureThread()

	writeJSON(w, http.StatusOK, sess.Store.Snapshot().List())
}
