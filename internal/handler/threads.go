package handler

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/docchat/internal/collab"
	"github.com/capitalize-ai/docchat/internal/middleware"
	"github.com/capitalize-ai/docchat/internal/model"
	"github.com/capitalize-ai/docchat/internal/registry"
	"github.com/capitalize-ai/docchat/internal/service"
	"github.com/capitalize-ai/docchat/pkg/logger"
)

// SubmitRequest is the JSON body of a question submission.
type SubmitRequest struct {
	Question string `json:"question"`
}

// SubmitResponse reports the outcome of a submission and the thread as it is
// afterwards.
type SubmitResponse struct {
	service.Outcome
	Error  string        `json:"error,omitempty"`
	Thread *model.Thread `json:"thread,omitempty"`
}

// ThreadHandler handles thread endpoints.
type ThreadHandler struct {
	sessions *registry.Registry
	logger   *logger.Logger
}

// NewThreadHandler creates a new thread handler.
func NewThreadHandler(sessions *registry.Registry, log *logger.Logger) *ThreadHandler {
	return &ThreadHandler{
		sessions: sessions,
		logger:   log,
	}
}

// List handles GET /api/v1/threads
func (h *ThreadHandler) List(w http.ResponseWriter, r *http.Request) {
	sess := session(h.sessions, r)
	writeJSON(w, http.StatusOK, sess.Store.Snapshot().List())
}

// Create handles POST /api/v1/threads
func (h *ThreadHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess := session(h.sessions, r)

	id := sess.Store.CreateThread()
	t, ok := sess.Store.Snapshot().Thread(id)
	if !ok {
		// Only a concurrent refresh can remove it this quickly.
		writeError(w, http.StatusConflict, "thread was replaced")
		return
	}

	writeJSON(w, http.StatusCreated, t)
}

// Select handles PUT /api/v1/threads/{id}/active
func (h *ThreadHandler) Select(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "id")
	if err := middleware.ValidateThreadID(threadID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := session(h.sessions, r)
	if err := sess.Store.SelectThread(threadID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			writeError(w, http.StatusNotFound, "thread not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to select thread")
		return
	}

	writeJSON(w, http.StatusOK, sess.Store.Snapshot().List())
}

// Submit handles POST /api/v1/threads/{id}/submit
// A JSON body carries a question. A multipart body carries a document under
// the "pdf" field and optionally a question, which is ignored when a file is
// present.
func (h *ThreadHandler) Submit(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "id")
	if err := middleware.ValidateThreadID(threadID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var sub service.Submission
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, middleware.MaxUploadBytes)
		if err := r.ParseMultipartForm(middleware.MaxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart body")
			return
		}
		defer r.MultipartForm.RemoveAll()

		sub.Question = r.FormValue("question")
		file, header, err := r.FormFile(collab.UploadField)
		switch {
		case err == nil:
			defer file.Close()
			if err := middleware.ValidateUploadName(header.Filename); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			sub.File = &service.PendingFile{Name: header.Filename, Content: file}
		case !errors.Is(err, http.ErrMissingFile):
			writeError(w, http.StatusBadRequest, "invalid file")
			return
		}
	} else {
		var req SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		sub.Question = req.Question
	}

	if err := middleware.ValidateQuestion(sub.Question); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := session(h.sessions, r)
	out := sess.Arbiter.Submit(r.Context(), threadID, sub)

	resp := SubmitResponse{Outcome: out}
	if !out.OK() {
		resp.Error = out.Err.Error()
		ctx := r.Context()
		h.logger.WithContext(middleware.GetCorrelationID(ctx), middleware.GetUserID(ctx)).Info("submission rejected",
			zap.String("thread_id", threadID),
			zap.String("outcome", string(out.Kind)),
			zap.Error(out.Err),
		)
	}
	if t, ok := sess.Store.Snapshot().Thread(out.ThreadID); ok {
		resp.Thread = &t
	}

	writeJSON(w, outcomeStatus(out.Kind), resp)
}
