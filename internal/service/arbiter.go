package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/capitalize-ai/docchat/internal/model"
	"github.com/capitalize-ai/docchat/internal/store"
	"github.com/capitalize-ai/docchat/pkg/logger"
	"github.com/capitalize-ai/docchat/pkg/metrics"
)

// AskErrorText is appended as the bot reply when an ask fails.
const AskErrorText = "❌ Server error"

// OutcomeKind classifies the result of a submission.
type OutcomeKind string

const (
	OutcomeNoop         OutcomeKind = "noop"
	OutcomeUploaded     OutcomeKind = "uploaded"
	OutcomeAnswered     OutcomeKind = "answered"
	OutcomeAlreadyBound OutcomeKind = "already_bound"
	OutcomeBusy         OutcomeKind = "busy"
	OutcomeUploadFailed OutcomeKind = "upload_failed"
	OutcomeAskFailed    OutcomeKind = "ask_failed"
	OutcomeNotFound     OutcomeKind = "not_found"
)

// Outcome is the typed result of Submit. ThreadID is the thread's id after the
// submission, which differs from the submitted id when it was reconciled.
type Outcome struct {
	Kind       OutcomeKind `json:"outcome"`
	ThreadID   string      `json:"thread_id,omitempty"`
	DocumentID string      `json:"document_id,omitempty"`
	Answer     string      `json:"answer,omitempty"`
	Reconciled bool        `json:"reconciled,omitempty"`
	Err        error       `json:"-"`
}

// OK reports whether the outcome is not an error.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// PendingFile is a document selected for upload.
type PendingFile struct {
	Name    string
	Content io.Reader
}

// Submission is what the user sends: a pending file, a question, or neither.
type Submission struct {
	File     *PendingFile
	Question string
}

// RequestArbiter decides whether a submission is an upload or a question and
// runs it with per-thread busy exclusion.
type RequestArbiter struct {
	store      *store.Store
	collab     Collaborator
	binder     *DocumentBinder
	reconciler *IdentityReconciler
	logger     *logger.Logger
}

// NewRequestArbiter creates a new arbiter.
func NewRequestArbiter(
	s *store.Store,
	collab Collaborator,
	binder *DocumentBinder,
	reconciler *IdentityReconciler,
	log *logger.Logger,
) *RequestArbiter {
	return &RequestArbiter{
		store:      s,
		collab:     collab,
		binder:     binder,
		reconciler: reconciler,
		logger:     log,
	}
}

// Submit runs one submission against a thread. Errors never escape as panics
// or partial writes; they are reported through the returned Outcome.
//
// Collaborator calls are detached from ctx cancellation: once started, a
// request runs to completion and its result is applied if the thread still
// exists.
func (a *RequestArbiter) Submit(ctx context.Context, threadID string, sub Submission) (out Outcome) {
	defer func() {
		metrics.RecordSubmit(string(out.Kind))
	}()

	t, ok := a.store.Snapshot().Thread(threadID)
	if !ok {
		return failure(threadID, fmt.Errorf("submit %q: %w", threadID, model.ErrNotFound))
	}
	if t.Busy != model.BusyIdle {
		return failure(threadID, fmt.Errorf("submit %q while %s: %w", threadID, t.Busy, model.ErrBusy))
	}

	switch {
	case sub.File != nil && t.Bound():
		return failure(threadID, fmt.Errorf("upload into %q: %w", threadID, model.ErrAlreadyBound))
	case sub.File != nil:
		return a.upload(context.WithoutCancel(ctx), threadID, sub.File)
	case strings.TrimSpace(sub.Question) != "" && t.Bound():
		return a.ask(context.WithoutCancel(ctx), threadID, sub.Question)
	default:
		return Outcome{Kind: OutcomeNoop, ThreadID: threadID, DocumentID: t.DocumentID}
	}
}

func (a *RequestArbiter) upload(ctx context.Context, threadID string, file *PendingFile) Outcome {
	if err := a.store.Acquire(threadID, model.BusyUploading); err != nil {
		return failure(threadID, err)
	}
	defer a.store.Release(threadID)

	// The thread may have been bound between the check in Submit and Acquire.
	if t, ok := a.store.Snapshot().Thread(threadID); ok && t.Bound() {
		return failure(threadID, fmt.Errorf("upload into %q: %w", threadID, model.ErrAlreadyBound))
	}

	resp, err := a.collab.Upload(ctx, file.Name, file.Content)
	if err != nil {
		a.logger.Warn("upload failed",
			zap.String("thread_id", threadID),
			zap.String("file", file.Name),
			zap.Error(err),
		)
		return failure(threadID, fmt.Errorf("%w: %w", model.ErrUploadFailed, err))
	}

	if err := a.binder.Bind(threadID, resp.DocumentID, file.Name); err != nil {
		return failure(threadID, err)
	}

	return Outcome{Kind: OutcomeUploaded, ThreadID: threadID, DocumentID: resp.DocumentID}
}

func (a *RequestArbiter) ask(ctx context.Context, threadID, question string) Outcome {
	if err := a.store.Acquire(threadID, model.BusyAsking); err != nil {
		return failure(threadID, err)
	}
	id := threadID
	defer func() {
		a.store.Release(id)
	}()

	// Phase 1: the user's message is committed before the call and never removed.
	if err := a.store.AppendMessage(id, model.UserMessage(question)); err != nil {
		return failure(id, err)
	}
	t, ok := a.store.Snapshot().Thread(id)
	if !ok {
		return failure(id, fmt.Errorf("ask in %q: %w", id, model.ErrNotFound))
	}

	resp, err := a.collab.Ask(ctx, &model.AskRequest{
		Question:   question,
		DocumentID: t.DocumentID,
		ChatID:     t.PersistedID(),
	})

	// Phase 2: commit either the answer or the error marker.
	if err != nil {
		a.logger.Warn("ask failed",
			zap.String("thread_id", id),
			zap.String("document_id", t.DocumentID),
			zap.Error(err),
		)
		if aerr := a.store.AppendMessage(id, model.BotMessage(AskErrorText)); aerr != nil {
			return failure(id, aerr)
		}
		return Outcome{
			Kind:       OutcomeAskFailed,
			ThreadID:   id,
			DocumentID: t.DocumentID,
			Err:        fmt.Errorf("%w: %w", model.ErrAskFailed, err),
		}
	}

	if err := a.store.AppendMessage(id, model.BotMessage(resp.Answer)); err != nil {
		return failure(id, err)
	}

	out := Outcome{Kind: OutcomeAnswered, ThreadID: id, DocumentID: t.DocumentID, Answer: resp.Answer}
	if t.Provisional() && resp.ChatID != "" && a.reconciler.Reconcile(id, resp.ChatID) {
		id = resp.ChatID
		out.ThreadID = id
		out.Reconciled = true
	}
	return out
}

// failure maps a sentinel error to its outcome kind.
func failure(threadID string, err error) Outcome {
	kind := OutcomeNotFound
	switch {
	case errors.Is(err, model.ErrBusy):
		kind = OutcomeBusy
	case errors.Is(err, model.ErrAlreadyBound):
		kind = OutcomeAlreadyBound
	case errors.Is(err, model.ErrUploadFailed):
		kind = OutcomeUploadFailed
	case errors.Is(err, model.ErrAskFailed):
		kind = OutcomeAskFailed
	}
	return Outcome{Kind: kind, ThreadID: threadID, Err: err}
}
