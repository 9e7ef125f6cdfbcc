package model

import "errors"

var (
	// ErrNotFound is returned when an operation references a thread that is not in the store.
	ErrNotFound = errors.New("thread not found")

	// ErrAlreadyBound is returned when a thread already has a document. The caller should
	// start a new thread instead of retrying.
	ErrAlreadyBound = errors.New("thread already bound to a document")

	// ErrBusy is returned when another operation is in flight on the same thread.
	ErrBusy = errors.New("thread is busy")

	// ErrHistoryRewritten is returned when an update changes or drops committed messages.
	ErrHistoryRewritten = errors.New("message history is append-only")

	// ErrUploadFailed wraps collaborator failures during upload.
	ErrUploadFailed = errors.New("upload failed")

	// ErrAskFailed wraps collaborator failures during ask.
	ErrAskFailed = errors.New("ask failed")
)
