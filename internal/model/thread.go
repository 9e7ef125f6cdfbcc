// Package model defines data structures for the document chat session core.
package model

import (
	"strings"
)

const (
	// ProvisionalPrefix marks thread ids minted locally before the backend persisted the thread.
	ProvisionalPrefix = "temp_"

	// DefaultThreadTitle is the title of a freshly created thread.
	DefaultThreadTitle = "New Chat"
)

// Busy is the in-flight operation of a thread. The zero value means idle.
type Busy string

const (
	BusyIdle      Busy = ""
	BusyUploading Busy = "uploading"
	BusyAsking    Busy = "asking"
)

// Thread is one conversation, optionally bound to a document.
type Thread struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	DocumentID string    `json:"document_id,omitempty"`
	Messages   []Message `json:"messages"`
	Busy       Busy      `json:"busy,omitempty"`
}

// IsProvisional reports whether id was minted locally.
func IsProvisional(id string) bool {
	return strings.HasPrefix(id, ProvisionalPrefix)
}

// Provisional reports whether the thread still carries a locally minted id.
func (t *Thread) Provisional() bool {
	return IsProvisional(t.ID)
}

// Bound reports whether a document is attached to the thread.
func (t *Thread) Bound() bool {
	return t.DocumentID != ""
}

// PersistedID returns the backend id of the thread, or nil while it is provisional.
func (t *Thread) PersistedID() *string {
	if t.Provisional() {
		return nil
	}
	id := t.ID
	return &id
}

// Clone returns a deep copy of the thread.
func (t Thread) Clone() Thread {
	msgs := make([]Message, len(t.Messages))
	copy(msgs, t.Messages)
	t.Messages = msgs
	return t
}

// DocumentDescriptor describes one uploaded document.
type DocumentDescriptor struct {
	DocumentID string `json:"documentId"`
	Name       string `json:"name"`
}
