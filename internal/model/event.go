package model

// EventType names a committed store mutation.
type EventType string

const (
	EventThreadCreated    EventType = "thread_created"
	EventThreadSelected   EventType = "thread_selected"
	EventMessageAppended  EventType = "message_appended"
	EventThreadUpdated    EventType = "thread_updated"
	EventThreadReconciled EventType = "thread_reconciled"
	EventThreadsReplaced  EventType = "threads_replaced"
	EventBusyChanged      EventType = "busy_changed"
)

// StoreEvent describes a committed mutation. It is what observers outside the
// process (SSE clients, the NATS publisher) receive.
type StoreEvent struct {
	Version    uint64    `json:"version"`
	Type       EventType `json:"type"`
	ThreadID   string    `json:"thread_id,omitempty"`
	PreviousID string    `json:"previous_id,omitempty"`
	ActiveID   string    `json:"active_id,omitempty"`
	Thread     *Thread   `json:"thread,omitempty"`
}

// ThreadList is the JSON shape of a whole snapshot.
type ThreadList struct {
	Version  uint64   `json:"version"`
	ActiveID string   `json:"active_id,omitempty"`
	Threads  []Thread `json:"threads"`
}
