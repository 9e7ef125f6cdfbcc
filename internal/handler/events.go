package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/docchat/internal/middleware"
	"github.com/capitalize-ai/docchat/internal/model"
	"github.com/capitalize-ai/docchat/internal/registry"
	"github.com/capitalize-ai/docchat/internal/store"
	"github.com/capitalize-ai/docchat/pkg/logger"
	"github.com/capitalize-ai/docchat/pkg/metrics"
)

// DefaultHeartbeat is the interval between keep-alive events.
const DefaultHeartbeat = 30 * time.Second

// eventBuffer is how many store events may queue per connection before the
// client is told to resynchronize.
const eventBuffer = 64

// HeartbeatEvent is sent periodically to keep the connection alive.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// EventHandler streams store events to the client over SSE.
type EventHandler struct {
	sessions  *registry.Registry
	logger    *logger.Logger
	heartbeat time.Duration
}

// NewEventHandler creates a new event handler.
func NewEventHandler(sessions *registry.Registry, heartbeat time.Duration, log *logger.Logger) *EventHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &EventHandler{
		sessions:  sessions,
		logger:    log,
		heartbeat: heartbeat,
	}
}

// Stream handles GET /api/v1/events
// The stream opens with a "snapshot" event holding the current thread list,
// followed by one event per committed store mutation. When the client falls
// behind, a fresh snapshot replaces the dropped events.
func (h *EventHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	sess := session(h.sessions, r)

	events := make(chan model.StoreEvent, eventBuffer)
	overflow := make(chan struct{}, 1)
	unsubscribe := sess.Store.Subscribe(func(ev model.StoreEvent, _ *store.Snapshot) {
		select {
		case events <- ev:
		default:
			select {
			case overflow <- struct{}{}:
			default:
			}
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	sendSSEEvent(w, flusher, "snapshot", sess.Store.Snapshot().List())

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("SSE client disconnected", zap.String("user_id", userID))
			return

		case ev := <-events:
			if err := sendSSEEvent(w, flusher, string(ev.Type), ev); err != nil {
				h.logger.Warn("failed to write event", zap.String("user_id", userID), zap.Error(err))
				return
			}

		case <-overflow:
			// Drain what is queued; the snapshot supersedes it.
			for len(events) > 0 {
				<-events
			}
			h.logger.Warn("SSE client fell behind, resynchronizing", zap.String("user_id", userID))
			sendSSEEvent(w, flusher, "snapshot", sess.Store.Snapshot().List())

		case <-heartbeat.C:
			sendSSEEvent(w, flusher, "heartbeat", &HeartbeatEvent{
				Timestamp: time.Now(),
			})
		}
	}
}

// sendSSEEvent writes an SSE event.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	flusher.Flush()

	return nil
}
