package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/capitalize-ai/docchat/internal/model"
	"github.com/capitalize-ai/docchat/internal/store"
	"github.com/capitalize-ai/docchat/pkg/metrics"
)

const (
	// StreamName is the name of the session events stream.
	StreamName = "DOCCHAT_EVENTS"

	// SubjectPrefix is the prefix for all session event subjects.
	SubjectPrefix = "docchat"
)

// EventPublisher forwards committed store events to JetStream.
type EventPublisher struct {
	client *Client
}

// NewEventPublisher creates a new event publisher.
func NewEventPublisher(client *Client) *EventPublisher {
	return &EventPublisher{client: client}
}

// EnsureStream ensures the events stream exists.
func (p *EventPublisher) EnsureStream(ctx context.Context) error {
	js := p.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Document chat session store events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// EventSubject returns the subject an event of userID is published on.
func EventSubject(userID string, ev model.StoreEvent) string {
	thread := ev.ThreadID
	if thread == "" {
		thread = "_"
	}
	return fmt.Sprintf("%s.%s.%s.event.%s", SubjectPrefix, token(userID), token(thread), ev.Type)
}

// token makes s usable as a single subject token.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}

// Observer returns a store observer publishing the events of userID. Publishes
// are asynchronous so the store is never blocked on the network.
func (p *EventPublisher) Observer(userID string) store.Observer {
	return func(ev model.StoreEvent, _ *store.Snapshot) {
		data, err := json.Marshal(ev)
		if err != nil {
			metrics.EventsPublished.WithLabelValues(string(ev.Type), "error").Inc()
			return
		}

		if _, err := p.client.JetStream().PublishAsync(EventSubject(userID, ev), data); err != nil {
			p.client.logger.Warn("failed to publish store event",
				zap.String("type", string(ev.Type)),
				zap.String("thread_id", ev.ThreadID),
				zap.Error(err),
			)
			metrics.EventsPublished.WithLabelValues(string(ev.Type), "error").Inc()
			return
		}
		metrics.EventsPublished.WithLabelValues(string(ev.Type), "success").Inc()
	}
}
