package nats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/capitalize-ai/docchat/internal/model"
)

func TestEventSubject(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		ev     model.StoreEvent
		want   string
	}{
		{
			name:   "thread event",
			userID: "user-1",
			ev:     model.StoreEvent{Type: model.EventMessageAppended, ThreadID: "temp_1"},
			want:   "docchat.user-1.temp_1.event.message_appended",
		},
		{
			name:   "store-wide event",
			userID: "user-1",
			ev:     model.StoreEvent{Type: model.EventThreadsReplaced},
			want:   "docchat.user-1._.event.threads_replaced",
		},
		{
			name:   "unsafe tokens",
			userID: "a.b@example.com",
			ev:     model.StoreEvent{Type: model.EventThreadReconciled, ThreadID: "x>y*"},
			want:   "docchat.a_b@example_com.x_y_.event.thread_reconciled",
		},
		{
			name: "anonymous",
			ev:   model.StoreEvent{Type: model.EventThreadCreated, ThreadID: "temp_2"},
			want: "docchat._.temp_2.event.thread_created",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EventSubject(tt.userID, tt.ev))
		})
	}
}

func TestIsConnected_NilClient(t *testing.T) {
	var c *Client
	assert.False(t, c.IsConnected())
}
