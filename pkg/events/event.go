package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g. "CHAT_JOB_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Dispatcher delivers events to whichever bus is configured (NATS or the
// in-process channel bus). Dispatch is best-effort from the caller's point
// of view; callers log failures and move on.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event) error
}

// BaseEvent is the common concrete implementation.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewJobEvent builds a chat-job lifecycle event.
func NewJobEvent(eventType string, jobID, threadID uuid.UUID, detail map[string]interface{}) BaseEvent {
	data := map[string]interface{}{
		"job_id":    jobID.String(),
		"thread_id": threadID.String(),
	}
	for k, v := range detail {
		data[k] = v
	}
	return BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
}
