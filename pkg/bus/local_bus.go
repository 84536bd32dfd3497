package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"agent-chat-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// LocalBus is the in-process fallback dispatcher used when NATS is not
// configured. Topics are event types; delivery is per-process only.
type LocalBus struct {
	pubSub *gochannel.GoChannel
}

var _ events.Dispatcher = &LocalBus{}

func NewLocalBus() *LocalBus {
	return &LocalBus{
		pubSub: gochannel.NewGoChannel(
			gochannel.Config{},
			watermill.NewStdLogger(false, false),
		),
	}
}

// envelope is the wire form on the channel bus; the payload keeps the event
// type so handlers do not depend on topic naming.
type envelope struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt string                 `json:"occurred_at"`
}

func (b *LocalBus) Dispatch(ctx context.Context, event events.Event) error {
	data, err := json.Marshal(envelope{
		Type:       event.EventType(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp().Format("2006-01-02T15:04:05.000Z07:00"),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return b.pubSub.Publish(event.EventType(), message.NewMessage(watermill.NewUUID(), data))
}

// Subscribe returns the raw watermill channel for a topic.
func (b *LocalBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubSub.Subscribe(ctx, topic)
}

// Decode unpacks a bus message back into a BaseEvent.
func Decode(msg *message.Message) (events.BaseEvent, error) {
	var env envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		return events.BaseEvent{}, fmt.Errorf("failed to decode event: %w", err)
	}
	return events.BaseEvent{Type: env.Type, Data: env.Data}, nil
}

// Close shuts the bus down; pending subscribers are released.
func (b *LocalBus) Close() error {
	return b.pubSub.Close()
}
