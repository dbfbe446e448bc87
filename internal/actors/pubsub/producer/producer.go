package producer

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/rbroggi/cookbook/internal/actors/pubsub/wire"
	"github.com/rbroggi/cookbook/internal/core/model"
	"github.com/rbroggi/cookbook/internal/core/ports"
)

var _ ports.Sender = (*Producer)(nil)

// NewProducer creates a new producer publishing every event kind on its own topic.
func NewProducer(topics map[model.EventKind]*pubsub.Topic) (*Producer, error) {
	for _, kind := range model.EventKinds {
		if topics[kind] == nil {
			return nil, fmt.Errorf("topic for kind [%s] is nil", kind)
		}
	}
	return &Producer{topics: topics}, nil
}

// Producer is the pubsub producer of recipe lifecycle events.
type Producer struct {
	topics map[model.EventKind]*pubsub.Topic
}

// Send publishes the event and waits for the broker acknowledgement.
func (p *Producer) Send(ctx context.Context, event model.LifecycleEvent) error {
	topic, ok := p.topics[event.Kind]
	if !ok {
		return model.Invalid("no topic for event kind [%s]", event.Kind)
	}
	msg, err := wire.Encode(event)
	if err != nil {
		return fmt.Errorf("error encoding lifecycle event [%s]: %w", event.ID, err)
	}

	result := topic.Publish(ctx, msg)
	// Block until the result is returned and a server-generated
	// ID is returned for the published message.
	if _, err := result.Get(ctx); err != nil {
		return model.Infrastructure(fmt.Errorf("pubsub: result.Get: %w", err))
	}
	return nil
}

// Stop flushes pending messages and stops the publishing goroutines of every topic.
func (p *Producer) Stop() {
	for _, topic := range p.topics {
		topic.Stop()
	}
}
