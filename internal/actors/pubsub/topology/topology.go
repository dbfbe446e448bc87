// Package topology declares the pubsub topics and subscriptions of the recipe lifecycle.
package topology

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/rbroggi/cookbook/internal/core/model"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Topology maps every event kind to its topic and to the worker subscription on it.
type Topology struct {
	Topics        map[model.EventKind]string
	Subscriptions map[model.EventKind]string
}

// Default returns the topology named after the event kinds: topic `recipe.created`,
// subscription `worker.recipe.created.sub` and so on.
func Default() Topology {
	t := Topology{
		Topics:        make(map[model.EventKind]string, len(model.EventKinds)),
		Subscriptions: make(map[model.EventKind]string, len(model.EventKinds)),
	}
	for _, kind := range model.EventKinds {
		t.Topics[kind] = string(kind)
		t.Subscriptions[kind] = fmt.Sprintf("worker.%s.sub", kind)
	}
	return t
}

// Validate checks that every kind has a topic and a subscription.
func (t Topology) Validate() error {
	for _, kind := range model.EventKinds {
		if t.Topics[kind] == "" {
			return fmt.Errorf("no topic configured for kind [%s]", kind)
		}
		if t.Subscriptions[kind] == "" {
			return fmt.Errorf("no subscription configured for kind [%s]", kind)
		}
	}
	return nil
}

// TopicHandles returns the client handles of the topics.
func (t Topology) TopicHandles(client *pubsub.Client) map[model.EventKind]*pubsub.Topic {
	out := make(map[model.EventKind]*pubsub.Topic, len(t.Topics))
	for kind, id := range t.Topics {
		out[kind] = client.Topic(id)
	}
	return out
}

// SubscriptionHandles returns the client handles of the subscriptions.
func (t Topology) SubscriptionHandles(client *pubsub.Client) map[model.EventKind]*pubsub.Subscription {
	out := make(map[model.EventKind]*pubsub.Subscription, len(t.Subscriptions))
	for kind, id := range t.Subscriptions {
		out[kind] = client.Subscription(id)
	}
	return out
}

// Ensure creates the missing topics and subscriptions. Existing ones are left untouched.
func Ensure(ctx context.Context, client *pubsub.Client, t Topology) error {
	if err := t.Validate(); err != nil {
		return err
	}
	for _, kind := range model.EventKinds {
		topicID := t.Topics[kind]
		topic, err := client.CreateTopic(ctx, topicID)
		switch {
		case status.Code(err) == codes.AlreadyExists:
			topic = client.Topic(topicID)
		case err != nil:
			return fmt.Errorf("error creating topic [%s]: %w", topicID, err)
		default:
			log.WithField("topic", topicID).Info("topic created")
		}

		subscriptionID := t.Subscriptions[kind]
		_, err = client.CreateSubscription(ctx, subscriptionID, pubsub.SubscriptionConfig{Topic: topic})
		switch {
		case status.Code(err) == codes.AlreadyExists:
		case err != nil:
			return fmt.Errorf("error creating subscription [%s] on topic [%s]: %w", subscriptionID, topicID, err)
		default:
			log.WithField("topic", topicID).WithField("subscription", subscriptionID).Info("subscription created")
		}
	}
	return nil
}
