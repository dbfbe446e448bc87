package subscriber

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/rbroggi/cookbook/internal/actors/pubsub/wire"
	"github.com/rbroggi/cookbook/internal/core/model"
	"github.com/rbroggi/cookbook/internal/core/ports"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// SubscriberArgs contain the mandatory arguments to build a subscriber.
type SubscriberArgs struct {
	// Subscriptions holds one pubsub subscription per event kind.
	Subscriptions map[model.EventKind]*pubsub.Subscription

	// Handler is the lifecycle event handler.
	Handler ports.LifecycleEventHandler
}

// Subscriber is a pubsub async subscriber
type Subscriber struct {
	subscriptions map[model.EventKind]*pubsub.Subscription
	handler       ports.LifecycleEventHandler
}

// NewSubscriber creates a subscriber
func NewSubscriber(args SubscriberArgs) *Subscriber {
	return &Subscriber{
		subscriptions: args.Subscriptions,
		handler:       args.Handler,
	}
}

// Consume receives from every subscription until ctx is cancelled or one of them fails.
// This is a blocking method and should be started in its own go-routine.
func (s *Subscriber) Consume(ctx context.Context) error {
	if len(s.subscriptions) == 0 {
		return errors.New("no subscription to consume from")
	}
	g, ctx := errgroup.WithContext(ctx)
	for kind, subscription := range s.subscriptions {
		kind, subscription := kind, subscription
		g.Go(func() error {
			if err := subscription.Receive(ctx, s.receiver(kind)); err != nil {
				return fmt.Errorf("error receiving messages from subscription [%s]: %w", subscription.ID(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Subscriber) receiver(kind model.EventKind) func(context.Context, *pubsub.Message) {
	return func(ctx context.Context, msg *pubsub.Message) {
		logger := log.WithField("message_id", msg.ID).WithField("subscription_kind", kind)

		event, err := wire.Decode(msg, kind)
		if err != nil {
			// redelivering a message that cannot be decoded would loop forever
			logger.WithError(err).Error("error decoding message into lifecycle event, dropping it")
			msg.Ack()
			return
		}

		if err := s.handler.Handle(ctx, *event); err != nil {
			logger.WithError(err).Error("error in lifecycle event handler")
			msg.Nack()
			return
		}
		msg.Ack()
	}
}
