package usecase

import (
	"context"
	"fmt"

	"github.com/rbroggi/cookbook/internal/core/model"
	"github.com/rbroggi/cookbook/internal/core/ports"
	"github.com/rbroggi/cookbook/internal/metrics"
	log "github.com/sirupsen/logrus"
)

// LifecycleEventConsumerArgs contains the mandatory arguments for the LifecycleEventConsumer.
type LifecycleEventConsumerArgs struct {
	// Index is the projection kept in sync with the recipe store.
	Index ports.RecipeIndex

	// Notifier delivers publication notifications.
	Notifier ports.Notifier

	// Follows resolves the followers of an author.
	Follows ports.FollowRepository
}

// NewLifecycleEventConsumer builds a new consumer.
func NewLifecycleEventConsumer(args LifecycleEventConsumerArgs) *LifecycleEventConsumer {
	return &LifecycleEventConsumer{index: args.Index, notifier: args.Notifier, follows: args.Follows}
}

// LifecycleEventConsumer projects recipe lifecycle events onto the search index and notifies
// followers about publications. Events may arrive duplicated and out of order: the index keeps
// the highest version it saw and ignores snapshots of removed recipes.
type LifecycleEventConsumer struct {
	index    ports.RecipeIndex
	notifier ports.Notifier
	follows  ports.FollowRepository
}

// Handle processes one event. Malformed events are logged and dropped; infrastructure failures
// are returned so that the event is redelivered.
func (c *LifecycleEventConsumer) Handle(ctx context.Context, event model.LifecycleEvent) error {
	logger := eventLogger(event)

	if !event.Kind.Valid() {
		c.count(event.Kind, metrics.OutcomeReject)
		logger.Warn("dropping lifecycle event of unknown kind")
		return nil
	}
	if event.Kind.CarriesSnapshot() && (event.Recipe == nil || event.Recipe.ID != event.RecipeID) {
		c.count(event.Kind, metrics.OutcomeReject)
		logger.Warn("dropping lifecycle event without a matching recipe snapshot")
		return nil
	}

	var err error
	switch event.Kind {
	case model.EventKindCreated, model.EventKindUpdated:
		_, err = c.upsert(ctx, logger, event)
	case model.EventKindPublished:
		err = c.handlePublished(ctx, logger, event)
	case model.EventKindDeleted:
		err = c.handleDeleted(ctx, logger, event)
	}
	if err != nil {
		c.count(event.Kind, metrics.OutcomeFailed)
		return fmt.Errorf("error handling lifecycle event ID [%s]: %w", event.ID, err)
	}
	return nil
}

func (c *LifecycleEventConsumer) upsert(ctx context.Context, logger *log.Entry, event model.LifecycleEvent) (ports.UpsertOutcome, error) {
	outcome, err := c.index.Upsert(ctx, *event.Recipe)
	if err != nil {
		return outcome, fmt.Errorf("error indexing recipe [%s]: %w", event.RecipeID, err)
	}
	switch outcome {
	case ports.UpsertApplied:
		c.count(event.Kind, metrics.OutcomeApplied)
	default:
		c.count(event.Kind, metrics.OutcomeStale)
	}
	logger.WithField("version", event.Recipe.Version).WithField("outcome", outcome.String()).Debug("recipe snapshot indexed")
	return outcome, nil
}

func (c *LifecycleEventConsumer) handlePublished(ctx context.Context, logger *log.Entry, event model.LifecycleEvent) error {
	outcome, err := c.upsert(ctx, logger, event)
	if err != nil {
		return err
	}
	if outcome == ports.UpsertRemoved {
		return nil
	}

	followers, err := c.follows.FollowerIDs(ctx, event.Recipe.AuthorID)
	if err != nil {
		return fmt.Errorf("error resolving followers of [%s]: %w", event.Recipe.AuthorID, err)
	}
	if len(followers) == 0 {
		return nil
	}
	delivered, err := c.notifier.Notify(ctx, *event.Recipe, followers)
	metrics.NotificationsDelivered.Add(float64(delivered))
	if err != nil {
		return fmt.Errorf("error notifying followers of [%s]: %w", event.Recipe.AuthorID, err)
	}
	logger.WithField("notified", delivered).Info("followers notified about published recipe")
	return nil
}

func (c *LifecycleEventConsumer) handleDeleted(ctx context.Context, logger *log.Entry, event model.LifecycleEvent) error {
	removed, err := c.index.Remove(ctx, event.RecipeID)
	if err != nil {
		return fmt.Errorf("error removing recipe [%s] from index: %w", event.RecipeID, err)
	}
	if removed {
		c.count(event.Kind, metrics.OutcomeApplied)
	} else {
		c.count(event.Kind, metrics.OutcomeStale)
	}
	logger.WithField("removed", removed).Debug("recipe removed from index")
	return nil
}

func (c *LifecycleEventConsumer) count(kind model.EventKind, outcome string) {
	metrics.LifecycleEventsConsumed.WithLabelValues(string(kind), outcome).Inc()
}
