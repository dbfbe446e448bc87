package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rbroggi/cookbook/internal/core/model"
	"github.com/rbroggi/cookbook/internal/core/ports"
	"github.com/rbroggi/cookbook/internal/metrics"
	log "github.com/sirupsen/logrus"
)

// LifecycleEventPublisherArgs contains the mandatory arguments for the LifecycleEventPublisher.
type LifecycleEventPublisherArgs struct {
	// Sender hands events over to the broker.
	Sender ports.Sender
}

// LifecycleEventPublisherOptArgs are the optional arguments for building a LifecycleEventPublisher.
type LifecycleEventPublisherOptArgs = func(*LifecycleEventPublisher)

// WithWorkers sets the amount of delivery goroutines.
func WithWorkers(n int) LifecycleEventPublisherOptArgs {
	return func(p *LifecycleEventPublisher) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithBufferSize sets the amount of events buffered before enqueueing blocks.
func WithBufferSize(n int) LifecycleEventPublisherOptArgs {
	return func(p *LifecycleEventPublisher) {
		if n >= 0 {
			p.bufferSize = n
		}
	}
}

// WithMaxRetries sets the amount of delivery retries after the first attempt.
func WithMaxRetries(n uint64) LifecycleEventPublisherOptArgs {
	return func(p *LifecycleEventPublisher) {
		p.maxRetries = n
	}
}

// WithEnqueueTimeout bounds how long enqueueing waits on a full buffer.
func WithEnqueueTimeout(d time.Duration) LifecycleEventPublisherOptArgs {
	return func(p *LifecycleEventPublisher) {
		p.enqueueTimeout = d
	}
}

// WithBackOff overrides the retry policy between delivery attempts. Useful for testing.
func WithBackOff(newBackOff func() backoff.BackOff) LifecycleEventPublisherOptArgs {
	return func(p *LifecycleEventPublisher) {
		p.newBackOff = newBackOff
	}
}

// WithPublisherNowFunc overrides the clock stamping events. Useful for testing.
func WithPublisherNowFunc(nowFunc func() time.Time) LifecycleEventPublisherOptArgs {
	return func(p *LifecycleEventPublisher) {
		p.nowFunc = nowFunc
	}
}

// NewLifecycleEventPublisher builds a new publisher. Events are buffered until Start is called.
func NewLifecycleEventPublisher(args LifecycleEventPublisherArgs, optArgs ...LifecycleEventPublisherOptArgs) *LifecycleEventPublisher {
	p := &LifecycleEventPublisher{
		sender:         args.Sender,
		workers:        4,
		bufferSize:     1024,
		maxRetries:     5,
		enqueueTimeout: 2 * time.Second,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range optArgs {
		opt(p)
	}
	p.queue = make(chan model.LifecycleEvent, p.bufferSize)
	return p
}

// LifecycleEventPublisher decouples the write path from the broker: events are enqueued without
// waiting for delivery and a pool of workers hands them to the Sender, retrying transient failures.
// A failure never reaches the caller of the mutation; lost events are logged and counted.
type LifecycleEventPublisher struct {
	sender         ports.Sender
	workers        int
	bufferSize     int
	maxRetries     uint64
	enqueueTimeout time.Duration
	newBackOff     func() backoff.BackOff
	nowFunc        func() time.Time

	queue     chan model.LifecycleEvent
	mu        sync.RWMutex
	closed    bool
	startOnce sync.Once
	wg        sync.WaitGroup
}

// Start launches the delivery workers. Deliveries use ctx, so it should outlive Close.
func (p *LifecycleEventPublisher) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				for event := range p.queue {
					metrics.PublisherQueueDepth.Set(float64(len(p.queue)))
					p.deliver(ctx, event)
				}
			}()
		}
	})
}

// Close stops accepting events, delivers the buffered ones and waits for the workers.
func (p *LifecycleEventPublisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()
	p.wg.Wait()
}

// PublishCreated announces a newly created recipe.
func (p *LifecycleEventPublisher) PublishCreated(ctx context.Context, recipe model.Recipe) {
	p.enqueue(ctx, p.newEvent(model.EventKindCreated, recipe.ID, &recipe))
}

// PublishUpdated announces an updated recipe.
func (p *LifecycleEventPublisher) PublishUpdated(ctx context.Context, recipe model.Recipe) {
	p.enqueue(ctx, p.newEvent(model.EventKindUpdated, recipe.ID, &recipe))
}

// PublishPublished announces a published recipe.
func (p *LifecycleEventPublisher) PublishPublished(ctx context.Context, recipe model.Recipe) {
	p.enqueue(ctx, p.newEvent(model.EventKindPublished, recipe.ID, &recipe))
}

// PublishDeleted announces a deleted recipe. Only the id travels.
func (p *LifecycleEventPublisher) PublishDeleted(ctx context.Context, recipeID uuid.UUID) {
	p.enqueue(ctx, p.newEvent(model.EventKindDeleted, recipeID, nil))
}

func (p *LifecycleEventPublisher) newEvent(kind model.EventKind, recipeID uuid.UUID, recipe *model.Recipe) model.LifecycleEvent {
	return model.LifecycleEvent{
		ID:         uuid.NewString(),
		Kind:       kind,
		RecipeID:   recipeID,
		Recipe:     recipe,
		OccurredAt: p.nowFunc(),
	}
}

func (p *LifecycleEventPublisher) enqueue(ctx context.Context, event model.LifecycleEvent) {
	logger := eventLogger(event)

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.lost(logger, event, errors.New("publisher is closed"))
		return
	}

	select {
	case p.queue <- event:
		metrics.PublisherQueueDepth.Set(float64(len(p.queue)))
		return
	default:
	}

	timer := time.NewTimer(p.enqueueTimeout)
	defer timer.Stop()
	select {
	case p.queue <- event:
		metrics.PublisherQueueDepth.Set(float64(len(p.queue)))
	case <-timer.C:
		p.lost(logger, event, errors.New("publisher buffer is full"))
	case <-ctx.Done():
		p.lost(logger, event, ctx.Err())
	}
}

func (p *LifecycleEventPublisher) deliver(ctx context.Context, event model.LifecycleEvent) {
	logger := eventLogger(event)
	op := func() error {
		err := p.sender.Send(ctx, event)
		if errors.Is(err, model.ErrValidation) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		metrics.LifecycleEventsPublished.WithLabelValues(string(event.Kind), metrics.OutcomeRetried).Inc()
		logger.WithError(err).WithField("retry_in", next.String()).Warn("error sending lifecycle event, retrying")
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(p.newBackOff(), p.maxRetries), ctx)
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		p.lost(logger, event, err)
		return
	}
	metrics.LifecycleEventsPublished.WithLabelValues(string(event.Kind), metrics.OutcomeSent).Inc()
	logger.Debug("lifecycle event sent")
}

func (p *LifecycleEventPublisher) lost(logger *log.Entry, event model.LifecycleEvent, err error) {
	metrics.LifecycleEventsPublished.WithLabelValues(string(event.Kind), metrics.OutcomeLost).Inc()
	logger.WithError(err).Error("lifecycle event lost")
}

func eventLogger(event model.LifecycleEvent) *log.Entry {
	return log.
		WithField("event_id", event.ID).
		WithField("kind", event.Kind).
		WithField("recipe_id", event.RecipeID)
}
