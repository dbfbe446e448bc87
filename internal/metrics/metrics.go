// Package metrics holds the prometheus collectors of the recipe service and worker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cookbook"

// Outcome label values.
const (
	OutcomeSent    = "sent"
	OutcomeRetried = "retried"
	OutcomeLost    = "lost"
	OutcomeApplied = "applied"
	OutcomeStale   = "stale"
	OutcomeFailed  = "failed"
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeReject  = "rejected"
)

var (
	// LifecycleEventsPublished counts publisher outcomes per event kind.
	LifecycleEventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_events_published_total",
			Help:      "Recipe lifecycle events handed to the broker, by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// LifecycleEventsConsumed counts consumer outcomes per event kind.
	LifecycleEventsConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_events_consumed_total",
			Help:      "Recipe lifecycle events processed by the worker, by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// NotificationsDelivered counts follower notifications.
	NotificationsDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_delivered_total",
			Help:      "Follower notifications delivered for published recipes",
		},
	)

	// PublisherQueueDepth is the amount of events waiting for delivery.
	PublisherQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "publisher_queue_depth",
			Help:      "Lifecycle events buffered in the publisher",
		},
	)

	// RecipeQueries counts recipe queries per path.
	RecipeQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recipe_queries_total",
			Help:      "Recipe queries served, by path and outcome",
		},
		[]string{"path", "outcome"},
	)

	// RecipeQueryDuration observes store latency of recipe queries.
	RecipeQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recipe_query_duration_seconds",
			Help:      "Duration of recipe queries against the store",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path"},
	)
)

// Register registers every collector in reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		LifecycleEventsPublished,
		LifecycleEventsConsumed,
		NotificationsDelivered,
		PublisherQueueDepth,
		RecipeQueries,
		RecipeQueryDuration,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
