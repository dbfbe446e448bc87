package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/rbroggi/cookbook/internal/core/model"
)

// UpsertOutcome tells what an index did with a snapshot.
type UpsertOutcome int

const (
	// UpsertApplied means the snapshot is now the indexed state.
	UpsertApplied UpsertOutcome = iota

	// UpsertStale means an equal or newer version was already indexed.
	UpsertStale

	// UpsertRemoved means the recipe was removed and the snapshot was dropped.
	UpsertRemoved
)

// String returns the outcome name.
func (o UpsertOutcome) String() string {
	switch o {
	case UpsertApplied:
		return "applied"
	case UpsertStale:
		return "stale"
	case UpsertRemoved:
		return "removed"
	}
	return "unknown"
}

// RecipeIndex is the downstream search index fed by lifecycle events.
type RecipeIndex interface {
	// Upsert indexes the snapshot unless a snapshot with the same or a higher version is already
	// indexed or the recipe was removed.
	Upsert(ctx context.Context, recipe model.Recipe) (UpsertOutcome, error)

	// Remove drops the recipe and leaves a tombstone so that late snapshots are ignored.
	// It reports whether an indexed recipe was dropped.
	Remove(ctx context.Context, id uuid.UUID) (bool, error)
}

// Notifier delivers "new recipe" notifications to followers.
type Notifier interface {
	// Notify tells each follower about the recipe. Followers already notified about the same recipe
	// are skipped. It returns the amount of notifications actually delivered.
	Notify(ctx context.Context, recipe model.Recipe, followerIDs []uuid.UUID) (int, error)
}
