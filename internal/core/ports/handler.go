package ports

import (
	"context"

	"github.com/rbroggi/cookbook/internal/core/model"
)

// LifecycleEventHandler handles incoming recipe lifecycle events.
type LifecycleEventHandler interface {
	// Handle will receive an incoming lifecycle event and handle it. Returning an error asks for
	// redelivery, so implementations must tolerate seeing the same event again.
	Handle(ctx context.Context, event model.LifecycleEvent) error
}
