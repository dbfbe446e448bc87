package ports

import (
	"context"

	"github.com/rbroggi/cookbook/internal/core/model"
)

// Sender is the port for publishing outbound recipe lifecycle events.
type Sender interface {
	// Send durably hands the event over to the broker. It returns once the broker acknowledged it.
	Send(ctx context.Context, event model.LifecycleEvent) error
}
