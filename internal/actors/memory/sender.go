package memory

import (
	"context"

	"github.com/rbroggi/cookbook/internal/core/model"
	"github.com/rbroggi/cookbook/internal/core/ports"
)

var _ ports.Sender = (*LoopbackSender)(nil)

// NewLoopbackSender creates a sender handing events straight to handler.
func NewLoopbackSender(handler ports.LifecycleEventHandler) *LoopbackSender {
	return &LoopbackSender{handler: handler}
}

// LoopbackSender short-circuits the broker: Send runs the handler in the caller's goroutine and
// reports its error, so the publisher retries exactly as it would on a broker failure.
type LoopbackSender struct {
	handler ports.LifecycleEventHandler
}

// Send hands a copy of the event to the handler.
func (s *LoopbackSender) Send(ctx context.Context, event model.LifecycleEvent) error {
	if event.Recipe != nil {
		snapshot := cloneRecipe(*event.Recipe)
		event.Recipe = &snapshot
	}
	return s.handler.Handle(ctx, event)
}
