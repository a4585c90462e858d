package dispatcher

import (
	"context"

	"github.com/procureops/requisition-engine/internal/domain/event"
)

// Handler is one post-commit hook. It runs after the transactional core of a
// transition has committed; its error is logged and swallowed, never
// propagated to the caller of the transition.
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo contains handler metadata for debugging
type HandlerInfo struct {
	Name      string
	EventType event.Type
	Handler   Handler
}
