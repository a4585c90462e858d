package port

import (
	"context"

	"github.com/procureops/requisition-engine/internal/domain/entity"
)

// Notifier is the notification dispatch collaborator. All methods are
// fire-and-forget: return values are logged, never consumed for control flow,
// and a failure must not affect the transition that triggered the call.
type Notifier interface {
	NotifyStatusChanged(ctx context.Context, requisitionID int64, from, to entity.Status, reason string) error
	NotifyStepApproved(ctx context.Context, requisitionID int64, step *entity.ApprovalStep) error
	NotifyStepRejected(ctx context.Context, requisitionID int64, step *entity.ApprovalStep) error
}

// Advisor produces an optional advisory note for a submitted requisition.
// Purely informational; its output never gates a transition.
type Advisor interface {
	Review(ctx context.Context, req *entity.Requisition) (string, error)
}

// AttachmentProber inspects attachment content to enrich audit metadata
// (page count for PDFs). Probing failures are non-fatal.
type AttachmentProber interface {
	PageCount(path string) (int, error)
}
