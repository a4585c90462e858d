package port

import (
	"context"
	"time"

	"github.com/procureops/requisition-engine/internal/domain/entity"
)

// RequisitionRepository defines persistence operations for Requisition
type RequisitionRepository interface {
	Create(ctx context.Context, req *entity.Requisition) error
	GetByID(ctx context.Context, id int64) (*entity.Requisition, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Requisition, error)

	// UpdateStatus flips the status with an optimistic version check:
	// the row is updated only when its version still equals expectedVersion,
	// and the version is incremented. Returns entity.ErrVersionConflict when
	// a concurrent transition committed first.
	UpdateStatus(ctx context.Context, id int64, status entity.Status, expectedVersion int64) error
}

// StepRepository defines persistence operations for ApprovalStep
type StepRepository interface {
	// BulkCreate inserts all steps of a requisition in one call. Positions
	// must already be 0..n-1.
	BulkCreate(ctx context.Context, steps []*entity.ApprovalStep) error
	GetByID(ctx context.Context, id int64) (*entity.ApprovalStep, error)
	// GetByRequisitionID returns all steps ordered by position.
	GetByRequisitionID(ctx context.Context, requisitionID int64) ([]*entity.ApprovalStep, error)
	// GetPending returns PENDING steps ordered by position.
	GetPending(ctx context.Context, requisitionID int64) ([]*entity.ApprovalStep, error)
	CountByRequisitionID(ctx context.Context, requisitionID int64) (int, error)

	// Decide records a step decision with a conditional update: only a step
	// still PENDING is affected. Returns entity.ErrNotPending when the step
	// was already decided, which is the loser's signal in a concurrent race.
	Decide(ctx context.Context, id int64, status entity.StepStatus, actorID, comment string, decidedAt time.Time) error

	// DecideAllPending applies one decision to every PENDING step of a
	// requisition and returns how many rows changed.
	DecideAllPending(ctx context.Context, requisitionID int64, status entity.StepStatus, actorID, comment string, decidedAt time.Time) (int, error)
}

// RuleRepository defines persistence operations for ApprovalRule
type RuleRepository interface {
	Create(ctx context.Context, rule *entity.ApprovalRule) error
	GetByID(ctx context.Context, id int64) (*entity.ApprovalRule, error)
	Update(ctx context.Context, rule *entity.ApprovalRule) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*entity.ApprovalRule, error)
	ListActive(ctx context.Context) ([]*entity.ApprovalRule, error)
}

// AuditRepository defines persistence operations for AuditEntry.
// Append-only: there are no update or delete operations.
type AuditRepository interface {
	Append(ctx context.Context, entry *entity.AuditEntry) error
	GetByRequisitionID(ctx context.Context, requisitionID int64) ([]*entity.AuditEntry, error)
	List(ctx context.Context, limit, offset int) ([]*entity.AuditEntry, error)
}

// AttachmentRepository defines persistence operations for Attachment metadata
type AttachmentRepository interface {
	Create(ctx context.Context, att *entity.Attachment) error
	GetByID(ctx context.Context, id int64) (*entity.Attachment, error)
	GetByRequisitionID(ctx context.Context, requisitionID int64) ([]*entity.Attachment, error)
	Delete(ctx context.Context, id int64) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
