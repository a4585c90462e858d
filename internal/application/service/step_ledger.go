package service

import (
	"context"
	"fmt"
	"time"

	"github.com/procureops/requisition-engine/internal/application/port"
	"github.com/procureops/requisition-engine/internal/domain/entity"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// StepLedger owns the per-requisition set of approval step records and their
// individual states. Steps are strictly sequential: only the lowest-position
// PENDING step may be decided.
type StepLedger interface {
	// CreateSteps bulk-inserts the resolved step list at positions 0..n-1,
	// all PENDING. Fails with entity.ErrStepsExist when the requisition
	// already has steps.
	CreateSteps(ctx context.Context, requisitionID int64, defs []entity.StepDef) ([]*entity.ApprovalStep, error)

	// NextPendingStep returns the lowest-position PENDING step, or nil when
	// all steps are decided or none exist.
	NextPendingStep(ctx context.Context, requisitionID int64) (*entity.ApprovalStep, error)

	// PendingSteps returns all PENDING steps ordered by position.
	PendingSteps(ctx context.Context, requisitionID int64) ([]*entity.ApprovalStep, error)

	// StepsFor returns all steps ordered by position.
	StepsFor(ctx context.Context, requisitionID int64) ([]*entity.ApprovalStep, error)

	// ApproveStep marks the step APPROVED, recording actor and timestamp.
	ApproveStep(ctx context.Context, stepID int64, actor entity.Actor, comment string) (*entity.ApprovalStep, error)

	// RejectStep marks the step REJECTED. Rejection of any single step is
	// terminal for the whole requisition; the caller owns that transition.
	RejectStep(ctx context.Context, stepID int64, actor entity.Actor, comment string) (*entity.ApprovalStep, error)

	// RejectAllPending rejects every currently-PENDING step in one
	// operation and returns how many were rejected.
	RejectAllPending(ctx context.Context, requisitionID int64, actor entity.Actor, comment string) (int, error)
}

type stepLedgerImpl struct {
	stepRepo port.StepRepository
	logger   Logger
}

// NewStepLedger creates a new StepLedger
func NewStepLedger(stepRepo port.StepRepository, logger Logger) StepLedger {
	return &stepLedgerImpl{
		stepRepo: stepRepo,
		logger:   logger,
	}
}

// CreateSteps bulk-inserts the resolved step list
func (l *stepLedgerImpl) CreateSteps(ctx context.Context, requisitionID int64, defs []entity.StepDef) ([]*entity.ApprovalStep, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: step list must not be empty", entity.ErrValidation)
	}

	existing, err := l.stepRepo.CountByRequisitionID(ctx, requisitionID)
	if err != nil {
		return nil, fmt.Errorf("count steps: %w", err)
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: requisition %d has %d steps", entity.ErrStepsExist, requisitionID, existing)
	}

	now := time.Now()
	steps := make([]*entity.ApprovalStep, len(defs))
	for i, def := range defs {
		steps[i] = &entity.ApprovalStep{
			RequisitionID: requisitionID,
			Position:      i,
			Role:          def.Role,
			AssigneeID:    def.AssigneeID,
			Status:        entity.StepPending,
			CreatedAt:     now,
		}
	}

	if err := l.stepRepo.BulkCreate(ctx, steps); err != nil {
		return nil, fmt.Errorf("create steps: %w", err)
	}

	l.logger.Info("Approval steps created",
		"requisition_id", requisitionID,
		"count", len(steps),
	)
	return steps, nil
}

// NextPendingStep returns the lowest-position pending step
func (l *stepLedgerImpl) NextPendingStep(ctx context.Context, requisitionID int64) (*entity.ApprovalStep, error) {
	pending, err := l.stepRepo.GetPending(ctx, requisitionID)
	if err != nil {
		return nil, fmt.Errorf("get pending steps: %w", err)
	}
	if len(pending) == 0 {
		return nil, nil
	}
	return pending[0], nil
}

// PendingSteps returns all pending steps ordered by position
func (l *stepLedgerImpl) PendingSteps(ctx context.Context, requisitionID int64) ([]*entity.ApprovalStep, error) {
	return l.stepRepo.GetPending(ctx, requisitionID)
}

// StepsFor returns all steps ordered by position
func (l *stepLedgerImpl) StepsFor(ctx context.Context, requisitionID int64) ([]*entity.ApprovalStep, error) {
	return l.stepRepo.GetByRequisitionID(ctx, requisitionID)
}

// ApproveStep marks the step APPROVED
func (l *stepLedgerImpl) ApproveStep(ctx context.Context, stepID int64, actor entity.Actor, comment string) (*entity.ApprovalStep, error) {
	return l.decide(ctx, stepID, entity.StepApproved, actor, comment)
}

// RejectStep marks the step REJECTED
func (l *stepLedgerImpl) RejectStep(ctx context.Context, stepID int64, actor entity.Actor, comment string) (*entity.ApprovalStep, error) {
	return l.decide(ctx, stepID, entity.StepRejected, actor, comment)
}

// decide validates preconditions and records a single-step decision
func (l *stepLedgerImpl) decide(ctx context.Context, stepID int64, status entity.StepStatus, actor entity.Actor, comment string) (*entity.ApprovalStep, error) {
	step, err := l.stepRepo.GetByID(ctx, stepID)
	if err != nil {
		return nil, fmt.Errorf("get step: %w", err)
	}
	if step == nil {
		return nil, fmt.Errorf("%w: step %d", entity.ErrNotFound, stepID)
	}

	if step.Status.IsDecided() {
		return nil, fmt.Errorf("%w: step %d is %s", entity.ErrNotPending, stepID, step.Status)
	}
	if !step.CanBeDecidedBy(actor) {
		return nil, fmt.Errorf("%w: actor %s cannot decide step %d", entity.ErrNotAuthorized, actor.ID, stepID)
	}

	// Steps are evaluated strictly in sequence.
	next, err := l.NextPendingStep(ctx, step.RequisitionID)
	if err != nil {
		return nil, err
	}
	if next == nil || next.ID != step.ID {
		return nil, fmt.Errorf("%w: step %d at position %d", entity.ErrStepOutOfOrder, stepID, step.Position)
	}

	// Conditional update: the loser of a concurrent race observes
	// entity.ErrNotPending from the repository.
	decidedAt := time.Now()
	if err := l.stepRepo.Decide(ctx, stepID, status, actor.ID, comment, decidedAt); err != nil {
		return nil, err
	}

	step.Status = status
	step.DecidedBy = actor.ID
	step.DecidedAt = &decidedAt
	step.Comment = comment

	l.logger.Info("Approval step decided",
		"step_id", stepID,
		"requisition_id", step.RequisitionID,
		"status", status.String(),
		"actor_id", actor.ID,
	)
	return step, nil
}

// RejectAllPending rejects every currently-pending step in one operation
func (l *stepLedgerImpl) RejectAllPending(ctx context.Context, requisitionID int64, actor entity.Actor, comment string) (int, error) {
	count, err := l.stepRepo.DecideAllPending(ctx, requisitionID, entity.StepRejected, actor.ID, comment, time.Now())
	if err != nil {
		return 0, fmt.Errorf("reject all pending: %w", err)
	}

	l.logger.Info("All pending steps rejected",
		"requisition_id", requisitionID,
		"count", count,
		"actor_id", actor.ID,
	)
	return count, nil
}
