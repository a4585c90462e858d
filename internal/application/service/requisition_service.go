package service

import (
	"context"
	"fmt"
	"time"

	"github.com/procureops/requisition-engine/internal/application/dispatcher"
	"github.com/procureops/requisition-engine/internal/application/port"
	appwf "github.com/procureops/requisition-engine/internal/application/workflow"
	"github.com/procureops/requisition-engine/internal/domain/entity"
	"github.com/procureops/requisition-engine/internal/domain/event"
	"github.com/procureops/requisition-engine/internal/domain/rules"
	domainwf "github.com/procureops/requisition-engine/internal/domain/workflow"
	"github.com/procureops/requisition-engine/pkg/utils"
)

// CreateDraftInput holds the submitter-provided fields of a new requisition
type CreateDraftInput struct {
	Title       string
	Description string
	AmountCents int64
	Currency    string
	Category    string
}

// RequisitionService owns the requisition's top-level status and legal
// transitions, coordinating the rule resolver and the step ledger. Every
// transition commits transactionally first; audit side entries and
// notifications run afterwards as fault-isolated post-commit hooks.
type RequisitionService interface {
	CreateDraft(ctx context.Context, actor entity.Actor, input CreateDraftInput) (*entity.Requisition, error)
	Get(ctx context.Context, id int64) (*entity.Requisition, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Requisition, error)

	Submit(ctx context.Context, id int64, actor entity.Actor) (*entity.Requisition, error)
	ApproveStep(ctx context.Context, requisitionID, stepID int64, actor entity.Actor, comment string) (*entity.Requisition, error)
	RejectStep(ctx context.Context, requisitionID, stepID int64, actor entity.Actor, comment string) (*entity.Requisition, error)
	RejectAll(ctx context.Context, requisitionID int64, actor entity.Actor, comment string) (*entity.Requisition, error)
	Cancel(ctx context.Context, requisitionID int64, actor entity.Actor) (*entity.Requisition, error)
	MarkPaid(ctx context.Context, requisitionID int64, actor entity.Actor) (*entity.Requisition, error)
}

type requisitionServiceImpl struct {
	requisitionRepo port.RequisitionRepository
	ruleRepo        port.RuleRepository
	ledger          StepLedger
	txManager       port.TransactionManager
	hooks           dispatcher.Dispatcher
	logger          Logger
}

// NewRequisitionService creates a new RequisitionService
func NewRequisitionService(
	requisitionRepo port.RequisitionRepository,
	ruleRepo port.RuleRepository,
	ledger StepLedger,
	txManager port.TransactionManager,
	hooks dispatcher.Dispatcher,
	logger Logger,
) RequisitionService {
	return &requisitionServiceImpl{
		requisitionRepo: requisitionRepo,
		ruleRepo:        ruleRepo,
		ledger:          ledger,
		txManager:       txManager,
		hooks:           hooks,
		logger:          logger,
	}
}

// CreateDraft validates input and creates a DRAFT requisition
func (s *requisitionServiceImpl) CreateDraft(ctx context.Context, actor entity.Actor, input CreateDraftInput) (*entity.Requisition, error) {
	title := utils.SanitizeString(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", entity.ErrValidation)
	}
	if err := utils.ValidateAmountCents(input.AmountCents); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrValidation, err)
	}
	if err := utils.ValidateCurrency(input.Currency); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrValidation, err)
	}
	if !actor.Role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", entity.ErrValidation, actor.Role)
	}

	now := time.Now()
	req := &entity.Requisition{
		SubmitterID: actor.ID,
		Department:  actor.Department,
		Title:       title,
		Description: utils.SanitizeString(input.Description),
		AmountCents: input.AmountCents,
		Currency:    input.Currency,
		Category:    input.Category,
		Status:      entity.StatusDraft,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.requisitionRepo.Create(ctx, req); err != nil {
		s.logger.Error("Failed to create requisition", "error", err)
		return nil, err
	}

	s.hooks.Dispatch(ctx, event.New(event.TypeRequisitionCreated, req.ID, actor.ID, map[string]interface{}{
		"new": req,
	}))

	s.logger.Info("Requisition created", "requisition_id", req.ID, "submitter_id", actor.ID)
	return req, nil
}

// Get retrieves a requisition by ID
func (s *requisitionServiceImpl) Get(ctx context.Context, id int64) (*entity.Requisition, error) {
	req, err := s.requisitionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: requisition %d", entity.ErrNotFound, id)
	}
	return req, nil
}

// List retrieves requisitions with pagination
func (s *requisitionServiceImpl) List(ctx context.Context, limit, offset int) ([]*entity.Requisition, error) {
	return s.requisitionRepo.List(ctx, limit, offset)
}

// Submit resolves the approval rule once, then creates the step list and flips
// the requisition to IN_APPROVAL in a single transaction. A reader never
// observes an IN_APPROVAL requisition with zero steps or vice versa.
func (s *requisitionServiceImpl) Submit(ctx context.Context, id int64, actor entity.Actor) (*entity.Requisition, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.SubmitterID != actor.ID && actor.Role != entity.RoleAdmin {
		return nil, fmt.Errorf("%w: only the submitter may submit requisition %d", entity.ErrNotAuthorized, id)
	}

	machine := appwf.BuildRequisitionMachine(appwf.StateFor(req.Status))
	if err := machine.Fire(ctx, domainwf.TriggerSubmit); err != nil {
		return nil, err
	}

	activeRules, err := s.ruleRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active rules: %w", err)
	}

	defs, err := rules.Resolve(rules.Attributes{
		AmountCents: req.AmountCents,
		Category:    req.Category,
		Department:  req.Department,
	}, activeRules)
	if err != nil {
		return nil, err
	}

	newStatus := appwf.StatusFor(machine.State())
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.ledger.CreateSteps(txCtx, req.ID, defs); err != nil {
			return err
		}
		return s.requisitionRepo.UpdateStatus(txCtx, req.ID, newStatus, req.Version)
	})
	if err != nil {
		s.logger.Error("Failed to submit requisition", "error", err, "requisition_id", id)
		return nil, err
	}

	s.emitStatusChanged(ctx, req, newStatus, actor.ID, "submitted")
	req.Status = newStatus
	req.Version++

	s.hooks.DispatchAsync(ctx, event.New(event.TypeRequisitionSubmitted, req.ID, actor.ID, map[string]interface{}{
		"requisition": req,
		"step_count":  len(defs),
	}))

	s.logger.Info("Requisition submitted",
		"requisition_id", req.ID,
		"steps", len(defs),
	)
	return req, nil
}

// ApproveStep approves the current next-pending step. The requisition stays
// IN_APPROVAL while steps remain and becomes APPROVED on the last one.
//
// Whether this decision is the final one can only be known after the step
// update itself, so the requisition row, the remaining pending count and the
// target status are all read inside the transaction. Every effective decision
// also bumps the requisition version under the optimistic check, so a
// concurrent cancellation or sibling approval makes one side fail with
// entity.ErrVersionConflict or entity.ErrNotPending instead of committing a
// stale transition.
func (s *requisitionServiceImpl) ApproveStep(ctx context.Context, requisitionID, stepID int64, actor entity.Actor, comment string) (*entity.Requisition, error) {
	var (
		req       *entity.Requisition
		step      *entity.ApprovalStep
		newStatus entity.Status
	)
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		req, err = s.Get(txCtx, requisitionID)
		if err != nil {
			return err
		}

		machine := appwf.BuildRequisitionMachine(appwf.StateFor(req.Status))
		if !machine.CanFire(domainwf.TriggerApprove) {
			return fmt.Errorf("%w: trigger %s from state %s", domainwf.ErrInvalidTransition, domainwf.TriggerApprove, machine.State())
		}

		step, err = s.ledger.ApproveStep(txCtx, stepID, actor, comment)
		if err != nil {
			return err
		}
		if step.RequisitionID != requisitionID {
			return fmt.Errorf("%w: step %d does not belong to requisition %d", entity.ErrValidation, stepID, requisitionID)
		}

		remaining, err := s.ledger.PendingSteps(txCtx, requisitionID)
		if err != nil {
			return err
		}
		trigger := domainwf.TriggerAdvance
		if len(remaining) == 0 {
			trigger = domainwf.TriggerApprove
		}
		if err := machine.Fire(txCtx, trigger); err != nil {
			return err
		}
		newStatus = appwf.StatusFor(machine.State())

		return s.requisitionRepo.UpdateStatus(txCtx, req.ID, newStatus, req.Version)
	})
	if err != nil {
		return nil, err
	}

	s.hooks.Dispatch(ctx, event.New(event.TypeStepApproved, req.ID, actor.ID, map[string]interface{}{
		"step": step,
	}))
	if newStatus != req.Status {
		s.emitStatusChanged(ctx, req, newStatus, actor.ID, "all steps approved")
	}
	req.Status = newStatus
	req.Version++

	return req, nil
}

// RejectStep rejects the current next-pending step. A single rejection is
// terminal for the whole requisition; the remaining PENDING steps are left
// untouched in storage.
func (s *requisitionServiceImpl) RejectStep(ctx context.Context, requisitionID, stepID int64, actor entity.Actor, comment string) (*entity.Requisition, error) {
	req, err := s.Get(ctx, requisitionID)
	if err != nil {
		return nil, err
	}

	machine := appwf.BuildRequisitionMachine(appwf.StateFor(req.Status))
	if err := machine.Fire(ctx, domainwf.TriggerReject); err != nil {
		return nil, err
	}
	newStatus := appwf.StatusFor(machine.State())

	var step *entity.ApprovalStep
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		step, err = s.ledger.RejectStep(txCtx, stepID, actor, comment)
		if err != nil {
			return err
		}
		if step.RequisitionID != requisitionID {
			return fmt.Errorf("%w: step %d does not belong to requisition %d", entity.ErrValidation, stepID, requisitionID)
		}
		return s.requisitionRepo.UpdateStatus(txCtx, req.ID, newStatus, req.Version)
	})
	if err != nil {
		return nil, err
	}

	s.hooks.Dispatch(ctx, event.New(event.TypeStepRejected, req.ID, actor.ID, map[string]interface{}{
		"step": step,
	}))
	s.emitStatusChanged(ctx, req, newStatus, actor.ID, "step rejected")
	req.Status = newStatus
	req.Version++

	return req, nil
}

// RejectAll is the administrative bulk-reject path: every currently-PENDING
// step becomes REJECTED and the requisition transitions to REJECTED, all in
// one atomic operation producing exactly one status transition.
func (s *requisitionServiceImpl) RejectAll(ctx context.Context, requisitionID int64, actor entity.Actor, comment string) (*entity.Requisition, error) {
	if actor.Role != entity.RoleAdmin {
		return nil, fmt.Errorf("%w: bulk reject requires the %s role", entity.ErrNotAuthorized, entity.RoleAdmin)
	}

	req, err := s.Get(ctx, requisitionID)
	if err != nil {
		return nil, err
	}

	machine := appwf.BuildRequisitionMachine(appwf.StateFor(req.Status))
	if err := machine.Fire(ctx, domainwf.TriggerReject); err != nil {
		return nil, err
	}
	newStatus := appwf.StatusFor(machine.State())

	var rejected int
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		rejected, err = s.ledger.RejectAllPending(txCtx, requisitionID, actor, comment)
		if err != nil {
			return err
		}
		return s.requisitionRepo.UpdateStatus(txCtx, req.ID, newStatus, req.Version)
	})
	if err != nil {
		return nil, err
	}

	s.emitStatusChanged(ctx, req, newStatus, actor.ID, fmt.Sprintf("bulk rejected %d steps", rejected))
	req.Status = newStatus
	req.Version++

	return req, nil
}

// Cancel is the administrative cancellation, legal from any non-terminal
// state. Pending steps are left in storage; they become non-actionable
// because the requisition itself is terminal.
func (s *requisitionServiceImpl) Cancel(ctx context.Context, requisitionID int64, actor entity.Actor) (*entity.Requisition, error) {
	if actor.Role != entity.RoleAdmin {
		return nil, fmt.Errorf("%w: cancellation requires the %s role", entity.ErrNotAuthorized, entity.RoleAdmin)
	}

	req, err := s.Get(ctx, requisitionID)
	if err != nil {
		return nil, err
	}

	machine := appwf.BuildRequisitionMachine(appwf.StateFor(req.Status))
	if err := machine.Fire(ctx, domainwf.TriggerCancel); err != nil {
		return nil, err
	}
	newStatus := appwf.StatusFor(machine.State())

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.requisitionRepo.UpdateStatus(txCtx, req.ID, newStatus, req.Version)
	})
	if err != nil {
		return nil, err
	}

	s.emitStatusChanged(ctx, req, newStatus, actor.ID, "cancelled")
	req.Status = newStatus
	req.Version++

	return req, nil
}

// MarkPaid records the downstream payment observation for an APPROVED
// requisition.
func (s *requisitionServiceImpl) MarkPaid(ctx context.Context, requisitionID int64, actor entity.Actor) (*entity.Requisition, error) {
	if actor.Role != entity.RoleFinance && actor.Role != entity.RoleAdmin {
		return nil, fmt.Errorf("%w: recording payment requires %s or %s", entity.ErrNotAuthorized, entity.RoleFinance, entity.RoleAdmin)
	}

	req, err := s.Get(ctx, requisitionID)
	if err != nil {
		return nil, err
	}

	machine := appwf.BuildRequisitionMachine(appwf.StateFor(req.Status))
	if err := machine.Fire(ctx, domainwf.TriggerPay); err != nil {
		return nil, err
	}
	newStatus := appwf.StatusFor(machine.State())

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.requisitionRepo.UpdateStatus(txCtx, req.ID, newStatus, req.Version)
	})
	if err != nil {
		return nil, err
	}

	s.emitStatusChanged(ctx, req, newStatus, actor.ID, "payment recorded")
	req.Status = newStatus
	req.Version++

	return req, nil
}

// emitStatusChanged dispatches the post-commit status change event carrying
// the previous and new status snapshots
func (s *requisitionServiceImpl) emitStatusChanged(ctx context.Context, req *entity.Requisition, to entity.Status, actorID, reason string) {
	s.hooks.Dispatch(ctx, event.New(event.TypeStatusChanged, req.ID, actorID, map[string]interface{}{
		"prev":   req.Status.String(),
		"new":    to.String(),
		"reason": reason,
	}))
}
