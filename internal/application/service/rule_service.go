package service

import (
	"context"
	"fmt"
	"time"

	"github.com/procureops/requisition-engine/internal/application/dispatcher"
	"github.com/procureops/requisition-engine/internal/application/port"
	"github.com/procureops/requisition-engine/internal/domain/entity"
	"github.com/procureops/requisition-engine/internal/domain/event"
)

// RuleInput holds the admin-supplied fields of an approval rule
type RuleInput struct {
	Name           string
	Active         bool
	MinAmountCents *int64
	MaxAmountCents *int64
	Category       *string
	Department     *string
	Priority       int
	Steps          []entity.StepDef
}

// RuleService is the administrative CRUD surface for approval rules. Rule
// edits only affect requisitions submitted afterwards; step lists already
// materialized are never touched.
type RuleService interface {
	Create(ctx context.Context, actor entity.Actor, input RuleInput) (*entity.ApprovalRule, error)
	Update(ctx context.Context, actor entity.Actor, id int64, input RuleInput) (*entity.ApprovalRule, error)
	Get(ctx context.Context, id int64) (*entity.ApprovalRule, error)
	List(ctx context.Context) ([]*entity.ApprovalRule, error)
	Deactivate(ctx context.Context, actor entity.Actor, id int64) (*entity.ApprovalRule, error)
}

type ruleServiceImpl struct {
	ruleRepo port.RuleRepository
	hooks    dispatcher.Dispatcher
	logger   Logger
}

// NewRuleService creates a new RuleService
func NewRuleService(ruleRepo port.RuleRepository, hooks dispatcher.Dispatcher, logger Logger) RuleService {
	return &ruleServiceImpl{
		ruleRepo: ruleRepo,
		hooks:    hooks,
		logger:   logger,
	}
}

func (s *ruleServiceImpl) Create(ctx context.Context, actor entity.Actor, input RuleInput) (*entity.ApprovalRule, error) {
	if actor.Role != entity.RoleAdmin {
		return nil, fmt.Errorf("%w: rule management requires the %s role", entity.ErrNotAuthorized, entity.RoleAdmin)
	}
	if err := validateRuleInput(input); err != nil {
		return nil, err
	}

	now := time.Now()
	rule := &entity.ApprovalRule{
		Name:           input.Name,
		Active:         input.Active,
		MinAmountCents: input.MinAmountCents,
		MaxAmountCents: input.MaxAmountCents,
		Category:       input.Category,
		Department:     input.Department,
		Priority:       input.Priority,
		Steps:          input.Steps,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.ruleRepo.Create(ctx, rule); err != nil {
		s.logger.Error("Failed to create approval rule", "error", err, "name", input.Name)
		return nil, err
	}

	s.hooks.Dispatch(ctx, event.New(event.TypeRuleChanged, 0, actor.ID, map[string]interface{}{
		"action": "created",
		"new":    rule,
	}))

	s.logger.Info("Approval rule created", "rule_id", rule.ID, "name", rule.Name)
	return rule, nil
}

func (s *ruleServiceImpl) Update(ctx context.Context, actor entity.Actor, id int64, input RuleInput) (*entity.ApprovalRule, error) {
	if actor.Role != entity.RoleAdmin {
		return nil, fmt.Errorf("%w: rule management requires the %s role", entity.ErrNotAuthorized, entity.RoleAdmin)
	}
	if err := validateRuleInput(input); err != nil {
		return nil, err
	}

	rule, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := *rule

	rule.Name = input.Name
	rule.Active = input.Active
	rule.MinAmountCents = input.MinAmountCents
	rule.MaxAmountCents = input.MaxAmountCents
	rule.Category = input.Category
	rule.Department = input.Department
	rule.Priority = input.Priority
	rule.Steps = input.Steps
	rule.UpdatedAt = time.Now()

	if err := s.ruleRepo.Update(ctx, rule); err != nil {
		s.logger.Error("Failed to update approval rule", "error", err, "rule_id", id)
		return nil, err
	}

	s.hooks.Dispatch(ctx, event.New(event.TypeRuleChanged, 0, actor.ID, map[string]interface{}{
		"action": "updated",
		"prev":   &prev,
		"new":    rule,
	}))

	return rule, nil
}

func (s *ruleServiceImpl) Get(ctx context.Context, id int64) (*entity.ApprovalRule, error) {
	return s.mustGet(ctx, id)
}

func (s *ruleServiceImpl) List(ctx context.Context) ([]*entity.ApprovalRule, error) {
	return s.ruleRepo.List(ctx)
}

// Deactivate retires a rule without deleting it, preserving the referential
// history behind past audit entries.
func (s *ruleServiceImpl) Deactivate(ctx context.Context, actor entity.Actor, id int64) (*entity.ApprovalRule, error) {
	if actor.Role != entity.RoleAdmin {
		return nil, fmt.Errorf("%w: rule management requires the %s role", entity.ErrNotAuthorized, entity.RoleAdmin)
	}

	rule, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rule.Active {
		return rule, nil
	}
	prev := *rule

	rule.Active = false
	rule.UpdatedAt = time.Now()
	if err := s.ruleRepo.Update(ctx, rule); err != nil {
		s.logger.Error("Failed to deactivate approval rule", "error", err, "rule_id", id)
		return nil, err
	}

	s.hooks.Dispatch(ctx, event.New(event.TypeRuleChanged, 0, actor.ID, map[string]interface{}{
		"action": "deactivated",
		"prev":   &prev,
		"new":    rule,
	}))

	return rule, nil
}

func (s *ruleServiceImpl) mustGet(ctx context.Context, id int64) (*entity.ApprovalRule, error) {
	rule, err := s.ruleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, fmt.Errorf("%w: rule %d", entity.ErrNotFound, id)
	}
	return rule, nil
}

func validateRuleInput(input RuleInput) error {
	if input.Name == "" {
		return fmt.Errorf("%w: rule name is required", entity.ErrValidation)
	}
	if len(input.Steps) == 0 {
		return fmt.Errorf("%w: a rule must define at least one approval step", entity.ErrValidation)
	}
	for i, def := range input.Steps {
		if !def.Role.IsValid() {
			return fmt.Errorf("%w: step %d has unknown role %q", entity.ErrValidation, i, def.Role)
		}
	}
	if input.MinAmountCents != nil && input.MaxAmountCents != nil && *input.MinAmountCents >= *input.MaxAmountCents {
		return fmt.Errorf("%w: min amount must be below max amount", entity.ErrValidation)
	}
	return nil
}
