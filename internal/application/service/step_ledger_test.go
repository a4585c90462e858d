package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procureops/requisition-engine/internal/domain/entity"
)

func TestStepLedger_CreateSteps(t *testing.T) {
	defs := []entity.StepDef{
		{Role: entity.RoleManager},
		{Role: entity.RoleFinance, AssigneeID: "fin-7"},
	}

	var created []*entity.ApprovalStep
	repo := &mockStepRepo{
		CountByRequisitionIDFunc: func(ctx context.Context, requisitionID int64) (int, error) {
			return 0, nil
		},
		BulkCreateFunc: func(ctx context.Context, steps []*entity.ApprovalStep) error {
			created = steps
			return nil
		},
	}

	ledger := NewStepLedger(repo, nopLogger{})
	steps, err := ledger.CreateSteps(context.Background(), 42, defs)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	require.Len(t, created, 2)

	for i, step := range steps {
		assert.Equal(t, int64(42), step.RequisitionID)
		assert.Equal(t, i, step.Position)
		assert.Equal(t, entity.StepPending, step.Status)
	}
	assert.Equal(t, entity.RoleManager, steps[0].Role)
	assert.Equal(t, "fin-7", steps[1].AssigneeID)
}

func TestStepLedger_CreateSteps_AlreadyExist(t *testing.T) {
	repo := &mockStepRepo{
		CountByRequisitionIDFunc: func(ctx context.Context, requisitionID int64) (int, error) {
			return 2, nil
		},
	}

	ledger := NewStepLedger(repo, nopLogger{})
	_, err := ledger.CreateSteps(context.Background(), 42, []entity.StepDef{{Role: entity.RoleManager}})
	assert.ErrorIs(t, err, entity.ErrStepsExist)
}

func TestStepLedger_CreateSteps_EmptyDefs(t *testing.T) {
	ledger := NewStepLedger(&mockStepRepo{}, nopLogger{})
	_, err := ledger.CreateSteps(context.Background(), 42, nil)
	assert.ErrorIs(t, err, entity.ErrValidation)
}

func TestStepLedger_ApproveStep(t *testing.T) {
	step := &entity.ApprovalStep{
		ID:            10,
		RequisitionID: 42,
		Position:      0,
		Role:          entity.RoleManager,
		Status:        entity.StepPending,
	}

	var decidedStatus entity.StepStatus
	repo := &mockStepRepo{
		GetByIDFunc: func(ctx context.Context, id int64) (*entity.ApprovalStep, error) {
			return step, nil
		},
		GetPendingFunc: func(ctx context.Context, requisitionID int64) ([]*entity.ApprovalStep, error) {
			return []*entity.ApprovalStep{step}, nil
		},
		DecideFunc: func(ctx context.Context, id int64, status entity.StepStatus, actorID, comment string, decidedAt time.Time) error {
			decidedStatus = status
			return nil
		},
	}

	ledger := NewStepLedger(repo, nopLogger{})
	actor := entity.Actor{ID: "mgr-1", Role: entity.RoleManager}
	got, err := ledger.ApproveStep(context.Background(), 10, actor, "looks fine")
	require.NoError(t, err)

	assert.Equal(t, entity.StepApproved, decidedStatus)
	assert.Equal(t, entity.StepApproved, got.Status)
	assert.Equal(t, "mgr-1", got.DecidedBy)
	assert.Equal(t, "looks fine", got.Comment)
	require.NotNil(t, got.DecidedAt)
}

func TestStepLedger_ApproveStep_AlreadyDecided(t *testing.T) {
	repo := &mockStepRepo{
		GetByIDFunc: func(ctx context.Context, id int64) (*entity.ApprovalStep, error) {
			return &entity.ApprovalStep{ID: 10, RequisitionID: 42, Status: entity.StepApproved}, nil
		},
	}

	ledger := NewStepLedger(repo, nopLogger{})
	actor := entity.Actor{ID: "mgr-1", Role: entity.RoleManager}
	_, err := ledger.ApproveStep(context.Background(), 10, actor, "")
	assert.ErrorIs(t, err, entity.ErrNotPending)
}

func TestStepLedger_ApproveStep_WrongRole(t *testing.T) {
	repo := &mockStepRepo{
		GetByIDFunc: func(ctx context.Context, id int64) (*entity.ApprovalStep, error) {
			return &entity.ApprovalStep{ID: 10, RequisitionID: 42, Role: entity.RoleFinance, Status: entity.StepPending}, nil
		},
	}

	ledger := NewStepLedger(repo, nopLogger{})
	actor := entity.Actor{ID: "emp-1", Role: entity.RoleEmployee}
	_, err := ledger.ApproveStep(context.Background(), 10, actor, "")
	assert.ErrorIs(t, err, entity.ErrNotAuthorized)
}

func TestStepLedger_ApproveStep_OutOfOrder(t *testing.T) {
	first := &entity.ApprovalStep{ID: 10, RequisitionID: 42, Position: 0, Role: entity.RoleManager, Status: entity.StepPending}
	second := &entity.ApprovalStep{ID: 11, RequisitionID: 42, Position: 1, Role: entity.RoleFinance, Status: entity.StepPending}

	repo := &mockStepRepo{
		GetByIDFunc: func(ctx context.Context, id int64) (*entity.ApprovalStep, error) {
			return second, nil
		},
		GetPendingFunc: func(ctx context.Context, requisitionID int64) ([]*entity.ApprovalStep, error) {
			return []*entity.ApprovalStep{first, second}, nil
		},
	}

	ledger := NewStepLedger(repo, nopLogger{})
	actor := entity.Actor{ID: "fin-1", Role: entity.RoleFinance}
	_, err := ledger.ApproveStep(context.Background(), 11, actor, "")
	assert.ErrorIs(t, err, entity.ErrStepOutOfOrder)
}

func TestStepLedger_ApproveStep_NotFound(t *testing.T) {
	repo := &mockStepRepo{
		GetByIDFunc: func(ctx context.Context, id int64) (*entity.ApprovalStep, error) {
			return nil, nil
		},
	}

	ledger := NewStepLedger(repo, nopLogger{})
	actor := entity.Actor{ID: "mgr-1", Role: entity.RoleManager}
	_, err := ledger.ApproveStep(context.Background(), 99, actor, "")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestStepLedger_ApproveStep_ConcurrentLoser(t *testing.T) {
	step := &entity.ApprovalStep{ID: 10, RequisitionID: 42, Role: entity.RoleManager, Status: entity.StepPending}

	repo := &mockStepRepo{
		GetByIDFunc: func(ctx context.Context, id int64) (*entity.ApprovalStep, error) {
			return step, nil
		},
		GetPendingFunc: func(ctx context.Context, requisitionID int64) ([]*entity.ApprovalStep, error) {
			return []*entity.ApprovalStep{step}, nil
		},
		DecideFunc: func(ctx context.Context, id int64, status entity.StepStatus, actorID, comment string, decidedAt time.Time) error {
			// The other approver's decision landed between read and update.
			return entity.ErrNotPending
		},
	}

	ledger := NewStepLedger(repo, nopLogger{})
	actor := entity.Actor{ID: "mgr-1", Role: entity.RoleManager}
	_, err := ledger.ApproveStep(context.Background(), 10, actor, "")
	assert.ErrorIs(t, err, entity.ErrNotPending)
}

func TestStepLedger_AdminCanDecideAnyStep(t *testing.T) {
	step := &entity.ApprovalStep{ID: 10, RequisitionID: 42, Role: entity.RoleFinance, Status: entity.StepPending}

	repo := &mockStepRepo{
		GetByIDFunc: func(ctx context.Context, id int64) (*entity.ApprovalStep, error) {
			return step, nil
		},
		GetPendingFunc: func(ctx context.Context, requisitionID int64) ([]*entity.ApprovalStep, error) {
			return []*entity.ApprovalStep{step}, nil
		},
		DecideFunc: func(ctx context.Context, id int64, status entity.StepStatus, actorID, comment string, decidedAt time.Time) error {
			return nil
		},
	}

	ledger := NewStepLedger(repo, nopLogger{})
	actor := entity.Actor{ID: "admin-1", Role: entity.RoleAdmin}
	_, err := ledger.ApproveStep(context.Background(), 10, actor, "")
	assert.NoError(t, err)
}

func TestStepLedger_RejectStep_CommentPreserved(t *testing.T) {
	step := &entity.ApprovalStep{ID: 10, RequisitionID: 42, Role: entity.RoleManager, Status: entity.StepPending}

	var gotComment string
	repo := &mockStepRepo{
		GetByIDFunc: func(ctx context.Context, id int64) (*entity.ApprovalStep, error) {
			return step, nil
		},
		GetPendingFunc: func(ctx context.Context, requisitionID int64) ([]*entity.ApprovalStep, error) {
			return []*entity.ApprovalStep{step}, nil
		},
		DecideFunc: func(ctx context.Context, id int64, status entity.StepStatus, actorID, comment string, decidedAt time.Time) error {
			gotComment = comment
			return nil
		},
	}

	ledger := NewStepLedger(repo, nopLogger{})
	actor := entity.Actor{ID: "mgr-1", Role: entity.RoleManager}
	got, err := ledger.RejectStep(context.Background(), 10, actor, "over budget")
	require.NoError(t, err)
	assert.Equal(t, "over budget", gotComment)
	assert.Equal(t, entity.StepRejected, got.Status)
}

func TestStepLedger_RejectAllPending(t *testing.T) {
	repo := &mockStepRepo{
		DecideAllPendingFunc: func(ctx context.Context, requisitionID int64, status entity.StepStatus, actorID, comment string, decidedAt time.Time) (int, error) {
			assert.Equal(t, entity.StepRejected, status)
			return 3, nil
		},
	}

	ledger := NewStepLedger(repo, nopLogger{})
	actor := entity.Actor{ID: "admin-1", Role: entity.RoleAdmin}
	count, err := ledger.RejectAllPending(context.Background(), 42, actor, "project cancelled")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestStepLedger_NextPendingStep_NoneLeft(t *testing.T) {
	repo := &mockStepRepo{
		GetPendingFunc: func(ctx context.Context, requisitionID int64) ([]*entity.ApprovalStep, error) {
			return nil, nil
		},
	}

	ledger := NewStepLedger(repo, nopLogger{})
	step, err := ledger.NextPendingStep(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, step)
}

func TestStepLedger_CreateSteps_RepoError(t *testing.T) {
	wantErr := errors.New("db locked")
	repo := &mockStepRepo{
		CountByRequisitionIDFunc: func(ctx context.Context, requisitionID int64) (int, error) {
			return 0, nil
		},
		BulkCreateFunc: func(ctx context.Context, steps []*entity.ApprovalStep) error {
			return wantErr
		},
	}

	ledger := NewStepLedger(repo, nopLogger{})
	_, err := ledger.CreateSteps(context.Background(), 42, []entity.StepDef{{Role: entity.RoleManager}})
	assert.ErrorIs(t, err, wantErr)
}
