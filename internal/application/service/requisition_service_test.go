package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procureops/requisition-engine/internal/application/dispatcher"
	"github.com/procureops/requisition-engine/internal/domain/entity"
	"github.com/procureops/requisition-engine/internal/domain/event"
)

// fixture is an in-memory backing store exercising the service stack
// end to end without a database
type fixture struct {
	mu           sync.Mutex
	requisitions map[int64]*entity.Requisition
	steps        map[int64]*entity.ApprovalStep
	rules        []*entity.ApprovalRule
	events       []*event.Event

	nextReqID  int64
	nextStepID int64

	// beforeStatusUpdate, when set, runs before the requisition row is
	// written, standing in for a concurrent writer committing first.
	beforeStatusUpdate func()

	svc    RequisitionService
	ledger StepLedger
}

func newFixture(t *testing.T, rules []*entity.ApprovalRule) *fixture {
	t.Helper()

	f := &fixture{
		requisitions: make(map[int64]*entity.Requisition),
		steps:        make(map[int64]*entity.ApprovalStep),
		rules:        rules,
	}

	reqRepo := &mockRequisitionRepo{
		CreateFunc: func(ctx context.Context, req *entity.Requisition) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.nextReqID++
			req.ID = f.nextReqID
			cp := *req
			f.requisitions[req.ID] = &cp
			return nil
		},
		GetByIDFunc: func(ctx context.Context, id int64) (*entity.Requisition, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			req, ok := f.requisitions[id]
			if !ok {
				return nil, nil
			}
			cp := *req
			return &cp, nil
		},
		ListFunc: func(ctx context.Context, limit, offset int) ([]*entity.Requisition, error) {
			return nil, nil
		},
		UpdateStatusFunc: func(ctx context.Context, id int64, status entity.Status, expectedVersion int64) error {
			if f.beforeStatusUpdate != nil {
				f.beforeStatusUpdate()
			}
			f.mu.Lock()
			defer f.mu.Unlock()
			req, ok := f.requisitions[id]
			if !ok {
				return entity.ErrNotFound
			}
			if req.Version != expectedVersion {
				return entity.ErrVersionConflict
			}
			req.Status = status
			req.Version++
			return nil
		},
	}

	stepRepo := &mockStepRepo{
		BulkCreateFunc: func(ctx context.Context, steps []*entity.ApprovalStep) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			for _, s := range steps {
				f.nextStepID++
				s.ID = f.nextStepID
				cp := *s
				f.steps[s.ID] = &cp
			}
			return nil
		},
		GetByIDFunc: func(ctx context.Context, id int64) (*entity.ApprovalStep, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			s, ok := f.steps[id]
			if !ok {
				return nil, nil
			}
			cp := *s
			return &cp, nil
		},
		GetByRequisitionIDFunc: func(ctx context.Context, requisitionID int64) ([]*entity.ApprovalStep, error) {
			return f.stepsOf(requisitionID, false), nil
		},
		GetPendingFunc: func(ctx context.Context, requisitionID int64) ([]*entity.ApprovalStep, error) {
			return f.stepsOf(requisitionID, true), nil
		},
		CountByRequisitionIDFunc: func(ctx context.Context, requisitionID int64) (int, error) {
			return len(f.stepsOf(requisitionID, false)), nil
		},
		DecideFunc: func(ctx context.Context, id int64, status entity.StepStatus, actorID, comment string, decidedAt time.Time) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			s, ok := f.steps[id]
			if !ok {
				return entity.ErrNotFound
			}
			if s.Status != entity.StepPending {
				return entity.ErrNotPending
			}
			s.Status = status
			s.DecidedBy = actorID
			s.Comment = comment
			s.DecidedAt = &decidedAt
			return nil
		},
		DecideAllPendingFunc: func(ctx context.Context, requisitionID int64, status entity.StepStatus, actorID, comment string, decidedAt time.Time) (int, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			count := 0
			for _, s := range f.steps {
				if s.RequisitionID == requisitionID && s.Status == entity.StepPending {
					s.Status = status
					s.DecidedBy = actorID
					s.Comment = comment
					s.DecidedAt = &decidedAt
					count++
				}
			}
			return count, nil
		},
	}

	ruleRepo := &mockRuleRepo{
		ListActiveFunc: func(ctx context.Context) ([]*entity.ApprovalRule, error) {
			return f.rules, nil
		},
	}

	hooks := dispatcher.New()
	hooks.Subscribe(event.TypeStatusChanged, func(ctx context.Context, evt *event.Event) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.events = append(f.events, evt)
		return nil
	})

	f.ledger = NewStepLedger(stepRepo, nopLogger{})
	f.svc = NewRequisitionService(reqRepo, ruleRepo, f.ledger, mockTxManager{}, hooks, nopLogger{})
	return f
}

func (f *fixture) stepsOf(requisitionID int64, pendingOnly bool) []*entity.ApprovalStep {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.ApprovalStep
	for _, s := range f.steps {
		if s.RequisitionID != requisitionID {
			continue
		}
		if pendingOnly && s.Status != entity.StepPending {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (f *fixture) statusEvents() []*event.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*event.Event(nil), f.events...)
}

func twoStepRule() []*entity.ApprovalRule {
	return []*entity.ApprovalRule{
		{
			ID:       1,
			Name:     "default two step",
			Active:   true,
			Priority: 10,
			Steps: []entity.StepDef{
				{Role: entity.RoleManager},
				{Role: entity.RoleFinance},
			},
		},
	}
}

var (
	employee = entity.Actor{ID: "emp-1", Role: entity.RoleEmployee, Department: "ENG"}
	manager  = entity.Actor{ID: "mgr-1", Role: entity.RoleManager, Department: "ENG"}
	finance  = entity.Actor{ID: "fin-1", Role: entity.RoleFinance, Department: "FIN"}
	admin    = entity.Actor{ID: "adm-1", Role: entity.RoleAdmin}
)

func createAndSubmit(t *testing.T, f *fixture) *entity.Requisition {
	t.Helper()
	ctx := context.Background()

	req, err := f.svc.CreateDraft(ctx, employee, CreateDraftInput{
		Title:       "Team laptops",
		AmountCents: 250_000,
		Currency:    "USD",
		Category:    entity.CategoryEquipment,
	})
	require.NoError(t, err)
	require.Equal(t, entity.StatusDraft, req.Status)

	req, err = f.svc.Submit(ctx, req.ID, employee)
	require.NoError(t, err)
	require.Equal(t, entity.StatusInApproval, req.Status)
	return req
}

func TestRequisitionService_FullApprovalChain(t *testing.T) {
	f := newFixture(t, twoStepRule())
	ctx := context.Background()

	req := createAndSubmit(t, f)

	steps, err := f.ledger.StepsFor(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, entity.RoleManager, steps[0].Role)
	assert.Equal(t, entity.RoleFinance, steps[1].Role)

	// First step approved: requisition stays in approval.
	req, err = f.svc.ApproveStep(ctx, req.ID, steps[0].ID, manager, "within team budget")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusInApproval, req.Status)

	// Last step approved: requisition is approved.
	req, err = f.svc.ApproveStep(ctx, req.ID, steps[1].ID, finance, "")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusApproved, req.Status)

	events := f.statusEvents()
	require.Len(t, events, 2)
	assert.Equal(t, entity.StatusDraft.String(), events[0].PayloadString("prev"))
	assert.Equal(t, entity.StatusInApproval.String(), events[0].PayloadString("new"))
	assert.Equal(t, entity.StatusInApproval.String(), events[1].PayloadString("prev"))
	assert.Equal(t, entity.StatusApproved.String(), events[1].PayloadString("new"))
}

func TestRequisitionService_RejectStepIsTerminal(t *testing.T) {
	f := newFixture(t, twoStepRule())
	ctx := context.Background()

	req := createAndSubmit(t, f)
	steps, err := f.ledger.StepsFor(ctx, req.ID)
	require.NoError(t, err)

	req, err = f.svc.RejectStep(ctx, req.ID, steps[0].ID, manager, "over budget")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusRejected, req.Status)

	// The second step is untouched, only now non-actionable.
	steps, err = f.ledger.StepsFor(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StepRejected, steps[0].Status)
	assert.Equal(t, "over budget", steps[0].Comment)
	assert.Equal(t, entity.StepPending, steps[1].Status)

	// No further transitions from REJECTED.
	_, err = f.svc.ApproveStep(ctx, req.ID, steps[1].ID, finance, "")
	assert.Error(t, err)
}

func TestRequisitionService_ApproveOutOfOrder(t *testing.T) {
	f := newFixture(t, twoStepRule())
	ctx := context.Background()

	req := createAndSubmit(t, f)
	steps, err := f.ledger.StepsFor(ctx, req.ID)
	require.NoError(t, err)

	_, err = f.svc.ApproveStep(ctx, req.ID, steps[1].ID, finance, "")
	assert.ErrorIs(t, err, entity.ErrStepOutOfOrder)
}

func TestRequisitionService_ApproveTwice(t *testing.T) {
	f := newFixture(t, twoStepRule())
	ctx := context.Background()

	req := createAndSubmit(t, f)
	steps, err := f.ledger.StepsFor(ctx, req.ID)
	require.NoError(t, err)

	_, err = f.svc.ApproveStep(ctx, req.ID, steps[0].ID, manager, "")
	require.NoError(t, err)

	_, err = f.svc.ApproveStep(ctx, req.ID, steps[0].ID, manager, "")
	assert.ErrorIs(t, err, entity.ErrNotPending)

	// The duplicate attempt produced no extra status transition.
	assert.Len(t, f.statusEvents(), 1)
}

func TestRequisitionService_EveryApprovalTouchesRequisitionRow(t *testing.T) {
	f := newFixture(t, twoStepRule())
	ctx := context.Background()

	req := createAndSubmit(t, f)
	steps, err := f.ledger.StepsFor(ctx, req.ID)
	require.NoError(t, err)

	submitted, err := f.svc.Get(ctx, req.ID)
	require.NoError(t, err)

	// A non-final approval keeps the status but still writes the row under
	// the optimistic check, so the version moves on every decision.
	_, err = f.svc.ApproveStep(ctx, req.ID, steps[0].ID, manager, "")
	require.NoError(t, err)

	mid, err := f.svc.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusInApproval, mid.Status)
	assert.Equal(t, submitted.Version+1, mid.Version)

	_, err = f.svc.ApproveStep(ctx, req.ID, steps[1].ID, finance, "")
	require.NoError(t, err)

	// The stored row, not just the returned snapshot, carries the final
	// transition. Approving the last pending step never leaves the
	// requisition stuck IN_APPROVAL.
	final, err := f.svc.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusApproved, final.Status)
	assert.Equal(t, submitted.Version+2, final.Version)
}

func TestRequisitionService_ApproveConflictsWithConcurrentWriter(t *testing.T) {
	f := newFixture(t, twoStepRule())
	ctx := context.Background()

	req := createAndSubmit(t, f)
	steps, err := f.ledger.StepsFor(ctx, req.ID)
	require.NoError(t, err)

	// A cancellation commits between the approval's read and its write.
	// The approval holds a stale version and must lose.
	f.beforeStatusUpdate = func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		stored := f.requisitions[req.ID]
		stored.Status = entity.StatusCancelled
		stored.Version++
	}

	_, err = f.svc.ApproveStep(ctx, req.ID, steps[0].ID, manager, "")
	assert.ErrorIs(t, err, entity.ErrVersionConflict)

	// Only the submit transition was recorded.
	assert.Len(t, f.statusEvents(), 1)
}

func TestRequisitionService_ApproveCancelledRequisition(t *testing.T) {
	f := newFixture(t, twoStepRule())
	ctx := context.Background()

	req := createAndSubmit(t, f)
	steps, err := f.ledger.StepsFor(ctx, req.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, req.ID, admin)
	require.NoError(t, err)

	// The steps are still PENDING in storage, but the requisition row read
	// inside the transaction is terminal.
	_, err = f.svc.ApproveStep(ctx, req.ID, steps[0].ID, manager, "")
	assert.Error(t, err)

	got, err := f.ledger.StepsFor(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StepPending, got[0].Status)
}

func TestRequisitionService_SubmitTwice(t *testing.T) {
	f := newFixture(t, twoStepRule())
	ctx := context.Background()

	req := createAndSubmit(t, f)

	_, err := f.svc.Submit(ctx, req.ID, employee)
	assert.Error(t, err)

	steps, err := f.ledger.StepsFor(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, steps, 2)
}

func TestRequisitionService_SubmitByNonSubmitter(t *testing.T) {
	f := newFixture(t, twoStepRule())
	ctx := context.Background()

	req, err := f.svc.CreateDraft(ctx, employee, CreateDraftInput{
		Title:       "Conference travel",
		AmountCents: 80_000,
		Currency:    "USD",
		Category:    entity.CategoryTravel,
	})
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, req.ID, manager)
	assert.ErrorIs(t, err, entity.ErrNotAuthorized)
}

func TestRequisitionService_RejectAll(t *testing.T) {
	f := newFixture(t, twoStepRule())
	ctx := context.Background()

	req := createAndSubmit(t, f)

	req, err := f.svc.RejectAll(ctx, req.ID, admin, "project cancelled")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusRejected, req.Status)

	steps, err := f.ledger.StepsFor(ctx, req.ID)
	require.NoError(t, err)
	for _, s := range steps {
		assert.Equal(t, entity.StepRejected, s.Status)
		assert.Equal(t, admin.ID, s.DecidedBy)
	}

	// Exactly one transition: submit plus the bulk reject.
	assert.Len(t, f.statusEvents(), 2)
}

func TestRequisitionService_RejectAllRequiresAdmin(t *testing.T) {
	f := newFixture(t, twoStepRule())
	ctx := context.Background()

	req := createAndSubmit(t, f)

	_, err := f.svc.RejectAll(ctx, req.ID, manager, "")
	assert.ErrorIs(t, err, entity.ErrNotAuthorized)
}

func TestRequisitionService_CancelFromDraftAndInApproval(t *testing.T) {
	f := newFixture(t, twoStepRule())
	ctx := context.Background()

	draft, err := f.svc.CreateDraft(ctx, employee, CreateDraftInput{
		Title:       "Monitors",
		AmountCents: 90_000,
		Currency:    "USD",
		Category:    entity.CategoryEquipment,
	})
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, draft.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCancelled, cancelled.Status)

	inFlight := createAndSubmit(t, f)
	cancelled, err = f.svc.Cancel(ctx, inFlight.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCancelled, cancelled.Status)

	// Terminal: cancelling again fails.
	_, err = f.svc.Cancel(ctx, inFlight.ID, admin)
	assert.Error(t, err)
}

func TestRequisitionService_MarkPaid(t *testing.T) {
	f := newFixture(t, twoStepRule())
	ctx := context.Background()

	req := createAndSubmit(t, f)
	steps, err := f.ledger.StepsFor(ctx, req.ID)
	require.NoError(t, err)

	_, err = f.svc.ApproveStep(ctx, req.ID, steps[0].ID, manager, "")
	require.NoError(t, err)
	req, err = f.svc.ApproveStep(ctx, req.ID, steps[1].ID, finance, "")
	require.NoError(t, err)

	// Payment recording requires finance or admin.
	_, err = f.svc.MarkPaid(ctx, req.ID, employee)
	assert.ErrorIs(t, err, entity.ErrNotAuthorized)

	req, err = f.svc.MarkPaid(ctx, req.ID, finance)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPaid, req.Status)

	_, err = f.svc.MarkPaid(ctx, req.ID, finance)
	assert.Error(t, err)
}

func TestRequisitionService_NoMatchingRule(t *testing.T) {
	min := int64(1_000_000)
	f := newFixture(t, []*entity.ApprovalRule{
		{
			ID:             1,
			Name:           "big purchases only",
			Active:         true,
			MinAmountCents: &min,
			Steps:          []entity.StepDef{{Role: entity.RoleDirector}},
		},
	})
	ctx := context.Background()

	req, err := f.svc.CreateDraft(ctx, employee, CreateDraftInput{
		Title:       "Stapler",
		AmountCents: 1_500,
		Currency:    "USD",
		Category:    entity.CategoryEquipment,
	})
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, req.ID, employee)
	assert.Error(t, err)

	// Failed resolution leaves the draft untouched.
	got, err := f.svc.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusDraft, got.Status)

	steps, err := f.ledger.StepsFor(ctx, req.ID)
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func TestRequisitionService_CreateDraftValidation(t *testing.T) {
	f := newFixture(t, twoStepRule())
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreateDraftInput
	}{
		{"missing title", CreateDraftInput{AmountCents: 100, Currency: "USD"}},
		{"zero amount", CreateDraftInput{Title: "x", AmountCents: 0, Currency: "USD"}},
		{"negative amount", CreateDraftInput{Title: "x", AmountCents: -5, Currency: "USD"}},
		{"bad currency", CreateDraftInput{Title: "x", AmountCents: 100, Currency: "DOLLARS"}},
		{"lowercase currency", CreateDraftInput{Title: "x", AmountCents: 100, Currency: "usd"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateDraft(ctx, employee, tt.input)
			assert.ErrorIs(t, err, entity.ErrValidation)
		})
	}
}
