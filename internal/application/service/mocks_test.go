package service

import (
	"context"
	"time"

	"github.com/procureops/requisition-engine/internal/domain/entity"
)

// nopLogger discards all log output in tests
type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockRequisitionRepo struct {
	CreateFunc       func(ctx context.Context, req *entity.Requisition) error
	GetByIDFunc      func(ctx context.Context, id int64) (*entity.Requisition, error)
	ListFunc         func(ctx context.Context, limit, offset int) ([]*entity.Requisition, error)
	UpdateStatusFunc func(ctx context.Context, id int64, status entity.Status, expectedVersion int64) error
}

func (m *mockRequisitionRepo) Create(ctx context.Context, req *entity.Requisition) error {
	return m.CreateFunc(ctx, req)
}

func (m *mockRequisitionRepo) GetByID(ctx context.Context, id int64) (*entity.Requisition, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *mockRequisitionRepo) List(ctx context.Context, limit, offset int) ([]*entity.Requisition, error) {
	return m.ListFunc(ctx, limit, offset)
}

func (m *mockRequisitionRepo) UpdateStatus(ctx context.Context, id int64, status entity.Status, expectedVersion int64) error {
	return m.UpdateStatusFunc(ctx, id, status, expectedVersion)
}

type mockStepRepo struct {
	BulkCreateFunc           func(ctx context.Context, steps []*entity.ApprovalStep) error
	GetByIDFunc              func(ctx context.Context, id int64) (*entity.ApprovalStep, error)
	GetByRequisitionIDFunc   func(ctx context.Context, requisitionID int64) ([]*entity.ApprovalStep, error)
	GetPendingFunc           func(ctx context.Context, requisitionID int64) ([]*entity.ApprovalStep, error)
	CountByRequisitionIDFunc func(ctx context.Context, requisitionID int64) (int, error)
	DecideFunc               func(ctx context.Context, id int64, status entity.StepStatus, actorID, comment string, decidedAt time.Time) error
	DecideAllPendingFunc     func(ctx context.Context, requisitionID int64, status entity.StepStatus, actorID, comment string, decidedAt time.Time) (int, error)
}

func (m *mockStepRepo) BulkCreate(ctx context.Context, steps []*entity.ApprovalStep) error {
	return m.BulkCreateFunc(ctx, steps)
}

func (m *mockStepRepo) GetByID(ctx context.Context, id int64) (*entity.ApprovalStep, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *mockStepRepo) GetByRequisitionID(ctx context.Context, requisitionID int64) ([]*entity.ApprovalStep, error) {
	return m.GetByRequisitionIDFunc(ctx, requisitionID)
}

func (m *mockStepRepo) GetPending(ctx context.Context, requisitionID int64) ([]*entity.ApprovalStep, error) {
	return m.GetPendingFunc(ctx, requisitionID)
}

func (m *mockStepRepo) CountByRequisitionID(ctx context.Context, requisitionID int64) (int, error) {
	return m.CountByRequisitionIDFunc(ctx, requisitionID)
}

func (m *mockStepRepo) Decide(ctx context.Context, id int64, status entity.StepStatus, actorID, comment string, decidedAt time.Time) error {
	return m.DecideFunc(ctx, id, status, actorID, comment, decidedAt)
}

func (m *mockStepRepo) DecideAllPending(ctx context.Context, requisitionID int64, status entity.StepStatus, actorID, comment string, decidedAt time.Time) (int, error) {
	return m.DecideAllPendingFunc(ctx, requisitionID, status, actorID, comment, decidedAt)
}

type mockRuleRepo struct {
	CreateFunc     func(ctx context.Context, rule *entity.ApprovalRule) error
	GetByIDFunc    func(ctx context.Context, id int64) (*entity.ApprovalRule, error)
	UpdateFunc     func(ctx context.Context, rule *entity.ApprovalRule) error
	DeleteFunc     func(ctx context.Context, id int64) error
	ListFunc       func(ctx context.Context) ([]*entity.ApprovalRule, error)
	ListActiveFunc func(ctx context.Context) ([]*entity.ApprovalRule, error)
}

func (m *mockRuleRepo) Create(ctx context.Context, rule *entity.ApprovalRule) error {
	return m.CreateFunc(ctx, rule)
}

func (m *mockRuleRepo) GetByID(ctx context.Context, id int64) (*entity.ApprovalRule, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *mockRuleRepo) Update(ctx context.Context, rule *entity.ApprovalRule) error {
	return m.UpdateFunc(ctx, rule)
}

func (m *mockRuleRepo) Delete(ctx context.Context, id int64) error {
	return m.DeleteFunc(ctx, id)
}

func (m *mockRuleRepo) List(ctx context.Context) ([]*entity.ApprovalRule, error) {
	return m.ListFunc(ctx)
}

func (m *mockRuleRepo) ListActive(ctx context.Context) ([]*entity.ApprovalRule, error) {
	return m.ListActiveFunc(ctx)
}

type mockAuditRepo struct {
	AppendFunc             func(ctx context.Context, entry *entity.AuditEntry) error
	GetByRequisitionIDFunc func(ctx context.Context, requisitionID int64) ([]*entity.AuditEntry, error)
	ListFunc               func(ctx context.Context, limit, offset int) ([]*entity.AuditEntry, error)
}

func (m *mockAuditRepo) Append(ctx context.Context, entry *entity.AuditEntry) error {
	return m.AppendFunc(ctx, entry)
}

func (m *mockAuditRepo) GetByRequisitionID(ctx context.Context, requisitionID int64) ([]*entity.AuditEntry, error) {
	return m.GetByRequisitionIDFunc(ctx, requisitionID)
}

func (m *mockAuditRepo) List(ctx context.Context, limit, offset int) ([]*entity.AuditEntry, error) {
	return m.ListFunc(ctx, limit, offset)
}

// mockTxManager runs the function inline without a real transaction
type mockTxManager struct{}

func (mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
