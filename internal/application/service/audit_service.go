package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/procureops/requisition-engine/internal/application/port"
	"github.com/procureops/requisition-engine/internal/domain/entity"
)

// AuditService records and reads the append-only audit trail. Entries are
// never updated or deleted; corrections happen by appending new entries.
type AuditService interface {
	// Record appends one entry. Snapshot values are marshalled to JSON;
	// a nil snapshot becomes an empty column.
	Record(ctx context.Context, requisitionID int64, kind entity.AuditKind, actorID string, prev, next interface{}, note string) error

	// ForRequisition returns the trail for one requisition in insertion order.
	ForRequisition(ctx context.Context, requisitionID int64) ([]*entity.AuditEntry, error)

	// All pages through the full trail across requisitions. Admin only.
	All(ctx context.Context, actor entity.Actor, limit, offset int) ([]*entity.AuditEntry, error)
}

type auditServiceImpl struct {
	auditRepo port.AuditRepository
	logger    Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(auditRepo port.AuditRepository, logger Logger) AuditService {
	return &auditServiceImpl{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

func (s *auditServiceImpl) Record(ctx context.Context, requisitionID int64, kind entity.AuditKind, actorID string, prev, next interface{}, note string) error {
	prevJSON, err := marshalSnapshot(prev)
	if err != nil {
		return fmt.Errorf("marshal previous snapshot: %w", err)
	}
	nextJSON, err := marshalSnapshot(next)
	if err != nil {
		return fmt.Errorf("marshal new snapshot: %w", err)
	}

	entry := &entity.AuditEntry{
		RequisitionID: requisitionID,
		Kind:          kind,
		ActorID:       actorID,
		PrevValue:     prevJSON,
		NewValue:      nextJSON,
		Note:          note,
		CreatedAt:     time.Now(),
	}

	if err := s.auditRepo.Append(ctx, entry); err != nil {
		s.logger.Error("Failed to append audit entry",
			"error", err,
			"requisition_id", requisitionID,
			"kind", kind,
		)
		return err
	}
	return nil
}

func (s *auditServiceImpl) ForRequisition(ctx context.Context, requisitionID int64) ([]*entity.AuditEntry, error) {
	return s.auditRepo.GetByRequisitionID(ctx, requisitionID)
}

func (s *auditServiceImpl) All(ctx context.Context, actor entity.Actor, limit, offset int) ([]*entity.AuditEntry, error) {
	if actor.Role != entity.RoleAdmin {
		return nil, fmt.Errorf("%w: the full audit trail requires the %s role", entity.ErrNotAuthorized, entity.RoleAdmin)
	}
	return s.auditRepo.List(ctx, limit, offset)
}

func marshalSnapshot(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
