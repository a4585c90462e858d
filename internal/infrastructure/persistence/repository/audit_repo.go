package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/procureops/requisition-engine/internal/application/port"
	"github.com/procureops/requisition-engine/internal/domain/entity"
	"github.com/procureops/requisition-engine/internal/infrastructure/persistence/sqlite"
)

// AuditRepository implements port.AuditRepository. The table is append-only;
// there is no update or delete statement.
type AuditRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sqlite.DB, logger *zap.Logger) port.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Append inserts one audit entry
func (r *AuditRepository) Append(ctx context.Context, entry *entity.AuditEntry) error {
	query := `
		INSERT INTO audit_entries (
			requisition_id, actor_id, kind, prev_value, new_value, note, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		entry.RequisitionID, entry.ActorID, entry.Kind.String(),
		entry.PrevValue, entry.NewValue, entry.Note, entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to append audit entry",
			zap.Error(err),
			zap.Int64("requisition_id", entry.RequisitionID),
		)
		return fmt.Errorf("append audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get audit entry id: %w", err)
	}
	entry.ID = id
	return nil
}

// GetByRequisitionID returns a requisition's trail in insertion order
func (r *AuditRepository) GetByRequisitionID(ctx context.Context, requisitionID int64) ([]*entity.AuditEntry, error) {
	query := auditSelect + ` WHERE requisition_id = ? ORDER BY created_at, id`
	return r.queryEntries(ctx, query, requisitionID)
}

// List pages through the full trail in chronological order, ties broken by
// insertion sequence
func (r *AuditRepository) List(ctx context.Context, limit, offset int) ([]*entity.AuditEntry, error) {
	query := auditSelect + ` ORDER BY created_at, id LIMIT ? OFFSET ?`
	return r.queryEntries(ctx, query, limit, offset)
}

const auditSelect = `
	SELECT id, requisition_id, actor_id, kind, prev_value, new_value, note, created_at
	FROM audit_entries`

func (r *AuditRepository) queryEntries(ctx context.Context, query string, args ...interface{}) ([]*entity.AuditEntry, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var out []*entity.AuditEntry
	for rows.Next() {
		var entry entity.AuditEntry
		var kind string
		err := rows.Scan(
			&entry.ID, &entry.RequisitionID, &entry.ActorID, &kind,
			&entry.PrevValue, &entry.NewValue, &entry.Note, &entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.Kind = entity.AuditKind(kind)
		out = append(out, &entry)
	}
	return out, rows.Err()
}
