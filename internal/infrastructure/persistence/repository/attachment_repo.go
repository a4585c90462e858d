package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/procureops/requisition-engine/internal/application/port"
	"github.com/procureops/requisition-engine/internal/domain/entity"
	"github.com/procureops/requisition-engine/internal/infrastructure/persistence/sqlite"
)

// AttachmentRepository implements port.AttachmentRepository
type AttachmentRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewAttachmentRepository creates a new attachment repository
func NewAttachmentRepository(db *sqlite.DB, logger *zap.Logger) port.AttachmentRepository {
	return &AttachmentRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts attachment metadata
func (r *AttachmentRepository) Create(ctx context.Context, att *entity.Attachment) error {
	query := `
		INSERT INTO attachments (
			requisition_id, file_name, size_bytes, content_type, page_count, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		att.RequisitionID, att.FileName, att.SizeBytes,
		att.ContentType, att.PageCount, att.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert attachment",
			zap.Error(err),
			zap.Int64("requisition_id", att.RequisitionID),
		)
		return fmt.Errorf("insert attachment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get attachment id: %w", err)
	}
	att.ID = id
	return nil
}

// GetByID retrieves attachment metadata by ID, returning nil when absent
func (r *AttachmentRepository) GetByID(ctx context.Context, id int64) (*entity.Attachment, error) {
	query := attachmentSelect + ` WHERE id = ?`

	var att entity.Attachment
	err := r.db.Executor(ctx).QueryRowContext(ctx, query, id).Scan(
		&att.ID, &att.RequisitionID, &att.FileName, &att.SizeBytes,
		&att.ContentType, &att.PageCount, &att.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query attachment: %w", err)
	}
	return &att, nil
}

// GetByRequisitionID returns a requisition's attachments oldest first
func (r *AttachmentRepository) GetByRequisitionID(ctx context.Context, requisitionID int64) ([]*entity.Attachment, error) {
	query := attachmentSelect + ` WHERE requisition_id = ? ORDER BY created_at, id`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, requisitionID)
	if err != nil {
		return nil, fmt.Errorf("query attachments: %w", err)
	}
	defer rows.Close()

	var out []*entity.Attachment
	for rows.Next() {
		var att entity.Attachment
		err := rows.Scan(
			&att.ID, &att.RequisitionID, &att.FileName, &att.SizeBytes,
			&att.ContentType, &att.PageCount, &att.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		out = append(out, &att)
	}
	return out, rows.Err()
}

// Delete removes attachment metadata
func (r *AttachmentRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`DELETE FROM attachments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: attachment %d", entity.ErrNotFound, id)
	}
	return nil
}

const attachmentSelect = `
	SELECT id, requisition_id, file_name, size_bytes, content_type, page_count, created_at
	FROM attachments`
