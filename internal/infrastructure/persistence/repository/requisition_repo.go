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

// RequisitionRepository implements port.RequisitionRepository
type RequisitionRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewRequisitionRepository creates a new requisition repository
func NewRequisitionRepository(db *sqlite.DB, logger *zap.Logger) port.RequisitionRepository {
	return &RequisitionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new requisition and fills in its generated ID
func (r *RequisitionRepository) Create(ctx context.Context, req *entity.Requisition) error {
	query := `
		INSERT INTO requisitions (
			submitter_id, department, title, description,
			amount_cents, currency, category, status, version,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		req.SubmitterID, req.Department, req.Title, req.Description,
		req.AmountCents, req.Currency, req.Category, req.Status.String(), req.Version,
		req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert requisition", zap.Error(err))
		return fmt.Errorf("insert requisition: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get requisition id: %w", err)
	}
	req.ID = id
	return nil
}

// GetByID retrieves a requisition by ID, returning nil when absent
func (r *RequisitionRepository) GetByID(ctx context.Context, id int64) (*entity.Requisition, error) {
	query := `
		SELECT id, submitter_id, department, title, description,
		       amount_cents, currency, category, status, version,
		       created_at, updated_at
		FROM requisitions
		WHERE id = ?
	`

	req, err := scanRequisition(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to query requisition", zap.Error(err), zap.Int64("id", id))
		return nil, fmt.Errorf("query requisition: %w", err)
	}
	return req, nil
}

// List retrieves requisitions newest first with pagination
func (r *RequisitionRepository) List(ctx context.Context, limit, offset int) ([]*entity.Requisition, error) {
	query := `
		SELECT id, submitter_id, department, title, description,
		       amount_cents, currency, category, status, version,
		       created_at, updated_at
		FROM requisitions
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list requisitions: %w", err)
	}
	defer rows.Close()

	var out []*entity.Requisition
	for rows.Next() {
		req, err := scanRequisition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan requisition: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// UpdateStatus flips the status under an optimistic version check. Zero rows
// affected means the version moved underneath us.
func (r *RequisitionRepository) UpdateStatus(ctx context.Context, id int64, status entity.Status, expectedVersion int64) error {
	query := `
		UPDATE requisitions
		SET status = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query, status.String(), id, expectedVersion)
	if err != nil {
		r.logger.Error("Failed to update requisition status", zap.Error(err), zap.Int64("id", id))
		return fmt.Errorf("update requisition status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: requisition %d expected version %d", entity.ErrVersionConflict, id, expectedVersion)
	}
	return nil
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequisition(row rowScanner) (*entity.Requisition, error) {
	var req entity.Requisition
	var status string
	err := row.Scan(
		&req.ID, &req.SubmitterID, &req.Department, &req.Title, &req.Description,
		&req.AmountCents, &req.Currency, &req.Category, &status, &req.Version,
		&req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	req.Status = entity.Status(status)
	return &req, nil
}
