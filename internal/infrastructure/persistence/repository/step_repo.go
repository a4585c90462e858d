package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/procureops/requisition-engine/internal/application/port"
	"github.com/procureops/requisition-engine/internal/domain/entity"
	"github.com/procureops/requisition-engine/internal/infrastructure/persistence/sqlite"
)

// StepRepository implements port.StepRepository
type StepRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewStepRepository creates a new step repository
func NewStepRepository(db *sqlite.DB, logger *zap.Logger) port.StepRepository {
	return &StepRepository{
		db:     db,
		logger: logger,
	}
}

// BulkCreate inserts all steps of a requisition in one statement
func (r *StepRepository) BulkCreate(ctx context.Context, steps []*entity.ApprovalStep) error {
	if len(steps) == 0 {
		return nil
	}

	query := `
		INSERT INTO approval_steps (
			requisition_id, position, role, assignee_id, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	exec := r.db.Executor(ctx)
	for _, step := range steps {
		var assignee sql.NullString
		if step.AssigneeID != "" {
			assignee = sql.NullString{String: step.AssigneeID, Valid: true}
		}

		result, err := exec.ExecContext(ctx, query,
			step.RequisitionID, step.Position, step.Role.String(), assignee,
			step.Status.String(), step.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to insert approval step",
				zap.Error(err),
				zap.Int64("requisition_id", step.RequisitionID),
				zap.Int("position", step.Position),
			)
			return fmt.Errorf("insert approval step: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("get step id: %w", err)
		}
		step.ID = id
	}
	return nil
}

// GetByID retrieves a step by ID, returning nil when absent
func (r *StepRepository) GetByID(ctx context.Context, id int64) (*entity.ApprovalStep, error) {
	query := stepSelect + ` WHERE id = ?`

	step, err := scanStep(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query step: %w", err)
	}
	return step, nil
}

// GetByRequisitionID returns all steps of a requisition ordered by position
func (r *StepRepository) GetByRequisitionID(ctx context.Context, requisitionID int64) ([]*entity.ApprovalStep, error) {
	query := stepSelect + ` WHERE requisition_id = ? ORDER BY position`
	return r.querySteps(ctx, query, requisitionID)
}

// GetPending returns the PENDING steps of a requisition ordered by position
func (r *StepRepository) GetPending(ctx context.Context, requisitionID int64) ([]*entity.ApprovalStep, error) {
	query := stepSelect + ` WHERE requisition_id = ? AND status = 'PENDING' ORDER BY position`
	return r.querySteps(ctx, query, requisitionID)
}

// CountByRequisitionID returns how many steps a requisition has
func (r *StepRepository) CountByRequisitionID(ctx context.Context, requisitionID int64) (int, error) {
	var count int
	err := r.db.Executor(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM approval_steps WHERE requisition_id = ?`, requisitionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count steps: %w", err)
	}
	return count, nil
}

// Decide records a decision with a conditional update so a concurrent loser
// cannot overwrite an already-decided step
func (r *StepRepository) Decide(ctx context.Context, id int64, status entity.StepStatus, actorID, comment string, decidedAt time.Time) error {
	query := `
		UPDATE approval_steps
		SET status = ?, decided_by = ?, comment = ?, decided_at = ?
		WHERE id = ? AND status = 'PENDING'
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		status.String(), actorID, comment, decidedAt, id,
	)
	if err != nil {
		r.logger.Error("Failed to decide step", zap.Error(err), zap.Int64("id", id))
		return fmt.Errorf("decide step: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: step %d", entity.ErrNotPending, id)
	}
	return nil
}

// DecideAllPending applies one decision to every PENDING step of a requisition
func (r *StepRepository) DecideAllPending(ctx context.Context, requisitionID int64, status entity.StepStatus, actorID, comment string, decidedAt time.Time) (int, error) {
	query := `
		UPDATE approval_steps
		SET status = ?, decided_by = ?, comment = ?, decided_at = ?
		WHERE requisition_id = ? AND status = 'PENDING'
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		status.String(), actorID, comment, decidedAt, requisitionID,
	)
	if err != nil {
		return 0, fmt.Errorf("decide all pending steps: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(affected), nil
}

const stepSelect = `
	SELECT id, requisition_id, position, role, assignee_id,
	       status, decided_by, decided_at, comment, created_at
	FROM approval_steps`

func (r *StepRepository) querySteps(ctx context.Context, query string, args ...interface{}) ([]*entity.ApprovalStep, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	var out []*entity.ApprovalStep
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		out = append(out, step)
	}
	return out, rows.Err()
}

func scanStep(row rowScanner) (*entity.ApprovalStep, error) {
	var step entity.ApprovalStep
	var role, status string
	var assignee, decidedBy, comment sql.NullString
	var decidedAt sql.NullTime

	err := row.Scan(
		&step.ID, &step.RequisitionID, &step.Position, &role, &assignee,
		&status, &decidedBy, &decidedAt, &comment, &step.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	step.Role = entity.Role(role)
	step.Status = entity.StepStatus(status)
	step.AssigneeID = assignee.String
	step.DecidedBy = decidedBy.String
	step.Comment = comment.String
	if decidedAt.Valid {
		t := decidedAt.Time
		step.DecidedAt = &t
	}
	return &step, nil
}
