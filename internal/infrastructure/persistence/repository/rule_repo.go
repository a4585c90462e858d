package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/procureops/requisition-engine/internal/application/port"
	"github.com/procureops/requisition-engine/internal/domain/entity"
	"github.com/procureops/requisition-engine/internal/infrastructure/persistence/sqlite"
)

// RuleRepository implements port.RuleRepository. Step definitions are stored
// as a JSON column; the resolver works on the decoded slice.
type RuleRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewRuleRepository creates a new rule repository
func NewRuleRepository(db *sqlite.DB, logger *zap.Logger) port.RuleRepository {
	return &RuleRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new approval rule
func (r *RuleRepository) Create(ctx context.Context, rule *entity.ApprovalRule) error {
	stepsJSON, err := json.Marshal(rule.Steps)
	if err != nil {
		return fmt.Errorf("marshal rule steps: %w", err)
	}

	query := `
		INSERT INTO approval_rules (
			name, active, min_amount_cents, max_amount_cents,
			category, department, priority, steps, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		rule.Name, rule.Active, rule.MinAmountCents, rule.MaxAmountCents,
		rule.Category, rule.Department, rule.Priority, string(stepsJSON),
		rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert approval rule", zap.Error(err), zap.String("name", rule.Name))
		return fmt.Errorf("insert approval rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get rule id: %w", err)
	}
	rule.ID = id
	return nil
}

// GetByID retrieves a rule by ID, returning nil when absent
func (r *RuleRepository) GetByID(ctx context.Context, id int64) (*entity.ApprovalRule, error) {
	query := ruleSelect + ` WHERE id = ?`

	rule, err := scanRule(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query rule: %w", err)
	}
	return rule, nil
}

// Update rewrites all mutable columns of a rule
func (r *RuleRepository) Update(ctx context.Context, rule *entity.ApprovalRule) error {
	stepsJSON, err := json.Marshal(rule.Steps)
	if err != nil {
		return fmt.Errorf("marshal rule steps: %w", err)
	}

	query := `
		UPDATE approval_rules
		SET name = ?, active = ?, min_amount_cents = ?, max_amount_cents = ?,
		    category = ?, department = ?, priority = ?, steps = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		rule.Name, rule.Active, rule.MinAmountCents, rule.MaxAmountCents,
		rule.Category, rule.Department, rule.Priority, string(stepsJSON),
		rule.UpdatedAt, rule.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update approval rule", zap.Error(err), zap.Int64("id", rule.ID))
		return fmt.Errorf("update approval rule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: rule %d", entity.ErrNotFound, rule.ID)
	}
	return nil
}

// Delete removes a rule
func (r *RuleRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`DELETE FROM approval_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: rule %d", entity.ErrNotFound, id)
	}
	return nil
}

// List returns all rules ordered by priority
func (r *RuleRepository) List(ctx context.Context) ([]*entity.ApprovalRule, error) {
	return r.queryRules(ctx, ruleSelect+` ORDER BY priority, id`)
}

// ListActive returns the active rules ordered by priority
func (r *RuleRepository) ListActive(ctx context.Context) ([]*entity.ApprovalRule, error) {
	return r.queryRules(ctx, ruleSelect+` WHERE active = 1 ORDER BY priority, id`)
}

const ruleSelect = `
	SELECT id, name, active, min_amount_cents, max_amount_cents,
	       category, department, priority, steps, created_at, updated_at
	FROM approval_rules`

func (r *RuleRepository) queryRules(ctx context.Context, query string, args ...interface{}) ([]*entity.ApprovalRule, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var out []*entity.ApprovalRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func scanRule(row rowScanner) (*entity.ApprovalRule, error) {
	var rule entity.ApprovalRule
	var minAmount, maxAmount sql.NullInt64
	var category, department sql.NullString
	var stepsJSON string

	err := row.Scan(
		&rule.ID, &rule.Name, &rule.Active, &minAmount, &maxAmount,
		&category, &department, &rule.Priority, &stepsJSON,
		&rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if minAmount.Valid {
		rule.MinAmountCents = &minAmount.Int64
	}
	if maxAmount.Valid {
		rule.MaxAmountCents = &maxAmount.Int64
	}
	if category.Valid {
		rule.Category = &category.String
	}
	if department.Valid {
		rule.Department = &department.String
	}

	if err := json.Unmarshal([]byte(stepsJSON), &rule.Steps); err != nil {
		return nil, fmt.Errorf("unmarshal rule steps: %w", err)
	}
	return &rule, nil
}
