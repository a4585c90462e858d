package entity

import "time"

// StepDef is one entry in a rule's ordered approval chain definition.
type StepDef struct {
	Role       Role   `json:"role"`
	AssigneeID string `json:"assignee_id,omitempty"`
}

// ApprovalRule is configuration data matching requisition attributes to the
// ordered list of approval steps they require. Rules are resolved read-only at
// submission time and never referenced afterwards: editing a rule must not
// alter an in-flight requisition's step list.
//
// Amount matching convention: MinAmountCents is inclusive, MaxAmountCents is
// exclusive ([min, max)). A nil bound is unbounded. Category and Department
// are exact matches when set, wildcards when nil.
type ApprovalRule struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Active         bool      `json:"active"`
	MinAmountCents *int64    `json:"min_amount_cents,omitempty"`
	MaxAmountCents *int64    `json:"max_amount_cents,omitempty"`
	Category       *string   `json:"category,omitempty"`
	Department     *string   `json:"department,omitempty"`
	Priority       int       `json:"priority"`
	Steps          []StepDef `json:"steps"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Matches reports whether the rule's predicate covers the given requisition
// attributes.
func (r *ApprovalRule) Matches(amountCents int64, category, department string) bool {
	if r.MinAmountCents != nil && amountCents < *r.MinAmountCents {
		return false
	}
	if r.MaxAmountCents != nil && amountCents >= *r.MaxAmountCents {
		return false
	}
	if r.Category != nil && *r.Category != category {
		return false
	}
	if r.Department != nil && *r.Department != department {
		return false
	}
	return true
}
