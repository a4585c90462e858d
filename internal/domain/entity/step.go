package entity

import "time"

// StepStatus represents the state of a single approval step
type StepStatus string

const (
	StepPending  StepStatus = "PENDING"
	StepApproved StepStatus = "APPROVED"
	StepRejected StepStatus = "REJECTED"
	StepSkipped  StepStatus = "SKIPPED"
)

// IsDecided returns true once the step has left PENDING
func (s StepStatus) IsDecided() bool {
	return s != StepPending
}

// String returns the string representation of the step status
func (s StepStatus) String() string {
	return string(s)
}

// ApprovalStep is one position in a requisition's ordered approval chain.
// Positions are 0-based and contiguous per requisition; steps are created in
// bulk at submission and never reordered. When AssigneeID is set it is
// authoritative over the role requirement.
type ApprovalStep struct {
	ID            int64      `json:"id"`
	RequisitionID int64      `json:"requisition_id"`
	Position      int        `json:"position"`
	Role          Role       `json:"role"`
	AssigneeID    string     `json:"assignee_id,omitempty"`
	Status        StepStatus `json:"status"`
	DecidedBy     string     `json:"decided_by,omitempty"`
	DecidedAt     *time.Time `json:"decided_at,omitempty"`
	Comment       string     `json:"comment,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// CanBeDecidedBy reports whether the actor may decide this step. A specific
// assignee is authoritative; without one, any actor holding the required role
// is eligible. Eligibility is evaluated against the role recorded at step
// creation time, so later role membership changes do not retroactively revoke
// it.
func (s *ApprovalStep) CanBeDecidedBy(actor Actor) bool {
	if s.AssigneeID != "" {
		return s.AssigneeID == actor.ID
	}
	return s.Role == actor.Role || actor.Role == RoleAdmin
}
