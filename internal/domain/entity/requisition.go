package entity

import "time"

// Status represents the top-level lifecycle status of a requisition
type Status string

const (
	StatusDraft      Status = "DRAFT"
	StatusInApproval Status = "IN_APPROVAL"
	StatusApproved   Status = "APPROVED"
	StatusRejected   Status = "REJECTED"
	StatusPaid       Status = "PAID"
	StatusCancelled  Status = "CANCELLED"
)

var validStatuses = map[Status]bool{
	StatusDraft:      true,
	StatusInApproval: true,
	StatusApproved:   true,
	StatusRejected:   true,
	StatusPaid:       true,
	StatusCancelled:  true,
}

// Terminal statuses admit no further engine-driven transition except the
// downstream payment observation (APPROVED -> PAID).
var terminalStatuses = map[Status]bool{
	StatusApproved:  true,
	StatusRejected:  true,
	StatusPaid:      true,
	StatusCancelled: true,
}

// IsValid returns true if the status is a known requisition status
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// IsTerminal returns true if no further transition may originate from the status
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// Requisition represents a purchase/expense request moving through approval.
// Owned by the submitter while DRAFT; afterwards mutated only through the
// requisition service. Version implements the optimistic concurrency check:
// every committed status transition increments it.
type Requisition struct {
	ID          int64     `json:"id"`
	SubmitterID string    `json:"submitter_id"`
	Department  string    `json:"department"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Category    string    `json:"category"`
	Status      Status    `json:"status"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Category constants for requisitions
const (
	CategoryTravel    = "TRAVEL"
	CategoryEquipment = "EQUIPMENT"
	CategorySoftware  = "SOFTWARE"
	CategoryServices  = "SERVICES"
	CategoryFacility  = "FACILITY"
	CategoryOther     = "OTHER"
)
