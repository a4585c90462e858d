package workflow

// State represents a workflow state in the requisition lifecycle
type State string

const (
	StateDraft      State = "DRAFT"
	StateInApproval State = "IN_APPROVAL"
	StateApproved   State = "APPROVED"
	StateRejected   State = "REJECTED"
	StatePaid       State = "PAID"
	StateCancelled  State = "CANCELLED"
)

var validStates = map[State]bool{
	StateDraft:      true,
	StateInApproval: true,
	StateApproved:   true,
	StateRejected:   true,
	StatePaid:       true,
	StateCancelled:  true,
}

// REJECTED, CANCELLED and PAID admit no outgoing transitions at all.
// APPROVED is terminal for engine-driven actions but still permits the
// downstream payment observation, so it is configured with a single PAY
// transition rather than listed here.
var deadEndStates = map[State]bool{
	StateRejected:  true,
	StateCancelled: true,
	StatePaid:      true,
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}

// IsDeadEnd returns true if no transition whatsoever leaves the state
func (s State) IsDeadEnd() bool {
	return deadEndStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}
