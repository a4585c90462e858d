// Package workflow assembles the requisition state machine from the generic
// machine in the domain layer. The transition table here is the single source
// of truth for legal requisition transitions.
package workflow

import (
	domainwf "github.com/procureops/requisition-engine/internal/domain/workflow"

	"github.com/procureops/requisition-engine/internal/domain/entity"
)

// BuildRequisitionMachine creates a state machine positioned at the given
// requisition status.
//
//	DRAFT        --SUBMIT-->  IN_APPROVAL
//	IN_APPROVAL  --ADVANCE--> IN_APPROVAL   (non-final step approved)
//	IN_APPROVAL  --APPROVE--> APPROVED      (final step approved)
//	IN_APPROVAL  --REJECT-->  REJECTED      (any rejection is terminal)
//	APPROVED     --PAY-->     PAID          (downstream payment observation)
//	DRAFT / IN_APPROVAL --CANCEL--> CANCELLED
//
// REJECTED, CANCELLED and PAID have no outgoing transitions.
func BuildRequisitionMachine(initial domainwf.State) *domainwf.Machine {
	return domainwf.NewBuilder().
		Permit(domainwf.StateDraft, domainwf.TriggerSubmit, domainwf.StateInApproval).
		Permit(domainwf.StateDraft, domainwf.TriggerCancel, domainwf.StateCancelled).
		Permit(domainwf.StateInApproval, domainwf.TriggerAdvance, domainwf.StateInApproval).
		Permit(domainwf.StateInApproval, domainwf.TriggerApprove, domainwf.StateApproved).
		Permit(domainwf.StateInApproval, domainwf.TriggerReject, domainwf.StateRejected).
		Permit(domainwf.StateInApproval, domainwf.TriggerCancel, domainwf.StateCancelled).
		Permit(domainwf.StateApproved, domainwf.TriggerPay, domainwf.StatePaid).
		Build(initial)
}

// StateFor maps a requisition status onto its workflow state. The two sets
// use the same labels; the mapping keeps the conversion in one place.
func StateFor(status entity.Status) domainwf.State {
	return domainwf.State(status)
}

// StatusFor maps a workflow state back onto a requisition status.
func StatusFor(state domainwf.State) entity.Status {
	return entity.Status(state)
}
