package workflow

// Trigger represents an action that can cause a state transition
type Trigger string

const (
	// TriggerSubmit moves a draft into the approval chain
	TriggerSubmit Trigger = "SUBMIT"
	// TriggerAdvance records a non-final step approval; the requisition
	// stays in approval
	TriggerAdvance Trigger = "ADVANCE"
	// TriggerApprove records the final step approval
	TriggerApprove Trigger = "APPROVE"
	// TriggerReject records any step rejection or an administrative bulk
	// reject; both are terminal for the requisition
	TriggerReject Trigger = "REJECT"
	// TriggerCancel is the administrative cancellation
	TriggerCancel Trigger = "CANCEL"
	// TriggerPay records the downstream payment observation
	TriggerPay Trigger = "PAY"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
