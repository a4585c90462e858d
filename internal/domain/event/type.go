package event

// Type identifies the type of domain event
type Type string

const (
	TypeRequisitionCreated   Type = "requisition.created"
	TypeRequisitionSubmitted Type = "requisition.submitted"
	TypeStatusChanged        Type = "requisition.status_changed"
	TypeStepApproved         Type = "step.approved"
	TypeStepRejected         Type = "step.rejected"
	TypeAttachmentUploaded   Type = "attachment.uploaded"
	TypeAttachmentDeleted    Type = "attachment.deleted"
	TypeAttachmentDownloaded Type = "attachment.downloaded"
	TypeRuleChanged          Type = "rule.changed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeRequisitionCreated,
		TypeRequisitionSubmitted,
		TypeStatusChanged,
		TypeStepApproved,
		TypeStepRejected,
		TypeAttachmentUploaded,
		TypeAttachmentDeleted,
		TypeAttachmentDownloaded,
		TypeRuleChanged:
		return true
	default:
		return false
	}
}
