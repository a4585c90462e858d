package entity

import "time"

// AuditKind tags the action an audit entry records
type AuditKind string

const (
	AuditCreated              AuditKind = "CREATED"
	AuditStatusChanged        AuditKind = "STATUS_CHANGED"
	AuditStepApproved         AuditKind = "STEP_APPROVED"
	AuditStepRejected         AuditKind = "STEP_REJECTED"
	AuditAttachmentUploaded   AuditKind = "ATTACHMENT_UPLOADED"
	AuditAttachmentDeleted    AuditKind = "ATTACHMENT_DELETED"
	AuditAttachmentDownloaded AuditKind = "ATTACHMENT_DOWNLOADED"
	AuditRuleCreated          AuditKind = "RULE_CREATED"
	AuditRuleUpdated          AuditKind = "RULE_UPDATED"
	AuditAdvisoryNote         AuditKind = "ADVISORY_NOTE"
)

// String returns the string representation of the audit kind
func (k AuditKind) String() string {
	return string(k)
}

// AuditEntry is one immutable record in a requisition's audit trail.
// PrevValue/NewValue hold opaque JSON snapshots stored verbatim. Entries are
// append-only: once written they are never updated or deleted, and they
// outlive requisition archival. Chronological order is by CreatedAt with the
// autoincrement ID breaking ties by insertion sequence.
type AuditEntry struct {
	ID            int64     `json:"id"`
	RequisitionID int64     `json:"requisition_id"`
	ActorID       string    `json:"actor_id"`
	Kind          AuditKind `json:"kind"`
	PrevValue     string    `json:"prev_value,omitempty"`
	NewValue      string    `json:"new_value,omitempty"`
	Note          string    `json:"note,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
