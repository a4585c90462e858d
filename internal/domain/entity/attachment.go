package entity

import "time"

// Attachment is metadata for a file attached to a requisition. The engine
// never touches storage bytes; it records lifecycle events in the audit trail
// on behalf of the attachment storage collaborator. The max-attachments limit
// is a caller-enforced policy.
type Attachment struct {
	ID            int64     `json:"id"`
	RequisitionID int64     `json:"requisition_id"`
	FileName      string    `json:"file_name"`
	SizeBytes     int64     `json:"size_bytes"`
	ContentType   string    `json:"content_type"`
	PageCount     int       `json:"page_count,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
