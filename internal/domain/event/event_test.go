package event

import (
	"testing"
	"time"
)

func TestType_IsValid(t *testing.T) {
	valid := []Type{
		TypeRequisitionCreated,
		TypeRequisitionSubmitted,
		TypeStatusChanged,
		TypeStepApproved,
		TypeStepRejected,
		TypeAttachmentUploaded,
		TypeAttachmentDeleted,
		TypeAttachmentDownloaded,
		TypeRuleChanged,
	}
	for _, typ := range valid {
		t.Run(typ.String(), func(t *testing.T) {
			if !typ.IsValid() {
				t.Errorf("Type(%q).IsValid() = false, want true", typ)
			}
		})
	}

	if Type("requisition.unknown").IsValid() {
		t.Error("unknown type reported as valid")
	}
}

func TestNew(t *testing.T) {
	before := time.Now()
	evt := New(TypeStatusChanged, 42, "emp-1", map[string]interface{}{
		"prev":  "DRAFT",
		"new":   "IN_APPROVAL",
		"count": 3,
	})

	if evt.ID == "" {
		t.Error("expected generated event ID")
	}
	if evt.RequisitionID != 42 {
		t.Errorf("RequisitionID = %d, want 42", evt.RequisitionID)
	}
	if evt.ActorID != "emp-1" {
		t.Errorf("ActorID = %q, want emp-1", evt.ActorID)
	}
	if evt.Timestamp.Before(before) {
		t.Error("timestamp predates event creation")
	}

	if got := evt.PayloadString("prev"); got != "DRAFT" {
		t.Errorf("PayloadString(prev) = %q, want DRAFT", got)
	}
	if got := evt.PayloadString("missing"); got != "" {
		t.Errorf("PayloadString(missing) = %q, want empty", got)
	}
	if got := evt.PayloadInt("count"); got != 3 {
		t.Errorf("PayloadInt(count) = %d, want 3", got)
	}
}

func TestNew_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		evt := New(TypeStepApproved, 1, "a", nil)
		if seen[evt.ID] {
			t.Fatalf("duplicate event ID: %s", evt.ID)
		}
		seen[evt.ID] = true
	}
}
