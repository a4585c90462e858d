package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/procureops/requisition-engine/internal/application/dispatcher"
	"github.com/procureops/requisition-engine/internal/application/port"
	"github.com/procureops/requisition-engine/internal/domain/entity"
	"github.com/procureops/requisition-engine/internal/domain/event"
)

// RegisterHooks subscribes the post-commit hook set: every transition event
// lands in the audit trail, status and step outcomes additionally fan out to
// the notifier, and submissions optionally trigger the advisory reviewer.
// Called once at startup, before the first request is served.
func RegisterHooks(
	d dispatcher.Dispatcher,
	audit AuditService,
	notifications NotificationService,
	advisor port.Advisor,
	logger Logger,
) {
	d.SubscribeNamed(event.TypeRequisitionCreated, "audit", func(ctx context.Context, evt *event.Event) error {
		return audit.Record(ctx, evt.RequisitionID, entity.AuditCreated, evt.ActorID, nil, evt.Payload["new"], "")
	})

	d.SubscribeNamed(event.TypeStatusChanged, "audit", func(ctx context.Context, evt *event.Event) error {
		return audit.Record(ctx, evt.RequisitionID, entity.AuditStatusChanged, evt.ActorID,
			evt.Payload["prev"], evt.Payload["new"], evt.PayloadString("reason"))
	})

	d.SubscribeNamed(event.TypeStatusChanged, "notify", func(ctx context.Context, evt *event.Event) error {
		from := entity.Status(evt.PayloadString("prev"))
		to := entity.Status(evt.PayloadString("new"))
		notifications.StatusChanged(ctx, evt.RequisitionID, from, to, evt.PayloadString("reason"))
		return nil
	})

	d.SubscribeNamed(event.TypeStepApproved, "audit", func(ctx context.Context, evt *event.Event) error {
		step := stepFromPayload(evt)
		note := ""
		if step != nil {
			note = step.Comment
		}
		return audit.Record(ctx, evt.RequisitionID, entity.AuditStepApproved, evt.ActorID, nil, evt.Payload["step"], note)
	})

	d.SubscribeNamed(event.TypeStepApproved, "notify", func(ctx context.Context, evt *event.Event) error {
		if step := stepFromPayload(evt); step != nil {
			notifications.StepApproved(ctx, evt.RequisitionID, step)
		}
		return nil
	})

	d.SubscribeNamed(event.TypeStepRejected, "audit", func(ctx context.Context, evt *event.Event) error {
		step := stepFromPayload(evt)
		note := ""
		if step != nil {
			note = step.Comment
		}
		return audit.Record(ctx, evt.RequisitionID, entity.AuditStepRejected, evt.ActorID, nil, evt.Payload["step"], note)
	})

	d.SubscribeNamed(event.TypeStepRejected, "notify", func(ctx context.Context, evt *event.Event) error {
		if step := stepFromPayload(evt); step != nil {
			notifications.StepRejected(ctx, evt.RequisitionID, step)
		}
		return nil
	})

	d.SubscribeNamed(event.TypeAttachmentUploaded, "audit", func(ctx context.Context, evt *event.Event) error {
		return audit.Record(ctx, evt.RequisitionID, entity.AuditAttachmentUploaded, evt.ActorID, nil, evt.Payload["attachment"], "")
	})

	d.SubscribeNamed(event.TypeAttachmentDeleted, "audit", func(ctx context.Context, evt *event.Event) error {
		return audit.Record(ctx, evt.RequisitionID, entity.AuditAttachmentDeleted, evt.ActorID, evt.Payload["attachment"], nil, "")
	})

	d.SubscribeNamed(event.TypeAttachmentDownloaded, "audit", func(ctx context.Context, evt *event.Event) error {
		return audit.Record(ctx, evt.RequisitionID, entity.AuditAttachmentDownloaded, evt.ActorID, nil, evt.Payload["attachment"], "")
	})

	d.SubscribeNamed(event.TypeRuleChanged, "audit", func(ctx context.Context, evt *event.Event) error {
		kind := entity.AuditRuleUpdated
		if evt.PayloadString("action") == "created" {
			kind = entity.AuditRuleCreated
		}
		return audit.Record(ctx, evt.RequisitionID, kind, evt.ActorID, evt.Payload["prev"], evt.Payload["new"], evt.PayloadString("action"))
	})

	if advisor != nil {
		d.SubscribeNamed(event.TypeRequisitionSubmitted, "advisory", advisoryHook(audit, advisor, logger))
	}
}

// advisoryHook asks the advisor to review a freshly submitted requisition and
// appends its note to the audit trail. Advisory output never gates the
// submission; any failure here is logged by the dispatcher and dropped.
func advisoryHook(audit AuditService, advisor port.Advisor, logger Logger) dispatcher.Handler {
	return func(ctx context.Context, evt *event.Event) error {
		req := requisitionFromPayload(evt)
		if req == nil {
			req = &entity.Requisition{ID: evt.RequisitionID}
		}
		note, err := advisor.Review(ctx, req)
		if err != nil {
			return fmt.Errorf("advisory review: %w", err)
		}
		if note == "" {
			return nil
		}
		logger.Info("Advisory note recorded", "requisition_id", evt.RequisitionID)
		return audit.Record(ctx, evt.RequisitionID, entity.AuditAdvisoryNote, evt.ActorID, nil, nil, note)
	}
}

func stepFromPayload(evt *event.Event) *entity.ApprovalStep {
	if step, ok := evt.Payload["step"].(*entity.ApprovalStep); ok {
		return step
	}
	return nil
}

func requisitionFromPayload(evt *event.Event) *entity.Requisition {
	switch v := evt.Payload["requisition"].(type) {
	case *entity.Requisition:
		return v
	case json.RawMessage:
		var req entity.Requisition
		if err := json.Unmarshal(v, &req); err == nil {
			return &req
		}
	}
	return nil
}
