package lark

import (
	"context"
	"encoding/json"
	"fmt"

	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/procureops/requisition-engine/internal/application/port"
	"github.com/procureops/requisition-engine/internal/domain/entity"
)

// NotifyStatusChanged posts a status transition to the configured chat
func (c *Client) NotifyStatusChanged(ctx context.Context, requisitionID int64, from, to entity.Status, reason string) error {
	msg := fmt.Sprintf("Requisition #%d moved from %s to %s", requisitionID, from, to)
	if reason != "" {
		msg += fmt.Sprintf(" (%s)", reason)
	}
	return c.sendText(ctx, msg)
}

// NotifyStepApproved posts a single-step approval to the configured chat
func (c *Client) NotifyStepApproved(ctx context.Context, requisitionID int64, step *entity.ApprovalStep) error {
	msg := fmt.Sprintf("Requisition #%d: step %d (%s) approved by %s",
		requisitionID, step.Position+1, step.Role, step.DecidedBy)
	if step.Comment != "" {
		msg += fmt.Sprintf(": %s", step.Comment)
	}
	return c.sendText(ctx, msg)
}

// NotifyStepRejected posts a step rejection to the configured chat
func (c *Client) NotifyStepRejected(ctx context.Context, requisitionID int64, step *entity.ApprovalStep) error {
	msg := fmt.Sprintf("Requisition #%d: step %d (%s) rejected by %s",
		requisitionID, step.Position+1, step.Role, step.DecidedBy)
	if step.Comment != "" {
		msg += fmt.Sprintf(": %s", step.Comment)
	}
	return c.sendText(ctx, msg)
}

func (c *Client) sendText(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshal message content: %w", err)
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(c.chatID).
			MsgType(larkim.MsgTypeText).
			Content(string(payload)).
			Build()).
		Build()

	resp, err := c.sdk.Im.V1.Message.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("send lark message: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("lark api error: code=%d msg=%s", resp.Code, resp.Msg)
	}

	c.logger.Debug("Lark notification sent", zap.String("chat_id", c.chatID))
	return nil
}

// Verify interface compliance
var _ port.Notifier = (*Client)(nil)
