package openai

import (
	"fmt"

	"github.com/procureops/requisition-engine/internal/domain/entity"
)

const systemPrompt = `You are a procurement reviewer for an internal requisition system.
Given a purchase requisition, point out anything an approver should look at:
unusual amounts for the category, vague descriptions, or potential policy concerns.
Answer in at most three short sentences. If nothing stands out, answer with an empty string.`

func reviewPrompt(req *entity.Requisition) string {
	return fmt.Sprintf(
		"Title: %s\nDescription: %s\nAmount: %d.%02d %s\nCategory: %s\nDepartment: %s",
		req.Title,
		req.Description,
		req.AmountCents/100, req.AmountCents%100,
		req.Currency,
		req.Category,
		req.Department,
	)
}
