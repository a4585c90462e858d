// Package openai provides the optional AI advisory reviewer. Its notes are
// purely informational and never gate an approval decision.
package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/procureops/requisition-engine/internal/application/port"
	"github.com/procureops/requisition-engine/internal/domain/entity"
)

// Config holds advisor configuration
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// Advisor reviews submitted requisitions with a chat completion model
type Advisor struct {
	client *openai.Client
	cfg    Config
	logger *zap.Logger
}

// NewAdvisor creates a new Advisor
func NewAdvisor(cfg Config, logger *zap.Logger) *Advisor {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &Advisor{
		client: openai.NewClient(cfg.APIKey),
		cfg:    cfg,
		logger: logger,
	}
}

// Review produces a short advisory note for a submitted requisition
func (a *Advisor) Review(ctx context.Context, req *entity.Requisition) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.cfg.Model,
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: reviewPrompt(req)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	note := resp.Choices[0].Message.Content
	a.logger.Debug("Advisory review completed",
		zap.Int64("requisition_id", req.ID),
		zap.Int("note_length", len(note)),
	)
	return note, nil
}

// Verify interface compliance
var _ port.Advisor = (*Advisor)(nil)
