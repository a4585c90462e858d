// Package lark delivers requisition notifications to a Lark group chat.
package lark

import (
	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"go.uber.org/zap"
)

// Config holds Lark client configuration
type Config struct {
	AppID     string
	AppSecret string
	// ChatID is the group chat receiving requisition notifications.
	ChatID string
}

// Client wraps the Lark SDK client
type Client struct {
	sdk    *lark.Client
	chatID string
	logger *zap.Logger
}

// NewClient creates a new Lark client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	sdk := lark.NewClient(cfg.AppID, cfg.AppSecret,
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
	)

	return &Client{
		sdk:    sdk,
		chatID: cfg.ChatID,
		logger: logger,
	}
}
