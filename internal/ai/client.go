package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"oracle/internal/ai/component"
	"oracle/internal/config"
)

// ErrEmptyCompletion is returned when the backend produced no usable text.
var ErrEmptyCompletion = errors.New("generation backend returned empty output")

// Invoker is the generation backend boundary: a fully-formed prompt in,
// the backend's raw text out. Implementations must respect ctx and fail
// within a bounded wait.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// Client is the production Invoker backed by an eino ChatModel.
type Client struct {
	chatModel model.ChatModel
	timeout   time.Duration
}

// NewClient builds the backend client for the configured provider.
func NewClient(ctx context.Context, cfg *config.AIConfig) (*Client, error) {
	if cfg.APIKey == "" {
		log.Warn().Msg("AI API key not configured; backend calls may be rejected")
	}

	chatModel, err := component.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	return &Client{
		chatModel: chatModel,
		timeout:   timeout,
	}, nil
}

// Invoke sends one prompt to the backend and returns its trimmed output.
func (c *Client) Invoke(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := []*schema.Message{
		schema.UserMessage(prompt),
	}

	resp, err := c.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generation backend: %w", err)
	}

	out := strings.TrimSpace(resp.Content)
	if out == "" {
		return "", ErrEmptyCompletion
	}
	return out, nil
}
