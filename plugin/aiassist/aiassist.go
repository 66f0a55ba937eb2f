// Package aiassist wraps the external text-generation endpoint. The assistant
// never returns an error to callers: every failure mode degrades to a fixed
// human-readable string.
package aiassist

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	disabledMessage      = "AI Assistant is currently disabled."
	notConfiguredMessage = "AI Assistant is not properly configured. Please set the AI API key."
	errorMessage         = "I apologize, but I encountered an error while processing your message."
	clarifyMessage       = "I'm here to help. Could you clarify your question?"

	systemPrompt      = "You are a concise and helpful AI assistant."
	maxResponseTokens = 300
)

// Config carries the assistant settings from the profile.
type Config struct {
	Enabled bool
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Assistant issues single bounded chat-completion requests against an
// OpenAI-compatible endpoint.
type Assistant struct {
	cfg    Config
	client *openai.Client
}

func New(cfg Config) *Assistant {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &Assistant{cfg: cfg, client: openai.NewClientWithConfig(clientCfg)}
}

// IsAvailable reports whether a generation attempt is worth making at all.
func (a *Assistant) IsAvailable() bool {
	return a.cfg.Enabled && a.cfg.APIKey != ""
}

// GenerateResponse produces the assistant's reply to a user message. The
// optional contextText is prefixed into the prompt. The call is bounded by the
// configured timeout and is never retried; any error is logged and absorbed.
func (a *Assistant) GenerateResponse(ctx context.Context, message, contextText string) string {
	if !a.cfg.Enabled {
		slog.Debug("AI assistant is disabled")
		return disabledMessage
	}
	if a.cfg.APIKey == "" {
		slog.Warn("AI assistant API key is not configured")
		return notConfiguredMessage
	}

	prompt := message
	if contextText != "" {
		prompt = fmt.Sprintf("Context: %s\n\nUser: %s", contextText, message)
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     a.cfg.Model,
		MaxTokens: maxResponseTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		slog.Error("AI assistant request failed", "err", err)
		return errorMessage
	}
	if len(resp.Choices) == 0 {
		slog.Warn("AI assistant returned no choices")
		return clarifyMessage
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return clarifyMessage
	}
	return content
}
