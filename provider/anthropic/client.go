// Package anthropic adapts github.com/anthropics/anthropic-sdk-go to
// model.ProviderChat: plain-text, non-streaming, no tools. A consultation
// round is always one user turn plus an optional system prompt, so the
// adapter's only job is translating that into a Messages.New call and back.
package anthropic

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/thebenlamm/LLM-Conclave-sub004/runtime/model"
)

// messagesClient captures the subset of the Anthropic SDK client the adapter
// calls, so tests can substitute a fake in place of *sdk.MessageService.
type messagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Client implements model.ProviderChat over the Anthropic Messages API.
type Client struct {
	msg       messagesClient
	maxTokens int
}

// New builds a Client from an Anthropic Messages client and a completion
// token cap applied to every call (a consultation round has no per-request
// budget of its own).
func New(msg messagesClient, maxTokens int) (*Client, error) {
	if msg == nil {
		return nil, errors.New("anthropic: messages client is required")
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Client{msg: msg, maxTokens: maxTokens}, nil
}

// NewFromAPIKey constructs a Client using the default Anthropic HTTP
// transport, reading additional defaults (base URL, timeouts) from the
// environment the way sdk.NewClient does.
func NewFromAPIKey(apiKey string, maxTokens int) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&ac.Messages, maxTokens)
}

// Chat sends messages (and an optional system prompt) to modelID and returns
// the assistant's concatenated text blocks and token usage.
func (c *Client) Chat(ctx context.Context, modelID string, messages []model.Message, systemPrompt string) (model.ChatResponse, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(modelID),
		MaxTokens: int64(c.maxTokens),
	}
	if systemPrompt != "" {
		params.System = []sdk.TextBlockParam{{Text: systemPrompt}}
	}
	convo := make([]sdk.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case model.RoleUser:
			convo = append(convo, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		case model.RoleAssistant:
			convo = append(convo, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content)))
		case model.RoleSystem:
			params.System = append(params.System, sdk.TextBlockParam{Text: m.Content})
		}
	}
	if len(convo) == 0 {
		return model.ChatResponse{}, errors.New("anthropic: at least one user/assistant message is required")
	}
	params.Messages = convo

	msg, err := c.msg.New(ctx, params)
	if err != nil {
		return model.ChatResponse{}, fmt.Errorf("anthropic messages.new: %w", err)
	}
	return translate(msg), nil
}

func translate(msg *sdk.Message) model.ChatResponse {
	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return model.ChatResponse{
		Text: text,
		Usage: model.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}
}
