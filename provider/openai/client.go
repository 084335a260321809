// Package openai adapts github.com/openai/openai-go to model.ProviderChat.
// It also backs the fixed-model-id Judge used for Synthesis, Cross-Exam
// synthesis, and Verdict, so every call is a single Chat Completions round
// trip with no tool calling or streaming.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/thebenlamm/LLM-Conclave-sub004/runtime/model"
)

// completionsClient captures the subset of the openai-go client the adapter
// calls, so tests can substitute a fake in place of the real service.
type completionsClient interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Client implements model.ProviderChat over OpenAI Chat Completions.
type Client struct {
	completions completionsClient
}

// New builds a Client from an openai-go Chat Completions service.
func New(completions completionsClient) (*Client, error) {
	if completions == nil {
		return nil, errors.New("openai: completions client is required")
	}
	return &Client{completions: completions}, nil
}

// NewFromAPIKey constructs a Client using the default openai-go HTTP
// transport, reading OPENAI_API_KEY/OPENAI_ORG_ID defaults from the
// environment the way openai.NewClient does.
func NewFromAPIKey(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	oc := openai.NewClient(option.WithAPIKey(apiKey))
	return New(&oc.Chat.Completions)
}

// Chat sends messages (and an optional system prompt) to modelID and returns
// the first choice's text and token usage.
func (c *Client) Chat(ctx context.Context, modelID string, messages []model.Message, systemPrompt string) (model.ChatResponse, error) {
	params := openai.ChatCompletionNewParams{Model: modelID}
	if systemPrompt != "" {
		params.Messages = append(params.Messages, openai.SystemMessage(systemPrompt))
	}
	for _, m := range messages {
		switch m.Role {
		case model.RoleUser:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		case model.RoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		case model.RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		}
	}
	if len(params.Messages) == 0 {
		return model.ChatResponse{}, errors.New("openai: at least one message is required")
	}

	completion, err := c.completions.New(ctx, params)
	if err != nil {
		return model.ChatResponse{}, translateError(modelID, err)
	}
	return translate(completion), nil
}

func translate(completion *openai.ChatCompletion) model.ChatResponse {
	var text string
	if len(completion.Choices) > 0 {
		text = completion.Choices[0].Message.Content
	}
	return model.ChatResponse{
		Text: text,
		Usage: model.Usage{
			InputTokens:  int(completion.Usage.PromptTokens),
			OutputTokens: int(completion.Usage.CompletionTokens),
		},
	}
}

// translateError classifies an openai-go failure into a *model.ProviderError
// so the Hedged Request Manager can make retry/substitution decisions
// without string-matching SDK internals.
func translateError(modelID string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		kind := model.ProviderErrorKindUnknown
		retryable := false
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			kind, retryable = model.ProviderErrorKindRateLimited, true
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			kind = model.ProviderErrorKindAuth
		case apiErr.StatusCode >= 500:
			kind, retryable = model.ProviderErrorKindUnavailable, true
		case apiErr.StatusCode >= 400:
			kind = model.ProviderErrorKindInvalidRequest
		}
		return model.NewProviderError("openai", "chat:"+modelID, apiErr.StatusCode, kind, apiErr.Code, apiErr.Message, retryable, err)
	}
	return fmt.Errorf("openai chat completion: %w", err)
}
