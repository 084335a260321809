// Package model defines the provider-agnostic message and chat types shared
// by the consultation runtime and the provider adapters. Unlike a
// general-purpose agent runtime, a consultation round only ever sends plain
// text: there is no tool calling, no multimodal content, no streaming.
package model

import "context"

// ConversationRole identifies the speaker of a Message.
type ConversationRole string

const (
	// RoleUser marks a message authored by the caller (the orchestrator, on
	// behalf of the consultation).
	RoleUser ConversationRole = "user"
	// RoleAssistant marks a message authored by the model.
	RoleAssistant ConversationRole = "assistant"
	// RoleSystem marks a system/instruction message.
	RoleSystem ConversationRole = "system"
)

type (
	// Message is a single turn in a conversation sent to a provider.
	Message struct {
		Role    ConversationRole
		Content string
	}

	// Usage reports token consumption for a single chat call.
	Usage struct {
		InputTokens  int
		OutputTokens int
	}

	// ChatResponse is the normalized result of a ProviderChat call.
	ChatResponse struct {
		Text  string
		Usage Usage
	}

	// ProviderChat is the capability every provider adapter implements. It is
	// the only transport surface the consultation runtime depends on; the
	// concrete HTTP/SDK plumbing lives in the provider/ adapters and is out of
	// scope for the runtime itself.
	ProviderChat interface {
		// Chat sends messages plus an optional system prompt to the named
		// model and returns the assistant's text and token usage. Adapters
		// that can classify an API failure return it as a *ProviderError
		// (see provider_error.go); other failures come back as ordinary
		// wrapped errors.
		Chat(ctx context.Context, model string, messages []Message, systemPrompt string) (ChatResponse, error)
	}
)
