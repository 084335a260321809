package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebenlamm/LLM-Conclave-sub004/runtime/model"
)

type stubCompletionsClient struct {
	lastParams openai.ChatCompletionNewParams
	resp       *openai.ChatCompletion
	err        error
}

func (s *stubCompletionsClient) New(_ context.Context, body openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	s.lastParams = body
	return s.resp, s.err
}

func TestChat_TextOnly(t *testing.T) {
	stub := &stubCompletionsClient{resp: &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "verdict: ship it"}}},
		Usage:   openai.CompletionUsage{PromptTokens: 40, CompletionTokens: 15},
	}}
	cl, err := New(stub)
	require.NoError(t, err)

	resp, err := cl.Chat(context.Background(), "gpt-4o", []model.Message{{Role: model.RoleUser, Content: "synthesize"}}, "you are the judge")
	require.NoError(t, err)
	assert.Equal(t, "verdict: ship it", resp.Text)
	assert.Equal(t, 40, resp.Usage.InputTokens)
	assert.Equal(t, 15, resp.Usage.OutputTokens)
	require.Len(t, stub.lastParams.Messages, 2)
}

func TestChat_NoMessagesIsError(t *testing.T) {
	cl, err := New(&stubCompletionsClient{})
	require.NoError(t, err)
	_, err = cl.Chat(context.Background(), "gpt-4o", nil, "")
	assert.Error(t, err)
}

func TestChat_TransportErrorWrapped(t *testing.T) {
	cl, err := New(&stubCompletionsClient{err: errors.New("timeout")})
	require.NoError(t, err)
	_, err = cl.Chat(context.Background(), "gpt-4o", []model.Message{{Role: model.RoleUser, Content: "hi"}}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}
