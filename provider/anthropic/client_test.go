package anthropic

import (
	"context"
	"errors"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebenlamm/LLM-Conclave-sub004/runtime/model"
)

type stubMessagesClient struct {
	lastParams sdk.MessageNewParams
	resp       *sdk.Message
	err        error
}

func (s *stubMessagesClient) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	s.lastParams = body
	return s.resp, s.err
}

func TestChat_TextOnly(t *testing.T) {
	stub := &stubMessagesClient{resp: &sdk.Message{
		Content: []sdk.ContentBlockUnion{{Type: "text", Text: "the panel agrees"}},
		Usage:   sdk.Usage{InputTokens: 12, OutputTokens: 34},
	}}
	cl, err := New(stub, 512)
	require.NoError(t, err)

	resp, err := cl.Chat(context.Background(), "claude-sonnet-4", []model.Message{{Role: model.RoleUser, Content: "hello"}}, "be terse")
	require.NoError(t, err)
	assert.Equal(t, "the panel agrees", resp.Text)
	assert.Equal(t, 12, resp.Usage.InputTokens)
	assert.Equal(t, 34, resp.Usage.OutputTokens)
	require.Len(t, stub.lastParams.System, 1)
	assert.Equal(t, "be terse", stub.lastParams.System[0].Text)
}

func TestChat_NoMessagesIsError(t *testing.T) {
	cl, err := New(&stubMessagesClient{}, 512)
	require.NoError(t, err)
	_, err = cl.Chat(context.Background(), "claude-sonnet-4", nil, "")
	assert.Error(t, err)
}

func TestChat_TransportErrorWrapped(t *testing.T) {
	cl, err := New(&stubMessagesClient{err: errors.New("connection reset")}, 512)
	require.NoError(t, err)
	_, err = cl.Chat(context.Background(), "claude-sonnet-4", []model.Message{{Role: model.RoleUser, Content: "hi"}}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}
