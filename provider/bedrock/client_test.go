package bedrock

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebenlamm/LLM-Conclave-sub004/runtime/model"
)

type stubConverseClient struct {
	lastInput *bedrockruntime.ConverseInput
	out       *bedrockruntime.ConverseOutput
	err       error
}

func (s *stubConverseClient) Converse(_ context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	s.lastInput = params
	return s.out, s.err
}

func TestChat_TextOnly(t *testing.T) {
	stub := &stubConverseClient{out: &bedrockruntime.ConverseOutput{
		Output: &types.ConverseOutputMemberMessage{Value: types.Message{
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: "titan says yes"}},
		}},
		Usage: &types.TokenUsage{InputTokens: aws.Int32(8), OutputTokens: aws.Int32(16)},
	}}
	cl, err := New(stub)
	require.NoError(t, err)

	resp, err := cl.Chat(context.Background(), "amazon.titan-text-express-v1", []model.Message{{Role: model.RoleUser, Content: "vote"}}, "be brief")
	require.NoError(t, err)
	assert.Equal(t, "titan says yes", resp.Text)
	assert.Equal(t, 8, resp.Usage.InputTokens)
	assert.Equal(t, 16, resp.Usage.OutputTokens)
	require.Len(t, stub.lastInput.System, 1)
}

func TestChat_NoMessagesIsError(t *testing.T) {
	cl, err := New(&stubConverseClient{})
	require.NoError(t, err)
	_, err = cl.Chat(context.Background(), "amazon.titan-text-express-v1", nil, "")
	assert.Error(t, err)
}

func TestChat_ThrottlingClassifiedAsRateLimited(t *testing.T) {
	cl, err := New(&stubConverseClient{err: &types.ThrottlingException{Message: aws.String("too many requests")}})
	require.NoError(t, err)

	_, err = cl.Chat(context.Background(), "amazon.titan-text-express-v1", []model.Message{{Role: model.RoleUser, Content: "vote"}}, "")
	require.Error(t, err)
	var pe *model.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, model.ProviderErrorKindRateLimited, pe.Kind)
	assert.True(t, pe.Retryable)
}
