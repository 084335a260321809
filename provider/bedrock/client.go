// Package bedrock adapts github.com/aws/aws-sdk-go-v2/service/bedrockruntime
// to model.ProviderChat using the Converse API, which normalizes message
// roles and usage reporting across every Bedrock-hosted model family (Titan,
// Llama, Mistral, and Claude-on-Bedrock alike) so the adapter needs no
// per-model-family branching.
package bedrock

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"

	"github.com/thebenlamm/LLM-Conclave-sub004/runtime/model"
)

// converseClient captures the subset of the bedrockruntime client the
// adapter calls, so tests can substitute a fake in place of the real client.
type converseClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Client implements model.ProviderChat over the Bedrock Converse API.
type Client struct {
	rt converseClient
}

// New builds a Client from a bedrockruntime client.
func New(rt converseClient) (*Client, error) {
	if rt == nil {
		return nil, errors.New("bedrock: runtime client is required")
	}
	return &Client{rt: rt}, nil
}

// NewFromDefaultConfig constructs a Client using the default AWS config
// chain (environment, shared config, instance role) for the given region.
func NewFromDefaultConfig(ctx context.Context, region string) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("bedrock: load aws config: %w", err)
	}
	return New(bedrockruntime.NewFromConfig(cfg))
}

// Chat sends messages (and an optional system prompt) to modelID via
// Converse and returns the assembled assistant text and token usage.
func (c *Client) Chat(ctx context.Context, modelID string, messages []model.Message, systemPrompt string) (model.ChatResponse, error) {
	convo := make([]types.Message, 0, len(messages))
	for _, m := range messages {
		var role types.ConversationRole
		switch m.Role {
		case model.RoleUser:
			role = types.ConversationRoleUser
		case model.RoleAssistant:
			role = types.ConversationRoleAssistant
		default:
			continue
		}
		convo = append(convo, types.Message{
			Role:    role,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
		})
	}
	if len(convo) == 0 {
		return model.ChatResponse{}, errors.New("bedrock: at least one user/assistant message is required")
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(modelID),
		Messages: convo,
	}
	if systemPrompt != "" {
		input.System = []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: systemPrompt}}
	}

	out, err := c.rt.Converse(ctx, input)
	if err != nil {
		return model.ChatResponse{}, translateError(modelID, err)
	}
	return translate(out), nil
}

func translate(out *bedrockruntime.ConverseOutput) model.ChatResponse {
	var text string
	if msg, ok := out.Output.(*types.ConverseOutputMemberMessage); ok {
		for _, block := range msg.Value.Content {
			if t, ok := block.(*types.ContentBlockMemberText); ok {
				text += t.Value
			}
		}
	}
	resp := model.ChatResponse{Text: text}
	if out.Usage != nil {
		resp.Usage = model.Usage{
			InputTokens:  int(aws.ToInt32(out.Usage.InputTokens)),
			OutputTokens: int(aws.ToInt32(out.Usage.OutputTokens)),
		}
	}
	return resp
}

// translateError classifies a Bedrock failure into a *model.ProviderError.
// Throttling and service-unavailable responses are distinguished from
// genuine request errors so the Hedged Request Manager can treat AWS
// throttling as a different failure domain than a direct API rate limit.
func translateError(modelID string, err error) error {
	var throttle *types.ThrottlingException
	if errors.As(err, &throttle) {
		return model.NewProviderError("bedrock", "converse:"+modelID, 429, model.ProviderErrorKindRateLimited, "ThrottlingException", throttle.ErrorMessage(), true, err)
	}
	var unavailable *types.ServiceUnavailableException
	if errors.As(err, &unavailable) {
		return model.NewProviderError("bedrock", "converse:"+modelID, 503, model.ProviderErrorKindUnavailable, "ServiceUnavailableException", unavailable.ErrorMessage(), true, err)
	}
	var accessDenied *types.AccessDeniedException
	if errors.As(err, &accessDenied) {
		return model.NewProviderError("bedrock", "converse:"+modelID, 403, model.ProviderErrorKindAuth, "AccessDeniedException", accessDenied.ErrorMessage(), false, err)
	}
	var validation *types.ValidationException
	if errors.As(err, &validation) {
		return model.NewProviderError("bedrock", "converse:"+modelID, 400, model.ProviderErrorKindInvalidRequest, "ValidationException", validation.ErrorMessage(), false, err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return model.NewProviderError("bedrock", "converse:"+modelID, 0, model.ProviderErrorKindUnknown, apiErr.ErrorCode(), apiErr.ErrorMessage(), false, err)
	}
	return fmt.Errorf("bedrock converse: %w", err)
}
