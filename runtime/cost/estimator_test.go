package cost_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thebenlamm/LLM-Conclave-sub004/runtime/cost"
)

func TestProject_InputTokensNotMultipliedByRounds(t *testing.T) {
	agents := []cost.AgentPricing{{AgentID: "sec", ModelID: "claude-3-5-sonnet"}, {AgentID: "arch", ModelID: "gpt-4o"}}
	est := cost.Project("how should we design auth?", agents, 4)

	// questionTokens * agent-count, not further multiplied by rounds.
	assert.Equal(t, est.QuestionTokens*len(agents), est.InputTokensTotal)
	assert.Equal(t, 4*cost.TokensPerRound, est.OutputTokensPerAgent)
}

func TestProject_NegativeRoundsClampToZero(t *testing.T) {
	est := cost.Project("q", []cost.AgentPricing{{AgentID: "a", ModelID: "claude"}}, -3)
	assert.Equal(t, 0, est.OutputTokensPerAgent)
	assert.Equal(t, 0, est.OutputTokensTotal)
}

func TestPriceFor_SubstringMatchingIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, cost.PriceFor("claude-3-5-sonnet"), cost.PriceFor("CLAUDE-3-5-SONNET"))
	assert.NotEqual(t, cost.PriceFor("claude-3-5-sonnet"), cost.PriceFor("gpt-4o"))
}

func TestEarlyTerminationSavings_ZeroWhenNoRoundsSkipped(t *testing.T) {
	agents := []cost.AgentPricing{{AgentID: "a", ModelID: "claude"}}
	assert.Zero(t, cost.EarlyTerminationSavings(agents, 0))
	assert.Positive(t, cost.EarlyTerminationSavings(agents, 2))
}
