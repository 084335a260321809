package strategy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thebenlamm/LLM-Conclave-sub004/runtime/strategy"
)

func TestConverge_EarlyTermination(t *testing.T) {
	c := strategy.NewConverge()
	assert.True(t, c.ShouldTerminateEarly(0.96, 2))
	assert.False(t, c.ShouldTerminateEarly(0.96, 1)) // round < 2
	assert.False(t, c.ShouldTerminateEarly(0.5, 3))  // confidence below threshold
}

func TestConverge_CustomThreshold(t *testing.T) {
	c := strategy.NewConverge(strategy.WithConvergeThreshold(0.80))
	assert.True(t, c.ShouldTerminateEarly(0.81, 2))
}

func TestExplore_NeverTerminatesEarly(t *testing.T) {
	e := strategy.NewExplore()
	assert.False(t, e.ShouldTerminateEarly(1.0, 99))
}

func TestPrompts_EndWithJSONOnlyInstruction(t *testing.T) {
	for _, s := range []strategy.Strategy{strategy.NewConverge(), strategy.NewExplore()} {
		assert.Contains(t, s.IndependentPrompt("q", ""), "JSON only")
		assert.Contains(t, s.SynthesisPrompt("q", nil), "JSON only")
		assert.Contains(t, s.VerdictPrompt("q", "", "", ""), "JSON only")
	}
}

func TestConvergeVerdictPrompt_RequiresAnalysisScratchpad(t *testing.T) {
	c := strategy.NewConverge()
	prompt := c.VerdictPrompt("q", "", "", "")
	assert.Contains(t, prompt, "_analysis")
}
