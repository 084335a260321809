package artifact_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebenlamm/LLM-Conclave-sub004/runtime/artifact"
)

func TestExtract_Independent_TolerantOfProse(t *testing.T) {
	text := `Sure, here's my analysis:
	{"position": "Use OAuth 2.0", "key_points": ["standard", "widely supported"], "rationale": "because", "confidence": 1.4}
	Let me know if you have questions.`

	got, ok := artifact.Extract(artifact.RoundIndependent, text)
	require.True(t, ok)
	ind := got.(artifact.Independent)
	assert.Equal(t, "Use OAuth 2.0", ind.Position)
	assert.Equal(t, 1.0, ind.Confidence) // clamped
}

func TestExtract_Independent_MissingPositionFails(t *testing.T) {
	text := `{"confidence": 0.5}`
	_, ok := artifact.Extract(artifact.RoundIndependent, text)
	assert.False(t, ok)
}

func TestExtract_NoJSONObjectFails(t *testing.T) {
	_, ok := artifact.Extract(artifact.RoundIndependent, "I refuse to answer in JSON.")
	assert.False(t, ok)
}

func TestExtract_TrailingCommaRepaired(t *testing.T) {
	text := `{"position": "Use JWT", "confidence": 0.8,}`
	got, ok := artifact.Extract(artifact.RoundIndependent, text)
	require.True(t, ok)
	assert.Equal(t, "Use JWT", got.(artifact.Independent).Position)
}

func TestExtract_Synthesis_CoercesMissingArraysToEmpty(t *testing.T) {
	text := `{"consensus_points": [{"point": "p", "supporting_agents": ["a"], "confidence": 0.9}]}`
	got, ok := artifact.Extract(artifact.RoundSynthesis, text)
	require.True(t, ok)
	syn := got.(artifact.Synthesis)
	assert.NotNil(t, syn.Tensions)
	assert.Empty(t, syn.Tensions)
	assert.NotNil(t, syn.PriorityOrder)
}

func TestExtract_Verdict_ClampsConfidence(t *testing.T) {
	text := `{"recommendation": "Ship it", "confidence": -0.3}`
	got, ok := artifact.Extract(artifact.RoundVerdict, text)
	require.True(t, ok)
	assert.Equal(t, 0.0, got.(artifact.Verdict).Confidence)
}

func TestExtract_CrossExam_MissingChallengesFails(t *testing.T) {
	text := `{"unresolved": ["thing"]}`
	_, ok := artifact.Extract(artifact.RoundCrossExam, text)
	assert.False(t, ok)
}
