package cost_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebenlamm/LLM-Conclave-sub004/runtime/cost"
)

type stubPrompter struct {
	decision     cost.ConsentDecision
	newThreshold float64
	calls        int
}

func (s *stubPrompter) Prompt(context.Context, cost.Estimate, int, int) (cost.ConsentDecision, float64, error) {
	s.calls++
	return s.decision, s.newThreshold, nil
}

func TestGate_EqualToThresholdDoesNotPrompt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	prompter := &stubPrompter{decision: cost.DecisionDenied}
	gate := cost.NewGate(path, false, prompter)

	est := cost.Estimate{USD: cost.DefaultAlwaysAllowUnder}
	assert.False(t, gate.ShouldPrompt(est))

	decision, err := gate.Consent(context.Background(), est, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, cost.DecisionApproved, decision)
	assert.Zero(t, prompter.calls)
}

func TestGate_AboveThresholdPromptsAndAlwaysPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	prompter := &stubPrompter{decision: cost.DecisionAlways, newThreshold: 5.0}
	gate := cost.NewGate(path, false, prompter)

	est := cost.Estimate{USD: cost.DefaultAlwaysAllowUnder + 0.01}
	decision, err := gate.Consent(context.Background(), est, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, cost.DecisionApproved, decision)
	assert.Equal(t, 1, prompter.calls)

	cfg := cost.LoadConfig(path)
	assert.Equal(t, 5.0, cfg.Consult.AlwaysAllowUnder)
}

func TestGate_NonInteractiveAutoApproves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	prompter := &stubPrompter{decision: cost.DecisionDenied}
	gate := cost.NewGate(path, true, prompter)

	est := cost.Estimate{USD: cost.DefaultAlwaysAllowUnder + 1}
	decision, err := gate.Consent(context.Background(), est, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, cost.DecisionApproved, decision)
	assert.Zero(t, prompter.calls)
}

func TestSaveAutoApproveThreshold_PreservesOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"other":"keep"}`), 0o644))
	require.NoError(t, cost.SaveAutoApproveThreshold(path, 2.0))

	cfg := cost.LoadConfig(path)
	assert.Equal(t, 2.0, cfg.Consult.AlwaysAllowUnder)

	require.NoError(t, cost.SaveAutoApproveThreshold(path, 3.5))
	cfg2 := cost.LoadConfig(path)
	assert.Equal(t, 3.5, cfg2.Consult.AlwaysAllowUnder)
	assert.Equal(t, "keep", cfg2.Extra["other"])
}

func TestSaveAutoApproveThreshold_RejectsNonPositive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	err := cost.SaveAutoApproveThreshold(path, 0)
	assert.Error(t, err)
}
