package state_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebenlamm/LLM-Conclave-sub004/runtime/errors"
	"github.com/thebenlamm/LLM-Conclave-sub004/runtime/state"
)

func TestMachine_HappyPath(t *testing.T) {
	m := state.NewMachine()
	assert.Equal(t, state.Estimating, m.Current())

	for _, to := range []state.State{state.AwaitingConsent, state.Independent, state.Synthesis, state.CrossExam, state.Verdict, state.Complete} {
		require.NoError(t, m.Transition(to))
	}
	assert.Equal(t, state.Complete, m.Current())
}

func TestMachine_RejectsBackwardTransition(t *testing.T) {
	m := state.NewMachine()
	require.NoError(t, m.Transition(state.AwaitingConsent))
	require.NoError(t, m.Transition(state.Independent))

	err := m.Transition(state.AwaitingConsent)
	require.Error(t, err)
	var invalid *errors.InvalidTransition
	assert.ErrorAs(t, err, &invalid)
}

func TestMachine_RejectsSelfTransition(t *testing.T) {
	m := state.NewMachine()
	err := m.Transition(state.Estimating)
	require.Error(t, err)
}

func TestMachine_SkippingAheadIsLegal(t *testing.T) {
	m := state.NewMachine()
	require.NoError(t, m.Transition(state.AwaitingConsent))
	require.NoError(t, m.Transition(state.Independent))
	require.NoError(t, m.Transition(state.Synthesis))
	// Early termination skips CrossExam and Verdict.
	require.NoError(t, m.Transition(state.Complete))
	assert.Equal(t, state.Complete, m.Current())
}

func TestMachine_AbortedIsUniversalSink(t *testing.T) {
	for _, from := range []state.State{state.Estimating, state.AwaitingConsent, state.Independent, state.Synthesis, state.CrossExam, state.Verdict} {
		m := state.NewMachine()
		for _, s := range []state.State{state.AwaitingConsent, state.Independent, state.Synthesis, state.CrossExam, state.Verdict} {
			if s == from {
				break
			}
			require.NoError(t, m.Transition(s))
		}
		require.NoError(t, m.Abort(state.ReasonCostExceeded))
		assert.Equal(t, state.Aborted, m.Current())
		assert.Equal(t, state.ReasonCostExceeded, m.AbortReason())
	}
}

func TestMachine_NothingLeavesTerminalStates(t *testing.T) {
	m := state.NewMachine()
	require.NoError(t, m.Abort(state.ReasonUserCancelled))
	assert.Error(t, m.Transition(state.Independent))
	assert.Error(t, m.Abort(state.ReasonTimeout))

	m2 := state.NewMachine()
	require.NoError(t, m2.Transition(state.AwaitingConsent))
	require.NoError(t, m2.Transition(state.Independent))
	require.NoError(t, m2.Transition(state.Synthesis))
	require.NoError(t, m2.Transition(state.CrossExam))
	require.NoError(t, m2.Transition(state.Verdict))
	require.NoError(t, m2.Transition(state.Complete))
	assert.Error(t, m2.Transition(state.Independent))
}
