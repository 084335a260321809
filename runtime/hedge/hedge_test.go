package hedge_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebenlamm/LLM-Conclave-sub004/runtime/hedge"
	"github.com/thebenlamm/LLM-Conclave-sub004/runtime/model"
)

// fakeChat resolves only after release is closed (or immediately if release
// is nil), optionally returning an error, and records whether ctx was
// cancelled before it could reply.
type fakeChat struct {
	release   chan struct{}
	err       error
	cancelled chan struct{}
}

func newFakeChat(err error) *fakeChat {
	return &fakeChat{err: err, cancelled: make(chan struct{}, 1)}
}

func (f *fakeChat) Chat(ctx context.Context, modelID string, messages []model.Message, systemPrompt string) (model.ChatResponse, error) {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			select {
			case f.cancelled <- struct{}{}:
			default:
			}
			return model.ChatResponse{}, ctx.Err()
		}
	}
	if f.err != nil {
		return model.ChatResponse{}, f.err
	}
	return model.ChatResponse{Text: "ok"}, nil
}

func TestDispatch_PrimaryFastPath(t *testing.T) {
	m := hedge.NewManager()
	m.HedgeDeadline = time.Hour
	primary := newFakeChat(nil)
	m.Register(hedge.Provider{Name: "p1", Tier: hedge.Tier1, Chat: primary})
	m.Register(hedge.Provider{Name: "p2", Tier: hedge.Tier1, Chat: newFakeChat(nil)})

	res, err := m.Dispatch(context.Background(), "p1", "model", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "p1", res.Provider)
	assert.False(t, res.Substituted)
}

func TestDispatch_BackupWinsOnLatency(t *testing.T) {
	m := hedge.NewManager()
	m.HedgeDeadline = 20 * time.Millisecond
	slow := newFakeChat(nil)
	slow.release = make(chan struct{}) // never released within the test
	m.Register(hedge.Provider{Name: "slow", Tier: hedge.Tier1, Chat: slow})
	m.Register(hedge.Provider{Name: "fast", Tier: hedge.Tier1, Chat: newFakeChat(nil)})

	res, err := m.Dispatch(context.Background(), "slow", "model", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "fast", res.Provider)
	assert.True(t, res.Substituted)
	assert.Equal(t, hedge.ReasonLatency, res.Reason)

	select {
	case <-slow.cancelled:
	case <-time.After(time.Second):
		t.Fatal("expected losing primary call to be cancelled")
	}
}

func TestDispatch_BackupUsedOnPrimaryFailure(t *testing.T) {
	m := hedge.NewManager()
	m.HedgeDeadline = time.Hour
	m.Register(hedge.Provider{Name: "p1", Tier: hedge.Tier1, Chat: newFakeChat(errors.New("boom"))})
	m.Register(hedge.Provider{Name: "p2", Tier: hedge.Tier1, Chat: newFakeChat(nil)})

	res, err := m.Dispatch(context.Background(), "p1", "model", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "p2", res.Provider)
	assert.True(t, res.Substituted)
	assert.Equal(t, hedge.ReasonFailure, res.Reason)
}

// scriptedPrompter always returns the configured decision, recording that it
// was asked and what cause it saw.
type scriptedPrompter struct {
	decision hedge.FailureDecision
	asked    bool
	cause    error
}

func (p *scriptedPrompter) Prompt(_ context.Context, _, _ string, cause error) (hedge.FailureDecision, error) {
	p.asked = true
	p.cause = cause
	return p.decision, nil
}

func TestDispatch_InteractiveFailure_YesAttemptsBackup(t *testing.T) {
	m := hedge.NewManager()
	m.HedgeDeadline = time.Hour
	m.Prompter = &scriptedPrompter{decision: hedge.FailureYes}
	m.Register(hedge.Provider{Name: "p1", Tier: hedge.Tier1, Chat: newFakeChat(errors.New("boom"))})
	m.Register(hedge.Provider{Name: "p2", Tier: hedge.Tier1, Chat: newFakeChat(nil)})

	res, err := m.Dispatch(context.Background(), "p1", "model", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "p2", res.Provider)
	assert.True(t, res.Substituted)
}

func TestDispatch_InteractiveFailure_NoDegradesGracefully(t *testing.T) {
	m := hedge.NewManager()
	m.HedgeDeadline = time.Hour
	prompter := &scriptedPrompter{decision: hedge.FailureNo}
	m.Prompter = prompter
	boom := errors.New("boom")
	m.Register(hedge.Provider{Name: "p1", Tier: hedge.Tier1, Chat: newFakeChat(boom)})
	backup := newFakeChat(nil)
	m.Register(hedge.Provider{Name: "p2", Tier: hedge.Tier1, Chat: backup})

	res, err := m.Dispatch(context.Background(), "p1", "model", nil, "")
	require.Error(t, err)
	assert.Equal(t, boom, err)
	assert.Equal(t, "p1", res.Provider)
	assert.False(t, res.Substituted)
	assert.True(t, prompter.asked)
}

func TestDispatch_InteractiveFailure_FailPropagatesWithoutBackup(t *testing.T) {
	m := hedge.NewManager()
	m.HedgeDeadline = time.Hour
	m.Prompter = &scriptedPrompter{decision: hedge.FailureFail}
	boom := errors.New("boom")
	m.Register(hedge.Provider{Name: "p1", Tier: hedge.Tier1, Chat: newFakeChat(boom)})
	m.Register(hedge.Provider{Name: "p2", Tier: hedge.Tier1, Chat: newFakeChat(nil)})

	_, err := m.Dispatch(context.Background(), "p1", "model", nil, "")
	require.Error(t, err)
	assert.Equal(t, boom, err)
}

func TestDispatch_NonInteractive_AutoAttemptsBackupDespitePrompter(t *testing.T) {
	m := hedge.NewManager()
	m.HedgeDeadline = time.Hour
	m.NonInteractive = true
	prompter := &scriptedPrompter{decision: hedge.FailureFail}
	m.Prompter = prompter
	m.Register(hedge.Provider{Name: "p1", Tier: hedge.Tier1, Chat: newFakeChat(errors.New("boom"))})
	m.Register(hedge.Provider{Name: "p2", Tier: hedge.Tier1, Chat: newFakeChat(nil)})

	res, err := m.Dispatch(context.Background(), "p1", "model", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "p2", res.Provider)
	assert.False(t, prompter.asked)
}

func TestDispatch_AllProvidersUnavailable(t *testing.T) {
	m := hedge.NewManager()
	m.HedgeDeadline = time.Hour
	m.Register(hedge.Provider{Name: "p1", Tier: hedge.Tier1, Chat: newFakeChat(errors.New("boom"))})

	_, err := m.Dispatch(context.Background(), "p1", "model", nil, "")
	require.Error(t, err)
	var unavailable *hedge.AllProvidersUnavailableError
	assert.ErrorAs(t, err, &unavailable)
}

func TestDispatch_UnknownPrimary(t *testing.T) {
	m := hedge.NewManager()
	_, err := m.Dispatch(context.Background(), "ghost", "model", nil, "")
	require.Error(t, err)
	var unknown *hedge.UnknownProviderError
	assert.ErrorAs(t, err, &unknown)
}

func TestManager_MarksUnhealthyAfterRepeatedFailures(t *testing.T) {
	m := hedge.NewManager()
	m.HedgeDeadline = time.Hour
	failing := newFakeChat(errors.New("boom"))
	m.Register(hedge.Provider{Name: "p1", Tier: hedge.Tier1, Chat: failing})
	m.Register(hedge.Provider{Name: "p2", Tier: hedge.Tier1, Chat: newFakeChat(errors.New("boom"))})
	m.Register(hedge.Provider{Name: "p3", Tier: hedge.Tier2, Chat: newFakeChat(nil)})

	for i := 0; i < 3; i++ {
		_, _ = m.Dispatch(context.Background(), "p1", "model", nil, "")
	}
	assert.False(t, m.Healthy("p1"))
}
