// Package state implements the Consult State Machine: a strictly forward DAG
// of consultation phases with a universal Aborted sink.
package state

import (
	"sync"

	consulterrors "github.com/thebenlamm/LLM-Conclave-sub004/runtime/errors"
)

// State is one phase of a consultation's lifecycle.
type State string

const (
	Estimating      State = "Estimating"
	AwaitingConsent State = "AwaitingConsent"
	Independent     State = "Independent"
	Synthesis       State = "Synthesis"
	CrossExam       State = "CrossExam"
	Verdict         State = "Verdict"
	Complete        State = "Complete"
	Aborted         State = "Aborted"
)

// AbortReason enumerates why a consultation entered Aborted.
type AbortReason string

const (
	ReasonAllAgentsFailed AbortReason = "all-agents-failed"
	ReasonSynthesisFailed AbortReason = "synthesis-failed"
	ReasonCostExceeded    AbortReason = "cost-exceeded"
	ReasonUserCancelled   AbortReason = "user-cancelled"
	ReasonTimeout         AbortReason = "timeout"
	ReasonError           AbortReason = "error"
)

// order lists the single legal forward path. Aborted is reachable from every
// non-terminal state and is handled separately below.
var order = []State{Estimating, AwaitingConsent, Independent, Synthesis, CrossExam, Verdict, Complete}

var rank = func() map[State]int {
	m := make(map[State]int, len(order))
	for i, s := range order {
		m[s] = i
	}
	return m
}()

// Machine enforces monotone forward transitions and freezes on entering
// Aborted, recording the cause. Every method guards the state with the
// Machine's own mutex, so it is safe to share across goroutines (the
// orchestrator drives rounds sequentially but round-internal goroutines may
// query Current concurrently). NewMachine gives the initial Estimating state.
type Machine struct {
	mu     sync.Mutex
	cur    State
	reason AbortReason
	frozen bool
}

// NewMachine constructs a Machine in its initial Estimating state.
func NewMachine() *Machine {
	return &Machine{cur: Estimating}
}

// Current returns the machine's current state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur
}

// AbortReason returns the recorded cause, valid only once Current() == Aborted.
func (m *Machine) AbortReason() AbortReason {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reason
}

// Transition moves the machine to to. Aborted is always legal from any
// non-frozen state; Transition records no reason for it (Abort does). Any
// other target must be strictly
// later than the current state in the fixed forward order; skipping ahead is
// legal (rounds may be skipped by early termination) but moving backward or
// re-entering the current state is not.
func (m *Machine) Transition(to State) error {
	return m.transition(to, "")
}

// Abort moves the machine to Aborted with the given reason. It is a no-op
// error if the machine is already frozen (Complete or Aborted).
func (m *Machine) Abort(reason AbortReason) error {
	return m.transition(Aborted, reason)
}

func (m *Machine) transition(to State, reason AbortReason) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frozen {
		return &consulterrors.InvalidTransition{From: string(m.cur), To: string(to)}
	}
	if to == Aborted {
		m.cur = Aborted
		m.reason = reason
		m.frozen = true
		return nil
	}
	fromRank, ok := rank[m.cur]
	if !ok {
		return &consulterrors.InvalidTransition{From: string(m.cur), To: string(to)}
	}
	toRank, ok := rank[to]
	if !ok || toRank <= fromRank {
		return &consulterrors.InvalidTransition{From: string(m.cur), To: string(to)}
	}
	m.cur = to
	if to == Complete {
		m.frozen = true
	}
	return nil
}
