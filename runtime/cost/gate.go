package cost

import (
	"context"
)

// ConsentDecision is the resolved outcome of a Cost Gate consent check.
type ConsentDecision string

const (
	DecisionApproved ConsentDecision = "approved"
	DecisionDenied   ConsentDecision = "denied"
	DecisionAlways   ConsentDecision = "always"
)

// ConsentPrompter is the boundary capability for interactively asking the
// operator to approve, deny, or always-approve an estimated spend. Rendering
// the actual prompt (terminal UI, keypress capture) is out of scope for the
// core; ConsentPrompter is the seam the core calls through.
type ConsentPrompter interface {
	// Prompt asks the operator to resolve estimate for the given agent/round
	// counts. Implementations returning DecisionAlways must also return a
	// positive newThreshold; the Gate persists it.
	Prompt(ctx context.Context, estimate Estimate, agentCount, rounds int) (decision ConsentDecision, newThreshold float64, err error)
}

// Gate implements cost-based admission control: a consultation whose
// estimate exceeds the configured threshold must be approved (interactively
// or automatically) before any agent call is dispatched.
type Gate struct {
	configPath    string
	nonInteractive bool
	prompter       ConsentPrompter
}

// NewGate constructs a Gate backed by the config file at configPath. When
// nonInteractive is true, prompter is never invoked: estimates over
// threshold are auto-approved. The Gate holds no logger and writes no log
// line for such an approval.
func NewGate(configPath string, nonInteractive bool, prompter ConsentPrompter) *Gate {
	return &Gate{configPath: configPath, nonInteractive: nonInteractive, prompter: prompter}
}

// ShouldPrompt reports whether estimate.USD strictly exceeds the configured
// alwaysAllowUnder threshold. Equal-to-threshold does not prompt.
func (g *Gate) ShouldPrompt(estimate Estimate) bool {
	cfg := LoadConfig(g.configPath)
	return estimate.USD > cfg.Consult.AlwaysAllowUnder
}

// Consent resolves the admission decision for estimate. If ShouldPrompt is
// false, the call is auto-approved with no interaction. Otherwise, in
// non-interactive mode it is auto-approved without any prompt or log line; in interactive mode
// the configured ConsentPrompter is consulted, and a DecisionAlways outcome
// atomically persists the new threshold before returning DecisionApproved for
// the current run.
func (g *Gate) Consent(ctx context.Context, estimate Estimate, agentCount, rounds int) (ConsentDecision, error) {
	if !g.ShouldPrompt(estimate) {
		return DecisionApproved, nil
	}
	if g.nonInteractive {
		return DecisionApproved, nil
	}
	if g.prompter == nil {
		return DecisionApproved, nil
	}
	decision, newThreshold, err := g.prompter.Prompt(ctx, estimate, agentCount, rounds)
	if err != nil {
		return "", err
	}
	if decision == DecisionAlways {
		if err := SaveAutoApproveThreshold(g.configPath, newThreshold); err != nil {
			return "", err
		}
		return DecisionApproved, nil
	}
	return decision, nil
}
