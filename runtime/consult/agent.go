// Package consult implements the Consult Orchestrator: the state machine,
// cost gating, round-by-round fan-out/fan-in, and partial-result persistence
// that together drive a multi-agent debate to a sealed ConsultationResult.
package consult

// Agent is an immutable panel member: an identity, a model, and the
// provider it's dispatched through. The panel is fixed at construction time;
// agents are value objects and never mutated once the orchestrator is built.
type Agent struct {
	Name            string
	RoleDescription string
	ModelID         string
	Provider        string // name registered with the Hedged Request Manager
	SystemPrompt    string
}
