// Package strategy implements the Mode Strategy capability set: per-round
// prompt generation and early-termination policy for the Converge and
// Explore debate modes. Each mode is a value satisfying the Strategy
// interface, not a subclass of a shared base — injected into the orchestrator
// via a constructor parameter, per the capability-set design this core
// specifies.
package strategy

// Mode names one of the two debate styles.
type Mode string

const (
	ModeConverge Mode = "converge"
	ModeExplore  Mode = "explore"
)

// Strategy is the capability set every mode implements: prompt generation
// for all four rounds plus the Round-2 early-termination test.
type Strategy interface {
	Name() Mode
	PromptVersion() string

	IndependentPrompt(question, context string) string
	SynthesisPrompt(question string, independents []IndependentView) string
	CrossExamPrompt(question string, own IndependentView, synthesis string) string
	CrossExamSynthesisPrompt(question, combinedResponses string) string
	VerdictPrompt(question, r1Summary, r2Summary, r3Summary string) string

	// ShouldTerminateEarly reports whether, given the Synthesis round's
	// consensus confidence and the round number just completed, Rounds 3-4
	// should be skipped.
	ShouldTerminateEarly(consensusConfidence float64, round int) bool
}

// IndependentView is the minimal per-agent view a strategy needs to build
// Round 2/3 prompts: the agent's identity and their Round 1 position.
type IndependentView struct {
	AgentID    string
	Position   string
	KeyPoints  []string
	Rationale  string
	Confidence float64
}

const jsonOnlyInstruction = "\n\nRespond with JSON only. Do not include any prose before or after the JSON object."
