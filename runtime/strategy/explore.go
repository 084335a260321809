package strategy

import (
	"fmt"
	"strings"
)

// Explore is the "divergent" debate mode: rounds preserve disagreement and
// the final verdict presents a menu of options rather than one decision.
type Explore struct{}

// NewExplore constructs an Explore strategy. Explore has no tunable
// parameters: it never terminates early, by design.
func NewExplore() *Explore { return &Explore{} }

func (e *Explore) Name() Mode            { return ModeExplore }
func (e *Explore) PromptVersion() string { return "explore-v1" }

func (e *Explore) IndependentPrompt(question, context string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are participating in a structured expert debate. Question: %s\n", question)
	if context != "" {
		fmt.Fprintf(&b, "Context:\n%s\n", context)
	}
	b.WriteString("Generate a diverse perspective. Do not converge toward a consensus; surface a distinctive angle, with key points, rationale, and confidence.\n")
	b.WriteString(`Schema: {"position": string, "key_points": [string], "rationale": string, "confidence": number (0-1)}`)
	b.WriteString(jsonOnlyInstruction)
	return b.String()
}

func (e *Explore) SynthesisPrompt(question string, independents []IndependentView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nThe panel produced these independent positions:\n", question)
	for _, v := range independents {
		fmt.Fprintf(&b, "- %s (confidence %.2f): %s\n", v.AgentID, v.Confidence, v.Position)
	}
	b.WriteString("\nFind common themes AND preserve unique insights. Do not discard minority viewpoints in favor of a single consensus.\n")
	b.WriteString(`Schema: {"consensus_points": [{"point": string, "supporting_agents": [string], "confidence": number}], "tensions": [{"topic": string, "viewpoints": [{"agent_id": string, "viewpoint": string}]}], "priority_order": [string]}`)
	b.WriteString(jsonOnlyInstruction)
	return b.String()
}

func (e *Explore) CrossExamPrompt(question string, own IndependentView, synthesis string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nYour Round 1 position was: %s\n\nPanel synthesis:\n%s\n", question, own.Position, synthesis)
	b.WriteString("Build on ideas from other positions and bridge differences where possible, without forcing false agreement.\n")
	b.WriteString(`Schema: {"challenges": [{"challenger": string, "target_agent_or_consensus": string, "challenge": string, "evidence": [string]}], "rebuttals": [{"agent": string, "rebuttal": string}], "unresolved": [string]}`)
	b.WriteString(jsonOnlyInstruction)
	return b.String()
}

func (e *Explore) CrossExamSynthesisPrompt(question, combinedResponses string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nCross-examination responses from the panel:\n%s\n", question, combinedResponses)
	b.WriteString("Consolidate the bridging attempts and genuinely unresolved points into a single record.\n")
	b.WriteString(`Schema: {"challenges": [{"challenger": string, "target_agent_or_consensus": string, "challenge": string, "evidence": [string]}], "rebuttals": [{"agent": string, "rebuttal": string}], "unresolved": [string]}`)
	b.WriteString(jsonOnlyInstruction)
	return b.String()
}

func (e *Explore) VerdictPrompt(question, r1Summary, r2Summary, r3Summary string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nRound 1 positions:\n%s\n\nRound 2 synthesis:\n%s\n\nRound 3 cross-examination:\n%s\n",
		question, r1Summary, r2Summary, r3Summary)
	b.WriteString("Present a menu of options with trade-offs. Do not force a single recommendation; label each option and attach the evidence and dissent relevant to it.\n")
	b.WriteString(`Schema: {"recommendation": string, "confidence": number, "evidence": [string], "dissent": [{"agent": string, "concern": string, "severity": "low"|"medium"|"high"}]}`)
	b.WriteString(jsonOnlyInstruction)
	return b.String()
}

// ShouldTerminateEarly always returns false: Explore mode never skips rounds.
func (e *Explore) ShouldTerminateEarly(float64, int) bool { return false }
