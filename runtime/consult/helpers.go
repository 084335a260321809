package consult

import (
	"fmt"
	"strings"

	"github.com/thebenlamm/LLM-Conclave-sub004/runtime/artifact"
	"github.com/thebenlamm/LLM-Conclave-sub004/runtime/cost"
	"github.com/thebenlamm/LLM-Conclave-sub004/runtime/partial"
	"github.com/thebenlamm/LLM-Conclave-sub004/runtime/state"
	"github.com/thebenlamm/LLM-Conclave-sub004/runtime/strategy"
)

// independentViews projects the panel's successful Round 1 artifacts into
// the minimal shape the strategy needs to build Round 2/3 prompts, stable by
// the agent's position in the panel list regardless of goroutine completion
// order.
func independentViews(r *run, agents []Agent) []strategy.IndependentView {
	r.mu.Lock()
	defer r.mu.Unlock()
	var views []strategy.IndependentView
	for _, a := range agents {
		ind, ok := r.r1Artifact[a.Name]
		if !ok {
			continue
		}
		views = append(views, strategy.IndependentView{
			AgentID: a.Name, Position: ind.Position, KeyPoints: ind.KeyPoints,
			Rationale: ind.Rationale, Confidence: ind.Confidence,
		})
	}
	return views
}

// topIndependent returns the Round 1 artifact with the highest confidence,
// breaking ties by panel order. Used to derive a best-effort consensus when
// the debate stops after Round 1 and no Synthesis/Verdict artifact exists.
func topIndependent(artifacts map[string]artifact.Independent, agents []Agent) (artifact.Independent, bool) {
	var best artifact.Independent
	found := false
	for _, a := range agents {
		ind, ok := artifacts[a.Name]
		if !ok {
			continue
		}
		if !found || ind.Confidence > best.Confidence {
			best = ind
			found = true
		}
	}
	return best, found
}

// perspectivesFrom derives the final result's per-agent perspective summary
// from the Round 1 artifacts, in panel order.
func perspectivesFrom(artifacts map[string]artifact.Independent, agents []Agent) []Perspective {
	var out []Perspective
	for _, a := range agents {
		ind, ok := artifacts[a.Name]
		if !ok {
			continue
		}
		out = append(out, Perspective{AgentID: a.Name, Position: ind.Position, Confidence: ind.Confidence})
	}
	return out
}

// maxConsensusConfidence is the maximum confidence across a Synthesis
// artifact's consensus points, used as the early-termination test input and
// as the sealed result's confidence when no verdict was reached. A nil or
// empty synthesis yields 0.
func maxConsensusConfidence(s *artifact.Synthesis) float64 {
	if s == nil || len(s.ConsensusPoints) == 0 {
		return 0
	}
	max := s.ConsensusPoints[0].Confidence
	for _, p := range s.ConsensusPoints[1:] {
		if p.Confidence > max {
			max = p.Confidence
		}
	}
	return max
}

func summarizeSynthesis(s *artifact.Synthesis) string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range s.ConsensusPoints {
		fmt.Fprintf(&b, "- %s (confidence %.2f, supported by %s)\n", p.Point, p.Confidence, strings.Join(p.SupportingAgents, ", "))
	}
	for _, t := range s.Tensions {
		fmt.Fprintf(&b, "Tension on %s:\n", t.Topic)
		for _, v := range t.Viewpoints {
			fmt.Fprintf(&b, "  %s: %s\n", v.AgentID, v.Viewpoint)
		}
	}
	return b.String()
}

func summarizeIndependents(artifacts map[string]artifact.Independent, agents []Agent) string {
	var b strings.Builder
	for _, a := range agents {
		ind, ok := artifacts[a.Name]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", a.Name, ind.Position)
	}
	return b.String()
}

func summarizeCrossExam(c *artifact.CrossExam) string {
	if c == nil {
		return ""
	}
	var b strings.Builder
	for _, ch := range c.Challenges {
		fmt.Fprintf(&b, "%s challenged %s: %s\n", ch.Challenger, ch.Target, ch.Challenge)
	}
	for _, u := range c.Unresolved {
		fmt.Fprintf(&b, "Unresolved: %s\n", u)
	}
	return b.String()
}

// actualCost prices one agent response's tokens at its model's per-1000-token
// rate.
func actualCost(resp AgentResponse) float64 {
	price := cost.PriceFor(resp.Model)
	return (float64(resp.Tokens.Input)/1000.0)*price.Input + (float64(resp.Tokens.Output)/1000.0)*price.Output
}

func roundsCompleted(r *run) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	if len(r.r1) > 0 {
		n = 1
	}
	if r.r2 != nil {
		n = 2
	}
	if r.r3Artifact != nil {
		n = 3
	}
	if r.r4 != nil {
		n = 4
	}
	return n
}

func roundNames(r *run) (completed, incomplete []string) {
	all := []string{"independent", "synthesis", "cross_exam", "verdict"}
	n := roundsCompleted(r)
	return all[:n], all[n:]
}

func partialReason(reason state.AbortReason) partial.AbortReason {
	switch reason {
	case state.ReasonUserCancelled:
		return partial.AbortUserCancel
	case state.ReasonTimeout:
		return partial.AbortTimeout
	case state.ReasonCostExceeded:
		return partial.AbortCostExceeded
	default:
		return partial.AbortError
	}
}
