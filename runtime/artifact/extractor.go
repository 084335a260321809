// Package artifact implements the Artifact Extractor: turning free-form
// model text into one of the four typed round artifacts, tolerant of prose
// wrapping and common LLM JSON noise.
package artifact

import (
	"encoding/json"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// Round identifies which of the four debate rounds an artifact belongs to.
type Round int

const (
	RoundIndependent Round = 1
	RoundSynthesis   Round = 2
	RoundCrossExam   Round = 3
	RoundVerdict     Round = 4
)

type (
	// Independent is the Round 1 per-agent artifact.
	Independent struct {
		AgentID      string   `json:"agent_id"`
		Position     string   `json:"position"`
		KeyPoints    []string `json:"key_points"`
		Rationale    string   `json:"rationale"`
		Confidence   float64  `json:"confidence"`
		ProseExcerpt string   `json:"prose_excerpt"`
		CreatedAt    int64    `json:"created_at"`
	}

	// ConsensusPoint is one agreed point within a Synthesis artifact.
	ConsensusPoint struct {
		Point             string   `json:"point"`
		SupportingAgents  []string `json:"supporting_agents"`
		Confidence        float64  `json:"confidence"`
	}

	// Viewpoint is one agent's stance on a tension within a Synthesis artifact.
	Viewpoint struct {
		AgentID   string `json:"agent_id"`
		Viewpoint string `json:"viewpoint"`
	}

	// Tension is an unresolved disagreement surfaced by Synthesis.
	Tension struct {
		Topic      string      `json:"topic"`
		Viewpoints []Viewpoint `json:"viewpoints"`
	}

	// Synthesis is the Round 2 Judge artifact.
	Synthesis struct {
		ConsensusPoints []ConsensusPoint `json:"consensus_points"`
		Tensions        []Tension        `json:"tensions"`
		PriorityOrder   []string         `json:"priority_order"`
	}

	// Challenge is one challenge raised in Cross-Examination.
	Challenge struct {
		Challenger string   `json:"challenger"`
		Target     string   `json:"target_agent_or_consensus"`
		Challenge  string   `json:"challenge"`
		Evidence   []string `json:"evidence"`
	}

	// Rebuttal is one agent's response to a challenge.
	Rebuttal struct {
		AgentID  string `json:"agent"`
		Rebuttal string `json:"rebuttal"`
	}

	// CrossExam is the Round 3 Judge artifact.
	CrossExam struct {
		Challenges []Challenge `json:"challenges"`
		Rebuttals  []Rebuttal  `json:"rebuttals"`
		Unresolved []string    `json:"unresolved"`
	}

	// Dissent is one agent's recorded disagreement with the final verdict.
	Dissent struct {
		AgentID  string `json:"agent"`
		Concern  string `json:"concern"`
		Severity string `json:"severity"`
	}

	// Verdict is the Round 4 Judge artifact.
	Verdict struct {
		Recommendation string    `json:"recommendation"`
		Confidence     float64   `json:"confidence"`
		Evidence       []string  `json:"evidence"`
		Dissent        []Dissent `json:"dissent"`
		Analysis       string    `json:"_analysis"`
	}
)

// requiredKey names the field whose absence or blankness fails extraction
// for each round, per the documented invariant.
func requiredKey(round Round) string {
	switch round {
	case RoundIndependent:
		return "position"
	case RoundSynthesis:
		return "consensus_points"
	case RoundCrossExam:
		return "challenges"
	case RoundVerdict:
		return "recommendation"
	default:
		return ""
	}
}

// Extract locates the first balanced JSON object in text, parses it with a
// tiered fallback chain (strict JSON, then json-repair, then Hjson),
// validates it against the round's schema, and decodes it into the round's
// typed artifact. It returns (nil, false) — never an error — when extraction
// fails for any reason: the orchestrator treats extraction failure as an
// agent failure for that round, not as a hard error to propagate.
func Extract(round Round, text string) (any, bool) {
	block, ok := firstBalancedObject(text)
	if !ok {
		return nil, false
	}

	raw, ok := tieredParse(block)
	if !ok {
		return nil, false
	}

	if err := ValidateSchema(round, raw); err != nil {
		return nil, false
	}

	if !hasRequiredKey(raw, requiredKey(round)) {
		return nil, false
	}

	switch round {
	case RoundIndependent:
		var a Independent
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, false
		}
		a.Confidence = clamp01(a.Confidence)
		if a.KeyPoints == nil {
			a.KeyPoints = []string{}
		}
		return a, true
	case RoundSynthesis:
		var s Synthesis
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, false
		}
		if s.ConsensusPoints == nil {
			s.ConsensusPoints = []ConsensusPoint{}
		}
		if s.Tensions == nil {
			s.Tensions = []Tension{}
		}
		if s.PriorityOrder == nil {
			s.PriorityOrder = []string{}
		}
		for i := range s.ConsensusPoints {
			s.ConsensusPoints[i].Confidence = clamp01(s.ConsensusPoints[i].Confidence)
		}
		return s, true
	case RoundCrossExam:
		var c CrossExam
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, false
		}
		if c.Challenges == nil {
			c.Challenges = []Challenge{}
		}
		if c.Rebuttals == nil {
			c.Rebuttals = []Rebuttal{}
		}
		if c.Unresolved == nil {
			c.Unresolved = []string{}
		}
		return c, true
	case RoundVerdict:
		var v Verdict
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, false
		}
		v.Confidence = clamp01(v.Confidence)
		if v.Evidence == nil {
			v.Evidence = []string{}
		}
		if v.Dissent == nil {
			v.Dissent = []Dissent{}
		}
		return v, true
	default:
		return nil, false
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func hasRequiredKey(raw json.RawMessage, key string) bool {
	if key == "" {
		return true
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	v, ok := obj[key]
	if !ok {
		return false
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return strings.TrimSpace(s) != ""
	}
	// Non-string required keys (consensus_points, challenges) need only be present.
	return len(v) > 0 && string(v) != "null"
}

// tieredParse attempts strict JSON first, then json-repair, then Hjson,
// returning the first result that parses as a JSON object.
func tieredParse(block string) (json.RawMessage, bool) {
	var probe any
	if err := json.Unmarshal([]byte(block), &probe); err == nil {
		return json.RawMessage(block), true
	}

	if repaired, err := jsonrepair.RepairJSON(block); err == nil {
		if err := json.Unmarshal([]byte(repaired), &probe); err == nil {
			return json.RawMessage(repaired), true
		}
	}

	var hjsonResult any
	if err := hjson.Unmarshal([]byte(block), &hjsonResult); err == nil {
		if asJSON, err := json.Marshal(hjsonResult); err == nil {
			if err := json.Unmarshal(asJSON, &probe); err == nil {
				return json.RawMessage(asJSON), true
			}
		}
	}

	return nil, false
}

// firstBalancedObject scans text for the first top-level balanced {...}
// block, tolerating string-literal braces and escape sequences, and
// tolerating preamble/postamble prose around it.
func firstBalancedObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
