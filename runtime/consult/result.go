package consult

import (
	"time"

	"github.com/thebenlamm/LLM-Conclave-sub004/runtime/artifact"
)

// TokenUsage is an {input, output, total} token triple.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// AgentResponse is the envelope paired with each Round 1 or Round 3 call. It
// is created once a call resolves or fails and never mutated afterward.
type AgentResponse struct {
	AgentID    string     `json:"agent_id"`
	Model      string     `json:"model"`
	Provider   string     `json:"provider"`
	Content    string     `json:"content"`
	Tokens     TokenUsage `json:"tokens"`
	DurationMS int64      `json:"duration_ms"`
	Timestamp  time.Time  `json:"timestamp"`
	Error      string     `json:"error,omitempty"`
}

// Perspective summarises one agent's Round 1 position for the final result.
type Perspective struct {
	AgentID    string  `json:"agent_id"`
	Position   string  `json:"position"`
	Confidence float64 `json:"confidence"`
}

// Responses holds each round's artifacts/responses, present only up to the
// last round the consultation reached.
type Responses struct {
	Round1 []AgentResponse     `json:"round1,omitempty"`
	Round2 *artifact.Synthesis `json:"round2,omitempty"`
	Round3 *artifact.CrossExam `json:"round3,omitempty"`
	Round4 *artifact.Verdict   `json:"round4,omitempty"`
}

// Cost is the final {tokens, usd} accounting for a consultation.
type Cost struct {
	Tokens TokenUsage `json:"tokens"`
	USD    float64    `json:"usd"`
}

// Result is the sealed ConsultationResult: constructed incrementally inside
// the orchestrator and finalised at Complete or Aborted.
type Result struct {
	ConsultationID  string             `json:"consultation_id"`
	Question        string             `json:"question"`
	Context         string             `json:"context,omitempty"`
	Mode            string             `json:"mode"`
	AgentList       []string           `json:"agent_list"`
	State           string             `json:"state"`
	RoundsRequested int                `json:"rounds_requested"`
	RoundsCompleted int                `json:"rounds_completed"`
	Responses       Responses          `json:"responses"`
	Consensus       string             `json:"consensus,omitempty"`
	Confidence      float64            `json:"confidence"`
	Recommendation  string             `json:"recommendation,omitempty"`
	Concerns        []string           `json:"concerns,omitempty"`
	Dissent         []artifact.Dissent `json:"dissent,omitempty"`
	Perspectives    []Perspective      `json:"perspectives,omitempty"`
	Cost            Cost               `json:"cost"`
	EstimatedCostUSD float64           `json:"estimated_cost"`
	ActualCostUSD    float64           `json:"actual_cost"`
	CostExceeded     bool              `json:"cost_exceeded"`
	DurationMS       int64             `json:"duration_ms"`
	PromptVersions   []string          `json:"prompt_versions,omitempty"`
	Status           string             `json:"status"`
	AbortReason      string             `json:"abort_reason,omitempty"`
	ResumeToken      string             `json:"resume_token,omitempty"`
	Signature        string             `json:"signature,omitempty"`
}
