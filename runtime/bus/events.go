package bus

import "time"

// Topic names one of the fixed lifecycle channels the core publishes to.
type Topic string

const (
	// TopicConsultationStarted fires once a consultation begins.
	TopicConsultationStarted Topic = "consultation:started"
	// TopicCostEstimated fires after the Cost Estimator produces its projection.
	TopicCostEstimated Topic = "consultation:cost_estimated"
	// TopicUserConsent fires after the Cost Gate resolves a consent decision.
	TopicUserConsent Topic = "consultation:user_consent"
	// TopicRoundArtifact fires whenever a round artifact is accepted.
	TopicRoundArtifact Topic = "consultation:round_artifact"
	// TopicRoundCompleted fires when a round's join-all barrier resolves.
	TopicRoundCompleted Topic = "round:completed"
	// TopicAgentThinking fires when an agent call is dispatched.
	TopicAgentThinking Topic = "agent:thinking"
	// TopicAgentCompleted fires when an agent call resolves (success or error).
	TopicAgentCompleted Topic = "agent:completed"
	// TopicProviderSubstituted fires when a hedge backup served a call.
	TopicProviderSubstituted Topic = "consultation:provider_substituted"
	// TopicConsultationCompleted fires once the result is sealed at Complete.
	TopicConsultationCompleted Topic = "consultation:completed"
	// TopicConsultationAborted fires once the result is sealed at Aborted.
	TopicConsultationAborted Topic = "consultation:aborted"
)

// base is embedded by every concrete event to satisfy Event and carry the
// fields every subscriber can rely on regardless of topic.
type base struct {
	topic           Topic
	consultationID  string
	timestamp       int64
}

func newBase(topic Topic, consultationID string) base {
	return base{topic: topic, consultationID: consultationID, timestamp: time.Now().UnixMilli()}
}

func (b base) Topic() Topic             { return b.topic }
func (b base) ConsultationID() string   { return b.consultationID }
func (b base) Timestamp() int64         { return b.timestamp }

type (
	// ConsultationStartedEvent fires when a consultation begins.
	ConsultationStartedEvent struct {
		base
		Question string
		Mode     string
	}

	// CostEstimatedEvent carries the pre-flight cost projection.
	CostEstimatedEvent struct {
		base
		EstimateUSD float64
		AgentCount  int
		Rounds      int
	}

	// UserConsentEvent carries the Cost Gate's resolved decision.
	UserConsentEvent struct {
		base
		Decision string // "approved", "denied", "always"
	}

	// RoundArtifactEvent fires when a round artifact is accepted by the
	// Artifact Extractor (one event per successful per-agent artifact in R1,
	// one per Judge artifact in R2, R3 and R4).
	RoundArtifactEvent struct {
		base
		Round   int
		AgentID string
	}

	// RoundCompletedEvent fires when a round's fan-out/fan-in barrier resolves.
	RoundCompletedEvent struct {
		base
		Round     int
		Succeeded int
		Failed    int
	}

	// AgentThinkingEvent fires when an agent call is dispatched.
	AgentThinkingEvent struct {
		base
		Round   int
		AgentID string
		Model   string
	}

	// AgentCompletedEvent fires when an agent call resolves.
	AgentCompletedEvent struct {
		base
		Round       int
		AgentID     string
		Model       string
		DurationMS  int64
		InputTokens int
		OutputTokens int
		Err         string
	}

	// ProviderSubstitutedEvent fires when a hedge backup served a call
	// instead of the agent's configured primary provider.
	ProviderSubstitutedEvent struct {
		base
		AgentID          string
		PrimaryProvider  string
		BackupProvider   string
		Reason           string
	}

	// ConsultationCompletedEvent fires once the result reaches Complete.
	ConsultationCompletedEvent struct {
		base
		RoundsCompleted int
		Confidence      float64
	}

	// ConsultationAbortedEvent fires once the result reaches Aborted.
	ConsultationAbortedEvent struct {
		base
		Reason string
	}
)

// NewConsultationStarted constructs a ConsultationStartedEvent.
func NewConsultationStarted(consultationID, question, mode string) ConsultationStartedEvent {
	return ConsultationStartedEvent{base: newBase(TopicConsultationStarted, consultationID), Question: question, Mode: mode}
}

// NewCostEstimated constructs a CostEstimatedEvent.
func NewCostEstimated(consultationID string, estimateUSD float64, agentCount, rounds int) CostEstimatedEvent {
	return CostEstimatedEvent{base: newBase(TopicCostEstimated, consultationID), EstimateUSD: estimateUSD, AgentCount: agentCount, Rounds: rounds}
}

// NewUserConsent constructs a UserConsentEvent.
func NewUserConsent(consultationID, decision string) UserConsentEvent {
	return UserConsentEvent{base: newBase(TopicUserConsent, consultationID), Decision: decision}
}

// NewRoundArtifact constructs a RoundArtifactEvent.
func NewRoundArtifact(consultationID string, round int, agentID string) RoundArtifactEvent {
	return RoundArtifactEvent{base: newBase(TopicRoundArtifact, consultationID), Round: round, AgentID: agentID}
}

// NewRoundCompleted constructs a RoundCompletedEvent.
func NewRoundCompleted(consultationID string, round, succeeded, failed int) RoundCompletedEvent {
	return RoundCompletedEvent{base: newBase(TopicRoundCompleted, consultationID), Round: round, Succeeded: succeeded, Failed: failed}
}

// NewAgentThinking constructs an AgentThinkingEvent.
func NewAgentThinking(consultationID string, round int, agentID, model string) AgentThinkingEvent {
	return AgentThinkingEvent{base: newBase(TopicAgentThinking, consultationID), Round: round, AgentID: agentID, Model: model}
}

// NewAgentCompleted constructs an AgentCompletedEvent.
func NewAgentCompleted(consultationID string, round int, agentID, model string, durationMS int64, inputTok, outputTok int, errText string) AgentCompletedEvent {
	return AgentCompletedEvent{
		base: newBase(TopicAgentCompleted, consultationID), Round: round, AgentID: agentID, Model: model,
		DurationMS: durationMS, InputTokens: inputTok, OutputTokens: outputTok, Err: errText,
	}
}

// NewProviderSubstituted constructs a ProviderSubstitutedEvent.
func NewProviderSubstituted(consultationID, agentID, primary, backup, reason string) ProviderSubstitutedEvent {
	return ProviderSubstitutedEvent{base: newBase(TopicProviderSubstituted, consultationID), AgentID: agentID, PrimaryProvider: primary, BackupProvider: backup, Reason: reason}
}

// NewConsultationCompleted constructs a ConsultationCompletedEvent.
func NewConsultationCompleted(consultationID string, roundsCompleted int, confidence float64) ConsultationCompletedEvent {
	return ConsultationCompletedEvent{base: newBase(TopicConsultationCompleted, consultationID), RoundsCompleted: roundsCompleted, Confidence: confidence}
}

// NewConsultationAborted constructs a ConsultationAbortedEvent.
func NewConsultationAborted(consultationID, reason string) ConsultationAbortedEvent {
	return ConsultationAbortedEvent{base: newBase(TopicConsultationAborted, consultationID), Reason: reason}
}
