package consult

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thebenlamm/LLM-Conclave-sub004/runtime/artifact"
	"github.com/thebenlamm/LLM-Conclave-sub004/runtime/bus"
	"github.com/thebenlamm/LLM-Conclave-sub004/runtime/cost"
	consulterrors "github.com/thebenlamm/LLM-Conclave-sub004/runtime/errors"
	"github.com/thebenlamm/LLM-Conclave-sub004/runtime/hedge"
	"github.com/thebenlamm/LLM-Conclave-sub004/runtime/model"
	"github.com/thebenlamm/LLM-Conclave-sub004/runtime/partial"
	"github.com/thebenlamm/LLM-Conclave-sub004/runtime/state"
	"github.com/thebenlamm/LLM-Conclave-sub004/runtime/strategy"
	"github.com/thebenlamm/LLM-Conclave-sub004/telemetry"
)

// CostOverrunMultiple is the in-flight cost enforcement guard: a consultation
// whose actual spend crosses estimate.USD times this factor aborts unless
// AllowCostOverruns is set.
const CostOverrunMultiple = 1.5

// Orchestrator drives one consultation at a time through the four-round
// debate. It owns the state machine, the in-progress result, and the cost
// tally for each call to Consult; the panel, the Hedged Request Manager, the
// Cost Gate, the Partial Result Manager, and the Event Bus are shared,
// borrowed dependencies injected at construction.
type Orchestrator struct {
	Agents        []Agent
	JudgeProvider string
	JudgeModelID  string

	Hedge   *hedge.Manager
	Gate    *cost.Gate
	Partial *partial.Manager
	Bus     bus.Bus

	Logger  telemetry.Logger
	Tracer  telemetry.Tracer
	Metrics telemetry.Metrics
}

// NewOrchestrator constructs an Orchestrator. Logger/Tracer/Metrics default to
// no-ops when nil so a caller that doesn't care about observability doesn't
// have to wire it.
func NewOrchestrator(agents []Agent, judgeProvider, judgeModelID string, hedgeMgr *hedge.Manager, gate *cost.Gate, partialMgr *partial.Manager, eventBus bus.Bus, logger telemetry.Logger, tracer telemetry.Tracer, metrics telemetry.Metrics) *Orchestrator {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	if tracer == nil {
		tracer = telemetry.NewNoopTracer()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Orchestrator{
		Agents: agents, JudgeProvider: judgeProvider, JudgeModelID: judgeModelID,
		Hedge: hedgeMgr, Gate: gate, Partial: partialMgr, Bus: eventBus,
		Logger: logger, Tracer: tracer, Metrics: metrics,
	}
}

// run carries the mutable state of a single Consult invocation. It is never
// shared across consultations.
type run struct {
	id       string
	question string
	context  string
	opts     Options
	strat    strategy.Strategy
	machine  *state.Machine
	started  time.Time

	mu         sync.Mutex
	r1         []AgentResponse
	r1Artifact map[string]artifact.Independent // keyed by agent name, successes only
	r2         *artifact.Synthesis
	r3         []AgentResponse
	r3Artifact *artifact.CrossExam
	r4         *artifact.Verdict

	actualUSD float64
}

// Consult executes consult(question, context, options) and returns the
// sealed ConsultationResult. A non-nil error accompanies every Aborted
// outcome except user-cancelled admission denial, which returns (*Result,
// nil) with Status "aborted" per the documented exit-code-0 behavior.
func (o *Orchestrator) Consult(ctx context.Context, question, contextStr string, opts Options) (*Result, error) {
	opts = opts.WithDefaults()
	r := &run{
		id:         uuid.New().String(),
		question:   question,
		context:    contextStr,
		opts:       opts,
		machine:    state.NewMachine(),
		started:    time.Now(),
		r1Artifact: make(map[string]artifact.Independent),
	}
	if opts.Mode == strategy.ModeExplore {
		r.strat = strategy.NewExplore()
	} else {
		r.strat = strategy.NewConverge()
	}

	o.Bus.Publish(ctx, bus.NewConsultationStarted(r.id, question, string(opts.Mode)))

	// 1. Estimate.
	pricing := make([]cost.AgentPricing, len(o.Agents))
	for i, a := range o.Agents {
		pricing[i] = cost.AgentPricing{AgentID: a.Name, ModelID: a.ModelID}
	}
	estimate := cost.Project(question, pricing, opts.MaxRounds)
	o.Bus.Publish(ctx, bus.NewCostEstimated(r.id, estimate.USD, len(o.Agents), opts.MaxRounds))
	if err := r.machine.Transition(state.AwaitingConsent); err != nil {
		return nil, err
	}

	// 2. Consent.
	decision, err := o.Gate.Consent(ctx, estimate, len(o.Agents), opts.MaxRounds)
	if err != nil {
		return nil, err
	}
	o.Bus.Publish(ctx, bus.NewUserConsent(r.id, string(decision)))
	if decision == cost.DecisionDenied {
		_ = r.machine.Abort(state.ReasonUserCancelled)
		result := o.sealAborted(r, estimate, string(state.ReasonUserCancelled))
		o.Bus.Publish(ctx, bus.NewConsultationAborted(r.id, string(state.ReasonUserCancelled)))
		return result, nil
	}

	// 3. Round 1: Independent.
	if err := r.machine.Transition(state.Independent); err != nil {
		return nil, err
	}
	succeeded := o.runIndependent(ctx, r)
	if succeeded == 0 {
		_ = r.machine.Abort(state.ReasonAllAgentsFailed)
		return o.sealAbortedWithPartial(ctx, r, estimate, state.ReasonAllAgentsFailed), &consulterrors.TransportError{Round: 1, Cause: fmt.Errorf("all %d agents failed round 1", len(o.Agents))}
	}
	o.checkpoint(r, 1)
	if aborted, result, err := o.enforceCostGuard(ctx, r, estimate); aborted {
		return result, err
	}
	if opts.MaxRounds <= 1 {
		return o.sealComplete(ctx, r, estimate), nil
	}

	// 4. Round 2: Synthesis.
	if err := r.machine.Transition(state.Synthesis); err != nil {
		return nil, err
	}
	if err := o.runSynthesis(ctx, r); err != nil {
		_ = r.machine.Abort(state.ReasonSynthesisFailed)
		return o.sealAbortedWithPartial(ctx, r, estimate, state.ReasonSynthesisFailed), err
	}
	o.checkpoint(r, 2)
	if aborted, result, err := o.enforceCostGuard(ctx, r, estimate); aborted {
		return result, err
	}

	consensusConfidence := maxConsensusConfidence(r.r2)
	if r.strat.ShouldTerminateEarly(consensusConfidence, 2) && consensusConfidence >= opts.ConfidenceThreshold {
		savings := cost.EarlyTerminationSavings(pricing, 2)
		o.Logger.Info(ctx, "early termination", "consultation_id", r.id, "savings_usd", savings)
		return o.sealComplete(ctx, r, estimate), nil
	}

	// 5. Round 3: Cross-Examination.
	if err := r.machine.Transition(state.CrossExam); err != nil {
		return nil, err
	}
	o.runCrossExam(ctx, r)
	o.checkpoint(r, 3)
	if aborted, result, err := o.enforceCostGuard(ctx, r, estimate); aborted {
		return result, err
	}

	// 6. Round 4: Verdict.
	if err := r.machine.Transition(state.Verdict); err != nil {
		return nil, err
	}
	if err := o.runVerdict(ctx, r); err != nil {
		_ = r.machine.Abort(state.ReasonError)
		return o.sealAbortedWithPartial(ctx, r, estimate, state.ReasonError), err
	}
	o.checkpoint(r, 4)
	if aborted, result, err := o.enforceCostGuard(ctx, r, estimate); aborted {
		return result, err
	}

	// 7. Complete.
	return o.sealComplete(ctx, r, estimate), nil
}

// runIndependent fan-outs Round 1 across the panel and waits for all calls to
// resolve (success or error), returning the count of agents that produced a
// valid artifact.
func (o *Orchestrator) runIndependent(ctx context.Context, r *run) int {
	ctx, span := o.Tracer.Start(ctx, telemetry.SpanRoundIndependent, telemetry.RoundAttrs(r.id, 1))
	defer span.End()

	type outcome struct {
		resp AgentResponse
		art  artifact.Independent
		ok   bool
	}
	results := make([]outcome, len(o.Agents))

	var wg sync.WaitGroup
	for i, agent := range o.Agents {
		wg.Add(1)
		go func(i int, agent Agent) {
			defer wg.Done()
			prompt := r.strat.IndependentPrompt(r.question, r.context)
			resp, text := o.dispatch(ctx, r, 1, agent, prompt)
			results[i] = outcome{resp: resp}
			if text == "" {
				return
			}
			parsed, ok := artifact.Extract(artifact.RoundIndependent, text)
			if !ok {
				return
			}
			ind := parsed.(artifact.Independent)
			ind.AgentID = agent.Name
			results[i] = outcome{resp: resp, art: ind, ok: true}
		}(i, agent)
	}
	wg.Wait()

	succeeded, failed := 0, 0
	r.mu.Lock()
	for i, o2 := range results {
		r.r1 = append(r.r1, o2.resp)
		r.actualUSD += actualCost(o2.resp)
		if o2.ok {
			r.r1Artifact[o.Agents[i].Name] = o2.art
			succeeded++
		} else {
			failed++
		}
	}
	r.mu.Unlock()

	for i, o2 := range results {
		if o2.ok {
			o.Bus.Publish(ctx, bus.NewRoundArtifact(r.id, 1, o.Agents[i].Name))
		}
	}
	o.Bus.Publish(ctx, bus.NewRoundCompleted(r.id, 1, succeeded, failed))
	return succeeded
}

// runSynthesis issues the single Round 2 Judge call over every successful
// Round 1 artifact.
func (o *Orchestrator) runSynthesis(ctx context.Context, r *run) error {
	ctx, span := o.Tracer.Start(ctx, telemetry.SpanRoundSynthesis, telemetry.RoundAttrs(r.id, 2))
	defer span.End()

	views := independentViews(r, o.Agents)
	prompt := r.strat.SynthesisPrompt(r.question, views)
	resp, text := o.judgeCall(ctx, r, 2, prompt)
	r.mu.Lock()
	r.actualUSD += actualCost(resp)
	r.mu.Unlock()
	if text == "" {
		return &consulterrors.TransportError{Round: 2, Cause: fmt.Errorf("synthesis judge call failed: %s", resp.Error)}
	}
	parsed, ok := artifact.Extract(artifact.RoundSynthesis, text)
	if !ok {
		return &consulterrors.ExtractionError{Round: 2, Cause: fmt.Errorf("no synthesis artifact found in judge response")}
	}
	syn := parsed.(artifact.Synthesis)
	r.mu.Lock()
	r.r2 = &syn
	r.mu.Unlock()
	o.Bus.Publish(ctx, bus.NewRoundArtifact(r.id, 2, "judge"))
	return nil
}

// runCrossExam fan-outs per-agent cross-examination prompts over the agents
// that produced a Round 1 artifact, then issues a single Judge call over
// their combined responses. Judge failure here is tolerated: the
// cross-exam artifact becomes empty rather than aborting the consultation.
func (o *Orchestrator) runCrossExam(ctx context.Context, r *run) {
	ctx, span := o.Tracer.Start(ctx, telemetry.SpanRoundCrossExam, telemetry.RoundAttrs(r.id, 3))
	defer span.End()

	r.mu.Lock()
	synthesisText := summarizeSynthesis(r.r2)
	var eligible []Agent
	for _, a := range o.Agents {
		if _, ok := r.r1Artifact[a.Name]; ok {
			eligible = append(eligible, a)
		}
	}
	r.mu.Unlock()

	responses := make([]AgentResponse, len(eligible))
	texts := make([]string, len(eligible))
	var wg sync.WaitGroup
	for i, agent := range eligible {
		wg.Add(1)
		go func(i int, agent Agent) {
			defer wg.Done()
			own := r.r1Artifact[agent.Name]
			prompt := r.strat.CrossExamPrompt(r.question, strategy.IndependentView{
				AgentID: agent.Name, Position: own.Position, KeyPoints: own.KeyPoints,
				Rationale: own.Rationale, Confidence: own.Confidence,
			}, synthesisText)
			resp, text := o.dispatch(ctx, r, 3, agent, prompt)
			responses[i] = resp
			texts[i] = text
		}(i, agent)
	}
	wg.Wait()

	succeeded, failed := 0, 0
	combined := ""
	r.mu.Lock()
	for i, resp := range responses {
		r.r3 = append(r.r3, resp)
		r.actualUSD += actualCost(resp)
		if texts[i] != "" {
			combined += fmt.Sprintf("Agent %s:\n%s\n\n", eligible[i].Name, texts[i])
			succeeded++
		} else {
			failed++
		}
	}
	r.mu.Unlock()
	o.Bus.Publish(ctx, bus.NewRoundCompleted(r.id, 3, succeeded, failed))

	empty := artifact.CrossExam{Challenges: []artifact.Challenge{}, Rebuttals: []artifact.Rebuttal{}, Unresolved: []string{}}
	if succeeded == 0 {
		r.mu.Lock()
		r.r3Artifact = &empty
		r.mu.Unlock()
		return
	}

	prompt := r.strat.CrossExamSynthesisPrompt(r.question, combined)
	resp, text := o.judgeCall(ctx, r, 3, prompt)
	r.mu.Lock()
	r.actualUSD += actualCost(resp)
	r.mu.Unlock()
	if text == "" {
		r.mu.Lock()
		r.r3Artifact = &empty
		r.mu.Unlock()
		return
	}
	parsed, ok := artifact.Extract(artifact.RoundCrossExam, text)
	if !ok {
		r.mu.Lock()
		r.r3Artifact = &empty
		r.mu.Unlock()
		return
	}
	ce := parsed.(artifact.CrossExam)
	r.mu.Lock()
	r.r3Artifact = &ce
	r.mu.Unlock()
	o.Bus.Publish(ctx, bus.NewRoundArtifact(r.id, 3, "judge"))
}

// runVerdict issues the single Round 4 Judge call over R1+R2+R3. Extraction
// failure here is fatal: a consultation without a verdict is not complete.
func (o *Orchestrator) runVerdict(ctx context.Context, r *run) error {
	ctx, span := o.Tracer.Start(ctx, telemetry.SpanRoundVerdict, telemetry.RoundAttrs(r.id, 4))
	defer span.End()

	r.mu.Lock()
	r1Summary := summarizeIndependents(r.r1Artifact, o.Agents)
	r2Summary := summarizeSynthesis(r.r2)
	r3Summary := summarizeCrossExam(r.r3Artifact)
	r.mu.Unlock()

	prompt := r.strat.VerdictPrompt(r.question, r1Summary, r2Summary, r3Summary)
	resp, text := o.judgeCall(ctx, r, 4, prompt)
	r.mu.Lock()
	r.actualUSD += actualCost(resp)
	r.mu.Unlock()
	if text == "" {
		return &consulterrors.TransportError{Round: 4, Cause: fmt.Errorf("verdict judge call failed: %s", resp.Error)}
	}
	parsed, ok := artifact.Extract(artifact.RoundVerdict, text)
	if !ok {
		return &consulterrors.ExtractionError{Round: 4, Cause: fmt.Errorf("no verdict artifact found in judge response")}
	}
	v := parsed.(artifact.Verdict)
	r.mu.Lock()
	r.r4 = &v
	r.mu.Unlock()
	o.Bus.Publish(ctx, bus.NewRoundArtifact(r.id, 4, "judge"))
	return nil
}

// dispatch sends one agent-authored prompt through the Hedged Request
// Manager and returns both the sealed AgentResponse and the raw text (empty
// on failure, leaving extraction to the caller).
func (o *Orchestrator) dispatch(ctx context.Context, r *run, round int, agent Agent, prompt string) (AgentResponse, string) {
	o.Bus.Publish(ctx, bus.NewAgentThinking(r.id, round, agent.Name, agent.ModelID))
	start := time.Now()

	messages := []model.Message{{Role: model.RoleUser, Content: prompt}}
	result, err := o.Hedge.Dispatch(ctx, agent.Provider, agent.ModelID, messages, agent.SystemPrompt)
	duration := time.Since(start)

	resp := AgentResponse{
		AgentID:    agent.Name,
		Model:      agent.ModelID,
		Provider:   agent.Provider,
		DurationMS: duration.Milliseconds(),
		Timestamp:  time.Now(),
	}
	if err != nil {
		resp.Error = err.Error()
		o.Bus.Publish(ctx, bus.NewAgentCompleted(r.id, round, agent.Name, agent.ModelID, duration.Milliseconds(), 0, 0, err.Error()))
		return resp, ""
	}
	if result.Substituted {
		resp.Provider = result.Provider
		o.Bus.Publish(ctx, bus.NewProviderSubstituted(r.id, agent.Name, agent.Provider, result.Provider, string(result.Reason)))
	}
	resp.Content = result.Response.Text
	resp.Tokens = TokenUsage{
		Input: result.Response.Usage.InputTokens, Output: result.Response.Usage.OutputTokens,
		Total: result.Response.Usage.InputTokens + result.Response.Usage.OutputTokens,
	}
	o.Bus.Publish(ctx, bus.NewAgentCompleted(r.id, round, agent.Name, agent.ModelID, duration.Milliseconds(), resp.Tokens.Input, resp.Tokens.Output, ""))
	return resp, result.Response.Text
}

// judgeCall is a single-flight dispatch against the dedicated judge
// provider/model, reusing the same hedge path agents use.
func (o *Orchestrator) judgeCall(ctx context.Context, r *run, round int, prompt string) (AgentResponse, string) {
	judge := Agent{Name: "judge", ModelID: o.JudgeModelID, Provider: o.JudgeProvider}
	return o.dispatch(ctx, r, round, judge, prompt)
}

// enforceCostGuard compares actual spend so far to CostOverrunMultiple times
// the estimate and, if it's been crossed and overruns aren't allowed, aborts
// the consultation with a partial write.
func (o *Orchestrator) enforceCostGuard(ctx context.Context, r *run, estimate cost.Estimate) (bool, *Result, error) {
	if r.opts.AllowCostOverruns {
		return false, nil, nil
	}
	r.mu.Lock()
	actual := r.actualUSD
	r.mu.Unlock()
	if actual <= estimate.USD*CostOverrunMultiple {
		return false, nil, nil
	}
	_ = r.machine.Abort(state.ReasonCostExceeded)
	result := o.sealAbortedWithPartial(ctx, r, estimate, state.ReasonCostExceeded)
	return true, result, &consulterrors.CostExceeded{EstimateUSD: estimate.USD, ActualUSD: actual}
}

// checkpoint persists the in-progress result after a successfully completed
// round. Persistence failures here are logged and swallowed: they are
// non-critical per the documented error policy.
func (o *Orchestrator) checkpoint(r *run, round int) {
	snapshot := o.snapshot(r, state.State(fmt.Sprintf("round-%d", round)))
	if err := o.Partial.SaveCheckpoint(r.id, round, string(r.machine.Current()), snapshot); err != nil {
		o.Logger.Warn(context.Background(), "checkpoint write failed", "consultation_id", r.id, "round", round, "error", err)
	}
}

// sealAbortedWithPartial writes a signed partial result before returning the
// sealed in-memory Result, matching the documented "fatal paths always write
// a partial result" policy.
func (o *Orchestrator) sealAbortedWithPartial(ctx context.Context, r *run, estimate cost.Estimate, reason state.AbortReason) *Result {
	result := o.sealAborted(r, estimate, string(reason))
	completed, incomplete := roundNames(r)
	var failedAgents []string
	r.mu.Lock()
	for _, resp := range r.r1 {
		if resp.Error != "" {
			failedAgents = append(failedAgents, resp.AgentID)
		}
	}
	r.mu.Unlock()

	rec, err := o.Partial.WritePartial(r.id, partialReason(reason), result, completed, incomplete, failedAgents)
	if err != nil {
		o.Logger.Warn(ctx, "partial result write failed", "consultation_id", r.id, "error", err)
	} else {
		result.ResumeToken = rec.ResumeToken
		result.Signature = rec.Signature
	}
	o.Bus.Publish(ctx, bus.NewConsultationAborted(r.id, string(reason)))
	return result
}

// sealAborted builds the in-memory Result for an abort. The caller is
// responsible for publishing consultation:aborted once the result (and, for
// fatal paths, the partial write) is finalized.
func (o *Orchestrator) sealAborted(r *run, estimate cost.Estimate, reason string) *Result {
	result := o.baseResult(r, estimate)
	result.State = string(r.machine.Current())
	result.Status = "aborted"
	result.AbortReason = reason
	result.DurationMS = time.Since(r.started).Milliseconds()
	return result
}

// sealComplete transitions to Complete, assembles the final Result, and
// publishes consultation:completed.
func (o *Orchestrator) sealComplete(ctx context.Context, r *run, estimate cost.Estimate) *Result {
	_ = r.machine.Transition(state.Complete)
	result := o.baseResult(r, estimate)
	result.State = string(state.Complete)
	result.Status = "complete"
	result.DurationMS = time.Since(r.started).Milliseconds()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.r4 != nil {
		result.Recommendation = r.r4.Recommendation
		result.Consensus = r.r4.Recommendation
		result.Confidence = r.r4.Confidence
		result.Dissent = r.r4.Dissent
		result.Responses.Round4 = r.r4
	} else if r.r2 != nil {
		result.Confidence = maxConsensusConfidence(r.r2)
		var top artifact.ConsensusPoint
		for i, p := range r.r2.ConsensusPoints {
			if i == 0 || p.Confidence > top.Confidence {
				top = p
			}
		}
		result.Consensus = top.Point
	} else if top, ok := topIndependent(r.r1Artifact, o.Agents); ok {
		result.Confidence = top.Confidence
		result.Consensus = top.Position
		result.Recommendation = top.Position
	}
	if r.r3Artifact != nil {
		result.Concerns = r.r3Artifact.Unresolved
		result.Responses.Round3 = r.r3Artifact
	}
	result.Responses.Round1 = r.r1
	result.Responses.Round2 = r.r2
	result.Perspectives = perspectivesFrom(r.r1Artifact, o.Agents)
	result.RoundsCompleted = roundsCompleted(r)

	o.Metrics.IncCounter(telemetry.MetricConsultCostUSD, result.Cost.USD, "mode", string(r.opts.Mode))
	o.Bus.Publish(ctx, bus.NewConsultationCompleted(r.id, result.RoundsCompleted, result.Confidence))
	return &result
}

// baseResult assembles the fields common to every sealed Result regardless
// of outcome.
func (o *Orchestrator) baseResult(r *run, estimate cost.Estimate) Result {
	agentNames := make([]string, len(o.Agents))
	for i, a := range o.Agents {
		agentNames[i] = a.Name
	}

	r.mu.Lock()
	actual := r.actualUSD
	r.mu.Unlock()

	return Result{
		ConsultationID:   r.id,
		Question:         r.question,
		Context:          r.context,
		Mode:             string(r.opts.Mode),
		AgentList:        agentNames,
		RoundsRequested:  r.opts.MaxRounds,
		EstimatedCostUSD: estimate.USD,
		ActualCostUSD:    actual,
		CostExceeded:     actual > estimate.USD*CostOverrunMultiple,
		Cost:             Cost{USD: actual},
		PromptVersions:   []string{r.strat.PromptVersion()},
	}
}

func (o *Orchestrator) snapshot(r *run, _ state.State) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return map[string]any{
		"consultation_id": r.id,
		"state":           string(r.machine.Current()),
		"round1":          r.r1,
		"round2":          r.r2,
		"round3":          r.r3,
		"round4":          r.r4,
	}
}
