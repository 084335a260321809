// Package hedge implements the Hedged Request Manager: a single agent call is
// dispatched to a primary provider, raced against a same-tier backup if the
// primary is slow, and paced per-provider so hedge backups cannot trip a
// provider's own rate limiting.
package hedge

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/thebenlamm/LLM-Conclave-sub004/runtime/model"
)

// Tier ranks providers by typical latency/quality, descending.
type Tier int

const (
	Tier1 Tier = iota
	Tier2
	Tier3
)

// Provider is a named, tiered chat backend.
type Provider struct {
	Name  string
	Tier  Tier
	Chat  model.ProviderChat
	Limit rate.Limit // requests per second; 0 disables pacing
	Burst int
}

// SubstitutionReason explains why a backup provider's response was used.
type SubstitutionReason string

const (
	ReasonLatency SubstitutionReason = "latency"
	ReasonFailure SubstitutionReason = "failure"
)

// Result is the outcome of a single hedged dispatch.
type Result struct {
	Response    model.ChatResponse
	Provider    string
	Substituted bool
	Reason      SubstitutionReason
	Duration    time.Duration
}

// FailureDecision is the operator's resolution of a primary provider failure
// in interactive mode.
type FailureDecision string

const (
	FailureYes  FailureDecision = "yes"  // attempt a backup provider
	FailureNo   FailureDecision = "no"   // degrade gracefully, no backup
	FailureFail FailureDecision = "fail" // propagate the failure as-is
)

// FailurePrompter is the boundary capability for interactively asking the
// operator how to handle a primary provider's failure. Rendering the actual
// prompt is out of scope for the core; FailurePrompter is the seam the
// Manager calls through, mirroring cost.ConsentPrompter.
type FailurePrompter interface {
	// Prompt asks the operator to resolve a primary failure for primary/
	// modelID, given the failure cause. Only FailureYes attempts a backup;
	// FailureNo and FailureFail both skip the backup and the original cause
	// is returned to the caller.
	Prompt(ctx context.Context, primary, modelID string, cause error) (FailureDecision, error)
}

// Manager owns the provider registry, the health map, and per-provider rate
// limiters, and executes hedged dispatches against them.
type Manager struct {
	// HedgeDeadline is how long the primary gets before the backup is raced
	// alongside it. Defaults to 10s.
	HedgeDeadline time.Duration
	// CallTimeout bounds a single provider call end to end. Defaults to 30s.
	CallTimeout time.Duration
	// NonInteractive, when true, skips Prompter entirely on primary failure
	// and auto-attempts a backup, matching the non-interactive-mode behavior
	// documented for MCP-style callers.
	NonInteractive bool
	// Prompter resolves primary failures interactively. A nil Prompter
	// behaves as NonInteractive for that one decision: the backup is
	// auto-attempted.
	Prompter FailurePrompter

	mu        sync.RWMutex
	providers map[string]*Provider
	tiers     map[Tier][]string
	health    map[string]*providerHealth
	limiters  map[string]*rate.Limiter
}

type providerHealth struct {
	mu        sync.Mutex
	failures  int
	successes int
	healthy   bool
}

// callOutcome carries a provider call's result across goroutine boundaries.
type callOutcome struct {
	provider string
	resp     model.ChatResponse
	err      error
}

// NewManager constructs a Manager with no registered providers.
func NewManager() *Manager {
	return &Manager{
		HedgeDeadline: 10 * time.Second,
		CallTimeout:   30 * time.Second,
		providers:     make(map[string]*Provider),
		tiers:         make(map[Tier][]string),
		health:        make(map[string]*providerHealth),
		limiters:      make(map[string]*rate.Limiter),
	}
}

// Register adds a provider to its tier's pool and marks it healthy.
func (m *Manager) Register(p Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[p.Name] = &p
	m.tiers[p.Tier] = append(m.tiers[p.Tier], p.Name)
	m.health[p.Name] = &providerHealth{healthy: true}
	if p.Limit > 0 {
		burst := p.Burst
		if burst <= 0 {
			burst = 1
		}
		m.limiters[p.Name] = rate.NewLimiter(p.Limit, burst)
	}
}

// getBackupProvider returns any healthy provider in the same tier as primary
// (excluding primary), falling back to Tier2 then Tier3. Returns "" if none
// are healthy.
func (m *Manager) getBackupProvider(primary string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	primaryTier := Tier1
	if p, ok := m.providers[primary]; ok {
		primaryTier = p.Tier
	}

	order := []Tier{primaryTier}
	for t := Tier2; t <= Tier3; t++ {
		if t != primaryTier {
			order = append(order, t)
		}
	}

	for _, tier := range order {
		for _, name := range m.tiers[tier] {
			if name == primary {
				continue
			}
			if h, ok := m.health[name]; ok {
				h.mu.Lock()
				healthy := h.healthy
				h.mu.Unlock()
				if healthy {
					return name
				}
			}
		}
	}
	return ""
}

// Dispatch races primary against a same-tier backup per the hedging schedule:
// primary starts immediately; if it hasn't resolved by HedgeDeadline, a
// healthy backup is dispatched concurrently; the first success wins and the
// loser is cancelled.
func (m *Manager) Dispatch(ctx context.Context, primary, modelID string, messages []model.Message, systemPrompt string) (Result, error) {
	m.mu.RLock()
	prov, ok := m.providers[primary]
	m.mu.RUnlock()
	if !ok {
		return Result{}, &UnknownProviderError{Name: primary}
	}

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, m.CallTimeout)
	defer cancel()

	primaryCh := make(chan callOutcome, 1)
	go func() {
		resp, err := m.call(callCtx, prov, modelID, messages, systemPrompt)
		primaryCh <- callOutcome{provider: primary, resp: resp, err: err}
	}()

	timer := time.NewTimer(m.HedgeDeadline)
	defer timer.Stop()

	select {
	case o := <-primaryCh:
		m.recordOutcome(primary, o.err)
		if o.err == nil {
			return Result{Response: o.resp, Provider: primary, Duration: time.Since(start)}, nil
		}
		return m.handlePrimaryFailure(callCtx, primary, modelID, messages, systemPrompt, start, o.err)
	case <-timer.C:
		return m.raceBackup(callCtx, primary, modelID, messages, systemPrompt, start, ReasonLatency, primaryCh)
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// handlePrimaryFailure resolves what to do after the primary has already
// failed, before any backup is attempted. In non-interactive mode (or with
// no Prompter configured) the backup is attempted automatically. In
// interactive mode the configured FailurePrompter is consulted: only
// FailureYes attempts a backup, FailureNo and FailureFail both return the
// original cause without ever dispatching one.
func (m *Manager) handlePrimaryFailure(ctx context.Context, primary, modelID string, messages []model.Message, systemPrompt string, start time.Time, cause error) (Result, error) {
	if m.NonInteractive || m.Prompter == nil {
		return m.raceBackup(ctx, primary, modelID, messages, systemPrompt, start, ReasonFailure, nil)
	}
	decision, err := m.Prompter.Prompt(ctx, primary, modelID, cause)
	if err != nil {
		return Result{}, err
	}
	if decision != FailureYes {
		return Result{Provider: primary, Duration: time.Since(start)}, cause
	}
	return m.raceBackup(ctx, primary, modelID, messages, systemPrompt, start, ReasonFailure, nil)
}

// raceBackup dispatches the backup provider and, when primaryCh is non-nil
// (the latency-hedge case), accepts whichever of primary/backup resolves
// successfully first.
func (m *Manager) raceBackup(ctx context.Context, primary, modelID string, messages []model.Message, systemPrompt string, start time.Time, reason SubstitutionReason, primaryCh <-chan callOutcome) (Result, error) {
	backup := m.getBackupProvider(primary)
	if backup == "" {
		if primaryCh == nil {
			return Result{}, &AllProvidersUnavailableError{Primary: primary}
		}
		o := <-primaryCh
		m.recordOutcome(primary, o.err)
		if o.err != nil {
			return Result{}, &AllProvidersUnavailableError{Primary: primary}
		}
		return Result{Response: o.resp, Provider: primary, Duration: time.Since(start)}, nil
	}

	m.mu.RLock()
	backupProv := m.providers[backup]
	m.mu.RUnlock()

	backupCtx, cancelBackup := context.WithCancel(ctx)
	defer cancelBackup()

	backupCh := make(chan callOutcome, 1)
	go func() {
		resp, err := m.call(backupCtx, backupProv, modelID, messages, systemPrompt)
		backupCh <- callOutcome{provider: backup, resp: resp, err: err}
	}()

	if primaryCh == nil {
		r := <-backupCh
		m.recordOutcome(backup, r.err)
		if r.err != nil {
			return Result{}, &AllProvidersUnavailableError{Primary: primary}
		}
		return Result{Response: r.resp, Provider: backup, Substituted: true, Reason: reason, Duration: time.Since(start)}, nil
	}

	select {
	case o := <-primaryCh:
		m.recordOutcome(primary, o.err)
		if o.err == nil {
			cancelBackup()
			return Result{Response: o.resp, Provider: primary, Duration: time.Since(start)}, nil
		}
		r := <-backupCh
		m.recordOutcome(backup, r.err)
		if r.err != nil {
			return Result{}, &AllProvidersUnavailableError{Primary: primary}
		}
		return Result{Response: r.resp, Provider: backup, Substituted: true, Reason: ReasonFailure, Duration: time.Since(start)}, nil
	case r := <-backupCh:
		m.recordOutcome(backup, r.err)
		if r.err == nil {
			return Result{Response: r.resp, Provider: backup, Substituted: true, Reason: reason, Duration: time.Since(start)}, nil
		}
		o := <-primaryCh
		m.recordOutcome(primary, o.err)
		if o.err != nil {
			return Result{}, &AllProvidersUnavailableError{Primary: primary}
		}
		return Result{Response: o.resp, Provider: primary, Duration: time.Since(start)}, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (m *Manager) call(ctx context.Context, p *Provider, modelID string, messages []model.Message, systemPrompt string) (model.ChatResponse, error) {
	m.mu.RLock()
	limiter := m.limiters[p.Name]
	m.mu.RUnlock()
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return model.ChatResponse{}, err
		}
	}
	return p.Chat.Chat(ctx, modelID, messages, systemPrompt)
}

// recordOutcome updates a provider's health counters. A provider is marked
// unhealthy after 3 consecutive failures and healthy again on the next
// success.
func (m *Manager) recordOutcome(name string, err error) {
	m.mu.RLock()
	h, ok := m.health[name]
	m.mu.RUnlock()
	if !ok {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		h.failures++
		h.successes = 0
		if h.failures >= 3 {
			h.healthy = false
		}
		return
	}
	h.successes++
	h.failures = 0
	h.healthy = true
}

// Healthy reports a provider's current health status.
func (m *Manager) Healthy(name string) bool {
	m.mu.RLock()
	h, ok := m.health[name]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.healthy
}
