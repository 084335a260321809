// Package cost implements the Cost Estimator and Cost Gate: pre-flight cost
// projection and admission control over a consultation before any provider
// call is dispatched.
package cost

import (
	"math"
	"strings"
)

// TokensPerRound is the constant per-agent output token budget assumed for
// every round when no actual usage is yet known.
const TokensPerRound = 2000

// Price is a per-1000-token USD rate pair for a model family.
type Price struct {
	Input  float64
	Output float64
}

// defaultPricing maps a lower-cased substring of a model identifier to its
// per-1000-token price. Lookup is first-match over this ordered list, not a
// map, since multiple keys could match the same model id and ordering must be
// deterministic: the earliest listed substring contained in the id wins (so
// "gpt-4o-mini" is priced as "gpt-4o").
var defaultPricing = []struct {
	substr string
	price  Price
}{
	{"claude", Price{Input: 0.003, Output: 0.015}},
	{"gpt-4o", Price{Input: 0.0025, Output: 0.01}},
	{"gemini", Price{Input: 0.00125, Output: 0.005}},
}

// defaultPrice is used when no substring in defaultPricing matches.
var defaultPrice = Price{Input: 0.002, Output: 0.008}

// PriceFor looks up the USD-per-1000-token price for modelID using
// case-insensitive substring matching, falling back to defaultPrice.
func PriceFor(modelID string) Price {
	lower := strings.ToLower(modelID)
	for _, entry := range defaultPricing {
		if strings.Contains(lower, entry.substr) {
			return entry.price
		}
	}
	return defaultPrice
}

type (
	// Estimate is the Cost Estimator's pre-flight projection for one
	// consultation.
	Estimate struct {
		QuestionTokens       int
		InputTokensTotal     int
		OutputTokensPerAgent int
		OutputTokensTotal    int
		USD                  float64
		PerAgentUSD          map[string]float64
	}

	// AgentPricing identifies an agent for estimation purposes: its id and
	// the model it is bound to.
	AgentPricing struct {
		AgentID string
		ModelID string
	}
)

// Project computes the pre-flight cost projection for question sent once per
// agent, with TokensPerRound output tokens assumed per round per agent.
// Negative rounds are clamped to zero per the documented arithmetic-invalid
// input handling; there is no other failure mode.
func Project(question string, agents []AgentPricing, rounds int) Estimate {
	if rounds < 0 {
		rounds = 0
	}
	questionTokens := int(math.Ceil(float64(len(question)) / 4.0))
	outputPerAgent := rounds * TokensPerRound

	est := Estimate{
		QuestionTokens:       questionTokens,
		InputTokensTotal:     questionTokens * len(agents),
		OutputTokensPerAgent: outputPerAgent,
		OutputTokensTotal:    outputPerAgent * len(agents),
		PerAgentUSD:          make(map[string]float64, len(agents)),
	}
	for _, a := range agents {
		price := PriceFor(a.ModelID)
		usd := (float64(questionTokens)/1000.0)*price.Input + (float64(outputPerAgent)/1000.0)*price.Output
		est.PerAgentUSD[a.AgentID] = usd
		est.USD += usd
	}
	return est
}

// EarlyTerminationSavings returns the USD saved by skipping roundsSkipped
// rounds across agents, assuming each skipped round costs TokensPerRound
// tokens at the sum of each agent's input+output price.
func EarlyTerminationSavings(agents []AgentPricing, roundsSkipped int) float64 {
	if roundsSkipped <= 0 {
		return 0
	}
	var savings float64
	for _, a := range agents {
		price := PriceFor(a.ModelID)
		perRound := (float64(TokensPerRound) / 1000.0) * (price.Input + price.Output)
		savings += perRound * float64(roundsSkipped)
	}
	return savings
}
