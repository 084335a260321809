package consult

import "github.com/thebenlamm/LLM-Conclave-sub004/runtime/strategy"

// Options configures a single consult() call. Zero-value fields are filled
// in by WithDefaults.
type Options struct {
	MaxRounds           int
	Verbose             bool
	Mode                strategy.Mode
	ConfidenceThreshold float64
	ProjectPath         string
	Greenfield          bool
	LoadedContext       string
	ScrubbingReport     string
	AllowCostOverruns   bool
}

// WithDefaults returns a copy of o with documented defaults applied:
// MaxRounds=4, Mode=converge, ConfidenceThreshold=0.90.
func (o Options) WithDefaults() Options {
	if o.MaxRounds == 0 {
		o.MaxRounds = 4
	}
	if o.Mode == "" {
		o.Mode = strategy.ModeConverge
	}
	if o.ConfidenceThreshold == 0 {
		o.ConfidenceThreshold = 0.90
	}
	return o
}
