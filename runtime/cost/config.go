package cost

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	consulterrors "github.com/thebenlamm/LLM-Conclave-sub004/runtime/errors"
)

// Config is the subset of the global JSON config file the Cost Gate reads
// and writes. The file may carry additional keys from other collaborators;
// Config round-trips them in Extra so a save never drops unrelated settings.
type Config struct {
	Consult ConsultConfig  `json:"consult"`
	Extra   map[string]any `json:"-"`
}

// ConsultConfig carries the core's own recognised config keys.
type ConsultConfig struct {
	AlwaysAllowUnder float64 `json:"alwaysAllowUnder"`
}

// DefaultAlwaysAllowUnder is the threshold used when no config file exists or
// no explicit value has been saved.
const DefaultAlwaysAllowUnder = 0.50

// LoadConfig reads and parses path. A missing or corrupt file is treated as
// an empty config with the default threshold, per the documented tolerance:
// "Corrupted existing config is treated as empty."
func LoadConfig(path string) Config {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{Consult: ConsultConfig{AlwaysAllowUnder: DefaultAlwaysAllowUnder}}
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Config{Consult: ConsultConfig{AlwaysAllowUnder: DefaultAlwaysAllowUnder}}
	}
	cfg := Config{Consult: ConsultConfig{AlwaysAllowUnder: DefaultAlwaysAllowUnder}, Extra: raw}
	if consultRaw, ok := raw["consult"].(map[string]any); ok {
		if v, ok := consultRaw["alwaysAllowUnder"].(float64); ok {
			cfg.Consult.AlwaysAllowUnder = v
		}
	}
	return cfg
}

// SaveAutoApproveThreshold merges threshold into path's "consult.alwaysAllowUnder"
// key, preserving every other top-level and nested key already present, and
// writes the result atomically (temp-file + rename). On any error the temp
// file is removed before the error is surfaced.
func SaveAutoApproveThreshold(path string, threshold float64) error {
	if threshold <= 0 {
		return &consulterrors.ValidationError{Field: "alwaysAllowUnder", Reason: "must be positive"}
	}

	raw := map[string]any{}
	if data, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(data, &raw) // corrupted existing config is treated as empty
	}
	consultRaw, _ := raw["consult"].(map[string]any)
	if consultRaw == nil {
		consultRaw = map[string]any{}
	}
	consultRaw["alwaysAllowUnder"] = threshold
	raw["consult"] = consultRaw

	return atomicWriteJSON(path, raw)
}

// atomicWriteJSON writes value to path via a sibling temp file followed by a
// rename, per the atomic-file-update discipline used for every durable write
// in this system (config, checkpoints, partial results).
func atomicWriteJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return &consulterrors.PersistenceError{Path: path, Cause: err}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &consulterrors.PersistenceError{Path: path, Cause: err}
		}
	}
	tmpPath := fmt.Sprintf("%s.tmp.%d", path, time.Now().UnixNano())
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return &consulterrors.PersistenceError{Path: path, Cause: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return &consulterrors.PersistenceError{Path: path, Cause: err}
	}
	return nil
}
