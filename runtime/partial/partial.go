// Package partial implements the Partial Result Manager: signed partial-result
// persistence on abort and idempotent per-round checkpointing, both
// filesystem-resident by design (no database, no cache).
package partial

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	consulterrors "github.com/thebenlamm/LLM-Conclave-sub004/runtime/errors"
)

// DefaultSecret is used to key HMAC signatures when CONCLAVE_SECRET is unset.
// Documented, not secret: deployments that care about tamper-evidence across
// a trust boundary must set CONCLAVE_SECRET themselves.
const DefaultSecret = "llm-conclave-default-signing-secret"

// AbortReason enumerates why a consultation stopped short of Complete.
type AbortReason string

const (
	AbortUserCancel   AbortReason = "user_pulse_cancel"
	AbortTimeout      AbortReason = "timeout"
	AbortError        AbortReason = "error"
	AbortCostExceeded AbortReason = "cost_exceeded_estimate"
)

// Record is a partial-result JSONL line: the consultation result fields up to
// the abort point, plus the bookkeeping needed to resume or audit it.
type Record struct {
	SchemaVersion         string         `json:"schema_version"`
	Status                string         `json:"status"`
	AbortReason           AbortReason    `json:"abort_reason"`
	ConsultationID        string         `json:"consultation_id"`
	CompletedRoundNames   []string       `json:"completed_round_names"`
	IncompleteRoundNames  []string       `json:"incomplete_round_names"`
	PartialAgents         []string       `json:"partial_agents"`
	Result                any            `json:"result"`
	ResumeToken           string         `json:"resume_token"`
	Signature             string         `json:"signature"`
}

// Checkpoint is a per-round snapshot of the in-progress result, written
// idempotently after each successful round.
type Checkpoint struct {
	CheckpointID   string    `json:"checkpoint_id"`
	ConsultationID string    `json:"consultation_id"`
	Round          int       `json:"round"`
	State          string    `json:"state"`
	Result         any       `json:"result"`
	Timestamp      time.Time `json:"timestamp"`
	ResumeToken    string    `json:"resume_token"`
}

// Manager writes checkpoints and partial results under LogDir using Secret to
// sign partial-result records.
type Manager struct {
	LogDir string
	Secret string
}

// NewManager constructs a Manager. secret may be empty, in which case
// DefaultSecret is used.
func NewManager(logDir, secret string) *Manager {
	if secret == "" {
		secret = DefaultSecret
	}
	return &Manager{LogDir: logDir, Secret: secret}
}

// SecretFromEnv resolves the HMAC signing key from CONCLAVE_SECRET, falling
// back to DefaultSecret when unset.
func SecretFromEnv() string {
	if v := os.Getenv("CONCLAVE_SECRET"); v != "" {
		return v
	}
	return DefaultSecret
}

// newResumeToken returns 128 bits of randomness as raw hex, not the canonical
// UUID string form, to match the documented resume-token shape.
func newResumeToken() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// WritePartial appends a signed partial-result line to
// <LogDir>/consult-<id>-partial.jsonl. The signature covers the JSON
// encoding of the record with Signature left empty.
func (m *Manager) WritePartial(consultationID string, reason AbortReason, result any, completedRounds, incompleteRounds, partialAgents []string) (Record, error) {
	rec := Record{
		SchemaVersion:        "1.0",
		Status:               "partial",
		AbortReason:          reason,
		ConsultationID:       consultationID,
		CompletedRoundNames:  orEmpty(completedRounds),
		IncompleteRoundNames: orEmpty(incompleteRounds),
		PartialAgents:        orEmpty(partialAgents),
		Result:               result,
		ResumeToken:          newResumeToken(),
	}

	sig, err := m.sign(rec)
	if err != nil {
		return Record{}, &consulterrors.PersistenceError{Path: m.partialPath(consultationID), Cause: err}
	}
	rec.Signature = sig

	line, err := json.Marshal(rec)
	if err != nil {
		return Record{}, &consulterrors.PersistenceError{Path: m.partialPath(consultationID), Cause: err}
	}
	line = append(line, '\n')

	path := m.partialPath(consultationID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Record{}, &consulterrors.PersistenceError{Path: path, Cause: err}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return Record{}, &consulterrors.PersistenceError{Path: path, Cause: err}
	}
	defer f.Close()

	// A single append of a line at or under PIPE_BUF is atomic with respect
	// to other appenders; no temp+rename dance applies to a growing stream.
	if _, err := f.Write(line); err != nil {
		return Record{}, &consulterrors.PersistenceError{Path: path, Cause: err}
	}
	return rec, nil
}

// VerifySignature reports whether rec's signature matches its content under
// the manager's secret.
func (m *Manager) VerifySignature(rec Record) (bool, error) {
	want := rec.Signature
	rec.Signature = ""
	got, err := m.sign(rec)
	if err != nil {
		return false, err
	}
	return hmac.Equal([]byte(want), []byte(got)), nil
}

func (m *Manager) sign(rec Record) (string, error) {
	rec.Signature = ""
	doc, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, []byte(m.Secret))
	mac.Write(doc)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func (m *Manager) partialPath(consultationID string) string {
	return filepath.Join(m.LogDir, fmt.Sprintf("consult-%s-partial.jsonl", consultationID))
}

func (m *Manager) checkpointPath(consultationID string, round int) string {
	return filepath.Join(m.LogDir, fmt.Sprintf("%s-round%d.checkpoint.json", consultationID, round))
}

// SaveCheckpoint writes <id>-round<N>.checkpoint.json idempotently: a second
// call for the same (consultationID, round) is a no-op.
func (m *Manager) SaveCheckpoint(consultationID string, round int, state string, result any) error {
	path := m.checkpointPath(consultationID, round)
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	cp := Checkpoint{
		CheckpointID:   fmt.Sprintf("%s-r%d", consultationID, round),
		ConsultationID: consultationID,
		Round:          round,
		State:          state,
		Result:         result,
		Timestamp:      time.Now(),
		ResumeToken:    newResumeToken(),
	}
	doc, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return &consulterrors.PersistenceError{Path: path, Cause: err}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &consulterrors.PersistenceError{Path: path, Cause: err}
	}
	tmp := fmt.Sprintf("%s.tmp.%d", path, time.Now().UnixNano())
	if err := os.WriteFile(tmp, doc, 0o644); err != nil {
		os.Remove(tmp)
		return &consulterrors.PersistenceError{Path: path, Cause: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &consulterrors.PersistenceError{Path: path, Cause: err}
	}
	return nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
