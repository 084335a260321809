package partial_test

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebenlamm/LLM-Conclave-sub004/runtime/partial"
)

func TestWritePartial_SignatureVerifies(t *testing.T) {
	dir := t.TempDir()
	m := partial.NewManager(dir, "test-secret")

	rec, err := m.WritePartial("c1", partial.AbortCostExceeded, map[string]any{"question": "q"},
		[]string{"independent", "synthesis"}, []string{"cross_exam", "verdict"}, []string{"agent-a"})
	require.NoError(t, err)
	assert.Equal(t, "partial", rec.Status)
	assert.NotEmpty(t, rec.ResumeToken)
	assert.Len(t, rec.ResumeToken, 32) // 16 bytes hex-encoded

	ok, err := m.VerifySignature(rec)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWritePartial_TamperedRecordFailsVerification(t *testing.T) {
	dir := t.TempDir()
	m := partial.NewManager(dir, "test-secret")

	rec, err := m.WritePartial("c1", partial.AbortTimeout, nil, nil, nil, nil)
	require.NoError(t, err)

	rec.AbortReason = partial.AbortUserCancel // tamper after signing
	ok, err := m.VerifySignature(rec)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWritePartial_AppendsJSONLLine(t *testing.T) {
	dir := t.TempDir()
	m := partial.NewManager(dir, "s")

	_, err := m.WritePartial("c2", partial.AbortError, nil, nil, nil, nil)
	require.NoError(t, err)
	_, err = m.WritePartial("c2", partial.AbortError, nil, nil, nil, nil)
	require.NoError(t, err)

	path := filepath.Join(dir, "consult-c2-partial.jsonl")
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 2)

	var rec partial.Record
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "c2", rec.ConsultationID)
}

func TestSaveCheckpoint_IdempotentOnSecondCall(t *testing.T) {
	dir := t.TempDir()
	m := partial.NewManager(dir, "s")

	require.NoError(t, m.SaveCheckpoint("c3", 1, "independent", map[string]any{"a": 1}))
	path := filepath.Join(dir, "c3-round1.checkpoint.json")
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, m.SaveCheckpoint("c3", 1, "independent", map[string]any{"a": 2}))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second) // second call is a no-op
}

func TestWritePartial_CoercesNilSlicesToEmpty(t *testing.T) {
	dir := t.TempDir()
	m := partial.NewManager(dir, "s")

	rec, err := m.WritePartial("c4", partial.AbortError, nil, nil, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, rec.CompletedRoundNames)
	assert.Empty(t, rec.CompletedRoundNames)
}
