// File: internal/agent/models_test.go
package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/webpilot-cli/api/schemas"
)

func TestRecordActionTalliesAndLogs(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewSession("id-1", "task", "https://example.com", start)
	s.Iteration = 1

	s.RecordAction(schemas.ActionScript, true, "Clicked: #go", "https://example.com", start.Add(3*time.Second))
	s.Iteration = 2
	s.RecordAction(schemas.ActionWait, false, "wait interrupted", "https://example.com", start.Add(5*time.Second))

	assert.Equal(t, 1, s.ActionsSucceeded)
	assert.Equal(t, 1, s.ActionsFailed)
	assert.Equal(t, 2, s.TotalActions())

	require.Len(t, s.ActionLog, 2)
	assert.Equal(t, 1, s.ActionLog[0].Iteration)
	assert.Equal(t, schemas.ActionScript, s.ActionLog[0].Action)
	assert.Equal(t, 3*time.Second, s.ActionLog[0].Elapsed)
	assert.Equal(t, 2, s.ActionLog[1].Iteration)
	assert.False(t, s.ActionLog[1].Success)
}

func TestFailureRateIsCumulative(t *testing.T) {
	s := NewSession("id-2", "task", "https://example.com", time.Now())

	assert.Zero(t, s.FailureRate())

	now := time.Now()
	s.RecordAction(schemas.ActionScript, false, "boom", "", now)
	s.RecordAction(schemas.ActionScript, false, "boom", "", now)
	s.RecordAction(schemas.ActionScript, true, "ok", "", now)
	assert.InDelta(t, 2.0/3.0, s.FailureRate(), 1e-9)

	// A later success lowers the ratio but old failures never age out.
	s.RecordAction(schemas.ActionScript, true, "ok", "", now)
	assert.InDelta(t, 0.5, s.FailureRate(), 1e-9)
}

func TestObserveFingerprintCountsConsecutiveRepeats(t *testing.T) {
	s := NewSession("id-3", "task", "https://example.com", time.Now())

	s.ObserveFingerprint("aaa")
	assert.Zero(t, s.StagnationCount)

	s.ObserveFingerprint("aaa")
	s.ObserveFingerprint("aaa")
	assert.Equal(t, 2, s.StagnationCount)

	// Any change resets the streak.
	s.ObserveFingerprint("bbb")
	assert.Zero(t, s.StagnationCount)
	assert.Equal(t, "bbb", s.LastFingerprint)

	s.ObserveFingerprint("bbb")
	assert.Equal(t, 1, s.StagnationCount)
}
