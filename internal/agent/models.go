// File: internal/agent/models.go
package agent

import (
	"time"

	"github.com/xkilldash9x/webpilot-cli/api/schemas"
)

// Session is the single mutable record for one run. It is created at session
// start, mutated every cycle by the orchestrator and the termination policy
// on the same goroutine, and discarded after the report is produced.
type Session struct {
	ID        string
	Task      string
	TargetURL string
	StartedAt time.Time

	Iteration        int
	ActionsSucceeded int
	ActionsFailed    int

	// Stagnation tracking. LastFingerprint holds the previous cycle's page
	// digest; StagnationCount counts consecutive cycles it stayed unchanged.
	LastFingerprint string
	StagnationCount int

	InitialObservation *schemas.PageObservation
	FinalObservation   *schemas.PageObservation

	ActionLog []schemas.ActionLogEntry
}

// NewSession creates the session record for one run.
func NewSession(id, task, targetURL string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Task:      task,
		TargetURL: targetURL,
		StartedAt: now,
	}
}

// RecordAction tallies one dispatched action and appends it to the log.
func (s *Session) RecordAction(kind schemas.ActionKind, success bool, message, url string, now time.Time) {
	if success {
		s.ActionsSucceeded++
	} else {
		s.ActionsFailed++
	}
	s.ActionLog = append(s.ActionLog, schemas.ActionLogEntry{
		Iteration: s.Iteration,
		Action:    kind,
		Success:   success,
		Message:   message,
		URL:       url,
		Elapsed:   now.Sub(s.StartedAt),
	})
}

// TotalActions is the number of actions attempted so far.
func (s *Session) TotalActions() int {
	return s.ActionsSucceeded + s.ActionsFailed
}

// FailureRate is the cumulative failed/total ratio for the whole session.
// It never decays; see the termination policy for the minimum sample size.
func (s *Session) FailureRate() float64 {
	total := s.TotalActions()
	if total == 0 {
		return 0
	}
	return float64(s.ActionsFailed) / float64(total)
}

// ObserveFingerprint updates the stagnation counter with the digest of the
// current cycle. The counter only resets when the fingerprint changes.
func (s *Session) ObserveFingerprint(fp string) {
	if fp == s.LastFingerprint {
		s.StagnationCount++
		return
	}
	s.StagnationCount = 0
	s.LastFingerprint = fp
}
