// File: internal/agent/policy.go
package agent

import (
	"time"

	"github.com/xkilldash9x/webpilot-cli/internal/config"
)

// StopReason tags why a session should (or should not) continue.
type StopReason string

const (
	ReasonContinue     StopReason = "continue"
	ReasonIterationCap StopReason = "iteration_cap_reached"
	ReasonTimeCap      StopReason = "time_cap_reached"
	ReasonStagnation   StopReason = "stagnation"
	ReasonFailureRate  StopReason = "high_failure_rate"
)

// Decision is the outcome of one termination policy evaluation.
type Decision struct {
	Continue bool
	Reason   StopReason
}

// Policy evaluates the multi-signal termination rules before every cycle.
// No single signal is sufficient on its own: a legitimate task can need many
// actions or a long wall clock, so the signals are checked together, in a
// fixed precedence order where the first match wins.
type Policy struct {
	cfg config.SessionConfig
	now func() time.Time
}

// NewPolicy creates the termination policy. The clock is injectable for
// tests.
func NewPolicy(cfg config.SessionConfig, now func() time.Time) *Policy {
	if now == nil {
		now = time.Now
	}
	return &Policy{cfg: cfg, now: now}
}

// ShouldContinue checks, in precedence order: iteration cap, wall-clock cap,
// stagnation, failure rate. The failure-rate signal requires a minimum
// sample size and uses the cumulative whole-session ratio (no decay).
func (p *Policy) ShouldContinue(s *Session) Decision {
	if s.Iteration >= p.cfg.MaxIterations {
		return Decision{Reason: ReasonIterationCap}
	}
	if p.now().Sub(s.StartedAt) >= p.cfg.MaxDuration {
		return Decision{Reason: ReasonTimeCap}
	}
	if s.StagnationCount >= p.cfg.StagnationThreshold {
		return Decision{Reason: ReasonStagnation}
	}
	if s.TotalActions() >= p.cfg.FailureMinSamples && s.FailureRate() > p.cfg.FailureRateThreshold {
		return Decision{Reason: ReasonFailureRate}
	}
	return Decision{Continue: true, Reason: ReasonContinue}
}
