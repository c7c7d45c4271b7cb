// File: internal/agent/dispatcher.go
package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot-cli/api/schemas"
)

// DispatchState tracks the dispatcher's position in its cycle.
type DispatchState string

const (
	StateAwaitingInstruction DispatchState = "awaiting_instruction"
	StateExecuting           DispatchState = "executing"
	StateObserving           DispatchState = "observing"
	StateDeciding            DispatchState = "deciding"
	StateTerminal            DispatchState = "terminal"
)

// Dispatcher executes structured actions against the browser session and
// reports their outcome. Script failures are not dead ends: they come back
// as unsuccessful results that feed corrective context to the oracle, and
// the machine always transitions forward.
type Dispatcher struct {
	session schemas.BrowserSession
	logger  *zap.Logger
	state   DispatchState

	// sleep is swapped out in tests.
	sleep func(context.Context, time.Duration) error
}

// NewDispatcher creates a dispatcher bound to one browser session.
func NewDispatcher(session schemas.BrowserSession, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		session: session,
		logger:  logger.Named("dispatcher"),
		state:   StateAwaitingInstruction,
		sleep: func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				return nil
			}
		},
	}
}

// State returns the dispatcher's current state.
func (d *Dispatcher) State() DispatchState { return d.state }

// Dispatch executes one ActionRequest and captures a fresh observation.
// Both success and failure transition forward; only an End request leaves
// the machine terminal.
func (d *Dispatcher) Dispatch(ctx context.Context, req schemas.ActionRequest) schemas.ActionResult {
	if d.state == StateTerminal {
		return schemas.ActionResult{Success: false, Message: "dispatcher is terminal"}
	}

	d.state = StateExecuting
	result := d.execute(ctx, req)

	// Observing: recapture the page regardless of execution outcome, so the
	// next cycle (and the report) always see fresh state.
	d.state = StateObserving
	if req.Kind != schemas.ActionEnd {
		obs, err := d.session.Observe(ctx)
		if err != nil {
			d.logger.Warn("Failed to capture observation after action.", zap.Error(err))
		} else {
			result.Observation = obs
		}
	}

	d.state = StateDeciding
	if req.Kind == schemas.ActionEnd {
		d.state = StateTerminal
	} else {
		d.state = StateAwaitingInstruction
	}
	return result
}

func (d *Dispatcher) execute(ctx context.Context, req schemas.ActionRequest) schemas.ActionResult {
	switch req.Kind {
	case schemas.ActionScript:
		if req.Script == "" {
			return schemas.ActionResult{
				Success: false,
				Message: "no JavaScript code provided; provide code or end the session",
			}
		}
		ok, out, err := d.session.ExecuteScript(ctx, req.Script)
		if err != nil {
			d.logger.Warn("Script execution errored.", zap.Error(err))
			return schemas.ActionResult{Success: false, Message: fmt.Sprintf("script execution error: %v", err)}
		}
		if !ok {
			d.logger.Info("Script reported failure.", zap.String("result", out))
			return schemas.ActionResult{Success: false, Message: out}
		}
		return schemas.ActionResult{Success: true, Message: out}

	case schemas.ActionWait:
		// Waiting is inherently best-effort; it always reports success so it
		// can never block termination.
		if err := d.sleep(ctx, req.WaitDuration); err != nil {
			return schemas.ActionResult{Success: true, Message: fmt.Sprintf("wait interrupted: %v", err)}
		}
		return schemas.ActionResult{Success: true, Message: fmt.Sprintf("waited for %s", req.WaitDuration)}

	case schemas.ActionEnd:
		return schemas.ActionResult{Success: true, Message: "session ended by oracle"}

	default:
		return schemas.ActionResult{
			Success: false,
			Message: fmt.Sprintf("unknown action %q; use javascript, wait, or end", req.Kind),
		}
	}
}
