// File: internal/agent/orchestrator.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot-cli/api/schemas"
	"github.com/xkilldash9x/webpilot-cli/internal/config"
	"github.com/xkilldash9x/webpilot-cli/internal/oracle"
)

// Allows for mocking in tests.
var uuidNewString = uuid.NewString

// Orchestrator drives one session: it owns the Session record, composes the
// fingerprinter, termination policy, oracle client, interpreter and
// dispatcher, and always produces a terminal report. The loop is
// single-threaded and synchronous; the browser session is released exactly
// once on every exit path.
type Orchestrator struct {
	cfg         config.Config
	logger      *zap.Logger
	browser     schemas.BrowserSession
	oracle      schemas.OracleClient
	interpreter *Interpreter
	policy      *Policy
	now         func() time.Time
}

// NewOrchestrator wires the control loop around its collaborators.
func NewOrchestrator(
	cfg config.Config,
	browser schemas.BrowserSession,
	oracleClient schemas.OracleClient,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		logger:      logger.Named("orchestrator"),
		browser:     browser,
		oracle:      oracleClient,
		interpreter: NewInterpreter(cfg.Session.DefaultWait),
		policy:      NewPolicy(cfg.Session, time.Now),
		now:         time.Now,
	}
}

// Run executes the session against targetURL and returns the final report.
// The report is produced on all three exit paths: an explicit end action
// from the oracle, a termination policy stop, or an unrecoverable error. In
// the last case the returned error is non-nil and the report carries status
// "error".
func (o *Orchestrator) Run(ctx context.Context, targetURL, task string) (*schemas.Report, error) {
	session := NewSession(uuidNewString(), task, targetURL, o.now())
	logger := o.logger.With(zap.String("session_id", session.ID))
	logger.Info("Starting pilot session.", zap.String("url", targetURL), zap.String("task", task))

	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := o.browser.Close(closeCtx); err != nil {
			logger.Warn("Error releasing browser session.", zap.Error(err))
		}
	}()

	if err := o.navigateWithRetries(ctx, targetURL, logger); err != nil {
		return o.buildReport(session, schemas.StatusError, "navigation_failed",
			fmt.Sprintf("failed to reach %s: %v", targetURL, err)), err
	}

	obs, err := o.browser.Observe(ctx)
	if err != nil {
		return o.buildReport(session, schemas.StatusError, "initial_observation_failed",
			fmt.Sprintf("failed to capture initial page state: %v", err)), err
	}
	session.InitialObservation = obs
	session.FinalObservation = obs

	conversation := NewConversation(o.cfg.Session.ContextWindow)
	conversation.Append(initialPrompt(task, obs), obs.ScreenshotB64)

	dispatcher := NewDispatcher(o.browser, logger)

	for {
		session.ObserveFingerprint(Fingerprint(session.FinalObservation))

		if decision := o.policy.ShouldContinue(session); !decision.Continue {
			logger.Info("Termination policy stopped the session.",
				zap.String("reason", string(decision.Reason)),
				zap.Int("iterations", session.Iteration))
			analysis := o.requestFinalAnalysis(ctx, session, logger)
			return o.buildReport(session, schemas.StatusStopped, string(decision.Reason), analysis), nil
		}

		session.Iteration++
		logger.Info("Iteration starting.",
			zap.Int("iteration", session.Iteration),
			zap.Int("max_iterations", o.cfg.Session.MaxIterations))

		rawResponse, err := o.oracle.Generate(ctx, schemas.GenerationRequest{
			SystemPrompt: systemPrompt,
			Turns:        conversation.Window(),
			Temperature:  o.cfg.Oracle.Temperature,
			ForceJSON:    true,
		})
		if err != nil {
			var fatal *oracle.FatalError
			var transient *oracle.TransientError
			switch {
			case errors.As(err, &fatal):
				logger.Error("Fatal oracle error, ending session.", zap.Error(err))
			case errors.As(err, &transient):
				// Transient failures escalate to session-fatal only here,
				// after the client has already exhausted its retry budget.
				logger.Error("Oracle unavailable after retries, ending session.", zap.Error(err))
			default:
				logger.Error("Oracle request failed, ending session.", zap.Error(err))
			}
			return o.buildReport(session, schemas.StatusError, "oracle_failure", err.Error()), err
		}

		req := o.interpreter.Interpret(rawResponse)
		logger.Info("Oracle action interpreted.", zap.String("action", string(req.Kind)))

		if req.Kind == schemas.ActionEnd {
			dispatcher.Dispatch(ctx, req)
			session.RecordAction(req.Kind, true, "session ended by oracle", currentURL(session), o.now())
			return o.buildReport(session, schemas.StatusCompleted, "oracle_end", req.Report), nil
		}

		result := dispatcher.Dispatch(ctx, req)
		if result.Observation != nil {
			session.FinalObservation = result.Observation
		}
		session.RecordAction(req.Kind, result.Success, result.Message, currentURL(session), o.now())

		var imageB64 string
		if result.Observation != nil {
			imageB64 = result.Observation.ScreenshotB64
		}
		conversation.Append(resultFeedback(req, result), imageB64)
	}
}

// navigateWithRetries attempts the initial navigation a small bounded number
// of times before declaring the session unrecoverable.
func (o *Orchestrator) navigateWithRetries(ctx context.Context, url string, logger *zap.Logger) error {
	var lastErr error
	for attempt := 1; attempt <= o.cfg.Browser.NavigationRetries; attempt++ {
		if err := o.browser.Navigate(ctx, url); err != nil {
			lastErr = err
			logger.Warn("Navigation failed.",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", o.cfg.Browser.NavigationRetries),
				zap.Error(err))
			continue
		}
		return nil
	}
	return fmt.Errorf("navigation failed after %d attempts: %w", o.cfg.Browser.NavigationRetries, lastErr)
}

// requestFinalAnalysis asks the oracle for a closing assessment when the
// policy stops the loop. Best effort: any failure degrades to an empty
// analysis rather than disturbing the exit path.
func (o *Orchestrator) requestFinalAnalysis(ctx context.Context, session *Session, logger *zap.Logger) string {
	var imageB64 string
	if session.FinalObservation != nil {
		imageB64 = session.FinalObservation.ScreenshotB64
	}
	text, err := o.oracle.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: systemPrompt,
		Turns: []schemas.ConversationTurn{
			{Role: "user", Text: finalAnalysisPrompt(session.Task), ImageB64: imageB64},
		},
		Temperature: o.cfg.Oracle.Temperature,
	})
	if err != nil {
		logger.Warn("Could not obtain final analysis.", zap.Error(err))
		return ""
	}
	return text
}

func (o *Orchestrator) buildReport(session *Session, status schemas.SessionStatus, reason, analysis string) *schemas.Report {
	report := &schemas.Report{
		SessionID:        session.ID,
		Task:             session.Task,
		TargetURL:        session.TargetURL,
		Status:           status,
		StopReason:       reason,
		Iterations:       session.Iteration,
		Elapsed:          o.now().Sub(session.StartedAt),
		ActionsSucceeded: session.ActionsSucceeded,
		ActionsFailed:    session.ActionsFailed,
		Analysis:         analysis,
		ActionLog:        session.ActionLog,
	}
	if session.InitialObservation != nil {
		report.InitialURL = session.InitialObservation.URL
		report.InitialTitle = session.InitialObservation.Title
	}
	if session.FinalObservation != nil {
		report.FinalURL = session.FinalObservation.URL
		report.FinalTitle = session.FinalObservation.Title
	}
	return report
}

func currentURL(session *Session) string {
	if session.FinalObservation != nil {
		return session.FinalObservation.URL
	}
	return session.TargetURL
}
