// File: internal/agent/orchestrator_test.go
package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/webpilot-cli/api/schemas"
	"github.com/xkilldash9x/webpilot-cli/internal/config"
	"github.com/xkilldash9x/webpilot-cli/internal/oracle"
)

func testConfig() config.Config {
	cfg := *config.NewDefaultConfig()
	cfg.Session.MaxIterations = 10
	cfg.Session.MaxDuration = 10 * time.Minute
	cfg.Session.StagnationThreshold = 3
	cfg.Session.ContextWindow = 3
	cfg.Browser.NavigationRetries = 3
	return cfg
}

func setupOrchestrator(t *testing.T, cfg config.Config) (*Orchestrator, *MockBrowserSession, *MockOracleClient) {
	t.Helper()
	session := new(MockBrowserSession)
	oracleClient := new(MockOracleClient)
	o := NewOrchestrator(cfg, session, oracleClient, zaptest.NewLogger(t))
	return o, session, oracleClient
}

func TestRunCompletesOnFirstEndAction(t *testing.T) {
	cfg := testConfig()
	cfg.Session.MaxIterations = 1
	o, session, oracleClient := setupOrchestrator(t, cfg)

	session.On("Navigate", mock.Anything, "https://example.com").Return(nil).Once()
	session.On("Observe", mock.Anything).Return(testObservation("https://example.com", "Example"), nil).Once()
	session.On("Close", mock.Anything).Return(nil).Once()

	oracleClient.On("Generate", mock.Anything, mock.Anything).
		Return(`{"action":"end","analysis_report":"ok"}`, nil).Once()

	report, err := o.Run(context.Background(), "https://example.com", "check the homepage")
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, schemas.StatusCompleted, report.Status)
	assert.Equal(t, 1, report.Iterations)
	assert.Equal(t, "ok", report.Analysis)
	assert.Equal(t, "https://example.com", report.InitialURL)

	// No script executions were ever attempted.
	session.AssertNotCalled(t, "ExecuteScript", mock.Anything, mock.Anything)
	session.AssertExpectations(t)
	oracleClient.AssertExpectations(t)
}

func TestRunExecutesScriptThenEnds(t *testing.T) {
	cfg := testConfig()
	o, session, oracleClient := setupOrchestrator(t, cfg)

	first := testObservation("https://example.com", "Example")
	second := testObservation("https://example.com/done", "Done")

	session.On("Navigate", mock.Anything, mock.Anything).Return(nil).Once()
	session.On("Observe", mock.Anything).Return(first, nil).Once()
	session.On("ExecuteScript", mock.Anything, "quickClick('#go');").Return(true, "Clicked: #go", nil).Once()
	session.On("Observe", mock.Anything).Return(second, nil).Once()
	session.On("Close", mock.Anything).Return(nil).Once()

	oracleClient.On("Generate", mock.Anything, mock.Anything).
		Return(`{"action":"javascript","javascript":"quickClick('#go');"}`, nil).Once()
	oracleClient.On("Generate", mock.Anything, mock.Anything).
		Return(`{"action":"end","analysis_report":"flow verified"}`, nil).Once()

	report, err := o.Run(context.Background(), "https://example.com", "click through")
	require.NoError(t, err)

	assert.Equal(t, schemas.StatusCompleted, report.Status)
	assert.Equal(t, 2, report.Iterations)
	assert.Equal(t, "https://example.com/done", report.FinalURL)
	assert.Equal(t, 2, report.ActionsSucceeded) // script + end
	require.Len(t, report.ActionLog, 2)
	assert.Equal(t, schemas.ActionScript, report.ActionLog[0].Action)
	session.AssertExpectations(t)
}

func TestRunStopsOnIterationCap(t *testing.T) {
	cfg := testConfig()
	cfg.Session.MaxIterations = 2
	o, session, oracleClient := setupOrchestrator(t, cfg)

	session.On("Navigate", mock.Anything, mock.Anything).Return(nil).Once()
	// Distinct observations per cycle keep stagnation out of the picture.
	session.On("Observe", mock.Anything).Return(testObservation("https://example.com/0", "A"), nil).Once()
	session.On("ExecuteScript", mock.Anything, mock.Anything).Return(true, "ok", nil).Twice()
	session.On("Observe", mock.Anything).Return(testObservation("https://example.com/1", "B"), nil).Once()
	session.On("Observe", mock.Anything).Return(testObservation("https://example.com/2", "C"), nil).Once()
	session.On("Close", mock.Anything).Return(nil).Once()

	oracleClient.On("Generate", mock.Anything, mock.Anything).
		Return(`{"action":"javascript","javascript":"1+1"}`, nil).Twice()
	// The final-analysis request after the policy stop.
	oracleClient.On("Generate", mock.Anything, mock.Anything).
		Return("iteration budget exhausted before completion", nil).Once()

	report, err := o.Run(context.Background(), "https://example.com", "long task")
	require.NoError(t, err)

	assert.Equal(t, schemas.StatusStopped, report.Status)
	assert.Equal(t, string(ReasonIterationCap), report.StopReason)
	assert.Equal(t, 2, report.Iterations)
	assert.Contains(t, report.Analysis, "budget exhausted")
	session.AssertExpectations(t)
}

func TestRunStopsOnStagnation(t *testing.T) {
	cfg := testConfig()
	cfg.Session.StagnationThreshold = 2
	o, session, oracleClient := setupOrchestrator(t, cfg)

	// The page never changes, so every cycle sees the same fingerprint.
	same := testObservation("https://example.com", "Frozen")
	session.On("Navigate", mock.Anything, mock.Anything).Return(nil).Once()
	session.On("Observe", mock.Anything).Return(same, nil)
	session.On("ExecuteScript", mock.Anything, mock.Anything).Return(true, "ok", nil)
	session.On("Close", mock.Anything).Return(nil).Once()

	oracleClient.On("Generate", mock.Anything, mock.Anything).
		Return(`{"action":"javascript","javascript":"1+1"}`, nil).Times(2)
	oracleClient.On("Generate", mock.Anything, mock.Anything).
		Return("page stopped changing", nil).Once()

	report, err := o.Run(context.Background(), "https://example.com", "stuck task")
	require.NoError(t, err)

	assert.Equal(t, schemas.StatusStopped, report.Status)
	assert.Equal(t, string(ReasonStagnation), report.StopReason)
}

func TestRunFatalOracleErrorProducesErrorReport(t *testing.T) {
	cfg := testConfig()
	o, session, oracleClient := setupOrchestrator(t, cfg)

	session.On("Navigate", mock.Anything, mock.Anything).Return(nil).Once()
	session.On("Observe", mock.Anything).Return(testObservation("https://example.com", "Example"), nil).Once()
	session.On("Close", mock.Anything).Return(nil).Once()

	fatal := &oracle.FatalError{Attempts: 2, Err: errors.New("quota exceeded")}
	oracleClient.On("Generate", mock.Anything, mock.Anything).Return("", fatal).Once()

	report, err := o.Run(context.Background(), "https://example.com", "task")
	require.Error(t, err)
	require.NotNil(t, report)

	assert.Equal(t, schemas.StatusError, report.Status)
	assert.Equal(t, "oracle_failure", report.StopReason)
	assert.Contains(t, report.Analysis, "quota exceeded")
	// The browser is released even on the error path.
	session.AssertCalled(t, "Close", mock.Anything)
}

func TestRunNavigationRetriesThenAborts(t *testing.T) {
	cfg := testConfig()
	cfg.Browser.NavigationRetries = 3
	o, session, oracleClient := setupOrchestrator(t, cfg)

	navErr := errors.New("net::ERR_NAME_NOT_RESOLVED")
	session.On("Navigate", mock.Anything, mock.Anything).Return(navErr).Times(3)
	session.On("Close", mock.Anything).Return(nil).Once()

	report, err := o.Run(context.Background(), "https://nope.invalid", "task")
	require.Error(t, err)
	require.NotNil(t, report)

	assert.Equal(t, schemas.StatusError, report.Status)
	assert.Equal(t, "navigation_failed", report.StopReason)
	session.AssertExpectations(t)
	oracleClient.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestRunNavigationSucceedsOnRetry(t *testing.T) {
	cfg := testConfig()
	cfg.Session.MaxIterations = 1
	o, session, oracleClient := setupOrchestrator(t, cfg)

	session.On("Navigate", mock.Anything, mock.Anything).Return(errors.New("flaky")).Once()
	session.On("Navigate", mock.Anything, mock.Anything).Return(nil).Once()
	session.On("Observe", mock.Anything).Return(testObservation("https://example.com", "Example"), nil).Once()
	session.On("Close", mock.Anything).Return(nil).Once()

	oracleClient.On("Generate", mock.Anything, mock.Anything).
		Return(`{"action":"end","analysis_report":"ok"}`, nil).Once()

	report, err := o.Run(context.Background(), "https://example.com", "task")
	require.NoError(t, err)
	assert.Equal(t, schemas.StatusCompleted, report.Status)
}

// Only the bounded window of the conversation ever reaches the oracle.
func TestRunSendsBoundedContextWindow(t *testing.T) {
	cfg := testConfig()
	cfg.Session.ContextWindow = 2
	cfg.Session.MaxIterations = 5
	o, session, oracleClient := setupOrchestrator(t, cfg)

	session.On("Navigate", mock.Anything, mock.Anything).Return(nil).Once()
	session.On("ExecuteScript", mock.Anything, mock.Anything).Return(true, "ok", nil)
	for i := 0; i <= 5; i++ {
		session.On("Observe", mock.Anything).
			Return(testObservation("https://example.com/"+string(rune('a'+i)), "T"), nil).Once()
	}
	session.On("Close", mock.Anything).Return(nil).Once()

	var windowSizes []int
	oracleClient.On("Generate", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			req := args.Get(1).(schemas.GenerationRequest)
			windowSizes = append(windowSizes, len(req.Turns))
		}).
		Return(`{"action":"javascript","javascript":"1+1"}`, nil).Times(4)
	oracleClient.On("Generate", mock.Anything, mock.Anything).
		Return(`{"action":"end","analysis_report":"done"}`, nil).Once()

	_, err := o.Run(context.Background(), "https://example.com", "task")
	require.NoError(t, err)

	require.NotEmpty(t, windowSizes)
	for _, n := range windowSizes {
		assert.LessOrEqual(t, n, 2)
	}
	// Later calls are clamped to exactly the window size.
	assert.Equal(t, 2, windowSizes[len(windowSizes)-1])
}
