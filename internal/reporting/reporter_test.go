// internal/reporting/reporter_test.go
package reporting

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/webpilot-cli/api/schemas"
)

func sampleReport() *schemas.Report {
	return &schemas.Report{
		SessionID:        "3f1c9a7e-0000-0000-0000-000000000000",
		Task:             "log in with the demo account",
		TargetURL:        "https://example.com/login",
		Status:           schemas.StatusCompleted,
		StopReason:       "oracle_end",
		Iterations:       4,
		Elapsed:          42*time.Second + 137*time.Millisecond,
		ActionsSucceeded: 3,
		ActionsFailed:    1,
		InitialURL:       "https://example.com/login",
		InitialTitle:     "Login",
		FinalURL:         "https://example.com/dashboard",
		FinalTitle:       "Dashboard",
		Analysis:         "Login flow completed; the dashboard rendered the expected widgets.",
		ActionLog: []schemas.ActionLogEntry{
			{Iteration: 1, Action: schemas.ActionScript, Success: true, Message: "Filled: #username", URL: "https://example.com/login"},
			{Iteration: 2, Action: schemas.ActionScript, Success: false, Message: "Error: Element not found: #sbmit", URL: "https://example.com/login"},
			{Iteration: 3, Action: schemas.ActionScript, Success: true, Message: "Clicked: #submit", URL: "https://example.com/login"},
			{Iteration: 4, Action: schemas.ActionEnd, Success: true, Message: "session ended by oracle", URL: "https://example.com/dashboard"},
		},
	}
}

func TestRenderIncludesAllSections(t *testing.T) {
	out := Render(sampleReport())

	assert.Contains(t, out, "FINAL REPORT")
	assert.Contains(t, out, "log in with the demo account")
	assert.Contains(t, out, "completed (oracle_end)")
	assert.Contains(t, out, "Iterations: 4")
	assert.Contains(t, out, "42.137s")
	assert.Contains(t, out, "3 succeeded, 1 failed")
	assert.Contains(t, out, "https://example.com/dashboard (Dashboard)")
	assert.Contains(t, out, "[FAILED]")
	assert.Contains(t, out, "Element not found: #sbmit")
	assert.Contains(t, out, "dashboard rendered the expected widgets")
}

func TestRenderTruncatesLongMessages(t *testing.T) {
	r := sampleReport()
	r.ActionLog = []schemas.ActionLogEntry{
		{Iteration: 1, Action: schemas.ActionScript, Success: true, Message: strings.Repeat("x", 200)},
	}

	out := Render(r)
	assert.Contains(t, out, strings.Repeat("x", 120)+"...")
	assert.NotContains(t, out, strings.Repeat("x", 121))
}

func TestRenderOmitsEmptySections(t *testing.T) {
	r := sampleReport()
	r.ActionLog = nil
	r.Analysis = ""

	out := Render(r)
	assert.NotContains(t, out, "Action log:")
	assert.NotContains(t, out, "Analysis:")
}

func TestWriteToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, Write(sampleReport(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "FINAL REPORT")
}

func TestWriteToBadPath(t *testing.T) {
	err := Write(sampleReport(), filepath.Join(t.TempDir(), "missing", "report.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create report file")
}
