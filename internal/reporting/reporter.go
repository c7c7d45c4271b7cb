// internal/reporting/reporter.go
package reporting

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/xkilldash9x/webpilot-cli/api/schemas"
)

// Render produces the human-readable final report.
func Render(r *schemas.Report) string {
	var b strings.Builder
	rule := strings.Repeat("=", 50)

	fmt.Fprintf(&b, "%s\nFINAL REPORT\n%s\n", rule, rule)
	fmt.Fprintf(&b, "Session:   %s\n", r.SessionID)
	fmt.Fprintf(&b, "Task:      %s\n", r.Task)
	fmt.Fprintf(&b, "Target:    %s\n", r.TargetURL)
	fmt.Fprintf(&b, "Status:    %s (%s)\n", r.Status, r.StopReason)
	fmt.Fprintf(&b, "Iterations: %d\n", r.Iterations)
	fmt.Fprintf(&b, "Elapsed:   %s\n", r.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(&b, "Actions:   %d succeeded, %d failed\n", r.ActionsSucceeded, r.ActionsFailed)
	fmt.Fprintf(&b, "Initial:   %s (%s)\n", r.InitialURL, r.InitialTitle)
	fmt.Fprintf(&b, "Final:     %s (%s)\n", r.FinalURL, r.FinalTitle)

	if len(r.ActionLog) > 0 {
		fmt.Fprintf(&b, "\nAction log:\n")
		for _, entry := range r.ActionLog {
			status := "ok"
			if !entry.Success {
				status = "FAILED"
			}
			msg := entry.Message
			if len(msg) > 120 {
				msg = msg[:120] + "..."
			}
			fmt.Fprintf(&b, "  %2d. [%s] %-10s %s\n", entry.Iteration, status, entry.Action, msg)
		}
	}

	if r.Analysis != "" {
		fmt.Fprintf(&b, "\nAnalysis:\n%s\n", r.Analysis)
	}
	fmt.Fprintf(&b, "%s\n", rule)
	return b.String()
}

// Write renders the report to the given path, or stdout when the path is
// empty or "stdout".
func Write(r *schemas.Report, outputPath string) error {
	var w io.Writer = os.Stdout
	if outputPath != "" && outputPath != "stdout" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create report file %s: %w", outputPath, err)
		}
		defer f.Close()
		w = f
	}
	if _, err := io.WriteString(w, Render(r)); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
