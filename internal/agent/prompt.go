// File: internal/agent/prompt.go
package agent

import (
	"fmt"
	"strings"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/webpilot-cli/api/schemas"
)

// systemPrompt instructs the oracle on its role and the response contract.
const systemPrompt = `You are an expert web testing automation assistant. You receive screenshots and page structure summaries, and you reply with exactly one focused action per response.

Available actions:
1. "javascript" - Execute JavaScript code to interact with the page
2. "wait" - Wait for page elements to load or change
3. "end" - End the test and provide an analysis report

Guidelines:
- Use specific, reliable selectors (prefer id, class, or tag names)
- For text/password/email inputs, set values through the native setter and dispatch an input event; direct element.value assignment does not work with modern frameworks:
  const setValue = (id, val) => { const el = document.getElementById(id); const setter = Object.getOwnPropertyDescriptor(window.HTMLInputElement.prototype, 'value').set; setter.call(el, val); el.dispatchEvent(new Event('input', {bubbles: true})); };
- Do only ONE action at a time (fill one input OR click one button)
- Handle errors gracefully but move forward quickly
- If you achieve the main goal, end the test immediately with a concise report

Respond with JSON containing a required "action" field and, depending on the action, "javascript", "wait_seconds" or "analysis_report" fields.`

// initialPrompt seeds the conversation with the task and the first page
// snapshot.
func initialPrompt(task string, obs *schemas.PageObservation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n\n", task)
	b.WriteString(observationSummary(obs))
	b.WriteString("\nPlease analyze and provide the next action to complete the task efficiently.")
	return b.String()
}

// observationSummary renders a compact textual view of the page for the
// oracle.
func observationSummary(obs *schemas.PageObservation) string {
	if obs == nil {
		return "Current page: unavailable\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Current page: %s\nTitle: %s\n", obs.URL, obs.Title)
	fmt.Fprintf(&b, "Interactive elements found: %d\n", len(obs.Elements))
	if len(obs.Elements) > 0 {
		sample := obs.Elements
		if len(sample) > 10 {
			sample = sample[:10]
		}
		if enc, err := json.MarshalIndent(sample, "", " "); err == nil {
			fmt.Fprintf(&b, "Key elements:\n%s\n", enc)
		}
	}
	return b.String()
}

// resultFeedback renders an action outcome as the next conversation turn.
// Failures are phrased as corrective feedback rather than dead ends.
func resultFeedback(req schemas.ActionRequest, result schemas.ActionResult) string {
	var b strings.Builder
	switch {
	case req.Kind == schemas.ActionScript && result.Success:
		fmt.Fprintf(&b, "JavaScript executed successfully. Result: %s\n\n", result.Message)
	case req.Kind == schemas.ActionScript:
		fmt.Fprintf(&b, "JavaScript failed: %s\n\nPlease try a different approach or end the test if the goal is achieved.\n\n", result.Message)
	case req.Kind == schemas.ActionWait:
		fmt.Fprintf(&b, "Wait completed: %s\n\n", result.Message)
	default:
		fmt.Fprintf(&b, "%s\n\n", result.Message)
	}
	if result.Observation != nil {
		b.WriteString(observationSummary(result.Observation))
	}
	return b.String()
}

// finalAnalysisPrompt asks for a closing assessment when the loop stops
// without an explicit end action.
func finalAnalysisPrompt(task string) string {
	return fmt.Sprintf("Please provide a brief analysis of the current state and whether the task %q was completed successfully.", task)
}
