// api/schemas/schemas.go
package schemas

import "time"

// SessionStatus tags the terminal state of a pilot session report.
type SessionStatus string

const (
	StatusCompleted SessionStatus = "completed"
	StatusStopped   SessionStatus = "stopped"
	StatusError     SessionStatus = "error"
)

// PageElement is a compact summary of one interactive element on the page.
// Only a small sample per element kind is ever captured.
type PageElement struct {
	Kind  string `json:"kind"`
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Class string `json:"class,omitempty"`
	Text  string `json:"text,omitempty"`
	Name  string `json:"name,omitempty"`
	Type  string `json:"type,omitempty"`
	Href  string `json:"href,omitempty"`
}

// PageObservation is an immutable snapshot of the page as seen at the start
// of a cycle. Produced by the browser session, consumed by the fingerprinter,
// the conversation context and the final report.
type PageObservation struct {
	URL           string         `json:"url"`
	Title         string         `json:"title"`
	ReadyState    string         `json:"ready_state"`
	ElementCounts map[string]int `json:"element_counts"`
	Elements      []PageElement  `json:"elements"`

	// Screenshot captured alongside the observation. Path points at the PNG
	// on disk; B64 is what gets attached to oracle turns.
	ScreenshotPath string `json:"screenshot_path,omitempty"`
	ScreenshotB64  string `json:"-"`
}

// ConversationTurn is one entry of the session's conversation history.
// Only user-role turns exist; the oracle's replies are consumed immediately
// and never retained as turns.
type ConversationTurn struct {
	Role     string `json:"role"`
	Text     string `json:"text"`
	ImageB64 string `json:"-"`
}

// ActionKind discriminates the structured actions the oracle may request.
type ActionKind string

const (
	ActionScript  ActionKind = "javascript"
	ActionWait    ActionKind = "wait"
	ActionEnd     ActionKind = "end"
	ActionUnknown ActionKind = "unknown"
)

// ActionRequest is the structured form of one oracle instruction.
type ActionRequest struct {
	Kind         ActionKind
	Script       string
	WaitDuration time.Duration
	Report       string
	// Raw preserves the original oracle text for unknown/degraded actions.
	Raw string
}

// ActionResult is the outcome of dispatching one ActionRequest.
type ActionResult struct {
	Success     bool
	Message     string
	Observation *PageObservation
}

// GenerationRequest carries one outward oracle call: the system prompt plus
// the bounded window of recent turns.
type GenerationRequest struct {
	SystemPrompt string
	Turns        []ConversationTurn
	Temperature  float32
	ForceJSON    bool
}

// ActionLogEntry records one iteration for the final report.
type ActionLogEntry struct {
	Iteration int           `json:"iteration"`
	Action    ActionKind    `json:"action"`
	Success   bool          `json:"success"`
	Message   string        `json:"message"`
	URL       string        `json:"url"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Report is the artifact every session produces, whatever the exit path.
type Report struct {
	SessionID        string           `json:"session_id"`
	Task             string           `json:"task"`
	TargetURL        string           `json:"target_url"`
	Status           SessionStatus    `json:"status"`
	StopReason       string           `json:"stop_reason"`
	Iterations       int              `json:"iterations"`
	Elapsed          time.Duration    `json:"elapsed"`
	ActionsSucceeded int              `json:"actions_succeeded"`
	ActionsFailed    int              `json:"actions_failed"`
	InitialURL       string           `json:"initial_url"`
	InitialTitle     string           `json:"initial_title"`
	FinalURL         string           `json:"final_url"`
	FinalTitle       string           `json:"final_title"`
	Analysis         string           `json:"analysis"`
	ActionLog        []ActionLogEntry `json:"action_log"`
}
