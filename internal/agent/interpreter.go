// File: internal/agent/interpreter.go
package agent

import (
	"regexp"
	"strings"
	"time"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/webpilot-cli/api/schemas"
)

// oracleResponse is the JSON shape the oracle is asked to produce.
type oracleResponse struct {
	Action         string `json:"action"`
	Javascript     string `json:"javascript"`
	WaitSeconds    int    `json:"wait_seconds"`
	AnalysisReport string `json:"analysis_report"`
}

// Regex uses \x60 (hex for backtick) because Go raw strings cannot contain
// backticks.
var fencedJSONRegex = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*({.*?})\\s*\x60\x60\x60")

// Completion, interaction and loading vocabularies for the heuristic rung.
var (
	completionWords  = []string{"complete", "done", "success", "finished", "achieved"}
	interactionWords = []string{"click", "fill", "submit"}
	loadingWords     = []string{"wait", "loading"}
)

// parseStrategy is one rung of the interpretation ladder. It returns the
// structured action and true on success.
type parseStrategy struct {
	name string
	fn   func(raw string) (schemas.ActionRequest, bool)
}

// Interpreter turns raw oracle output into a structured ActionRequest. It is
// total: the worst case degrades to Unknown or End with the raw text
// embedded, so an unparseable response can never stall the loop.
type Interpreter struct {
	defaultWait time.Duration
	strategies  []parseStrategy
}

// NewInterpreter builds the interpreter with its fixed-priority strategy
// chain: direct parse, fenced block, balanced object scan, then keyword
// heuristics.
func NewInterpreter(defaultWait time.Duration) *Interpreter {
	if defaultWait <= 0 {
		defaultWait = 2 * time.Second
	}
	it := &Interpreter{defaultWait: defaultWait}
	it.strategies = []parseStrategy{
		{name: "direct_json", fn: it.parseDirect},
		{name: "fenced_block", fn: it.parseFenced},
		{name: "balanced_object", fn: it.parseBalanced},
		{name: "keyword_heuristic", fn: it.parseHeuristic},
	}
	return it
}

// Interpret runs the strategy chain in priority order; first success wins.
func (it *Interpreter) Interpret(raw string) schemas.ActionRequest {
	trimmed := strings.TrimSpace(raw)
	for _, s := range it.strategies {
		if req, ok := s.fn(trimmed); ok {
			return req
		}
	}
	// Unreachable: the heuristic rung always succeeds. Kept as a hard
	// floor so a future strategy edit cannot make Interpret partial.
	return schemas.ActionRequest{Kind: schemas.ActionUnknown, Raw: trimmed}
}

// Strategies returns the names of the chain rungs in priority order.
func (it *Interpreter) Strategies() []string {
	names := make([]string, len(it.strategies))
	for i, s := range it.strategies {
		names[i] = s.name
	}
	return names
}

// parseDirect attempts a structured parse of the whole trimmed text.
func (it *Interpreter) parseDirect(raw string) (schemas.ActionRequest, bool) {
	return it.decode(raw)
}

// parseFenced extracts a fenced code block containing a JSON object and
// parses that.
func (it *Interpreter) parseFenced(raw string) (schemas.ActionRequest, bool) {
	matches := fencedJSONRegex.FindStringSubmatch(raw)
	if len(matches) < 2 {
		return schemas.ActionRequest{}, false
	}
	return it.decode(matches[1])
}

// parseBalanced scans for the smallest balanced JSON object containing the
// "action" discriminator and parses it.
func (it *Interpreter) parseBalanced(raw string) (schemas.ActionRequest, bool) {
	for start := strings.Index(raw, "{"); start != -1; {
		end := matchBrace(raw, start)
		if end == -1 {
			break
		}
		candidate := raw[start : end+1]
		if strings.Contains(candidate, `"action"`) {
			if req, ok := it.decode(candidate); ok {
				return req, true
			}
		}
		next := strings.Index(raw[start+1:], "{")
		if next == -1 {
			break
		}
		start = start + 1 + next
	}
	return schemas.ActionRequest{}, false
}

// matchBrace returns the index of the brace closing the object opened at
// start, respecting string literals, or -1 if unbalanced.
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// parseHeuristic is the last rung: keyword detection over the lowercased raw
// text. It always succeeds, degrading to End carrying the raw text so the
// session can still terminate gracefully.
func (it *Interpreter) parseHeuristic(raw string) (schemas.ActionRequest, bool) {
	lower := strings.ToLower(raw)

	if containsAny(lower, completionWords) {
		return schemas.ActionRequest{Kind: schemas.ActionEnd, Report: raw, Raw: raw}, true
	}
	if containsAny(lower, interactionWords) {
		// Best-guess generic interaction: poke the most likely submit
		// control so the page has a chance to move forward.
		return schemas.ActionRequest{
			Kind:   schemas.ActionScript,
			Script: `const el = document.querySelector('button[type="submit"], input[type="submit"], button'); if (el) { el.click(); } else { throw new Error('no interactive element found'); }`,
			Raw:    raw,
		}, true
	}
	if containsAny(lower, loadingWords) {
		return schemas.ActionRequest{Kind: schemas.ActionWait, WaitDuration: it.defaultWait, Raw: raw}, true
	}
	return schemas.ActionRequest{Kind: schemas.ActionEnd, Report: raw, Raw: raw}, true
}

// decode unmarshals a candidate JSON object and maps it onto an
// ActionRequest. An object without a recognizable action is not a success;
// later rungs get their chance instead.
func (it *Interpreter) decode(candidate string) (schemas.ActionRequest, bool) {
	var resp oracleResponse
	if err := json.Unmarshal([]byte(candidate), &resp); err != nil {
		return schemas.ActionRequest{}, false
	}

	switch strings.ToLower(strings.TrimSpace(resp.Action)) {
	case "javascript", "script", "js":
		return schemas.ActionRequest{Kind: schemas.ActionScript, Script: resp.Javascript, Raw: candidate}, true
	case "wait":
		wait := it.defaultWait
		if resp.WaitSeconds > 0 {
			wait = time.Duration(resp.WaitSeconds) * time.Second
		}
		return schemas.ActionRequest{Kind: schemas.ActionWait, WaitDuration: wait, Raw: candidate}, true
	case "end":
		report := resp.AnalysisReport
		if report == "" {
			report = candidate
		}
		return schemas.ActionRequest{Kind: schemas.ActionEnd, Report: report, Raw: candidate}, true
	case "":
		return schemas.ActionRequest{}, false
	default:
		return schemas.ActionRequest{Kind: schemas.ActionUnknown, Raw: candidate}, true
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
