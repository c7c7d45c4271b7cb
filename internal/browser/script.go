// internal/browser/script.go
package browser

import (
	"fmt"

	"github.com/xkilldash9x/webpilot-cli/api/schemas"
)

// pageInfo is the shape returned by pageInfoScript.
type pageInfo struct {
	ReadyState string                `json:"readyState"`
	Counts     map[string]int        `json:"counts"`
	Elements   []schemas.PageElement `json:"elements"`
}

// pageInfoScript builds the in-page collector for the observation: document
// readiness, full per-kind counts of interactive elements, and a bounded
// sample of each kind with truncated text.
func pageInfoScript(samplePerKind int) string {
	if samplePerKind <= 0 {
		samplePerKind = 5
	}
	return fmt.Sprintf(`(function() {
    const kinds = [
        ["form", "form"],
        ["input", "input"],
        ["button", "button"],
        ["select", "select"],
        ["textarea", "textarea"],
        ["a", "a[href]"]
    ];
    const limit = %d;
    const counts = {};
    const elements = [];
    for (const [kind, selector] of kinds) {
        let nodes = [];
        try { nodes = Array.from(document.querySelectorAll(selector)); } catch (e) {}
        counts[kind] = nodes.length;
        nodes.slice(0, limit).forEach((el, i) => {
            try {
                const info = {
                    kind: kind,
                    index: i,
                    id: el.id || "",
                    class: el.className || "",
                    text: ((el.textContent || el.value || "") + "").trim().slice(0, 50)
                };
                if (kind === "input") {
                    info.type = el.type || "text";
                    info.name = el.name || "";
                } else if (kind === "a") {
                    info.href = el.href || "";
                }
                elements.push(info);
            } catch (e) {}
        });
    }
    return { readyState: document.readyState, counts: counts, elements: elements };
})()`, samplePerKind)
}

// wrapScript embeds oracle-provided code in a try/catch harness with the
// quickClick and quickFill helpers available, always yielding a string. An
// "Error:" prefix marks in-page failure.
func wrapScript(code string) string {
	return fmt.Sprintf(`(function() {
    try {
        function quickClick(selector) {
            const el = document.querySelector(selector);
            if (!el) throw new Error('Element not found: ' + selector);
            el.scrollIntoView({block: 'center'});
            el.click();
            return 'Clicked: ' + selector;
        }

        function quickFill(selector, value) {
            const el = document.querySelector(selector);
            if (!el) throw new Error('Input not found: ' + selector);
            el.scrollIntoView({block: 'center'});
            el.focus();
            const setter = Object.getOwnPropertyDescriptor(window.HTMLInputElement.prototype, 'value');
            if (setter && setter.set) { setter.set.call(el, value); } else { el.value = value; }
            el.dispatchEvent(new Event('input', {bubbles: true}));
            el.dispatchEvent(new Event('change', {bubbles: true}));
            return 'Filled: ' + selector;
        }

        const result = (function() {
            %s
        })();

        return (result === undefined || result === null) ? "Success" : String(result);
    } catch (error) {
        return "Error: " + error.toString();
    }
})()`, code)
}
