// File: internal/agent/fingerprint.go
package agent

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/xkilldash9x/webpilot-cli/api/schemas"
)

// fieldSentinel substitutes for any unreadable observation field so the
// fingerprint stays total. Stagnation detection must keep working even under
// partial observation failure.
const fieldSentinel = "?"

// Fingerprint derives a deterministic coarse digest of the page's structural
// state: location, title, readiness and per-kind interactive element counts.
// Equal fingerprints mean "no material structural change" for the purposes
// of stagnation detection; this is not a content diff. The function is pure
// and never fails.
func Fingerprint(obs *schemas.PageObservation) string {
	var b strings.Builder

	if obs == nil {
		b.WriteString(fieldSentinel)
	} else {
		b.WriteString(orSentinel(obs.URL))
		b.WriteString("|")
		b.WriteString(orSentinel(obs.Title))
		b.WriteString("|")
		b.WriteString(orSentinel(obs.ReadyState))
		b.WriteString("|")

		// Element counts in a fixed kind order so the digest is stable.
		kinds := make([]string, 0, len(obs.ElementCounts))
		for kind := range obs.ElementCounts {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for i, kind := range kinds {
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, "%s=%d", kind, obs.ElementCounts[kind])
		}
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func orSentinel(s string) string {
	if s == "" {
		return fieldSentinel
	}
	return s
}
