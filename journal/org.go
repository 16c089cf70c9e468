// journal/org.go
package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatTransitionOrg renders a TransitionRecord as an Org-mode block suitable
// for pasting into an incident journal. It purposely includes narrative
// placeholders (Impact/Follow-up) while keeping all structured facts in a
// PROPERTIES drawer for easy search.
func FormatTransitionOrg(t TransitionRecord) string {
	heading := fmt.Sprintf("** Transition: %s -> %s (%s)", t.From, t.To, shortID(t.ID))
	// Use RFC3339 for copy/paste friendliness.
	at := t.At.UTC().Format(time.RFC3339)

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":ID: %s\n", t.ID))
	b.WriteString(fmt.Sprintf(":AT: %s\n", at))
	b.WriteString(fmt.Sprintf(":FROM: %s\n", t.From))
	b.WriteString(fmt.Sprintf(":TO: %s\n", t.To))
	b.WriteString(fmt.Sprintf(":REASON: %s\n", t.Reason))
	b.WriteString(fmt.Sprintf(":ACTIVATIONS: %d\n", t.Activations))
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString("*** Impact\n- \n\n")
	b.WriteString("*** Follow-up\n- \n")

	return b.String()
}

// FormatTransitionsOrg renders multiple transitions separated by blank lines.
func FormatTransitionsOrg(recs []TransitionRecord) string {
	var b strings.Builder
	for i, t := range recs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatTransitionOrg(t))
	}
	return b.String()
}

// FormatRejectionsOrg renders rejected samples as a compact Org table.
func FormatRejectionsOrg(recs []RejectionRecord) string {
	if len(recs) == 0 {
		return "No rejections recorded."
	}

	var b strings.Builder
	b.WriteString("| At | Source | Symbol | Code | Price | Detail |\n")
	b.WriteString("|----+--------+--------+------+-------+--------|\n")
	for _, r := range recs {
		b.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %.4f | %s |\n",
			r.At.UTC().Format(time.RFC3339), r.Source, r.Symbol, r.Code, r.Price, r.Detail))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
