package diff

import (
	"fmt"
	"sort"
)

// symbolFor renders the leading glyph of a summary line: + create, - drop,
// ~ update/replace.
func symbolFor(a Action) string {
	switch a {
	case ActionCreate:
		return "+"
	case ActionDrop:
		return "-"
	default:
		return "~"
	}
}

// Summarize renders a deterministic, lexicographically-sorted list of
// human-readable lines, one per change, e.g. `+ Table 'x'`,
// `- Column 'y.z'`, `~ Enum 'q' (add values: a, b)`. An empty diff
// summarizes to a single "No changes detected" line.
func (d *SchemaDiff) Summarize() []string {
	if d.IsEmpty() {
		return []string{"No changes detected"}
	}
	lines := make([]string, 0, len(d.Changes))
	for _, c := range d.Changes {
		line := fmt.Sprintf("%s %s '%s'", symbolFor(c.Action), c.Category, c.ObjectKey)
		if c.Detail != "" {
			line += fmt.Sprintf(" (%s)", c.Detail)
		}
		lines = append(lines, line)
	}
	sort.Strings(lines)
	return lines
}
