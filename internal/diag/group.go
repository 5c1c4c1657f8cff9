package diag

import "strings"

// Group is a batch of diagnostics sharing severity, message and file.
// One snippet is rendered per group, taken from the first member; every
// member contributes one trailer line, in emission order, never
// de-duplicated even when locations repeat.
type Group struct {
	Severity Severity
	Message  []string
	Members  []Diagnostic
}

type groupKey struct {
	sev  Severity
	msg  string
	file string
}

// GroupAll coalesces diagnostics into groups, preserving the first-seen
// order of distinct (severity, message, file) keys; within a group the
// members keep emission order. Messages compare by exact text, so
// whitespace differences produce distinct groups.
func GroupAll(diags []Diagnostic) []Group {
	groups := make([]Group, 0, len(diags))
	index := make(map[groupKey]int, len(diags))

	for _, d := range diags {
		key := groupKey{
			sev:  d.Severity,
			msg:  strings.Join(d.Message, "\n"),
			file: d.Location.File,
		}
		at, ok := index[key]
		if !ok {
			at = len(groups)
			index[key] = at
			groups = append(groups, Group{Severity: d.Severity, Message: d.Message})
		}
		groups[at].Members = append(groups[at].Members, d)
	}
	return groups
}

// First returns the representative member whose snippet the group renders.
func (g Group) First() Diagnostic {
	return g.Members[0]
}
