// Package color maps event titles to display colors using an ordered list
// of substring rules.
package color

import (
	"strings"

	"github.com/samber/mo"
)

// Rule maps a summary substring to a named color.
type Rule struct {
	Pattern string
	Color   string
}

// Table is an ordered rule set. Matching is case-insensitive substring
// containment; the first configured rule that matches wins, so configuration
// order is significant. A Table is immutable after construction and safe for
// concurrent use without locking.
type Table struct {
	rules []rule
}

type rule struct {
	pattern string // lower-cased at construction
	color   string
}

// NewTable builds a Table preserving the configured rule order. Rules with
// an empty pattern or color are skipped.
func NewTable(rules []Rule) *Table {
	t := &Table{rules: make([]rule, 0, len(rules))}
	for _, r := range rules {
		if r.Pattern == "" || r.Color == "" {
			continue
		}
		t.rules = append(t.rules, rule{
			pattern: strings.ToLower(r.Pattern),
			color:   r.Color,
		})
	}
	return t
}

// ColorFor returns the color of the first rule whose pattern occurs in
// summary, or None when no rule matches. Consumers omit the color property
// entirely on None rather than emitting a default.
func (t *Table) ColorFor(summary string) mo.Option[string] {
	if t == nil {
		return mo.None[string]()
	}
	s := strings.ToLower(summary)
	for _, r := range t.rules {
		if strings.Contains(s, r.pattern) {
			return mo.Some(r.color)
		}
	}
	return mo.None[string]()
}

// Len returns the number of usable rules in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rules)
}
