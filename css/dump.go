package css

import (
	"maps"
	"slices"

	"stylemig/utils/debug"
)

// Dump renders parsed template as indented tree, used in debug logs.
func (t *Template) Dump() string {
	tw := debug.NewTreeWriter()
	if t.Root != nil {
		dumpRule(tw, 0, t.Root)
	}
	for _, idx := range slices.Sorted(maps.Keys(t.Interpolations)) {
		loc := t.Interpolations[idx]
		tw.Line(0, "interpolation %d", idx)
		if loc.Expression != nil {
			tw.Field(1, "source", loc.Expression.Source)
		}
		c := loc.Context
		switch {
		case c.IsInSelector:
			tw.Field(1, "selector", c.Selector)
		case c.IsInAtRule:
			tw.List(1, "at-rule", c.AtRuleStack)
		case c.IsInPropertyName:
			tw.Line(1, "in property name")
		default:
			tw.Field(1, "property", c.Property)
			tw.Line(1, "full value: %t", c.IsFullValue)
		}
	}
	for _, w := range t.Warnings {
		tw.Line(0, "warning %s", w.Kind)
		tw.Field(1, "message", w.Message)
	}
	return tw.String()
}

func dumpRule(tw *debug.TreeWriter, depth int, r *RuleNode) {
	if r.IsAtRule() {
		tw.Line(depth, "at-rule %q", r.AtRule)
	} else {
		tw.Line(depth, "rule %q", r.Selector)
	}
	for _, d := range r.Declarations {
		switch {
		case d.Spread:
			tw.Line(depth+1, "spread %q", d.Value)
		case d.Important:
			tw.Line(depth+1, "%s: %q !important", d.Property, d.Value)
		default:
			tw.Line(depth+1, "%s: %q", d.Property, d.Value)
		}
	}
	for _, n := range r.NestedRules {
		dumpRule(tw, depth+1, n)
	}
}
