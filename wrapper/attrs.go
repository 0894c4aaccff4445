package wrapper

import (
	"slices"
	"strings"
)

// globalAttributes are forwarded to every host element.
var globalAttributes = []string{
	"id", "title", "role", "hidden", "lang", "dir", "tabIndex", "draggable",
	"children", "key", "ref",
}

// elementAttributes lists consumed props that still must reach particular
// host elements.
var elementAttributes = map[string][]string{
	"a":        {"href", "target", "rel", "download"},
	"button":   {"type", "disabled", "name", "value", "form"},
	"input":    {"type", "disabled", "name", "value", "checked", "placeholder", "readOnly", "required", "min", "max", "step"},
	"select":   {"disabled", "name", "value", "multiple", "required"},
	"textarea": {"disabled", "name", "value", "placeholder", "readOnly", "required", "rows", "cols"},
	"img":      {"src", "alt", "width", "height", "loading"},
	"label":    {"htmlFor"},
	"option":   {"value", "selected", "disabled"},
	"form":     {"action", "method"},
	"td":       {"colSpan", "rowSpan"},
	"th":       {"colSpan", "rowSpan", "scope"},
}

// Attributes decides which props are native attributes of a host element.
type Attributes struct {
	// Extra per tag entries merged over defaults, "*" applies to all tags.
	Extra map[string][]string
}

// Native reports whether prop must be forwarded to tag.
func (a Attributes) Native(tag, prop string) bool {
	if strings.HasPrefix(prop, "$") {
		return false
	}
	if strings.HasPrefix(prop, "data-") || strings.HasPrefix(prop, "aria-") || strings.HasPrefix(prop, "on") && len(prop) > 2 && prop[2] >= 'A' && prop[2] <= 'Z' {
		return true
	}
	if slices.Contains(globalAttributes, prop) || slices.Contains(elementAttributes[tag], prop) {
		return true
	}
	return slices.Contains(a.Extra["*"], prop) || slices.Contains(a.Extra[tag], prop)
}
