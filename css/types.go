package css

import (
	"regexp"
	"strconv"
	"strings"

	"stylemig/diag"
	"stylemig/host"
)

const (
	placeholderPrefix = "__INTERPOLATION_"
	placeholderSuffix = "__"
)

var placeholderRe = regexp.MustCompile(`__INTERPOLATION_(\d+)__`)

// Placeholder returns token substituted for interpolation with given index.
func Placeholder(index int) string {
	return placeholderPrefix + strconv.Itoa(index) + placeholderSuffix
}

// Placeholders returns indexes of every placeholder in s, in order.
func Placeholders(s string) []int {
	var out []int
	for _, m := range placeholderRe.FindAllStringSubmatch(s, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// HasPlaceholder reports whether s contains any placeholder.
func HasPlaceholder(s string) bool {
	return strings.Contains(s, placeholderPrefix)
}

// IsPlaceholder reports whether the whole of s (ignoring surrounding
// whitespace) is a single placeholder.
func IsPlaceholder(s string) (int, bool) {
	s = strings.TrimSpace(s)
	m := placeholderRe.FindStringSubmatch(s)
	if m == nil || m[0] != s {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	return n, err == nil
}

// ReplacePlaceholders substitutes every placeholder with fn result.
func ReplacePlaceholders(s string, fn func(index int) string) string {
	return placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
		n, _ := strconv.Atoi(m[len(placeholderPrefix) : len(m)-len(placeholderSuffix)])
		return fn(n)
	})
}

// Declaration is a single property. Spread marks a statement consisting of a
// lone interpolation, e.g. a mixin reference.
type Declaration struct {
	Property  string
	Value     string
	Important bool
	Spread    bool
}

// RuleNode is one block of the template. At-rule blocks keep the selector of
// the block they are nested in and record their prelude in AtRule.
type RuleNode struct {
	Selector     string
	AtRule       string
	Declarations []Declaration
	NestedRules  []*RuleNode
	AtRuleStack  []string
}

// IsAtRule reports whether node was produced by an at-rule block.
func (r *RuleNode) IsAtRule() bool {
	return r.AtRule != ""
}

// Context describes where interpolation was found.
type Context struct {
	Property         string
	Selector         string
	AtRuleStack      []string
	IsInSelector     bool
	IsInPropertyName bool
	IsInAtRule       bool
	IsFullValue      bool
	Value            string
}

// InterpolationLocation joins interpolation index with its expression and
// position in the parsed template.
type InterpolationLocation struct {
	Index      int
	Expression *host.Expr
	Context    Context
}

type Warning struct {
	Kind    diag.Kind
	Message string
}

// Template is the result of parsing one tagged template.
type Template struct {
	Root           *RuleNode
	Interpolations map[int]*InterpolationLocation
	Warnings       []Warning
	// Text is the template with interpolations substituted by placeholders.
	Text string
}
