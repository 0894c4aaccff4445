// Package decide maps classified interpolations onto the target style model
// through an ordered chain of handlers.
package decide

import (
	"stylemig/diag"
	"stylemig/styleobj"
)

type Kind string

const (
	KindConvert   Kind = "convert"
	KindRewrite   Kind = "rewrite"
	KindBail      Kind = "bail"
	KindVariant   Kind = "variant"
	KindDynamicFn Kind = "dynamic-fn"
)

// Variant is one named conditional style entry.
type Variant struct {
	Name string
	// Truthy is true when variant applies if the guard holds.
	Truthy bool
	Styles *styleobj.Object
}

// Decision is the outcome for a single interpolation. Only fields of its kind
// are meaningful.
type Decision struct {
	Kind    Kind
	Handler string

	// convert
	Value styleobj.Value

	// rewrite: Code is a style reference applied next to the base entry
	// when StyleRef is set, otherwise an expression spliced into the value.
	// Entry names a registry entry of the same file instead of Code.
	Code     string
	Entry    string
	StyleRef bool

	// bail
	Reason      diag.BailReason
	Detail      string
	PropDeps    []string
	InlineStyle bool

	// variant
	PropName        string
	ComparisonValue string
	Negated         bool
	BaseValue       styleobj.Value
	Variants        []Variant

	// dynamic-fn
	ParamName        string
	ParamType        string
	ValueExpression  string
	FallbackValue    styleobj.Value
	OriginalPropName string
	TargetProperty   string
}

func Convert(v styleobj.Value) *Decision {
	return &Decision{Kind: KindConvert, Value: v}
}

func Rewrite(code string, styleRef bool) *Decision {
	return &Decision{Kind: KindRewrite, Code: code, StyleRef: styleRef}
}

func Bail(reason diag.BailReason, detail string, deps ...string) *Decision {
	return &Decision{Kind: KindBail, Reason: reason, Detail: detail, PropDeps: deps}
}
