package host

import (
	"strings"
)

// ExprKind is the shape of a host expression, only the shapes style
// migration cares about are distinguished, everything else is ExprOther.
type ExprKind int

const (
	ExprOther ExprKind = iota
	ExprIdentifier
	ExprMember
	ExprArrow
	ExprConditional
	ExprLogical
	ExprBinary
	ExprUnary
	ExprCall
	ExprString
	ExprNumber
	ExprBool
	ExprNull
	ExprUndefined
	ExprTemplate
	ExprTaggedTemplate
	ExprObject
	ExprArray
)

var exprKindNames = [...]string{
	"other", "identifier", "member", "arrow", "conditional", "logical", "binary", "unary",
	"call", "string", "number", "bool", "null", "undefined", "template", "tagged-template",
	"object", "array",
}

func (k ExprKind) String() string {
	if int(k) < 0 || int(k) >= len(exprKindNames) {
		return "unknown"
	}
	return exprKindNames[k]
}

// ParamField is one key of a destructured parameter: ({ theme: t }) gives
// Key "theme" and Local "t".
type ParamField struct {
	Key   string
	Local string
}

type Param struct {
	Name   string // empty when destructured
	Fields []ParamField
	Rest   string
	Type   string // type annotation text, if any
}

// Binds reports which top level key a local name inside the function body
// refers to, "" when it is the whole parameter.
func (p Param) Binds(local string) (key string, ok bool) {
	if p.Name != "" {
		return "", p.Name == local
	}
	for _, f := range p.Fields {
		if f.Local == local {
			return f.Key, true
		}
	}
	return "", false
}

type Property struct {
	Key       string
	Value     *Expr
	Shorthand bool
	Spread    bool
}

// Expr is an owned, immutable copy of host syntax. Offsets are bytes into the
// text the expression was parsed from.
type Expr struct {
	Kind   ExprKind
	Source string
	Start  int
	End    int

	// identifier name, member property name, literal value, operator
	Name     string
	Value    string
	Operator string

	Object   *Expr
	Computed bool

	Params    []Param
	Body      *Expr
	BlockBody bool

	Test *Expr
	Then *Expr
	Else *Expr

	Left  *Expr
	Right *Expr

	Callee *Expr
	Args   []*Expr

	Tag    *Expr
	Quasis []string
	Exprs  []*Expr

	Props    []Property
	Elements []*Expr
}

func (e *Expr) Is(kind ExprKind) bool {
	return e != nil && e.Kind == kind
}

// IsLiteral is true for expressions whose value is known statically.
func (e *Expr) IsLiteral() bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case ExprString, ExprNumber, ExprBool, ExprNull, ExprUndefined:
		return true
	case ExprTemplate:
		return len(e.Exprs) == 0
	case ExprUnary:
		return e.Operator == "-" && e.Right.Is(ExprNumber)
	}
	return false
}

// LiteralValue returns static value as text, numbers keep their source
// spelling, template literals without substitutions are flattened.
func (e *Expr) LiteralValue() (string, bool) {
	if !e.IsLiteral() {
		return "", false
	}
	switch e.Kind {
	case ExprTemplate:
		return strings.Join(e.Quasis, ""), true
	case ExprUnary:
		return "-" + e.Right.Value, true
	case ExprNull, ExprUndefined:
		return "", true
	}
	return e.Value, true
}

// MemberPath flattens a.b.c into root "a" and path ["b","c"]. Computed
// access with string keys is allowed, anything else fails.
func (e *Expr) MemberPath() (root string, path []string, ok bool) {
	cur := e
	for cur.Is(ExprMember) {
		if cur.Name == "" {
			return "", nil, false
		}
		path = append(path, cur.Name)
		cur = cur.Object
	}
	if !cur.Is(ExprIdentifier) {
		return "", nil, false
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return cur.Name, path, true
}

// SingleParam returns the only parameter of an arrow function.
func (e *Expr) SingleParam() (Param, bool) {
	if !e.Is(ExprArrow) || len(e.Params) != 1 {
		return Param{}, false
	}
	return e.Params[0], true
}

// Walk visits expression tree depth first, stops descending when fn returns
// false.
func (e *Expr) Walk(fn func(*Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, c := range []*Expr{e.Object, e.Body, e.Test, e.Then, e.Else, e.Left, e.Right, e.Callee, e.Tag} {
		c.Walk(fn)
	}
	for _, c := range e.Args {
		c.Walk(fn)
	}
	for _, c := range e.Exprs {
		c.Walk(fn)
	}
	for _, p := range e.Props {
		p.Value.Walk(fn)
	}
	for _, c := range e.Elements {
		c.Walk(fn)
	}
}

func (e *Expr) String() string {
	if e == nil {
		return ""
	}
	return e.Source
}
