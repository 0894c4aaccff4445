// Package classify assigns every interpolation a semantic shape. The
// classification is a closed decision table, anything unrecognized is raw.
package classify

import (
	"stylemig/css"
	"stylemig/host"
)

type Tag string

const (
	TagThemeAccess  Tag = "theme-access"
	TagPropAccess   Tag = "prop-access"
	TagConditional  Tag = "conditional"
	TagLogical      Tag = "logical"
	TagHelperCall   Tag = "helper-call"
	TagKeyframesRef Tag = "keyframes-ref"
	TagRaw          Tag = "raw"
)

// Branch is one statically known outcome of a conditional.
type Branch struct {
	// Literal value text, valid when neither Empty nor Style is set.
	Literal string
	// Number is set when literal came from numeric source.
	Number bool
	// Empty branches ("", null, undefined, false) contribute nothing.
	Empty bool
	// Style is a nested style block without interpolations.
	Style *host.Expr
}

// Context carries names known in the file being converted.
type Context struct {
	Keyframes  map[string]bool
	Mixins     map[string]bool
	Components map[string]bool
	// local name -> import source
	Imports map[string]string
}

// Classified is the shape of one interpolation.
type Classified struct {
	Tag    Tag
	Index  int
	Source string
	Expr   *host.Expr

	// theme-access: path below theme; prop-access and logical: prop path;
	// logical on theme: path below theme
	Path []string
	// tested or accessed prop
	PropName string

	// conditional
	Comparison string
	Negated    bool
	Then       Branch
	Else       Branch

	// logical
	Operator string
	OnTheme  bool
	Fallback Branch

	// helper-call
	Callee       string
	ImportSource string
	Args         []string
	ArgsStatic   bool
	Mixin        bool

	// keyframes-ref, mixin and component references
	Name      string
	Component string
}

// Classify applies the decision table to interpolation expression.
func Classify(loc *css.InterpolationLocation, ctx *Context) *Classified {
	if ctx == nil {
		ctx = &Context{}
	}
	return classifyExpr(loc.Index, loc.Expression, ctx)
}

// Reclassify classifies serialized form of already classified interpolation.
func Reclassify(c *Classified, ctx *Context) *Classified {
	e, err := host.ParseExpression(c.Source)
	if err != nil {
		return &Classified{Tag: TagRaw, Index: c.Index, Source: c.Source}
	}
	return classifyExpr(c.Index, e, ctx)
}

func classifyExpr(index int, e *host.Expr, ctx *Context) *Classified {
	c := &Classified{Tag: TagRaw, Index: index, Expr: e}
	if e == nil {
		return c
	}
	c.Source = e.Source

	if e.Is(host.ExprIdentifier) {
		switch {
		case ctx.Keyframes[e.Name]:
			c.Tag, c.Name = TagKeyframesRef, e.Name
			return c
		case ctx.Mixins[e.Name]:
			c.Tag, c.Name, c.Mixin = TagHelperCall, e.Name, true
			return c
		case ctx.Components[e.Name]:
			c.Component = e.Name
			return c
		}
	}

	if param, ok := e.SingleParam(); ok && e.Body != nil {
		body := e.Body
		if path, ok := themePath(body, param); ok {
			c.Tag, c.Path = TagThemeAccess, path
			return c
		}
		if prop, ok := propName(body, param); ok {
			c.Tag, c.PropName, c.Path = TagPropAccess, prop, []string{prop}
			return c
		}
		if body.Is(host.ExprConditional) && conditional(c, body.Test, body.Then, body.Else, param) {
			return c
		}
		if body.Is(host.ExprLogical) && body.Operator == "&&" {
			if conditional(c, body.Left, body.Right, nil, param) {
				return c
			}
		}
		if body.Is(host.ExprLogical) && (body.Operator == "||" || body.Operator == "??") && logical(c, body, param) {
			return c
		}
	}

	if e.Is(host.ExprCall) && helperCall(c, e, ctx) {
		return c
	}
	return c
}

// themePath matches p.theme.a.b and ({theme}) => theme.a.b.
func themePath(body *host.Expr, param host.Param) ([]string, bool) {
	root, path, ok := body.MemberPath()
	if !ok {
		return nil, false
	}
	key, bound := param.Binds(root)
	if !bound {
		return nil, false
	}
	switch {
	case key == "" && len(path) >= 2 && path[0] == "theme":
		return path[1:], true
	case key == "theme" && len(path) >= 1:
		return path, true
	}
	return nil, false
}

// propName matches p.color and ({ color }) => color.
func propName(body *host.Expr, param host.Param) (string, bool) {
	if body.Is(host.ExprIdentifier) {
		key, bound := param.Binds(body.Name)
		if bound && key != "" && key != "theme" {
			return key, true
		}
		return "", false
	}
	root, path, ok := body.MemberPath()
	if !ok || len(path) != 1 || path[0] == "theme" {
		return "", false
	}
	key, bound := param.Binds(root)
	if !bound || key != "" {
		return "", false
	}
	return path[0], true
}

// testedProp understands p.x, !p.x, p.x === "v" and p.x !== "v".
func testedProp(test *host.Expr, param host.Param) (prop, comparison string, negated, ok bool) {
	if test.Is(host.ExprUnary) && test.Operator == "!" {
		prop, comparison, negated, ok = testedProp(test.Right, param)
		return prop, comparison, !negated, ok
	}
	if test.Is(host.ExprBinary) {
		switch test.Operator {
		case "===", "==", "!==", "!=":
		default:
			return "", "", false, false
		}
		lhs, rhs := test.Left, test.Right
		if lhs.IsLiteral() && !rhs.IsLiteral() {
			lhs, rhs = rhs, lhs
		}
		v, isLit := rhs.LiteralValue()
		if !isLit {
			return "", "", false, false
		}
		p, ok := propName(lhs, param)
		if !ok {
			return "", "", false, false
		}
		return p, v, test.Operator == "!==" || test.Operator == "!=", true
	}
	p, ok := propName(test, param)
	return p, "", false, ok
}

func branch(e *host.Expr) (Branch, bool) {
	if e == nil {
		return Branch{Empty: true}, true
	}
	switch e.Kind {
	case host.ExprNull, host.ExprUndefined:
		return Branch{Empty: true}, true
	case host.ExprBool:
		if e.Value == "false" {
			return Branch{Empty: true}, true
		}
		return Branch{}, false
	case host.ExprTaggedTemplate:
		if len(e.Exprs) == 0 && e.Tag.Is(host.ExprIdentifier) {
			return Branch{Style: e}, true
		}
		return Branch{}, false
	}
	v, ok := e.LiteralValue()
	if !ok {
		return Branch{}, false
	}
	if v == "" {
		return Branch{Empty: true}, true
	}
	return Branch{Literal: v, Number: e.Is(host.ExprNumber) || e.Is(host.ExprUnary)}, true
}

func conditional(c *Classified, test, then, els *host.Expr, param host.Param) bool {
	prop, cmp, neg, ok := testedProp(test, param)
	if !ok {
		return false
	}
	tb, ok := branch(then)
	if !ok {
		return false
	}
	eb, ok := branch(els)
	if !ok {
		return false
	}
	c.Tag = TagConditional
	c.PropName, c.Path = prop, []string{prop}
	c.Comparison, c.Negated = cmp, neg
	c.Then, c.Else = tb, eb
	return true
}

func logical(c *Classified, body *host.Expr, param host.Param) bool {
	fb, ok := branch(body.Right)
	if !ok || fb.Style != nil {
		return false
	}
	if path, ok := themePath(body.Left, param); ok {
		c.Tag, c.Path, c.OnTheme = TagLogical, path, true
	} else if prop, ok := propName(body.Left, param); ok {
		c.Tag, c.Path, c.PropName = TagLogical, []string{prop}, prop
	} else {
		return false
	}
	c.Operator, c.Fallback = body.Operator, fb
	return true
}

func helperCall(c *Classified, e *host.Expr, ctx *Context) bool {
	root := e.Callee
	for root.Is(host.ExprMember) {
		root = root.Object
	}
	if !root.Is(host.ExprIdentifier) {
		return false
	}
	src, imported := ctx.Imports[root.Name]
	if !imported {
		return false
	}
	c.Tag = TagHelperCall
	c.Callee, c.ImportSource = e.Callee.Source, src
	c.ArgsStatic = true
	for _, a := range e.Args {
		if v, ok := a.LiteralValue(); ok {
			c.Args = append(c.Args, v)
			continue
		}
		c.Args = append(c.Args, a.Source)
		c.ArgsStatic = false
	}
	return true
}
