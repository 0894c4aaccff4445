// Package host parses JavaScript and TypeScript sources with tree-sitter and
// exposes the pieces style migration works on: expressions, styled
// declarations, imports and JSX usage sites.
package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/alexaandru/go-sitter-forest/javascript"
	"github.com/alexaandru/go-sitter-forest/tsx"
	"github.com/alexaandru/go-sitter-forest/typescript"
	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"stylemig/common"
)

var (
	ErrNoRootNode   = errors.New("no root node")
	ErrSyntax       = errors.New("syntax error")
	ErrNoExpression = errors.New("no expression found")
)

var languageFuncs = map[common.SourceLang]func() unsafe.Pointer{
	common.SourceLangJavaScript: javascript.GetLanguage,
	common.SourceLangTypeScript: typescript.GetLanguage,
	common.SourceLangTSX:        tsx.GetLanguage,
}

var languageCache sync.Map

func language(lang common.SourceLang) *sitter.Language {
	if cached, ok := languageCache.Load(lang); ok {
		if l, ok := cached.(*sitter.Language); ok {
			return l
		}
	}
	fn, ok := languageFuncs[lang]
	if !ok {
		fn = languageFuncs[common.SourceLangTSX]
	}
	l := sitter.NewLanguage(fn())
	languageCache.Store(lang, l)
	return l
}

// parse runs tree-sitter over content, caller must close returned tree.
func parse(ctx context.Context, lang common.SourceLang, content []byte) (*sitter.Tree, sitter.Node, error) {
	p := sitter.NewParser()
	p.SetLanguage(language(lang))

	tree, err := p.ParseString(ctx, nil, content)
	if err != nil {
		return nil, sitter.Node{}, fmt.Errorf("unable to parse %s source: %w", lang, err)
	}
	root := tree.RootNode()
	if root.IsNull() {
		tree.Close()
		return nil, sitter.Node{}, ErrNoRootNode
	}
	return tree, root, nil
}

// ParseExpression parses standalone expression text. Offsets in the result
// are relative to src.
func ParseExpression(src string) (*Expr, error) {
	const prefix = "("
	content := []byte(prefix + src + "\n)")

	tree, root, err := parse(context.Background(), common.SourceLangTSX, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	if root.HasError() {
		return nil, fmt.Errorf("%w in expression %q", ErrSyntax, src)
	}
	if root.NamedChildCount() == 0 {
		return nil, ErrNoExpression
	}
	stmt := root.NamedChild(0)
	if stmt.Type() != "expression_statement" || stmt.NamedChildCount() == 0 {
		return nil, ErrNoExpression
	}
	c := converter{src: content, shift: len(prefix)}
	return c.expr(stmt.NamedChild(0)), nil
}

// Validate reports whether code parses without errors.
func Validate(code string, lang common.SourceLang) error {
	tree, root, err := parse(context.Background(), lang, []byte(code))
	if err != nil {
		return err
	}
	defer tree.Close()
	if root.HasError() {
		if n, ok := firstError(root); ok {
			return fmt.Errorf("%w at %d:%d", ErrSyntax, n.StartPoint().Row+1, n.StartPoint().Column+1)
		}
		return ErrSyntax
	}
	return nil
}

func firstError(n sitter.Node) (sitter.Node, bool) {
	if n.Type() == "ERROR" {
		return n, true
	}
	for i := range n.ChildCount() {
		if e, ok := firstError(n.Child(i)); ok {
			return e, true
		}
	}
	return sitter.Node{}, false
}

// converter turns tree-sitter nodes into owned expressions. shift is
// subtracted from node offsets so that they point into caller's text.
type converter struct {
	src   []byte
	shift int
}

func (c *converter) text(n sitter.Node) string {
	return string(c.src[n.StartByte():n.EndByte()])
}

func (c *converter) newExpr(kind ExprKind, n sitter.Node) *Expr {
	return &Expr{
		Kind:   kind,
		Source: c.text(n),
		Start:  int(n.StartByte()) - c.shift,
		End:    int(n.EndByte()) - c.shift,
	}
}

func (c *converter) field(n sitter.Node, name string) *Expr {
	f := n.ChildByFieldName(name)
	if f.IsNull() {
		return nil
	}
	return c.expr(f)
}

func (c *converter) expr(n sitter.Node) *Expr {
	if n.IsNull() {
		return nil
	}
	switch n.Type() {
	case "parenthesized_expression", "as_expression", "satisfies_expression", "non_null_expression", "type_assertion":
		for i := range n.NamedChildCount() {
			ch := n.NamedChild(i)
			if ch.Type() != "type_arguments" && ch.Type() != "type_annotation" {
				return c.expr(ch)
			}
		}
		return c.newExpr(ExprOther, n)

	case "identifier", "this", "property_identifier", "shorthand_property_identifier":
		e := c.newExpr(ExprIdentifier, n)
		e.Name = e.Source
		return e

	case "undefined":
		return c.newExpr(ExprUndefined, n)
	case "null":
		return c.newExpr(ExprNull, n)
	case "true", "false":
		e := c.newExpr(ExprBool, n)
		e.Value = e.Source
		return e

	case "number":
		e := c.newExpr(ExprNumber, n)
		e.Value = e.Source
		return e

	case "string":
		e := c.newExpr(ExprString, n)
		if len(e.Source) >= 2 {
			e.Value = e.Source[1 : len(e.Source)-1]
		}
		return e

	case "template_string":
		return c.template(n)

	case "member_expression":
		e := c.newExpr(ExprMember, n)
		e.Object = c.field(n, "object")
		if p := n.ChildByFieldName("property"); !p.IsNull() {
			e.Name = c.text(p)
		}
		return e

	case "subscript_expression":
		e := c.newExpr(ExprMember, n)
		e.Object = c.field(n, "object")
		e.Computed = true
		if idx := c.field(n, "index"); idx.Is(ExprString) || idx.Is(ExprNumber) {
			e.Name = idx.Value
		}
		return e

	case "arrow_function", "function_expression", "function":
		e := c.newExpr(ExprArrow, n)
		if p := n.ChildByFieldName("parameter"); !p.IsNull() {
			e.Params = []Param{{Name: c.text(p)}}
		} else if ps := n.ChildByFieldName("parameters"); !ps.IsNull() {
			e.Params = c.params(ps)
		}
		body := n.ChildByFieldName("body")
		if !body.IsNull() && body.Type() == "statement_block" {
			e.BlockBody = true
			if body.NamedChildCount() == 1 && body.NamedChild(0).Type() == "return_statement" {
				ret := body.NamedChild(0)
				if ret.NamedChildCount() > 0 {
					e.Body = c.expr(ret.NamedChild(0))
				}
			}
		} else {
			e.Body = c.expr(body)
		}
		return e

	case "ternary_expression":
		e := c.newExpr(ExprConditional, n)
		e.Test = c.field(n, "condition")
		e.Then = c.field(n, "consequence")
		e.Else = c.field(n, "alternative")
		return e

	case "binary_expression":
		e := c.newExpr(ExprBinary, n)
		if op := n.ChildByFieldName("operator"); !op.IsNull() {
			e.Operator = c.text(op)
		}
		switch e.Operator {
		case "&&", "||", "??":
			e.Kind = ExprLogical
		}
		e.Left = c.field(n, "left")
		e.Right = c.field(n, "right")
		return e

	case "unary_expression":
		e := c.newExpr(ExprUnary, n)
		if op := n.ChildByFieldName("operator"); !op.IsNull() {
			e.Operator = c.text(op)
		}
		e.Right = c.field(n, "argument")
		return e

	case "call_expression":
		args := n.ChildByFieldName("arguments")
		if !args.IsNull() && args.Type() == "template_string" {
			e := c.newExpr(ExprTaggedTemplate, n)
			e.Tag = c.field(n, "function")
			t := c.template(args)
			e.Quasis, e.Exprs = t.Quasis, t.Exprs
			return e
		}
		e := c.newExpr(ExprCall, n)
		e.Callee = c.field(n, "function")
		if !args.IsNull() {
			for i := range args.NamedChildCount() {
				e.Args = append(e.Args, c.expr(args.NamedChild(i)))
			}
		}
		return e

	case "object":
		e := c.newExpr(ExprObject, n)
		for i := range n.NamedChildCount() {
			ch := n.NamedChild(i)
			switch ch.Type() {
			case "pair":
				key := ch.ChildByFieldName("key")
				k := c.text(key)
				if key.Type() == "string" && len(k) >= 2 {
					k = k[1 : len(k)-1]
				}
				e.Props = append(e.Props, Property{Key: k, Value: c.field(ch, "value")})
			case "shorthand_property_identifier":
				e.Props = append(e.Props, Property{Key: c.text(ch), Value: c.expr(ch), Shorthand: true})
			case "spread_element":
				var v *Expr
				if ch.NamedChildCount() > 0 {
					v = c.expr(ch.NamedChild(0))
				}
				e.Props = append(e.Props, Property{Spread: true, Value: v})
			}
		}
		return e

	case "array":
		e := c.newExpr(ExprArray, n)
		for i := range n.NamedChildCount() {
			e.Elements = append(e.Elements, c.expr(n.NamedChild(i)))
		}
		return e
	}
	return c.newExpr(ExprOther, n)
}

func (c *converter) template(n sitter.Node) *Expr {
	e := c.newExpr(ExprTemplate, n)
	// content sits between backticks
	last := int(n.StartByte()) + 1
	for i := range n.NamedChildCount() {
		ch := n.NamedChild(i)
		if ch.Type() != "template_substitution" {
			continue
		}
		e.Quasis = append(e.Quasis, string(c.src[last:ch.StartByte()]))
		var inner *Expr
		if ch.NamedChildCount() > 0 {
			inner = c.expr(ch.NamedChild(0))
		} else {
			inner = c.newExpr(ExprOther, ch)
		}
		e.Exprs = append(e.Exprs, inner)
		last = int(ch.EndByte())
	}
	end := int(n.EndByte()) - 1
	if end < last {
		end = last
	}
	e.Quasis = append(e.Quasis, string(c.src[last:end]))
	return e
}

func (c *converter) params(ps sitter.Node) []Param {
	var out []Param
	for i := range ps.NamedChildCount() {
		p := ps.NamedChild(i)
		var param Param
		pattern := p
		switch p.Type() {
		case "required_parameter", "optional_parameter":
			if pat := p.ChildByFieldName("pattern"); !pat.IsNull() {
				pattern = pat
			}
			if t := p.ChildByFieldName("type"); !t.IsNull() {
				param.Type = c.text(t)
			}
		case "assignment_pattern":
			if l := p.ChildByFieldName("left"); !l.IsNull() {
				pattern = l
			}
		}
		switch pattern.Type() {
		case "identifier":
			param.Name = c.text(pattern)
		case "object_pattern":
			param.Fields, param.Rest = c.objectPattern(pattern)
		case "rest_pattern":
			param.Rest = c.text(pattern)
		default:
			param.Name = c.text(pattern)
		}
		out = append(out, param)
	}
	return out
}

func (c *converter) objectPattern(n sitter.Node) ([]ParamField, string) {
	var (
		fields []ParamField
		rest   string
	)
	for i := range n.NamedChildCount() {
		ch := n.NamedChild(i)
		switch ch.Type() {
		case "shorthand_property_identifier_pattern":
			name := c.text(ch)
			fields = append(fields, ParamField{Key: name, Local: name})
		case "object_assignment_pattern":
			if l := ch.ChildByFieldName("left"); !l.IsNull() {
				name := c.text(l)
				fields = append(fields, ParamField{Key: name, Local: name})
			}
		case "pair_pattern":
			k, v := ch.ChildByFieldName("key"), ch.ChildByFieldName("value")
			if k.IsNull() || v.IsNull() {
				continue
			}
			if v.Type() == "assignment_pattern" {
				if l := v.ChildByFieldName("left"); !l.IsNull() {
					v = l
				}
			}
			fields = append(fields, ParamField{Key: c.text(k), Local: c.text(v)})
		case "rest_pattern":
			if ch.NamedChildCount() > 0 {
				rest = c.text(ch.NamedChild(0))
			}
		}
	}
	return fields, rest
}
