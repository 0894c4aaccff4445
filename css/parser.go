// Package css parses styling templates: CSS text interleaved with host
// interpolations, with nested rules and at-rules.
package css

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"

	"stylemig/diag"
	"stylemig/host"
)

var (
	ErrUnterminatedBlock = errors.New("unterminated block")
	ErrUnexpectedBrace   = errors.New("unexpected closing brace")
	ErrBadToken          = errors.New("malformed token")
)

// Parser parses styling templates into rule trees.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new template parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Substitute joins literal template segments replacing every interpolation
// with its placeholder. An interpolation standing alone as a statement gets
// terminated with semicolon so that it parses as a declaration.
func Substitute(quasis []string) string {
	var b strings.Builder
	for i, q := range quasis {
		b.WriteString(q)
		if i == len(quasis)-1 {
			break
		}
		standalone := standaloneBefore(b.String()) && standaloneAfter(quasis[i+1])
		b.WriteString(Placeholder(i))
		if standalone {
			b.WriteString(";")
		}
	}
	return b.String()
}

func standaloneBefore(text string) bool {
	t := strings.TrimRight(text, " \t")
	if t == "" || strings.TrimSpace(t) == "" {
		return true
	}
	switch t[len(t)-1] {
	case '\n', '\r', ';', '{', '}':
		return true
	}
	return false
}

func standaloneAfter(text string) bool {
	t := strings.TrimLeft(text, " \t")
	if t == "" {
		return true
	}
	switch t[0] {
	case ';':
		// already terminated
		return false
	case '}':
		return true
	case '\n', '\r':
		rest := strings.TrimSpace(t)
		return rest == "" || (rest[0] != '{' && rest[0] != ',')
	}
	return false
}

// Parse parses template segments, exprs must contain len(quasis)-1
// expressions. Structural errors (unbalanced braces, broken tokens) fail the
// whole template.
func (p *Parser) Parse(quasis []string, exprs []*host.Expr, source ...string) (*Template, error) {
	text := Substitute(quasis)
	if len(source) > 0 && source[0] != "" {
		p.log.Debug("Parsing template", zap.String("source", source[0]), zap.Int("interpolations", len(exprs)))
	}

	toks, err := tokenize(text)
	if err != nil {
		return nil, err
	}

	t := &Template{
		Root:           &RuleNode{Selector: "&"},
		Interpolations: make(map[int]*InterpolationLocation, len(exprs)),
		Text:           text,
	}
	bp := &blockParser{toks: toks, tmpl: t}
	if err := bp.block(t.Root, false); err != nil {
		return nil, err
	}

	locate(t, t.Root, exprs)
	for i, e := range exprs {
		if _, ok := t.Interpolations[i]; !ok {
			// swallowed by a comment or dropped declaration
			t.Warnings = append(t.Warnings, Warning{Kind: diag.KindMalformedDeclaration, Message: fmt.Sprintf("interpolation %q is not part of any rule", e.String())})
		}
	}
	return t, nil
}

type token struct {
	tt   css.TokenType
	data string
}

func tokenize(text string) ([]token, error) {
	l := css.NewLexer(parse.NewInput(bytes.NewReader([]byte(text))))
	var toks []token
	for {
		tt, data := l.Next()
		switch tt {
		case css.ErrorToken:
			if err := l.Err(); err != nil && err != io.EOF {
				return nil, fmt.Errorf("unable to tokenize template: %w", err)
			}
			return toks, nil
		case css.CommentToken:
			continue
		case css.BadStringToken, css.BadURLToken:
			return nil, fmt.Errorf("%w: %s", ErrBadToken, string(data))
		}
		toks = append(toks, token{tt: tt, data: string(data)})
	}
}

type blockParser struct {
	toks []token
	pos  int
	tmpl *Template
}

func (bp *blockParser) warn(kind diag.Kind, msg string) {
	bp.tmpl.Warnings = append(bp.tmpl.Warnings, Warning{Kind: kind, Message: msg})
}

// block consumes content of one block up to and including its closing brace.
func (bp *blockParser) block(node *RuleNode, nested bool) error {
	var (
		prelude []token
		depth   int
	)
	for bp.pos < len(bp.toks) {
		t := bp.toks[bp.pos]
		bp.pos++

		switch t.tt {
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			if depth > 0 {
				depth--
			}
		}
		if depth > 0 {
			prelude = append(prelude, t)
			continue
		}

		switch t.tt {
		case css.LeftBraceToken:
			child := bp.child(node, prelude)
			if err := bp.block(child, true); err != nil {
				return err
			}
			node.NestedRules = append(node.NestedRules, child)
			prelude = nil
		case css.RightBraceToken:
			if !nested {
				return ErrUnexpectedBrace
			}
			bp.declaration(node, prelude)
			return nil
		case css.SemicolonToken:
			bp.declaration(node, prelude)
			prelude = nil
		default:
			prelude = append(prelude, t)
		}
	}
	if nested {
		return ErrUnterminatedBlock
	}
	bp.declaration(node, prelude)
	return nil
}

func (bp *blockParser) child(parent *RuleNode, prelude []token) *RuleNode {
	prelude = trim(prelude)
	text := join(prelude)
	if len(prelude) > 0 && prelude[0].tt == css.AtKeywordToken {
		return &RuleNode{
			Selector:    parent.Selector,
			AtRule:      text,
			AtRuleStack: append(slices.Clone(parent.AtRuleStack), text),
		}
	}
	return &RuleNode{
		Selector:    text,
		AtRuleStack: slices.Clone(parent.AtRuleStack),
	}
}

func (bp *blockParser) declaration(node *RuleNode, prelude []token) {
	prelude = trim(prelude)
	if len(prelude) == 0 {
		return
	}
	if prelude[0].tt == css.AtKeywordToken {
		bp.warn(diag.KindAtRuleWithoutBlock, join(prelude))
		return
	}

	colon := -1
	depth := 0
	for i, t := range prelude {
		switch t.tt {
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			depth--
		case css.ColonToken:
			if depth == 0 && colon < 0 {
				colon = i
			}
		}
	}
	if colon < 0 {
		text := join(prelude)
		if _, ok := IsPlaceholder(text); ok {
			node.Declarations = append(node.Declarations, Declaration{Value: text, Spread: true})
			return
		}
		bp.warn(diag.KindMalformedDeclaration, text)
		return
	}

	prop := join(trim(prelude[:colon]))
	value := trim(prelude[colon+1:])
	if prop == "" {
		bp.warn(diag.KindMalformedDeclaration, join(prelude))
		return
	}

	d := Declaration{Property: prop}
	// !important arrives as delimiter followed by identifier
	if n := len(value); n >= 2 && value[n-1].tt == css.IdentToken && strings.EqualFold(value[n-1].data, "important") && value[n-2].data == "!" {
		d.Important = true
		value = trim(value[:n-2])
	}
	d.Value = join(value)
	node.Declarations = append(node.Declarations, d)
}

func trim(toks []token) []token {
	for len(toks) > 0 && toks[0].tt == css.WhitespaceToken {
		toks = toks[1:]
	}
	for len(toks) > 0 && toks[len(toks)-1].tt == css.WhitespaceToken {
		toks = toks[:len(toks)-1]
	}
	return toks
}

// join rebuilds text from tokens collapsing whitespace runs.
func join(toks []token) string {
	var b strings.Builder
	for _, t := range toks {
		if t.tt == css.WhitespaceToken {
			b.WriteByte(' ')
			continue
		}
		b.WriteString(t.data)
	}
	return strings.TrimSpace(b.String())
}

// locate records context of every placeholder found in the tree.
func locate(t *Template, node *RuleNode, exprs []*host.Expr) {
	record := func(idx int, ctx Context) {
		if idx < 0 || idx >= len(exprs) {
			return
		}
		if _, seen := t.Interpolations[idx]; seen {
			return
		}
		t.Interpolations[idx] = &InterpolationLocation{Index: idx, Expression: exprs[idx], Context: ctx}
	}

	if node.IsAtRule() {
		for _, idx := range Placeholders(node.AtRule) {
			record(idx, Context{Selector: node.Selector, AtRuleStack: node.AtRuleStack, IsInAtRule: true, Value: node.AtRule})
		}
	} else {
		for _, idx := range Placeholders(node.Selector) {
			record(idx, Context{Selector: node.Selector, AtRuleStack: node.AtRuleStack, IsInSelector: true})
		}
	}

	for _, d := range node.Declarations {
		if d.Spread {
			for _, idx := range Placeholders(d.Value) {
				record(idx, Context{Selector: node.Selector, AtRuleStack: node.AtRuleStack, IsFullValue: true, Value: d.Value})
			}
			continue
		}
		for _, idx := range Placeholders(d.Property) {
			record(idx, Context{Property: d.Property, Selector: node.Selector, AtRuleStack: node.AtRuleStack, IsInPropertyName: true, Value: d.Value})
		}
		_, full := IsPlaceholder(d.Value)
		for _, idx := range Placeholders(d.Value) {
			record(idx, Context{Property: d.Property, Selector: node.Selector, AtRuleStack: node.AtRuleStack, IsFullValue: full, Value: d.Value})
		}
	}
	for _, child := range node.NestedRules {
		locate(t, child, exprs)
	}
}
