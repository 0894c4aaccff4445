// Package stylemodel converts parsed styling templates into canonical style
// objects, resolving every interpolation through the decision engine.
package stylemodel

import (
	"errors"
	"regexp"
	"slices"
	"strings"

	"go.uber.org/zap"

	"stylemig/classify"
	"stylemig/css"
	"stylemig/decide"
	"stylemig/diag"
	"stylemig/host"
	"stylemig/styleobj"
)

var ErrDynamicBlock = errors.New("style block has interpolations")

// DynamicFn is a dynamic style function extracted from a declaration.
type DynamicFn struct {
	Decision *decide.Decision
	Property string
	// Keys of the enclosing blocks, outermost first.
	Keys []string
}

// Escape is a bailed expression kept for runtime evaluation as inline style.
type Escape struct {
	Property string
	Source   string
	PropDeps []string
}

// StyleRef is a style applied before the component own styles. Either Entry
// names a registry entry of this file or Code is an expression.
type StyleRef struct {
	Entry string
	Code  string
}

// Result is canonical form of one template.
type Result struct {
	// Style is in property level form. Keys lowering is responsible for
	// (attribute, sibling, child and component selectors) stay nested
	// under their selector text.
	Style      *styleobj.Object
	Variants   []*decide.Decision
	DynamicFns []DynamicFn
	Escapes    []Escape
	StyleRefs  []StyleRef
	Important  bool
	// Decisions keyed by interpolation index.
	Decisions map[int]*decide.Decision
}

// Empty reports whether nothing at all came out of the template.
func (r *Result) Empty() bool {
	return r.Style.Len() == 0 && len(r.Variants) == 0 && len(r.DynamicFns) == 0 && len(r.Escapes) == 0 && len(r.StyleRefs) == 0
}

// Converter is created per file, it shares diagnostics sink and classification
// context between all templates of that file.
type Converter struct {
	log      *zap.Logger
	engine   *decide.Engine
	parser   *css.Parser
	classify *classify.Context
	diags    *diag.Sink
	// Locate turns byte offset of host file into location, optional.
	Locate func(offset int) diag.Location
}

func NewConverter(engine *decide.Engine, cctx *classify.Context, sink *diag.Sink, log *zap.Logger) *Converter {
	if log == nil {
		log = zap.NewNop()
	}
	if cctx == nil {
		cctx = &classify.Context{}
	}
	if sink == nil {
		sink = diag.NewSink()
	}
	c := &Converter{
		log:      log.Named("style-converter"),
		engine:   engine,
		parser:   css.NewParser(log),
		classify: cctx,
		diags:    sink,
	}
	engine.SetBlockConverter(c.ConvertBlock)
	return c
}

func (c *Converter) Parser() *css.Parser {
	return c.parser
}

// state is conversion state of one template.
type state struct {
	component string
	tpl       *css.Template
	res       *Result
	loc       *diag.Location
	// static allows only statically convertible interpolations
	static bool
}

// Convert converts parsed template of a component.
func (c *Converter) Convert(component string, tpl *css.Template, loc *diag.Location) *Result {
	st := c.newState(component, tpl, loc)
	for _, w := range tpl.Warnings {
		c.diags.Report(w.Kind, component, w.Message, loc)
	}
	return c.finish(st, c.run(st))
}

func (c *Converter) newState(component string, tpl *css.Template, loc *diag.Location) *state {
	return &state{
		component: component,
		tpl:       tpl,
		loc:       loc,
		res:       &Result{Decisions: make(map[int]*decide.Decision)},
	}
}

func (c *Converter) run(st *state) *styleobj.Object {
	nested := styleobj.NewObject()
	c.walk(st, st.tpl.Root, nested, nil, false)
	return nested
}

func (c *Converter) finish(st *state, nested *styleobj.Object) *Result {
	flat, combined := styleobj.ToPropertyLevelConditionals(nested)
	for _, k := range combined {
		c.diags.Report(diag.KindNestedConditions, st.component, k, st.loc)
	}
	st.res.Style = flat
	if st.res.Empty() && !st.static {
		c.diags.Report(diag.KindEmptyStyleBlock, st.component, "", st.loc)
	}
	return st.res
}

// ConvertBlock converts interpolation free css`` block used as branch of a
// conditional.
func (c *Converter) ConvertBlock(e *host.Expr) (*styleobj.Object, error) {
	if e == nil || len(e.Exprs) > 0 {
		return nil, ErrDynamicBlock
	}
	tpl, err := c.parser.Parse(e.Quasis, nil)
	if err != nil {
		return nil, err
	}
	st := c.newState("", tpl, nil)
	st.static = true
	nested := c.run(st)
	flat, _ := styleobj.ToPropertyLevelConditionals(nested)
	return flat, nil
}

// ConvertMixin converts css`` helper. Mixins may only use interpolations that
// convert statically.
func (c *Converter) ConvertMixin(name string, tpl *css.Template, loc *diag.Location) *Result {
	st := c.newState(name, tpl, loc)
	st.static = true
	for _, w := range tpl.Warnings {
		c.diags.Report(w.Kind, name, w.Message, loc)
	}
	return c.finish(st, c.run(st))
}

func (c *Converter) location(st *state, loc *css.InterpolationLocation) *diag.Location {
	if c.Locate != nil && loc != nil && loc.Expression != nil {
		l := c.Locate(loc.Expression.Start)
		return &l
	}
	return st.loc
}

func child(target *styleobj.Object, key string) *styleobj.Object {
	if v, ok := target.Get(key); ok {
		if o, isObj := v.(*styleobj.Object); isObj {
			return o
		}
	}
	o := styleobj.NewObject()
	target.Set(key, o)
	return o
}

var conditionAtRules = []string{"@media", "@supports", "@container"}

func (c *Converter) walk(st *state, node *css.RuleNode, target *styleobj.Object, keys []string, lowered bool) {
	for _, d := range node.Declarations {
		c.declaration(st, node, d, target, keys, lowered)
	}
	for _, r := range node.NestedRules {
		if r.IsAtRule() {
			if css.HasPlaceholder(r.AtRule) {
				c.diags.Report(diag.KindInterpolationInAtRule, st.component, r.AtRule, st.loc)
				c.refuse(st, r.AtRule, &decide.NodeContext{InAtRule: true, Value: r.AtRule})
				continue
			}
			name, _, _ := strings.Cut(r.AtRule, " ")
			if !slices.Contains(conditionAtRules, strings.ToLower(name)) {
				c.diags.Report(diag.KindUnsupportedAtRule, st.component, r.AtRule, st.loc)
				continue
			}
			c.walk(st, r, child(target, r.AtRule), append(slices.Clone(keys), r.AtRule), lowered)
			continue
		}
		for _, sel := range styleobj.SplitTopLevel(r.Selector, ',') {
			path, low, ok := c.selectorPath(st, strings.TrimSpace(sel))
			if !ok {
				continue
			}
			obj := target
			next := slices.Clone(keys)
			for _, k := range path {
				obj = child(obj, k)
				next = append(next, k)
			}
			c.walk(st, r, obj, next, lowered || low)
		}
	}
}

// refuse decides every interpolation of text in a context no handler can
// represent, so that each gets its bail diagnostic.
func (c *Converter) refuse(st *state, text string, ctx *decide.NodeContext) {
	for _, idx := range css.Placeholders(text) {
		loc := st.tpl.Interpolations[idx]
		if loc == nil {
			continue
		}
		nc := *ctx
		nc.Component, nc.Index = st.component, idx
		d := c.decide(st, loc, &nc)
		c.bail(st, loc, d, "", nil)
	}
}

var pseudoChainRe = regexp.MustCompile(`^(?:::?[A-Za-z-]+(?:\([^()]*(?:\([^()]*\))*[^()]*\))?)+$`)

var pseudoRe = regexp.MustCompile(`::?[A-Za-z-]+(?:\([^()]*(?:\([^()]*\))*[^()]*\))?`)

// selectorPath maps nested selector to keys of the canonical object. Pseudo
// classes become condition keys and pseudo elements nested objects. Anything
// else is kept verbatim for selector lowering with component references
// spelled as ${Name}.
func (c *Converter) selectorPath(st *state, sel string) ([]string, bool, bool) {
	if css.HasPlaceholder(sel) {
		failed := false
		sel = css.ReplacePlaceholders(sel, func(idx int) string {
			loc := st.tpl.Interpolations[idx]
			if loc != nil {
				cl := classify.Classify(loc, c.classify)
				if cl.Component != "" {
					return "${" + cl.Component + "}"
				}
			}
			failed = true
			return css.Placeholder(idx)
		})
		if failed {
			c.diags.Report(diag.KindInterpolationInSel, st.component, sel, st.loc)
			c.refuse(st, sel, &decide.NodeContext{InSelector: true, Selector: sel})
			return nil, false, false
		}
	}

	rest := strings.TrimSpace(sel)
	switch {
	case strings.HasPrefix(rest, ":"):
		rest = "&" + rest
	case strings.HasPrefix(rest, ">"), strings.HasPrefix(rest, "+"), strings.HasPrefix(rest, "~"):
		rest = "& " + rest
	}
	if rest == "&" {
		return nil, false, true
	}
	if tail, ok := strings.CutPrefix(rest, "&"); ok && pseudoChainRe.MatchString(tail) {
		var element, classes string
		for _, p := range pseudoRe.FindAllString(tail, -1) {
			if strings.HasPrefix(p, "::") {
				element = p
				continue
			}
			classes += p
		}
		var path []string
		if element != "" {
			path = append(path, element)
		}
		if classes != "" {
			path = append(path, classes)
		}
		return path, false, true
	}
	return []string{rest}, true, true
}

func (c *Converter) decide(st *state, loc *css.InterpolationLocation, ctx *decide.NodeContext) *decide.Decision {
	cl := classify.Classify(loc, c.classify)
	d := c.engine.Decide(cl, ctx)
	st.res.Decisions[loc.Index] = d
	return d
}

// bail records bail decision and keeps runtime inline style when possible.
func (c *Converter) bail(st *state, loc *css.InterpolationLocation, d *decide.Decision, prop string, keys []string) {
	detail := d.Detail
	if detail == "" && loc.Expression != nil {
		detail = loc.Expression.Source
	}
	c.diags.Bail(d.Reason, st.component, detail, c.location(st, loc))
	if !d.InlineStyle || st.static || loc.Expression == nil {
		return
	}
	if prop == "" || len(keys) > 0 {
		c.diags.Report(diag.KindDynamicDropped, st.component, loc.Expression.Source, c.location(st, loc))
		return
	}
	st.res.Escapes = append(st.res.Escapes, Escape{
		Property: prop,
		Source:   loc.Expression.Source,
		PropDeps: d.PropDeps,
	})
	c.diags.Report(diag.KindInlineStyleEscape, st.component, prop, c.location(st, loc))
}

// unsupported turns decision into bail when it can not be used where it
// was produced.
func unsupported(d *decide.Decision, detail string) *decide.Decision {
	b := decide.Bail(diag.BailUnsupportedContext, detail, d.PropDeps...)
	if len(b.PropDeps) == 0 && d.PropName != "" {
		b.PropDeps = []string{d.PropName}
	}
	return b
}
