package decide

import (
	"regexp"
	"slices"

	"go.uber.org/zap"

	"stylemig/classify"
	"stylemig/common"
	"stylemig/diag"
	"stylemig/host"
	"stylemig/styleobj"
)

// NodeContext describes where an interpolation sits in the style template.
type NodeContext struct {
	Component string
	// Property is canonical (camelCase) property name, empty when the
	// interpolation is a standalone statement.
	Property    string
	CSSProperty string
	Selector    string
	AtRuleStack []string
	// Conditions are keys of the enclosing blocks, outermost first: pseudo
	// classes, pseudo elements and at-rules.
	Conditions []string

	IsFullValue    bool
	Value          string
	Index          int
	InSelector     bool
	InPropertyName bool
	InAtRule       bool

	// PreviousValue is a value the same property got earlier in the block,
	// used as fallback of dynamic style functions.
	PreviousValue styleobj.Value
}

// Spread reports whether interpolation is standalone statement.
func (n *NodeContext) Spread() bool {
	return n.Property == "" && !n.InSelector && !n.InPropertyName && !n.InAtRule
}

// Env is what handlers may touch besides their inputs.
type Env struct {
	Adapter Adapter
	Imports *ImportSink
	// ConvertBlock turns static css`` block into style object.
	ConvertBlock func(e *host.Expr) (*styleobj.Object, error)
}

// FallbackFunc replaces the default behavior when no handler matches.
type FallbackFunc func(c *classify.Classified, ctx *NodeContext) *Decision

// Engine runs handler chain.
type Engine struct {
	log      *zap.Logger
	env      *Env
	handlers []Handler
	fallback common.FallbackBehavior
	override FallbackFunc
}

func NewEngine(adapter Adapter, fallback common.FallbackBehavior, imports *ImportSink, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if adapter == nil {
		adapter = NopAdapter{}
	}
	if imports == nil {
		imports = &ImportSink{}
	}
	e := &Engine{
		log:      log.Named("decision-engine"),
		env:      &Env{Adapter: adapter, Imports: imports},
		fallback: fallback,
	}
	if hp, ok := adapter.(HandlerProvider); ok {
		e.handlers = append(e.handlers, hp.Handlers()...)
	}
	e.handlers = append(e.handlers, builtins()...)
	return e
}

// SetBlockConverter installs function used for nested style blocks in
// conditional branches.
func (e *Engine) SetBlockConverter(fn func(*host.Expr) (*styleobj.Object, error)) {
	e.env.ConvertBlock = fn
}

// SetFallback overrides behavior for unmatched classifications.
func (e *Engine) SetFallback(fn FallbackFunc) {
	e.override = fn
}

func (e *Engine) Imports() *ImportSink {
	return e.env.Imports
}

func (e *Engine) Adapter() Adapter {
	return e.env.Adapter
}

// Decide produces exactly one decision for classified interpolation.
func (e *Engine) Decide(c *classify.Classified, ctx *NodeContext) *Decision {
	if ctx == nil {
		ctx = &NodeContext{}
	}
	for _, h := range e.handlers {
		if h.Match != nil && !h.Match(c, ctx) {
			continue
		}
		d := h.Handle(c, ctx, e.env)
		if d == nil {
			continue
		}
		if d.Handler == "" {
			d.Handler = h.Name
		}
		if d.Kind == KindBail {
			e.escape(d, c)
		}
		e.log.Debug("Interpolation decided",
			zap.Int("index", c.Index),
			zap.String("tag", string(c.Tag)),
			zap.String("handler", d.Handler),
			zap.String("decision", string(d.Kind)))
		return d
	}

	var d *Decision
	if e.override != nil {
		d = e.override(c, ctx)
	}
	if d == nil {
		reason := diag.BailNoHandler
		if c.Tag == classify.TagRaw {
			reason = diag.BailRawExpression
		}
		d = Bail(reason, c.Source)
	}
	d.Handler = "fallback"
	if d.Kind == KindBail {
		e.escape(d, c)
	}
	e.log.Debug("Interpolation fell through handler chain",
		zap.Int("index", c.Index),
		zap.String("tag", string(c.Tag)),
		zap.String("decision", string(d.Kind)))
	return d
}

// escape fills prop dependencies of a bail and decides whether expression
// survives as a runtime inline style.
func (e *Engine) escape(d *Decision, c *classify.Classified) {
	if len(d.PropDeps) == 0 {
		d.PropDeps = PropDeps(c.Expr)
	}
	if !c.Expr.Is(host.ExprArrow) {
		return
	}
	switch e.fallback {
	case common.FallbackBehaviorInlineStyle:
		d.InlineStyle = true
	default:
		d.InlineStyle = len(d.PropDeps) > 0
	}
}

var propRefRe = regexp.MustCompile(`[A-Za-z_$][\w$]*`)

// PropDeps is a best effort scan for props an arrow expression reads. It
// collects destructured keys and every "param.name" found in body text.
func PropDeps(e *host.Expr) []string {
	param, ok := e.SingleParam()
	if !ok || e.Body == nil {
		return nil
	}
	var deps []string
	add := func(name string) {
		if name != "" && name != "theme" && !slices.Contains(deps, name) {
			deps = append(deps, name)
		}
	}
	if param.Name == "" {
		for _, f := range param.Fields {
			if usesIdent(e.Body.Source, f.Local) {
				add(f.Key)
			}
		}
		return deps
	}
	re := regexp.MustCompile(`(?:^|[^\w$.])` + regexp.QuoteMeta(param.Name) + `\s*\??\.\s*([A-Za-z_$][\w$]*)`)
	for _, m := range re.FindAllStringSubmatch(e.Body.Source, -1) {
		add(m[1])
	}
	return deps
}

func usesIdent(src, name string) bool {
	return slices.Contains(propRefRe.FindAllString(src, -1), name)
}
