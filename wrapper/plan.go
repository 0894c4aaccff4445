// Package wrapper decides how converted components are rendered: either by
// substituting tags at every call site or by synthesizing a small wrapper
// component, and produces the source edits for both.
package wrapper

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"stylemig/common"
	"stylemig/component"
	"stylemig/diag"
	"stylemig/host"
	"stylemig/styleobj"
)

var ErrNoElement = errors.New("unable to resolve rendered element")

// Usage is the cross-file consumption summary of an exported component.
type Usage struct {
	// Styles is set when external consumers pass className or style.
	Styles bool
	// As is set when external consumers pass the polymorphic element prop.
	As bool
}

type Options struct {
	// Namespace is the runtime import binding, "stylex" by default.
	Namespace string
	// Identifier of the style registry, "styles" by default.
	Identifier string
	Lang       common.SourceLang
	Attributes Attributes
	// Usage looks up cross-file summary for exported components.
	Usage func(component string) (Usage, bool)
}

func (o Options) namespace() string {
	if o.Namespace == "" {
		return "stylex"
	}
	return o.Namespace
}

func (o Options) identifier() string {
	if o.Identifier == "" {
		return "styles"
	}
	return o.Identifier
}

// Ref is one argument of the props call, Guard is empty for unconditional
// references.
type Ref struct {
	Expr  string
	Guard string
}

func (r Ref) String() string {
	if r.Guard == "" {
		return r.Expr
	}
	return r.Guard + " && " + r.Expr
}

// Binding is a prop the wrapper destructures.
type Binding struct {
	Prop    string
	Local   string
	Forward bool
}

// Inline is a runtime evaluated style property.
type Inline struct {
	Property string
	Expr     string
}

// Plan describes how one component is rendered.
type Plan struct {
	Component string
	Wrapper   bool
	Reasons   []string

	// Element is host tag or foreign component rendered at the end of the
	// base chain.
	Element string
	Foreign bool
	As      bool

	// Exported without wrapper keeps the declaration as a forwarding
	// component for importers.
	Exported bool

	Refs   []Ref
	Props  []Binding
	Inline []Inline
	Attrs  []host.Property
	// Markers applied to the element itself.
	Markers []string
}

func (p *Plan) require(reason string) {
	p.Wrapper = true
	if !slices.Contains(p.Reasons, reason) {
		p.Reasons = append(p.Reasons, reason)
	}
}

func (p *Plan) binding(prop string) (*Binding, bool) {
	for i := range p.Props {
		if p.Props[i].Prop == prop {
			return &p.Props[i], true
		}
	}
	return nil, false
}

func (p *Plan) bind(prop string, forward bool) string {
	if b, ok := p.binding(prop); ok {
		b.Forward = b.Forward && forward
		return b.Local
	}
	local := prop
	if !styleobj.IsIdentifier(local) {
		local = styleobj.CamelCase(strings.TrimLeft(local, "$"))
	}
	p.Props = append(p.Props, Binding{Prop: prop, Local: local, Forward: forward})
	return local
}

// Planner builds render plans for components of one file.
type Planner struct {
	log  *zap.Logger
	sink *diag.Sink
	set  *component.Set
	file *host.File
	opts Options
}

func NewPlanner(set *component.Set, file *host.File, opts Options, sink *diag.Sink, log *zap.Logger) *Planner {
	if log == nil {
		log = zap.NewNop()
	}
	if sink == nil {
		sink = diag.NewSink()
	}
	if opts.Usage == nil {
		opts.Usage = func(string) (Usage, bool) { return Usage{}, false }
	}
	return &Planner{log: log.Named("wrapper-planner"), sink: sink, set: set, file: file, opts: opts}
}

// Usages returns JSX elements rendering component.
func (p *Planner) Usages(name string) []*host.JSXElement {
	var out []*host.JSXElement
	for _, el := range p.file.Elements {
		if el.Name == name {
			out = append(out, el)
		}
	}
	return out
}

// ValueRefs returns offsets where component is referenced other than by
// its declaration, JSX tags or templates being converted.
func (p *Planner) ValueRefs(name string) []int {
	skip := make(map[int]bool)
	for _, el := range p.file.Elements {
		if el.Name == name {
			skip[el.NameStart] = true
		}
	}
	var out []int
	for _, off := range p.file.Refs[name] {
		if skip[off] || p.insideConverted(off) {
			continue
		}
		if d := p.file.Decl(name); d != nil && d.NameStart == off {
			continue
		}
		out = append(out, off)
	}
	return out
}

func (p *Planner) insideConverted(off int) bool {
	for _, info := range p.set.All() {
		if d := info.Decl; d != nil && off >= d.InitStart && off < d.InitEnd {
			return true
		}
	}
	return false
}

// Plan decides wrapper need and collects everything needed to render info.
func (p *Planner) Plan(info *component.StyleInfo) (*Plan, error) {
	tag, foreign := p.set.HostTag(info.Name)
	plan := &Plan{Component: info.Name, Element: tag}
	if tag == "" {
		if foreign == "" {
			return nil, fmt.Errorf("%w for %s", ErrNoElement, info.Name)
		}
		plan.Element, plan.Foreign = foreign, true
	}

	chain := p.set.BaseChain(info.Name)
	slices.Reverse(chain)
	chain = append(chain, info)

	for _, ci := range chain {
		for _, r := range ci.WrapperReasons {
			plan.require(r)
		}
		if len(ci.FilteredProps) > 0 {
			plan.require("should-forward-prop")
		}
		if len(ci.DynamicFns) > 0 {
			plan.require("dynamic style function")
		}
		if len(ci.Variants) > 0 {
			plan.require("variant")
		}
		if len(ci.Escapes) > 0 {
			plan.require("inline style escape")
		}
		plan.Attrs = mergeAttrs(plan.Attrs, ci.Attrs)
	}
	p.callSites(info, plan)

	if plan.Wrapper {
		for _, ci := range chain {
			p.bindings(ci, plan)
		}
	}
	for _, ci := range chain {
		p.refs(ci, plan)
	}
	if plan.Wrapper {
		for _, r := range plan.Reasons {
			p.sink.Report(diag.KindWrapperRequired, info.Name, r, info.Location())
		}
	}
	p.log.Debug("Component planned",
		zap.String("component", info.Name),
		zap.Bool("wrapper", plan.Wrapper),
		zap.Strings("reasons", plan.Reasons))
	return plan, nil
}

// callSites inspects usage of the component that forces wrapper synthesis.
func (p *Planner) callSites(info *component.StyleInfo, plan *Plan) {
	if info.SupportsAs {
		plan.As = true
		plan.require("polymorphic as")
	}
	if info.Exported {
		plan.Exported = true
		p.sink.Report(diag.KindExportedComponent, info.Name, "", info.Location())
		u, ok := p.opts.Usage(info.Name)
		if !ok {
			// consumers are unknown, they may pass anything
			plan.require("exported without usage summary")
		}
		if u.As {
			plan.As = true
			info.SupportsAs = true
			plan.require("polymorphic as")
		}
		if u.Styles {
			plan.require("external className/style")
		}
	}
	if info.Decl != nil && info.Decl.Shared {
		plan.require("shared declaration")
	}
	if len(p.ValueRefs(info.Name)) > 0 {
		plan.require("value reference")
	}
	for _, el := range p.Usages(info.Name) {
		for _, a := range el.Attrs {
			switch {
			case a.Spread:
				plan.require("call-site spread")
				p.sink.ReportOnce(diag.KindCallSiteSpread, info.Name, &el.Loc)
			case a.Name == "className" || a.Name == "style":
				plan.require("call-site " + a.Name)
			case a.Name == "as" || a.Name == "forwardedAs":
				plan.As = true
				plan.require("polymorphic as")
			}
		}
	}
}

func mergeAttrs(dst, src []host.Property) []host.Property {
	for _, a := range src {
		i := slices.IndexFunc(dst, func(d host.Property) bool { return d.Key == a.Key })
		if i >= 0 {
			dst[i] = a
			continue
		}
		dst = append(dst, a)
	}
	return dst
}

func (p *Planner) ref(entry string) string {
	return p.opts.identifier() + "." + entry
}

// refs appends style references of one chain member in precedence order:
// mixins, base, markers, then guarded entries.
func (p *Planner) refs(info *component.StyleInfo, plan *Plan) {
	for _, sr := range info.StyleRefs {
		if sr.Entry != "" {
			plan.Refs = append(plan.Refs, Ref{Expr: p.ref(sr.Entry)})
		} else if sr.Code != "" {
			plan.Refs = append(plan.Refs, Ref{Expr: sr.Code})
		}
	}
	if info.Style != nil && info.Style.Len() > 0 {
		plan.Refs = append(plan.Refs, Ref{Expr: p.ref(info.StyleKey)})
	}
	if info.Marker != "" {
		plan.Markers = append(plan.Markers, info.Marker)
		plan.Refs = append(plan.Refs, Ref{Expr: info.Marker})
	}
	if info.NeedsDefaultMarker {
		plan.Refs = append(plan.Refs, Ref{Expr: p.opts.namespace() + ".defaultMarker()"})
	}
	if !plan.Wrapper {
		return
	}

	for _, a := range info.AttrSelectors {
		plan.Refs = append(plan.Refs, Ref{Expr: p.ref(a.StyleKey), Guard: attrGuard(a, plan.access(a.Attr))})
	}
	for _, s := range info.SiblingSelectors {
		plan.Refs = append(plan.Refs, Ref{Expr: p.ref(s.StyleKey), Guard: plan.local(s.Prop)})
	}
	for _, v := range info.Variants {
		plan.Refs = append(plan.Refs, Ref{Expr: p.ref(v.Name), Guard: variantGuard(plan.local(v.PropName), v)})
	}
	for _, d := range info.DynamicFns {
		local := plan.local(d.PropName)
		plan.Refs = append(plan.Refs, Ref{Expr: p.ref(d.Name) + "(" + local + ")", Guard: local + " != null"})
	}
	for _, e := range info.Escapes {
		plan.Inline = append(plan.Inline, Inline{Property: e.Property, Expr: "(" + e.Source + ")(props)"})
	}
}

// forward reports whether consumed prop still reaches the rendered element.
// Host elements get native attributes only, foreign components receive
// everything except transient $ props.
func (p *Planner) forward(plan *Plan, prop string) bool {
	if plan.Foreign {
		return !strings.HasPrefix(prop, "$")
	}
	return p.opts.Attributes.Native(plan.Element, prop)
}

// bindings destructures every prop consumed by guards, dynamic entries and
// inline escapes. Filtered props are never forwarded.
func (p *Planner) bindings(info *component.StyleInfo, plan *Plan) {
	for _, fp := range info.FilteredProps {
		plan.bind(fp, false)
		p.sink.Report(diag.KindShouldForwardProp, info.Name, fp, info.Location())
	}
	for _, s := range info.SiblingSelectors {
		plan.bind(s.Prop, false)
	}
	for _, v := range info.Variants {
		plan.bind(v.PropName, p.forward(plan, v.PropName))
	}
	for _, d := range info.DynamicFns {
		plan.bind(d.PropName, p.forward(plan, d.PropName))
	}
	for _, e := range info.Escapes {
		for _, dep := range e.PropDeps {
			plan.bind(dep, p.forward(plan, dep))
		}
	}
}

func (p *Plan) local(prop string) string {
	if b, ok := p.binding(prop); ok {
		return b.Local
	}
	return p.bind(prop, false)
}

// access reads attribute value inside the wrapper.
func (p *Plan) access(attr string) string {
	if b, ok := p.binding(attr); ok {
		return b.Local
	}
	if styleobj.IsIdentifier(attr) {
		return "rest." + attr
	}
	return "rest[" + styleobj.Quote(attr) + "]"
}

func attrGuard(a component.AttrSelector, access string) string {
	v := styleobj.Quote(a.Value)
	switch a.Operator {
	case component.AttrEquals:
		return access + " === " + v
	case component.AttrPrefix:
		return "typeof " + access + ` === "string" && ` + access + ".startsWith(" + v + ")"
	case component.AttrSuffix:
		return "typeof " + access + ` === "string" && ` + access + ".endsWith(" + v + ")"
	case component.AttrContains:
		return "typeof " + access + ` === "string" && ` + access + ".includes(" + v + ")"
	}
	return access + " != null && " + access + " !== false"
}

func variantGuard(local string, v component.Variant) string {
	if v.Comparison == "" {
		if v.Truthy {
			return local
		}
		return "!" + local
	}
	op := " === "
	if !v.Truthy {
		op = " !== "
	}
	return local + op + literal(v.Comparison)
}

// literal renders comparison value the way it was spelled in source.
func literal(v string) string {
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return v
	}
	if v == "true" || v == "false" {
		return v
	}
	return styleobj.Quote(v)
}
