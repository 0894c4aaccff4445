package wrapper

import (
	"slices"
	"strings"

	"go.uber.org/zap"

	"stylemig/component"
	"stylemig/diag"
	"stylemig/host"
)

// Rewriter produces JSX edits for every usage of converted components and
// for elements targeted by their child and descendant rules.
type Rewriter struct {
	log   *zap.Logger
	sink  *diag.Sink
	file  *host.File
	set   *component.Set
	plans map[string]*Plan
	opts  Options
}

func NewRewriter(file *host.File, set *component.Set, plans map[string]*Plan, opts Options, sink *diag.Sink, log *zap.Logger) *Rewriter {
	if log == nil {
		log = zap.NewNop()
	}
	if sink == nil {
		sink = diag.NewSink()
	}
	return &Rewriter{log: log.Named("call-site-rewriter"), sink: sink, file: file, set: set, plans: plans, opts: opts}
}

// Edits returns insertions and tag substitutions for the whole file.
func (r *Rewriter) Edits() []host.Edit {
	extras := make(map[int][]Ref)
	flags := make(map[int][]string)
	for idx, el := range r.file.Elements {
		if _, ok := r.plans[el.Name]; !ok {
			continue
		}
		r.rules(idx, el, extras)
		flags[idx] = r.siblingFlags(idx, el)
	}

	var (
		edits   []host.Edit
		applied = make(map[string]bool)
	)
	for idx, el := range r.file.Elements {
		plan, converted := r.plans[el.Name]
		var insert []string
		for _, f := range flags[idx] {
			if _, has := el.Attr(f); !has {
				insert = append(insert, f)
			}
		}

		refs := extras[idx]
		if converted && !plan.Wrapper {
			edits = append(edits, host.Edit{Start: el.NameStart, End: el.NameEnd, Text: plan.Element})
			if el.CloseNameStart >= 0 {
				edits = append(edits, host.Edit{Start: el.CloseNameStart, End: el.CloseNameEnd, Text: plan.Element})
			}
			for _, a := range plan.Attrs {
				if _, has := el.Attr(a.Key); has {
					continue
				}
				insert = append(insert, attrValue(a))
				if !applied[el.Name] {
					applied[el.Name] = true
					r.sink.Report(diag.KindAttrsStaticApplied, el.Name, a.Key, &el.Loc)
				}
			}
			refs = append(slices.Clone(plan.Refs), refs...)
		}
		if len(refs) > 0 {
			call, removed := r.merge(el, PropsCall(r.opts.namespace(), refs))
			edits = append(edits, removed...)
			insert = append(insert, "{..."+call+"}")
		}
		if len(insert) > 0 {
			edits = append(edits, host.Edit{Start: el.InsertAt, End: el.InsertAt, Text: " " + strings.Join(insert, " ")})
		}
	}
	r.log.Debug("Call sites rewritten", zap.Int("edits", len(edits)))
	return edits
}

// merge folds className and style written on the element into the props
// call, otherwise the spread placed after them would replace both.
func (r *Rewriter) merge(el *host.JSXElement, call string) (string, []host.Edit) {
	var (
		fields []string
		edits  []host.Edit
	)
	for _, name := range []string{"className", "style"} {
		a, ok := el.Attr(name)
		if !ok || a.Value == nil {
			continue
		}
		start := a.Start
		if start > 0 && r.file.Source[start-1] == ' ' {
			start--
		}
		edits = append(edits, host.Edit{Start: start, End: a.End})
		if name == "className" {
			fields = append(fields, "className: [sx.className, "+a.Value.Source+`].filter(Boolean).join(" ")`)
		} else {
			fields = append(fields, "style: { ...sx.style, ..."+a.Value.Source+" }")
		}
	}
	if len(fields) == 0 {
		return call, nil
	}
	r.sink.ReportOnce(diag.KindCallSiteStylesMerged, el.Name, &el.Loc)
	return "((sx) => ({ ...sx, " + strings.Join(fields, ", ") + " }))(" + call + ")", edits
}

// elementChildren returns element children indexes skipping other content.
func (r *Rewriter) elementChildren(el *host.JSXElement) []int {
	var out []int
	for _, c := range el.Children {
		if c >= 0 {
			out = append(out, c)
		}
	}
	return out
}

// rules applies child and descendant rules of component rendered by el,
// rules of base components apply too.
func (r *Rewriter) rules(idx int, el *host.JSXElement, extras map[int][]Ref) {
	chain := r.set.BaseChain(el.Name)
	slices.Reverse(chain)
	if info, ok := r.set.Get(el.Name); ok {
		chain = append(chain, info)
	}
	ref := func(key string) Ref {
		return Ref{Expr: r.opts.identifier() + "." + key}
	}
	for _, info := range chain {
		for _, rule := range info.Rules {
			if rule.Kind == component.RuleDescendantStyled {
				r.descendants(idx, rule.Target, func(d int) {
					extras[d] = append(extras[d], ref(rule.StyleKey))
				})
				continue
			}
			kids := r.elementChildren(el)
			if rule.TagFilter != "" {
				kids = slices.DeleteFunc(kids, func(k int) bool { return r.file.Elements[k].Name != rule.TagFilter })
			}
			switch rule.Kind {
			case component.RuleDirectChildrenFirst:
				kids = kids[:min(1, len(kids))]
			case component.RuleDirectChildrenExceptFirst:
				if len(kids) > 0 {
					kids = kids[1:]
				}
			case component.RuleDirectChildrenExceptLast:
				if len(kids) > 0 {
					kids = kids[:len(kids)-1]
				}
			}
			for _, k := range kids {
				extras[k] = append(extras[k], ref(rule.StyleKey))
			}
		}
	}
}

func (r *Rewriter) descendants(idx int, target string, fn func(int)) {
	for _, c := range r.file.Elements[idx].Children {
		if c < 0 {
			continue
		}
		if r.file.Elements[c].Name == target {
			fn(c)
		}
		r.descendants(c, target, fn)
	}
}

// siblingFlags computes sibling booleans for JSX siblings visible at the
// call site.
func (r *Rewriter) siblingFlags(idx int, el *host.JSXElement) []string {
	info, ok := r.set.Get(el.Name)
	if !ok || len(info.SiblingSelectors) == 0 || el.Parent < 0 {
		return nil
	}
	siblings := r.file.Elements[el.Parent].Children
	pos := slices.Index(siblings, idx)
	if pos <= 0 {
		return nil
	}
	var out []string
	for _, sel := range info.SiblingSelectors {
		if r.precededBy(siblings[:pos], el.Name, sel) {
			out = append(out, sel.Prop)
		}
	}
	return out
}

func (r *Rewriter) precededBy(before []int, name string, sel component.SiblingSelector) bool {
	if sel.Kind == component.SiblingAdjacent {
		prev := before[len(before)-1]
		return prev >= 0 && r.file.Elements[prev].Name == name
	}
	for _, b := range before {
		if b < 0 || r.file.Elements[b].Name != name {
			continue
		}
		if sel.ClassName == "" || hasClass(r.file.Elements[b], sel.ClassName) {
			return true
		}
	}
	return false
}

func hasClass(el *host.JSXElement, class string) bool {
	a, ok := el.Attr("className")
	if !ok || a.Value == nil {
		return false
	}
	v, ok := a.Value.LiteralValue()
	return ok && slices.Contains(strings.Fields(v), class)
}
