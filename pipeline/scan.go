package pipeline

import (
	"strings"

	"stylemig/css"
	"stylemig/diag"
	"stylemig/host"
)

// scan reports structural constructs nothing downstream can convert. Each
// kind is reported once per file.
func (t *Transformer) scan(f *host.File, sink *diag.Sink) {
	for _, d := range f.Decls {
		loc := d.Loc
		switch {
		case d.Kind == host.DeclGlobal:
			sink.ReportOnce(diag.KindGlobalStyle, d.Name, &loc)
		case d.ObjectSyntax:
			sink.ReportOnce(diag.KindObjectStyleSyntax, d.Name, &loc)
		}
		if d.Attrs != nil && !d.Attrs.Is(host.ExprObject) {
			sink.ReportOnce(diag.KindFunctionAttrs, d.Name, &loc)
		}
		if d.Kind == host.DeclStyled && d.Template != nil {
			t.scanTemplate(d, sink)
		}
	}

	for _, m := range f.Members {
		if m.Property == "withComponent" && f.Decl(m.Object) != nil {
			loc := m.Loc
			sink.ReportOnce(diag.KindWithComponent, m.Object, &loc)
		}
	}
	for _, el := range f.Elements {
		if _, ok := el.Attr("css"); ok {
			sink.ReportOnce(diag.KindCSSProp, el.Name, &el.Loc)
		}
		if el.Name == "ThemeProvider" {
			sink.ReportOnce(diag.KindThemeProvider, el.Name, &el.Loc)
		}
	}
	for _, name := range []string{"useTheme", "withTheme"} {
		if offs := f.Refs[name]; len(offs) > 0 {
			loc := f.LocationOf(offs[0])
			sink.ReportOnce(diag.KindThemeProvider, name, &loc)
		}
	}
}

// scanTemplate looks for dynamic values nested in pseudo elements and for
// component selectors glued to the parent selector.
func (t *Transformer) scanTemplate(d *host.Declaration, sink *diag.Sink) {
	tpl, err := t.parser.Parse(d.Template.Quasis, d.Template.Exprs)
	if err != nil {
		// reported by conversion
		return
	}
	loc := d.Loc
	var visit func(n *css.RuleNode, pseudoElement bool)
	visit = func(n *css.RuleNode, pseudoElement bool) {
		pseudoElement = pseudoElement || strings.Contains(n.Selector, "::")
		if pseudoElement {
			for _, decl := range n.Declarations {
				if css.HasPlaceholder(decl.Value) {
					sink.ReportOnce(diag.KindPseudoElementDynamic, d.Name+" "+n.Selector, &loc)
					break
				}
			}
		}
		if !n.IsAtRule() && componentSelectorHack(n.Selector) {
			sink.ReportOnce(diag.KindComponentSelectorHack, d.Name+" "+n.Selector, &loc)
		}
		for _, c := range n.NestedRules {
			visit(c, pseudoElement)
		}
	}
	visit(tpl.Root, false)
}

// componentSelectorHack matches &${Other}, ${Other}& and ${Other} && forms.
func componentSelectorHack(sel string) bool {
	idx := css.Placeholders(sel)
	if len(idx) == 0 {
		return false
	}
	if strings.Contains(sel, "&&") {
		return true
	}
	for _, i := range idx {
		ph := css.Placeholder(i)
		if strings.Contains(sel, "&"+ph) || strings.Contains(sel, ph+"&") {
			return true
		}
	}
	return false
}
