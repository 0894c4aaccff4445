package wrapper

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"go.uber.org/zap"

	"stylemig/common"
	"stylemig/component"
	"stylemig/diag"
	"stylemig/host"
	"stylemig/styleobj"
)

func parse(t *testing.T, src string) *host.File {
	t.Helper()
	f, err := host.ParseFile(context.Background(), []byte(src), common.SourceLangJavaScript)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	return f
}

func info(f *host.File, name, tag string, kv ...string) *component.StyleInfo {
	style := styleobj.NewObject()
	for i := 0; i+1 < len(kv); i += 2 {
		style.Set(kv[i], styleobj.String(kv[i+1]))
	}
	return &component.StyleInfo{Name: name, Tag: tag, StyleKey: styleobj.LowerFirst(name), Style: style, Decl: f.Decl(name)}
}

func rewrite(t *testing.T, f *host.File, set *component.Set, opts Options) (string, map[string]*Plan, *diag.Sink) {
	t.Helper()
	sink := diag.NewSink()
	planner := NewPlanner(set, f, opts, sink, zap.NewNop())
	plans := make(map[string]*Plan)
	for _, i := range set.All() {
		p, err := planner.Plan(i)
		if err != nil {
			t.Fatalf("Plan(%s) error = %v", i.Name, err)
		}
		plans[i.Name] = p
	}
	out, err := host.Apply(f.Source, NewRewriter(f, set, plans, opts, sink, zap.NewNop()).Edits())
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	return string(out), plans, sink
}

func TestTagSubstitution(t *testing.T) {
	src := "import styled from \"styled-components\";\n\n" +
		"const Box = styled.div`color: red;`;\n\n" +
		"export const App = () => <Box id=\"a\">hi</Box>;\n"
	f := parse(t, src)
	set := component.NewSet()
	box := info(f, "Box", "div", "color", "red")
	box.Attrs = []host.Property{{Key: "role", Value: &host.Expr{Kind: host.ExprString, Value: "note", Source: `"note"`}}}
	set.Add(box)

	out, plans, sink := rewrite(t, f, set, Options{})

	if plans["Box"].Wrapper {
		t.Errorf("expected no wrapper, got reasons %v", plans["Box"].Reasons)
	}
	expected := `<div id="a" role="note" {...stylex.props(styles.box)}>hi</div>`
	if !strings.Contains(out, expected) {
		t.Errorf("expected %s in\n%s", expected, out)
	}
	if !sink.Has(diag.KindAttrsStaticApplied) {
		t.Errorf("expected attrs diagnostic")
	}
}

func TestWrapperPlan(t *testing.T) {
	src := "import styled from \"styled-components\";\n\n" +
		"const Button = styled.button``;\n\n" +
		"export const App = () => <Button $primary disabled>Go</Button>;\n"
	f := parse(t, src)
	set := component.NewSet()
	button := info(f, "Button", "button", "color", "black")
	button.Variants = []component.Variant{
		{Name: "buttonPrimaryTruthy", PropName: "$primary", Truthy: true, Style: styleobj.NewObject()},
		{Name: "buttonSizeSmallFalsy", PropName: "size", Comparison: "small", Style: styleobj.NewObject()},
	}
	button.AttrSelectors = []component.AttrSelector{{StyleKey: "buttonDisabled", Attr: "disabled"}}
	button.RequireWrapper("attribute selector")
	button.DynamicFns = []component.DynamicStyle{{Name: "buttonWidth", PropName: "$width", Param: "width", Expression: "width", Property: "width"}}
	set.Add(button)

	sink := diag.NewSink()
	plan, err := NewPlanner(set, f, Options{}, sink, nil).Plan(button)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if !plan.Wrapper {
		t.Fatalf("expected wrapper")
	}
	var refs []string
	for _, r := range plan.Refs {
		refs = append(refs, r.String())
	}
	expected := []string{
		"styles.button",
		"rest.disabled != null && rest.disabled !== false && styles.buttonDisabled",
		"$primary && styles.buttonPrimaryTruthy",
		`size !== "small" && styles.buttonSizeSmallFalsy`,
		"$width != null && styles.buttonWidth($width)",
	}
	if !slices.Equal(refs, expected) {
		t.Errorf("expected refs\n%v\ngot\n%v", expected, refs)
	}
	if len(plan.Props) != 3 || plan.Props[0].Forward || plan.Props[1].Prop != "size" {
		t.Errorf("unexpected bindings %+v", plan.Props)
	}
	if !sink.Has(diag.KindWrapperRequired) {
		t.Errorf("expected wrapper diagnostic")
	}

	code, err := Render(plan, Options{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	for _, want := range []string{
		"const { className, style, $primary, size, $width, ...rest } = props;",
		"<button\n",
		"{...rest}",
		`className={[sx.className, className].filter(Boolean).join(" ")}`,
		"style={{ ...sx.style, ...style }}",
	} {
		if !strings.Contains(code, want) {
			t.Errorf("expected %q in\n%s", want, code)
		}
	}
	if strings.Index(code, "{...rest}") > strings.Index(code, "{...sx}") {
		t.Errorf("expected caller props before synthesized ones")
	}
}

func TestRender(t *testing.T) {
	plan := &Plan{
		Component: "Title",
		Wrapper:   true,
		Element:   "h1",
		As:        true,
		Refs:      []Ref{{Expr: "styles.title"}},
		Props:     []Binding{{Prop: "id", Local: "id", Forward: true}},
		Inline:    []Inline{{Property: "color", Expr: "((p) => p.c)(props)"}},
		Attrs:     []host.Property{{Key: "tabIndex", Value: &host.Expr{Kind: host.ExprNumber, Value: "0", Source: "0"}}},
	}
	code, err := Render(plan, Options{Lang: common.SourceLangTSX, Namespace: "stx"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	for _, want := range []string{
		"(props: Record<string, any>) => {",
		`const { as: Component = "h1", className, style, id, ...rest } = props;`,
		"const sx = stx.props(styles.title);",
		"<Component\n",
		"tabIndex={0}",
		"id={id}",
		"style={{ ...sx.style, color: ((p) => p.c)(props), ...style }}",
	} {
		if !strings.Contains(code, want) {
			t.Errorf("expected %q in\n%s", want, code)
		}
	}
}

func TestRulesAndSiblings(t *testing.T) {
	src := "import styled from \"styled-components\";\n\n" +
		"const List = styled.ul``;\n" +
		"const Item = styled.li``;\n\n" +
		"export const App = () => <List><Item>a</Item><Item>b</Item></List>;\n"
	f := parse(t, src)
	set := component.NewSet()
	list := info(f, "List", "ul", "display", "flex")
	list.Rules = []component.JSXRewriteRule{{Kind: component.RuleDirectChildren, StyleKey: "listChildren"}}
	item := info(f, "Item", "li", "color", "black")
	item.SiblingSelectors = []component.SiblingSelector{{StyleKey: "itemIsAdjacentSibling", Kind: component.SiblingAdjacent, Prop: "isAdjacentSibling"}}
	item.RequireWrapper("sibling selector")
	set.Add(list)
	set.Add(item)

	out, plans, _ := rewrite(t, f, set, Options{})

	if plans["List"].Wrapper || !plans["Item"].Wrapper {
		t.Errorf("unexpected wrapper decisions %v %v", plans["List"].Reasons, plans["Item"].Reasons)
	}
	expected := "<ul {...stylex.props(styles.list)}>" +
		"<Item {...stylex.props(styles.listChildren)}>a</Item>" +
		"<Item isAdjacentSibling {...stylex.props(styles.listChildren)}>b</Item>" +
		"</ul>"
	if !strings.Contains(out, expected) {
		t.Errorf("expected %s in\n%s", expected, out)
	}
}

func TestDescendantRule(t *testing.T) {
	src := "import styled from \"styled-components\";\n\n" +
		"const Icon = styled.svg``;\n" +
		"const Button = styled.button``;\n\n" +
		"export const App = () => <Button><span><Icon /></span></Button>;\n"
	f := parse(t, src)
	set := component.NewSet()
	set.Add(info(f, "Icon", "svg", "width", "16px"))
	button := info(f, "Button", "button")
	button.NeedsDefaultMarker = true
	button.Rules = []component.JSXRewriteRule{{Kind: component.RuleDescendantStyled, StyleKey: "iconInButton", Target: "Icon"}}
	set.Add(button)

	out, _, _ := rewrite(t, f, set, Options{})

	for _, want := range []string{
		"<button {...stylex.props(stylex.defaultMarker())}>",
		"<svg {...stylex.props(styles.icon, styles.iconInButton)} />",
		"</button>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in\n%s", want, out)
		}
	}
}

func TestCallSiteTriggers(t *testing.T) {
	src := "import styled from \"styled-components\";\n\n" +
		"export const Card = styled.div``;\n" +
		"const Panel = styled.section``;\n\n" +
		"const registry = [Panel];\n" +
		"export const App = () => <Card className=\"x\" />;\n"
	f := parse(t, src)
	set := component.NewSet()
	card := info(f, "Card", "div", "padding", "8px")
	card.Exported = true
	panel := info(f, "Panel", "section", "margin", "0")
	set.Add(card)
	set.Add(panel)

	sink := diag.NewSink()
	planner := NewPlanner(set, f, Options{Usage: func(name string) (Usage, bool) {
		return Usage{As: name == "Card"}, name == "Card"
	}}, sink, nil)

	cp, err := planner.Plan(card)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if !cp.Wrapper || !cp.As || !slices.Contains(cp.Reasons, "call-site className") {
		t.Errorf("unexpected card plan %+v", cp)
	}
	if !sink.Has(diag.KindExportedComponent) {
		t.Errorf("expected exported diagnostic")
	}
	pp, err := planner.Plan(panel)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if !pp.Wrapper || !slices.Contains(pp.Reasons, "value reference") {
		t.Errorf("expected value reference to require wrapper, got %+v", pp.Reasons)
	}
}

func TestUnresolvedElement(t *testing.T) {
	set := component.NewSet()
	broken := &component.StyleInfo{Name: "Broken", StyleKey: "broken"}
	set.Add(broken)
	_, err := NewPlanner(set, &host.File{Refs: map[string][]int{}}, Options{}, nil, nil).Plan(broken)
	if !errors.Is(err, ErrNoElement) {
		t.Errorf("expected ErrNoElement, got %v", err)
	}
}

func TestRuleTargetsKeepOwnStyles(t *testing.T) {
	src := "import styled from \"styled-components\";\n\n" +
		"const List = styled.ul``;\n\n" +
		"export const App = () => <List><span className=\"keep\">a</span><b style={{ color: \"red\" }}>b</b><i>c</i></List>;\n"
	f := parse(t, src)
	set := component.NewSet()
	list := info(f, "List", "ul", "display", "flex")
	list.Rules = []component.JSXRewriteRule{{Kind: component.RuleDirectChildren, StyleKey: "listChildren"}}
	set.Add(list)

	out, _, sink := rewrite(t, f, set, Options{})

	for _, want := range []string{
		`<span {...((sx) => ({ ...sx, className: [sx.className, "keep"].filter(Boolean).join(" ") }))(stylex.props(styles.listChildren))}>a</span>`,
		`<b {...((sx) => ({ ...sx, style: { ...sx.style, ...{ color: "red" } } }))(stylex.props(styles.listChildren))}>b</b>`,
		`<i {...stylex.props(styles.listChildren)}>c</i>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in\n%s", want, out)
		}
	}
	if !sink.Has(diag.KindCallSiteStylesMerged) {
		t.Errorf("expected merge diagnostic")
	}
	if err := host.Validate(out, common.SourceLangJavaScript); err != nil {
		t.Errorf("expected valid output, got %v", err)
	}
}

func TestExportedUsage(t *testing.T) {
	src := "import styled from \"styled-components\";\n\n" +
		"export const Box = styled.div``;\n\n" +
		"export const App = () => <Box id=\"a\">hi</Box>;\n"

	for _, tc := range []struct {
		name    string
		usage   Usage
		known   bool
		wrapper bool
		reason  string
	}{
		{name: "plain consumers", known: true},
		{name: "no summary", wrapper: true, reason: "exported without usage summary"},
		{name: "external styles", usage: Usage{Styles: true}, known: true, wrapper: true, reason: "external className/style"},
		{name: "external as", usage: Usage{As: true}, known: true, wrapper: true, reason: "polymorphic as"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := parse(t, src)
			set := component.NewSet()
			box := info(f, "Box", "div", "color", "red")
			box.Exported = true
			set.Add(box)

			opts := Options{Usage: func(string) (Usage, bool) { return tc.usage, tc.known }}
			out, plans, sink := rewrite(t, f, set, opts)
			plan := plans["Box"]
			if plan.Wrapper != tc.wrapper {
				t.Fatalf("expected wrapper %v, got %v with reasons %v", tc.wrapper, plan.Wrapper, plan.Reasons)
			}
			if tc.reason != "" && !slices.Contains(plan.Reasons, tc.reason) {
				t.Errorf("expected reason %q, got %v", tc.reason, plan.Reasons)
			}
			if !sink.Has(diag.KindExportedComponent) {
				t.Errorf("expected exported diagnostic")
			}

			code, err := Render(plan, opts)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if tc.wrapper {
				if !strings.Contains(code, "className, style") {
					t.Errorf("expected full wrapper, got\n%s", code)
				}
				return
			}
			expected := `<div id="a" {...stylex.props(styles.box)}>hi</div>`
			if !strings.Contains(out, expected) {
				t.Errorf("expected %s in\n%s", expected, out)
			}
			expected = "(props) => <div {...props} {...stylex.props(styles.box)} />"
			if code != expected {
				t.Errorf("expected %s, got %s", expected, code)
			}
		})
	}
}

func TestConsumedPropsForwarding(t *testing.T) {
	src := "import styled from \"styled-components\";\n" +
		"import { Link } from \"router\";\n\n" +
		"const NavLink = styled(Link)``;\n" +
		"const Tab = styled.button``;\n\n" +
		"export const App = () => <><NavLink active $tone=\"x\" /><Tab active /></>;\n"
	f := parse(t, src)
	set := component.NewSet()
	nav := info(f, "NavLink", "", "color", "black")
	nav.Base = "Link"
	nav.Variants = []component.Variant{{Name: "navLinkActiveTruthy", PropName: "active", Truthy: true, Style: styleobj.NewObject()}}
	nav.DynamicFns = []component.DynamicStyle{{Name: "navLinkColor", PropName: "$tone", Param: "tone", Expression: "tone", Property: "color"}}
	tab := info(f, "Tab", "button", "color", "black")
	tab.Variants = []component.Variant{{Name: "tabActiveTruthy", PropName: "active", Truthy: true, Style: styleobj.NewObject()}}
	set.Add(nav)
	set.Add(tab)

	planner := NewPlanner(set, f, Options{}, nil, nil)
	for _, tc := range []struct {
		name      string
		info      *component.StyleInfo
		forwarded []string
		consumed  []string
	}{
		{name: "foreign", info: nav, forwarded: []string{"active"}, consumed: []string{"$tone"}},
		{name: "host", info: tab, consumed: []string{"active"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := planner.Plan(tc.info)
			if err != nil {
				t.Fatalf("Plan() error = %v", err)
			}
			code, err := Render(plan, Options{})
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			for _, prop := range tc.forwarded {
				if !strings.Contains(code, prop+"={"+prop+"}") {
					t.Errorf("expected %s forwarded in\n%s", prop, code)
				}
			}
			for _, prop := range tc.consumed {
				if strings.Contains(code, prop+"={") {
					t.Errorf("expected %s consumed in\n%s", prop, code)
				}
			}
		})
	}
}
