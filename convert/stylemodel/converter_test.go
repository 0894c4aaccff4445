package stylemodel

import (
	"testing"

	"go.uber.org/zap"

	"stylemig/classify"
	"stylemig/common"
	"stylemig/css"
	"stylemig/decide"
	"stylemig/diag"
	"stylemig/host"
	"stylemig/styleobj"
)

type tokens struct {
	values map[string]*decide.ValueResult
}

func (a tokens) ResolveValue(req decide.ValueRequest) *decide.ValueResult {
	key := req.Name
	if req.Kind == decide.ValueTheme {
		key = "theme"
		for _, p := range req.Path {
			key += "." + p
		}
	}
	return a.values[key]
}

func (tokens) ResolveCall(decide.CallRequest) *decide.CallResult { return nil }

func setup(t *testing.T, adapter decide.Adapter, cctx *classify.Context) (*Converter, *diag.Sink) {
	t.Helper()
	sink := diag.NewSink()
	engine := decide.NewEngine(adapter, common.FallbackBehaviorBail, nil, zap.NewNop())
	return NewConverter(engine, cctx, sink, zap.NewNop()), sink
}

func parse(t *testing.T, c *Converter, body string) *css.Template {
	t.Helper()
	e, err := host.ParseExpression("css`" + body + "`")
	if err != nil {
		t.Fatalf("unable to parse template: %v", err)
	}
	tpl, err := c.Parser().Parse(e.Quasis, e.Exprs)
	if err != nil {
		t.Fatalf("unable to parse css: %v", err)
	}
	return tpl
}

func get(t *testing.T, o *styleobj.Object, key string) styleobj.Value {
	t.Helper()
	v, ok := o.Get(key)
	if !ok {
		t.Fatalf("expected key %q in %v", key, o.Keys())
	}
	return v
}

func TestStaticDeclarations(t *testing.T) {
	c, sink := setup(t, nil, nil)
	res := c.Convert("Box", parse(t, c, `
		display: flex;
		margin: 0 auto;
		padding: 8px;
		line-height: 1.5;
		width: 100px !important;
		border: 1px solid red;
		-webkit-line-clamp: 2;
	`), nil)

	want := []string{"display", "marginTop", "marginRight", "marginBottom", "marginLeft", "padding", "lineHeight", "width", "borderWidth", "borderStyle", "borderColor", "WebkitLineClamp"}
	keys := res.Style.Keys()
	if len(keys) != len(want) {
		t.Fatalf("expected keys %v, got %v", want, keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("expected key %d to be %s, got %s", i, want[i], keys[i])
		}
	}
	if v := get(t, res.Style, "padding"); v != styleobj.Number(8) {
		t.Errorf("expected padding 8, got %v", v)
	}
	if v := get(t, res.Style, "lineHeight"); v != styleobj.Number(1.5) {
		t.Errorf("expected line height 1.5, got %v", v)
	}
	if v := get(t, res.Style, "marginRight"); v != styleobj.String("auto") {
		t.Errorf("expected auto, got %v", v)
	}
	if !res.Important || !sink.Has(diag.KindImportantStripped) {
		t.Errorf("expected important to be recorded")
	}
	if !sink.Has(diag.KindVendorPrefixed) || sink.Count(diag.KindShorthandExpanded) != 2 {
		t.Errorf("unexpected diagnostics %v", sink.Items())
	}
	if sink.Has(diag.KindDynamicNode) {
		t.Errorf("unexpected bail")
	}
}

func TestPseudoSelectors(t *testing.T) {
	c, _ := setup(t, nil, nil)
	res := c.Convert("Link", parse(t, c, `
		color: blue;
		&:hover { color: red; }
		&:focus-visible, &:active { color: green; }
		&::before { content: "*"; }
		@media (max-width: 600px) { color: black; }
	`), nil)

	if !styleobj.IsPropertyLevel(res.Style) {
		t.Fatalf("expected property level object")
	}
	cond, ok := get(t, res.Style, "color").(*styleobj.Conditional)
	if !ok {
		t.Fatalf("expected conditional color")
	}
	want := []string{"default", ":hover", ":focus-visible", ":active", "@media (max-width: 600px)"}
	got := cond.Conditions()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected condition %s, got %s", want[i], got[i])
		}
	}
	if def := cond.Default(); def != styleobj.String("blue") {
		t.Errorf("expected blue default, got %v", def)
	}
	before, ok := get(t, res.Style, "::before").(*styleobj.Object)
	if !ok || before.Len() != 1 {
		t.Errorf("expected ::before object, got %v", before)
	}
}

func TestLoweredSelectorsStayNested(t *testing.T) {
	cctx := &classify.Context{Components: map[string]bool{"Icon": true}}
	c, _ := setup(t, nil, cctx)
	e, err := host.ParseExpression("css`\n color: red;\n &:hover ${Icon} { fill: purple; }\n & > * { margin: 0; }\n &[disabled] { opacity: 0.5; }\n`")
	if err != nil {
		t.Fatal(err)
	}
	tpl, err := c.Parser().Parse(e.Quasis, e.Exprs)
	if err != nil {
		t.Fatal(err)
	}
	res := c.Convert("Button", tpl, nil)
	for _, key := range []string{"&:hover ${Icon}", "& > *", "&[disabled]"} {
		if _, ok := get(t, res.Style, key).(*styleobj.Object); !ok {
			t.Errorf("expected nested object under %q", key)
		}
	}
}

func TestInterpolations(t *testing.T) {
	adapter := tokens{values: map[string]*decide.ValueResult{
		"theme.colors.primary": {Expr: "tokens.colorsPrimary"},
	}}
	cctx := &classify.Context{Keyframes: map[string]bool{"fade": true}}

	t.Run("theme", func(t *testing.T) {
		c, sink := setup(t, adapter, cctx)
		e, _ := host.ParseExpression("css`color: ${p => p.theme.colors.primary};`")
		tpl, _ := c.Parser().Parse(e.Quasis, e.Exprs)
		res := c.Convert("Button", tpl, nil)
		if v := get(t, res.Style, "color"); v != styleobj.Expr("tokens.colorsPrimary") {
			t.Errorf("expected tokens.colorsPrimary, got %v", v)
		}
		if sink.Len() != 0 {
			t.Errorf("expected no diagnostics, got %v", sink.Items())
		}
	})

	t.Run("fragment", func(t *testing.T) {
		c, _ := setup(t, adapter, cctx)
		e, _ := host.ParseExpression("css`border: 1px solid ${p => p.theme.colors.primary};`")
		tpl, _ := c.Parser().Parse(e.Quasis, e.Exprs)
		res := c.Convert("Button", tpl, nil)
		if v := get(t, res.Style, "border"); v != styleobj.Expr("`1px solid ${tokens.colorsPrimary}`") {
			t.Errorf("unexpected border %v", v)
		}
	})

	t.Run("variant", func(t *testing.T) {
		c, _ := setup(t, adapter, cctx)
		e, _ := host.ParseExpression("css`opacity: ${p => p.disabled ? 0.5 : 1};`")
		tpl, _ := c.Parser().Parse(e.Quasis, e.Exprs)
		res := c.Convert("Button", tpl, nil)
		if len(res.Variants) != 1 || len(res.Variants[0].Variants) != 2 {
			t.Fatalf("expected one variant decision with two variants, got %+v", res.Variants)
		}
		if res.Style.Has("opacity") {
			t.Errorf("expected no base opacity")
		}
	})

	t.Run("dynamic fn with fallback", func(t *testing.T) {
		c, sink := setup(t, adapter, cctx)
		e, _ := host.ParseExpression("css`color: black; color: ${p => p.color};`")
		tpl, _ := c.Parser().Parse(e.Quasis, e.Exprs)
		res := c.Convert("Text", tpl, nil)
		if len(res.DynamicFns) != 1 {
			t.Fatalf("expected dynamic fn, got %+v", res.DynamicFns)
		}
		d := res.DynamicFns[0].Decision
		if d.FallbackValue != styleobj.String("black") || res.DynamicFns[0].Property != "color" {
			t.Errorf("unexpected dynamic fn %+v", d)
		}
		if !sink.Has(diag.KindDynamicFnCreated) {
			t.Errorf("expected dynamic-fn-created")
		}
	})

	t.Run("border remap", func(t *testing.T) {
		c, sink := setup(t, adapter, cctx)
		e, _ := host.ParseExpression("css`border: 2px dashed ${p => p.accent};`")
		tpl, _ := c.Parser().Parse(e.Quasis, e.Exprs)
		res := c.Convert("Card", tpl, nil)
		if len(res.DynamicFns) != 1 || res.DynamicFns[0].Property != "borderColor" {
			t.Fatalf("expected borderColor dynamic fn, got %+v", res.DynamicFns)
		}
		if v := get(t, res.Style, "borderWidth"); v != styleobj.Number(2) {
			t.Errorf("expected static width, got %v", v)
		}
		if !sink.Has(diag.KindBorderRemapped) {
			t.Errorf("expected border-shorthand-remapped")
		}
	})

	t.Run("animation", func(t *testing.T) {
		c, sink := setup(t, adapter, cctx)
		e, _ := host.ParseExpression("css`animation: ${fade} 300ms ease-in infinite;`")
		tpl, _ := c.Parser().Parse(e.Quasis, e.Exprs)
		res := c.Convert("Spinner", tpl, nil)
		if v := get(t, res.Style, "animationName"); v != styleobj.Expr("fade") {
			t.Errorf("expected fade, got %v", v)
		}
		if v := get(t, res.Style, "animationDuration"); v != styleobj.String("300ms") {
			t.Errorf("expected 300ms, got %v", v)
		}
		if v := get(t, res.Style, "animationIterationCount"); v != styleobj.String("infinite") {
			t.Errorf("expected infinite, got %v", v)
		}
		if !sink.Has(diag.KindAnimationExpanded) {
			t.Errorf("expected animation-shorthand-expanded")
		}
	})

	t.Run("unresolved helper bails", func(t *testing.T) {
		c, sink := setup(t, adapter, &classify.Context{Imports: map[string]string{"shade": "polished"}})
		e, _ := host.ParseExpression("css`color: ${shade(\"red\")}; padding: 4px;`")
		tpl, _ := c.Parser().Parse(e.Quasis, e.Exprs)
		res := c.Convert("Button", tpl, nil)
		if res.Style.Has("color") {
			t.Errorf("expected color to be omitted")
		}
		if sink.Count(diag.KindDynamicNode) != 1 || sink.Items()[0].Reason != diag.BailHelperUnresolved {
			t.Errorf("expected single helper-unresolved bail, got %v", sink.Items())
		}
	})

	t.Run("inline escape", func(t *testing.T) {
		c, sink := setup(t, adapter, cctx)
		e, _ := host.ParseExpression("css`width: ${p => p.size * 2}px;`")
		tpl, _ := c.Parser().Parse(e.Quasis, e.Exprs)
		res := c.Convert("Box", tpl, nil)
		if len(res.Escapes) != 1 || res.Escapes[0].Property != "width" || res.Escapes[0].PropDeps[0] != "size" {
			t.Errorf("expected inline escape, got %+v", res.Escapes)
		}
		if !sink.Has(diag.KindInlineStyleEscape) {
			t.Errorf("expected inline-style-escape-hatch")
		}
	})
}

func TestCSSVariables(t *testing.T) {
	adapter := tokens{values: map[string]*decide.ValueResult{
		"--brand": {Expr: "vars.brand", DropDefinition: true, Imports: []decide.Import{{Source: "./vars.stylex", Names: []string{"vars"}}}},
	}}
	c, sink := setup(t, adapter, nil)
	res := c.Convert("Badge", parse(t, c, `--brand: red; color: var(--brand); box-shadow: 0 0 2px var(--brand);`), nil)
	if res.Style.Has("--brand") {
		t.Errorf("expected definition to be dropped")
	}
	if v := get(t, res.Style, "color"); v != styleobj.Expr("vars.brand") {
		t.Errorf("expected vars.brand, got %v", v)
	}
	if v := get(t, res.Style, "boxShadow"); v != styleobj.Expr("`0 0 2px ${vars.brand}`") {
		t.Errorf("unexpected box shadow %v", v)
	}
	if !sink.Has(diag.KindCSSVariableDropped) || sink.Count(diag.KindCSSVariableResolved) != 2 {
		t.Errorf("unexpected diagnostics %v", sink.Items())
	}
}

func TestMixinsAndKeyframes(t *testing.T) {
	cctx := &classify.Context{Mixins: map[string]bool{"truncate": true}}
	c, _ := setup(t, nil, cctx)

	e, _ := host.ParseExpression("css`\n  ${truncate}\n  color: red;\n`")
	tpl, _ := c.Parser().Parse(e.Quasis, e.Exprs)
	res := c.Convert("Title", tpl, nil)
	if len(res.StyleRefs) != 1 || res.StyleRefs[0].Entry != "truncate" {
		t.Errorf("expected mixin style reference, got %+v", res.StyleRefs)
	}

	frames := c.ConvertKeyframes("fade", parse(t, c, `from { opacity: 0; } 50%, to { opacity: 1; }`), nil)
	if keys := frames.Keys(); len(keys) != 3 || keys[0] != "from" || keys[1] != "50%" || keys[2] != "to" {
		t.Errorf("unexpected frames %v", keys)
	}
}

func TestSelectorInterpolationBails(t *testing.T) {
	c, sink := setup(t, nil, nil)
	e, _ := host.ParseExpression("css`\n  ${p => p.sel} { color: red; }\n`")
	tpl, _ := c.Parser().Parse(e.Quasis, e.Exprs)
	c.Convert("Box", tpl, nil)
	if !sink.Has(diag.KindInterpolationInSel) {
		t.Errorf("expected interpolation-in-selector")
	}
	if sink.Items()[1].Reason != diag.BailUnsupportedContext {
		t.Errorf("expected unsupported-context bail, got %v", sink.Items())
	}
}
