package decide

import (
	"errors"
	"slices"
	"testing"

	"go.uber.org/zap"

	"stylemig/classify"
	"stylemig/common"
	"stylemig/css"
	"stylemig/diag"
	"stylemig/host"
	"stylemig/styleobj"
)

type testAdapter struct {
	values map[string]string
	calls  map[string]*CallResult
}

func (a *testAdapter) ResolveValue(req ValueRequest) *ValueResult {
	key := req.Name
	if req.Kind == ValueTheme {
		key = "theme"
		for _, p := range req.Path {
			key += "." + p
		}
	}
	expr, ok := a.values[key]
	if !ok {
		return nil
	}
	return &ValueResult{Expr: expr, Imports: []Import{{Source: "./tokens.stylex", Names: []string{"tokens"}}}}
}

func (a *testAdapter) ResolveCall(req CallRequest) *CallResult {
	return a.calls[req.Callee]
}

func classified(t *testing.T, src string, ctx *classify.Context) *classify.Classified {
	t.Helper()
	e, err := host.ParseExpression(src)
	if err != nil {
		t.Fatalf("unable to parse %q: %v", src, err)
	}
	return classify.Classify(&css.InterpolationLocation{Index: 0, Expression: e}, ctx)
}

func fullValue(prop string) *NodeContext {
	return &NodeContext{
		Component:   "Button",
		Property:    prop,
		CSSProperty: styleobj.KebabCase(prop),
		IsFullValue: true,
		Value:       css.Placeholder(0),
	}
}

func TestThemeAccess(t *testing.T) {
	imports := &ImportSink{}
	adapter := &testAdapter{values: map[string]string{"theme.colors.primary": "tokens.colorsPrimary"}}
	e := NewEngine(adapter, common.FallbackBehaviorBail, imports, zap.NewNop())

	d := e.Decide(classified(t, "p => p.theme.colors.primary", nil), fullValue("color"))
	if d.Kind != KindConvert {
		t.Fatalf("expected convert, got %s (%s)", d.Kind, d.Reason)
	}
	if d.Value != styleobj.Expr("tokens.colorsPrimary") {
		t.Errorf("expected tokens.colorsPrimary, got %v", d.Value)
	}
	if len(imports.Items()) != 1 || imports.Items()[0].Statement() != `import { tokens } from "./tokens.stylex";` {
		t.Errorf("unexpected imports %+v", imports.Items())
	}

	d = e.Decide(classified(t, "p => p.theme.colors.unknown", nil), fullValue("color"))
	if d.Kind != KindBail || d.Reason != diag.BailThemeUnresolved {
		t.Errorf("expected theme-unresolved bail, got %s %s", d.Kind, d.Reason)
	}
}

func TestPropAccess(t *testing.T) {
	e := NewEngine(nil, common.FallbackBehaviorBail, nil, zap.NewNop())

	t.Run("full value", func(t *testing.T) {
		d := e.Decide(classified(t, "p => p.$size", nil), fullValue("width"))
		if d.Kind != KindDynamicFn {
			t.Fatalf("expected dynamic-fn, got %s", d.Kind)
		}
		if d.ParamName != "size" || d.OriginalPropName != "$size" || d.ValueExpression != "size" {
			t.Errorf("unexpected decision %+v", d)
		}
	})

	t.Run("fragment", func(t *testing.T) {
		ctx := fullValue("width")
		ctx.IsFullValue = false
		ctx.Value = "calc(" + css.Placeholder(0) + " - 4px)"
		d := e.Decide(classified(t, "({ w }) => w", nil), ctx)
		if d.Kind != KindDynamicFn {
			t.Fatalf("expected dynamic-fn, got %s", d.Kind)
		}
		if d.ValueExpression != "`calc(${w} - 4px)`" {
			t.Errorf("unexpected value expression %s", d.ValueExpression)
		}
	})

	t.Run("border color", func(t *testing.T) {
		ctx := fullValue("border")
		ctx.IsFullValue = false
		ctx.Value = "1px solid " + css.Placeholder(0)
		d := e.Decide(classified(t, "p => p.color", nil), ctx)
		if d.Kind != KindDynamicFn || d.TargetProperty != "borderColor" {
			t.Errorf("expected borderColor dynamic-fn, got %s %s", d.Kind, d.TargetProperty)
		}
	})

	t.Run("border width", func(t *testing.T) {
		ctx := fullValue("borderTop")
		ctx.IsFullValue = false
		ctx.Value = css.Placeholder(0) + " dashed red"
		d := e.Decide(classified(t, "p => p.w", nil), ctx)
		if d.TargetProperty != "borderTopWidth" {
			t.Errorf("expected borderTopWidth, got %s", d.TargetProperty)
		}
	})
}

func TestConditionalVariants(t *testing.T) {
	e := NewEngine(nil, common.FallbackBehaviorBail, nil, zap.NewNop())

	d := e.Decide(classified(t, "p => p.disabled ? 0.5 : 1", nil), fullValue("opacity"))
	if d.Kind != KindVariant {
		t.Fatalf("expected variant, got %s", d.Kind)
	}
	if d.PropName != "disabled" || len(d.Variants) != 2 {
		t.Fatalf("unexpected decision %+v", d)
	}
	names := []string{d.Variants[0].Name, d.Variants[1].Name}
	if !slices.Equal(names, []string{"buttonDisabledTruthy", "buttonDisabledFalsy"}) {
		t.Errorf("unexpected variant names %v", names)
	}
	if v, _ := d.Variants[0].Styles.Get("opacity"); v != styleobj.Number(0.5) {
		t.Errorf("expected 0.5, got %v", v)
	}

	t.Run("comparison and empty branch", func(t *testing.T) {
		d := e.Decide(classified(t, `p => p.variant === "primary-dark" ? "white" : ""`, nil), fullValue("color"))
		if len(d.Variants) != 1 {
			t.Fatalf("expected one variant, got %d", len(d.Variants))
		}
		if d.Variants[0].Name != "buttonVariantPrimaryDarkTruthy" {
			t.Errorf("unexpected name %s", d.Variants[0].Name)
		}
	})

	t.Run("negated", func(t *testing.T) {
		d := e.Decide(classified(t, `p => !p.active && "gray"`, nil), fullValue("color"))
		if len(d.Variants) != 1 || d.Variants[0].Truthy || d.Variants[0].Name != "buttonActiveFalsy" {
			t.Errorf("unexpected variants %+v", d.Variants)
		}
	})

	t.Run("pseudo context", func(t *testing.T) {
		ctx := fullValue("color")
		ctx.Conditions = []string{":hover"}
		d := e.Decide(classified(t, `p => p.on ? "red" : "blue"`, nil), ctx)
		v, _ := d.Variants[0].Styles.Get("color")
		c, ok := v.(*styleobj.Conditional)
		if !ok {
			t.Fatalf("expected conditional, got %T", v)
		}
		if hv, _ := c.Get(":hover"); hv != styleobj.String("red") {
			t.Errorf("expected red on hover, got %v", hv)
		}
	})

	t.Run("style block", func(t *testing.T) {
		e := NewEngine(nil, common.FallbackBehaviorBail, nil, zap.NewNop())
		e.SetBlockConverter(func(*host.Expr) (*styleobj.Object, error) {
			o := styleobj.NewObject()
			o.Set("color", styleobj.String("red"))
			return o, nil
		})
		ctx := &NodeContext{Component: "Box", Value: css.Placeholder(0)}
		d := e.Decide(classified(t, "p => p.big && css`color: red;`", nil), ctx)
		if d.Kind != KindVariant || len(d.Variants) != 1 || d.Variants[0].Name != "boxBigTruthy" {
			t.Errorf("unexpected decision %+v", d)
		}
	})

	t.Run("style block error", func(t *testing.T) {
		e := NewEngine(nil, common.FallbackBehaviorBail, nil, zap.NewNop())
		e.SetBlockConverter(func(*host.Expr) (*styleobj.Object, error) {
			return nil, errors.New("broken")
		})
		ctx := &NodeContext{Component: "Box", Value: css.Placeholder(0)}
		d := e.Decide(classified(t, "p => p.big && css`color: red;`", nil), ctx)
		if d.Kind != KindBail || !slices.Equal(d.PropDeps, []string{"big"}) {
			t.Errorf("unexpected decision %+v", d)
		}
	})
}

func TestLogical(t *testing.T) {
	adapter := &testAdapter{values: map[string]string{"theme.space.md": "tokens.spaceMd"}}
	e := NewEngine(adapter, common.FallbackBehaviorBail, nil, zap.NewNop())

	d := e.Decide(classified(t, `p => p.theme.space.md || "8px"`, nil), fullValue("padding"))
	if d.Kind != KindConvert || d.Value != styleobj.Expr("tokens.spaceMd") {
		t.Errorf("expected adapter value, got %+v", d)
	}
	d = e.Decide(classified(t, `p => p.theme.space.xl ?? "24px"`, nil), fullValue("padding"))
	if d.Kind != KindConvert || d.Value != styleobj.Number(24) {
		t.Errorf("expected fallback literal, got %+v", d)
	}
	d = e.Decide(classified(t, `p => p.gap || 4`, nil), fullValue("gap"))
	if d.Kind != KindBail || d.Reason != diag.BailLogicalRuntime || !slices.Equal(d.PropDeps, []string{"gap"}) {
		t.Errorf("expected logical bail with gap dependency, got %+v", d)
	}
	if !d.InlineStyle {
		t.Errorf("expected inline style escape")
	}
}

func TestHelperCall(t *testing.T) {
	adapter := &testAdapter{calls: map[string]*CallResult{
		"rem":      {Expr: "'1rem'"},
		"truncate": {StylesUsage: "helpers.truncate", Imports: []Import{{Source: "./helpers.stylex", Names: []string{"helpers"}}}},
	}}
	cctx := &classify.Context{Imports: map[string]string{"rem": "./utils", "truncate": "./utils", "shade": "./utils"}}
	e := NewEngine(adapter, common.FallbackBehaviorBail, nil, zap.NewNop())

	for _, tc := range []struct {
		name   string
		src    string
		prop   string
		kind   Kind
		reason diag.BailReason
	}{
		{"value", `rem(1)`, "fontSize", KindConvert, ""},
		{"block", `truncate()`, "", KindRewrite, ""},
		{"value used as block", `rem(1)`, "", KindBail, diag.BailHelperShapeMismatch},
		{"block used as value", `truncate()`, "color", KindBail, diag.BailHelperShapeMismatch},
		{"unresolved", `shade("red", 0.2)`, "color", KindBail, diag.BailHelperUnresolved},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx := fullValue(tc.prop)
			if tc.prop == "" {
				ctx = &NodeContext{Component: "Button", Value: css.Placeholder(0)}
			}
			d := e.Decide(classified(t, tc.src, cctx), ctx)
			if d.Kind != tc.kind || d.Reason != tc.reason {
				t.Errorf("expected %s %q, got %s %q", tc.kind, tc.reason, d.Kind, d.Reason)
			}
		})
	}
	if len(e.Imports().Items()) != 1 {
		t.Errorf("expected helpers import, got %+v", e.Imports().Items())
	}
}

func TestKeyframesAndMixins(t *testing.T) {
	cctx := &classify.Context{Keyframes: map[string]bool{"fade": true}, Mixins: map[string]bool{"truncate": true}}
	e := NewEngine(nil, common.FallbackBehaviorBail, nil, zap.NewNop())

	d := e.Decide(classified(t, "fade", cctx), fullValue("animationName"))
	if d.Kind != KindConvert || d.Value != styleobj.Expr("fade") {
		t.Errorf("expected keyframes reference, got %+v", d)
	}
	d = e.Decide(classified(t, "truncate", cctx), &NodeContext{Value: css.Placeholder(0)})
	if d.Kind != KindRewrite || !d.StyleRef || d.Entry != "truncate" {
		t.Errorf("expected mixin reference, got %+v", d)
	}
	d = e.Decide(classified(t, "truncate", cctx), fullValue("color"))
	if d.Reason != diag.BailMixinInValuePosition {
		t.Errorf("expected mixin bail, got %+v", d)
	}
}

func TestFallback(t *testing.T) {
	t.Run("bail with deps", func(t *testing.T) {
		e := NewEngine(nil, common.FallbackBehaviorBail, nil, zap.NewNop())
		d := e.Decide(classified(t, "p => shade(p.color, p.amount)", nil), fullValue("color"))
		if d.Kind != KindBail || d.Reason != diag.BailRawExpression {
			t.Fatalf("expected raw bail, got %+v", d)
		}
		if !slices.Equal(d.PropDeps, []string{"color", "amount"}) || !d.InlineStyle {
			t.Errorf("unexpected deps %v inline %v", d.PropDeps, d.InlineStyle)
		}
	})

	t.Run("bail without deps", func(t *testing.T) {
		e := NewEngine(nil, common.FallbackBehaviorBail, nil, zap.NewNop())
		d := e.Decide(classified(t, "p => compute()", nil), fullValue("color"))
		if d.InlineStyle {
			t.Errorf("expected no inline escape")
		}
	})

	t.Run("inline style behavior", func(t *testing.T) {
		e := NewEngine(nil, common.FallbackBehaviorInlineStyle, nil, zap.NewNop())
		d := e.Decide(classified(t, "p => compute()", nil), fullValue("color"))
		if !d.InlineStyle {
			t.Errorf("expected inline escape")
		}
	})

	t.Run("override", func(t *testing.T) {
		e := NewEngine(nil, common.FallbackBehaviorBail, nil, zap.NewNop())
		e.SetFallback(func(*classify.Classified, *NodeContext) *Decision {
			return Convert(styleobj.String("inherit"))
		})
		d := e.Decide(classified(t, "p => compute()", nil), fullValue("color"))
		if d.Kind != KindConvert || d.Handler != "fallback" {
			t.Errorf("expected override, got %+v", d)
		}
	})

	t.Run("unsupported context", func(t *testing.T) {
		e := NewEngine(nil, common.FallbackBehaviorBail, nil, zap.NewNop())
		d := e.Decide(classified(t, "p => p.prop", nil), &NodeContext{InPropertyName: true})
		if d.Reason != diag.BailUnsupportedContext {
			t.Errorf("expected unsupported-context, got %+v", d)
		}
	})
}

type providerAdapter struct {
	NopAdapter
}

func (providerAdapter) Handlers() []Handler {
	return []Handler{{
		Name:  "always-red",
		Match: func(c *classify.Classified, _ *NodeContext) bool { return c.Tag == classify.TagPropAccess },
		Handle: func(*classify.Classified, *NodeContext, *Env) *Decision {
			return Convert(styleobj.String("red"))
		},
	}}
}

func TestAdapterHandlersFirst(t *testing.T) {
	e := NewEngine(providerAdapter{}, common.FallbackBehaviorBail, nil, zap.NewNop())
	d := e.Decide(classified(t, "p => p.color", nil), fullValue("color"))
	if d.Kind != KindConvert || d.Handler != "always-red" {
		t.Errorf("expected adapter handler to win, got %+v", d)
	}
}

func TestImportSink(t *testing.T) {
	var s ImportSink
	s.Add(Import{Source: "a", Names: []string{"x"}}, Import{Source: "b", Default: "B"}, Import{Source: "a", Names: []string{"y", "x"}})
	if len(s.Items()) != 2 {
		t.Fatalf("expected 2 imports, got %d", len(s.Items()))
	}
	if got := s.Items()[0].Statement(); got != `import { x, y } from "a";` {
		t.Errorf("unexpected statement %s", got)
	}
	if got := s.Items()[1].Statement(); got != `import B from "b";` {
		t.Errorf("unexpected statement %s", got)
	}
}
