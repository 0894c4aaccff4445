package decide

import (
	"strings"

	"github.com/gosimple/slug"

	"stylemig/classify"
	"stylemig/css"
	"stylemig/diag"
	"stylemig/styleobj"
)

func builtins() []Handler {
	return []Handler{
		{Name: "unsupported-context", Match: matchUnsupportedContext, Handle: handleUnsupportedContext},
		{Name: "keyframes", Match: matchTag(classify.TagKeyframesRef), Handle: handleKeyframes},
		{Name: "mixin", Match: matchMixin, Handle: handleMixin},
		{Name: "theme", Match: matchTag(classify.TagThemeAccess), Handle: handleTheme},
		{Name: "prop", Match: matchTag(classify.TagPropAccess), Handle: handleProp},
		{Name: "conditional", Match: matchTag(classify.TagConditional), Handle: handleConditional},
		{Name: "logical", Match: matchTag(classify.TagLogical), Handle: handleLogical},
		{Name: "helper", Match: matchTag(classify.TagHelperCall), Handle: handleHelper},
	}
}

func matchTag(tag classify.Tag) func(*classify.Classified, *NodeContext) bool {
	return func(c *classify.Classified, _ *NodeContext) bool {
		return c.Tag == tag
	}
}

func matchUnsupportedContext(c *classify.Classified, ctx *NodeContext) bool {
	return ctx.InPropertyName || ctx.InAtRule || (ctx.InSelector && c.Tag != classify.TagKeyframesRef)
}

func handleUnsupportedContext(c *classify.Classified, ctx *NodeContext, _ *Env) *Decision {
	where := "selector"
	switch {
	case ctx.InPropertyName:
		where = "property name"
	case ctx.InAtRule:
		where = "at-rule"
	}
	return Bail(diag.BailUnsupportedContext, "interpolation in "+where+": "+c.Source)
}

func handleKeyframes(c *classify.Classified, ctx *NodeContext, _ *Env) *Decision {
	if ctx.Property == "" || ctx.InSelector {
		return Bail(diag.BailKeyframesUnsupported, c.Name)
	}
	return Convert(styleobj.Expr(c.Name))
}

func matchMixin(c *classify.Classified, _ *NodeContext) bool {
	return c.Tag == classify.TagHelperCall && c.Mixin
}

func handleMixin(c *classify.Classified, ctx *NodeContext, _ *Env) *Decision {
	if !ctx.Spread() {
		return Bail(diag.BailMixinInValuePosition, c.Name)
	}
	d := Rewrite("", true)
	d.Entry = c.Name
	return d
}

func handleTheme(c *classify.Classified, ctx *NodeContext, env *Env) *Decision {
	res := env.Adapter.ResolveValue(ValueRequest{
		Kind:      ValueTheme,
		Path:      c.Path,
		Property:  ctx.Property,
		Component: ctx.Component,
	})
	if res == nil || res.Expr == "" {
		return Bail(diag.BailThemeUnresolved, "theme."+strings.Join(c.Path, "."))
	}
	env.Imports.Add(res.Imports...)
	return Convert(styleobj.Expr(res.Expr))
}

// paramName turns prop name into function parameter, transient "$" props
// lose their marker.
func paramName(prop string) string {
	return strings.TrimLeft(prop, "$")
}

func handleProp(c *classify.Classified, ctx *NodeContext, _ *Env) *Decision {
	if ctx.Property == "" {
		return nil
	}
	param := paramName(c.PropName)
	d := &Decision{
		Kind:            KindDynamicFn,
		PropName:        c.PropName,
		ParamName:       param,
		ParamType:       "string",
		ValueExpression: param,
		FallbackValue:   ctx.PreviousValue,
		TargetProperty:  ctx.Property,
	}
	if styleobj.IsUnitless(ctx.Property) {
		d.ParamType = "number"
	}
	if param != c.PropName {
		d.OriginalPropName = c.PropName
	}
	if ctx.IsFullValue {
		return d
	}
	if len(css.Placeholders(ctx.Value)) > 1 {
		return Bail(diag.BailUnsupportedContext, "prop "+c.PropName+" mixed with other interpolations in "+ctx.CSSProperty)
	}
	if longhands, ok := styleobj.BorderLonghands(ctx.Property); ok {
		if target, ok := borderTarget(ctx.Value, ctx.Index, longhands); ok {
			d.TargetProperty = target
			return d
		}
	}
	d.ValueExpression = templateLiteral(ctx.Value, ctx.Index, param)
	return d
}

// borderTarget picks longhand an interpolated border token stands for. Parts
// claimed by static tokens are skipped, otherwise position decides: first
// token is width, last is color, anything in between is style.
func borderTarget(value string, index int, longhands [3]string) (string, bool) {
	tokens := styleobj.SplitValue(value)
	pos := -1
	claimed := map[styleobj.BorderPart]bool{}
	for i, tok := range tokens {
		if n, ok := css.IsPlaceholder(tok); ok && n == index {
			pos = i
			continue
		}
		if css.HasPlaceholder(tok) {
			return "", false
		}
		claimed[styleobj.ClassifyBorderToken(tok)] = true
	}
	if pos < 0 {
		return "", false
	}
	part := styleobj.BorderStyle
	switch {
	case pos == len(tokens)-1 && len(tokens) > 1:
		part = styleobj.BorderColor
	case pos == 0 && len(tokens) > 1:
		part = styleobj.BorderWidth
	case len(tokens) == 1:
		part = styleobj.BorderColor
	}
	if claimed[part] {
		for _, p := range []styleobj.BorderPart{styleobj.BorderColor, styleobj.BorderWidth, styleobj.BorderStyle} {
			if !claimed[p] {
				part = p
				break
			}
		}
	}
	return longhands[part], true
}

// templateLiteral splices parameter into value text producing JS template.
func templateLiteral(value string, index int, param string) string {
	text := css.ReplacePlaceholders(value, func(n int) string {
		if n == index {
			return "${" + param + "}"
		}
		return css.Placeholder(n)
	})
	return "`" + strings.TrimSpace(text) + "`"
}

// VariantName builds deterministic name of a variant entry.
func VariantName(component, prop, comparison string, truthy bool) string {
	var b strings.Builder
	b.WriteString(styleobj.LowerFirst(component))
	b.WriteString(styleobj.Capitalize(paramName(prop)))
	if comparison != "" {
		if s := slug.Make(comparison); s != "" {
			b.WriteString(styleobj.Capitalize(styleobj.CamelCase(s)))
		}
	}
	if truthy {
		b.WriteString("Truthy")
	} else {
		b.WriteString("Falsy")
	}
	return b.String()
}

// WrapConditions nests styles into the given condition keys and flattens
// result into property level form.
func WrapConditions(styles *styleobj.Object, conditions []string) *styleobj.Object {
	if len(conditions) == 0 {
		return styles
	}
	cur := styles
	for i := len(conditions) - 1; i >= 0; i-- {
		o := styleobj.NewObject()
		o.Set(conditions[i], cur)
		cur = o
	}
	flat, _ := styleobj.ToPropertyLevelConditionals(cur)
	return flat
}

func branchStyles(b classify.Branch, ctx *NodeContext, env *Env) (*styleobj.Object, *Decision) {
	if b.Empty {
		return nil, nil
	}
	if b.Style != nil {
		if ctx.Property != "" || env.ConvertBlock == nil {
			return nil, Bail(diag.BailUnsupportedContext, b.Style.Source)
		}
		o, err := env.ConvertBlock(b.Style)
		if err != nil {
			return nil, Bail(diag.BailUnsupportedContext, err.Error())
		}
		return WrapConditions(o, ctx.Conditions), nil
	}
	if ctx.Property == "" {
		return nil, Bail(diag.BailUnsupportedContext, "literal "+b.Literal+" used as style block")
	}
	var v styleobj.Value
	if ctx.IsFullValue {
		v = styleobj.FromLiteral(b.Literal, b.Number)
		if s, ok := v.(styleobj.String); ok {
			v = styleobj.FromCSS(ctx.Property, string(s))
		}
	} else {
		text := css.ReplacePlaceholders(ctx.Value, func(n int) string {
			if n == ctx.Index {
				return b.Literal
			}
			return css.Placeholder(n)
		})
		if css.HasPlaceholder(text) {
			return nil, Bail(diag.BailUnsupportedContext, "conditional mixed with other interpolations in "+ctx.CSSProperty)
		}
		v = styleobj.FromCSS(ctx.Property, text)
	}
	o := styleobj.NewObject()
	o.Set(ctx.Property, v)
	return WrapConditions(o, ctx.Conditions), nil
}

func handleConditional(c *classify.Classified, ctx *NodeContext, env *Env) *Decision {
	d := &Decision{
		Kind:            KindVariant,
		PropName:        c.PropName,
		ComparisonValue: c.Comparison,
		Negated:         c.Negated,
		BaseValue:       ctx.PreviousValue,
	}
	for _, br := range []struct {
		branch classify.Branch
		truthy bool
	}{{c.Then, !c.Negated}, {c.Else, c.Negated}} {
		styles, bail := branchStyles(br.branch, ctx, env)
		if bail != nil {
			bail.PropDeps = []string{c.PropName}
			return bail
		}
		if styles == nil {
			continue
		}
		d.Variants = append(d.Variants, Variant{
			Name:   VariantName(ctx.Component, c.PropName, c.Comparison, br.truthy),
			Truthy: br.truthy,
			Styles: styles,
		})
	}
	return d
}

func handleLogical(c *classify.Classified, ctx *NodeContext, env *Env) *Decision {
	if !c.OnTheme {
		return Bail(diag.BailLogicalRuntime, c.Source, c.PropName)
	}
	if ctx.Property == "" {
		return Bail(diag.BailUnsupportedContext, c.Source)
	}
	res := env.Adapter.ResolveValue(ValueRequest{
		Kind:      ValueTheme,
		Path:      c.Path,
		Property:  ctx.Property,
		Component: ctx.Component,
	})
	if res != nil && res.Expr != "" {
		env.Imports.Add(res.Imports...)
		return Convert(styleobj.Expr(res.Expr))
	}
	if c.Fallback.Empty {
		return Bail(diag.BailThemeUnresolved, "theme."+strings.Join(c.Path, "."))
	}
	v := styleobj.FromLiteral(c.Fallback.Literal, c.Fallback.Number)
	if s, ok := v.(styleobj.String); ok && ctx.IsFullValue {
		v = styleobj.FromCSS(ctx.Property, string(s))
	}
	return Convert(v)
}

func handleHelper(c *classify.Classified, ctx *NodeContext, env *Env) *Decision {
	res := env.Adapter.ResolveCall(CallRequest{
		Callee:       c.Callee,
		ImportSource: c.ImportSource,
		Args:         c.Args,
		ArgsStatic:   c.ArgsStatic,
		Property:     ctx.Property,
		Component:    ctx.Component,
	})
	if res == nil {
		return Bail(diag.BailHelperUnresolved, c.Source)
	}
	if ctx.Property == "" {
		if res.StylesUsage == "" {
			return Bail(diag.BailHelperShapeMismatch, c.Source+" resolves to a value, style block expected")
		}
		env.Imports.Add(res.Imports...)
		return Rewrite(res.StylesUsage, true)
	}
	if res.Expr == "" {
		return Bail(diag.BailHelperShapeMismatch, c.Source+" resolves to a style block, value expected")
	}
	env.Imports.Add(res.Imports...)
	return Convert(styleobj.Expr(res.Expr))
}
