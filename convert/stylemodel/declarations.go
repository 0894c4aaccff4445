package stylemodel

import (
	"regexp"
	"strings"

	"stylemig/css"
	"stylemig/decide"
	"stylemig/diag"
	"stylemig/styleobj"
)

func (c *Converter) declaration(st *state, node *css.RuleNode, d css.Declaration, target *styleobj.Object, keys []string, lowered bool) {
	if d.Spread {
		c.spread(st, node, d, target, keys, lowered)
		return
	}
	if css.HasPlaceholder(d.Property) {
		c.diags.Report(diag.KindInterpolationInProp, st.component, d.Property, st.loc)
		c.refuse(st, d.Property, &decide.NodeContext{InPropertyName: true, Value: d.Value, Selector: node.Selector})
		return
	}

	prop := d.Property
	if !strings.HasPrefix(prop, "--") {
		prop = styleobj.CamelCase(prop)
		if styleobj.IsVendorPrefixed(prop) {
			c.diags.Report(diag.KindVendorPrefixed, st.component, d.Property, st.loc)
		}
	} else if c.dropDefinition(st, prop) {
		return
	}
	if d.Important {
		st.res.Important = true
		c.diags.Report(diag.KindImportantStripped, st.component, d.Property, st.loc)
	}

	if !css.HasPlaceholder(d.Value) {
		c.assign(st, target, prop, d.Value)
		return
	}
	c.dynamic(st, node, d, prop, target, keys, lowered)
}

// spread handles interpolation standing alone as a statement.
func (c *Converter) spread(st *state, node *css.RuleNode, d css.Declaration, target *styleobj.Object, keys []string, lowered bool) {
	idx, ok := css.IsPlaceholder(d.Value)
	if !ok {
		return
	}
	loc := st.tpl.Interpolations[idx]
	if loc == nil {
		return
	}
	dec := c.decide(st, loc, &decide.NodeContext{
		Component:   st.component,
		Selector:    node.Selector,
		AtRuleStack: node.AtRuleStack,
		Conditions:  keys,
		IsFullValue: true,
		Value:       d.Value,
		Index:       idx,
	})
	if st.static && dec.Kind != decide.KindBail {
		if dec.Kind == decide.KindRewrite && dec.Entry != "" && len(keys) == 0 {
			st.res.StyleRefs = append(st.res.StyleRefs, StyleRef{Entry: dec.Entry})
			return
		}
		dec = unsupported(dec, loc.Expression.String())
	}
	switch dec.Kind {
	case decide.KindRewrite:
		if !dec.StyleRef || len(keys) > 0 {
			dec = unsupported(dec, "style reference inside nested block: "+loc.Expression.String())
			break
		}
		st.res.StyleRefs = append(st.res.StyleRefs, StyleRef{Entry: dec.Entry, Code: dec.Code})
		return
	case decide.KindVariant:
		if lowered {
			dec = unsupported(dec, loc.Expression.String())
			break
		}
		st.res.Variants = append(st.res.Variants, dec)
		return
	case decide.KindConvert:
		if o, isObj := dec.Value.(*styleobj.Object); isObj {
			target.Merge(o)
			return
		}
		dec = unsupported(dec, loc.Expression.String())
	case decide.KindDynamicFn:
		dec = unsupported(dec, loc.Expression.String())
	}
	c.bail(st, loc, dec, "", keys)
}

func (c *Converter) dynamic(st *state, node *css.RuleNode, d css.Declaration, prop string, target *styleobj.Object, keys []string, lowered bool) {
	_, full := css.IsPlaceholder(d.Value)
	previous, _ := target.Get(prop)

	type decided struct {
		loc *css.InterpolationLocation
		dec *decide.Decision
	}
	var all []decided
	for _, idx := range css.Placeholders(d.Value) {
		loc := st.tpl.Interpolations[idx]
		if loc == nil {
			continue
		}
		dec := c.decide(st, loc, &decide.NodeContext{
			Component:     st.component,
			Property:      prop,
			CSSProperty:   d.Property,
			Selector:      node.Selector,
			AtRuleStack:   node.AtRuleStack,
			Conditions:    keys,
			IsFullValue:   full,
			Value:         d.Value,
			Index:         idx,
			PreviousValue: previous,
		})
		if st.static {
			switch {
			case dec.Kind == decide.KindConvert:
			case dec.Kind == decide.KindRewrite && !dec.StyleRef:
			case dec.Kind == decide.KindBail:
			default:
				dec = unsupported(dec, loc.Expression.String())
			}
		}
		all = append(all, decided{loc, dec})
	}
	if len(all) == 0 {
		return
	}

	bailed := false
	for _, x := range all {
		if x.dec.Kind == decide.KindBail {
			c.bail(st, x.loc, x.dec, prop, keys)
			bailed = true
		}
	}
	if bailed {
		return
	}

	if len(all) == 1 {
		x := all[0]
		switch x.dec.Kind {
		case decide.KindDynamicFn:
			if lowered {
				c.bail(st, x.loc, unsupported(x.dec, x.loc.Expression.String()), prop, keys)
				return
			}
			c.dynamicFn(st, d, prop, x.dec, x.loc.Index, target, keys)
			return
		case decide.KindVariant:
			if lowered {
				c.bail(st, x.loc, unsupported(x.dec, x.loc.Expression.String()), prop, keys)
				return
			}
			st.res.Variants = append(st.res.Variants, x.dec)
			return
		}
	}

	parts := make(map[int]styleobj.Value, len(all))
	keyframes := ""
	for _, x := range all {
		switch x.dec.Kind {
		case decide.KindConvert:
			parts[x.loc.Index] = x.dec.Value
			if x.dec.Handler == "keyframes" {
				keyframes = css.Placeholder(x.loc.Index)
			}
		case decide.KindRewrite:
			if x.dec.StyleRef {
				c.bail(st, x.loc, unsupported(x.dec, x.loc.Expression.String()), prop, keys)
				return
			}
			parts[x.loc.Index] = styleobj.Expr(x.dec.Code)
		default:
			c.bail(st, x.loc, unsupported(x.dec, x.loc.Expression.String()), prop, keys)
			return
		}
	}

	if prop == "animation" && keyframes != "" && !strings.Contains(d.Value, ",") {
		c.expandAnimation(st, target, d.Value, parts)
		return
	}
	if full {
		v := parts[all[0].loc.Index]
		if s, ok := v.(styleobj.String); ok {
			c.assign(st, target, prop, string(s))
			return
		}
		target.Set(prop, v)
		return
	}

	exprs := false
	text := css.ReplacePlaceholders(d.Value, func(idx int) string {
		v := parts[idx]
		if e, ok := v.(styleobj.Expr); ok {
			exprs = true
			return "${" + string(e) + "}"
		}
		return styleobj.Text(v)
	})
	if !exprs {
		c.assign(st, target, prop, text)
		return
	}
	target.Set(prop, styleobj.Expr(templateLiteral(text)))
}

func templateLiteral(text string) string {
	return "`" + strings.ReplaceAll(strings.TrimSpace(text), "`", "\\`") + "`"
}

func (c *Converter) dynamicFn(st *state, d css.Declaration, prop string, dec *decide.Decision, index int, target *styleobj.Object, keys []string) {
	st.res.DynamicFns = append(st.res.DynamicFns, DynamicFn{Decision: dec, Property: dec.TargetProperty, Keys: keys})
	c.diags.Report(diag.KindDynamicFnCreated, st.component, dec.TargetProperty, st.loc)
	if dec.TargetProperty == prop {
		return
	}
	// border shorthand: static tokens keep their own longhands
	c.diags.Report(diag.KindBorderRemapped, st.component, d.Property+" -> "+dec.TargetProperty, st.loc)
	longhands, _ := styleobj.BorderLonghands(prop)
	for _, tok := range styleobj.SplitValue(d.Value) {
		if n, ok := css.IsPlaceholder(tok); ok && n == index {
			continue
		}
		lh := longhands[styleobj.ClassifyBorderToken(tok)]
		target.Set(lh, styleobj.FromCSS(lh, tok))
	}
}

// assign stores static value, expanding shorthands that carry several
// independent values.
func (c *Converter) assign(st *state, target *styleobj.Object, prop, value string) {
	value = strings.TrimSpace(value)
	if v, ok := c.resolveVariables(st, prop, value); ok {
		target.Set(prop, v)
		return
	}
	if target.Has(prop) {
		c.diags.Report(diag.KindDuplicateProperty, st.component, prop, st.loc)
	}
	if strings.HasPrefix(prop, "--") {
		target.Set(prop, styleobj.String(value))
		return
	}

	parts := styleobj.SplitValue(value)
	if len(parts) > 1 {
		if longhands, ok := styleobj.BoxLonghands(prop); ok && len(parts) <= 4 {
			var sides [4]string
			switch len(parts) {
			case 2:
				sides = [4]string{parts[0], parts[1], parts[0], parts[1]}
			case 3:
				sides = [4]string{parts[0], parts[1], parts[2], parts[1]}
			case 4:
				sides = [4]string{parts[0], parts[1], parts[2], parts[3]}
			}
			for i, lh := range longhands {
				target.Set(lh, styleobj.FromCSS(lh, sides[i]))
			}
			c.diags.Report(diag.KindShorthandExpanded, st.component, prop, st.loc)
			return
		}
		if longhands, ok := styleobj.PairLonghands(prop); ok && len(parts) == 2 {
			for i, lh := range longhands {
				target.Set(lh, styleobj.FromCSS(lh, parts[i]))
			}
			c.diags.Report(diag.KindShorthandExpanded, st.component, prop, st.loc)
			return
		}
		if longhands, ok := styleobj.BorderLonghands(prop); ok && len(parts) <= 3 && distinctBorderParts(parts) {
			for _, p := range parts {
				lh := longhands[styleobj.ClassifyBorderToken(p)]
				target.Set(lh, styleobj.FromCSS(lh, p))
			}
			c.diags.Report(diag.KindShorthandExpanded, st.component, prop, st.loc)
			return
		}
	}
	target.Set(prop, styleobj.FromCSS(prop, value))
}

func distinctBorderParts(parts []string) bool {
	seen := map[styleobj.BorderPart]bool{}
	for _, p := range parts {
		k := styleobj.ClassifyBorderToken(p)
		if seen[k] {
			return false
		}
		seen[k] = true
	}
	return true
}

var varRe = regexp.MustCompile(`var\(\s*(--[A-Za-z0-9_-]+)\s*(?:,[^()]*)?\)`)

// resolveVariables offers every var(--x) to the adapter. Value becomes an
// expression when at least one resolves.
func (c *Converter) resolveVariables(st *state, prop, value string) (styleobj.Value, bool) {
	if !strings.Contains(value, "var(") {
		return nil, false
	}
	adapter := c.engine.Adapter()
	resolved := 0
	text := varRe.ReplaceAllStringFunc(value, func(m string) string {
		name := varRe.FindStringSubmatch(m)[1]
		res := adapter.ResolveValue(decide.ValueRequest{
			Kind:      decide.ValueCSSVariable,
			Name:      name,
			Property:  prop,
			Component: st.component,
		})
		if res == nil || res.Expr == "" {
			return m
		}
		resolved++
		c.engine.Imports().Add(res.Imports...)
		c.diags.Report(diag.KindCSSVariableResolved, st.component, name, st.loc)
		return "${" + res.Expr + "}"
	})
	if resolved == 0 {
		return nil, false
	}
	if strings.HasPrefix(text, "${") && strings.HasSuffix(text, "}") && strings.Count(text, "${") == 1 {
		return styleobj.Expr(text[2 : len(text)-1]), true
	}
	return styleobj.Expr(templateLiteral(text)), true
}

// dropDefinition reports whether custom property definition should disappear
// because adapter maps it elsewhere.
func (c *Converter) dropDefinition(st *state, name string) bool {
	res := c.engine.Adapter().ResolveValue(decide.ValueRequest{
		Kind:      decide.ValueCSSVariable,
		Name:      name,
		Component: st.component,
	})
	if res == nil || !res.DropDefinition {
		return false
	}
	c.diags.Report(diag.KindCSSVariableDropped, st.component, name, st.loc)
	return true
}
