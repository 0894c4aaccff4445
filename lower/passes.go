package lower

import (
	"regexp"
	"strings"

	"github.com/gosimple/slug"

	"stylemig/component"
	"stylemig/decide"
	"stylemig/diag"
	"stylemig/styleobj"
)

const pseudoChain = `((?::[A-Za-z-]+(?:\([^()]*(?:\([^()]*\))*[^()]*\))?)*)`

var (
	universalRe   = regexp.MustCompile(`^&\s*(>\s*)?(\*|[a-z][a-z0-9]*)(:first-child|:not\(:first-child\)|:not\(:last-child\)|\s*\+\s*\*)?$`)
	descendantRe  = regexp.MustCompile(`^(?:&` + pseudoChain + `\s*(?:>\s*)?)?\$\{([A-Za-z_$][\w$]*)\}$`)
	attributeRe   = regexp.MustCompile(`^&\[\s*([\w-]+)\s*(?:([~|^$*]?=)\s*(?:"([^"]*)"|'([^']*)'|([^\]\s'"]*)))?\s*\]` + pseudoChain + `(::[A-Za-z-]+)?$`)
	siblingRe     = regexp.MustCompile(`^&(\.[\w-]+)?\s*([+~])\s*&$`)
	specificityRe = regexp.MustCompile(`^(?:(.+?)\s+)?&{2,}(.*)$`)
	pseudoRe      = regexp.MustCompile(`^` + pseudoChain + `$`)
	ancestorRe    = regexp.MustCompile(`^\$\{([A-Za-z_$][\w$]*)\}` + pseudoChain + `\s+&$`)
)

// universal lowers "& > *" family to child rules.
func universal(l *Lowerer, _ *component.Set, info *component.StyleInfo, key string, block *styleobj.Object) bool {
	m := universalRe.FindStringSubmatch(key)
	if m == nil {
		return false
	}
	direct, target, refine := m[1] != "", m[2], strings.TrimSpace(m[3])
	rule := component.JSXRewriteRule{Kind: component.RuleDirectChildren}
	suffix := "Children"
	switch {
	case refine == ":first-child":
		rule.Kind, suffix = component.RuleDirectChildrenFirst, "FirstChild"
	case refine == ":not(:first-child)" || strings.HasPrefix(refine, "+"):
		rule.Kind, suffix = component.RuleDirectChildrenExceptFirst, "ChildrenExceptFirst"
	case refine == ":not(:last-child)":
		rule.Kind, suffix = component.RuleDirectChildrenExceptLast, "ChildrenExceptLast"
	}
	if target != "*" {
		rule.TagFilter = target
		suffix = styleobj.Capitalize(target) + suffix
		l.sink.Report(diag.KindElementChildSelector, info.Name, key, info.Location())
	}
	if !direct {
		l.sink.Report(diag.KindUniversalApproximated, info.Name, key, info.Location())
	}
	rule.StyleKey = info.StyleKey + suffix
	info.AddExtra(rule.StyleKey, block.Clone())
	info.Rules = append(info.Rules, rule)
	l.sink.Report(diag.KindUniversalLowered, info.Name, key, info.Location())
	return true
}

// whenBlock moves every property of block under a relation condition.
// Branches that already carry conditions can not be combined and are dropped.
func (l *Lowerer) whenBlock(info *component.StyleInfo, block *styleobj.Object, when string) *styleobj.Object {
	out := styleobj.NewObject()
	block.Each(func(prop string, v styleobj.Value) {
		switch tv := v.(type) {
		case *styleobj.Conditional:
			c := styleobj.NewConditional(styleobj.Null{})
			if def := tv.Default(); def != nil {
				c.Set(when, def)
			}
			if tv.Len() > 1 {
				l.sink.Report(diag.KindNestedConditions, info.Name, prop+" "+when, info.Location())
			}
			out.Set(prop, c)
		case *styleobj.Object:
			out.Set(prop, l.whenBlock(info, tv, when))
		default:
			c := styleobj.NewConditional(styleobj.Null{})
			c.Set(when, v)
			out.Set(prop, c)
		}
	})
	return out
}

// descendant lowers "${Other}" and "&:pseudo ${Other}" into an entry applied
// to Other elements rendered inside this component.
func descendant(l *Lowerer, set *component.Set, info *component.StyleInfo, key string, block *styleobj.Object) bool {
	m := descendantRe.FindStringSubmatch(key)
	if m == nil {
		return false
	}
	pseudo, target := m[1], m[2]
	name := styleobj.LowerFirst(target) + "In" + info.Name
	style := block.Clone()
	if pseudo != "" {
		style = l.whenBlock(info, block, styleobj.WhenKey(styleobj.RelationAncestor, pseudo, ""))
		info.NeedsDefaultMarker = true
	}
	info.AddExtra(name, style)
	info.Rules = append(info.Rules, component.JSXRewriteRule{
		Kind:     component.RuleDescendantStyled,
		StyleKey: name,
		Target:   target,
	})

	rel := component.RelationOverride{
		ParentStyleKey:   info.StyleKey,
		ChildStyleKey:    styleobj.LowerFirst(target),
		OverrideStyleKey: name,
	}
	if child, ok := set.Get(target); ok {
		rel.ChildStyleKey = child.StyleKey
	} else {
		rel.CrossFile = true
		rel.CrossFileComponentLocalName = target
		kind := diag.KindUnknownComponentRef
		if l.opts.Imported(target) {
			kind = diag.KindCrossFileReference
		}
		l.sink.Report(kind, info.Name, target, info.Location())
	}
	info.Relations = append(info.Relations, rel)
	l.sink.Report(diag.KindDescendantLowered, info.Name, key, info.Location())
	return true
}

var attrOperatorWords = map[component.AttrOperator]string{
	component.AttrPrefix:   "Prefix",
	component.AttrSuffix:   "Suffix",
	component.AttrContains: "Contains",
}

// attribute lowers "&[attr]" and "&[attr op value]" selectors.
func attribute(l *Lowerer, _ *component.Set, info *component.StyleInfo, key string, block *styleobj.Object) bool {
	m := attributeRe.FindStringSubmatch(key)
	if m == nil {
		return false
	}
	attr, op := m[1], component.AttrOperator(m[2])
	value := m[3] + m[4] + m[5]
	pseudo, element := m[6], m[7]

	switch op {
	case component.AttrPresent, component.AttrEquals, component.AttrPrefix, component.AttrSuffix, component.AttrContains:
	default:
		l.sink.Report(diag.KindUnsupportedAttrOperator, info.Name, key, info.Location())
		return true
	}

	name := info.StyleKey + styleobj.Capitalize(styleobj.CamelCase(attr))
	name += attrOperatorWords[op]
	if value != "" {
		if s := slug.Make(value); s != "" {
			name += styleobj.Capitalize(styleobj.CamelCase(s))
		}
	}
	if element != "" {
		name += styleobj.Capitalize(styleobj.CamelCase(strings.TrimLeft(element, ":")))
	}

	style := block.Clone()
	if pseudo != "" {
		style = decide.WrapConditions(style, []string{pseudo})
	}
	if element != "" {
		wrapped := styleobj.NewObject()
		wrapped.Set(element, style)
		style = wrapped
	}
	info.AddExtra(name, style)
	info.AttrSelectors = append(info.AttrSelectors, component.AttrSelector{
		StyleKey: name,
		Attr:     attr,
		Operator: op,
		Value:    value,
	})
	info.RequireWrapper("attribute selector")
	l.sink.Report(diag.KindAttributeLowered, info.Name, key, info.Location())
	return true
}

// sibling lowers "& + &" and "&.cls ~ &".
func sibling(l *Lowerer, _ *component.Set, info *component.StyleInfo, key string, block *styleobj.Object) bool {
	m := siblingRe.FindStringSubmatch(key)
	if m == nil {
		if strings.ContainsAny(key, "+~") && strings.HasPrefix(key, "&") {
			l.sink.Report(diag.KindUnsupportedSibling, info.Name, key, info.Location())
			return true
		}
		return false
	}
	class, kind := strings.TrimPrefix(m[1], "."), component.SiblingGeneral
	if m[2] == "+" {
		kind = component.SiblingAdjacent
	}

	if l.opts.RelationMatching && class == "" {
		if info.Marker == "" {
			info.Marker = info.StyleKey + "Marker"
		}
		when := styleobj.WhenKey(styleobj.RelationSiblingBefore, ":is(*)", info.Marker)
		info.Style.Merge(l.whenBlock(info, block, when))
		ctx := key
		if kind == component.SiblingAdjacent {
			ctx += " (matches any preceding sibling)"
		}
		l.sink.Report(diag.KindSiblingRelationMarker, info.Name, ctx, info.Location())
		return true
	}

	sel := component.SiblingSelector{Kind: kind, ClassName: class}
	switch {
	case class != "":
		sel.Prop = "after" + styleobj.Capitalize(styleobj.CamelCase(class)) + "Sibling"
	case kind == component.SiblingAdjacent:
		sel.Prop = "isAdjacentSibling"
	default:
		sel.Prop = "isGeneralSibling"
	}
	sel.StyleKey = info.StyleKey + styleobj.Capitalize(sel.Prop)
	info.AddExtra(sel.StyleKey, block.Clone())
	info.SiblingSelectors = append(info.SiblingSelectors, sel)
	info.RequireWrapper("sibling selector")
	l.sink.Report(diag.KindSiblingLowered, info.Name, key, info.Location())
	return true
}

// specificity flattens "&&", "&&&" and ".ctx &&" into the base object.
// Doubled selectors followed by pseudo classes merge under that condition,
// anything else is retried by earlier passes with a single "&".
func specificity(l *Lowerer, set *component.Set, info *component.StyleInfo, key string, block *styleobj.Object) bool {
	m := specificityRe.FindStringSubmatch(key)
	if m == nil {
		return false
	}
	switch rest := m[2]; {
	case rest == "":
		info.Style.Merge(block)
	case pseudoRe.MatchString(rest):
		info.Style.Merge(decide.WrapConditions(block, []string{rest}))
	default:
		reduced := "&" + rest
		handled := false
		for _, fn := range []pass{universal, descendant, attribute, sibling} {
			if handled = fn(l, set, info, reduced, block); handled {
				break
			}
		}
		if !handled {
			return false
		}
	}
	info.Specificity = true
	info.RequireWrapper("specificity escalation")
	l.sink.Report(diag.KindSpecificityFlattened, info.Name, key, info.Location())
	if m[1] != "" {
		l.sink.Report(diag.KindSpecificityContextDropped, info.Name, m[1], info.Location())
	}
	return true
}

// ancestor bridges "${Parent}:pseudo &" through a custom property defined
// by the parent.
func ancestor(l *Lowerer, set *component.Set, info *component.StyleInfo, key string, block *styleobj.Object) bool {
	m := ancestorRe.FindStringSubmatch(key)
	if m == nil || m[2] == "" {
		return false
	}
	parentName, pseudo := m[1], m[2]
	parent, ok := set.Get(parentName)
	if !ok {
		kind := diag.KindUnknownComponentRef
		if l.opts.Imported(parentName) {
			kind = diag.KindCrossFileReference
		}
		l.sink.Report(kind, info.Name, parentName, info.Location())
		l.sink.Report(diag.KindUnsupportedSelector, info.Name, key, info.Location())
		return true
	}

	state := slug.Make(strings.ReplaceAll(pseudo, ":", " "))
	block.Each(func(prop string, v styleobj.Value) {
		if !styleobj.IsLeaf(v) {
			l.sink.Report(diag.KindUnsupportedSelector, info.Name, key+" "+prop, info.Location())
			return
		}
		name := "--" + styleobj.KebabCase(styleobj.LowerFirst(parent.Name)) + "-" + state + "-" + styleobj.KebabCase(styleobj.LowerFirst(info.Name)) + "-" + styleobj.KebabCase(prop)
		name = strings.ToLower(name)

		cur, has := info.Style.Get(prop)
		var base styleobj.Value
		if has {
			base = cur
			if c, isCond := cur.(*styleobj.Conditional); isCond {
				base = c.Default()
			}
		}
		bridged := bridge(name, prop, base)
		if c, isCond := cur.(*styleobj.Conditional); has && isCond {
			c.Set(styleobj.DefaultKey, bridged)
		} else {
			info.Style.Set(prop, bridged)
		}

		inj := component.CSSVarInjection{Target: parent.Name, Name: name, Condition: pseudo, Value: cssValue(prop, v)}
		info.Injections = append(info.Injections, inj)
		def := styleobj.NewConditional(styleobj.Null{})
		def.Set(pseudo, inj.Value)
		if existing, ok := parent.Style.Get(name); ok {
			c := styleobj.AsConditional(existing)
			c.Merge(def)
			parent.Style.Set(name, c)
		} else {
			parent.Style.Set(name, def)
		}
	})
	l.sink.Report(diag.KindAncestorPseudoBridged, info.Name, key, info.Location())
	return true
}

// bridge builds var(name, base) keeping expression bases as template literal.
func bridge(name, prop string, base styleobj.Value) styleobj.Value {
	switch b := base.(type) {
	case nil, styleobj.Null:
		return styleobj.String("var(" + name + ")")
	case styleobj.Expr:
		return styleobj.Expr("`var(" + name + ", ${" + string(b) + "})`")
	default:
		return styleobj.String("var(" + name + ", " + styleobj.Text(cssValue(prop, b)) + ")")
	}
}

// cssValue restores units of numeric values that leave their property.
func cssValue(prop string, v styleobj.Value) styleobj.Value {
	n, ok := v.(styleobj.Number)
	if !ok || styleobj.IsUnitless(prop) || n == 0 {
		return v
	}
	return styleobj.String(styleobj.Text(n) + "px")
}
