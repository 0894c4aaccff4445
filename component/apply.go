package component

import (
	"strconv"

	"stylemig/convert/stylemodel"
	"stylemig/decide"
	"stylemig/diag"
	"stylemig/styleobj"
)

// Apply fills info from converted template. Variant decisions sharing a
// guard merge into one entry, name clashes between different guards get a
// numeric suffix.
func (s *StyleInfo) Apply(res *stylemodel.Result, sink *diag.Sink) {
	s.Result = res
	s.Style = res.Style
	s.Escapes = append(s.Escapes, res.Escapes...)
	s.StyleRefs = append(s.StyleRefs, res.StyleRefs...)

	for _, d := range res.Variants {
		for _, v := range d.Variants {
			s.addVariant(Variant{
				Name:       v.Name,
				PropName:   d.PropName,
				Comparison: d.ComparisonValue,
				Truthy:     v.Truthy,
				Style:      v.Styles,
			}, sink)
		}
	}

	for _, fn := range res.DynamicFns {
		d := fn.Decision
		name := s.StyleKey + styleobj.Capitalize(fn.Property)
		if len(fn.Keys) > 0 {
			name += "Conditional"
		}
		s.DynamicFns = append(s.DynamicFns, DynamicStyle{
			Name:       s.uniqueDynamic(name),
			PropName:   d.PropName,
			Param:      d.ParamName,
			ParamType:  d.ParamType,
			Expression: d.ValueExpression,
			Property:   fn.Property,
			Keys:       fn.Keys,
			Fallback:   d.FallbackValue,
		})
	}
}

func (s *StyleInfo) uniqueDynamic(name string) string {
	n, i := name, 2
	for s.hasDynamic(n) {
		n = name + strconv.Itoa(i)
		i++
	}
	return n
}

func (s *StyleInfo) hasDynamic(name string) bool {
	for _, d := range s.DynamicFns {
		if d.Name == name {
			return true
		}
	}
	return false
}

func (s *StyleInfo) addVariant(v Variant, sink *diag.Sink) {
	for i := range s.Variants {
		cur := &s.Variants[i]
		if cur.Name != v.Name {
			continue
		}
		if cur.PropName == v.PropName && cur.Comparison == v.Comparison && cur.Truthy == v.Truthy {
			cur.Style.Merge(v.Style)
			return
		}
		sink.Report(diag.KindVariantNameCollision, s.Name, v.Name, s.Location())
		base, n := v.Name, 2
		for s.hasVariant(v.Name) {
			v.Name = base + strconv.Itoa(n)
			n++
		}
		break
	}
	s.Variants = append(s.Variants, v)
}

func (s *StyleInfo) hasVariant(name string) bool {
	for _, v := range s.Variants {
		if v.Name == name {
			return true
		}
	}
	return false
}

// DynamicBody builds style object returned by dynamic entry.
func (d *DynamicStyle) DynamicBody() *styleobj.Object {
	body := styleobj.NewObject()
	body.Set(d.Property, styleobj.Expr(d.Expression))
	return decide.WrapConditions(body, d.Keys)
}
