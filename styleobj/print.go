package styleobj

import (
	"strings"
	"unicode"
)

// Printer renders style objects as JavaScript object literals.
type Printer struct {
	// Runtime namespace used for relation condition keys, "stylex" by default.
	Namespace string
	Indent    string
}

func (p Printer) namespace() string {
	if p.Namespace == "" {
		return "stylex"
	}
	return p.Namespace
}

func (p Printer) indent(depth int) string {
	unit := p.Indent
	if unit == "" {
		unit = "  "
	}
	return strings.Repeat(unit, depth)
}

// Quote produces double quoted JavaScript string literal.
func Quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// IsIdentifier reports whether s can be used as bare object key.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || r == '$' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

// Key renders object key.
func (p Printer) Key(k string) string {
	if rel, pseudo, marker, ok := ParseWhenKey(k); ok {
		args := Quote(pseudo)
		if marker != "" {
			args += ", " + marker
		}
		return "[" + p.namespace() + ".when." + string(rel) + "(" + args + ")]"
	}
	if IsIdentifier(k) {
		return k
	}
	return Quote(k)
}

// Value renders value at nesting depth.
func (p Printer) Value(v Value, depth int) string {
	switch t := v.(type) {
	case String:
		return Quote(string(t))
	case Number:
		return Text(t)
	case Null:
		return "null"
	case Expr:
		return string(t)
	case *Object:
		return p.Object(t, depth)
	case *Conditional:
		return p.Object(t.entries, depth)
	}
	return "undefined"
}

// Object renders multi line object literal, depth is nesting of the opening
// brace.
func (p Printer) Object(o *Object, depth int) string {
	if o.Len() == 0 {
		return "{}"
	}
	var b strings.Builder
	b.WriteString("{\n")
	o.Each(func(k string, v Value) {
		b.WriteString(p.indent(depth + 1))
		b.WriteString(p.Key(k))
		b.WriteString(": ")
		b.WriteString(p.Value(v, depth+1))
		b.WriteString(",\n")
	})
	b.WriteString(p.indent(depth))
	b.WriteString("}")
	return b.String()
}

// Inline renders object on one line, used inside JSX attributes.
func (p Printer) Inline(o *Object) string {
	if o.Len() == 0 {
		return "{}"
	}
	parts := make([]string, 0, o.Len())
	o.Each(func(k string, v Value) {
		var val string
		switch t := v.(type) {
		case *Object:
			val = p.Inline(t)
		case *Conditional:
			val = p.Inline(t.entries)
		default:
			val = p.Value(v, 0)
		}
		parts = append(parts, p.Key(k)+": "+val)
	})
	return "{ " + strings.Join(parts, ", ") + " }"
}
