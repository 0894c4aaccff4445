package registry

import (
	"strings"

	"stylemig/styleobj"
)

// EmitOptions controls generated registry text.
type EmitOptions struct {
	// Namespace is the runtime import binding, "stylex" by default.
	Namespace string
	// Identifier of the created registry, "styles" by default.
	Identifier string
	// TypeScript adds parameter annotations to dynamic entries.
	TypeScript bool
	Indent     string
}

func (o EmitOptions) printer() styleobj.Printer {
	return styleobj.Printer{Namespace: o.namespace(), Indent: o.Indent}
}

func (o EmitOptions) namespace() string {
	if o.Namespace == "" {
		return "stylex"
	}
	return o.Namespace
}

func (o EmitOptions) identifier() string {
	if o.Identifier == "" {
		return "styles"
	}
	return o.Identifier
}

// EmitKeyframes renders keyframes call replacing the original declaration
// initializer.
func (r *Registry) EmitKeyframes(name string, opts EmitOptions) (string, bool) {
	e, ok := r.keyframes.Get(name)
	if !ok {
		return "", false
	}
	return opts.namespace() + ".keyframes(" + opts.printer().Object(e.Style, 0) + ")", true
}

// Emit renders marker definitions followed by the registry creation
// statement. Empty registry produces markers only.
func (r *Registry) Emit(opts EmitOptions) string {
	p := opts.printer()
	ns := opts.namespace()

	var b strings.Builder
	for _, m := range r.markers {
		b.WriteString("const " + m + " = " + ns + ".defineMarker();\n")
	}
	if r.entries.Len() == 0 {
		return b.String()
	}
	if len(r.markers) > 0 {
		b.WriteString("\n")
	}

	ind := opts.Indent
	if ind == "" {
		ind = "  "
	}
	b.WriteString("const " + opts.identifier() + " = " + ns + ".create({\n")
	for _, e := range r.entries.AllFromFront() {
		b.WriteString(ind + p.Key(e.Name) + ": ")
		switch e.Kind {
		case EntryDynamic:
			d := e.Dynamic
			param := d.Param
			if opts.TypeScript && d.ParamType != "" {
				param += ": " + d.ParamType
			}
			b.WriteString("(" + param + ") => (" + p.Object(d.DynamicBody(), 1) + ")")
		default:
			b.WriteString(p.Object(e.Style, 1))
		}
		b.WriteString(",\n")
	}
	b.WriteString("});\n")
	return b.String()
}
