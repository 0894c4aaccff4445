package wrapper

import (
	"fmt"
	"strings"

	"stylemig/common"
	"stylemig/host"
	"stylemig/styleobj"
)

// PropsCall renders the style application expression for refs.
func PropsCall(namespace string, refs []Ref) string {
	args := make([]string, 0, len(refs))
	for _, r := range refs {
		args = append(args, r.String())
	}
	return namespace + ".props(" + strings.Join(args, ", ") + ")"
}

// attrValue renders static attribute as JSX attribute text.
func attrValue(p host.Property) string {
	if p.Value == nil {
		return p.Key
	}
	if p.Value.Is(host.ExprString) {
		return p.Key + "=" + styleobj.Quote(p.Value.Value)
	}
	return p.Key + "={" + p.Value.Source + "}"
}

func param(opts Options) string {
	if opts.Lang != common.SourceLangJavaScript {
		return "props: Record<string, any>"
	}
	return "props"
}

func validate(plan *Plan, code string, opts Options) (string, error) {
	if err := host.Validate("const "+plan.Component+" = "+code+";", opts.Lang); err != nil {
		return "", fmt.Errorf("generated wrapper for %s does not parse: %w", plan.Component, err)
	}
	return code, nil
}

// Render generates component replacing the styled declaration initializer:
// a full wrapper, or a forwarding component when exported declaration needs
// no wrapper. The result is validated by parsing it in the file dialect.
func Render(plan *Plan, opts Options) (string, error) {
	if !plan.Wrapper {
		if !plan.Exported {
			return "", nil
		}
		return renderForward(plan, opts)
	}
	ns := opts.namespace()
	ind := "  "

	element := plan.Element
	if !plan.Foreign {
		element = styleobj.Quote(plan.Element)
	}

	var destructure []string
	render := plan.Element
	if plan.As {
		destructure = append(destructure, "as: Component = "+element)
		render = "Component"
	}
	destructure = append(destructure, "className", "style")
	for _, b := range plan.Props {
		if b.Local == b.Prop {
			destructure = append(destructure, b.Prop)
		} else {
			destructure = append(destructure, styleobj.Quote(b.Prop)+": "+b.Local)
		}
	}
	destructure = append(destructure, "...rest")

	var b strings.Builder
	b.WriteString("(" + param(opts) + ") => {\n")
	b.WriteString(ind + "const { " + strings.Join(destructure, ", ") + " } = props;\n")
	b.WriteString(ind + "const sx = " + PropsCall(ns, plan.Refs) + ";\n")
	b.WriteString(ind + "return (\n")
	b.WriteString(ind + ind + "<" + render + "\n")
	attr := func(s string) {
		b.WriteString(strings.Repeat(ind, 3) + s + "\n")
	}
	for _, a := range plan.Attrs {
		attr(attrValue(a))
	}
	attr("{...rest}")
	for _, p := range plan.Props {
		if p.Forward {
			attr(p.Prop + "={" + p.Local + "}")
		}
	}
	attr("{...sx}")
	attr(`className={[sx.className, className].filter(Boolean).join(" ")}`)
	style := []string{"...sx.style"}
	for _, in := range plan.Inline {
		style = append(style, styleobj.Printer{}.Key(in.Property)+": "+in.Expr)
	}
	style = append(style, "...style")
	attr("style={{ " + strings.Join(style, ", ") + " }}")
	b.WriteString(ind + ind + "/>\n")
	b.WriteString(ind + ");\n")
	b.WriteString("}")

	return validate(plan, b.String(), opts)
}

// renderForward renders exported component whose consumers pass neither
// className, style nor as. Static attrs stay overridable by props.
func renderForward(plan *Plan, opts Options) (string, error) {
	parts := []string{"<" + plan.Element}
	for _, a := range plan.Attrs {
		parts = append(parts, attrValue(a))
	}
	parts = append(parts, "{...props}")
	if len(plan.Refs) > 0 {
		parts = append(parts, "{..."+PropsCall(opts.namespace(), plan.Refs)+"}")
	}
	return validate(plan, "("+param(opts)+") => "+strings.Join(parts, " ")+" />", opts)
}
