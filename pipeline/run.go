package pipeline

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"stylemig/classify"
	"stylemig/common"
	"stylemig/component"
	"stylemig/convert/stylemodel"
	"stylemig/css"
	"stylemig/decide"
	"stylemig/diag"
	"stylemig/host"
	"stylemig/lower"
	"stylemig/registry"
	"stylemig/styleobj"
	"stylemig/wrapper"
)

// run is the state of one file transformation.
type run struct {
	t    *Transformer
	log  *zap.Logger
	path string
	file *host.File
	sink *diag.Sink

	cctx    *classify.Context
	imports *decide.ImportSink
	conv    *stylemodel.Converter
	set     *component.Set

	keyframes []registry.Keyframes
	mixins    []registry.Mixin
	// declarations whose initializer is replaced or statement removed
	handled map[*host.Declaration]bool
	// mixin declarations that stay in source
	keptMixins map[string]bool
}

func newRun(t *Transformer, path string, f *host.File) *run {
	return &run{
		t:          t,
		log:        t.log.With(zap.String("file", path)),
		path:       path,
		file:       f,
		sink:       diag.NewSink(),
		imports:    &decide.ImportSink{},
		set:        component.NewSet(),
		handled:    make(map[*host.Declaration]bool),
		keptMixins: make(map[string]bool),
	}
}

func (r *run) wrapperOptions() wrapper.Options {
	return wrapper.Options{
		Namespace:  r.t.opts.Namespace,
		Identifier: r.t.opts.Identifier,
		Lang:       r.file.Lang,
		Attributes: r.t.opts.Attributes,
		Usage: func(name string) (wrapper.Usage, bool) {
			if r.t.opts.Usage == nil {
				return wrapper.Usage{}, false
			}
			return r.t.opts.Usage(r.path, name)
		},
	}
}

func (r *run) transform() (*Result, error) {
	r.t.scan(r.file, r.sink)
	r.context()

	engine := decide.NewEngine(r.t.adapter, r.t.opts.Fallback, r.imports, r.log)
	r.conv = stylemodel.NewConverter(engine, r.cctx, r.sink, r.log)
	r.conv.Locate = r.file.LocationOf

	for _, d := range r.file.Decls {
		if d.Kind == host.DeclKeyframes {
			r.keyframesDecl(d)
		}
	}
	for _, d := range r.file.Decls {
		if d.Kind == host.DeclCSS {
			r.mixinDecl(d)
		}
	}
	for _, d := range r.file.Decls {
		if d.Kind == host.DeclStyled {
			r.componentDecl(d)
		}
	}
	if r.set.Len() == 0 && len(r.keyframes) == 0 && len(r.mixins) == 0 {
		return &Result{Diagnostics: r.sink.Items()}, nil
	}

	planner := wrapper.NewPlanner(r.set, r.file, r.wrapperOptions(), r.sink, r.log)
	r.usage(planner)

	lower.New(lower.Options{
		RelationMatching: r.t.opts.RelationMatching,
		Imported:         func(name string) bool { return r.file.ImportOf(name) != nil },
	}, r.sink, r.log).Run(r.set)

	reg := registry.Aggregate(r.set, r.mixins, r.keyframes, r.sink, r.log)
	for _, info := range r.set.All() {
		for i := range info.StyleRefs {
			if n, ok := reg.MixinEntry(info.StyleRefs[i].Entry); ok {
				info.StyleRefs[i].Entry = n
			}
		}
	}

	plans := make(map[string]*wrapper.Plan)
	code := make(map[string]string)
	for _, info := range r.set.All() {
		plan, text, err := r.plan(planner, info)
		if err != nil {
			r.sink.Report(diag.KindWrapperSynthesisFailed, info.Name, err.Error(), info.Location())
			r.log.Debug("Component skipped", zap.String("component", info.Name), zap.Error(err))
			reg.RemoveComponent(info.Name)
			r.set.Remove(info.Name)
			continue
		}
		plans[info.Name] = plan
		info.NeedsWrapper, info.WrapperReasons = plan.Wrapper, plan.Reasons
		if text != "" {
			code[info.Name] = text
		}
	}
	if r.set.Len() == 0 && len(r.keyframes) == 0 && len(r.mixins) == 0 {
		// every component failed synthesis, source stays untouched
		return &Result{Diagnostics: r.sink.Items()}, nil
	}

	edits := r.declarationEdits(reg, plans, code)
	edits = append(edits, wrapper.NewRewriter(r.file, r.set, plans, r.wrapperOptions(), r.sink, r.log).Edits()...)
	out, err := host.Apply(r.file.Source, edits)
	if err != nil {
		return nil, fmt.Errorf("unable to rewrite %s: %w", r.path, err)
	}

	r.log.Debug("File transformed",
		zap.Int("components", r.set.Len()),
		zap.Int("entries", reg.Len()),
		zap.Int("diagnostics", r.sink.Len()))
	return &Result{
		Code:        out,
		Diagnostics: r.sink.Items(),
		Registry:    reg,
		Converted:   r.set.Names(),
		Wrapped:     r.wrapped(),
	}, nil
}

func (r *run) wrapped() []string {
	var out []string
	for _, info := range r.set.All() {
		if info.NeedsWrapper {
			out = append(out, info.Name)
		}
	}
	return out
}

// context collects names templates may reference.
func (r *run) context() {
	r.cctx = &classify.Context{
		Keyframes:  make(map[string]bool),
		Mixins:     make(map[string]bool),
		Components: make(map[string]bool),
		Imports:    make(map[string]string),
	}
	for _, d := range r.file.Decls {
		switch d.Kind {
		case host.DeclKeyframes:
			r.cctx.Keyframes[d.Name] = true
		case host.DeclCSS:
			r.cctx.Mixins[d.Name] = true
		case host.DeclStyled:
			r.cctx.Components[d.Name] = true
		}
	}
	for _, imp := range r.file.Imports {
		for _, l := range imp.Locals() {
			r.cctx.Imports[l] = imp.Source
			if l != "" && unicode.IsUpper([]rune(l)[0]) {
				r.cctx.Components[l] = true
			}
		}
	}
}

// plan builds render plan and wrapper code, panics of synthesis are turned
// into errors so one component never aborts the file.
func (r *run) plan(planner *wrapper.Planner, info *component.StyleInfo) (plan *wrapper.Plan, code string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("wrapper synthesis panicked: %v", rec)
		}
	}()
	plan, err = planner.Plan(info)
	if err != nil {
		return plan, "", err
	}
	code, err = wrapper.Render(plan, r.wrapperOptions())
	return plan, code, err
}

func (r *run) parse(d *host.Declaration) (*css.Template, error) {
	if d.Template == nil {
		return nil, fmt.Errorf("declaration %s has no template", d.Name)
	}
	tpl, err := r.conv.Parser().Parse(d.Template.Quasis, d.Template.Exprs, d.Name)
	if err != nil {
		return nil, err
	}
	if ce := r.log.Check(zap.DebugLevel, "Template parsed"); ce != nil {
		ce.Write(zap.String("declaration", d.Name), zap.String("tree", tpl.Dump()))
	}
	return tpl, nil
}

func (r *run) keyframesDecl(d *host.Declaration) {
	tpl, err := r.parse(d)
	if err != nil {
		r.sink.Report(diag.KindKeyframesParseError, d.Name, err.Error(), &d.Loc)
		delete(r.cctx.Keyframes, d.Name)
		return
	}
	frames := r.conv.ConvertKeyframes(d.Name, tpl, &d.Loc)
	r.keyframes = append(r.keyframes, registry.Keyframes{Name: d.Name, Frames: frames})
	r.handled[d] = true
}

func (r *run) mixinDecl(d *host.Declaration) {
	tpl, err := r.parse(d)
	if err != nil {
		r.sink.Report(diag.KindMixinParseError, d.Name, err.Error(), &d.Loc)
		delete(r.cctx.Mixins, d.Name)
		return
	}
	res := r.conv.ConvertMixin(d.Name, tpl, &d.Loc)
	style := styleobj.NewObject()
	for _, sr := range res.StyleRefs {
		i := slices.IndexFunc(r.mixins, func(m registry.Mixin) bool { return m.Name == sr.Entry })
		if i >= 0 {
			style.Merge(r.mixins[i].Style)
		}
	}
	style.Merge(res.Style)
	r.mixins = append(r.mixins, registry.Mixin{Name: d.Name, Style: style})
	r.handled[d] = true
}

func (r *run) componentDecl(d *host.Declaration) {
	if d.ObjectSyntax || d.Template == nil {
		return
	}
	attrs, ok := staticAttrs(d.Attrs)
	if !ok {
		return
	}
	tpl, err := r.parse(d)
	if err != nil {
		r.sink.Report(diag.KindTemplateParseError, d.Name, err.Error(), &d.Loc)
		return
	}
	res := r.conv.Convert(d.Name, tpl, &d.Loc)

	info := &component.StyleInfo{
		Name:     d.Name,
		Decl:     d,
		Tag:      d.Tag,
		Base:     d.Base,
		StyleKey: styleobj.LowerFirst(d.Name),
		Attrs:    attrs,
		Exported: d.Exported,
	}
	if d.Base != "" && !r.cctx.Components[d.Base] && r.file.ImportOf(rootName(d.Base)) == nil && len(r.file.Refs[rootName(d.Base)]) <= 1 {
		r.sink.Report(diag.KindUnresolvedBase, d.Name, d.Base, &d.Loc)
	}
	info.FilteredProps = filteredProps(d.Config)
	info.Apply(res, r.sink)
	r.set.Add(info)
	r.handled[d] = true
}

// usage marks polymorphic components and reports unused ones.
func (r *run) usage(planner *wrapper.Planner) {
	opts := r.wrapperOptions()
	for _, info := range r.set.All() {
		if u, ok := opts.Usage(info.Name); ok && u.As {
			info.SupportsAs = true
		}
		uses := planner.Usages(info.Name)
		for _, el := range uses {
			if _, ok := el.Attr("as"); ok {
				info.SupportsAs = true
			}
			if _, ok := el.Attr("forwardedAs"); ok {
				info.SupportsAs = true
			}
		}
		if len(uses) == 0 && len(planner.ValueRefs(info.Name)) == 0 && !info.Exported {
			r.sink.Report(diag.KindUnusedComponent, info.Name, "", info.Location())
		}
	}
	for _, name := range r.set.PropagateAs() {
		info, _ := r.set.Get(name)
		r.sink.Report(diag.KindAsInherited, name, info.Base, info.Location())
	}
}

func rootName(expr string) string {
	name, _, _ := strings.Cut(expr, ".")
	return name
}

// staticAttrs accepts .attrs({...}) with plain keys, function attrs and
// spreads are not convertible.
func staticAttrs(e *host.Expr) ([]host.Property, bool) {
	if e == nil {
		return nil, true
	}
	if !e.Is(host.ExprObject) {
		return nil, false
	}
	var out []host.Property
	for _, p := range e.Props {
		if p.Spread || p.Value == nil || p.Value.Is(host.ExprArrow) {
			return nil, false
		}
		out = append(out, p)
	}
	return out, true
}

// filteredProps extracts string literals from shouldForwardProp, those are
// the names the predicate tests against.
func filteredProps(cfg *host.Expr) []string {
	if !cfg.Is(host.ExprObject) {
		return nil
	}
	for _, p := range cfg.Props {
		if p.Key != "shouldForwardProp" || p.Value == nil {
			continue
		}
		var names []string
		p.Value.Walk(func(e *host.Expr) bool {
			if e.Is(host.ExprString) && e.Value != "" && !slices.Contains(names, e.Value) {
				names = append(names, e.Value)
			}
			return true
		})
		return names
	}
	return nil
}

// declarationEdits rewrites declarations, imports and inserts the registry.
func (r *run) declarationEdits(reg *registry.Registry, plans map[string]*wrapper.Plan, code map[string]string) []host.Edit {
	src := r.file.Source
	emit := registry.EmitOptions{
		Namespace:  r.t.opts.Namespace,
		Identifier: r.t.opts.Identifier,
		TypeScript: r.file.Lang != common.SourceLangJavaScript,
	}

	var (
		edits  []host.Edit
		anchor = -1
		// anchorKept is set when statement before registry stays in place
		anchorKept bool
	)
	remove := func(d *host.Declaration) {
		edits = append(edits, host.Edit{Start: d.StmtStart, End: host.LineEnd(src, d.StmtEnd)})
	}
	for _, d := range r.file.Decls {
		if !r.handled[d] {
			continue
		}
		kept := true
		switch d.Kind {
		case host.DeclKeyframes:
			text, ok := reg.EmitKeyframes(d.Name, emit)
			if !ok {
				continue
			}
			edits = append(edits, host.Edit{Start: d.InitStart, End: d.InitEnd, Text: text})
		case host.DeclCSS:
			if d.Shared || d.Exported || r.referencedOutside(d.Name) {
				r.keptMixins[d.Name] = true
				continue
			}
			remove(d)
			kept = false
		case host.DeclStyled:
			if _, ok := plans[d.Name]; !ok {
				continue
			}
			if text, ok := code[d.Name]; ok {
				edits = append(edits, host.Edit{Start: d.InitStart, End: d.InitEnd, Text: text})
			} else {
				remove(d)
				kept = false
			}
		}
		if end := host.LineEnd(src, d.StmtEnd); end > anchor {
			anchor, anchorKept = end, kept
			if end == d.StmtEnd {
				// statement is not followed by newline
				anchorKept = true
			}
		}
	}

	if text := reg.Emit(emit); text != "" && anchor >= 0 {
		if anchorKept {
			text = "\n" + text
		}
		edits = append(edits, host.Edit{Start: anchor, End: anchor, Text: text})
	}
	return append(edits, r.importEdits()...)
}

// referencedOutside reports references to name outside converted
// declarations.
func (r *run) referencedOutside(name string) bool {
	d := r.file.Decl(name)
	for _, off := range r.file.Refs[name] {
		if d != nil && off == d.NameStart {
			continue
		}
		if !r.insideHandled(off) {
			return true
		}
	}
	return false
}

func (r *run) insideHandled(off int) bool {
	for d := range r.handled {
		if !r.converted(d) {
			continue
		}
		if off >= d.InitStart && off < d.InitEnd {
			return true
		}
	}
	return false
}

// converted reports declarations whose initializer no longer exists in
// output.
func (r *run) converted(d *host.Declaration) bool {
	switch d.Kind {
	case host.DeclStyled:
		return r.set.Has(d.Name)
	case host.DeclCSS:
		return !r.keptMixins[d.Name]
	}
	return true
}

// importEdits adds runtime and adapter imports, the styling library import
// is replaced when nothing references it anymore.
func (r *run) importEdits() []host.Edit {
	stmts := []string{decide.Import{Source: r.t.opts.ImportSource, Namespace: r.t.opts.Namespace}.Statement()}
	for _, imp := range r.imports.Items() {
		stmts = append(stmts, imp.Statement())
	}
	text := strings.Join(stmts, "\n")

	styled := r.file.StyledImport()
	if styled != nil && !r.styledStillUsed(styled) {
		return []host.Edit{{Start: styled.Start, End: styled.End, Text: text}}
	}
	if r.file.ImportsEnd == 0 {
		return []host.Edit{{Start: 0, End: 0, Text: text + "\n\n"}}
	}
	return []host.Edit{{Start: r.file.ImportsEnd, End: r.file.ImportsEnd, Text: "\n" + text}}
}

func (r *run) styledStillUsed(imp *host.Import) bool {
	for _, local := range imp.Locals() {
		for _, off := range r.file.Refs[local] {
			if !r.insideHandled(off) {
				return true
			}
		}
	}
	return false
}
