package host

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"stylemig/common"
	"stylemig/diag"
)

// Import sources recognized as the runtime styling library.
var StyledSources = []string{"styled-components", "styled-components/native", "@emotion/styled"}

type ImportSpec struct {
	Imported string
	Local    string
}

type Import struct {
	Source    string
	Default   string
	Namespace string
	Named     []ImportSpec
	TypeOnly  bool
	Start     int
	End       int
}

// Local returns local binding for an imported name.
func (i *Import) Local(imported string) (string, bool) {
	if imported == "default" && i.Default != "" {
		return i.Default, true
	}
	for _, s := range i.Named {
		if s.Imported == imported {
			return s.Local, true
		}
	}
	return "", false
}

// Locals lists every local name the import binds.
func (i *Import) Locals() []string {
	var out []string
	if i.Default != "" {
		out = append(out, i.Default)
	}
	if i.Namespace != "" {
		out = append(out, i.Namespace)
	}
	for _, s := range i.Named {
		out = append(out, s.Local)
	}
	return out
}

type DeclKind int

const (
	DeclStyled DeclKind = iota
	DeclCSS
	DeclKeyframes
	DeclGlobal
)

func (k DeclKind) String() string {
	switch k {
	case DeclStyled:
		return "styled"
	case DeclCSS:
		return "css"
	case DeclKeyframes:
		return "keyframes"
	case DeclGlobal:
		return "global"
	}
	return "unknown"
}

// Declaration is one `const Name = styled.tag`...`` style binding.
type Declaration struct {
	Kind DeclKind
	Name string
	Tag  string // host element for styled.tag and styled("tag")
	Base string // base component for styled(Base)

	Template     *Expr // tagged template, nil for object syntax
	Attrs        *Expr
	Config       *Expr
	ObjectSyntax bool

	Exported bool
	Shared   bool // statement declares more than one binding

	StmtStart int
	StmtEnd   int
	InitStart int
	InitEnd   int
	NameStart int
	Loc       diag.Location
}

type JSXAttr struct {
	Name   string
	Value  *Expr // nil for boolean shorthand, string literal or expression container content
	Spread bool
	Start  int
	End    int
}

type JSXElement struct {
	Name           string // empty for fragments
	NameStart      int
	NameEnd        int
	CloseNameStart int
	CloseNameEnd   int
	SelfClosing    bool
	Attrs          []JSXAttr
	InsertAt       int // where new attributes go
	Start          int
	End            int
	Parent         int
	Children       []int // element indexes, -1 marks non element content
	Loc            diag.Location
}

func (e *JSXElement) Attr(name string) (JSXAttr, bool) {
	for _, a := range e.Attrs {
		if !a.Spread && a.Name == name {
			return a, true
		}
	}
	return JSXAttr{}, false
}

func (e *JSXElement) HasSpread() bool {
	for _, a := range e.Attrs {
		if a.Spread {
			return true
		}
	}
	return false
}

// MemberUse is a property access of interest, such as X.withComponent.
type MemberUse struct {
	Object   string
	Property string
	Loc      diag.Location
}

type File struct {
	Source   []byte
	Lang     common.SourceLang
	Imports  []*Import
	Decls    []*Declaration
	Elements []*JSXElement
	// byte offsets of every identifier occurrence outside import statements
	Refs    map[string][]int
	Members []MemberUse
	// end of the last top level import statement, 0 when there is none
	ImportsEnd int
}

// StyledImport returns the import of the runtime styling library.
func (f *File) StyledImport() *Import {
	for _, imp := range f.Imports {
		for _, s := range StyledSources {
			if imp.Source == s {
				return imp
			}
		}
	}
	return nil
}

func (f *File) Decl(name string) *Declaration {
	for _, d := range f.Decls {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// ImportOf returns import that binds local name.
func (f *File) ImportOf(local string) *Import {
	for _, imp := range f.Imports {
		for _, l := range imp.Locals() {
			if l == local {
				return imp
			}
		}
	}
	return nil
}

// LocationOf converts byte offset to line and column.
func (f *File) LocationOf(offset int) diag.Location {
	line, col := 1, 1
	for i := 0; i < offset && i < len(f.Source); i++ {
		if f.Source[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return diag.Location{Line: line, Column: col, Offset: offset}
}

// ParseFile parses host source and collects everything style migration needs.
func ParseFile(ctx context.Context, src []byte, lang common.SourceLang) (*File, error) {
	tree, root, err := parse(ctx, lang, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	f := &File{Source: src, Lang: lang, Refs: make(map[string][]int)}
	s := &scanner{file: f, conv: converter{src: src}}

	for i := range root.NamedChildCount() {
		if n := root.NamedChild(i); n.Type() == "import_statement" {
			f.Imports = append(f.Imports, s.importStmt(n))
			f.ImportsEnd = int(n.EndByte())
		}
	}
	s.styled = f.StyledImport()

	exported := make(map[string]bool)
	for i := range root.NamedChildCount() {
		n := root.NamedChild(i)
		switch n.Type() {
		case "lexical_declaration", "variable_declaration":
			s.declarations(n, n, false)
		case "export_statement":
			if d := n.ChildByFieldName("declaration"); !d.IsNull() {
				if d.Type() == "lexical_declaration" || d.Type() == "variable_declaration" {
					s.declarations(d, n, true)
				}
				continue
			}
			s.exportNames(n, exported)
		}
	}
	for _, d := range f.Decls {
		if exported[d.Name] {
			d.Exported = true
		}
	}

	s.walk(root, -1)
	return f, nil
}

type scanner struct {
	file   *File
	conv   converter
	styled *Import
}

func (s *scanner) text(n sitter.Node) string {
	return s.conv.text(n)
}

func (s *scanner) loc(n sitter.Node) diag.Location {
	p := n.StartPoint()
	return diag.Location{Line: int(p.Row) + 1, Column: int(p.Column) + 1, Offset: int(n.StartByte())}
}

func (s *scanner) importStmt(n sitter.Node) *Import {
	imp := &Import{Start: int(n.StartByte()), End: int(n.EndByte())}
	if src := n.ChildByFieldName("source"); !src.IsNull() {
		imp.Source = strings.Trim(s.text(src), `"'`)
	}
	for i := range n.ChildCount() {
		ch := n.Child(i)
		if !ch.IsNamed() && s.text(ch) == "type" {
			imp.TypeOnly = true
		}
		if ch.Type() != "import_clause" {
			continue
		}
		for j := range ch.NamedChildCount() {
			c := ch.NamedChild(j)
			switch c.Type() {
			case "identifier":
				imp.Default = s.text(c)
			case "namespace_import":
				if c.NamedChildCount() > 0 {
					imp.Namespace = s.text(c.NamedChild(c.NamedChildCount() - 1))
				}
			case "named_imports":
				for k := range c.NamedChildCount() {
					spec := c.NamedChild(k)
					if spec.Type() != "import_specifier" {
						continue
					}
					name := s.text(spec.ChildByFieldName("name"))
					local := name
					if alias := spec.ChildByFieldName("alias"); !alias.IsNull() {
						local = s.text(alias)
					}
					if name == "default" && imp.Default == "" {
						imp.Default = local
						continue
					}
					imp.Named = append(imp.Named, ImportSpec{Imported: name, Local: local})
				}
			}
		}
	}
	return imp
}

func (s *scanner) exportNames(n sitter.Node, out map[string]bool) {
	for i := range n.NamedChildCount() {
		ch := n.NamedChild(i)
		switch ch.Type() {
		case "identifier":
			// export default Name
			out[s.text(ch)] = true
		case "export_clause":
			for j := range ch.NamedChildCount() {
				spec := ch.NamedChild(j)
				if name := spec.ChildByFieldName("name"); !name.IsNull() {
					out[s.text(name)] = true
				}
			}
		}
	}
}

func (s *scanner) declarations(n, stmt sitter.Node, exported bool) {
	if s.styled == nil {
		return
	}
	var declarators []sitter.Node
	for i := range n.NamedChildCount() {
		if ch := n.NamedChild(i); ch.Type() == "variable_declarator" {
			declarators = append(declarators, ch)
		}
	}
	for _, vd := range declarators {
		name, value := vd.ChildByFieldName("name"), vd.ChildByFieldName("value")
		if name.IsNull() || value.IsNull() || name.Type() != "identifier" {
			continue
		}
		d := s.declaration(value)
		if d == nil {
			continue
		}
		d.Name = s.text(name)
		d.NameStart = int(name.StartByte())
		d.Exported = exported
		d.Shared = len(declarators) > 1
		d.StmtStart, d.StmtEnd = int(stmt.StartByte()), int(stmt.EndByte())
		d.InitStart, d.InitEnd = int(value.StartByte()), int(value.EndByte())
		d.Loc = s.loc(vd)
		s.file.Decls = append(s.file.Decls, d)
	}
}

// declaration recognizes value of a declarator as one of styling library
// constructs.
func (s *scanner) declaration(value sitter.Node) *Declaration {
	e := s.conv.expr(value)
	switch e.Kind {
	case ExprTaggedTemplate:
		if name, ok := s.helperName(e.Tag); ok {
			d := &Declaration{Template: e}
			switch name {
			case "css":
				d.Kind = DeclCSS
			case "keyframes":
				d.Kind = DeclKeyframes
			case "createGlobalStyle", "injectGlobal":
				d.Kind = DeclGlobal
			default:
				return nil
			}
			return d
		}
		d := &Declaration{Kind: DeclStyled, Template: e}
		if !s.styledTag(e.Tag, d) {
			return nil
		}
		return d
	case ExprCall:
		// styled.div({...}) and styled.div(props => ({...}))
		d := &Declaration{Kind: DeclStyled, ObjectSyntax: true}
		if !s.styledTag(e.Callee, d) {
			return nil
		}
		return d
	}
	return nil
}

func (s *scanner) helperName(e *Expr) (string, bool) {
	if !e.Is(ExprIdentifier) {
		return "", false
	}
	for _, spec := range s.styled.Named {
		if spec.Local == e.Name {
			return spec.Imported, true
		}
	}
	return "", false
}

// styledTag unwraps styled.tag, styled(Base), .attrs(...) and
// .withConfig(...) chains.
func (s *scanner) styledTag(e *Expr, d *Declaration) bool {
	styledName := s.styled.Default
	if styledName == "" {
		styledName, _ = s.styled.Local("styled")
	}
	if styledName == "" {
		return false
	}
	for e != nil {
		switch e.Kind {
		case ExprMember:
			if e.Object.Is(ExprIdentifier) && e.Object.Name == styledName {
				d.Tag = e.Name
				return true
			}
			return false
		case ExprCall:
			if e.Callee.Is(ExprIdentifier) && e.Callee.Name == styledName {
				if len(e.Args) != 1 {
					return false
				}
				switch arg := e.Args[0]; arg.Kind {
				case ExprString:
					d.Tag = arg.Value
				case ExprIdentifier, ExprMember:
					d.Base = arg.Source
				default:
					return false
				}
				return true
			}
			if !e.Callee.Is(ExprMember) {
				return false
			}
			switch e.Callee.Name {
			case "attrs":
				if len(e.Args) > 0 && d.Attrs == nil {
					d.Attrs = e.Args[0]
				}
			case "withConfig":
				if len(e.Args) > 0 && d.Config == nil {
					d.Config = e.Args[0]
				}
			default:
				return false
			}
			e = e.Callee.Object
		default:
			return false
		}
	}
	return false
}

func (s *scanner) walk(n sitter.Node, parent int) {
	switch n.Type() {
	case "import_statement":
		return
	case "identifier":
		name := s.text(n)
		s.file.Refs[name] = append(s.file.Refs[name], int(n.StartByte()))
		return
	case "member_expression":
		if prop := n.ChildByFieldName("property"); !prop.IsNull() {
			obj := n.ChildByFieldName("object")
			s.file.Members = append(s.file.Members, MemberUse{Object: s.text(obj), Property: s.text(prop), Loc: s.loc(prop)})
		}
	case "jsx_element", "jsx_self_closing_element":
		idx := s.element(n, parent)
		s.children(n, idx)
		return
	}
	for i := range n.NamedChildCount() {
		s.walk(n.NamedChild(i), parent)
	}
}

func (s *scanner) element(n sitter.Node, parent int) int {
	el := &JSXElement{
		Start:          int(n.StartByte()),
		End:            int(n.EndByte()),
		Parent:         parent,
		CloseNameStart: -1,
		CloseNameEnd:   -1,
		Loc:            s.loc(n),
	}
	open := n
	if n.Type() == "jsx_self_closing_element" {
		el.SelfClosing = true
	} else {
		open = n.ChildByFieldName("open_tag")
		if open.IsNull() && n.NamedChildCount() > 0 {
			open = n.NamedChild(0)
		}
		closing := n.ChildByFieldName("close_tag")
		if closing.IsNull() && n.NamedChildCount() > 1 {
			closing = n.NamedChild(n.NamedChildCount() - 1)
		}
		if !closing.IsNull() && closing.Type() == "jsx_closing_element" {
			if cn := closing.ChildByFieldName("name"); !cn.IsNull() {
				el.CloseNameStart, el.CloseNameEnd = int(cn.StartByte()), int(cn.EndByte())
			}
		}
	}

	el.InsertAt = int(open.EndByte()) - 1
	if el.SelfClosing {
		el.InsertAt = int(open.EndByte()) - 2
	}
	if name := open.ChildByFieldName("name"); !name.IsNull() {
		el.Name = s.text(name)
		el.NameStart, el.NameEnd = int(name.StartByte()), int(name.EndByte())
		el.InsertAt = el.NameEnd
		if name.Type() == "identifier" {
			s.file.Refs[el.Name] = append(s.file.Refs[el.Name], el.NameStart)
		}
	}
	for i := range open.NamedChildCount() {
		ch := open.NamedChild(i)
		switch ch.Type() {
		case "jsx_attribute":
			el.Attrs = append(el.Attrs, s.attribute(ch))
			el.InsertAt = int(ch.EndByte())
		case "jsx_expression":
			a := JSXAttr{Spread: true, Start: int(ch.StartByte()), End: int(ch.EndByte())}
			if ch.NamedChildCount() > 0 {
				inner := ch.NamedChild(0)
				if inner.Type() == "spread_element" && inner.NamedChildCount() > 0 {
					inner = inner.NamedChild(0)
				}
				a.Value = s.conv.expr(inner)
				s.walk(inner, -1)
			}
			el.Attrs = append(el.Attrs, a)
			el.InsertAt = int(ch.EndByte())
		}
	}

	s.file.Elements = append(s.file.Elements, el)
	idx := len(s.file.Elements) - 1
	if parent >= 0 {
		s.file.Elements[parent].Children = append(s.file.Elements[parent].Children, idx)
	}
	return idx
}

func (s *scanner) attribute(n sitter.Node) JSXAttr {
	a := JSXAttr{Start: int(n.StartByte()), End: int(n.EndByte())}
	for i := range n.NamedChildCount() {
		ch := n.NamedChild(i)
		if i == 0 {
			a.Name = s.text(ch)
			continue
		}
		switch ch.Type() {
		case "string":
			a.Value = s.conv.expr(ch)
		case "jsx_expression":
			if ch.NamedChildCount() > 0 {
				a.Value = s.conv.expr(ch.NamedChild(0))
				s.walk(ch.NamedChild(0), -1)
			}
		default:
			a.Value = s.conv.expr(ch)
			s.walk(ch, -1)
		}
	}
	return a
}

func (s *scanner) children(n sitter.Node, idx int) {
	if n.Type() == "jsx_self_closing_element" {
		return
	}
	for i := range n.NamedChildCount() {
		ch := n.NamedChild(i)
		switch ch.Type() {
		case "jsx_opening_element", "jsx_closing_element":
			continue
		case "jsx_element", "jsx_self_closing_element":
			s.walk(ch, idx)
		case "jsx_text":
			if strings.TrimSpace(s.text(ch)) != "" {
				s.file.Elements[idx].Children = append(s.file.Elements[idx].Children, -1)
			}
		default:
			s.file.Elements[idx].Children = append(s.file.Elements[idx].Children, -1)
			s.walk(ch, -1)
		}
	}
}

func (d *Declaration) String() string {
	switch {
	case d.Tag != "":
		return fmt.Sprintf("%s(%s %s)", d.Kind, d.Name, d.Tag)
	case d.Base != "":
		return fmt.Sprintf("%s(%s %s)", d.Kind, d.Name, d.Base)
	}
	return fmt.Sprintf("%s(%s)", d.Kind, d.Name)
}
