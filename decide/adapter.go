package decide

import (
	"slices"
	"strings"

	"stylemig/classify"
)

// Import is a module import generated code depends on.
type Import struct {
	Source    string
	Default   string
	Namespace string
	Names     []string
}

// Statement renders import declaration.
func (i Import) Statement() string {
	var parts []string
	if i.Default != "" {
		parts = append(parts, i.Default)
	}
	if i.Namespace != "" {
		parts = append(parts, "* as "+i.Namespace)
	}
	if len(i.Names) > 0 {
		parts = append(parts, "{ "+strings.Join(i.Names, ", ")+" }")
	}
	if len(parts) == 0 {
		return "import \"" + i.Source + "\";"
	}
	return "import " + strings.Join(parts, ", ") + " from \"" + i.Source + "\";"
}

// ImportSink collects imports in first seen order merging names per source.
type ImportSink struct {
	items []Import
}

func (s *ImportSink) Add(imports ...Import) {
	for _, imp := range imports {
		if imp.Source == "" {
			continue
		}
		idx := slices.IndexFunc(s.items, func(i Import) bool {
			return i.Source == imp.Source && (i.Namespace == "") == (imp.Namespace == "")
		})
		if idx < 0 {
			imp.Names = slices.Clone(imp.Names)
			s.items = append(s.items, imp)
			continue
		}
		cur := &s.items[idx]
		if cur.Default == "" {
			cur.Default = imp.Default
		}
		if cur.Namespace == "" {
			cur.Namespace = imp.Namespace
		}
		for _, n := range imp.Names {
			if !slices.Contains(cur.Names, n) {
				cur.Names = append(cur.Names, n)
			}
		}
	}
}

func (s *ImportSink) Items() []Import {
	if s == nil {
		return nil
	}
	return s.items
}

type ValueKind string

const (
	ValueTheme       ValueKind = "theme"
	ValueCSSVariable ValueKind = "css-variable"
)

// ValueRequest asks adapter to resolve a theme path or CSS custom property.
type ValueRequest struct {
	Kind      ValueKind
	Path      []string
	Name      string
	Property  string
	Component string
}

type ValueResult struct {
	Expr    string
	Imports []Import
	// DropDefinition asks to remove local definition of the custom property.
	DropDefinition bool
}

// CallRequest asks adapter to resolve helper call. Empty Property means the
// call is used as a whole style block.
type CallRequest struct {
	Callee       string
	ImportSource string
	Args         []string
	ArgsStatic   bool
	Property     string
	Component    string
}

type CallResult struct {
	// Expr is value expression for property usage.
	Expr string
	// StylesUsage is style reference for block usage.
	StylesUsage string
	Imports     []Import
}

// Adapter resolves project specific values. Returning nil always leads to a
// bail.
type Adapter interface {
	ResolveValue(req ValueRequest) *ValueResult
	ResolveCall(req CallRequest) *CallResult
}

// HandlerProvider is implemented by adapters that contribute handlers which
// run before the built-in ones.
type HandlerProvider interface {
	Handlers() []Handler
}

// Handler is one predicate and action pair of the decision chain. Handle may
// return nil to pass to the next handler.
type Handler struct {
	Name   string
	Match  func(c *classify.Classified, ctx *NodeContext) bool
	Handle func(c *classify.Classified, ctx *NodeContext, env *Env) *Decision
}

// NopAdapter resolves nothing.
type NopAdapter struct{}

func (NopAdapter) ResolveValue(ValueRequest) *ValueResult { return nil }
func (NopAdapter) ResolveCall(CallRequest) *CallResult    { return nil }
