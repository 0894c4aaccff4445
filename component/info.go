// Package component holds per component conversion state shared by selector
// lowering, aggregation and wrapper planning.
package component

import (
	"stylemig/convert/stylemodel"
	"stylemig/decide"
	"stylemig/diag"
	"stylemig/host"
	"stylemig/styleobj"
)

type RuleKind string

const (
	RuleDirectChildren            RuleKind = "direct-children"
	RuleDirectChildrenExceptFirst RuleKind = "direct-children-except-first"
	RuleDirectChildrenExceptLast  RuleKind = "direct-children-except-last"
	RuleDirectChildrenFirst       RuleKind = "direct-children-first"
	RuleDescendantStyled          RuleKind = "descendant-styled-component"
)

// JSXRewriteRule attaches extra style entry to elements rendered inside
// usages of the owning component.
type JSXRewriteRule struct {
	Kind     RuleKind
	StyleKey string
	// Target is the descendant component for descendant rules.
	Target string
	// TagFilter restricts child rules to host elements of this tag.
	TagFilter string
}

// RelationOverride links ancestor and descendant style keys, output of
// descendant component lowering.
type RelationOverride struct {
	ParentStyleKey   string
	ChildStyleKey    string
	OverrideStyleKey string
	CrossFile        bool
	// CrossFileComponentLocalName is set for imported descendants.
	CrossFileComponentLocalName string
}

// CSSVarInjection asks Target component registry entry to define Name with a
// conditional override.
type CSSVarInjection struct {
	Target    string
	Name      string
	Condition string
	Value     styleobj.Value
}

type AttrOperator string

const (
	AttrPresent  AttrOperator = ""
	AttrEquals   AttrOperator = "="
	AttrPrefix   AttrOperator = "^="
	AttrSuffix   AttrOperator = "$="
	AttrContains AttrOperator = "*="
)

// AttrSelector is a lowered &[attr] selector, the wrapper turns it into a
// runtime prop check.
type AttrSelector struct {
	StyleKey string
	Attr     string
	Operator AttrOperator
	Value    string
}

type SiblingKind string

const (
	SiblingAdjacent SiblingKind = "adjacent"
	SiblingGeneral  SiblingKind = "general"
)

// SiblingSelector is a lowered & + & or &.cls ~ & selector. Prop is the
// boolean the call site computes.
type SiblingSelector struct {
	StyleKey  string
	Kind      SiblingKind
	ClassName string
	Prop      string
}

// Extra is a named supplementary style entry.
type Extra struct {
	Name  string
	Style *styleobj.Object
}

// Variant is a variant style entry with its guard.
type Variant struct {
	Name       string
	PropName   string
	Comparison string
	Truthy     bool
	Style      *styleobj.Object
}

// DynamicStyle is a function entry taking one prop value.
type DynamicStyle struct {
	Name       string
	PropName   string
	Param      string
	ParamType  string
	Expression string
	Property   string
	Keys       []string
	Fallback   styleobj.Value
}

// StyleInfo is everything known about one styled component.
type StyleInfo struct {
	Name string
	Decl *host.Declaration
	// Tag is the host element, empty when based on another component.
	Tag string
	// Base is the wrapped component.
	Base     string
	StyleKey string

	Style       *styleobj.Object
	Extras      []Extra
	Variants    []Variant
	DynamicFns  []DynamicStyle
	Escapes     []stylemodel.Escape
	StyleRefs   []stylemodel.StyleRef
	Attrs       []host.Property
	Imports     []decide.Import
	Result      *stylemodel.Result
	Specificity bool

	AttrSelectors    []AttrSelector
	SiblingSelectors []SiblingSelector
	Rules            []JSXRewriteRule
	Relations        []RelationOverride
	Injections       []CSSVarInjection

	// Marker is the relation marker name defined for sibling matching.
	Marker             string
	NeedsDefaultMarker bool

	// NeedsWrapper is raised by lowering and settled by render planning.
	NeedsWrapper   bool
	WrapperReasons []string
	SupportsAs     bool
	FilteredProps  []string
	Exported       bool
}

// Location of the declaration, nil for synthetic infos.
func (s *StyleInfo) Location() *diag.Location {
	if s.Decl == nil {
		return nil
	}
	return &s.Decl.Loc
}

// Extra returns supplementary entry by name.
func (s *StyleInfo) Extra(name string) (*Extra, bool) {
	for i := range s.Extras {
		if s.Extras[i].Name == name {
			return &s.Extras[i], true
		}
	}
	return nil, false
}

// AddExtra appends entry or merges into existing one of the same name.
func (s *StyleInfo) AddExtra(name string, style *styleobj.Object) {
	if e, ok := s.Extra(name); ok {
		e.Style.Merge(style)
		return
	}
	s.Extras = append(s.Extras, Extra{Name: name, Style: style})
}

// RequireWrapper records reason for wrapper synthesis.
func (s *StyleInfo) RequireWrapper(reason string) {
	s.NeedsWrapper = true
	for _, r := range s.WrapperReasons {
		if r == reason {
			return
		}
	}
	s.WrapperReasons = append(s.WrapperReasons, reason)
}

// HasSiblingPattern reports whether extras must precede the base entry.
func (s *StyleInfo) HasSiblingPattern() bool {
	return len(s.SiblingSelectors) > 0 || s.Marker != ""
}
