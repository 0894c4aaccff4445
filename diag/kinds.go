package diag

// Kind identifies a diagnostic. The set is closed and the string values are
// stable, tests and external tooling match on them.
type Kind string

const (
	// template structure
	KindTemplateParseError     Kind = "template-parse-error"
	KindMalformedDeclaration   Kind = "malformed-declaration"
	KindAtRuleWithoutBlock     Kind = "at-rule-without-block"
	KindUnsupportedAtRule      Kind = "unsupported-at-rule"
	KindGlobalStyle            Kind = "global-style"
	KindObjectStyleSyntax      Kind = "object-style-syntax"
	KindFunctionAttrs          Kind = "function-attrs"
	KindWithComponent          Kind = "with-component"
	KindCSSProp                Kind = "css-prop"
	KindThemeProvider          Kind = "theme-provider"
	KindUnknownComponentRef    Kind = "unknown-component-reference"
	KindPseudoElementDynamic   Kind = "pseudo-element-dynamic"
	KindComponentSelectorHack  Kind = "component-selector-specificity"
	KindImportantStripped      Kind = "important-stripped"
	KindShorthandExpanded      Kind = "shorthand-expanded"
	KindUnknownProperty        Kind = "unknown-property"
	KindVendorPrefixed         Kind = "vendor-prefixed-property"
	KindUnsupportedValue       Kind = "unsupported-value"
	KindDuplicateProperty      Kind = "duplicate-property"
	KindNestedConditions       Kind = "nested-conditions-combined"
	KindCSSVariableResolved    Kind = "css-variable-resolved"
	KindCSSVariableDropped     Kind = "css-variable-definition-dropped"
	KindEmptyStyleBlock        Kind = "empty-style-block"
	KindUnsupportedPseudoClass Kind = "unsupported-pseudo-class"
	KindInterpolationInProp    Kind = "interpolation-in-property-name"
	KindInterpolationInAtRule  Kind = "interpolation-in-at-rule"
	KindInterpolationInSel     Kind = "interpolation-in-selector"
	KindKeyframesParseError    Kind = "keyframes-parse-error"
	KindKeyframesInterpolation Kind = "keyframes-interpolation"
	KindMixinParseError        Kind = "mixin-parse-error"

	// decisions
	KindDynamicNode          Kind = "dynamic-node"
	KindInlineStyleEscape    Kind = "inline-style-escape-hatch"
	KindDynamicDropped       Kind = "dynamic-dropped"
	KindVariantNameCollision Kind = "variant-name-collision"
	KindDynamicFnCreated     Kind = "dynamic-fn-created"
	KindBorderRemapped       Kind = "border-shorthand-remapped"
	KindAnimationExpanded    Kind = "animation-shorthand-expanded"

	// selector lowering
	KindUniversalLowered          Kind = "universal-selector-lowered"
	KindUniversalApproximated     Kind = "universal-descendant-approximated"
	KindDescendantLowered         Kind = "descendant-component-lowered"
	KindAttributeLowered          Kind = "attribute-selector-lowered"
	KindUnsupportedAttrOperator   Kind = "unsupported-attribute-operator"
	KindSiblingLowered            Kind = "sibling-selector-lowered"
	KindSiblingRelationMarker     Kind = "sibling-relation-marker"
	KindUnsupportedSibling        Kind = "unsupported-sibling-selector"
	KindSpecificityFlattened      Kind = "specificity-flattened"
	KindSpecificityContextDropped Kind = "specificity-context-dropped"
	KindAncestorPseudoBridged     Kind = "ancestor-pseudo-bridged"
	KindCrossFileReference        Kind = "cross-file-component-reference"
	KindUnsupportedSelector       Kind = "unsupported-selector"
	KindElementChildSelector      Kind = "element-child-selector"

	// wrappers and call sites
	KindWrapperRequired        Kind = "wrapper-required"
	KindWrapperSynthesisFailed Kind = "wrapper-synthesis-failed"
	KindAsInherited            Kind = "polymorphic-as-inherited"
	KindShouldForwardProp      Kind = "should-forward-prop"
	KindExportedComponent      Kind = "exported-component"
	KindUnusedComponent        Kind = "unused-component"
	KindCallSiteSpread         Kind = "call-site-spread-props"
	KindUnresolvedBase         Kind = "unresolved-base-component"
	KindAttrsStaticApplied     Kind = "attrs-static-applied"
	KindCallSiteStylesMerged   Kind = "call-site-styles-merged"
	KindRegistryNameCollision  Kind = "registry-name-collision"
)

var kindSeverity = map[Kind]Severity{
	KindTemplateParseError:     SeverityError,
	KindMalformedDeclaration:   SeverityWarning,
	KindAtRuleWithoutBlock:     SeverityWarning,
	KindUnsupportedAtRule:      SeverityWarning,
	KindGlobalStyle:            SeverityWarning,
	KindObjectStyleSyntax:      SeverityWarning,
	KindFunctionAttrs:          SeverityWarning,
	KindWithComponent:          SeverityWarning,
	KindCSSProp:                SeverityWarning,
	KindThemeProvider:          SeverityWarning,
	KindUnknownComponentRef:    SeverityWarning,
	KindPseudoElementDynamic:   SeverityWarning,
	KindComponentSelectorHack:  SeverityWarning,
	KindImportantStripped:      SeverityInfo,
	KindShorthandExpanded:      SeverityInfo,
	KindUnknownProperty:        SeverityInfo,
	KindVendorPrefixed:         SeverityInfo,
	KindUnsupportedValue:       SeverityWarning,
	KindDuplicateProperty:      SeverityInfo,
	KindNestedConditions:       SeverityInfo,
	KindCSSVariableResolved:    SeverityInfo,
	KindCSSVariableDropped:     SeverityInfo,
	KindEmptyStyleBlock:        SeverityInfo,
	KindUnsupportedPseudoClass: SeverityWarning,
	KindInterpolationInProp:    SeverityWarning,
	KindInterpolationInAtRule:  SeverityWarning,
	KindInterpolationInSel:     SeverityWarning,
	KindKeyframesParseError:    SeverityError,
	KindKeyframesInterpolation: SeverityWarning,
	KindMixinParseError:        SeverityError,

	KindDynamicNode:          SeverityWarning,
	KindInlineStyleEscape:    SeverityInfo,
	KindDynamicDropped:       SeverityWarning,
	KindVariantNameCollision: SeverityWarning,
	KindDynamicFnCreated:     SeverityInfo,
	KindBorderRemapped:       SeverityInfo,
	KindAnimationExpanded:    SeverityInfo,

	KindUniversalLowered:          SeverityInfo,
	KindUniversalApproximated:     SeverityWarning,
	KindDescendantLowered:         SeverityInfo,
	KindAttributeLowered:          SeverityInfo,
	KindUnsupportedAttrOperator:   SeverityWarning,
	KindSiblingLowered:            SeverityInfo,
	KindSiblingRelationMarker:     SeverityInfo,
	KindUnsupportedSibling:        SeverityWarning,
	KindSpecificityFlattened:      SeverityInfo,
	KindSpecificityContextDropped: SeverityWarning,
	KindAncestorPseudoBridged:     SeverityInfo,
	KindCrossFileReference:        SeverityWarning,
	KindUnsupportedSelector:       SeverityWarning,
	KindElementChildSelector:      SeverityWarning,

	KindWrapperRequired:        SeverityInfo,
	KindWrapperSynthesisFailed: SeverityError,
	KindAsInherited:            SeverityInfo,
	KindShouldForwardProp:      SeverityInfo,
	KindExportedComponent:      SeverityInfo,
	KindUnusedComponent:        SeverityInfo,
	KindCallSiteSpread:         SeverityWarning,
	KindUnresolvedBase:         SeverityWarning,
	KindAttrsStaticApplied:     SeverityInfo,
	KindCallSiteStylesMerged:   SeverityInfo,
	KindRegistryNameCollision:  SeverityInfo,
}

// Kinds returns every known kind.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindSeverity))
	for k := range kindSeverity {
		out = append(out, k)
	}
	return out
}

func (k Kind) Valid() bool {
	_, ok := kindSeverity[k]
	return ok
}

// Severity returns default severity for the kind.
func (k Kind) Severity() Severity {
	if s, ok := kindSeverity[k]; ok {
		return s
	}
	return SeverityWarning
}

// BailReason explains why a dynamic construct could not be compiled
// statically. Carried by dynamic-node diagnostics.
type BailReason string

const (
	BailNone                 BailReason = ""
	BailThemeUnresolved      BailReason = "theme-unresolved"
	BailHelperUnresolved     BailReason = "helper-unresolved"
	BailHelperShapeMismatch  BailReason = "helper-shape-mismatch"
	BailLogicalRuntime       BailReason = "logical-fallback-runtime"
	BailRawExpression        BailReason = "raw-expression"
	BailNoHandler            BailReason = "no-handler"
	BailUnsupportedContext   BailReason = "unsupported-context"
	BailMixinInValuePosition BailReason = "mixin-in-value-position"
	BailKeyframesUnsupported BailReason = "keyframes-in-unsupported-position"
)
