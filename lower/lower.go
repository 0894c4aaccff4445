// Package lower rewrites selectors the target model can not express into
// extra style entries, relation markers and call site rewrite rules.
package lower

import (
	"strings"

	"go.uber.org/zap"

	"stylemig/component"
	"stylemig/diag"
	"stylemig/styleobj"
)

// Options of the lowering passes.
type Options struct {
	// RelationMatching allows sibling selectors to become marker based
	// relation conditions instead of runtime booleans.
	RelationMatching bool
	// Imported reports whether local name comes from an import.
	Imported func(name string) bool
}

type Lowerer struct {
	log  *zap.Logger
	sink *diag.Sink
	opts Options
}

func New(opts Options, sink *diag.Sink, log *zap.Logger) *Lowerer {
	if log == nil {
		log = zap.NewNop()
	}
	if sink == nil {
		sink = diag.NewSink()
	}
	if opts.Imported == nil {
		opts.Imported = func(string) bool { return false }
	}
	return &Lowerer{log: log.Named("selector-lowering"), sink: sink, opts: opts}
}

// pass owns a family of selector keys. It returns false for keys it does not
// recognize, keys it handled are removed after the whole pass.
type pass func(l *Lowerer, set *component.Set, info *component.StyleInfo, key string, block *styleobj.Object) bool

// Run applies all passes in order to every component of the set. Each pass
// runs over all components before the next one starts so cross component
// passes see complete style objects.
func (l *Lowerer) Run(set *component.Set) {
	for _, p := range []struct {
		name string
		fn   pass
	}{
		{"universal", universal},
		{"descendant", descendant},
		{"attribute", attribute},
		{"sibling", sibling},
		{"specificity", specificity},
		{"ancestor", ancestor},
	} {
		for _, info := range set.All() {
			l.apply(set, info, p.name, p.fn)
		}
	}
	for _, info := range set.All() {
		l.leftovers(info)
	}
}

// apply snapshots keys, runs pass and deletes consumed keys afterwards.
func (l *Lowerer) apply(set *component.Set, info *component.StyleInfo, name string, fn pass) {
	if info.Style == nil {
		return
	}
	var consumed []string
	for _, key := range info.Style.Keys() {
		if !IsSelectorKey(key) {
			continue
		}
		v, _ := info.Style.Get(key)
		block, ok := v.(*styleobj.Object)
		if !ok {
			continue
		}
		if fn(l, set, info, key, block) {
			consumed = append(consumed, key)
		}
	}
	for _, key := range consumed {
		info.Style.Delete(key)
	}
	if len(consumed) > 0 {
		l.log.Debug("Selectors lowered",
			zap.String("component", info.Name),
			zap.String("pass", name),
			zap.Strings("selectors", consumed))
	}
}

func (l *Lowerer) leftovers(info *component.StyleInfo) {
	if info.Style == nil {
		return
	}
	for _, key := range info.Style.Keys() {
		if !IsSelectorKey(key) {
			continue
		}
		l.sink.Report(diag.KindUnsupportedSelector, info.Name, key, info.Location())
		info.Style.Delete(key)
	}
}

// IsSelectorKey tells nested selector keys from properties, pseudo elements
// and custom properties.
func IsSelectorKey(key string) bool {
	if styleobj.IsPseudoElementKey(key) || strings.HasPrefix(key, "--") || styleobj.IsConditionKey(key) {
		return false
	}
	return strings.ContainsAny(key, "&${}[]>+~*.# ")
}
