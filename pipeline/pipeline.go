// Package pipeline is the single file entry point: it parses host source,
// converts every styled declaration and produces rewritten source together
// with diagnostics.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"stylemig/common"
	"stylemig/css"
	"stylemig/decide"
	"stylemig/diag"
	"stylemig/host"
	"stylemig/registry"
	"stylemig/wrapper"
)

// Options of one transformation.
type Options struct {
	Fallback common.FallbackBehavior
	// RelationMatching allows declarative sibling relation conditions.
	RelationMatching bool
	// ImportSource of the target runtime, "@stylexjs/stylex" by default.
	ImportSource string
	// Namespace binding of the runtime import, "stylex" by default.
	Namespace string
	// Identifier of the generated registry, "styles" by default.
	Identifier string
	Attributes wrapper.Attributes
	// Usage returns cross-file consumption summary of a component.
	Usage func(path, component string) (wrapper.Usage, bool)
}

func (o *Options) defaults() {
	if o.ImportSource == "" {
		o.ImportSource = "@stylexjs/stylex"
	}
	if o.Namespace == "" {
		o.Namespace = "stylex"
	}
	if o.Identifier == "" {
		o.Identifier = "styles"
	}
}

// Result of transformation. Code is nil when nothing was converted.
type Result struct {
	Code        []byte
	Diagnostics []diag.Diagnostic
	Registry    *registry.Registry
	// Converted lists components whose source was rewritten.
	Converted []string
	// Wrapped lists converted components rendered through a wrapper.
	Wrapped []string
}

// Changed reports whether source was rewritten.
func (r *Result) Changed() bool {
	return r != nil && r.Code != nil
}

// Transformer is safe for concurrent use, every call works on its own
// state.
type Transformer struct {
	log     *zap.Logger
	adapter decide.Adapter
	opts    Options
	parser  *css.Parser
}

func New(adapter decide.Adapter, opts Options, log *zap.Logger) *Transformer {
	if log == nil {
		log = zap.NewNop()
	}
	if adapter == nil {
		adapter = decide.NopAdapter{}
	}
	opts.defaults()
	return &Transformer{
		log:     log.Named("pipeline"),
		adapter: adapter,
		opts:    opts,
		parser:  css.NewParser(zap.NewNop()),
	}
}

// Transform processes one host file. It returns nil result when file has
// nothing to convert, error is returned only when the host source itself
// can not be parsed.
func (t *Transformer) Transform(ctx context.Context, path string, src []byte, lang common.SourceLang) (*Result, error) {
	f, err := host.ParseFile(ctx, src, lang)
	if err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", path, err)
	}
	if f.StyledImport() == nil || len(f.Decls) == 0 {
		t.log.Debug("Nothing to convert", zap.String("file", path))
		return nil, nil
	}
	r := newRun(t, path, f)
	return r.transform()
}
