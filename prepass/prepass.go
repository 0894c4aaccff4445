// Package prepass keeps the cross-file usage summary: how components exported
// by one file are consumed by JSX in other files. The summary is either
// loaded from YAML (or JSON) produced elsewhere or built by scanning sources.
package prepass

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v3"

	"stylemig/common"
	"stylemig/host"
	"stylemig/wrapper"
)

// ComponentUsage is what consumers do with one exported component.
type ComponentUsage struct {
	Styles bool `yaml:"styles,omitempty" json:"styles,omitempty"`
	As     bool `yaml:"as,omitempty" json:"as,omitempty"`
}

// Summary maps slash separated file path to component usages.
type Summary struct {
	Version int                                  `yaml:"version"`
	Files   map[string]map[string]ComponentUsage `yaml:"files"`

	mu sync.Mutex
}

func New() *Summary {
	return &Summary{Version: 1, Files: make(map[string]map[string]ComponentUsage)}
}

func key(p string) string {
	return path.Clean(filepath.ToSlash(p))
}

// Load reads summary file. JSON is accepted as it is a subset of YAML.
func Load(fname string) (*Summary, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, fmt.Errorf("unable to read usage summary: %w", err)
	}
	s := New()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil {
		return nil, fmt.Errorf("unable to decode usage summary %s: %w", fname, err)
	}
	if s.Version != 1 {
		return nil, fmt.Errorf("unsupported usage summary version %d", s.Version)
	}
	files := make(map[string]map[string]ComponentUsage, len(s.Files))
	for f, comps := range s.Files {
		files[key(f)] = comps
	}
	s.Files = files
	return s, nil
}

// Save writes summary as YAML.
func (s *Summary) Save(fname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("unable to marshal usage summary: %w", err)
	}
	if err := os.WriteFile(fname, data, 0644); err != nil {
		return fmt.Errorf("unable to write usage summary: %w", err)
	}
	return nil
}

// Record merges usage of component exported by file.
func (s *Summary) Record(file, component string, u ComponentUsage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(file)
	comps, ok := s.Files[k]
	if !ok {
		comps = make(map[string]ComponentUsage)
		s.Files[k] = comps
	}
	cur := comps[component]
	cur.Styles = cur.Styles || u.Styles
	cur.As = cur.As || u.As
	comps[component] = cur
}

// Lookup returns usage of component exported by file.
func (s *Summary) Lookup(file, component string) (wrapper.Usage, bool) {
	if s == nil {
		return wrapper.Usage{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.Files[key(file)][component]
	if !ok {
		return wrapper.Usage{}, false
	}
	return wrapper.Usage{Styles: u.Styles, As: u.As}, true
}

// Len returns number of files with recorded usages.
func (s *Summary) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Files)
}

// Builder produces summary by scanning consumer files.
type Builder struct {
	log     *zap.Logger
	root    string
	exts    []string
	summary *Summary
}

// NewBuilder creates builder, file paths are recorded relative to root and
// relative imports are resolved by trying exts.
func NewBuilder(root string, exts []string, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{
		log:     log.Named("prepass"),
		root:    root,
		exts:    exts,
		summary: New(),
	}
}

func (b *Builder) Summary() *Summary {
	return b.summary
}

// Scan parses one consumer file and records how it uses components imported
// from relative modules. It may be called concurrently.
func (b *Builder) Scan(ctx context.Context, fname string, src []byte) error {
	lang, ok := common.SourceLangFromPath(fname)
	if !ok {
		return nil
	}
	f, err := host.ParseFile(ctx, src, lang)
	if err != nil {
		return fmt.Errorf("unable to parse %s: %w", fname, err)
	}

	imported := make(map[string]struct{ file, name string })
	for _, imp := range f.Imports {
		if imp.TypeOnly || !strings.HasPrefix(imp.Source, ".") {
			continue
		}
		target, ok := b.resolve(filepath.Dir(fname), imp.Source)
		if !ok {
			b.log.Debug("Unable to resolve import", zap.String("file", fname), zap.String("source", imp.Source))
			continue
		}
		for _, s := range imp.Named {
			imported[s.Local] = struct{ file, name string }{target, s.Imported}
		}
		if imp.Default != "" {
			imported[imp.Default] = struct{ file, name string }{target, "default"}
		}
	}
	if len(imported) == 0 {
		return nil
	}

	for _, el := range f.Elements {
		src, ok := imported[el.Name]
		if !ok {
			continue
		}
		var u ComponentUsage
		for _, a := range el.Attrs {
			switch {
			case a.Spread:
				// spread may carry anything
				u.Styles = true
			case a.Name == "className" || a.Name == "style":
				u.Styles = true
			case a.Name == "as" || a.Name == "forwardedAs":
				u.As = true
			}
		}
		b.summary.Record(src.file, src.name, u)
	}
	return nil
}

// resolve finds file imported by relative source, result is relative to
// root.
func (b *Builder) resolve(dir, source string) (string, bool) {
	base := filepath.Join(dir, filepath.FromSlash(source))
	candidates := []string{base}
	for _, ext := range b.exts {
		candidates = append(candidates, base+ext)
	}
	for _, ext := range b.exts {
		candidates = append(candidates, filepath.Join(base, "index"+ext))
	}
	for _, c := range candidates {
		if fi, err := os.Stat(c); err != nil || fi.IsDir() {
			continue
		}
		if !slices.Contains(b.exts, filepath.Ext(c)) {
			continue
		}
		rel, err := filepath.Rel(b.root, c)
		if err != nil {
			return "", false
		}
		return key(rel), true
	}
	return "", false
}
