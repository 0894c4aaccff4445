// Package adapter implements project specific value resolution from
// configuration: theme tokens, CSS custom properties and helper calls.
package adapter

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"stylemig/config"
	"stylemig/decide"
	"stylemig/styleobj"
)

type helper struct {
	expr   *template.Template
	styles *template.Template
	conf   config.HelperConfig
}

// Adapter resolves values using configured tables. Results of value lookups
// and static helper calls are cached, it is safe for concurrent use.
type Adapter struct {
	log     *zap.Logger
	theme   config.ThemeConfig
	vars    map[string]config.VariableConfig
	helpers map[string]*helper

	values *lru.Cache[string, *decide.ValueResult]
	calls  *lru.Cache[string, *decide.CallResult]
}

// helperData is available to helper templates.
type helperData struct {
	Callee    string
	Args      []string
	Property  string
	Component string
}

func parse(name, text string) (*template.Template, error) {
	if text == "" {
		return nil, nil
	}
	return template.New(name).Funcs(sprig.FuncMap()).Option("missingkey=error").Parse(text)
}

func New(conf *config.AdapterConfig, log *zap.Logger) (*Adapter, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Adapter{
		log:     log.Named("adapter"),
		theme:   conf.Theme,
		vars:    conf.Variables,
		helpers: make(map[string]*helper, len(conf.Helpers)),
	}
	for callee, hc := range conf.Helpers {
		h := &helper{conf: hc}
		var err error
		if h.expr, err = parse(callee, hc.Expr); err != nil {
			return nil, fmt.Errorf("bad expression template for helper %s: %w", callee, err)
		}
		if h.styles, err = parse(callee, hc.StylesUsage); err != nil {
			return nil, fmt.Errorf("bad styles template for helper %s: %w", callee, err)
		}
		if h.expr == nil && h.styles == nil {
			return nil, fmt.Errorf("helper %s resolves to nothing", callee)
		}
		a.helpers[callee] = h
	}
	if conf.CacheSize > 0 {
		var err error
		if a.values, err = lru.New[string, *decide.ValueResult](conf.CacheSize); err != nil {
			return nil, fmt.Errorf("unable to create value cache: %w", err)
		}
		if a.calls, err = lru.New[string, *decide.CallResult](conf.CacheSize); err != nil {
			return nil, fmt.Errorf("unable to create call cache: %w", err)
		}
	}
	return a, nil
}

func importOf(source, name, local string) []decide.Import {
	if source == "" {
		return nil
	}
	switch {
	case name == "":
		return []decide.Import{{Source: source, Namespace: local}}
	case name == "default":
		return []decide.Import{{Source: source, Default: local}}
	case local != "" && local != name:
		return []decide.Import{{Source: source, Names: []string{name + " as " + local}}}
	}
	return []decide.Import{{Source: source, Names: []string{name}}}
}

// ResolveValue implements decide.Adapter.
func (a *Adapter) ResolveValue(req decide.ValueRequest) *decide.ValueResult {
	key := string(req.Kind) + "|" + req.Name + "|" + strings.Join(req.Path, ".")
	if a.values != nil {
		if res, ok := a.values.Get(key); ok {
			return res
		}
	}

	var res *decide.ValueResult
	switch req.Kind {
	case decide.ValueTheme:
		res = a.themeValue(req.Path)
	case decide.ValueCSSVariable:
		if v, ok := a.vars[req.Name]; ok {
			res = &decide.ValueResult{
				Expr:           v.Expr,
				Imports:        importOf(v.ImportSource, v.Import, rootOf(v.Expr)),
				DropDefinition: v.DropDefinition,
			}
		}
	}
	if res == nil {
		a.log.Debug("Value not resolved", zap.String("kind", string(req.Kind)), zap.String("name", req.Name),
			zap.Strings("path", req.Path), zap.String("component", req.Component))
	}
	if a.values != nil {
		a.values.Add(key, res)
	}
	return res
}

func (a *Adapter) themeValue(path []string) *decide.ValueResult {
	if a.theme.Identifier == "" || len(path) == 0 {
		return nil
	}
	var expr strings.Builder
	expr.WriteString(a.theme.Identifier)
	if a.theme.Naming == "camel" {
		name := path[0]
		for _, p := range path[1:] {
			name += styleobj.Capitalize(p)
		}
		path = []string{name}
	}
	for _, p := range path {
		if styleobj.IsIdentifier(p) {
			expr.WriteString("." + p)
		} else {
			expr.WriteString("[" + styleobj.Quote(p) + "]")
		}
	}
	return &decide.ValueResult{
		Expr:    expr.String(),
		Imports: importOf(a.theme.ImportSource, a.theme.Import, a.theme.Identifier),
	}
}

// ResolveCall implements decide.Adapter. Both forms configured for a helper
// are returned, the caller picks the one matching its position.
func (a *Adapter) ResolveCall(req decide.CallRequest) *decide.CallResult {
	h, ok := a.helpers[req.Callee]
	if !ok {
		return nil
	}
	// templates see property and component, both are part of the key
	key := strings.Join([]string{req.Callee, strings.Join(req.Args, "\x00"), req.Property, req.Component}, "\x01")
	cacheable := a.calls != nil && req.ArgsStatic
	if cacheable {
		if res, ok := a.calls.Get(key); ok {
			return res
		}
	}

	data := helperData{Callee: req.Callee, Args: req.Args, Property: req.Property, Component: req.Component}
	res := &decide.CallResult{Imports: importOf(h.conf.ImportSource, h.conf.Import, "")}
	var err error
	if res.Expr, err = execute(h.expr, data); err == nil {
		res.StylesUsage, err = execute(h.styles, data)
	}
	if err != nil {
		a.log.Debug("Helper template failed", zap.String("callee", req.Callee), zap.Error(err))
		return nil
	}
	if cacheable {
		a.calls.Add(key, res)
	}
	return res
}

func execute(t *template.Template, data helperData) (string, error) {
	if t == nil {
		return "", nil
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func rootOf(expr string) string {
	i := strings.IndexFunc(expr, func(r rune) bool { return r == '.' || r == '[' || r == '(' })
	if i < 0 {
		return expr
	}
	return expr[:i]
}
