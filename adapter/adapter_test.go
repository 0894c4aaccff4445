package adapter

import (
	"slices"
	"testing"

	"go.uber.org/zap"

	"stylemig/config"
	"stylemig/decide"
)

func newAdapter(t *testing.T, conf config.AdapterConfig) *Adapter {
	t.Helper()
	a, err := New(&conf, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a
}

func TestTheme(t *testing.T) {
	tests := []struct {
		name    string
		theme   config.ThemeConfig
		path    []string
		expr    string
		imports []string
	}{
		{"unconfigured", config.ThemeConfig{}, []string{"colors", "primary"}, "", nil},
		{"member", config.ThemeConfig{Identifier: "theme", ImportSource: "./theme", Import: "theme"},
			[]string{"colors", "primary"}, "theme.colors.primary", []string{`import { theme } from "./theme";`}},
		{"camel", config.ThemeConfig{Identifier: "tokens", ImportSource: "./tokens.stylex", Naming: "camel"},
			[]string{"colors", "primary"}, "tokens.colorsPrimary", []string{`import * as tokens from "./tokens.stylex";`}},
		{"quoted segment", config.ThemeConfig{Identifier: "t"}, []string{"space", "2xl"}, `t.space["2xl"]`, nil},
		{"renamed import", config.ThemeConfig{Identifier: "t", ImportSource: "./vars", Import: "vars"},
			[]string{"x"}, "t.x", []string{`import { vars as t } from "./vars";`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAdapter(t, config.AdapterConfig{Theme: tt.theme, CacheSize: 4})
			res := a.ResolveValue(decide.ValueRequest{Kind: decide.ValueTheme, Path: tt.path})
			if tt.expr == "" {
				if res != nil {
					t.Errorf("expected nil, got %+v", res)
				}
				return
			}
			if res == nil || res.Expr != tt.expr {
				t.Fatalf("expected %s, got %+v", tt.expr, res)
			}
			var imports []string
			for _, imp := range res.Imports {
				imports = append(imports, imp.Statement())
			}
			if !slices.Equal(imports, tt.imports) {
				t.Errorf("expected imports %v, got %v", tt.imports, imports)
			}
		})
	}
}

func TestVariables(t *testing.T) {
	a := newAdapter(t, config.AdapterConfig{
		Variables: map[string]config.VariableConfig{
			"--brand": {Expr: "vars.brand", ImportSource: "./vars.stylex", Import: "vars", DropDefinition: true},
		},
		CacheSize: 2,
	})
	res := a.ResolveValue(decide.ValueRequest{Kind: decide.ValueCSSVariable, Name: "--brand"})
	if res == nil || res.Expr != "vars.brand" || !res.DropDefinition {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(res.Imports) != 1 || res.Imports[0].Statement() != `import { vars } from "./vars.stylex";` {
		t.Errorf("unexpected imports %+v", res.Imports)
	}
	if again := a.ResolveValue(decide.ValueRequest{Kind: decide.ValueCSSVariable, Name: "--brand"}); again != res {
		t.Errorf("expected cached result")
	}
	if res := a.ResolveValue(decide.ValueRequest{Kind: decide.ValueCSSVariable, Name: "--other"}); res != nil {
		t.Errorf("expected nil for unknown variable, got %+v", res)
	}
}

func TestHelpers(t *testing.T) {
	a := newAdapter(t, config.AdapterConfig{
		Helpers: map[string]config.HelperConfig{
			"spacing":  {Expr: `spacing.s{{ index .Args 0 }}`, ImportSource: "./spacing.stylex", Import: "spacing"},
			"truncate": {StylesUsage: "shared.truncate", ImportSource: "./shared", Import: "shared"},
			"upper":    {Expr: `{{ .Property | upper }}`},
		},
		CacheSize: 8,
	})

	res := a.ResolveCall(decide.CallRequest{Callee: "spacing", Args: []string{"2"}, ArgsStatic: true, Property: "margin"})
	if res == nil || res.Expr != "spacing.s2" || res.StylesUsage != "" {
		t.Fatalf("unexpected spacing result %+v", res)
	}
	if again := a.ResolveCall(decide.CallRequest{Callee: "spacing", Args: []string{"2"}, ArgsStatic: true, Property: "margin"}); again != res {
		t.Errorf("expected cached result")
	}

	res = a.ResolveCall(decide.CallRequest{Callee: "truncate"})
	if res == nil || res.StylesUsage != "shared.truncate" || res.Expr != "" {
		t.Errorf("unexpected truncate result %+v", res)
	}
	if res := a.ResolveCall(decide.CallRequest{Callee: "upper", Property: "color"}); res == nil || res.Expr != "COLOR" {
		t.Errorf("expected sprig function in helper template, got %+v", res)
	}
	if res := a.ResolveCall(decide.CallRequest{Callee: "spacing"}); res != nil {
		t.Errorf("expected nil when template can not execute, got %+v", res)
	}
	if res := a.ResolveCall(decide.CallRequest{Callee: "missing"}); res != nil {
		t.Errorf("expected nil for unknown helper, got %+v", res)
	}
}

func TestHelpers_CachePerProperty(t *testing.T) {
	a := newAdapter(t, config.AdapterConfig{
		Helpers: map[string]config.HelperConfig{
			"space": {Expr: `{{ if eq .Property "margin" }}m{{ else }}p{{ end }}({{ index .Args 0 }})`},
			"owner": {Expr: `{{ .Component | lower }}.{{ index .Args 0 }}`},
		},
		CacheSize: 8,
	})

	tests := []struct {
		name     string
		req      decide.CallRequest
		expected string
	}{
		{"margin", decide.CallRequest{Callee: "space", Args: []string{"2"}, ArgsStatic: true, Property: "margin"}, "m(2)"},
		{"padding", decide.CallRequest{Callee: "space", Args: []string{"2"}, ArgsStatic: true, Property: "padding"}, "p(2)"},
		{"margin again", decide.CallRequest{Callee: "space", Args: []string{"2"}, ArgsStatic: true, Property: "margin"}, "m(2)"},
		{"first component", decide.CallRequest{Callee: "owner", Args: []string{"x"}, ArgsStatic: true, Component: "Box"}, "box.x"},
		{"second component", decide.CallRequest{Callee: "owner", Args: []string{"x"}, ArgsStatic: true, Component: "Card"}, "card.x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := a.ResolveCall(tt.req)
			if res == nil || res.Expr != tt.expected {
				t.Errorf("expected %s, got %+v", tt.expected, res)
			}
		})
	}
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name    string
		helpers map[string]config.HelperConfig
	}{
		{"bad template", map[string]config.HelperConfig{"x": {Expr: "{{ .Args"}}},
		{"empty helper", map[string]config.HelperConfig{"x": {}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(&config.AdapterConfig{Helpers: tt.helpers}, nil); err == nil {
				t.Errorf("expected error")
			}
		})
	}
}
