package prepass

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return p
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"yaml", "version: 1\nfiles:\n  ./src/Button.jsx:\n    Button:\n      as: true\n", false},
		{"json", `{"version": 1, "files": {"src/Button.jsx": {"Button": {"as": true}}}}`, false},
		{"bad version", "version: 3\n", true},
		{"unknown field", "version: 1\nextra: 1\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Load(write(t, dir, tt.name+".yaml", tt.content))
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			u, ok := s.Lookup("src/Button.jsx", "Button")
			if !ok || !u.As || u.Styles {
				t.Errorf("unexpected usage %+v %v", u, ok)
			}
			if _, ok := s.Lookup("src/Button.jsx", "Link"); ok {
				t.Errorf("expected missing component")
			}
		})
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Errorf("expected error for missing file")
	}
}

func TestSaveAndRecord(t *testing.T) {
	s := New()
	s.Record("src/Card.tsx", "Card", ComponentUsage{Styles: true})
	s.Record("src/Card.tsx", "Card", ComponentUsage{As: true})

	fname := filepath.Join(t.TempDir(), "usage.yaml")
	if err := s.Save(fname); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := Load(fname)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	u, ok := loaded.Lookup("src/Card.tsx", "Card")
	if !ok || !u.Styles || !u.As {
		t.Errorf("expected merged usage, got %+v", u)
	}

	var nilSummary *Summary
	if _, ok := nilSummary.Lookup("a", "b"); ok {
		t.Errorf("expected nil summary to find nothing")
	}
}

func TestBuilderScan(t *testing.T) {
	root := t.TempDir()
	write(t, root, "src/ui/Button.jsx", "export const Button = () => null;\n")
	write(t, root, "src/ui/index.js", "export { Button } from \"./Button\";\n")
	app := "import { Button as B } from \"./ui/Button\";\n" +
		"import Panel from \"./ui\";\n" +
		"import { Remote } from \"remote-lib\";\n\n" +
		"export const App = () => (\n" +
		"  <Panel>\n" +
		"    <B as=\"a\" />\n" +
		"    <B className=\"x\" />\n" +
		"    <Remote style={{}} />\n" +
		"  </Panel>\n" +
		");\n"
	appPath := write(t, root, "src/App.jsx", app)

	b := NewBuilder(root, []string{".js", ".jsx"}, zap.NewNop())
	if err := b.Scan(context.Background(), appPath, []byte(app)); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	s := b.Summary()

	u, ok := s.Lookup("src/ui/Button.jsx", "Button")
	if !ok || !u.As || !u.Styles {
		t.Errorf("expected Button usage with as and styles, got %+v %v", u, ok)
	}
	if u, ok := s.Lookup("src/ui/index.js", "default"); !ok || u.As || u.Styles {
		t.Errorf("expected plain default usage, got %+v %v", u, ok)
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 files, got %d", s.Len())
	}
}
