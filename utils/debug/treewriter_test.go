package debug

import "testing"

func TestTreeWriter_Line(t *testing.T) {
	tests := []struct {
		name   string
		depth  int
		format string
		args   []any
		want   string
	}{
		{"no depth", 0, "test", nil, "test\n"},
		{"depth 1", 1, "indented", nil, "  indented\n"},
		{"depth 2", 2, "double indent", nil, "    double indent\n"},
		{"with formatting", 1, "rule %s (%d)", []any{"&:hover", 2}, "  rule &:hover (2)\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := NewTreeWriter()
			tw.Line(tt.depth, tt.format, tt.args...)
			if got := tw.String(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestTreeWriter_Field(t *testing.T) {
	tw := NewTreeWriter()
	tw.Field(1, "value", `say "hi"`)
	tw.Field(1, "empty", "")
	if got, want := tw.String(), "  value: \"say \\\"hi\\\"\"\n"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestTreeWriter_List(t *testing.T) {
	tw := NewTreeWriter()
	tw.List(0, "at", []string{"@media (x)", "@supports (y)"})
	tw.List(0, "none", nil)
	if got, want := tw.String(), "at: [\"@media (x)\", \"@supports (y)\"]\n"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
