package host

import (
	"fmt"
	"slices"
)

// Edit replaces source bytes [Start, End) with Text. Start == End inserts.
type Edit struct {
	Start int
	End   int
	Text  string
}

// Apply applies edits to src. Insertions at the same offset keep the order
// in which they were given, overlapping replacements are an error.
func Apply(src []byte, edits []Edit) ([]byte, error) {
	sorted := slices.Clone(edits)
	slices.SortStableFunc(sorted, func(a, b Edit) int {
		return a.Start - b.Start
	})

	prevEnd := -1
	for _, e := range sorted {
		if e.Start < 0 || e.End < e.Start || e.End > len(src) {
			return nil, fmt.Errorf("edit [%d:%d] is out of range", e.Start, e.End)
		}
		if e.Start < prevEnd {
			return nil, fmt.Errorf("edit [%d:%d] overlaps previous edit ending at %d", e.Start, e.End, prevEnd)
		}
		if e.End > e.Start {
			prevEnd = e.End
		}
	}

	out := make([]byte, 0, len(src))
	last := 0
	for _, e := range sorted {
		out = append(out, src[last:e.Start]...)
		out = append(out, e.Text...)
		last = e.End
	}
	out = append(out, src[last:]...)
	return out, nil
}

// LineEnd extends offset over trailing spaces and a single newline, used to
// remove whole statements without leaving blank lines behind.
func LineEnd(src []byte, offset int) int {
	i := offset
	for i < len(src) && (src[i] == ' ' || src[i] == '\t' || src[i] == ';') {
		i++
	}
	if i < len(src) && src[i] == '\r' {
		i++
	}
	if i < len(src) && src[i] == '\n' {
		return i + 1
	}
	return offset
}
