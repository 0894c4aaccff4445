//go:build !windows

package config

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// SafeOutputName makes one element of a templated output path safe to
// create. Separators become underscores so distinct sources keep distinct
// outputs, leading dots are dropped to keep generated files visible.
func SafeOutputName(in string) string {
	out := strings.Map(func(sym rune) rune {
		if sym == 0 || sym == os.PathSeparator || sym == os.PathListSeparator {
			return '_'
		}
		return sym
	}, in)
	out = strings.TrimLeft(out, ".")
	if out == "" {
		return "_"
	}
	return out
}

func terminalColors(stream *os.File) bool {
	return term.IsTerminal(int(stream.Fd())) && os.Getenv("TERM") != "dumb"
}
