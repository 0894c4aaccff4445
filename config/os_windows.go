//go:build windows

package config

import (
	"os"
	"slices"
	"strings"

	"golang.org/x/sys/windows"
	"golang.org/x/term"
)

var reservedNames = []string{
	"CON", "PRN", "AUX", "NUL",
	"COM1", "COM2", "COM3", "COM4", "COM5", "COM6", "COM7", "COM8", "COM9",
	"LPT1", "LPT2", "LPT3", "LPT4", "LPT5", "LPT6", "LPT7", "LPT8", "LPT9",
}

// SafeOutputName makes one element of a templated output path safe to
// create. Forbidden runes become underscores, trailing dots and spaces are
// dropped and device names get a prefix.
func SafeOutputName(in string) string {
	out := strings.Map(func(sym rune) rune {
		if sym < 32 || strings.ContainsRune(`<>":/\|?*`, sym) {
			return '_'
		}
		return sym
	}, in)
	out = strings.TrimRight(strings.TrimLeft(out, "."), ". ")
	if out == "" {
		return "_"
	}
	stem, _, _ := strings.Cut(out, ".")
	if slices.Contains(reservedNames, strings.ToUpper(stem)) {
		out = "_" + out
	}
	return out
}

// terminalColors enables VT sequence processing, consoles before Windows 10
// do not support it.
func terminalColors(stream *os.File) bool {
	if windows.RtlGetVersion().MajorVersion < 10 || !term.IsTerminal(int(stream.Fd())) {
		return false
	}
	h := windows.Handle(stream.Fd())
	var mode uint32
	if err := windows.GetConsoleMode(h, &mode); err != nil {
		return false
	}
	return windows.SetConsoleMode(h, mode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING) == nil
}
