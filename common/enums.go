// Package common keeps enums shared between configuration and processing
// packages so that neither has to import the other.
package common

import (
	"fmt"
	"path/filepath"
	"strings"
)

// What to do with a dynamic construct nothing knows how to convert.
type FallbackBehavior int

const (
	FallbackBehaviorBail FallbackBehavior = iota
	FallbackBehaviorInlineStyle
)

var fallbackBehaviorNames = []string{"bail", "inline-style"}

func FallbackBehaviorNames() []string {
	return append([]string(nil), fallbackBehaviorNames...)
}

func (f FallbackBehavior) String() string {
	if int(f) < 0 || int(f) >= len(fallbackBehaviorNames) {
		return fmt.Sprintf("FallbackBehavior(%d)", int(f))
	}
	return fallbackBehaviorNames[f]
}

func ParseFallbackBehavior(name string) (FallbackBehavior, error) {
	for i, n := range fallbackBehaviorNames {
		if strings.EqualFold(n, name) {
			return FallbackBehavior(i), nil
		}
	}
	return FallbackBehaviorBail, fmt.Errorf("%s is not a valid FallbackBehavior, try [%s]", name, strings.Join(fallbackBehaviorNames, ", "))
}

func (f FallbackBehavior) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *FallbackBehavior) UnmarshalText(text []byte) error {
	v, err := ParseFallbackBehavior(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Host language dialect, selects grammar used to parse source files.
type SourceLang int

const (
	SourceLangJavaScript SourceLang = iota
	SourceLangTypeScript
	SourceLangTSX
)

var sourceLangNames = []string{"javascript", "typescript", "tsx"}

func (l SourceLang) String() string {
	if int(l) < 0 || int(l) >= len(sourceLangNames) {
		return fmt.Sprintf("SourceLang(%d)", int(l))
	}
	return sourceLangNames[l]
}

func ParseSourceLang(name string) (SourceLang, error) {
	for i, n := range sourceLangNames {
		if strings.EqualFold(n, name) {
			return SourceLang(i), nil
		}
	}
	return SourceLangJavaScript, fmt.Errorf("%s is not a valid SourceLang, try [%s]", name, strings.Join(sourceLangNames, ", "))
}

// SourceLangFromPath picks dialect by file extension. JSX is handled by the
// javascript grammar, plain .ts files must not go through tsx grammar since
// angle bracket casts are ambiguous there.
func SourceLangFromPath(path string) (SourceLang, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".jsx", ".mjs", ".cjs":
		return SourceLangJavaScript, true
	case ".ts", ".mts", ".cts":
		return SourceLangTypeScript, true
	case ".tsx":
		return SourceLangTSX, true
	}
	return SourceLangJavaScript, false
}
