package styleobj

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Properties accepting bare numbers without unit.
var unitless = map[string]bool{
	"animationIterationCount": true, "aspectRatio": true, "borderImageOutset": true,
	"borderImageSlice": true, "borderImageWidth": true, "boxFlex": true, "boxFlexGroup": true,
	"boxOrdinalGroup": true, "columnCount": true, "columns": true, "flex": true, "flexGrow": true,
	"flexPositive": true, "flexShrink": true, "flexNegative": true, "flexOrder": true,
	"gridArea": true, "gridRow": true, "gridRowEnd": true, "gridRowSpan": true, "gridRowStart": true,
	"gridColumn": true, "gridColumnEnd": true, "gridColumnSpan": true, "gridColumnStart": true,
	"fontWeight": true, "lineClamp": true, "lineHeight": true, "opacity": true, "order": true,
	"orphans": true, "scale": true, "tabSize": true, "widows": true, "zIndex": true, "zoom": true,
	"fillOpacity": true, "floodOpacity": true, "stopOpacity": true, "strokeDasharray": true,
	"strokeDashoffset": true, "strokeMiterlimit": true, "strokeOpacity": true, "strokeWidth": true,
}

func IsUnitless(prop string) bool {
	return unitless[prop]
}

// Box shorthands (1 to 4 values, top right bottom left order) and the
// longhands they expand into.
var boxShorthands = map[string][4]string{
	"margin":        {"marginTop", "marginRight", "marginBottom", "marginLeft"},
	"padding":       {"paddingTop", "paddingRight", "paddingBottom", "paddingLeft"},
	"inset":         {"top", "right", "bottom", "left"},
	"borderWidth":   {"borderTopWidth", "borderRightWidth", "borderBottomWidth", "borderLeftWidth"},
	"borderStyle":   {"borderTopStyle", "borderRightStyle", "borderBottomStyle", "borderLeftStyle"},
	"borderColor":   {"borderTopColor", "borderRightColor", "borderBottomColor", "borderLeftColor"},
	"borderRadius":  {"borderTopLeftRadius", "borderTopRightRadius", "borderBottomRightRadius", "borderBottomLeftRadius"},
	"scrollMargin":  {"scrollMarginTop", "scrollMarginRight", "scrollMarginBottom", "scrollMarginLeft"},
	"scrollPadding": {"scrollPaddingTop", "scrollPaddingRight", "scrollPaddingBottom", "scrollPaddingLeft"},
}

// BoxLonghands returns longhands of a box shorthand.
func BoxLonghands(prop string) ([4]string, bool) {
	l, ok := boxShorthands[prop]
	return l, ok
}

// Two value shorthands, first value goes to first longhand, single value to
// both.
var pairShorthands = map[string][2]string{
	"gap":          {"rowGap", "columnGap"},
	"overflow":     {"overflowX", "overflowY"},
	"placeItems":   {"alignItems", "justifyItems"},
	"placeSelf":    {"alignSelf", "justifySelf"},
	"placeContent": {"alignContent", "justifyContent"},
}

func PairLonghands(prop string) ([2]string, bool) {
	l, ok := pairShorthands[prop]
	return l, ok
}

// Border like shorthands combine width, style and color in any order.
var borderShorthands = map[string][3]string{
	"border":       {"borderWidth", "borderStyle", "borderColor"},
	"borderTop":    {"borderTopWidth", "borderTopStyle", "borderTopColor"},
	"borderRight":  {"borderRightWidth", "borderRightStyle", "borderRightColor"},
	"borderBottom": {"borderBottomWidth", "borderBottomStyle", "borderBottomColor"},
	"borderLeft":   {"borderLeftWidth", "borderLeftStyle", "borderLeftColor"},
	"outline":      {"outlineWidth", "outlineStyle", "outlineColor"},
}

// BorderLonghands returns width, style and color longhands.
func BorderLonghands(prop string) ([3]string, bool) {
	l, ok := borderShorthands[prop]
	return l, ok
}

var borderStyles = map[string]bool{
	"none": true, "hidden": true, "dotted": true, "dashed": true, "solid": true,
	"double": true, "groove": true, "ridge": true, "inset": true, "outset": true,
}

// BorderPart tells which sub-value of a border shorthand token is.
type BorderPart int

const (
	BorderWidth BorderPart = iota
	BorderStyle
	BorderColor
)

func ClassifyBorderToken(tok string) BorderPart {
	t := strings.ToLower(tok)
	switch {
	case borderStyles[t]:
		return BorderStyle
	case t == "thin" || t == "medium" || t == "thick":
		return BorderWidth
	case t != "" && (t[0] >= '0' && t[0] <= '9' || t[0] == '.'):
		return BorderWidth
	case strings.HasPrefix(t, "calc(") || strings.HasPrefix(t, "clamp(") || strings.HasPrefix(t, "min(") || strings.HasPrefix(t, "max("):
		return BorderWidth
	}
	return BorderColor
}

// SplitValue splits CSS value on top level whitespace, keeping function
// arguments and quoted strings intact.
func SplitValue(v string) []string {
	var (
		out   []string
		cur   strings.Builder
		depth int
		quote rune
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range v {
		switch {
		case quote != 0:
			cur.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
			cur.WriteRune(r)
		case r == '(':
			depth++
			cur.WriteRune(r)
		case r == ')':
			if depth > 0 {
				depth--
			}
			cur.WriteRune(r)
		case depth == 0 && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

// SplitTopLevel splits on a separator outside of parentheses and quotes.
func SplitTopLevel(v string, sep rune) []string {
	var (
		out   []string
		start int
		depth int
		quote rune
	)
	for i, r := range v {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '(' || r == '[':
			depth++
		case r == ')' || r == ']':
			if depth > 0 {
				depth--
			}
		case r == sep && depth == 0:
			out = append(out, v[start:i])
			start = i + len(string(sep))
		}
	}
	return append(out, v[start:])
}

// CamelCase converts CSS property name into its token form: background-color
// becomes backgroundColor, -webkit-box-shadow becomes WebkitBoxShadow and
// -ms- prefix becomes ms. Custom properties are returned unchanged.
func CamelCase(prop string) string {
	if strings.HasPrefix(prop, "--") {
		return prop
	}
	prop = strings.ToLower(strings.TrimSpace(prop))
	if strings.HasPrefix(prop, "-ms-") {
		prop = prop[1:]
	}
	var b strings.Builder
	upper := false
	for _, r := range prop {
		if r == '-' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// KebabCase is the inverse of CamelCase for non custom properties.
func KebabCase(prop string) string {
	if strings.HasPrefix(prop, "--") {
		return prop
	}
	var b strings.Builder
	if strings.HasPrefix(prop, "ms") && len(prop) > 2 && unicode.IsUpper(rune(prop[2])) {
		b.WriteString("-ms")
		prop = prop[2:]
	}
	for _, r := range prop {
		if unicode.IsUpper(r) {
			b.WriteByte('-')
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsVendorPrefixed reports properties like WebkitAppearance.
func IsVendorPrefixed(prop string) bool {
	for _, p := range []string{"Webkit", "Moz", "ms", "O"} {
		if strings.HasPrefix(prop, p) && len(prop) > len(p) && prop[len(p)] >= 'A' && prop[len(p)] <= 'Z' {
			return true
		}
	}
	return false
}

// Capitalize upper cases the first letter and leaves the rest alone.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	return cases.Title(language.Und, cases.NoLower).String(s)
}

func LowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// FromCSS converts static CSS value text into canonical value. Bare numbers
// on unit-less properties and pixel lengths on unit-bearing ones become
// numbers, everything else stays text.
func FromCSS(prop, value string) Value {
	value = strings.TrimSpace(value)
	if n, err := strconv.ParseFloat(value, 64); err == nil {
		if IsUnitless(prop) || n == 0 {
			return Number(n)
		}
		return String(value)
	}
	if px, ok := strings.CutSuffix(value, "px"); ok && !IsUnitless(prop) && !strings.HasPrefix(prop, "--") {
		if n, err := strconv.ParseFloat(px, 64); err == nil {
			return Number(n)
		}
	}
	return String(value)
}

// FromLiteral converts interpolated host literal. Numbers stay numbers like
// the runtime library treats them.
func FromLiteral(value string, number bool) Value {
	if number {
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			return Number(n)
		}
	}
	return String(value)
}
