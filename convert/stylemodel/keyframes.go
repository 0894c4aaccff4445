package stylemodel

import (
	"regexp"
	"strings"

	"stylemig/css"
	"stylemig/diag"
	"stylemig/styleobj"
)

var (
	timeRe         = regexp.MustCompile(`^-?(\d+|\d*\.\d+)m?s$`)
	iterationRe    = regexp.MustCompile(`^(\d+|\d*\.\d+)$`)
	timingKeywords = map[string]bool{
		"ease": true, "ease-in": true, "ease-out": true, "ease-in-out": true,
		"linear": true, "step-start": true, "step-end": true,
	}
	directionKeywords = map[string]bool{"normal": true, "reverse": true, "alternate": true, "alternate-reverse": true}
	fillKeywords      = map[string]bool{"none": true, "forwards": true, "backwards": true, "both": true}
	playKeywords      = map[string]bool{"running": true, "paused": true}
)

// expandAnimation splits single animation shorthand referencing keyframes
// into longhands, keyframes reference becomes animationName expression.
func (c *Converter) expandAnimation(st *state, target *styleobj.Object, value string, parts map[int]styleobj.Value) {
	durations := 0
	for _, tok := range styleobj.SplitValue(value) {
		if idx, ok := css.IsPlaceholder(tok); ok {
			v := parts[idx]
			if _, isExpr := v.(styleobj.Expr); isExpr && !target.Has("animationName") {
				target.Set("animationName", v)
				continue
			}
			tok = styleobj.Text(v)
		}
		t := strings.ToLower(tok)
		switch {
		case timeRe.MatchString(t):
			if durations == 0 {
				target.Set("animationDuration", styleobj.String(tok))
			} else {
				target.Set("animationDelay", styleobj.String(tok))
			}
			durations++
		case timingKeywords[t] || strings.HasPrefix(t, "cubic-bezier(") || strings.HasPrefix(t, "steps("):
			target.Set("animationTimingFunction", styleobj.String(tok))
		case t == "infinite" || iterationRe.MatchString(t):
			target.Set("animationIterationCount", styleobj.FromCSS("animationIterationCount", tok))
		case directionKeywords[t]:
			target.Set("animationDirection", styleobj.String(tok))
		case fillKeywords[t]:
			target.Set("animationFillMode", styleobj.String(tok))
		case playKeywords[t]:
			target.Set("animationPlayState", styleobj.String(tok))
		default:
			target.Set("animationName", styleobj.String(tok))
		}
	}
	c.diags.Report(diag.KindAnimationExpanded, st.component, value, st.loc)
}

// ConvertKeyframes converts keyframes template into frame selector -> style
// object. Frame lists like "0%, 100%" produce one entry per frame.
// Interpolations that do not convert statically are dropped.
func (c *Converter) ConvertKeyframes(name string, tpl *css.Template, loc *diag.Location) *styleobj.Object {
	st := c.newState(name, tpl, loc)
	st.static = true
	for _, w := range tpl.Warnings {
		c.diags.Report(diag.KindKeyframesParseError, name, w.Message, loc)
	}

	frames := styleobj.NewObject()
	for _, r := range tpl.Root.NestedRules {
		if r.IsAtRule() {
			c.diags.Report(diag.KindUnsupportedAtRule, name, r.AtRule, loc)
			continue
		}
		body := styleobj.NewObject()
		for _, d := range r.Declarations {
			if css.HasPlaceholder(d.Value) || d.Spread {
				c.diags.Report(diag.KindKeyframesInterpolation, name, d.Property+": "+d.Value, loc)
			}
			c.declaration(st, r, d, body, nil, false)
		}
		for _, sel := range styleobj.SplitTopLevel(r.Selector, ',') {
			key := strings.ToLower(strings.TrimSpace(sel))
			existing := child(frames, key)
			existing.Merge(body.Clone())
		}
	}
	if len(tpl.Root.Declarations) > 0 {
		c.diags.Report(diag.KindKeyframesParseError, name, "declarations outside of frames", loc)
	}
	return frames
}
