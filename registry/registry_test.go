package registry

import (
	"slices"
	"strings"
	"testing"

	"go.uber.org/zap"

	"stylemig/component"
	"stylemig/diag"
	"stylemig/styleobj"
)

func style(kv ...string) *styleobj.Object {
	o := styleobj.NewObject()
	for i := 0; i+1 < len(kv); i += 2 {
		o.Set(kv[i], styleobj.String(kv[i+1]))
	}
	return o
}

func names(r *Registry) []string {
	var out []string
	for _, e := range r.Entries() {
		out = append(out, e.Name)
	}
	return out
}

func TestAggregateOrder(t *testing.T) {
	set := component.NewSet()
	set.Add(&component.StyleInfo{
		Name:     "Button",
		StyleKey: "button",
		Style:    style("color", "red"),
		Extras:   []component.Extra{{Name: "buttonDisabled", Style: style("opacity", "0.5")}},
		Variants: []component.Variant{{Name: "buttonPrimaryTruthy", PropName: "$primary", Truthy: true, Style: style("color", "white")}},
		DynamicFns: []component.DynamicStyle{{
			Name: "buttonWidth", PropName: "$width", Param: "width", ParamType: "string", Expression: "width", Property: "width",
		}},
	})
	set.Add(&component.StyleInfo{
		Name:             "Item",
		StyleKey:         "item",
		Style:            style("color", "black"),
		Extras:           []component.Extra{{Name: "itemIsAdjacentSibling", Style: style("marginTop", "8px")}},
		SiblingSelectors: []component.SiblingSelector{{StyleKey: "itemIsAdjacentSibling", Prop: "isAdjacentSibling"}},
	})

	r := Aggregate(set, []Mixin{{Name: "truncate", Style: style("overflow", "hidden")}}, nil, diag.NewSink(), zap.NewNop())

	expected := []string{"truncate", "button", "buttonDisabled", "buttonPrimaryTruthy", "buttonWidth", "itemIsAdjacentSibling", "item"}
	if got := names(r); !slices.Equal(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}
	if e, _ := r.Entry("buttonWidth"); e.Kind != EntryDynamic {
		t.Errorf("expected dynamic entry, got %v", e.Kind)
	}
	if n, ok := r.MixinEntry("truncate"); !ok || n != "truncate" {
		t.Errorf("expected truncate mixin entry, got %q", n)
	}
}

func TestNameCollision(t *testing.T) {
	set := component.NewSet()
	info := &component.StyleInfo{
		Name:          "Truncate",
		StyleKey:      "truncate",
		Style:         style("color", "red"),
		Extras:        []component.Extra{{Name: "truncateHref", Style: style("color", "blue")}},
		AttrSelectors: []component.AttrSelector{{StyleKey: "truncateHref", Attr: "href"}},
	}
	set.Add(info)
	sink := diag.NewSink()

	r := Aggregate(set, []Mixin{{Name: "truncate", Style: style("overflow", "hidden")}, {Name: "truncateHref", Style: style("a", "b")}}, nil, sink, zap.NewNop())

	if info.StyleKey != "truncate2" {
		t.Errorf("expected renamed style key, got %s", info.StyleKey)
	}
	if info.Extras[0].Name != "truncateHref2" || info.AttrSelectors[0].StyleKey != "truncateHref2" {
		t.Errorf("expected renamed extra, got %+v %+v", info.Extras, info.AttrSelectors)
	}
	if sink.Count(diag.KindRegistryNameCollision) != 2 {
		t.Errorf("expected 2 collisions, got %v", sink.Items())
	}
	if r.Len() != 4 {
		t.Errorf("expected 4 entries, got %v", names(r))
	}
}

func TestEmptyBase(t *testing.T) {
	set := component.NewSet()
	set.Add(&component.StyleInfo{
		Name:     "Nav",
		StyleKey: "nav",
		Style:    styleobj.NewObject(),
		Extras:   []component.Extra{{Name: "navChildren", Style: style("margin", "0")}},
	})
	set.Add(&component.StyleInfo{Name: "Bare", StyleKey: "bare"})

	r := Aggregate(set, nil, nil, nil, zap.NewNop())

	expected := []string{"navChildren"}
	if got := names(r); !slices.Equal(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}
	if got := r.Emit(EmitOptions{}); strings.Contains(got, "nav: {") {
		t.Errorf("expected no empty entry, got\n%s", got)
	}
}

func TestRenameRelinksRelations(t *testing.T) {
	set := component.NewSet()
	card := &component.StyleInfo{
		Name:     "Card",
		StyleKey: "card",
		Style:    style("padding", "8px"),
		Relations: []component.RelationOverride{
			{ParentStyleKey: "card", ChildStyleKey: "truncate", OverrideStyleKey: "truncateInCard"},
			{ParentStyleKey: "card", ChildStyleKey: "truncate", OverrideStyleKey: "truncateInCard", CrossFile: true},
		},
	}
	truncate := &component.StyleInfo{Name: "Truncate", StyleKey: "truncate", Style: style("color", "red")}
	set.Add(card)
	set.Add(truncate)

	Aggregate(set, []Mixin{{Name: "truncate", Style: style("overflow", "hidden")}}, nil, nil, zap.NewNop())

	if truncate.StyleKey != "truncate2" {
		t.Fatalf("expected renamed style key, got %s", truncate.StyleKey)
	}
	if got := card.Relations[0].ChildStyleKey; got != "truncate2" {
		t.Errorf("expected relation relinked to truncate2, got %s", got)
	}
	if got := card.Relations[1].ChildStyleKey; got != "truncate" {
		t.Errorf("expected cross-file relation untouched, got %s", got)
	}
}

func TestEmit(t *testing.T) {
	set := component.NewSet()
	set.Add(&component.StyleInfo{
		Name:     "Button",
		StyleKey: "button",
		Style:    style("color", "red"),
		Marker:   "buttonMarker",
		DynamicFns: []component.DynamicStyle{{
			Name: "buttonWidth", Param: "width", ParamType: "string", Expression: "width", Property: "width",
		}},
	})
	frames := styleobj.NewObject()
	frames.Set("from", style("opacity", "0"))
	r := Aggregate(set, nil, []Keyframes{{Name: "fadeIn", Frames: frames}}, nil, nil)

	expected := `const buttonMarker = stylex.defineMarker();

const styles = stylex.create({
  button: {
    color: "red",
  },
  buttonWidth: (width: string) => ({
    width: width,
  }),
});
`
	if got := r.Emit(EmitOptions{TypeScript: true}); got != expected {
		t.Errorf("expected\n%s\ngot\n%s", expected, got)
	}
	if got := r.Emit(EmitOptions{}); !strings.Contains(got, "buttonWidth: (width) => ({") {
		t.Errorf("expected untyped parameter, got\n%s", got)
	}

	kf, ok := r.EmitKeyframes("fadeIn", EmitOptions{Namespace: "sx"})
	if !ok || !strings.HasPrefix(kf, "sx.keyframes({\n  from: {\n    opacity: \"0\",") {
		t.Errorf("unexpected keyframes %q", kf)
	}
	if _, ok := r.EmitKeyframes("missing", EmitOptions{}); ok {
		t.Errorf("expected missing keyframes")
	}
}
