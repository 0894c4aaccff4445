// Package registry aggregates converted components into the ordered style
// registry handed to code emission.
package registry

import (
	"slices"
	"strconv"

	"github.com/elliotchance/orderedmap/v3"
	"go.uber.org/zap"

	"stylemig/component"
	"stylemig/diag"
	"stylemig/styleobj"
)

type EntryKind int

const (
	EntryStyle EntryKind = iota
	EntryDynamic
	EntryKeyframes
)

func (k EntryKind) String() string {
	switch k {
	case EntryStyle:
		return "style"
	case EntryDynamic:
		return "dynamic"
	case EntryKeyframes:
		return "keyframes"
	}
	return "unknown"
}

// Entry is one named registry item.
type Entry struct {
	Name      string
	Kind      EntryKind
	Component string
	Style     *styleobj.Object
	// Dynamic is set for single argument function entries.
	Dynamic *component.DynamicStyle
}

// Mixin is a shared css helper converted into its own entry.
type Mixin struct {
	Name  string
	Style *styleobj.Object
}

// Keyframes is a converted keyframes declaration.
type Keyframes struct {
	Name   string
	Frames *styleobj.Object
}

// Registry keeps entries in insertion order, the order is the only
// precedence signal the target model has.
type Registry struct {
	log       *zap.Logger
	sink      *diag.Sink
	entries   *orderedmap.OrderedMap[string, *Entry]
	keyframes *orderedmap.OrderedMap[string, *Entry]
	markers   []string

	// markerOwner maps marker to component defining it.
	markerOwner map[string]string
	// mixins maps local helper name to entry name.
	mixins map[string]string
	// bases maps renamed component base keys to their final names.
	bases map[string]string
}

func New(sink *diag.Sink, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	if sink == nil {
		sink = diag.NewSink()
	}
	return &Registry{
		log:       log.Named("registry"),
		sink:      sink,
		entries:   orderedmap.NewOrderedMap[string, *Entry](),
		keyframes: orderedmap.NewOrderedMap[string, *Entry](),
		mixins:    make(map[string]string),
		bases:     make(map[string]string),

		markerOwner: make(map[string]string),
	}
}

// Aggregate builds registry for the whole file: mixins first, then every
// component of the set in discovery order.
func Aggregate(set *component.Set, mixins []Mixin, keyframes []Keyframes, sink *diag.Sink, log *zap.Logger) *Registry {
	r := New(sink, log)
	for _, k := range keyframes {
		r.AddKeyframes(k.Name, k.Frames)
	}
	for _, m := range mixins {
		r.AddMixin(m.Name, m.Style)
	}
	for _, info := range set.All() {
		r.AddComponent(info)
	}
	r.Relink(set)
	return r
}

// Relink points relations of every component at base entries renamed while
// other components were added.
func (r *Registry) Relink(set *component.Set) {
	if len(r.bases) == 0 {
		return
	}
	for _, info := range set.All() {
		for i := range info.Relations {
			rel := &info.Relations[i]
			if rel.CrossFile {
				continue
			}
			if final, ok := r.bases[rel.ChildStyleKey]; ok {
				rel.ChildStyleKey = final
			}
		}
	}
}

func (r *Registry) unique(name, owner string) string {
	if _, taken := r.entries.Get(name); !taken {
		return name
	}
	r.sink.Report(diag.KindRegistryNameCollision, owner, name, nil)
	for i := 2; ; i++ {
		n := name + strconv.Itoa(i)
		if _, taken := r.entries.Get(n); !taken {
			return n
		}
	}
}

func (r *Registry) add(e *Entry) string {
	e.Name = r.unique(e.Name, e.Component)
	r.entries.Set(e.Name, e)
	return e.Name
}

// AddKeyframes records keyframes object, keyframes live in their own
// namespace of the host file.
func (r *Registry) AddKeyframes(name string, frames *styleobj.Object) {
	r.keyframes.Set(name, &Entry{Name: name, Kind: EntryKeyframes, Style: frames})
}

// AddMixin adds shared helper entry and returns its final name.
func (r *Registry) AddMixin(name string, style *styleobj.Object) string {
	final := r.add(&Entry{Name: name, Kind: EntryStyle, Style: style})
	r.mixins[name] = final
	return final
}

// MixinEntry resolves helper local name to entry name.
func (r *Registry) MixinEntry(name string) (string, bool) {
	n, ok := r.mixins[name]
	return n, ok
}

// AddComponent appends base, extra, variant and dynamic entries of info.
// Empty base styles get no entry. Components with sibling patterns emit
// extras before the base entry. Names
// changed to resolve collisions are written back into info.
func (r *Registry) AddComponent(info *component.StyleInfo) {
	base := func() {
		if info.Style == nil || info.Style.Len() == 0 {
			return
		}
		if final := r.add(&Entry{Name: info.StyleKey, Kind: EntryStyle, Component: info.Name, Style: info.Style}); final != info.StyleKey {
			rename(info, info.StyleKey, final)
			r.bases[info.StyleKey] = final
			info.StyleKey = final
		}
	}
	extras := func() {
		for i := range info.Extras {
			e := &info.Extras[i]
			if final := r.add(&Entry{Name: e.Name, Kind: EntryStyle, Component: info.Name, Style: e.Style}); final != e.Name {
				rename(info, e.Name, final)
			}
		}
	}

	if info.HasSiblingPattern() {
		extras()
		base()
	} else {
		base()
		extras()
	}
	for i := range info.Variants {
		v := &info.Variants[i]
		v.Name = r.add(&Entry{Name: v.Name, Kind: EntryStyle, Component: info.Name, Style: v.Style})
	}
	for i := range info.DynamicFns {
		d := &info.DynamicFns[i]
		d.Name = r.add(&Entry{Name: d.Name, Kind: EntryDynamic, Component: info.Name, Dynamic: d})
	}
	if info.Marker != "" {
		r.markers = append(r.markers, info.Marker)
		r.markerOwner[info.Marker] = info.Name
	}
	r.log.Debug("Component aggregated", zap.String("component", info.Name), zap.Int("entries", r.entries.Len()))
}

// rename updates every reference info holds to entry old.
func rename(info *component.StyleInfo, old, final string) {
	for i := range info.Extras {
		if info.Extras[i].Name == old {
			info.Extras[i].Name = final
		}
	}
	for i := range info.Rules {
		if info.Rules[i].StyleKey == old {
			info.Rules[i].StyleKey = final
		}
	}
	for i := range info.AttrSelectors {
		if info.AttrSelectors[i].StyleKey == old {
			info.AttrSelectors[i].StyleKey = final
		}
	}
	for i := range info.SiblingSelectors {
		if info.SiblingSelectors[i].StyleKey == old {
			info.SiblingSelectors[i].StyleKey = final
		}
	}
	for i := range info.Relations {
		rel := &info.Relations[i]
		if rel.OverrideStyleKey == old {
			rel.OverrideStyleKey = final
		}
		if rel.ParentStyleKey == old {
			rel.ParentStyleKey = final
		}
	}
}

// Entries returns style and dynamic entries in order.
func (r *Registry) Entries() []*Entry {
	out := make([]*Entry, 0, r.entries.Len())
	for _, e := range r.entries.AllFromFront() {
		out = append(out, e)
	}
	return out
}

func (r *Registry) Entry(name string) (*Entry, bool) {
	return r.entries.Get(name)
}

// Keyframes returns keyframes entries in order.
func (r *Registry) Keyframes() []*Entry {
	out := make([]*Entry, 0, r.keyframes.Len())
	for _, e := range r.keyframes.AllFromFront() {
		out = append(out, e)
	}
	return out
}

func (r *Registry) Markers() []string {
	return r.markers
}

func (r *Registry) Len() int {
	return r.entries.Len()
}

// RemoveComponent drops every entry and marker contributed by component,
// used when its rendering is abandoned.
func (r *Registry) RemoveComponent(name string) {
	for _, e := range r.Entries() {
		if e.Component == name {
			r.entries.Delete(e.Name)
		}
	}
	r.markers = slices.DeleteFunc(r.markers, func(m string) bool {
		return r.markerOwner[m] == name
	})
}
