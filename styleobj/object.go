// Package styleobj implements canonical style objects: insertion ordered maps
// from property tokens to literal values, nested objects or conditional
// values.
package styleobj

import (
	"strconv"
	"strings"

	"github.com/elliotchance/orderedmap/v3"
)

// DefaultKey is the unconditional branch of a conditional value.
const DefaultKey = "default"

// Value is one of String, Number, Null, Expr, *Object or *Conditional.
type Value interface {
	isValue()
}

type (
	// String is a literal CSS value.
	String string
	// Number is a literal number, unit-less properties and pixel lengths.
	Number float64
	// Null explicitly unsets property.
	Null struct{}
	// Expr is host expression text spliced into generated code verbatim.
	Expr string
)

func (String) isValue()       {}
func (Number) isValue()       {}
func (Null) isValue()         {}
func (Expr) isValue()         {}
func (*Object) isValue()      {}
func (*Conditional) isValue() {}

// IsLeaf reports whether value is a literal or expression.
func IsLeaf(v Value) bool {
	switch v.(type) {
	case String, Number, Null, Expr:
		return true
	}
	return false
}

// Text returns leaf value as it would appear in CSS, used for comparisons and
// diagnostics.
func Text(v Value) string {
	switch t := v.(type) {
	case String:
		return string(t)
	case Number:
		return strconv.FormatFloat(float64(t), 'f', -1, 64)
	case Null:
		return "null"
	case Expr:
		return string(t)
	}
	return ""
}

// Object keeps keys in insertion order, key order is significant for the
// target model.
type Object struct {
	m *orderedmap.OrderedMap[string, Value]
}

func NewObject() *Object {
	return &Object{m: orderedmap.NewOrderedMap[string, Value]()}
}

func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return o.m.Len()
}

func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return nil, false
	}
	return o.m.Get(key)
}

func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Set stores value, existing keys keep their position.
func (o *Object) Set(key string, v Value) {
	o.m.Set(key, v)
}

func (o *Object) Delete(key string) {
	o.m.Delete(key)
}

// Keys returns a snapshot, callers may modify object while iterating it.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	keys := make([]string, 0, o.m.Len())
	for k := range o.m.AllFromFront() {
		keys = append(keys, k)
	}
	return keys
}

// Each calls fn for every entry in order, fn must not modify the object.
func (o *Object) Each(fn func(key string, v Value)) {
	if o == nil {
		return
	}
	for k, v := range o.m.AllFromFront() {
		fn(k, v)
	}
}

// Clone makes deep copy.
func (o *Object) Clone() *Object {
	out := NewObject()
	o.Each(func(k string, v Value) {
		out.Set(k, CloneValue(v))
	})
	return out
}

func CloneValue(v Value) Value {
	switch t := v.(type) {
	case *Object:
		return t.Clone()
	case *Conditional:
		return t.Clone()
	}
	return v
}

// Merge folds other into o. Nested objects are merged recursively, for
// conditionals branches of other win, everything else is overwritten.
func (o *Object) Merge(other *Object) {
	other.Each(func(k string, v Value) {
		cur, ok := o.Get(k)
		if !ok {
			o.Set(k, CloneValue(v))
			return
		}
		switch nv := v.(type) {
		case *Object:
			if co, ok := cur.(*Object); ok {
				co.Merge(nv)
				return
			}
		case *Conditional:
			c := AsConditional(cur)
			c.Merge(nv)
			o.Set(k, c)
			return
		default:
			if cc, ok := cur.(*Conditional); ok {
				cc.Set(DefaultKey, v)
				return
			}
		}
		o.Set(k, CloneValue(v))
	})
}

// Equal compares objects including key order.
func (o *Object) Equal(other *Object) bool {
	if o.Len() != other.Len() {
		return false
	}
	ka, kb := o.Keys(), other.Keys()
	for i := range ka {
		if ka[i] != kb[i] {
			return false
		}
		va, _ := o.Get(ka[i])
		vb, _ := other.Get(kb[i])
		if !ValueEqual(va, vb) {
			return false
		}
	}
	return true
}

func ValueEqual(a, b Value) bool {
	switch ta := a.(type) {
	case *Object:
		tb, ok := b.(*Object)
		return ok && ta.Equal(tb)
	case *Conditional:
		tb, ok := b.(*Conditional)
		return ok && ta.entries.Equal(tb.entries)
	}
	return a == b
}

// Conditional is a property value that depends on pseudo classes, at-rules
// or relation conditions. The default branch is always first.
type Conditional struct {
	entries *Object
}

func NewConditional(def Value) *Conditional {
	c := &Conditional{entries: NewObject()}
	if def == nil {
		def = Null{}
	}
	c.entries.Set(DefaultKey, def)
	return c
}

// AsConditional turns any value into conditional with that value as default.
func AsConditional(v Value) *Conditional {
	if c, ok := v.(*Conditional); ok {
		return c
	}
	return NewConditional(v)
}

func (c *Conditional) Default() Value {
	v, _ := c.entries.Get(DefaultKey)
	return v
}

func (c *Conditional) Get(cond string) (Value, bool) {
	return c.entries.Get(cond)
}

func (c *Conditional) Set(cond string, v Value) {
	c.entries.Set(cond, v)
}

func (c *Conditional) Delete(cond string) {
	if cond == DefaultKey {
		c.entries.Set(DefaultKey, Null{})
		return
	}
	c.entries.Delete(cond)
}

// Conditions returns keys in order, default first.
func (c *Conditional) Conditions() []string {
	return c.entries.Keys()
}

func (c *Conditional) Len() int {
	return c.entries.Len()
}

func (c *Conditional) Each(fn func(cond string, v Value)) {
	c.entries.Each(fn)
}

func (c *Conditional) Clone() *Conditional {
	return &Conditional{entries: c.entries.Clone()}
}

// Merge copies branches from other, replacing existing ones. Default of other
// only wins when it is not null.
func (c *Conditional) Merge(other *Conditional) {
	other.Each(func(cond string, v Value) {
		if cond == DefaultKey {
			if _, isNull := v.(Null); isNull {
				return
			}
		}
		c.Set(cond, CloneValue(v))
	})
}

// IsPseudoClassKey matches ":hover", ":focus-visible" and similar, but not
// pseudo elements.
func IsPseudoClassKey(key string) bool {
	return strings.HasPrefix(key, ":") && !strings.HasPrefix(key, "::")
}

func IsPseudoElementKey(key string) bool {
	return strings.HasPrefix(key, "::")
}

func IsAtRuleKey(key string) bool {
	return strings.HasPrefix(key, "@")
}

// IsConditionKey reports keys that become branches of conditional values.
func IsConditionKey(key string) bool {
	return IsPseudoClassKey(key) || IsAtRuleKey(key) || IsWhenKey(key)
}
