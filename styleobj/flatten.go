package styleobj

// ToPropertyLevelConditionals rewrites nested condition blocks
// ({":hover": {color: "red"}}) into per property conditional values
// ({color: {default: ..., ":hover": "red"}}). Pseudo elements and other
// selector keys stay nested, their content is flattened in place. Nested
// conditions collapse into a single compound key, every such key is returned
// so that caller can report it.
func ToPropertyLevelConditionals(o *Object) (*Object, []string) {
	out := NewObject()
	var combined []string
	flattenInto(out, o, "", &combined)
	return out, combined
}

func joinConditions(outer, inner string) string {
	if outer == "" {
		return inner
	}
	if inner == DefaultKey {
		return outer
	}
	return outer + " " + inner
}

func flattenInto(out, in *Object, cond string, combined *[]string) {
	for _, key := range in.Keys() {
		v, _ := in.Get(key)
		switch tv := v.(type) {
		case *Object:
			if IsConditionKey(key) {
				c := joinConditions(cond, key)
				if cond != "" {
					*combined = append(*combined, c)
				}
				flattenInto(out, tv, c, combined)
				continue
			}
			nested, ok := out.Get(key)
			target, isObj := nested.(*Object)
			if !ok || !isObj {
				target = NewObject()
				out.Set(key, target)
			}
			flattenInto(target, tv, cond, combined)
		case *Conditional:
			tv.Each(func(c string, bv Value) {
				joined := joinConditions(cond, c)
				if cond != "" && c != DefaultKey {
					*combined = append(*combined, joined)
				}
				if joined == DefaultKey {
					joined = ""
				}
				setBranch(out, key, joined, CloneValue(bv))
			})
		default:
			setBranch(out, key, cond, v)
		}
	}
}

func setBranch(out *Object, prop, cond string, v Value) {
	existing, ok := out.Get(prop)
	if cond == "" {
		if c, isCond := existing.(*Conditional); ok && isCond {
			c.Set(DefaultKey, v)
			return
		}
		out.Set(prop, v)
		return
	}
	var c *Conditional
	if ok {
		c = AsConditional(existing)
	} else {
		c = NewConditional(Null{})
	}
	c.Set(cond, v)
	out.Set(prop, c)
}

// IsPropertyLevel verifies that no condition key holds a nested object and
// no conditional holds another conditional or object.
func IsPropertyLevel(o *Object) bool {
	ok := true
	o.Each(func(k string, v Value) {
		switch tv := v.(type) {
		case *Object:
			if IsConditionKey(k) || !IsPropertyLevel(tv) {
				ok = false
			}
		case *Conditional:
			tv.Each(func(_ string, bv Value) {
				if !IsLeaf(bv) {
					ok = false
				}
			})
		}
	})
	return ok
}
