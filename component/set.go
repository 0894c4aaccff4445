package component

import "slices"

// Set is the per run arena of StyleInfo indexed by component name. Cross
// component passes address entries by name, never by pointer held in another
// entry.
type Set struct {
	order []string
	items map[string]*StyleInfo
}

func NewSet() *Set {
	return &Set{items: make(map[string]*StyleInfo)}
}

// Add registers info, a second info with the same name replaces the first
// keeping original position.
func (s *Set) Add(info *StyleInfo) {
	if _, ok := s.items[info.Name]; !ok {
		s.order = append(s.order, info.Name)
	}
	s.items[info.Name] = info
}

func (s *Set) Get(name string) (*StyleInfo, bool) {
	info, ok := s.items[name]
	return info, ok
}

func (s *Set) Has(name string) bool {
	_, ok := s.items[name]
	return ok
}

// Remove drops component, used when its conversion is abandoned.
func (s *Set) Remove(name string) {
	if _, ok := s.items[name]; !ok {
		return
	}
	delete(s.items, name)
	s.order = slices.DeleteFunc(s.order, func(n string) bool { return n == name })
}

func (s *Set) Len() int {
	return len(s.order)
}

// Names returns components in discovery order.
func (s *Set) Names() []string {
	return slices.Clone(s.order)
}

// All iterates components in discovery order.
func (s *Set) All() []*StyleInfo {
	out := make([]*StyleInfo, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, s.items[n])
	}
	return out
}

// BaseChain returns bases of name that are part of the set, nearest first.
func (s *Set) BaseChain(name string) []*StyleInfo {
	var chain []*StyleInfo
	seen := map[string]bool{name: true}
	cur, ok := s.items[name]
	for ok && cur.Base != "" && !seen[cur.Base] {
		seen[cur.Base] = true
		cur, ok = s.items[cur.Base]
		if ok {
			chain = append(chain, cur)
		}
	}
	return chain
}

// HostTag resolves element rendered at the end of the base chain. It returns
// the outermost base that is not part of the set when chain ends in a
// foreign component.
func (s *Set) HostTag(name string) (tag string, foreign string) {
	info, ok := s.items[name]
	if !ok {
		return "", name
	}
	if info.Tag != "" {
		return info.Tag, ""
	}
	chain := s.BaseChain(name)
	last := info
	if len(chain) > 0 {
		last = chain[len(chain)-1]
	}
	if last.Tag != "" {
		return last.Tag, ""
	}
	return "", last.Base
}

// PropagateAs marks every component based (directly or transitively) on an
// as-capable component as capable too and returns names that changed. It
// walks derived-by-base edges with a worklist until nothing changes.
func (s *Set) PropagateAs() []string {
	derived := make(map[string][]string)
	var worklist []string
	for _, n := range s.order {
		info := s.items[n]
		if info.Base != "" {
			derived[info.Base] = append(derived[info.Base], n)
		}
		if info.SupportsAs {
			worklist = append(worklist, n)
		}
	}
	var changed []string
	for len(worklist) > 0 {
		n := worklist[0]
		worklist = worklist[1:]
		for _, d := range derived[n] {
			info := s.items[d]
			if info.SupportsAs {
				continue
			}
			info.SupportsAs = true
			changed = append(changed, d)
			worklist = append(worklist, d)
		}
	}
	return changed
}
