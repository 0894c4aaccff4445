package styleobj

import "strings"

// Relation conditions are encoded into plain string keys so that they can
// live in ordered objects next to pseudo classes. Emission turns them into
// computed keys.
const whenPrefix = "when:"

type Relation string

const (
	RelationAncestor      Relation = "ancestor"
	RelationDescendant    Relation = "descendant"
	RelationSiblingBefore Relation = "siblingBefore"
	RelationSiblingAfter  Relation = "siblingAfter"
	RelationAnySibling    Relation = "anySibling"
)

// WhenKey encodes relation condition, marker is optional.
func WhenKey(rel Relation, pseudo, marker string) string {
	var b strings.Builder
	b.WriteString(whenPrefix)
	b.WriteString(string(rel))
	b.WriteByte('(')
	b.WriteString(pseudo)
	if marker != "" {
		b.WriteByte('|')
		b.WriteString(marker)
	}
	b.WriteByte(')')
	return b.String()
}

func IsWhenKey(key string) bool {
	return strings.HasPrefix(key, whenPrefix)
}

// ParseWhenKey decodes key produced by WhenKey.
func ParseWhenKey(key string) (rel Relation, pseudo, marker string, ok bool) {
	if !IsWhenKey(key) || !strings.HasSuffix(key, ")") {
		return "", "", "", false
	}
	body := strings.TrimPrefix(key, whenPrefix)
	open := strings.IndexByte(body, '(')
	if open <= 0 {
		return "", "", "", false
	}
	rel = Relation(body[:open])
	args := body[open+1 : len(body)-1]
	pseudo, marker, _ = strings.Cut(args, "|")
	return rel, pseudo, marker, true
}
