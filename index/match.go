package index

import (
	"bytes"

	"github.com/arthur-debert/kvindex/filter"
	"github.com/arthur-debert/kvindex/record"
)

// evalFilter evaluates tree against rec directly (not via the index), the
// mandatory re-match step of spec.md §4.6 step 4. canonicalise is the
// schema's value canonicalisation, used so re-match and the index agree on
// what "equal" means for a given attribute.
func evalFilter(tree *filter.Node, rec *record.Record, canonicalise func(attr string, value []byte) ([]byte, error)) bool {
	if tree == nil {
		return true
	}
	switch tree.Kind {
	case filter.And:
		for _, c := range tree.Children {
			if !evalFilter(c, rec, canonicalise) {
				return false
			}
		}
		return true
	case filter.Or:
		for _, c := range tree.Children {
			if evalFilter(c, rec, canonicalise) {
				return true
			}
		}
		return false
	case filter.Not:
		if len(tree.Children) != 1 {
			return false
		}
		return !evalFilter(tree.Children[0], rec, canonicalise)
	case filter.Equality:
		return matchEquality(tree, rec, canonicalise)
	case filter.Present:
		return matchPresent(tree.Attr, rec)
	case filter.Substring:
		return matchSubstring(tree, rec)
	case filter.Greater:
		return matchOrdered(tree, rec, func(c int) bool { return c >= 0 })
	case filter.Less:
		return matchOrdered(tree, rec, func(c int) bool { return c <= 0 })
	case filter.Approx:
		return matchEquality(tree, rec, canonicalise)
	default:
		// Extended match has no generic semantics to fall back on.
		return false
	}
}

func elementValues(rec *record.Record, attr string) ([][]byte, bool) {
	for _, el := range rec.Elements {
		if el.Name == attr || equalFold(el.Name, attr) {
			return el.Values, true
		}
	}
	return nil, false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func matchEquality(node *filter.Node, rec *record.Record, canonicalise func(attr string, value []byte) ([]byte, error)) bool {
	values, ok := elementValues(rec, node.Attr)
	if !ok {
		return false
	}
	want, err := canonicalise(node.Attr, node.Value)
	if err != nil {
		want = node.Value
	}
	for _, v := range values {
		got, err := canonicalise(node.Attr, v)
		if err != nil {
			got = v
		}
		if bytes.Equal(got, want) {
			return true
		}
	}
	return false
}

func matchPresent(attr string, rec *record.Record) bool {
	values, ok := elementValues(rec, attr)
	return ok && len(values) > 0
}

func matchSubstring(node *filter.Node, rec *record.Record) bool {
	values, ok := elementValues(rec, node.Attr)
	if !ok {
		return false
	}
	for _, v := range values {
		if substringMatch(string(node.Value), string(v)) {
			return true
		}
	}
	return false
}

// substringMatch implements the minimal "*"-delimited substring pattern
// matching ("al*ce", "*ce", "al*") against value.
func substringMatch(pattern, value string) bool {
	parts := splitStar(pattern)
	pos := 0
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i == 0 && !hasPrefixAt(value, p, 0) {
			return false
		}
		idx := indexFrom(value, p, pos)
		if idx < 0 {
			return false
		}
		pos = idx + len(p)
	}
	if len(parts) > 0 && parts[len(parts)-1] != "" && !hasSuffix(value, parts[len(parts)-1]) {
		return false
	}
	return true
}

func splitStar(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '*' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func hasPrefixAt(s, prefix string, at int) bool {
	if at+len(prefix) > len(s) {
		return false
	}
	return s[at:at+len(prefix)] == prefix
}

func hasSuffix(s, suffix string) bool {
	if len(suffix) > len(s) {
		return false
	}
	return s[len(s)-len(suffix):] == suffix
}

func indexFrom(s, substr string, from int) int {
	if from > len(s) {
		return -1
	}
	idx := indexOf(s[from:], substr)
	if idx < 0 {
		return -1
	}
	return from + idx
}

func indexOf(s, substr string) int {
	if len(substr) == 0 {
		return 0
	}
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

func matchOrdered(node *filter.Node, rec *record.Record, accept func(cmp int) bool) bool {
	values, ok := elementValues(rec, node.Attr)
	if !ok {
		return false
	}
	for _, v := range values {
		if accept(bytes.Compare(v, node.Value)) {
			return true
		}
	}
	return false
}
