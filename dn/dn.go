// Package dn implements the distinguished-name parser that the indexing
// core consumes as an external collaborator (spec.md §1): linearization,
// casefold, parent extraction, extended-component lookup, comparison, and
// validation.
//
// A DN here is a simple, ordered sequence of RDNs (attr=value pairs joined
// by commas), optionally carrying "extended components" — bracketed
// metadata such as a GUID, grounded on the teacher's hierarchical
// dimensions (nanostore's Dimension.RefField models a parent pointer the
// same way an RDN models a parent relationship one level up).
package dn

import (
	"fmt"
	"strings"
)

// RDN is a single relative distinguished name component.
type RDN struct {
	Attr  string
	Value string
}

// DN is a parsed distinguished name: case-preserved RDN components plus any
// extended components attached to the first (leaf) RDN.
type DN struct {
	RDNs       []RDN
	Extended   map[string]string // e.g. "GUID" -> hex/base64 string
	linearized string            // cached case-preserved linear form
}

// Validate reports whether s is a syntactically well-formed DN: at least one
// RDN, no empty attribute or value components. The special root/pseudo DNs
// beginning with "@" (spec.md §3, e.g. "@INDEXLIST") are always valid and
// treated as a single opaque RDN.
func Validate(s string) error {
	if s == "" {
		return fmt.Errorf("dn: empty distinguished name")
	}
	if strings.HasPrefix(s, "@") {
		return nil
	}
	parts := splitUnescaped(s, ',')
	if len(parts) == 0 {
		return fmt.Errorf("dn: %q has no components", s)
	}
	for _, p := range parts {
		eq := strings.IndexByte(p, '=')
		if eq <= 0 || eq == len(p)-1 {
			return fmt.Errorf("dn: malformed RDN %q in %q", p, s)
		}
	}
	return nil
}

// Parse parses s into a DN. Extended components of the form
// "<GUID=...>cn=foo,o=bar" are peeled off the front and attached to
// Extended; this mirrors ldb's "extended DN" syntax used to carry a GUID
// alongside a DN without a KV lookup (spec.md §4.5).
func Parse(s string) (*DN, error) {
	if err := Validate(s); err != nil {
		return nil, err
	}

	d := &DN{Extended: map[string]string{}}

	rest := s
	for strings.HasPrefix(rest, "<") {
		end := strings.IndexByte(rest, '>')
		if end < 0 {
			return nil, fmt.Errorf("dn: unterminated extended component in %q", s)
		}
		comp := rest[1:end]
		if eq := strings.IndexByte(comp, '='); eq > 0 {
			d.Extended[strings.ToUpper(comp[:eq])] = comp[eq+1:]
		}
		rest = rest[end+1:]
	}

	if strings.HasPrefix(rest, "@") {
		d.RDNs = []RDN{{Attr: "@", Value: rest}}
		d.linearized = rest
		return d, nil
	}

	for _, p := range splitUnescaped(rest, ',') {
		eq := strings.IndexByte(p, '=')
		d.RDNs = append(d.RDNs, RDN{Attr: strings.TrimSpace(p[:eq]), Value: strings.TrimSpace(p[eq+1:])})
	}
	d.linearized = rest
	return d, nil
}

// splitUnescaped splits s on sep, respecting backslash escaping of sep
// within a component (the minimal escaping ldb relies on for DN syntax).
func splitUnescaped(s string, sep byte) []string {
	var parts []string
	var cur strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			cur.WriteByte(c)
			cur.WriteByte(s[i+1])
			i++
			continue
		}
		if c == sep {
			parts = append(parts, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteByte(c)
	}
	parts = append(parts, cur.String())
	return parts
}

// Linearize returns the case-preserved string form of the DN, without any
// extended components — the form entries are keyed under in DN-keyed mode.
func (d *DN) Linearize() string {
	return d.linearized
}

// Casefold returns the deterministic, normalized form used for equality and
// lookup: attribute names and values lowercased, components rejoined with
// ",". Pseudo-DNs (leading "@") are returned unchanged — they are already
// case-canonical by construction.
func (d *DN) Casefold() string {
	if strings.HasPrefix(d.linearized, "@") {
		return d.linearized
	}
	parts := make([]string, len(d.RDNs))
	for i, r := range d.RDNs {
		parts[i] = strings.ToLower(r.Attr) + "=" + strings.ToLower(r.Value)
	}
	return strings.Join(parts, ",")
}

// GetParent returns the parent DN (all RDNs but the first), or nil if d is
// already a root (single-RDN) DN.
func (d *DN) GetParent() *DN {
	if len(d.RDNs) <= 1 {
		return nil
	}
	parent := &DN{RDNs: d.RDNs[1:], Extended: map[string]string{}}
	parts := make([]string, len(parent.RDNs))
	for i, r := range parent.RDNs {
		parts[i] = r.Attr + "=" + r.Value
	}
	parent.linearized = strings.Join(parts, ",")
	return parent
}

// GetExtendedComponent returns the named extended component (case-
// insensitive name, e.g. "GUID") and whether it was present.
func (d *DN) GetExtendedComponent(name string) (string, bool) {
	v, ok := d.Extended[strings.ToUpper(name)]
	return v, ok
}

// Compare performs a DN-aware equality comparison (case-insensitive on
// both attribute names and values), used to disambiguate truncated-key
// collisions (spec.md §4.5 key_from_idx).
func Compare(a, b *DN) int {
	return strings.Compare(a.Casefold(), b.Casefold())
}

// EqualAttrName compares two attribute names the way ldb_attr_cmp does:
// ASCII case-insensitively, independent of whatever casefold rule the
// schema applies to values (spec.md §4 supplemented feature #2).
func EqualAttrName(a, b string) bool {
	return strings.EqualFold(a, b)
}
