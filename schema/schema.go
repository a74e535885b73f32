// Package schema defines the contract the indexing core consumes from the
// schema service (spec.md §1): attribute-value canonicalisation, LDIF
// rendering, and per-attribute flags. It is an external collaborator — the
// core never inspects attribute semantics beyond this interface — but a
// default implementation is provided so the module is runnable end to end.
package schema

import (
	"fmt"
	"strings"
	"unicode"
)

// Flag enumerates the per-attribute flags the core consults.
type Flag int

const (
	// None marks an attribute with no special indexing behavior.
	None Flag = 0
	// Indexed marks an attribute as eligible for equality indexing.
	Indexed Flag = 1 << (iota - 1)
	// UniqueIndex marks an attribute whose values must be unique across
	// the database; an addition whose key would be truncated is rejected
	// outright (spec.md invariant 5).
	UniqueIndex
)

// Schema is the contract the indexing core requires from the schema
// service.
type Schema interface {
	// Canonicalise converts value into its indexed form for attr. It may
	// refuse certain values (e.g. wildcards), returning an error that the
	// core propagates unchanged (spec.md §4.2 step 1).
	Canonicalise(attr string, value []byte) ([]byte, error)

	// LDIFWrite renders value in LDIF form for attr, used when a non-
	// printable value must be base64-encoded in a formatted key
	// (spec.md §4.2 step 2).
	LDIFWrite(attr string, value []byte) (encoded []byte, printable bool)

	// Flags returns the flags configured for attr.
	Flags(attr string) Flag

	// EqualAttrName compares two attribute *names* — distinct from value
	// casefolding, mirroring ldb_attr_cmp (spec.md §4 supplemented
	// feature #2). The default schema below delegates to ASCII
	// case-insensitive comparison.
	EqualAttrName(a, b string) bool
}

// Default is a minimal schema: case-insensitive attribute names, values
// canonicalised by lowercasing (ASCII) and refusing any value containing a
// "*" wildcard, escaped or not (a stand-in for the real schema's richer matching
// rule rejection, exercising the same "Canonicalise can fail" contract from
// spec.md §4.2).
type Default struct {
	flags map[string]Flag
}

// NewDefault creates a schema with the given per-attribute flags. Attribute
// names are matched case-insensitively.
func NewDefault(flags map[string]Flag) *Default {
	normalized := make(map[string]Flag, len(flags))
	for k, v := range flags {
		normalized[strings.ToLower(k)] = v
	}
	return &Default{flags: normalized}
}

// Canonicalise implements Schema.
func (d *Default) Canonicalise(attr string, value []byte) ([]byte, error) {
	if strings.ContainsRune(string(value), '*') {
		return nil, fmt.Errorf("schema: wildcard value %q for attribute %q cannot be canonicalised for equality indexing", value, attr)
	}
	out := make([]byte, len(value))
	for i, b := range value {
		if b >= 'A' && b <= 'Z' {
			out[i] = b - 'A' + 'a'
		} else {
			out[i] = b
		}
	}
	return out, nil
}

// LDIFWrite implements Schema. A value is printable when every byte is a
// printable ASCII character. The value is returned unchanged either way (the
// core base64-encodes a non-printable key component itself — see
// index/key.go — LDIFWrite only reports whether the raw bytes were safe to
// place literally).
func (d *Default) LDIFWrite(attr string, value []byte) ([]byte, bool) {
	printable := true
	for _, r := range string(value) {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			printable = false
			break
		}
	}
	if printable {
		return value, true
	}
	return value, false
}

// Flags implements Schema.
func (d *Default) Flags(attr string) Flag {
	return d.flags[strings.ToLower(attr)]
}

// EqualAttrName implements Schema.
func (d *Default) EqualAttrName(a, b string) bool {
	return strings.EqualFold(a, b)
}

// Has reports whether flags contains want.
func (f Flag) Has(want Flag) bool {
	return f&want != 0
}
