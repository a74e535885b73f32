// Package record defines the entry shape the indexing core mutates and
// reads, and the contract for the record packer external collaborator
// (spec.md §1) that serializes/deserializes an entry given an opaque byte
// blob.
package record

import "fmt"

// Element is one attribute and its values on a record, as passed to the
// mutation engine's add/delete-element operations (spec.md §6).
type Element struct {
	Name   string
	Values [][]byte

	// ForceUnique requests unique-index treatment for this element even if
	// the schema does not flag the attribute UNIQUE_INDEX (spec.md §4.7
	// step 3's "or the element carries the force-unique flag").
	ForceUnique bool

	// AllowDuplicate marks a non-truncated duplicate value in an attribute
	// index insert as expected, so no warning is logged for it, for
	// bulk-load tooling that inserts known-duplicate fixtures to repair
	// later (SPEC_FULL.md §4.1, grounded in the original's forced-duplicate
	// insert path). The duplicate is retained whether or not it is set; it
	// does not bypass the unique-index check, and the @IDXDN insert ignores it.
	AllowDuplicate bool
}

// Record is the entry the mutation engine indexes. DN is always present;
// GUID is present only in GUID-keyed mode.
type Record struct {
	DN       string
	GUID     []byte // 16 bytes in GUID mode, nil in DN mode
	Elements []Element
}

// Validate reports whether the record is well-formed enough to index: a
// non-empty DN, and a 16-byte GUID whenever one is present.
func (r *Record) Validate() error {
	if r.DN == "" {
		return fmt.Errorf("record: missing DN")
	}
	if r.GUID != nil && len(r.GUID) != 16 {
		return fmt.Errorf("record: GUID must be 16 bytes, got %d", len(r.GUID))
	}
	return nil
}

// Packer serializes and deserializes the opaque record blob stored under an
// entry's backing key. The indexing core never interprets the blob itself;
// it only needs DN/GUID/attribute-values out of a Record before and after
// the round trip.
type Packer interface {
	Pack(r *Record) ([]byte, error)
	Unpack(blob []byte) (*Record, error)
}
