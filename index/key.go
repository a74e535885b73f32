package index

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/arthur-debert/kvindex/schema"
)

// keyPrefix is the backing store's own prefix ("DN=") counted against
// max_key_length (spec.md §4.2 step 3).
const keyPrefix = "DN="

// truncation reports whether a formatted key had to be shortened to fit
// max_key_length.
type truncation int

const (
	notTruncated truncation = iota
	truncated
)

// formatKey composes an index record's DN from (attr, value), following
// spec.md §4.2. guidMode disables base64-escaping for @IDXDN/@IDXONE
// pseudo-attribute values when the database is in GUID mode (those values
// are already-casefolded DN strings, safe as-is).
func formatKey(sc schema.Schema, attr string, value []byte, maxKeyLength int, guidMode bool) (string, truncation, error) {
	var encodedAttr, encodedValue string
	isPseudo := strings.HasPrefix(attr, "@")

	if isPseudo {
		encodedAttr = attr
		encodedValue = string(value)
	} else {
		canon, err := sc.Canonicalise(attr, value)
		if err != nil {
			return "", notTruncated, fmt.Errorf("index: canonicalise %q=%q: %w", attr, value, err)
		}
		encodedAttr = strings.ToLower(attr)
		encodedValue = string(canon)
	}

	suppressBase64 := isPseudo && (attr == "@IDXDN" || attr == "@IDXONE") && guidMode
	sep, dsep := ":", "::"
	needsEscape := !suppressBase64 && !printableLDIF(sc, attr, value)
	if needsEscape {
		encodedValue = base64.StdEncoding.EncodeToString(value)
	}

	usedPlainSep := sep
	if needsEscape {
		usedPlainSep = dsep
	}
	full := fmt.Sprintf("%s@INDEX%s%s%s%s", keyPrefix, sep, encodedAttr, usedPlainSep, encodedValue)

	if maxKeyLength == 0 || len(full) <= maxKeyLength {
		return full, notTruncated, nil
	}

	// Truncate the value portion to fit, using the disjoint '#'/'##'
	// separator discipline so a truncated key can never collide with an
	// untruncated one (spec.md §4.2 step 3).
	tsep, tdsep := "#", "##"
	usedSep := tsep
	if needsEscape {
		usedSep = tdsep
	}

	fixed := fmt.Sprintf("%s@INDEX%s%s%s", keyPrefix, sep, encodedAttr, usedSep)
	minimal := keyPrefix + "@INDEX" + sep + "A" + usedSep + "V"
	if maxKeyLength < len(minimal) {
		return "", notTruncated, fmt.Errorf("index: max_key_length %d too small for any key", maxKeyLength)
	}

	budget := maxKeyLength - len(fixed)
	if budget < 1 {
		budget = 1
	}
	if budget > len(encodedValue) {
		budget = len(encodedValue)
	}
	truncatedValue := encodedValue[:budget]

	return fixed + truncatedValue, truncated, nil
}

// printableLDIF reports whether value may be placed literally in a key
// (spec.md §4.2 step 2: "always [base64] for non-printable values").
func printableLDIF(sc schema.Schema, attr string, value []byte) bool {
	_, printable := sc.LDIFWrite(attr, value)
	return printable
}
