package index

import (
	"log/slog"

	"github.com/arthur-debert/kvindex/record"
)

// Options configures a freshly-opened Engine (SPEC_FULL.md §2.3). The
// control record (@INDEXLIST) remains the primary, in-database
// configuration surface; Options never writes it. Options carries
// per-handle settings and override hooks: a non-empty GUIDAttribute or
// DNGUIDComponent replaces @INDEXLIST entirely for the lifetime of the
// handle, and GUIDMode forces GUID mode on.
type Options struct {
	// MaxKeyLength bounds formatted index keys (spec.md §4.2). Zero means
	// unlimited.
	MaxKeyLength int

	// GUIDMode selects GUID-keyed entries (version 3 index records) over
	// DN-keyed entries (version 2). GUID mode is also switched on by an
	// @IDXGUID attribute in @INDEXLIST, read once when the engine is
	// opened — see ControlRecord.
	GUIDMode bool

	// GUIDAttribute names the record attribute carrying the GUID in GUID
	// mode (spec.md §3 "@IDXGUID").
	GUIDAttribute string

	// DNGUIDComponent names the extended-DN component carrying a GUID
	// verbatim, letting base-DN lookups skip a KV read (spec.md §4.5,
	// "@IDX_DN_GUID").
	DNGUIDComponent string

	// CacheSize bounds the LRU cache size in front of KV reads for
	// untouched keys (SPEC_FULL.md §3, hashicorp/golang-lru/v2). Zero
	// disables the cache.
	CacheSize int

	// ReadOnly refuses Reindex with UnwillingToPerform (spec.md §7).
	ReadOnly bool

	// DisallowDNFilter makes an equality filter on the DN attribute report
	// an empty Match rather than delegating to the base-DN lookup (spec.md
	// §4.3 first EQUALITY rule: "a == \"dn\" when DN-filter is disallowed ⇒
	// empty success (policy choice)"). Default false.
	DisallowDNFilter bool

	// Packer serializes/deserializes entry records (the record packer
	// external collaborator, spec.md §1). Defaults to record.JSONPacker.
	Packer record.Packer

	// Logger receives structured Debug/Warn events (SPEC_FULL.md §2.2).
	// Defaults to a discarding logger.
	Logger *slog.Logger
}

// indexVersionDN is the DN mode version attribute value (spec.md §3).
const indexVersionDN = "2"

// indexVersionGUID is the GUID mode version attribute value (spec.md §3).
const indexVersionGUID = "3"

// ControlRecord mirrors the @INDEXLIST control record (spec.md §3): the
// set of indexed attributes, and the optional GUID-mode hooks. A missing
// control record means "indexing is off", not an error (SPEC_FULL.md §4
// supplemented feature #3) — ControlRecord's zero value expresses exactly
// that: no attributes, DN mode.
type ControlRecord struct {
	IndexedAttrs    []string
	GUIDAttribute   string
	DNGUIDComponent string
}

// IsIndexed reports whether attr is named in @IDXATTR, comparing names the
// way the schema says attribute names compare (ldb_attr_cmp, not value
// casefold — SPEC_FULL.md §4 supplemented feature #2).
func (c *ControlRecord) IsIndexed(attr string, equalName func(a, b string) bool) bool {
	for _, a := range c.IndexedAttrs {
		if equalName(a, attr) {
			return true
		}
	}
	return false
}
