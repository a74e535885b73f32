package index

import (
	"strings"
	"testing"

	"github.com/arthur-debert/kvindex/schema"
)

func TestFormatKeyBasic(t *testing.T) {
	sc := schema.NewDefault(map[string]schema.Flag{"cn": schema.Indexed})
	key, tr, err := formatKey(sc, "cn", []byte("Alice"), 0, false)
	if err != nil {
		t.Fatalf("formatKey: %v", err)
	}
	if tr != notTruncated {
		t.Fatalf("expected not truncated")
	}
	if key != "DN=@INDEX:cn:alice" {
		t.Fatalf("got %q", key)
	}
}

func TestFormatKeyPseudoAttrUsesRawValue(t *testing.T) {
	sc := schema.NewDefault(nil)
	key, _, err := formatKey(sc, "@IDXONE", []byte("o=x"), 0, false)
	if err != nil {
		t.Fatalf("formatKey: %v", err)
	}
	if key != "DN=@INDEX:@IDXONE:o=x" {
		t.Fatalf("got %q", key)
	}
}

func TestFormatKeyTruncatesAndUsesHashSeparator(t *testing.T) {
	sc := schema.NewDefault(map[string]schema.Flag{"cn": schema.Indexed})
	longVal := strings.Repeat("x", 100)
	key, tr, err := formatKey(sc, "cn", []byte(longVal), 40, false)
	if err != nil {
		t.Fatalf("formatKey: %v", err)
	}
	if tr != truncated {
		t.Fatalf("expected truncated")
	}
	if len(key) > 40 {
		t.Fatalf("key %q exceeds max_key_length 40 (%d bytes)", key, len(key))
	}
	if !strings.Contains(key, "#") {
		t.Fatalf("truncated key %q should use '#' separator", key)
	}
	if strings.Contains(key, ":") {
		t.Fatalf("truncated key %q should not contain the untruncated separator", key)
	}
}

func TestFormatKeyTruncationDisjointFromUntruncated(t *testing.T) {
	sc := schema.NewDefault(map[string]schema.Flag{"cn": schema.Indexed})
	val := strings.Repeat("y", 100)
	truncatedKey, _, err := formatKey(sc, "cn", []byte(val), 40, false)
	if err != nil {
		t.Fatalf("formatKey truncated: %v", err)
	}
	fullKey, _, err := formatKey(sc, "cn", []byte(val), 0, false)
	if err != nil {
		t.Fatalf("formatKey full: %v", err)
	}
	if truncatedKey == fullKey {
		t.Fatalf("truncated and untruncated keys must never collide")
	}
}

func TestFormatKeyRejectsUnfittableMaxLength(t *testing.T) {
	sc := schema.NewDefault(map[string]schema.Flag{"cn": schema.Indexed})
	if _, _, err := formatKey(sc, "cn", []byte("a"), 3, false); err == nil {
		t.Fatalf("expected error for unfittable max_key_length")
	}
}

func TestFormatKeyNonPrintableValueBase64Encoded(t *testing.T) {
	sc := schema.NewDefault(map[string]schema.Flag{"cn": schema.Indexed})
	key, _, err := formatKey(sc, "cn", []byte{0x00, 0x01, 0x02}, 0, false)
	if err != nil {
		t.Fatalf("formatKey: %v", err)
	}
	if !strings.Contains(key, "::") {
		t.Fatalf("expected doubled separator for base64 value, got %q", key)
	}
}

func TestFormatKeyPropagatesCanonicaliseError(t *testing.T) {
	sc := schema.NewDefault(map[string]schema.Flag{"cn": schema.Indexed})
	if _, _, err := formatKey(sc, "cn", []byte("al*ce"), 0, false); err == nil {
		t.Fatalf("expected wildcard value to be rejected")
	}
}
