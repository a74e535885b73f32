package schema

import "testing"

func TestCanonicaliseLowercases(t *testing.T) {
	s := NewDefault(nil)
	got, err := s.Canonicalise("cn", []byte("Alice"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "alice" {
		t.Fatalf("got %q, want %q", got, "alice")
	}
}

func TestCanonicaliseRejectsWildcard(t *testing.T) {
	s := NewDefault(nil)
	if _, err := s.Canonicalise("cn", []byte("al*ce")); err == nil {
		t.Fatalf("expected wildcard value to be rejected")
	}
}

func TestFlagsCaseInsensitiveLookup(t *testing.T) {
	s := NewDefault(map[string]Flag{"SID": UniqueIndex})
	if !s.Flags("sid").Has(UniqueIndex) {
		t.Fatalf("expected sid to carry UniqueIndex")
	}
	if s.Flags("cn").Has(UniqueIndex) {
		t.Fatalf("unrelated attribute must not carry UniqueIndex")
	}
}

func TestLDIFWriteDetectsNonPrintable(t *testing.T) {
	s := NewDefault(nil)
	_, printable := s.LDIFWrite("x", []byte("hello"))
	if !printable {
		t.Fatalf("expected ascii text to be printable")
	}
	_, printable = s.LDIFWrite("x", []byte{0x00, 0x01, 0xff})
	if printable {
		t.Fatalf("expected binary bytes to be reported non-printable")
	}
}
