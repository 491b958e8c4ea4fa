package digest

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHexRoundTrip(t *testing.T) {
	d, _, err := SumSHA256(strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("SumSHA256: %v", err)
	}
	const want = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got := d.Hex(); got != want {
		t.Fatalf("Hex() = %q, want %q", got, want)
	}

	parsed, err := FromHexSHA256(strings.ToUpper(want))
	if err != nil {
		t.Fatalf("FromHexSHA256: %v", err)
	}
	if !parsed.Equal(d) {
		t.Fatalf("round trip mismatch: %v != %v", parsed, d)
	}
}

func TestEmptyDigest(t *testing.T) {
	d, n, err := SumSHA256(strings.NewReader(""))
	if err != nil {
		t.Fatalf("SumSHA256: %v", err)
	}
	if n != 0 {
		t.Fatalf("n = %d, want 0", n)
	}
	if got, want := d.Hex(), "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"; got != want {
		t.Fatalf("Hex() = %q, want %q", got, want)
	}
}

func TestDecodeHexOddLength(t *testing.T) {
	decoded, cursor := DecodeHex("abc")
	if cursor != 2 {
		t.Fatalf("cursor = %d, want 2 (dangling nibble unconsumed)", cursor)
	}
	if diff := cmp.Diff([]byte{0xab}, decoded); diff != "" {
		t.Fatalf("decoded mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeHexStopsAtNonHex(t *testing.T) {
	decoded, cursor := DecodeHex("deadXYZ")
	if cursor != 4 {
		t.Fatalf("cursor = %d, want 4", cursor)
	}
	if diff := cmp.Diff([]byte{0xde, 0xad}, decoded); diff != "" {
		t.Fatalf("decoded mismatch (-want +got):\n%s", diff)
	}
}

func TestParsePathSegmentRequiresWholeSegment(t *testing.T) {
	if _, err := ParsePathSegment("xyz"); err == nil {
		t.Fatal("expected error for non-hex path segment")
	}
	if _, err := ParsePathSegment(""); err == nil {
		t.Fatal("expected error for empty path segment")
	}
	u, err := ParsePathSegment("deadbeef")
	if err != nil {
		t.Fatalf("ParsePathSegment: %v", err)
	}
	if u.Hex() != "deadbeef" {
		t.Fatalf("Hex() = %q", u.Hex())
	}
}

func TestParseCanonical(t *testing.T) {
	d, _, _ := SumSHA256(strings.NewReader("hello"))
	parsed, err := ParseCanonical("sha256:" + d.Hex())
	if err != nil {
		t.Fatalf("ParseCanonical: %v", err)
	}
	if !parsed.Equal(d) {
		t.Fatalf("ParseCanonical mismatch")
	}
	if _, err := ParseCanonical("not-a-digest"); err == nil {
		t.Fatal("expected error")
	}
}
