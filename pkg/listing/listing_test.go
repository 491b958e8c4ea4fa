package listing

import (
	"strings"
	"testing"

	"github.com/mutagen-io/blobtree/pkg/digest"
	"github.com/mutagen-io/blobtree/pkg/objects"
)

func TestEmptyListingIsTwoBytes(t *testing.T) {
	l := New()
	encoded, err := l.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(encoded) != "{}" {
		t.Fatalf("Marshal() = %q, want %q", encoded, "{}")
	}
	d, err := l.Digest()
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	const want = "44136fa355b3678a1146ad16f7e8649e94fb4fc21fe77e8310c060f61caaff8a"
	if got := d.Hex(); got != want {
		t.Fatalf("Digest().Hex() = %q, want %q", got, want)
	}
}

func TestRoundTrip(t *testing.T) {
	blobDigest, _, err := digest.SumSHA256(strings.NewReader("hello"))
	if err != nil {
		t.Fatal(err)
	}
	l := New()
	if err := l.Set("a.txt", objects.TypedReference{Type: objects.ContentTypeBlob, Content: blobDigest}); err != nil {
		t.Fatal(err)
	}
	if err := l.Set("sub", objects.TypedReference{Type: objects.ContentTypeJSONv1, Content: blobDigest}); err != nil {
		t.Fatal(err)
	}

	encoded, err := l.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	parsed, err := Unmarshal(encoded)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if parsed.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", parsed.Len())
	}
	ref, ok := parsed.Get("a.txt")
	if !ok || ref.Type != objects.ContentTypeBlob || !ref.Content.Equal(blobDigest) {
		t.Fatalf("a.txt entry mismatch: %+v", ref)
	}

	reencoded, err := parsed.Marshal()
	if err != nil {
		t.Fatalf("re-Marshal: %v", err)
	}
	if string(reencoded) != string(encoded) {
		t.Fatalf("re-encoding mismatch:\n%s\nvs\n%s", reencoded, encoded)
	}
}

func TestUnmarshalRejectsNonObject(t *testing.T) {
	if _, err := Unmarshal([]byte("[1,2,3]")); err == nil {
		t.Fatal("expected error for non-object top level")
	}
	if _, err := Unmarshal([]byte(`"just a string"`)); err == nil {
		t.Fatal("expected error for non-object top level")
	}
}

func TestUnmarshalRejectsInvalidEntries(t *testing.T) {
	cases := []string{
		`{"a": {"content": "aa", "hash": "SHA256"}}`,
		`{"a": {"type": "blob", "hash": "SHA256"}}`,
		`{"a": {"type": "blob", "content": "aa"}}`,
		`{"a": {"type": "blob", "content": "aa", "hash": "MD5"}}`,
		`{"a": {"type": "blob", "content": "zz", "hash": "SHA256"}}`,
		`{"a": {"type": "weird", "content": "` + strings.Repeat("aa", 32) + `", "hash": "SHA256"}}`,
	}
	for _, c := range cases {
		if _, err := Unmarshal([]byte(c)); err == nil {
			t.Fatalf("expected error for %q", c)
		}
	}
}

func TestSetRejectsInvalidNames(t *testing.T) {
	l := New()
	ref := objects.TypedReference{Type: objects.ContentTypeBlob}
	for _, name := range []string{"", "a/b", "a\x00b"} {
		if err := l.Set(name, ref); err == nil {
			t.Fatalf("expected error for name %q", name)
		}
	}
}

func TestNonASCIINameRoundTrips(t *testing.T) {
	blobDigest, _, _ := digest.SumSHA256(strings.NewReader(""))
	l := New()
	name := "héllo-日本語.txt"
	if err := l.Set(name, objects.TypedReference{Type: objects.ContentTypeBlob, Content: blobDigest}); err != nil {
		t.Fatal(err)
	}
	encoded, err := l.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := Unmarshal(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := parsed.Get(name); !ok {
		t.Fatalf("name %q did not round-trip", name)
	}
}
