// Package listing implements the canonical JSON serialization of directory
// listings. The canonical form is load-bearing: two different pretty-print
// choices for the same entries would hash to two different digests for what
// should be the same tree, so this package fixes pretty-printing as part of
// the format rather than treating it as a presentation detail.
package listing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mutagen-io/blobtree/pkg/digest"
	"github.com/mutagen-io/blobtree/pkg/objects"
)

// MalformedError indicates that serialized listing bytes could not be parsed
// into a valid Listing. Offset is a byte offset into the input, on a
// best-effort basis, pointing at (or near) the JSON value that failed
// validation.
type MalformedError struct {
	Offset int64
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed listing at offset %d: %s", e.Offset, e.Reason)
}

func malformed(offset int64, format string, args ...any) error {
	return &MalformedError{Offset: offset, Reason: fmt.Sprintf(format, args...)}
}

// Listing is an ordered mapping from entry name to typed reference. Names are
// UTF-8 as given by the filesystem; the codec does not normalize case or
// Unicode. The zero value is an empty listing.
type Listing struct {
	entries map[string]objects.TypedReference
}

// New creates an empty Listing.
func New() *Listing {
	return &Listing{entries: make(map[string]objects.TypedReference)}
}

// ErrInvalidName indicates that a name isn't a valid listing entry name (per
// the invariant that names are non-empty and contain neither '/' nor NUL).
var ErrInvalidName = fmt.Errorf("invalid listing entry name")

// ValidName reports whether name may be used as a listing entry key.
func ValidName(name string) bool {
	return name != "" && !strings.ContainsAny(name, "/\x00")
}

// Set records name -> ref in the listing. It returns ErrInvalidName if name
// is empty or contains '/' or NUL. Setting the same name twice overwrites the
// previous reference, matching "maps a single name at most once".
func (l *Listing) Set(name string, ref objects.TypedReference) error {
	if !ValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if l.entries == nil {
		l.entries = make(map[string]objects.TypedReference)
	}
	l.entries[name] = ref
	return nil
}

// Get looks up name in the listing.
func (l *Listing) Get(name string) (objects.TypedReference, bool) {
	ref, ok := l.entries[name]
	return ref, ok
}

// Len returns the number of entries.
func (l *Listing) Len() int {
	return len(l.entries)
}

// Names returns the entry names in byte-wise sorted order, matching the
// order their JSON keys are emitted in.
func (l *Listing) Names() []string {
	names := make([]string, 0, len(l.entries))
	for name := range l.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// wireEntry is the canonical per-entry JSON shape.
type wireEntry struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Hash    string `json:"hash"`
}

// Marshal serializes the listing to its canonical JSON form: a pretty
// printed object with byte-wise sorted keys. Go's encoding/json always
// emits map[string]V keys in ascending sort.Strings order regardless of
// insertion order, which is exactly the byte-wise comparison the format
// requires, so the in-memory map doesn't need to maintain its own ordering.
func (l *Listing) Marshal() ([]byte, error) {
	wire := make(map[string]wireEntry, len(l.entries))
	for name, ref := range l.entries {
		wire[name] = wireEntry{
			Type:    string(ref.Type),
			Content: ref.Content.Hex(),
			Hash:    ref.Content.Algorithm().Name(),
		}
	}
	encoded, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("unable to encode listing: %w", err)
	}
	return encoded, nil
}

// Digest computes the content digest of the listing's canonical serialized
// form.
func (l *Listing) Digest() (digest.Digest, error) {
	encoded, err := l.Marshal()
	if err != nil {
		return digest.Digest{}, err
	}
	d, _, err := digest.SumSHA256(bytes.NewReader(encoded))
	return d, err
}

// Unmarshal parses the canonical JSON form produced by Marshal. It returns a
// *MalformedError if data isn't a valid listing: the top-level value isn't an
// object, an entry is missing type/content/hash, hash names an unrecognized
// algorithm, or content isn't a valid hex digest of the right length for that
// algorithm.
func Unmarshal(data []byte) (*Listing, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))

	tok, err := decoder.Token()
	if err != nil {
		return nil, malformed(decoder.InputOffset(), "invalid JSON: %v", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, malformed(decoder.InputOffset(), "top-level value is not an object")
	}

	result := New()
	for decoder.More() {
		keyTok, err := decoder.Token()
		if err != nil {
			return nil, malformed(decoder.InputOffset(), "invalid entry name: %v", err)
		}
		name, ok := keyTok.(string)
		if !ok {
			return nil, malformed(decoder.InputOffset(), "entry name is not a string")
		}

		var entry wireEntry
		entryOffset := decoder.InputOffset()
		if err := decoder.Decode(&entry); err != nil {
			return nil, malformed(entryOffset, "invalid entry value for %q: %v", name, err)
		}

		if entry.Type == "" || entry.Content == "" || entry.Hash == "" {
			return nil, malformed(entryOffset, "entry %q missing type/content/hash", name)
		}
		contentType := objects.ContentType(entry.Type)
		if !contentType.Valid() {
			return nil, malformed(entryOffset, "entry %q has unrecognized type %q", name, entry.Type)
		}
		algorithm, ok := digest.AlgorithmByName(entry.Hash)
		if !ok {
			return nil, malformed(entryOffset, "entry %q has unrecognized hash algorithm %q", name, entry.Hash)
		}
		if algorithm != digest.AlgorithmSHA256 {
			return nil, malformed(entryOffset, "entry %q: unsupported algorithm %q", name, entry.Hash)
		}
		d, err := digest.FromHexSHA256(entry.Content)
		if err != nil {
			return nil, malformed(entryOffset, "entry %q has invalid content digest: %v", name, err)
		}

		if err := result.Set(name, objects.TypedReference{Type: contentType, Content: d}); err != nil {
			return nil, malformed(entryOffset, "entry %q: %v", name, err)
		}
	}

	// Consume the closing '}'.
	if _, err := decoder.Token(); err != nil {
		return nil, malformed(decoder.InputOffset(), "unterminated object: %v", err)
	}

	return result, nil
}
