// Package digest implements the fixed-width content digests used to address
// objects in the store: currently only SHA-256, represented as a tagged
// union so that additional algorithms can be added without breaking callers
// that only know how to compare raw bytes.
package digest

import (
	"crypto/sha256"
	"fmt"
	"hash"
	"io"

	godigest "github.com/opencontainers/go-digest"
)

// Algorithm identifies a hash algorithm usable for content digests.
type Algorithm uint8

const (
	// AlgorithmSHA256 is the only algorithm currently supported.
	AlgorithmSHA256 Algorithm = iota
)

// Name returns the canonical name of the algorithm ("SHA256"), as it appears
// in the listing codec's "hash" field.
func (a Algorithm) Name() string {
	switch a {
	case AlgorithmSHA256:
		return "SHA256"
	default:
		return "unknown"
	}
}

// Size returns the number of raw bytes a digest produced by this algorithm
// occupies.
func (a Algorithm) Size() int {
	switch a {
	case AlgorithmSHA256:
		return sha256.Size
	default:
		return 0
	}
}

// AlgorithmByName parses the "hash" field of a serialized typed reference. It
// returns false if name does not identify a recognized algorithm.
func AlgorithmByName(name string) (Algorithm, bool) {
	switch name {
	case "SHA256":
		return AlgorithmSHA256, true
	default:
		return 0, false
	}
}

// Digest is a fixed-width, algorithm-tagged content digest. The zero value is
// not a valid digest.
type Digest struct {
	algorithm Algorithm
	raw       [sha256.Size]byte
}

// Algorithm returns the hash algorithm that produced d.
func (d Digest) Algorithm() Algorithm {
	return d.algorithm
}

// Bytes returns the raw digest bytes.
func (d Digest) Bytes() []byte {
	out := make([]byte, d.algorithm.Size())
	copy(out, d.raw[:d.algorithm.Size()])
	return out
}

// Equal reports whether two digests have the same algorithm and bytes.
func (d Digest) Equal(other Digest) bool {
	return d.algorithm == other.algorithm && d.raw == other.raw
}

// Hex returns the lowercase hex encoding of the digest's raw bytes.
func (d Digest) Hex() string {
	return EncodeHex(d.raw[:d.algorithm.Size()])
}

// String implements fmt.Stringer, returning the canonical go-digest form
// "sha256:<hex>" used in log messages.
func (d Digest) String() string {
	return fmt.Sprintf("%s:%s", godigestAlgorithmName(d.algorithm), d.Hex())
}

func godigestAlgorithmName(a Algorithm) godigest.Algorithm {
	switch a {
	case AlgorithmSHA256:
		return godigest.SHA256
	default:
		return ""
	}
}

// SumSHA256 hashes the bytes read from r and returns the resulting digest
// along with the total number of bytes consumed.
func SumSHA256(r io.Reader) (Digest, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return Digest{}, n, fmt.Errorf("unable to hash content: %w", err)
	}
	var d Digest
	d.algorithm = AlgorithmSHA256
	copy(d.raw[:], h.Sum(nil))
	return d, n, nil
}

// Hasher wraps a running SHA-256 computation, used by callers (such as the
// scanner) that need to feed bytes incrementally rather than through a single
// io.Reader.
type Hasher struct {
	algorithm Algorithm
	h         hash.Hash
}

// NewSHA256Hasher creates a Hasher computing a SHA-256 digest.
func NewSHA256Hasher() *Hasher {
	return &Hasher{algorithm: AlgorithmSHA256, h: sha256.New()}
}

// Write implements io.Writer.
func (h *Hasher) Write(p []byte) (int, error) {
	return h.h.Write(p)
}

// Sum finalizes the computation and returns the resulting Digest. The Hasher
// must not be reused afterward.
func (h *Hasher) Sum() Digest {
	var d Digest
	d.algorithm = h.algorithm
	copy(d.raw[:], h.h.Sum(nil))
	return d
}

// ParseCanonical parses a digest given in go-digest's canonical
// "<algorithm>:<hex>" form (e.g. as accepted by CLI --digest flags), using
// opencontainers/go-digest for algorithm-name validation before decoding the
// hex payload with this package's own strict decoder.
func ParseCanonical(s string) (Digest, error) {
	parsed, err := godigest.Parse(s)
	if err != nil {
		return Digest{}, fmt.Errorf("%w: %v", ErrMalformedHex, err)
	}
	if parsed.Algorithm() != godigest.SHA256 {
		return Digest{}, fmt.Errorf("%w: unsupported algorithm %q", ErrMalformedHex, parsed.Algorithm())
	}
	return FromHexSHA256(parsed.Encoded())
}

// FromHexSHA256 constructs a SHA-256 Digest from a lower or upper case hex
// string. It returns an error wrapping ErrMalformedHex unless the whole
// string decodes to exactly 32 bytes, so callers such as the listing codec
// and the HTTP server can pass it unvalidated input.
func FromHexSHA256(hexString string) (Digest, error) {
	raw, err := DecodeHexExact(hexString, sha256.Size)
	if err != nil {
		return Digest{}, err
	}
	var d Digest
	d.algorithm = AlgorithmSHA256
	copy(d.raw[:], raw)
	return d, nil
}
