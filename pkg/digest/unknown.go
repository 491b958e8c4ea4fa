package digest

import "fmt"

// Unknown is a variable-length raw digest with no associated algorithm. It
// exists for parsing the HTTP protocol's URL path segments, where the byte
// length alone doesn't disambiguate an algorithm until it's looked up (or, in
// this implementation where SHA-256 is the only algorithm, validated against
// the expected length).
type Unknown []byte

// Equal reports whether two unknown digests have identical bytes.
func (u Unknown) Equal(other Unknown) bool {
	if len(u) != len(other) {
		return false
	}
	for i := range u {
		if u[i] != other[i] {
			return false
		}
	}
	return true
}

// Hex returns the lowercase hex encoding of u.
func (u Unknown) Hex() string {
	return EncodeHex(u)
}

// Key returns a value suitable for use as a Go map key, since []byte itself
// cannot be one.
func (u Unknown) Key() string {
	return string(u)
}

// ParsePathSegment decodes a URL path segment as a hex digest. It requires
// the whole segment to be consumed by the hex decoder; a segment containing
// anything other than an even number of hex digits (including an empty
// segment) is rejected. The caller is responsible for mapping a parse failure
// to the protocol's "404 Not Found" response.
func ParsePathSegment(segment string) (Unknown, error) {
	if segment == "" {
		return nil, fmt.Errorf("%w: empty path segment", ErrMalformedHex)
	}
	decoded, cursor := DecodeHex(segment)
	if cursor != len(segment) {
		return nil, fmt.Errorf("%w: unparsed suffix at offset %d", ErrMalformedHex, cursor)
	}
	return Unknown(decoded), nil
}

// AsDigest promotes an Unknown digest to a typed Digest once its algorithm
// has been established (by length, since SHA-256 is the only supported
// algorithm). It returns an error if the byte length doesn't match any known
// algorithm.
func (u Unknown) AsDigest() (Digest, error) {
	if len(u) == AlgorithmSHA256.Size() {
		var d Digest
		d.algorithm = AlgorithmSHA256
		copy(d.raw[:], u)
		return d, nil
	}
	return Digest{}, fmt.Errorf("%w: no known algorithm produces a %d-byte digest", ErrMalformedHex, len(u))
}

// FromDigest converts a typed Digest back to its untyped byte form, used when
// indexing the object store, which keys its lookup table by raw digest bytes
// rather than by a typed, algorithm-qualified Digest.
func FromDigest(d Digest) Unknown {
	return Unknown(d.Bytes())
}
