// Package objects defines the core data-model value types shared by the
// store, scanner, watcher, transfer, and clone packages: content types,
// typed references, and the two location variants an object's bytes can live
// in.
package objects

import "github.com/mutagen-io/blobtree/pkg/digest"

// ContentType tags what a typed reference's bytes mean.
type ContentType string

const (
	// ContentTypeBlob marks a reference to raw, uninterpreted file content.
	ContentTypeBlob ContentType = "blob"
	// ContentTypeJSONv1 marks a reference to another directory listing,
	// encoded in the listing package's canonical JSON form.
	ContentTypeJSONv1 ContentType = "json_v1"
)

// Valid reports whether c is a recognized content type.
func (c ContentType) Valid() bool {
	return c == ContentTypeBlob || c == ContentTypeJSONv1
}

// TypedReference points to exactly one object: a digest plus the
// interpretation of the bytes it names.
type TypedReference struct {
	Type    ContentType
	Content digest.Digest
}

// FileSystemLocation is a location backed by a file on disk, along with the
// size observed when the location was recorded (so callers can detect that
// the file has changed underneath them without re-statting first).
type FileSystemLocation struct {
	Path string
	Size int64
}

// InMemoryLocation is a location backed by an owned byte buffer, used for
// serialized directory listings produced by the scanner.
type InMemoryLocation struct {
	Content []byte
}

// Location is either a FileSystemLocation or an InMemoryLocation. Exactly one
// of the two fields is non-nil/valid; use IsFileSystem to discriminate.
type Location struct {
	FileSystem *FileSystemLocation
	InMemory   *InMemoryLocation
}

// NewFileSystemLocation constructs a Location wrapping a filesystem path.
func NewFileSystemLocation(path string, size int64) Location {
	return Location{FileSystem: &FileSystemLocation{Path: path, Size: size}}
}

// NewInMemoryLocation constructs a Location wrapping an owned buffer.
func NewInMemoryLocation(content []byte) Location {
	return Location{InMemory: &InMemoryLocation{Content: content}}
}

// Size returns the location's byte length.
func (l Location) Size() int64 {
	if l.FileSystem != nil {
		return l.FileSystem.Size
	}
	if l.InMemory != nil {
		return int64(len(l.InMemory.Content))
	}
	return 0
}

// IsFileSystem reports whether l is backed by a filesystem path.
func (l Location) IsFileSystem() bool {
	return l.FileSystem != nil
}
