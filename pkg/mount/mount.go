// Package mount is the read-only FUSE bridge: mounting a served tree
// depends on the host kernel's FUSE FFI, a thin adapter over a
// client.StorageReader. No FUSE binding library appears anywhere in this project's
// dependency corpus (unlike, say, golang.org/x/sys for inotify), so rather
// than fabricate one, this package defines the adapter boundary —
// what a real kernel binding would need from the object store and storage
// reader — and stops there; wiring an actual kernel driver is the out-of-
// scope FUSE bridge itself.
package mount

import (
	"context"
	"fmt"
	"io"

	"github.com/mutagen-io/blobtree/pkg/clone"
	"github.com/mutagen-io/blobtree/pkg/digest"
	"github.com/mutagen-io/blobtree/pkg/listing"
	"github.com/mutagen-io/blobtree/pkg/objects"
	"github.com/mutagen-io/blobtree/pkg/transfer/client"
)

// ErrNoBackend is returned by Mount: this package exposes the adapter a real
// FUSE binding would drive, but doesn't itself bind to the host kernel.
var ErrNoBackend = fmt.Errorf("mount: no FUSE backend is wired into this build")

// Tree is the read-only directory adapter a kernel FUSE binding would drive:
// it resolves root-relative paths to entries without ever reading a whole
// subtree eagerly, the way clone does, since a mounted filesystem discovers
// its own usage pattern instead of reproducing it wholesale on disk.
type Tree struct {
	reader client.StorageReader
	root   objects.TypedReference
}

// NewTree constructs a Tree rooted at root, backed by reader.
func NewTree(root objects.TypedReference, reader client.StorageReader) (*Tree, error) {
	if root.Type != objects.ContentTypeJSONv1 {
		return nil, fmt.Errorf("%w: got %q", clone.ErrRootNotListing, root.Type)
	}
	return &Tree{reader: reader, root: root}, nil
}

// Lookup resolves a path, given as its sequence of entry names relative to
// the tree root (an empty slice meaning the root itself), to its typed
// reference, descending one listing at a time.
func (t *Tree) Lookup(ctx context.Context, path []string) (objects.TypedReference, error) {
	current := t.root
	for _, name := range path {
		if current.Type != objects.ContentTypeJSONv1 {
			return objects.TypedReference{}, fmt.Errorf("%q is not a directory", name)
		}
		l, err := t.readListing(current.Content)
		if err != nil {
			return objects.TypedReference{}, err
		}
		ref, ok := l.Get(name)
		if !ok {
			return objects.TypedReference{}, fmt.Errorf("no such entry: %q", name)
		}
		current = ref
	}
	return current, nil
}

// Open returns a streaming reader for a blob entry's content. Callers
// resolve a path to a reference with Lookup first.
func (t *Tree) Open(ref objects.TypedReference) (*client.LinearFile, error) {
	if ref.Type != objects.ContentTypeBlob {
		return nil, fmt.Errorf("cannot open a %q entry as a file", ref.Type)
	}
	return t.reader.Open(ref.Content)
}

// Readdir lists a directory entry's names in byte-wise sorted order, for a
// path previously resolved to a json_v1 reference. Entry types are not
// returned; resolve a name with Lookup to get its reference.
func (t *Tree) Readdir(ref objects.TypedReference) ([]string, error) {
	if ref.Type != objects.ContentTypeJSONv1 {
		return nil, fmt.Errorf("cannot list a %q entry as a directory", ref.Type)
	}
	l, err := t.readListing(ref.Content)
	if err != nil {
		return nil, err
	}
	return l.Names(), nil
}

func (t *Tree) readListing(d digest.Digest) (*listing.Listing, error) {
	file, err := t.reader.Open(d)
	if err != nil {
		return nil, fmt.Errorf("unable to open listing %s: %w", d, err)
	}
	defer file.Close()
	buf := make([]byte, file.Size())
	if _, err := io.ReadFull(file, buf); err != nil {
		return nil, fmt.Errorf("unable to read listing %s: %w", d, err)
	}
	return listing.Unmarshal(buf)
}

// Mount would bind tree to mountpoint as a read-only FUSE filesystem. It
// always fails: doing so for real requires a kernel FUSE binding, which is
// out of scope here.
func Mount(ctx context.Context, mountpoint string, tree *Tree) error {
	return fmt.Errorf("%w (requested mountpoint %q)", ErrNoBackend, mountpoint)
}
