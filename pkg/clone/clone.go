// Package clone implements depth-first tree materialization, the inverse of
// a scan: read a root json_v1 listing through a storage reader and recreate
// it on a DirectoryManipulator, one entry at a time, with no rollback on
// failure.
package clone

import (
	"errors"
	"fmt"
	"io"

	"github.com/mutagen-io/blobtree/pkg/digest"
	"github.com/mutagen-io/blobtree/pkg/listing"
	"github.com/mutagen-io/blobtree/pkg/objects"
	"github.com/mutagen-io/blobtree/pkg/transfer/client"
)

// ErrRootNotListing indicates the caller passed a root reference whose type
// isn't json_v1, so it can't be the root of a tree to clone.
var ErrRootNotListing = errors.New("clone root is not a json_v1 listing")

// ErrUnknownEntryType indicates a listing entry names a content type this
// implementation doesn't know how to materialize.
var ErrUnknownEntryType = errors.New("unknown listing entry type")

// ErrReceivedTooMuch indicates a blob's body produced more bytes than its
// declared size, which would mean the transport violated its own contract.
var ErrReceivedTooMuch = errors.New("received more data than the object's declared size")

// ProgressFunc is called once per file materialized during a Clone, after the
// file has been fully written, with its path (relative to the clone root,
// forward-slash separated) and size in bytes.
type ProgressFunc func(path string, size int64)

// Option configures optional Clone behavior.
type Option func(*cloneOptions)

type cloneOptions struct {
	progress ProgressFunc
}

// WithProgress registers a ProgressFunc that Clone invokes as it materializes
// each file, for callers (such as a CLI) that want to report progress.
func WithProgress(progress ProgressFunc) Option {
	return func(o *cloneOptions) {
		o.progress = progress
	}
}

// Clone materializes the tree rooted at root into destination, reading
// object bodies through reader. On any error it returns immediately; the
// partially written destination tree is left in place with no rollback —
// callers are expected to retry into a fresh destination.
func Clone(root objects.TypedReference, destination DirectoryManipulator, reader client.StorageReader, options ...Option) error {
	if root.Type != objects.ContentTypeJSONv1 {
		return fmt.Errorf("%w: got %q", ErrRootNotListing, root.Type)
	}
	var opts cloneOptions
	for _, o := range options {
		o(&opts)
	}
	return cloneDirectory("", root.Content, destination, reader, &opts)
}

func cloneDirectory(prefix string, root digest.Digest, destination DirectoryManipulator, reader client.StorageReader, opts *cloneOptions) error {
	file, err := reader.Open(root)
	if err != nil {
		return fmt.Errorf("unable to open listing %s: %w", root, err)
	}
	data, err := io.ReadAll(file)
	file.Close()
	if err != nil {
		return fmt.Errorf("unable to read listing %s: %w", root, err)
	}

	l, err := listing.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("unable to parse listing %s: %w", root, err)
	}

	for _, name := range l.Names() {
		ref, _ := l.Get(name)
		childPath := name
		if prefix != "" {
			childPath = prefix + "/" + name
		}
		switch ref.Type {
		case objects.ContentTypeBlob:
			if err := cloneBlob(childPath, name, ref.Content, destination, reader, opts); err != nil {
				return err
			}
		case objects.ContentTypeJSONv1:
			sub, err := destination.Subdirectory(name)
			if err != nil {
				return fmt.Errorf("unable to create subdirectory %q: %w", name, err)
			}
			if err := cloneDirectory(childPath, ref.Content, sub, reader, opts); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: entry %q has type %q", ErrUnknownEntryType, name, ref.Type)
		}
	}
	return nil
}

// cloneBlob copies one blob's content into a new file named name. Every
// LinearFile (from HTTPStorageReader.Open or NewLinearFile) already bounds
// its reads to its declared size, so the overrun check below is a defensive
// guard that does not fire through those constructors. A body that ends
// before its declared size is reported as io.ErrUnexpectedEOF.
func cloneBlob(path, name string, d digest.Digest, destination DirectoryManipulator, reader client.StorageReader, opts *cloneOptions) error {
	file, err := reader.Open(d)
	if err != nil {
		return fmt.Errorf("unable to open blob %q (%s): %w", name, d, err)
	}
	defer file.Close()

	out, err := destination.CreateFile(name)
	if err != nil {
		return fmt.Errorf("unable to create file %q: %w", name, err)
	}
	defer out.Close()

	limited := io.LimitReader(file, file.Size()+1)
	written, err := io.Copy(out, limited)
	if err != nil {
		return fmt.Errorf("unable to copy %q: %w", name, err)
	}
	if written > file.Size() {
		return fmt.Errorf("%w: %q received %d bytes, expected at most %d", ErrReceivedTooMuch, name, written, file.Size())
	}
	if written < file.Size() {
		return fmt.Errorf("unable to copy %q: received %d bytes, expected %d: %w", name, written, file.Size(), io.ErrUnexpectedEOF)
	}
	if opts.progress != nil {
		opts.progress(path, written)
	}
	return nil
}
