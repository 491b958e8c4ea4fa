// Package notify provides a stream of platform-neutral filesystem
// notifications for a single watched directory. Only a Linux backend
// (inotify, via golang.org/x/sys/unix) is implemented; other platforms get a
// stub that reports ErrUnsupported.
package notify

import "errors"

// Kind is a portable notification kind, translated from whatever the
// platform backend's native event mask was.
type Kind uint8

const (
	// KindAdd indicates a new file or directory appeared (including the
	// synthetic add events synthesized for the initial scan).
	KindAdd Kind = iota
	// KindRemove indicates an entry was removed from its parent directory.
	KindRemove
	// KindChangeContent indicates a file's content was modified.
	KindChangeContent
	// KindChangeMetadata indicates only metadata (mode, timestamps) changed.
	KindChangeMetadata
	// KindChangeContentOrMetadata indicates the backend can't distinguish
	// between a content and metadata change.
	KindChangeContentOrMetadata
	// KindMoveSelf indicates the watched path itself was renamed.
	KindMoveSelf
	// KindRemoveSelf indicates the watched path itself was deleted, or its
	// containing filesystem was unmounted.
	KindRemoveSelf
)

// Event is a single portable notification delivered for one watched
// directory: an entry named Name changed in the way described by Kind.
// IsDirectory reports whether the backend marked the entry as a directory
// (IN_ISDIR on Linux).
type Event struct {
	Watch       Descriptor
	Name        string
	Kind        Kind
	IsDirectory bool
}

// String renders a Kind as its lowercase name (add, remove, change_content,
// ...).
func (k Kind) String() string {
	switch k {
	case KindAdd:
		return "add"
	case KindRemove:
		return "remove"
	case KindChangeContent:
		return "change_content"
	case KindChangeMetadata:
		return "change_metadata"
	case KindChangeContentOrMetadata:
		return "change_content_or_metadata"
	case KindMoveSelf:
		return "move_self"
	case KindRemoveSelf:
		return "remove_self"
	default:
		return "unknown"
	}
}

// Descriptor identifies one active watch on a single directory. Its zero
// value never refers to a real watch.
type Descriptor uint64

// ErrUnsupported is returned by NewWatcher on platforms with no backend.
var ErrUnsupported = errors.New("notify: unsupported platform")

// ErrClosed indicates that a method was called on a Watcher after Close.
var ErrClosed = errors.New("notify: watcher closed")

// Watcher is a non-recursive, multi-path native watcher: it delivers one
// Event per changed entry in any directory it has been asked to Watch.
// Recursive tree semantics are built on top of this by pkg/watch's
// coordinator, which adds and removes individual directory watches as the
// tree changes shape.
type Watcher interface {
	// Watch begins watching path and returns a Descriptor identifying it.
	Watch(path string) (Descriptor, error)
	// Unwatch stops watching the directory identified by d.
	Unwatch(d Descriptor) error
	// Events returns the channel on which notifications are delivered.
	Events() <-chan Event
	// Errors returns the channel on which fatal backend errors are
	// delivered. Once populated, the watcher should be considered
	// terminated.
	Errors() <-chan error
	// Close releases all resources associated with the watcher.
	Close() error
}
