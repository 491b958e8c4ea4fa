// Package store implements the content-addressed object store: a mapping
// from digest to the one or more locations that hold a copy of its bytes.
//
// Repository is a plain, single-owner builder used by the scanner while it
// walks a tree, which owns it exclusively during the initial build. Store
// wraps a Repository behind an atomic snapshot pointer so that many HTTP
// server goroutines can read concurrently while the server's rescan
// goroutine, driven by watcher notifications, publishes new snapshots over
// time: an immutable snapshot handed
// to each connection, rebuilt on change, rather than a read-write lock.
package store

import (
	"sync/atomic"

	"github.com/mutagen-io/blobtree/pkg/objects"
)

// Repository is an unsynchronized digest -> []Location map. It is built up
// by a single owner (the scanner, during the initial scan or a rescan) and
// is not safe for concurrent mutation.
type Repository struct {
	available map[string][]objects.Location
}

// NewRepository creates an empty Repository.
func NewRepository() *Repository {
	return &Repository{available: make(map[string][]objects.Location)}
}

// locationsEqual reports whether two locations are known to reference the
// same bytes without re-reading them: filesystem locations compare by path,
// in-memory locations by content.
func locationsEqual(a, b objects.Location) bool {
	if a.IsFileSystem() != b.IsFileSystem() {
		return false
	}
	if a.IsFileSystem() {
		return a.FileSystem.Path == b.FileSystem.Path
	}
	if len(a.InMemory.Content) != len(b.InMemory.Content) {
		return false
	}
	for i := range a.InMemory.Content {
		if a.InMemory.Content[i] != b.InMemory.Content[i] {
			return false
		}
	}
	return true
}

// Insert appends loc to the location list for key, unless the key already has
// a location known to reference the same bytes, in which case the call is a
// no-op.
func (r *Repository) Insert(key []byte, loc objects.Location) {
	k := string(key)
	for _, existing := range r.available[k] {
		if locationsEqual(existing, loc) {
			return
		}
	}
	r.available[k] = append(r.available[k], loc)
}

// Find returns the locations recorded for key, or nil if none are known.
func (r *Repository) Find(key []byte) []objects.Location {
	return r.available[string(key)]
}

// Merge moves every (digest, location) pair from other into r. After Merge,
// other should not be used again — its contents have been adopted, not
// copied.
func (r *Repository) Merge(other *Repository) {
	for k, locs := range other.available {
		for _, loc := range locs {
			r.Insert([]byte(k), loc)
		}
	}
	other.available = nil
}

// Len reports the number of distinct digests recorded.
func (r *Repository) Len() int {
	return len(r.available)
}

// snapshot returns an immutable copy of the repository's current contents,
// safe to share across goroutines without further locking.
func (r *Repository) snapshot() map[string][]objects.Location {
	out := make(map[string][]objects.Location, len(r.available))
	for k, v := range r.available {
		copied := make([]objects.Location, len(v))
		copy(copied, v)
		out[k] = copied
	}
	return out
}

// Store publishes successive immutable snapshots of a Repository for
// concurrent readers. A new Store starts out empty; call Publish once the
// initial scan completes and again after every watcher-driven rescan.
type Store struct {
	current atomic.Pointer[map[string][]objects.Location]
}

// New creates an empty Store.
func New() *Store {
	s := &Store{}
	empty := make(map[string][]objects.Location)
	s.current.Store(&empty)
	return s
}

// Publish atomically replaces the store's visible contents with a snapshot
// of repo. Concurrent readers observe either the old or the new snapshot in
// its entirety, never a partial update.
func (s *Store) Publish(repo *Repository) {
	snap := repo.snapshot()
	s.current.Store(&snap)
}

// Find looks up key in the most recently published snapshot.
func (s *Store) Find(key []byte) []objects.Location {
	m := *s.current.Load()
	return m[string(key)]
}

// Len reports the number of distinct digests in the most recently published
// snapshot.
func (s *Store) Len() int {
	return len(*s.current.Load())
}
