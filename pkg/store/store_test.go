package store

import (
	"testing"

	"github.com/mutagen-io/blobtree/pkg/objects"
)

func TestInsertMultiplicityOrder(t *testing.T) {
	r := NewRepository()
	key := []byte("d")
	loc1 := objects.NewFileSystemLocation("/a", 1)
	loc2 := objects.NewFileSystemLocation("/b", 2)
	r.Insert(key, loc1)
	r.Insert(key, loc2)

	found := r.Find(key)
	if len(found) != 2 {
		t.Fatalf("Find returned %d locations, want 2", len(found))
	}
	if found[0].FileSystem.Path != "/a" || found[1].FileSystem.Path != "/b" {
		t.Fatalf("locations out of order: %+v", found)
	}
}

func TestInsertDuplicateIsNoop(t *testing.T) {
	r := NewRepository()
	key := []byte("d")
	r.Insert(key, objects.NewFileSystemLocation("/a", 1))
	r.Insert(key, objects.NewFileSystemLocation("/a", 1))
	if got := len(r.Find(key)); got != 1 {
		t.Fatalf("Find returned %d locations, want 1 (duplicate should be a no-op)", got)
	}
}

func TestMergeMovesPairs(t *testing.T) {
	a := NewRepository()
	b := NewRepository()
	b.Insert([]byte("x"), objects.NewInMemoryLocation([]byte("hi")))
	a.Merge(b)
	if got := len(a.Find([]byte("x"))); got != 1 {
		t.Fatalf("Find after merge returned %d, want 1", got)
	}
	if b.Len() != 0 {
		t.Fatalf("source repository should be emptied after merge, has %d entries", b.Len())
	}
}

func TestStorePublishIsVisibleAndSnapshotsAreIndependent(t *testing.T) {
	s := New()
	if got := s.Len(); got != 0 {
		t.Fatalf("new store Len() = %d, want 0", got)
	}

	r := NewRepository()
	r.Insert([]byte("k"), objects.NewInMemoryLocation([]byte("v")))
	s.Publish(r)

	if got := s.Len(); got != 1 {
		t.Fatalf("Len() after publish = %d, want 1", got)
	}

	// Mutating the repository after publish must not affect the published
	// snapshot.
	r.Insert([]byte("k2"), objects.NewInMemoryLocation([]byte("v2")))
	if got := s.Len(); got != 1 {
		t.Fatalf("Len() after post-publish mutation = %d, want still 1", got)
	}
}
