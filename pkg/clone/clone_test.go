package clone

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/mutagen-io/blobtree/pkg/digest"
	"github.com/mutagen-io/blobtree/pkg/logging"
	"github.com/mutagen-io/blobtree/pkg/objects"
	"github.com/mutagen-io/blobtree/pkg/scanner"
	"github.com/mutagen-io/blobtree/pkg/store"
	"github.com/mutagen-io/blobtree/pkg/transfer/client"
)

// repositoryStorageReader satisfies client.StorageReader directly from a
// scan's in-memory repository, bypassing HTTP entirely: it exists only to
// exercise Clone without a real listener, which is reasonable since
// pkg/transfer/client is tested separately for wire-level behavior.
type repositoryStorageReader struct {
	repo *store.Repository
}

func (r *repositoryStorageReader) locations(d digest.Digest) (objects.Location, bool) {
	found := r.repo.Find(digest.FromDigest(d))
	if len(found) == 0 {
		return objects.Location{}, false
	}
	return found[0], true
}

func (r *repositoryStorageReader) Size(d digest.Digest) (int64, error) {
	loc, ok := r.locations(d)
	if !ok {
		return 0, client.ErrNotFound
	}
	return loc.Size(), nil
}

func (r *repositoryStorageReader) Open(d digest.Digest) (*client.LinearFile, error) {
	loc, ok := r.locations(d)
	if !ok {
		return nil, client.ErrNotFound
	}
	if loc.InMemory != nil {
		return client.NewLinearFile(loc.Size(), bytes.NewReader(loc.InMemory.Content), io.NopCloser(nil)), nil
	}
	f, err := os.Open(loc.FileSystem.Path)
	if err != nil {
		return nil, err
	}
	return client.NewLinearFile(loc.Size(), f, f), nil
}

func mustWrite(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
}

// TestCloneIsScanInverse checks the "Clone = scan⁻¹" property: cloning a
// scanned tree's root into an empty destination reproduces a tree whose own
// scan yields the identical root digest.
func TestCloneIsScanInverse(t *testing.T) {
	source := t.TempDir()
	mustWrite(t, filepath.Join(source, "a.txt"), []byte("hello"))
	mustWrite(t, filepath.Join(source, "sub", "b.txt"), []byte("world"))
	mustWrite(t, filepath.Join(source, "sub", "deeper", "c.txt"), []byte("!"))

	logger := logging.New(logging.LevelDisabled, os.Stderr)
	scanned, err := scanner.Scan(source, logger, nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	destination := filepath.Join(t.TempDir(), "cloned")
	manipulator, err := NewFileSystemManipulator(destination)
	if err != nil {
		t.Fatalf("NewFileSystemManipulator: %v", err)
	}

	reader := &repositoryStorageReader{repo: scanned.Repository}
	if err := Clone(scanned.Root, manipulator, reader); err != nil {
		t.Fatalf("Clone: %v", err)
	}

	rescanned, err := scanner.Scan(destination, logger, nil)
	if err != nil {
		t.Fatalf("Scan of clone: %v", err)
	}
	if rescanned.Root.Content != scanned.Root.Content {
		t.Fatalf("clone root digest = %s, want %s", rescanned.Root.Content, scanned.Root.Content)
	}
}

func TestCloneReportsProgressForEachFile(t *testing.T) {
	source := t.TempDir()
	mustWrite(t, filepath.Join(source, "a.txt"), []byte("hello"))
	mustWrite(t, filepath.Join(source, "sub", "b.txt"), []byte("world!!"))

	logger := logging.New(logging.LevelDisabled, os.Stderr)
	scanned, err := scanner.Scan(source, logger, nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	destination, err := NewFileSystemManipulator(filepath.Join(t.TempDir(), "cloned"))
	if err != nil {
		t.Fatalf("NewFileSystemManipulator: %v", err)
	}

	reported := map[string]int64{}
	progress := WithProgress(func(path string, size int64) {
		reported[path] = size
	})

	reader := &repositoryStorageReader{repo: scanned.Repository}
	if err := Clone(scanned.Root, destination, reader, progress); err != nil {
		t.Fatalf("Clone: %v", err)
	}

	if reported["a.txt"] != 5 {
		t.Fatalf("reported[a.txt] = %d, want 5", reported["a.txt"])
	}
	if reported["sub/b.txt"] != 7 {
		t.Fatalf("reported[sub/b.txt] = %d, want 7", reported["sub/b.txt"])
	}
}

func TestCloneRejectsNonListingRoot(t *testing.T) {
	destination, err := NewFileSystemManipulator(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	root := objects.TypedReference{Type: objects.ContentTypeBlob, Content: digest.Digest{}}
	err = Clone(root, destination, &repositoryStorageReader{repo: store.NewRepository()})
	if err == nil {
		t.Fatal("expected an error cloning a non-listing root")
	}
}
